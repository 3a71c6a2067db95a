package solverkit_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/conopt/augmented"
	"github.com/curioloop/conopt/lbfgs"
	"github.com/curioloop/conopt/objective"
	"github.com/curioloop/conopt/solverkit"
)

type quadTerm struct{ c float64 }

func (quadTerm) Arity() int                { return 1 }
func (quadTerm) VariableDimension(int) int { return 1 }

func (q quadTerm) Evaluate(x [][]float64) (float64, error) {
	d := x[0][0] - q.c
	return d * d, nil
}

func (q quadTerm) EvaluateGradient(x [][]float64, g [][]float64) (float64, error) {
	d := x[0][0] - q.c
	g[0][0] = 2 * d
	return d * d, nil
}

func (q quadTerm) EvaluateHessian(x [][]float64, g [][]float64, h [][]*mat.Dense) (float64, error) {
	v, err := q.EvaluateGradient(x, g)
	if err != nil {
		return 0, err
	}
	h[0][0].Set(0, 0, 2)
	return v, nil
}

func TestLBFGSSolverMinimizesQuadratic(t *testing.T) {
	f := objective.NewFunction()
	x := []float64{10}
	id, err := f.AddVariable(x, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.AddTerm(quadTerm{c: 3}, id); err != nil {
		t.Fatal(err)
	}

	solver := solverkit.NewLBFGSSolver(lbfgs.Termination{
		MaxIterations: 200,
		GradTolerance: 1e-10,
	})

	var logged []string
	solver.SetLogFunc(func(s string) { logged = append(logged, s) })

	results := &augmented.SolverResults{}
	if err := solver.Solve(f, results); err != nil {
		t.Fatal(err)
	}

	if math.Abs(x[0]-3) > 1e-4 {
		t.Fatalf("x = %v, want ~3", x[0])
	}
	if results.ExitCondition != augmented.ExitArgumentTolerance {
		t.Fatalf("exit = %v, want ExitArgumentTolerance", results.ExitCondition)
	}
	if len(logged) == 0 {
		t.Fatal("expected the final status line through the log sink")
	}
}

func TestLBFGSSolverRejectsEmptyFunction(t *testing.T) {
	f := objective.NewFunction()
	solver := solverkit.NewLBFGSSolver(lbfgs.Termination{MaxIterations: 10})

	results := &augmented.SolverResults{}
	if err := solver.Solve(f, results); err == nil {
		t.Fatal("expected an error for a zero-dimensional problem")
	}
	if results.ExitCondition != augmented.ExitInternalError {
		t.Fatalf("exit = %v, want ExitInternalError", results.ExitCondition)
	}
}

type failingTerm struct{}

func (failingTerm) Arity() int                { return 1 }
func (failingTerm) VariableDimension(int) int { return 1 }

func (failingTerm) Evaluate(x [][]float64) (float64, error) {
	return 0, objective.ErrNotSupported
}

func (failingTerm) EvaluateGradient(x [][]float64, g [][]float64) (float64, error) {
	return 0, objective.ErrNotSupported
}

func (failingTerm) EvaluateHessian(x [][]float64, g [][]float64, h [][]*mat.Dense) (float64, error) {
	return 0, objective.ErrNotSupported
}

func TestLBFGSSolverSurfacesEvaluationError(t *testing.T) {
	f := objective.NewFunction()
	x := []float64{1}
	id, err := f.AddVariable(x, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.AddTerm(failingTerm{}, id); err != nil {
		t.Fatal(err)
	}

	solver := solverkit.NewLBFGSSolver(lbfgs.Termination{MaxIterations: 10})

	results := &augmented.SolverResults{}
	if err := solver.Solve(f, results); err == nil {
		t.Fatal("expected the Term failure to surface from Solve")
	}
	if results.ExitCondition != augmented.ExitInternalError {
		t.Fatalf("exit = %v, want ExitInternalError", results.ExitCondition)
	}
}
