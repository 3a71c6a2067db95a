package scenario

import (
	"fmt"

	"github.com/curioloop/conopt/augmented"
	"github.com/curioloop/conopt/lbfgs"
	"github.com/curioloop/conopt/solverkit"
)

// Scenario is one of the worked examples conoptdemo exposes.
type Scenario struct {
	Name  string
	Short string
	Run   func(log func(string)) (string, error)
}

func defaultSolver() *solverkit.LBFGSSolver {
	return solverkit.NewLBFGSSolver(lbfgs.Termination{
		MaxIterations: 200,
		GradTolerance: 1e-10,
	})
}

// All lists the scenarios conoptdemo exposes as subcommands. Scenario 5
// (penalty escalation) inspects the outer loop's transient mu/nu state
// between the first and second iteration, which the public API does not
// expose; it is covered by augmented's unit tests instead of a CLI command.
var All = []Scenario{
	{
		Name:  "unconstrained",
		Short: "minimize (x-3)^2 with no constraints",
		Run:   runUnconstrained,
	},
	{
		Name:  "active-constraint",
		Short: "minimize (x-3)^2 subject to x <= 2",
		Run:   runActiveConstraint,
	},
	{
		Name:  "inactive-constraint",
		Short: "minimize (x-3)^2 subject to x <= 5",
		Run:   runInactiveConstraint,
	},
	{
		Name:  "multi-constraint",
		Short: "minimize x^2+y^2 subject to x+y <= -1 and x <= 0",
		Run:   runMultiConstraint,
	},
	{
		Name:  "iteration-cap",
		Short: "the active-constraint problem with MaxNumberOfIterations=1",
		Run:   runIterationCap,
	},
}

func runUnconstrained(log func(string)) (string, error) {
	cf := augmented.NewConstrainedFunction()
	cf.SetLogFunc(log)

	x := []float64{0}
	idX, err := cf.AddVariable(x, nil)
	if err != nil {
		return "", err
	}
	if err := cf.AddTerm(quadraticTerm{center: 3}, idX); err != nil {
		return "", err
	}

	results := &augmented.SolverResults{}
	if err := cf.Solve(defaultSolver(), results); err != nil {
		return "", err
	}

	f, err := cf.Objective().Evaluate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("x=%.6f objective=%.3e exit=%s iterations=%d", x[0], f, results.ExitCondition, results.Iterations), nil
}

func runActiveConstraint(log func(string)) (string, error) {
	cf := augmented.NewConstrainedFunction()
	cf.SetLogFunc(log)

	x := []float64{0}
	idX, err := cf.AddVariable(x, nil)
	if err != nil {
		return "", err
	}
	if err := cf.AddTerm(quadraticTerm{center: 3}, idX); err != nil {
		return "", err
	}
	if err := cf.AddConstraintTerm("x<=2", affineTerm{coeffs: []float64{1}, bias: -2}, idX); err != nil {
		return "", err
	}

	results := &augmented.SolverResults{}
	if err := cf.Solve(defaultSolver(), results); err != nil {
		return "", err
	}

	f, err := cf.Objective().Evaluate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("x=%.6f objective=%.3e feasible=%v exit=%s iterations=%d", x[0], f, cf.IsFeasible(), results.ExitCondition, results.Iterations), nil
}

func runInactiveConstraint(log func(string)) (string, error) {
	cf := augmented.NewConstrainedFunction()
	cf.SetLogFunc(log)

	x := []float64{0}
	idX, err := cf.AddVariable(x, nil)
	if err != nil {
		return "", err
	}
	if err := cf.AddTerm(quadraticTerm{center: 3}, idX); err != nil {
		return "", err
	}
	if err := cf.AddConstraintTerm("x<=5", affineTerm{coeffs: []float64{1}, bias: -5}, idX); err != nil {
		return "", err
	}

	results := &augmented.SolverResults{}
	if err := cf.Solve(defaultSolver(), results); err != nil {
		return "", err
	}

	f, err := cf.Objective().Evaluate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("x=%.6f objective=%.3e feasible=%v exit=%s iterations=%d", x[0], f, cf.IsFeasible(), results.ExitCondition, results.Iterations), nil
}

func runMultiConstraint(log func(string)) (string, error) {
	cf := augmented.NewConstrainedFunction()
	cf.SetLogFunc(log)

	x := []float64{1}
	y := []float64{1}
	idX, err := cf.AddVariable(x, nil)
	if err != nil {
		return "", err
	}
	idY, err := cf.AddVariable(y, nil)
	if err != nil {
		return "", err
	}
	if err := cf.AddTerm(quadraticTerm{center: 0}, idX); err != nil {
		return "", err
	}
	if err := cf.AddTerm(quadraticTerm{center: 0}, idY); err != nil {
		return "", err
	}
	if err := cf.AddConstraintTerm("x+y<=-1", affineTerm{coeffs: []float64{1, 1}, bias: 1}, idX, idY); err != nil {
		return "", err
	}
	if err := cf.AddConstraintTerm("x<=0", affineTerm{coeffs: []float64{1}, bias: 0}, idX); err != nil {
		return "", err
	}

	results := &augmented.SolverResults{}
	if err := cf.Solve(defaultSolver(), results); err != nil {
		return "", err
	}

	f, err := cf.Objective().Evaluate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("x=%.6f y=%.6f objective=%.3e feasible=%v exit=%s iterations=%d", x[0], y[0], f, cf.IsFeasible(), results.ExitCondition, results.Iterations), nil
}

func runIterationCap(log func(string)) (string, error) {
	cf := augmented.NewConstrainedFunction()
	cf.SetLogFunc(log)
	cf.MaxNumberOfIterations = 1

	x := []float64{0}
	idX, err := cf.AddVariable(x, nil)
	if err != nil {
		return "", err
	}
	if err := cf.AddTerm(quadraticTerm{center: 3}, idX); err != nil {
		return "", err
	}
	if err := cf.AddConstraintTerm("x<=2", affineTerm{coeffs: []float64{1}, bias: -2}, idX); err != nil {
		return "", err
	}

	results := &augmented.SolverResults{}
	if err := cf.Solve(defaultSolver(), results); err != nil {
		return "", err
	}

	f, err := cf.Objective().Evaluate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("x=%.6f objective=%.3e exit=%s iterations=%d", x[0], f, results.ExitCondition, results.Iterations), nil
}
