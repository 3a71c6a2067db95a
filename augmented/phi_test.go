package augmented_test

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/conopt/augmented"
	"github.com/curioloop/conopt/objective"
)

// affineTerm computes a·x + b for a single scalar argument; used as a toy
// linear constraint such as c(x) = x - 2 <= 0 throughout this package's tests.
type affineTerm struct{ a, b float64 }

func (affineTerm) Arity() int                { return 1 }
func (affineTerm) VariableDimension(int) int { return 1 }

func (t affineTerm) Evaluate(x [][]float64) (float64, error) {
	return t.a*x[0][0] + t.b, nil
}

func (t affineTerm) EvaluateGradient(x [][]float64, g [][]float64) (float64, error) {
	g[0][0] = t.a
	return t.a*x[0][0] + t.b, nil
}

func (t affineTerm) EvaluateHessian(x [][]float64, g [][]float64, h [][]*mat.Dense) (float64, error) {
	v, err := t.EvaluateGradient(x, g)
	if err != nil {
		return 0, err
	}
	h[0][0].Set(0, 0, 0)
	return v, nil
}

func TestPhiHessianNotSupported(t *testing.T) {
	term := affineTerm{a: 1, b: -2}
	sigma, mu := 1.0, 10.0
	phi := augmented.NewPhi(term, &sigma, &mu)

	g := [][]float64{{0}}
	h := [][]*mat.Dense{{mat.NewDense(1, 1, nil)}}
	if _, err := phi.EvaluateHessian([][]float64{{1}}, g, h); !errors.Is(err, objective.ErrHessianNotSupported) {
		t.Fatalf("got %v, want ErrHessianNotSupported", err)
	}
}

func TestPhiContinuousAtSwitchingSurface(t *testing.T) {
	sigma, mu := 2.0, 5.0
	term := affineTerm{a: 1, b: 0}
	phi := augmented.NewPhi(term, &sigma, &mu)

	// The switching surface is -t = sigma/mu, i.e. t = -sigma/mu.
	t0 := -sigma / mu
	eps := 1e-6

	valueAt := func(t float64) float64 {
		v, err := phi.Evaluate([][]float64{{t}})
		if err != nil {
			panic(err)
		}
		return v
	}
	gradAt := func(t float64) float64 {
		g := [][]float64{{0}}
		if _, err := phi.EvaluateGradient([][]float64{{t}}, g); err != nil {
			panic(err)
		}
		return g[0][0]
	}

	vLeft, vRight := valueAt(t0-eps), valueAt(t0+eps)
	if math.Abs(vLeft-vRight) > 1e-4 {
		t.Fatalf("value discontinuous at switching surface: %v vs %v", vLeft, vRight)
	}

	gLeft, gRight := gradAt(t0-eps), gradAt(t0+eps)
	if math.Abs(gLeft-gRight) > 1e-4 {
		t.Fatalf("gradient discontinuous at switching surface: %v vs %v", gLeft, gRight)
	}
}

func TestPhiInactiveBranchIsZero(t *testing.T) {
	sigma, mu := 0.0, 10.0
	term := affineTerm{a: 1, b: -2}
	phi := augmented.NewPhi(term, &sigma, &mu)

	// t = c(-10) = -12, well inside the feasible region: -t - sigma/mu =
	// 12 > 0, so the inactive branch applies and the gradient is zero.
	g := [][]float64{{0}}
	v, err := phi.EvaluateGradient([][]float64{{-10}}, g)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("inactive-branch value = %v, want 0 (sigma=0)", v)
	}
	if g[0][0] != 0 {
		t.Fatalf("inactive-branch gradient = %v, want 0", g[0][0])
	}
}

func TestPhiArityAndDimensionForwarded(t *testing.T) {
	term := affineTerm{a: 1, b: -2}
	sigma, mu := 0.0, 10.0
	phi := augmented.NewPhi(term, &sigma, &mu)

	if phi.Arity() != term.Arity() {
		t.Fatalf("Arity() = %d, want %d", phi.Arity(), term.Arity())
	}
	if phi.VariableDimension(0) != term.VariableDimension(0) {
		t.Fatalf("VariableDimension(0) = %d, want %d", phi.VariableDimension(0), term.VariableDimension(0))
	}
}
