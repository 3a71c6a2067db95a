// Package scenario implements small end-to-end constrained-optimization
// problems as runnable conopt scenarios, for conoptdemo to drive.
package scenario

import "gonum.org/v1/gonum/mat"

// quadraticTerm computes (x - center)^2 for a single scalar argument.
type quadraticTerm struct{ center float64 }

func (quadraticTerm) Arity() int                { return 1 }
func (quadraticTerm) VariableDimension(int) int { return 1 }

func (t quadraticTerm) Evaluate(x [][]float64) (float64, error) {
	d := x[0][0] - t.center
	return d * d, nil
}

func (t quadraticTerm) EvaluateGradient(x [][]float64, g [][]float64) (float64, error) {
	d := x[0][0] - t.center
	g[0][0] = 2 * d
	return d * d, nil
}

func (t quadraticTerm) EvaluateHessian(x [][]float64, g [][]float64, h [][]*mat.Dense) (float64, error) {
	v, err := t.EvaluateGradient(x, g)
	if err != nil {
		return 0, err
	}
	h[0][0].Set(0, 0, 2)
	return v, nil
}

// affineTerm computes sum(coeffs[i] * x[i]) + bias over one-dimensional
// arguments, used here to express linear inequality constraints such as
// x <= 2 (coeffs=[1], bias=-2) or x+y <= -1 (coeffs=[1,1], bias=1).
type affineTerm struct {
	coeffs []float64
	bias   float64
}

func (t affineTerm) Arity() int              { return len(t.coeffs) }
func (affineTerm) VariableDimension(int) int { return 1 }

func (t affineTerm) Evaluate(x [][]float64) (float64, error) {
	v := t.bias
	for i, c := range t.coeffs {
		v += c * x[i][0]
	}
	return v, nil
}

func (t affineTerm) EvaluateGradient(x [][]float64, g [][]float64) (float64, error) {
	v, err := t.Evaluate(x)
	if err != nil {
		return 0, err
	}
	for i, c := range t.coeffs {
		g[i][0] = c
	}
	return v, nil
}

func (t affineTerm) EvaluateHessian(x [][]float64, g [][]float64, h [][]*mat.Dense) (float64, error) {
	v, err := t.EvaluateGradient(x, g)
	if err != nil {
		return 0, err
	}
	for i := range t.coeffs {
		for j := range t.coeffs {
			h[i][j].Set(0, 0, 0)
		}
	}
	return v, nil
}
