package objective

import "gonum.org/v1/gonum/mat"

// Term is a user-supplied additive contribution to a Function. It is
// evaluated over a fixed-arity tuple of variable arguments and may provide
// a gradient and a Hessian in addition to its scalar value.
//
// Implementations that cannot provide a derivative level should return
// ErrNotSupported from the corresponding method rather than panicking.
type Term interface {
	// Arity returns the number of variable arguments this term consumes.
	Arity() int
	// VariableDimension returns the x-space size of the i-th argument.
	VariableDimension(i int) int

	// Evaluate returns the scalar contribution for the given argument
	// values. x[i] has length VariableDimension(i).
	Evaluate(x [][]float64) (float64, error)

	// EvaluateGradient returns the scalar value and fills gradient[i] (of
	// length VariableDimension(i)) with the partial derivative of the term
	// with respect to its i-th argument.
	EvaluateGradient(x [][]float64, gradient [][]float64) (float64, error)

	// EvaluateHessian returns the scalar value, fills gradient as above, and
	// fills hessian[i][j] (shape VariableDimension(i) x VariableDimension(j))
	// with the second partial derivative block. hessian[i][j] must equal
	// hessian[j][i]^T at the aggregate level.
	EvaluateHessian(x [][]float64, gradient [][]float64, hessian [][]*mat.Dense) (float64, error)
}
