package objective

// ChangeOfVariables is a smooth bijection between a user parameterization x
// and a solver parameterization t, used for e.g. box-to-unbounded
// reparameterizations. It is attached to a variable at AddVariable time.
//
// ChangeOfVariables only participates in the dense-gradient evaluation path;
// any Hessian request on a variable with one attached fails with
// ErrUnsupportedChangeOfVariables.
type ChangeOfVariables interface {
	// XDim returns the dimension of the user-space representation x.
	XDim() int
	// TDim returns the dimension of the solver-space representation t.
	TDim() int

	// TToX maps solver-space t to user-space x.
	TToX(xOut, tIn []float64)
	// XToT maps user-space x to solver-space t.
	XToT(tOut, xIn []float64)

	// UpdateGradient applies the transpose-Jacobian pullback of the
	// user-space gradient gUser and ACCUMULATES the result into gSolver.
	// gSolver must not be overwritten; it already carries contributions
	// from other terms sharing this variable.
	UpdateGradient(gSolver, t, gUser []float64)
}
