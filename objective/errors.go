package objective

import "errors"

// Structural errors surface at the offending API call and are never recovered
// internally.
var (
	// ErrDimensionMismatch is returned when a variable is re-added with a
	// different dimension, or a term's declared variable dimension disagrees
	// with the registered variable.
	ErrDimensionMismatch = errors.New("objective: dimension mismatch")
	// ErrArityMismatch is returned when the argument count passed to AddTerm
	// differs from the term's arity.
	ErrArityMismatch = errors.New("objective: arity mismatch")
	// ErrUnknownVariable is returned when an AddTerm argument was not
	// previously registered with AddVariable.
	ErrUnknownVariable = errors.New("objective: unknown variable")
	// ErrHessianDisabled is returned when a Hessian is requested on a
	// Function constructed with Hessian support turned off.
	ErrHessianDisabled = errors.New("objective: hessian support disabled")
	// ErrHessianNotSupported is returned by a Term (or a wrapper such as
	// Phi) that does not provide a Hessian.
	ErrHessianNotSupported = errors.New("objective: hessian not supported")
	// ErrUnsupportedChangeOfVariables is returned when a Hessian is
	// requested and at least one argument variable has a ChangeOfVariables
	// attached.
	ErrUnsupportedChangeOfVariables = errors.New("objective: change of variables not supported for hessian")
	// ErrInvalidThreadCount is returned by SetNumberOfThreads for a
	// non-positive worker count.
	ErrInvalidThreadCount = errors.New("objective: invalid thread count")
	// ErrNotSupported is returned by a Term evaluator that does not
	// implement the requested derivative level.
	ErrNotSupported = errors.New("objective: derivative not supported")
)

// EvaluationError wraps the first non-empty per-worker failure surfaced after
// a parallel term-evaluation pass joins. It is never constructed with a nil
// cause.
type EvaluationError struct {
	cause error
}

func (e *EvaluationError) Error() string {
	return "objective: evaluation failed: " + e.cause.Error()
}

// Unwrap exposes the underlying Term failure for errors.Is/errors.As.
func (e *EvaluationError) Unwrap() error {
	return e.cause
}
