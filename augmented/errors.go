package augmented

import "errors"

// ErrDuplicateConstraint is returned by AddConstraintTerm when the given
// name already names a constraint on this ConstrainedFunction.
var ErrDuplicateConstraint = errors.New("augmented: duplicate constraint name")
