package augmented

import "github.com/curioloop/conopt/objective"

// Solver is the external unconstrained collaborator the augmented-Lagrangian
// outer loop drives: given a Function it minimizes that Function starting
// from the Function's current user-space state, writes the minimizer back
// through CopyGlobalToUser, and reports how it stopped.
//
// SetLogFunc installs a sink for free-form status strings; a nil sink means
// "don't log". Solve must tolerate SetLogFunc never having been called.
type Solver interface {
	Solve(f *objective.Function, results *SolverResults) error
	SetLogFunc(fn func(string))
}
