// Package solverkit adapts the lbfgs unconstrained optimizer into
// augmented.Solver, so augmented.ConstrainedFunction can drive it as its
// inner Solver.
package solverkit

import "strings"

// sinkWriter turns a free-form log sink (string -> void) into an io.Writer,
// one line per Write call, mirroring the split between message/data streams
// in lbfgs.Logger without requiring the sink itself to know about io.Writer.
type sinkWriter struct {
	fn func(string)
}

func (w sinkWriter) Write(p []byte) (int, error) {
	if w.fn != nil {
		w.fn(strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}
