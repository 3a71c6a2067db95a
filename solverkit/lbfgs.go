package solverkit

import (
	"io"
	"math"

	"go.uber.org/multierr"

	"github.com/curioloop/conopt/augmented"
	"github.com/curioloop/conopt/lbfgs"
	"github.com/curioloop/conopt/objective"
)

// LBFGSSolver adapts lbfgs.Problem into augmented.Solver: each Solve call
// builds a fresh Problem sized to the Function's current NumberOfScalars,
// seeds it from the Function's current user state, and writes the result
// back through CopyGlobalToUser.
type LBFGSSolver struct {
	// Corrections is the L-BFGS memory size M; defaults to 10 when <= 0.
	Corrections int
	Termination lbfgs.Termination

	logFn func(string)
}

// NewLBFGSSolver creates an LBFGSSolver with the given stopping criteria.
func NewLBFGSSolver(stop lbfgs.Termination) *LBFGSSolver {
	return &LBFGSSolver{Termination: stop}
}

func (s *LBFGSSolver) SetLogFunc(fn func(string)) { s.logFn = fn }

func (s *LBFGSSolver) validate(n int) error {
	return multierr.Combine(
		requirePositive(n, "objective dimension"),
		requireNonNegativeInt(s.Termination.MaxIterations, "max iterations"),
		requireNonNegative(s.Termination.GradTolerance, "gradient tolerance"),
	)
}

func (s *LBFGSSolver) Solve(f *objective.Function, results *augmented.SolverResults) error {
	n := f.NumberOfScalars()
	if err := s.validate(n); err != nil {
		results.ExitCondition = augmented.ExitInternalError
		return err
	}

	m := s.Corrections
	if m <= 0 {
		m = 10
	}

	x := make([]float64, n)
	f.CopyUserToGlobal(x)

	var evalErr error
	problem := &lbfgs.Problem{
		N: n,
		M: m,
		Eval: func(x, g []float64) float64 {
			v, err := f.EvaluateGradient(x, g)
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			return v
		},
		Stop: s.Termination,
	}

	logger := &lbfgs.Logger{Level: lbfgs.LogNoop, Msg: io.Discard, Out: io.Discard}
	if s.logFn != nil {
		logger.Level = lbfgs.LogLast
		logger.Msg = sinkWriter{s.logFn}
		logger.Out = sinkWriter{s.logFn}
	}

	optimizer, err := problem.New(logger)
	if err != nil {
		results.ExitCondition = augmented.ExitInternalError
		return err
	}

	ws := optimizer.Init()
	res := optimizer.Fit(x, ws)
	if evalErr != nil {
		results.ExitCondition = augmented.ExitInternalError
		return evalErr
	}

	f.CopyGlobalToUser(res.X)

	if res.OK {
		results.ExitCondition = augmented.ExitArgumentTolerance
	} else {
		results.ExitCondition = augmented.ExitNoConvergence
	}
	return nil
}
