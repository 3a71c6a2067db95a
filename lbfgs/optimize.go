// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lbfgs implements an unconstrained limited-memory BFGS optimizer
// with a backtracking Armijo line search. It keeps the last M correction
// pairs and applies the inverse-Hessian approximation through the classic
// two-loop recursion.
package lbfgs

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only the final status and summary lines at the last iteration
	LogLast LogLevel = 0
	// LogEval print also f and |g| at every iteration
	LogEval LogLevel = 1
)

// Logger handles logging output for the optimizer.
// Note the writers must be thread-safe.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
	Out   io.Writer // Writer for output data.
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

// Evaluation is a function type for evaluating the objective function and gradient.
type Evaluation func(x []float64, g []float64) (f float64)

// Termination specifies the stopping criteria for the optimization algorithm.
type Termination struct {
	// The iteration stop when the number of iteration reaches limit.
	MaxIterations int
	// The iteration stop when the total number of function and gradient evaluation reaches limit.
	MaxEvaluations int
	// The iteration will stop when the gradient satisfied:
	//   𝚖𝚊𝚡( |gᵢ₌₁,...,ₙ| ) ≤ 𝚐𝚝𝚘𝚕
	GradTolerance float64
	// The iteration will stop when the function value satisfied:
	//   (fₖ - fₖ₊₁)/𝚖𝚊𝚡(|fₖ|,|fₖ₊₁|,1) ≤ 𝚏𝚊𝚌𝚝𝚛 × 𝚎𝚙𝚜𝚖𝚌𝚑
	EpsAccuracyFactor float64
}

// Problem specifies the problem for L-BFGS optimizer.
type Problem struct {
	N    int         // The problem dimension
	M    int         // The correction number of BFGS
	Eval Evaluation  // Objective function and gradient
	Stop Termination // Stop condition
}

// Status is the final task state of an optimization run.
type Status int

const (
	ConvGradNorm Status = iota + 1
	ConvEnoughAccuracy
	OverIterLimit
	OverEvalLimit
	HaltLineSearch
	HaltEvalPanic
)

func (s Status) String() string {
	switch s {
	case ConvGradNorm:
		return "CONVERGENCE: NORM OF GRADIENT <= GTOL"
	case ConvEnoughAccuracy:
		return "CONVERGENCE: REL REDUCTION OF F <= FACTR*EPSMCH"
	case OverIterLimit:
		return "STOP: TOTAL NO. of ITERATIONS REACHED LIMIT"
	case OverEvalLimit:
		return "STOP: TOTAL NO. of F,G EVALUATIONS EXCEEDS LIMIT"
	case HaltLineSearch:
		return "ABNORMAL: NO PROGRESS IN LINE SEARCH"
	case HaltEvalPanic:
		return "ABNORMAL: PANIC IN EVALUATION"
	default:
		return "UNKNOWN"
	}
}

// converged reports whether the run stopped on a convergence criterion
// rather than a limit or a halt.
func (s Status) converged() bool {
	return s == ConvGradNorm || s == ConvEnoughAccuracy
}

// New creates a new L-BFGS optimizer for given problem.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	if logger == nil {
		logger = new(Logger)
		logger.Level = LogNoop
	}
	if logger.Msg == nil {
		logger.Msg = os.Stdout
	}
	if logger.Out == nil {
		logger.Out = os.Stderr
	}

	n, m := p.N, p.M
	stop := p.Stop

	stop.MaxEvaluations = max(stop.MaxEvaluations, 0)
	if stop.MaxEvaluations == 0 {
		stop.MaxEvaluations = math.MaxInt
	}

	switch {
	case n <= 0:
		err = errors.New("problem dimension must greater than 0")
	case m <= 0:
		err = errors.New("correction number must greater than 0")
	case p.Eval == nil:
		err = errors.New("evaluation target is required")
	case stop.MaxIterations <= 0:
		err = errors.New("max iteration must greater than 0")
	case !math.IsNaN(stop.GradTolerance) && stop.GradTolerance < 0:
		err = errors.New("gradient tolerance must not less than 0")
	case !math.IsNaN(stop.EpsAccuracyFactor) && stop.EpsAccuracyFactor < 0:
		err = errors.New("machine epsilon factor must not less than 0")
	}
	if err != nil {
		return
	}

	epsilon := math.Nextafter(1, 2) - 1
	optimizer = &Optimizer{
		n: n, m: m,
		epsilon: epsilon,
		stop:    stop,
		eval:    p.Eval,
		logger:  *logger,
	}
	return
}

// Optimizer implemented using the L-BFGS algorithm.
type Optimizer struct {
	n, m    int
	epsilon float64
	stop    Termination
	eval    Evaluation
	logger  Logger
}

// Workspace contains the state and context of the optimization process.
// Given problem dimension n and corrections number m,
// total work space is approximately float64[2×mn + 4×n + m].
type Workspace struct {
	n, m int

	s, y [][]float64 // correction pair ring buffers, m × n
	rho  []float64   // 1/(yᵀs) for each stored pair
	d    []float64   // search direction
	xNew []float64   // trial point of the line search
	gNew []float64   // gradient at the trial point
	q    []float64   // two-loop recursion scratch

	iter      int
	totalEval int
}

// Result contains the final result of the optimization process.
type Result struct {
	OK      bool      // Whether the optimization was converged.
	F       float64   // Final function value.
	X, G    []float64 // Final solution and gradient.
	Summary           // Optimization summary.
}

// Summary contains a summary of the optimization process.
type Summary struct {
	Status  Status // Final task status after optimization.
	NumIter int    // Number of iterations performed.
	NumEval int    // Number of function and gradient evaluations performed.
}

// Init allocate the workspace for L-BFGS optimizer.
// To avoid race conditions, separate workspaces need to be created for each goroutine.
// But multiple workspaces could share one optimizer.
func (o *Optimizer) Init() *Workspace {
	w := &Workspace{n: o.n, m: o.m}
	w.s = make([][]float64, o.m)
	w.y = make([][]float64, o.m)
	for i := 0; i < o.m; i++ {
		w.s[i] = make([]float64, o.n)
		w.y[i] = make([]float64, o.n)
	}
	w.rho = make([]float64, o.m)
	w.d = make([]float64, o.n)
	w.xNew = make([]float64, o.n)
	w.gNew = make([]float64, o.n)
	w.q = make([]float64, o.n)
	return w
}

// Fit runs the optimization process using the initial guess x and workspace w.
func (o *Optimizer) Fit(x []float64, w *Workspace) *Result {

	if len(x) != o.n {
		panic("initial x dimension not match spec")
	}
	if w.n != o.n || w.m != o.m {
		panic("workspace dimension not match spec")
	}

	loc := &iterLoc{
		x: append([]float64{}, x...),
		g: make([]float64, len(x)),
	}

	driver := iterDriver{
		optimizer: o,
		workspace: w,
		location:  loc,
	}

	status := driver.mainLoop()
	return &Result{
		OK: status.converged(),
		X:  loc.x, F: loc.f, G: loc.g,
		Summary: Summary{
			Status:  status,
			NumIter: w.iter,
			NumEval: w.totalEval,
		},
	}
}
