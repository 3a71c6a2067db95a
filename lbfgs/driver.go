// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

import "math"

// iterLoc is the current iterate of an optimization run.
type iterLoc struct {
	x []float64
	g []float64
	f float64
}

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver struct {
	optimizer *Optimizer
	workspace *Workspace
	location  *iterLoc
}

// nextLocation evaluates f and g at x, guarding against a panicking
// evaluation target.
func (d *iterDriver) nextLocation(x, g []float64) (f float64, ok bool) {
	o, w := d.optimizer, d.workspace
	ok = true
	func() {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		f = o.eval(x, g)
		w.totalEval++
	}()
	return
}

func gradInfNorm(g []float64) float64 {
	nrm := 0.0
	for _, v := range g {
		if a := math.Abs(v); a > nrm {
			nrm = a
		}
	}
	return nrm
}

func ddot(x, y []float64) float64 {
	sum := 0.0
	for i, v := range x {
		sum += v * y[i]
	}
	return sum
}

// searchDirection computes d = -Hₖ·g through the two-loop recursion over the
// stored correction pairs. With no stored pairs it falls back to steepest
// descent. The initial inverse Hessian is γI with γ = sᵀy/yᵀy of the most
// recent pair.
func (d *iterDriver) searchDirection(stored, head int) {
	w, loc := d.workspace, d.location
	m := w.m

	q := w.q
	copy(q, loc.g)

	alpha := make([]float64, stored)
	for k := 0; k < stored; k++ {
		i := (head - 1 - k + 2*m) % m
		a := w.rho[i] * ddot(w.s[i], q)
		alpha[k] = a
		for j := range q {
			q[j] -= a * w.y[i][j]
		}
	}

	if stored > 0 {
		last := (head - 1 + m) % m
		gamma := 1.0 / (w.rho[last] * ddot(w.y[last], w.y[last]))
		for j := range q {
			q[j] *= gamma
		}
	}

	for k := stored - 1; k >= 0; k-- {
		i := (head - 1 - k + 2*m) % m
		beta := w.rho[i] * ddot(w.y[i], q)
		for j := range q {
			q[j] += (alpha[k] - beta) * w.s[i][j]
		}
	}

	for j := range q {
		w.d[j] = -q[j]
	}
}

const (
	armijoSlope   = 1e-4
	backtrackStep = 0.5
	minStep       = 1e-20
)

// lineSearch backtracks along w.d from loc until the Armijo sufficient
// decrease condition f(x+t·d) ≤ f + c₁·t·gᵀd holds, writing the accepted
// trial point into w.xNew/w.gNew. The initial trial step is 1 except on the
// very first (steepest-descent) iteration when |g|∞ > 1, where it is scaled
// by 1/|g|∞ so that the first move is at most unit length in the max norm.
func (d *iterDriver) lineSearch(first bool) (fNew float64, ok bool) {
	o, w, loc := d.optimizer, d.workspace, d.location

	g0 := ddot(loc.g, w.d)
	if g0 >= 0 {
		// Not a descent direction; restart from steepest descent.
		for j := range w.d {
			w.d[j] = -loc.g[j]
		}
		g0 = ddot(loc.g, w.d)
		if g0 >= 0 {
			return 0, false
		}
	}

	t := 1.0
	if first {
		if nrm := gradInfNorm(loc.g); nrm > 1 {
			t = 1 / nrm
		}
	}

	for ; t > minStep; t *= backtrackStep {
		for j := range w.xNew {
			w.xNew[j] = loc.x[j] + t*w.d[j]
		}
		f, evalOK := d.nextLocation(w.xNew, w.gNew)
		if !evalOK {
			return 0, false
		}
		if w.totalEval >= o.stop.MaxEvaluations {
			return f, true
		}
		if f <= loc.f+armijoSlope*t*g0 {
			return f, true
		}
	}
	return 0, false
}

// mainLoop is the main execution loop of the iteration process: check
// convergence, build a quasi-Newton direction, line-search along it, and
// fold the accepted step into the correction history.
func (d *iterDriver) mainLoop() Status {

	o, w, loc := d.optimizer, d.workspace, d.location
	log := o.logger

	// A workspace may be reused across Fit calls.
	w.iter, w.totalEval = 0, 0

	var f0 float64
	var evalOK bool
	if f0, evalOK = d.nextLocation(loc.x, loc.g); !evalOK {
		return HaltEvalPanic
	}
	loc.f = f0

	stored, head := 0, 0

	for {
		gNorm := gradInfNorm(loc.g)
		if log.enable(LogEval) {
			log.log("At iterate %5d    f= %12.5e    |g|= %12.5e\n", w.iter, loc.f, gNorm)
		}
		if gNorm <= o.stop.GradTolerance {
			d.printFinal(ConvGradNorm)
			return ConvGradNorm
		}
		if w.iter >= o.stop.MaxIterations {
			d.printFinal(OverIterLimit)
			return OverIterLimit
		}
		if w.totalEval >= o.stop.MaxEvaluations {
			d.printFinal(OverEvalLimit)
			return OverEvalLimit
		}

		d.searchDirection(stored, head)

		fOld := loc.f
		fNew, ok := d.lineSearch(w.iter == 0)
		if !ok {
			d.printFinal(HaltLineSearch)
			return HaltLineSearch
		}

		// Fold the accepted step into the ring buffer when the curvature
		// condition sᵀy > 0 holds; skipping keeps H positive definite.
		s, y := w.s[head], w.y[head]
		for j := range s {
			s[j] = w.xNew[j] - loc.x[j]
			y[j] = w.gNew[j] - loc.g[j]
		}
		if sy := ddot(s, y); sy > o.epsilon*ddot(y, y) {
			w.rho[head] = 1 / sy
			head = (head + 1) % w.m
			if stored < w.m {
				stored++
			}
		}

		copy(loc.x, w.xNew)
		copy(loc.g, w.gNew)
		loc.f = fNew
		w.iter++

		if !math.IsNaN(o.stop.EpsAccuracyFactor) && o.stop.EpsAccuracyFactor > 0 {
			tolEps := o.epsilon * o.stop.EpsAccuracyFactor
			change := math.Max(math.Abs(fOld), math.Max(math.Abs(loc.f), 1))
			if fOld-loc.f <= tolEps*change {
				d.printFinal(ConvEnoughAccuracy)
				return ConvEnoughAccuracy
			}
		}
	}
}

func (d *iterDriver) printFinal(status Status) {
	o, w, loc := d.optimizer, d.workspace, d.location
	log := o.logger
	if log.enable(LogLast) {
		log.log("%s\n", status)
		log.log("Final f= %12.5e after %d iterations and %d evaluations\n", loc.f, w.iter, w.totalEval)
	}
}
