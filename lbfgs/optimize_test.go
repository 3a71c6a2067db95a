// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

import (
	"io"
	"math"
	"testing"
)

func quietLogger() *Logger {
	return &Logger{Level: LogNoop, Msg: io.Discard, Out: io.Discard}
}

func TestQuadratic(t *testing.T) {

	// f(x) = Σ cᵢ(xᵢ - bᵢ)²
	c := []float64{1, 4, 0.5}
	b := []float64{3, -1, 7}

	eval := func(x, g []float64) (f float64) {
		for i := range x {
			d := x[i] - b[i]
			f += c[i] * d * d
			g[i] = 2 * c[i] * d
		}
		return
	}

	p := Problem{
		N: 3, M: 5,
		Eval: eval,
		Stop: Termination{
			MaxIterations: 100,
			GradTolerance: 1e-10,
		},
	}
	s, e := p.New(quietLogger())
	if e != nil {
		t.Fatal(e)
	}

	w := s.Init()
	r := s.Fit([]float64{0, 0, 0}, w)

	switch {
	case !r.OK:
		t.Fatalf("TestQuadratic: Not Converge: %s", r.Status)
	case r.F > 1e-15:
		t.Fatalf("TestQuadratic: Object Too Large: %g", r.F)
	}
	for i := range b {
		if math.Abs(r.X[i]-b[i]) > 1e-6 {
			t.Fatalf("TestQuadratic: X[%d] = %g, want %g", i, r.X[i], b[i])
		}
	}
}

func TestRosenbrock(t *testing.T) {

	eval := func(x, g []float64) (f float64) {
		a, b := x[0], x[1]
		f = (1-a)*(1-a) + 100*(b-a*a)*(b-a*a)
		g[0] = -2*(1-a) - 400*a*(b-a*a)
		g[1] = 200 * (b - a*a)
		return
	}

	p := Problem{
		N: 2, M: 10,
		Eval: eval,
		Stop: Termination{
			MaxIterations: 500,
			GradTolerance: 1e-8,
		},
	}
	s, e := p.New(quietLogger())
	if e != nil {
		t.Fatal(e)
	}

	w := s.Init()
	r := s.Fit([]float64{-1.2, 1}, w)

	switch {
	case !r.OK:
		t.Fatalf("TestRosenbrock: Not Converge: %s", r.Status)
	case math.Abs(r.X[0]-1) > 1e-5 || math.Abs(r.X[1]-1) > 1e-5:
		t.Fatalf("TestRosenbrock: X = %v, want (1, 1)", r.X)
	}
}

func TestAccuracyStop(t *testing.T) {

	eval := func(x, g []float64) (f float64) {
		d := x[0] - 2
		g[0] = 2 * d
		return d * d
	}

	p := Problem{
		N: 1, M: 3,
		Eval: eval,
		Stop: Termination{
			MaxIterations:     100,
			GradTolerance:     0,
			EpsAccuracyFactor: 1e7,
		},
	}
	s, e := p.New(quietLogger())
	if e != nil {
		t.Fatal(e)
	}

	r := s.Fit([]float64{10}, s.Init())
	if !r.OK {
		t.Fatalf("TestAccuracyStop: Not Converge: %s", r.Status)
	}
	if math.Abs(r.X[0]-2) > 1e-4 {
		t.Fatalf("TestAccuracyStop: X = %g, want 2", r.X[0])
	}
}

func TestNewPreconditions(t *testing.T) {

	eval := func(x, g []float64) float64 { return 0 }
	cases := []Problem{
		{N: 0, M: 5, Eval: eval, Stop: Termination{MaxIterations: 10}},
		{N: 3, M: 0, Eval: eval, Stop: Termination{MaxIterations: 10}},
		{N: 3, M: 5, Eval: nil, Stop: Termination{MaxIterations: 10}},
		{N: 3, M: 5, Eval: eval, Stop: Termination{MaxIterations: 0}},
		{N: 3, M: 5, Eval: eval, Stop: Termination{MaxIterations: 10, GradTolerance: -1}},
	}
	for i, p := range cases {
		if _, err := p.New(quietLogger()); err == nil {
			t.Fatalf("TestNewPreconditions: case %d should fail", i)
		}
	}
}

func TestIterationLimit(t *testing.T) {

	eval := func(x, g []float64) (f float64) {
		a, b := x[0], x[1]
		f = (1-a)*(1-a) + 100*(b-a*a)*(b-a*a)
		g[0] = -2*(1-a) - 400*a*(b-a*a)
		g[1] = 200 * (b - a*a)
		return
	}

	p := Problem{
		N: 2, M: 10,
		Eval: eval,
		Stop: Termination{
			MaxIterations: 2,
			GradTolerance: 1e-12,
		},
	}
	s, e := p.New(quietLogger())
	if e != nil {
		t.Fatal(e)
	}

	r := s.Fit([]float64{-1.2, 1}, s.Init())
	if r.OK {
		t.Fatal("TestIterationLimit: should not converge in 2 iterations")
	}
	if r.Status != OverIterLimit {
		t.Fatalf("TestIterationLimit: Status = %s, want OverIterLimit", r.Status)
	}
}
