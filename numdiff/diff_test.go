package numdiff

import (
	"math"
	"testing"
)

func TestDiffForward(t *testing.T) {

	// y0 = x0*x1, y1 = sin(x0)
	spec := ApproxSpec{
		N: 2, M: 2,
		Object: func(x, y []float64) {
			y[0] = x[0] * x[1]
			y[1] = math.Sin(x[0])
		},
	}

	x0 := []float64{1.5, -2.0}
	jac := make([]float64, 4)
	if err := spec.Diff(x0, jac); err != nil {
		t.Fatal(err)
	}

	want := []float64{-2.0, 1.5, math.Cos(1.5), 0}
	for i := range want {
		if math.Abs(jac[i]-want[i]) > 1e-6 {
			t.Fatalf("jac[%d] = %g, want %g", i, jac[i], want[i])
		}
	}
	if x0[0] != 1.5 || x0[1] != -2.0 {
		t.Fatalf("x0 modified: %v", x0)
	}
}

func TestDiffCentral(t *testing.T) {

	spec := ApproxSpec{
		N: 1, M: 1,
		Method: Central,
		Object: func(x, y []float64) {
			y[0] = math.Exp(x[0])
		},
	}

	x0 := []float64{0.7}
	d := make([]float64, 1)
	if err := spec.Diff(x0, d); err != nil {
		t.Fatal(err)
	}

	if math.Abs(d[0]-math.Exp(0.7)) > 1e-8 {
		t.Fatalf("d = %g, want %g", d[0], math.Exp(0.7))
	}
}

func TestCheckRejectsBadSpec(t *testing.T) {

	obj := func(x, y []float64) {}
	cases := []struct {
		spec ApproxSpec
		x    []float64
		d    []float64
	}{
		{ApproxSpec{N: 0, M: 1, Object: obj}, []float64{}, []float64{}},
		{ApproxSpec{N: 1, M: 1, Object: nil}, []float64{0}, []float64{0}},
		{ApproxSpec{N: 1, M: 1, Object: obj, Method: 7}, []float64{0}, []float64{0}},
		{ApproxSpec{N: 2, M: 1, Object: obj}, []float64{0}, []float64{0, 0}},
		{ApproxSpec{N: 1, M: 2, Object: obj}, []float64{0}, []float64{0}},
	}
	for i := range cases {
		c := &cases[i]
		if err := c.spec.Diff(c.x, c.d); err == nil {
			t.Fatalf("case %d should fail", i)
		}
	}
}
