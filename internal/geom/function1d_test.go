package geom

import (
	"math"
	"testing"
)

func TestFunction1DApplyInvertRoundTrip(t *testing.T) {
	y := make([]float64, 33)
	for i := range y {
		x := float64(i) / 32
		y[i] = x*x*0.5 + x*0.5 // strictly increasing on [0,1]
	}
	f := NewFunction1DFromSamples(y, 0, 1)
	for _, yy := range []float64{0.01, 0.1, 0.37, 0.5, 0.9, 0.99} {
		x := f.Invert(yy)
		got := f.Apply(x)
		if math.Abs(got-yy) > 1e-3 {
			t.Errorf("Invert/Apply round trip: y=%v x=%v got=%v", yy, x, got)
		}
	}
}

func TestFunction1DIdentityWithNoControlPoints(t *testing.T) {
	f := NewFunction1DFromControlPoints(nil, nil, 0, 10, 16)
	for _, x := range []float64{0, 2.5, 7, 10} {
		if got := f.Apply(x); math.Abs(got-x) > 1e-6 {
			t.Errorf("Apply(%v) = %v, want %v", x, got, x)
		}
	}
}

func TestFunction1DSingleControlPointIsOffset(t *testing.T) {
	f := NewFunction1DFromControlPoints([]float64{0}, []float64{3}, 0, 10, 16)
	for _, x := range []float64{0, 5, 10} {
		want := x + 3
		if got := f.Apply(x); math.Abs(got-want) > 1e-6 {
			t.Errorf("Apply(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestFunction1DClampsOutsideDomain(t *testing.T) {
	// Apply clamps the segment index, not x: outside the domain the first
	// and last segments (here both y = x) extend linearly.
	y := []float64{0, 1, 2, 3}
	f := NewFunction1DFromSamples(y, 0, 3)
	if got := f.Apply(-5); got != -5 {
		t.Errorf("Apply below domain does not extend the first segment: got %v want %v", got, -5.0)
	}
	if got := f.Apply(100); got != 100 {
		t.Errorf("Apply above domain does not extend the last segment: got %v want %v", got, 100.0)
	}
}
