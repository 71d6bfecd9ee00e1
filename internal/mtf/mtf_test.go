package mtf

import "testing"

func TestEval1DGaussianDecreasing(t *testing.T) {
	m := New(Params{Sigma: 1.5})
	prev := m.Eval1D(0)
	if prev != 1 {
		t.Fatalf("mtf(0) = %v, want 1", prev)
	}
	for _, f := range []float64{0.05, 0.1, 0.2, 0.3} {
		v := m.Eval1D(f)
		if v > prev {
			t.Errorf("mtf(%v) = %v not decreasing from %v", f, v, prev)
		}
		prev = v
	}
}

func TestEval1DTableClampsAboveRange(t *testing.T) {
	m := New(Params{Table: []Sample{
		{Freq: 0.1, Contrast: 90},
		{Freq: 0.2, Contrast: 60},
		{Freq: 0.3, Contrast: 20},
	}})
	if v := m.Eval1D(10); v != 0 {
		t.Errorf("mtf above table range = %v, want 0", v)
	}
	if err := m.Precompute(); err != nil {
		t.Fatalf("Precompute: %v", err)
	}
}

func TestPSFRadiusPositive(t *testing.T) {
	m := New(Params{Sigma: 2})
	r := m.PSFRadius()
	if r <= 0 {
		t.Errorf("PSFRadius = %v, want > 0", r)
	}
}

func TestPSFDecreasesWithRadius(t *testing.T) {
	m := New(Params{Sigma: 2})
	center := m.PSF(0, 0, 1)
	far := m.PSF(20, 0, 1)
	if far > center {
		t.Errorf("psf(20,0) = %v should be <= psf(0,0) = %v", far, center)
	}
}

func TestCheckRegularAndMonotoneRejectsNonIncreasing(t *testing.T) {
	err := checkRegularAndMonotone([]Sample{{Freq: 0.2}, {Freq: 0.1}})
	if err == nil {
		t.Fatal("expected error for non-increasing frequencies")
	}
}
