package geom

import (
	"math"
	"testing"

	"github.com/colorscreen/reconstruct/internal/param"
)

func cornersFor(w, h float64) [4]param.Point2D {
	return [4]param.Point2D{{X: 0, Y: 0}, {X: w, Y: 0}, {X: 0, Y: h}, {X: w, Y: h}}
}

func TestScrToImgRoundTrip(t *testing.T) {
	p := &param.ScrToImgParameters{
		ScreenType:         param.Dufay,
		C1:                 param.Point2D{X: 40, Y: 0},
		C2:                 param.Point2D{X: 0, Y: 30},
		Center:             param.Point2D{X: 1024, Y: 1024},
		ProjectionDistance: 0, // no perspective
	}
	s := NewScrToImg(p, cornersFor(2048, 2048))
	for _, sp := range []param.Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: -3, Y: 2.5}, {X: 10, Y: -8}} {
		img := s.ToImg(sp)
		back := s.ToScr(img)
		d := math.Hypot(back.X-sp.X, back.Y-sp.Y)
		if d > 1e-3 {
			t.Errorf("ToScr(ToImg(%v)) = %v, want ~%v (d=%v)", sp, back, sp, d)
		}
	}
}

func TestScrToImgRoundTripWithPerspectiveAndLens(t *testing.T) {
	p := &param.ScrToImgParameters{
		ScreenType:         param.Paget,
		C1:                 param.Point2D{X: 30, Y: 20},
		C2:                 param.Point2D{X: -20, Y: 30},
		Center:             param.Point2D{X: 1000, Y: 800},
		ProjectionDistance: 5000,
		TiltX:              0.02,
		TiltY:              -0.01,
		LensCoefficients:   []float64{0.003, 0.0005},
	}
	s := NewScrToImg(p, cornersFor(2000, 1600))
	for _, sp := range []param.Point2D{{X: 0, Y: 0}, {X: 2, Y: -1}, {X: -5, Y: 4}} {
		img := s.ToImg(sp)
		back := s.ToScr(img)
		d := math.Hypot(back.X-sp.X, back.Y-sp.Y)
		if d > 1e-2 {
			t.Errorf("round trip with perspective+lens failed for %v: got %v (d=%v)", sp, back, d)
		}
	}
}

func TestPatchProportionsDufaySumsToOne(t *testing.T) {
	p := &param.ScrToImgParameters{ScreenType: param.Dufay, RedStripWidth: 0.48, GreenStripWidth: 0.37}
	s := NewScrToImg(p, cornersFor(100, 100))
	pp := s.PatchProportions()
	sum := pp.R + pp.G + pp.B
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("patch proportions do not sum to 1: %v (sum=%v)", pp, sum)
	}
	if math.Abs(pp.R-0.48) > 1e-9 {
		t.Errorf("red proportion = %v, want 0.48", pp.R)
	}
}

func TestPatchProportionsDiagonalFixed(t *testing.T) {
	p := &param.ScrToImgParameters{ScreenType: param.Paget}
	s := NewScrToImg(p, cornersFor(100, 100))
	pp := s.PatchProportions()
	if pp.R != 0.25 || pp.G != 0.25 || pp.B != 0.5 {
		t.Errorf("paget proportions = %v, want (0.25,0.25,0.5)", pp)
	}
}

func TestNormalizeDufayBasisPrefersHorizontalC1(t *testing.T) {
	// c1 points nearly straight up; the normalized c1 should end up much
	// closer to horizontal after re-orientation.
	c1 := param.Point2D{X: 1, Y: 40}
	c2 := param.Point2D{X: -30, Y: 1}
	nc1, _, _ := NormalizeDufayBasis(c1, c2)
	origAngle := math.Abs(math.Atan2(c1.Y, c1.X))
	newAngle := math.Abs(math.Atan2(nc1.Y, nc1.X))
	if newAngle > origAngle {
		t.Errorf("normalized c1 angle %v not closer to horizontal than original %v", newAngle, origAngle)
	}
}
