package geom

import (
	"math"
	"testing"

	"github.com/colorscreen/reconstruct/internal/param"
)

func TestLensWarpNoopWhenCoefficientsZero(t *testing.T) {
	corners := [4]param.Point2D{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}, {X: 100, Y: 100}}
	lw := PrecomputeLensWarp(param.Point2D{X: 50, Y: 50}, []float64{0, 0}, corners, true)
	if !lw.IsNoop() {
		t.Fatal("expected no-op lens warp for zero coefficients")
	}
	p := param.Point2D{X: 12, Y: 34}
	if got := lw.CorrectedToScan(p); got != p {
		t.Errorf("no-op CorrectedToScan changed point: %v -> %v", p, got)
	}
}

func TestLensWarpRoundTrip(t *testing.T) {
	corners := [4]param.Point2D{{X: 0, Y: 0}, {X: 1000, Y: 0}, {X: 0, Y: 1000}, {X: 1000, Y: 1000}}
	center := param.Point2D{X: 500, Y: 500}
	lw := PrecomputeLensWarp(center, []float64{0.01, 0.002}, corners, true)
	if lw.IsNoop() {
		t.Fatal("expected non-trivial lens warp")
	}
	for _, p := range corners {
		scan := lw.CorrectedToScan(p)
		back := lw.ScanToCorrected(scan)
		d := math.Hypot(back.X-p.X, back.Y-p.Y)
		if d > 1e-3 {
			t.Errorf("round trip error too large for %v: got %v (d=%v)", p, back, d)
		}
	}
}
