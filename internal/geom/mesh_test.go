package geom

import (
	"math"
	"testing"

	"github.com/colorscreen/reconstruct/internal/param"
)

func gridMesh(w, h int) *Mesh {
	m := NewMesh(0, 0, w, h)
	for iy := 0; iy < h; iy++ {
		for ix := 0; ix < w; ix++ {
			// Mild nonlinear warp so Invert has something to do.
			m.Points[iy*w+ix] = param.Point2D{
				X: float64(ix)*10 + 0.05*float64(iy*iy),
				Y: float64(iy)*10 + 0.03*float64(ix*ix),
			}
		}
	}
	m.PrecomputeInverse()
	return m
}

func TestMeshApplyAtControlPoints(t *testing.T) {
	m := gridMesh(5, 5)
	for iy := 0; iy < 5; iy++ {
		for ix := 0; ix < 5; ix++ {
			want := m.Points[iy*5+ix]
			got := m.Apply(param.Point2D{X: float64(ix), Y: float64(iy)})
			if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
				t.Errorf("Apply(%d,%d) = %v, want %v", ix, iy, got, want)
			}
		}
	}
}

func TestMeshInvertRoundTrip(t *testing.T) {
	m := gridMesh(8, 8)
	for _, scr := range []param.Point2D{{X: 2, Y: 3}, {X: 4.5, Y: 1.2}, {X: 5.9, Y: 6.1}} {
		img := m.Apply(scr)
		back := m.Invert(img)
		if math.Hypot(back.X-scr.X, back.Y-scr.Y) > 1e-2 {
			t.Errorf("Invert(Apply(%v)) = %v, want ~%v", scr, back, scr)
		}
	}
}
