package solve

import (
	"math"
	"testing"

	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/param"
)

func TestMeshProblemFitsAffineGrid(t *testing.T) {
	const w, h = 4, 4
	truth := geom.NewMesh(0, 0, w, h)
	for iy := 0; iy < h; iy++ {
		for ix := 0; ix < w; ix++ {
			truth.Points[iy*w+ix] = param.Point2D{X: float64(ix) * 10, Y: float64(iy) * 10}
		}
	}

	var points []param.SolverPoint
	for sx := 0.0; sx < w-1; sx += 0.5 {
		for sy := 0.0; sy < h-1; sy += 0.5 {
			scr := param.Point2D{X: sx, Y: sy}
			points = append(points, param.SolverPoint{Img: truth.Apply(scr), Scr: scr})
		}
	}

	guess := geom.NewMesh(0, 0, w, h)
	for iy := 0; iy < h; iy++ {
		for ix := 0; ix < w; ix++ {
			guess.Points[iy*w+ix] = param.Point2D{X: float64(ix)*10 + 1, Y: float64(iy)*10 - 1}
		}
	}

	prob := NewMeshProblem(guess, points, 1e-4, 1e-12)
	x, chisq, err := LevenbergMarquardt(prob, nil)
	if err != nil {
		t.Fatalf("LevenbergMarquardt: %v", err)
	}
	result := prob.Result(x)

	for i, p := range result.Points {
		want := truth.Points[i]
		if math.Abs(p.X-want.X) > 0.1 || math.Abs(p.Y-want.Y) > 0.1 {
			t.Errorf("point %d = %+v, want near %+v", i, p, want)
		}
	}
	if chisq > 1e-2 {
		t.Errorf("chisq = %v, want small for a near-exact affine fit", chisq)
	}
}
