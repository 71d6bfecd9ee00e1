package solve

import (
	"math"
	"testing"

	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/param"
)

func newScrToImgForTest(p *param.ScrToImgParameters, corners [4]param.Point2D) func(param.Point2D) param.Point2D {
	s := geom.NewScrToImg(p, corners)
	return s.ToImg
}

func TestGeometryProblemRecoversKnownBasis(t *testing.T) {
	truth := param.ScrToImgParameters{
		ScreenType:         param.Dufay,
		C1:                 param.Point2D{X: 10, Y: 0},
		C2:                 param.Point2D{X: 0, Y: 10},
		Center:             param.Point2D{X: 500, Y: 500},
		ProjectionDistance: 1e9, // effectively orthographic: isolates the basis fit
		Scanner:            param.ScannerFixedLens,
	}
	corners := [4]param.Point2D{{X: 0, Y: 0}, {X: 1000, Y: 0}, {X: 0, Y: 1000}, {X: 1000, Y: 1000}}

	truthTransform := newScrToImgForTest(&truth, corners)
	var points []param.SolverPoint
	for sx := -5.0; sx <= 5; sx++ {
		for sy := -5.0; sy <= 5; sy++ {
			scr := param.Point2D{X: sx, Y: sy}
			points = append(points, param.SolverPoint{
				Img:   truthTransform(scr),
				Scr:   scr,
				Color: param.ColorGreen,
			})
		}
	}

	guess := truth
	guess.C1 = param.Point2D{X: 9, Y: 1}
	guess.C2 = param.Point2D{X: -1, Y: 11}
	guess.Center = param.Point2D{X: 490, Y: 505}

	sp := param.SolverParameters{Points: points, OptimizeBasis: true, OptimizeCenter: true}
	prob := NewGeometryProblem(sp, guess, corners, 1e-12)
	x, chisq, err := LevenbergMarquardt(prob, nil)
	if err != nil {
		t.Fatalf("LevenbergMarquardt: %v", err)
	}
	result := prob.Result(x)

	if math.Abs(result.C1.X-10) > 1e-3 || math.Abs(result.C1.Y) > 1e-3 {
		t.Errorf("C1 = %+v, want near {10 0}", result.C1)
	}
	if math.Abs(result.C2.X) > 1e-3 || math.Abs(result.C2.Y-10) > 1e-3 {
		t.Errorf("C2 = %+v, want near {0 10}", result.C2)
	}
	if chisq > 1e-4 {
		t.Errorf("chisq = %v, want near 0 for noiseless synthetic points", chisq)
	}
}
