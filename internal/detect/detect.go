package detect

import (
	"fmt"

	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/param"
	"github.com/colorscreen/reconstruct/internal/progress"
	"github.com/colorscreen/reconstruct/internal/solve"
)

// Result is a successfully detected screen: the resolved scan<->screen
// map, every confirmed lattice correspondence, and the quality gates it
// passed.
type Result struct {
	Params  param.ScrToImgParameters
	Map     *ScreenMap
	Quality QualityReport
}

// imageCorners returns a scan's four corner points, the shape
// geom.NewScrToImg needs to size its lens-warp inverse table.
func imageCorners(w, h int) [4]param.Point2D {
	fw, fh := float64(w), float64(h)
	return [4]param.Point2D{{X: 0, Y: 0}, {X: fw, Y: 0}, {X: 0, Y: fh}, {X: fw, Y: fh}}
}

// DetectRegularScreen implements spec §4.10's full pipeline: an optional
// color-threshold pre-pass, a seeded grid search for an initial lattice
// fix, a C9 initial solve, the priority-queue flood fill, a re-solve
// once enough patches are confirmed, and the final quality gates.
func DetectRegularScreen(s Sampler, detectParams param.ScrDetectParameters, screenType param.ScreenType, cfg Config, optimizeColors bool, prog *progress.Info) (*Result, error) {
	w, h := s.Width(), s.Height()
	corners := imageCorners(w, h)
	p := prog
	if p == nil {
		p = progress.New()
	}

	if optimizeColors {
		p.SetTask("optimize screen colors", 1)
		samples := samplingWindow(w, h, 32)
		adjusted, err := OptimizeScreenColors(s, samples, detectParams, p)
		if err == nil {
			detectParams = adjusted
		}
		p.IncProgress()
	}

	classifier := NewClassifier(detectParams)
	classMap := BuildClassMap(s, classifier)

	seeds := seedWindows(w, h)
	p.SetTask("detect screen geometry", uint64(len(seeds)))
	for _, seed := range seeds {
		if p.CancelRequested() {
			return nil, fmt.Errorf("detect: cancelled")
		}
		p.IncProgress()

		var initialPoints []param.SolverPoint
		var seedColor param.ColorClass
		var ok bool
		switch {
		case screenType.IsDiagonal():
			initialPoints, ok = tryGuessPagetScreen(classMap, seed, cfg)
		default:
			initialPoints, ok = tryGuessDufayScreen(classMap, seed, cfg)
			if ok {
				seedColor = initialPoints[0].Color
			}
		}
		if !ok {
			continue
		}

		initial, err := solveGeometry(initialPoints, screenType, corners, false)
		if err != nil {
			continue
		}

		s0 := geom.NewScrToImg(initial, corners)
		var sm *ScreenMap
		if screenType.IsDiagonal() {
			sm = floodFillPaget(classMap, s0, LatticePoint{0, 0}, initialPoints[0].Color, cfg)
		} else {
			sm = floodFillDufay(classMap, s0, seedColor, LatticePoint{0, 0}, cfg)
		}

		if sm.Len() < cfg.MinConfirmedPatches {
			continue
		}

		refined, err := solveGeometry(sm.SolverPoints(), screenType, corners, true)
		if err != nil {
			continue
		}
		s1 := geom.NewScrToImg(refined, corners)

		quality := evaluateQuality(sm, cfg, s1, w, h)
		if !quality.Pass {
			continue
		}
		return &Result{Params: *refined, Map: sm, Quality: quality}, nil
	}
	return nil, fmt.Errorf("detect: no seed window produced a passing screen map")
}

// solveGeometry runs the C9 geometry solve over a set of control points,
// optimizing perspective in addition to basis/center once full is true
// (used for the post-flood-fill re-solve, which has enough points to
// constrain the extra degrees of freedom).
func solveGeometry(points []param.SolverPoint, screenType param.ScreenType, corners [4]param.Point2D, full bool) (*param.ScrToImgParameters, error) {
	sp := param.SolverParameters{
		Points:              points,
		OptimizeBasis:       true,
		OptimizeCenter:      true,
		OptimizePerspective: full,
	}
	base := param.ScrToImgParameters{
		ScreenType:         screenType,
		ProjectionDistance: 1e9,
		Center:             centroidOf(points),
		C1:                 param.Point2D{X: 10, Y: 0},
		C2:                 param.Point2D{X: 0, Y: 10},
	}
	prob := solve.NewGeometryProblem(sp, base, corners, 1e-6)
	x, _, err := solve.LevenbergMarquardt(prob, nil)
	if err != nil {
		return nil, err
	}
	return prob.Result(x), nil
}

func centroidOf(points []param.SolverPoint) param.Point2D {
	if len(points) == 0 {
		return param.Point2D{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.Img.X
		sy += p.Img.Y
	}
	n := float64(len(points))
	return param.Point2D{X: sx / n, Y: sy / n}
}
