package detect

import (
	"math"

	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/param"
)

// QualityReport summarizes spec §4.10 step 5's gates.
type QualityReport struct {
	ConfirmedCount       int
	ScreenPercentage     float64
	LargestUnanalyzedRun int
	BordersReached       bool
	RMSResidual          float64
	Pass                 bool
}

// evaluateQuality runs the step-5 gates (confirmed count, screen
// percentage, largest enclosed unanalyzed run, border reach) against a
// confirmed ScreenMap. It also records the RMS residual of the refined
// map against the confirmed points, but that value is reported only and
// does not affect Pass.
func evaluateQuality(sm *ScreenMap, cfg Config, s *geom.ScrToImg, imgW, imgH int) QualityReport {
	r := QualityReport{ConfirmedCount: sm.Len()}
	if sm.Len() == 0 {
		return r
	}

	minX, minY, maxX, maxY := boundingBox(sm)
	total := (maxX - minX + 1) * (maxY - minY + 1)
	r.ScreenPercentage = float64(sm.Len()) / float64(total)
	r.LargestUnanalyzedRun = largestEnclosedRun(sm, minX, minY, maxX, maxY)
	r.BordersReached = bordersReached(sm, s, imgW, imgH, cfg, minX, minY, maxX, maxY)
	r.RMSResidual = rmsResidual(sm, s)

	r.Pass = sm.Len() >= cfg.MinConfirmedPatches &&
		r.ScreenPercentage >= cfg.MinScreenPercentage &&
		r.LargestUnanalyzedRun <= cfg.MaxUnanalyzedRun &&
		r.BordersReached
	return r
}

func boundingBox(sm *ScreenMap) (minX, minY, maxX, maxY int) {
	first := true
	for lp := range sm.Points {
		if first {
			minX, maxX, minY, maxY = lp.X, lp.X, lp.Y, lp.Y
			first = false
			continue
		}
		if lp.X < minX {
			minX = lp.X
		}
		if lp.X > maxX {
			maxX = lp.X
		}
		if lp.Y < minY {
			minY = lp.Y
		}
		if lp.Y > maxY {
			maxY = lp.Y
		}
	}
	return
}

// largestEnclosedRun finds the longest run of unconfirmed cells, along
// either axis, that is flanked by confirmed cells on both ends within
// the map's bounding box — an enclosed hole, not an unexplored edge.
func largestEnclosedRun(sm *ScreenMap, minX, minY, maxX, maxY int) int {
	longest := 0
	scan := func(fixed int, lo, hi int, at func(i int) LatticePoint) {
		run := 0
		sawKnown := false
		for i := lo; i <= hi; i++ {
			if sm.known(at(i)) {
				if sawKnown && run > longest {
					longest = run
				}
				run = 0
				sawKnown = true
			} else if sawKnown {
				run++
			}
		}
	}
	for y := minY; y <= maxY; y++ {
		yy := y
		scan(yy, minX, maxX, func(i int) LatticePoint { return LatticePoint{i, yy} })
	}
	for x := minX; x <= maxX; x++ {
		xx := x
		scan(xx, minY, maxY, func(i int) LatticePoint { return LatticePoint{xx, i} })
	}
	return longest
}

// bordersReached checks each image-edge midpoint's mapped lattice
// position lies within cfg.BorderMargin lattice cells of the confirmed
// region, matching spec §4.10 step 5's "each image border is reached
// within the user-specified margin".
func bordersReached(sm *ScreenMap, s *geom.ScrToImg, imgW, imgH int, cfg Config, minX, minY, maxX, maxY int) bool {
	fw, fh := float64(imgW), float64(imgH)
	edges := []param.Point2D{
		{X: fw / 2, Y: 0}, {X: fw / 2, Y: fh},
		{X: 0, Y: fh / 2}, {X: fw, Y: fh / 2},
	}
	for _, e := range edges {
		scr := s.ToScr(e)
		if scr.X < float64(minX)-cfg.BorderMargin || scr.X > float64(maxX)+cfg.BorderMargin ||
			scr.Y < float64(minY)-cfg.BorderMargin || scr.Y > float64(maxY)+cfg.BorderMargin {
			return false
		}
	}
	return true
}

// rmsResidual returns the RMS image-space distance between a solved
// ScrToImg's prediction and every confirmed correspondence, used by the
// re-solve gate to check the screen-wide error distribution (spec §4.10
// step 5).
func rmsResidual(sm *ScreenMap, s *geom.ScrToImg) float64 {
	if sm.Len() == 0 {
		return 0
	}
	var sumSq float64
	for lp, img := range sm.Points {
		predicted := s.ToImg(param.Point2D{X: float64(lp.X), Y: float64(lp.Y)})
		d := math.Hypot(predicted.X-img.X, predicted.Y-img.Y)
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(sm.Len()))
}
