package detect

import (
	"math"

	"github.com/colorscreen/reconstruct/internal/param"
)

// confirmPatch implements spec §4.10 step 4's confirm_patch: first the
// fast path (trust the classifier's flood-filled patch at the predicted
// pixel), falling back to the slow path (a local windowed search by
// first-moment centroid and inner/outer contrast) when the fast path's
// patch fails the size or distance gate.
func confirmPatch(m *ClassMap, predicted param.Point2D, want param.ColorClass, cfg Config) (param.Point2D, float64, bool) {
	x0, y0 := int(math.Round(predicted.X)), int(math.Round(predicted.Y))
	if m.At(x0, y0) == want {
		// Collect one pixel past the bound so an oversized patch is
		// seen as oversized rather than truncated to exactly the bound.
		if p := FindPatch(m, x0, y0, cfg.MaxPatchSizeConfirm+1); p != nil {
			size := p.Size()
			c := p.Centroid()
			dist := math.Hypot(c.X-predicted.X, c.Y-predicted.Y)
			if size >= cfg.MinPatchSize && size <= cfg.MaxPatchSizeConfirm && dist <= cfg.MaxDistance {
				return c, 1 - dist/cfg.MaxDistance, true
			}
		}
	}
	return confirmPatchSlow(m, predicted, want, cfg)
}

// confirmPatchSlow samples a (2S+1)x(2S+1) window around predicted,
// estimates the best-match offset as the centroid of want-classified
// pixels in that window (the "first-moment vector" spec §4.10 step 4
// describes), then accepts if the inner region's match fraction exceeds
// the outer ring's by more than cfg.ContrastThreshold.
func confirmPatchSlow(m *ClassMap, predicted param.Point2D, want param.ColorClass, cfg Config) (param.Point2D, float64, bool) {
	s := cfg.SlowPathWindowRadius
	x0, y0 := int(math.Round(predicted.X)), int(math.Round(predicted.Y))

	var sumX, sumY float64
	var n int
	for dy := -s; dy <= s; dy++ {
		for dx := -s; dx <= s; dx++ {
			if m.At(x0+dx, y0+dy) == want {
				sumX += float64(dx)
				sumY += float64(dy)
				n++
			}
		}
	}
	if n == 0 {
		return param.Point2D{}, 0, false
	}
	offX, offY := sumX/float64(n), sumY/float64(n)
	center := param.Point2D{X: predicted.X + offX, Y: predicted.Y + offY}

	innerFrac := matchFraction(m, int(math.Round(center.X)), int(math.Round(center.Y)), 0, s/2, want)
	outerFrac := matchFraction(m, int(math.Round(center.X)), int(math.Round(center.Y)), s/2+1, s, want)
	ratio := innerFrac - outerFrac
	if ratio < cfg.ContrastThreshold {
		return param.Point2D{}, ratio, false
	}
	return center, ratio, true
}

// matchFraction returns the fraction of pixels in the square annulus
// [rlo, rhi] (Chebyshev distance) around (x0, y0) classified as want.
func matchFraction(m *ClassMap, x0, y0, rlo, rhi int, want param.ColorClass) float64 {
	var n, match int
	for dy := -rhi; dy <= rhi; dy++ {
		for dx := -rhi; dx <= rhi; dx++ {
			d := dx
			if dy > d {
				d = dy
			}
			if -dy > d {
				d = -dy
			}
			if -dx > d {
				d = -dx
			}
			if d < rlo || d > rhi {
				continue
			}
			n++
			if m.At(x0+dx, y0+dy) == want {
				match++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return float64(match) / float64(n)
}

// confirmStrip implements spec §4.10 step 4's confirm_strip: the Dufay
// red divider is a line, not a blob, so instead of a flood-filled patch
// it checks the fraction of want-classified pixels along a short
// perpendicular segment centered at predicted.
func confirmStrip(m *ClassMap, predicted param.Point2D, want param.ColorClass, cfg Config) (float64, bool) {
	s := cfg.SlowPathWindowRadius
	x0, y0 := int(math.Round(predicted.X)), int(math.Round(predicted.Y))
	var n, match int
	for dy := -s; dy <= s; dy++ {
		for dx := -1; dx <= 1; dx++ {
			n++
			if m.At(x0+dx, y0+dy) == want {
				match++
			}
		}
	}
	frac := 0.0
	if n > 0 {
		frac = float64(match) / float64(n)
	}
	return frac, frac >= cfg.ContrastThreshold
}
