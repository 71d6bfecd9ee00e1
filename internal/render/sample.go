package render

import (
	"math"

	"github.com/colorscreen/reconstruct/internal/field"
	"github.com/colorscreen/reconstruct/internal/param"
	"github.com/colorscreen/reconstruct/internal/screen"
)

// scanLinear reads the scan's linear RGB at an image-space point,
// nearest-sampled (the teacher's deconvolution/backlight stages only
// ever address the scan at integer pixel centers too), running it
// through the attached backlight correction first when one is set.
func (r *Renderer) scanLinear(img param.Point2D) param.RGB {
	x, y := int(img.X), int(img.Y)
	if x < 0 || y < 0 || x >= r.sampler.Width() || y >= r.sampler.Height() {
		return param.RGB{}
	}
	rr, gg, bb := r.sampler.Linear(x, y)
	if r.backlight != nil {
		rr = r.backlight.Apply(rr, x, y, field.ChannelRed)
		gg = r.backlight.Apply(gg, x, y, field.ChannelGreen)
		bb = r.backlight.Apply(bb, x, y, field.ChannelBlue)
	}
	return param.RGB{R: rr, G: gg, B: bb}
}

// SamplePixelFinal is sample_pixel_final (spec §4.12): final display
// coordinates, after the 2x2 final rotation/aspect/angle transform.
func (r *Renderer) SamplePixelFinal(x, y int) param.RGB {
	final := param.Point2D{X: float64(x), Y: float64(y)}
	return r.SamplePixelScr(r.s2i.FinalToScr(final))
}

// SamplePixelImg is sample_pixel_img (spec §4.12): image (scan) pixel
// coordinates. Render types that read the scan directly bypass the
// scr_to_img round trip; every other type converts to screen space.
func (r *Renderer) SamplePixelImg(x, y int) param.RGB {
	img := param.Point2D{X: float64(x), Y: float64(y)}
	switch r.params.Type {
	case Original, ProfiledOriginal, AdjustedColor, NormalizedColor, PixelColors:
		return r.sampleDiagnostic(img)
	case InterpolatedOriginal, InterpolatedProfiledOriginal:
		return r.sampleInterpolated(img)
	default:
		return r.SamplePixelScr(r.s2i.ToScr(img))
	}
}

// SamplePixelScr is sample_pixel_scr (spec §4.12): screen-lattice
// coordinates, the core of every synthesis-driven render type.
func (r *Renderer) SamplePixelScr(scr param.Point2D) param.RGB {
	switch r.params.Type {
	case Original, ProfiledOriginal, AdjustedColor, NormalizedColor, PixelColors:
		return r.sampleDiagnostic(r.s2i.ToImg(scr))

	case RealisticScr:
		return r.sampleRealisticScr(scr)

	case Realistic, Fast:
		img := r.s2i.ToImg(scr)
		return r.sampleRealistic(img, scr)

	case ScrNearest, ScrNearestScaled:
		return r.sampleScrNearest(scr, r.params.Type == ScrNearestScaled)

	case ScrRelax:
		return r.sampleScrRelax(scr)

	case PreviewGrid:
		return r.samplePreview(scr)

	case Interpolated, Predictive, InterpolatedOriginal, InterpolatedProfiledOriginal:
		return r.sampleInterpolated(r.s2i.ToImg(scr))

	case Combined:
		return r.sampleCombined(scr)

	case InterpolatedDiff:
		return r.sampleDiff(scr)

	default:
		img := r.s2i.ToImg(scr)
		return r.sampleRealistic(img, scr)
	}
}

// sampleRealisticScr evaluates Realistic for a screen-space point: it
// maps the point to image space and calls sampleRealistic, the same two
// steps SamplePixelScr takes for Realistic.
func (r *Renderer) sampleRealisticScr(scr param.Point2D) param.RGB {
	img := r.s2i.ToImg(scr)
	return r.sampleRealistic(img, scr)
}

// sampleRealistic superposes the synthesized, blurred screen mosaic
// over the linearized scan (spec §4.12's "realistic" description) and
// applies the inverse saturation-loss matrix to undo the blur's
// cross-class leakage.
func (r *Renderer) sampleRealistic(img, scr param.Point2D) param.RGB {
	scan := r.scanLinear(img)
	mult := screen.InterpolatedMult(r.tile, scr)
	mixed := param.RGB{R: scan.R * mult[0], G: scan.G * mult[1], B: scan.B * mult[2]}
	return r.applySaturationLoss(mixed)
}

// sampleScrNearest renders the screen lattice cell's pure color at scr,
// read from the synthesized tile with bilinear interpolation (so colors
// blend across one tile cell at cell boundaries); "scaled" additionally
// normalizes by the
// cell's period-average transmission so dim screen types (e.g. narrow
// strips) aren't crushed toward black.
func (r *Renderer) sampleScrNearest(scr param.Point2D, scaled bool) param.RGB {
	mult := screen.InterpolatedMult(r.tile, scr)
	c := param.RGB{R: mult[0], G: mult[1], B: mult[2]}
	if !scaled {
		return c
	}
	avg := screen.PeriodSum(r.tile)
	return param.RGB{R: safeDiv(c.R, avg.R), G: safeDiv(c.G, avg.G), B: safeDiv(c.B, avg.B)}
}

// sampleScrRelax is ScrNearest relaxed toward the locally interpolated
// patch centroid (the confirmed-patch grid, where available), halving
// the distance between the pure lattice color and the detector's
// measured value to soften hard cell boundaries.
func (r *Renderer) sampleScrRelax(scr param.Point2D) param.RGB {
	nearest := r.sampleScrNearest(scr, false)
	if r.screenMap == nil {
		return nearest
	}
	img := r.s2i.ToImg(scr)
	interp := r.sampleInterpolated(img)
	return param.RGB{
		R: (nearest.R + interp.R) / 2,
		G: (nearest.G + interp.G) / 2,
		B: (nearest.B + interp.B) / 2,
	}
}

// samplePreview overlays screen.Preview's schematic dot pattern (a flat
// per-cell indicator color, not the blurred synthesis).
func (r *Renderer) samplePreview(scr param.Point2D) param.RGB {
	preview := screen.Preview(r.scrParams.ScreenType, r.scrParams.RedStripWidth, r.scrParams.GreenStripWidth)
	mult := screen.InterpolatedMult(preview, scr)
	return param.RGB{R: mult[0], G: mult[1], B: mult[2]}
}

// sampleDiagnostic implements Original/ProfiledOriginal/AdjustedColor/
// NormalizedColor/PixelColors: every one of these is a function of the
// raw scan color alone, run through the classifier's stages.
func (r *Renderer) sampleDiagnostic(img param.Point2D) param.RGB {
	scan := r.scanLinear(img)
	switch r.params.Type {
	case Original, ProfiledOriginal:
		return scan
	case AdjustedColor:
		rr, gg, bb := r.classifier.AdjustedColor(scan.R, scan.G, scan.B)
		return param.RGB{R: rr, G: gg, B: bb}
	case NormalizedColor:
		rr, gg, bb := r.classifier.AdjustedColor(scan.R, scan.G, scan.B)
		sum := rr + gg + bb
		if sum <= 0 {
			return param.RGB{}
		}
		return param.RGB{R: rr / sum, G: gg / sum, B: bb / sum}
	case PixelColors:
		cls := r.classifier.Classify(scan.R, scan.G, scan.B)
		return flatColor(cls)
	default:
		return scan
	}
}

func flatColor(c param.ColorClass) param.RGB {
	switch c {
	case param.ColorRed:
		return param.RGB{R: 1}
	case param.ColorGreen:
		return param.RGB{G: 1}
	case param.ColorBlue:
		return param.RGB{B: 1}
	default:
		return param.RGB{R: 0.5, G: 0.5, B: 0.5}
	}
}

// sampleInterpolated reconstructs full color at an image point from
// the nearest confirmed same-channel patch samples (a simplified,
// nearest-neighbor stand-in for full lattice demosaicing; see
// DESIGN.md). Falls back to Realistic wherever no screen map was
// supplied or a channel has no confirmed anchors nearby.
func (r *Renderer) sampleInterpolated(img param.Point2D) param.RGB {
	if r.screenMap == nil {
		return r.sampleRealistic(img, r.s2i.ToScr(img))
	}
	var out param.RGB
	vals := [3]*float64{&out.R, &out.G, &out.B}
	missing := false
	for c := 0; c < 3; c++ {
		v, ok := r.nearestValue(c, img)
		if !ok {
			missing = true
			continue
		}
		*vals[c] = v
	}
	if missing {
		fallback := r.sampleRealistic(img, r.s2i.ToScr(img))
		if _, ok := r.nearestValue(0, img); !ok {
			out.R = fallback.R
		}
		if _, ok := r.nearestValue(1, img); !ok {
			out.G = fallback.G
		}
		if _, ok := r.nearestValue(2, img); !ok {
			out.B = fallback.B
		}
	}
	return out
}

// sampleCombined blends Realistic and Interpolated, weighted toward
// Interpolated near confirmed patches and toward Realistic in between
// (spec §4.12's "weighted by local patch-confirmation confidence").
func (r *Renderer) sampleCombined(scr param.Point2D) param.RGB {
	img := r.s2i.ToImg(scr)
	realistic := r.sampleRealistic(img, scr)
	if r.screenMap == nil {
		return realistic
	}
	interp := r.sampleInterpolated(img)
	w := r.confidence(img)
	return param.RGB{
		R: w*interp.R + (1-w)*realistic.R,
		G: w*interp.G + (1-w)*realistic.G,
		B: w*interp.B + (1-w)*realistic.B,
	}
}

// sampleDiff renders the signed difference between Realistic and
// Interpolated, offset to mid-gray so it can be displayed as a color
// image (spec §4.12's "visualizing model/detection disagreement").
func (r *Renderer) sampleDiff(scr param.Point2D) param.RGB {
	img := r.s2i.ToImg(scr)
	realistic := r.sampleRealistic(img, scr)
	interp := r.sampleInterpolated(img)
	return param.RGB{
		R: 0.5 + (realistic.R-interp.R)/2,
		G: 0.5 + (realistic.G-interp.G)/2,
		B: 0.5 + (realistic.B-interp.B)/2,
	}
}

// confidence is a distance-based weight in [0,1], 1 at a confirmed
// anchor and decaying over roughly one lattice cell's width.
func (r *Renderer) confidence(img param.Point2D) float64 {
	const falloff = 1.0 // lattice cells
	best := -1.0
	for c := 0; c < 3; c++ {
		for _, p := range r.nearestByColor[c] {
			d := math.Hypot(p.img.X-img.X, p.img.Y-img.Y)
			if best < 0 || d < best {
				best = d
			}
		}
	}
	if best < 0 {
		return 0
	}
	cell := r.s2i.PixelSize() * screen.Size * falloff
	if cell <= 0 {
		return 0
	}
	w := 1 - best/cell
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
