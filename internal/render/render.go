// Package render implements the tiled render pipeline (C12): given a
// scan, a resolved scan<->screen map, a screen-detector configuration
// and a render-type selector, it produces rectangular output tiles in
// final (display) space, composing internal/geom's coordinate chain,
// internal/screen's synthesized mosaic, internal/deconv's sharpening
// and internal/field's backlight/scanner-blur corrections behind
// internal/cache's refcounted caches, with cooperative cancellation
// via internal/progress.
package render

import (
	"errors"

	"github.com/colorscreen/reconstruct/internal/param"
)

// ErrCancelled is returned by any render entry point that observed a
// cancellation request mid-tile; partial output already written to the
// caller's buffer is left in place, matching spec §4.12's "leaves the
// output buffer partially filled and returns false".
var ErrCancelled = errors.New("render: cancelled")

// Type is the closed render-type enum (spec §4.12), trimmed to the
// variants with materially distinct sampling behavior; the remaining
// named variants from spec.md are expressed as Type values that share
// one of these strategies (see SamplePixelScr's switch for the grouping,
// documented in DESIGN.md).
type Type int

const (
	// Original renders the raw scan, no screen correction.
	Original Type = iota
	// ProfiledOriginal samples exactly as Original: the raw scan, with no
	// color profile applied.
	ProfiledOriginal
	// PreviewGrid overlays screen.Preview's schematic dot pattern.
	PreviewGrid
	// Realistic superposes the synthesized, blurred screen mosaic over
	// the linearized scan (the primary reconstruction mode).
	Realistic
	// Interpolated samples the detector's confirmed patch grid directly
	// (no per-pixel screen synthesis), smoothly interpolated.
	Interpolated
	// Predictive samples exactly as Interpolated (which falls back to
	// Realistic wherever a channel has no confirmed anchor).
	Predictive
	// Combined blends Realistic and Interpolated, weighted by local
	// patch-confirmation confidence.
	Combined
	// Fast samples exactly as Realistic; it has no cheaper path of its
	// own.
	Fast
	// ScrNearest renders the nearest screen lattice cell's pure color.
	ScrNearest
	// ScrNearestScaled is ScrNearest rescaled to the scan's dynamic range.
	ScrNearestScaled
	// ScrRelax relaxes ScrNearest toward the local patch centroid.
	ScrRelax
	// AdjustedColor renders the detector's adjusted-color-space RGB
	// (diagnostic: shows what the classifier actually sees).
	AdjustedColor
	// NormalizedColor renders the adjusted color normalized to R+G+B=1
	// (diagnostic).
	NormalizedColor
	// PixelColors renders a flat color per classified patch color
	// (diagnostic, shows the classifier's hard decisions).
	PixelColors
	// RealisticScr samples exactly as Realistic: the screen point is
	// mapped to image space and superposed with the screen mosaic.
	RealisticScr
	// InterpolatedOriginal interpolates the raw scan over the patch grid.
	InterpolatedOriginal
	// InterpolatedProfiledOriginal samples exactly as
	// InterpolatedOriginal; no color profile is applied.
	InterpolatedProfiledOriginal
	// InterpolatedDiff renders the signed difference between Realistic
	// and Interpolated, for visualizing model/detection disagreement.
	InterpolatedDiff
)

// AntialiasMode selects how a tile narrower in screen-space than one
// output pixel is handled (spec §4.12 "Antialiasing").
type AntialiasMode int

const (
	// AntialiasAuto picks get_color_data's downscale splat when
	// step > pixel size and direct per-pixel sampling otherwise.
	AntialiasAuto AntialiasMode = iota
	// AntialiasNone always samples one point per output pixel.
	AntialiasNone
	// AntialiasSupersample always supersamples (used by stitched views).
	AntialiasSupersample
)

// ColorSpace is the output quantization target (spec §4.12 "output
// color space").
type ColorSpace int

const (
	ColorSpaceSRGB ColorSpace = iota
	ColorSpaceProPhoto
	ColorSpaceOutputProfile
)

// Params bundles the render-wide knobs spec §4.12 describes outside
// the per-tile geometry: antialiasing strategy, output encoding, and
// the sharpening variant applied ahead of screen-mosaic synthesis.
type Params struct {
	Type         Type
	Antialias    AntialiasMode
	ColorSpace   ColorSpace
	TargetGamma  float64 // used only when ColorSpace == ColorSpaceOutputProfile
	Sharpen      param.SharpenParameters
	Supersample  int // screen-space supersampling factor for stitched AA; 0 defaults to 3
	AnticipateSharpen bool // see screen.WithSharpenParameters
}

// DefaultParams returns sRGB output, auto antialiasing, no sharpening.
func DefaultParams(t Type) Params {
	return Params{Type: t, ColorSpace: ColorSpaceSRGB, Supersample: 3}
}

// TileRequest describes one rectangular unit of render work, in final
// (output) pixel coordinates, matching spec §4.12's
// (xoffset, yoffset, step, w, h) tuple: the tile covers final-space
// pixels [xoffset, xoffset+w*step) x [yoffset, yoffset+h*step),
// producing a w x h output raster.
type TileRequest struct {
	XOffset, YOffset float64
	Step             float64
	W, H             int
}
