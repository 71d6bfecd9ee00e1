// Package screen synthesizes the periodic color-filter mosaic tile
// (C5): one period of the historical screen's red/green/blue
// transmission pattern, plus the blur/MTF variants used to match a
// particular scan's optical softening before it is compared against
// or divided out of a scan.
package screen

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/colorscreen/reconstruct/internal/mtf"
	"github.com/colorscreen/reconstruct/internal/param"
)

// Size is the tile's period, in cells, along each axis.
const Size = 128

// Tile holds one period of the mosaic: Mult is the per-cell
// multiplicative transmission (the dominant signal), Add is an
// additive term used only by preview/UI overlays and is zero in
// photometric use.
type Tile struct {
	Mult [Size][Size][3]float64
	Add  [Size][Size][3]float64
}

// Empty returns the identity tile (mult=1, add=0 everywhere).
func Empty() *Tile {
	t := &Tile{}
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			t.Mult[y][x] = [3]float64{1, 1, 1}
		}
	}
	return t
}

// Initialize synthesizes the ideal tile for the given screen type. The
// strip widths only apply to Dufay; for the strip-family screens
// (Joly/Warner-Powrie/Omnicolore/Dioptichrome/ImprovedDioptichromeB)
// redStripWidth/greenStripWidth are instead interpreted as the red and
// green strip widths of that screen's three parallel strips (the third
// is 1 minus their sum), matching spec §4.5.
func Initialize(st param.ScreenType, redStripWidth, greenStripWidth float64) *Tile {
	switch st {
	case param.Dufay:
		return dufay(redStripWidth, greenStripWidth)
	case param.Paget, param.Finlay:
		return pagetFinlay()
	case param.Thames:
		return thames()
	case param.Joly, param.WarnerPowrie, param.Omnicolore, param.DioptichromeB, param.ImprovedDioptichromeB:
		return strips(redStripWidth, greenStripWidth)
	default:
		return Empty()
	}
}

// dist2 returns the squared toroidal distance, in tile cells, between
// cell (x, y) and a point (cx, cy) given in unit-period coordinates;
// this mirrors screen.C's periodic `dist` helper.
func dist2(x, y int, cx, cy float64) float64 {
	dx := wrapDelta(float64(x)+0.5-cx*Size, Size)
	dy := wrapDelta(float64(y)+0.5-cy*Size, Size)
	return dx*dx + dy*dy
}

func wrapDelta(d float64, period int) float64 {
	p := float64(period)
	d = math.Mod(d, p)
	if d > p/2 {
		d -= p
	}
	if d < -p/2 {
		d += p
	}
	return d
}

// pagetFinlay synthesizes the Paget/Finlay diagonal lattice: red and
// green squares on a rotated grid, blue filling the corners with the
// documented (0.085/(0.063+0.085)) diagonal ratio (spec §4.5).
func pagetFinlay() *Tile {
	t := &Tile{}
	const redGreenDiagonal = (0.085 / (0.063 + 0.085)) * Size
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			d1 := math.Min(dist2(x, y, 0, 0), dist2(x, y, 0.5, 0.5))
			d2 := math.Min(dist2(x, y, 0, 0.5), dist2(x, y, 0.5, 0))
			switch {
			case d1 < (redGreenDiagonal/2)*(redGreenDiagonal/2) && d1 < d2:
				t.Mult[y][x] = [3]float64{0, 1, 0}
			case d2 < (redGreenDiagonal/2)*(redGreenDiagonal/2):
				t.Mult[y][x] = [3]float64{1, 0, 0}
			default:
				t.Mult[y][x] = [3]float64{0, 0, 1}
			}
		}
	}
	return t
}

// thames synthesizes the Thames screen: a green disk centered in the
// tile, red disks at the four corners (periodic, so really one red
// disk per corner lattice point), blue elsewhere.
func thames() *Tile {
	t := &Tile{}
	const dRadius = 68.0 / 256 // fraction of size, matching screen.C's D/DG
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			dGreen := math.Sqrt(dist2(x, y, 0.5, 0.5))
			dRed := math.Sqrt(dist2(x, y, 0, 0))
			switch {
			case dGreen < (0.5-dRadius)*Size:
				t.Mult[y][x] = [3]float64{0, 1, 0}
			case dRed < (0.5-dRadius)*Size:
				t.Mult[y][x] = [3]float64{1, 0, 0}
			default:
				t.Mult[y][x] = [3]float64{0, 0, 1}
			}
		}
	}
	return t
}

// dufay synthesizes the Dufay rectangular-strip screen: red occupies a
// horizontal strip of width redStripWidth (fraction of the period);
// the remainder is split into a green strip of height greenStripWidth
// and blue filling the rest, each channel anti-aliased on its
// fractional cell boundary (spec §4.5).
func dufay(redStripWidth, greenStripWidth float64) *Tile {
	if redStripWidth <= 0 {
		redStripWidth = 0.5
	}
	if greenStripWidth <= 0 {
		greenStripWidth = 0.5
	}
	stripWidth := Size / 2 * (1 - redStripWidth)
	stripHeight := Size / 2 * greenStripWidth

	red := make([]float64, Size)
	for y := 0; y < Size; y++ {
		red[y] = stripCoverage(float64(y), stripWidth, Size)
	}
	green := make([]float64, Size)
	for x := 0; x < Size; x++ {
		green[x] = 1 - stripCoverage(float64(x), stripHeight, Size)
	}

	t := &Tile{}
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			r := red[y]
			g := green[x] * (1 - r)
			b := 1 - r - g
			t.Mult[y][x] = [3]float64{r, g, b}
		}
	}
	return t
}

// stripCoverage returns the fraction of cell index i (0..size-1) that
// lies inside the central [stripHalfWidth, size-stripHalfWidth) band,
// i.e. the "red" coverage for a Dufay-style centered strip, anti-
// aliased at the boundary.
func stripCoverage(i, stripHalfWidth float64, size int) float64 {
	lo, hi := stripHalfWidth, float64(size)-stripHalfWidth
	switch {
	case i >= math.Ceil(lo) && i+1 <= math.Floor(hi):
		return 1
	case i+1 <= math.Floor(lo) || i >= math.Ceil(hi):
		return 0
	case i == math.Floor(lo):
		return 1 - (lo - i)
	default:
		return hi - i
	}
}

// strips synthesizes the three-parallel-strip screens (Joly,
// Warner-Powrie, Omnicolore, Dioptichrome, ImprovedDioptichromeB):
// vertical bands of red, green, blue with the given widths (third
// derived as 1 minus the other two), matching spec §4.5.
func strips(redWidth, greenWidth float64) *Tile {
	if redWidth <= 0 {
		redWidth = 1.0 / 3
	}
	if greenWidth <= 0 {
		greenWidth = 1.0 / 3
	}
	rEnd := redWidth * Size
	gEnd := rEnd + greenWidth*Size

	t := &Tile{}
	for x := 0; x < Size; x++ {
		var col [3]float64
		switch {
		case float64(x)+1 <= rEnd:
			col = [3]float64{1, 0, 0}
		case float64(x) >= rEnd && float64(x)+1 <= gEnd:
			col = [3]float64{0, 1, 0}
		default:
			col = [3]float64{0, 0, 1}
		}
		for y := 0; y < Size; y++ {
			t.Mult[y][x] = col
		}
	}
	return t
}

// Preview synthesizes a schematic tile with large, clearly distinct
// dots and additive tinting, used only for UI display (spec §4.5).
func Preview(st param.ScreenType, redStripWidth, greenStripWidth float64) *Tile {
	base := Initialize(st, redStripWidth, greenStripWidth)
	t := &Tile{}
	const dotRadius = 30.0 / 256 * Size
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			dGreen := math.Sqrt(math.Min(math.Min(dist2(x, y, 0, 0), dist2(x, y, 1, 1)), math.Min(dist2(x, y, 1, 0), dist2(x, y, 0, 1))))
			dRed := math.Sqrt(math.Min(math.Min(dist2(x, y, 0, 0.5), dist2(x, y, 1, 0.5)), math.Min(dist2(x, y, 0.5, 0), dist2(x, y, 0.5, 1))))
			switch {
			case dGreen < dotRadius:
				t.Add[y][x] = [3]float64{0, 0.5, 0}
				t.Mult[y][x] = [3]float64{0.25, 0.5, 0.25}
			case dRed < dotRadius:
				t.Add[y][x] = [3]float64{0.5, 0, 0}
				t.Mult[y][x] = [3]float64{0.5, 0.25, 0.25}
			default:
				t.Mult[y][x] = base.Mult[y][x]
			}
		}
	}
	return t
}

// Blur convolves each channel of src with a Gaussian of the given
// per-channel sigma (in tile pixels), periodically (the tile wraps).
// For sigma >= 0.25*Size the FFT path is used since a separable FIR
// kernel that wide is no longer cheaper than a transform; otherwise a
// small separable kernel is applied directly (spec §4.5).
func Blur(src *Tile, sigma [3]float64) *Tile {
	out := &Tile{Add: src.Add}
	for c := 0; c < 3; c++ {
		if sigma[c] <= 0 {
			for y := 0; y < Size; y++ {
				for x := 0; x < Size; x++ {
					out.Mult[y][x][c] = src.Mult[y][x][c]
				}
			}
			continue
		}
		var plane [Size][Size]float64
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				plane[y][x] = src.Mult[y][x][c]
			}
		}
		var blurred [Size][Size]float64
		if sigma[c] >= 0.25*Size {
			blurred = blurFFT(plane, sigma[c])
		} else {
			blurred = blurSeparable(plane, sigma[c])
		}
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				out.Mult[y][x][c] = blurred[y][x]
			}
		}
	}
	return out
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(sigma * 3))
	if radius < 1 {
		radius = 1
	}
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// blurSeparable applies a periodic separable Gaussian FIR, row pass
// then column pass.
func blurSeparable(plane [Size][Size]float64, sigma float64) [Size][Size]float64 {
	k := gaussianKernel(sigma)
	radius := len(k) / 2
	var tmp, out [Size][Size]float64
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			var acc float64
			for i, w := range k {
				sx := wrapIdx(x+i-radius, Size)
				acc += plane[y][sx] * w
			}
			tmp[y][x] = acc
		}
	}
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			var acc float64
			for i, w := range k {
				sy := wrapIdx(y+i-radius, Size)
				acc += tmp[sy][x] * w
			}
			out[y][x] = acc
		}
	}
	return out
}

func wrapIdx(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// blurFFT applies the periodic Gaussian blur via the 2D DFT: multiply
// by the (real, even) Gaussian transfer function exp(-2*pi^2*sigma^2*f^2)
// and invert.
func blurFFT(plane [Size][Size]float64, sigma float64) [Size][Size]float64 {
	freqResp := func(u, v int) float64 {
		fu := freqOf(u, Size)
		fv := freqOf(v, Size)
		f2 := fu*fu + fv*fv
		return math.Exp(-2 * math.Pi * math.Pi * sigma * sigma * f2)
	}
	return apply2DFilterReal(plane, freqResp)
}

func freqOf(i, n int) float64 {
	if i > n/2 {
		i -= n
	}
	return float64(i) / float64(n)
}

// apply2DFilterReal forward-transforms plane, multiplies by an
// isotropic real filter response evaluated in cycles/pixel, and
// inverse-transforms, via row-then-column composition of gonum's 1D
// complex FFT (mirroring the same composition used in internal/mtf and
// internal/deconv since gonum/dsp/fourier has no 2D transform).
func apply2DFilterReal(plane [Size][Size]float64, resp func(u, v int) float64) [Size][Size]float64 {
	fft := fourier.NewCmplxFFT(Size)
	rows := make([][]complex128, Size)
	for y := 0; y < Size; y++ {
		row := make([]complex128, Size)
		for x := 0; x < Size; x++ {
			row[x] = complex(plane[y][x], 0)
		}
		rows[y] = fft.Coefficients(nil, row)
	}
	cols := make([][]complex128, Size)
	for x := 0; x < Size; x++ {
		col := make([]complex128, Size)
		for y := 0; y < Size; y++ {
			col[y] = rows[y][x]
		}
		cols[x] = fft.Coefficients(nil, col)
	}
	for x := 0; x < Size; x++ {
		for v := 0; v < Size; v++ {
			r := resp(x, v)
			cols[x][v] *= complex(r, 0)
		}
	}
	// inverse: columns then rows
	backRows := make([][]complex128, Size)
	for x := 0; x < Size; x++ {
		backRows[x] = fft.Sequence(nil, cols[x])
	}
	// gonum's Sequence is the unnormalized FFTPACK backward transform, not
	// a normalized IDFT: it does not divide by N. Composing two of them
	// (columns then rows) leaves the result scaled by Size*Size, divided
	// out explicitly below.
	const scale = 1.0 / float64(Size*Size)
	var out [Size][Size]float64
	for y := 0; y < Size; y++ {
		row := make([]complex128, Size)
		for x := 0; x < Size; x++ {
			row[x] = backRows[x][y]
		}
		spatial := fft.Sequence(nil, row)
		for x := 0; x < Size; x++ {
			out[y][x] = real(spatial[x]) * scale
		}
	}
	return out
}

// With2DFFT multiplies the tile's 2D DFT by the isotropic MTF
// mtf_c(sqrt(u^2+v^2)*scale_c), clamped to [0,1], and inverse-
// transforms (spec §4.5's initialize_with_2D_fft).
func With2DFFT(src *Tile, mtfs [3]*mtf.MTF, scale [3]float64) *Tile {
	out := &Tile{Add: src.Add}
	for c := 0; c < 3; c++ {
		m := mtfs[c]
		sc := scale[c]
		var plane [Size][Size]float64
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				plane[y][x] = src.Mult[y][x][c]
			}
		}
		resp := func(u, v int) float64 {
			if m == nil {
				return 1
			}
			fu := freqOf(u, Size)
			fv := freqOf(v, Size)
			freq := math.Hypot(fu, fv) * sc
			return clamp01(m.Eval1D(freq))
		}
		blurred := apply2DFilterReal(plane, resp)
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				out.Mult[y][x][c] = blurred[y][x]
			}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// WithSharpenParameters builds the tile a particular scan would have
// produced after the scanner's own optical blur (given by mtfs) was
// followed by the requested post-scan sharpening: when anticipate is
// true, the blur MTF and the Wiener-sharpen kernel derived from the
// same MTF/SNR are combined into a single filter response so the
// synthesized tile matches what a sharpened scan's screen would look
// like (spec §4.5); when false, only the blur is applied.
func WithSharpenParameters(src *Tile, mtfs [3]*mtf.MTF, sharpenSNR [3]float64, anticipate bool) *Tile {
	if !anticipate {
		return With2DFFT(src, mtfs, [3]float64{1, 1, 1})
	}
	out := &Tile{Add: src.Add}
	for c := 0; c < 3; c++ {
		m := mtfs[c]
		snr := sharpenSNR[c]
		var plane [Size][Size]float64
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				plane[y][x] = src.Mult[y][x][c]
			}
		}
		resp := func(u, v int) float64 {
			if m == nil {
				return 1
			}
			fu := freqOf(u, Size)
			fv := freqOf(v, Size)
			freq := math.Hypot(fu, fv)
			h := clamp01(m.Eval1D(freq))
			if snr <= 0 {
				return h
			}
			wiener := h / (h*h + 1/snr)
			return clamp01(h * wiener)
		}
		blurred := apply2DFilterReal(plane, resp)
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				out.Mult[y][x][c] = blurred[y][x]
			}
		}
	}
	return out
}

// InterpolatedMult bilinearly samples the tile's multiplicative mask
// at a screen-space point, wrapping modulo one period (spec §4.5).
func InterpolatedMult(t *Tile, pt param.Point2D) [3]float64 {
	fx := pt.X*Size - math.Floor(pt.X*Size)
	fy := pt.Y*Size - math.Floor(pt.Y*Size)
	x0 := wrapIdx(int(math.Floor(pt.X*Size)), Size)
	y0 := wrapIdx(int(math.Floor(pt.Y*Size)), Size)
	x1 := wrapIdx(x0+1, Size)
	y1 := wrapIdx(y0+1, Size)

	var out [3]float64
	for c := 0; c < 3; c++ {
		v00 := t.Mult[y0][x0][c]
		v10 := t.Mult[y0][x1][c]
		v01 := t.Mult[y1][x0][c]
		v11 := t.Mult[y1][x1][c]
		top := v00 + (v10-v00)*fx
		bot := v01 + (v11-v01)*fx
		out[c] = top + (bot-top)*fy
	}
	return out
}

// PeriodSum returns the per-channel sum of Mult over the whole tile,
// divided by Size*Size, i.e. the average patch proportion actually
// realized by the synthesized tile (used by tests against
// geom.ScrToImg.PatchProportions, spec §8).
func PeriodSum(t *Tile) param.RGB {
	var r, g, b float64
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			r += t.Mult[y][x][0]
			g += t.Mult[y][x][1]
			b += t.Mult[y][x][2]
		}
	}
	n := float64(Size * Size)
	return param.RGB{R: r / n, G: g / n, B: b / n}
}
