package geom

import (
	"math"

	"github.com/colorscreen/reconstruct/internal/param"
)

const lensInverseTableSize = 16384

// LensWarp models radial distortion r' = r * f(r^2/rmax^2) about an
// image-space center, where f is a low-degree polynomial in its argument
// (coefficients come from ScrToImgParameters.LensCoefficients). The
// inverse is precomputed as a lookup table, grounded on the original's
// lens-warp-correction.C: sample r -> r*f(...) forward and invert by
// binary search, capping once the forward map stops being monotone.
type LensWarp struct {
	center param.Point2D
	coeffs []float64
	rMax   float64
	noop   bool
	inv    *Function1D // maps distorted radius -> undistorted radius
}

// radialFactor evaluates f(t) for t = r^2/rMax^2 using the polynomial
// coefficients (2-4 of them), matching the "same polynomial for every
// scan" model in spec §4.2.
func radialFactor(coeffs []float64, t float64) float64 {
	f := 1.0
	tp := t
	for _, c := range coeffs {
		f += c * tp
		tp *= t
	}
	return f
}

// PrecomputeLensWarp builds the forward/inverse model for a parameter
// record. corners are the four image corner points, used to bound rMax.
// needInverse controls whether the (expensive) inverse table is built.
func PrecomputeLensWarp(center param.Point2D, coeffs []float64, corners [4]param.Point2D, needInverse bool) *LensWarp {
	lw := &LensWarp{center: center, coeffs: append([]float64(nil), coeffs...)}

	const epsNoop = 1e-9
	isNoop := true
	for _, c := range coeffs {
		if math.Abs(c) > epsNoop {
			isNoop = false
			break
		}
	}
	if isNoop {
		lw.noop = true
		return lw
	}

	rMax := 0.0
	for _, p := range corners {
		d := p.Sub(center)
		r := math.Hypot(d.X, d.Y)
		if r > rMax {
			rMax = r
		}
	}
	lw.rMax = rMax
	if !needInverse || rMax == 0 {
		return lw
	}

	// Sample r -> r*f(r^2/rMax^2) forward, and invert it via the same
	// monotone binary-search machinery as Function1D, capping the domain
	// at the point the forward map stops being monotone (matching the
	// original's "capped when r*f becomes non-monotone").
	n := lensInverseTableSize
	fwd := make([]float64, n)
	last := 0.0
	capIdx := n - 1
	for i := 0; i < n; i++ {
		r := rMax * float64(i) / float64(n-1)
		t := (r * r) / (rMax * rMax)
		fr := r * radialFactor(coeffs, t)
		if i > 0 && fr <= last {
			capIdx = i - 1
			break
		}
		fwd[i] = fr
		last = fr
	}
	fwd = fwd[:capIdx+1]
	maxDistorted := fwd[len(fwd)-1]
	// Build inverse as a Function1D over the distorted-radius domain whose
	// y-values are the corresponding undistorted radii.
	rCap := rMax * float64(capIdx) / float64(n-1)
	fwdF := NewFunction1DFromSamples(fwd, 0, rCap)
	undistorted := make([]float64, len(fwd))
	for i := range undistorted {
		undistorted[i] = fwdF.Invert(maxDistorted * float64(i) / float64(len(fwd)-1))
	}
	lw.inv = NewFunction1DFromSamples(undistorted, 0, maxDistorted)
	return lw
}

// CorrectedToScan maps an undistorted ("corrected") point to its
// distorted scan-space location: p' = (p-center)*f(...) + center.
func (lw *LensWarp) CorrectedToScan(p param.Point2D) param.Point2D {
	if lw.noop || lw.rMax == 0 {
		return p
	}
	d := p.Sub(lw.center)
	r2 := d.X*d.X + d.Y*d.Y
	t := r2 / (lw.rMax * lw.rMax)
	f := radialFactor(lw.coeffs, t)
	return d.Scale(f).Add(lw.center)
}

// ScanToCorrected maps a distorted scan-space point back to undistorted
// space using the precomputed inverse table, clamping distance to the
// table's distorted-radius range.
func (lw *LensWarp) ScanToCorrected(p param.Point2D) param.Point2D {
	if lw.noop || lw.rMax == 0 || lw.inv == nil {
		return p
	}
	d := p.Sub(lw.center)
	r := math.Hypot(d.X, d.Y)
	dist := r
	if dist > lw.inv.maxX {
		dist = lw.inv.maxX
	}
	rUndist := lw.inv.Apply(dist)
	if r == 0 {
		return lw.center
	}
	scale := rUndist / r
	return d.Scale(scale).Add(lw.center)
}

// IsNoop reports whether the distortion is identity within tolerance, in
// which case callers may skip both maps entirely.
func (lw *LensWarp) IsNoop() bool { return lw.noop }
