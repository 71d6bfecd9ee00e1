// Package geom implements the screen geometry core: a precomputed 1D
// lookup function (C1), radial lens distortion (C2), the composed
// scan<->screen coordinate map (C3), and dense curvilinear mesh
// deformation (C4).
package geom

import (
	"math"
	"sort"
)

// segment is one linear piece add + slope*x of a Function1D.
type segment struct {
	slope, add float64
}

// Function1D is a piecewise-linear lookup table over equal-width steps,
// grounded on the original's precomputed_function<T>: Apply is a clamp +
// floor-index + linear read, and Invert binary searches assuming (without
// verifying) monotonicity.
type Function1D struct {
	minX, maxX   float64
	step, stepInv float64
	entries      []segment
	increasing   bool
}

// NewFunction1DFromSamples builds a Function1D from n equally spaced
// y-values spanning [domainLo, domainHi].
func NewFunction1DFromSamples(y []float64, domainLo, domainHi float64) *Function1D {
	return newFromYValues(y, domainLo, domainHi)
}

// NewFunction1DFromControlPoints resamples npoints (x[i], y[i]) control
// points (x strictly increasing) to `samples` equally spaced steps over
// [lo, hi] via linear interpolation, then builds the step table from
// those resampled values. With zero control points the result is the
// identity f(x)=x; with exactly one it is a constant offset.
func NewFunction1DFromControlPoints(x, y []float64, lo, hi float64, samples int) *Function1D {
	if len(x) > 0 && lo < x[0] {
		lo = x[0]
	}
	if len(x) > 0 && hi > x[len(x)-1] {
		hi = x[len(x)-1]
	}
	if lo >= hi {
		hi = lo + 1
	}
	if len(x) <= 2 {
		samples = 2
	}
	if samples < 2 {
		samples = 2
	}
	yy := make([]float64, samples)
	step := (hi - lo) / float64(samples-1)
	switch len(x) {
	case 0:
		for i := range yy {
			yy[i] = lo + float64(i)*step
		}
	case 1:
		off := y[0] - x[0]
		for i := range yy {
			yy[i] = lo + float64(i)*step + off
		}
	default:
		p := 0
		for i := range yy {
			xx := lo + float64(i)*step
			for p < len(x)-2 && x[p+1] < xx {
				p++
			}
			yy[i] = y[p] + (y[p+1]-y[p])*(xx-x[p])/(x[p+1]-x[p])
		}
	}
	return newFromYValues(yy, lo, hi)
}

func newFromYValues(y []float64, lo, hi float64) *Function1D {
	if len(y) < 2 {
		panic("geom: Function1D needs at least 2 samples")
	}
	f := &Function1D{minX: lo, maxX: hi}
	n := len(y) - 1
	f.step = (hi - lo) / float64(n)
	f.stepInv = 1 / f.step
	f.entries = make([]segment, n)
	for i := 0; i < n; i++ {
		xleft := lo + float64(i)*f.step
		slope := (y[i+1] - y[i]) * f.stepInv
		f.entries[i] = segment{slope: slope, add: y[i] - xleft*slope}
	}
	f.increasing = y[0] < y[len(y)-1]
	return f
}

// Apply evaluates f(x), clamping the lookup index to the table's domain.
func (f *Function1D) Apply(x float64) float64 {
	idx := int(math.Floor((x - f.minX) * f.stepInv))
	if idx < 0 {
		idx = 0
	}
	if m := len(f.entries) - 1; idx > m {
		idx = m
	}
	e := f.entries[idx]
	return e.add + e.slope*x
}

// Invert returns the x such that Apply(x) ≈ y, assuming f is monotone.
// Behavior is undefined (fails closed to a domain endpoint) if f is not
// monotone; callers that need the guarantee should validate separately.
func (f *Function1D) Invert(y float64) float64 {
	n := len(f.entries)
	lo, hi := 0, n
	for hi != lo {
		ix := (lo + hi) / 2
		xx := f.minX + float64(ix)*f.step
		val := f.entries[ix].add + f.entries[ix].slope*xx
		val2 := val + f.entries[ix].slope*f.step
		if !f.increasing {
			val, val2 = val2, val
		}
		switch {
		case val <= y && y <= val2:
			lo, hi = ix, ix
		case (val < y) != f.increasing:
			hi = ix
		case lo != ix:
			lo = ix
		default:
			ix = lo
			lo, hi = ix, ix
		}
	}
	e := f.entries[lo]
	if e.slope == 0 {
		return f.minX + float64(lo)*f.step
	}
	return (y - e.add) / e.slope
}

// Domain returns the function's [minX, maxX] range.
func (f *Function1D) Domain() (float64, float64) { return f.minX, f.maxX }

// SortedControlPoints is a small helper used by callers (e.g. motor
// correction loaders) that receive (x, y) pairs in arbitrary order.
func SortedControlPoints(x, y []float64) ([]float64, []float64) {
	type pair struct{ x, y float64 }
	pairs := make([]pair, len(x))
	for i := range x {
		pairs[i] = pair{x[i], y[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].x < pairs[j].x })
	ox := make([]float64, len(pairs))
	oy := make([]float64, len(pairs))
	for i, p := range pairs {
		ox[i], oy[i] = p.x, p.y
	}
	return ox, oy
}
