// Package detect implements the screen detector (C10): per-pixel color
// classification, seeded grid-search for an initial lattice fix, a
// priority-queue flood-fill that walks the screen lattice confirming one
// patch at a time, and the quality gates and color-threshold line search
// that decide whether a detected screen_map is trustworthy.
package detect

import (
	"math"

	"github.com/colorscreen/reconstruct/internal/param"
)

// Sampler is the minimal scan access the detector needs: linear-light,
// [0,1]-normalized RGB at a pixel, decoupled from any particular image
// decoder the way internal/field.ScanSampler is.
type Sampler interface {
	Width() int
	Height() int
	Linear(x, y int) (r, g, b float64)
}

// Classifier runs scr_detect's classification pipeline: gamma, the 3x3
// adjustment matrix, then the min-luminosity/min-ratio dominance test
// (spec §4.10 step 1; grounded on scr-detect.h's classify_adjusted_color).
type Classifier struct {
	p param.ScrDetectParameters
}

// NewClassifier builds a Classifier from detector parameters.
func NewClassifier(p param.ScrDetectParameters) *Classifier { return &Classifier{p: p} }

// Params returns the classifier's underlying parameters.
func (c *Classifier) Params() param.ScrDetectParameters { return c.p }

// AdjustedColor applies per-channel gamma then the 3x3 adjustment
// matrix, returning the adjusted (not normalized) RGB.
func (c *Classifier) AdjustedColor(r, g, b float64) (float64, float64, float64) {
	r = applyGamma(r, c.p.Gamma[0])
	g = applyGamma(g, c.p.Gamma[1])
	b = applyGamma(b, c.p.Gamma[2])
	m := c.p.AdjustColorMatrix
	return m[0]*r + m[1]*g + m[2]*b,
		m[3]*r + m[4]*g + m[5]*b,
		m[6]*r + m[7]*g + m[8]*b
}

func applyGamma(v, gamma float64) float64 {
	if gamma <= 0 || gamma == 1 || v <= 0 {
		return v
	}
	return math.Pow(v, gamma)
}

// Classify runs the full classify_color pipeline (spec §4.10 step 1):
// adjust, gate on the pre-normalization luminosity, normalize to
// proportions summing to 1, then apply the min-ratio dominance test to
// the normalized proportions. Normalizing only after the luminosity gate
// keeps the dark-pixel rejection meaningful (a normalized triple's
// maximum is always >= 1/3, so gating on it would be a no-op) while
// still comparing patch *proportions* — the purpose the spec's
// normalization step serves — in the dominance test.
func (c *Classifier) Classify(r, g, b float64) param.ColorClass {
	ar, ag, ab := c.AdjustedColor(r, g, b)
	if max3(ar, ag, ab) < c.p.MinLuminosity {
		return param.ColorUnknown
	}
	sum := ar + ag + ab
	if sum == 0 {
		return param.ColorUnknown
	}
	nr, ng, nb := ar/sum, ag/sum, ab/sum
	m := math.Min(math.Min(math.Min(nr, ng), nb), 0)
	nr -= m
	ng -= m
	nb -= m
	ratio := c.p.MinRatio
	switch {
	case nr > (math.Abs(ng)+math.Abs(nb))*ratio && nr > ng && nr > nb:
		return param.ColorRed
	case ng > (math.Abs(nr)+math.Abs(nb))*ratio && ng > nr && ng > nb:
		return param.ColorGreen
	case nb > (math.Abs(nr)+math.Abs(ng))*ratio && nb > nr && nb > ng:
		return param.ColorBlue
	default:
		return param.ColorUnknown
	}
}

func max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }

// ClassMap is a classified-color raster built once per detection run so
// the flood-fill/confirm stages never re-run the classifier per query.
type ClassMap struct {
	Width, Height int
	classes       []param.ColorClass
}

// NewClassMap allocates a width x height map, initially all unknown.
func NewClassMap(w, h int) *ClassMap {
	m := &ClassMap{Width: w, Height: h, classes: make([]param.ColorClass, w*h)}
	for i := range m.classes {
		m.classes[i] = param.ColorUnknown
	}
	return m
}

// At returns the classified color at (x, y); out-of-range coordinates
// are unknown, matching color_class_map::get_class's bounds check.
func (m *ClassMap) At(x, y int) param.ColorClass {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return param.ColorUnknown
	}
	return m.classes[y*m.Width+x]
}

// Set stores the classified color at (x, y).
func (m *ClassMap) Set(x, y int, c param.ColorClass) { m.classes[y*m.Width+x] = c }

// BuildClassMap classifies every pixel of s.
func BuildClassMap(s Sampler, cl *Classifier) *ClassMap {
	w, h := s.Width(), s.Height()
	m := NewClassMap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := s.Linear(x, y)
			m.Set(x, y, cl.Classify(r, g, b))
		}
	}
	return m
}
