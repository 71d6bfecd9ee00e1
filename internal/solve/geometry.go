package solve

import (
	"math"

	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/param"
)

// colorWeight returns the confidence weight a screen-geometry residual
// gets for a given classified patch color; unknown patches never end up
// as SolverPoints but are weighted defensively in case one slips through.
func colorWeight(c param.ColorClass) float64 {
	switch c {
	case param.ColorGreen:
		return 1.0 // green patches are smallest and most numerous: most reliable centroid
	case param.ColorRed, param.ColorBlue:
		return 0.8
	default:
		return 0.5
	}
}

// geometrySlot identifies which scalar fields of ScrToImgParameters a
// GeometryProblem's flat parameter vector drives; built from
// param.SolverParameters' Optimize* flags.
type geometrySlot struct {
	basis, center, perspective, lens bool
	numLens                          int
}

// GeometryProblem fits the non-mesh part of a ScrToImgParameters (basis,
// center, perspective, lens distortion) to a set of observed
// (image point, screen point, color class) control points, matching
// spec §4.9's "sums squared image-space errors of predicted patch
// positions vs. observed ones, weighted by color class". Residuals are
// (predicted-observed) for each axis, scaled by sqrt(colorWeight) so the
// sum of squares matches a weighted least squares fit.
type GeometryProblem struct {
	base    param.ScrToImgParameters
	corners [4]param.Point2D
	points  []param.SolverPoint
	slot    geometrySlot
	eps     float64
}

// NewGeometryProblem builds a GeometryProblem from a SolverParameters
// point set, a template ScrToImgParameters providing the values for any
// field not being optimized, and the image corners ScrToImg needs for
// its perspective/lens ranging.
func NewGeometryProblem(sp param.SolverParameters, base param.ScrToImgParameters, corners [4]param.Point2D, epsilon float64) *GeometryProblem {
	n := len(base.LensCoefficients)
	return &GeometryProblem{
		base:    base,
		corners: corners,
		points:  sp.Points,
		eps:     epsilon,
		slot: geometrySlot{
			basis:       sp.OptimizeBasis,
			center:      sp.OptimizeCenter,
			perspective: sp.OptimizePerspective,
			lens:        sp.OptimizeLens,
			numLens:     n,
		},
	}
}

func (g *GeometryProblem) NumValues() int {
	n := 0
	if g.slot.basis {
		n += 4
	}
	if g.slot.center {
		n += 2
	}
	if g.slot.perspective {
		n += 3
	}
	if g.slot.lens {
		n += g.slot.numLens
	}
	return n
}

// Start packs the template's current field values into the flat vector.
func (g *GeometryProblem) Start() []float64 {
	x := make([]float64, 0, g.NumValues())
	if g.slot.basis {
		x = append(x, g.base.C1.X, g.base.C1.Y, g.base.C2.X, g.base.C2.Y)
	}
	if g.slot.center {
		x = append(x, g.base.Center.X, g.base.Center.Y)
	}
	if g.slot.perspective {
		x = append(x, g.base.ProjectionDistance, g.base.TiltX, g.base.TiltY)
	}
	if g.slot.lens {
		x = append(x, g.base.LensCoefficients...)
	}
	return x
}

func (g *GeometryProblem) Epsilon() float64 { return g.eps }

// Constrain keeps the projection distance positive (a non-positive value
// makes the perspective transform singular) and otherwise leaves the
// vector untouched.
func (g *GeometryProblem) Constrain(x []float64) {
	if !g.slot.perspective {
		return
	}
	i := g.perspectiveOffset()
	if x[i] < 1 {
		x[i] = 1
	}
}

func (g *GeometryProblem) perspectiveOffset() int {
	i := 0
	if g.slot.basis {
		i += 4
	}
	if g.slot.center {
		i += 2
	}
	return i
}

// unpack builds a full ScrToImgParameters from the template overlaid
// with the flat vector's values.
func (g *GeometryProblem) unpack(x []float64) param.ScrToImgParameters {
	p := g.base
	i := 0
	if g.slot.basis {
		p.C1 = param.Point2D{X: x[i], Y: x[i+1]}
		p.C2 = param.Point2D{X: x[i+2], Y: x[i+3]}
		i += 4
	}
	if g.slot.center {
		p.Center = param.Point2D{X: x[i], Y: x[i+1]}
		i += 2
	}
	if g.slot.perspective {
		p.ProjectionDistance = x[i]
		p.TiltX = x[i+1]
		p.TiltY = x[i+2]
		i += 3
	}
	if g.slot.lens {
		coeffs := make([]float64, g.slot.numLens)
		copy(coeffs, x[i:i+g.slot.numLens])
		p.LensCoefficients = coeffs
	}
	return p
}

func (g *GeometryProblem) NumObservations() int { return len(g.points) * 2 }

// Residuals predicts each control point's image position from x and
// fills f with the (predicted-observed) axis errors, weighted by color
// class confidence.
func (g *GeometryProblem) Residuals(x []float64, f []float64) {
	p := g.unpack(x)
	s := geom.NewScrToImg(&p, g.corners)
	for i, pt := range g.points {
		w := math.Sqrt(colorWeight(pt.Color))
		predicted := s.ToImg(pt.Scr)
		f[2*i] = (predicted.X - pt.Img.X) * w
		f[2*i+1] = (predicted.Y - pt.Img.Y) * w
	}
}

// Result unpacks the solved flat vector back into a full
// ScrToImgParameters, assigning it a fresh cache id.
func (g *GeometryProblem) Result(x []float64) *param.ScrToImgParameters {
	p := g.unpack(x)
	p.ID = param.NextID()
	return &p
}
