package detect

import (
	"github.com/colorscreen/reconstruct/internal/param"
	"github.com/colorscreen/reconstruct/internal/solve"
)

// colorSearchProblem is the C9-driven line search spec §4.10's "color
// hint" paragraph describes: optimize_screen_colors adjusts
// scr_detect.adjust_color_matrix and gamma to maximize the yield of
// well-classified pixels over a sampled window, without touching the
// min_luminosity/min_ratio thresholds themselves.
type colorSearchProblem struct {
	sampler Sampler
	points  []Point
	base    param.ScrDetectParameters
	eps     float64
}

// newColorSearchProblem builds the C9 problem optimize_screen_colors
// solves.
func newColorSearchProblem(s Sampler, points []Point, base param.ScrDetectParameters, epsilon float64) *colorSearchProblem {
	return &colorSearchProblem{sampler: s, points: points, base: base, eps: epsilon}
}

func (p *colorSearchProblem) NumValues() int { return 12 }

func (p *colorSearchProblem) Start() []float64 {
	x := make([]float64, 12)
	copy(x[:9], p.base.AdjustColorMatrix[:])
	x[9], x[10], x[11] = p.base.Gamma[0], p.base.Gamma[1], p.base.Gamma[2]
	return x
}

func (p *colorSearchProblem) Epsilon() float64 { return p.eps }

// Constrain keeps the gamma terms positive; a non-positive gamma makes
// applyGamma's power-law undefined.
func (p *colorSearchProblem) Constrain(x []float64) {
	for i := 9; i < 12; i++ {
		if x[i] < 0.1 {
			x[i] = 0.1
		}
	}
}

func (p *colorSearchProblem) Scale() float64 { return 0.05 }

func (p *colorSearchProblem) unpack(x []float64) param.ScrDetectParameters {
	out := p.base
	copy(out.AdjustColorMatrix[:], x[:9])
	out.Gamma = [3]float64{x[9], x[10], x[11]}
	return out
}

// Objfunc returns the fraction of sampled points that fail to classify,
// so minimizing it maximizes classification yield.
func (p *colorSearchProblem) Objfunc(x []float64) float64 {
	params := p.unpack(x)
	cl := NewClassifier(params)
	if len(p.points) == 0 {
		return 0
	}
	unknown := 0
	for _, pt := range p.points {
		r, g, b := p.sampler.Linear(pt.X, pt.Y)
		if cl.Classify(r, g, b) == param.ColorUnknown {
			unknown++
		}
	}
	return float64(unknown) / float64(len(p.points))
}

// OptimizeScreenColors runs the color-threshold line search and returns
// the adjusted parameters; it never modifies min_luminosity/min_ratio.
func OptimizeScreenColors(s Sampler, points []Point, base param.ScrDetectParameters, c solve.Canceller) (param.ScrDetectParameters, error) {
	prob := newColorSearchProblem(s, points, base, 1e-4)
	x, _, err := solve.Simplex(prob, c)
	if err != nil {
		return base, err
	}
	return prob.unpack(x), nil
}

// samplingWindow returns an evenly spaced grid of sample points covering
// the scan, used both by OptimizeScreenColors and by the detector's own
// pre-classification color pass.
func samplingWindow(imgW, imgH, stepsPerAxis int) []Point {
	if stepsPerAxis < 1 {
		stepsPerAxis = 1
	}
	pts := make([]Point, 0, stepsPerAxis*stepsPerAxis)
	for iy := 0; iy < stepsPerAxis; iy++ {
		y := (iy*2 + 1) * imgH / (2 * stepsPerAxis)
		for ix := 0; ix < stepsPerAxis; ix++ {
			x := (ix*2 + 1) * imgW / (2 * stepsPerAxis)
			pts = append(pts, Point{x, y})
		}
	}
	return pts
}
