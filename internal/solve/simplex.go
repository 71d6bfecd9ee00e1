package solve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// cancelled is panicked from inside the objective closure when the
// Canceller reports a cancellation request, and recovered in Simplex so
// the best point found so far can still be returned rather than an
// error with no usable result.
type cancelled struct{}

// Simplex minimizes a SimplexProblem with gonum's Nelder-Mead method,
// matching gsl_simplex's shape: copy the start point, seed a simplex of
// the problem's Scale, iterate up to 10000 steps, constrain every
// trial point, and report progress/cancellation through c (pass nil to
// run silently and uncancellably). Convergence is left to gonum's
// default Nelder-Mead test; p.Epsilon() is not consulted.
//
// It returns the best parameter vector found and its objective value.
// A cancelled run still returns the best point seen before cancellation,
// with a non-nil error wrapping the cancellation.
func Simplex(p SimplexProblem, c Canceller) (result []float64, minVal float64, err error) {
	c = canceller(c)
	n := p.NumValues()
	start := append([]float64(nil), p.Start()...)
	if len(start) != n {
		return nil, 0, fmt.Errorf("solve: simplex: Start() returned %d values, NumValues() wants %d", len(start), n)
	}

	c.SetTask("simplex", maxIterations)

	var bestX []float64
	bestF := math.Inf(1)

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(cancelled); !ok {
				panic(r)
			}
			result = bestX
			minVal = bestF
			err = fmt.Errorf("solve: simplex: cancelled")
		}
	}()

	scratch := make([]float64, n)
	objective := optimize.Problem{
		Func: func(x []float64) float64 {
			copy(scratch, x)
			p.Constrain(scratch)
			v := p.Objfunc(scratch)
			if v < bestF {
				bestF = v
				bestX = append([]float64(nil), scratch...)
			}
			c.IncProgress()
			if c.CancelRequested() {
				panic(cancelled{})
			}
			return v
		},
	}

	method := &optimize.NelderMead{SimplexSize: p.Scale()}
	settings := &optimize.Settings{MajorIterations: maxIterations}

	res, mErr := optimize.Minimize(objective, start, settings, method)
	if mErr != nil && bestX == nil {
		return nil, 0, fmt.Errorf("solve: simplex: %w", mErr)
	}
	if res != nil && res.F < bestF {
		bestF = res.F
		bestX = append([]float64(nil), res.X...)
	}

	final := append([]float64(nil), bestX...)
	p.Constrain(final)
	return final, bestF, nil
}
