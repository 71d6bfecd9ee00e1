package solve

import (
	"math"
	"testing"
)

// quadraticProblem minimizes (x-target[0])^2 + (y-target[1])^2.
type quadraticProblem struct {
	start  []float64
	target []float64
}

func (q *quadraticProblem) NumValues() int    { return 2 }
func (q *quadraticProblem) Start() []float64  { return q.start }
func (q *quadraticProblem) Epsilon() float64  { return 1e-8 }
func (q *quadraticProblem) Constrain([]float64) {}
func (q *quadraticProblem) Scale() float64    { return 1 }
func (q *quadraticProblem) Objfunc(p []float64) float64 {
	dx := p[0] - q.target[0]
	dy := p[1] - q.target[1]
	return dx*dx + dy*dy
}

func TestSimplexFindsMinimum(t *testing.T) {
	p := &quadraticProblem{start: []float64{0, 0}, target: []float64{3, -2}}
	x, f, err := Simplex(p, nil)
	if err != nil {
		t.Fatalf("Simplex: %v", err)
	}
	if math.Abs(x[0]-3) > 1e-2 || math.Abs(x[1]+2) > 1e-2 {
		t.Errorf("x = %v, want near [3, -2]", x)
	}
	if f > 1e-2 {
		t.Errorf("f = %v, want near 0", f)
	}
}

// linearFitProblem fits y = a*t + b to noiseless synthetic data, so the
// least-squares minimum is exact.
type linearFitProblem struct {
	t, y  []float64
	start []float64
}

func (l *linearFitProblem) NumValues() int          { return 2 }
func (l *linearFitProblem) Start() []float64        { return l.start }
func (l *linearFitProblem) Epsilon() float64        { return 1e-10 }
func (l *linearFitProblem) Constrain([]float64)     {}
func (l *linearFitProblem) NumObservations() int    { return len(l.t) }
func (l *linearFitProblem) Residuals(p []float64, f []float64) {
	a, b := p[0], p[1]
	for i := range l.t {
		f[i] = (a*l.t[i] + b) - l.y[i]
	}
}

func TestLevenbergMarquardtFitsLine(t *testing.T) {
	const a, b = 2.5, -1.0
	tv := []float64{0, 1, 2, 3, 4, 5}
	yv := make([]float64, len(tv))
	for i, t := range tv {
		yv[i] = a*t + b
	}
	p := &linearFitProblem{t: tv, y: yv, start: []float64{0, 0}}
	x, chisq, err := LevenbergMarquardt(p, nil)
	if err != nil {
		t.Fatalf("LevenbergMarquardt: %v", err)
	}
	if math.Abs(x[0]-a) > 1e-4 || math.Abs(x[1]-b) > 1e-4 {
		t.Errorf("fit = %v, want near [%v %v]", x, a, b)
	}
	if chisq > 1e-6 {
		t.Errorf("chisq = %v, want near 0 for noiseless data", chisq)
	}
}

func TestLevenbergMarquardtRejectsUnderdetermined(t *testing.T) {
	p := &linearFitProblem{t: []float64{0}, y: []float64{0}, start: []float64{0, 0}}
	if _, _, err := LevenbergMarquardt(p, nil); err == nil {
		t.Fatal("expected error when observations < parameters")
	}
}

type cancellingCanceller struct{ n, after int }

func (c *cancellingCanceller) SetTask(string, uint64) {}
func (c *cancellingCanceller) IncProgress()            { c.n++ }
func (c *cancellingCanceller) CancelRequested() bool   { return c.n >= c.after }

func TestSimplexReturnsBestPointOnCancel(t *testing.T) {
	p := &quadraticProblem{start: []float64{0, 0}, target: []float64{3, -2}}
	c := &cancellingCanceller{after: 3}
	x, _, err := Simplex(p, c)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if len(x) != 2 {
		t.Fatalf("expected a partial result of length 2, got %v", x)
	}
}
