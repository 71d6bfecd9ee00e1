package detect

import (
	"container/heap"

	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/param"
)

// LatticePoint is an integer (x, y) screen-lattice coordinate; for Dufay
// x advances by one cell per color alternation (so a full period of the
// horizontal basis is 2 lattice steps) and y by one cell per row, the
// same convention scr-detect-geometry.C uses for its queue_entry.
type LatticePoint struct{ X, Y int }

// ScreenMap records every confirmed (lattice point, image point, color)
// triple the flood fill discovers.
type ScreenMap struct {
	Points map[LatticePoint]param.Point2D
	Colors map[LatticePoint]param.ColorClass
}

func newScreenMap() *ScreenMap {
	return &ScreenMap{Points: make(map[LatticePoint]param.Point2D), Colors: make(map[LatticePoint]param.ColorClass)}
}

func (s *ScreenMap) known(p LatticePoint) bool { _, ok := s.Points[p]; return ok }

func (s *ScreenMap) set(p LatticePoint, img param.Point2D, c param.ColorClass) {
	s.Points[p] = img
	s.Colors[p] = c
}

// Len returns the number of confirmed lattice points.
func (s *ScreenMap) Len() int { return len(s.Points) }

// SolverPoints converts every confirmed correspondence into the flat
// point list C9's GeometryProblem consumes.
func (s *ScreenMap) SolverPoints() []param.SolverPoint {
	pts := make([]param.SolverPoint, 0, len(s.Points))
	for lp, img := range s.Points {
		pts = append(pts, param.SolverPoint{
			Img:   img,
			Scr:   param.Point2D{X: float64(lp.X), Y: float64(lp.Y)},
			Color: s.Colors[lp],
		})
	}
	return pts
}

type queueEntry struct {
	lattice  LatticePoint
	priority float64
}

// patchQueue is a max-heap on priority (confirm_patch's score), so the
// highest-confidence frontier cell expands first — the Go idiom for
// scr-detect-geometry.C's bucketed priority_queue.
type patchQueue []queueEntry

func (q patchQueue) Len() int           { return len(q) }
func (q patchQueue) Less(i, j int) bool { return q[i].priority > q[j].priority }
func (q patchQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *patchQueue) Push(x any)        { *q = append(*q, x.(queueEntry)) }
func (q *patchQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

func latticeColorDufay(base param.ColorClass, ix int) param.ColorClass {
	if ix%2 == 0 {
		return base
	}
	return oppositeDufay(base)
}

// floodFillDufay implements spec §4.10 step 4's priority-queue flood
// fill over a rectangular Dufay/Thames-style lattice: from each
// confirmed cell it tries the two horizontal neighbors directly, and
// the two vertical neighbors only after confirm_strip validates the red
// divider between rows.
func floodFillDufay(m *ClassMap, s *geom.ScrToImg, seedColor param.ColorClass, base LatticePoint, cfg Config) *ScreenMap {
	out := newScreenMap()
	q := &patchQueue{}
	heap.Init(q)
	seedImg := s.ToImg(param.Point2D{X: float64(base.X), Y: float64(base.Y)})
	out.set(base, seedImg, latticeColorDufay(seedColor, base.X))
	heap.Push(q, queueEntry{base, 1})

	for q.Len() > 0 {
		e := heap.Pop(q).(queueEntry)

		for _, d := range [2]int{-1, 1} {
			np := LatticePoint{e.lattice.X + d, e.lattice.Y}
			if out.known(np) {
				continue
			}
			want := latticeColorDufay(seedColor, np.X)
			predicted := s.ToImg(param.Point2D{X: float64(np.X), Y: float64(np.Y)})
			if img, score, ok := confirmPatch(m, predicted, want, cfg); ok {
				out.set(np, img, want)
				heap.Push(q, queueEntry{np, score})
			}
		}
		for _, d := range [2]int{-1, 1} {
			np := LatticePoint{e.lattice.X, e.lattice.Y + d}
			if out.known(np) {
				continue
			}
			stripPredicted := s.ToImg(param.Point2D{X: float64(e.lattice.X), Y: float64(e.lattice.Y) + float64(d)/2})
			if _, ok := confirmStrip(m, stripPredicted, param.ColorRed, cfg); !ok {
				continue
			}
			want := latticeColorDufay(seedColor, np.X)
			predicted := s.ToImg(param.Point2D{X: float64(np.X), Y: float64(np.Y)})
			if img, score, ok := confirmPatch(m, predicted, want, cfg); ok {
				out.set(np, img, want)
				heap.Push(q, queueEntry{np, score})
			}
		}
	}
	return out
}

// floodFillPaget implements the Paget/Finlay diagonal-lattice flood
// fill: each confirmed cell has eight diagonal-basis neighbors (spec
// §4.10 step 4's "eight neighbors" case), and since the diagonal
// lattice has no separating strip to validate, every neighbor color
// (red, green or blue) is tried directly rather than predicted from a
// fixed parity rule, a deliberate simplification over the original's
// explicit per-direction color table (recorded in DESIGN.md).
func floodFillPaget(m *ClassMap, s *geom.ScrToImg, base LatticePoint, baseColor param.ColorClass, cfg Config) *ScreenMap {
	out := newScreenMap()
	q := &patchQueue{}
	heap.Init(q)
	seedImg := s.ToImg(param.Point2D{X: float64(base.X), Y: float64(base.Y)})
	out.set(base, seedImg, baseColor)
	heap.Push(q, queueEntry{base, 1})

	dirs := [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	candidates := [3]param.ColorClass{param.ColorRed, param.ColorGreen, param.ColorBlue}

	for q.Len() > 0 {
		e := heap.Pop(q).(queueEntry)
		for _, d := range dirs {
			np := LatticePoint{e.lattice.X + d[0], e.lattice.Y + d[1]}
			if out.known(np) {
				continue
			}
			predicted := s.ToImg(param.Point2D{X: float64(np.X), Y: float64(np.Y)})
			bestScore := -1.0
			var bestImg param.Point2D
			var bestColor param.ColorClass
			found := false
			for _, want := range candidates {
				if img, score, ok := confirmPatch(m, predicted, want, cfg); ok && score > bestScore {
					bestScore, bestImg, bestColor, found = score, img, want, true
				}
			}
			if found {
				out.set(np, bestImg, bestColor)
				heap.Push(q, queueEntry{np, bestScore})
			}
		}
	}
	return out
}
