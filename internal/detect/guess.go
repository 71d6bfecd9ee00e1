package detect

import (
	"math"

	"github.com/colorscreen/reconstruct/internal/param"
)

// Config bundles the numeric knobs the detector's search/confirm/quality
// stages use; these are the "configurable" thresholds spec §4.10
// mentions without pinning exact defaults, so DefaultConfig's values are
// this implementation's Open Question resolution.
type Config struct {
	MaxPatchSize         int     // find_patch cap
	SeedSearchRadius     int     // radius findNearestPatch searches for a seed
	MinPatchSize         int     // confirm_patch fast-path lower size bound
	MaxPatchSizeConfirm  int     // confirm_patch fast-path upper size bound
	MaxDistance          float64 // confirm_patch fast-path centroid tolerance, pixels
	ContrastThreshold    float64 // confirm_patch slow-path gate on inner minus outer match fraction
	SlowPathWindowRadius int     // confirm_patch slow-path sampling half-width S
	MinConfirmedPatches  int     // re-solve threshold
	MaxUnanalyzedRun     int     // quality gate: largest allowed enclosed unanalyzed run, lattice cells
	MinScreenPercentage  float64 // quality gate
	BorderMargin         float64 // quality gate, screen-lattice units
	DufayRowLength       int     // control points per row in the seeded guess
	DufayRows            int
	PagetGridSize        int
}

// DefaultConfig returns the thresholds used when a caller has none of
// its own; these scale with a typical few-thousand-pixel scan cell size.
func DefaultConfig() Config {
	return Config{
		MaxPatchSize:         200,
		SeedSearchRadius:      64,
		MinPatchSize:         4,
		MaxPatchSizeConfirm:  400,
		MaxDistance:          3,
		ContrastThreshold:    0.15,
		SlowPathWindowRadius: 3,
		MinConfirmedPatches:  1000,
		MaxUnanalyzedRun:     3,
		MinScreenPercentage:  0.6,
		BorderMargin:         1.5,
		DufayRowLength:       10,
		DufayRows:            5,
		PagetGridSize:        5,
	}
}

// seedWindows partitions an imgW x imgH scan into a 6x6 grid of
// candidate start points and orders them from center outward (spec
// §4.10 step 2), matching scr-detect-geometry.C's check_points.
func seedWindows(imgW, imgH int) []Point {
	const n = 6
	type scored struct {
		p     Point
		dist2 int
	}
	cx, cy := n/2, n/2
	var all []scored
	for gy := 0; gy < n; gy++ {
		for gx := 0; gx < n; gx++ {
			x := (gx*2 + 1) * imgW / (2 * n)
			y := (gy*2 + 1) * imgH / (2 * n)
			dx, dy := gx-cx, gy-cy
			all = append(all, scored{Point{x, y}, dx*dx + dy*dy})
		}
	}
	// selection sort by distance to keep center-outward order
	// deterministic without pulling in sort for 36 elements.
	for i := 0; i < len(all); i++ {
		best := i
		for j := i + 1; j < len(all); j++ {
			if all[j].dist2 < all[best].dist2 {
				best = j
			}
		}
		all[i], all[best] = all[best], all[i]
	}
	out := make([]Point, len(all))
	for i, s := range all {
		out[i] = s.p
	}
	return out
}

// oppositeDufay returns the other of green/blue.
func oppositeDufay(c param.ColorClass) param.ColorClass {
	if c == param.ColorGreen {
		return param.ColorBlue
	}
	return param.ColorGreen
}

// tryGuessDufayScreen implements spec §4.10 step 2's Dufay branch: find
// a green-or-blue seed patch, step along the row alternating colors to
// find the horizontal basis, take the vertical basis as its 90-degree
// rotation, and walk up to DufayRows rows of DufayRowLength columns,
// requiring a red pixel half a vertical step below each row before
// moving on, to build the seeded control-point set.
//
// Screen coordinates follow the original's convention (scr-detect-geometry.C):
// the lattice x index advances by 1 per green/blue cell (so a full period
// of the horizontal basis is 2 lattice steps), the y index by 1 per row.
func tryGuessDufayScreen(m *ClassMap, seed Point, cfg Config) ([]param.SolverPoint, bool) {
	p0 := findNearestPatch(m, seed.X, seed.Y, param.ColorGreen, cfg.SeedSearchRadius, cfg.MaxPatchSize)
	if p0 == nil {
		p0 = findNearestPatch(m, seed.X, seed.Y, param.ColorBlue, cfg.SeedSearchRadius, cfg.MaxPatchSize)
	}
	if p0 == nil || p0.Size() < cfg.MinPatchSize {
		return nil, false
	}
	c0 := p0.Centroid()
	want := oppositeDufay(p0.Color)

	// Search to the right for the adjacent opposite-colored cell to
	// derive the horizontal half-period step.
	searchRadius := p0.Width()*6 + 8
	p1 := findNearestPatch(m, int(c0.X)+p0.Width()+1, int(c0.Y), want, searchRadius, cfg.MaxPatchSize)
	if p1 == nil || p1.Size() < cfg.MinPatchSize {
		return nil, false
	}
	c1 := p1.Centroid()
	stepU := param.Point2D{X: c1.X - c0.X, Y: c1.Y - c0.Y}
	if math.Hypot(stepU.X, stepU.Y) < 1 {
		return nil, false
	}

	// Derive the vertical step from a 90-degree rotation of stepU; the
	// red-strip check below only validates it and does not adjust it.
	stepV := param.Point2D{X: -stepU.Y, Y: stepU.X}

	var points []param.SolverPoint
	rowOrigin := c0
	for row := 0; row < cfg.DufayRows; row++ {
		rowPoints, rowColor0, ok := scanDufayRow(m, rowOrigin, stepU, p0.Color, cfg)
		if !ok {
			if row == 0 {
				return nil, false
			}
			break
		}
		for i, pt := range rowPoints {
			points = append(points, param.SolverPoint{
				Img:   pt,
				Scr:   param.Point2D{X: float64(i), Y: float64(row)},
				Color: rowColorAt(rowColor0, i),
			})
		}
		// confirm a red strip half a vertical step below this row, then
		// advance to the next row's origin.
		mid := param.Point2D{X: rowOrigin.X + stepV.X/2, Y: rowOrigin.Y + stepV.Y/2}
		if !confirmRedNear(m, mid, cfg) {
			if row == 0 {
				return nil, false
			}
			break
		}
		rowOrigin = param.Point2D{X: rowOrigin.X + stepV.X, Y: rowOrigin.Y + stepV.Y}
	}
	if len(points) < cfg.DufayRowLength*2 {
		return nil, false
	}
	return points, true
}

func rowColorAt(first param.ColorClass, i int) param.ColorClass {
	if i%2 == 0 {
		return first
	}
	return oppositeDufay(first)
}

// scanDufayRow walks cfg.DufayRowLength alternating-color cells starting
// at origin along stepU, re-acquiring each cell's patch by searching
// near the predicted position (the step is re-estimated from the last
// two confirmed centroids so small scale errors don't accumulate).
func scanDufayRow(m *ClassMap, origin, stepU param.Point2D, firstColor param.ColorClass, cfg Config) ([]param.Point2D, param.ColorClass, bool) {
	pts := make([]param.Point2D, 0, cfg.DufayRowLength)
	cur := origin
	step := stepU
	for i := 0; i < cfg.DufayRowLength; i++ {
		want := rowColorAt(firstColor, i)
		r := cfg.SeedSearchRadius / 4
		if r < 4 {
			r = 4
		}
		p := findNearestPatch(m, int(cur.X), int(cur.Y), want, r, cfg.MaxPatchSize)
		if p == nil || p.Size() < cfg.MinPatchSize {
			return nil, firstColor, false
		}
		c := p.Centroid()
		if i > 0 {
			step = param.Point2D{X: c.X - pts[i-1].X, Y: c.Y - pts[i-1].Y}
		}
		pts = append(pts, c)
		cur = param.Point2D{X: c.X + step.X, Y: c.Y + step.Y}
	}
	return pts, firstColor, true
}

// confirmRedNear reports whether a red-classified pixel exists within a
// small window of p, the orthogonal-strip validation spec §4.10 step 2
// calls for between Dufay rows.
func confirmRedNear(m *ClassMap, p param.Point2D, cfg Config) bool {
	r := cfg.SlowPathWindowRadius * 2
	x0, y0 := int(p.X), int(p.Y)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if m.At(x0+dx, y0+dy) == param.ColorRed {
				return true
			}
		}
	}
	return false
}

// tryGuessPagetScreen implements spec §4.10 step 2's Paget/Finlay
// branch: a green seed, two diagonal blue patches giving a rotated
// basis, then a PagetGridSize x PagetGridSize grid grown along that
// diagonal basis.
func tryGuessPagetScreen(m *ClassMap, seed Point, cfg Config) ([]param.SolverPoint, bool) {
	g0 := findNearestPatch(m, seed.X, seed.Y, param.ColorGreen, cfg.SeedSearchRadius, cfg.MaxPatchSize)
	if g0 == nil || g0.Size() < cfg.MinPatchSize {
		return nil, false
	}
	gc := g0.Centroid()
	searchR := g0.Width()*8 + 8

	b1 := findNearestPatch(m, int(gc.X)+g0.Width()+1, int(gc.Y)+g0.Height()+1, param.ColorBlue, searchR, cfg.MaxPatchSize)
	b2 := findNearestPatch(m, int(gc.X)+g0.Width()+1, int(gc.Y)-g0.Height()-1, param.ColorBlue, searchR, cfg.MaxPatchSize)
	if b1 == nil || b2 == nil {
		return nil, false
	}
	b1c, b2c := b1.Centroid(), b2.Centroid()
	diag1 := param.Point2D{X: b1c.X - gc.X, Y: b1c.Y - gc.Y}
	diag2 := param.Point2D{X: b2c.X - gc.X, Y: b2c.Y - gc.Y}
	if math.Hypot(diag1.X, diag1.Y) < 1 || math.Hypot(diag2.X, diag2.Y) < 1 {
		return nil, false
	}

	var points []param.SolverPoint
	n := cfg.PagetGridSize
	for v := 0; v < n; v++ {
		for u := 0; u < n; u++ {
			predicted := param.Point2D{
				X: gc.X + float64(u)*diag1.X + float64(v)*diag2.X,
				Y: gc.Y + float64(u)*diag1.Y + float64(v)*diag2.Y,
			}
			r := cfg.SeedSearchRadius / 4
			if r < 4 {
				r = 4
			}
			x0, y0 := int(predicted.X), int(predicted.Y)
			c := m.At(x0, y0)
			if c == param.ColorUnknown {
				found := false
				for _, want := range [3]param.ColorClass{param.ColorRed, param.ColorGreen, param.ColorBlue} {
					if p := findNearestPatch(m, x0, y0, want, r, cfg.MaxPatchSize); p != nil && p.Size() >= cfg.MinPatchSize {
						predicted = p.Centroid()
						c = want
						found = true
						break
					}
				}
				if !found {
					continue
				}
			}
			points = append(points, param.SolverPoint{Img: predicted, Scr: param.Point2D{X: float64(u), Y: float64(v)}, Color: c})
		}
	}
	if len(points) < n*n/2 {
		return nil, false
	}
	return points, true
}
