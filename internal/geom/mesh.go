package geom

import (
	"math"

	"github.com/colorscreen/reconstruct/internal/param"
)

// Mesh is a dense grid of (image_x, image_y) control points indexed by
// integer screen coordinates within [xshift, xshift+w) x [yshift, yshift+h).
// Generated by the mesh solver (internal/solve) once a regular grid has
// been fit; owned by the mesh cache (internal/cache), referenced
// elsewhere only by id (see param.ScrToImgParameters.MeshID).
type Mesh struct {
	ID             uint64
	XShift, YShift int
	W, H           int
	// Points is row-major, H rows of W points each.
	Points []param.Point2D

	inv *meshInverse
}

// NewMesh allocates a mesh of the given grid shape; callers fill Points
// (row-major) before calling PrecomputeInverse.
func NewMesh(xshift, yshift, w, h int) *Mesh {
	return &Mesh{
		ID:     param.NextID(),
		XShift: xshift, YShift: yshift, W: w, H: h,
		Points: make([]param.Point2D, w*h),
	}
}

// CacheKey identifies this mesh for internal/cache's refcounted caches.
func (m *Mesh) CacheKey() uint64 { return m.ID }

func (m *Mesh) at(ix, iy int) param.Point2D {
	ix = clampInt(ix-m.XShift, 0, m.W-1)
	iy = clampInt(iy-m.YShift, 0, m.H-1)
	return m.Points[iy*m.W+ix]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Apply bilinearly interpolates the image-space position of a screen
// point. Screen coordinates outside the grid extrapolate from the
// nearest cell (the border cell's bilinear patch, extended linearly).
func (m *Mesh) Apply(scr param.Point2D) param.Point2D {
	sx := scr.X - float64(m.XShift)
	sy := scr.Y - float64(m.YShift)
	x0 := clampInt(int(math.Floor(sx)), 0, m.W-2)
	y0 := clampInt(int(math.Floor(sy)), 0, m.H-2)
	fx := sx - float64(x0)
	fy := sy - float64(y0)
	x0c := clampInt(x0, 0, m.W-1)
	y0c := clampInt(y0, 0, m.H-1)
	x1c := clampInt(x0+1, 0, m.W-1)
	y1c := clampInt(y0+1, 0, m.H-1)

	p00 := m.Points[y0c*m.W+x0c]
	p10 := m.Points[y0c*m.W+x1c]
	p01 := m.Points[y1c*m.W+x0c]
	p11 := m.Points[y1c*m.W+x1c]

	top := lerpPoint(p00, p10, fx)
	bot := lerpPoint(p01, p11, fx)
	return lerpPoint(top, bot, fy)
}

func lerpPoint(a, b param.Point2D, t float64) param.Point2D {
	return param.Point2D{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// jacobian estimates the local Jacobian of Apply at a screen point via
// central differences, used by Invert's Newton iteration.
func (m *Mesh) jacobian(scr param.Point2D) (dxdu, dxdv, dydu, dydv float64) {
	const h = 0.5
	px1 := m.Apply(param.Point2D{X: scr.X + h, Y: scr.Y})
	px0 := m.Apply(param.Point2D{X: scr.X - h, Y: scr.Y})
	py1 := m.Apply(param.Point2D{X: scr.X, Y: scr.Y + h})
	py0 := m.Apply(param.Point2D{X: scr.X, Y: scr.Y - h})
	dxdu = (px1.X - px0.X) / (2 * h)
	dydu = (px1.Y - px0.Y) / (2 * h)
	dxdv = (py1.X - py0.X) / (2 * h)
	dydv = (py1.Y - py0.Y) / (2 * h)
	return
}

// meshInverse is a coarse 2D search structure keyed on image bounding
// boxes, used to find a good Newton starting point for Invert.
type meshInverse struct {
	cellW, cellH float64
	minX, minY   float64
	cols, rows   int
	buckets      [][]int // bucket -> list of screen cell indices (row-major into m.Points)
}

// PrecomputeInverse builds the search structure backing Invert.
func (m *Mesh) PrecomputeInverse() {
	if len(m.Points) == 0 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range m.Points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	cols, rows := m.W, m.H
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	mi := &meshInverse{
		minX: minX, minY: minY,
		cellW: math.Max((maxX-minX)/float64(cols), 1e-9),
		cellH: math.Max((maxY-minY)/float64(rows), 1e-9),
		cols:  cols, rows: rows,
		buckets: make([][]int, cols*rows),
	}
	for iy := 0; iy < m.H; iy++ {
		for ix := 0; ix < m.W; ix++ {
			idx := iy*m.W + ix
			p := m.Points[idx]
			bx := clampInt(int((p.X-minX)/mi.cellW), 0, cols-1)
			by := clampInt(int((p.Y-minY)/mi.cellH), 0, rows-1)
			b := by*cols + bx
			mi.buckets[b] = append(mi.buckets[b], idx)
		}
	}
	m.inv = mi
}

// Invert returns the screen coordinate that Apply maps to img, using a
// fixed number of Newton steps seeded from the bucket search structure.
func (m *Mesh) Invert(img param.Point2D) param.Point2D {
	guess := m.seedGuess(img)
	const steps = 8
	for i := 0; i < steps; i++ {
		cur := m.Apply(guess)
		ex, ey := img.X-cur.X, img.Y-cur.Y
		if math.Abs(ex) < 1e-6 && math.Abs(ey) < 1e-6 {
			break
		}
		dxdu, dxdv, dydu, dydv := m.jacobian(guess)
		det := dxdu*dydv - dxdv*dydu
		if math.Abs(det) < 1e-12 {
			break
		}
		du := (ex*dydv - ey*dxdv) / det
		dv := (ey*dxdu - ex*dydu) / det
		guess.X += du
		guess.Y += dv
	}
	return guess
}

func (m *Mesh) seedGuess(img param.Point2D) param.Point2D {
	if m.inv == nil || len(m.inv.buckets) == 0 {
		return param.Point2D{X: float64(m.XShift + m.W/2), Y: float64(m.YShift + m.H/2)}
	}
	bx := clampInt(int((img.X-m.inv.minX)/m.inv.cellW), 0, m.inv.cols-1)
	by := clampInt(int((img.Y-m.inv.minY)/m.inv.cellH), 0, m.inv.rows-1)
	best := -1
	bestD := math.Inf(1)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cx, cy := bx+dx, by+dy
			if cx < 0 || cy < 0 || cx >= m.inv.cols || cy >= m.inv.rows {
				continue
			}
			for _, idx := range m.inv.buckets[cy*m.inv.cols+cx] {
				p := m.Points[idx]
				d := math.Hypot(p.X-img.X, p.Y-img.Y)
				if d < bestD {
					bestD = d
					best = idx
				}
			}
		}
	}
	if best < 0 {
		return param.Point2D{X: float64(m.XShift + m.W/2), Y: float64(m.YShift + m.H/2)}
	}
	iy := best / m.W
	ix := best % m.W
	return param.Point2D{X: float64(m.XShift + ix), Y: float64(m.YShift + iy)}
}
