package detect

import "github.com/colorscreen/reconstruct/internal/param"

// Point is an integer pixel coordinate.
type Point struct{ X, Y int }

// Patch is a single 4-connected, single-color flood-filled region.
type Patch struct {
	Color                  param.ColorClass
	Pixels                 []Point
	MinX, MinY, MaxX, MaxY int
}

// Size returns the number of pixels in the patch.
func (p *Patch) Size() int { return len(p.Pixels) }

// Width/Height return the patch's bounding-box extent.
func (p *Patch) Width() int  { return p.MaxX - p.MinX + 1 }
func (p *Patch) Height() int { return p.MaxY - p.MinY + 1 }

// Centroid returns the mean position of the patch's pixels, offset by
// half a pixel so it lands at the pixel center (matching the rest of
// the pipeline's pixel-center convention).
func (p *Patch) Centroid() param.Point2D {
	var sx, sy float64
	for _, pt := range p.Pixels {
		sx += float64(pt.X)
		sy += float64(pt.Y)
	}
	n := float64(len(p.Pixels))
	return param.Point2D{X: sx/n + 0.5, Y: sy/n + 0.5}
}

var neighbors4 = [4]Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// FindPatch flood-fills the 4-connected patch of m's class at (x, y),
// stopping once maxSize pixels have been collected (spec §4.10 step 2's
// find_patch, capped at 200 pixels by the caller). Returns nil if (x, y)
// itself is unclassified.
func FindPatch(m *ClassMap, x, y, maxSize int) *Patch {
	c := m.At(x, y)
	if c == param.ColorUnknown {
		return nil
	}
	visited := make(map[Point]bool)
	start := Point{x, y}
	visited[start] = true
	queue := []Point{start}
	p := &Patch{Color: c, Pixels: []Point{start}, MinX: x, MaxX: x, MinY: y, MaxY: y}

	for len(queue) > 0 && len(p.Pixels) < maxSize {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range neighbors4 {
			np := Point{cur.X + d.X, cur.Y + d.Y}
			if visited[np] {
				continue
			}
			visited[np] = true
			if m.At(np.X, np.Y) != c {
				continue
			}
			p.Pixels = append(p.Pixels, np)
			if np.X < p.MinX {
				p.MinX = np.X
			}
			if np.X > p.MaxX {
				p.MaxX = np.X
			}
			if np.Y < p.MinY {
				p.MinY = np.Y
			}
			if np.Y > p.MaxY {
				p.MaxY = np.Y
			}
			if len(p.Pixels) >= maxSize {
				break
			}
			queue = append(queue, np)
		}
	}
	return p
}

// findNearestPatch searches outward in a square spiral of the given
// radius around (x0, y0) for the first pixel classified as want, and
// returns its flood-filled patch. Used both to locate the detector's
// very first seed patch and to re-acquire a patch after a predicted
// position misses by a few pixels.
func findNearestPatch(m *ClassMap, x0, y0 int, want param.ColorClass, radius, maxPatchSize int) *Patch {
	if m.At(x0, y0) == want {
		return FindPatch(m, x0, y0, maxPatchSize)
	}
	for r := 1; r <= radius; r++ {
		for dx := -r; dx <= r; dx++ {
			for _, dy := range [2]int{-r, r} {
				if m.At(x0+dx, y0+dy) == want {
					return FindPatch(m, x0+dx, y0+dy, maxPatchSize)
				}
			}
		}
		for dy := -r + 1; dy <= r-1; dy++ {
			for _, dx := range [2]int{-r, r} {
				if m.At(x0+dx, y0+dy) == want {
					return FindPatch(m, x0+dx, y0+dy, maxPatchSize)
				}
			}
		}
	}
	return nil
}
