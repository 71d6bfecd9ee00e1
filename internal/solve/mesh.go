package solve

import (
	"math"

	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/param"
)

// MeshProblem fits a geom.Mesh's control-point grid to observed
// (image point, screen point) pairs, adding a bending-energy term over
// the grid's discrete Laplacian to regularize underdetermined regions
// (spec §4.9: "the mesh solver adds a bending energy term over discrete
// Laplacians of the mesh grid"). The bending term is folded in as extra
// residuals scaled by sqrt(lambda), the standard way to turn Tikhonov
// regularization into a plain least-squares problem: minimizing
// sum(data residuals^2) + lambda*sum(laplacian^2) is exactly minimizing
// the sum of squares of the concatenated residual vector.
type MeshProblem struct {
	mesh   *geom.Mesh
	points []param.SolverPoint
	lambda float64
	eps    float64
}

// NewMeshProblem builds a MeshProblem over an already-allocated mesh
// (its Points give the initial guess); lambda trades data fit against
// smoothness.
func NewMeshProblem(mesh *geom.Mesh, points []param.SolverPoint, lambda, epsilon float64) *MeshProblem {
	return &MeshProblem{mesh: mesh, points: points, lambda: lambda, eps: epsilon}
}

func (m *MeshProblem) NumValues() int { return len(m.mesh.Points) * 2 }

func (m *MeshProblem) Start() []float64 {
	x := make([]float64, 0, m.NumValues())
	for _, p := range m.mesh.Points {
		x = append(x, p.X, p.Y)
	}
	return x
}

func (m *MeshProblem) Epsilon() float64     { return m.eps }
func (m *MeshProblem) Constrain([]float64) {} // mesh control points are unconstrained

// interior bending-energy residuals: one per non-border grid node, since
// the discrete Laplacian needs a full 4-neighborhood.
func (m *MeshProblem) numLaplacian() int {
	w, h := m.mesh.W, m.mesh.H
	if w < 3 || h < 3 {
		return 0
	}
	return (w - 2) * (h - 2)
}

func (m *MeshProblem) NumObservations() int {
	return len(m.points)*2 + m.numLaplacian()*2
}

func (m *MeshProblem) unpack(x []float64) *geom.Mesh {
	w, h := m.mesh.W, m.mesh.H
	pts := make([]param.Point2D, w*h)
	for i := range pts {
		pts[i] = param.Point2D{X: x[2*i], Y: x[2*i+1]}
	}
	mesh := &geom.Mesh{
		ID:     m.mesh.ID,
		XShift: m.mesh.XShift,
		YShift: m.mesh.YShift,
		W:      w,
		H:      h,
		Points: pts,
	}
	return mesh
}

// Residuals fills f with, in order: the data-fit axis errors at every
// observed control point, then sqrt(lambda) times each interior node's
// discrete-Laplacian bending energy (x and y components separately).
func (m *MeshProblem) Residuals(x []float64, f []float64) {
	mesh := m.unpack(x)
	i := 0
	for _, pt := range m.points {
		predicted := mesh.Apply(pt.Scr)
		f[i] = predicted.X - pt.Img.X
		f[i+1] = predicted.Y - pt.Img.Y
		i += 2
	}

	w, h := mesh.W, mesh.H
	weight := sqrtLambda(m.lambda)
	for iy := 1; iy < h-1; iy++ {
		for ix := 1; ix < w-1; ix++ {
			c := mesh.Points[iy*w+ix]
			up := mesh.Points[(iy-1)*w+ix]
			down := mesh.Points[(iy+1)*w+ix]
			left := mesh.Points[iy*w+ix-1]
			right := mesh.Points[iy*w+ix+1]
			lapX := up.X + down.X + left.X + right.X - 4*c.X
			lapY := up.Y + down.Y + left.Y + right.Y - 4*c.Y
			f[i] = lapX * weight
			f[i+1] = lapY * weight
			i += 2
		}
	}
}

func sqrtLambda(lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}
	return math.Sqrt(lambda)
}

// Result unpacks the solved flat vector into a fresh Mesh with its own
// cache id.
func (m *MeshProblem) Result(x []float64) *geom.Mesh {
	mesh := m.unpack(x)
	mesh.ID = param.NextID()
	return mesh
}
