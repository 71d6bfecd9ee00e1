package geom

import (
	"math"

	"github.com/colorscreen/reconstruct/internal/param"
)

// ScrToImg composes a change of basis about center, a perspective
// transform, the lens warp and optional motor correction, implementing
// the coordinate chain from data model §3:
//
//	screen --(basis)--> pre-image --(perspective)--> pre-lens
//	  --(lens)--> image --(motor)--> image'
//
// When a mesh is attached it replaces the whole chain: ToImg returns the
// mesh's image point for the screen point and ToScr inverts the mesh.
type ScrToImg struct {
	p *param.ScrToImgParameters

	// basis change: screen (u,v) -> pre-image point
	c1, c2, center param.Point2D

	lens  *LensWarp
	motor *Function1D // resampled from p.MotorCorrection, nil if absent
	mesh  *Mesh        // nil if p.HasMesh is false, set by caller via SetMesh

	// final-space 2x2 (rotation * aspect * angle), precomputed.
	finalM    [4]float64 // row-major 2x2
	finalMInv [4]float64
}

// NewScrToImg builds the composed map. corners should be the image's four
// corner points in scan space, used to size the lens-warp inverse table.
func NewScrToImg(p *param.ScrToImgParameters, corners [4]param.Point2D) *ScrToImg {
	s := &ScrToImg{
		p:      p,
		c1:     p.C1,
		c2:     p.C2,
		center: p.Center,
	}
	s.lens = PrecomputeLensWarp(p.Center, p.LensCoefficients, corners, true)
	if mc := p.MotorCorrection; mc != nil && len(mc.X) > 0 {
		lo, hi := mc.X[0], mc.X[len(mc.X)-1]
		s.motor = NewFunction1DFromControlPoints(mc.X, mc.Y, lo, hi, 2048)
	}
	s.precomputeFinal()
	return s
}

// SetMesh attaches a resolved mesh (looked up from the cache via
// p.MeshID); a nil mesh is equivalent to "no mesh".
func (s *ScrToImg) SetMesh(m *Mesh) { s.mesh = m }

func (s *ScrToImg) precomputeFinal() {
	rot := s.p.FinalRotation
	cr, sr := math.Cos(rot), math.Sin(rot)
	aspect := s.p.FinalAspect
	if aspect == 0 {
		aspect = 1
	}
	ang := s.p.FinalAngle
	ca, sa := math.Cos(ang), math.Sin(ang)
	// M = Rotation(rot) * Scale(1, aspect) * Rotation(angle)
	// Compose as 2x2 matrices, row-major [a b; c d].
	rotM := [4]float64{cr, -sr, sr, cr}
	scaleM := [4]float64{1, 0, 0, aspect}
	angM := [4]float64{ca, -sa, sa, ca}
	tmp := mul2x2(scaleM, angM)
	m := mul2x2(rotM, tmp)
	s.finalM = m
	s.finalMInv = invert2x2(m)
}

func mul2x2(a, b [4]float64) [4]float64 {
	return [4]float64{
		a[0]*b[0] + a[1]*b[2], a[0]*b[1] + a[1]*b[3],
		a[2]*b[0] + a[3]*b[2], a[2]*b[1] + a[3]*b[3],
	}
}

func invert2x2(m [4]float64) [4]float64 {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 {
		return [4]float64{1, 0, 0, 1}
	}
	inv := 1 / det
	return [4]float64{m[3] * inv, -m[1] * inv, -m[2] * inv, m[0] * inv}
}

func apply2x2(m [4]float64, p param.Point2D) param.Point2D {
	return param.Point2D{X: m[0]*p.X + m[1]*p.Y, Y: m[2]*p.X + m[3]*p.Y}
}

// ToImg maps a screen-space point to image (scan) coordinates.
func (s *ScrToImg) ToImg(scr param.Point2D) param.Point2D {
	// basis change: pre-image = center + u*c1 + v*c2
	preImage := param.Point2D{
		X: s.center.X + scr.X*s.c1.X + scr.Y*s.c2.X,
		Y: s.center.Y + scr.X*s.c1.Y + scr.Y*s.c2.Y,
	}
	preLens := s.applyPerspective(preImage, false)
	img := s.lens.CorrectedToScan(preLens)
	if s.motor != nil {
		img.X += s.motor.Apply(img.Y)
	}
	if s.mesh != nil {
		// When a mesh is present it is the authoritative screen-to-image
		// mapping: it replaces the affine/perspective/lens chain above
		// rather than refining it, so the computed img is discarded.
		return s.mesh.Apply(scr)
	}
	return img
}

// ToScr maps an image-space point back to screen coordinates (the
// approximate inverse of ToImg).
func (s *ScrToImg) ToScr(img param.Point2D) param.Point2D {
	if s.mesh != nil {
		return s.mesh.Invert(img)
	}
	p := img
	if s.motor != nil {
		p.X -= s.motor.Apply(p.Y)
	}
	preLens := s.lens.ScanToCorrected(p)
	preImage := s.applyPerspective(preLens, true)
	rel := preImage.Sub(s.center)
	// Solve rel = u*c1 + v*c2 for (u, v).
	det := s.c1.X*s.c2.Y - s.c1.Y*s.c2.X
	if det == 0 {
		return param.Point2D{}
	}
	u := (rel.X*s.c2.Y - rel.Y*s.c2.X) / det
	v := (s.c1.X*rel.Y - s.c1.Y*rel.X) / det
	return param.Point2D{X: u, Y: v}
}

// applyPerspective applies (or, if inverse, undoes) the perspective
// projection determined by (distance, tiltX, tiltY, scanner type). The
// scanner type selects which axis the lens is assumed to move along,
// which determines which tilt term actually affects the projection (a
// fixed lens uses both tilts; a lens that only moves in x sees only
// tiltY's foreshortening along x, and vice versa) -- mirroring the three
// scanner_type cases in the original's perspective model.
func (s *ScrToImg) applyPerspective(p param.Point2D, inverse bool) param.Point2D {
	d := s.p.ProjectionDistance
	if d <= 0 {
		return p
	}
	tx, ty := s.p.TiltX, s.p.TiltY
	switch s.p.Scanner {
	case param.ScannerLensMovesX:
		ty = 0
	case param.ScannerLensMovesY:
		tx = 0
	}
	if tx == 0 && ty == 0 {
		return p
	}
	if !inverse {
		// Foreshorten coordinates by the perspective factor at distance d.
		fx := d / (d - p.X*math.Tan(tx))
		fy := d / (d - p.Y*math.Tan(ty))
		return param.Point2D{X: p.X * fx, Y: p.Y * fy}
	}
	// Inverse: p = p0 * d/(d - p0*tan) => p0 = p*d/(d + p*tan)
	fx := d / (d + p.X*math.Tan(tx))
	fy := d / (d + p.Y*math.Tan(ty))
	return param.Point2D{X: p.X * fx, Y: p.Y * fy}
}

// FinalToScr maps a final-space point to screen space via the inverse of
// the final 2x2 (rotation/aspect/angle) transform.
func (s *ScrToImg) FinalToScr(final param.Point2D) param.Point2D {
	return apply2x2(s.finalMInv, final)
}

// ScrToFinal maps a screen-space point to final output space.
func (s *ScrToImg) ScrToFinal(scr param.Point2D) param.Point2D {
	return apply2x2(s.finalM, scr)
}

// GetRange returns the screen-space bounding rectangle (shiftX, shiftY,
// w, h) of an image of size imgW x imgH. With lens distortion or tilt
// this samples points along each image edge to approximate the extrema,
// matching the original's 16384-sample edge scan.
func (s *ScrToImg) GetRange(imgW, imgH int) (shiftX, shiftY, w, h float64) {
	const samples = 16384
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	consider := func(p param.Point2D) {
		scr := s.ToScr(p)
		minX, maxX = math.Min(minX, scr.X), math.Max(maxX, scr.X)
		minY, maxY = math.Min(minY, scr.Y), math.Max(maxY, scr.Y)
	}
	fw, fh := float64(imgW), float64(imgH)
	for i := 0; i < samples; i++ {
		t := fw * float64(i) / float64(samples-1)
		consider(param.Point2D{X: t, Y: 0})
		consider(param.Point2D{X: t, Y: fh})
	}
	for i := 0; i < samples; i++ {
		t := fh * float64(i) / float64(samples-1)
		consider(param.Point2D{X: 0, Y: t})
		consider(param.Point2D{X: fw, Y: t})
	}
	return minX, minY, maxX - minX, maxY - minY
}

// PixelSize returns the approximate screen units per image pixel at the
// image center, used to decide antialiasing strategy in the render
// pipeline (C12).
func (s *ScrToImg) PixelSize() float64 {
	c := s.p.Center
	a := s.ToScr(c)
	b := s.ToScr(param.Point2D{X: c.X + 1, Y: c.Y})
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// PatchProportions returns the fraction of the screen's period occupied
// by each filter color, per spec §4.3: for Dufay it derives from the
// red/green strip widths; for Paget/Finlay it is fixed at 1/4, 1/4, 1/2;
// every other screen type (Joly/Warner-Powrie/... included) gets 1/3
// each, whatever its strip widths.
func (s *ScrToImg) PatchProportions() param.RGB {
	switch {
	case s.p.ScreenType == param.Dufay:
		wr := s.p.RedStripWidth
		if wr == 0 {
			wr = 0.5
		}
		hg := s.p.GreenStripWidth
		if hg == 0 {
			hg = 0.5
		}
		return param.RGB{R: wr, G: (1 - wr) * hg, B: (1 - wr) * (1 - hg)}
	case s.p.ScreenType.IsDiagonal():
		return param.RGB{R: 0.25, G: 0.25, B: 0.5}
	default:
		return param.RGB{R: 1.0 / 3, G: 1.0 / 3, B: 1.0 / 3}
	}
}

// NormalizeDufayBasis re-orients (c1, c2) to the lattice-symmetric
// equivalent whose c1 is closest to horizontal, and derives the final
// rotation adjustment that keeps red strips horizontal in final space —
// the original's scr-to-img.C basis-orientation rule (see SPEC_FULL.md
// §4 "supplemented features"). Only meaningful for rectangular (Dufay)
// screens; diagonal and strip screens have their own symmetry classes
// and are left unchanged.
func NormalizeDufayBasis(c1, c2 param.Point2D) (param.Point2D, param.Point2D, float64) {
	// The rectangular lattice has 4 equivalent (c1,c2) choices related by
	// swapping axes and/or negating them; pick the one minimizing the
	// absolute angle of c1 from horizontal.
	candidates := [][2]param.Point2D{
		{c1, c2},
		{c2, param.Point2D{X: -c1.X, Y: -c1.Y}},
		{param.Point2D{X: -c1.X, Y: -c1.Y}, param.Point2D{X: -c2.X, Y: -c2.Y}},
		{param.Point2D{X: -c2.X, Y: -c2.Y}, c1},
	}
	bestI := 0
	bestAbs := math.Inf(1)
	for i, cand := range candidates {
		ang := math.Atan2(cand[0].Y, cand[0].X)
		if a := math.Abs(ang); a < bestAbs {
			bestAbs = a
			bestI = i
		}
	}
	chosen := candidates[bestI]
	rotationAdjustment := math.Atan2(chosen[0].Y, chosen[0].X)
	return chosen[0], chosen[1], rotationAdjustment
}
