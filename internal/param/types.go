// Package param defines the data model shared across the reconstruction
// pipeline: scan<->screen mapping parameters, solver inputs, detector
// thresholds, field-correction parameters and the sharpening variant tag.
// Nothing in this package does I/O; see ParFile for the .par text format
// and internal/field for the backlight/scanner-blur file formats.
package param

import "sync/atomic"

// ScreenType is the closed enum of supported historical mosaic screens.
type ScreenType int

const (
	Random ScreenType = iota
	Dufay
	Paget
	Finlay
	Thames
	DioptichromeB
	ImprovedDioptichromeB
	Omnicolore
	WarnerPowrie
	Joly
)

func (t ScreenType) String() string {
	switch t {
	case Random:
		return "random"
	case Dufay:
		return "dufay"
	case Paget:
		return "paget"
	case Finlay:
		return "finlay"
	case Thames:
		return "thames"
	case DioptichromeB:
		return "dioptichrome_b"
	case ImprovedDioptichromeB:
		return "improved_dioptichrome_b"
	case Omnicolore:
		return "omnicolore"
	case WarnerPowrie:
		return "warner_powrie"
	case Joly:
		return "joly"
	default:
		return "unknown"
	}
}

// IsStrip reports whether the screen is built from three parallel color
// strips (Joly/Warner-Powrie/Omnicolore/Dioptichrome family) rather than a
// rectangular or diagonal lattice.
func (t ScreenType) IsStrip() bool {
	switch t {
	case Joly, WarnerPowrie, Omnicolore, DioptichromeB, ImprovedDioptichromeB, Thames:
		return true
	default:
		return false
	}
}

// IsDiagonal reports whether the screen uses the 45-degree rotated
// diagonal lattice (Paget/Finlay family).
func (t ScreenType) IsDiagonal() bool {
	return t == Paget || t == Finlay
}

// ColorClass is a classified filter color, used both by the detector and
// by solver_parameters control points.
type ColorClass int

const (
	ColorRed ColorClass = iota
	ColorGreen
	ColorBlue
	ColorUnknown
)

// ScannerType affects how perspective tilt is interpreted relative to the
// scanner's line-sensor motion.
type ScannerType int

const (
	ScannerFixedLens ScannerType = iota
	ScannerLensMovesX
	ScannerLensMovesY
)

// idCounter is the monotone id dispenser shared by every cacheable
// parameter struct (mirrors the original's per-object "id" field used to
// short-circuit cache equality checks).
var idCounter atomic.Uint64

// NextID returns a fresh process-unique, monotonically increasing id.
func NextID() uint64 {
	return idCounter.Add(1)
}

// Point2D is a plain 2D point, used in both image and screen coordinate
// spaces; which space it lives in is determined by context.
type Point2D struct {
	X, Y float64
}

// Sub returns p - q.
func (p Point2D) Sub(q Point2D) Point2D { return Point2D{p.X - q.X, p.Y - q.Y} }

// Add returns p + q.
func (p Point2D) Add(q Point2D) Point2D { return Point2D{p.X + q.X, p.Y + q.Y} }

// Scale returns p scaled by s.
func (p Point2D) Scale(s float64) Point2D { return Point2D{p.X * s, p.Y * s} }

// RGB is a linear-light red/green/blue triple.
type RGB struct {
	R, G, B float64
}

// ScrToImgParameters is the "grid": the parametric scan<->screen map and
// its perspective/lens/mesh/final-space decorations (data model §3).
type ScrToImgParameters struct {
	ID uint64

	ScreenType ScreenType

	// C1, C2 are the two basis vectors in image coordinates.
	C1, C2 Point2D
	// Center is the image-space point that maps to screen (0,0).
	Center Point2D

	// Perspective.
	ProjectionDistance float64 // > 0
	TiltX, TiltY       float64 // radians
	Scanner            ScannerType

	// Lens distortion coefficients (2-4 polynomial coefficients, see geom.LensWarp).
	LensCoefficients []float64

	// MotorCorrection is an optional piecewise-linear correction of the
	// scan's fast axis, replacing per-row offsets from line scanners.
	// Control points only; internal/geom resamples this into the
	// branch-free step table used at render time.
	MotorCorrection *MotorCorrectionPoints

	// MeshID references a mesh owned by the mesh cache; zero means "no mesh".
	MeshID uint64
	HasMesh bool

	// Final-space shape.
	FinalRotation float64 // radians
	FinalAspect   float64
	FinalAngle    float64

	// Dufay-only strip widths, needed by PatchProportions and by screen
	// synthesis; ignored (zero value substituted by screen defaults) for
	// other screen types.
	RedStripWidth   float64
	GreenStripWidth float64
}

// MotorCorrectionPoints is the raw (x, y) control-point form of the
// motor-correction function, as loaded from a .par file; X is position
// along the scan's fast axis, Y is the offset to apply.
type MotorCorrectionPoints struct {
	X, Y []float64
}

// CacheKey identifies this parameter set for internal/cache's refcounted
// caches.
func (p *ScrToImgParameters) CacheKey() uint64 { return p.ID }

// Clone returns a deep copy with a fresh id.
func (p *ScrToImgParameters) Clone() *ScrToImgParameters {
	q := *p
	q.ID = NextID()
	q.LensCoefficients = append([]float64(nil), p.LensCoefficients...)
	if p.MotorCorrection != nil {
		mc := *p.MotorCorrection
		q.MotorCorrection = &mc
	}
	return &q
}

// SolverPoint is one (image point, screen coordinate, color class) tuple
// fed to the geometry solver.
type SolverPoint struct {
	Img   Point2D
	Scr   Point2D
	Color ColorClass
}

// SolverParameters controls which subsets of ScrToImgParameters the
// nonlinear solver (internal/solve) is allowed to adjust.
type SolverParameters struct {
	Points []SolverPoint

	OptimizeBasis       bool
	OptimizeCenter      bool
	OptimizePerspective bool
	OptimizeLens        bool
	OptimizeMesh        bool
}

// ScrDetectParameters controls the screen detector's color classification.
type ScrDetectParameters struct {
	// AdjustColorMatrix maps scan RGB to "adjusted" RGB used for
	// classification; row-major 3x3.
	AdjustColorMatrix [9]float64
	Gamma             [3]float64

	MinLuminosity   float64
	MinRatio        float64 // minimum patch color-purity ratio
	ContrastThresh  float64 // patch-contrast threshold
}

// DefaultScrDetectParameters returns the identity-adjustment defaults used
// when no calibration has been run yet.
func DefaultScrDetectParameters() ScrDetectParameters {
	return ScrDetectParameters{
		AdjustColorMatrix: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Gamma:             [3]float64{1, 1, 1},
		MinLuminosity:     0.05,
		MinRatio:          1.2,
		ContrastThresh:    0.15,
	}
}
