package colorscreen

import "errors"

// Sentinel errors a caller can branch on, matching the ambient-stack
// convention of exported (T, error) APIs wrapping internal failures
// with fmt.Errorf("...: %w", err) and reserving errors.New for
// conditions callers need to test with errors.Is.
var (
	// ErrNoScreen is returned by Detect when no lattice met the quality
	// gates (spec §4.10's quality_report all-false outcome).
	ErrNoScreen = errors.New("colorscreen: no screen lattice detected")

	// ErrNoGeometry is returned by operations that need a resolved
	// scan<->screen map (NewRenderer, Render) when a Project has none,
	// e.g. a .par file with no coordinate1/coordinate2/center and no
	// prior Detect call.
	ErrNoGeometry = errors.New("colorscreen: project has no scan<->screen geometry")
)
