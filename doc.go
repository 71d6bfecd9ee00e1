// Package colorscreen reconstructs color images from scans of early
// additive color photography screen plates (Autochrome, Dufaycolor,
// Paget/Finlay, Thames, Joly, Warner-Powrie, Dioptichrome, Omnicolore):
// it locates the regular color-screen lattice in a raw scan, builds a
// synthesized model of the screen's mosaic, and renders a reconstructed
// image by combining the two through one of several interpolation
// strategies.
//
// A typical session loads a `.par` parameter file describing a
// previously-solved scan<->screen geometry (or runs screen detection to
// produce one), then renders tiles of the final image:
//
//	proj, err := colorscreen.Load(f)
//	rnd, err := proj.NewRenderer(scan, colorscreen.RendererOptions{}, render.DefaultParams(render.Realistic))
//	img, err := rnd.GetColorData(render.TileRequest{W: 512, H: 512, Step: 1}, nil)
//
// The heavy lifting lives in internal packages (geometry, screen
// synthesis, deconvolution, field corrections, the nonlinear solvers,
// caching, the render pipeline, and progress/cancellation); this
// package is the thin public composition of all of them, in the spirit
// of the teacher's own root-level webp.go.
package colorscreen
