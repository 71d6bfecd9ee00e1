package colorscreen

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/colorscreen/reconstruct/internal/config"
	"github.com/colorscreen/reconstruct/internal/detect"
	"github.com/colorscreen/reconstruct/internal/field"
	"github.com/colorscreen/reconstruct/internal/mtf"
	"github.com/colorscreen/reconstruct/internal/param"
	"github.com/colorscreen/reconstruct/internal/progress"
	"github.com/colorscreen/reconstruct/internal/render"
)

// NewCachesFromConfig builds a render.Caches bundle sized per a loaded
// process config (internal/config, spec §1's YAML ambient config
// surface) rather than internal/render's single-scan defaults — the
// hook a long-running service or a stitch project over many tiles uses
// to keep more renderers resident.
func NewCachesFromConfig(cfg config.Config) (*render.Caches, error) {
	c := cfg.Caches
	return render.NewCachesWithCapacity(c.ScrToImg, c.Mesh, c.MTF, c.Tile)
}

// Project is one loaded/solved scan: its `.par` geometry and solver
// points, any backlight/scanner-blur field corrections it carries, and
// the screen-detector parameters to classify pixels with. It is the
// façade's composition root over internal/param, internal/field,
// internal/detect and internal/render — a caller never needs to reach
// into internal/ directly for the common path.
type Project struct {
	Par          *param.ParFile
	DetectParams param.ScrDetectParameters

	BacklightGrid   *field.Grid
	ScannerBlurGrid *field.Grid

	logger *zap.Logger
}

// Option configures Load.
type Option func(*Project)

// WithLogger attaches a *zap.Logger for non-fatal warnings (parse
// oddities, cache pressure, solver non-convergence). Library code
// elsewhere in this module is nil-safe about an absent logger; Load
// defaults to zap.NewNop() when no WithLogger option is given, per the
// ambient stack's "no package-level mutable logger" rule.
func WithLogger(l *zap.Logger) Option {
	return func(p *Project) { p.logger = l }
}

// Load parses a `.par` file (spec §6) into a Project, decoding any
// embedded backlight/scanner-blur correction blocks via internal/field.
// internal/param deliberately keeps those blocks as raw text (it cannot
// import internal/field without an import cycle, since internal/field
// imports internal/param for ColorClass/Point2D); decoding them here,
// in the one package allowed to import both, is where that deferral is
// resolved.
func Load(r io.Reader, opts ...Option) (*Project, error) {
	pf, err := param.ParseFile(r)
	if err != nil {
		return nil, fmt.Errorf("colorscreen: loading project: %w", err)
	}
	proj := &Project{
		Par:          pf,
		DetectParams: param.DefaultScrDetectParameters(),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(proj)
	}

	if pf.BacklightText != "" {
		g, err := field.LoadBacklightText(strings.NewReader(pf.BacklightText))
		if err != nil {
			proj.logger.Warn("colorscreen: discarding unparsable backlight block", zap.Error(err))
		} else {
			proj.BacklightGrid = g
		}
	}
	if pf.ScannerBlurText != "" {
		g, err := field.LoadScannerBlurText(strings.NewReader(pf.ScannerBlurText))
		if err != nil {
			proj.logger.Warn("colorscreen: discarding unparsable scanner-blur block", zap.Error(err))
		} else {
			proj.ScannerBlurGrid = g
		}
	}
	return proj, nil
}

// Save serializes the project's `.par` geometry/solver points (and any
// backlight/scanner-blur text it still carries) back to w.
func (p *Project) Save(w io.Writer) error {
	if err := p.Par.WriteTo(w); err != nil {
		return fmt.Errorf("colorscreen: saving project: %w", err)
	}
	return nil
}

// HasGeometry reports whether the project has a scan<->screen map to
// render with, either loaded from a `.par` file or produced by Detect.
func (p *Project) HasGeometry() bool {
	return p.Par != nil && p.Par.ScrToImg != nil && p.Par.ScrToImg.ProjectionDistance != 0
}

// Detect runs the screen detector (C10, internal/detect) against a
// scan, using the project's screen type and detect parameters, and
// adopts the resulting geometry as the project's own on success so a
// subsequent NewRenderer/Save has something to work with.
func (p *Project) Detect(s detect.Sampler, cfg detect.Config, optimizeColors bool, prog *progress.Info) (*detect.Result, error) {
	st := param.Random
	if p.Par != nil && p.Par.ScrToImg != nil {
		st = p.Par.ScrToImg.ScreenType
	}
	res, err := detect.DetectRegularScreen(s, p.DetectParams, st, cfg, optimizeColors, prog)
	if err != nil {
		p.logger.Warn("colorscreen: screen detection failed", zap.Error(err))
		return nil, fmt.Errorf("colorscreen: detecting screen: %w", err)
	}
	if !res.Quality.Pass {
		p.logger.Warn("colorscreen: detected lattice failed quality gates",
			zap.Float64("screenPercentage", res.Quality.ScreenPercentage),
			zap.Int("largestUnanalyzedRun", res.Quality.LargestUnanalyzedRun))
		return res, ErrNoScreen
	}
	p.Par.ScrToImg = &res.Params
	return res, nil
}

// RendererOptions bundles the pieces NewRenderer needs beyond what a
// Project already carries: the resolved screen map from Detect (nil is
// fine — the renderer degrades the Interpolated-family types to
// Realistic without one), the shared cache bundle, and the scanner MTF
// to sharpen against when Params.Sharpen requests it.
type RendererOptions struct {
	ScreenMap  *detect.ScreenMap
	Caches     *render.Caches
	ScannerMTF *mtf.Params
}

// NewRenderer builds an internal/render.Renderer for this project's
// geometry against a given scan sampler, wiring in the project's
// backlight correction if one was loaded. Returns ErrNoGeometry if the
// project has no scan<->screen map yet (call Detect or Load a `.par`
// file that already has one).
func (p *Project) NewRenderer(s render.ScanSampler, opts RendererOptions, rparams render.Params) (*render.Renderer, error) {
	if !p.HasGeometry() {
		return nil, ErrNoGeometry
	}
	caches := opts.Caches
	if caches == nil {
		var err error
		caches, err = render.NewCaches()
		if err != nil {
			return nil, fmt.Errorf("colorscreen: building caches: %w", err)
		}
	}
	rnd := render.NewRenderer(s, p.Par.ScrToImg, p.DetectParams, nil, opts.ScreenMap, opts.ScannerMTF, caches, rparams)
	if p.BacklightGrid != nil {
		rnd.SetBacklight(field.NewBacklight(p.BacklightGrid, s.Width(), s.Height(), 0, false))
	}
	return rnd, nil
}
