package render

import (
	"testing"

	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/param"
	"github.com/colorscreen/reconstruct/internal/progress"
)

// flatSampler is a constant-color synthetic scan, enough to exercise
// the renderer's geometry and tile-synthesis plumbing without needing
// a realistic scan image.
type flatSampler struct {
	w, h    int
	r, g, b float64
}

func (f *flatSampler) Width() int  { return f.w }
func (f *flatSampler) Height() int { return f.h }
func (f *flatSampler) Linear(x, y int) (float64, float64, float64) {
	return f.r, f.g, f.b
}

func imageCorners(w, h int) [4]param.Point2D {
	return [4]param.Point2D{
		{X: 0, Y: 0}, {X: float64(w), Y: 0}, {X: 0, Y: float64(h)}, {X: float64(w), Y: float64(h)},
	}
}

func testScrParams(w, h int) *param.ScrToImgParameters {
	return &param.ScrToImgParameters{
		ID:                 param.NextID(),
		ScreenType:         param.Dufay,
		C1:                 param.Point2D{X: 10, Y: 0},
		C2:                 param.Point2D{X: 0, Y: 10},
		Center:             param.Point2D{X: float64(w) / 2, Y: float64(h) / 2},
		ProjectionDistance: 1e9,
		Scanner:            param.ScannerFixedLens,
	}
}

func newTestRenderer(t *testing.T, typ Type) *Renderer {
	t.Helper()
	const w, h = 64, 64
	sampler := &flatSampler{w: w, h: h, r: 1, g: 1, b: 1}
	scrParams := testScrParams(w, h)
	caches, err := NewCaches()
	if err != nil {
		t.Fatalf("NewCaches: %v", err)
	}
	rnd := NewRenderer(sampler, scrParams, param.DefaultScrDetectParameters(), nil, nil, nil, caches, DefaultParams(typ))
	if err := rnd.PrecomputeAll(nil); err != nil {
		t.Fatalf("PrecomputeAll: %v", err)
	}
	t.Cleanup(rnd.Close)
	return rnd
}

func TestRealisticSampleIsWithinUnitRange(t *testing.T) {
	rnd := newTestRenderer(t, Realistic)
	for _, p := range []param.Point2D{{X: 0, Y: 0}, {X: 3.2, Y: 1.7}, {X: -2, Y: 5}} {
		c := rnd.SamplePixelScr(p)
		for _, v := range []float64{c.R, c.G, c.B} {
			if v < -1e-9 || v > 1+1e-9 {
				t.Fatalf("SamplePixelScr(%v) = %+v, channel out of [0,1]", p, c)
			}
		}
	}
}

func TestOriginalSampleReturnsRawScan(t *testing.T) {
	rnd := newTestRenderer(t, Original)
	c := rnd.SamplePixelImg(10, 10)
	if c.R != 1 || c.G != 1 || c.B != 1 {
		t.Fatalf("Original sample = %+v, want the flat scan color (1,1,1)", c)
	}
}

func TestPixelColorsClassifiesFlatWhiteAsUnknown(t *testing.T) {
	rnd := newTestRenderer(t, PixelColors)
	c := rnd.SamplePixelImg(5, 5)
	// A flat white scan fails the classifier's min-ratio dominance test
	// (no channel stands out), landing on the "unknown" flat gray.
	if c.R != 0.5 || c.G != 0.5 || c.B != 0.5 {
		t.Fatalf("PixelColors(white) = %+v, want flat gray for ColorUnknown", c)
	}
}

func TestRenderTileFillsEveryPixel(t *testing.T) {
	rnd := newTestRenderer(t, Realistic)
	req := TileRequest{XOffset: 0, YOffset: 0, Step: 0.5, W: 8, H: 8}
	out := NewImage(req.W, req.H)
	if err := rnd.RenderTile(req, out, nil); err != nil {
		t.Fatalf("RenderTile: %v", err)
	}
	if len(out.Pix) != req.W*req.H*3 {
		t.Fatalf("out.Pix len = %d, want %d", len(out.Pix), req.W*req.H*3)
	}
}

func TestRenderTileHonorsCancellation(t *testing.T) {
	rnd := newTestRenderer(t, Realistic)
	prog := progress.New()
	prog.Cancel()
	req := TileRequest{XOffset: 0, YOffset: 0, Step: 1, W: 4, H: 4}
	out := NewImage(req.W, req.H)
	err := rnd.RenderTile(req, out, prog)
	if err != ErrCancelled {
		t.Fatalf("RenderTile with pre-cancelled progress = %v, want ErrCancelled", err)
	}
}

func TestRenderTileParallelMatchesSerialShape(t *testing.T) {
	rnd := newTestRenderer(t, Realistic)
	req := TileRequest{XOffset: 0, YOffset: 0, Step: 0.5, W: 8, H: 8}
	serial := NewImage(req.W, req.H)
	if err := rnd.RenderTile(req, serial, nil); err != nil {
		t.Fatalf("RenderTile: %v", err)
	}
	parallel := NewImage(req.W, req.H)
	if err := rnd.RenderTileParallel(req, parallel, 4, nil); err != nil {
		t.Fatalf("RenderTileParallel: %v", err)
	}
	for i := range serial.Pix {
		if serial.Pix[i] != parallel.Pix[i] {
			t.Fatalf("byte %d differs: serial=%d parallel=%d", i, serial.Pix[i], parallel.Pix[i])
		}
	}
}

func TestScrNearestScaledNormalizesByPeriodAverage(t *testing.T) {
	rnd := newTestRenderer(t, ScrNearestScaled)
	c := rnd.SamplePixelScr(param.Point2D{X: 2, Y: 2})
	for _, v := range []float64{c.R, c.G, c.B} {
		if v < -1e-6 || v > 1.5 {
			t.Fatalf("ScrNearestScaled channel = %v, want roughly within [0,1.5]", v)
		}
	}
}

func TestStitchProjectRoutesToOwningTile(t *testing.T) {
	const w, h = 32, 32
	tileA := &flatSampler{w: w, h: h, r: 1, g: 0, b: 0}
	tileB := &flatSampler{w: w, h: h, r: 0, g: 1, b: 0}

	caches, err := NewCaches()
	if err != nil {
		t.Fatalf("NewCaches: %v", err)
	}
	proj := NewStitchProject([]StitchTile{
		{
			Sampler: tileA, ScrParams: testScrParams(w, h), DetectParams: param.DefaultScrDetectParameters(),
			CommonRect: CommonRect{X0: 0, Y0: 0, X1: 100, Y1: 100},
		},
		{
			Sampler: tileB, ScrParams: testScrParams(w, h), DetectParams: param.DefaultScrDetectParameters(),
			CommonRect: CommonRect{X0: 100, Y0: 0, X1: 200, Y1: 100},
		},
	}, caches, DefaultParams(Original))
	t.Cleanup(proj.Close)

	a, err := proj.SamplePixelCommon(param.Point2D{X: 5, Y: 5})
	if err != nil {
		t.Fatalf("SamplePixelCommon(tile A) error: %v", err)
	}
	if a.R != 1 || a.G != 0 {
		t.Fatalf("tile A sample = %+v, want red-dominant", a)
	}

	b, err := proj.SamplePixelCommon(param.Point2D{X: 150, Y: 5})
	if err != nil {
		t.Fatalf("SamplePixelCommon(tile B) error: %v", err)
	}
	if b.G != 1 || b.R != 0 {
		t.Fatalf("tile B sample = %+v, want green-dominant", b)
	}

	if _, err := proj.SamplePixelCommon(param.Point2D{X: 500, Y: 5}); err == nil {
		t.Fatal("SamplePixelCommon outside every tile should error")
	}
}

func TestNewCachesStartsEmpty(t *testing.T) {
	caches, err := NewCaches()
	if err != nil {
		t.Fatalf("NewCaches: %v", err)
	}
	if caches.MTF.Len() != 0 || caches.Tile.Len() != 0 {
		t.Fatalf("fresh Caches should start empty, got MTF.Len()=%d Tile.Len()=%d", caches.MTF.Len(), caches.Tile.Len())
	}
}

var _ = geom.NewScrToImg // geom is exercised indirectly via ScrToImg construction inside NewCaches' cached builder
