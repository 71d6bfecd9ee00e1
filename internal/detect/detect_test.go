package detect

import (
	"math"
	"testing"

	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/param"
)

func identityDetectParams() param.ScrDetectParameters {
	return param.ScrDetectParameters{
		AdjustColorMatrix: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Gamma:             [3]float64{1, 1, 1},
		MinLuminosity:     0.05,
		MinRatio:          1.2,
	}
}

func TestClassifierClassifiesPureColors(t *testing.T) {
	cl := NewClassifier(identityDetectParams())
	cases := []struct {
		r, g, b float64
		want    param.ColorClass
	}{
		{1, 0, 0, param.ColorRed},
		{0, 1, 0, param.ColorGreen},
		{0, 0, 1, param.ColorBlue},
		{0.01, 0.01, 0.01, param.ColorUnknown}, // below min luminosity
		{0.4, 0.35, 0.35, param.ColorUnknown},  // too close to call
	}
	for _, c := range cases {
		if got := cl.Classify(c.r, c.g, c.b); got != c.want {
			t.Errorf("Classify(%v,%v,%v) = %v, want %v", c.r, c.g, c.b, got, c.want)
		}
	}
}

// classifyScreenPoint paints the synthetic test scan's ground truth: a
// rectangular Dufay-style lattice with red dividers halfway between
// integer rows and green/blue alternating columns, matching the lattice
// convention floodFillDufay/tryGuessDufayScreen assume.
func classifyScreenPoint(scr param.Point2D) param.ColorClass {
	rowFrac := scr.Y - math.Floor(scr.Y)
	if math.Abs(rowFrac-0.5) < 0.15 {
		return param.ColorRed
	}
	ix := int(math.Round(scr.X))
	if ix%2 == 0 {
		return param.ColorGreen
	}
	return param.ColorBlue
}

// syntheticDufaySampler renders the ground-truth lattice through a known
// ScrToImg, pixel by pixel, as a stand-in for a rendered+scanned Dufay
// scan, painted directly without going through internal/render (C12).
type syntheticDufaySampler struct {
	s    *geom.ScrToImg
	w, h int
}

func (d *syntheticDufaySampler) Width() int  { return d.w }
func (d *syntheticDufaySampler) Height() int { return d.h }

func (d *syntheticDufaySampler) Linear(x, y int) (float64, float64, float64) {
	scr := d.s.ToScr(param.Point2D{X: float64(x) + 0.5, Y: float64(y) + 0.5})
	switch classifyScreenPoint(scr) {
	case param.ColorRed:
		return 1, 0, 0
	case param.ColorGreen:
		return 0, 1, 0
	case param.ColorBlue:
		return 0, 0, 1
	default:
		return 0.3, 0.3, 0.3
	}
}

func newSyntheticDufay(w, h int) (*syntheticDufaySampler, *param.ScrToImgParameters) {
	truth := &param.ScrToImgParameters{
		ScreenType:         param.Dufay,
		C1:                 param.Point2D{X: 10, Y: 0},
		C2:                 param.Point2D{X: 0, Y: 10},
		Center:             param.Point2D{X: float64(w) / 2, Y: float64(h) / 2},
		ProjectionDistance: 1e9,
		Scanner:            param.ScannerFixedLens,
	}
	corners := imageCorners(w, h)
	s := geom.NewScrToImg(truth, corners)
	return &syntheticDufaySampler{s: s, w: w, h: h}, truth
}

func TestFindPatchOnSyntheticDufayLattice(t *testing.T) {
	sampler, truth := newSyntheticDufay(300, 300)
	corners := imageCorners(300, 300)
	s := geom.NewScrToImg(truth, corners)
	classMap := BuildClassMap(sampler, NewClassifier(identityDetectParams()))

	cx, cy := 150, 150
	scr := s.ToScr(param.Point2D{X: float64(cx) + 0.5, Y: float64(cy) + 0.5})
	want := classifyScreenPoint(scr)
	if want == param.ColorRed {
		t.Skip("center landed on a red divider for this image size; not interesting here")
	}

	patch := FindPatch(classMap, cx, cy, 200)
	if patch == nil {
		t.Fatal("FindPatch returned nil at a classified pixel")
	}
	if patch.Color != want {
		t.Fatalf("patch.Color = %v, want %v", patch.Color, want)
	}
	if patch.Size() < 4 || patch.Size() > 200 {
		t.Fatalf("patch.Size() = %d, want a modest single-cell patch", patch.Size())
	}
}

func TestTryGuessDufayScreenFindsInitialLattice(t *testing.T) {
	sampler, _ := newSyntheticDufay(300, 300)
	classMap := BuildClassMap(sampler, NewClassifier(identityDetectParams()))
	cfg := DefaultConfig()

	points, ok := tryGuessDufayScreen(classMap, Point{150, 150}, cfg)
	if !ok {
		t.Fatal("tryGuessDufayScreen failed to find an initial lattice on a clean synthetic scan")
	}
	if len(points) < cfg.DufayRowLength*2 {
		t.Fatalf("got %d control points, want at least %d", len(points), cfg.DufayRowLength*2)
	}
	for _, p := range points {
		if p.Color != param.ColorGreen && p.Color != param.ColorBlue {
			t.Fatalf("control point classified %v, want green or blue", p.Color)
		}
	}
}

func TestDetectRegularScreenEndToEnd(t *testing.T) {
	w, h := 300, 300
	sampler, truth := newSyntheticDufay(w, h)
	cfg := DefaultConfig()
	cfg.MinConfirmedPatches = 150
	cfg.MinScreenPercentage = 0.5

	result, err := DetectRegularScreen(sampler, identityDetectParams(), param.Dufay, cfg, false, nil)
	if err != nil {
		t.Fatalf("DetectRegularScreen: %v", err)
	}
	if !result.Quality.Pass {
		t.Fatalf("quality gates did not pass: %+v", result.Quality)
	}
	if result.Map.Len() < cfg.MinConfirmedPatches {
		t.Fatalf("confirmed %d patches, want at least %d", result.Map.Len(), cfg.MinConfirmedPatches)
	}

	// The recovered basis should be a lattice-equivalent rescaling of the
	// ground truth; since our synthetic lattice step equals truth.C1/C2
	// exactly (stepU/stepV derived from adjacent cell centroids), the
	// magnitudes should match closely.
	gotMag1 := math.Hypot(result.Params.C1.X, result.Params.C1.Y)
	wantMag1 := math.Hypot(truth.C1.X, truth.C1.Y)
	if math.Abs(gotMag1-wantMag1) > 1 {
		t.Errorf("|C1| = %v, want near %v", gotMag1, wantMag1)
	}
	gotMag2 := math.Hypot(result.Params.C2.X, result.Params.C2.Y)
	wantMag2 := math.Hypot(truth.C2.X, truth.C2.Y)
	if math.Abs(gotMag2-wantMag2) > 1 {
		t.Errorf("|C2| = %v, want near %v", gotMag2, wantMag2)
	}
}

func TestQualityGateRejectsSparseMap(t *testing.T) {
	sm := newScreenMap()
	sm.set(LatticePoint{0, 0}, param.Point2D{X: 0, Y: 0}, param.ColorGreen)
	cfg := DefaultConfig()
	truth := &param.ScrToImgParameters{ScreenType: param.Dufay, C1: param.Point2D{X: 10}, C2: param.Point2D{Y: 10}, Center: param.Point2D{X: 150, Y: 150}, ProjectionDistance: 1e9}
	s := geom.NewScrToImg(truth, imageCorners(300, 300))
	report := evaluateQuality(sm, cfg, s, 300, 300)
	if report.Pass {
		t.Fatal("a single confirmed patch should never pass the quality gates")
	}
}
