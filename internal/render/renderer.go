package render

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/colorscreen/reconstruct/internal/cache"
	"github.com/colorscreen/reconstruct/internal/detect"
	"github.com/colorscreen/reconstruct/internal/field"
	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/mtf"
	"github.com/colorscreen/reconstruct/internal/param"
	"github.com/colorscreen/reconstruct/internal/progress"
	"github.com/colorscreen/reconstruct/internal/screen"
)

// ScanSampler is the scan a Renderer draws from: a linear-light RGB
// sampler addressed by image pixel (reusing internal/detect's Sampler
// contract, since the detector and the renderer read the same scan the
// same way).
type ScanSampler = detect.Sampler

// nearestPoint is one (image position, sampled linear value) anchor
// the Interpolated family of render types triangulates from.
type nearestPoint struct {
	img param.Point2D
	val float64
}

// Renderer holds every precomputed, cacheable object one render needs:
// the resolved scan<->screen map, the synthesized screen tile, the
// scanner MTF (if sharpening), and — for the Interpolated family — a
// per-color index of confirmed patch samples. Implements the five
// operations spec §4.12 requires of "every renderer".
type Renderer struct {
	sampler ScanSampler
	params  Params

	scrParams    *param.ScrToImgParameters
	detectParams param.ScrDetectParameters
	corners      [4]param.Point2D
	caches       *Caches

	mesh       *geom.Mesh
	screenMap  *detect.ScreenMap
	scannerMTF *mtf.Params
	backlight  *field.Backlight

	s2iHandle  *cache.Handle[scrToImgKey, *geom.ScrToImg]
	meshHandle *cache.Handle[*geom.Mesh, *geom.Mesh]

	s2i        *geom.ScrToImg
	tile       *screen.Tile
	classifier *detect.Classifier
	satLoss    [9]float64 // row-major 3x3 inverse mixing matrix, output = satLoss * sample

	nearestByColor [3][]nearestPoint // indexed by param.ColorRed..ColorBlue
}

// NewRenderer builds a Renderer for one scan; PrecomputeAll must be
// called before any Sample*/GetColorData call. mesh is only consulted
// when scrParams.HasMesh is true; screenMap is optional and enables
// the Interpolated render-type family.
func NewRenderer(sampler ScanSampler, scrParams *param.ScrToImgParameters, detectParams param.ScrDetectParameters,
	mesh *geom.Mesh, screenMap *detect.ScreenMap, scannerMTF *mtf.Params, caches *Caches, params Params) *Renderer {
	w, h := sampler.Width(), sampler.Height()
	corners := [4]param.Point2D{{X: 0, Y: 0}, {X: float64(w), Y: 0}, {X: 0, Y: float64(h)}, {X: float64(w), Y: float64(h)}}
	return &Renderer{
		sampler:      sampler,
		params:       params,
		scrParams:    scrParams,
		detectParams: detectParams,
		corners:      corners,
		caches:       caches,
		mesh:         mesh,
		screenMap:    screenMap,
		scannerMTF:   scannerMTF,
		classifier:   detect.NewClassifier(detectParams),
	}
}

// SetBacklight attaches a precomputed backlight-correction grid (C7);
// every subsequent scan read runs through it before any screen
// synthesis or classification, the same ordering spec §4.7 describes
// ("corrects the raw scan before anything downstream touches it").
func (r *Renderer) SetBacklight(b *field.Backlight) { r.backlight = b }

// PrecomputeAll acquires every cached dependency the renderer needs:
// the scan<->screen map, the optional mesh, the synthesized+blurred
// screen tile, and (if a screen map was supplied) the Interpolated
// family's nearest-patch index. Cancellable and safe to call once per
// Renderer (spec §4.12's precompute_all).
func (r *Renderer) PrecomputeAll(prog *progress.Info) error {
	if prog == nil {
		prog = progress.New()
	}
	prog.SetTask("precompute render dependencies", 4)

	h, err := r.caches.ScrToImg.Get(scrToImgKey{p: r.scrParams, corners: r.corners}, prog)
	if err != nil {
		return fmt.Errorf("render: resolve scan<->screen map: %w", err)
	}
	r.s2iHandle = h
	r.s2i = h.Value()
	prog.IncProgress()

	if r.scrParams.HasMesh && r.mesh != nil {
		mh, err := r.caches.Mesh.Get(r.mesh, prog)
		if err != nil {
			return fmt.Errorf("render: resolve mesh: %w", err)
		}
		r.meshHandle = mh
		r.s2i.SetMesh(mh.Value())
	}
	prog.IncProgress()

	tile, err := r.resolveTile()
	if err != nil {
		return fmt.Errorf("render: synthesize screen tile: %w", err)
	}
	r.tile = tile
	prog.IncProgress()

	if err := r.computeSaturationLoss(); err != nil {
		return fmt.Errorf("render: saturation-loss matrix: %w", err)
	}
	if r.screenMap != nil {
		r.buildNearestIndex()
	}
	prog.IncProgress()
	return nil
}

// PrecomputeImgRange is the subset form of PrecomputeAll for a bounded
// image-space rectangle; every dependency here is built once for the
// whole scan regardless of region, so this is currently identical to
// PrecomputeAll, matching spec §4.12's note that the two coincide today.
func (r *Renderer) PrecomputeImgRange(x0, y0, x1, y1 int, prog *progress.Info) error {
	return r.PrecomputeAll(prog)
}

// Close releases every cache borrow this renderer holds; callers must
// call it once they are done rendering tiles from this Renderer.
func (r *Renderer) Close() {
	if r.s2iHandle != nil {
		r.s2iHandle.Release()
	}
	if r.meshHandle != nil {
		r.meshHandle.Release()
	}
}

func (r *Renderer) resolveTile() (*screen.Tile, error) {
	var mtfs [3]*mtf.MTF
	if r.scannerMTF != nil {
		m, err := r.caches.MTF.GetOrCompute(r.scannerMTF.ID, func() (*mtf.MTF, error) {
			return mtf.New(*r.scannerMTF), nil
		})
		if err != nil {
			return nil, err
		}
		mtfs = [3]*mtf.MTF{m, m, m}
	}

	key := screenTileKey{
		id:   param.NextID(),
		kind: r.scrParams.ScreenType,
		red:  r.scrParams.RedStripWidth,
		grn:  r.scrParams.GreenStripWidth,
		shp:  r.params.Sharpen.CacheKey(),
	}
	return r.caches.Tile.GetOrCompute(key, func() (*screen.Tile, error) {
		base := screen.Initialize(r.scrParams.ScreenType, r.scrParams.RedStripWidth, r.scrParams.GreenStripWidth)
		if r.scannerMTF == nil {
			return base, nil
		}
		snr := [3]float64{}
		if r.params.Sharpen.Mode == param.SharpenWiener && r.params.Sharpen.SNR > 0 {
			snr = [3]float64{r.params.Sharpen.SNR, r.params.Sharpen.SNR, r.params.Sharpen.SNR}
		}
		return screen.WithSharpenParameters(base, mtfs, snr, r.params.AnticipateSharpen), nil
	})
}

// computeSaturationLoss builds the inverse 3x3 matrix that undoes the
// blurred screen's cross-class leakage (spec §4.12's "saturation loss"
// matrix): for each nominal patch color (classified against the
// *unblurred* tile), it averages the *blurred* tile's per-channel
// transmission over every cell of that color, giving a 3x3 mixing
// matrix M where M[outputChannel][trueColor] is the blurred response
// (blurred = M * nominal); inverting M recovers the nominal color from a
// blurred sample.
func (r *Renderer) computeSaturationLoss() error {
	ideal := screen.Initialize(r.scrParams.ScreenType, r.scrParams.RedStripWidth, r.scrParams.GreenStripWidth)

	var sum [3][3]float64
	var count [3]float64
	for y := 0; y < screen.Size; y++ {
		for x := 0; x < screen.Size; x++ {
			nominal := ideal.Mult[y][x]
			cls := dominantClass(nominal)
			count[cls]++
			blurred := r.tile.Mult[y][x]
			for c := 0; c < 3; c++ {
				sum[cls][c] += blurred[c]
			}
		}
	}

	m := mat.NewDense(3, 3, nil)
	for cls := 0; cls < 3; cls++ {
		if count[cls] == 0 {
			m.Set(cls, cls, 1)
			continue
		}
		for c := 0; c < 3; c++ {
			m.Set(c, cls, sum[cls][c]/count[cls])
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		// Singular (e.g. a degenerate single-color tile): identity is the
		// safe no-op fallback.
		r.satLoss = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
		return nil
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.satLoss[i*3+j] = inv.At(i, j)
		}
	}
	return nil
}

func dominantClass(mult [3]float64) int {
	best := 0
	for c := 1; c < 3; c++ {
		if mult[c] > mult[best] {
			best = c
		}
	}
	return best
}

// buildNearestIndex buckets every confirmed ScreenMap correspondence
// by its filter color, keyed on the image-space sample position, for
// the Interpolated render-type family's nearest-neighbor lookup.
func (r *Renderer) buildNearestIndex() {
	for lp, img := range r.screenMap.Points {
		cls := r.screenMap.Colors[lp]
		if cls == param.ColorUnknown {
			continue
		}
		chans := colorChannels(cls)
		for _, c := range chans {
			rr, gg, bb := r.sampler.Linear(int(img.X), int(img.Y))
			val := [3]float64{rr, gg, bb}[c]
			r.nearestByColor[c] = append(r.nearestByColor[c], nearestPoint{img: img, val: val})
		}
	}
}

// colorChannels returns which RGB channel(s) a classified patch color
// actually informs: a pure red/green/blue patch informs only its own
// channel.
func colorChannels(c param.ColorClass) []int {
	switch c {
	case param.ColorRed:
		return []int{0}
	case param.ColorGreen:
		return []int{1}
	case param.ColorBlue:
		return []int{2}
	default:
		return nil
	}
}

// nearestValue returns the sampled value of the closest anchor of the
// given channel to img, or ok=false if no anchor of that channel was
// confirmed. A plain linear scan: the confirmed-patch counts involved
// are small enough (tens of thousands at most) that a spatial index
// would only pay off for much larger scans than this toolkit targets.
func (r *Renderer) nearestValue(channel int, img param.Point2D) (float64, bool) {
	pts := r.nearestByColor[channel]
	if len(pts) == 0 {
		return 0, false
	}
	best := pts[0]
	bestD := math.Hypot(best.img.X-img.X, best.img.Y-img.Y)
	for _, p := range pts[1:] {
		d := math.Hypot(p.img.X-img.X, p.img.Y-img.Y)
		if d < bestD {
			bestD = d
			best = p
		}
	}
	return best.val, true
}

// applySaturationLoss left-multiplies the row-major inverse mixing
// matrix against a sampled RGB triple.
func (r *Renderer) applySaturationLoss(c param.RGB) param.RGB {
	m := r.satLoss
	return param.RGB{
		R: m[0]*c.R + m[1]*c.G + m[2]*c.B,
		G: m[3]*c.R + m[4]*c.G + m[5]*c.B,
		B: m[6]*c.R + m[7]*c.G + m[8]*c.B,
	}
}
