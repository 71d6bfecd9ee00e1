package render

import (
	"github.com/colorscreen/reconstruct/internal/cache"
	"github.com/colorscreen/reconstruct/internal/geom"
	"github.com/colorscreen/reconstruct/internal/mtf"
	"github.com/colorscreen/reconstruct/internal/param"
	"github.com/colorscreen/reconstruct/internal/screen"
)

// Base capacities for the process-wide render caches (spec §4.11's "a
// handful of entries is normally enough"; a stitch project raises these
// via IncreaseCapacity so every tile renderer it needs can stay
// resident at once).
const (
	baseScrToImgCapacity = 4
	baseMeshCapacity     = 4
	baseMTFCapacity      = 8
	baseTileCapacity     = 4
)

// scrToImgKey pairs a parameter set with the image corners its lens
// table needs; the cache key is still just the parameter id, so every
// lookup for a given parameter set within one Caches instance must use
// the same corners (true in practice: one Caches per loaded scan).
type scrToImgKey struct {
	p       *param.ScrToImgParameters
	corners [4]param.Point2D
}

func (k scrToImgKey) CacheKey() uint64 { return k.p.CacheKey() }

// screenTileKey identifies a synthesized+blurred screen tile: the
// screen type and strip widths that feed screen.Initialize, plus the
// sharpening parameters (masked to the fields the mode reads) that
// feed screen.WithSharpenParameters. The id field is drawn fresh from
// param.NextID for every lookup, so no two lookups share an entry.
type screenTileKey struct {
	id   uint64
	kind param.ScreenType
	red  float64
	grn  float64
	shp  param.SharpenParameters
}

func (k screenTileKey) CacheKey() uint64 { return k.id }

// Caches bundles every cache the render pipeline shares across tiles
// and, for a stitch project, across scans: the resolved scan<->screen
// map (C3/C4), the MTF models feeding deconvolution (C8), and the
// synthesized screen tile (C5). Scr-to-img and mesh are refcounted
// (RefCache) since a renderer holds a borrow for its whole lifetime;
// MTF and screen tiles are cheap, read-only values the plain
// SimpleCache covers.
type Caches struct {
	ScrToImg *cache.RefCache[scrToImgKey, *geom.ScrToImg]
	Mesh     *cache.RefCache[*geom.Mesh, *geom.Mesh]
	MTF      *cache.SimpleCache[uint64, *mtf.MTF]
	Tile     *cache.SimpleCache[screenTileKey, *screen.Tile]
}

// NewCaches builds a fresh Caches bundle sized for a single scan; call
// IncreaseCapacity on the embedded caches for a stitch project that
// needs many tile renderers resident concurrently.
func NewCaches() (*Caches, error) {
	return NewCachesWithCapacity(baseScrToImgCapacity, baseMeshCapacity, baseMTFCapacity, baseTileCapacity)
}

// NewCachesWithCapacity is NewCaches with every capacity set explicitly,
// the hook the process-level YAML config (ambient stack §1) uses to
// size caches for a deployment's expected concurrent-scan count instead
// of the single-scan defaults.
func NewCachesWithCapacity(scrToImgCap, meshCap, mtfCap, tileCap int) (*Caches, error) {
	mtfCache, err := cache.NewSimpleCache[uint64, *mtf.MTF](mtfCap)
	if err != nil {
		return nil, err
	}
	tileCache, err := cache.NewSimpleCache[screenTileKey, *screen.Tile](tileCap)
	if err != nil {
		return nil, err
	}
	return &Caches{
		ScrToImg: cache.NewRefCache[scrToImgKey, *geom.ScrToImg]("scr_to_img", scrToImgCap,
			func(k scrToImgKey, _ cache.Canceller) (*geom.ScrToImg, error) {
				return geom.NewScrToImg(k.p, k.corners), nil
			}),
		Mesh: cache.NewRefCache[*geom.Mesh, *geom.Mesh]("mesh", meshCap,
			func(m *geom.Mesh, _ cache.Canceller) (*geom.Mesh, error) {
				m.PrecomputeInverse()
				return m, nil
			}),
		MTF:  mtfCache,
		Tile: tileCache,
	}, nil
}
