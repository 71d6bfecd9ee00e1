// Package field implements the two per-region field corrections (C7):
// backlight/flat-field normalization and scanner-blur sigma maps, both
// stored as a coarse grid over the scan, plus the Capture One LCC
// binary importer and the shared text save/load format.
package field

import (
	"math"
	"sort"

	"github.com/colorscreen/reconstruct/internal/param"
	"gonum.org/v1/gonum/stat"
)

// Channel indexes the four per-cell luminosity/weight slots.
type Channel int

const (
	ChannelRed Channel = iota
	ChannelGreen
	ChannelBlue
	ChannelIR
	numChannels = 4
)

// Grid is a coarse width x height per-cell measurement, one value per
// enabled channel. Both the backlight luminosity grid and the
// scanner-blur sigma grid are built from it; backlight keeps all four
// channel slots, scanner-blur only ever populates channel 0.
type Grid struct {
	ID             uint64
	Width, Height  int
	ChannelEnabled [numChannels]bool
	Lum            [][numChannels]float64
}

// NewGrid allocates a zeroed width x height grid.
func NewGrid(width, height int, enabled [numChannels]bool) *Grid {
	return &Grid{
		ID:             param.NextID(),
		Width:          width,
		Height:         height,
		ChannelEnabled: enabled,
		Lum:            make([][numChannels]float64, width*height),
	}
}

func (g *Grid) at(x, y int) int { return y*g.Width + x }

// CacheKey identifies this grid for internal/cache's refcounted caches.
func (g *Grid) CacheKey() uint64 { return g.ID }

// Set stores a per-cell value for the given channel.
func (g *Grid) Set(x, y int, c Channel, v float64) { g.Lum[g.at(x, y)][c] = v }

// Get returns the per-cell value for the given channel.
func (g *Grid) Get(x, y int, c Channel) float64 { return g.Lum[g.at(x, y)][c] }

// analyzeGridWidth/analyzeGridHeight are the fixed backlight-analysis
// grid dimensions (spec §4.7).
const (
	analyzeGridWidth  = 111
	analyzeGridHeight = 84
)

// ScanSampler is the minimal read interface AnalyzeScan needs from a
// loaded scan; internal/field does not depend on any particular image
// decoder so callers (the façade package, or a TIFF-backed scan type)
// can adapt their own representation.
type ScanSampler interface {
	Width() int
	Height() int
	MaxVal() int
	HasIR() bool
	HasRGB() bool
	IR(x, y int) uint16
	RGB(x, y int) (r, g, b uint16)
}

// AnalyzeScan partitions the scan into the fixed 111x84 grid and, for
// each cell and enabled channel, computes the interquartile mean (the
// mean of the gamma-linearized values between the 25th and 75th
// percentile by index) of that cell's pixels — the same robust
// estimator as backlight_correction_parameters::analyze_scan, which
// discards the top and bottom quarters before averaging to resist
// dust/scratches skewing the flat-field estimate.
func AnalyzeScan(s ScanSampler, gamma float64) *Grid {
	enabled := [numChannels]bool{s.HasRGB(), s.HasRGB(), s.HasRGB(), s.HasIR()}
	g := NewGrid(analyzeGridWidth, analyzeGridHeight, enabled)

	maxval := s.MaxVal()
	if maxval <= 0 {
		maxval = 65535
	}
	gammaTable := make([]float64, maxval+1)
	for i := 0; i <= maxval; i++ {
		gammaTable[i] = applyGamma((float64(i)+0.5)/float64(maxval), gamma)
	}

	w, h := s.Width(), s.Height()
	for y := 0; y < analyzeGridHeight; y++ {
		ystart := y * h / analyzeGridHeight
		ysize := h / analyzeGridHeight
		for x := 0; x < analyzeGridWidth; x++ {
			xstart := x * w / analyzeGridWidth
			xsize := w / analyzeGridWidth

			var values [numChannels][]uint16
			for i := 0; i < numChannels; i++ {
				if enabled[i] {
					values[i] = make([]uint16, 0, xsize*ysize)
				}
			}
			for yy := ystart; yy < ystart+ysize; yy++ {
				for xx := xstart; xx < xstart+xsize; xx++ {
					if s.HasIR() {
						values[ChannelIR] = append(values[ChannelIR], s.IR(xx, yy))
					}
					if s.HasRGB() {
						r, gr, b := s.RGB(xx, yy)
						values[ChannelRed] = append(values[ChannelRed], r)
						values[ChannelGreen] = append(values[ChannelGreen], gr)
						values[ChannelBlue] = append(values[ChannelBlue], b)
					}
				}
			}
			for i := 0; i < numChannels; i++ {
				if !enabled[i] {
					continue
				}
				g.Set(x, y, Channel(i), interquartileMean(values[i], gammaTable))
			}
		}
	}
	return g
}

func interquartileMean(values []uint16, gammaTable []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]uint16(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	lo, hi := len(sorted)/4, 3*len(sorted)/4
	if hi <= lo {
		lo, hi = 0, len(sorted)
	}
	linear := make([]float64, 0, hi-lo)
	for _, v := range sorted[lo:hi] {
		linear = append(linear, gammaTable[v])
	}
	return stat.Mean(linear, nil)
}

// applyGamma converts a normalized [0,1] sample to linear light using
// a simple power-law gamma (spec's apply_gamma); gamma <= 0 is treated
// as already-linear (identity).
func applyGamma(v, gamma float64) float64 {
	if gamma <= 0 || v <= 0 {
		return v
	}
	return math.Pow(v, gamma)
}
