// Package deconv implements the FFT-based deconvolution engine (C6):
// given a scanner MTF, it builds a per-tile frequency-domain kernel
// (a pure blur, a Wiener sharpen, or a Richardson-Lucy iteration) and
// applies it to image tiles with edge tapering so tiles can be
// reassembled without seams.
package deconv

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/colorscreen/reconstruct/internal/mtf"
	"github.com/colorscreen/reconstruct/internal/pool"
)

// Mode selects the per-tile operation.
type Mode int

const (
	Blur Mode = iota
	Sharpen
	RichardsonLucy
	BlurDeconvolution
)

// Config describes one deconvolution engine instance.
type Config struct {
	MTF       *mtf.MTF
	MTFScale  float64 // frequency-domain scale factor (e.g. supersample factor)
	SNR       float64 // > 0, only used by Sharpen
	Sigma     float64 // RL dampening sigma; 0 disables dampening
	Iterations int    // RL iteration count
	Mode      Mode
}

// Engine holds the precomputed frequency-domain kernel and taper
// weights for a configuration; it is safe for concurrent use by
// multiple goroutines calling ProcessTile, matching spec §4.6's
// per-thread-scratch-buffer discipline (FFT plan construction is the
// only serialized step in the original; gonum's FFT has no persistent
// plan to guard, so Engine needs no such lock).
type Engine struct {
	cfg Config

	borderSize int
	taperSize  int
	tileSize   int

	kernel [][]complex128 // tileSize x tileSize, unscaled (fft2D's inverse divides by tileSize^2)
	weight []float64      // taperSize cosine-bell ramp

	scratch sync.Pool // *scratchBuf
}

type scratchBuf struct {
	tile [][]complex128
}

// New builds an Engine for the given config; mtf.Precompute is called
// if not already done.
func New(cfg Config) (*Engine, error) {
	if cfg.MTF == nil {
		return nil, fmt.Errorf("deconv: MTF is required")
	}
	if cfg.Mode == Sharpen && cfg.SNR <= 0 {
		return nil, fmt.Errorf("deconv: SNR must be > 0 for sharpen mode")
	}
	if err := cfg.MTF.Precompute(); err != nil {
		return nil, fmt.Errorf("deconv: %w", err)
	}
	scale := cfg.MTFScale
	if scale == 0 {
		scale = 1
	}

	e := &Engine{cfg: cfg}
	e.borderSize = int(math.Ceil(cfg.MTF.PSFRadius() * scale))
	if e.borderSize < 1 {
		e.borderSize = 1
	}
	e.taperSize = e.borderSize
	e.borderSize *= 2 // edge tapering always on, per spec §4.6

	e.tileSize = 1
	for e.tileSize < e.borderSize*4 {
		e.tileSize *= 2
	}

	e.precomputeKernel()
	e.precomputeWeights()
	return e, nil
}

func (e *Engine) precomputeWeights() {
	e.weight = make([]float64, e.taperSize)
	for i := range e.weight {
		e.weight[i] = 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(e.taperSize)))
	}
}

func (e *Engine) precomputeKernel() {
	n := e.tileSize
	e.kernel = make([][]complex128, n)
	for y := range e.kernel {
		e.kernel[y] = make([]complex128, n)
	}
	invSNR := 0.0
	if e.cfg.SNR > 0 {
		invSNR = 1 / e.cfg.SNR
	}
	revTile := e.cfg.MTFScale
	if revTile == 0 {
		revTile = 1
	}
	revTile = revTile / float64(n)

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			fu := float64(foldIndex(x, n))
			fv := float64(foldIndex(y, n))
			freq := math.Hypot(fu, fv) * revTile
			h := clamp01(e.cfg.MTF.Eval1D(freq))
			ker := complex(h, 0)
			if e.cfg.Mode == Sharpen {
				denom := real(ker)*real(ker) + invSNR
				ker = complex(real(ker)/denom, 0) // conj(h) == h since h is real
			}
			// No explicit 1/(n*n) scale here: fft2D's inverse path divides
			// it out itself (gonum's Sequence is unnormalized), unlike
			// FFTW's unnormalized c2r transform which forced the original
			// to bake the scale into the kernel itself.
			e.kernel[y][x] = ker
		}
	}
}

func foldIndex(i, n int) int {
	if i > n/2 {
		return i - n
	}
	return i
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TileSize is the full (bordered) tile edge length an Engine operates
// on; callers should step the image by TileSize-2*BorderSize and mirror
// at the image edge so every tile is fully populated.
func (e *Engine) TileSize() int { return e.tileSize }

// BorderSize is the number of pixels on each edge of a tile that should
// be discarded (not reassembled into the output) because they are
// only valid up to tapering/edge effects.
func (e *Engine) BorderSize() int { return e.borderSize }

func (e *Engine) getScratch() *scratchBuf {
	if b, ok := e.scratch.Get().(*scratchBuf); ok {
		return b
	}
	n := e.tileSize
	tile := make([][]complex128, n)
	for y := range tile {
		tile[y] = make([]complex128, n)
	}
	return &scratchBuf{tile: tile}
}

func (e *Engine) putScratch(b *scratchBuf) { e.scratch.Put(b) }

// ProcessTile deconvolves (or blurs) one tileSize x tileSize grayscale
// tile in place semantics: it returns a new tile of the same size; the
// caller should keep only the interior [BorderSize : tileSize-BorderSize)
// region when assembling the output image.
func (e *Engine) ProcessTile(src [][]float64) [][]float64 {
	n := e.tileSize
	work := make([][]float64, n)
	for y := range work {
		work[y] = append([]float64(nil), src[y]...)
	}
	e.taperEdges(work)

	if e.cfg.Mode != RichardsonLucy {
		return e.applyKernel(work)
	}
	return e.richardsonLucy(work)
}

// taperEdges blends the outer ring of width taperSize toward that
// ring's own mean using a cosine-bell weight, treating corners by the
// smaller of the two edge weights (spec §4.6 step 1, ported from
// deconvolve.C's process_tile edge-tapering block).
func (e *Engine) taperEdges(tile [][]float64) {
	n, b := e.tileSize, e.taperSize
	var sum float64
	count := 0
	for y := 0; y < b; y++ {
		for x := 0; x < n; x++ {
			sum += tile[y][x]
			count++
		}
	}
	for y := n - b; y < n; y++ {
		for x := 0; x < n; x++ {
			sum += tile[y][x]
			count++
		}
	}
	for y := b; y < n-b; y++ {
		for x := 0; x < b; x++ {
			sum += tile[y][x]
			count++
		}
		for x := n - b; x < n; x++ {
			sum += tile[y][x]
			count++
		}
	}
	mean := sum / float64(count)

	weightAt := func(i int) float64 {
		if i < 0 {
			return 0
		}
		if i >= b {
			return 1
		}
		return e.weight[i]
	}

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			distTop, distBottom := y, n-1-y
			distLeft, distRight := x, n-1-x
			edgeDist := min4(distTop, distBottom, distLeft, distRight)
			if edgeDist >= b {
				continue
			}
			w := weightAt(edgeDist)
			tile[y][x] = mean + (tile[y][x]-mean)*w
		}
	}
}

func min4(a, b, c, d int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	if d < m {
		m = d
	}
	return m
}

func (e *Engine) applyKernel(tile [][]float64) [][]float64 {
	buf := e.getScratch()
	defer e.putScratch(buf)
	n := e.tileSize
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			buf.tile[y][x] = complex(tile[y][x], 0)
		}
	}
	freq := fft2D(buf.tile, false)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			freq[y][x] *= e.kernel[y][x]
		}
	}
	spatial := fft2D(freq, true)
	out := make([][]float64, n)
	for y := 0; y < n; y++ {
		out[y] = make([]float64, n)
		for x := 0; x < n; x++ {
			out[y][x] = real(spatial[y][x])
		}
	}
	return out
}

// richardsonLucy runs the dampened/undampened multiplicative-update RL
// iteration described in spec §4.6 step 3, ported line-for-line from
// deconvolve.C's richardson_lucy branch of process_tile.
func (e *Engine) richardsonLucy(tile [][]float64) [][]float64 {
	n := e.tileSize
	observed := make([][]float64, n)
	estimate := make([][]float64, n)
	for y := range tile {
		observed[y] = append([]float64(nil), tile[y]...)
		estimate[y] = append([]float64(nil), tile[y]...)
	}
	const epsilon = 1e-12
	sigma := e.cfg.Sigma

	for iter := 0; iter < e.cfg.Iterations; iter++ {
		reblurred := e.applyKernel(estimate)

		ratio := make([][]float64, n)
		for y := 0; y < n; y++ {
			ratio[y] = make([]float64, n)
			for x := 0; x < n; x++ {
				r := reblurred[y][x]
				if sigma > 0 {
					d := observed[y][x] - r
					if math.Abs(d) > 2*sigma {
						ratio[y][x] = 1 + (r*d)/(r*r+sigma*sigma)
					} else {
						ratio[y][x] = 1
					}
				} else if r > epsilon {
					ratio[y][x] = observed[y][x] / r
				} else {
					ratio[y][x] = 1
				}
			}
		}

		corrected := e.applyKernelConj(ratio)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				estimate[y][x] *= corrected[y][x]
			}
		}
	}
	return estimate
}

// applyKernelConj applies the complex-conjugate of the forward kernel,
// used by the Richardson-Lucy update step (spec §4.6 step 3c).
func (e *Engine) applyKernelConj(tile [][]float64) [][]float64 {
	buf := e.getScratch()
	defer e.putScratch(buf)
	n := e.tileSize
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			buf.tile[y][x] = complex(tile[y][x], 0)
		}
	}
	freq := fft2D(buf.tile, false)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			k := e.kernel[y][x]
			conjK := complex(real(k), -imag(k))
			freq[y][x] *= conjK
		}
	}
	spatial := fft2D(freq, true)
	out := make([][]float64, n)
	for y := 0; y < n; y++ {
		out[y] = make([]float64, n)
		for x := 0; x < n; x++ {
			out[y][x] = real(spatial[y][x])
		}
	}
	return out
}

// ProcessTileRGB processes three channel planes independently but
// within the same call, so the three FFT passes of one tile happen
// back to back for cache locality, mirroring deconvolve_rgb's
// same-tile-loop design (spec §4.6 "RGB variant").
func (e *Engine) ProcessTileRGB(planes [3][][]float64) [3][][]float64 {
	var out [3][][]float64
	for c := 0; c < 3; c++ {
		out[c] = e.ProcessTile(planes[c])
	}
	return out
}

// fft2D performs a 2D (inverse) FFT of a complex n x n array via
// row-then-column composition of gonum's 1D complex FFT, matching the
// same composition used by internal/mtf and internal/screen.
//
// gonum's Sequence (inverse transform) is the unnormalized FFTPACK
// backward transform, not a normalized IDFT: it does not divide by N.
// Composing two unnormalized inverse passes (rows then columns) leaves
// the result scaled by n*n, so the inverse case divides it out here.
func fft2D(in [][]complex128, inverse bool) [][]complex128 {
	n := len(in)
	fft := fourier.NewCmplxFFT(n)
	transform := fft.Coefficients
	if inverse {
		transform = fft.Sequence
	}

	rows := make([][]complex128, n)
	for y := 0; y < n; y++ {
		rows[y] = transform(nil, in[y])
	}
	out := make([][]complex128, n)
	for y := 0; y < n; y++ {
		out[y] = make([]complex128, n)
	}
	col := pool.GetComplex128(n)
	defer pool.PutComplex128(col)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = rows[y][x]
		}
		res := transform(nil, col)
		for y := 0; y < n; y++ {
			out[y][x] = res[y]
		}
	}
	if inverse {
		scale := complex(1/float64(n*n), 0)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				out[y][x] *= scale
			}
		}
	}
	return out
}
