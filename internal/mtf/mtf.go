// Package mtf models the scanner's spatial response (C8): a 1D
// modulation transfer function built from a tabulated measurement,
// diffraction/defocus optics, and/or a Gaussian sensor term, plus the
// radial point-spread function derived from it by 2D inverse FFT.
package mtf

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/colorscreen/reconstruct/internal/geom"
)

// Sample is one (frequency, contrast) row of a measured MTF table;
// contrast is a percentage in [0, 100], matching typical MTF chart
// output.
type Sample struct {
	Freq     float64
	Contrast float64
}

// Diffraction holds the optional diffraction-limited model inputs.
type Diffraction struct {
	FStop       float64
	WavelengthN float64 // nm
	PixelPitchU float64 // micrometers
	DefocusMM   float64
	ScanDPI     float64
}

func (d Diffraction) complete() bool {
	return d.FStop > 0 && d.WavelengthN > 0 && d.PixelPitchU > 0 && d.ScanDPI > 0
}

// CacheKey identifies this parameter set for internal/cache's refcounted
// caches.
func (p Params) CacheKey() uint64 { return p.ID }

// Params describes everything an MTF may be built from; any subset may
// be zero-valued except Sigma and Diffraction, which are always
// considered (possibly no-ops).
type Params struct {
	ID    uint64
	Table []Sample // must have regular spacing if non-empty
	Sigma float64  // gaussian sigma, pixels
	Diffr Diffraction
}

// MTF is a lazily-precomputed scanner modulation-transfer-function
// model: a 1D mtf(freq) lookup, a radial PSF, and the PSF's effective
// radius (used by the deconvolution engine to size tiles).
type MTF struct {
	p Params

	once      sync.Once
	mtf1D     *geom.Function1D
	lsf       *geom.Function1D // radial line/point spread function
	psfRadius float64
	maxFreq   float64
	err       error
}

// New constructs an MTF model; heavy precomputation is deferred to the
// first call to Precompute (or the first PSF/MTF query).
func New(p Params) *MTF {
	return &MTF{p: p, maxFreq: defaultMaxFreq(p)}
}

func defaultMaxFreq(p Params) float64 {
	if len(p.Table) > 0 {
		return p.Table[len(p.Table)-1].Freq
	}
	return 0.5 // cycles/pixel Nyquist for a Gaussian/diffraction-only model
}

// Precompute forces construction of the 1D MTF and PSF; safe to call
// concurrently (subsequent calls return the same cached result, per a
// per-MTF sync.Once matching spec §4.8's "guarded by a per-MTF lock,
// callers run it exactly once").
func (m *MTF) Precompute() error {
	m.once.Do(func() { m.err = m.precompute() })
	return m.err
}

func (m *MTF) precompute() error {
	if len(m.p.Table) > 0 {
		if err := checkRegularAndMonotone(m.p.Table); err != nil {
			return fmt.Errorf("mtf: %w", err)
		}
		contrasts := make([]float64, len(m.p.Table)+2)
		for i, s := range m.p.Table {
			contrasts[i] = s.Contrast * 0.01
		}
		step := m.p.Table[1].Freq - m.p.Table[0].Freq
		hi := m.p.Table[len(m.p.Table)-1].Freq + 2*step
		m.mtf1D = geom.NewFunction1DFromSamples(contrasts, m.p.Table[0].Freq, hi)
		m.maxFreq = hi
	}

	const psfSize = 4096
	const subscale = 1.0 / 32.0
	fftSize := psfSize/2 + 1
	psfStep := 1 / (float64(psfSize) * subscale)

	// Build the isotropic 2D kernel's real part directly in "natural
	// order" (row 0 = freq 0) and use two real-to-complex/complex-to-real
	// 1D FFTs (rows then columns) to realize the 2D inverse transform,
	// since gonum/dsp/fourier exposes only 1D transforms.
	kernel := make([][]float64, psfSize)
	for y := 0; y < psfSize; y++ {
		kernel[y] = make([]float64, psfSize)
	}
	for y := 0; y < fftSize; y++ {
		for x := 0; x < fftSize; x++ {
			freq := math.Hypot(float64(x), float64(y)) * psfStep
			v := clamp01(m.evalMTF(freq))
			kernel[y][x] = v
			kernel[y][wrap(psfSize-x, psfSize)] = v
			kernel[wrap(psfSize-y, psfSize)][x] = v
			kernel[wrap(psfSize-y, psfSize)][wrap(psfSize-x, psfSize)] = v
		}
	}

	psf := inverseFFT2D(kernel)

	radius := psfRadiusFromProfile(psf, psfSize)
	m.psfRadius = float64(radius) * subscale

	profile := make([]float64, radius+2)
	copy(profile, psf[:radius])
	profile[radius] = 0
	profile[radius+1] = 0
	m.lsf = geom.NewFunction1DFromSamples(profile, 0, float64(radius+2)*subscale)
	return nil
}

func wrap(i, n int) int {
	if i >= n {
		return i - n
	}
	if i < 0 {
		return i + n
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

func checkRegularAndMonotone(t []Sample) error {
	for i := 1; i < len(t); i++ {
		if !(t[i-1].Freq < t[i].Freq) {
			return fmt.Errorf("mtf table frequencies not strictly increasing at index %d", i)
		}
	}
	if len(t) < 2 {
		return nil
	}
	step := (t[len(t)-1].Freq - t[0].Freq) / float64(len(t)-1)
	for i := 1; i < len(t)-1; i++ {
		if math.Abs(t[i].Freq-t[0].Freq-float64(i)*step) > 6e-4 {
			return fmt.Errorf("mtf table has irregular frequency spacing")
		}
	}
	return nil
}

// evalMTF returns the combined MTF value at a spatial frequency (cycles
// per pixel), before clamping.
func (m *MTF) evalMTF(freq float64) float64 {
	if m.mtf1D != nil {
		lo, hi := m.mtf1D.Domain()
		if freq < lo {
			freq = lo
		}
		if freq > hi {
			return 0
		}
		return m.mtf1D.Apply(freq)
	}
	v := 1.0
	if m.p.Diffr.complete() {
		v *= diffractionMTF(m.p.Diffr, freq) * defocusMTF(m.p.Diffr, freq)
	}
	if m.p.Sigma > 0 {
		v *= math.Exp(-2 * math.Pi * math.Pi * m.p.Sigma * m.p.Sigma * freq * freq)
	}
	return v
}

// diffractionMTF is the classic diffraction-limited incoherent MTF for
// an aberration-free circular aperture (a decreasing arccos/sqrt form),
// evaluated against the cutoff frequency implied by f-stop and
// wavelength. Open Question per spec §9: the exact combination with the
// defocus term used by the original is not fully specified; this
// implementation keeps the two factors separately multiplicative, as
// the spec's §4.8 describes ("combined (multiplied) with a defocus
// MTF").
func diffractionMTF(d Diffraction, freq float64) float64 {
	cutoff := 1e3 / (d.WavelengthN * 1e-6 * d.FStop) // cycles/mm
	pixelsPerMM := 1000.0 / d.PixelPitchU
	fCyclesPerMM := freq * pixelsPerMM
	nu := fCyclesPerMM / cutoff
	if nu >= 1 {
		return 0
	}
	return (2 / math.Pi) * (math.Acos(nu) - nu*math.Sqrt(1-nu*nu))
}

// defocusMTF is the Stokseth approximation to the defocused-lens MTF,
// used when defocus is nonzero; this is the simpler of the two
// published forms mentioned in spec §9 and is retained as-is rather
// than the more exact Hopkins integral.
func defocusMTF(d Diffraction, freq float64) float64 {
	if d.DefocusMM == 0 {
		return 1
	}
	pixelsPerMM := 1000.0 / d.PixelPitchU
	fCyclesPerMM := freq * pixelsPerMM
	cutoff := 1e3 / (d.WavelengthN * 1e-6 * d.FStop)
	s := fCyclesPerMM / cutoff
	w20 := d.DefocusMM / (d.FStop * d.FStop * 8) // wavefront defocus coefficient, waves
	x := 4 * math.Pi * w20 * s * (1 - s)
	// Stokseth's approximation: MTF(s) ~= jinc-like falloff modulated by
	// a first-order Bessel term; approximated here via its commonly cited
	// closed form using sinc.
	return sinc(x) * (1 - math.Pow(s, 2.0/3.0))
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x) / x
}

func psfRadiusFromProfile(row []float64, size int) int {
	peak := 0.0
	for _, v := range row {
		if v > peak {
			peak = v
		}
	}
	radius := 1
	for i := 1; i < size/2-1; i++ {
		if row[i] > peak*0.0001 {
			radius = i + 1
		}
	}
	return radius
}

// PSFRadius returns the effective PSF radius in pixels (after
// Precompute).
func (m *MTF) PSFRadius() float64 {
	m.Precompute()
	return m.psfRadius
}

// Eval1D returns the 1D MTF value at the given frequency after
// Precompute.
func (m *MTF) Eval1D(freq float64) float64 {
	m.Precompute()
	return clamp01(m.evalMTF(freq))
}

// PSF1D returns the radial point/line spread function value at radius r
// (pixels) after Precompute.
func (m *MTF) PSF1D(r float64) float64 {
	m.Precompute()
	if m.lsf == nil {
		return 0
	}
	_, hi := m.lsf.Domain()
	if r > hi {
		return 0
	}
	return m.lsf.Apply(r)
}

// PSF returns the radial 2D PSF value at (x, y) scaled by 1/scale,
// i.e. psf_1d(sqrt(x^2+y^2)/scale).
func (m *MTF) PSF(x, y, scale float64) float64 {
	if scale == 0 {
		scale = 1
	}
	r := math.Hypot(x, y) / scale
	return m.PSF1D(r)
}

// ID returns the parameter id this MTF was built from, used as a cache
// key by internal/cache.
func (m *MTF) ID() uint64 { return m.p.ID }

// inverseFFT2D performs a real-valued inverse 2D FFT of an
// already-Hermitian-symmetric real kernel (imaginary part implicitly
// zero) by rows then columns, returning only the first row of the
// spatial-domain result (the isotropic PSF only needs one radial
// profile, taken along y=0, matching the original's 1D psf_data
// indexing after the 2D c2r transform). gonum's Sequence is the
// unnormalized FFTPACK backward transform, not a normalized IDFT: it
// does not divide by N. Composing two of them (rows then columns)
// leaves the result scaled by n*n, divided out explicitly below.
func inverseFFT2D(kernel [][]float64) []float64 {
	n := len(kernel)
	fft := fourier.NewCmplxFFT(n)

	cols := make([][]complex128, n)
	for y := 0; y < n; y++ {
		row := make([]complex128, n)
		for x := 0; x < n; x++ {
			row[x] = complex(kernel[y][x], 0)
		}
		cols[y] = fft.Sequence(nil, row)
	}
	// Transpose, apply FFT along the other axis, transpose back; we only
	// need row 0 of the final spatial-domain array.
	scale := 1 / float64(n*n)
	out := make([]float64, n)
	colBuf := make([]complex128, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			colBuf[y] = cols[y][x]
		}
		spatial := fft.Sequence(nil, colBuf)
		out[x] = real(spatial[0]) * scale
	}
	return out
}
