package colorscreen

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/colorscreen/reconstruct/internal/render"
)

// Scan adapts a decoded raster image to every sampler contract the
// reconstruction pipeline needs: raw uint16 channel access for
// internal/field.AnalyzeScan's robust flat-field estimator, and
// gamma-linearized [0,1] doubles for internal/detect's classifier and
// internal/render's sampling (both via the shared Width/Height/Linear
// contract, internal/render.ScanSampler).
type Scan struct {
	img   image.Image
	min   image.Point
	w, h  int
	gamma float64
	lut   [65536]float64
}

// LoadTIFF decodes a baseline TIFF scan (spec §6 "Image input... TIFF")
// and wraps it as a Scan. gamma is the scan's recording gamma (1.0 for
// an already-linear capture, as most raw-converted 16-bit TIFFs are).
func LoadTIFF(r io.Reader, gamma float64) (*Scan, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("colorscreen: decoding TIFF scan: %w", err)
	}
	return NewScan(img, gamma), nil
}

// NewScan wraps an already-decoded image.Image as a Scan.
func NewScan(img image.Image, gamma float64) *Scan {
	if gamma <= 0 {
		gamma = 1
	}
	b := img.Bounds()
	s := &Scan{img: img, min: b.Min, w: b.Dx(), h: b.Dy(), gamma: gamma}
	for i := range s.lut {
		s.lut[i] = math.Pow(float64(i)/65535, gamma)
	}
	return s
}

func (s *Scan) Width() int  { return s.w }
func (s *Scan) Height() int { return s.h }

// Linear implements internal/render.ScanSampler (== internal/detect.Sampler).
func (s *Scan) Linear(x, y int) (r, g, b float64) {
	rr, gg, bb := s.rgb16(x, y)
	return s.lut[rr], s.lut[gg], s.lut[bb]
}

// MaxVal, HasIR, HasRGB, IR and RGB implement internal/field.ScanSampler
// for AnalyzeScan's raw-sample backlight estimation; this loader has no
// infrared channel, matching a plain consumer-scanner TIFF capture.
func (s *Scan) MaxVal() int                   { return 65535 }
func (s *Scan) HasIR() bool                   { return false }
func (s *Scan) HasRGB() bool                  { return true }
func (s *Scan) IR(x, y int) uint16            { return 0 }
func (s *Scan) RGB(x, y int) (r, g, b uint16) { return s.rgb16(x, y) }

func (s *Scan) rgb16(x, y int) (r, g, b uint16) {
	c := color.RGBA64Model.Convert(s.img.At(s.min.X+x, s.min.Y+y)).(color.RGBA64)
	return c.R, c.G, c.B
}

// SaveTIFF writes a rendered tile as a baseline TIFF (spec §6 "Image
// output... TIFF").
func SaveTIFF(w io.Writer, img *render.Image) error {
	if err := tiff.Encode(w, toRGBAImage(img), nil); err != nil {
		return fmt.Errorf("colorscreen: encoding TIFF output: %w", err)
	}
	return nil
}

func toRGBAImage(img *render.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.W, img.H))
	for y := 0; y < img.H; y++ {
		for x := 0; x < img.W; x++ {
			i := (y*img.W + x) * 3
			out.SetRGBA(x, y, color.RGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: 255})
		}
	}
	return out
}

// Downscale resamples a rendered tile to w x h with a bilinear filter,
// the fast preview path (render.PreviewGrid-style low-res previews)
// that avoids a full re-render at the target resolution.
func Downscale(img *render.Image, w, h int) *render.Image {
	src := toRGBAImage(img)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := render.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := dst.RGBAAt(x, y)
			i := (y*w + x) * 3
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.R, c.G, c.B
		}
	}
	return out
}
