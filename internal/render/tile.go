package render

import (
	"github.com/colorscreen/reconstruct/internal/param"
	"github.com/colorscreen/reconstruct/internal/progress"
)

// Image is a packed RGB8 output raster, row-major, 3 bytes per pixel;
// the render pipeline's common output buffer shape (spec §4.12's
// get_color_data out parameter).
type Image struct {
	W, H int
	Pix  []uint8
}

// NewImage allocates a zeroed w x h RGB8 image.
func NewImage(w, h int) *Image {
	return &Image{W: w, H: h, Pix: make([]uint8, w*h*3)}
}

func (img *Image) set(x, y int, r, g, b uint8) {
	i := (y*img.W + x) * 3
	img.Pix[i], img.Pix[i+1], img.Pix[i+2] = r, g, b
}

// RenderTile fills out with one TileRequest's worth of pixels, one
// sample per output pixel when the requested step does not exceed one
// screen pixel, or get_color_data's downscale splat otherwise —
// matching spec §4.12's antialiasing rule. Returns ErrCancelled (with
// out partially filled) if prog reports cancellation mid-tile.
func (r *Renderer) RenderTile(req TileRequest, out *Image, prog *progress.Info) error {
	if prog == nil {
		prog = progress.New()
	}
	useSplat := r.params.Antialias == AntialiasSupersample ||
		(r.params.Antialias == AntialiasAuto && req.Step > r.s2i.PixelSize())
	if r.params.Antialias == AntialiasNone {
		useSplat = false
	}

	prog.SetTask("render tile", uint64(req.H))
	for row := 0; row < req.H; row++ {
		if prog.CancelRequested() {
			return ErrCancelled
		}
		for col := 0; col < req.W; col++ {
			final := param.Point2D{
				X: req.XOffset + float64(col)*req.Step,
				Y: req.YOffset + float64(row)*req.Step,
			}
			var c param.RGB
			if useSplat {
				c = r.splatPixel(final, req.Step)
			} else {
				c = r.SamplePixelScr(r.s2i.FinalToScr(final))
			}
			rr, gg, bb := r.toOutput(c)
			out.set(col, row, rr, gg, bb)
		}
		prog.IncProgress()
	}
	return nil
}

// splatPixel is get_color_data's downscale splat: when one output
// pixel spans more than one screen pixel, it averages a small
// supersampled grid in screen space rather than point-sampling once
// (spec §4.12's antialiasing rule for step > pixel size).
func (r *Renderer) splatPixel(final param.Point2D, step float64) param.RGB {
	n := r.params.Supersample
	if n <= 0 {
		n = 3
	}
	var sum param.RGB
	for sy := 0; sy < n; sy++ {
		for sx := 0; sx < n; sx++ {
			off := param.Point2D{
				X: final.X + (float64(sx)+0.5)/float64(n)*step - step/2,
				Y: final.Y + (float64(sy)+0.5)/float64(n)*step - step/2,
			}
			c := r.SamplePixelScr(r.s2i.FinalToScr(off))
			sum.R += c.R
			sum.G += c.G
			sum.B += c.B
		}
	}
	total := float64(n * n)
	return param.RGB{R: sum.R / total, G: sum.G / total, B: sum.B / total}
}

// GetColorData is get_color_data (spec §4.12): renders a w x h tile at
// the given pixel size into a freshly allocated Image, honoring
// cancellation.
func (r *Renderer) GetColorData(req TileRequest, prog *progress.Info) (*Image, error) {
	out := NewImage(req.W, req.H)
	if err := r.RenderTile(req, out, prog); err != nil {
		return out, err
	}
	return out, nil
}
