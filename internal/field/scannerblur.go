package field

// ScannerBlur holds a coarse grid of per-region Gaussian blur sigma
// (pixels), matching scanner_blur_correction_parameters: the same
// grid structure as the backlight luminosity grid but with a single
// channel (channel 0 of Grid is used), consumed by internal/screen's
// Blur when synthesizing the expected filter mosaic for a given image
// region (spec §4.7).
type ScannerBlur struct {
	width, height int
	imgWRec       float64
	imgHRec       float64
	sigma         []float64
}

// NewScannerBlur builds a ScannerBlur sized to an image of imgWidth x
// imgHeight from a Grid whose channel-0 values are sigma in pixels.
func NewScannerBlur(g *Grid, imgWidth, imgHeight int) *ScannerBlur {
	b := &ScannerBlur{
		width:   g.Width,
		height:  g.Height,
		imgWRec: float64(g.Width) / float64(imgWidth),
		imgHRec: float64(g.Height) / float64(imgHeight),
		sigma:   make([]float64, g.Width*g.Height),
	}
	for i, cell := range g.Lum {
		b.sigma[i] = cell[ChannelRed]
	}
	return b
}

// SigmaAt bilinearly interpolates the blur sigma at image coordinates
// (x, y).
func (b *ScannerBlur) SigmaAt(x, y float64) float64 {
	fx := x * b.imgWRec
	fy := y * b.imgHRec
	x0 := int(fx)
	y0 := int(fy)
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x0 >= b.width {
		x0 = b.width - 1
	}
	if y0 >= b.height {
		y0 = b.height - 1
	}
	rx := fx - float64(x0)
	ry := fy - float64(y0)
	x1, y1 := x0+1, y0+1
	if x1 >= b.width {
		x1 = x0
	}
	if y1 >= b.height {
		y1 = y0
	}
	s00 := b.sigma[y0*b.width+x0]
	s10 := b.sigma[y0*b.width+x1]
	s01 := b.sigma[y1*b.width+x0]
	s11 := b.sigma[y1*b.width+x1]
	top := s00*(1-rx) + s10*rx
	bot := s01*(1-rx) + s11*rx
	return top*(1-ry) + bot*ry
}
