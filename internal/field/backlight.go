package field

// Backlight applies a precomputed per-cell weight grid to de-flatten
// an image's backlight/lamp unevenness, matching backlight_correction
// (backlight-correction.C/.h): `val' = (val - black) * weight + black`,
// with weight bilinearly interpolated over the grid in image
// coordinates.
type Backlight struct {
	width, height int
	imgWRec       float64 // grid cells per image pixel, x
	imgHRec       float64 // grid cells per image pixel, y
	black         float64
	weights       [][numChannels]float64
}

// NewBacklight builds a Backlight for an image of the given size from
// a luminosity Grid (typically produced by AnalyzeScan or loaded from
// a .par/LCC file). white_balance, when true, averages the R/G/B means
// into one shared weight before per-cell normalization so channel gain
// differences don't alter white balance (spec §4.7).
func NewBacklight(g *Grid, imgWidth, imgHeight int, black float64, whiteBalance bool) *Backlight {
	const epsilon = 1.0 / 256

	b := &Backlight{
		width:   g.Width,
		height:  g.Height,
		imgWRec: float64(g.Width) / float64(imgWidth),
		imgHRec: float64(g.Height) / float64(imgHeight),
		black:   black,
		weights: make([][numChannels]float64, g.Width*g.Height),
	}

	var sum [numChannels]float64
	for _, cell := range g.Lum {
		for c := 0; c < numChannels; c++ {
			sum[c] += cell[c] - black
		}
	}
	if whiteBalance {
		avg := (sum[ChannelRed] + sum[ChannelGreen] + sum[ChannelBlue]) / 3
		sum[ChannelRed], sum[ChannelGreen], sum[ChannelBlue] = avg, avg, avg
	}
	n := float64(g.Width * g.Height)
	var correct [numChannels]float64
	for c := 0; c < numChannels; c++ {
		if sum[c] > epsilon*n {
			correct[c] = sum[c] / n
		} else {
			correct[c] = 1
		}
	}

	for i, cell := range g.Lum {
		for c := 0; c < numChannels; c++ {
			d := cell[c] - black
			if d > epsilon {
				b.weights[i][c] = correct[c] / d
			} else {
				b.weights[i][c] = correct[c]
			}
		}
	}
	return b
}

// Apply corrects one pixel's value at image coordinates (x, y) for the
// given channel.
func (b *Backlight) Apply(val float64, x, y int, c Channel) float64 {
	fx := float64(x) * b.imgWRec
	fy := float64(y) * b.imgHRec
	x0 := int(fx)
	y0 := int(fy)
	rx := fx - float64(x0)
	ry := fy - float64(y0)
	if x0 < 0 || x0 >= b.width || y0 < 0 || y0 >= b.height {
		return val
	}
	x1 := x0 + 1
	if x1 >= b.width {
		x1 = x0
	}
	y1 := y0 + 1
	if y1 >= b.height {
		y1 = y0
	}
	e00 := b.weights[y0*b.width+x0][c]
	e10 := b.weights[y0*b.width+x1][c]
	e01 := b.weights[y1*b.width+x0][c]
	e11 := b.weights[y1*b.width+x1][c]
	mult0 := e00*(1-rx) + e10*rx
	mult1 := e01*(1-rx) + e11*rx
	mult := mult0*(1-ry) + mult1*ry
	return (val-b.black)*mult + b.black
}
