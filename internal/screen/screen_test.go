package screen

import (
	"math"
	"testing"

	"github.com/colorscreen/reconstruct/internal/mtf"
	"github.com/colorscreen/reconstruct/internal/param"
)

func TestEmptyTileIsIdentity(t *testing.T) {
	tile := Empty()
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if tile.Mult[y][x] != [3]float64{1, 1, 1} {
				t.Fatalf("Empty()[%d][%d] = %v, want all-1", y, x, tile.Mult[y][x])
			}
		}
	}
}

func TestDufayPeriodSumMatchesStripWidths(t *testing.T) {
	tile := Initialize(param.Dufay, 0.48, 0.37)
	sum := PeriodSum(tile)
	if math.Abs(sum.R-0.48) > 1e-5 {
		t.Errorf("red period sum = %v, want 0.48", sum.R)
	}
	wantG := (1 - 0.48) * 0.37
	if math.Abs(sum.G-wantG) > 1e-5 {
		t.Errorf("green period sum = %v, want %v", sum.G, wantG)
	}
	if math.Abs(sum.R+sum.G+sum.B-1) > 1e-9 {
		t.Errorf("channels do not sum to 1: %v", sum)
	}
}

func TestPagetFinlayEveryCellClassified(t *testing.T) {
	tile := Initialize(param.Paget, 0, 0)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			m := tile.Mult[y][x]
			n := 0
			for _, v := range m {
				if v != 0 {
					n++
				}
			}
			if n != 1 {
				t.Fatalf("cell (%d,%d) not pure single-color: %v", x, y, m)
			}
		}
	}
}

func TestStripsSumsToOne(t *testing.T) {
	tile := Initialize(param.Joly, 0.3, 0.3)
	sum := PeriodSum(tile)
	if math.Abs(sum.R+sum.G+sum.B-1) > 1e-9 {
		t.Errorf("strip channels do not sum to 1: %v", sum)
	}
}

func TestBlurPreservesMean(t *testing.T) {
	tile := Initialize(param.Paget, 0, 0)
	before := PeriodSum(tile)
	blurred := Blur(tile, [3]float64{1.5, 1.5, 1.5})
	after := PeriodSum(blurred)
	if math.Abs(before.R-after.R) > 1e-6 || math.Abs(before.G-after.G) > 1e-6 || math.Abs(before.B-after.B) > 1e-6 {
		t.Errorf("blur changed period mean: before=%v after=%v", before, after)
	}
}

// TestBlurFFTPreservesMean exercises Blur's blurFFT branch (sigma >=
// 0.25*Size), which TestBlurPreservesMean's sigma=1.5 never reaches.
func TestBlurFFTPreservesMean(t *testing.T) {
	tile := Initialize(param.Paget, 0, 0)
	before := PeriodSum(tile)
	sigma := 0.3 * Size
	blurred := Blur(tile, [3]float64{sigma, sigma, sigma})
	after := PeriodSum(blurred)
	if math.Abs(before.R-after.R) > 1e-6 || math.Abs(before.G-after.G) > 1e-6 || math.Abs(before.B-after.B) > 1e-6 {
		t.Errorf("FFT blur changed period mean: before=%v after=%v", before, after)
	}
}

// TestWith2DFFTNilMTFIsIdentity exercises apply2DFilterReal (via
// With2DFFT) with an all-pass response (nil MTF), which must round-trip
// a tile through the forward+inverse 2D FFT unchanged. A missing
// 1/Size^2 normalization after the inverse pass would scale the result
// by Size^2 instead.
func TestWith2DFFTNilMTFIsIdentity(t *testing.T) {
	tile := Initialize(param.Dufay, 0.48, 0.37)
	out := With2DFFT(tile, [3]*mtf.MTF{nil, nil, nil}, [3]float64{1, 1, 1})
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			for c := 0; c < 3; c++ {
				got, want := out.Mult[y][x][c], tile.Mult[y][x][c]
				if math.Abs(got-want) > 1e-6 {
					t.Fatalf("With2DFFT passthrough at (%d,%d)[%d] = %v, want %v", x, y, c, got, want)
				}
			}
		}
	}
}

func TestInterpolatedMultAtCellCenterMatchesSample(t *testing.T) {
	tile := Initialize(param.Dufay, 0.5, 0.5)
	got := InterpolatedMult(tile, param.Point2D{X: 0, Y: 0})
	want := tile.Mult[0][0]
	for c := 0; c < 3; c++ {
		if math.Abs(got[c]-want[c]) > 1e-9 {
			t.Errorf("InterpolatedMult(0,0)[%d] = %v, want %v", c, got[c], want[c])
		}
	}
}
