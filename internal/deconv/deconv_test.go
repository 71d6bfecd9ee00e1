package deconv

import (
	"math"
	"testing"

	"github.com/colorscreen/reconstruct/internal/mtf"
)

func gaussianMTF(sigma float64) *mtf.MTF {
	return mtf.New(mtf.Params{Sigma: sigma})
}

func flatTile(n int, v float64) [][]float64 {
	t := make([][]float64, n)
	for y := range t {
		t[y] = make([]float64, n)
		for x := range t[y] {
			t[y][x] = v
		}
	}
	return t
}

func TestNewRejectsSharpenWithoutSNR(t *testing.T) {
	_, err := New(Config{MTF: gaussianMTF(1), Mode: Sharpen})
	if err == nil {
		t.Fatal("expected error for Sharpen mode with SNR <= 0")
	}
}

func TestBlurPreservesFlatTileMean(t *testing.T) {
	e, err := New(Config{MTF: gaussianMTF(1.2), Mode: Blur})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := e.TileSize()
	src := flatTile(n, 0.5)
	out := e.ProcessTile(src)
	b := e.BorderSize()
	for y := b; y < n-b; y++ {
		for x := b; x < n-b; x++ {
			if math.Abs(out[y][x]-0.5) > 1e-3 {
				t.Fatalf("blurred flat tile at (%d,%d) = %v, want ~0.5", x, y, out[y][x])
			}
		}
	}
}

func TestTileSizeAtLeastFourBorders(t *testing.T) {
	e, err := New(Config{MTF: gaussianMTF(2), Mode: Blur})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.TileSize() < 4*e.BorderSize() {
		t.Errorf("tile size %d < 4*border %d", e.TileSize(), e.BorderSize())
	}
}

func TestRichardsonLucyConvergesTowardObserved(t *testing.T) {
	e, err := New(Config{MTF: gaussianMTF(1.0), Mode: RichardsonLucy, Iterations: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := e.TileSize()
	src := flatTile(n, 0.5)
	out := e.ProcessTile(src)
	b := e.BorderSize()
	for y := b; y < n-b; y++ {
		for x := b; x < n-b; x++ {
			if math.Abs(out[y][x]-0.5) > 0.05 {
				t.Fatalf("RL estimate at (%d,%d) = %v diverged from flat observed 0.5", x, y, out[y][x])
			}
		}
	}
}
