package field

import (
	"bytes"
	"math"
	"testing"
)

type constScan struct {
	w, h       int
	r, g, b    uint16
	ir         uint16
	hasIR      bool
	hasRGB     bool
}

func (s constScan) Width() int     { return s.w }
func (s constScan) Height() int    { return s.h }
func (s constScan) MaxVal() int    { return 65535 }
func (s constScan) HasIR() bool    { return s.hasIR }
func (s constScan) HasRGB() bool   { return s.hasRGB }
func (s constScan) IR(x, y int) uint16 { return s.ir }
func (s constScan) RGB(x, y int) (uint16, uint16, uint16) { return s.r, s.g, s.b }

func TestAnalyzeScanConstantImageGivesConstantGrid(t *testing.T) {
	scan := constScan{w: 1110, h: 840, r: 30000, g: 30000, b: 30000, hasRGB: true}
	g := AnalyzeScan(scan, 1.0)
	first := g.Get(0, 0, ChannelRed)
	if first <= 0 {
		t.Fatalf("expected positive luminosity, got %v", first)
	}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if math.Abs(g.Get(x, y, ChannelRed)-first) > 1e-9 {
				t.Fatalf("cell (%d,%d) = %v, want constant %v", x, y, g.Get(x, y, ChannelRed), first)
			}
		}
	}
}

func TestBacklightApplyIdentityOnUniformGrid(t *testing.T) {
	enabled := [numChannels]bool{true, true, true, false}
	g := NewGrid(4, 4, enabled)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			g.Set(x, y, ChannelRed, 0.5)
		}
	}
	b := NewBacklight(g, 100, 100, 0, false)
	out := b.Apply(0.5, 50, 50, ChannelRed)
	if math.Abs(out-0.5) > 1e-6 {
		t.Errorf("Apply on uniform grid = %v, want 0.5", out)
	}
}

func TestBacklightBrightensDarkCells(t *testing.T) {
	enabled := [numChannels]bool{true, false, false, false}
	g := NewGrid(2, 2, enabled)
	g.Set(0, 0, ChannelRed, 0.3) // dark corner
	g.Set(1, 0, ChannelRed, 0.6)
	g.Set(0, 1, ChannelRed, 0.6)
	g.Set(1, 1, ChannelRed, 0.6)
	b := NewBacklight(g, 100, 100, 0, false)
	dark := b.Apply(0.3, 0, 0, ChannelRed)
	bright := b.Apply(0.6, 99, 99, ChannelRed)
	// Flat-fielding normalizes every cell toward the grid average
	// (0.525 here): the dark corner is pulled up, the brighter
	// surrounding cells pulled down, both landing near the mean.
	if dark <= 0.3 {
		t.Errorf("dark-cell correction should brighten: got %v from 0.3", dark)
	}
	if bright >= 0.6 {
		t.Errorf("bright cell correction should darken toward the mean: got %v from 0.6", bright)
	}
	if math.Abs(dark-0.525) > 0.05 {
		t.Errorf("dark-cell corrected value = %v, want near mean 0.525", dark)
	}
	if math.Abs(bright-0.525) > 0.05 {
		t.Errorf("bright-cell corrected value = %v, want near mean 0.525", bright)
	}
}

func TestScannerBlurSigmaInterpolates(t *testing.T) {
	g := NewGrid(2, 2, [numChannels]bool{true, false, false, false})
	g.Set(0, 0, ChannelRed, 1.0)
	g.Set(1, 0, ChannelRed, 3.0)
	g.Set(0, 1, ChannelRed, 1.0)
	g.Set(1, 1, ChannelRed, 3.0)
	b := NewScannerBlur(g, 200, 200)
	lo := b.SigmaAt(0, 0)
	hi := b.SigmaAt(199, 0)
	if lo >= hi {
		t.Errorf("sigma should increase left to right: lo=%v hi=%v", lo, hi)
	}
}

func buildLCCStream(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	writeStr := func(s string) {
		buf.WriteByte(byte(len(s)))
		buf.WriteString(s)
	}
	writeU16 := func(v uint16) {
		buf.WriteByte(byte(v))
		buf.WriteByte(byte(v >> 8))
	}
	skipN := func(n int) {
		for i := 0; i < n; i++ {
			buf.WriteByte(0)
		}
	}
	for _, op := range lccGrammar {
		switch op.kind {
		case opExpectKeyword:
			writeStr(op.want)
		case opSkip:
			skipN(op.n)
		case opSkipString:
			writeStr("x")
		}
	}
	for y := 0; y < analyzeGridHeight; y++ {
		for x := 0; x < analyzeGridWidth; x++ {
			writeU16(16384) // val, unused
			writeU16(16384) // val2 -> weight2 = 0.5
		}
	}
	return buf.Bytes()
}

func TestLoadCaptureOneLCCParsesSyntheticStream(t *testing.T) {
	data := buildLCCStream(t)
	g, err := LoadCaptureOneLCC(data)
	if err != nil {
		t.Fatalf("LoadCaptureOneLCC: %v", err)
	}
	weight2 := 0.5
	want := 1 / ((weight2-1)*32 + 1)
	got := g.Get(analyzeGridWidth-1, analyzeGridHeight-1, ChannelRed)
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("mirrored cell (0,0) source -> (last,last) dest = %v, want %v", got, want)
	}
}

func TestLoadCaptureOneLCCRejectsBadKeyword(t *testing.T) {
	data := buildLCCStream(t)
	data[1] = 'Y' // corrupt "XCon" -> "YCon"
	if _, err := LoadCaptureOneLCC(data); err == nil {
		t.Fatal("expected error for corrupted keyword")
	}
}

func TestBacklightTextRoundTrip(t *testing.T) {
	enabled := [numChannels]bool{true, true, false, false}
	g := NewGrid(3, 2, enabled)
	g.Set(0, 0, ChannelRed, 0.1)
	g.Set(1, 0, ChannelGreen, 0.2)
	g.Set(2, 1, ChannelRed, 0.9)

	var buf bytes.Buffer
	if err := SaveBacklightText(&buf, g); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadBacklightText(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Width != 3 || got.Height != 2 {
		t.Fatalf("dims = %dx%d, want 3x2", got.Width, got.Height)
	}
	if math.Abs(got.Get(2, 1, ChannelRed)-0.9) > 1e-6 {
		t.Errorf("round trip lost value: got %v, want 0.9", got.Get(2, 1, ChannelRed))
	}
}

func TestScannerBlurTextRoundTrip(t *testing.T) {
	g := NewGrid(2, 2, [numChannels]bool{true, false, false, false})
	g.Set(0, 0, ChannelRed, 1.5)
	g.Set(1, 1, ChannelRed, 2.5)

	var buf bytes.Buffer
	if err := SaveScannerBlurText(&buf, g); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadScannerBlurText(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if math.Abs(got.Get(1, 1, ChannelRed)-2.5) > 1e-6 {
		t.Errorf("round trip lost value: got %v, want 2.5", got.Get(1, 1, ChannelRed))
	}
}
