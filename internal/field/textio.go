package field

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SaveBacklightText writes the human-readable backlight-correction
// section (spec §6), keyed by backlight_correction_dimensions/
// _channels/_lums/_end, luminosities in row-major order.
func SaveBacklightText(w io.Writer, g *Grid) error {
	if _, err := fmt.Fprintf(w, "  backlight_correction_dimensions: %d %d\n", g.Width, g.Height); err != nil {
		return err
	}
	names := [numChannels]string{"red", "green", "blue", "ir"}
	var channels []string
	for i, enabled := range g.ChannelEnabled {
		if enabled {
			channels = append(channels, names[i])
		}
	}
	if _, err := fmt.Fprintf(w, "  backlight_correction_channels: %s\n", strings.Join(channels, " ")); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "  backlight_correction_lums:"); err != nil {
		return err
	}
	for y := 0; y < g.Height; y++ {
		if _, err := io.WriteString(w, "\n                             "); err != nil {
			return err
		}
		for x := 0; x < g.Width; x++ {
			for c := 0; c < numChannels; c++ {
				if !g.ChannelEnabled[c] {
					continue
				}
				if _, err := fmt.Fprintf(w, " %f", g.Get(x, y, Channel(c))); err != nil {
					return err
				}
			}
		}
	}
	_, err := io.WriteString(w, "\n  backlight_correction_end\n")
	return err
}

// LoadBacklightText parses the text form written by SaveBacklightText.
func LoadBacklightText(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	width, height, err := expectDimensions(sc, "backlight_correction_dimensions:")
	if err != nil {
		return nil, err
	}
	line, err := expectLine(sc, "backlight_correction_channels:")
	if err != nil {
		return nil, err
	}
	var enabled [numChannels]bool
	fields := strings.Fields(strings.TrimPrefix(line, "backlight_correction_channels:"))
	for _, f := range fields {
		switch f {
		case "red":
			enabled[ChannelRed] = true
		case "green":
			enabled[ChannelGreen] = true
		case "blue":
			enabled[ChannelBlue] = true
		case "ir":
			enabled[ChannelIR] = true
		}
	}

	if _, err := expectLine(sc, "backlight_correction_lums:"); err != nil {
		return nil, err
	}
	g := NewGrid(width, height, enabled)
	for y := 0; y < height; y++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("field: unexpected end of backlight lums at row %d", y)
		}
		fields := strings.Fields(sc.Text())
		idx := 0
		for x := 0; x < width; x++ {
			for c := 0; c < numChannels; c++ {
				if !enabled[c] {
					continue
				}
				if idx >= len(fields) {
					return nil, fmt.Errorf("field: short backlight lums row %d", y)
				}
				v, err := strconv.ParseFloat(fields[idx], 64)
				if err != nil {
					return nil, fmt.Errorf("field: parsing lum at row %d: %w", y, err)
				}
				g.Set(x, y, Channel(c), v)
				idx++
			}
		}
	}
	if err := expectKeywordLine(sc, "backlight_correction_end"); err != nil {
		return nil, err
	}
	return g, nil
}

// SaveScannerBlurText writes the scanner-blur-correction text section.
func SaveScannerBlurText(w io.Writer, g *Grid) error {
	if _, err := fmt.Fprintf(w, "  scanner_blur_correction_dimensions: %d %d\n", g.Width, g.Height); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "  scanner_blur_correction_type: gaussian_blur\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "  scanner_blur_correction_gaussian_blurs:"); err != nil {
		return err
	}
	for y := 0; y < g.Height; y++ {
		if _, err := io.WriteString(w, "\n                             "); err != nil {
			return err
		}
		for x := 0; x < g.Width; x++ {
			if _, err := fmt.Fprintf(w, " %f", g.Get(x, y, ChannelRed)); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "\n  scanner_blur_correction_end\n")
	return err
}

// LoadScannerBlurText parses the text form written by
// SaveScannerBlurText.
func LoadScannerBlurText(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	width, height, err := expectDimensions(sc, "scanner_blur_correction_dimensions:")
	if err != nil {
		return nil, err
	}
	if err := expectKeywordLine(sc, "scanner_blur_correction_type: gaussian_blur"); err != nil {
		return nil, err
	}
	if _, err := expectLine(sc, "scanner_blur_correction_gaussian_blurs:"); err != nil {
		return nil, err
	}
	g := NewGrid(width, height, [numChannels]bool{true, false, false, false})
	for y := 0; y < height; y++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("field: unexpected end of scanner blur grid at row %d", y)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < width {
			return nil, fmt.Errorf("field: short scanner blur row %d", y)
		}
		for x := 0; x < width; x++ {
			v, err := strconv.ParseFloat(fields[x], 64)
			if err != nil {
				return nil, fmt.Errorf("field: parsing sigma at row %d: %w", y, err)
			}
			g.Set(x, y, ChannelRed, v)
		}
	}
	return g, expectKeywordLine(sc, "scanner_blur_correction_end")
}

func expectLine(sc *bufio.Scanner, prefix string) (string, error) {
	if !sc.Scan() {
		return "", fmt.Errorf("field: expected %q, got end of input", prefix)
	}
	line := strings.TrimSpace(sc.Text())
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("field: expected %q, got %q", prefix, line)
	}
	return line, nil
}

func expectKeywordLine(sc *bufio.Scanner, keyword string) error {
	_, err := expectLine(sc, keyword)
	return err
}

func expectDimensions(sc *bufio.Scanner, prefix string) (int, int, error) {
	line, err := expectLine(sc, prefix)
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(strings.TrimPrefix(line, prefix))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("field: malformed dimensions line %q", line)
	}
	width, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("field: parsing width: %w", err)
	}
	height, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("field: parsing height: %w", err)
	}
	return width, height, nil
}
