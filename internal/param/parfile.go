package param

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParFile is a loaded `.par` parameter file (spec §6): the scan<->screen
// map, any solver control points recorded against it, and the raw text
// of the backlight/scanner-blur correction blocks, if present. Those two
// blocks are decoded by internal/field (field.LoadBacklightText/
// LoadScannerBlurText) rather than here, since decoding them into a
// field.Grid would make this package import internal/field, which
// already imports this one.
type ParFile struct {
	ScrToImg *ScrToImgParameters
	Solver   SolverParameters

	BacklightText   string // raw "backlight_correction_..." block, empty if absent
	ScannerBlurText string // raw "scanner_blur_correction_..." block, empty if absent
}

// ParseFile parses a `.par` file per spec §6's keyword grammar.
// Unrecognized keywords are silently ignored, matching "additional ones
// are accepted but silently ignored by older readers". Errors do not
// partially apply: on any parse failure the returned ParFile is nil.
func ParseFile(r io.Reader) (*ParFile, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	pf := &ParFile{ScrToImg: &ScrToImgParameters{ID: NextID()}}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		keyword, rest, _ := strings.Cut(line, " ")
		keyword = strings.TrimSuffix(keyword, ":")
		var err error
		switch keyword {
		case "scr_type":
			pf.ScrToImg.ScreenType, err = ParseScreenType(strings.TrimSpace(rest))
		case "coordinate1":
			pf.ScrToImg.C1, err = parsePoint(rest)
		case "coordinate2":
			pf.ScrToImg.C2, err = parsePoint(rest)
		case "center":
			pf.ScrToImg.Center, err = parsePoint(rest)
		case "tilt":
			pf.ScrToImg.TiltX, pf.ScrToImg.TiltY, err = parsePair(rest)
		case "projection":
			pf.ScrToImg.ProjectionDistance, err = strconv.ParseFloat(strings.TrimSpace(rest), 64)
		case "lens_correction":
			pf.ScrToImg.LensCoefficients, err = parseFloats(rest)
		case "motor_correction":
			pf.ScrToImg.MotorCorrection, err = parseMotorCorrection(rest)
		case "final_rotation":
			pf.ScrToImg.FinalRotation, err = strconv.ParseFloat(strings.TrimSpace(rest), 64)
		case "final_angle":
			pf.ScrToImg.FinalAngle, err = strconv.ParseFloat(strings.TrimSpace(rest), 64)
		case "final_ratio":
			pf.ScrToImg.FinalAspect, err = strconv.ParseFloat(strings.TrimSpace(rest), 64)
		case "solver_points":
			pf.Solver.Points, err = parseSolverPoints(sc, rest)
		case "backlight_correction_dimensions":
			pf.BacklightText, err = captureBlock(sc, line, "backlight_correction_end")
		case "scanner_blur_correction_dimensions":
			pf.ScannerBlurText, err = captureBlock(sc, line, "scanner_blur_correction_end")
		default:
			// Unknown keyword: accepted but ignored, per spec §6.
		}
		if err != nil {
			return nil, fmt.Errorf("param: parsing %q: %w", keyword, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("param: reading .par file: %w", err)
	}
	return pf, nil
}

// ParseScreenType maps a .par `scr_type` keyword to a ScreenType.
func ParseScreenType(s string) (ScreenType, error) {
	switch strings.ToLower(s) {
	case "random":
		return Random, nil
	case "dufay":
		return Dufay, nil
	case "paget":
		return Paget, nil
	case "finlay":
		return Finlay, nil
	case "thames":
		return Thames, nil
	case "dioptichrome_b", "dioptichromeb":
		return DioptichromeB, nil
	case "improved_dioptichrome_b", "improveddioptichromeb":
		return ImprovedDioptichromeB, nil
	case "omnicolore":
		return Omnicolore, nil
	case "warner_powrie", "warnerpowrie":
		return WarnerPowrie, nil
	case "joly":
		return Joly, nil
	default:
		return 0, fmt.Errorf("unknown scr_type %q", s)
	}
}

func parsePoint(s string) (Point2D, error) {
	x, y, err := parsePair(s)
	return Point2D{X: x, Y: y}, err
}

func parsePair(s string) (a, b float64, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected 2 fields, got %d", len(fields))
	}
	if a, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, err
	}
	if b, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseMotorCorrection(s string) (*MotorCorrectionPoints, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty motor_correction line")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("parsing motor_correction count: %w", err)
	}
	if len(fields) != 1+2*n {
		return nil, fmt.Errorf("motor_correction: expected %d coordinate fields, got %d", 2*n, len(fields)-1)
	}
	mc := &MotorCorrectionPoints{X: make([]float64, n), Y: make([]float64, n)}
	for i := 0; i < n; i++ {
		x, err := strconv.ParseFloat(fields[1+2*i], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(fields[2+2*i], 64)
		if err != nil {
			return nil, err
		}
		mc.X[i], mc.Y[i] = x, y
	}
	return mc, nil
}

func parseSolverPoints(sc *bufio.Scanner, countField string) ([]SolverPoint, error) {
	n, err := strconv.Atoi(strings.TrimSpace(countField))
	if err != nil {
		return nil, fmt.Errorf("parsing solver_points count: %w", err)
	}
	points := make([]SolverPoint, 0, n)
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("unexpected end of input reading solver point %d/%d", i, n)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) != 5 {
			return nil, fmt.Errorf("solver point %d: expected 5 fields, got %d", i, len(fields))
		}
		vals := make([]float64, 4)
		for j := 0; j < 4; j++ {
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return nil, fmt.Errorf("solver point %d: %w", i, err)
			}
			vals[j] = v
		}
		colorIdx, err := strconv.Atoi(fields[4])
		if err != nil || colorIdx < 0 || colorIdx > 2 {
			return nil, fmt.Errorf("solver point %d: invalid color class %q", i, fields[4])
		}
		points = append(points, SolverPoint{
			Img:   Point2D{X: vals[0], Y: vals[1]},
			Scr:   Point2D{X: vals[2], Y: vals[3]},
			Color: ColorClass(colorIdx),
		})
	}
	return points, nil
}

// captureBlock accumulates lines from the already-read first line
// through the terminating keyword line (inclusive), returning the
// block as a standalone newline-joined string that
// field.LoadBacklightText/LoadScannerBlurText can parse on its own.
func captureBlock(sc *bufio.Scanner, firstLine, endKeyword string) (string, error) {
	lines := []string{firstLine}
	for sc.Scan() {
		line := sc.Text()
		lines = append(lines, line)
		if strings.TrimSpace(line) == endKeyword {
			return strings.Join(lines, "\n"), nil
		}
	}
	return "", fmt.Errorf("unterminated block, expected %q", endKeyword)
}

// WriteTo serializes a ParFile back to spec §6's grammar, in the same
// keyword order ParseFile reads them. Errors do not partially apply in
// the sense that callers always get a full write-or-error outcome per
// fmt.Fprintf; partial output may still reach w on a late write error,
// matching the teacher's io.Writer-based save functions.
func (pf *ParFile) WriteTo(w io.Writer) error {
	p := pf.ScrToImg
	lines := []string{
		fmt.Sprintf("scr_type %s", p.ScreenType.String()),
		fmt.Sprintf("coordinate1 %g %g", p.C1.X, p.C1.Y),
		fmt.Sprintf("coordinate2 %g %g", p.C2.X, p.C2.Y),
		fmt.Sprintf("center %g %g", p.Center.X, p.Center.Y),
		fmt.Sprintf("tilt %g %g", p.TiltX, p.TiltY),
		fmt.Sprintf("projection %g", p.ProjectionDistance),
	}
	if len(p.LensCoefficients) > 0 {
		fields := make([]string, len(p.LensCoefficients))
		for i, c := range p.LensCoefficients {
			fields[i] = fmt.Sprintf("%g", c)
		}
		lines = append(lines, "lens_correction "+strings.Join(fields, " "))
	}
	if p.MotorCorrection != nil {
		n := len(p.MotorCorrection.X)
		fields := make([]string, 0, 2*n+1)
		fields = append(fields, strconv.Itoa(n))
		for i := 0; i < n; i++ {
			fields = append(fields, fmt.Sprintf("%g", p.MotorCorrection.X[i]), fmt.Sprintf("%g", p.MotorCorrection.Y[i]))
		}
		lines = append(lines, "motor_correction "+strings.Join(fields, " "))
	}
	lines = append(lines,
		fmt.Sprintf("final_rotation %g", p.FinalRotation),
		fmt.Sprintf("final_angle %g", p.FinalAngle),
		fmt.Sprintf("final_ratio %g", p.FinalAspect),
	)
	if len(pf.Solver.Points) > 0 {
		lines = append(lines, fmt.Sprintf("solver_points %d", len(pf.Solver.Points)))
		for _, sp := range pf.Solver.Points {
			lines = append(lines, fmt.Sprintf("  %g %g %g %g %d", sp.Img.X, sp.Img.Y, sp.Scr.X, sp.Scr.Y, int(sp.Color)))
		}
	}
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return err
		}
	}
	if pf.BacklightText != "" {
		if _, err := io.WriteString(w, pf.BacklightText+"\n"); err != nil {
			return err
		}
	}
	if pf.ScannerBlurText != "" {
		if _, err := io.WriteString(w, pf.ScannerBlurText+"\n"); err != nil {
			return err
		}
	}
	return nil
}
