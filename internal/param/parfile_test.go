package param

import (
	"strings"
	"testing"
)

const sampleParFile = `scr_type dufay
coordinate1 10 0
coordinate2 0 10
center 512 384
tilt 0.01 -0.02
projection 5000
lens_correction 0.001 0.0002
motor_correction 2 0 0.1 100 0.2
final_rotation 0.05
final_angle 1.5708
final_ratio 1.01
solver_points 2
  100 100 0 0 0
  200 100 10 0 1
`

func TestParseFileReadsEveryField(t *testing.T) {
	pf, err := ParseFile(strings.NewReader(sampleParFile))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	p := pf.ScrToImg
	if p.ScreenType != Dufay {
		t.Errorf("ScreenType = %v, want Dufay", p.ScreenType)
	}
	if p.C1 != (Point2D{X: 10, Y: 0}) || p.C2 != (Point2D{X: 0, Y: 10}) {
		t.Errorf("C1/C2 = %v/%v, want (10,0)/(0,10)", p.C1, p.C2)
	}
	if p.Center != (Point2D{X: 512, Y: 384}) {
		t.Errorf("Center = %v, want (512,384)", p.Center)
	}
	if p.TiltX != 0.01 || p.TiltY != -0.02 {
		t.Errorf("Tilt = (%v,%v), want (0.01,-0.02)", p.TiltX, p.TiltY)
	}
	if p.ProjectionDistance != 5000 {
		t.Errorf("ProjectionDistance = %v, want 5000", p.ProjectionDistance)
	}
	if len(p.LensCoefficients) != 2 || p.LensCoefficients[0] != 0.001 {
		t.Errorf("LensCoefficients = %v, want [0.001 0.0002]", p.LensCoefficients)
	}
	if p.MotorCorrection == nil || len(p.MotorCorrection.X) != 2 || p.MotorCorrection.Y[1] != 0.2 {
		t.Errorf("MotorCorrection = %+v, want 2 points ending in y=0.2", p.MotorCorrection)
	}
	if p.FinalRotation != 0.05 || p.FinalAngle != 1.5708 || p.FinalAspect != 1.01 {
		t.Errorf("final_* = (%v,%v,%v)", p.FinalRotation, p.FinalAngle, p.FinalAspect)
	}
	if len(pf.Solver.Points) != 2 {
		t.Fatalf("Solver.Points len = %d, want 2", len(pf.Solver.Points))
	}
	if pf.Solver.Points[1].Color != ColorGreen {
		t.Errorf("Solver.Points[1].Color = %v, want ColorGreen", pf.Solver.Points[1].Color)
	}
}

func TestParseFileIgnoresUnknownKeywords(t *testing.T) {
	text := "scr_type dufay\nfuture_keyword some value here\ncenter 1 2\n"
	pf, err := ParseFile(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if pf.ScrToImg.Center != (Point2D{X: 1, Y: 2}) {
		t.Errorf("Center = %v, want (1,2)", pf.ScrToImg.Center)
	}
}

func TestParseFileRejectsBadScreenType(t *testing.T) {
	_, err := ParseFile(strings.NewReader("scr_type not_a_screen\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown scr_type")
	}
}

func TestWriteToRoundTrips(t *testing.T) {
	pf, err := ParseFile(strings.NewReader(sampleParFile))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	var buf strings.Builder
	if err := pf.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	roundTripped, err := ParseFile(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ParseFile(round trip): %v\n--- written ---\n%s", err, buf.String())
	}
	if roundTripped.ScrToImg.ScreenType != pf.ScrToImg.ScreenType {
		t.Errorf("round-tripped ScreenType = %v, want %v", roundTripped.ScrToImg.ScreenType, pf.ScrToImg.ScreenType)
	}
	if roundTripped.ScrToImg.Center != pf.ScrToImg.Center {
		t.Errorf("round-tripped Center = %v, want %v", roundTripped.ScrToImg.Center, pf.ScrToImg.Center)
	}
	if len(roundTripped.Solver.Points) != len(pf.Solver.Points) {
		t.Errorf("round-tripped Solver.Points len = %d, want %d", len(roundTripped.Solver.Points), len(pf.Solver.Points))
	}
}

func TestParseFileCapturesBacklightBlockVerbatim(t *testing.T) {
	text := "scr_type dufay\n" +
		"backlight_correction_dimensions: 2 1\n" +
		"backlight_correction_channels: red\n" +
		"backlight_correction_lums:\n" +
		" 1.0 2.0\n" +
		"backlight_correction_end\n" +
		"final_rotation 0\n"
	pf, err := ParseFile(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if !strings.Contains(pf.BacklightText, "backlight_correction_dimensions: 2 1") {
		t.Errorf("BacklightText = %q, missing dimensions line", pf.BacklightText)
	}
	if !strings.HasSuffix(strings.TrimSpace(pf.BacklightText), "backlight_correction_end") {
		t.Errorf("BacklightText = %q, missing terminator", pf.BacklightText)
	}
	if pf.ScrToImg.FinalRotation != 0 {
		t.Errorf("parsing resumed incorrectly after the backlight block")
	}
}
