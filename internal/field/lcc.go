package field

import "fmt"

// opKind tags one step of the Capture One LCC tagged-byte-stream
// grammar (spec §6, parse-captureone-lcc.C): the format is a fixed,
// hard-wired sequence of (keyword, payload) pairs with a handful of
// un-validated free-form string fields interspersed. Representing the
// sequence as data rather than a long if-chain keeps the forward-only
// parser's shape visible at a glance and matches spec's explicit
// recommendation to do so.
type opKind int

const (
	opExpectKeyword opKind = iota // payload is a length-prefixed keyword that must match want
	opSkip                        // skip n arbitrary bytes
	opSkipString                  // skip a length-prefixed string whose content is not validated
)

type lccOp struct {
	kind opKind
	want string
	n    int
}

func kw(s string) lccOp { return lccOp{kind: opExpectKeyword, want: s} }
func skip(n int) lccOp  { return lccOp{kind: opSkip, n: n} }
func skipStr() lccOp    { return lccOp{kind: opSkipString} }

// lccGrammar is the exact sequence used by every Capture One LCC file
// this tool has seen, transcribed from parse-captureone-lcc.C's
// linear chain of expect/skip calls.
var lccGrammar = []lccOp{
	kw("XCon"), skip(9),
	kw("TYPE"), skip(2),
	kw("CaptureOne LCC"), skip(2),
	kw("VER"), skip(7), // v1, v2, v3 (uint16 each) + 1 trailing byte
	kw("Camera"), skip(3), // camera (uint16) + val (uint8)
	kw("Make"), skip(2), skipStr(), skip(2), // make, free-form string, make2
	kw("Model"), skip(2), skipStr(), skip(2), // model, free-form string, model2
	kw("S/N"), skip(2), skipStr(), skip(2), // sn, free-form string, sn2
	skip(5),
	kw("RAW"), skip(20),
	kw("hash"), skip(23),
	kw("Lens"), skip(3),
	kw("Par"), skip(20),
	kw("Shift"), skip(18),
	kw("Chroma"), skip(2),
	kw("REF"), skip(7),
	kw("Hdr"), skip(20),
	kw("RGBMean"), skip(12), // r, g, b (uint32 each)
	kw("RBTable"), skip(2),
	kw("REF"), skip(11),
	kw("LightFalloff"), skip(2),
	kw("REF"), skip(9),
	kw("Hdr"), skip(22),
	kw("Model"), skip(2),
	kw("REF"), skip(13),
	kw("DAT"), skip(4), // dat1, dat2 (uint16 each)
	kw("BIN"), skip(8), // bin, bin2, bin3, bin4 (uint16 each)
}

// lccReader reads the tagged byte stream; all multi-byte integers are
// little-endian.
type lccReader struct {
	data []byte
	pos  int
}

func (r *lccReader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("field: lcc: unexpected end of stream at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *lccReader) skip(n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.byte(); err != nil {
			return err
		}
	}
	return nil
}

func (r *lccReader) readString() (string, error) {
	n, err := r.byte()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.byte()
		if err != nil {
			return "", err
		}
		buf[i] = b
	}
	return string(buf), nil
}

func (r *lccReader) readUint16() (uint16, error) {
	lo, err := r.byte()
	if err != nil {
		return 0, err
	}
	hi, err := r.byte()
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// LoadCaptureOneLCC parses a Capture One .lcc lens-cast calibration
// file into a backlight luminosity Grid. Any keyword mismatch fails
// with a descriptive error naming the offset and the expected versus
// actual keyword (spec §4.7/§6/§7).
func LoadCaptureOneLCC(data []byte) (*Grid, error) {
	r := &lccReader{data: data}
	for _, op := range lccGrammar {
		switch op.kind {
		case opExpectKeyword:
			got, err := r.readString()
			if err != nil {
				return nil, fmt.Errorf("field: lcc: reading keyword %q: %w", op.want, err)
			}
			if got != op.want {
				return nil, fmt.Errorf("field: lcc: expected keyword %q at offset %d, got %q", op.want, r.pos, got)
			}
		case opSkip:
			if err := r.skip(op.n); err != nil {
				return nil, fmt.Errorf("field: lcc: skipping %d bytes: %w", op.n, err)
			}
		case opSkipString:
			if _, err := r.readString(); err != nil {
				return nil, fmt.Errorf("field: lcc: reading free-form string: %w", err)
			}
		}
	}

	enabled := [numChannels]bool{true, true, true, false}
	g := NewGrid(analyzeGridWidth, analyzeGridHeight, enabled)
	for y := 0; y < analyzeGridHeight; y++ {
		for x := 0; x < analyzeGridWidth; x++ {
			_, err := r.readUint16() // val: unused weight channel, kept only for stream alignment
			if err != nil {
				return nil, fmt.Errorf("field: lcc: reading grid cell (%d,%d): %w", x, y, err)
			}
			val2, err := r.readUint16()
			if err != nil {
				return nil, fmt.Errorf("field: lcc: reading grid cell (%d,%d): %w", x, y, err)
			}
			weight2 := float64(val2) / 32768
			lum := 1 / ((weight2-1)*32 + 1)
			// Mirror order: the file stores rows bottom-up and columns
			// right-to-left relative to image orientation.
			gx, gy := analyzeGridWidth-1-x, analyzeGridHeight-1-y
			for _, c := range []Channel{ChannelRed, ChannelGreen, ChannelBlue} {
				g.Set(gx, gy, c, lum)
			}
		}
	}
	return g, nil
}
