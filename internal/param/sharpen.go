package param

// SharpenMode tags which deconvolution/sharpening variant a
// SharpenParameters value selects. Making the mode an explicit tag (rather
// than relying on zero-valued fields) keeps equality structural: two
// values are equal exactly when every field *their* mode reads agrees,
// which is what the cache key for screen tables and saturation-loss
// tables requires.
type SharpenMode int

const (
	SharpenNone SharpenMode = iota
	SharpenUnsharpMask
	SharpenWiener
	SharpenRichardsonLucy
	SharpenBlur
)

// SharpenParameters is the tagged sharpening/deconvolution configuration
// from data model §3. Only the fields relevant to Mode participate in
// Equal; this is what makes the screen-table and saturation-loss caches
// key correctly despite the struct carrying fields for every mode.
type SharpenParameters struct {
	Mode SharpenMode

	// unsharp_mask
	Radius float64
	Amount float64

	// wiener / richardson_lucy / blur: identifies the scanner MTF via the
	// MTF cache (internal/mtf), plus the usual Wiener/RL knobs.
	ScannerMTFID uint64
	MTFScale     float64
	SNR          float64
	Supersample  int

	// richardson_lucy only
	Iterations int
	Sigma      float64
}

// Equal implements the spec's masked/semantic equality: two parameter
// sets are equal when, restricted to the fields their mode actually
// reads, they would produce the same tile.
func (s SharpenParameters) Equal(o SharpenParameters) bool {
	if s.Mode != o.Mode {
		return false
	}
	switch s.Mode {
	case SharpenNone:
		return true
	case SharpenUnsharpMask:
		return s.Radius == o.Radius && s.Amount == o.Amount
	case SharpenWiener:
		return s.ScannerMTFID == o.ScannerMTFID && s.MTFScale == o.MTFScale &&
			s.SNR == o.SNR && s.Supersample == o.Supersample
	case SharpenRichardsonLucy:
		return s.ScannerMTFID == o.ScannerMTFID && s.MTFScale == o.MTFScale &&
			s.Iterations == o.Iterations && s.Sigma == o.Sigma && s.Supersample == o.Supersample
	case SharpenBlur:
		return s.ScannerMTFID == o.ScannerMTFID && s.MTFScale == o.MTFScale && s.Supersample == o.Supersample
	default:
		return false
	}
}

// CacheKey returns a comparable value suitable for use as a map key,
// honoring the same masked-equality rules as Equal. Fields the mode
// doesn't read are zeroed so two semantically-equal values hash/compare
// identically.
func (s SharpenParameters) CacheKey() SharpenParameters {
	key := SharpenParameters{Mode: s.Mode}
	switch s.Mode {
	case SharpenUnsharpMask:
		key.Radius, key.Amount = s.Radius, s.Amount
	case SharpenWiener:
		key.ScannerMTFID, key.MTFScale, key.SNR, key.Supersample = s.ScannerMTFID, s.MTFScale, s.SNR, s.Supersample
	case SharpenRichardsonLucy:
		key.ScannerMTFID, key.MTFScale = s.ScannerMTFID, s.MTFScale
		key.Iterations, key.Sigma, key.Supersample = s.Iterations, s.Sigma, s.Supersample
	case SharpenBlur:
		key.ScannerMTFID, key.MTFScale, key.Supersample = s.ScannerMTFID, s.MTFScale, s.Supersample
	}
	return key
}
