package domain

// KeyConfidenceThreshold is the confidence below which a detected key is
// reported as uncertain instead of asserted outright.
const KeyConfidenceThreshold = 0.5

// AcousticDescriptors holds the deterministic signal-processing
// measurements of a track. Every field is optional: a descriptor whose
// computation failed is simply absent. Values are rounded by the
// extractor before they reach the prompt (bpm to 1 decimal, ratios to 2).
type AcousticDescriptors struct {
	TempoBPM          *float64
	Danceability      *float64
	Key               *string
	Scale             *string
	KeyConfidence     *float64
	DynamicComplexity *float64
	SpectralContrast  *float64
	SpectralFlatness  *float64
	SpectralCentroid  *float64
}

// Empty reports whether no descriptor was computed at all.
func (d AcousticDescriptors) Empty() bool {
	return d.TempoBPM == nil &&
		d.Danceability == nil &&
		d.Key == nil &&
		d.Scale == nil &&
		d.KeyConfidence == nil &&
		d.DynamicComplexity == nil &&
		d.SpectralContrast == nil &&
		d.SpectralFlatness == nil &&
		d.SpectralCentroid == nil
}

// KeyUncertain reports whether the detected key should be presented as
// uncertain. A key without a confidence value is treated as uncertain.
func (d AcousticDescriptors) KeyUncertain() bool {
	if d.Key == nil {
		return false
	}
	return d.KeyConfidence == nil || *d.KeyConfidence < KeyConfidenceThreshold
}
