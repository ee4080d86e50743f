// Package dsp implements the feature-extractor port with an in-process
// decode and analysis chain. Every descriptor is best-effort: a
// computation that cannot produce a value on the given signal leaves its
// field unset instead of failing the request. Only a total decode
// failure is fatal. Descriptor precision is explicitly not guaranteed.
package dsp

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/pulsevest/backend/internal/core/domain"
	"github.com/pulsevest/backend/internal/core/ports"
)

// Extractor decodes audio and computes acoustic descriptors.
type Extractor struct {
	log zerolog.Logger
}

// compile-time interface assertion
var _ ports.FeatureExtractor = (*Extractor)(nil)

func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract decodes media and fills in whichever descriptors the signal
// supports. Extraction is CPU-bound and runs to completion; ctx is
// accepted for interface symmetry only.
func (e *Extractor) Extract(_ context.Context, media []byte, mimeType string) (domain.AcousticDescriptors, error) {
	samples, rate, err := decode(media, mimeType)
	if err != nil {
		return domain.AcousticDescriptors{}, domain.NewDecodeError("audio is undecodable", err)
	}

	var d domain.AcousticDescriptors

	if bpm, dance, ok := rhythm(samples, rate); ok {
		d.TempoBPM = ptr(round(bpm, 1))
		d.Danceability = ptr(round(dance, 2))
	} else {
		e.log.Debug().Msg("tempo estimation skipped: signal too short or flat")
	}

	if dc, ok := dynamicComplexity(samples); ok {
		d.DynamicComplexity = ptr(round(dc, 2))
	}

	if stats, ok := analyzeSpectra(samples, rate); ok {
		d.SpectralCentroid = ptr(round(stats.centroid, 1))
		d.SpectralFlatness = ptr(round(stats.flatness, 2))
		d.SpectralContrast = ptr(round(stats.contrast, 2))

		if key, scale, conf, ok := estimateKey(stats.chroma); ok {
			d.Key = &key
			d.Scale = &scale
			d.KeyConfidence = ptr(round(conf, 2))
		}
	} else {
		e.log.Debug().Msg("spectral analysis skipped: signal too short")
	}

	return d, nil
}

func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

func ptr(v float64) *float64 { return &v }
