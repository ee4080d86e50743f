// Package prompt renders the versioned instruction sent to the scoring
// service. Category names come from the single shared definition in
// domain; spelling them per call site is what let the prompt and the
// parser drift apart in earlier revisions.
package prompt

import (
	"fmt"
	"strings"

	"github.com/pulsevest/backend/internal/core/domain"
)

const roleFraming = "You are an expert A&R and media analyst for PulseVest."

// Build renders the instruction for one request. Audio prompts embed the
// extracted descriptors; video prompts direct the model at the attached
// file. The required JSON shape is spelled out explicitly and any
// surrounding non-JSON text is forbidden.
func Build(kind domain.MediaKind, desc domain.AcousticDescriptors) (string, error) {
	categories, ok := domain.CategoriesFor(kind)
	if !ok {
		return "", domain.NewUnsupportedMediaError(string(kind))
	}

	var b strings.Builder
	b.WriteString(roleFraming)
	b.WriteString("\n\n")

	switch kind {
	case domain.MediaKindAudio:
		if desc.Empty() {
			b.WriteString("I have an audio track for assessment. No reliable technical measurements are available, so base your assessment on typical expectations for a demo submission and acknowledge the inference.\n")
		} else {
			b.WriteString("I have analyzed an audio track and extracted the following objective signal-processing data: ")
			b.WriteString(renderDescriptors(desc))
			b.WriteString("\nBase your assessment on this technical data.\n")
		}
	case domain.MediaKindVideo:
		b.WriteString("Assess the attached video file directly.\n")
	}

	b.WriteString("\nScore each of these categories, in this exact order:\n")
	for i, c := range categories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}

	fmt.Fprintf(&b, `
For each category give an integer "%s" from 0 to 100 and a concise one-sentence "%s".
Respond with a single JSON object (response schema %s) of this exact shape:
{"%s": <number 0-100>, "%s": <string paragraph of actionable advice>, "%s": [{"category": <string>, "score": <integer 0-100>, "explanation": <string>}, ...]}
"%s" is the average of the category scores, rounded to one decimal.
Your entire reply MUST be that single valid JSON object: no markdown fences, no commentary, no text before or after it.`,
		"score", "explanation", domain.SchemaVersion,
		domain.FieldPulseScore, domain.FieldSuggestions, domain.FieldScores,
		domain.FieldPulseScore)

	return b.String(), nil
}

// renderDescriptors emits the available descriptors as a compact JSON
// fragment in a fixed field order so identical inputs produce identical
// prompts. Values arrive pre-rounded from the extractor.
func renderDescriptors(d domain.AcousticDescriptors) string {
	var fields []string
	add := func(name, value string) {
		fields = append(fields, fmt.Sprintf("%q: %s", name, value))
	}

	if d.TempoBPM != nil {
		add("tempo_bpm", trimFloat(*d.TempoBPM, 1))
	}
	if d.Danceability != nil {
		add("danceability", trimFloat(*d.Danceability, 2))
	}
	if d.Key != nil {
		key := *d.Key
		if d.Scale != nil {
			key += " " + *d.Scale
		}
		if d.KeyUncertain() {
			key += " (uncertain)"
		}
		add("key", fmt.Sprintf("%q", key))
		if d.KeyConfidence != nil {
			add("key_confidence", trimFloat(*d.KeyConfidence, 2))
		}
	}
	if d.DynamicComplexity != nil {
		add("dynamic_complexity", trimFloat(*d.DynamicComplexity, 2))
	}
	if d.SpectralContrast != nil {
		add("spectral_contrast", trimFloat(*d.SpectralContrast, 2))
	}
	if d.SpectralFlatness != nil {
		add("spectral_flatness", trimFloat(*d.SpectralFlatness, 2))
	}
	if d.SpectralCentroid != nil {
		add("spectral_centroid", trimFloat(*d.SpectralCentroid, 1))
	}

	return "{" + strings.Join(fields, ", ") + "}"
}

func trimFloat(v float64, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, v)
}
