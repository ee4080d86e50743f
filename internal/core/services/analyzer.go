// Package services holds the pipeline orchestrator: the one place that
// sequences feature extraction, prompt building, scoring, and
// normalization for a request.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pulsevest/backend/internal/core/domain"
	"github.com/pulsevest/backend/internal/core/normalize"
	"github.com/pulsevest/backend/internal/core/ports"
	"github.com/pulsevest/backend/internal/core/prompt"
)

// stage labels the pipeline state machine for logging. A request moves
// Received → (FeatureExtraction) → PromptBuilt → Scoring → Normalizing →
// Done, or Received → Rejected before any remote work happens.
type stage string

const (
	stageReceived          stage = "received"
	stageRejected          stage = "rejected"
	stageFeatureExtraction stage = "feature_extraction"
	stagePromptBuilt       stage = "prompt_built"
	stageScoring           stage = "scoring"
	stageNormalizing       stage = "normalizing"
	stageDone              stage = "done"
)

// Analyzer coordinates one independent pipeline instance per request.
// It holds no mutable per-request state, so concurrent requests are
// fully isolated.
type Analyzer struct {
	extractor ports.FeatureExtractor
	scorer    ports.ScoringService
	log       zerolog.Logger
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer(extractor ports.FeatureExtractor, scorer ports.ScoringService, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		extractor: extractor,
		scorer:    scorer,
		log:       log,
	}
}

// Analyze turns media bytes plus a declared MIME type into a validated
// scorecard or a typed error. Unsupported kinds are rejected before any
// remote call or temporary resource exists, and the scoring service is
// invoked exactly once per request.
func (a *Analyzer) Analyze(ctx context.Context, media []byte, declaredMimeType string) (domain.ScoreCard, error) {
	requestID := uuid.NewString()
	log := a.log.With().Str("request_id", requestID).Str("mime", declaredMimeType).Logger()
	log.Debug().Str("stage", string(stageReceived)).Int("bytes", len(media)).Msg("pipeline start")

	kind := domain.KindFromMime(declaredMimeType)
	if kind == domain.MediaKindOther {
		log.Debug().Str("stage", string(stageRejected)).Msg("unsupported media kind")
		return domain.ScoreCard{}, domain.NewUnsupportedMediaError(declaredMimeType)
	}

	var desc domain.AcousticDescriptors
	if kind == domain.MediaKindAudio {
		log.Debug().Str("stage", string(stageFeatureExtraction)).Msg("extracting descriptors")
		d, err := a.extractor.Extract(ctx, media, declaredMimeType)
		if err != nil {
			if errors.Is(err, domain.ErrDecode) {
				return domain.ScoreCard{}, err
			}
			// Extraction is best-effort: the prompt degrades to no
			// descriptors rather than failing the request.
			log.Warn().Err(err).Msg("feature extraction degraded")
		} else {
			desc = d
		}
	}

	instruction, err := prompt.Build(kind, desc)
	if err != nil {
		return domain.ScoreCard{}, err
	}
	log.Debug().Str("stage", string(stagePromptBuilt)).Str("schema", domain.SchemaVersion).Msg("prompt ready")

	req := ports.ScoreRequest{RequestID: requestID, Prompt: instruction}
	if kind == domain.MediaKindVideo {
		req.Media = media
		req.MimeType = declaredMimeType
	}

	log.Debug().Str("stage", string(stageScoring)).Msg("invoking scoring service")
	raw, err := a.scorer.Score(ctx, req)
	if err != nil {
		return domain.ScoreCard{}, err
	}

	log.Debug().Str("stage", string(stageNormalizing)).Msg("normalizing reply")
	card, err := normalize.Normalize(raw)
	if err != nil {
		log.Warn().Err(err).Msg("reply rejected by normalizer")
		return domain.ScoreCard{}, err
	}

	log.Info().
		Str("stage", string(stageDone)).
		Float64("pulse_score", card.PulseScore).
		Int("categories", len(card.Scores)).
		Msg("analysis complete")
	return card, nil
}
