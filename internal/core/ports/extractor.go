package ports

import (
	"context"

	"github.com/pulsevest/backend/internal/core/domain"
)

// FeatureExtractor computes best-effort acoustic descriptors from raw
// media bytes. Implementations return domain.ErrDecode when the media
// cannot be decoded at all; an individual descriptor that cannot be
// computed is simply left unset.
type FeatureExtractor interface {
	Extract(ctx context.Context, media []byte, mimeType string) (domain.AcousticDescriptors, error)
}
