package ports

import "context"

// ScoreRequest carries one prompt to the scoring service. When Media is
// set the service must make the bytes available to the model (upload,
// poll until ready, reference in the generation call) and release the
// remote copy on every exit path.
type ScoreRequest struct {
	RequestID string
	Prompt    string
	Media     []byte
	MimeType  string
}

// ScoringService produces the raw assessment text for a prompt. The
// returned string is untrusted free text; shaping it into a scorecard is
// the normalizer's job, never the client's.
type ScoringService interface {
	Score(ctx context.Context, req ScoreRequest) (string, error)
}
