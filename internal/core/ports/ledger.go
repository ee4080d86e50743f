package ports

import (
	"context"
	"time"
)

// UploadRecord tracks one file pushed to the scoring provider. Handle is
// the provider-side resource name used for status polls and deletion.
type UploadRecord struct {
	Handle    string
	RequestID string
	URI       string
	CreatedAt time.Time
}

// UploadLedger is the bookkeeping for remote uploads. The scoring client
// records every handle before use and releases it after deletion, so a
// startup sweep can delete orphans left behind by a crash mid-request.
type UploadLedger interface {
	Record(ctx context.Context, rec UploadRecord) error
	Release(ctx context.Context, handle string) error
	Stale(ctx context.Context, olderThan time.Time) ([]UploadRecord, error)
}
