package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/pulsevest/backend/internal/core/ports"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_RecordAndSweep(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	old := ports.UploadRecord{
		Handle:    "files/old-upload",
		RequestID: "req-1",
		URI:       "https://example.com/files/old-upload",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	fresh := ports.UploadRecord{
		Handle:    "files/fresh-upload",
		RequestID: "req-2",
		URI:       "https://example.com/files/fresh-upload",
		CreatedAt: time.Now(),
	}
	for _, rec := range []ports.UploadRecord{old, fresh} {
		if err := ledger.Record(ctx, rec); err != nil {
			t.Fatalf("record %s: %v", rec.Handle, err)
		}
	}

	stale, err := ledger.Stale(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("stale query: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 stale upload, got %d", len(stale))
	}
	if stale[0].Handle != old.Handle {
		t.Errorf("stale handle = %q, want %q", stale[0].Handle, old.Handle)
	}
	if stale[0].RequestID != old.RequestID || stale[0].URI != old.URI {
		t.Errorf("stale row lost metadata: %+v", stale[0])
	}
}

func TestLedger_ReleaseRemovesFromSweep(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	rec := ports.UploadRecord{
		Handle:    "files/released",
		RequestID: "req-3",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := ledger.Record(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := ledger.Release(ctx, rec.Handle); err != nil {
		t.Fatalf("release: %v", err)
	}

	stale, err := ledger.Stale(ctx, time.Now())
	if err != nil {
		t.Fatalf("stale query: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("released upload still reported stale: %+v", stale)
	}
}

func TestLedger_RecordReusesHandle(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	rec := ports.UploadRecord{
		Handle:    "files/reused",
		RequestID: "req-4",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := ledger.Record(ctx, rec); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := ledger.Release(ctx, rec.Handle); err != nil {
		t.Fatalf("release: %v", err)
	}

	// A re-recorded handle is live again: the release mark must be cleared.
	rec.RequestID = "req-5"
	if err := ledger.Record(ctx, rec); err != nil {
		t.Fatalf("second record: %v", err)
	}

	stale, err := ledger.Stale(ctx, time.Now())
	if err != nil {
		t.Fatalf("stale query: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("re-recorded upload not stale again, got %d rows", len(stale))
	}
	if stale[0].RequestID != "req-5" {
		t.Errorf("request id not updated on re-record: %q", stale[0].RequestID)
	}
}

func TestLedger_ReleaseUnknownHandleIsNoop(t *testing.T) {
	ledger := newTestLedger(t)
	if err := ledger.Release(context.Background(), "files/never-recorded"); err != nil {
		t.Fatalf("release of unknown handle must not fail: %v", err)
	}
}
