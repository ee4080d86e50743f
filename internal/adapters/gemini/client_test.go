package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsevest/backend/internal/core/domain"
	"github.com/pulsevest/backend/internal/core/ports"
)

// fakeProvider is an httptest-backed scoring provider with a scriptable
// file lifecycle.
type fakeProvider struct {
	t *testing.T

	mu          sync.Mutex
	fileStates  []string // states returned by successive status polls
	statusPolls int
	deletes     int
	uploads     int
	generates   int

	generateStatus int
	generateBody   string
}

func (f *fakeProvider) server() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.uploads++
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(uploadResponse{
			File: remoteFile{Name: "files/abc123", URI: "https://files.test/abc123", State: "PROCESSING"},
		})
	})

	mux.HandleFunc("GET /v1beta/files/abc123", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		state := "PROCESSING"
		if f.statusPolls < len(f.fileStates) {
			state = f.fileStates[f.statusPolls]
		} else if len(f.fileStates) > 0 {
			state = f.fileStates[len(f.fileStates)-1]
		}
		f.statusPolls++
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(remoteFile{Name: "files/abc123", URI: "https://files.test/abc123", State: state})
	})

	mux.HandleFunc("DELETE /v1beta/files/abc123", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deletes++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /v1beta/models/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.generates++
		status := f.generateStatus
		body := f.generateBody
		f.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	return httptest.NewServer(mux)
}

func (f *fakeProvider) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

func generateBodyWithText(text string) string {
	resp := generateResponse{}
	resp.Candidates = append(resp.Candidates, struct {
		Content content `json:"content"`
	}{Content: content{Parts: []part{{Text: text}}}})
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestClient(baseURL string, ledger ports.UploadLedger) *Client {
	return NewClient(Config{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		Model:        "score-model",
		PollAttempts: 5,
		PollBackoff:  time.Millisecond,
		MaxRetries:   2,
		BaseBackoff:  time.Millisecond,
	}, ledger, zerolog.Nop())
}

func TestClient_Score_TextOnly(t *testing.T) {
	fake := &fakeProvider{t: t, generateBody: generateBodyWithText(`{"ok":true}`)}
	srv := fake.server()
	defer srv.Close()

	client := newTestClient(srv.URL, nil)
	got, err := client.Score(context.Background(), ports.ScoreRequest{Prompt: "assess this"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("raw text = %q", got)
	}
	if fake.uploads != 0 {
		t.Errorf("no upload expected for text-only request, got %d", fake.uploads)
	}
	if fake.generates != 1 {
		t.Errorf("expected exactly one generation call, got %d", fake.generates)
	}
}

func TestClient_Score_MediaLifecycle(t *testing.T) {
	fake := &fakeProvider{
		t:            t,
		fileStates:   []string{"PROCESSING", "ACTIVE"},
		generateBody: generateBodyWithText(`{"ok":true}`),
	}
	srv := fake.server()
	defer srv.Close()

	client := newTestClient(srv.URL, nil)
	_, err := client.Score(context.Background(), ports.ScoreRequest{
		Prompt:   "assess this video",
		Media:    []byte{0x00, 0x01},
		MimeType: "video/mp4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.uploads != 1 {
		t.Errorf("uploads = %d, want 1", fake.uploads)
	}
	if fake.deleteCount() != 1 {
		t.Errorf("remote file must be deleted after success, deletes = %d", fake.deleteCount())
	}
}

func TestClient_Score_ProcessingFailedIsPermanentAndCleansUp(t *testing.T) {
	fake := &fakeProvider{t: t, fileStates: []string{"FAILED"}}
	srv := fake.server()
	defer srv.Close()

	client := newTestClient(srv.URL, nil)
	_, err := client.Score(context.Background(), ports.ScoreRequest{
		Prompt:   "assess",
		Media:    []byte{0x00},
		MimeType: "video/mp4",
	})
	if !errors.Is(err, domain.ErrService) {
		t.Fatalf("expected service error, got %v", err)
	}
	if domain.IsTransient(err) {
		t.Error("processing failure must be permanent")
	}
	if fake.deleteCount() != 1 {
		t.Errorf("remote file must be deleted on failure, deletes = %d", fake.deleteCount())
	}
	if fake.generates != 0 {
		t.Errorf("generation must not run after a failed upload, got %d calls", fake.generates)
	}
}

func TestClient_Score_PollBudgetExhaustedIsTimeout(t *testing.T) {
	fake := &fakeProvider{t: t, fileStates: []string{"PROCESSING"}}
	srv := fake.server()
	defer srv.Close()

	client := newTestClient(srv.URL, nil)
	_, err := client.Score(context.Background(), ports.ScoreRequest{
		Prompt:   "assess",
		Media:    []byte{0x00},
		MimeType: "video/mp4",
	})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if fake.deleteCount() != 1 {
		t.Errorf("remote file must be deleted on timeout, deletes = %d", fake.deleteCount())
	}
}

func TestClient_Score_CancellationStillCleansUp(t *testing.T) {
	fake := &fakeProvider{t: t, fileStates: []string{"PROCESSING"}}
	srv := fake.server()
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		PollAttempts: 50,
		PollBackoff:  50 * time.Millisecond,
	}, nil, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.Score(ctx, ports.ScoreRequest{
		Prompt:   "assess",
		Media:    []byte{0x00},
		MimeType: "video/mp4",
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if fake.deleteCount() != 1 {
		t.Errorf("remote file must be deleted on cancellation, deletes = %d", fake.deleteCount())
	}
}

func TestClient_Generate_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"auth failure is permanent", http.StatusUnauthorized, false},
		{"invalid request is permanent", http.StatusBadRequest, false},
		{"rate limit is transient", http.StatusTooManyRequests, true},
		{"server error is transient", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProvider{t: t, generateStatus: tt.status, generateBody: `{"error":{"message":"nope"}}`}
			srv := fake.server()
			defer srv.Close()

			client := newTestClient(srv.URL, nil)
			_, err := client.Score(context.Background(), ports.ScoreRequest{Prompt: "assess"})
			if !errors.Is(err, domain.ErrService) {
				t.Fatalf("expected service error, got %v", err)
			}
			if domain.IsTransient(err) != tt.wantTransient {
				t.Errorf("transient = %v, want %v", domain.IsTransient(err), tt.wantTransient)
			}
		})
	}
}

func TestClient_Generate_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1beta/models/score-model:generateContent", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, generateBodyWithText("recovered"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(srv.URL, nil)
	got, err := client.Score(context.Background(), ports.ScoreRequest{Prompt: "assess"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" {
		t.Errorf("raw text = %q", got)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

// recordingLedger captures ledger calls for lifecycle assertions.
type recordingLedger struct {
	mu       sync.Mutex
	recorded []string
	released []string
}

func (l *recordingLedger) Record(_ context.Context, rec ports.UploadRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recorded = append(l.recorded, rec.Handle)
	return nil
}

func (l *recordingLedger) Release(_ context.Context, handle string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = append(l.released, handle)
	return nil
}

func (l *recordingLedger) Stale(_ context.Context, _ time.Time) ([]ports.UploadRecord, error) {
	return nil, nil
}

func TestClient_Score_LedgerRecordsAndReleases(t *testing.T) {
	fake := &fakeProvider{
		t:            t,
		fileStates:   []string{"ACTIVE"},
		generateBody: generateBodyWithText(`{"ok":true}`),
	}
	srv := fake.server()
	defer srv.Close()

	ledger := &recordingLedger{}
	client := newTestClient(srv.URL, ledger)
	_, err := client.Score(context.Background(), ports.ScoreRequest{
		RequestID: "req-1",
		Prompt:    "assess",
		Media:     []byte{0x00},
		MimeType:  "video/mp4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledger.recorded) != 1 || ledger.recorded[0] != "files/abc123" {
		t.Errorf("ledger record = %v", ledger.recorded)
	}
	if len(ledger.released) != 1 || ledger.released[0] != "files/abc123" {
		t.Errorf("ledger release = %v", ledger.released)
	}
}
