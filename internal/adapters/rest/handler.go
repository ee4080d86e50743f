// Package rest is the thin HTTP surface over the analysis service.
package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pulsevest/backend/internal/core/domain"
)

// Analyzer is what the handler needs from the core: one call that turns
// media bytes into a scorecard or a typed error.
type Analyzer interface {
	Analyze(ctx context.Context, media []byte, declaredMimeType string) (domain.ScoreCard, error)
}

// Handler manages the HTTP interface for the analysis service.
type Handler struct {
	svc    Analyzer
	router *http.ServeMux
	log    zerolog.Logger

	maxUploadBytes int64
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc Analyzer, maxUploadBytes int64, log zerolog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 64 << 20
	}
	h := &Handler{
		svc:            svc,
		router:         http.NewServeMux(),
		log:            log,
		maxUploadBytes: maxUploadBytes,
	}
	h.routes()
	return h
}

// ServeHTTP satisfies http.Handler by delegating to the internal router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)
	h.router.HandleFunc("POST /analyze", h.Analyze)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
