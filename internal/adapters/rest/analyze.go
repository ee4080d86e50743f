package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/pulsevest/backend/internal/core/domain"
)

// Analyze handles POST /analyze. The upload is a multipart form with the
// media under "mediaFile"; "audioFile" is accepted too, the field name
// the original frontend used.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("mediaFile")
	if err != nil {
		file, header, err = r.FormFile("audioFile")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "no media file provided")
		return
	}
	defer file.Close()

	media, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read media file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		writeError(w, http.StatusBadRequest, "media part is missing a content type")
		return
	}

	card, err := h.svc.Analyze(r.Context(), media, mimeType)
	if err != nil {
		h.log.Warn().Err(err).Str("mime", mimeType).Msg("analysis failed")
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// statusFor maps the analysis error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrService):
		if domain.IsTransient(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrMalformedResponse), errors.Is(err, domain.ErrValidation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
