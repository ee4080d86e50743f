package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for matching with errors.Is. Each corresponds to one
// kind in the analysis error taxonomy.
var (
	ErrDecode            = errors.New("media decode failed")
	ErrFeatureExtraction = errors.New("feature extraction failed")
	ErrService           = errors.New("scoring service failed")
	ErrTimeout           = errors.New("polling budget exceeded")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrValidation        = errors.New("scorecard validation failed")
	ErrUnsupportedMedia  = errors.New("unsupported media kind")
)

// ErrorKind tags an AnalysisError with its taxonomy entry.
type ErrorKind string

const (
	KindDecode            ErrorKind = "decode"
	KindFeatureExtraction ErrorKind = "feature_extraction"
	KindService           ErrorKind = "service"
	KindTimeout           ErrorKind = "timeout"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindValidation        ErrorKind = "validation"
	KindUnsupportedMedia  ErrorKind = "unsupported_media"
)

// AnalysisError is the typed failure returned for any aborted request.
// Raw carries the offending provider text when the normalizer rejects a
// reply, so the drift can be diagnosed from logs. Transient is only
// meaningful for KindService and tells the caller a retry with backoff
// may succeed.
type AnalysisError struct {
	Kind      ErrorKind
	Message   string
	Raw       string
	Transient bool
	Err       error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Is maps each error kind onto its sentinel so callers can test with
// errors.Is(err, domain.ErrValidation) and friends.
func (e *AnalysisError) Is(target error) bool {
	switch target {
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrFeatureExtraction:
		return e.Kind == KindFeatureExtraction
	case ErrService:
		return e.Kind == KindService
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrUnsupportedMedia:
		return e.Kind == KindUnsupportedMedia
	}
	return false
}

// NewDecodeError reports an input whose audio could not be decoded at all.
func NewDecodeError(message string, err error) *AnalysisError {
	return &AnalysisError{Kind: KindDecode, Message: message, Err: err}
}

// NewFeatureExtractionError reports a non-fatal descriptor failure.
func NewFeatureExtractionError(message string, err error) *AnalysisError {
	return &AnalysisError{Kind: KindFeatureExtraction, Message: message, Err: err}
}

// NewServiceError reports a scoring-service failure. Transient failures
// (timeouts, rate limits) may be retried by the caller; permanent ones
// (authentication, invalid request) must not be.
func NewServiceError(transient bool, message string, err error) *AnalysisError {
	return &AnalysisError{Kind: KindService, Message: message, Transient: transient, Err: err}
}

// NewTimeoutError reports an exhausted upload-polling budget.
func NewTimeoutError(message string) *AnalysisError {
	return &AnalysisError{Kind: KindTimeout, Message: message}
}

// NewMalformedResponseError reports provider text that did not parse as
// a JSON-like structure. Raw preserves the original reply.
func NewMalformedResponseError(message, raw string, err error) *AnalysisError {
	return &AnalysisError{Kind: KindMalformedResponse, Message: message, Raw: raw, Err: err}
}

// NewValidationError reports provider text that parsed but could not be
// shaped into a valid scorecard. Raw preserves the original reply.
func NewValidationError(message, raw string) *AnalysisError {
	return &AnalysisError{Kind: KindValidation, Message: message, Raw: raw}
}

// NewUnsupportedMediaError rejects a declared media kind before any
// remote call or temporary resource is created.
func NewUnsupportedMediaError(mimeType string) *AnalysisError {
	return &AnalysisError{
		Kind:    KindUnsupportedMedia,
		Message: fmt.Sprintf("declared media type %q is not analyzable", mimeType),
	}
}

// IsTransient reports whether err is a scoring-service failure worth
// retrying with backoff.
func IsTransient(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind == KindService && ae.Transient
	}
	return false
}
