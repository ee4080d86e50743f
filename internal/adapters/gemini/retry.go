package gemini

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pulsevest/backend/internal/core/domain"
)

// doWithRetry issues the request, retrying transient failures (network
// errors, 429, 5xx) with exponential backoff, honoring Retry-After when
// the provider sends one. The final failure is surfaced as a transient
// service error so the caller still knows a later retry may succeed.
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, domain.NewServiceError(false, "read request body", err)
		}
		_ = req.Body.Close()
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	ctx := req.Context()
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewServiceError(true, "request canceled", err)
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, domain.NewServiceError(false, "reset request body", err)
			}
			req.Body = body
		}

		resp, err := c.httpClient.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			if err != nil {
				return nil, domain.NewServiceError(false, "request failed", err)
			}
			return resp, nil
		}

		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt+1).Int("max", c.cfg.MaxRetries).Msg("retrying after error")
		} else if resp != nil {
			lastErr = c.statusError(resp, "request")
			_ = resp.Body.Close()
			c.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Int("max", c.cfg.MaxRetries).Msg("retrying after status")
		}

		if attempt == c.cfg.MaxRetries-1 {
			break
		}

		backoff := c.cfg.BaseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}

	if ae, ok := lastErr.(*domain.AnalysisError); ok {
		return nil, ae
	}
	return nil, domain.NewServiceError(true, "request failed after retries", lastErr)
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return domain.NewServiceError(true, "wait canceled", ctx.Err())
	case <-timer.C:
		return nil
	}
}
