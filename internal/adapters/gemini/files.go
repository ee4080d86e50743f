package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pulsevest/backend/internal/core/domain"
	"github.com/pulsevest/backend/internal/core/ports"
)

// upload pushes media bytes to the provider's file store and records the
// handle in the ledger so a crash cannot leak the remote copy.
func (c *Client) upload(ctx context.Context, req ports.ScoreRequest) (remoteFile, error) {
	url := fmt.Sprintf("%s/upload/v1beta/files", c.cfg.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(req.Media))
	if err != nil {
		return remoteFile{}, domain.NewServiceError(false, "build upload request", err)
	}
	httpReq.Header.Set("Content-Type", req.MimeType)
	httpReq.Header.Set("X-Goog-Upload-Protocol", "raw")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return remoteFile{}, domain.NewServiceError(true, "upload request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteFile{}, c.statusError(resp, "upload")
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return remoteFile{}, domain.NewServiceError(false, "decode upload response", err)
	}
	if parsed.File.Name == "" {
		return remoteFile{}, domain.NewServiceError(false, "upload response missing file name", nil)
	}

	if c.ledger != nil {
		rec := ports.UploadRecord{
			Handle:    parsed.File.Name,
			RequestID: req.RequestID,
			URI:       parsed.File.URI,
			CreatedAt: time.Now().UTC(),
		}
		if err := c.ledger.Record(ctx, rec); err != nil {
			c.log.Warn().Err(err).Str("handle", parsed.File.Name).Msg("ledger record failed")
		}
	}

	return parsed.File, nil
}

// awaitReady polls the uploaded file until it is ready for inference.
// The poll is a bounded state machine: at most PollAttempts status reads
// with a growing delay between them. Failed processing is permanent; an
// exhausted budget is a timeout.
func (c *Client) awaitReady(ctx context.Context, file *remoteFile) error {
	state := parseFileState(file.State)

	for attempt := 0; attempt < c.cfg.PollAttempts; attempt++ {
		switch state {
		case stateReady:
			return nil
		case stateFailed:
			return domain.NewServiceError(false, fmt.Sprintf("remote processing failed for %s", file.Name), nil)
		}

		backoff := c.cfg.PollBackoff * time.Duration(attempt+1)
		if err := sleepWithContext(ctx, backoff); err != nil {
			return err
		}

		refreshed, err := c.getFile(ctx, file.Name)
		if err != nil {
			return err
		}
		*file = refreshed
		state = parseFileState(file.State)
	}

	if state == stateReady {
		return nil
	}
	return domain.NewTimeoutError(fmt.Sprintf("file %s not ready after %d polls", file.Name, c.cfg.PollAttempts))
}

func (c *Client) getFile(ctx context.Context, name string) (remoteFile, error) {
	url := fmt.Sprintf("%s/v1beta/%s", c.cfg.BaseURL, name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return remoteFile{}, domain.NewServiceError(false, "build file status request", err)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return remoteFile{}, domain.NewServiceError(true, "file status request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteFile{}, c.statusError(resp, "file status")
	}

	var file remoteFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return remoteFile{}, domain.NewServiceError(false, "decode file status response", err)
	}
	return file, nil
}

// deleteFile releases the remote copy. It runs on every exit path, so it
// detaches from the caller's context: a canceled request must still
// clean up. Failures are logged, never surfaced — the scorecard outcome
// is already decided by the time cleanup runs.
func (c *Client) deleteFile(ctx context.Context, name string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	if err := c.DeleteHandle(cleanupCtx, name); err != nil {
		c.log.Warn().Err(err).Str("handle", name).Msg("remote file delete failed")
	}
}

// DeleteHandle deletes one remote file by handle and releases it in the
// ledger. The startup orphan sweep uses it directly.
func (c *Client) DeleteHandle(ctx context.Context, name string) error {
	url := fmt.Sprintf("%s/v1beta/%s", c.cfg.BaseURL, name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return domain.NewServiceError(false, "build file delete request", err)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.NewServiceError(true, "file delete request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return c.statusError(resp, "file delete")
	}

	if c.ledger != nil {
		if err := c.ledger.Release(ctx, name); err != nil {
			c.log.Warn().Err(err).Str("handle", name).Msg("ledger release failed")
		}
	}
	return nil
}
