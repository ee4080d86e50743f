// Package gemini implements the scoring-service port against a
// generative language REST API. It owns the full media lifecycle the
// provider requires: upload, poll until ready, generate, delete. The
// reply text is passed through untouched; interpreting it belongs to the
// normalizer.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/pulsevest/backend/internal/core/domain"
	"github.com/pulsevest/backend/internal/core/ports"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultModel       = "gemini-1.5-pro"
	defaultTemperature = 0.4
	defaultMaxTokens   = 2048
)

// Config is the explicit client configuration; there is no package-level
// state. Either APIKey or the OAuth fields must be set.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int

	// OAuth2 client credentials, used instead of APIKey for gateway
	// deployments that front the provider with a token endpoint.
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string

	// Upload poll schedule.
	PollAttempts int
	PollBackoff  time.Duration

	// Transient-failure retry schedule for the generation call.
	MaxRetries  int
	BaseBackoff time.Duration
}

// Client talks to the scoring provider.
type Client struct {
	cfg        Config
	httpClient *http.Client
	ledger     ports.UploadLedger
	log        zerolog.Logger
}

// compile-time interface assertion
var _ ports.ScoringService = (*Client)(nil)

// NewClient constructs a scoring client. ledger may be nil when remote
// upload bookkeeping is disabled.
func NewClient(cfg Config, ledger ports.UploadLedger, log zerolog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = defaultMaxTokens
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 10
	}
	if cfg.PollBackoff <= 0 {
		cfg.PollBackoff = 2 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	if cfg.OAuthTokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			TokenURL:     cfg.OAuthTokenURL,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = 60 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		ledger:     ledger,
		log:        log,
	}
}

// Score sends one prompt, attaching req.Media through the provider's
// file lifecycle when present. The remote copy is deleted on every exit
// path, including caller cancellation.
func (c *Client) Score(ctx context.Context, req ports.ScoreRequest) (string, error) {
	var filePart *fileData

	if len(req.Media) > 0 {
		file, err := c.upload(ctx, req)
		if err != nil {
			return "", err
		}
		defer c.deleteFile(ctx, file.Name)

		if err := c.awaitReady(ctx, &file); err != nil {
			return "", err
		}
		filePart = &fileData{MimeType: req.MimeType, FileURI: file.URI}
	}

	return c.generate(ctx, req.Prompt, filePart)
}

func (c *Client) generate(ctx context.Context, promptText string, filePart *fileData) (string, error) {
	parts := []part{{Text: promptText}}
	if filePart != nil {
		parts = append(parts, part{FileData: filePart})
	}
	payload := generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:      c.cfg.Temperature,
			MaxOutputTokens:  c.cfg.MaxOutputTokens,
			ResponseMimeType: "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", domain.NewServiceError(false, "marshal generate request", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", domain.NewServiceError(false, "build generate request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.doWithRetry(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.statusError(resp, "generate")
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.NewServiceError(false, "decode generate response", err)
	}
	if parsed.Error != nil {
		return "", domain.NewServiceError(false, fmt.Sprintf("generate: %s", parsed.Error.Message), nil)
	}
	if len(parsed.Candidates) == 0 {
		return "", domain.NewServiceError(false, "generate returned no candidates", nil)
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", domain.NewServiceError(false, "generate returned empty text", nil)
	}

	return text.String(), nil
}

func (c *Client) authorize(req *http.Request) {
	// OAuth deployments carry the token in the transport; otherwise the
	// API key rides as a query parameter.
	if c.cfg.OAuthTokenURL != "" || c.cfg.APIKey == "" {
		return
	}
	q := req.URL.Query()
	q.Set("key", c.cfg.APIKey)
	req.URL.RawQuery = q.Encode()
}

// statusError classifies an HTTP failure into the transient/permanent
// service error taxonomy, keeping a bounded slice of the body for logs.
func (c *Client) statusError(resp *http.Response, op string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	msg := fmt.Sprintf("%s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(snippet)))
	return domain.NewServiceError(transient, msg, nil)
}
