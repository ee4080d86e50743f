// Package config loads process configuration from an optional YAML file
// with environment overrides. The loaded value is passed explicitly into
// constructors; nothing here is global.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type Scoring struct {
	BaseURL         string  `yaml:"base_url"`
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`

	OAuthTokenURL     string `yaml:"oauth_token_url"`
	OAuthClientID     string `yaml:"oauth_client_id"`
	OAuthClientSecret string `yaml:"oauth_client_secret"`

	PollAttempts   int `yaml:"poll_attempts"`
	PollBackoffMS  int `yaml:"poll_backoff_ms"`
	MaxRetries     int `yaml:"max_retries"`
	RetryBackoffMS int `yaml:"retry_backoff_ms"`
}

type Ledger struct {
	Path          string `yaml:"path"`
	SweepAfterMin int    `yaml:"sweep_after_min"`
}

type Root struct {
	LogLevel string  `yaml:"log_level"`
	Server   Server  `yaml:"server"`
	Scoring  Scoring `yaml:"scoring"`
	Ledger   Ledger  `yaml:"ledger"`
}

// Load reads the YAML file at path when it exists, then applies
// environment overrides, then validates. An empty path skips the file.
func Load(path string) (*Root, error) {
	cfg := defaults()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %s: %w", path, err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Root {
	return &Root{
		LogLevel: "info",
		Server: Server{
			Addr:        ":8080",
			MaxUploadMB: 64,
		},
		Scoring: Scoring{
			Model:          "gemini-1.5-pro",
			Temperature:    0.4,
			PollAttempts:   10,
			PollBackoffMS:  2000,
			MaxRetries:     3,
			RetryBackoffMS: 500,
		},
		Ledger: Ledger{
			Path:          "pulsevest.db",
			SweepAfterMin: 60,
		},
	}
}

func applyEnv(cfg *Root) {
	setString(&cfg.LogLevel, "PULSEVEST_LOG_LEVEL")
	setString(&cfg.Server.Addr, "PULSEVEST_ADDR")
	setString(&cfg.Scoring.BaseURL, "PULSEVEST_SCORING_BASE_URL")
	setString(&cfg.Scoring.APIKey, "GOOGLE_API_KEY")
	setString(&cfg.Scoring.Model, "PULSEVEST_SCORING_MODEL")
	setString(&cfg.Scoring.OAuthTokenURL, "PULSEVEST_OAUTH_TOKEN_URL")
	setString(&cfg.Scoring.OAuthClientID, "PULSEVEST_OAUTH_CLIENT_ID")
	setString(&cfg.Scoring.OAuthClientSecret, "PULSEVEST_OAUTH_CLIENT_SECRET")
	setString(&cfg.Ledger.Path, "PULSEVEST_LEDGER_PATH")
	setInt(&cfg.Server.MaxUploadMB, "PULSEVEST_MAX_UPLOAD_MB")
	setInt(&cfg.Scoring.PollAttempts, "PULSEVEST_POLL_ATTEMPTS")
	setInt(&cfg.Scoring.PollBackoffMS, "PULSEVEST_POLL_BACKOFF_MS")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			*dst = parsed
		}
	}
}

func (c *Root) validate() error {
	if c.Scoring.APIKey == "" && c.Scoring.OAuthTokenURL == "" {
		return errors.New("config: either GOOGLE_API_KEY or an OAuth token URL is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("config: max_upload_mb must be positive")
	}
	return nil
}
