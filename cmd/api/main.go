package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsevest/backend/internal/adapters/dsp"
	"github.com/pulsevest/backend/internal/adapters/gemini"
	"github.com/pulsevest/backend/internal/adapters/rest"
	"github.com/pulsevest/backend/internal/adapters/sqlite"
	"github.com/pulsevest/backend/internal/config"
	"github.com/pulsevest/backend/internal/core/services"
	"github.com/pulsevest/backend/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logging.New("info")
		bootLog.Fatal().Err(err).Msg("configuration invalid")
	}

	log := logging.New(cfg.LogLevel)

	// Driven adapters.
	ledger, err := sqlite.NewLedger(cfg.Ledger.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open upload ledger")
	}
	defer ledger.Close()

	scorer := gemini.NewClient(gemini.Config{
		BaseURL:           cfg.Scoring.BaseURL,
		APIKey:            cfg.Scoring.APIKey,
		Model:             cfg.Scoring.Model,
		Temperature:       cfg.Scoring.Temperature,
		MaxOutputTokens:   cfg.Scoring.MaxOutputTokens,
		OAuthTokenURL:     cfg.Scoring.OAuthTokenURL,
		OAuthClientID:     cfg.Scoring.OAuthClientID,
		OAuthClientSecret: cfg.Scoring.OAuthClientSecret,
		PollAttempts:      cfg.Scoring.PollAttempts,
		PollBackoff:       time.Duration(cfg.Scoring.PollBackoffMS) * time.Millisecond,
		MaxRetries:        cfg.Scoring.MaxRetries,
		BaseBackoff:       time.Duration(cfg.Scoring.RetryBackoffMS) * time.Millisecond,
	}, ledger, logging.WithComponent(log, "gemini"))

	extractor := dsp.NewExtractor(logging.WithComponent(log, "dsp"))

	// Core service and driving adapter.
	svc := services.NewAnalyzer(extractor, scorer, logging.WithComponent(log, "analyzer"))
	handler := rest.NewHandler(svc, int64(cfg.Server.MaxUploadMB)<<20, logging.WithComponent(log, "rest"))

	// Delete remote uploads a previous crash may have left behind.
	go sweepOrphans(logging.WithComponent(log, "sweep"), ledger, scorer, time.Duration(cfg.Ledger.SweepAfterMin)*time.Minute)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	log.Info().Str("addr", cfg.Server.Addr).Msg("PulseVest analysis API running")

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}
}

// sweepOrphans deletes unreleased remote uploads older than the cutoff.
func sweepOrphans(log zerolog.Logger, ledger *sqlite.Ledger, scorer *gemini.Client, olderThan time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stale, err := ledger.Stale(ctx, time.Now().Add(-olderThan))
	if err != nil {
		log.Warn().Err(err).Msg("orphan sweep query failed")
		return
	}
	for _, rec := range stale {
		if err := scorer.DeleteHandle(ctx, rec.Handle); err != nil {
			log.Warn().Err(err).Str("handle", rec.Handle).Msg("orphan delete failed")
			continue
		}
		log.Info().Str("handle", rec.Handle).Str("request_id", rec.RequestID).Msg("orphaned upload deleted")
	}
}
