package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/seo-insights/backend/advice"
	"github.com/seo-insights/backend/audit"
	"github.com/seo-insights/backend/logging"
	"github.com/seo-insights/backend/metrics"
	"github.com/seo-insights/backend/middleware"
	"github.com/seo-insights/backend/onpage"
	"github.com/seo-insights/backend/report"
	"github.com/seo-insights/backend/scoring"
	"github.com/seo-insights/backend/serp"
	"github.com/seo-insights/backend/stats"
)

const shutdownTimeout = 30 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	gin.SetMode(cfg.GinMode)

	if servePort != "" {
		cfg.Port = servePort
	}

	scoringConfig, err := loadScoringConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	storage, err := stats.NewStorage(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize stats storage: %w", err)
	}
	statistics := logging.NewStatistics(filepath.Join(cfg.DataDir, "statistics.json"), cfg.DevMode)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := report.NewStore(ctx, report.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	service := report.NewService(report.Options{
		Serp: serp.NewClient(serp.Options{
			Endpoint: cfg.SerpAPIURL,
			APIKey:   cfg.SerpAPIKey,
			Engine:   cfg.SerpEngine,
			RPS:      cfg.UpstreamRPS,
			Timeout:  cfg.UpstreamTimeout,
		}),
		Auditor: audit.NewClient(audit.Options{
			Endpoint: cfg.PageSpeedAPIURL,
			APIKey:   cfg.PageSpeedAPIKey,
			Strategy: cfg.PageSpeedDevice,
			RPS:      cfg.UpstreamRPS,
			Timeout:  cfg.UpstreamTimeout,
		}),
		Pages: onpage.NewSnapshotter(15 * time.Second),
		Advisor: advice.NewGenerator(advice.Options{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Retries: 2,
		}),
		Store:    store,
		Scoring:  scoringConfig,
		Metrics:  reg,
		Stats:    storage,
		CacheTTL: cfg.UpstreamCacheTTL,
	})

	router := newRouter(&server{
		reports:    service,
		search:     scoring.NewSearchScorer(&scoringConfig.Search),
		experience: scoring.NewExperienceScorer(&scoringConfig.Experience),
		statistics: statistics,
		storage:    storage,
		metrics:    reg,
		limiter:    middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://localhost:"+cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal, stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	service.Close()
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close report store")
		}
	}
	if err := statistics.Save(); err != nil {
		log.Warn().Err(err).Msg("Failed to save statistics")
	}
	if err := storage.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("Failed to flush stats storage")
	}

	log.Info().Msg("Shutdown complete")
	return nil
}
