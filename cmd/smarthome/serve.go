package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smart-home-bot/internal/application"
	"smart-home-bot/internal/infra/httpapi"
	"smart-home-bot/internal/infra/matrix"
	"smart-home-bot/internal/infra/metrics"
	"smart-home-bot/internal/infra/pushover"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the enabled chat transports and answer commands",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()

	a, err := buildApp(ctx, cfg, recorder, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.registry.Sync(ctx); err != nil {
		logger.Warn("initial template sync failed", "error", err)
	}
	syncInterval := parseDuration(logger, "catalog.sync_interval", cfg.Catalog.SyncInterval, 5*time.Minute)
	if syncInterval > 0 {
		a.registry.StartPeriodicSync(ctx, syncInterval)
	}

	var sources []application.MessageSource
	if cfg.HTTP.Enabled {
		sources = append(sources, httpapi.NewSource(httpapi.Config{
			Addr:              cfg.HTTP.Addr,
			AuthToken:         cfg.HTTP.AuthToken,
			RequestsPerMinute: cfg.HTTP.RequestsPerMinute,
			ReplyTimeout:      parseDuration(logger, "http.reply_timeout", cfg.HTTP.ReplyTimeout, 3*time.Minute),
		}, recorder.Handler(), logger))
	}
	if cfg.Matrix.Enabled {
		src, err := matrix.NewSource(matrix.Config{
			Homeserver:  cfg.Matrix.Homeserver,
			UserID:      cfg.Matrix.UserID,
			AccessToken: cfg.Matrix.AccessToken,
			Rooms:       cfg.Matrix.Rooms,
		}, logger)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no transports enabled: set http.enabled or matrix.enabled")
	}

	var notifier application.Notifier = &application.NoopNotifier{}
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey)
	}

	assistant := application.NewAssistant(sources, a.interpreter, notifier, cfg.Assistant.Workers, logger)

	logger.Info("starting smart home assistant",
		"llm_provider", cfg.LLM.Provider,
		"embeddings_provider", cfg.Embeddings.Provider,
		"transports", len(sources),
		"workers", cfg.Assistant.Workers,
	)

	if err := assistant.Run(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("assistant: %w", err)
	}
	logger.Info("shutting down")
	return nil
}
