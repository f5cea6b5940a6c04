package main

import (
	"context"
	"log/slog"
	"time"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/progress"
	"scribe/internal/runner"
	"scribe/internal/server"
	"scribe/internal/services/whisper"
)

const hubCapacity = 512

// buildDaemon wires the full service stack behind a single daemon handle.
func buildDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := jobs.Open(ctx, logger)
	if err != nil {
		return nil, err
	}

	retention := time.Duration(cfg.Jobs.RetentionMinutes) * time.Minute
	registry := jobs.NewRegistry(store, logger, retention, cfg.Jobs.MaxJobs)
	hub := progress.NewHub(hubCapacity)

	engine := whisper.New(cfg.Engine)
	logger.Info("transcription engine configured",
		logging.String("binary", cfg.Engine.Binary),
		logging.String("model", engine.Model()))
	notifier := notifications.NewService(cfg, logger)
	manager := runner.NewManager(cfg, registry, hub, engine, notifier, logger)
	svc := api.NewJobService(cfg, registry, hub, manager, logger)
	srv := server.New(cfg, svc, hub, logger)

	d, err := daemon.New(cfg, store, registry, hub, manager, srv, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return d, nil
}
