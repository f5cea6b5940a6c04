package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"scribe/internal/config"
	"scribe/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to the scribe config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := buildDaemon(ctx, cfg, logger)
	if err != nil {
		logger.Error("assemble daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}
	logger.Info("scribed listening", logging.String("addr", d.Addr()))

	<-ctx.Done()
	logger.Info("scribed shutting down")
}
