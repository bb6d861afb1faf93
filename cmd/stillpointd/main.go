package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"stillpoint/internal/clock"
	"stillpoint/internal/config"
	"stillpoint/internal/daemon"
	"stillpoint/internal/engine"
	"stillpoint/internal/kvstore"
	"stillpoint/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "stillpointd.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := kvstore.Open(cfg, clock.System())
	if err != nil {
		logger.Error("open store", logging.Error(err))
		os.Exit(1)
	}

	eng, err := engine.New(cfg, store, logger)
	if err != nil {
		logger.Error("create engine", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}

	d, err := daemon.New(cfg, store, eng, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("stillpointd shutting down")
	d.Stop()
}
