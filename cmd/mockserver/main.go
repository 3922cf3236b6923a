package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"streamqa/internal/server"
	"streamqa/pkg/config"
	"streamqa/pkg/logger"
)

func main() {
	// Try multiple config paths
	cfg, path, err := config.LoadFirst(
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/streamqa/config.yaml",
		"config.yaml",
	)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()
	if err != nil {
		log.Warnw("config could not be loaded, using defaults", "error", err)
	} else if path != "" {
		log.Infow("config loaded", "path", path)
	}

	srv, err := server.New(context.Background(), cfg, zapLogger)
	if err != nil {
		log.Fatalw("failed to create server", "error", err)
	}

	if err := srv.Start(); err != nil {
		log.Fatalw("failed to start server", "error", err)
	}
	log.Infow("mock streaming server started", "url", srv.URL())

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-srv.Err():
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during shutdown", "error", err)
	}
}
