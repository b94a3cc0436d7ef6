package main

import (
	"context"
	"log/slog"
	"os"

	"emianalyzer/internal/cli"
)

func main() {
	// Load .env file for local development (ignored in production)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := cli.RunWorker(ctx, cfg, logger, true); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
