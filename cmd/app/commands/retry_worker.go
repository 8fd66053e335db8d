package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediaplace/payments/internal/app"
	"github.com/mediaplace/payments/internal/config"
)

// RunRetryWorker starts the background retry worker with graceful shutdown
// support. The worker scans due retry sessions on a fixed interval and applies
// one attempt to each; multiple instances may run side by side because the
// session version guard serializes concurrent advances.
func RunRetryWorker(ctx context.Context) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get retry worker from container (this initializes all dependencies)
	worker, err := container.RetryWorker()
	if err != nil {
		return fmt.Errorf("failed to initialize retry worker: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("retry worker error: %w", err)
	}

	return nil
}
