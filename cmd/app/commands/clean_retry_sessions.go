package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	paymentsUsecase "github.com/mediaplace/payments/internal/payments/usecase"
)

// RunCleanRetrySessions deletes terminal retry sessions (dead_letter or
// succeeded) older than the specified number of days. Active sessions are
// never touched. Supports dry-run mode and both text/JSON output formats.
func RunCleanRetrySessions(
	ctx context.Context,
	scheduler paymentsUsecase.RetrySchedulerUseCase,
	logger *slog.Logger,
	w io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("cleaning retry sessions",
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	var count int64
	var err error
	if dryRun {
		count, err = scheduler.CountTerminalOlderThan(ctx, cutoff)
	} else {
		count, err = scheduler.DeleteTerminalOlderThan(ctx, cutoff)
	}
	if err != nil {
		return fmt.Errorf("failed to clean retry sessions: %w", err)
	}

	if format == "json" {
		writeCleanJSON(w, count, days, dryRun)
	} else {
		writeCleanText(w, "retry session", count, days, dryRun)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	return nil
}
