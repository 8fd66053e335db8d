package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	paymentsUsecase "github.com/mediaplace/payments/internal/payments/usecase"
)

// RunCleanWebhookEvents deletes webhook ledger entries older than the
// specified number of days. Deleting an entry forgets the event's idempotency
// claim, so the retention window must exceed the provider's redelivery
// horizon. Supports dry-run mode and both text/JSON output formats.
func RunCleanWebhookEvents(
	ctx context.Context,
	eventRepo paymentsUsecase.WebhookEventRepository,
	logger *slog.Logger,
	w io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("cleaning webhook events",
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	var count int64
	var err error
	if dryRun {
		count, err = eventRepo.CountOlderThan(ctx, cutoff)
	} else {
		count, err = eventRepo.DeleteOlderThan(ctx, cutoff)
	}
	if err != nil {
		return fmt.Errorf("failed to clean webhook events: %w", err)
	}

	if format == "json" {
		writeCleanJSON(w, count, days, dryRun)
	} else {
		writeCleanText(w, "webhook event", count, days, dryRun)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	return nil
}

// writeCleanText outputs the result in human-readable text format.
func writeCleanText(w io.Writer, noun string, count int64, days int, dryRun bool) {
	if dryRun {
		fmt.Fprintf(w, "Dry-run mode: Would delete %d %s(s) older than %d day(s)\n", count, noun, days)
	} else {
		fmt.Fprintf(w, "Successfully deleted %d %s(s) older than %d day(s)\n", count, noun, days)
	}
}

// writeCleanJSON outputs the result in JSON format for machine consumption.
func writeCleanJSON(w io.Writer, count int64, days int, dryRun bool) {
	result := map[string]interface{}{
		"count":   count,
		"days":    days,
		"dry_run": dryRun,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(w, string(jsonBytes))
}
