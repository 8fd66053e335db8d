package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	paymentsUsecase "github.com/mediaplace/payments/internal/payments/usecase"
)

// RunReprocessDeadLetter resets a dead-lettered retry session so the worker
// picks it up for an immediate new attempt. Only dead-lettered sessions can
// be reprocessed; active sessions belong to the scheduler.
func RunReprocessDeadLetter(
	ctx context.Context,
	scheduler paymentsUsecase.RetrySchedulerUseCase,
	logger *slog.Logger,
	w io.Writer,
	id string,
) error {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid session id: %s", id)
	}

	session, err := scheduler.Reprocess(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to reprocess session: %w", err)
	}

	logger.Info("session reprocessed",
		slog.String("session_id", sessionID.String()),
		slog.String("status", string(session.Status)),
	)

	fmt.Fprintf(w, "Session %s reset for reprocessing (status: %s)\n", sessionID, session.Status)
	return nil
}

// RunDeleteDeadLetter removes a dead-lettered retry session after manual
// review determined it will never succeed.
func RunDeleteDeadLetter(
	ctx context.Context,
	scheduler paymentsUsecase.RetrySchedulerUseCase,
	logger *slog.Logger,
	w io.Writer,
	id string,
) error {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid session id: %s", id)
	}

	if err := scheduler.DeleteDeadLetter(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	logger.Info("session deleted", slog.String("session_id", sessionID.String()))

	fmt.Fprintf(w, "Session %s deleted\n", sessionID)
	return nil
}
