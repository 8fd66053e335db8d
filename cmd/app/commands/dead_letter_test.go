package commands

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
	paymentsMocks "github.com/mediaplace/payments/internal/payments/usecase/mocks"
)

func TestRunReprocessDeadLetter(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	sessionID := uuid.New()

	t.Run("success", func(t *testing.T) {
		session := &paymentsDomain.RetrySession{
			SessionID: sessionID,
			Status:    paymentsDomain.SessionStatusScheduled,
		}
		mockScheduler := &paymentsMocks.MockRetrySchedulerUseCase{}
		mockScheduler.On("Reprocess", ctx, sessionID).Return(session, nil)

		var out bytes.Buffer
		err := RunReprocessDeadLetter(ctx, mockScheduler, logger, &out, sessionID.String())

		require.NoError(t, err)
		require.Contains(t, out.String(), "reset for reprocessing")
		mockScheduler.AssertExpectations(t)
	})

	t.Run("invalid-id", func(t *testing.T) {
		mockScheduler := &paymentsMocks.MockRetrySchedulerUseCase{}

		err := RunReprocessDeadLetter(ctx, mockScheduler, logger, &bytes.Buffer{}, "not-a-uuid")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid session id")
		mockScheduler.AssertNotCalled(t, "Reprocess", mock.Anything, mock.Anything)
	})
}

func TestRunDeleteDeadLetter(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	sessionID := uuid.New()

	t.Run("success", func(t *testing.T) {
		mockScheduler := &paymentsMocks.MockRetrySchedulerUseCase{}
		mockScheduler.On("DeleteDeadLetter", ctx, sessionID).Return(nil)

		var out bytes.Buffer
		err := RunDeleteDeadLetter(ctx, mockScheduler, logger, &out, sessionID.String())

		require.NoError(t, err)
		require.Contains(t, out.String(), "deleted")
		mockScheduler.AssertExpectations(t)
	})

	t.Run("invalid-id", func(t *testing.T) {
		mockScheduler := &paymentsMocks.MockRetrySchedulerUseCase{}

		err := RunDeleteDeadLetter(ctx, mockScheduler, logger, &bytes.Buffer{}, "42")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid session id")
		mockScheduler.AssertNotCalled(t, "DeleteDeadLetter", mock.Anything, mock.Anything)
	})
}
