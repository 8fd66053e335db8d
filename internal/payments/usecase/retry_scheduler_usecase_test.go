package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
	paymentsService "github.com/mediaplace/payments/internal/payments/service"
	"github.com/mediaplace/payments/internal/payments/usecase/mocks"
)

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxAttempts:        5,
		BaseDelay:          30 * time.Second,
		RateLimitBaseDelay: 150 * time.Second,
		MaxDelay:           time.Hour,
		BackoffMultiplier:  2.0,
		RetryableErrorCodes: []string{
			"processing_error", "rate_limit", "network_error",
		},
	}
}

// newTestScheduler builds a scheduler with a deterministic clock and jitter.
func newTestScheduler(
	repo RetrySessionRepository,
	now time.Time,
	jitter float64,
) *retrySchedulerUseCase {
	scheduler := NewRetrySchedulerUseCase(
		repo,
		testSchedulerConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	).(*retrySchedulerUseCase)
	scheduler.now = func() time.Time { return now }
	scheduler.jitter = func() float64 { return jitter }
	return scheduler
}

func retryableDetails(code string) *paymentsDomain.ErrorDetails {
	return &paymentsDomain.ErrorDetails{
		Code:      code,
		Type:      paymentsDomain.ErrorTypeCard,
		Category:  paymentsDomain.CategoryRetryRecommended,
		Severity:  paymentsDomain.SeverityMedium,
		Retryable: true,
	}
}

func TestRetrySchedulerUseCase_NextDelay(t *testing.T) {
	now := time.Now().UTC()

	session := func(attempt int) *paymentsDomain.RetrySession {
		return &paymentsDomain.RetrySession{
			CurrentAttempt:    attempt,
			MaxAttempts:       5,
			BaseDelay:         30 * time.Second,
			MaxDelay:          time.Hour,
			BackoffMultiplier: 2.0,
		}
	}

	t.Run("grows exponentially without jitter drift", func(t *testing.T) {
		// jitter sample 0.5 keeps the delay exactly at the raw value.
		scheduler := newTestScheduler(&mocks.MockRetrySessionRepository{}, now, 0.5)

		assert.Equal(t, 30*time.Second, scheduler.NextDelay(session(1)))
		assert.Equal(t, 60*time.Second, scheduler.NextDelay(session(2)))
		assert.Equal(t, 120*time.Second, scheduler.NextDelay(session(3)))
		assert.Equal(t, 240*time.Second, scheduler.NextDelay(session(4)))
	})

	t.Run("jitter stays within the twenty percent band", func(t *testing.T) {
		low := newTestScheduler(&mocks.MockRetrySessionRepository{}, now, 0.0)
		high := newTestScheduler(&mocks.MockRetrySessionRepository{}, now, 0.999999)

		for attempt := 1; attempt <= 5; attempt++ {
			raw := time.Duration(float64(30*time.Second) * pow(2.0, attempt-1))
			if raw > time.Hour {
				raw = time.Hour
			}

			min := low.NextDelay(session(attempt))
			max := high.NextDelay(session(attempt))

			assert.Equal(t, time.Duration(float64(raw)*0.8), min,
				"lower bound for attempt %d", attempt)
			assert.LessOrEqual(t, max, time.Hour,
				"delay must never exceed the ceiling")
			assert.GreaterOrEqual(t, max, min,
				"jitter ordering for attempt %d", attempt)
		}
	})

	t.Run("never exceeds the maximum delay", func(t *testing.T) {
		scheduler := newTestScheduler(&mocks.MockRetrySessionRepository{}, now, 0.999999)

		s := session(20)
		assert.LessOrEqual(t, scheduler.NextDelay(s), time.Hour)
	})
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

func TestRetrySchedulerUseCase_RecordFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("first failure creates a scheduled session", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		repo.On("GetActiveByOwner", ctx, "pi_1", paymentsDomain.SessionKindPaymentAttempt).
			Return(nil, paymentsDomain.ErrSessionNotFound)
		repo.On("Create", ctx, mock.AnythingOfType("*domain.RetrySession")).Return(nil)

		session, err := scheduler.RecordFailure(
			ctx, "pi_1", paymentsDomain.SessionKindPaymentAttempt, retryableDetails("processing_error"),
		)
		require.NoError(t, err)

		assert.Equal(t, 1, session.CurrentAttempt)
		assert.Equal(t, paymentsDomain.SessionStatusScheduled, session.Status)
		require.NotNil(t, session.NextRetryAt)
		assert.Equal(t, now.Add(30*time.Second), *session.NextRetryAt)
		assert.Equal(t, 1, session.Version)
	})

	t.Run("rate limit failures get the longer base delay", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		repo.On("GetActiveByOwner", ctx, "pi_rl", paymentsDomain.SessionKindPaymentAttempt).
			Return(nil, paymentsDomain.ErrSessionNotFound)
		repo.On("Create", ctx, mock.AnythingOfType("*domain.RetrySession")).Return(nil)

		details := retryableDetails("rate_limit")
		details.Type = paymentsDomain.ErrorTypeRateLimit

		session, err := scheduler.RecordFailure(
			ctx, "pi_rl", paymentsDomain.SessionKindPaymentAttempt, details,
		)
		require.NoError(t, err)
		assert.Equal(t, 150*time.Second, session.BaseDelay)
	})

	t.Run("declined card holds the session pending", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		repo.On("GetActiveByOwner", ctx, "pi_declined", paymentsDomain.SessionKindPaymentAttempt).
			Return(nil, paymentsDomain.ErrSessionNotFound)
		repo.On("Create", ctx, mock.AnythingOfType("*domain.RetrySession")).Return(nil)

		details := paymentsService.NewClassifier().Classify(
			&paymentsDomain.ProviderError{Code: "card_declined"},
		)
		session, err := scheduler.RecordFailure(
			ctx, "pi_declined", paymentsDomain.SessionKindPaymentAttempt, &details,
		)
		require.NoError(t, err)
		assert.Equal(t, paymentsDomain.SessionStatusPending, session.Status)
		assert.Nil(t, session.NextRetryAt)
	})

	t.Run("non-retryable failure creates a pending session", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		repo.On("GetActiveByOwner", ctx, "pi_2", paymentsDomain.SessionKindPaymentAttempt).
			Return(nil, paymentsDomain.ErrSessionNotFound)
		repo.On("Create", ctx, mock.AnythingOfType("*domain.RetrySession")).Return(nil)

		details := &paymentsDomain.ErrorDetails{Code: "expired_card", Retryable: false}
		session, err := scheduler.RecordFailure(
			ctx, "pi_2", paymentsDomain.SessionKindPaymentAttempt, details,
		)
		require.NoError(t, err)
		assert.Equal(t, paymentsDomain.SessionStatusPending, session.Status)
		assert.Nil(t, session.NextRetryAt)
	})

	t.Run("repeat failure advances the existing session", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		existing := &paymentsDomain.RetrySession{
			OwnerID:             "pi_3",
			Kind:                paymentsDomain.SessionKindPaymentAttempt,
			CurrentAttempt:      1,
			MaxAttempts:         5,
			BaseDelay:           30 * time.Second,
			MaxDelay:            time.Hour,
			BackoffMultiplier:   2.0,
			Status:              paymentsDomain.SessionStatusScheduled,
			RetryableErrorCodes: testSchedulerConfig().RetryableErrorCodes,
			Version:             1,
		}

		repo.On("GetActiveByOwner", ctx, "pi_3", paymentsDomain.SessionKindPaymentAttempt).
			Return(existing, nil)
		repo.On("Update", ctx, existing).Return(nil)

		session, err := scheduler.RecordFailure(
			ctx, "pi_3", paymentsDomain.SessionKindPaymentAttempt, retryableDetails("processing_error"),
		)
		require.NoError(t, err)
		assert.Equal(t, 2, session.CurrentAttempt)
		assert.Equal(t, paymentsDomain.SessionStatusScheduled, session.Status)
		require.NotNil(t, session.NextRetryAt)
		assert.Equal(t, now.Add(60*time.Second), *session.NextRetryAt)
	})
}

func TestRetrySchedulerUseCase_Advance(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("exhausted budget dead-letters the session", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		session := &paymentsDomain.RetrySession{
			OwnerID:             "pi_4",
			CurrentAttempt:      4,
			MaxAttempts:         5,
			BaseDelay:           30 * time.Second,
			MaxDelay:            time.Hour,
			BackoffMultiplier:   2.0,
			Status:              paymentsDomain.SessionStatusScheduled,
			RetryableErrorCodes: testSchedulerConfig().RetryableErrorCodes,
			Version:             4,
		}

		repo.On("Update", ctx, session).Return(nil)

		err := scheduler.Advance(ctx, session, paymentsDomain.AttemptOutcome{
			Details: retryableDetails("processing_error"),
		})
		require.NoError(t, err)

		assert.Equal(t, 5, session.CurrentAttempt)
		assert.Equal(t, paymentsDomain.SessionStatusDeadLetter, session.Status)
		assert.Nil(t, session.NextRetryAt)
	})

	t.Run("success resolves the session", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		nextRetry := now.Add(time.Minute)
		session := &paymentsDomain.RetrySession{
			OwnerID:        "pi_5",
			CurrentAttempt: 2,
			MaxAttempts:    5,
			NextRetryAt:    &nextRetry,
			Status:         paymentsDomain.SessionStatusScheduled,
		}

		repo.On("Update", ctx, session).Return(nil)

		err := scheduler.Advance(ctx, session, paymentsDomain.AttemptOutcome{Succeeded: true})
		require.NoError(t, err)
		assert.Equal(t, paymentsDomain.SessionStatusSucceeded, session.Status)
		assert.Nil(t, session.NextRetryAt)
	})

	t.Run("terminal sessions never change", func(t *testing.T) {
		scheduler := newTestScheduler(&mocks.MockRetrySessionRepository{}, now, 0.5)

		session := &paymentsDomain.RetrySession{Status: paymentsDomain.SessionStatusDeadLetter}
		err := scheduler.Advance(ctx, session, paymentsDomain.AttemptOutcome{Succeeded: true})
		assert.ErrorIs(t, err, paymentsDomain.ErrSessionTerminal)
	})

	t.Run("stale version surfaces the repository conflict", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		session := &paymentsDomain.RetrySession{
			CurrentAttempt:      1,
			MaxAttempts:         5,
			BaseDelay:           30 * time.Second,
			MaxDelay:            time.Hour,
			BackoffMultiplier:   2.0,
			Status:              paymentsDomain.SessionStatusScheduled,
			RetryableErrorCodes: testSchedulerConfig().RetryableErrorCodes,
		}

		repo.On("Update", ctx, session).Return(paymentsDomain.ErrStaleSession)

		err := scheduler.Advance(ctx, session, paymentsDomain.AttemptOutcome{
			Details: retryableDetails("processing_error"),
		})
		assert.ErrorIs(t, err, paymentsDomain.ErrStaleSession)
	})
}

func TestRetrySchedulerUseCase_ShouldAutoRetry(t *testing.T) {
	scheduler := newTestScheduler(&mocks.MockRetrySessionRepository{}, time.Now(), 0.5)

	base := func() *paymentsDomain.RetrySession {
		return &paymentsDomain.RetrySession{
			CurrentAttempt:      1,
			MaxAttempts:         5,
			Status:              paymentsDomain.SessionStatusScheduled,
			RetryableErrorCodes: []string{"card_declined", "processing_error"},
			ErrorContext:        retryableDetails("processing_error"),
		}
	}

	t.Run("retryable listed code qualifies", func(t *testing.T) {
		assert.True(t, scheduler.ShouldAutoRetry(base()))
	})

	t.Run("unlisted code does not qualify", func(t *testing.T) {
		session := base()
		session.ErrorContext = retryableDetails("expired_card")
		assert.False(t, scheduler.ShouldAutoRetry(session))
	})

	t.Run("non-retryable classification does not qualify", func(t *testing.T) {
		session := base()
		session.ErrorContext.Retryable = false
		assert.False(t, scheduler.ShouldAutoRetry(session))
	})

	t.Run("exhausted budget does not qualify", func(t *testing.T) {
		session := base()
		session.CurrentAttempt = 5
		assert.False(t, scheduler.ShouldAutoRetry(session))
	})

	t.Run("terminal session does not qualify", func(t *testing.T) {
		session := base()
		session.Status = paymentsDomain.SessionStatusDeadLetter
		assert.False(t, scheduler.ShouldAutoRetry(session))
	})

	t.Run("missing error context does not qualify", func(t *testing.T) {
		session := base()
		session.ErrorContext = nil
		assert.False(t, scheduler.ShouldAutoRetry(session))
	})

	t.Run("shopper action required never qualifies", func(t *testing.T) {
		// card_declined is retryable and on the allow-list, but its category
		// demands shopper action; the session must wait for the storefront.
		session := base()
		details := paymentsService.NewClassifier().Classify(
			&paymentsDomain.ProviderError{Code: "card_declined"},
		)
		session.ErrorContext = &details
		assert.False(t, scheduler.ShouldAutoRetry(session))
	})
}

func TestRetrySchedulerUseCase_Reprocess(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("resets a dead-lettered session", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		sessionID := newUUID(t)
		session := &paymentsDomain.RetrySession{
			SessionID:      sessionID,
			CurrentAttempt: 5,
			MaxAttempts:    5,
			Status:         paymentsDomain.SessionStatusDeadLetter,
			Version:        6,
		}

		repo.On("GetBySessionID", ctx, sessionID).Return(session, nil)
		repo.On("Update", ctx, session).Return(nil)

		updated, err := scheduler.Reprocess(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 0, updated.CurrentAttempt)
		assert.Equal(t, paymentsDomain.SessionStatusScheduled, updated.Status)
		require.NotNil(t, updated.NextRetryAt)
		assert.Equal(t, now, *updated.NextRetryAt)
	})

	t.Run("refuses sessions that are not dead-lettered", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		sessionID := newUUID(t)
		repo.On("GetBySessionID", ctx, sessionID).Return(&paymentsDomain.RetrySession{
			SessionID: sessionID,
			Status:    paymentsDomain.SessionStatusScheduled,
		}, nil)

		_, err := scheduler.Reprocess(ctx, sessionID)
		assert.ErrorIs(t, err, paymentsDomain.ErrSessionNotDeadLetter)
	})
}

func TestRetrySchedulerUseCase_DeleteDeadLetter(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("deletes after checking status", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		sessionID := newUUID(t)
		repo.On("GetBySessionID", ctx, sessionID).Return(&paymentsDomain.RetrySession{
			SessionID:    sessionID,
			Status:       paymentsDomain.SessionStatusDeadLetter,
			ErrorContext: retryableDetails("processing_error"),
		}, nil)
		repo.On("Delete", ctx, sessionID).Return(nil)

		require.NoError(t, scheduler.DeleteDeadLetter(ctx, sessionID))
		repo.AssertExpectations(t)
	})

	t.Run("refuses active sessions", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		sessionID := newUUID(t)
		repo.On("GetBySessionID", ctx, sessionID).Return(&paymentsDomain.RetrySession{
			SessionID: sessionID,
			Status:    paymentsDomain.SessionStatusPending,
		}, nil)

		err := scheduler.DeleteDeadLetter(ctx, sessionID)
		assert.ErrorIs(t, err, paymentsDomain.ErrSessionNotDeadLetter)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestRetrySchedulerUseCase_ResolveSuccess(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("missing session is fine", func(t *testing.T) {
		repo := &mocks.MockRetrySessionRepository{}
		scheduler := newTestScheduler(repo, now, 0.5)

		repo.On("GetActiveByOwner", ctx, "pi_ok", paymentsDomain.SessionKindPaymentAttempt).
			Return(nil, paymentsDomain.ErrSessionNotFound)

		err := scheduler.ResolveSuccess(ctx, "pi_ok", paymentsDomain.SessionKindPaymentAttempt)
		assert.NoError(t, err)
	})
}
