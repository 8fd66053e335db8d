package usecase

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/mediaplace/payments/internal/errors"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

// SchedulerConfig carries the backoff policy applied to new retry sessions.
type SchedulerConfig struct {
	MaxAttempts int
	// BaseDelay seeds the exponential backoff. RateLimitBaseDelay replaces it
	// when the triggering failure is a provider rate limit.
	BaseDelay          time.Duration
	RateLimitBaseDelay time.Duration
	MaxDelay           time.Duration
	BackoffMultiplier  float64
	// RetryableErrorCodes is the allow-list for automatic retries. Codes
	// outside it leave the session pending until something else resolves it.
	RetryableErrorCodes []string
}

// retrySchedulerUseCase implements the RetrySchedulerUseCase interface.
type retrySchedulerUseCase struct {
	sessionRepo RetrySessionRepository
	config      SchedulerConfig
	logger      *slog.Logger
	now         func() time.Time
	// jitter returns a uniform sample in [0, 1).
	jitter func() float64
}

// RecordFailure registers a failed attempt for the owner. The first failure
// creates the session; subsequent ones advance it.
func (r *retrySchedulerUseCase) RecordFailure(
	ctx context.Context,
	ownerID string,
	kind paymentsDomain.SessionKind,
	details *paymentsDomain.ErrorDetails,
) (*paymentsDomain.RetrySession, error) {
	session, err := r.sessionRepo.GetActiveByOwner(ctx, ownerID, kind)
	if err != nil {
		if !apperrors.Is(err, paymentsDomain.ErrSessionNotFound) {
			return nil, err
		}
		return r.createSession(ctx, ownerID, kind, details)
	}

	outcome := paymentsDomain.AttemptOutcome{Details: details}
	if err := r.Advance(ctx, session, outcome); err != nil {
		return nil, err
	}
	return session, nil
}

// createSession opens a session for the failure that triggered it. That
// failure counts as the first attempt, so the counter always equals the
// number of failures observed and a session failing MaxAttempts times in
// total dead-letters at CurrentAttempt == MaxAttempts.
func (r *retrySchedulerUseCase) createSession(
	ctx context.Context,
	ownerID string,
	kind paymentsDomain.SessionKind,
	details *paymentsDomain.ErrorDetails,
) (*paymentsDomain.RetrySession, error) {
	now := r.now().UTC()

	baseDelay := r.config.BaseDelay
	if details != nil && details.Type == paymentsDomain.ErrorTypeRateLimit {
		baseDelay = r.config.RateLimitBaseDelay
	}

	session := &paymentsDomain.RetrySession{
		SessionID:           uuid.Must(uuid.NewV7()),
		OwnerID:             ownerID,
		Kind:                kind,
		CurrentAttempt:      1,
		MaxAttempts:         r.config.MaxAttempts,
		BaseDelay:           baseDelay,
		MaxDelay:            r.config.MaxDelay,
		BackoffMultiplier:   r.config.BackoffMultiplier,
		Status:              paymentsDomain.SessionStatusPending,
		RetryableErrorCodes: slices.Clone(r.config.RetryableErrorCodes),
		ErrorContext:        details,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if r.ShouldAutoRetry(session) {
		nextRetry := now.Add(r.NextDelay(session))
		session.NextRetryAt = &nextRetry
		session.Status = paymentsDomain.SessionStatusScheduled
	}

	if err := r.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	r.logger.Info("retry session created",
		"session_id", session.SessionID,
		"owner_id", ownerID,
		"kind", kind,
		"status", session.Status,
		"next_retry_at", session.NextRetryAt,
	)
	return session, nil
}

// ResolveSuccess closes the owner's active session. A missing session is fine:
// most operations succeed without ever failing first.
func (r *retrySchedulerUseCase) ResolveSuccess(
	ctx context.Context,
	ownerID string,
	kind paymentsDomain.SessionKind,
) error {
	session, err := r.sessionRepo.GetActiveByOwner(ctx, ownerID, kind)
	if err != nil {
		if apperrors.Is(err, paymentsDomain.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return r.Advance(ctx, session, paymentsDomain.AttemptOutcome{Succeeded: true})
}

// DueSessions lists scheduled sessions whose retry time has passed.
func (r *retrySchedulerUseCase) DueSessions(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*paymentsDomain.RetrySession, error) {
	return r.sessionRepo.ListDue(ctx, now, limit)
}

// Advance applies one attempt outcome. Terminal sessions never change; the
// version guard serializes concurrent advancement across instances.
func (r *retrySchedulerUseCase) Advance(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
	outcome paymentsDomain.AttemptOutcome,
) error {
	if session.IsTerminal() {
		return paymentsDomain.ErrSessionTerminal
	}

	now := r.now().UTC()
	session.UpdatedAt = now

	if outcome.Succeeded {
		session.Status = paymentsDomain.SessionStatusSucceeded
		session.NextRetryAt = nil
		if err := r.sessionRepo.Update(ctx, session); err != nil {
			return err
		}
		r.logger.Info("retry session resolved",
			"session_id", session.SessionID,
			"owner_id", session.OwnerID,
			"attempts", session.CurrentAttempt,
		)
		return nil
	}

	session.CurrentAttempt++
	if outcome.Details != nil {
		session.ErrorContext = outcome.Details
	}

	switch {
	case session.AttemptsExhausted():
		session.Status = paymentsDomain.SessionStatusDeadLetter
		session.NextRetryAt = nil
	case r.ShouldAutoRetry(session):
		nextRetry := now.Add(r.NextDelay(session))
		session.NextRetryAt = &nextRetry
		session.Status = paymentsDomain.SessionStatusScheduled
	default:
		session.Status = paymentsDomain.SessionStatusPending
		session.NextRetryAt = nil
	}

	if err := r.sessionRepo.Update(ctx, session); err != nil {
		return err
	}

	if session.Status == paymentsDomain.SessionStatusDeadLetter {
		r.logger.Error("retry session dead-lettered",
			"session_id", session.SessionID,
			"owner_id", session.OwnerID,
			"kind", session.Kind,
			"attempts", session.CurrentAttempt,
		)
	} else {
		r.logger.Info("retry session advanced",
			"session_id", session.SessionID,
			"owner_id", session.OwnerID,
			"attempt", session.CurrentAttempt,
			"status", session.Status,
			"next_retry_at", session.NextRetryAt,
		)
	}
	return nil
}

// ShouldAutoRetry reports whether the session qualifies for another automatic
// attempt: budget remaining, not terminal, classifier verdict retryable, and
// the last error code on the session's allow-list. Failures the shopper must
// act on (a declined card, insufficient funds) are never auto-retried; the
// session holds pending until the storefront resolves it.
func (r *retrySchedulerUseCase) ShouldAutoRetry(session *paymentsDomain.RetrySession) bool {
	if session.IsTerminal() || session.AttemptsExhausted() {
		return false
	}
	details := session.ErrorContext
	if details == nil || !details.Retryable {
		return false
	}
	if details.Category == paymentsDomain.CategoryUserActionRequired {
		return false
	}
	return slices.Contains(session.RetryableErrorCodes, details.Code)
}

// NextDelay computes the exponential backoff delay for the session's next
// attempt with a ±20% jitter, never exceeding MaxDelay. The jitter decorrelates
// retries across sessions created by the same incident.
func (r *retrySchedulerUseCase) NextDelay(session *paymentsDomain.RetrySession) time.Duration {
	exponent := float64(session.CurrentAttempt - 1)
	if exponent < 0 {
		exponent = 0
	}

	raw := float64(session.BaseDelay) * math.Pow(session.BackoffMultiplier, exponent)
	capped := math.Min(raw, float64(session.MaxDelay))

	jittered := capped * (0.8 + 0.4*r.jitter())
	bounded := math.Min(jittered, float64(session.MaxDelay))

	return time.Duration(bounded)
}

// ListDeadLetter lists dead-lettered sessions for operator review.
func (r *retrySchedulerUseCase) ListDeadLetter(
	ctx context.Context,
	limit int,
	offset int,
) ([]*paymentsDomain.RetrySession, error) {
	return r.sessionRepo.ListByStatus(ctx, paymentsDomain.SessionStatusDeadLetter, limit, offset)
}

// Reprocess resets a dead-lettered session to attempt zero with an immediate
// retry. Only dead-lettered sessions qualify.
func (r *retrySchedulerUseCase) Reprocess(
	ctx context.Context,
	sessionID uuid.UUID,
) (*paymentsDomain.RetrySession, error) {
	session, err := r.sessionRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != paymentsDomain.SessionStatusDeadLetter {
		return nil, paymentsDomain.ErrSessionNotDeadLetter
	}

	now := r.now().UTC()
	session.CurrentAttempt = 0
	session.Status = paymentsDomain.SessionStatusScheduled
	session.NextRetryAt = &now
	session.UpdatedAt = now

	if err := r.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	r.logger.Info("dead-lettered session queued for reprocessing",
		"session_id", session.SessionID,
		"owner_id", session.OwnerID,
		"kind", session.Kind,
	)
	return session, nil
}

// DeleteDeadLetter removes a dead-lettered session. The audit log entry is the
// only remaining trace, so it carries the full identity of what was dropped.
func (r *retrySchedulerUseCase) DeleteDeadLetter(ctx context.Context, sessionID uuid.UUID) error {
	session, err := r.sessionRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != paymentsDomain.SessionStatusDeadLetter {
		return paymentsDomain.ErrSessionNotDeadLetter
	}

	if err := r.sessionRepo.Delete(ctx, sessionID); err != nil {
		return err
	}

	errorCode := ""
	if session.ErrorContext != nil {
		errorCode = session.ErrorContext.Code
	}
	r.logger.Warn("dead-lettered session deleted",
		"session_id", session.SessionID,
		"owner_id", session.OwnerID,
		"kind", session.Kind,
		"attempts", session.CurrentAttempt,
		"error_code", errorCode,
	)
	return nil
}

// CountTerminalOlderThan counts terminal sessions eligible for cleanup.
func (r *retrySchedulerUseCase) CountTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	return r.sessionRepo.CountTerminalOlderThan(ctx, cutoff)
}

// DeleteTerminalOlderThan purges terminal sessions past retention.
func (r *retrySchedulerUseCase) DeleteTerminalOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	return r.sessionRepo.DeleteTerminalOlderThan(ctx, cutoff)
}

// NewRetrySchedulerUseCase creates a new retry scheduler use case instance.
func NewRetrySchedulerUseCase(
	sessionRepo RetrySessionRepository,
	config SchedulerConfig,
	logger *slog.Logger,
) RetrySchedulerUseCase {
	return &retrySchedulerUseCase{
		sessionRepo: sessionRepo,
		config:      config,
		logger:      logger,
		now:         time.Now,
		jitter:      rand.Float64,
	}
}
