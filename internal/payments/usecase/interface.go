// Package usecase defines the interfaces and implementations for payment event
// processing use cases. Use cases orchestrate the signature verifier, the
// idempotency ledger, the order store and the retry scheduler to implement the
// engine's delivery guarantees.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

// WebhookEventRepository defines the interface for the idempotency ledger.
type WebhookEventRepository interface {
	// RecordIfNew atomically claims the provider event ID. Returns false when
	// the event was already recorded.
	RecordIfNew(ctx context.Context, event *paymentsDomain.WebhookEvent) (bool, error)
	GetByProviderEventID(ctx context.Context, providerEventID string) (*paymentsDomain.WebhookEvent, error)
	UpdateStatus(
		ctx context.Context,
		id uuid.UUID,
		status paymentsDomain.ProcessingStatus,
		lastError *string,
		processedAt *time.Time,
	) error
	CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetrySessionRepository defines the interface for retry session persistence.
type RetrySessionRepository interface {
	Create(ctx context.Context, session *paymentsDomain.RetrySession) error
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*paymentsDomain.RetrySession, error)
	GetActiveByOwner(
		ctx context.Context,
		ownerID string,
		kind paymentsDomain.SessionKind,
	) (*paymentsDomain.RetrySession, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*paymentsDomain.RetrySession, error)
	ListByStatus(
		ctx context.Context,
		status paymentsDomain.SessionStatus,
		limit int,
		offset int,
	) ([]*paymentsDomain.RetrySession, error)
	// Update persists mutable fields guarded by the session version. Returns
	// ErrStaleSession when a concurrent writer advanced the row first.
	Update(ctx context.Context, session *paymentsDomain.RetrySession) error
	Delete(ctx context.Context, sessionID uuid.UUID) error
	CountTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderStore defines the interface to the marketplace order collaborator.
type OrderStore interface {
	FindByPaymentReference(ctx context.Context, paymentReference string) (*paymentsDomain.Order, error)
	// UpdateStatus applies one atomic order mutation.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, update paymentsDomain.OrderUpdate) error
}

// DispatcherUseCase defines the interface for inbound webhook processing.
type DispatcherUseCase interface {
	// Dispatch verifies, records and processes one provider delivery. The raw
	// body is the exact bytes received; verification happens before anything
	// else touches them.
	Dispatch(
		ctx context.Context,
		rawBody []byte,
		signatureHeader string,
	) (*paymentsDomain.DispatchResult, error)
	// Redispatch re-runs processing for an event already in the ledger. Used
	// by the retry worker; the signature was verified on first receipt.
	Redispatch(ctx context.Context, providerEventID string) error
}

// RetrySchedulerUseCase defines the interface for retry session lifecycle
// management.
type RetrySchedulerUseCase interface {
	// RecordFailure registers a failed attempt for the owner, creating a
	// session on first failure and advancing the existing one afterwards.
	RecordFailure(
		ctx context.Context,
		ownerID string,
		kind paymentsDomain.SessionKind,
		details *paymentsDomain.ErrorDetails,
	) (*paymentsDomain.RetrySession, error)
	// ResolveSuccess closes the owner's active session after the underlying
	// operation succeeded through another path. Missing sessions are fine.
	ResolveSuccess(ctx context.Context, ownerID string, kind paymentsDomain.SessionKind) error
	DueSessions(ctx context.Context, now time.Time, limit int) ([]*paymentsDomain.RetrySession, error)
	// Advance applies one attempt outcome to the session under the version
	// guard.
	Advance(
		ctx context.Context,
		session *paymentsDomain.RetrySession,
		outcome paymentsDomain.AttemptOutcome,
	) error
	// ShouldAutoRetry reports whether the session qualifies for another
	// automatic attempt.
	ShouldAutoRetry(session *paymentsDomain.RetrySession) bool
	// NextDelay computes the jittered backoff delay for the session's next
	// attempt.
	NextDelay(session *paymentsDomain.RetrySession) time.Duration
	ListDeadLetter(ctx context.Context, limit int, offset int) ([]*paymentsDomain.RetrySession, error)
	// Reprocess resets a dead-lettered session for an immediate new attempt.
	Reprocess(ctx context.Context, sessionID uuid.UUID) (*paymentsDomain.RetrySession, error)
	// DeleteDeadLetter removes a dead-lettered session after audit logging.
	DeleteDeadLetter(ctx context.Context, sessionID uuid.UUID) error
	CountTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retrier executes one retry attempt for a due session.
type Retrier interface {
	Retry(ctx context.Context, session *paymentsDomain.RetrySession) paymentsDomain.AttemptOutcome
}
