package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks a retry session through its lifecycle.
type SessionStatus string

const (
	// SessionStatusPending means the session exists but automatic retry is not
	// scheduled (e.g. the failure needs user action first).
	SessionStatusPending SessionStatus = "pending"
	// SessionStatusScheduled means an automatic retry is due at NextRetryAt.
	SessionStatusScheduled SessionStatus = "scheduled"
	// SessionStatusDeadLetter is terminal: the retry budget is exhausted and
	// the session needs manual intervention.
	SessionStatusDeadLetter SessionStatus = "dead_letter"
	// SessionStatusSucceeded is terminal: a retry attempt succeeded.
	SessionStatusSucceeded SessionStatus = "succeeded"
)

// SessionKind distinguishes what a session is retrying.
type SessionKind string

const (
	// SessionKindPaymentAttempt tracks a shopper's failed payment. The engine
	// schedules and exposes these; re-charging the card is the storefront's
	// move, not ours.
	SessionKindPaymentAttempt SessionKind = "payment_attempt"
	// SessionKindWebhookProcessing tracks a webhook whose dispatch failed on
	// a transient fault; the retry worker re-dispatches it from the ledger.
	SessionKindWebhookProcessing SessionKind = "webhook_processing"
)

// RetrySession is the persisted state of one retryable failing operation.
type RetrySession struct {
	SessionID uuid.UUID
	// OwnerID keys the session: a payment reference for payment attempts, the
	// provider event ID for webhook processing.
	OwnerID string
	Kind    SessionKind
	// CurrentAttempt counts failures so far; invariant CurrentAttempt <= MaxAttempts.
	CurrentAttempt int
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	BackoffMultiplier float64
	// NextRetryAt is when the next automatic attempt is due (nil when pending
	// or terminal).
	NextRetryAt *time.Time
	Status      SessionStatus
	// RetryableErrorCodes is the set of error codes eligible for auto-retry.
	RetryableErrorCodes []string
	// ErrorContext is the last classified error.
	ErrorContext *ErrorDetails
	// Version guards concurrent advancement (optimistic compare-and-swap).
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether the session may never change again.
func (s *RetrySession) IsTerminal() bool {
	return s.Status == SessionStatusDeadLetter || s.Status == SessionStatusSucceeded
}

// IsActive reports whether the session still tracks an unresolved failure.
func (s *RetrySession) IsActive() bool {
	return !s.IsTerminal()
}

// AttemptsExhausted reports whether the retry budget is spent.
func (s *RetrySession) AttemptsExhausted() bool {
	return s.CurrentAttempt >= s.MaxAttempts
}

// AttemptOutcome reports how one retry attempt went.
type AttemptOutcome struct {
	Succeeded bool
	// Details classifies the failure when Succeeded is false.
	Details *ErrorDetails
}
