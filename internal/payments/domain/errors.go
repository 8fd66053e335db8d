// Package domain defines core domain models and errors for the payment engine.
package domain

import (
	"github.com/mediaplace/payments/internal/errors"
)

// Webhook verification errors. These are surfaced as 400-equivalents and must
// never trigger a retry: retrying a forged or malformed request achieves
// nothing and could mask tampering.
var (
	// ErrSignatureMissing indicates the signature header was absent.
	ErrSignatureMissing = errors.New("webhook signature header missing")

	// ErrSignatureMalformed indicates the signature header could not be parsed.
	ErrSignatureMalformed = errors.New("webhook signature header malformed")

	// ErrSignatureMismatch indicates the recomputed HMAC did not match.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")

	// ErrTimestampOutOfTolerance indicates the signed timestamp fell outside
	// the replay window.
	ErrTimestampOutOfTolerance = errors.New("webhook timestamp outside tolerance")
)

// IsVerificationError reports whether err is a webhook verification failure.
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrSignatureMissing) ||
		errors.Is(err, ErrSignatureMalformed) ||
		errors.Is(err, ErrSignatureMismatch) ||
		errors.Is(err, ErrTimestampOutOfTolerance)
}

// Dispatch and scheduling errors.
var (
	// ErrOrderNotFound indicates no order matches the event's payment
	// reference: a data inconsistency, not a transient fault.
	ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "order not found for payment reference")

	// ErrEventNotFound indicates the webhook event is absent from the ledger.
	ErrEventNotFound = errors.Wrap(errors.ErrNotFound, "webhook event not found")

	// ErrSessionNotFound indicates the retry session does not exist.
	ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "retry session not found")

	// ErrSessionTerminal indicates a mutation was attempted on a dead-letter
	// or succeeded session.
	ErrSessionTerminal = errors.Wrap(errors.ErrConflict, "retry session is terminal")

	// ErrSessionNotDeadLetter indicates a dead-letter recovery action was
	// attempted on a session that is not dead-lettered.
	ErrSessionNotDeadLetter = errors.Wrap(errors.ErrConflict, "retry session is not dead-lettered")

	// ErrStaleSession indicates a concurrent writer advanced the session
	// first (optimistic version check failed).
	ErrStaleSession = errors.Wrap(errors.ErrConflict, "retry session version is stale")
)
