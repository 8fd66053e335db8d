// Package service implements the stateless payment-engine services: webhook
// signature verification and provider error classification.
package service

import (
	"time"

	"github.com/mediaplace/payments/internal/payments/domain"
)

// SignatureVerifier validates the authenticity of an inbound webhook request
// before anything else touches it.
type SignatureVerifier interface {
	// Verify checks the signature header against the raw body and returns the
	// parsed event envelope. Fails with one of the domain verification errors
	// when the signature is absent, malformed, mismatched or replayed.
	Verify(rawBody []byte, signatureHeader string, now time.Time) (*domain.EventEnvelope, error)
}

// Classifier maps a raw provider error into a fully populated ErrorDetails.
// Pure and deterministic: no I/O, never fails, nil-safe.
type Classifier interface {
	Classify(raw *domain.ProviderError) domain.ErrorDetails
}
