package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := NewClassifier()

	t.Run("known code from the static table", func(t *testing.T) {
		details := classifier.Classify(&paymentsDomain.ProviderError{
			Code:    "card_declined",
			Message: "Your card was declined.",
		})

		assert.Equal(t, "card_declined", details.Code)
		assert.Equal(t, paymentsDomain.ErrorTypeCard, details.Type)
		assert.Equal(t, paymentsDomain.CategoryUserActionRequired, details.Category)
		assert.Equal(t, paymentsDomain.SeverityMedium, details.Severity)
		assert.True(t, details.Retryable)
		assert.NotEmpty(t, details.UserMessage)
		assert.NotEmpty(t, details.ActionableSteps)
	})

	t.Run("decline code is used when code is absent", func(t *testing.T) {
		details := classifier.Classify(&paymentsDomain.ProviderError{
			DeclineCode: "insufficient_funds",
		})
		assert.Equal(t, "insufficient_funds", details.Code)
	})

	t.Run("message fallback matches case-insensitively", func(t *testing.T) {
		tests := []struct {
			message string
			code    string
		}{
			{"Your card was DECLINED by the issuer", "card_declined"},
			{"Insufficient balance on the account", "insufficient_funds"},
			{"The card has expired", "expired_card"},
			{"The security code is wrong", "incorrect_cvc"},
			{"Invalid card number provided", "incorrect_number"},
			{"Rate limit exceeded, slow down", "rate_limit"},
			{"A network timeout occurred", "network_error"},
			{"Connection reset by peer", "network_error"},
		}

		for _, tt := range tests {
			details := classifier.Classify(&paymentsDomain.ProviderError{Message: tt.message})
			assert.Equal(t, tt.code, details.Code, "message %q", tt.message)
		}
	})

	t.Run("unknown input falls back to unknown_error", func(t *testing.T) {
		details := classifier.Classify(&paymentsDomain.ProviderError{
			Code:    "brand_new_provider_code",
			Message: "something nobody has seen before",
		})

		assert.Equal(t, "brand_new_provider_code", details.Code)
		assert.Equal(t, paymentsDomain.ErrorTypeUnknown, details.Type)
		assert.Equal(t, paymentsDomain.CategoryContactSupport, details.Category)
		assert.Equal(t, paymentsDomain.SeverityHigh, details.Severity)
		assert.False(t, details.Retryable)
		assert.True(t, details.SupportInfo.ContactRecommended)
	})

	t.Run("unrecognized code is not reinterpreted from the message", func(t *testing.T) {
		details := classifier.Classify(&paymentsDomain.ProviderError{
			Code:    "issuer_unavailable",
			Message: "The card was declined by the issuer",
		})

		assert.Equal(t, paymentsDomain.ErrorTypeUnknown, details.Type)
		assert.Equal(t, paymentsDomain.CategoryContactSupport, details.Category)
		assert.False(t, details.Retryable)
	})

	t.Run("nil and empty inputs are safe", func(t *testing.T) {
		for name, raw := range map[string]*paymentsDomain.ProviderError{
			"nil error":   nil,
			"empty error": {},
			"only type":   {Type: "card_error"},
		} {
			details := classifier.Classify(raw)
			assert.Equal(t, "unknown_error", details.Code, name)
			assert.NotEmpty(t, details.UserMessage, name)
			assert.NotEmpty(t, details.ActionableSteps, name)
		}
	})

	t.Run("authentication and api codes are never auto-retried", func(t *testing.T) {
		for _, code := range []string{"api_key_expired", "invalid_request_error"} {
			details := classifier.Classify(&paymentsDomain.ProviderError{Code: code})
			assert.False(t, details.Retryable, code)
			assert.Equal(t, paymentsDomain.CategorySystemIssue, details.Category, code)
		}
	})

	t.Run("every table entry is fully populated", func(t *testing.T) {
		for code, details := range errorTable {
			require.Equal(t, code, details.Code)
			assert.NotEmpty(t, details.Type, code)
			assert.NotEmpty(t, details.Category, code)
			assert.NotEmpty(t, details.Severity, code)
			assert.NotEmpty(t, details.UserMessage, code)
			assert.NotEmpty(t, details.ActionableSteps, code)
			assert.NotEmpty(t, details.SupportInfo.Urgency, code)
		}
	})

	t.Run("every message pattern targets a table entry", func(t *testing.T) {
		for _, pattern := range messagePatterns {
			_, ok := errorTable[pattern.code]
			assert.True(t, ok, "pattern %q targets unknown code %q", pattern.substr, pattern.code)
		}
	})
}
