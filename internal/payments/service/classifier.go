package service

import (
	"strings"

	"github.com/mediaplace/payments/internal/payments/domain"
)

// classifier implements Classifier with a static code table and a
// message-pattern fallback. The table is the single source of truth for how
// every downstream component reacts to a provider failure.
type classifier struct{}

// NewClassifier creates the provider error classifier.
func NewClassifier() Classifier {
	return &classifier{}
}

// Classify maps a raw provider error to its classified form. Total: any
// input, including nil, yields a fully populated ErrorDetails.
func (c *classifier) Classify(raw *domain.ProviderError) domain.ErrorDetails {
	if raw == nil {
		return unknownError("", "")
	}

	code := strings.ToLower(strings.TrimSpace(raw.Code))
	if code == "" && raw.DeclineCode != "" {
		code = strings.ToLower(strings.TrimSpace(raw.DeclineCode))
	}

	if details, ok := errorTable[code]; ok {
		details.ProviderMessage = raw.Message
		return details
	}

	// The message fallback applies only when no code was supplied; an
	// unrecognized code classifies as unknown_error.
	if code == "" {
		if match := matchMessage(raw.Message); match != "" {
			details := errorTable[match]
			details.ProviderMessage = raw.Message
			return details
		}
	}

	return unknownError(raw.Code, raw.Message)
}

// messagePatterns maps case-insensitive message substrings to table codes.
// Evaluated in order; first match wins.
var messagePatterns = []struct {
	substr string
	code   string
}{
	{"declined", "card_declined"},
	{"insufficient", "insufficient_funds"},
	{"expired", "expired_card"},
	{"security code", "incorrect_cvc"},
	{"cvc", "incorrect_cvc"},
	{"card number", "incorrect_number"},
	{"rate limit", "rate_limit"},
	{"network", "network_error"},
	{"connection", "network_error"},
	{"authentication required", "authentication_required"},
}

// matchMessage returns the table code whose pattern first matches message,
// or "" when nothing matches.
func matchMessage(message string) string {
	if message == "" {
		return ""
	}
	lower := strings.ToLower(message)
	for _, p := range messagePatterns {
		if strings.Contains(lower, p.substr) {
			return p.code
		}
	}
	return ""
}

// unknownError is the guaranteed fallback arm.
func unknownError(code, message string) domain.ErrorDetails {
	if code == "" {
		code = "unknown_error"
	}
	return domain.ErrorDetails{
		Code:            code,
		ProviderMessage: message,
		Type:            domain.ErrorTypeUnknown,
		Category:        domain.CategoryContactSupport,
		Severity:        domain.SeverityHigh,
		Retryable:       false,
		UserMessage:     "Something went wrong while processing your payment.",
		ActionableSteps: []string{
			"Try again in a few minutes",
			"Contact support if the problem persists",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   true,
			Urgency:              "high",
			IncludeTransactionID: true,
		},
	}
}

// errorTable is the static classification table keyed by provider error code.
// Authentication and most API codes are deliberately non-retryable with
// system_issue/critical grading: they signal misconfiguration, not a
// transient fault, and must never be auto-retried.
var errorTable = map[string]domain.ErrorDetails{
	"card_declined": {
		Code:        "card_declined",
		Type:        domain.ErrorTypeCard,
		Category:    domain.CategoryUserActionRequired,
		Severity:    domain.SeverityMedium,
		Retryable:   true,
		UserMessage: "Your card was declined.",
		ActionableSteps: []string{
			"Check your card details and try again",
			"Try a different payment method",
			"Contact your bank if the problem persists",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   false,
			Urgency:              "low",
			IncludeTransactionID: true,
		},
	},
	"insufficient_funds": {
		Code:        "insufficient_funds",
		Type:        domain.ErrorTypeCard,
		Category:    domain.CategoryUserActionRequired,
		Severity:    domain.SeverityMedium,
		Retryable:   true,
		UserMessage: "Your card has insufficient funds.",
		ActionableSteps: []string{
			"Use a different card",
			"Add funds to your account and try again",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   false,
			Urgency:              "low",
			IncludeTransactionID: true,
		},
	},
	"expired_card": {
		Code:        "expired_card",
		Type:        domain.ErrorTypeCard,
		Category:    domain.CategoryUserActionRequired,
		Severity:    domain.SeverityMedium,
		Retryable:   false,
		UserMessage: "Your card has expired.",
		ActionableSteps: []string{
			"Update your card's expiration date",
			"Use a different card",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   false,
			Urgency:              "low",
			IncludeTransactionID: false,
		},
	},
	"incorrect_cvc": {
		Code:        "incorrect_cvc",
		Type:        domain.ErrorTypeCard,
		Category:    domain.CategoryUserActionRequired,
		Severity:    domain.SeverityLow,
		Retryable:   false,
		UserMessage: "Your card's security code is incorrect.",
		ActionableSteps: []string{
			"Check the three-digit code on the back of your card",
			"Re-enter your card details",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   false,
			Urgency:              "low",
			IncludeTransactionID: false,
		},
	},
	"incorrect_number": {
		Code:        "incorrect_number",
		Type:        domain.ErrorTypeCard,
		Category:    domain.CategoryUserActionRequired,
		Severity:    domain.SeverityLow,
		Retryable:   false,
		UserMessage: "Your card number is incorrect.",
		ActionableSteps: []string{
			"Check your card number and try again",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   false,
			Urgency:              "low",
			IncludeTransactionID: false,
		},
	},
	"processing_error": {
		Code:        "processing_error",
		Type:        domain.ErrorTypeAPI,
		Category:    domain.CategoryRetryRecommended,
		Severity:    domain.SeverityMedium,
		Retryable:   true,
		UserMessage: "An error occurred while processing your card. Your card was not charged.",
		ActionableSteps: []string{
			"Try again in a few minutes",
			"Use a different payment method if the problem persists",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   false,
			Urgency:              "medium",
			IncludeTransactionID: true,
		},
	},
	"rate_limit": {
		Code:        "rate_limit",
		Type:        domain.ErrorTypeRateLimit,
		Category:    domain.CategoryRetryRecommended,
		Severity:    domain.SeverityMedium,
		Retryable:   true,
		UserMessage: "Too many requests. Please wait a moment and try again.",
		ActionableSteps: []string{
			"Wait a few minutes before retrying",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   false,
			Urgency:              "medium",
			IncludeTransactionID: false,
		},
	},
	"api_key_expired": {
		Code:        "api_key_expired",
		Type:        domain.ErrorTypeAuthentication,
		Category:    domain.CategorySystemIssue,
		Severity:    domain.SeverityCritical,
		Retryable:   false,
		UserMessage: "Payments are temporarily unavailable. Please try again later.",
		ActionableSteps: []string{
			"Contact support",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   true,
			Urgency:              "critical",
			IncludeTransactionID: true,
		},
	},
	"invalid_request_error": {
		Code:        "invalid_request_error",
		Type:        domain.ErrorTypeAPI,
		Category:    domain.CategorySystemIssue,
		Severity:    domain.SeverityHigh,
		Retryable:   false,
		UserMessage: "Payments are temporarily unavailable. Please try again later.",
		ActionableSteps: []string{
			"Try again later",
			"Contact support if the problem persists",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   true,
			Urgency:              "high",
			IncludeTransactionID: true,
		},
	},
	"network_error": {
		Code:        "network_error",
		Type:        domain.ErrorTypeNetwork,
		Category:    domain.CategoryRetryRecommended,
		Severity:    domain.SeverityMedium,
		Retryable:   true,
		UserMessage: "A network error occurred. Your card was not charged.",
		ActionableSteps: []string{
			"Check your internet connection",
			"Try again",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   false,
			Urgency:              "medium",
			IncludeTransactionID: false,
		},
	},
	"authentication_required": {
		Code:        "authentication_required",
		Type:        domain.ErrorTypeCard,
		Category:    domain.CategoryUserActionRequired,
		Severity:    domain.SeverityMedium,
		Retryable:   false,
		UserMessage: "Your bank requires additional authentication to complete this payment.",
		ActionableSteps: []string{
			"Complete the authentication step with your bank",
			"Try the payment again",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   false,
			Urgency:              "low",
			IncludeTransactionID: true,
		},
	},
	"email_invalid": {
		Code:        "email_invalid",
		Type:        domain.ErrorTypeValidation,
		Category:    domain.CategoryUserActionRequired,
		Severity:    domain.SeverityLow,
		Retryable:   false,
		UserMessage: "The email address is not valid.",
		ActionableSteps: []string{
			"Check the email address and try again",
		},
		SupportInfo: domain.SupportInfo{
			ContactRecommended:   false,
			Urgency:              "low",
			IncludeTransactionID: false,
		},
	},
}
