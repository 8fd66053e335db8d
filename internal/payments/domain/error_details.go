package domain

// ErrorType classifies the mechanical nature of a provider failure.
type ErrorType string

const (
	ErrorTypeCard           ErrorType = "card_error"
	ErrorTypeRateLimit      ErrorType = "rate_limit_error"
	ErrorTypeAuthentication ErrorType = "authentication_error"
	ErrorTypeAPI            ErrorType = "api_error"
	ErrorTypeNetwork        ErrorType = "network_error"
	ErrorTypeValidation     ErrorType = "validation_error"
	ErrorTypeUnknown        ErrorType = "unknown_error"
)

// ErrorCategory drives how downstream components react to a failure. It is the
// single source of truth: no component invents its own retry or alert rule.
type ErrorCategory string

const (
	CategoryUserActionRequired ErrorCategory = "user_action_required"
	CategoryRetryRecommended   ErrorCategory = "retry_recommended"
	CategorySystemIssue        ErrorCategory = "system_issue"
	CategoryContactSupport     ErrorCategory = "contact_support"
)

// Severity grades how loudly a failure should surface.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SupportInfo tells the presentation layer whether and how to involve support.
type SupportInfo struct {
	ContactRecommended   bool   `json:"contact_recommended"`
	Urgency              string `json:"urgency"`
	IncludeTransactionID bool   `json:"include_transaction_id"`
}

// ErrorDetails is the fully classified, immutable view of a provider failure.
// Produced fresh per classification call; never persisted as mutable state.
type ErrorDetails struct {
	Code            string        `json:"code"`
	ProviderMessage string        `json:"provider_message"`
	Type            ErrorType     `json:"type"`
	Category        ErrorCategory `json:"category"`
	Severity        Severity      `json:"severity"`
	Retryable       bool          `json:"retryable"`
	UserMessage     string        `json:"user_message"`
	ActionableSteps []string      `json:"actionable_steps"`
	SupportInfo     SupportInfo   `json:"support_info"`
}
