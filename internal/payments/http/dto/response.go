// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
)

// ErrorContextResponse exposes the last classified failure of a session.
type ErrorContextResponse struct {
	Code            string   `json:"code"`
	Type            string   `json:"type"`
	Category        string   `json:"category"`
	Severity        string   `json:"severity"`
	Retryable       bool     `json:"retryable"`
	UserMessage     string   `json:"user_message"`
	ActionableSteps []string `json:"actionable_steps,omitempty"`
}

// RetrySessionResponse represents a retry session in API responses.
type RetrySessionResponse struct {
	SessionID      string                `json:"session_id"`
	OwnerID        string                `json:"owner_id"`
	Kind           string                `json:"kind"`
	CurrentAttempt int                   `json:"current_attempt"`
	MaxAttempts    int                   `json:"max_attempts"`
	Status         string                `json:"status"`
	NextRetryAt    *time.Time            `json:"next_retry_at,omitempty"`
	ErrorContext   *ErrorContextResponse `json:"error_context,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// MapRetrySessionToResponse converts a domain retry session to a response.
func MapRetrySessionToResponse(session *paymentsDomain.RetrySession) RetrySessionResponse {
	response := RetrySessionResponse{
		SessionID:      session.SessionID.String(),
		OwnerID:        session.OwnerID,
		Kind:           string(session.Kind),
		CurrentAttempt: session.CurrentAttempt,
		MaxAttempts:    session.MaxAttempts,
		Status:         string(session.Status),
		NextRetryAt:    session.NextRetryAt,
		CreatedAt:      session.CreatedAt,
		UpdatedAt:      session.UpdatedAt,
	}

	if details := session.ErrorContext; details != nil {
		response.ErrorContext = &ErrorContextResponse{
			Code:            details.Code,
			Type:            string(details.Type),
			Category:        string(details.Category),
			Severity:        string(details.Severity),
			Retryable:       details.Retryable,
			UserMessage:     details.UserMessage,
			ActionableSteps: details.ActionableSteps,
		}
	}

	return response
}

// ListRetrySessionsResponse represents a paginated list of retry sessions in
// API responses.
type ListRetrySessionsResponse struct {
	Data []RetrySessionResponse `json:"data"`
}

// MapRetrySessionsToListResponse converts a slice of domain sessions to a list
// response.
func MapRetrySessionsToListResponse(sessions []*paymentsDomain.RetrySession) ListRetrySessionsResponse {
	data := make([]RetrySessionResponse, 0, len(sessions))
	for _, session := range sessions {
		data = append(data, MapRetrySessionToResponse(session))
	}

	return ListRetrySessionsResponse{
		Data: data,
	}
}
