// Package domain defines the core domain models for the payment-event
// reliability engine: webhook events, retry sessions, classified provider
// errors and order state rules.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the provider event types the engine understands.
type EventType string

const (
	EventPaymentSucceeded         EventType = "payment_intent.succeeded"
	EventPaymentFailed            EventType = "payment_intent.payment_failed"
	EventCheckoutSessionCompleted EventType = "checkout.session.completed"
	EventCustomerCreated          EventType = "customer.created"
	EventInvoicePaymentSucceeded  EventType = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     EventType = "invoice.payment_failed"
	// EventUnrecognized marks any type this engine does not know. Unknown
	// future types are acknowledged, never rejected.
	EventUnrecognized EventType = "unrecognized"
)

// ParseEventType maps a raw provider type string to a known EventType.
func ParseEventType(raw string) EventType {
	switch EventType(raw) {
	case EventPaymentSucceeded,
		EventPaymentFailed,
		EventCheckoutSessionCompleted,
		EventCustomerCreated,
		EventInvoicePaymentSucceeded,
		EventInvoicePaymentFailed:
		return EventType(raw)
	default:
		return EventUnrecognized
	}
}

// ProcessingStatus tracks a webhook event through the ledger.
type ProcessingStatus string

const (
	ProcessingStatusReceived  ProcessingStatus = "received"
	ProcessingStatusDuplicate ProcessingStatus = "duplicate"
	ProcessingStatusProcessed ProcessingStatus = "processed"
	ProcessingStatusFailed    ProcessingStatus = "failed"
)

// WebhookEvent is one inbound provider notification recorded in the
// idempotency ledger. Rows are append-only: the ledger insert is the atomic
// claim on the provider event ID, and only processing status fields are
// updated afterwards.
type WebhookEvent struct {
	// ID is the engine-local identifier for this ledger row.
	ID uuid.UUID
	// ProviderEventID is the provider-assigned, globally unique event ID.
	ProviderEventID string
	// Type is the recognized event type; RawType keeps what the provider sent.
	Type    EventType
	RawType string
	// CreatedAt is the provider timestamp of the event.
	CreatedAt time.Time
	// Payload is the raw verified request body, retained for re-dispatch.
	Payload []byte
	// ProcessingStatus is the ledger status of this event.
	ProcessingStatus ProcessingStatus
	// LastError records the most recent processing failure, if any.
	LastError *string
	// ReceivedAt is when this engine first saw the event.
	ReceivedAt time.Time
	// ProcessedAt is when dispatch finished (nil while in flight).
	ProcessedAt *time.Time
}

// NewWebhookEvent builds a ledger row from a verified envelope.
func NewWebhookEvent(envelope *EventEnvelope, payload []byte, now time.Time) *WebhookEvent {
	return &WebhookEvent{
		ID:               uuid.Must(uuid.NewV7()),
		ProviderEventID:  envelope.ID,
		Type:             ParseEventType(envelope.Type),
		RawType:          envelope.Type,
		CreatedAt:        time.Unix(envelope.Created, 0).UTC(),
		Payload:          payload,
		ProcessingStatus: ProcessingStatusReceived,
		ReceivedAt:       now.UTC(),
	}
}

// EventEnvelope is the outer shape of a provider notification.
type EventEnvelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// Object returns the payment object carried by the envelope. Providers nest
// it under data.object; test fixtures and some events put the fields directly
// under data. Both forms are accepted.
func (e *EventEnvelope) Object() json.RawMessage {
	if len(e.Data) == 0 {
		return nil
	}

	var wrapper struct {
		Object json.RawMessage `json:"object"`
	}
	if err := json.Unmarshal(e.Data, &wrapper); err == nil && len(wrapper.Object) > 0 {
		return wrapper.Object
	}
	return e.Data
}

// PaymentObject is the subset of the provider's payment object the engine
// reads: identity, payment state and enrichment metadata.
type PaymentObject struct {
	ID               string         `json:"id"`
	Customer         string         `json:"customer"`
	PaymentStatus    string         `json:"payment_status"`
	PaymentIntent    string         `json:"payment_intent"`
	PaymentMethod    string         `json:"payment_method"`
	LastPaymentError *ProviderError `json:"last_payment_error"`
	// PaymentMethodDetails is best-effort enrichment material; absence is
	// never an error.
	PaymentMethodDetails *PaymentMethodDetails `json:"payment_method_details"`
}

// PaymentReference returns the reference the order store is keyed by: the
// checkout session carries the payment intent, everything else is the object
// itself.
func (p *PaymentObject) PaymentReference() string {
	if p.PaymentIntent != "" {
		return p.PaymentIntent
	}
	return p.ID
}

// PaymentMethodDetails carries display metadata about the instrument used.
type PaymentMethodDetails struct {
	Type string `json:"type"`
	Card *struct {
		Brand string `json:"brand"`
		Last4 string `json:"last4"`
	} `json:"card"`
}

// ProviderError is the raw, loosely shaped error object a payment provider
// attaches to failed operations. All fields are optional; the classifier is
// the only component that interprets it.
type ProviderError struct {
	Code        string `json:"code"`
	Type        string `json:"type"`
	Message     string `json:"message"`
	DeclineCode string `json:"decline_code"`
}

// DispatchStatus is the acknowledgement status returned to the provider.
type DispatchStatus string

const (
	DispatchStatusProcessed DispatchStatus = "processed"
	DispatchStatusDuplicate DispatchStatus = "duplicate"
	DispatchStatusUnhandled DispatchStatus = "unhandled"
	DispatchStatusLogged    DispatchStatus = "logged"
)

// DispatchResult reports how an inbound event was handled.
type DispatchResult struct {
	Status          DispatchStatus
	ProviderEventID string
	EventType       EventType
}
