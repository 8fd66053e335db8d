package domain

import "github.com/google/uuid"

// OrderStatus is the marketplace order lifecycle. Transitions are strictly
// forward; an order never regresses.
type OrderStatus string

const (
	OrderStatusRequested       OrderStatus = "requested"
	OrderStatusAccepted        OrderStatus = "accepted"
	OrderStatusContentReceived OrderStatus = "content_received"
	OrderStatusPublished       OrderStatus = "published"
	OrderStatusVerified        OrderStatus = "verified"
)

// orderStatusRank orders the lifecycle for forward-only checks.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusRequested:       0,
	OrderStatusAccepted:        1,
	OrderStatusContentReceived: 2,
	OrderStatusPublished:       3,
	OrderStatusVerified:        4,
}

// CanTransitionTo reports whether moving from s to next is a forward step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// PaymentStatus is the payment side of an order, advanced only by the event
// dispatcher.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusProcessing is the holding state for a completed checkout
	// whose payment is still settling. Not a failure.
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// Order is the external collaborator's entity, referenced not owned. Only the
// fields the dispatcher reads are modeled.
type Order struct {
	ID               uuid.UUID
	Status           OrderStatus
	PaymentStatus    PaymentStatus
	PaymentReference string
}

// OrderUpdate is one atomic order mutation: status, payment status and
// metadata land together or not at all. Nil fields are left untouched.
type OrderUpdate struct {
	Status        *OrderStatus
	PaymentStatus *PaymentStatus
	Metadata      map[string]string
}
