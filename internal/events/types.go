package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type discriminators carried in the envelope and in the SNS
// "eventType" message attribute.
const (
	TypeOrderCreated     = "OrderCreated"
	TypePaymentCompleted = "PaymentCompleted"
	TypePaymentFailed    = "PaymentFailed"
	TypeUnknown          = "Unknown"
)

const schemaVersion = "1.0"

// Envelope is the shared header every domain event carries.
// Consumers must tolerate unknown additional fields.
type Envelope struct {
	EventID    string    `json:"event_id"`
	Version    string    `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
	EventType  string    `json:"event_type"`
}

// OrderCreated is published by the order service when an order is accepted.
type OrderCreated struct {
	Envelope
	OrderID string  `json:"order_id"`
	UserID  string  `json:"user_id"`
	Amount  float64 `json:"amount"`
}

// PaymentCompleted is published by the payment service after a verified
// payment.captured webhook commits the PAID transition.
type PaymentCompleted struct {
	Envelope
	PaymentID string  `json:"payment_id"`
	OrderID   string  `json:"order_id"`
	UserID    string  `json:"user_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

// PaymentFailed is published after a verified payment.failed webhook.
type PaymentFailed struct {
	Envelope
	PaymentID string  `json:"payment_id"`
	OrderID   string  `json:"order_id"`
	UserID    string  `json:"user_id"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}

func newEnvelope(eventType string) Envelope {
	return Envelope{
		EventID:    uuid.NewString(),
		Version:    schemaVersion,
		OccurredAt: time.Now().UTC(),
		EventType:  eventType,
	}
}

// NewOrderCreated builds a publish-ready OrderCreated event.
func NewOrderCreated(orderID, userID string, amount float64) OrderCreated {
	return OrderCreated{
		Envelope: newEnvelope(TypeOrderCreated),
		OrderID:  orderID,
		UserID:   userID,
		Amount:   amount,
	}
}

// NewPaymentCompleted builds a publish-ready PaymentCompleted event.
func NewPaymentCompleted(paymentID, orderID, userID string, amount float64) PaymentCompleted {
	return PaymentCompleted{
		Envelope:  newEnvelope(TypePaymentCompleted),
		PaymentID: paymentID,
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Status:    "PAID",
	}
}

// NewPaymentFailed builds a publish-ready PaymentFailed event.
func NewPaymentFailed(paymentID, orderID, userID string, amount float64, reason string) PaymentFailed {
	return PaymentFailed{
		Envelope:  newEnvelope(TypePaymentFailed),
		PaymentID: paymentID,
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
	}
}
