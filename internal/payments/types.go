package payments

import (
	"fmt"
	"math"
	"time"
)

// Payment statuses. Transitions only move forward:
// CREATED -> PENDING -> {PAID, FAILED}; REFUNDED and CANCELLED are
// reserved for future compensations and reachable only from PAID.
const (
	StatusCreated   = "CREATED"
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusFailed    = "FAILED"
	StatusRefunded  = "REFUNDED"
	StatusCancelled = "CANCELLED"
)

// Payment represents the item stored in the payments DynamoDB table.
// order_id is the partition key: the table itself enforces one payment
// per order. gateway_order_id, once set, is never rewritten.
type Payment struct {
	OrderID        string    `dynamodbav:"order_id" json:"order_id"` // PK
	PaymentID      string    `dynamodbav:"payment_id" json:"payment_id"`
	UserID         string    `dynamodbav:"user_id" json:"user_id"`
	Amount         float64   `dynamodbav:"amount" json:"amount"`
	IdempotencyKey string    `dynamodbav:"idempotency_key" json:"-"`
	Status         string    `dynamodbav:"status" json:"status"`
	GatewayOrderID string    `dynamodbav:"gateway_order_id,omitempty" json:"gateway_order_id,omitempty"`
	GatewayAmount  int64     `dynamodbav:"gateway_amount,omitempty" json:"gateway_amount,omitempty"` // minor units (paise)
	CreatedAt      time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// IdempotencyKeyForOrder derives the deterministic payment idempotency
// key from an order id.
func IdempotencyKeyForOrder(orderID string) string {
	return "order-" + orderID
}

// MinorUnits converts a major-unit amount to minor units (paise).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// GatewayOrder is what the checkout frontend needs to open the gateway's
// payment flow.
type GatewayOrder struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"` // minor units
	KeyID          string `json:"key_id"`
}

func (g GatewayOrder) String() string {
	return fmt.Sprintf("GatewayOrder{%s amount=%d}", g.GatewayOrderID, g.Amount)
}
