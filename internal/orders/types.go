package orders

import "time"

// Order statuses
const (
	StatusCreated       = "CREATED"
	StatusPaid          = "PAID"
	StatusPaymentFailed = "PAYMENT_FAILED"
	StatusCancelled     = "CANCELLED"
)

// Payment status projection values. The projection mirrors the remote
// Payment entity's lifecycle and is updated only by consuming
// payment-result events; it is not authoritative here.
const (
	PaymentPending   = "PENDING"
	PaymentPaid      = "PAID"
	PaymentFailed    = "FAILED"
	PaymentRefunded  = "REFUNDED"
	PaymentCancelled = "CANCELLED"
)

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID       string    `dynamodbav:"order_id" json:"order_id"` // PK
	UserID        string    `dynamodbav:"user_id" json:"user_id"`
	Amount        float64   `dynamodbav:"amount" json:"amount"`
	ProductIDs    []int64   `dynamodbav:"product_ids,omitempty" json:"product_ids,omitempty"`
	Status        string    `dynamodbav:"status" json:"status"`                 // CREATED | PAID | PAYMENT_FAILED | CANCELLED
	PaymentStatus string    `dynamodbav:"payment_status" json:"payment_status"` // projection of the remote payment lifecycle
	CreatedAt     time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at" json:"updated_at"`
}
