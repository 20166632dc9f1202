package validation

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	UserID     string  `json:"user_id" validate:"required"`           // business id for the buyer
	Amount     float64 `json:"amount" validate:"required,gt=0"`       // order total in major units
	ProductIDs []int64 `json:"product_ids" validate:"required,min=1"` // at least one product
}

// CreatePaymentRequest is the payload for POST /payments
type CreatePaymentRequest struct {
	OrderID string  `json:"order_id" validate:"required"`
	UserID  string  `json:"user_id" validate:"required"`
	Amount  float64 `json:"amount" validate:"required,gt=0"`
}

// UpdatePaymentStatusRequest is the payload for PUT /orders/:id/payment-status
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=PAID FAILED"`
}

// NotificationRequest is the payload for POST /notifications
type NotificationRequest struct {
	Type      string `json:"type" validate:"required,oneof=EMAIL SMS PUSH"`
	Recipient string `json:"recipient" validate:"required"`
	Message   string `json:"message" validate:"required"`
}
