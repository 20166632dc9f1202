package gateway

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// Razorpay implements Client against the Razorpay Orders API.
type Razorpay struct {
	keyID         string
	keySecret     string
	webhookSecret string
}

// NewRazorpay returns a Razorpay client. Blank credentials are allowed
// here; the operations needing them fail with ErrNotConfigured.
func NewRazorpay(keyID, keySecret, webhookSecret string) *Razorpay {
	return &Razorpay{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

// CreateOrder registers a Razorpay order with auto-capture enabled.
func (r *Razorpay) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	if r.keyID == "" || r.keySecret == "" {
		return "", ErrNotConfigured
	}

	client := razorpay.NewClient(r.keyID, r.keySecret)
	data := map[string]interface{}{
		"amount":          amountMinor,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	order, err := client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("create razorpay order: %w", err)
	}

	id, ok := order["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay order response missing id: %v", order)
	}
	return id, nil
}

// VerifyWebhook validates the X-Razorpay-Signature HMAC over the raw body.
func (r *Razorpay) VerifyWebhook(payload []byte, signature string) error {
	if r.webhookSecret == "" {
		return ErrNotConfigured
	}
	if !utils.VerifyWebhookSignature(string(payload), signature, r.webhookSecret) {
		return ErrInvalidSignature
	}
	return nil
}

func (r *Razorpay) KeyID() string { return r.keyID }
