// Package gateway integrates the external payment provider. The provider
// owns the authoritative payment outcome; this module only creates
// gateway orders and verifies the signed webhooks reporting results.
package gateway

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured means the gateway credentials or webhook secret are
	// missing. Raised by the operation that needs them, not at startup.
	ErrNotConfigured = errors.New("gateway credentials not configured")

	// ErrInvalidSignature means the webhook payload failed HMAC
	// verification and must not be trusted.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Client is what the payment service needs from a provider.
type Client interface {
	// CreateOrder registers a gateway order for amountMinor in minor
	// currency units and returns the provider's order identifier.
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)

	// VerifyWebhook checks the signature over the raw payload bytes.
	// Returns nil only for a valid signature.
	VerifyWebhook(payload []byte, signature string) error

	// KeyID is the publishable key handed to checkout frontends.
	KeyID() string
}
