package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Order holds the order service configuration.
type Order struct {
	Port                 string        `envconfig:"PORT" default:"8080"`
	OrdersTable          string        `envconfig:"ORDERS_TABLE" default:"orders"`
	OrderEventsTopicARN  string        `envconfig:"ORDER_EVENTS_TOPIC_ARN"`
	PaymentEventsQueue   string        `envconfig:"PAYMENT_EVENTS_QUEUE_URL"`
	PollInterval         time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	VisibilityTimeoutSec int32         `envconfig:"VISIBILITY_TIMEOUT_SEC" default:"30"`
}

// Payment holds the payment service configuration. Razorpay credentials are
// validated by the operations that need them, not at startup.
type Payment struct {
	Port                  string        `envconfig:"PORT" default:"8081"`
	PaymentsTable         string        `envconfig:"PAYMENTS_TABLE" default:"payments"`
	IdempotencyTable      string        `envconfig:"IDEMPOTENCY_TABLE" default:"idempotency"`
	GatewayOrderIndex     string        `envconfig:"GATEWAY_ORDER_INDEX" default:"gateway_order_id-index"`
	PaymentIDIndex        string        `envconfig:"PAYMENT_ID_INDEX" default:"payment_id-index"`
	PaymentEventsTopicARN string        `envconfig:"PAYMENT_EVENTS_TOPIC_ARN"`
	OrderEventsQueue      string        `envconfig:"ORDER_EVENTS_QUEUE_URL"`
	TTLWindow             time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"48h"`
	PollInterval          time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	VisibilityTimeoutSec  int32         `envconfig:"VISIBILITY_TIMEOUT_SEC" default:"30"`
	RazorpayKeyID         string        `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string        `envconfig:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string        `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
}

// Notification holds the notification service configuration.
type Notification struct {
	Port                 string        `envconfig:"PORT" default:"8082"`
	PaymentEventsQueue   string        `envconfig:"PAYMENT_EVENTS_QUEUE_URL"`
	PollInterval         time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	VisibilityTimeoutSec int32         `envconfig:"VISIBILITY_TIMEOUT_SEC" default:"30"`
}

func LoadOrder() (*Order, error) {
	var cfg Order
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadPayment() (*Payment, error) {
	var cfg Payment
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadNotification() (*Notification, error) {
	var cfg Notification
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
