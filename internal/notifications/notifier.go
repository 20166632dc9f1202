package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/consumer"
	"github.com/payflow-labs/payflow/internal/events"
)

// Notifier turns payment result events into user notifications. Delivery
// is a structured log line standing in for an email/SMS provider; the
// consuming side (decode, dedupe by terminal status upstream, ack/retry)
// is the part that matters here.
type Notifier struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Handle implements consumer.Handler.
func (n *Notifier) Handle(ctx context.Context, msg events.Decoded) consumer.Result {
	switch msg.Type {
	case events.TypePaymentCompleted:
		ev := msg.PaymentCompleted
		n.logger.Info("notifying payment success",
			zap.String("event_id", ev.EventID),
			zap.String("user_id", ev.UserID),
			zap.String("order_id", ev.OrderID),
			zap.String("payment_id", ev.PaymentID),
			zap.Float64("amount", ev.Amount),
		)
		return consumer.Ack
	case events.TypePaymentFailed:
		ev := msg.PaymentFailed
		n.logger.Info("notifying payment failure",
			zap.String("event_id", ev.EventID),
			zap.String("user_id", ev.UserID),
			zap.String("order_id", ev.OrderID),
			zap.String("reason", ev.Reason),
		)
		return consumer.Ack
	default:
		n.logger.Warn("ignoring event", zap.String("event_type", msg.Type))
		return consumer.Ack
	}
}

// Send delivers an ad-hoc notification requested over HTTP.
func (n *Notifier) Send(ctx context.Context, channel, recipient, message string) {
	n.logger.Info("sending notification",
		zap.String("channel", channel),
		zap.String("recipient", recipient),
		zap.String("message", message),
	)
}
