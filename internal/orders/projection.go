package orders

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/consumer"
	"github.com/payflow-labs/payflow/internal/events"
)

// Projector consumes payment-result events and projects them onto the
// order rows. It is the order service's only writer of payment_status.
type Projector struct {
	store  *Store
	logger *zap.Logger
}

// NewProjector wires a Projector over the orders Store.
func NewProjector(store *Store, logger *zap.Logger) *Projector {
	return &Projector{store: store, logger: logger}
}

// Handle implements consumer.Handler.
func (p *Projector) Handle(ctx context.Context, msg events.Decoded) consumer.Result {
	switch msg.Type {
	case events.TypePaymentCompleted:
		ev := msg.PaymentCompleted
		return p.apply(ctx, ev.OrderID, PaymentPaid, ev.EventID)
	case events.TypePaymentFailed:
		ev := msg.PaymentFailed
		p.logger.Info("payment failed for order",
			zap.String("order_id", ev.OrderID), zap.String("reason", ev.Reason))
		return p.apply(ctx, ev.OrderID, PaymentFailed, ev.EventID)
	default:
		p.logger.Warn("ignoring event type", zap.String("event_type", msg.Type))
		return consumer.Ack
	}
}

func (p *Projector) apply(ctx context.Context, orderID, paymentStatus, eventID string) consumer.Result {
	err := p.store.ApplyPaymentResult(ctx, orderID, paymentStatus)
	if err == nil {
		p.logger.Info("order payment status projected",
			zap.String("order_id", orderID),
			zap.String("payment_status", paymentStatus),
			zap.String("event_id", eventID))
		return consumer.Ack
	}

	if errors.Is(err, ErrStatusMismatch) {
		// Not PENDING anymore, or the order row is missing. Both are
		// permanent: re-applying the same terminal status is a no-op and
		// an order that never existed will not appear on redelivery.
		order, getErr := p.store.Get(ctx, orderID)
		if getErr != nil {
			p.logger.Error("failed to inspect order after conditional failure",
				zap.String("order_id", orderID), zap.Error(getErr))
			return consumer.Retry
		}
		if order == nil {
			p.logger.Warn("order not found for payment event, dropping",
				zap.String("order_id", orderID), zap.String("event_id", eventID))
			return consumer.Ack
		}
		if order.PaymentStatus == paymentStatus {
			p.logger.Info("duplicate payment event, projection already applied",
				zap.String("order_id", orderID), zap.String("payment_status", paymentStatus))
		} else {
			p.logger.Warn("stale payment event ignored, projection is terminal",
				zap.String("order_id", orderID),
				zap.String("current", order.PaymentStatus),
				zap.String("incoming", paymentStatus))
		}
		return consumer.Ack
	}

	p.logger.Error("failed to project payment result",
		zap.String("order_id", orderID), zap.Error(err))
	return consumer.Retry
}
