package payments

import (
	"context"

	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/consumer"
	"github.com/payflow-labs/payflow/internal/events"
)

// Consumer adapts the Service to the shared message pipeline for the
// payment worker: OrderCreated events become CREATED payment rows.
type Consumer struct {
	service *Service
	logger  *zap.Logger
}

// NewConsumer wires a Consumer over the payment Service.
func NewConsumer(service *Service, logger *zap.Logger) *Consumer {
	return &Consumer{service: service, logger: logger}
}

// Handle implements consumer.Handler.
func (c *Consumer) Handle(ctx context.Context, msg events.Decoded) consumer.Result {
	switch msg.Type {
	case events.TypeOrderCreated:
		if err := c.service.HandleOrderCreated(ctx, *msg.OrderCreated); err != nil {
			c.logger.Error("failed to process OrderCreated",
				zap.String("order_id", msg.OrderCreated.OrderID), zap.Error(err))
			return consumer.Retry
		}
		return consumer.Ack
	default:
		c.logger.Warn("ignoring event type", zap.String("event_type", msg.Type))
		return consumer.Ack
	}
}
