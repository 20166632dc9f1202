package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/aws"
	"github.com/payflow-labs/payflow/internal/events"
	"github.com/payflow-labs/payflow/internal/gateway"
)

var (
	// ErrNotFound means no payment exists for the referenced order.
	ErrNotFound = errors.New("payment not found")

	// ErrInvalidState rejects an operation the state machine does not
	// allow from the payment's current status.
	ErrInvalidState = errors.New("invalid payment state for operation")
)

const gatewayCurrency = "INR"

// Service owns the payment lifecycle: creation from OrderCreated events,
// explicit initiation against the gateway, and webhook reconciliation.
type Service struct {
	store     *Store
	gateway   gateway.Client
	publisher *aws.Publisher
	logger    *zap.Logger
}

// NewService wires the payment service.
func NewService(store *Store, gw gateway.Client, publisher *aws.Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		gateway:   gw,
		publisher: publisher,
		logger:    logger,
	}
}

// HandleOrderCreated creates the CREATED payment row for a new order.
// Duplicated deliveries collapse on the table's order_id uniqueness:
// exactly one row is ever created, and no gateway call happens here.
func (s *Service) HandleOrderCreated(ctx context.Context, ev events.OrderCreated) error {
	p := Payment{
		OrderID:        ev.OrderID,
		PaymentID:      uuid.NewString(),
		UserID:         ev.UserID,
		Amount:         ev.Amount,
		IdempotencyKey: IdempotencyKeyForOrder(ev.OrderID),
		Status:         StatusCreated,
	}

	err := s.store.Create(ctx, p)
	if errors.Is(err, ErrAlreadyExists) {
		s.logger.Info("payment already exists for order, skipping duplicate",
			zap.String("order_id", ev.OrderID), zap.String("event_id", ev.EventID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("create payment for order %s: %w", ev.OrderID, err)
	}

	s.logger.Info("payment record created, awaiting user payment intent",
		zap.String("payment_id", p.PaymentID),
		zap.String("order_id", p.OrderID),
		zap.String("status", StatusCreated))
	return nil
}

// Initiate moves a CREATED payment to PENDING by registering a gateway
// order. Idempotent: a payment that already carries a gateway reference
// returns it unchanged regardless of status. The gateway call happens
// before any state change, so a gateway failure leaves the payment
// CREATED and retriable.
func (s *Service) Initiate(ctx context.Context, orderID string) (*GatewayOrder, error) {
	p, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}

	if p.GatewayOrderID != "" {
		s.logger.Info("payment already initiated, returning existing gateway order",
			zap.String("order_id", orderID), zap.String("gateway_order_id", p.GatewayOrderID))
		return &GatewayOrder{GatewayOrderID: p.GatewayOrderID, Amount: p.GatewayAmount, KeyID: s.gateway.KeyID()}, nil
	}
	if p.Status != StatusCreated {
		return nil, fmt.Errorf("%w: cannot initiate from %s", ErrInvalidState, p.Status)
	}

	amountMinor := MinorUnits(p.Amount)
	gatewayOrderID, err := s.gateway.CreateOrder(ctx, amountMinor, gatewayCurrency, orderID)
	if err != nil {
		return nil, fmt.Errorf("gateway order for %s: %w", orderID, err)
	}

	err = s.store.AttachGatewayOrder(ctx, orderID, gatewayOrderID, amountMinor)
	if errors.Is(err, ErrStatusMismatch) {
		// A concurrent initiate won; return whatever it attached.
		p2, getErr := s.store.GetByOrderID(ctx, orderID)
		if getErr != nil || p2 == nil || p2.GatewayOrderID == "" {
			return nil, fmt.Errorf("initiate raced and lost for %s: %w", orderID, err)
		}
		return &GatewayOrder{GatewayOrderID: p2.GatewayOrderID, Amount: p2.GatewayAmount, KeyID: s.gateway.KeyID()}, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment initiated",
		zap.String("order_id", orderID),
		zap.String("gateway_order_id", gatewayOrderID),
		zap.String("status", StatusPending))
	return &GatewayOrder{GatewayOrderID: gatewayOrderID, Amount: amountMinor, KeyID: s.gateway.KeyID()}, nil
}

// GetByPaymentID looks a payment up by its payment id.
func (s *Service) GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error) {
	return s.store.GetByPaymentID(ctx, paymentID)
}

// GetByOrderID looks a payment up by its order id.
func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	return s.store.GetByOrderID(ctx, orderID)
}

// GetGatewayOrder returns the gateway order details for an initiated
// payment, or ErrNotFound.
func (s *Service) GetGatewayOrder(ctx context.Context, orderID string) (*GatewayOrder, error) {
	p, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.GatewayOrderID == "" {
		return nil, ErrNotFound
	}
	return &GatewayOrder{GatewayOrderID: p.GatewayOrderID, Amount: p.GatewayAmount, KeyID: s.gateway.KeyID()}, nil
}

// CreatePaymentRequest is the direct-API creation path, keyed by a client
// supplied idempotency key.
type CreatePaymentRequest struct {
	OrderID        string
	UserID         string
	Amount         float64
	IdempotencyKey string
}

// Create persists a payment row for the direct API path. The row stays
// CREATED: real lifecycle progress only ever comes from initiation and
// webhook reconciliation. Duplicate creation (same order) returns the
// existing payment.
func (s *Service) Create(ctx context.Context, req CreatePaymentRequest) (*Payment, bool, error) {
	key := req.IdempotencyKey
	if key == "" {
		key = IdempotencyKeyForOrder(req.OrderID)
	}
	p := Payment{
		OrderID:        req.OrderID,
		PaymentID:      uuid.NewString(),
		UserID:         req.UserID,
		Amount:         req.Amount,
		IdempotencyKey: key,
		Status:         StatusCreated,
	}

	err := s.store.Create(ctx, p)
	if errors.Is(err, ErrAlreadyExists) {
		existing, getErr := s.store.GetByOrderID(ctx, req.OrderID)
		if getErr != nil {
			return nil, false, getErr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("payment exists but could not be read for order %s", req.OrderID)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// webhookBody mirrors the gateway's callback shape. Only the fields we
// act on are declared; everything else is ignored.
type webhookBody struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity *webhookEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type webhookEntity struct {
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	ErrorDescription string `json:"error_description"`
}

// HandleWebhook reconciles a signed gateway callback. Error contract:
// gateway.ErrInvalidSignature / gateway.ErrNotConfigured pass through
// for the handler to map to statuses; structurally ignorable callbacks
// (no entity, no order id, unknown reference, unsupported event,
// duplicate delivery) return nil so the gateway is not asked to retry;
// any other error is transient and should produce a retryable status.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := s.gateway.VerifyWebhook(payload, signature); err != nil {
		return err
	}

	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrInvalidSignature, err)
	}

	entity := body.Payload.Payment.Entity
	if entity == nil {
		// Some callback types carry no payment entity; intentionally ignored.
		s.logger.Warn("webhook missing payment entity", zap.String("event", body.Event))
		return nil
	}
	if entity.OrderID == "" {
		s.logger.Warn("webhook missing order_id", zap.String("event", body.Event))
		return nil
	}

	p, err := s.store.GetByGatewayOrderID(ctx, entity.OrderID)
	if err != nil {
		return fmt.Errorf("lookup payment for gateway order %s: %w", entity.OrderID, err)
	}
	if p == nil {
		s.logger.Warn("webhook for unknown gateway order, dropping",
			zap.String("gateway_order_id", entity.OrderID), zap.String("event", body.Event))
		return nil
	}

	switch body.Event {
	case "payment.captured":
		return s.applyResult(ctx, p, StatusPaid, "")
	case "payment.failed":
		reason := entity.ErrorDescription
		if reason == "" {
			reason = "Payment failed"
		}
		return s.applyResult(ctx, p, StatusFailed, reason)
	default:
		s.logger.Info("ignoring unsupported gateway event", zap.String("event", body.Event))
		return nil
	}
}

// applyResult commits the terminal transition and then publishes the
// result event. The publish is fire-and-forget: the transition is
// already durable and must not be rolled back by a publish failure.
func (s *Service) applyResult(ctx context.Context, p *Payment, target, reason string) error {
	err := s.store.Transition(ctx, p.OrderID, StatusPending, target)
	if errors.Is(err, ErrStatusMismatch) {
		cur, getErr := s.store.GetByOrderID(ctx, p.OrderID)
		if getErr != nil {
			return getErr
		}
		if cur != nil && cur.Status == target {
			// Duplicate webhook delivery: already terminal, publish nothing.
			s.logger.Info("skipping duplicate webhook",
				zap.String("gateway_order_id", p.GatewayOrderID), zap.String("status", target))
			return nil
		}
		// Any other status is just as permanent: the payment settled the
		// other way (or the row is gone) and retrying this callback can
		// never apply it. Log the conflict and stop the redeliveries.
		s.logger.Warn("dropping conflicting webhook, payment already settled",
			zap.String("order_id", p.OrderID),
			zap.String("current", currentStatus(cur)),
			zap.String("incoming", target))
		return nil
	}
	if err != nil {
		return err
	}

	switch target {
	case StatusPaid:
		ev := events.NewPaymentCompleted(p.PaymentID, p.OrderID, p.UserID, p.Amount)
		s.publisher.PublishLogged(ctx, events.TypePaymentCompleted, ev)
	case StatusFailed:
		ev := events.NewPaymentFailed(p.PaymentID, p.OrderID, p.UserID, p.Amount, reason)
		s.publisher.PublishLogged(ctx, events.TypePaymentFailed, ev)
	}

	s.logger.Info("payment transitioned",
		zap.String("order_id", p.OrderID),
		zap.String("payment_id", p.PaymentID),
		zap.String("status", target))
	return nil
}

func currentStatus(p *Payment) string {
	if p == nil {
		return "<missing>"
	}
	return p.Status
}
