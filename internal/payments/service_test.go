package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/aws"
	"github.com/payflow-labs/payflow/internal/events"
	"github.com/payflow-labs/payflow/internal/gateway"
)

func newTestService() (*Service, *mockDynamo, *fakeGateway, *mockSNS) {
	dynamo := newMockDynamo()
	store := NewStore(dynamo, "payments", "gateway_order_id-index", "payment_id-index")
	gw := &fakeGateway{}
	snsMock := &mockSNS{}
	pub := aws.NewPublisher(snsMock, "arn:topic", zap.NewNop())
	return NewService(store, gw, pub, zap.NewNop()), dynamo, gw, snsMock
}

func orderCreated(orderID string) events.OrderCreated {
	return events.NewOrderCreated(orderID, "u1", 100.0)
}

func capturedWebhook(gatewayOrderID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":"%s","amount":10000}}}}`,
		gatewayOrderID))
}

func failedWebhook(gatewayOrderID, reason string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.failed","payload":{"payment":{"entity":{"order_id":"%s","amount":10000,"error_description":"%s"}}}}`,
		gatewayOrderID, reason))
}

func TestHandleOrderCreated_DuplicateCreatesOneRow(t *testing.T) {
	svc, dynamo, gw, _ := newTestService()
	ctx := context.Background()

	ev := orderCreated("o1")
	if err := svc.HandleOrderCreated(ctx, ev); err != nil {
		t.Fatalf("first delivery error: %v", err)
	}
	if err := svc.HandleOrderCreated(ctx, ev); err != nil {
		t.Fatalf("duplicate delivery error: %v", err)
	}

	if len(dynamo.table) != 1 {
		t.Fatalf("expected exactly one payment row, got %d", len(dynamo.table))
	}
	if gw.createCalls != 0 {
		t.Fatalf("order creation must not touch the gateway, got %d calls", gw.createCalls)
	}

	p, _ := svc.GetByOrderID(ctx, "o1")
	if p.Status != StatusCreated {
		t.Fatalf("expected CREATED, got %s", p.Status)
	}
	if p.IdempotencyKey != "order-o1" {
		t.Fatalf("idempotency key mismatch: %s", p.IdempotencyKey)
	}
}

func TestInitiate_SetsPendingWithReference(t *testing.T) {
	svc, _, gw, _ := newTestService()
	ctx := context.Background()

	svc.HandleOrderCreated(ctx, orderCreated("o1"))
	gw.nextOrderID = "rzp_o1"

	got, err := svc.Initiate(ctx, "o1")
	if err != nil {
		t.Fatalf("Initiate error: %v", err)
	}
	if got.GatewayOrderID != "rzp_o1" || got.Amount != 10000 {
		t.Fatalf("gateway order mismatch: %+v", got)
	}
	if got.KeyID == "" {
		t.Fatal("publishable key must be returned")
	}

	p, _ := svc.GetByOrderID(ctx, "o1")
	if p.Status != StatusPending || p.GatewayOrderID != "rzp_o1" {
		t.Fatalf("payment not PENDING with reference: %+v", p)
	}
}

func TestInitiate_IdempotentReturnsExistingReference(t *testing.T) {
	svc, _, gw, _ := newTestService()
	ctx := context.Background()

	svc.HandleOrderCreated(ctx, orderCreated("o1"))
	gw.nextOrderID = "rzp_o1"

	first, err := svc.Initiate(ctx, "o1")
	if err != nil {
		t.Fatalf("first Initiate error: %v", err)
	}
	second, err := svc.Initiate(ctx, "o1")
	if err != nil {
		t.Fatalf("second Initiate error: %v", err)
	}

	if second.GatewayOrderID != first.GatewayOrderID {
		t.Fatalf("re-initiation changed the reference: %s vs %s", first.GatewayOrderID, second.GatewayOrderID)
	}
	if gw.createCalls != 1 {
		t.Fatalf("expected exactly one gateway order, got %d", gw.createCalls)
	}
}

func TestInitiate_GatewayFailureLeavesCreated(t *testing.T) {
	svc, _, gw, _ := newTestService()
	ctx := context.Background()

	svc.HandleOrderCreated(ctx, orderCreated("o1"))
	gw.createErr = errors.New("gateway down")

	if _, err := svc.Initiate(ctx, "o1"); err == nil {
		t.Fatal("expected gateway failure to surface")
	}

	p, _ := svc.GetByOrderID(ctx, "o1")
	if p.Status != StatusCreated || p.GatewayOrderID != "" {
		t.Fatalf("failed initiate must leave CREATED without reference: %+v", p)
	}

	// Retry succeeds once the gateway recovers.
	gw.createErr = nil
	gw.nextOrderID = "rzp_retry"
	if _, err := svc.Initiate(ctx, "o1"); err != nil {
		t.Fatalf("retry after gateway recovery failed: %v", err)
	}
}

func TestInitiate_UnknownOrder(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Initiate(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHandleWebhook_CapturedTransitionsAndPublishesOnce(t *testing.T) {
	svc, _, gw, snsMock := newTestService()
	ctx := context.Background()

	svc.HandleOrderCreated(ctx, orderCreated("o1"))
	gw.nextOrderID = "rzp_o1"
	svc.Initiate(ctx, "o1")

	if err := svc.HandleWebhook(ctx, capturedWebhook("rzp_o1"), "sig"); err != nil {
		t.Fatalf("webhook error: %v", err)
	}

	p, _ := svc.GetByOrderID(ctx, "o1")
	if p.Status != StatusPaid {
		t.Fatalf("expected PAID, got %s", p.Status)
	}
	if n := snsMock.published(events.TypePaymentCompleted); n != 1 {
		t.Fatalf("expected 1 PaymentCompleted publish, got %d", n)
	}

	// Duplicate webhook delivery: state stays PAID, nothing re-published.
	if err := svc.HandleWebhook(ctx, capturedWebhook("rzp_o1"), "sig"); err != nil {
		t.Fatalf("duplicate webhook error: %v", err)
	}
	if n := snsMock.published(events.TypePaymentCompleted); n != 1 {
		t.Fatalf("duplicate webhook double-published: %d", n)
	}
}

func TestHandleWebhook_ConflictingResultDropped(t *testing.T) {
	svc, _, gw, snsMock := newTestService()
	ctx := context.Background()

	svc.HandleOrderCreated(ctx, orderCreated("o1"))
	gw.nextOrderID = "rzp_o1"
	svc.Initiate(ctx, "o1")

	if err := svc.HandleWebhook(ctx, capturedWebhook("rzp_o1"), "sig"); err != nil {
		t.Fatalf("captured webhook error: %v", err)
	}

	// A failed result after the payment settled PAID can never apply;
	// it must be dropped, not surfaced as a retryable failure.
	if err := svc.HandleWebhook(ctx, failedWebhook("rzp_o1", "late decline"), "sig"); err != nil {
		t.Fatalf("conflicting webhook must be dropped, got %v", err)
	}

	p, _ := svc.GetByOrderID(ctx, "o1")
	if p.Status != StatusPaid {
		t.Fatalf("conflicting webhook changed state: %s", p.Status)
	}
	if n := snsMock.published(events.TypePaymentFailed); n != 0 {
		t.Fatalf("conflicting webhook published events: %d", n)
	}
}

func TestHandleWebhook_FailedTransitionsWithReason(t *testing.T) {
	svc, _, gw, snsMock := newTestService()
	ctx := context.Background()

	svc.HandleOrderCreated(ctx, orderCreated("o1"))
	gw.nextOrderID = "rzp_o1"
	svc.Initiate(ctx, "o1")

	if err := svc.HandleWebhook(ctx, failedWebhook("rzp_o1", "card declined"), "sig"); err != nil {
		t.Fatalf("webhook error: %v", err)
	}

	p, _ := svc.GetByOrderID(ctx, "o1")
	if p.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", p.Status)
	}
	if n := snsMock.published(events.TypePaymentFailed); n != 1 {
		t.Fatalf("expected 1 PaymentFailed publish, got %d", n)
	}
}

func TestHandleWebhook_InvalidSignatureChangesNothing(t *testing.T) {
	svc, _, gw, snsMock := newTestService()
	ctx := context.Background()

	svc.HandleOrderCreated(ctx, orderCreated("o1"))
	gw.nextOrderID = "rzp_o1"
	svc.Initiate(ctx, "o1")

	gw.verifyErr = gateway.ErrInvalidSignature
	err := svc.HandleWebhook(ctx, capturedWebhook("rzp_o1"), "bad")
	if !errors.Is(err, gateway.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	p, _ := svc.GetByOrderID(ctx, "o1")
	if p.Status != StatusPending {
		t.Fatalf("unverified webhook changed state: %s", p.Status)
	}
	if len(snsMock.inputs) != 0 {
		t.Fatalf("unverified webhook published events: %d", len(snsMock.inputs))
	}
}

func TestHandleWebhook_UnknownGatewayOrderDropped(t *testing.T) {
	svc, _, _, snsMock := newTestService()

	if err := svc.HandleWebhook(context.Background(), capturedWebhook("rzp_ghost"), "sig"); err != nil {
		t.Fatalf("unknown reference must be a silent drop, got %v", err)
	}
	if len(snsMock.inputs) != 0 {
		t.Fatal("unknown reference published events")
	}
}

func TestHandleWebhook_MissingEntityDropped(t *testing.T) {
	svc, _, _, _ := newTestService()

	body := []byte(`{"event":"order.paid","payload":{}}`)
	if err := svc.HandleWebhook(context.Background(), body, "sig"); err != nil {
		t.Fatalf("entity-less callback must be dropped, got %v", err)
	}
}

func TestHandleWebhook_UnsupportedEventDropped(t *testing.T) {
	svc, _, gw, snsMock := newTestService()
	ctx := context.Background()

	svc.HandleOrderCreated(ctx, orderCreated("o1"))
	gw.nextOrderID = "rzp_o1"
	svc.Initiate(ctx, "o1")

	body := []byte(`{"event":"payment.authorized","payload":{"payment":{"entity":{"order_id":"rzp_o1","amount":10000}}}}`)
	if err := svc.HandleWebhook(ctx, body, "sig"); err != nil {
		t.Fatalf("unsupported event must be dropped, got %v", err)
	}

	p, _ := svc.GetByOrderID(ctx, "o1")
	if p.Status != StatusPending {
		t.Fatalf("unsupported event changed state: %s", p.Status)
	}
	if len(snsMock.inputs) != 0 {
		t.Fatal("unsupported event published events")
	}
}

func TestCreate_DuplicateReturnsExistingPayment(t *testing.T) {
	svc, dynamo, _, _ := newTestService()
	ctx := context.Background()

	req := CreatePaymentRequest{OrderID: "o1", UserID: "u1", Amount: 50, IdempotencyKey: "key-1"}
	first, created, err := svc.Create(ctx, req)
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}

	second, created, err := svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("second create error: %v", err)
	}
	if created {
		t.Fatal("duplicate create must not report created")
	}
	if second.PaymentID != first.PaymentID {
		t.Fatalf("duplicate create returned a different payment: %s vs %s", first.PaymentID, second.PaymentID)
	}
	if len(dynamo.table) != 1 {
		t.Fatalf("expected one row, got %d", len(dynamo.table))
	}
}
