package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/payflow-labs/payflow/internal/aws"
)

// Sentinel errors for the decision points callers branch on.
var (
	ErrAlreadyExists  = errors.New("payment already exists for order")
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
)

// Store encapsulates operations on the payments table. The partition key
// (order_id) and the conditional expressions below are the persistence-
// layer uniqueness that makes every mutation race-safe across consumer
// instances.
type Store struct {
	client       aws.DynamoDBAPI
	tableName    string
	gatewayIndex string // GSI keyed by gateway_order_id
	paymentIndex string // GSI keyed by payment_id
	nowFunc      func() time.Time
}

// NewStore creates a payments Store bound to a table and its GSIs.
func NewStore(client aws.DynamoDBAPI, tableName, gatewayIndex, paymentIndex string) *Store {
	return &Store{
		client:       client,
		tableName:    tableName,
		gatewayIndex: gatewayIndex,
		paymentIndex: paymentIndex,
		nowFunc:      time.Now,
	}
}

// Create inserts a payment row iff no payment exists for its order yet.
func (s *Store) Create(ctx context.Context, p Payment) error {
	now := s.nowFunc()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal payment: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// GetByOrderID fetches the payment for an order. Returns (nil, nil) if not found.
func (s *Store) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p Payment
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal payment: %w", err)
	}
	return &p, nil
}

// GetByPaymentID queries the payment_id GSI. Returns (nil, nil) if not found.
func (s *Store) GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error) {
	return s.queryIndex(ctx, s.paymentIndex, "payment_id", paymentID)
}

// GetByGatewayOrderID queries the gateway_order_id GSI. Returns (nil, nil)
// if no payment is linked to the gateway order.
func (s *Store) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Payment, error) {
	return s.queryIndex(ctx, s.gatewayIndex, "gateway_order_id", gatewayOrderID)
}

func (s *Store) queryIndex(ctx context.Context, index, attr, value string) (*Payment, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &index,
		KeyConditionExpression: awsString("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		Limit: awsInt32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", index, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var p Payment
	if err := attributevalue.UnmarshalMap(out.Items[0], &p); err != nil {
		return nil, fmt.Errorf("unmarshal payment: %w", err)
	}
	return &p, nil
}

// AttachGatewayOrder records the gateway order reference and flips the
// payment to PENDING in a single conditional write. The guard (still
// CREATED, no reference yet) means a payment can never be PENDING
// without its gateway reference, and the reference is immutable once set.
func (s *Store) AttachGatewayOrder(ctx context.Context, orderID, gatewayOrderID string, gatewayAmount int64) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET #s = :pending, gateway_order_id = :gid, gateway_amount = :ga, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: StatusPending},
			":gid":     &types.AttributeValueMemberS{Value: gatewayOrderID},
			":ga":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", gatewayAmount)},
			":ua":      &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":created": &types.AttributeValueMemberS{Value: StatusCreated},
		},
		ConditionExpression: awsString("#s = :created AND attribute_not_exists(gateway_order_id)"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("attach gateway order: %w", err)
	}
	return nil
}

// Transition conditionally moves the payment from expected to next.
// ErrStatusMismatch on a lost race or duplicate; the caller re-reads to
// tell them apart.
func (s *Store) Transition(ctx context.Context, orderID, expected, next string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET #s = :next, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":next":     &types.AttributeValueMemberS{Value: next},
			":expected": &types.AttributeValueMemberS{Value: expected},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("transition payment: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
func awsInt32(n int32) *int32    { return &n }
