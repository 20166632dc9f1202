package payments

import (
	"context"
	"errors"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/payflow-labs/payflow/internal/gateway"
)

var errDynamoDown = errors.New("dynamodb unavailable")

// mockDynamo covers the payments-table access patterns: conditional puts
// on order_id, the two conditional updates, and GSI queries emulated by
// scanning the attribute the index is keyed on.
type mockDynamo struct {
	mu    sync.Mutex
	table map[string]map[string]types.AttributeValue
	fail  error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{table: map[string]map[string]types.AttributeValue{}}
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	k := strAttr(in.Item, "order_id")
	if in.ConditionExpression != nil && *in.ConditionExpression == "attribute_not_exists(order_id)" {
		if _, ok := m.table[k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[k] = in.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	k := in.Key["order_id"].(*types.AttributeValueMemberS).Value
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	k := in.Key["order_id"].(*types.AttributeValueMemberS).Value
	item, ok := m.table[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}

	if in.ConditionExpression != nil {
		switch *in.ConditionExpression {
		case "#s = :created AND attribute_not_exists(gateway_order_id)":
			created := in.ExpressionAttributeValues[":created"].(*types.AttributeValueMemberS).Value
			if strAttr(item, "status") != created || strAttr(item, "gateway_order_id") != "" {
				return nil, &types.ConditionalCheckFailedException{}
			}
			item["status"] = in.ExpressionAttributeValues[":pending"]
			item["gateway_order_id"] = in.ExpressionAttributeValues[":gid"]
			item["gateway_amount"] = in.ExpressionAttributeValues[":ga"]
		case "#s = :expected":
			expected := in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS).Value
			if strAttr(item, "status") != expected {
				return nil, &types.ConditionalCheckFailedException{}
			}
			item["status"] = in.ExpressionAttributeValues[":next"]
		default:
			return nil, errors.New("unsupported condition in mock")
		}
	}
	item["updated_at"] = in.ExpressionAttributeValues[":ua"]
	m.table[k] = item
	return &dyn.UpdateItemOutput{}, nil
}

func (m *mockDynamo) Query(ctx context.Context, in *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	attr := in.ExpressionAttributeNames["#k"]
	want := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS).Value
	for _, item := range m.table {
		if strAttr(item, attr) == want {
			return &dyn.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil
		}
	}
	return &dyn.QueryOutput{}, nil
}

// fakeGateway scripts gateway behavior for tests.
type fakeGateway struct {
	mu           sync.Mutex
	createCalls  int
	createErr    error
	nextOrderID  string
	verifyErr    error
	publishedKey string
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.nextOrderID == "" {
		f.nextOrderID = "rzp_order_1"
	}
	return f.nextOrderID, nil
}

func (f *fakeGateway) VerifyWebhook(payload []byte, signature string) error {
	return f.verifyErr
}

func (f *fakeGateway) KeyID() string {
	if f.publishedKey == "" {
		return "rzp_test_key"
	}
	return f.publishedKey
}

var _ gateway.Client = (*fakeGateway)(nil)

// mockSNS records every publish so tests can count result events.
type mockSNS struct {
	mu     sync.Mutex
	inputs []*sns.PublishInput
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, params)
	id := "mid"
	return &sns.PublishOutput{MessageId: &id}, nil
}

func (m *mockSNS) published(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, in := range m.inputs {
		if in.Subject != nil && *in.Subject == subject {
			n++
		}
	}
	return n
}
