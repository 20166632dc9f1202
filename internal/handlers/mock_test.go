package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/payflow-labs/payflow/internal/gateway"
)

// mockDynamo backs every table the handlers touch. Conditional puts and
// the update guards used by the stores are evaluated against the stored
// items, so the handler tests exercise the real store logic end to end.
type mockDynamo struct {
	tables map[string]map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) table(name *string) map[string]map[string]types.AttributeValue {
	t, ok := m.tables[*name]
	if !ok {
		t = map[string]map[string]types.AttributeValue{}
		m.tables[*name] = t
	}
	return t
}

func itemKey(item map[string]types.AttributeValue, keys ...string) string {
	for _, k := range keys {
		if v, ok := item[k].(*types.AttributeValueMemberS); ok {
			return k + "/" + v.Value
		}
	}
	return ""
}

// The stores key orders and payments by order_id and idempotency records
// by idempotency_key.
var keyAttrs = []string{"order_id", "idempotency_key"}

func (m *mockDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	t := m.table(in.TableName)
	k := itemKey(in.Item, keyAttrs...)
	if in.ConditionExpression != nil && strings.HasPrefix(*in.ConditionExpression, "attribute_not_exists(") {
		if _, exists := t[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	t[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	t := m.table(in.TableName)
	item, ok := t[itemKey(in.Key, keyAttrs...)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	t := m.table(in.TableName)
	k := itemKey(in.Key, keyAttrs...)
	item, ok := t[k]
	if !ok {
		if in.ConditionExpression != nil {
			return nil, &types.ConditionalCheckFailedException{}
		}
		item = map[string]types.AttributeValue{}
		for name, v := range in.Key {
			item[name] = v
		}
		t[k] = item
	}

	if in.ConditionExpression != nil && !evalCondition(*in.ConditionExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{}
	}

	applySet(*in.UpdateExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	return &dynamodb.UpdateItemOutput{}, nil
}

// Query emulates a GSI lookup by scanning the table for the queried
// attribute value.
func (m *mockDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	attr := in.ExpressionAttributeNames["#k"]
	want := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS).Value
	for _, item := range m.table(in.TableName) {
		if v, ok := item[attr].(*types.AttributeValueMemberS); ok && v.Value == want {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil
		}
	}
	return &dynamodb.QueryOutput{}, nil
}

// evalCondition handles the guard shapes the stores use: equality against
// a value placeholder and attribute_not_exists, joined with AND.
func evalCondition(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) bool {
	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSpace(clause)
		if strings.HasPrefix(clause, "attribute_not_exists(") {
			attr := strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")")
			if _, exists := item[resolveName(attr, names)]; exists {
				return false
			}
			continue
		}
		parts := strings.SplitN(clause, " = ", 2)
		attr := resolveName(strings.TrimSpace(parts[0]), names)
		want, _ := values[strings.TrimSpace(parts[1])].(*types.AttributeValueMemberS)
		got, ok := item[attr].(*types.AttributeValueMemberS)
		if want == nil || !ok || got.Value != want.Value {
			return false
		}
	}
	return true
}

func applySet(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) {
	expr = strings.TrimPrefix(expr, "SET ")
	for _, assign := range strings.Split(expr, ", ") {
		parts := strings.SplitN(assign, " = ", 2)
		attr := resolveName(strings.TrimSpace(parts[0]), names)
		item[attr] = values[strings.TrimSpace(parts[1])]
	}
}

func resolveName(attr string, names map[string]string) string {
	if strings.HasPrefix(attr, "#") {
		return names[attr]
	}
	return attr
}

var (
	errSNSDown     = errors.New("sns unavailable")
	errGatewayDown = errors.New("gateway unavailable")
)

type mockSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inputs = append(m.inputs, params)
	id := "msg-1"
	return &sns.PublishOutput{MessageId: &id}, nil
}

func (m *mockSNS) published(subject string) int {
	n := 0
	for _, in := range m.inputs {
		if in.Subject != nil && *in.Subject == subject {
			n++
		}
	}
	return n
}

type fakeGateway struct {
	createCalls int
	createErr   error
	nextOrderID string
	verifyErr   error
}

var _ gateway.Client = (*fakeGateway)(nil)

func (f *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
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

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }
