package handlers

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dyntypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockDynamo is an in-memory orders table keyed by order_id, understanding
// only the expressions the order store issues.
type mockDynamo struct {
	mu    sync.Mutex
	table map[string]map[string]dyntypes.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{table: map[string]map[string]dyntypes.AttributeValue{}}
}

func attrS(av dyntypes.AttributeValue) string {
	if s, ok := av.(*dyntypes.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := attrS(params.Item["order_id"])
	if k == "" {
		return nil, errors.New("missing order_id")
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(order_id)" {
		if _, ok := m.table[k]; ok {
			return nil, &dyntypes.ConditionalCheckFailedException{}
		}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.table[attrS(params.Key["order_id"])]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.table[attrS(params.Key["order_id"])]
	if !ok {
		return nil, errors.New("item not found")
	}

	appendList := func(field string, v dyntypes.AttributeValue) {
		add, ok := v.(*dyntypes.AttributeValueMemberL)
		if !ok {
			return
		}
		existing, ok := item[field].(*dyntypes.AttributeValueMemberL)
		if !ok {
			existing = &dyntypes.AttributeValueMemberL{}
		}
		item[field] = &dyntypes.AttributeValueMemberL{Value: append(append([]dyntypes.AttributeValue{}, existing.Value...), add.Value...)}
	}

	for name, v := range params.ExpressionAttributeValues {
		switch name {
		case ":file":
			appendList("files", v)
		case ":refs":
			appendList("fulfillment_refs", v)
		case ":ev":
			appendList("status_history", v)
		case ":sh":
			appendList("shipments", v)
		case ":soid":
			item["source_order_id"] = v
		case ":st":
			item["status"] = v
		case ":ua":
			item["updated_at"] = v
		}
	}
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var attr string
	switch *params.IndexName {
	case "source_order_id-index":
		attr = "source_order_id"
	case "doc_id-index":
		attr = "doc_id"
	default:
		return nil, errors.New("unknown index")
	}

	want := attrS(params.ExpressionAttributeValues[":v"])
	out := &dyn.QueryOutput{}
	for _, item := range m.table {
		if v, ok := item[attr]; ok && attrS(v) == want {
			out.Items = append(out.Items, item)
			break
		}
	}
	return out, nil
}

// listLen returns the length of a list attribute on a stored order.
func (m *mockDynamo) listLen(orderID, field string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.table[orderID]
	if !ok {
		return -1
	}
	l, ok := item[field].(*dyntypes.AttributeValueMemberL)
	if !ok {
		return 0
	}
	return len(l.Value)
}

func (m *mockDynamo) stringField(orderID, field string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.table[orderID]
	if !ok {
		return ""
	}
	return attrS(item[field])
}

// mockS3 records uploads by key. Keys under failPrefix are rejected, to
// drive one pipeline stage into failure while its siblings succeed.
type mockS3 struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failPrefix string
}

func newMockS3() *mockS3 {
	return &mockS3{objects: map[string][]byte{}}
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPrefix != "" && strings.HasPrefix(*params.Key, m.failPrefix) {
		return nil, errors.New("access denied")
	}
	body, _ := io.ReadAll(params.Body)
	m.objects[*params.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}
