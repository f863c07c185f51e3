package orders

import (
	"context"
	"errors"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a small in-memory stand-in for the orders table, keyed by
// order_id. It understands only the expressions the Store actually issues.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	putCalls    int
	updateCalls int
	queryCalls  int
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func stringAttr(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++

	keyAttr := params.Item["order_id"]
	if keyAttr == nil {
		return nil, errors.New("missing order_id")
	}
	k := stringAttr(keyAttr)
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(order_id)" {
		if _, ok := m.table[k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := stringAttr(params.Key["order_id"])
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

// UpdateItem applies the value names the Store uses rather than parsing the
// expression grammar: :file/:refs/:ev/:sh append, the rest set.
func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	k := stringAttr(params.Key["order_id"])
	item, ok := m.table[k]
	if !ok {
		return nil, errors.New("item not found")
	}

	appendList := func(field string, v types.AttributeValue) {
		add, ok := v.(*types.AttributeValueMemberL)
		if !ok {
			return
		}
		existing, ok := item[field].(*types.AttributeValueMemberL)
		if !ok {
			existing = &types.AttributeValueMemberL{}
		}
		item[field] = &types.AttributeValueMemberL{Value: append(append([]types.AttributeValue{}, existing.Value...), add.Value...)}
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
	m.table[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *simpleMock) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++

	if params.IndexName == nil {
		return nil, errors.New("mock supports index queries only")
	}
	var attr string
	switch *params.IndexName {
	case "source_order_id-index":
		attr = "source_order_id"
	case "doc_id-index":
		attr = "doc_id"
	default:
		return nil, errors.New("unknown index " + *params.IndexName)
	}

	want := stringAttr(params.ExpressionAttributeValues[":v"])
	out := &dyn.QueryOutput{}
	for _, item := range m.table {
		if v, ok := item[attr]; ok && stringAttr(v) == want {
			out.Items = append(out.Items, item)
			break
		}
	}
	return out, nil
}
