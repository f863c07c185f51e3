package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/alialfonick-commits/loru/internal/aws"
)

// Secondary indexes used by the reconciliation lookups.
const (
	sourceOrderIDIndex = "source_order_id-index"
	docIDIndex         = "doc_id-index"
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// CreateIfAbsent writes the order document only when no document exists for
// its order_id. Returns created=false with a nil error when the document was
// already there: a duplicate webhook delivery is expected, not a failure.
func (s *Store) CreateIfAbsent(ctx context.Context, order *Order) (bool, error) {
	now := s.nowFunc()
	if order.DocID == "" {
		order.DocID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = StatusCreated
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return false, fmt.Errorf("marshal order: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	}

	_, err = s.client.PutItem(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

// GetByOrderID fetches an order by its commerce order id. Returns (nil, nil)
// if not found.
func (s *Store) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
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
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetBySourceOrderID fetches an order by the partner-echoed source order id.
func (s *Store) GetBySourceOrderID(ctx context.Context, sourceOrderID string) (*Order, error) {
	return s.queryIndex(ctx, sourceOrderIDIndex, "source_order_id", sourceOrderID)
}

// GetByDocID fetches an order by its storage-assigned document id.
func (s *Store) GetByDocID(ctx context.Context, docID string) (*Order, error) {
	return s.queryIndex(ctx, docIDIndex, "doc_id", docID)
}

func (s *Store) queryIndex(ctx context.Context, index, attr, value string) (*Order, error) {
	limit := int32(1)
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
		Limit: &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", index, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// AppendMediaFile appends one durable-copy record to the order's files
// array. Single atomic update; never read-modify-write.
func (s *Store) AppendMediaFile(ctx context.Context, orderID string, f MediaFile) error {
	fileList, err := marshalAsList(f)
	if err != nil {
		return fmt.Errorf("marshal media file: %w", err)
	}

	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET files = list_append(if_not_exists(files, :empty), :file), updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":file":  fileList,
			":empty": emptyList(),
			":ua":    s.nowAttr(),
		},
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("append media file: %w", err)
	}
	return nil
}

// RecordFulfillment appends the partner references for every fulfilled line
// item, stamps the source order id the partner will echo back, and marks the
// order submitted. One atomic update for the whole batch.
func (s *Store) RecordFulfillment(ctx context.Context, orderID, sourceOrderID string, refs []FulfillmentRef) error {
	refList, err := marshalAsList(refs...)
	if err != nil {
		return fmt.Errorf("marshal fulfillment refs: %w", err)
	}

	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET fulfillment_refs = list_append(if_not_exists(fulfillment_refs, :empty), :refs), source_order_id = :soid, #s = :st, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":refs":  refList,
			":empty": emptyList(),
			":soid":  &types.AttributeValueMemberS{Value: sourceOrderID},
			":st":    &types.AttributeValueMemberS{Value: StatusSubmitted},
			":ua":    s.nowAttr(),
		},
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("record fulfillment: %w", err)
	}
	return nil
}

// CallbackUpdate carries the writes derived from one matched partner
// callback. Event is nil when the status is an exact repeat of the previous
// one; Shipment is nil when the callback carried no tracking number.
type CallbackUpdate struct {
	Status   string
	Event    *StatusEvent
	Shipment *ShipmentEvent
}

// ApplyCallback sets the current status and updated_at unconditionally and
// appends the history/shipment entries that are present, all in one atomic
// update.
func (s *Store) ApplyCallback(ctx context.Context, orderID string, u CallbackUpdate) error {
	expr := "SET #s = :st, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":st": &types.AttributeValueMemberS{Value: u.Status},
		":ua": s.nowAttr(),
	}

	if u.Event != nil {
		evList, err := marshalAsList(*u.Event)
		if err != nil {
			return fmt.Errorf("marshal status event: %w", err)
		}
		expr += ", status_history = list_append(if_not_exists(status_history, :empty), :ev)"
		values[":ev"] = evList
	}
	if u.Shipment != nil {
		shList, err := marshalAsList(*u.Shipment)
		if err != nil {
			return fmt.Errorf("marshal shipment event: %w", err)
		}
		expr += ", shipments = list_append(if_not_exists(shipments, :empty), :sh)"
		values[":sh"] = shList
	}
	if u.Event != nil || u.Shipment != nil {
		values[":empty"] = emptyList()
	}

	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: &expr,
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: values,
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("apply callback: %w", err)
	}
	return nil
}

func (s *Store) nowAttr() types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339)}
}

// marshalAsList marshals values into a DynamoDB list attribute suitable as
// the right-hand side of list_append.
func marshalAsList[T any](values ...T) (types.AttributeValue, error) {
	members := make([]types.AttributeValue, 0, len(values))
	for _, v := range values {
		m, err := attributevalue.MarshalMap(v)
		if err != nil {
			return nil, err
		}
		members = append(members, &types.AttributeValueMemberM{Value: m})
	}
	return &types.AttributeValueMemberL{Value: members}, nil
}

func emptyList() types.AttributeValue {
	return &types.AttributeValueMemberL{Value: []types.AttributeValue{}}
}

func awsString(s string) *string { return &s }
