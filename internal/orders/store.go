package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-payzen-notify/internal/aws"
)

var (
	// ErrStatusMismatch means the stored (status, transaction id) pair changed
	// since it was read; the conditional write was not applied.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrOrderExists is returned by Put when the order id is taken.
	ErrOrderExists = errors.New("order already exists")
	// ErrNotFound is returned by writes against a missing order.
	ErrNotFound = errors.New("order not found")
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

// Put creates an order. It refuses to overwrite an existing order id.
func (s *Store) Put(ctx context.Context, order Order) error {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = StatusPending
	}

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrOrderExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            orderKey(orderID),
		ConsistentRead: awsBool(true),
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

// Settle records the payment metadata, appends note and moves the order to
// newStatus in a single conditional write. The write only applies while the
// stored status and transaction id still equal expect; otherwise it returns
// ErrStatusMismatch and nothing is changed.
func (s *Store) Settle(ctx context.Context, orderID string, expect Expectation, p Payment, newStatus, note string) error {
	return s.transition(ctx, orderID, expect, p, newStatus, note, true)
}

// Fail records the payment metadata, appends note and moves the order to
// failed, under the same condition as Settle.
func (s *Store) Fail(ctx context.Context, orderID string, expect Expectation, p Payment, note string) error {
	return s.transition(ctx, orderID, expect, p, StatusFailed, note, false)
}

func (s *Store) transition(ctx context.Context, orderID string, expect Expectation, p Payment, newStatus, note string, paid bool) error {
	now := s.nowFunc().UTC().Format(time.RFC3339Nano)

	updateExpr := "SET #s = :new, transaction_id = :txn, card_number = :cn, card_brand = :cb, card_expiry = :ce, " +
		"updated_at = :ua, notes = list_append(if_not_exists(notes, :empty), :note)"
	if paid {
		updateExpr += ", paid_at = :ua"
	}

	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: newStatus},
		":txn":      &types.AttributeValueMemberS{Value: p.TransactionID},
		":cn":       &types.AttributeValueMemberS{Value: p.CardNumber},
		":cb":       &types.AttributeValueMemberS{Value: p.CardBrand},
		":ce":       &types.AttributeValueMemberS{Value: p.CardExpiry},
		":ua":       &types.AttributeValueMemberS{Value: now},
		":empty":    &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		":note":     &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: note}}},
		":expected": &types.AttributeValueMemberS{Value: expect.Status},
	}

	// the stored transaction id is part of the compare-and-swap: two
	// notifications racing on the same order cannot both apply.
	condition := "#s = :expected AND attribute_not_exists(transaction_id)"
	if expect.TransactionID != "" {
		condition = "#s = :expected AND transaction_id = :prev_txn"
		values[":prev_txn"] = &types.AttributeValueMemberS{Value: expect.TransactionID}
	}

	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       orderKey(orderID),
		UpdateExpression:          &updateExpr,
		ConditionExpression:       &condition,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// AppendNote adds a free text note to an existing order.
func (s *Store) AppendNote(ctx context.Context, orderID, note string) error {
	now := s.nowFunc().UTC().Format(time.RFC3339Nano)
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 orderKey(orderID),
		UpdateExpression:    awsString("SET notes = list_append(if_not_exists(notes, :empty), :note), updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(order_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":note":  &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: note}}},
			":ua":    &types.AttributeValueMemberS{Value: now},
		},
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrNotFound
		}
		return fmt.Errorf("append note: %w", err)
	}
	return nil
}

func orderKey(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
