package orders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory table keyed by order_id. It understands the
// condition and update expressions issued by Store, nothing more.
type mockDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func pkOf(m map[string]types.AttributeValue) string {
	return m["order_id"].(*types.AttributeValueMemberS).Value
}

func strAttr(item map[string]types.AttributeValue, name string) (string, bool) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return v.Value, true
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := pkOf(params.Item)
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(order_id)" {
		if _, exists := m.items[pk]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[pkOf(params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	cp := map[string]types.AttributeValue{}
	for k, v := range item {
		cp[k] = v
	}
	return &dyn.GetItemOutput{Item: cp}, nil
}

var placeholderAttrs = map[string]string{
	":new": "status",
	":txn": "transaction_id",
	":cn":  "card_number",
	":cb":  "card_brand",
	":ce":  "card_expiry",
	":ua":  "updated_at",
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk := pkOf(params.Key)
	item, exists := m.items[pk]
	if !exists {
		return nil, &types.ConditionalCheckFailedException{}
	}

	vals := params.ExpressionAttributeValues
	cond := ""
	if params.ConditionExpression != nil {
		cond = *params.ConditionExpression
	}
	if strings.Contains(cond, "#s = :expected") {
		curr, _ := strAttr(item, "status")
		if curr != vals[":expected"].(*types.AttributeValueMemberS).Value {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if strings.Contains(cond, "attribute_not_exists(transaction_id)") {
		if _, ok := item["transaction_id"]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if strings.Contains(cond, "transaction_id = :prev_txn") {
		curr, _ := strAttr(item, "transaction_id")
		if curr != vals[":prev_txn"].(*types.AttributeValueMemberS).Value {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}

	for ph, attr := range placeholderAttrs {
		if v, ok := vals[ph]; ok {
			item[attr] = v
		}
	}
	if strings.Contains(*params.UpdateExpression, "paid_at = :ua") {
		item["paid_at"] = vals[":ua"]
	}
	if note, ok := vals[":note"].(*types.AttributeValueMemberL); ok {
		list := []types.AttributeValue{}
		if existing, ok := item["notes"].(*types.AttributeValueMemberL); ok {
			list = append(list, existing.Value...)
		}
		item["notes"] = &types.AttributeValueMemberL{Value: append(list, note.Value...)}
	}
	m.items[pk] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func seed(t *testing.T, mock *mockDynamo, o Order) {
	t.Helper()
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	mock.items[o.OrderID] = item
}

func TestPut_RefusesDuplicate(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "orders")

	order := Order{OrderID: "order-1", OrderKey: "k1"}
	if err := store.Put(context.Background(), order); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	got, err := store.Get(context.Background(), "order-1")
	if err != nil || got == nil {
		t.Fatalf("expected stored order, got %v / %v", got, err)
	}
	if got.Status != StatusPending {
		t.Fatalf("expected default status pending, got %s", got.Status)
	}

	if err := store.Put(context.Background(), order); !errors.Is(err, ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := NewStore(newMockDynamo(), "orders")

	got, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil order, got %+v", got)
	}
}

func TestSettle_AppliesOnceUnderCondition(t *testing.T) {
	mock := newMockDynamo()
	now := time.Now()
	seed(t, mock, Order{OrderID: "order-10", OrderKey: "k", Status: StatusPending, CreatedAt: now, UpdatedAt: now})
	store := NewStore(mock, "orders")
	ctx := context.Background()

	expect := Expectation{Status: StatusPending}
	payment := Payment{TransactionID: "T1", CardNumber: "497010XXXXXX0055", CardBrand: "CB", CardExpiry: "06/2027"}

	if err := store.Settle(ctx, "order-10", expect, payment, StatusProcessing, "Transaction T1."); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	got, _ := store.Get(ctx, "order-10")
	if got.Status != StatusProcessing || got.TransactionID != "T1" || got.CardBrand != "CB" || got.CardExpiry != "06/2027" {
		t.Fatalf("unexpected order after settle: %+v", got)
	}
	if got.PaidAt == nil {
		t.Fatalf("expected paid_at to be set")
	}
	if len(got.Notes) != 1 || got.Notes[0] != "Transaction T1." {
		t.Fatalf("unexpected notes: %v", got.Notes)
	}

	// same expectation again: the stored state moved on, nothing is applied
	err := store.Settle(ctx, "order-10", expect, payment, StatusProcessing, "Transaction T1.")
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}
	got, _ = store.Get(ctx, "order-10")
	if len(got.Notes) != 1 {
		t.Fatalf("notes must not be duplicated, got %v", got.Notes)
	}
}

func TestFail_ChecksStoredTransactionID(t *testing.T) {
	mock := newMockDynamo()
	now := time.Now()
	seed(t, mock, Order{OrderID: "order-20", Status: StatusFailed, TransactionID: "T1", CreatedAt: now, UpdatedAt: now})
	store := NewStore(mock, "orders")
	ctx := context.Background()

	stale := Expectation{Status: StatusFailed, TransactionID: "T0"}
	if err := store.Fail(ctx, "order-20", stale, Payment{TransactionID: "T2"}, "refused"); !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch for stale transaction id, got %v", err)
	}

	current := Expectation{Status: StatusFailed, TransactionID: "T1"}
	if err := store.Fail(ctx, "order-20", current, Payment{TransactionID: "T2"}, "refused"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	got, _ := store.Get(ctx, "order-20")
	if got.TransactionID != "T2" || got.Status != StatusFailed {
		t.Fatalf("unexpected order after fail: %+v", got)
	}
	if got.PaidAt != nil {
		t.Fatalf("failed order must not carry paid_at")
	}
}

func TestSettle_ConcurrentCallersApplyOnce(t *testing.T) {
	mock := newMockDynamo()
	now := time.Now()
	seed(t, mock, Order{OrderID: "order-30", Status: StatusPending, CreatedAt: now, UpdatedAt: now})
	store := NewStore(mock, "orders")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Settle(context.Background(), "order-30", Expectation{Status: StatusPending}, Payment{TransactionID: "T1"}, StatusCompleted, "n")
			if err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Fatalf("expected exactly one applied settle, got %d", applied)
	}
}

func TestAppendNote(t *testing.T) {
	mock := newMockDynamo()
	seed(t, mock, Order{OrderID: "order-40", Status: StatusPending, CreatedAt: time.Now(), UpdatedAt: time.Now()})
	store := NewStore(mock, "orders")
	ctx := context.Background()

	if err := store.AppendNote(ctx, "order-40", "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.AppendNote(ctx, "order-40", "second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := store.Get(ctx, "order-40")
	if len(got.Notes) != 2 || got.Notes[1] != "second" {
		t.Fatalf("unexpected notes: %v", got.Notes)
	}

	if err := store.AppendNote(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderHelpers(t *testing.T) {
	o := Order{Status: StatusOnHold, TransactionID: "T9"}
	if !o.HasStatus(SettledStatuses...) || !IsSettledStatus(o.Status) {
		t.Fatalf("on-hold is a settled status")
	}
	if IsSettledStatus(StatusFailed) || IsSettledStatus(StatusPending) {
		t.Fatalf("failed and pending are not settled")
	}
	if e := Expect(o); e.Status != StatusOnHold || e.TransactionID != "T9" {
		t.Fatalf("unexpected expectation %+v", e)
	}
}
