package orders

import "time"

// Order statuses, as stored by the shop.
const (
	StatusPending    = "pending"
	StatusOnHold     = "on-hold"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// SettledStatuses are the statuses of an order whose payment succeeded.
var SettledStatuses = []string{StatusOnHold, StatusProcessing, StatusCompleted}

// IsSettledStatus reports whether s is one of SettledStatuses.
func IsSettledStatus(s string) bool {
	for _, st := range SettledStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID       string     `dynamodbav:"order_id"`  // PK
	OrderKey      string     `dynamodbav:"order_key"` // opaque key echoed back in vads_order_info
	CustomerID    string     `dynamodbav:"customer_id,omitempty"`
	Status        string     `dynamodbav:"status"`
	Total         string     `dynamodbav:"total,omitempty"` // decimal string
	Currency      string     `dynamodbav:"currency,omitempty"`
	ReturnURL     string     `dynamodbav:"return_url,omitempty"`
	TransactionID string     `dynamodbav:"transaction_id,omitempty"`
	CardNumber    string     `dynamodbav:"card_number,omitempty"` // masked
	CardBrand     string     `dynamodbav:"card_brand,omitempty"`
	CardExpiry    string     `dynamodbav:"card_expiry,omitempty"` // MM/YYYY
	Notes         []string   `dynamodbav:"notes,omitempty"`
	PaidAt        *time.Time `dynamodbav:"paid_at,omitempty"`
	CreatedAt     time.Time  `dynamodbav:"created_at"`
	UpdatedAt     time.Time  `dynamodbav:"updated_at"`
}

// HasStatus reports whether the order is in one of statuses.
func (o Order) HasStatus(statuses ...string) bool {
	for _, s := range statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// Expectation is the state a conditional write was computed against.
type Expectation struct {
	Status        string
	TransactionID string
}

// Expect captures the current state of o.
func Expect(o Order) Expectation {
	return Expectation{Status: o.Status, TransactionID: o.TransactionID}
}

// Payment is the card metadata persisted with a transaction.
type Payment struct {
	TransactionID string
	CardNumber    string
	CardBrand     string
	CardExpiry    string
}
