package ledger

import (
	"strings"
	"time"
)

// Status values for ledger entries
const (
	StatusReceived = "RECEIVED"
	StatusDone     = "DONE"
	StatusFailed   = "FAILED"
)

// Delivery identifies one verified notification delivery.
type Delivery struct {
	OrderID     string
	TransID     string
	TransStatus string
	Channel     string
}

// Key is the ledger primary key. Redeliveries of the same transaction status
// through the same channel share a key.
func (d Delivery) Key() string {
	return strings.Join([]string{d.OrderID, d.TransID, d.TransStatus, d.Channel}, "#")
}

// Record is the shape persisted in the ledger DynamoDB table.
type Record struct {
	DeliveryKey string    `dynamodbav:"delivery_key"` // PK
	Status      string    `dynamodbav:"status"`
	OrderID     string    `dynamodbav:"order_id"`
	TransID     string    `dynamodbav:"trans_id"`
	TransStatus string    `dynamodbav:"trans_status"`
	Channel     string    `dynamodbav:"channel"`
	Deliveries  int       `dynamodbav:"deliveries"`
	Action      string    `dynamodbav:"action,omitempty"`
	Message     string    `dynamodbav:"message,omitempty"`
	Note        string    `dynamodbav:"note,omitempty"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
	ExpiresAt   int64     `dynamodbav:"expires_at"` // TTL epoch seconds
}
