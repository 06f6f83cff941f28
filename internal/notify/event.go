package notify

import "time"

// PaymentEventType is set as the event_type message attribute.
const PaymentEventType = "payzen.payment.reconciled"

// PaymentEvent is published for every notification that changed an order.
type PaymentEvent struct {
	EventID     string    `json:"event_id"`
	OrderID     string    `json:"order_id"`
	TransID     string    `json:"trans_id"`
	TransStatus string    `json:"trans_status"`
	Outcome     string    `json:"outcome"`
	Action      string    `json:"action"`
	Channel     string    `json:"channel"`
	OrderStatus string    `json:"order_status"`
	Amount      string    `json:"amount,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	CtxMode     string    `json:"ctx_mode,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
