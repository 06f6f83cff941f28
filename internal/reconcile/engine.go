package reconcile

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-payzen-notify/internal/orders"
	"github.com/imrishuroy/go-payzen-notify/internal/payzen"
)

// maxAttempts bounds how often a lost compare-and-swap is re-decided.
const maxAttempts = 3

// OrderStore is the order persistence the engine needs.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	Settle(ctx context.Context, orderID string, expect orders.Expectation, p orders.Payment, newStatus, note string) error
	Fail(ctx context.Context, orderID string, expect orders.Expectation, p orders.Payment, note string) error
}

// Request carries one verified notification into the engine.
type Request struct {
	OrderID     string
	OrderKey    string
	TransStatus string
	Outcome     payzen.Outcome
	Payment     orders.Payment
}

// Result describes what Reconcile did.
type Result struct {
	Action   Action
	Outcome  payzen.Outcome
	Conflict bool
	// Mutated is true when this call wrote the order.
	Mutated bool
	// Order is the order as it stands after the call.
	Order *orders.Order
}

// Engine runs the reconciliation state machine against an OrderStore.
type Engine struct {
	store         OrderStore
	locker        Locker
	successStatus string
}

// NewEngine builds an Engine. successStatus is the status a settled order
// moves to; a nil locker means no per-order critical section besides the
// conditional writes of the store.
func NewEngine(store OrderStore, locker Locker, successStatus string) *Engine {
	if successStatus == "" {
		successStatus = orders.StatusProcessing
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Engine{store: store, locker: locker, successStatus: successStatus}
}

// Reconcile loads the order named by req, decides the transition and applies
// it. A settlement is applied at most once per transaction id: the write is
// conditioned on the state the decision was taken on, and a lost race is
// re-decided against the fresh state.
//
// Errors: payzen.ErrOrderNotFound, payzen.ErrOrderKeyMismatch,
// payzen.ErrStateConflict (returned together with a Result), or a wrapped
// store error.
func (e *Engine) Reconcile(ctx context.Context, req Request) (Result, error) {
	log := zerolog.Ctx(ctx).With().Str("order_id", req.OrderID).Str("trans_id", req.Payment.TransactionID).Logger()

	unlock, err := e.locker.Lock(ctx, "order#"+req.OrderID)
	if err != nil {
		return Result{}, fmt.Errorf("lock order %s: %w", req.OrderID, err)
	}
	defer unlock()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		order, err := e.store.Get(ctx, req.OrderID)
		if err != nil {
			return Result{}, fmt.Errorf("load order: %w", err)
		}
		if order == nil {
			return Result{}, payzen.ErrOrderNotFound
		}
		if subtle.ConstantTimeCompare([]byte(order.OrderKey), []byte(req.OrderKey)) != 1 {
			return Result{}, payzen.ErrOrderKeyMismatch
		}

		d := Decide(SnapshotOf(*order), req.Outcome, req.Payment.TransactionID)
		log.Info().
			Str("status", order.Status).
			Str("outcome", req.Outcome.String()).
			Str("action", d.Action.String()).
			Bool("mutate", d.Mutate).
			Int("attempt", attempt).
			Msg("reconcile decision")

		res := Result{Action: d.Action, Outcome: req.Outcome, Conflict: d.Conflict, Order: order}
		if d.Conflict {
			return res, fmt.Errorf("%w: order is %s, notification is %s", payzen.ErrStateConflict, order.Status, req.Outcome)
		}
		if !d.Mutate {
			return res, nil
		}

		expect := orders.Expect(*order)
		next := e.successStatus
		if d.Action == ActionSettled {
			err = e.store.Settle(ctx, req.OrderID, expect, req.Payment, next, Note(req))
		} else {
			next = orders.StatusFailed
			err = e.store.Fail(ctx, req.OrderID, expect, req.Payment, Note(req))
		}
		if errors.Is(err, orders.ErrStatusMismatch) {
			log.Warn().Int("attempt", attempt).Msg("order changed concurrently, re-deciding")
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("apply %s: %w", d.Action, err)
		}

		applied := *order
		applied.Status = next
		applied.TransactionID = req.Payment.TransactionID
		applied.CardNumber = req.Payment.CardNumber
		applied.CardBrand = req.Payment.CardBrand
		applied.CardExpiry = req.Payment.CardExpiry
		res.Order = &applied
		res.Mutated = true
		log.Info().Str("new_status", next).Msg("order updated")
		return res, nil
	}

	return Result{}, fmt.Errorf("%w: order %s kept changing", payzen.ErrStateConflict, req.OrderID)
}

// Note is the order note written for a mutating transition. Cancelled
// payments carry no transaction line.
func Note(req Request) string {
	var b strings.Builder
	b.WriteString(outcomeMessage(req.Outcome))
	if req.TransStatus != "" {
		fmt.Fprintf(&b, " (%s)", req.TransStatus)
	}
	if !req.Outcome.IsCancelled() {
		fmt.Fprintf(&b, "\nTransaction %s.", req.Payment.TransactionID)
	}
	return b.String()
}

func outcomeMessage(o payzen.Outcome) string {
	switch o {
	case payzen.OutcomeAccepted:
		return "Payment accepted."
	case payzen.OutcomePending:
		return "Payment guaranteed, awaiting capture."
	case payzen.OutcomeRefused:
		return "Payment refused."
	case payzen.OutcomeUnknown:
		return "Payment failed."
	}
	return "Payment cancelled."
}
