package reconcile

import (
	"github.com/imrishuroy/go-payzen-notify/internal/orders"
	"github.com/imrishuroy/go-payzen-notify/internal/payzen"
)

// Action is the transition chosen for one notification.
type Action int

const (
	// ActionSettled moved a new order to a paid status.
	ActionSettled Action = iota + 1
	// ActionRejected marked a new order failed, or refused a conflicting
	// notification without touching the order.
	ActionRejected
	// ActionReplayed re-confirmed an outcome already recorded on the order.
	ActionReplayed
)

func (a Action) String() string {
	switch a {
	case ActionSettled:
		return "settled"
	case ActionRejected:
		return "rejected"
	case ActionReplayed:
		return "replayed"
	}
	return "none"
}

// Snapshot is the part of an order the decision depends on.
type Snapshot struct {
	Status        string
	TransactionID string
}

// SnapshotOf reads a Snapshot from o.
func SnapshotOf(o orders.Order) Snapshot {
	return Snapshot{Status: o.Status, TransactionID: o.TransactionID}
}

// Decision is the outcome of Decide.
type Decision struct {
	Action Action
	// Mutate is set when the order must be written (Settled, or Rejected on
	// a new order).
	Mutate bool
	// Conflict is set when the stored state disagrees with the outcome.
	Conflict bool
	// Accepted mirrors the outcome the decision was taken for.
	Accepted bool
}

// IsNewOrder reports whether a notification for transID may still change the
// order. Failed and cancelled orders accept a new attempt carrying a
// different transaction id.
func IsNewOrder(s Snapshot, transID string) bool {
	switch s.Status {
	case orders.StatusPending:
		return true
	case orders.StatusFailed, orders.StatusCancelled:
		return s.TransactionID != transID
	}
	return false
}

// Decide is the transition function. It never reads or writes anything.
func Decide(s Snapshot, outcome payzen.Outcome, transID string) Decision {
	accepted := outcome.IsAccepted()
	d := Decision{Accepted: accepted}

	if IsNewOrder(s, transID) {
		d.Mutate = true
		if accepted {
			d.Action = ActionSettled
		} else {
			d.Action = ActionRejected
		}
		return d
	}

	switch {
	case accepted && orders.IsSettledStatus(s.Status):
		d.Action = ActionReplayed
	case !accepted && (s.Status == orders.StatusFailed || s.Status == orders.StatusCancelled):
		d.Action = ActionReplayed
	default:
		d.Action = ActionRejected
		d.Conflict = true
	}
	return d
}
