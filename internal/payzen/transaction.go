package payzen

// Outcome is the classified result of a raw transaction status.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeAccepted
	OutcomePending
	OutcomeAbandoned
	OutcomeCancelled
	OutcomeExpired
	OutcomeRefused
	OutcomeSuspended
	OutcomeNotCreated
)

var outcomeNames = map[Outcome]string{
	OutcomeUnknown:    "unknown",
	OutcomeAccepted:   "accepted",
	OutcomePending:    "pending",
	OutcomeAbandoned:  "abandoned",
	OutcomeCancelled:  "cancelled",
	OutcomeExpired:    "expired",
	OutcomeRefused:    "refused",
	OutcomeSuspended:  "suspended",
	OutcomeNotCreated: "not_created",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// IsAccepted is true for settled and provisionally guaranteed payments.
// The merchant fulfils on the guarantee, so Pending counts as accepted.
func (o Outcome) IsAccepted() bool {
	return o == OutcomeAccepted || o == OutcomePending
}

// IsPending reports a guaranteed but not yet captured payment.
func (o Outcome) IsPending() bool {
	return o == OutcomePending
}

// IsCancelled reports any member of the cancelled family.
func (o Outcome) IsCancelled() bool {
	switch o {
	case OutcomeAbandoned, OutcomeCancelled, OutcomeExpired, OutcomeRefused, OutcomeSuspended, OutcomeNotCreated:
		return true
	}
	return false
}

var cancelledStatuses = map[string]Outcome{
	"ABANDONED":   OutcomeAbandoned,
	"CANCELLED":   OutcomeCancelled,
	"NOT_CREATED": OutcomeNotCreated,
	"EXPIRED":     OutcomeExpired,
	"REFUSED":     OutcomeRefused,
	"SUSPENDED":   OutcomeSuspended,
}

var acceptedStatuses = map[string]struct{}{
	"ACCEPTED":               {},
	"AUTHORISED":             {},
	"AUTHORISED_TO_VALIDATE": {},
	"CAPTURED":               {},
	"CAPTURE_FAILED":         {},
}

var pendingStatuses = map[string]struct{}{
	"INITIAL":                           {},
	"UNDER_VERIFICATION":                {},
	"WAITING_AUTHORISATION":             {},
	"WAITING_AUTHORISATION_TO_VALIDATE": {},
}

// Classify maps a raw vads_trans_status onto an Outcome. Cancellation wins
// over every other table.
func Classify(status string) Outcome {
	if o, ok := cancelledStatuses[status]; ok {
		return o
	}
	if _, ok := acceptedStatuses[status]; ok {
		return OutcomeAccepted
	}
	if _, ok := pendingStatuses[status]; ok {
		return OutcomePending
	}
	return OutcomeUnknown
}
