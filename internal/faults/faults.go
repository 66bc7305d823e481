package faults

import "errors"

// Kind discriminates failures crossing component boundaries. Handlers and the
// checkout state machine branch on the kind, never on message text.
type Kind string

const (
	Validation         Kind = "validation"
	Network            Kind = "network"
	BackendRejected    Kind = "backend_rejected"
	PaymentDeclined    Kind = "payment_declined"
	VerificationFailed Kind = "verification_failed"
	AmountMismatch     Kind = "amount_mismatch"
	Conflict           Kind = "conflict"
	NotFound           Kind = "not_found"
)

type Fault struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (f *Fault) Error() string {
	return string(f.Kind) + ": " + f.Message
}

func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// KindOf returns the fault kind of err, or empty string for plain errors.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
