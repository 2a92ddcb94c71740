package account

// State is the lifecycle of a user account.
//
//	Uninitialized → Initialized → Decrypted → PaymentRequested
//
// Aggregation only happens while Initialized, PaymentRequested is terminal.
type State uint8

const (
	StateUninitialized State = iota
	StateInitialized
	StateDecrypted
	StatePaymentRequested
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateDecrypted:
		return "decrypted"
	case StatePaymentRequested:
		return "payment requested"
	default:
		return "unknown"
	}
}
