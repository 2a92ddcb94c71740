package themis

import (
	"errors"

	"github.com/taurusgroup/themis/pkg/account"
)

var (
	ErrAlreadyInitialized = account.ErrAlreadyInitialized
	ErrAccountInUse       = account.ErrAccountInUse
	ErrNotInitialized     = account.ErrNotInitialized
	ErrIndexOutOfRange    = account.ErrIndexOutOfRange
	ErrDecode             = account.ErrDecode
	ErrInvalidProof       = account.ErrInvalidProof
	ErrAggregateNotReady  = account.ErrAggregateNotReady
	ErrStateMismatch      = account.ErrStateMismatch
	ErrInvalidTransition  = account.ErrInvalidTransition
)

// IsRejection reports whether err is a failed cryptographic verification,
// as opposed to a malformed input or an operation out of order.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidProof)
}
