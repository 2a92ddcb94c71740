package account

import (
	"errors"
	"fmt"

	"github.com/taurusgroup/themis/pkg/policy"
)

var (
	ErrDecode             = policy.ErrDecode
	ErrAlreadyInitialized = policy.ErrAlreadyInitialized
	ErrNotInitialized     = policy.ErrNotInitialized
	ErrIndexOutOfRange    = policy.ErrIndexOutOfRange

	// ErrAccountInUse is returned when initializing an account past its initial state.
	ErrAccountInUse = fmt.Errorf("account: in use: %w", ErrAlreadyInitialized)
	// ErrInvalidProof is returned when a decryption proof does not verify.
	ErrInvalidProof = errors.New("account: invalid decryption proof")
	// ErrAggregateNotReady is returned when proving the decryption of an empty aggregate.
	ErrAggregateNotReady = errors.New("account: aggregate not ready")
	// ErrStateMismatch is returned when supplied values differ from the stored ones.
	ErrStateMismatch = errors.New("account: state mismatch")
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("account: invalid state transition")
)
