package policy

import "errors"

var (
	// ErrDecode is returned for malformed account buffers, points or scalars.
	ErrDecode = errors.New("account: decode error")
	// ErrAlreadyInitialized is returned when initializing an account twice.
	ErrAlreadyInitialized = errors.New("account: already initialized")
	// ErrNotInitialized is returned when using an account before its initialization.
	ErrNotInitialized = errors.New("account: not initialized")
	// ErrIndexOutOfRange is returned for policy indices past the stored weights.
	ErrIndexOutOfRange = errors.New("account: index out of range")
)
