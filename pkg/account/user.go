package account

import (
	"fmt"

	"github.com/taurusgroup/themis/internal/params"
	"github.com/taurusgroup/themis/pkg/elgamal"
	"github.com/taurusgroup/themis/pkg/math/curve"
)

// offsets into the user layout
const (
	offsetVersion          = 0
	offsetInitialized      = 1
	offsetHasPublicKey     = 2
	offsetPublicKey        = 3
	offsetAggregate        = offsetPublicKey + params.BytesPoint
	offsetHasDecrypted     = offsetAggregate + params.BytesCiphertext
	offsetDecrypted        = offsetHasDecrypted + 1
	offsetProofVerified    = offsetDecrypted + params.BytesPoint
	offsetProofToken       = offsetProofVerified + 1
	offsetPaymentRequested = offsetProofToken + params.BytesPoint
)

// User is the account holding the encrypted running aggregate of one user.
type User struct {
	group       curve.Curve
	initialized bool
	// publicKey is registered by the first aggregation, nil before that
	publicKey curve.Point
	aggregate *elgamal.Ciphertext
	// decrypted is set together with proofVerified
	decrypted     curve.Point
	proofVerified bool
	// proofToken is the announcement_g of the accepted proof
	proofToken       curve.Point
	paymentRequested bool
}

// NewUser returns an uninitialized account.
func NewUser(group curve.Curve) *User {
	return &User{
		group:     group,
		aggregate: elgamal.Empty(group),
	}
}

// State derives the lifecycle state from the stored flags.
func (u *User) State() State {
	switch {
	case !u.initialized:
		return StateUninitialized
	case u.paymentRequested:
		return StatePaymentRequested
	case u.proofVerified:
		return StateDecrypted
	default:
		return StateInitialized
	}
}

func (u *User) IsInitialized() bool { return u.initialized }

// PublicKey returns the registered key, or nil.
func (u *User) PublicKey() curve.Point { return u.publicKey }

// EncryptedAggregate returns the running aggregate, the identity ciphertext before any aggregation.
func (u *User) EncryptedAggregate() *elgamal.Ciphertext { return u.aggregate }

// DecryptedAggregate returns the proven plaintext, or nil.
func (u *User) DecryptedAggregate() curve.Point { return u.decrypted }

func (u *User) ProofVerified() bool { return u.proofVerified }

// ProofToken returns the announcement_g of the accepted proof, or nil.
func (u *User) ProofToken() curve.Point { return u.proofToken }

func (u *User) PaymentRequested() bool { return u.paymentRequested }

// Initialize moves the account out of StateUninitialized.
func (u *User) Initialize() error {
	if u.initialized {
		return ErrAccountInUse
	}
	u.initialized = true
	return nil
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	out := *u
	out.publicKey = clonePoint(u.group, u.publicKey)
	out.aggregate = &elgamal.Ciphertext{
		C1: clonePoint(u.group, u.aggregate.C1),
		C2: clonePoint(u.group, u.aggregate.C2),
	}
	out.decrypted = clonePoint(u.group, u.decrypted)
	out.proofToken = clonePoint(u.group, u.proofToken)
	return &out
}

// Encode writes u into dst using the fixed user layout, zeroing trailing bytes.
//
// An uninitialized account is encoded as zeros.
func (u *User) Encode(dst []byte) error {
	if len(dst) < params.BytesUser {
		return fmt.Errorf("user: buffer too small (%d < %d): %w", len(dst), params.BytesUser, ErrDecode)
	}
	clear(dst)
	if !u.initialized {
		return nil
	}
	dst[offsetVersion] = params.AccountVersion
	dst[offsetInitialized] = 1
	if err := putOptionalPoint(dst, offsetHasPublicKey, offsetPublicKey, u.publicKey); err != nil {
		return err
	}
	aggregate, err := u.aggregate.MarshalBinary()
	if err != nil {
		return fmt.Errorf("user: aggregate: %v: %w", err, ErrDecode)
	}
	copy(dst[offsetAggregate:], aggregate)
	if err = putOptionalPoint(dst, offsetHasDecrypted, offsetDecrypted, u.decrypted); err != nil {
		return err
	}
	dst[offsetProofVerified] = boolByte(u.proofVerified)
	if u.proofToken != nil {
		if err = putPoint(dst[offsetProofToken:], u.proofToken); err != nil {
			return err
		}
	}
	dst[offsetPaymentRequested] = boolByte(u.paymentRequested)
	return nil
}

// DecodeUser reads a user account from data.
//
// An empty or all zero buffer decodes to an uninitialized account. Otherwise
// data must hold a full, consistent layout, followed only by zeros.
func DecodeUser(group curve.Curve, data []byte) (*User, error) {
	u := NewUser(group)
	if isZero(data) {
		return u, nil
	}
	if len(data) < params.BytesUser {
		return nil, fmt.Errorf("user: short buffer (%d bytes): %w", len(data), ErrDecode)
	}
	if !isZero(data[params.BytesUser:]) {
		return nil, fmt.Errorf("user: trailing bytes: %w", ErrDecode)
	}
	data = data[:params.BytesUser]
	if data[offsetVersion] != params.AccountVersion {
		return nil, fmt.Errorf("user: unknown version %d: %w", data[offsetVersion], ErrDecode)
	}

	var err error
	if u.initialized, err = readBool(data[offsetInitialized]); err != nil {
		return nil, err
	}
	if !u.initialized {
		return nil, fmt.Errorf("user: versioned buffer is not initialized: %w", ErrDecode)
	}
	if u.publicKey, err = readOptionalPoint(group, data, offsetHasPublicKey, offsetPublicKey); err != nil {
		return nil, err
	}
	if u.publicKey != nil && u.publicKey.IsIdentity() {
		return nil, fmt.Errorf("user: identity public key: %w", ErrDecode)
	}
	if err = u.aggregate.UnmarshalBinary(data[offsetAggregate:offsetHasDecrypted]); err != nil {
		return nil, fmt.Errorf("user: %v: %w", err, ErrDecode)
	}
	if u.decrypted, err = readOptionalPoint(group, data, offsetHasDecrypted, offsetDecrypted); err != nil {
		return nil, err
	}
	if u.proofVerified, err = readBool(data[offsetProofVerified]); err != nil {
		return nil, err
	}
	if u.paymentRequested, err = readBool(data[offsetPaymentRequested]); err != nil {
		return nil, err
	}

	token := data[offsetProofToken:offsetPaymentRequested]
	switch {
	case u.proofVerified != (u.decrypted != nil):
		return nil, fmt.Errorf("user: decrypted aggregate without verified proof: %w", ErrDecode)
	case u.paymentRequested && !u.proofVerified:
		return nil, fmt.Errorf("user: payment requested without verified proof: %w", ErrDecode)
	case u.proofVerified && u.publicKey == nil:
		return nil, fmt.Errorf("user: verified proof without public key: %w", ErrDecode)
	case !u.proofVerified && !isZero(token):
		return nil, fmt.Errorf("user: proof token without verified proof: %w", ErrDecode)
	}
	if u.proofVerified {
		u.proofToken = group.NewPoint()
		if err = u.proofToken.UnmarshalBinary(token); err != nil {
			return nil, fmt.Errorf("user: proof token: %v: %w", err, ErrDecode)
		}
	}
	return u, nil
}

func putPoint(dst []byte, p curve.Point) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return fmt.Errorf("user: %v: %w", err, ErrDecode)
	}
	copy(dst, data)
	return nil
}

func putOptionalPoint(dst []byte, flag, offset int, p curve.Point) error {
	if p == nil {
		return nil
	}
	dst[flag] = 1
	return putPoint(dst[offset:], p)
}

func readOptionalPoint(group curve.Curve, data []byte, flag, offset int) (curve.Point, error) {
	present, err := readBool(data[flag])
	if err != nil {
		return nil, err
	}
	raw := data[offset : offset+params.BytesPoint]
	if !present {
		if !isZero(raw) {
			return nil, fmt.Errorf("user: data behind an unset flag at %d: %w", flag, ErrDecode)
		}
		return nil, nil
	}
	p := group.NewPoint()
	if err = p.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("user: point at %d: %v: %w", offset, err, ErrDecode)
	}
	return p, nil
}

func readBool(b byte) (bool, error) {
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("user: invalid boolean %d: %w", b, ErrDecode)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func clonePoint(group curve.Curve, p curve.Point) curve.Point {
	if p == nil {
		return nil
	}
	return group.NewPoint().Set(p)
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
