package curve

import (
	"encoding"

	"github.com/cronokirby/saferith"
)

// Curve represents a prime order group of points, together with its field of scalars.
//
// Every implementation must have cofactor 1, so that every decoded point is a
// member of the group used by the ElGamal and proof code.
type Curve interface {
	// NewPoint returns the identity element.
	NewPoint() Point
	// NewBasePoint returns the fixed generator of the group.
	NewBasePoint() Point
	// NewScalar returns the scalar 0.
	NewScalar() Scalar
	// Name returns the name of this curve, used for domain separation.
	Name() string
	// ScalarBits returns the number of significant bits in a scalar.
	ScalarBits() int
	// SafeScalarBytes returns the number of uniform bytes to read so that their
	// reduction modulo the order is statistically close to uniform.
	SafeScalarBytes() int
	// Order returns the order of the group, as a Modulus.
	Order() *saferith.Modulus
}

// Scalar represents an element of the field of scalars of a Curve.
//
// Methods that take another scalar modify the receiver and return it.
type Scalar interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Curve() Curve
	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Negate() Scalar
	Mul(Scalar) Scalar
	Invert() Scalar
	Equal(Scalar) bool
	IsZero() bool
	Set(Scalar) Scalar
	SetNat(*saferith.Nat) Scalar
	// Act returns s⋅P.
	Act(Point) Point
	// ActOnBase returns s⋅G.
	ActOnBase() Point
}

// Point represents an element of a Curve.
//
// Apart from Set and UnmarshalBinary, methods never modify their receiver
// and always return a new Point.
type Point interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Curve() Curve
	Add(Point) Point
	Sub(Point) Point
	Negate() Point
	Set(Point) Point
	Equal(Point) bool
	IsIdentity() bool
}

// ScalarFromUint64 returns x as a scalar of group.
func ScalarFromUint64(group Curve, x uint64) Scalar {
	return group.NewScalar().SetNat(new(saferith.Nat).SetUint64(x))
}

// MakeNat returns the canonical value of s as a Nat.
func MakeNat(s Scalar) *saferith.Nat {
	bytes, err := s.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return new(saferith.Nat).SetBytes(bytes)
}

// FromHash converts a hash value to a Scalar.
//
// There is some disagreement about how this should be done.
// [NSA] suggests that this is done in the obvious
// manner, but [SECG] truncates the hash to the bit-length of the curve order
// first. We follow [SECG] because that's what OpenSSL does. Additionally,
// OpenSSL right shifts excess bits from the number if the hash is too large
// and we mirror that too.
//
// Taken from crypto/ecdsa.
func FromHash(group Curve, h []byte) Scalar {
	order := group.Order()
	orderBits := order.BitLen()
	orderBytes := (orderBits + 7) / 8
	if len(h) > orderBytes {
		h = h[:orderBytes]
	}
	s := new(saferith.Nat).SetBytes(h)
	excess := len(h)*8 - orderBits
	if excess > 0 {
		s.Rsh(s, uint(excess), -1)
	}
	return group.NewScalar().SetNat(s)
}
