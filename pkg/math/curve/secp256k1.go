package curve

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/taurusgroup/themis/internal/params"
)

var (
	secp256k1BaseX, secp256k1BaseY secp256k1.FieldVal
	secp256k1Order                 *saferith.Modulus
)

func init() {
	secp256k1BaseX.SetByteSlice([]byte{
		0x79, 0xbe, 0x66, 0x7e, 0xf9, 0xdc, 0xbb, 0xac, 0x55, 0xa0, 0x62, 0x95, 0xce, 0x87, 0x0b, 0x07,
		0x02, 0x9b, 0xfc, 0xdb, 0x2d, 0xce, 0x28, 0xd9, 0x59, 0xf2, 0x81, 0x5b, 0x16, 0xf8, 0x17, 0x98,
	})
	secp256k1BaseY.SetByteSlice([]byte{
		0x48, 0x3a, 0xda, 0x77, 0x26, 0xa3, 0xc4, 0x65, 0x5d, 0xa4, 0xfb, 0xfc, 0x0e, 0x11, 0x08, 0xa8,
		0xfd, 0x17, 0xb4, 0x48, 0xa6, 0x85, 0x54, 0x19, 0x9c, 0x47, 0xd0, 0x8f, 0xfb, 0x10, 0xd4, 0xb8,
	})
	order, err := new(saferith.Nat).SetHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141")
	if err != nil {
		panic(err)
	}
	secp256k1Order = saferith.ModulusFromNat(order)
}

// Secp256k1 is the prime order group used by Bitcoin, with cofactor 1.
type Secp256k1 struct{}

func (Secp256k1) NewPoint() Point {
	return new(Secp256k1Point)
}

func (Secp256k1) NewBasePoint() Point {
	out := new(Secp256k1Point)
	out.value.X.Set(&secp256k1BaseX)
	out.value.Y.Set(&secp256k1BaseY)
	out.value.Z.SetInt(1)
	return out
}

func (Secp256k1) NewScalar() Scalar {
	return new(Secp256k1Scalar)
}

func (Secp256k1) Name() string {
	return "secp256k1"
}

func (Secp256k1) ScalarBits() int {
	return 256
}

func (Secp256k1) SafeScalarBytes() int {
	return params.BytesScalar + params.SecBytes/2
}

func (Secp256k1) Order() *saferith.Modulus {
	return secp256k1Order
}

// Secp256k1Scalar is a scalar modulo the order of secp256k1.
type Secp256k1Scalar struct {
	value secp256k1.ModNScalar
}

func secp256k1CastScalar(generic Scalar) *Secp256k1Scalar {
	out, ok := generic.(*Secp256k1Scalar)
	if !ok {
		panic(fmt.Sprintf("failed to convert to secp256k1Scalar: %v", generic))
	}
	return out
}

func (*Secp256k1Scalar) Curve() Curve {
	return Secp256k1{}
}

// MarshalBinary returns the 32 byte big-endian encoding of s.
func (s *Secp256k1Scalar) MarshalBinary() ([]byte, error) {
	data := s.value.Bytes()
	return data[:], nil
}

// UnmarshalBinary only accepts canonical encodings, values ⩾ q are rejected.
func (s *Secp256k1Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != params.BytesScalar {
		return fmt.Errorf("invalid length for secp256k1 scalar: %d", len(data))
	}
	var exactData [params.BytesScalar]byte
	copy(exactData[:], data)
	var value secp256k1.ModNScalar
	if value.SetBytes(&exactData) != 0 {
		return errors.New("invalid bytes for secp256k1 scalar: value exceeds group order")
	}
	s.value.Set(&value)
	return nil
}

func (s *Secp256k1Scalar) Add(that Scalar) Scalar {
	other := secp256k1CastScalar(that)

	s.value.Add(&other.value)
	return s
}

func (s *Secp256k1Scalar) Sub(that Scalar) Scalar {
	other := secp256k1CastScalar(that)

	var negated secp256k1.ModNScalar
	negated.NegateVal(&other.value)
	s.value.Add(&negated)
	return s
}

func (s *Secp256k1Scalar) Mul(that Scalar) Scalar {
	other := secp256k1CastScalar(that)

	s.value.Mul(&other.value)
	return s
}

func (s *Secp256k1Scalar) Invert() Scalar {
	s.value.InverseNonConst()
	return s
}

func (s *Secp256k1Scalar) Negate() Scalar {
	s.value.Negate()
	return s
}

func (s *Secp256k1Scalar) Equal(that Scalar) bool {
	other := secp256k1CastScalar(that)

	return s.value.Equals(&other.value)
}

func (s *Secp256k1Scalar) IsZero() bool {
	return s.value.IsZero()
}

func (s *Secp256k1Scalar) Set(that Scalar) Scalar {
	other := secp256k1CastScalar(that)

	s.value.Set(&other.value)
	return s
}

func (s *Secp256k1Scalar) SetNat(x *saferith.Nat) Scalar {
	reduced := new(saferith.Nat).Mod(x, secp256k1Order)
	s.value.SetByteSlice(reduced.Bytes())
	return s
}

func (s *Secp256k1Scalar) Act(that Point) Point {
	other := secp256k1CastPoint(that)
	out := new(Secp256k1Point)
	if other.IsIdentity() {
		return out
	}
	secp256k1.ScalarMultNonConst(&s.value, &other.value, &out.value)
	return out
}

func (s *Secp256k1Scalar) ActOnBase() Point {
	out := new(Secp256k1Point)
	secp256k1.ScalarBaseMultNonConst(&s.value, &out.value)
	return out
}

// Secp256k1Point is a point on secp256k1 in Jacobian coordinates.
//
// The zero value is the identity.
type Secp256k1Point struct {
	value secp256k1.JacobianPoint
}

func secp256k1CastPoint(generic Point) *Secp256k1Point {
	out, ok := generic.(*Secp256k1Point)
	if !ok {
		panic(fmt.Sprintf("failed to convert to secp256k1Point: %v", generic))
	}
	return out
}

func (*Secp256k1Point) Curve() Curve {
	return Secp256k1{}
}

// affine returns a copy of p in affine coordinates, p must not be the identity.
func (p *Secp256k1Point) affine() secp256k1.JacobianPoint {
	// we copy the value so that marshalling never writes to a shared point
	v := p.value
	v.ToAffine()
	return v
}

// MarshalBinary returns the 33 byte compressed encoding of p.
// The identity is encoded as 33 zero bytes.
func (p *Secp256k1Point) MarshalBinary() ([]byte, error) {
	out := make([]byte, params.BytesPoint)
	if p.IsIdentity() {
		return out, nil
	}
	v := p.affine()
	// Doing it this way is compatible with Bitcoin
	out[0] = byte(v.Y.IsOddBit()) + 2
	data := v.X.Bytes()
	copy(out[1:], data[:])
	return out, nil
}

func (p *Secp256k1Point) UnmarshalBinary(data []byte) error {
	if len(data) != params.BytesPoint {
		return fmt.Errorf("invalid length for secp256k1Point: %d", len(data))
	}
	if isZero(data) {
		p.value = secp256k1.JacobianPoint{}
		return nil
	}
	format := data[0]
	if format != secp256k1.PubKeyFormatCompressedEven && format != secp256k1.PubKeyFormatCompressedOdd {
		return fmt.Errorf("secp256k1Point.UnmarshalBinary: invalid format byte %#x", format)
	}
	var x, y secp256k1.FieldVal
	if x.SetByteSlice(data[1:]) {
		return errors.New("secp256k1Point.UnmarshalBinary: x coordinate out of range")
	}
	if !secp256k1.DecompressY(&x, format == secp256k1.PubKeyFormatCompressedOdd, &y) {
		return errors.New("secp256k1Point.UnmarshalBinary: x coordinate not on curve")
	}
	y.Normalize()
	p.value.X.Set(&x)
	p.value.Y.Set(&y)
	p.value.Z.SetInt(1)
	return nil
}

func (p *Secp256k1Point) Add(that Point) Point {
	other := secp256k1CastPoint(that)

	out := new(Secp256k1Point)
	secp256k1.AddNonConst(&p.value, &other.value, &out.value)
	return out
}

func (p *Secp256k1Point) Sub(that Point) Point {
	return p.Add(that.Negate())
}

func (p *Secp256k1Point) Negate() Point {
	out := new(Secp256k1Point)
	if p.IsIdentity() {
		return out
	}
	out.value = p.affine()
	out.value.Y.Negate(1)
	out.value.Y.Normalize()
	return out
}

func (p *Secp256k1Point) Set(that Point) Point {
	other := secp256k1CastPoint(that)

	p.value.Set(&other.value)
	return p
}

func (p *Secp256k1Point) Equal(that Point) bool {
	other := secp256k1CastPoint(that)

	pIdentity, otherIdentity := p.IsIdentity(), other.IsIdentity()
	if pIdentity || otherIdentity {
		return pIdentity == otherIdentity
	}
	a, b := p.affine(), other.affine()
	return a.X.Equals(&b.X) && a.Y.Equals(&b.Y)
}

func (p *Secp256k1Point) IsIdentity() bool {
	return (p.value.X.IsZero() && p.value.Y.IsZero()) || p.value.Z.IsZero()
}

// String implements fmt.Stringer.
func (p *Secp256k1Point) String() string {
	if p.IsIdentity() {
		return "Point{Identity}"
	}
	v := p.affine()
	return fmt.Sprintf("Point{X: %v, Y: %v}", v.X, v.Y)
}

func isZero(data []byte) bool {
	var acc byte
	for _, b := range data {
		acc |= b
	}
	return acc == 0
}
