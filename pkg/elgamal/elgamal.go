package elgamal

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/taurusgroup/themis/internal/params"
	"github.com/taurusgroup/themis/pkg/math/curve"
	"github.com/taurusgroup/themis/pkg/math/sample"
)

type (
	PublicKey = curve.Point
	SecretKey = curve.Scalar
	Nonce     = curve.Scalar
)

var ErrNotFound = errors.New("elgamal: discrete logarithm not found in range")

// Ciphertext is an additively homomorphic ElGamal encryption of a group element.
type Ciphertext struct {
	// C1 = nonce⋅G
	C1 curve.Point
	// C2 = message + nonce⋅public
	C2 curve.Point
}

// Empty returns the identity ciphertext (O, O), which decrypts to O under any key.
func Empty(group curve.Curve) *Ciphertext {
	return &Ciphertext{
		C1: group.NewPoint(),
		C2: group.NewPoint(),
	}
}

// GenerateKey samples a fresh key pair from rand.
func GenerateKey(rand io.Reader, group curve.Curve) (SecretKey, PublicKey) {
	secret := sample.ScalarUnit(rand, group)
	return secret, secret.ActOnBase()
}

// EncodeScalar maps x to the group as x⋅G, the form in which values are encrypted.
func EncodeScalar(x curve.Scalar) curve.Point {
	return x.ActOnBase()
}

// Encrypt returns (nonce⋅G, message + nonce⋅public).
//
// The nonce must be fresh for every encryption, reusing it leaks the difference
// of the two messages.
func Encrypt(public PublicKey, message curve.Point, nonce Nonce) *Ciphertext {
	return &Ciphertext{
		C1: nonce.ActOnBase(),
		C2: message.Add(nonce.Act(public)),
	}
}

// Decrypt returns C2 - secret⋅C1.
func Decrypt(secret SecretKey, c *Ciphertext) curve.Point {
	return c.C2.Sub(secret.Act(c.C1))
}

// Scale returns a new ciphertext (s⋅C1, s⋅C2), which decrypts to s⋅message.
func (c *Ciphertext) Scale(s curve.Scalar) *Ciphertext {
	return &Ciphertext{
		C1: s.Act(c.C1),
		C2: s.Act(c.C2),
	}
}

// Combine returns a new ciphertext decrypting to the sum of both messages.
func (c *Ciphertext) Combine(other *Ciphertext) *Ciphertext {
	return &Ciphertext{
		C1: c.C1.Add(other.C1),
		C2: c.C2.Add(other.C2),
	}
}

// IsIdentity returns true if both components are the identity.
func (c *Ciphertext) IsIdentity() bool {
	return c.C1.IsIdentity() && c.C2.IsIdentity()
}

func (c *Ciphertext) Equal(other *Ciphertext) bool {
	return c.C1.Equal(other.C1) && c.C2.Equal(other.C2)
}

// MarshalBinary returns C1 ∥ C2.
func (c *Ciphertext) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, params.BytesCiphertext)
	for _, p := range []curve.Point{c.C1, c.C2} {
		data, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

// UnmarshalBinary expects C1 ∥ C2, and c must have been created with Empty.
func (c *Ciphertext) UnmarshalBinary(data []byte) error {
	if len(data) != params.BytesCiphertext {
		return fmt.Errorf("elgamal.Ciphertext: invalid length %d", len(data))
	}
	if err := c.C1.UnmarshalBinary(data[:params.BytesPoint]); err != nil {
		return fmt.Errorf("elgamal.Ciphertext: c1: %w", err)
	}
	if err := c.C2.UnmarshalBinary(data[params.BytesPoint:]); err != nil {
		return fmt.Errorf("elgamal.Ciphertext: c2: %w", err)
	}
	return nil
}

// WriteTo implements io.WriterTo.
func (c *Ciphertext) WriteTo(w io.Writer) (int64, error) {
	buf, err := c.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*Ciphertext) Domain() string {
	return "ElGamal Ciphertext"
}

// RecoverScalar solves M = x⋅G for x ∈ [0, max] with baby-step giant-step.
//
// Only small aggregates can be recovered, the running time is O(√max).
func RecoverScalar(M curve.Point, max uint64) (uint64, error) {
	group := M.Curve()
	G := group.NewBasePoint()
	steps := uint64(math.Sqrt(float64(max))) + 1

	babySteps := make(map[string]uint64, steps)
	babyStep := group.NewPoint()
	for j := uint64(0); j < steps; j++ {
		key, err := babyStep.MarshalBinary()
		if err != nil {
			return 0, err
		}
		babySteps[string(key)] = j
		babyStep = babyStep.Add(G)
	}

	// giant = -steps⋅G
	giant := curve.ScalarFromUint64(group, steps).ActOnBase().Negate()
	current := group.NewPoint().Set(M)
	for i := uint64(0); i <= steps; i++ {
		key, err := current.MarshalBinary()
		if err != nil {
			return 0, err
		}
		if j, ok := babySteps[string(key)]; ok {
			if x := i*steps + j; x <= max {
				return x, nil
			}
			break
		}
		current = current.Add(giant)
	}
	return 0, ErrNotFound
}
