package policy

import (
	"encoding/binary"
	"fmt"

	"github.com/taurusgroup/themis/internal/params"
	"github.com/taurusgroup/themis/pkg/math/curve"
)

// Policies is the store of weights applied to interactions, indexed by a u8.
//
// Once initialized, the weights never change.
type Policies struct {
	group       curve.Curve
	initialized bool
	scalars     []curve.Scalar
}

// New returns an uninitialized store.
func New(group curve.Curve) *Policies {
	return &Policies{group: group}
}

// Size returns the number of bytes needed to encode p.
func (p *Policies) Size() int {
	return params.BytesPolicies(len(p.scalars))
}

func (p *Policies) IsInitialized() bool {
	return p.initialized
}

// Len returns the number of weights.
func (p *Policies) Len() int {
	return len(p.scalars)
}

// Weights returns a copy of the stored weights, in order.
func (p *Policies) Weights() []curve.Scalar {
	out := make([]curve.Scalar, len(p.scalars))
	for i, s := range p.scalars {
		out[i] = p.group.NewScalar().Set(s)
	}
	return out
}

// Initialize stores weights verbatim. At most params.MaxPolicies weights
// can be stored, since interactions address them with a u8.
func (p *Policies) Initialize(weights []curve.Scalar) error {
	if p.initialized {
		return ErrAlreadyInitialized
	}
	if len(weights) > params.MaxPolicies {
		return fmt.Errorf("policies: %d weights, at most %d: %w", len(weights), params.MaxPolicies, ErrIndexOutOfRange)
	}
	scalars := make([]curve.Scalar, len(weights))
	for i, w := range weights {
		if w == nil {
			return fmt.Errorf("policies: weight %d is nil: %w", i, ErrDecode)
		}
		scalars[i] = p.group.NewScalar().Set(w)
	}
	p.scalars = scalars
	p.initialized = true
	return nil
}

// WeightAt returns the weight stored at index.
func (p *Policies) WeightAt(index uint8) (curve.Scalar, error) {
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	if int(index) >= len(p.scalars) {
		return nil, fmt.Errorf("policies: index %d, length %d: %w", index, len(p.scalars), ErrIndexOutOfRange)
	}
	return p.scalars[index], nil
}

// Encode writes p into dst, zeroing any trailing bytes.
//
// An uninitialized store is encoded as zeros.
func (p *Policies) Encode(dst []byte) error {
	size := p.Size()
	if len(dst) < size {
		return fmt.Errorf("policies: buffer too small (%d < %d): %w", len(dst), size, ErrDecode)
	}
	clear(dst)
	if !p.initialized {
		return nil
	}
	dst[0] = params.AccountVersion
	dst[1] = 1
	binary.BigEndian.PutUint16(dst[2:4], uint16(len(p.scalars)))
	offset := params.BytesPoliciesHeader
	for _, s := range p.scalars {
		data, err := s.MarshalBinary()
		if err != nil {
			return fmt.Errorf("policies: %v: %w", err, ErrDecode)
		}
		offset += copy(dst[offset:], data)
	}
	return nil
}

// Decode reads a store from data.
//
// An empty or all zero buffer decodes to an uninitialized store. Otherwise
// data must hold a full layout, followed only by zeros.
func Decode(group curve.Curve, data []byte) (*Policies, error) {
	p := New(group)
	if isZero(data) {
		return p, nil
	}
	if len(data) < params.BytesPoliciesHeader {
		return nil, fmt.Errorf("policies: short buffer (%d bytes): %w", len(data), ErrDecode)
	}
	if data[0] != params.AccountVersion {
		return nil, fmt.Errorf("policies: unknown version %d: %w", data[0], ErrDecode)
	}
	if data[1] != 1 {
		return nil, fmt.Errorf("policies: invalid initialized flag %d: %w", data[1], ErrDecode)
	}
	count := int(binary.BigEndian.Uint16(data[2:4]))
	if count > params.MaxPolicies {
		return nil, fmt.Errorf("policies: %d weights: %w", count, ErrDecode)
	}
	size := params.BytesPolicies(count)
	if len(data) < size {
		return nil, fmt.Errorf("policies: buffer of %d bytes holds less than %d weights: %w", len(data), count, ErrDecode)
	}
	if !isZero(data[size:]) {
		return nil, fmt.Errorf("policies: trailing bytes: %w", ErrDecode)
	}
	p.scalars = make([]curve.Scalar, count)
	for i := range p.scalars {
		offset := params.BytesPoliciesHeader + i*params.BytesScalar
		s := group.NewScalar()
		if err := s.UnmarshalBinary(data[offset : offset+params.BytesScalar]); err != nil {
			return nil, fmt.Errorf("policies: weight %d: %v: %w", i, err, ErrDecode)
		}
		p.scalars[i] = s
	}
	p.initialized = true
	return p, nil
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
