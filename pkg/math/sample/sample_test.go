package sample

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taurusgroup/themis/pkg/math/curve"
)

func TestScalar_Deterministic(t *testing.T) {
	group := curve.Secp256k1{}
	seed := bytes.Repeat([]byte{0xab}, group.SafeScalarBytes())
	a := Scalar(bytes.NewReader(seed), group)
	b := Scalar(bytes.NewReader(seed), group)
	assert.True(t, a.Equal(b))
	assert.False(t, a.IsZero())
}

func TestScalar_Random(t *testing.T) {
	group := curve.Secp256k1{}
	a := Scalar(rand.Reader, group)
	b := Scalar(rand.Reader, group)
	assert.False(t, a.Equal(b), "two random scalars should differ")
}

func TestScalar_ShortReader(t *testing.T) {
	group := curve.Secp256k1{}
	assert.Panics(t, func() {
		Scalar(bytes.NewReader([]byte{1, 2, 3}), group)
	})
}

func TestScalarPointPair(t *testing.T) {
	group := curve.Secp256k1{}
	x, X := ScalarPointPair(rand.Reader, group)
	assert.True(t, x.ActOnBase().Equal(X))
}

func TestScalarUnit(t *testing.T) {
	group := curve.Secp256k1{}
	zeros := make([]byte, 2*group.SafeScalarBytes())
	zeros[len(zeros)-1] = 1
	s := ScalarUnit(bytes.NewReader(zeros), group)
	assert.False(t, s.IsZero())
	assert.True(t, s.Equal(curve.ScalarFromUint64(group, 1)))
}
