package curve

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/themis/internal/params"
)

func TestSecp256k1_BasePoint(t *testing.T) {
	group := Secp256k1{}
	g1 := group.NewBasePoint().Add(group.NewBasePoint())
	g2 := ScalarFromUint64(group, 2).ActOnBase()
	assert.True(t, g1.Equal(g2))

	data, err := group.NewBasePoint().MarshalBinary()
	require.NoError(t, err)
	Gx, _ := hex.DecodeString("79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	assert.Equal(t, Gx, data[1:])
	assert.EqualValues(t, 0x02, data[0])
}

func TestSecp256k1Point_Negate(t *testing.T) {
	group := Secp256k1{}
	G := group.NewBasePoint()
	assert.True(t, G.Add(G.Negate()).IsIdentity())
	assert.True(t, G.Sub(G).IsIdentity())
	assert.True(t, group.NewPoint().Negate().IsIdentity())
	assert.True(t, group.NewPoint().Sub(G).Equal(G.Negate()))
}

func TestSecp256k1Point_Identity(t *testing.T) {
	group := Secp256k1{}
	id := group.NewPoint()
	G := group.NewBasePoint()
	assert.True(t, id.IsIdentity())
	assert.True(t, id.Equal(group.NewPoint()))
	assert.False(t, id.Equal(G))
	assert.False(t, G.Equal(id))
	assert.True(t, id.Add(G).Equal(G))
	assert.True(t, G.Add(id).Equal(G))
	assert.True(t, ScalarFromUint64(group, 5).Act(id).IsIdentity())
	assert.True(t, group.NewScalar().ActOnBase().IsIdentity())

	data, err := id.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, params.BytesPoint), data)

	decoded := group.NewBasePoint()
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.True(t, decoded.IsIdentity())
}

func TestSecp256k1Point_Marshal(t *testing.T) {
	group := Secp256k1{}
	for i := uint64(1); i < 20; i++ {
		p := ScalarFromUint64(group, i).ActOnBase()
		data, err := p.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, params.BytesPoint)
		q := group.NewPoint()
		require.NoError(t, q.UnmarshalBinary(data))
		assert.True(t, p.Equal(q), "round trip of %d⋅G", i)
	}
}

func TestSecp256k1Point_UnmarshalInvalid(t *testing.T) {
	group := Secp256k1{}
	valid, _ := group.NewBasePoint().MarshalBinary()

	badFormat := bytes.Clone(valid)
	badFormat[0] = 0x04

	overflow := bytes.Repeat([]byte{0xff}, params.BytesPoint)
	overflow[0] = 0x02

	// 7 is not a square modulo p, so x = 0 is not on the curve
	prefixOnly := make([]byte, params.BytesPoint)
	prefixOnly[0] = 0x02

	for name, data := range map[string][]byte{
		"short":       valid[:params.BytesPoint-1],
		"long":        append(bytes.Clone(valid), 0),
		"format":      badFormat,
		"overflow":    overflow,
		"prefix only": prefixOnly,
		"empty":       nil,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, group.NewPoint().UnmarshalBinary(data))
		})
	}
}

func TestSecp256k1Scalar_Arithmetic(t *testing.T) {
	group := Secp256k1{}
	two := ScalarFromUint64(group, 2)
	three := ScalarFromUint64(group, 3)
	five := ScalarFromUint64(group, 5)
	six := ScalarFromUint64(group, 6)

	assert.True(t, group.NewScalar().Set(two).Add(three).Equal(five))
	assert.True(t, group.NewScalar().Set(five).Sub(three).Equal(two))
	assert.True(t, group.NewScalar().Set(two).Mul(three).Equal(six))
	assert.True(t, group.NewScalar().Set(two).Sub(two).IsZero())
	assert.True(t, group.NewScalar().Set(three).Negate().Add(three).IsZero())
	assert.True(t, group.NewScalar().Set(three).Invert().Mul(three).Equal(ScalarFromUint64(group, 1)))

	// (2+3)⋅G = 2⋅G + 3⋅G
	assert.True(t, five.ActOnBase().Equal(two.ActOnBase().Add(three.ActOnBase())))
	// 2⋅(3⋅G) = 6⋅G
	assert.True(t, two.Act(three.ActOnBase()).Equal(six.ActOnBase()))
}

func TestSecp256k1Scalar_SetNatReduces(t *testing.T) {
	group := Secp256k1{}
	q := group.Order().Nat()
	qPlusOne := new(saferith.Nat).Add(q, new(saferith.Nat).SetUint64(1), 257)
	assert.True(t, group.NewScalar().SetNat(q).IsZero())
	assert.True(t, group.NewScalar().SetNat(qPlusOne).Equal(ScalarFromUint64(group, 1)))
}

func TestSecp256k1Scalar_Marshal(t *testing.T) {
	group := Secp256k1{}
	s := ScalarFromUint64(group, 0xED)
	data, err := s.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, params.BytesScalar)
	assert.EqualValues(t, 0xED, data[params.BytesScalar-1])

	s2 := group.NewScalar()
	require.NoError(t, s2.UnmarshalBinary(data))
	assert.True(t, s.Equal(s2))

	// q itself is not a canonical encoding
	q := group.Order().Nat().Bytes()
	assert.Error(t, group.NewScalar().UnmarshalBinary(q))
	assert.Error(t, group.NewScalar().UnmarshalBinary(data[1:]))
}

func TestFromHash(t *testing.T) {
	group := Secp256k1{}
	h := bytes.Repeat([]byte{0xff}, 64)
	s := FromHash(group, h)
	assert.False(t, s.IsZero())
	assert.True(t, FromHash(group, []byte{7}).Equal(ScalarFromUint64(group, 7)))
}
