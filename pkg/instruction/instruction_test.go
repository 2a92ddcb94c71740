package instruction

import (
	"crypto/rand"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/themis/pkg/account"
	"github.com/taurusgroup/themis/pkg/elgamal"
	"github.com/taurusgroup/themis/pkg/math/curve"
	"github.com/taurusgroup/themis/pkg/math/sample"
	zkdec "github.com/taurusgroup/themis/pkg/zk/dec"
)

var group = curve.Secp256k1{}

func roundTrip(t *testing.T, ix Instruction) Instruction {
	t.Helper()
	data, err := Marshal(ix)
	require.NoError(t, err)
	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, ix.Tag(), out.Tag())
	assert.Equal(t, ix, out)
	return out
}

func TestInitializeUserAccount(t *testing.T) {
	out := roundTrip(t, &InitializeUserAccount{})
	assert.Equal(t, 1, out.Accounts())
}

func TestInitializePoliciesAccount(t *testing.T) {
	weights := []curve.Scalar{curve.ScalarFromUint64(group, 3), curve.ScalarFromUint64(group, 5)}
	ix, err := NewInitializePoliciesAccount(weights)
	require.NoError(t, err)

	out := roundTrip(t, ix).(*InitializePoliciesAccount)
	decoded, err := out.Weights(group)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i := range weights {
		assert.True(t, weights[i].Equal(decoded[i]))
	}

	out.Scalars[1] = out.Scalars[1][1:]
	_, err = out.Weights(group)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCalculateAggregate(t *testing.T) {
	_, public := elgamal.GenerateKey(rand.Reader, group)
	interactions := make([]account.Interaction, 3)
	for i := range interactions {
		interactions[i] = account.Interaction{
			PolicyIndex: uint8(i),
			Ciphertext:  elgamal.Encrypt(public, sample.Scalar(rand.Reader, group).ActOnBase(), sample.Scalar(rand.Reader, group)),
		}
	}
	ix, err := NewCalculateAggregate(public, interactions)
	require.NoError(t, err)

	out := roundTrip(t, ix).(*CalculateAggregate)
	assert.Equal(t, 2, out.Accounts())
	pk, decoded, err := out.Decode(group)
	require.NoError(t, err)
	assert.True(t, pk.Equal(public))
	require.Len(t, decoded, 3)
	for i := range interactions {
		assert.Equal(t, interactions[i].PolicyIndex, decoded[i].PolicyIndex)
		assert.True(t, interactions[i].Ciphertext.Equal(decoded[i].Ciphertext))
	}

	out.Interactions[0].Ciphertext[0] = 0x08
	_, _, err = out.Decode(group)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSubmitProofDecryption(t *testing.T) {
	secret, public := elgamal.GenerateKey(rand.Reader, group)
	c := elgamal.Encrypt(public, group.NewBasePoint(), sample.Scalar(rand.Reader, group))
	statement := zkdec.Public{Ciphertext: c, PublicKey: public, Plaintext: elgamal.Decrypt(secret, c)}
	proof, err := zkdec.NewProof(group, zkdec.NewTranscript(), statement, zkdec.Private{Secret: secret}, rand.Reader)
	require.NoError(t, err)

	ix, err := NewSubmitProofDecryption(statement.Plaintext, proof)
	require.NoError(t, err)
	out := roundTrip(t, ix).(*SubmitProofDecryption)

	plaintext, decoded, err := out.Decode(group)
	require.NoError(t, err)
	assert.True(t, plaintext.Equal(statement.Plaintext))
	assert.True(t, decoded.Verify(zkdec.NewTranscript(), statement))

	out.Response = out.Response[:4]
	_, _, err = out.Decode(group)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRequestPayment(t *testing.T) {
	_, public := elgamal.GenerateKey(rand.Reader, group)
	c := elgamal.Encrypt(public, group.NewBasePoint(), sample.Scalar(rand.Reader, group))
	token := sample.Scalar(rand.Reader, group).ActOnBase()

	ix, err := NewRequestPayment(c, group.NewBasePoint(), token)
	require.NoError(t, err)
	out := roundTrip(t, ix).(*RequestPayment)

	encrypted, decrypted, proof, err := out.Decode(group)
	require.NoError(t, err)
	assert.True(t, encrypted.Equal(c))
	assert.True(t, decrypted.Equal(group.NewBasePoint()))
	assert.True(t, proof.Equal(token))

	out.Proof = nil
	_, _, _, err = out.Decode(group)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUnmarshal_Invalid(t *testing.T) {
	unknown, err := cbor.Marshal(&envelope{Tag: 9, Payload: []byte{0xa0}})
	require.NoError(t, err)
	empty, err := cbor.Marshal(&envelope{Tag: TagInitializeUserAccount})
	require.NoError(t, err)
	mistyped, err := cbor.Marshal(&envelope{Tag: TagCalculateAggregate, Payload: []byte{0x01}})
	require.NoError(t, err)

	for name, data := range map[string][]byte{
		"garbage":  {0xff, 0x00},
		"nil":      nil,
		"unknown":  unknown,
		"empty":    empty,
		"mistyped": mistyped,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal(data)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err = Marshal(nil)
	assert.ErrorIs(t, err, ErrInvalid)
}
