package zkdec

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/themis/pkg/elgamal"
	"github.com/taurusgroup/themis/pkg/math/curve"
	"github.com/taurusgroup/themis/pkg/math/sample"
)

var group = curve.Secp256k1{}

func newStatement(t *testing.T) (Public, Private) {
	t.Helper()
	secret, public := elgamal.GenerateKey(rand.Reader, group)
	m := elgamal.EncodeScalar(curve.ScalarFromUint64(group, 123))
	c := elgamal.Encrypt(public, m, sample.Scalar(rand.Reader, group))
	return Public{
		Ciphertext: c,
		PublicKey:  public,
		Plaintext:  elgamal.Decrypt(secret, c),
	}, Private{Secret: secret}
}

func TestDec(t *testing.T) {
	public, private := newStatement(t)

	proof, err := NewProof(group, NewTranscript(), public, private, rand.Reader)
	require.NoError(t, err)
	assert.True(t, proof.Verify(NewTranscript(), public), "failed to verify honest proof")

	data, err := proof.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, BytesProof)
	proof2 := Empty(group)
	require.NoError(t, proof2.UnmarshalBinary(data))
	assert.True(t, proof2.Verify(NewTranscript(), public), "failed to verify unmarshalled proof")
}

func TestDec_WrongPlaintext(t *testing.T) {
	public, private := newStatement(t)
	public.Plaintext = public.Plaintext.Add(group.NewBasePoint())

	proof, err := NewProof(group, NewTranscript(), public, private, rand.Reader)
	require.NoError(t, err)
	assert.False(t, proof.Verify(NewTranscript(), public), "proof for a wrong plaintext should fail")
}

func TestDec_Tampered(t *testing.T) {
	public, private := newStatement(t)
	G := group.NewBasePoint()
	one := curve.ScalarFromUint64(group, 1)

	tampers := map[string]func(p *Proof){
		"response": func(p *Proof) { p.Response.Add(one) },
		"announcement_g": func(p *Proof) {
			p.AnnouncementG = p.AnnouncementG.Add(G)
		},
		"announcement_ctx": func(p *Proof) {
			p.AnnouncementCtx = p.AnnouncementCtx.Add(G)
		},
		"identity announcement": func(p *Proof) {
			p.AnnouncementG = group.NewPoint()
		},
	}
	for name, tamper := range tampers {
		t.Run(name, func(t *testing.T) {
			proof, err := NewProof(group, NewTranscript(), public, private, rand.Reader)
			require.NoError(t, err)
			tamper(proof)
			assert.False(t, proof.Verify(NewTranscript(), public))
		})
	}
}

func TestDec_WrongKey(t *testing.T) {
	public, private := newStatement(t)
	_, otherPublic := elgamal.GenerateKey(rand.Reader, group)

	proof, err := NewProof(group, NewTranscript(), public, private, rand.Reader)
	require.NoError(t, err)
	public.PublicKey = otherPublic
	assert.False(t, proof.Verify(NewTranscript(), public))
}

func TestDec_Transcript(t *testing.T) {
	public, private := newStatement(t)
	proof, err := NewProof(group, NewTranscript(), public, private, rand.Reader)
	require.NoError(t, err)

	h := NewTranscript()
	require.NoError(t, h.WriteAny([]byte("other context")))
	assert.False(t, proof.Verify(h, public), "different transcripts must produce different challenges")
}

func TestDec_HedgedNonce(t *testing.T) {
	public, private := newStatement(t)
	seed := bytes.Repeat([]byte{7}, 32)

	p1, err := NewProof(group, NewTranscript(), public, private, bytes.NewReader(seed))
	require.NoError(t, err)
	p2, err := NewProof(group, NewTranscript(), public, private, bytes.NewReader(seed))
	require.NoError(t, err)
	assert.True(t, p1.AnnouncementG.Equal(p2.AnnouncementG), "same inputs give the same nonce")

	otherPublic, otherPrivate := newStatement(t)
	p3, err := NewProof(group, NewTranscript(), otherPublic, otherPrivate, bytes.NewReader(seed))
	require.NoError(t, err)
	assert.False(t, p1.AnnouncementG.Equal(p3.AnnouncementG), "a fixed rand must not repeat nonces across secrets")

	_, err = NewProof(group, NewTranscript(), public, private, bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestProof_UnmarshalInvalid(t *testing.T) {
	assert.Error(t, Empty(group).UnmarshalBinary(make([]byte, BytesProof-1)))

	bad := make([]byte, BytesProof)
	bad[0] = 0x09
	assert.Error(t, Empty(group).UnmarshalBinary(bad))

	overflow := make([]byte, BytesProof)
	copy(overflow[BytesProof-32:], bytes.Repeat([]byte{0xff}, 32))
	assert.Error(t, Empty(group).UnmarshalBinary(overflow))
}
