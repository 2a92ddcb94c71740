package zkdec

import (
	"encoding"
	"fmt"
	"io"

	"github.com/taurusgroup/themis/internal/params"
	"github.com/taurusgroup/themis/pkg/elgamal"
	"github.com/taurusgroup/themis/pkg/hash"
	"github.com/taurusgroup/themis/pkg/math/curve"
	"github.com/taurusgroup/themis/pkg/math/sample"
	"golang.org/x/crypto/sha3"
)

// Domain separates decryption proof transcripts from any other use of hash.Hash.
const Domain = "themis/zkdec"

// BytesProof = announcement_g ∥ announcement_ctx ∥ response
const BytesProof = 2*params.BytesPoint + params.BytesScalar

type (
	Public struct {
		// Ciphertext = (c₁, c₂) = (r⋅G, M + r⋅PublicKey)
		Ciphertext *elgamal.Ciphertext

		// PublicKey = sk⋅G
		PublicKey curve.Point

		// Plaintext = M = c₂ - sk⋅c₁
		Plaintext curve.Point
	}
	Private struct {
		// Secret = sk
		Secret curve.Scalar
	}
)

type Commitment struct {
	// AnnouncementG = w⋅G
	AnnouncementG curve.Point
	// AnnouncementCtx = w⋅c₁
	AnnouncementCtx curve.Point
}

type Proof struct {
	*Commitment
	// Response = w + e⋅sk
	Response curve.Scalar
}

// NewTranscript returns the hash.Hash both prover and verifier start from.
func NewTranscript() *hash.Hash {
	return hash.New(&hash.BytesWithDomain{
		TheDomain: "Protocol",
		Bytes:     []byte(Domain),
	})
}

// Empty returns a proof ready to be unmarshalled.
func Empty(group curve.Curve) *Proof {
	return &Proof{
		Commitment: &Commitment{
			AnnouncementG:   group.NewPoint(),
			AnnouncementCtx: group.NewPoint(),
		},
		Response: group.NewScalar(),
	}
}

func (p *Proof) IsValid(public Public) bool {
	if p == nil || p.Commitment == nil || p.Response == nil {
		return false
	}
	if p.AnnouncementG == nil || p.AnnouncementCtx == nil {
		return false
	}
	if p.AnnouncementG.IsIdentity() {
		return false
	}
	if public.Ciphertext == nil || public.Ciphertext.C1 == nil || public.Ciphertext.C2 == nil {
		return false
	}
	if public.PublicKey == nil || public.PublicKey.IsIdentity() || public.Plaintext == nil {
		return false
	}
	return true
}

// NewProof proves that public.Plaintext is the decryption of public.Ciphertext
// under private.Secret.
//
// The nonce is derived from the secret, the statement and bytes read from rand,
// so a weak rand does not leak the secret.
func NewProof(group curve.Curve, hash *hash.Hash, public Public, private Private, rand io.Reader) (*Proof, error) {
	w, err := nonce(group, public, private, rand)
	if err != nil {
		return nil, err
	}

	commitment := &Commitment{
		AnnouncementG:   w.ActOnBase(),
		AnnouncementCtx: w.Act(public.Ciphertext.C1),
	}

	e, err := challenge(hash, group, public, commitment)
	if err != nil {
		return nil, err
	}

	// z = w + e⋅sk
	z := group.NewScalar().Set(e).Mul(private.Secret).Add(w)
	return &Proof{
		Commitment: commitment,
		Response:   z,
	}, nil
}

// Verify checks
//
//	z⋅G  = A_g + e⋅pk
//	z⋅c₁ = A_ctx + e⋅(c₂ - M)
func (p *Proof) Verify(hash *hash.Hash, public Public) bool {
	if !p.IsValid(public) {
		return false
	}

	e, err := challenge(hash, public.PublicKey.Curve(), public, p.Commitment)
	if err != nil {
		return false
	}

	{
		lhs := p.Response.ActOnBase()
		rhs := e.Act(public.PublicKey).Add(p.AnnouncementG)
		if !lhs.Equal(rhs) {
			return false
		}
	}

	{
		lhs := p.Response.Act(public.Ciphertext.C1)
		shared := public.Ciphertext.C2.Sub(public.Plaintext)
		rhs := e.Act(shared).Add(p.AnnouncementCtx)
		if !lhs.Equal(rhs) {
			return false
		}
	}

	return true
}

func challenge(hash *hash.Hash, group curve.Curve, public Public, commitment *Commitment) (curve.Scalar, error) {
	err := hash.WriteAny(group.NewBasePoint(), public.PublicKey,
		public.Ciphertext.C1, public.Ciphertext.C2, public.Plaintext,
		commitment.AnnouncementG, commitment.AnnouncementCtx)
	if err != nil {
		return nil, err
	}
	return sample.Scalar(hash.Digest(), group), nil
}

func nonce(group curve.Curve, public Public, private Private, rand io.Reader) (curve.Scalar, error) {
	fresh := make([]byte, params.SecBytes)
	if _, err := io.ReadFull(rand, fresh); err != nil {
		return nil, fmt.Errorf("zkdec: read randomness: %w", err)
	}
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(Domain + "/nonce"))
	for _, m := range []encoding.BinaryMarshaler{
		private.Secret, public.PublicKey, public.Ciphertext.C1, public.Ciphertext.C2, public.Plaintext,
	} {
		data, err := m.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("zkdec: nonce: %w", err)
		}
		_, _ = h.Write(data)
	}
	_, _ = h.Write(fresh)
	return sample.ScalarUnit(h, group), nil
}

// MarshalBinary returns announcement_g ∥ announcement_ctx ∥ response.
func (p *Proof) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, BytesProof)
	for _, m := range []encoding.BinaryMarshaler{
		p.AnnouncementG, p.AnnouncementCtx, p.Response,
	} {
		data, err := m.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

// UnmarshalBinary expects p to have been created with Empty.
func (p *Proof) UnmarshalBinary(data []byte) error {
	if len(data) != BytesProof {
		return fmt.Errorf("zkdec.Proof: invalid length %d", len(data))
	}
	if err := p.AnnouncementG.UnmarshalBinary(data[:params.BytesPoint]); err != nil {
		return fmt.Errorf("zkdec.Proof: announcement_g: %w", err)
	}
	if err := p.AnnouncementCtx.UnmarshalBinary(data[params.BytesPoint : 2*params.BytesPoint]); err != nil {
		return fmt.Errorf("zkdec.Proof: announcement_ctx: %w", err)
	}
	if err := p.Response.UnmarshalBinary(data[2*params.BytesPoint:]); err != nil {
		return fmt.Errorf("zkdec.Proof: response: %w", err)
	}
	return nil
}
