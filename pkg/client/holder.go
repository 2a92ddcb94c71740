package client

import (
	"errors"
	"fmt"
	"io"

	"github.com/taurusgroup/themis/pkg/account"
	"github.com/taurusgroup/themis/pkg/elgamal"
	"github.com/taurusgroup/themis/pkg/math/curve"
	"github.com/taurusgroup/themis/pkg/math/sample"
	zkdec "github.com/taurusgroup/themis/pkg/zk/dec"
)

// ErrNotReady is returned when decrypting an account that has no aggregate yet.
var ErrNotReady = errors.New("client: aggregate not ready")

// Holder owns an ElGamal key pair, and produces the inputs of the operations
// that need the secret key.
type Holder struct {
	group  curve.Curve
	secret curve.Scalar
	public curve.Point
	rand   io.Reader
}

// NewHolder generates a key pair with rand, which is also used for every
// nonce of the holder.
func NewHolder(group curve.Curve, rand io.Reader) *Holder {
	secret, public := elgamal.GenerateKey(rand, group)
	return &Holder{
		group:  group,
		secret: secret,
		public: public,
		rand:   rand,
	}
}

func (h *Holder) PublicKey() curve.Point {
	return h.public
}

// EncryptInteraction encrypts value⋅G for the policy at index.
func (h *Holder) EncryptInteraction(index uint8, value uint64) account.Interaction {
	m := elgamal.EncodeScalar(curve.ScalarFromUint64(h.group, value))
	return account.Interaction{
		PolicyIndex: index,
		Ciphertext:  elgamal.Encrypt(h.public, m, sample.ScalarUnit(h.rand, h.group)),
	}
}

// DecryptAggregate returns the plaintext point of the aggregate of u.
func (h *Holder) DecryptAggregate(u *account.User) (curve.Point, error) {
	if u.EncryptedAggregate().IsIdentity() {
		return nil, ErrNotReady
	}
	if pk := u.PublicKey(); pk == nil || !pk.Equal(h.public) {
		return nil, errors.New("client: aggregate is not encrypted under this holder's key")
	}
	return elgamal.Decrypt(h.secret, u.EncryptedAggregate()), nil
}

// ProveDecryption proves that plaintext is the decryption of the aggregate of u.
func (h *Holder) ProveDecryption(u *account.User, plaintext curve.Point) (*zkdec.Proof, error) {
	public := zkdec.Public{
		Ciphertext: u.EncryptedAggregate(),
		PublicKey:  h.public,
		Plaintext:  plaintext,
	}
	proof, err := zkdec.NewProof(h.group, zkdec.NewTranscript(), public, zkdec.Private{Secret: h.secret}, h.rand)
	if err != nil {
		return nil, fmt.Errorf("client: prove decryption: %w", err)
	}
	return proof, nil
}
