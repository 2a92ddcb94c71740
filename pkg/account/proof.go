package account

import (
	"fmt"

	"github.com/taurusgroup/themis/pkg/elgamal"
	"github.com/taurusgroup/themis/pkg/math/curve"
	zkdec "github.com/taurusgroup/themis/pkg/zk/dec"
)

// SubmitProof verifies that plaintext is the decryption of the stored aggregate
// under the registered key. On success the account moves to StateDecrypted, and
// the announcement of the proof is kept as the token for RequestPayment.
func (u *User) SubmitProof(plaintext curve.Point, proof *zkdec.Proof) error {
	if !u.initialized {
		return ErrNotInitialized
	}
	if state := u.State(); state != StateInitialized {
		return fmt.Errorf("proof in state %s: %w", state, ErrInvalidTransition)
	}
	if u.aggregate.IsIdentity() || u.publicKey == nil {
		return ErrAggregateNotReady
	}
	if plaintext == nil || proof == nil {
		return fmt.Errorf("proof: missing input: %w", ErrDecode)
	}

	public := zkdec.Public{
		Ciphertext: u.aggregate,
		PublicKey:  u.publicKey,
		Plaintext:  plaintext,
	}
	if !proof.Verify(zkdec.NewTranscript(), public) {
		return ErrInvalidProof
	}

	u.decrypted = clonePoint(u.group, plaintext)
	u.proofToken = clonePoint(u.group, proof.AnnouncementG)
	u.proofVerified = true
	return nil
}

// RequestPayment acknowledges the proven aggregate. The supplied values must
// equal the stored ones, the proof is compared with the token kept by
// SubmitProof rather than verified again.
func (u *User) RequestPayment(encrypted *elgamal.Ciphertext, decrypted curve.Point, proof curve.Point) error {
	if !u.initialized {
		return ErrNotInitialized
	}
	if state := u.State(); state != StateDecrypted {
		return fmt.Errorf("payment in state %s: %w", state, ErrInvalidTransition)
	}
	if encrypted == nil || encrypted.C1 == nil || encrypted.C2 == nil || decrypted == nil || proof == nil {
		return fmt.Errorf("payment: missing input: %w", ErrDecode)
	}
	switch {
	case !u.aggregate.Equal(encrypted):
		return fmt.Errorf("payment: encrypted aggregate: %w", ErrStateMismatch)
	case !u.decrypted.Equal(decrypted):
		return fmt.Errorf("payment: decrypted aggregate: %w", ErrStateMismatch)
	case !u.proofToken.Equal(proof):
		return fmt.Errorf("payment: proof: %w", ErrStateMismatch)
	}
	u.paymentRequested = true
	return nil
}
