package account

import (
	"fmt"

	"github.com/taurusgroup/themis/pkg/elgamal"
	"github.com/taurusgroup/themis/pkg/math/curve"
	"github.com/taurusgroup/themis/pkg/policy"
	"github.com/taurusgroup/themis/pkg/pool"
)

// Interaction is an encrypted signal, weighted by the policy at PolicyIndex.
type Interaction struct {
	PolicyIndex uint8
	Ciphertext  *elgamal.Ciphertext
}

// CalculateAggregate adds ∑ wᵢ⋅ctᵢ to the stored aggregate, where wᵢ is the
// weight of interaction i.
//
// The first call registers publicKey, later calls must present the same key.
// Nothing is modified when an error is returned. pl may be nil.
func (u *User) CalculateAggregate(policies *policy.Policies, publicKey curve.Point, interactions []Interaction, pl *pool.Pool) error {
	if !u.initialized || policies == nil || !policies.IsInitialized() {
		return ErrNotInitialized
	}
	if state := u.State(); state != StateInitialized {
		return fmt.Errorf("aggregate in state %s: %w", state, ErrInvalidTransition)
	}
	if publicKey == nil || publicKey.IsIdentity() {
		return fmt.Errorf("aggregate: identity public key: %w", ErrDecode)
	}
	if u.publicKey != nil && !u.publicKey.Equal(publicKey) {
		return fmt.Errorf("aggregate: public key differs from the registered one: %w", ErrStateMismatch)
	}

	weights := make([]curve.Scalar, len(interactions))
	for i, interaction := range interactions {
		if interaction.Ciphertext == nil || interaction.Ciphertext.C1 == nil || interaction.Ciphertext.C2 == nil {
			return fmt.Errorf("aggregate: interaction %d: missing ciphertext: %w", i, ErrDecode)
		}
		w, err := policies.WeightAt(interaction.PolicyIndex)
		if err != nil {
			return fmt.Errorf("aggregate: interaction %d: %w", i, err)
		}
		weights[i] = w
	}

	weighted := pl.Parallelize(len(interactions), func(i int) interface{} {
		return interactions[i].Ciphertext.Scale(weights[i])
	})
	sum := elgamal.Empty(u.group)
	for _, c := range weighted {
		sum = sum.Combine(c.(*elgamal.Ciphertext))
	}

	if u.publicKey == nil {
		u.publicKey = clonePoint(u.group, publicKey)
	}
	u.aggregate = u.aggregate.Combine(sum)
	return nil
}
