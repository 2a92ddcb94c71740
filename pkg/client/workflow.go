package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/themis/internal/params"
	"github.com/taurusgroup/themis/pkg/account"
	"github.com/taurusgroup/themis/pkg/elgamal"
	"github.com/taurusgroup/themis/pkg/instruction"
	"github.com/taurusgroup/themis/pkg/ledger"
	"github.com/taurusgroup/themis/pkg/themis"
)

// Result summarizes one run of RunWorkflow.
type Result struct {
	User uuid.UUID
	// Aggregate is the recovered value of the decrypted aggregate.
	Aggregate uint64
	// Instructions is the number of instructions sent to the ledger.
	Instructions int
	Duration     time.Duration
}

// RunWorkflow drives a single user through the whole lifecycle against l:
// create and initialize the account, aggregate one interaction per
// instruction, prove the decryption and request the payment.
//
// values[i] is encrypted for the policy at index i. maxValue bounds the
// search for the aggregate's discrete logarithm.
func RunWorkflow(ctx context.Context, l *ledger.Ledger, h *Holder, policies uuid.UUID, values []uint64, maxValue uint64, log zerolog.Logger) (*Result, error) {
	if len(values) > params.MaxPolicies {
		return nil, fmt.Errorf("%d values, at most %d policies: %w", len(values), params.MaxPolicies, themis.ErrIndexOutOfRange)
	}
	start := time.Now()
	res := &Result{}

	user, err := l.CreateUserAccount()
	if err != nil {
		return nil, fmt.Errorf("create user account: %w", err)
	}
	res.User = user
	log = log.With().Str("user", user.String()).Logger()

	send := func(ix instruction.Instruction, ids ...uuid.UUID) error {
		data, err := instruction.Marshal(ix)
		if err != nil {
			return err
		}
		res.Instructions++
		if err = l.ExecuteRaw(ctx, data, ids...); err != nil {
			return fmt.Errorf("%s: %w", ix.Tag(), err)
		}
		return nil
	}

	if err = send(&instruction.InitializeUserAccount{}, user); err != nil {
		return nil, err
	}

	for i, value := range values {
		interaction := h.EncryptInteraction(uint8(i), value)
		ix, err := instruction.NewCalculateAggregate(h.PublicKey(), []account.Interaction{interaction})
		if err != nil {
			return nil, err
		}
		if err = send(ix, user, policies); err != nil {
			return nil, err
		}
	}
	log.Debug().Int("interactions", len(values)).Msg("aggregated")

	u, err := l.User(user)
	if err != nil {
		return nil, err
	}
	plaintext, err := h.DecryptAggregate(u)
	if err != nil {
		return nil, err
	}
	if res.Aggregate, err = elgamal.RecoverScalar(plaintext, maxValue); err != nil {
		return nil, fmt.Errorf("recover aggregate: %w", err)
	}

	proof, err := h.ProveDecryption(u, plaintext)
	if err != nil {
		return nil, err
	}
	submit, err := instruction.NewSubmitProofDecryption(plaintext, proof)
	if err != nil {
		return nil, err
	}
	if err = send(submit, user); err != nil {
		return nil, err
	}

	payment, err := instruction.NewRequestPayment(u.EncryptedAggregate(), plaintext, proof.AnnouncementG)
	if err != nil {
		return nil, err
	}
	if err = send(payment, user); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	log.Debug().Uint64("aggregate", res.Aggregate).Dur("t", res.Duration).Msg("payment requested")
	return res, nil
}
