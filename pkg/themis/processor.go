package themis

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/themis/pkg/account"
	"github.com/taurusgroup/themis/pkg/elgamal"
	"github.com/taurusgroup/themis/pkg/instruction"
	"github.com/taurusgroup/themis/pkg/math/curve"
	"github.com/taurusgroup/themis/pkg/policy"
	zkdec "github.com/taurusgroup/themis/pkg/zk/dec"
)

// Processor runs the five account operations on encoded account buffers.
//
// Every operation decodes its accounts, applies the change, and returns a new
// buffer of the same length as the mutated input. Input buffers are never
// modified, and nothing is returned on error.
type Processor struct {
	group           curve.Curve
	maxInteractions int
	cfg             Config
	log             zerolog.Logger
}

// NewProcessor returns a Processor using cfg, with missing fields taken from DefaultConfig.
func NewProcessor(cfg Config) *Processor {
	def := DefaultConfig()
	if cfg.Group == nil {
		cfg.Group = def.Group
	}
	if cfg.MaxInteractions <= 0 {
		cfg.MaxInteractions = def.MaxInteractions
	}
	return &Processor{
		group:           cfg.Group,
		maxInteractions: cfg.MaxInteractions,
		cfg:             cfg,
		log:             cfg.Logger.With().Str("group", cfg.Group.Name()).Logger(),
	}
}

// Group returns the group points and scalars are decoded in.
func (p *Processor) Group() curve.Curve {
	return p.group
}

// InitializeUserAccount moves a zeroed user account to the aggregating state.
func (p *Processor) InitializeUserAccount(user []byte) ([]byte, error) {
	defer p.timed("initialize_user_account", 0)(time.Now())

	u, err := account.DecodeUser(p.group, user)
	if err != nil {
		return nil, err
	}
	if err = u.Initialize(); err != nil {
		return nil, err
	}
	return encodeUser(u, user)
}

// InitializePoliciesAccount stores weights in a zeroed policies account.
func (p *Processor) InitializePoliciesAccount(weights []curve.Scalar, policies []byte) ([]byte, error) {
	defer p.timed("initialize_policies_account", 0)(time.Now())

	store, err := policy.Decode(p.group, policies)
	if err != nil {
		return nil, err
	}
	if err = store.Initialize(weights); err != nil {
		if errors.Is(err, policy.ErrAlreadyInitialized) {
			return nil, ErrAccountInUse
		}
		return nil, err
	}
	out := make([]byte, len(policies))
	if err = store.Encode(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CalculateAggregate adds the weighted interactions to the user's aggregate.
// policies is only read.
func (p *Processor) CalculateAggregate(interactions []account.Interaction, publicKey curve.Point, user, policies []byte) ([]byte, error) {
	defer p.timed("calculate_aggregate", len(interactions))(time.Now())

	if len(interactions) > p.maxInteractions {
		return nil, fmt.Errorf("aggregate: %d interactions, at most %d: %w", len(interactions), p.maxInteractions, ErrIndexOutOfRange)
	}
	u, err := account.DecodeUser(p.group, user)
	if err != nil {
		return nil, err
	}
	store, err := policy.Decode(p.group, policies)
	if err != nil {
		return nil, err
	}
	if err = u.CalculateAggregate(store, publicKey, interactions, p.cfg.Pool); err != nil {
		return nil, err
	}
	return encodeUser(u, user)
}

// SubmitProofDecryption verifies that plaintext is the decryption of the
// user's aggregate, and records it.
func (p *Processor) SubmitProofDecryption(plaintext, announcementG, announcementCtx curve.Point, response curve.Scalar, user []byte) ([]byte, error) {
	defer p.timed("submit_proof_decryption", 0)(time.Now())

	u, err := account.DecodeUser(p.group, user)
	if err != nil {
		return nil, err
	}
	proof := &zkdec.Proof{
		Commitment: &zkdec.Commitment{
			AnnouncementG:   announcementG,
			AnnouncementCtx: announcementCtx,
		},
		Response: response,
	}
	if err = u.SubmitProof(plaintext, proof); err != nil {
		if IsRejection(err) {
			p.log.Info().Err(err).Msg("rejected decryption proof")
		}
		return nil, err
	}
	return encodeUser(u, user)
}

// RequestPayment acknowledges the proven aggregate of the user.
func (p *Processor) RequestPayment(encrypted *elgamal.Ciphertext, decrypted, proof curve.Point, user []byte) ([]byte, error) {
	defer p.timed("request_payment", 0)(time.Now())

	u, err := account.DecodeUser(p.group, user)
	if err != nil {
		return nil, err
	}
	if err = u.RequestPayment(encrypted, decrypted, proof); err != nil {
		return nil, err
	}
	return encodeUser(u, user)
}

// Process runs ix on accounts, and returns the new content of accounts[0].
//
// calculate_aggregate expects [user, policies], every other instruction a single account.
func (p *Processor) Process(ix instruction.Instruction, accounts ...[]byte) ([]byte, error) {
	if ix == nil {
		return nil, fmt.Errorf("process: nil instruction: %w", ErrDecode)
	}
	if len(accounts) != ix.Accounts() {
		return nil, fmt.Errorf("process: %s expects %d accounts, got %d: %w", ix.Tag(), ix.Accounts(), len(accounts), ErrIndexOutOfRange)
	}

	switch ix := ix.(type) {
	case *instruction.InitializeUserAccount:
		return p.InitializeUserAccount(accounts[0])

	case *instruction.InitializePoliciesAccount:
		weights, err := ix.Weights(p.group)
		if err != nil {
			return nil, decodeError(err)
		}
		return p.InitializePoliciesAccount(weights, accounts[0])

	case *instruction.CalculateAggregate:
		if len(ix.Interactions) > p.maxInteractions {
			return nil, fmt.Errorf("process: %d interactions, at most %d: %w", len(ix.Interactions), p.maxInteractions, ErrIndexOutOfRange)
		}
		publicKey, interactions, err := ix.Decode(p.group)
		if err != nil {
			return nil, decodeError(err)
		}
		return p.CalculateAggregate(interactions, publicKey, accounts[0], accounts[1])

	case *instruction.SubmitProofDecryption:
		plaintext, proof, err := ix.Decode(p.group)
		if err != nil {
			return nil, decodeError(err)
		}
		return p.SubmitProofDecryption(plaintext, proof.AnnouncementG, proof.AnnouncementCtx, proof.Response, accounts[0])

	case *instruction.RequestPayment:
		encrypted, decrypted, proof, err := ix.Decode(p.group)
		if err != nil {
			return nil, decodeError(err)
		}
		return p.RequestPayment(encrypted, decrypted, proof, accounts[0])

	default:
		return nil, fmt.Errorf("process: unknown instruction %T: %w", ix, ErrDecode)
	}
}

// ProcessRaw decodes a cbor instruction, and runs it with Process.
func (p *Processor) ProcessRaw(data []byte, accounts ...[]byte) ([]byte, error) {
	ix, err := instruction.Unmarshal(data)
	if err != nil {
		return nil, decodeError(err)
	}
	return p.Process(ix, accounts...)
}

// timed logs op at debug level once the returned function is called.
func (p *Processor) timed(op string, interactions int) func(time.Time) {
	return func(t time.Time) {
		p.log.Debug().
			Str("op", op).
			Int("interactions", interactions).
			Dur("t", time.Since(t)).
			Msg("processed")
	}
}

func encodeUser(u *account.User, in []byte) ([]byte, error) {
	out := make([]byte, len(in))
	if err := u.Encode(out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeError(err error) error {
	return fmt.Errorf("%v: %w", err, ErrDecode)
}
