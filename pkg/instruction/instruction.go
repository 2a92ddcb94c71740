package instruction

import (
	"errors"
	"fmt"

	"github.com/taurusgroup/themis/pkg/account"
	"github.com/taurusgroup/themis/pkg/elgamal"
	"github.com/taurusgroup/themis/pkg/math/curve"
	zkdec "github.com/taurusgroup/themis/pkg/zk/dec"
)

// ErrInvalid is returned for unknown tags and malformed payloads.
var ErrInvalid = errors.New("instruction: invalid")

// Tag identifies the variant of an Instruction on the wire.
type Tag uint8

const (
	TagInitializeUserAccount Tag = iota
	TagInitializePoliciesAccount
	TagCalculateAggregate
	TagSubmitProofDecryption
	TagRequestPayment
)

func (t Tag) String() string {
	switch t {
	case TagInitializeUserAccount:
		return "initialize_user_account"
	case TagInitializePoliciesAccount:
		return "initialize_policies_account"
	case TagCalculateAggregate:
		return "calculate_aggregate"
	case TagSubmitProofDecryption:
		return "submit_proof_decryption"
	case TagRequestPayment:
		return "request_payment"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Instruction is one of the five operations of the processor.
//
// The set of variants is closed, every implementation lives in this package.
type Instruction interface {
	Tag() Tag
	// Accounts returns the number of account buffers the instruction runs on.
	Accounts() int
	isInstruction()
}

// InitializeUserAccount runs on [user].
type InitializeUserAccount struct{}

// InitializePoliciesAccount runs on [policies].
type InitializePoliciesAccount struct {
	// Scalars are canonical scalar encodings, in order.
	Scalars [][]byte
}

// Interaction is a policy index with a ciphertext encoding.
type Interaction struct {
	PolicyIndex uint8
	Ciphertext  []byte
}

// CalculateAggregate runs on [user, policies].
type CalculateAggregate struct {
	Interactions []Interaction
	PublicKey    []byte
}

// SubmitProofDecryption runs on [user].
type SubmitProofDecryption struct {
	Plaintext       []byte
	AnnouncementG   []byte
	AnnouncementCtx []byte
	Response        []byte
}

// RequestPayment runs on [user].
type RequestPayment struct {
	EncryptedAggregate []byte
	DecryptedAggregate []byte
	Proof              []byte
}

func (*InitializeUserAccount) Tag() Tag     { return TagInitializeUserAccount }
func (*InitializePoliciesAccount) Tag() Tag { return TagInitializePoliciesAccount }
func (*CalculateAggregate) Tag() Tag        { return TagCalculateAggregate }
func (*SubmitProofDecryption) Tag() Tag     { return TagSubmitProofDecryption }
func (*RequestPayment) Tag() Tag            { return TagRequestPayment }

func (*InitializeUserAccount) Accounts() int     { return 1 }
func (*InitializePoliciesAccount) Accounts() int { return 1 }
func (*CalculateAggregate) Accounts() int        { return 2 }
func (*SubmitProofDecryption) Accounts() int     { return 1 }
func (*RequestPayment) Accounts() int            { return 1 }

func (*InitializeUserAccount) isInstruction()     {}
func (*InitializePoliciesAccount) isInstruction() {}
func (*CalculateAggregate) isInstruction()        {}
func (*SubmitProofDecryption) isInstruction()     {}
func (*RequestPayment) isInstruction()            {}

// NewInitializePoliciesAccount encodes weights.
func NewInitializePoliciesAccount(weights []curve.Scalar) (*InitializePoliciesAccount, error) {
	ix := &InitializePoliciesAccount{Scalars: make([][]byte, len(weights))}
	for i, w := range weights {
		data, err := w.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("instruction: weight %d: %w", i, err)
		}
		ix.Scalars[i] = data
	}
	return ix, nil
}

// Weights decodes the scalars of ix.
func (ix *InitializePoliciesAccount) Weights(group curve.Curve) ([]curve.Scalar, error) {
	out := make([]curve.Scalar, len(ix.Scalars))
	for i, data := range ix.Scalars {
		s := group.NewScalar()
		if err := s.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("weight %d: %v: %w", i, err, ErrInvalid)
		}
		out[i] = s
	}
	return out, nil
}

// NewCalculateAggregate encodes publicKey and interactions.
func NewCalculateAggregate(publicKey curve.Point, interactions []account.Interaction) (*CalculateAggregate, error) {
	pk, err := publicKey.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("instruction: public key: %w", err)
	}
	ix := &CalculateAggregate{
		Interactions: make([]Interaction, len(interactions)),
		PublicKey:    pk,
	}
	for i, interaction := range interactions {
		data, err := interaction.Ciphertext.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("instruction: interaction %d: %w", i, err)
		}
		ix.Interactions[i] = Interaction{PolicyIndex: interaction.PolicyIndex, Ciphertext: data}
	}
	return ix, nil
}

// Decode returns the public key and the interactions of ix.
func (ix *CalculateAggregate) Decode(group curve.Curve) (curve.Point, []account.Interaction, error) {
	pk, err := decodePoint(group, "public key", ix.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	interactions := make([]account.Interaction, len(ix.Interactions))
	for i, interaction := range ix.Interactions {
		c := elgamal.Empty(group)
		if err = c.UnmarshalBinary(interaction.Ciphertext); err != nil {
			return nil, nil, fmt.Errorf("interaction %d: %v: %w", i, err, ErrInvalid)
		}
		interactions[i] = account.Interaction{PolicyIndex: interaction.PolicyIndex, Ciphertext: c}
	}
	return pk, interactions, nil
}

// NewSubmitProofDecryption encodes plaintext and proof.
func NewSubmitProofDecryption(plaintext curve.Point, proof *zkdec.Proof) (*SubmitProofDecryption, error) {
	var (
		ix  SubmitProofDecryption
		err error
	)
	if ix.Plaintext, err = plaintext.MarshalBinary(); err != nil {
		return nil, fmt.Errorf("instruction: plaintext: %w", err)
	}
	if ix.AnnouncementG, err = proof.AnnouncementG.MarshalBinary(); err != nil {
		return nil, fmt.Errorf("instruction: announcement_g: %w", err)
	}
	if ix.AnnouncementCtx, err = proof.AnnouncementCtx.MarshalBinary(); err != nil {
		return nil, fmt.Errorf("instruction: announcement_ctx: %w", err)
	}
	if ix.Response, err = proof.Response.MarshalBinary(); err != nil {
		return nil, fmt.Errorf("instruction: response: %w", err)
	}
	return &ix, nil
}

// Decode returns the claimed plaintext and the proof of ix.
func (ix *SubmitProofDecryption) Decode(group curve.Curve) (curve.Point, *zkdec.Proof, error) {
	plaintext, err := decodePoint(group, "plaintext", ix.Plaintext)
	if err != nil {
		return nil, nil, err
	}
	proof := zkdec.Empty(group)
	if proof.AnnouncementG, err = decodePoint(group, "announcement_g", ix.AnnouncementG); err != nil {
		return nil, nil, err
	}
	if proof.AnnouncementCtx, err = decodePoint(group, "announcement_ctx", ix.AnnouncementCtx); err != nil {
		return nil, nil, err
	}
	if err = proof.Response.UnmarshalBinary(ix.Response); err != nil {
		return nil, nil, fmt.Errorf("response: %v: %w", err, ErrInvalid)
	}
	return plaintext, proof, nil
}

// NewRequestPayment encodes the values acknowledged by a payment request.
func NewRequestPayment(encrypted *elgamal.Ciphertext, decrypted curve.Point, proof curve.Point) (*RequestPayment, error) {
	var (
		ix  RequestPayment
		err error
	)
	if ix.EncryptedAggregate, err = encrypted.MarshalBinary(); err != nil {
		return nil, fmt.Errorf("instruction: encrypted aggregate: %w", err)
	}
	if ix.DecryptedAggregate, err = decrypted.MarshalBinary(); err != nil {
		return nil, fmt.Errorf("instruction: decrypted aggregate: %w", err)
	}
	if ix.Proof, err = proof.MarshalBinary(); err != nil {
		return nil, fmt.Errorf("instruction: proof: %w", err)
	}
	return &ix, nil
}

// Decode returns the encrypted aggregate, the decrypted aggregate and the proof token of ix.
func (ix *RequestPayment) Decode(group curve.Curve) (*elgamal.Ciphertext, curve.Point, curve.Point, error) {
	encrypted := elgamal.Empty(group)
	if err := encrypted.UnmarshalBinary(ix.EncryptedAggregate); err != nil {
		return nil, nil, nil, fmt.Errorf("encrypted aggregate: %v: %w", err, ErrInvalid)
	}
	decrypted, err := decodePoint(group, "decrypted aggregate", ix.DecryptedAggregate)
	if err != nil {
		return nil, nil, nil, err
	}
	proof, err := decodePoint(group, "proof", ix.Proof)
	if err != nil {
		return nil, nil, nil, err
	}
	return encrypted, decrypted, proof, nil
}

func decodePoint(group curve.Curve, name string, data []byte) (curve.Point, error) {
	p := group.NewPoint()
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", name, err, ErrInvalid)
	}
	return p, nil
}
