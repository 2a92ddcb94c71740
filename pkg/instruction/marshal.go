package instruction

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const cborMajorTypeMap = 5

// envelope is the wire form of an Instruction.
type envelope struct {
	Tag     Tag
	Payload cbor.RawMessage
}

// Marshal encodes ix as a cbor envelope {Tag, Payload}.
func Marshal(ix Instruction) ([]byte, error) {
	if ix == nil {
		return nil, fmt.Errorf("instruction: marshal nil: %w", ErrInvalid)
	}
	payload, err := cbor.Marshal(ix)
	if err != nil {
		return nil, fmt.Errorf("instruction: %s: %w", ix.Tag(), err)
	}
	return cbor.Marshal(&envelope{Tag: ix.Tag(), Payload: payload})
}

// Unmarshal decodes an envelope produced by Marshal.
func Unmarshal(data []byte) (Instruction, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("instruction: envelope: %v: %w", err, ErrInvalid)
	}

	var ix Instruction
	switch env.Tag {
	case TagInitializeUserAccount:
		ix = &InitializeUserAccount{}
	case TagInitializePoliciesAccount:
		ix = &InitializePoliciesAccount{}
	case TagCalculateAggregate:
		ix = &CalculateAggregate{}
	case TagSubmitProofDecryption:
		ix = &SubmitProofDecryption{}
	case TagRequestPayment:
		ix = &RequestPayment{}
	default:
		return nil, fmt.Errorf("instruction: tag %s: %w", env.Tag, ErrInvalid)
	}
	// every variant is a struct, so the payload must be a cbor map
	if len(env.Payload) == 0 || env.Payload[0]>>5 != cborMajorTypeMap {
		return nil, fmt.Errorf("instruction: %s: payload is not a map: %w", env.Tag, ErrInvalid)
	}
	if err := cbor.Unmarshal(env.Payload, ix); err != nil {
		return nil, fmt.Errorf("instruction: %s: %v: %w", env.Tag, err, ErrInvalid)
	}
	return ix, nil
}
