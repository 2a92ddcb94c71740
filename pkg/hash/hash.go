package hash

import (
	"encoding"
	"fmt"
	"io"

	"github.com/taurusgroup/themis/internal/params"
	"github.com/taurusgroup/themis/pkg/math/curve"
	"github.com/zeebo/blake3"
)

const DigestLengthBytes = params.SecBytes * 2 // 64

// Hash is the hash function we use for Fiat-Shamir challenges and transcripts.
//
// Internally, this is a wrapper around blake3.Hasher, but any hash function with
// an easily extendable output would work as well.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash struct, and writes each piece of initialData to its state.
//
// A protocol should pass its own domain here, so that transcripts of different
// protocols never collide.
func New(initialData ...WriterToWithDomain) *Hash {
	hash := &Hash{h: blake3.New()}
	for _, d := range initialData {
		_ = hash.WriteAny(d)
	}
	return hash
}

// Digest returns a reader for the current output of the function.
//
// This finalizes the current state of the hash, and returns what's
// essentially a stream of random bytes.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a slice of length DigestLengthBytes resulting from the current hash state.
// If a different length is required, use io.ReadFull(hash.Digest(), out) instead.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash.Sum: internal hash failure: %v", err))
	}
	return out
}

// WriteAny takes many different data types and writes them to the hash state.
//
// Currently supported types:
//
//   - []byte
//   - string
//   - curve.Point
//   - curve.Scalar
//   - hash.WriterToWithDomain
//
// This function will apply its own domain separation for the first four types.
// The last type already suggests which domain to use, and this function respects it.
func (hash *Hash) WriteAny(data ...interface{}) error {
	var err error
	for _, d := range data {
		switch t := d.(type) {
		case []byte:
			err = writeWithDomain(hash.h, &BytesWithDomain{
				TheDomain: "[]byte",
				Bytes:     t,
			})
			if err != nil {
				return fmt.Errorf("hash.Hash: write []byte: %w", err)
			}
		case string:
			err = writeWithDomain(hash.h, &BytesWithDomain{
				TheDomain: "string",
				Bytes:     []byte(t),
			})
			if err != nil {
				return fmt.Errorf("hash.Hash: write string: %w", err)
			}
		case curve.Point:
			if err = writeMarshaller(hash.h, "Point", t); err != nil {
				return fmt.Errorf("hash.Hash: write curve.Point: %w", err)
			}
		case curve.Scalar:
			if err = writeMarshaller(hash.h, "Scalar", t); err != nil {
				return fmt.Errorf("hash.Hash: write curve.Scalar: %w", err)
			}
		case WriterToWithDomain:
			if err = writeWithDomain(hash.h, t); err != nil {
				return fmt.Errorf("hash.Hash: write io.WriterTo: %w", err)
			}
		default:
			return fmt.Errorf("hash.Hash: unsupported type %T", d)
		}
	}
	return nil
}

func writeMarshaller(w io.Writer, domain string, m encoding.BinaryMarshaler) error {
	if m == nil {
		return fmt.Errorf("nil %s", domain)
	}
	bytes, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	return writeWithDomain(w, &BytesWithDomain{
		TheDomain: domain,
		Bytes:     bytes,
	})
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}
