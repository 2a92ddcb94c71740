package themis

import (
	"github.com/rs/zerolog"
	"github.com/taurusgroup/themis/internal/params"
	"github.com/taurusgroup/themis/pkg/math/curve"
	"github.com/taurusgroup/themis/pkg/pool"
)

// Config holds the parameters shared by every operation of a Processor.
type Config struct {
	// Group is the prime order group all points and scalars belong to.
	Group curve.Curve
	// MaxInteractions bounds the number of interactions of a single
	// calculate_aggregate call.
	MaxInteractions int
	// Pool weights interactions in parallel, nil runs on the caller's goroutine.
	Pool   *pool.Pool
	Logger zerolog.Logger
}

// DefaultConfig uses secp256k1, no pool, and discards logs.
func DefaultConfig() Config {
	return Config{
		Group:           curve.Secp256k1{},
		MaxInteractions: params.MaxInteractions,
		Logger:          zerolog.Nop(),
	}
}
