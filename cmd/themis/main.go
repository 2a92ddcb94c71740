// Command themis runs the full aggregation workflow for many users against a
// local ledger, and reports the throughput.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"github.com/taurusgroup/themis/pkg/client"
	"github.com/taurusgroup/themis/pkg/instruction"
	"github.com/taurusgroup/themis/pkg/ledger"
	"github.com/taurusgroup/themis/pkg/math/curve"
	"github.com/taurusgroup/themis/pkg/pool"
	"github.com/taurusgroup/themis/pkg/themis"
	"golang.org/x/sync/errgroup"
)

func main() {
	users := flag.Int("users", 10, "number of users running the workflow concurrently")
	policies := flag.String("policies", "1,2", "comma separated policy weights")
	dir := flag.String("db", "", "ledger database directory, a temporary one if empty")
	workers := flag.Int("workers", 0, "workers weighting interactions, 0 for the number of CPUs, -1 to disable")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	maxValue := flag.Uint64("max-value", 1<<16, "largest aggregate recovered from its decryption")
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	log := zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger()

	if err = run(context.Background(), options{
		users:    *users,
		weights:  *policies,
		dir:      *dir,
		workers:  *workers,
		maxValue: *maxValue,
	}, log); err != nil {
		log.Fatal().Err(err).Msg("workflow failed")
	}
}

type options struct {
	users    int
	weights  string
	dir      string
	workers  int
	maxValue uint64
}

func run(ctx context.Context, opts options, log zerolog.Logger) error {
	group := curve.Secp256k1{}
	weights, err := parseWeights(opts.weights)
	if err != nil {
		return err
	}

	cfg := themis.DefaultConfig()
	cfg.Group = group
	cfg.Logger = log
	if opts.workers >= 0 {
		cfg.Pool = pool.NewPool(opts.workers)
		defer cfg.Pool.TearDown()
	}

	dir := opts.dir
	if dir == "" {
		if dir, err = os.MkdirTemp("", "themis"); err != nil {
			return err
		}
		defer os.RemoveAll(dir)
	}
	l, err := ledger.Open(dir, themis.NewProcessor(cfg), log)
	if err != nil {
		return err
	}
	defer l.Close()

	policies, err := l.CreatePoliciesAccount(len(weights))
	if err != nil {
		return err
	}
	scalars := make([]curve.Scalar, len(weights))
	for i, w := range weights {
		scalars[i] = curve.ScalarFromUint64(group, w)
	}
	ix, err := instruction.NewInitializePoliciesAccount(scalars)
	if err != nil {
		return err
	}
	if err = l.Execute(ctx, ix, policies); err != nil {
		return fmt.Errorf("initialize policies: %w", err)
	}
	log.Info().Str("account", policies.String()).Uints64("weights", weights).Msg("policies initialized")

	// every user sends one interaction of value 1 per policy
	values := make([]uint64, len(weights))
	var expected uint64
	for i, w := range weights {
		values[i] = 1
		expected += w
	}

	start := time.Now()
	results := make([]*client.Result, opts.users)
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.users; i++ {
		i := i
		eg.Go(func() error {
			h := client.NewHolder(group, rand.Reader)
			res, err := client.RunWorkflow(ctx, l, h, policies, values, opts.maxValue, log)
			if err != nil {
				return fmt.Errorf("user %d: %w", i, err)
			}
			if res.Aggregate != expected {
				return fmt.Errorf("user %d: aggregate %d, expected %d", i, res.Aggregate, expected)
			}
			results[i] = res
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	instructions := 0
	for _, res := range results {
		instructions += res.Instructions
	}
	log.Info().
		Int("users", opts.users).
		Int("instructions", instructions).
		Dur("t", elapsed).
		Float64("ips", float64(instructions)/elapsed.Seconds()).
		Msg("workflow completed")
	return nil
}

// parseWeights parses a comma separated list of unsigned integers.
func parseWeights(s string) ([]uint64, error) {
	fields := strings.Split(s, ",")
	weights := make([]uint64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		w, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid policy weight %q: %w", f, err)
		}
		weights = append(weights, w)
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("no policy weights in %q", s)
	}
	return weights, nil
}
