// Package ledger is an in-process stand-in for the durable ledger the
// processor runs against. Accounts are raw buffers stored in a key-value
// database under the following prefixes:
//   - 'u/' for user accounts
//   - 'p/' for policies accounts
//
// Every call to Execute holds the locks of the accounts it touches, and
// commits its result in a single write transaction.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/themis/internal/params"
	"github.com/taurusgroup/themis/pkg/account"
	"github.com/taurusgroup/themis/pkg/instruction"
	"github.com/taurusgroup/themis/pkg/policy"
	"github.com/taurusgroup/themis/pkg/themis"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	userPrefix     = []byte("u/")
	policiesPrefix = []byte("p/")
)

var (
	// ErrAccountNotFound is returned for ids that were never created.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAccounts is returned when an instruction is given the wrong number of accounts.
	ErrAccounts = errors.New("ledger: wrong accounts for instruction")
)

// Kind is the type of an account, it selects the prefix it is stored under.
type Kind uint8

const (
	KindUser Kind = iota
	KindPolicies
)

func (k Kind) String() string {
	if k == KindPolicies {
		return "policies"
	}
	return "user"
}

func (k Kind) prefix() []byte {
	if k == KindPolicies {
		return policiesPrefix
	}
	return userPrefix
}

// Ledger stores accounts and runs instructions against them.
type Ledger struct {
	db        db.Database
	processor *themis.Processor
	log       zerolog.Logger

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

// New creates a Ledger on top of database. The ledger takes ownership of it.
func New(database db.Database, processor *themis.Processor, logger zerolog.Logger) *Ledger {
	return &Ledger{
		db:        database,
		processor: processor,
		log:       logger,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// Open creates a Ledger backed by a pebble database in dir.
func Open(dir string, processor *themis.Processor, logger zerolog.Logger) (*Ledger, error) {
	database, err := metadb.New(db.TypePebble, dir)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", dir, err)
	}
	return New(database, processor, logger), nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// CreateUserAccount allocates a zeroed user account.
func (l *Ledger) CreateUserAccount() (uuid.UUID, error) {
	return l.create(KindUser, params.BytesUser)
}

// CreatePoliciesAccount allocates a zeroed policies account able to hold n weights.
func (l *Ledger) CreatePoliciesAccount(n int) (uuid.UUID, error) {
	if n < 0 || n > params.MaxPolicies {
		return uuid.Nil, fmt.Errorf("ledger: %d policies: %w", n, themis.ErrIndexOutOfRange)
	}
	return l.create(KindPolicies, params.BytesPolicies(n))
}

func (l *Ledger) create(kind Kind, size int) (uuid.UUID, error) {
	id := uuid.New()
	wTx := prefixeddb.NewPrefixedWriteTx(l.db.WriteTx(), kind.prefix())
	defer wTx.Discard()
	if err := wTx.Set(id[:], make([]byte, size)); err != nil {
		return uuid.Nil, err
	}
	if err := wTx.Commit(); err != nil {
		return uuid.Nil, err
	}
	l.log.Debug().Str("account", id.String()).Stringer("kind", kind).Int("size", size).Msg("created account")
	return id, nil
}

// Execute runs ix on the accounts ids, in the order the instruction expects them,
// and stores the mutated account. Nothing is stored when an error is returned.
func (l *Ledger) Execute(ctx context.Context, ix instruction.Instruction, ids ...uuid.UUID) error {
	kinds, err := accountKinds(ix)
	if err != nil {
		return err
	}
	if len(ids) != len(kinds) {
		return fmt.Errorf("%s: %d accounts, expected %d: %w", ix.Tag(), len(ids), len(kinds), ErrAccounts)
	}

	unlock := l.lock(ids)
	defer unlock()

	if err = ctx.Err(); err != nil {
		return err
	}

	buffers := make([][]byte, len(ids))
	for i, id := range ids {
		if buffers[i], err = l.get(kinds[i], id); err != nil {
			return err
		}
	}

	out, err := l.processor.Process(ix, buffers...)
	if err != nil {
		l.log.Debug().Err(err).Stringer("op", ix.Tag()).Str("account", ids[0].String()).Msg("instruction failed")
		return err
	}

	if err = ctx.Err(); err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(l.db.WriteTx(), kinds[0].prefix())
	defer wTx.Discard()
	if err = wTx.Set(ids[0][:], out); err != nil {
		return err
	}
	return wTx.Commit()
}

// ExecuteRaw decodes a cbor instruction, and runs it with Execute.
func (l *Ledger) ExecuteRaw(ctx context.Context, data []byte, ids ...uuid.UUID) error {
	ix, err := instruction.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, themis.ErrDecode)
	}
	return l.Execute(ctx, ix, ids...)
}

// User decodes the user account id.
func (l *Ledger) User(id uuid.UUID) (*account.User, error) {
	data, err := l.get(KindUser, id)
	if err != nil {
		return nil, err
	}
	return account.DecodeUser(l.processor.Group(), data)
}

// Policies decodes the policies account id.
func (l *Ledger) Policies(id uuid.UUID) (*policy.Policies, error) {
	data, err := l.get(KindPolicies, id)
	if err != nil {
		return nil, err
	}
	return policy.Decode(l.processor.Group(), data)
}

// Raw returns the stored buffer of an account.
func (l *Ledger) Raw(kind Kind, id uuid.UUID) ([]byte, error) {
	return l.get(kind, id)
}

// Accounts lists the ids of every account of kind.
func (l *Ledger) Accounts(kind Kind) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	var iterErr error
	rd := prefixeddb.NewPrefixedReader(l.db, kind.prefix())
	if err := rd.Iterate(nil, func(k, _ []byte) bool {
		id, err := uuid.FromBytes(k)
		if err != nil {
			iterErr = fmt.Errorf("ledger: invalid key %x: %w", k, err)
			return false
		}
		ids = append(ids, id)
		return true
	}); err != nil {
		return nil, fmt.Errorf("ledger: iterate %s accounts: %w", kind, err)
	}
	return ids, iterErr
}

func (l *Ledger) get(kind Kind, id uuid.UUID) ([]byte, error) {
	rd := prefixeddb.NewPrefixedReader(l.db, kind.prefix())
	data, err := rd.Get(id[:])
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s account %s: %w", kind, id, ErrAccountNotFound)
	}
	if err != nil {
		return nil, err
	}
	return bytes.Clone(data), nil
}

// lock acquires the locks of ids in a fixed order, so that two calls
// sharing accounts never deadlock.
func (l *Ledger) lock(ids []uuid.UUID) (unlock func()) {
	sorted := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	l.locksMu.Lock()
	mutexes := make([]*sync.Mutex, len(sorted))
	for i, id := range sorted {
		m, ok := l.locks[id]
		if !ok {
			m = new(sync.Mutex)
			l.locks[id] = m
		}
		mutexes[i] = m
	}
	l.locksMu.Unlock()

	for _, m := range mutexes {
		m.Lock()
	}
	return func() {
		for i := len(mutexes) - 1; i >= 0; i-- {
			mutexes[i].Unlock()
		}
	}
}

func accountKinds(ix instruction.Instruction) ([]Kind, error) {
	switch ix.(type) {
	case *instruction.InitializeUserAccount, *instruction.SubmitProofDecryption, *instruction.RequestPayment:
		return []Kind{KindUser}, nil
	case *instruction.InitializePoliciesAccount:
		return []Kind{KindPolicies}, nil
	case *instruction.CalculateAggregate:
		return []Kind{KindUser, KindPolicies}, nil
	default:
		return nil, fmt.Errorf("ledger: unknown instruction %T: %w", ix, themis.ErrDecode)
	}
}
