// Package memory is an in-process implementation of the persistence
// interfaces. Transactions are serialized by a single-slot semaphore, which
// gives them the isolation a row lock provides in Postgres. Writes are applied
// in place and undone in reverse order when the transaction fails.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/model"
)

var _ model.Transactor = (*Store)(nil)

type Store struct {
	// txSem holds one token per running transaction; waiting honors ctx.
	txSem chan struct{}
	mu    sync.RWMutex

	profiles      map[uuid.UUID]model.Profile
	documents     map[uuid.UUID]model.DocumentRecord
	activity      []model.ActivityRecord
	credentials   map[uuid.UUID]model.Credential
	refreshTokens map[string]model.RefreshToken
	seq           int64

	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for server-side timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		txSem:         make(chan struct{}, 1),
		profiles:      make(map[uuid.UUID]model.Profile),
		documents:     make(map[uuid.UUID]model.DocumentRecord),
		credentials:   make(map[uuid.UUID]model.Credential),
		refreshTokens: make(map[string]model.RefreshToken),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profiles returns a store whose writes commit immediately.
func (s *Store) Profiles() model.ProfileStore { return &ProfileRepository{s: s} }

func (s *Store) Documents() model.DocumentStore { return &DocumentRepository{s: s} }

func (s *Store) Activity() model.ActivityStore { return &ActivityRepository{s: s} }

func (s *Store) Credentials() model.CredentialStore { return &CredentialRepository{s: s} }

func (s *Store) RefreshTokens() model.RefreshTokenStore { return &RefreshTokenRepository{s: s} }

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// WithinTx runs fn with exclusive access to the transactional tables.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx model.Tx) error) (err error) {
	select {
	case s.txSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.txSem }()

	j := &journal{}
	t := &tx{
		profiles:    &ProfileRepository{s: s, j: j},
		documents:   &DocumentRepository{s: s, j: j},
		activity:    &ActivityRepository{s: s, j: j},
		credentials: &CredentialRepository{s: s, j: j},
	}

	defer func() {
		if r := recover(); r != nil {
			s.rollback(j)
			panic(r)
		}
	}()

	if err := fn(ctx, t); err != nil {
		s.rollback(j)
		return err
	}

	return nil
}

func (s *Store) rollback(j *journal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// journal collects undo steps of a running transaction. A nil journal means autocommit.
type journal struct {
	undo []func()
}

func (j *journal) record(fn func()) {
	if j != nil {
		j.undo = append(j.undo, fn)
	}
}

type tx struct {
	profiles    *ProfileRepository
	documents   *DocumentRepository
	activity    *ActivityRepository
	credentials *CredentialRepository
}

func (t *tx) Profiles() model.ProfileStore       { return t.profiles }
func (t *tx) Documents() model.DocumentStore     { return t.documents }
func (t *tx) Activity() model.ActivityStore      { return t.activity }
func (t *tx) Credentials() model.CredentialStore { return t.credentials }
