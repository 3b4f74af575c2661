package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtroode/studyvault-server/internal/model"
)

// Querier is the subset of pgx shared by the pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier          = (*Connection)(nil)
	_ model.Transactor = (*Connection)(nil)
)

type Connection struct {
	*pgxpool.Pool
}

func NewConnection(ctx context.Context, dsn string) (*Connection, error) {
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}

	return &Connection{
		Pool: pool,
	}, nil
}

func (s *Connection) Close() error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	return nil
}

func (s *Connection) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return fmt.Errorf("connection pool is nil")
	}
	return s.Pool.Ping(ctx)
}

// WithinTx runs fn in a read-committed transaction. Row locks taken through the
// ForUpdate getters are held until fn returns. The commit itself ignores
// cancellation of ctx so a finished unit of work is never abandoned half way.
func (s *Connection) WithinTx(ctx context.Context, fn func(ctx context.Context, tx model.Tx) error) error {
	pgTx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op returning pgx.ErrTxClosed.
	defer func() { _ = pgTx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, newTx(pgTx)); err != nil {
		return err
	}

	if err := pgTx.Commit(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
	}

	return nil
}

type tx struct {
	profiles    *ProfileRepository
	documents   *DocumentRepository
	activity    *ActivityRepository
	credentials *CredentialRepository
}

func newTx(q Querier) *tx {
	return &tx{
		profiles:    NewProfileRepository(q),
		documents:   NewDocumentRepository(q),
		activity:    NewActivityRepository(q),
		credentials: NewCredentialRepository(q),
	}
}

func (t *tx) Profiles() model.ProfileStore       { return t.profiles }
func (t *tx) Documents() model.DocumentStore     { return t.documents }
func (t *tx) Activity() model.ActivityStore      { return t.activity }
func (t *tx) Credentials() model.CredentialStore { return t.credentials }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
