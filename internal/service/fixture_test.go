package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/studyvault-server/internal/model"
	"github.com/dtroode/studyvault-server/internal/repository/memory"
	"github.com/dtroode/studyvault-server/internal/testutil"
)

// faultyTransactor wraps a Transactor and injects failures into the
// transaction it hands out.
type faultyTransactor struct {
	inner model.Transactor

	appendErr error
	commitErr error
	// beforeCommit runs inside the transaction after fn succeeded.
	beforeCommit func()
}

func (f *faultyTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx model.Tx) error) error {
	return f.inner.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		if err := fn(ctx, &faultyTx{Tx: tx, appendErr: f.appendErr}); err != nil {
			return err
		}
		if f.beforeCommit != nil {
			f.beforeCommit()
		}
		if f.commitErr != nil {
			return fmt.Errorf("%w: %w", model.ErrCommitFailed, f.commitErr)
		}
		return nil
	})
}

type faultyTx struct {
	model.Tx
	appendErr error
}

func (t *faultyTx) Activity() model.ActivityStore {
	if t.appendErr == nil {
		return t.Tx.Activity()
	}
	return failingActivity{ActivityStore: t.Tx.Activity(), err: t.appendErr}
}

type failingActivity struct {
	model.ActivityStore
	err error
}

func (f failingActivity) Append(context.Context, model.ActivityRecord) (model.ActivityRecord, error) {
	return model.ActivityRecord{}, f.err
}

type failingCredentials struct {
	model.CredentialStore
	err error
}

func (f failingCredentials) Delete(context.Context, uuid.UUID) error {
	return f.err
}

type failingRefreshTokens struct {
	model.RefreshTokenStore
	err error
}

func (f failingRefreshTokens) RevokeAllByUser(context.Context, uuid.UUID) error {
	return f.err
}

func seedProfile(t *testing.T, store *memory.Store, email, name string, admin bool) model.Profile {
	t.Helper()

	p, err := store.Profiles().Create(context.Background(), model.Profile{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		IsAdmin:   admin,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return p
}

func listActivity(t *testing.T, store *memory.Store) []model.ActivityRecord {
	t.Helper()

	records, err := store.Activity().List(context.Background(), nil, 1000)
	require.NoError(t, err)
	return records
}

func newTestLedger(store *memory.Store) *Ledger {
	return NewLedger(store.Activity(), nil, testutil.MakeNoopLogger())
}
