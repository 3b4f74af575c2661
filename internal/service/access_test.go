package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	servermocks "github.com/dtroode/studyvault-server/internal/mocks"
	"github.com/dtroode/studyvault-server/internal/model"
	"github.com/dtroode/studyvault-server/internal/repository/memory"
	"github.com/dtroode/studyvault-server/internal/testutil"
)

type accessFixture struct {
	store    *memory.Store
	identity *servermocks.IdentityProvider
	access   *Access
	admin    model.Profile
	user     model.Profile
}

func newAccessFixture(t *testing.T, opts Options) *accessFixture {
	t.Helper()

	store := memory.New()
	identity := servermocks.NewIdentityProvider(t)

	return &accessFixture{
		store:    store,
		identity: identity,
		access:   NewAccess(store, newTestLedger(store), identity, testutil.MakeNoopLogger(), opts),
		admin:    seedProfile(t, store, "a@x.com", "Alice", true),
		user:     seedProfile(t, store, "u@x.com", "Ursula", false),
	}
}

func (f *accessFixture) withTransactor(tx model.Transactor, opts Options) {
	f.access = NewAccess(tx, newTestLedger(f.store), f.identity, testutil.MakeNoopLogger(), opts)
}

func (f *accessFixture) profile(t *testing.T, id uuid.UUID) model.Profile {
	t.Helper()

	p, err := f.store.Profiles().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func TestAccess_Promote(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{})

	err := f.access.Promote(ctx, f.admin, "u@x.com")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, model.OutcomeOf(err))

	assert.True(t, f.profile(t, f.user.ID).IsAdmin)

	records := listActivity(t, f.store)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, model.ActionAdminPromoted, rec.ActionType)
	assert.Equal(t, f.admin.ID, rec.ActorID)
	assert.Equal(t, "a@x.com", rec.ActorEmail)
	assert.Equal(t, "Alice", rec.ActorName)
	require.NotNil(t, rec.TargetID)
	assert.Equal(t, f.user.ID, *rec.TargetID)
	assert.Equal(t, "u@x.com", *rec.TargetEmail)
	assert.Equal(t, "Ursula", *rec.TargetName)
	assert.Nil(t, rec.DocumentName)
	assert.Equal(t, "Ursula - u@x.com was promoted as admin by Alice - a@x.com", rec.Message)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestAccess_Promote_UnknownEmail(t *testing.T) {
	f := newAccessFixture(t, Options{})

	err := f.access.Promote(context.Background(), f.admin, "ghost@x.com")
	assert.Equal(t, model.OutcomeNotFound, model.OutcomeOf(err))
	assert.Empty(t, listActivity(t, f.store))
}

func TestAccess_Promote_AlreadyAdmin(t *testing.T) {
	f := newAccessFixture(t, Options{})
	other := seedProfile(t, f.store, "b@x.com", "Bob", true)

	err := f.access.Promote(context.Background(), f.admin, other.Email)
	assert.Equal(t, model.OutcomeAlreadyAdmin, model.OutcomeOf(err))
	assert.Empty(t, listActivity(t, f.store))
}

func TestAccess_NonAdminIsUnauthorized(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{})
	ghost := uuid.New()

	tests := []struct {
		name string
		call func() error
	}{
		{"promote existing", func() error { return f.access.Promote(ctx, f.user, "a@x.com") }},
		{"promote missing", func() error { return f.access.Promote(ctx, f.user, "ghost@x.com") }},
		{"demote existing", func() error { return f.access.Demote(ctx, f.user, f.admin.ID) }},
		{"demote missing", func() error { return f.access.Demote(ctx, f.user, ghost) }},
		{"demote self", func() error { return f.access.Demote(ctx, f.user, f.user.ID) }},
		{"set status missing", func() error { return f.access.SetAdminStatus(ctx, f.user, ghost, true) }},
		{"delete existing", func() error { return f.access.DeleteAccount(ctx, f.user, f.admin.ID) }},
		{"delete missing", func() error { return f.access.DeleteAccount(ctx, f.user, ghost) }},
		{"delete self", func() error { return f.access.DeleteAccount(ctx, f.user, f.user.ID) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, model.OutcomeUnauthorized, model.OutcomeOf(tt.call()))
		})
	}

	assert.Empty(t, listActivity(t, f.store))
	assert.True(t, f.profile(t, f.admin.ID).IsAdmin)
}

func TestAccess_SelfGuards(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{})

	assert.Equal(t, model.OutcomeSelfModificationForbidden, model.OutcomeOf(f.access.Demote(ctx, f.admin, f.admin.ID)))
	assert.Equal(t, model.OutcomeSelfModificationForbidden, model.OutcomeOf(f.access.SetAdminStatus(ctx, f.admin, f.admin.ID, true)))
	assert.Equal(t, model.OutcomeSelfModificationForbidden, model.OutcomeOf(f.access.SetAdminStatus(ctx, f.admin, f.admin.ID, false)))
	assert.Equal(t, model.OutcomeSelfDeletionForbidden, model.OutcomeOf(f.access.DeleteAccount(ctx, f.admin, f.admin.ID)))

	// the guard holds even when the actor's profile is gone
	require.NoError(t, f.store.Profiles().Delete(ctx, f.admin.ID))
	assert.Equal(t, model.OutcomeSelfDeletionForbidden, model.OutcomeOf(f.access.DeleteAccount(ctx, f.admin, f.admin.ID)))

	assert.Empty(t, listActivity(t, f.store))
}

func TestAccess_SetAdminStatus_Twice(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{})

	require.NoError(t, f.access.SetAdminStatus(ctx, f.admin, f.user.ID, true))
	err := f.access.SetAdminStatus(ctx, f.admin, f.user.ID, true)
	assert.Equal(t, model.OutcomeAlreadyAdmin, model.OutcomeOf(err))

	assert.Len(t, listActivity(t, f.store), 1)
}

func TestAccess_SetAdminStatus_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{})

	const callers = 8
	outcomes := make([]model.Outcome, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			outcomes[i] = model.OutcomeOf(f.access.SetAdminStatus(ctx, f.admin, f.user.ID, true))
		}()
	}
	close(start)
	wg.Wait()

	counts := map[model.Outcome]int{}
	for _, o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, 1, counts[model.OutcomeSuccess])
	assert.Equal(t, callers-1, counts[model.OutcomeAlreadyAdmin])
	assert.Len(t, listActivity(t, f.store), 1)
}

func TestAccess_Demote(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{})
	other := seedProfile(t, f.store, "b@x.com", "Bob", true)

	require.NoError(t, f.access.Demote(ctx, f.admin, other.ID))
	assert.False(t, f.profile(t, other.ID).IsAdmin)
	assert.Empty(t, listActivity(t, f.store))

	// demoting a regular user changes nothing
	require.NoError(t, f.access.Demote(ctx, f.admin, other.ID))
	assert.Empty(t, listActivity(t, f.store))

	err := f.access.Demote(ctx, f.admin, uuid.New())
	assert.Equal(t, model.OutcomeNotFound, model.OutcomeOf(err))
}

func TestAccess_Demote_SymmetricAudit(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{SymmetricAudit: true})
	other := seedProfile(t, f.store, "b@x.com", "Bob", true)

	require.NoError(t, f.access.Demote(ctx, f.admin, other.ID))
	require.NoError(t, f.access.Demote(ctx, f.admin, other.ID))

	records := listActivity(t, f.store)
	require.Len(t, records, 1)
	assert.Equal(t, model.ActionAdminDemoted, records[0].ActionType)
	assert.Equal(t, "Bob - b@x.com was demoted from admin by Alice - a@x.com", records[0].Message)
}

func TestAccess_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{})

	f.identity.On("RevokeCredential", mock.Anything, f.user.ID).Return(nil).Once()

	require.NoError(t, f.access.DeleteAccount(ctx, f.admin, f.user.ID))

	_, err := f.store.Profiles().GetByID(ctx, f.user.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Empty(t, listActivity(t, f.store))

	// a second delete observes the post-state
	err = f.access.DeleteAccount(ctx, f.admin, f.user.ID)
	assert.Equal(t, model.OutcomeNotFound, model.OutcomeOf(err))
}

func TestAccess_DeleteAccount_SymmetricAudit(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{SymmetricAudit: true})

	f.identity.On("RevokeCredential", mock.Anything, f.user.ID).Return(nil).Once()

	require.NoError(t, f.access.DeleteAccount(ctx, f.admin, f.user.ID))

	records := listActivity(t, f.store)
	require.Len(t, records, 1)
	assert.Equal(t, model.ActionAccountDeleted, records[0].ActionType)
	assert.Equal(t, f.user.ID, *records[0].TargetID)
}

func TestAccess_DeleteAccount_RevokeFails(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{})

	f.identity.On("RevokeCredential", mock.Anything, f.user.ID).Return(assert.AnError).Once()

	err := f.access.DeleteAccount(ctx, f.admin, f.user.ID)
	assert.Equal(t, model.OutcomeUpstreamFailure, model.OutcomeOf(err))
	assert.ErrorIs(t, err, assert.AnError)

	// nothing was removed
	f.profile(t, f.user.ID)
}

func TestAccess_DeleteAccount_CommitFailsAfterRevoke(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{SymmetricAudit: true})
	f.withTransactor(&faultyTransactor{inner: f.store, commitErr: assert.AnError}, Options{SymmetricAudit: true})

	f.identity.On("RevokeCredential", mock.Anything, f.user.ID).Return(nil).Once()

	err := f.access.DeleteAccount(ctx, f.admin, f.user.ID)
	assert.Equal(t, model.OutcomePartialFailure, model.OutcomeOf(err))
	assert.ErrorIs(t, err, model.ErrCommitFailed)

	// profile deletion and ledger record were rolled back together
	f.profile(t, f.user.ID)
	assert.Empty(t, listActivity(t, f.store))
}

func TestAccess_DeleteAccount_LedgerFailsAfterRevoke(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, Options{SymmetricAudit: true})
	f.withTransactor(&faultyTransactor{inner: f.store, appendErr: assert.AnError}, Options{SymmetricAudit: true})

	f.identity.On("RevokeCredential", mock.Anything, f.user.ID).Return(nil).Once()

	err := f.access.DeleteAccount(ctx, f.admin, f.user.ID)
	assert.Equal(t, model.OutcomePartialFailure, model.OutcomeOf(err))
	f.profile(t, f.user.ID)
}

func TestAccess_DeleteAccount_RevokeTimesOut(t *testing.T) {
	f := newAccessFixture(t, Options{Timeout: 20 * time.Millisecond})

	f.identity.On("RevokeCredential", mock.Anything, f.user.ID).Return(func(ctx context.Context, _ uuid.UUID) error {
		<-ctx.Done()
		return ctx.Err()
	}).Once()

	err := f.access.DeleteAccount(context.Background(), f.admin, f.user.ID)
	assert.Equal(t, model.OutcomeUpstreamFailure, model.OutcomeOf(err))
	assert.True(t, model.IsTimeout(err))
	f.profile(t, f.user.ID)
}

func TestAccess_Promote_LedgerFailureRollsBack(t *testing.T) {
	f := newAccessFixture(t, Options{})
	f.withTransactor(&faultyTransactor{inner: f.store, appendErr: assert.AnError}, Options{})

	err := f.access.Promote(context.Background(), f.admin, f.user.Email)
	assert.Equal(t, model.OutcomeUpstreamFailure, model.OutcomeOf(err))

	assert.False(t, f.profile(t, f.user.ID).IsAdmin)
	assert.Empty(t, listActivity(t, f.store))
}

func TestAccess_Promote_CommitFailure(t *testing.T) {
	f := newAccessFixture(t, Options{})
	f.withTransactor(&faultyTransactor{inner: f.store, commitErr: assert.AnError}, Options{})

	err := f.access.Promote(context.Background(), f.admin, f.user.Email)
	assert.Equal(t, model.OutcomeUpstreamFailure, model.OutcomeOf(err))
	assert.ErrorIs(t, err, model.ErrCommitFailed)

	assert.False(t, f.profile(t, f.user.ID).IsAdmin)
	assert.Empty(t, listActivity(t, f.store))
}

func TestAccess_Promote_DeadlineExceeded(t *testing.T) {
	f := newAccessFixture(t, Options{})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := f.access.Promote(ctx, f.admin, f.user.Email)
	assert.Equal(t, model.OutcomeUpstreamFailure, model.OutcomeOf(err))
	assert.True(t, model.IsTimeout(err))
	assert.False(t, f.profile(t, f.user.ID).IsAdmin)
}

func TestAccess_Promote_Notifies(t *testing.T) {
	store := memory.New()
	notifier := servermocks.NewActivityNotifier(t)
	admin := seedProfile(t, store, "a@x.com", "Alice", true)
	seedProfile(t, store, "u@x.com", "Ursula", false)

	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(r model.ActivityRecord) bool {
		return r.ActionType == model.ActionAdminPromoted
	})).Return(assert.AnError).Once()

	access := NewAccess(store, NewLedger(store.Activity(), notifier, testutil.MakeNoopLogger()),
		servermocks.NewIdentityProvider(t), testutil.MakeNoopLogger(), Options{})

	// a failed notification does not change the outcome
	require.NoError(t, access.Promote(context.Background(), admin, "u@x.com"))
}

func TestAccess_Bootstrap(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	user := seedProfile(t, store, "first@x.com", "First", false)
	seedProfile(t, store, "second@x.com", "Second", false)

	access := NewAccess(store, newTestLedger(store), servermocks.NewIdentityProvider(t), testutil.MakeNoopLogger(), Options{})

	p, err := access.Bootstrap(ctx, "first@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.ID)
	assert.True(t, p.IsAdmin)

	records := listActivity(t, store)
	require.Len(t, records, 1)
	assert.Equal(t, model.SystemActorEmail, records[0].ActorEmail)
	assert.Equal(t, uuid.Nil, records[0].ActorID)

	_, err = access.Bootstrap(ctx, "second@x.com")
	assert.Equal(t, model.OutcomeUnauthorized, model.OutcomeOf(err))

	_, err = NewAccess(memory.New(), newTestLedger(store), nil, testutil.MakeNoopLogger(), Options{}).Bootstrap(ctx, "ghost@x.com")
	assert.Equal(t, model.OutcomeNotFound, model.OutcomeOf(err))
}
