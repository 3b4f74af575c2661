//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dtroode/studyvault-server/database"
	"github.com/dtroode/studyvault-server/internal/model"
	repo "github.com/dtroode/studyvault-server/internal/repository/postgres"
	"github.com/dtroode/studyvault-server/internal/service"
	"github.com/dtroode/studyvault-server/internal/testutil"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "studyvault_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/studyvault_test?sslmode=disable", host, port.Port())

	if err := database.Migrate(ctx, dsn); err != nil {
		panic(err)
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func connect(t *testing.T) *repo.Connection {
	t.Helper()

	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// TRUNCATE bypasses the append-only row trigger on activity_logs.
	_, err = conn.Exec(ctx, `TRUNCATE profiles, documents, activity_logs, credentials, refresh_tokens`)
	require.NoError(t, err)
	return conn
}

func createProfile(t *testing.T, profiles *repo.ProfileRepository, email, name string, admin bool) model.Profile {
	t.Helper()
	p, err := profiles.Create(context.Background(), model.Profile{Email: email, Name: name, IsAdmin: admin})
	require.NoError(t, err)
	return p
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	profiles := repo.NewProfileRepository(connect(t))

	alice := createProfile(t, profiles, "a@x.com", "Alice", true)
	ursula := createProfile(t, profiles, "u@x.com", "Ursula", false)

	_, err := profiles.Create(ctx, model.Profile{Email: "u@x.com", Name: "Dup"})
	require.ErrorIs(t, err, model.ErrAlreadyExists)

	got, err := profiles.GetByEmail(ctx, "u@x.com")
	require.NoError(t, err)
	assert.Equal(t, ursula.ID, got.ID)

	_, err = profiles.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = profiles.GetByEmail(ctx, "ghost@x.com")
	require.ErrorIs(t, err, model.ErrNotFound)

	all, err := profiles.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ursula.ID, all[0].ID, "newest first")

	admins, err := profiles.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, alice.ID, admins[0].ID)

	name := "Ursula K."
	updated, err := profiles.Update(ctx, ursula.ID, model.ProfilePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, "u@x.com", updated.Email)

	require.NoError(t, profiles.SetAdmin(ctx, ursula.ID, true))
	admins, err = profiles.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	require.NoError(t, profiles.Delete(ctx, ursula.ID))
	require.ErrorIs(t, profiles.Delete(ctx, ursula.ID), model.ErrNotFound)
	require.ErrorIs(t, profiles.SetAdmin(ctx, ursula.ID, false), model.ErrNotFound)
}

func TestConnection_WithinTx_RollsBack(t *testing.T) {
	ctx := context.Background()
	conn := connect(t)
	boom := errors.New("boom")

	err := conn.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		if _, err := tx.Profiles().Create(ctx, model.Profile{Email: "u@x.com", Name: "Ursula"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.NewProfileRepository(conn).GetByEmail(ctx, "u@x.com")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestActivity_OrderAndAppendOnly(t *testing.T) {
	ctx := context.Background()
	conn := connect(t)
	activity := repo.NewActivityRepository(conn)

	at := time.Now().UTC().Truncate(time.Microsecond)
	var ids []uuid.UUID
	for i := range 3 {
		rec, err := activity.Append(ctx, model.ActivityRecord{
			ID:         uuid.New(),
			ActionType: model.ActionDocumentCreated,
			ActorID:    uuid.New(),
			ActorEmail: "u@x.com",
			ActorName:  "Ursula",
			Message:    fmt.Sprintf("record %d", i),
			CreatedAt:  at,
		})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	first, err := activity.List(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ids[2], first[0].ID, "ties break by insertion order, newest first")
	assert.Equal(t, ids[1], first[1].ID)

	cursor := first[1].Cursor()
	rest, err := activity.List(ctx, &cursor, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[0], rest[0].ID)

	_, err = conn.Exec(ctx, `DELETE FROM activity_logs WHERE id = $1`, ids[0])
	require.Error(t, err)
	_, err = conn.Exec(ctx, `UPDATE activity_logs SET message = 'edited' WHERE id = $1`, ids[0])
	require.Error(t, err)
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	documents := repo.NewDocumentRepository(connect(t))

	math, fall := "Math", "Fall 2024"
	calc, err := documents.Create(ctx, model.DocumentRecord{
		Title:          "Calc Notes",
		FileName:       "calc.pdf",
		StoragePointer: "1700000000000_calc.pdf",
		UploadedBy:     uuid.New(),
		UploadedByName: "Ursula",
		Subject:        &math,
		Semester:       &fall,
	})
	require.NoError(t, err)
	_, err = documents.Create(ctx, model.DocumentRecord{
		Title:          "Essay",
		FileName:       "essay.docx",
		StoragePointer: "1700000000001_essay.docx",
		UploadedBy:     uuid.New(),
	})
	require.NoError(t, err)

	all, err := documents.List(ctx, model.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := documents.List(ctx, model.DocumentFilter{Subject: &math, Semester: &fall})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, calc.ID, filtered[0].ID)

	facets, err := documents.Facets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Math"}, facets.Subjects)
	assert.Equal(t, []string{"Fall 2024"}, facets.Semesters)

	require.NoError(t, documents.Delete(ctx, calc.ID))
	require.ErrorIs(t, documents.Delete(ctx, calc.ID), model.ErrNotFound)
	_, err = documents.GetByID(ctx, calc.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCredentialsAndRefreshTokens(t *testing.T) {
	ctx := context.Background()
	conn := connect(t)
	credentials := repo.NewCredentialRepository(conn)
	tokens := repo.NewRefreshTokenRepository(conn)

	userID := uuid.New()
	require.NoError(t, credentials.Create(ctx, model.Credential{UserID: userID, Email: "u@x.com", PasswordHash: []byte("hash")}))
	require.ErrorIs(t, credentials.Create(ctx, model.Credential{UserID: uuid.New(), Email: "u@x.com", PasswordHash: []byte("x")}), model.ErrAlreadyExists)

	cred, err := credentials.GetByEmail(ctx, "u@x.com")
	require.NoError(t, err)
	assert.Equal(t, userID, cred.UserID)

	now := time.Now()
	for _, jti := range []string{"jti-1", "jti-2"} {
		require.NoError(t, tokens.Create(ctx, model.RefreshToken{
			JTI:       jti,
			UserID:    userID,
			TokenHash: []byte(jti),
			IssuedAt:  now,
			ExpiresAt: now.Add(time.Hour),
		}))
	}

	require.NoError(t, tokens.RevokeByJTI(ctx, "jti-1"))
	require.ErrorIs(t, tokens.RevokeByJTI(ctx, "jti-1"), model.ErrTokenRevoked)

	require.NoError(t, tokens.RevokeAllByUser(ctx, userID))
	rt, err := tokens.GetByJTI(ctx, "jti-2")
	require.NoError(t, err)
	assert.NotNil(t, rt.RevokedAt)

	_, err = tokens.GetByJTI(ctx, "missing")
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, credentials.Delete(ctx, userID))
	_, err = credentials.GetByEmail(ctx, "u@x.com")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAccess_ConcurrentPromotion(t *testing.T) {
	ctx := context.Background()
	conn := connect(t)
	profiles := repo.NewProfileRepository(conn)
	lg := testutil.MakeNoopLogger()

	alice := createProfile(t, profiles, "a@x.com", "Alice", true)
	createProfile(t, profiles, "u@x.com", "Ursula", false)

	ledger := service.NewLedger(repo.NewActivityRepository(conn), nil, lg)
	access := service.NewAccess(conn, ledger, nil, lg, service.Options{Timeout: 10 * time.Second})

	const callers = 8
	outcomes := make([]model.Outcome, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = model.OutcomeOf(access.Promote(ctx, alice, "u@x.com"))
		}()
	}
	wg.Wait()

	counts := map[model.Outcome]int{}
	for _, o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, map[model.Outcome]int{
		model.OutcomeSuccess:      1,
		model.OutcomeAlreadyAdmin: callers - 1,
	}, counts)

	records, err := repo.NewActivityRepository(conn).List(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ursula - u@x.com was promoted as admin by Alice - a@x.com", records[0].Message)
}
