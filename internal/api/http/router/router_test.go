package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	httpctx "github.com/dtroode/studyvault-server/internal/api/http/context"
	"github.com/dtroode/studyvault-server/internal/api/http/handler"
	"github.com/dtroode/studyvault-server/internal/model"
	"github.com/dtroode/studyvault-server/internal/repository/memory"
	"github.com/dtroode/studyvault-server/internal/service"
	"github.com/dtroode/studyvault-server/internal/testutil"
	"github.com/dtroode/studyvault-server/internal/token"
)

type memoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memoryBlobs) Store(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[name] = data
	return name, nil
}

func (b *memoryBlobs) PublicURL(_ context.Context, pointer string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[pointer]; !ok {
		return "", model.ErrNotFound
	}
	return "https://blobs.test/" + pointer, nil
}

func (b *memoryBlobs) Delete(_ context.Context, pointer string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, pointer)
	return nil
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	access  *service.Access
	blobs   *memoryBlobs
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	lg := testutil.MakeNoopLogger()
	store := memory.New()
	opts := service.Options{Timeout: time.Second}

	tokens := service.NewTokenService(token.NewJWT("test-secret", time.Minute, time.Hour), store.RefreshTokens(), lg, time.Hour)
	auth := service.NewAuth(store, store.Credentials(), tokens, lg, bcrypt.MinCost)
	ledger := service.NewLedger(store.Activity(), nil, lg)
	access := service.NewAccess(store, ledger, auth, lg, opts)
	blobs := &memoryBlobs{objects: map[string][]byte{}}

	services := Services{
		Auth:      auth,
		Tokens:    tokens,
		Sessions:  service.NewSession(store.Profiles(), lg, opts),
		Directory: service.NewDirectory(store.Profiles(), lg, opts),
		Access:    access,
		Ledger:    ledger,
		Documents: service.NewDocuments(store, store.Documents(), blobs, ledger, lg, opts),
		Store:     store,
	}

	return &testAPI{
		t:       t,
		handler: New(services, Options{}, httpctx.NewManager(), lg).Register(),
		access:  access,
		blobs:   blobs,
	}
}

func (a *testAPI) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(email, name string) handler.ProfileResponse {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": "secret1", "name": name})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var p handler.ProfileResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func (a *testAPI) login(email string) handler.TokenResponse {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	var tokens handler.TokenResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	return tokens
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_Public(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/documents", "garbage", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/nowhere", "", nil).Code)

	api.register("u@x.com", "Ursula")
	rec := api.do(http.MethodPost, "/auth/register", "", map[string]string{"email": "u@x.com", "password": "secret1", "name": "Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "u@x.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_TokenLifecycle(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.register("u@x.com", "Ursula")
	tokens := api.login("u@x.com")

	me := decode[handler.ProfileResponse](t, api.do(http.MethodGet, "/me", tokens.AccessToken, nil))
	assert.Equal(t, "Ursula", me.Name)

	rec := api.do(http.MethodPatch, "/me", tokens.AccessToken, map[string]string{"name": "Ursula K."})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ursula K.", decode[handler.ProfileResponse](t, rec).Name)

	rec = api.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[handler.TokenResponse](t, rec)

	rec = api.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a rotated refresh token is single use")

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodPost, "/auth/logout", "", map[string]string{"refresh_token": rotated.RefreshToken}).Code)
	rec = api.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdministrationFlow(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	alice := api.register("a@x.com", "Alice")
	bob := api.register("b@x.com", "Bob")

	_, err := api.access.Bootstrap(context.Background(), "a@x.com")
	require.NoError(t, err)

	aliceTokens := api.login("a@x.com")
	bobTokens := api.login("b@x.com")

	assert.True(t, decode[handler.ProfileResponse](t, api.do(http.MethodGet, "/me", aliceTokens.AccessToken, nil)).IsAdmin)

	// read endpoints are gated by the router, mutations by the engine
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/admin/users", bobTokens.AccessToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/admin/activity", bobTokens.AccessToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/admin/admins", bobTokens.AccessToken, map[string]string{"email": "b@x.com"}).Code)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodPost, "/admin/admins", aliceTokens.AccessToken, map[string]string{"email": "b@x.com"}).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/admin/admins", aliceTokens.AccessToken, map[string]string{"email": "b@x.com"}).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/admin/admins", aliceTokens.AccessToken, map[string]string{"email": "ghost@x.com"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, api.do(http.MethodDelete, "/admin/admins/"+alice.ID.String(), aliceTokens.AccessToken, nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, api.do(http.MethodDelete, "/admin/users/"+alice.ID.String(), aliceTokens.AccessToken, nil).Code)

	admins := decode[[]handler.ProfileResponse](t, api.do(http.MethodGet, "/admin/admins", aliceTokens.AccessToken, nil))
	assert.Len(t, admins, 2)

	page := decode[handler.ActivityPageResponse](t, api.do(http.MethodGet, "/admin/activity", aliceTokens.AccessToken, nil))
	require.Len(t, page.Records, 2)
	assert.Equal(t, "Bob - b@x.com was promoted as admin by Alice - a@x.com", page.Records[0].Message)
	assert.Equal(t, string(model.ActionAdminPromoted), page.Records[1].ActionType)

	rec := api.do(http.MethodPut, "/admin/users/"+bob.ID.String()+"/admin", aliceTokens.AccessToken, map[string]bool{"is_admin": false})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/admin/users/"+bob.ID.String(), aliceTokens.AccessToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/admin/users/"+bob.ID.String(), aliceTokens.AccessToken, nil).Code)

	// the deleted account keeps a syntactically valid token but no longer resolves
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/me", bobTokens.AccessToken, nil).Code)
	rec = api.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": bobTokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func uploadRequest(t *testing.T, bearer string, fields map[string]string, fileName, contents string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(contents))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req
}

func TestRouter_Documents(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.register("a@x.com", "Alice")
	api.register("u@x.com", "Ursula")
	_, err := api.access.Bootstrap(context.Background(), "a@x.com")
	require.NoError(t, err)

	adminTokens := api.login("a@x.com")
	userTokens := api.login("u@x.com")

	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, uploadRequest(t, userTokens.AccessToken, map[string]string{
		"title":    "Calc Notes",
		"subject":  "Math",
		"semester": "Fall 2024",
	}, "calc.pdf", "%PDF-1.4"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[handler.DocumentResponse](t, rec)
	assert.Equal(t, "Ursula", doc.UploadedByName)
	assert.Equal(t, "calc.pdf", doc.FileName)

	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, uploadRequest(t, userTokens.AccessToken, map[string]string{"title": "  "}, "empty.pdf", "x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	listed := decode[[]handler.DocumentResponse](t, api.do(http.MethodGet, "/documents?subject=Math", userTokens.AccessToken, nil))
	require.Len(t, listed, 1)
	assert.Equal(t, doc.ID, listed[0].ID)
	assert.Empty(t, decode[[]handler.DocumentResponse](t, api.do(http.MethodGet, "/documents?subject=Physics", userTokens.AccessToken, nil)))

	got := decode[handler.DocumentResponse](t, api.do(http.MethodGet, "/documents/"+doc.ID.String(), userTokens.AccessToken, nil))
	assert.True(t, strings.HasPrefix(got.DownloadURL, "https://blobs.test/"))
	assert.True(t, strings.HasSuffix(got.DownloadURL, "_calc.pdf"))

	facets := decode[handler.FacetsResponse](t, api.do(http.MethodGet, "/documents/facets", userTokens.AccessToken, nil))
	assert.Equal(t, []string{"Math"}, facets.Subjects)
	assert.Equal(t, []string{"Fall 2024"}, facets.Semesters)

	page := decode[handler.ActivityPageResponse](t, api.do(http.MethodGet, "/admin/activity?limit=1", adminTokens.AccessToken, nil))
	require.Len(t, page.Records, 1)
	assert.Equal(t, `u@x.com - Ursula created document "Calc Notes"`, page.Records[0].Message)
	assert.NotEmpty(t, page.NextCursor)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/documents/"+doc.ID.String(), userTokens.AccessToken, nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/documents/"+doc.ID.String(), adminTokens.AccessToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/documents/"+doc.ID.String(), userTokens.AccessToken, nil).Code)
	assert.Empty(t, api.blobs.objects)
}
