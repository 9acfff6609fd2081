package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminauth "github.com/adminkit/adminauth"
	"github.com/adminkit/adminauth/permission"
)

type stubRepo struct {
	mu       sync.Mutex
	accounts map[string]*adminauth.Account
}

func (r *stubRepo) FindByIdentifier(_ context.Context, identifier string) (*adminauth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Identifier == identifier {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) FindByID(_ context.Context, id string) (*adminauth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *stubRepo) RecordLoginOutcome(context.Context, string, bool, time.Time) error {
	return nil
}

func (r *stubRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.PasswordHash = hash
	}
	return nil
}

func newGuardedServer(t *testing.T) (*adminauth.Engine, *stubRepo, http.Handler) {
	t.Helper()

	cfg := adminauth.DefaultConfig()
	cfg.Token.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false

	repo := &stubRepo{accounts: map[string]*adminauth.Account{
		"a1": {ID: "a1", Identifier: "alice", Active: true, Roles: []string{"viewer"}},
	}}

	eng, err := adminauth.New().
		WithConfig(cfg).
		WithAccountRepository(repo).
		WithPermissions([]permission.Permission{
			{Name: "dashboard:view", Group: "dashboard"},
			{Name: "user:create", Group: "user"},
		}).
		WithRoles(map[string][]string{"viewer": {"dashboard:view"}}).
		Build()
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	// Store a real hash for the test password.
	hash := hashPassword(t, eng, repo)
	repo.mu.Lock()
	repo.accounts["a1"].PasswordHash = hash
	repo.mu.Unlock()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view, _ := AccountFromContext(r.Context())
		_, _ = w.Write([]byte("hello " + view.Identifier))
	})

	mux := http.NewServeMux()
	mux.Handle("/dashboard", Guard(eng)(RequirePermission(eng, "dashboard:view")(ok)))
	mux.Handle("/users", Guard(eng)(RequirePermission(eng, "user:create")(ok)))
	return eng, repo, mux
}

// hashPassword round-trips through a throwaway engine login to obtain a
// hash in current-scheme format without exporting the verifier.
func hashPassword(t *testing.T, eng *adminauth.Engine, repo *stubRepo) string {
	t.Helper()
	ch, err := eng.RequestPasswordReset(context.Background(), "alice")
	require.NoError(t, err)
	require.NoError(t, eng.ConfirmPasswordReset(context.Background(), ch.ID, ch.Secret, "open sesame"))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.accounts["a1"].PasswordHash
}

func TestGuardRejectsMissingAndGarbageTokens(t *testing.T) {
	_, _, handler := newGuardedServer(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardAllowsPermittedRequest(t *testing.T) {
	eng, _, handler := newGuardedServer(t)

	res, err := eng.Authenticate(context.Background(), "alice", "open sesame")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello alice", rec.Body.String())
}

func TestGuardForbidsMissingPermission(t *testing.T) {
	eng, _, handler := newGuardedServer(t)

	res, err := eng.Authenticate(context.Background(), "alice", "open sesame")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardRejectsAfterLogout(t *testing.T) {
	eng, _, handler := newGuardedServer(t)

	res, err := eng.Authenticate(context.Background(), "alice", "open sesame")
	require.NoError(t, err)
	require.NoError(t, eng.Logout(context.Background(), res.AccessToken))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
