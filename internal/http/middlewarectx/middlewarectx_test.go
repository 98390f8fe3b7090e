package middlewarectx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscribepro/internal/lib/jwt"
	"github.com/magabrotheeeer/subscribepro/internal/lib/password"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/session"
	"github.com/magabrotheeeer/subscribepro/internal/storage/kv"
	"github.com/magabrotheeeer/subscribepro/internal/storage/state"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

type fixture struct {
	auth   *session.Auth
	tokens *jwt.MakerImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kv.NewMemory()
	users := state.NewUsers(store)
	hash, err := password.GetHash("password")
	require.NoError(t, err)
	_, err = users.SeedIfEmpty(context.Background(), []models.User{
		{ID: "user_1", Name: "John", Email: "john@example.com", PasswordHash: hash, Role: models.RoleIndividual, Verified: true},
		{ID: "user_2", Name: "Jane", Email: "jane@acme.corp", PasswordHash: hash, Role: models.RoleCorporate, Verified: true},
		{ID: "user_3", Name: "Admin", Email: "admin@system.com", PasswordHash: hash, Role: models.RoleAdmin, Verified: true},
	})
	require.NoError(t, err)

	pool, err := session.NewPool(session.Deps{
		Users:    users,
		Sessions: state.NewSessions(store),
		Lockouts: state.NewMemoryLockouts(),
	}, 16)
	require.NoError(t, err)
	tokens := jwt.NewJWTMaker("test_secret", time.Hour)
	return &fixture{auth: session.NewAuth(pool, tokens, newNoopLogger()), tokens: tokens}
}

func (f *fixture) login(t *testing.T, email string) session.LoginResult {
	t.Helper()
	res, err := f.auth.Login(context.Background(), email, "password")
	require.NoError(t, err)
	return res
}

func TestJWTMiddleware(t *testing.T) {
	f := newFixture(t)
	res := f.login(t, "john@example.com")

	foreign, err := f.tokens.GenerateToken(res.SessionID, "user_2", "corporate")
	require.NoError(t, err)
	unknown, err := f.tokens.GenerateToken("no-such-session", "user_1", "individual")
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantCode   int
	}{
		{name: "missing header", authHeader: "", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", authHeader: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer not-a-jwt", wantCode: http.StatusUnauthorized},
		{name: "user mismatch", authHeader: "Bearer " + foreign, wantCode: http.StatusUnauthorized},
		{name: "unknown session", authHeader: "Bearer " + unknown, wantCode: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + res.Token, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser *models.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = CurrentUser(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			JWTMiddleware(f.auth, f.tokens, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				require.NotNil(t, gotUser)
				assert.Equal(t, "user_1", gotUser.ID)
			}
		})
	}
}

func TestJWTMiddleware_AfterLogout(t *testing.T) {
	f := newFixture(t)
	res := f.login(t, "john@example.com")
	f.auth.Logout(context.Background(), res.SessionID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	rec := httptest.NewRecorder()
	JWTMiddleware(f.auth, f.tokens, newNoopLogger())(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth(t *testing.T) {
	f := newFixture(t)
	res := f.login(t, "jane@acme.corp")

	for name, header := range map[string]string{"guest": "", "bad token": "Bearer junk", "valid": "Bearer " + res.Token} {
		t.Run(name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				user := CurrentUser(r.Context())
				if name == "valid" {
					require.NotNil(t, user)
					assert.Equal(t, models.RoleCorporate, user.Role)
				} else {
					assert.Nil(t, user)
				}
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			OptionalAuth(f.auth, f.tokens, newNoopLogger())(next).ServeHTTP(httptest.NewRecorder(), req)
			assert.True(t, called)
		})
	}
}

func TestRoleMiddlewares(t *testing.T) {
	f := newFixture(t)
	tokens := map[string]string{
		"individual": f.login(t, "john@example.com").Token,
		"corporate":  f.login(t, "jane@acme.corp").Token,
		"admin":      f.login(t, "admin@system.com").Token,
	}

	tests := []struct {
		name     string
		role     string
		guard    func(*slog.Logger) func(http.Handler) http.Handler
		wantCode int
	}{
		{name: "admin area as admin", role: "admin", guard: RequireAdmin, wantCode: http.StatusOK},
		{name: "admin area as corporate", role: "corporate", guard: RequireAdmin, wantCode: http.StatusForbidden},
		{name: "admin area as individual", role: "individual", guard: RequireAdmin, wantCode: http.StatusForbidden},
		{name: "business area as corporate", role: "corporate", guard: RequireAdminOrCorporate, wantCode: http.StatusOK},
		{name: "business area as admin", role: "admin", guard: RequireAdminOrCorporate, wantCode: http.StatusOK},
		{name: "business area as individual", role: "individual", guard: RequireAdminOrCorporate, wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
			h := JWTMiddleware(f.auth, f.tokens, newNoopLogger())(tt.guard(newNoopLogger())(ok))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tokens[tt.role])
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	t.Run("without session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAdmin(newNoopLogger())(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter, err := NewRateLimiter(0.001, 2)
	require.NoError(t, err)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RateLimitMiddleware(limiter, newNoopLogger())(ok)

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"))
}
