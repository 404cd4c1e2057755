package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/contextkeys"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type mockUserLoader struct {
	users map[int64]*auth.User
	err   error
}

func (m *mockUserLoader) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user", id)
}

func newAuthFixture(t *testing.T, optional bool) (*auth.TokenIssuer, *mockUserLoader, *AuthMiddleware) {
	t.Helper()
	issuer := auth.NewTokenIssuer(testSecret, time.Hour)
	users := &mockUserLoader{users: map[int64]*auth.User{
		7: {ID: 7, Username: "alice", Role: auth.RoleModerator},
	}}
	return issuer, users, NewAuthMiddleware(issuer, users, optional)
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestAuthMiddleware_Handler(t *testing.T) {
	t.Run("valid token sets auth context", func(t *testing.T) {
		issuer, users, mw := newAuthFixture(t, false)
		token, err := issuer.Issue(users.users[7])
		require.NoError(t, err)

		var got *auth.AuthContext
		var userID string
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetAuthContext(r)
			userID = contextkeys.GetUserID(r.Context())
		}))

		r := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := serve(handler, r)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.Actor().Username)
		assert.Equal(t, "alice", got.Claims.Username)
		assert.Equal(t, "7", userID)
	})

	t.Run("missing header when required", func(t *testing.T) {
		_, _, mw := newAuthFixture(t, false)
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		w := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"missing authorization header"}`, w.Body.String())
	})

	t.Run("missing header when optional is anonymous", func(t *testing.T) {
		_, _, mw := newAuthFixture(t, true)
		called := false
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			assert.Nil(t, Actor(r))
		}))

		w := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bad header format", func(t *testing.T) {
		_, _, mw := newAuthFixture(t, true)
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		for _, header := range []string{"Basic abc", "Bearer", "Bearer "} {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", header)
			w := serve(handler, r)
			assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		}
	})

	t.Run("invalid token is rejected even when optional and audited", func(t *testing.T) {
		_, _, mw := newAuthFixture(t, true)
		auditLog := audit.NewMemoryLogger()
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(audit.WithLogger(r.Context(), auditLog))
		r.Header.Set("Authorization", "Bearer not-a-jwt")
		w := serve(handler, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Len(t, auditLog.EventsOfType(audit.EventTypeAuthTokenRejected), 1)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		_, users, mw := newAuthFixture(t, false)
		token, err := auth.NewTokenIssuer("another-secret-another-secret-xx", time.Hour).Issue(users.users[7])
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := serve(mw.Handler(http.NotFoundHandler()), r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		issuer, _, mw := newAuthFixture(t, false)
		token, err := issuer.Issue(&auth.User{ID: 99, Username: "ghost"})
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := serve(mw.Handler(http.NotFoundHandler()), r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "user not found")
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		issuer, users, mw := newAuthFixture(t, false)
		token, err := issuer.Issue(users.users[7])
		require.NoError(t, err)
		users.err = errors.New("connection refused")

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := serve(mw.Handler(http.NotFoundHandler()), r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestGetAuthContext(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Nil(t, GetAuthContext(r))
		assert.Nil(t, Actor(r))
	})

	t.Run("wrong type", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(contextkeys.WithAuth(r.Context(), "not an auth context"))
		assert.Nil(t, GetAuthContext(r))
	})

	t.Run("present", func(t *testing.T) {
		user := &auth.User{ID: 1, Username: "bob"}
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(contextkeys.WithAuth(r.Context(), &auth.AuthContext{User: user}))
		assert.Same(t, user, Actor(r))
	})
}
