package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/contextkeys"
	"github.com/platinummonkey/critique/pkg/httputil"
)

// TokenVerifier validates a bearer token
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserLoader resolves the token subject to a stored user
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*auth.User, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	tokens   TokenVerifier
	users    UserLoader
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokens TokenVerifier, users UserLoader, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		users:    users,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication.
// A present but invalid token is rejected even when auth is optional.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.tokens.Verify(parts[1])
		if err != nil {
			m.reject(r, nil, "invalid or expired token")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			m.reject(r, nil, "token subject is not a user id")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				m.reject(r, &userID, "token user no longer exists")
				httputil.WriteUnauthorized(w, "user not found")
				return
			}
			httputil.WriteServiceError(w, r, err)
			return
		}

		ctx := contextkeys.WithAuth(r.Context(), &auth.AuthContext{User: user, Claims: claims})
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(user.ID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(r *http.Request, userID *int64, message string) {
	_ = audit.FromContext(r.Context()).LogAuthorization(r.Context(), audit.EventTypeAuthTokenRejected,
		userID, audit.ResourceTypeUser, "", audit.EventStatusFailure, message)
}

// GetAuthContext extracts auth context from request. Anonymous requests yield
// nil, and nil.Actor() is nil.
func GetAuthContext(r *http.Request) *auth.AuthContext {
	return auth.FromContext(r.Context())
}

// Actor returns the authenticated user for the request, or nil
func Actor(r *http.Request) *auth.User {
	return GetAuthContext(r).Actor()
}
