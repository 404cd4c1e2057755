package rbac

import (
	"net/http"

	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/httputil"
	"github.com/platinummonkey/critique/pkg/middleware"
)

// PermissionMiddleware enforces collection-level policy on routes
type PermissionMiddleware struct{}

// NewPermissionMiddleware creates a new permission middleware
func NewPermissionMiddleware() *PermissionMiddleware {
	return &PermissionMiddleware{}
}

// RequireCollection creates middleware that checks AllowedCollection for the resource.
// Denials are written to the audit trail found in the request context.
func (pm *PermissionMiddleware) RequireCollection(res Resource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := middleware.GetAuthContext(r).Actor()

			if err := AuthorizeCollection(actor, r.Method, res); err != nil {
				var userID *int64
				if actor != nil {
					userID = &actor.ID
				}
				_ = audit.FromContext(r.Context()).LogAuthorization(r.Context(), audit.EventTypeAuthzAccessDenied,
					userID, audit.ResourceType(res), r.URL.Path, audit.EventStatusDenied, r.Method+" denied")

				httputil.WriteServiceError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
