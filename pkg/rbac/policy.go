package rbac

import (
	"fmt"
	"net/http"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/auth"
)

// Resource identifies a collection the policy knows about
type Resource string

const (
	ResourceCategory Resource = "category"
	ResourceGenre    Resource = "genre"
	ResourceTitle    Resource = "title"
	ResourceUser     Resource = "user"
	ResourceProfile  Resource = "profile"
	ResourceReview   Resource = "review"
	ResourceComment  Resource = "comment"
)

// Owned is implemented by objects that have an author
type Owned interface {
	OwnerID() int64
}

// IsSafeMethod reports whether the method only reads
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// AllowedCollection decides access to a collection before any object is loaded.
// A nil actor is an anonymous caller.
func AllowedCollection(actor *auth.User, method string, res Resource) bool {
	authenticated := actor != nil

	switch res {
	case ResourceCategory, ResourceGenre, ResourceTitle:
		return IsSafeMethod(method) || (authenticated && actor.IsAdmin())
	case ResourceUser:
		return authenticated && actor.IsAdmin()
	case ResourceProfile:
		return authenticated
	case ResourceReview, ResourceComment:
		return IsSafeMethod(method) || authenticated
	default:
		return false
	}
}

// AllowedObject decides access to a loaded object
func AllowedObject(actor *auth.User, method string, obj Owned) bool {
	if IsSafeMethod(method) {
		return true
	}
	if actor == nil {
		return false
	}
	return obj.OwnerID() == actor.ID || actor.IsModerator() || actor.IsAdmin()
}

// AuthorizeCollection wraps AllowedCollection with the error a caller should see
func AuthorizeCollection(actor *auth.User, method string, res Resource) error {
	if AllowedCollection(actor, method, res) {
		return nil
	}
	return denial(actor, method, string(res))
}

// AuthorizeObject wraps AllowedObject with the error a caller should see
func AuthorizeObject(actor *auth.User, method string, obj Owned) error {
	if AllowedObject(actor, method, obj) {
		return nil
	}
	return denial(actor, method, "object")
}

func denial(actor *auth.User, method, target string) error {
	if actor == nil {
		return apperrors.ErrUnauthenticated
	}
	return fmt.Errorf("%w: %s on %s", apperrors.ErrForbidden, method, target)
}

// IsModeration reports whether actor is acting on an object authored by someone else
func IsModeration(actor *auth.User, obj Owned) bool {
	return actor != nil && obj.OwnerID() != actor.ID
}
