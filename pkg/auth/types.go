package auth

import (
	"context"
	"time"

	"github.com/platinummonkey/critique/pkg/contextkeys"
)

// Role is the single role tag carried by every user account
type Role string

const (
	RoleUser      Role = "user"      // Default role for self-registered accounts
	RoleModerator Role = "moderator" // May edit or delete any review or comment
	RoleAdmin     Role = "admin"     // Full access, including catalog and user administration
)

// Roles lists the canonical role values in ascending order of privilege
func Roles() []Role {
	return []Role{RoleUser, RoleModerator, RoleAdmin}
}

// Valid reports whether r is one of the canonical role values
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Normalize maps any unrecognized stored value to RoleUser
func (r Role) Normalize() Role {
	if r.Valid() {
		return r
	}
	return RoleUser
}

// User represents a registered account
type User struct {
	ID          int64     `json:"-" db:"id"`
	Username    string    `json:"username" db:"username"`
	Email       string    `json:"email" db:"email"`
	FirstName   string    `json:"first_name" db:"first_name"`
	LastName    string    `json:"last_name" db:"last_name"`
	Bio         string    `json:"bio" db:"bio"`
	Role        Role      `json:"role" db:"role"`
	IsSuperuser bool      `json:"-" db:"is_superuser"`
	DateJoined  time.Time `json:"-" db:"date_joined"`
}

// IsAdmin reports whether the user has administrator capabilities.
// Superusers are administrators regardless of their role tag.
func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	return u.Role.Normalize() == RoleAdmin || u.IsSuperuser
}

// IsModerator reports whether the user holds the moderator role
func (u *User) IsModerator() bool {
	if u == nil {
		return false
	}
	return u.Role.Normalize() == RoleModerator
}

// IsUser reports whether the user holds the plain user role
func (u *User) IsUser() bool {
	if u == nil {
		return false
	}
	return u.Role.Normalize() == RoleUser
}

// AuthContext holds authenticated user information for a request
type AuthContext struct {
	User   *User
	Claims *Claims
}

// Actor returns the authenticated user, or nil for anonymous callers
func (ac *AuthContext) Actor() *User {
	if ac == nil {
		return nil
	}
	return ac.User
}

// FromContext returns the auth context stored by the auth middleware, or nil
// for anonymous requests
func FromContext(ctx context.Context) *AuthContext {
	authCtx, _ := ctx.Value(contextkeys.AuthKey).(*AuthContext)
	return authCtx
}
