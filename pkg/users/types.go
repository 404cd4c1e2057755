package users

import (
	"context"
	"time"

	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/storage"
)

// UserInput is the payload for creating an account through the admin API
type UserInput struct {
	Username  string    `json:"username" validate:"required,max=150,username,notme"`
	Email     string    `json:"email" validate:"required,max=254,email"`
	FirstName string    `json:"first_name" validate:"max=150"`
	LastName  string    `json:"last_name" validate:"max=150"`
	Bio       string    `json:"bio"`
	Role      auth.Role `json:"role" validate:"omitempty,role"`
}

// UserPatch is a partial update. Nil fields are left unchanged.
type UserPatch struct {
	Username  *string    `json:"username" validate:"omitnil,required,max=150,username,notme"`
	Email     *string    `json:"email" validate:"omitnil,required,max=254,email"`
	FirstName *string    `json:"first_name" validate:"omitnil,max=150"`
	LastName  *string    `json:"last_name" validate:"omitnil,max=150"`
	Bio       *string    `json:"bio"`
	Role      *auth.Role `json:"role" validate:"omitnil,role"`
}

// Apply copies the set fields of the patch onto u
func (p UserPatch) Apply(u *auth.User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}

// ConfirmationCode is the stored form of a one-time signup code
type ConfirmationCode struct {
	Hash      string
	ExpiresAt *time.Time
}

// Store persists user accounts
type Store interface {
	List(ctx context.Context, search string, page storage.Page) ([]*auth.User, int64, error)
	GetByID(ctx context.Context, id int64) (*auth.User, error)
	GetByUsername(ctx context.Context, username string) (*auth.User, error)
	GetByEmail(ctx context.Context, email string) (*auth.User, error)
	Create(ctx context.Context, user *auth.User) error
	Update(ctx context.Context, user *auth.User) error
	Delete(ctx context.Context, username string) error

	SetConfirmationCode(ctx context.Context, userID int64, hash string, expiresAt time.Time) error
	GetConfirmationCode(ctx context.Context, userID int64) (*ConfirmationCode, error)
	ConsumeConfirmationCode(ctx context.Context, userID int64, hash string) (bool, error)
}
