package users

import (
	"context"
	"fmt"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/storage"
	"github.com/platinummonkey/critique/pkg/validation"
)

// Service implements account administration and the self-profile operations
type Service struct {
	store Store
}

// NewService creates a new Service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns one page of users, optionally filtered by username
func (s *Service) List(ctx context.Context, search string, page storage.Page) (*storage.List[*auth.User], error) {
	users, count, err := s.store.List(ctx, search, page)
	if err != nil {
		return nil, err
	}
	return storage.NewList(count, users), nil
}

// Create registers an account on behalf of an administrator
func (s *Service) Create(ctx context.Context, in UserInput) (*auth.User, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	user := &auth.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		Role:      in.Role,
	}
	if user.Role == "" {
		user.Role = auth.RoleUser
	}

	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	_ = audit.FromContext(ctx).LogAdminAction(ctx, audit.EventTypeAdminUserCreate, actorID(ctx), &user.ID,
		&audit.ChangeDetails{After: map[string]interface{}{"username": user.Username, "role": user.Role}},
		"user created")
	return user, nil
}

// Get retrieves a user by username
func (s *Service) Get(ctx context.Context, username string) (*auth.User, error) {
	return s.store.GetByUsername(ctx, username)
}

// GetByID retrieves a user by id. The auth middleware uses it to resolve token subjects.
func (s *Service) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	return s.store.GetByID(ctx, id)
}

// Update applies an administrator's patch, which may change the role
func (s *Service) Update(ctx context.Context, username string, patch UserPatch) (*auth.User, error) {
	if err := validation.Struct(&patch); err != nil {
		return nil, err
	}

	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	before := *user

	patch.Apply(user)
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	logger := audit.FromContext(ctx)
	_ = logger.LogAdminAction(ctx, audit.EventTypeAdminUserUpdate, actorID(ctx), &user.ID,
		diff(&before, user), "user updated")
	if before.Role != user.Role {
		_ = logger.LogDataMutation(ctx, audit.EventTypeAuthzRoleChange, actorID(ctx), audit.ResourceTypeUser, user.Username,
			&audit.ChangeDetails{
				Before: map[string]interface{}{"role": before.Role},
				After:  map[string]interface{}{"role": user.Role},
			}, "role changed")
	}
	return user, nil
}

// Delete removes a user by username
func (s *Service) Delete(ctx context.Context, username string) error {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, username); err != nil {
		return err
	}

	_ = audit.FromContext(ctx).LogAdminAction(ctx, audit.EventTypeAdminUserDelete, actorID(ctx), &user.ID, nil, "user deleted")
	return nil
}

// GetProfile returns the caller's own account
func (s *Service) GetProfile(ctx context.Context, actor *auth.User) (*auth.User, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	return s.store.GetByID(ctx, actor.ID)
}

// UpdateProfile applies the caller's patch to their own account.
// The stored role is restored after the patch, so a submitted role never takes effect.
func (s *Service) UpdateProfile(ctx context.Context, actor *auth.User, patch UserPatch) (*auth.User, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	if err := validation.Struct(&patch); err != nil {
		return nil, err
	}

	user, err := s.store.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	role := user.Role

	patch.Apply(user)
	user.Role = role

	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureSuperuser creates an administrator account, or promotes the existing
// account with the same username. It reports whether an account was created.
func (s *Service) EnsureSuperuser(ctx context.Context, username, email string) (*auth.User, bool, error) {
	in := UserInput{Username: username, Email: email, Role: auth.RoleAdmin}
	if err := validation.Struct(&in); err != nil {
		return nil, false, err
	}

	user, err := s.store.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if user.Email != email {
			return nil, false, apperrors.Conflict(fmt.Sprintf("user %s exists with a different email", username))
		}
		user.Role = auth.RoleAdmin
		user.IsSuperuser = true
		if err := s.store.Update(ctx, user); err != nil {
			return nil, false, err
		}
		return user, false, nil
	case !apperrors.IsNotFound(err):
		return nil, false, err
	}

	user = &auth.User{Username: username, Email: email, Role: auth.RoleAdmin, IsSuperuser: true}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, false, err
	}

	_ = audit.FromContext(ctx).LogAdminAction(ctx, audit.EventTypeAdminSuperuserCreate, nil, &user.ID, nil, "superuser created")
	return user, true, nil
}

func actorID(ctx context.Context) *int64 {
	actor := auth.FromContext(ctx).Actor()
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}

func diff(before, after *auth.User) *audit.ChangeDetails {
	changes := &audit.ChangeDetails{
		Before: map[string]interface{}{},
		After:  map[string]interface{}{},
	}
	record := func(field string, from, to interface{}) {
		if from != to {
			changes.Before[field] = from
			changes.After[field] = to
		}
	}
	record("username", before.Username, after.Username)
	record("email", before.Email, after.Email)
	record("first_name", before.FirstName, after.FirstName)
	record("last_name", before.LastName, after.LastName)
	record("bio", before.Bio, after.Bio)
	record("role", before.Role, after.Role)
	return changes
}
