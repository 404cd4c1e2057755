package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/contextkeys"
	"github.com/platinummonkey/critique/pkg/storage"
)

// fakeStore is an in-memory Store enforcing the same uniqueness rules as the schema
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*auth.User
	codes  map[int64]*ConfirmationCode
}

func newFakeStore(t *testing.T, seed ...*auth.User) *fakeStore {
	t.Helper()
	s := &fakeStore{users: map[int64]*auth.User{}, codes: map[int64]*ConfirmationCode{}}
	for _, u := range seed {
		require.NoError(t, s.Create(context.Background(), u))
	}
	return s
}

func (s *fakeStore) List(ctx context.Context, search string, page storage.Page) ([]*auth.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*auth.User
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(search)) {
			c := *u
			matched = append(matched, &c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })

	total := int64(len(matched))
	if page.Offset >= len(matched) {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[page.Offset:end], total, nil
}

func (s *fakeStore) find(match func(*auth.User) bool, key interface{}) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("user", key)
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	return s.find(func(u *auth.User) bool { return u.ID == id }, id)
}

func (s *fakeStore) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.find(func(u *auth.User) bool { return u.Username == username }, username)
}

func (s *fakeStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.find(func(u *auth.User) bool { return u.Email == email }, email)
}

func (s *fakeStore) unique(user *auth.User) error {
	for _, u := range s.users {
		if u.ID == user.ID {
			continue
		}
		if u.Username == user.Username {
			return apperrors.Conflict("a user with that username already exists")
		}
		if u.Email == user.Email {
			return apperrors.Conflict("a user with that email already exists")
		}
	}
	return nil
}

func (s *fakeStore) Create(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.unique(user); err != nil {
		return err
	}
	s.nextID++
	user.ID = s.nextID
	user.DateJoined = time.Now()
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *fakeStore) Update(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return apperrors.NotFound("user", user.ID)
	}
	if err := s.unique(user); err != nil {
		return err
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Username == username {
			delete(s.users, id)
			return nil
		}
	}
	return apperrors.NotFound("user", username)
}

func (s *fakeStore) SetConfirmationCode(ctx context.Context, userID int64, hash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[userID] = &ConfirmationCode{Hash: hash, ExpiresAt: &expiresAt}
	return nil
}

func (s *fakeStore) GetConfirmationCode(ctx context.Context, userID int64) (*ConfirmationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.codes[userID]; ok {
		return c, nil
	}
	return &ConfirmationCode{}, nil
}

func (s *fakeStore) ConsumeConfirmationCode(ctx context.Context, userID int64, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.codes[userID]; !ok || c.Hash != hash {
		return false, nil
	}
	delete(s.codes, userID)
	return true, nil
}

func strPtr(s string) *string { return &s }

func rolePtr(r auth.Role) *auth.Role { return &r }

func adminContext(admin *auth.User, logger audit.Logger) context.Context {
	ctx := contextkeys.WithAuth(context.Background(), &auth.AuthContext{User: admin})
	return audit.WithLogger(ctx, logger)
}

func TestService_Create(t *testing.T) {
	store := newFakeStore(t, &auth.User{Username: "root", Email: "root@example.com", Role: auth.RoleAdmin})
	svc := NewService(store)
	auditLog := audit.NewMemoryLogger()
	admin, _ := store.GetByUsername(context.Background(), "root")
	ctx := adminContext(admin, auditLog)

	t.Run("defaults role to user", func(t *testing.T) {
		u, err := svc.Create(ctx, UserInput{Username: "alice", Email: "alice@example.com"})
		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, u.Role)
		assert.NotZero(t, u.ID)
		assert.Len(t, auditLog.EventsOfType(audit.EventTypeAdminUserCreate), 1)
	})

	t.Run("explicit role", func(t *testing.T) {
		u, err := svc.Create(ctx, UserInput{Username: "mod", Email: "mod@example.com", Role: auth.RoleModerator})
		require.NoError(t, err)
		assert.Equal(t, auth.RoleModerator, u.Role)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, UserInput{Username: "bob", Email: "bob@example.com", Role: "owner"})
		require.Error(t, err)
		assert.Contains(t, apperrors.FieldErrors(err), "role")
	})

	t.Run("reserved username rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, UserInput{Username: "Me", Email: "me@example.com"})
		require.Error(t, err)
		assert.Contains(t, apperrors.FieldErrors(err), "username")
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, UserInput{Username: "alice", Email: "other@example.com"})
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestService_List(t *testing.T) {
	store := newFakeStore(t,
		&auth.User{Username: "carol", Email: "c@example.com"},
		&auth.User{Username: "alice", Email: "a@example.com"},
		&auth.User{Username: "bob", Email: "b@example.com"},
	)
	svc := NewService(store)

	list, err := svc.List(context.Background(), "", storage.NewPage(2, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Count)
	require.Len(t, list.Results, 2)
	assert.Equal(t, "alice", list.Results[0].Username)
	assert.Equal(t, "bob", list.Results[1].Username)

	list, err = svc.List(context.Background(), "CAR", storage.NewPage(0, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Count)

	list, err = svc.List(context.Background(), "nobody", storage.NewPage(0, 0))
	require.NoError(t, err)
	assert.NotNil(t, list.Results)
	assert.Empty(t, list.Results)
}

func TestService_UpdateChangesRole(t *testing.T) {
	store := newFakeStore(t,
		&auth.User{Username: "root", Email: "root@example.com", Role: auth.RoleAdmin},
		&auth.User{Username: "alice", Email: "alice@example.com", Role: auth.RoleUser},
	)
	svc := NewService(store)
	auditLog := audit.NewMemoryLogger()
	admin, _ := store.GetByUsername(context.Background(), "root")

	u, err := svc.Update(adminContext(admin, auditLog), "alice", UserPatch{Role: rolePtr(auth.RoleModerator), Bio: strPtr("film buff")})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleModerator, u.Role)
	assert.Equal(t, "film buff", u.Bio)

	changes := auditLog.EventsOfType(audit.EventTypeAuthzRoleChange)
	require.Len(t, changes, 1)
	assert.Equal(t, auth.RoleUser, changes[0].Changes.Before["role"])
	assert.Equal(t, auth.RoleModerator, changes[0].Changes.After["role"])
	require.NotNil(t, changes[0].UserID)
	assert.Equal(t, admin.ID, *changes[0].UserID)

	_, err = svc.Update(context.Background(), "ghost", UserPatch{Bio: strPtr("x")})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_UpdateValidation(t *testing.T) {
	store := newFakeStore(t, &auth.User{Username: "alice", Email: "alice@example.com"})
	svc := NewService(store)

	tests := []struct {
		name  string
		patch UserPatch
		field string
	}{
		{"empty username", UserPatch{Username: strPtr("")}, "username"},
		{"reserved username", UserPatch{Username: strPtr("ME")}, "username"},
		{"bad email", UserPatch{Email: strPtr("not-an-email")}, "email"},
		{"bad role", UserPatch{Role: rolePtr("root")}, "role"},
		{"long first name", UserPatch{FirstName: strPtr(strings.Repeat("x", 151))}, "first_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), "alice", tt.patch)
			require.Error(t, err)
			assert.Contains(t, apperrors.FieldErrors(err), tt.field)
		})
	}
}

func TestService_UpdateProfileKeepsRole(t *testing.T) {
	store := newFakeStore(t, &auth.User{Username: "alice", Email: "alice@example.com", Role: auth.RoleUser})
	svc := NewService(store)
	actor, _ := store.GetByUsername(context.Background(), "alice")

	u, err := svc.UpdateProfile(context.Background(), actor, UserPatch{
		Role:      rolePtr(auth.RoleAdmin),
		FirstName: strPtr("Alice"),
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, u.Role)
	assert.Equal(t, "Alice", u.FirstName)

	stored, err := store.GetByID(context.Background(), actor.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, stored.Role)
	assert.False(t, stored.IsAdmin())
}

func TestService_UpdateProfileUniqueness(t *testing.T) {
	store := newFakeStore(t,
		&auth.User{Username: "alice", Email: "alice@example.com"},
		&auth.User{Username: "bob", Email: "bob@example.com"},
	)
	svc := NewService(store)
	actor, _ := store.GetByUsername(context.Background(), "alice")

	_, err := svc.UpdateProfile(context.Background(), actor, UserPatch{Email: strPtr("bob@example.com")})
	assert.True(t, apperrors.IsConflict(err))

	_, err = svc.UpdateProfile(context.Background(), nil, UserPatch{})
	assert.True(t, apperrors.IsUnauthenticated(err))
}

func TestService_GetProfile(t *testing.T) {
	store := newFakeStore(t, &auth.User{Username: "alice", Email: "alice@example.com"})
	svc := NewService(store)
	actor, _ := store.GetByUsername(context.Background(), "alice")

	u, err := svc.GetProfile(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = svc.GetProfile(context.Background(), nil)
	assert.True(t, apperrors.IsUnauthenticated(err))
}

func TestService_Delete(t *testing.T) {
	store := newFakeStore(t, &auth.User{Username: "alice", Email: "alice@example.com"})
	svc := NewService(store)
	auditLog := audit.NewMemoryLogger()
	ctx := audit.WithLogger(context.Background(), auditLog)

	require.NoError(t, svc.Delete(ctx, "alice"))
	assert.Len(t, auditLog.EventsOfType(audit.EventTypeAdminUserDelete), 1)

	_, err := svc.Get(ctx, "alice")
	assert.True(t, apperrors.IsNotFound(err))

	assert.True(t, apperrors.IsNotFound(svc.Delete(ctx, "alice")))
}

func TestService_EnsureSuperuser(t *testing.T) {
	store := newFakeStore(t, &auth.User{Username: "alice", Email: "alice@example.com", Role: auth.RoleUser})
	svc := NewService(store)
	ctx := context.Background()

	u, created, err := svc.EnsureSuperuser(ctx, "root", "root@example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, u.IsSuperuser)
	assert.True(t, u.IsAdmin())

	u, created, err = svc.EnsureSuperuser(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, auth.RoleAdmin, u.Role)
	assert.True(t, u.IsSuperuser)

	_, _, err = svc.EnsureSuperuser(ctx, "alice", "elsewhere@example.com")
	assert.True(t, apperrors.IsConflict(err))

	_, _, err = svc.EnsureSuperuser(ctx, "me", "me@example.com")
	assert.True(t, apperrors.IsValidation(err))
}
