package users

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/storage"
	"github.com/platinummonkey/critique/pkg/storage/postgres"
)

const userColumns = "id, username, email, first_name, last_name, bio, role, is_superuser, date_joined"

const resourceUser = "user"

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	cm *postgres.ConnectionManager
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(cm *postgres.ConnectionManager) *PostgresStore {
	return &PostgresStore{cm: cm}
}

// List returns one page of users ordered by username, optionally filtered by a username substring
func (s *PostgresStore) List(ctx context.Context, search string, page storage.Page) ([]*auth.User, int64, error) {
	db := s.cm.Replica()

	q := postgres.Builder.Select().From("users")
	if search != "" {
		q = q.Where(sq.ILike{"username": postgres.Contains(search)})
	}

	count, err := postgres.Count(ctx, db, q)
	if err != nil {
		return nil, 0, err
	}

	var users []*auth.User
	q = postgres.Paginate(q.Columns(userColumns).OrderBy("username"), page)
	if err := postgres.Select(ctx, db, &users, q); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, count, nil
}

// GetByID retrieves a user by id
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	return s.getBy(ctx, "id", id)
}

// GetByUsername retrieves a user by exact username
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.getBy(ctx, "username", username)
}

// GetByEmail retrieves a user by exact email
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getBy(ctx, "email", email)
}

func (s *PostgresStore) getBy(ctx context.Context, column string, value interface{}) (*auth.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s = $1", userColumns, column)

	user := &auth.User{}
	if err := s.cm.Replica().GetContext(ctx, user, query, value); err != nil {
		return nil, postgres.MapError(err, resourceUser, value)
	}
	return user, nil
}

// Create inserts a user and fills in its id and join date
func (s *PostgresStore) Create(ctx context.Context, user *auth.User) error {
	query := `
		INSERT INTO users (username, email, first_name, last_name, bio, role, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, date_joined
	`
	err := s.cm.Primary().QueryRowxContext(ctx, query,
		user.Username, user.Email, user.FirstName, user.LastName, user.Bio, user.Role, user.IsSuperuser).
		Scan(&user.ID, &user.DateJoined)
	if err != nil {
		return mapUserError(err, user.Username)
	}
	return nil
}

// Update writes every mutable field of user, keyed by id
func (s *PostgresStore) Update(ctx context.Context, user *auth.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, first_name = $3, last_name = $4, bio = $5, role = $6, is_superuser = $7
		WHERE id = $8
	`
	result, err := s.cm.Primary().ExecContext(ctx, query,
		user.Username, user.Email, user.FirstName, user.LastName, user.Bio, user.Role, user.IsSuperuser, user.ID)
	if err != nil {
		return mapUserError(err, user.Username)
	}
	return requireRow(result, user.Username)
}

// Delete removes a user by username. Reviews and comments cascade.
func (s *PostgresStore) Delete(ctx context.Context, username string) error {
	result, err := s.cm.Primary().ExecContext(ctx, "DELETE FROM users WHERE username = $1", username)
	if err != nil {
		return postgres.MapError(err, resourceUser, username)
	}
	return requireRow(result, username)
}

// SetConfirmationCode stores the hash of a freshly issued code, replacing any previous one
func (s *PostgresStore) SetConfirmationCode(ctx context.Context, userID int64, hash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET confirmation_code_hash = $1, confirmation_code_expires_at = $2
		WHERE id = $3
	`
	result, err := s.cm.Primary().ExecContext(ctx, query, hash, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("failed to store confirmation code: %w", err)
	}
	return requireRow(result, userID)
}

// GetConfirmationCode reads the stored code hash. Hash is empty when no code is outstanding.
func (s *PostgresStore) GetConfirmationCode(ctx context.Context, userID int64) (*ConfirmationCode, error) {
	var (
		hash      sql.NullString
		expiresAt sql.NullTime
	)
	query := "SELECT confirmation_code_hash, confirmation_code_expires_at FROM users WHERE id = $1"
	if err := s.cm.Primary().QueryRowxContext(ctx, query, userID).Scan(&hash, &expiresAt); err != nil {
		return nil, postgres.MapError(err, resourceUser, userID)
	}

	code := &ConfirmationCode{Hash: hash.String}
	if expiresAt.Valid {
		code.ExpiresAt = &expiresAt.Time
	}
	return code, nil
}

// ConsumeConfirmationCode clears the stored code if it still has the given hash.
// It reports false when another exchange already consumed or replaced it.
func (s *PostgresStore) ConsumeConfirmationCode(ctx context.Context, userID int64, hash string) (bool, error) {
	query := `
		UPDATE users
		SET confirmation_code_hash = NULL, confirmation_code_expires_at = NULL
		WHERE id = $1 AND confirmation_code_hash = $2
	`
	result, err := s.cm.Primary().ExecContext(ctx, query, userID, hash)
	if err != nil {
		return false, fmt.Errorf("failed to clear confirmation code: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func mapUserError(err error, username string) error {
	switch {
	case postgres.IsUniqueViolation(err, postgres.ConstraintUsersUsername):
		return apperrors.Conflict("a user with that username already exists")
	case postgres.IsUniqueViolation(err, postgres.ConstraintUsersEmail):
		return apperrors.Conflict("a user with that email already exists")
	}
	return postgres.MapError(err, resourceUser, username)
}

func requireRow(result sql.Result, key interface{}) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(resourceUser, key)
	}
	return nil
}
