package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/platinummonkey/critique/pkg/apperrors"
)

// PostgreSQL error codes the stores translate
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// MapError translates driver errors into the apperrors taxonomy.
// resource and key name the row for not found messages.
func MapError(err error, resource string, key interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, key)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return apperrors.Conflict(fmt.Sprintf("%s already exists (%s)", resource, pqErr.Constraint))
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s references a missing row (%s)", apperrors.ErrNotFound, resource, pqErr.Constraint)
		case codeCheckViolation:
			return fmt.Errorf("%w: %s violates %s", apperrors.ErrValidation, resource, pqErr.Constraint)
		}
	}

	return fmt.Errorf("failed to access %s: %w", resource, err)
}

// IsUniqueViolation reports whether err is a unique violation, optionally on a named constraint
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
