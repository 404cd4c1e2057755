package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/platinummonkey/critique/pkg/storage"
)

// Builder is the statement builder used by every store
var Builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains returns an ILIKE pattern matching s anywhere, with wildcards in s escaped
func Contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Paginate applies a page window to a select
func Paginate(q sq.SelectBuilder, page storage.Page) sq.SelectBuilder {
	return q.Limit(uint64(page.Limit)).Offset(uint64(page.Offset))
}

// Count runs SELECT COUNT(*) over the FROM and WHERE clauses of q.
// q must not carry columns, ordering or a page window.
func Count(ctx context.Context, db sqlx.QueryerContext, q sq.SelectBuilder) (int64, error) {
	query, args, err := q.Columns("COUNT(*)").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int64
	if err := sqlx.GetContext(ctx, db, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// Select runs q and scans all rows into dest
func Select(ctx context.Context, db sqlx.QueryerContext, dest interface{}, q sq.SelectBuilder) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return sqlx.SelectContext(ctx, db, dest, query, args...)
}
