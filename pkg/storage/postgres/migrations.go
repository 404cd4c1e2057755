package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/platinummonkey/critique/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// migrationLockID serializes concurrent migrators across instances
const migrationLockID = 7316402

// Constraint names the stores match on when mapping unique violations
const (
	ConstraintUsersUsername   = "users_username_key"
	ConstraintUsersEmail      = "users_email_key"
	ConstraintCategoriesSlug  = "categories_slug_key"
	ConstraintGenresSlug      = "genres_slug_key"
	ConstraintReviewsAuthorID = "reviews_author_title_key"
)

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(150) NOT NULL CONSTRAINT users_username_key UNIQUE,
					email VARCHAR(254) NOT NULL CONSTRAINT users_email_key UNIQUE,
					first_name VARCHAR(150) NOT NULL DEFAULT '',
					last_name VARCHAR(150) NOT NULL DEFAULT '',
					bio TEXT NOT NULL DEFAULT '',
					role VARCHAR(16) NOT NULL DEFAULT 'user',
					is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
					confirmation_code_hash TEXT,
					confirmation_code_expires_at TIMESTAMPTZ,
					date_joined TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "Create categories and genres tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS categories (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(256) NOT NULL,
					slug VARCHAR(50) NOT NULL CONSTRAINT categories_slug_key UNIQUE
				);

				CREATE TABLE IF NOT EXISTS genres (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(256) NOT NULL,
					slug VARCHAR(50) NOT NULL CONSTRAINT genres_slug_key UNIQUE
				);

				CREATE INDEX IF NOT EXISTS idx_categories_name ON categories(name);
				CREATE INDEX IF NOT EXISTS idx_genres_name ON genres(name);
			`,
		},
		{
			Version:     3,
			Description: "Create titles and genre_title tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS titles (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(256) NOT NULL,
					year INTEGER NOT NULL,
					description TEXT,
					category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL
				);

				CREATE TABLE IF NOT EXISTS genre_title (
					id BIGSERIAL PRIMARY KEY,
					genre_id BIGINT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
					title_id BIGINT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
					UNIQUE (genre_id, title_id)
				);

				CREATE INDEX IF NOT EXISTS idx_titles_name ON titles(name);
				CREATE INDEX IF NOT EXISTS idx_titles_category_id ON titles(category_id);
				CREATE INDEX IF NOT EXISTS idx_genre_title_title_id ON genre_title(title_id);
			`,
		},
		{
			Version:     4,
			Description: "Create reviews and comments tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS reviews (
					id BIGSERIAL PRIMARY KEY,
					title_id BIGINT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
					author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					text TEXT NOT NULL,
					score SMALLINT NOT NULL CONSTRAINT reviews_score_range CHECK (score BETWEEN 1 AND 10),
					pub_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT reviews_author_title_key UNIQUE (author_id, title_id)
				);

				CREATE TABLE IF NOT EXISTS comments (
					id BIGSERIAL PRIMARY KEY,
					review_id BIGINT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
					author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					text TEXT NOT NULL,
					pub_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_reviews_title_pub_date ON reviews(title_id, pub_date);
				CREATE INDEX IF NOT EXISTS idx_comments_review_pub_date ON comments(review_id, pub_date);
			`,
		},
	}
}

// RunMigrations executes all pending migrations, one transaction each
func RunMigrations(ctx context.Context, db *sqlx.DB, logger *observability.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	conn, err := db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	var applied []int
	if err := conn.SelectContext(ctx, &applied, "SELECT version FROM schema_migrations ORDER BY version"); err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	appliedVersions := make(map[int]bool, len(applied))
	for _, v := range applied {
		appliedVersions[v] = true
	}

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		logger.Infof("Running migration %d: %s", migration.Version, migration.Description)

		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
