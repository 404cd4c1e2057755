package catalog

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/storage/postgres"
)

const (
	resourceCategory = "category"
	resourceGenre    = "genre"
	resourceTitle    = "title"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	cm *postgres.ConnectionManager
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(cm *postgres.ConnectionManager) *PostgresStore {
	return &PostgresStore{cm: cm}
}

// taxonomyList serves both categories and genres, which share a shape
func taxonomyList(ctx context.Context, db *sqlx.DB, table string, params ListParams, dest interface{}) (int64, error) {
	q := postgres.Builder.Select().From(table)
	if params.Search != "" {
		q = q.Where(sq.ILike{"name": postgres.Contains(params.Search)})
	}

	count, err := postgres.Count(ctx, db, q)
	if err != nil {
		return 0, err
	}

	q = postgres.Paginate(q.Columns("id", "name", "slug").OrderBy("name", "id"), params.Page)
	if err := postgres.Select(ctx, db, dest, q); err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", table, err)
	}
	return count, nil
}

// ListCategories returns one page of categories ordered by name
func (s *PostgresStore) ListCategories(ctx context.Context, params ListParams) ([]Category, int64, error) {
	var categories []Category
	count, err := taxonomyList(ctx, s.cm.Replica(), "categories", params, &categories)
	return categories, count, err
}

// GetCategory retrieves a category by slug
func (s *PostgresStore) GetCategory(ctx context.Context, slug string) (*Category, error) {
	category := &Category{}
	err := s.cm.Replica().GetContext(ctx, category, "SELECT id, name, slug FROM categories WHERE slug = $1", slug)
	if err != nil {
		return nil, postgres.MapError(err, resourceCategory, slug)
	}
	return category, nil
}

// CreateCategory inserts a category
func (s *PostgresStore) CreateCategory(ctx context.Context, category *Category) error {
	err := s.cm.Primary().QueryRowxContext(ctx,
		"INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id",
		category.Name, category.Slug).Scan(&category.ID)
	if postgres.IsUniqueViolation(err, postgres.ConstraintCategoriesSlug) {
		return apperrors.Conflict(fmt.Sprintf("category with slug %s already exists", category.Slug))
	}
	return postgres.MapError(err, resourceCategory, category.Slug)
}

// DeleteCategory removes a category. Its titles keep existing with no category.
func (s *PostgresStore) DeleteCategory(ctx context.Context, slug string) error {
	return s.deleteOne(ctx, "DELETE FROM categories WHERE slug = $1", resourceCategory, slug)
}

// ListGenres returns one page of genres ordered by name
func (s *PostgresStore) ListGenres(ctx context.Context, params ListParams) ([]Genre, int64, error) {
	var genres []Genre
	count, err := taxonomyList(ctx, s.cm.Replica(), "genres", params, &genres)
	return genres, count, err
}

// GenresBySlug returns the genres matching slugs. Unknown slugs are simply absent.
func (s *PostgresStore) GenresBySlug(ctx context.Context, slugs []string) ([]Genre, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	var genres []Genre
	q := postgres.Builder.Select("id", "name", "slug").From("genres").Where(sq.Eq{"slug": slugs}).OrderBy("name", "id")
	if err := postgres.Select(ctx, s.cm.Replica(), &genres, q); err != nil {
		return nil, fmt.Errorf("failed to look up genres: %w", err)
	}
	return genres, nil
}

// CreateGenre inserts a genre
func (s *PostgresStore) CreateGenre(ctx context.Context, genre *Genre) error {
	err := s.cm.Primary().QueryRowxContext(ctx,
		"INSERT INTO genres (name, slug) VALUES ($1, $2) RETURNING id",
		genre.Name, genre.Slug).Scan(&genre.ID)
	if postgres.IsUniqueViolation(err, postgres.ConstraintGenresSlug) {
		return apperrors.Conflict(fmt.Sprintf("genre with slug %s already exists", genre.Slug))
	}
	return postgres.MapError(err, resourceGenre, genre.Slug)
}

// DeleteGenre removes a genre and its title links
func (s *PostgresStore) DeleteGenre(ctx context.Context, slug string) error {
	return s.deleteOne(ctx, "DELETE FROM genres WHERE slug = $1", resourceGenre, slug)
}

// titleRow is one row of the title read query
type titleRow struct {
	ID           int64           `db:"id"`
	Name         string          `db:"name"`
	Year         int             `db:"year"`
	Description  sql.NullString  `db:"description"`
	Rating       sql.NullFloat64 `db:"rating"`
	CategoryID   sql.NullInt64   `db:"category_id"`
	CategoryName sql.NullString  `db:"category_name"`
	CategorySlug sql.NullString  `db:"category_slug"`
}

func (r titleRow) view() TitleView {
	v := TitleView{ID: r.ID, Name: r.Name, Year: r.Year, Genre: []Genre{}}
	if r.Description.Valid {
		desc := r.Description.String
		v.Description = &desc
	}
	if r.Rating.Valid {
		rating := r.Rating.Float64
		v.Rating = &rating
	}
	if r.CategoryID.Valid {
		v.Category = &Category{ID: r.CategoryID.Int64, Name: r.CategoryName.String, Slug: r.CategorySlug.String}
	}
	return v
}

var titleColumns = []string{
	"t.id", "t.name", "t.year", "t.description",
	"AVG(r.score)::float8 AS rating",
	"c.id AS category_id", "c.name AS category_name", "c.slug AS category_slug",
}

func titleQuery() sq.SelectBuilder {
	return postgres.Builder.Select().From("titles t").LeftJoin("categories c ON c.id = t.category_id")
}

// withRating adds the rating aggregate. The reviews join is left out of counts.
func withRating(q sq.SelectBuilder) sq.SelectBuilder {
	return q.Columns(titleColumns...).
		LeftJoin("reviews r ON r.title_id = t.id").
		GroupBy("t.id", "c.id")
}

// ListTitles returns one page of titles ordered by name, with rating and taxonomy
func (s *PostgresStore) ListTitles(ctx context.Context, filter TitleFilter) ([]TitleView, int64, error) {
	db := s.cm.Replica()

	q := titleQuery()
	if filter.Category != "" {
		q = q.Where(sq.Eq{"c.slug": filter.Category})
	}
	if filter.Genre != "" {
		q = q.Where("EXISTS (SELECT 1 FROM genre_title gt JOIN genres g ON g.id = gt.genre_id WHERE gt.title_id = t.id AND g.slug = ?)", filter.Genre)
	}
	if filter.Name != "" {
		q = q.Where(sq.ILike{"t.name": postgres.Contains(filter.Name)})
	}
	if filter.Year != nil {
		q = q.Where(sq.Eq{"t.year": *filter.Year})
	}

	count, err := postgres.Count(ctx, db, q)
	if err != nil {
		return nil, 0, err
	}

	var rows []titleRow
	q = postgres.Paginate(withRating(q).OrderBy("t.name", "t.id"), filter.Page)
	if err := postgres.Select(ctx, db, &rows, q); err != nil {
		return nil, 0, fmt.Errorf("failed to list titles: %w", err)
	}

	views := make([]TitleView, len(rows))
	ids := make([]int64, len(rows))
	for i, r := range rows {
		views[i] = r.view()
		ids[i] = r.ID
	}
	if err := s.attachGenres(ctx, db, views, ids); err != nil {
		return nil, 0, err
	}
	return views, count, nil
}

// GetTitle retrieves one title with rating and taxonomy
func (s *PostgresStore) GetTitle(ctx context.Context, id int64) (*TitleView, error) {
	db := s.cm.Replica()

	query, args, err := withRating(titleQuery().Where(sq.Eq{"t.id": id})).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build title query: %w", err)
	}

	var row titleRow
	if err := db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, postgres.MapError(err, resourceTitle, id)
	}

	views := []TitleView{row.view()}
	if err := s.attachGenres(ctx, db, views, []int64{id}); err != nil {
		return nil, err
	}
	return &views[0], nil
}

// attachGenres loads the genres of every title in one query
func (s *PostgresStore) attachGenres(ctx context.Context, db *sqlx.DB, views []TitleView, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	var links []struct {
		TitleID int64 `db:"title_id"`
		Genre
	}
	q := postgres.Builder.Select("gt.title_id", "g.id", "g.name", "g.slug").
		From("genre_title gt").
		Join("genres g ON g.id = gt.genre_id").
		Where(sq.Eq{"gt.title_id": ids}).
		OrderBy("g.name", "g.id")
	if err := postgres.Select(ctx, db, &links, q); err != nil {
		return fmt.Errorf("failed to load title genres: %w", err)
	}

	index := make(map[int64]int, len(views))
	for i := range views {
		index[views[i].ID] = i
	}
	for _, l := range links {
		if i, ok := index[l.TitleID]; ok {
			views[i].Genre = append(views[i].Genre, l.Genre)
		}
	}
	return nil
}

// CreateTitle inserts a title and its genre links in one transaction
func (s *PostgresStore) CreateTitle(ctx context.Context, title *Title, genreIDs []int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx,
			"INSERT INTO titles (name, year, description, category_id) VALUES ($1, $2, $3, $4) RETURNING id",
			title.Name, title.Year, title.Description, title.CategoryID).Scan(&title.ID)
		if err != nil {
			return postgres.MapError(err, resourceTitle, title.Name)
		}
		return linkGenres(ctx, tx, title.ID, genreIDs)
	})
}

// UpdateTitle rewrites a title row and replaces its genre links in one transaction
func (s *PostgresStore) UpdateTitle(ctx context.Context, title *Title, genreIDs []int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE titles SET name = $1, year = $2, description = $3, category_id = $4 WHERE id = $5",
			title.Name, title.Year, title.Description, title.CategoryID, title.ID)
		if err != nil {
			return postgres.MapError(err, resourceTitle, title.ID)
		}
		if err := requireRow(result, resourceTitle, title.ID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM genre_title WHERE title_id = $1", title.ID); err != nil {
			return fmt.Errorf("failed to unlink genres: %w", err)
		}
		return linkGenres(ctx, tx, title.ID, genreIDs)
	})
}

// DeleteTitle removes a title. Reviews, comments and genre links cascade.
func (s *PostgresStore) DeleteTitle(ctx context.Context, id int64) error {
	return s.deleteOne(ctx, "DELETE FROM titles WHERE id = $1", resourceTitle, id)
}

func linkGenres(ctx context.Context, tx *sqlx.Tx, titleID int64, genreIDs []int64) error {
	if len(genreIDs) == 0 {
		return nil
	}

	q := postgres.Builder.Insert("genre_title").Columns("genre_id", "title_id")
	for _, id := range genreIDs {
		q = q.Values(id, titleID)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build genre links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return postgres.MapError(err, resourceGenre, genreIDs)
	}
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.cm.Primary().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) deleteOne(ctx context.Context, query, resource string, key interface{}) error {
	result, err := s.cm.Primary().ExecContext(ctx, query, key)
	if err != nil {
		return postgres.MapError(err, resource, key)
	}
	return requireRow(result, resource, key)
}

func requireRow(result sql.Result, resource string, key interface{}) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(resource, key)
	}
	return nil
}
