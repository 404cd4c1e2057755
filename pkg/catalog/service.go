package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/storage"
	"github.com/platinummonkey/critique/pkg/validation"
)

// Service implements the content catalog: categories, genres and titles
type Service struct {
	store Store
}

// NewService creates a new Service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListCategories returns one page of categories, optionally filtered by name
func (s *Service) ListCategories(ctx context.Context, params ListParams) (*storage.List[Category], error) {
	categories, count, err := s.store.ListCategories(ctx, params)
	if err != nil {
		return nil, err
	}
	return storage.NewList(count, categories), nil
}

// CreateCategory adds a category. A taken slug is a conflict.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	category := &Category{Name: in.Name, Slug: in.Slug}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category by slug
func (s *Service) DeleteCategory(ctx context.Context, slug string) error {
	return s.store.DeleteCategory(ctx, slug)
}

// ListGenres returns one page of genres, optionally filtered by name
func (s *Service) ListGenres(ctx context.Context, params ListParams) (*storage.List[Genre], error) {
	genres, count, err := s.store.ListGenres(ctx, params)
	if err != nil {
		return nil, err
	}
	return storage.NewList(count, genres), nil
}

// CreateGenre adds a genre. A taken slug is a conflict.
func (s *Service) CreateGenre(ctx context.Context, in GenreInput) (*Genre, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	genre := &Genre{Name: in.Name, Slug: in.Slug}
	if err := s.store.CreateGenre(ctx, genre); err != nil {
		return nil, err
	}
	return genre, nil
}

// DeleteGenre removes a genre by slug
func (s *Service) DeleteGenre(ctx context.Context, slug string) error {
	return s.store.DeleteGenre(ctx, slug)
}

// ListTitles returns one page of titles matching the filter
func (s *Service) ListTitles(ctx context.Context, filter TitleFilter) (*storage.List[TitleView], error) {
	titles, count, err := s.store.ListTitles(ctx, filter)
	if err != nil {
		return nil, err
	}
	return storage.NewList(count, titles), nil
}

// GetTitle retrieves one title with its rating
func (s *Service) GetTitle(ctx context.Context, id int64) (*TitleView, error) {
	return s.store.GetTitle(ctx, id)
}

// CreateTitle adds a title, resolving its category and genres by slug
func (s *Service) CreateTitle(ctx context.Context, in TitleInput) (*TitleWrite, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	w := &TitleWrite{
		Name:        in.Name,
		Year:        *in.Year,
		Description: in.Description,
		Genre:       in.Genre,
		Category:    in.Category,
	}
	title, genreIDs, err := s.resolve(ctx, w)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateTitle(ctx, title, genreIDs); err != nil {
		return nil, err
	}
	w.ID = title.ID
	return w, nil
}

// UpdateTitle applies a partial update to a title
func (s *Service) UpdateTitle(ctx context.Context, id int64, patch TitlePatch) (*TitleWrite, error) {
	if err := validation.Struct(&patch); err != nil {
		return nil, err
	}

	current, err := s.store.GetTitle(ctx, id)
	if err != nil {
		return nil, err
	}

	w := writeShape(current)
	patch.Apply(w)

	title, genreIDs, err := s.resolve(ctx, w)
	if err != nil {
		return nil, err
	}
	title.ID = id

	if err := s.store.UpdateTitle(ctx, title, genreIDs); err != nil {
		return nil, err
	}
	return w, nil
}

// DeleteTitle removes a title with its reviews and comments
func (s *Service) DeleteTitle(ctx context.Context, id int64) error {
	return s.store.DeleteTitle(ctx, id)
}

// resolve turns the slugs of a write shape into a storable row and genre ids.
// Unknown slugs are reported against the field that named them.
func (s *Service) resolve(ctx context.Context, w *TitleWrite) (*Title, []int64, error) {
	title := &Title{Name: w.Name, Year: w.Year}
	if w.Description != nil {
		title.Description = sql.NullString{String: *w.Description, Valid: true}
	}

	verr := &apperrors.ValidationError{}

	if w.Category != nil {
		category, err := s.store.GetCategory(ctx, *w.Category)
		switch {
		case err == nil:
			title.CategoryID = sql.NullInt64{Int64: category.ID, Valid: true}
		case apperrors.IsNotFound(err):
			verr.Add("category", missingSlug(*w.Category))
		default:
			return nil, nil, err
		}
	}

	genres, err := s.store.GenresBySlug(ctx, w.Genre)
	if err != nil {
		return nil, nil, err
	}
	bySlug := make(map[string]int64, len(genres))
	for _, g := range genres {
		bySlug[g.Slug] = g.ID
	}

	seen := make(map[int64]bool, len(w.Genre))
	genreIDs := make([]int64, 0, len(w.Genre))
	for _, slug := range w.Genre {
		id, ok := bySlug[slug]
		if !ok {
			verr.Add("genre", missingSlug(slug))
			continue
		}
		if !seen[id] {
			seen[id] = true
			genreIDs = append(genreIDs, id)
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, nil, err
	}
	return title, genreIDs, nil
}

func writeShape(v *TitleView) *TitleWrite {
	w := &TitleWrite{
		ID:          v.ID,
		Name:        v.Name,
		Year:        v.Year,
		Description: v.Description,
		Genre:       make([]string, 0, len(v.Genre)),
	}
	for _, g := range v.Genre {
		w.Genre = append(w.Genre, g.Slug)
	}
	if v.Category != nil {
		slug := v.Category.Slug
		w.Category = &slug
	}
	return w
}

func missingSlug(slug string) string {
	return fmt.Sprintf("Object with slug=%s does not exist.", slug)
}
