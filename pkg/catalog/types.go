package catalog

import (
	"context"
	"database/sql"

	"github.com/platinummonkey/critique/pkg/storage"
)

// Category groups titles by kind (film, book, music)
type Category struct {
	ID   int64  `json:"-" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Genre is a tag a title may carry any number of
type Genre struct {
	ID   int64  `json:"-" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// CategoryInput is the payload for creating a category
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

// GenreInput is the payload for creating a genre
type GenreInput struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

// ListParams filters category and genre lists
type ListParams struct {
	Search string
	storage.Page
}

// TitleFilter filters title lists. Empty fields do not filter.
type TitleFilter struct {
	Category string
	Genre    string
	Name     string
	Year     *int
	storage.Page
}

// TitleView is the read shape of a title, with nested taxonomy and the computed rating
type TitleView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Rating      *float64  `json:"rating"`
	Description *string   `json:"description"`
	Genre       []Genre   `json:"genre"`
	Category    *Category `json:"category"`
}

// TitleWrite is the write shape of a title, referencing taxonomy by slug
type TitleWrite struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Year        int      `json:"year"`
	Description *string  `json:"description"`
	Genre       []string `json:"genre"`
	Category    *string  `json:"category"`
}

// TitleInput is the payload for creating a title
type TitleInput struct {
	Name        string   `json:"name" validate:"required,max=256"`
	Year        *int     `json:"year" validate:"required,notfuture"`
	Description *string  `json:"description"`
	Genre       []string `json:"genre" validate:"required,dive,max=50,slug"`
	Category    *string  `json:"category" validate:"required,max=50,slug"`
}

// TitlePatch is a partial title update. Nil fields are left unchanged.
type TitlePatch struct {
	Name        *string   `json:"name" validate:"omitnil,required,max=256"`
	Year        *int      `json:"year" validate:"omitnil,notfuture"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre" validate:"omitnil,dive,max=50,slug"`
	Category    *string   `json:"category" validate:"omitnil,max=50,slug"`
}

// Apply copies the set fields of the patch onto w
func (p TitlePatch) Apply(w *TitleWrite) {
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Year != nil {
		w.Year = *p.Year
	}
	if p.Description != nil {
		w.Description = p.Description
	}
	if p.Genre != nil {
		w.Genre = *p.Genre
	}
	if p.Category != nil {
		w.Category = p.Category
	}
}

// Title is the stored row of a title
type Title struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Year        int            `db:"year"`
	Description sql.NullString `db:"description"`
	CategoryID  sql.NullInt64  `db:"category_id"`
}

// Store persists the catalog
type Store interface {
	ListCategories(ctx context.Context, params ListParams) ([]Category, int64, error)
	GetCategory(ctx context.Context, slug string) (*Category, error)
	CreateCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, slug string) error

	ListGenres(ctx context.Context, params ListParams) ([]Genre, int64, error)
	GenresBySlug(ctx context.Context, slugs []string) ([]Genre, error)
	CreateGenre(ctx context.Context, genre *Genre) error
	DeleteGenre(ctx context.Context, slug string) error

	ListTitles(ctx context.Context, filter TitleFilter) ([]TitleView, int64, error)
	GetTitle(ctx context.Context, id int64) (*TitleView, error)
	CreateTitle(ctx context.Context, title *Title, genreIDs []int64) error
	UpdateTitle(ctx context.Context, title *Title, genreIDs []int64) error
	DeleteTitle(ctx context.Context, id int64) error
}
