package api

import (
	"context"

	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/catalog"
	"github.com/platinummonkey/critique/pkg/enrollment"
	"github.com/platinummonkey/critique/pkg/reviews"
	"github.com/platinummonkey/critique/pkg/storage"
	"github.com/platinummonkey/critique/pkg/users"
)

// CatalogService is implemented by *catalog.Service
type CatalogService interface {
	ListCategories(ctx context.Context, params catalog.ListParams) (*storage.List[catalog.Category], error)
	CreateCategory(ctx context.Context, in catalog.CategoryInput) (*catalog.Category, error)
	DeleteCategory(ctx context.Context, slug string) error

	ListGenres(ctx context.Context, params catalog.ListParams) (*storage.List[catalog.Genre], error)
	CreateGenre(ctx context.Context, in catalog.GenreInput) (*catalog.Genre, error)
	DeleteGenre(ctx context.Context, slug string) error

	ListTitles(ctx context.Context, filter catalog.TitleFilter) (*storage.List[catalog.TitleView], error)
	GetTitle(ctx context.Context, id int64) (*catalog.TitleView, error)
	CreateTitle(ctx context.Context, in catalog.TitleInput) (*catalog.TitleWrite, error)
	UpdateTitle(ctx context.Context, id int64, patch catalog.TitlePatch) (*catalog.TitleWrite, error)
	DeleteTitle(ctx context.Context, id int64) error
}

// ReviewService is implemented by *reviews.Service
type ReviewService interface {
	ListReviews(ctx context.Context, titleID int64, page storage.Page) (*storage.List[reviews.Review], error)
	GetReview(ctx context.Context, titleID, reviewID int64) (*reviews.Review, error)
	CreateReview(ctx context.Context, actor *auth.User, titleID int64, in reviews.ReviewInput) (*reviews.Review, error)
	UpdateReview(ctx context.Context, actor *auth.User, titleID, reviewID int64, patch reviews.ReviewPatch) (*reviews.Review, error)
	DeleteReview(ctx context.Context, actor *auth.User, titleID, reviewID int64) error

	ListComments(ctx context.Context, titleID, reviewID int64, page storage.Page) (*storage.List[reviews.Comment], error)
	GetComment(ctx context.Context, titleID, reviewID, commentID int64) (*reviews.Comment, error)
	CreateComment(ctx context.Context, actor *auth.User, titleID, reviewID int64, in reviews.CommentInput) (*reviews.Comment, error)
	UpdateComment(ctx context.Context, actor *auth.User, titleID, reviewID, commentID int64, patch reviews.CommentPatch) (*reviews.Comment, error)
	DeleteComment(ctx context.Context, actor *auth.User, titleID, reviewID, commentID int64) error
}

// UserService is implemented by *users.Service. GetByID also resolves
// bearer token subjects.
type UserService interface {
	List(ctx context.Context, search string, page storage.Page) (*storage.List[*auth.User], error)
	Create(ctx context.Context, in users.UserInput) (*auth.User, error)
	Get(ctx context.Context, username string) (*auth.User, error)
	GetByID(ctx context.Context, id int64) (*auth.User, error)
	Update(ctx context.Context, username string, patch users.UserPatch) (*auth.User, error)
	Delete(ctx context.Context, username string) error
	GetProfile(ctx context.Context, actor *auth.User) (*auth.User, error)
	UpdateProfile(ctx context.Context, actor *auth.User, patch users.UserPatch) (*auth.User, error)
}

// EnrollmentService is implemented by *enrollment.Service
type EnrollmentService interface {
	RequestCode(ctx context.Context, req enrollment.SignupRequest) (*enrollment.SignupRequest, error)
	ExchangeCode(ctx context.Context, req enrollment.TokenRequest) (*enrollment.TokenResponse, error)
}

// Services bundles the domain services behind the HTTP surface
type Services struct {
	Catalog    CatalogService
	Reviews    ReviewService
	Users      UserService
	Enrollment EnrollmentService
}
