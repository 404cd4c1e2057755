package reviews

import (
	"context"
	"time"

	"github.com/platinummonkey/critique/pkg/storage"
)

const (
	// MinScore is the lowest score a review may give
	MinScore = 1
	// MaxScore is the highest score a review may give
	MaxScore = 10
)

// Review is one author's scored opinion of a title
type Review struct {
	ID       int64     `json:"id" db:"id"`
	TitleID  int64     `json:"-" db:"title_id"`
	Title    string    `json:"title" db:"title_name"`
	AuthorID int64     `json:"-" db:"author_id"`
	Author   string    `json:"author" db:"author_username"`
	Text     string    `json:"text" db:"text"`
	Score    int       `json:"score" db:"score"`
	PubDate  time.Time `json:"pub_date" db:"pub_date"`
}

// OwnerID returns the author, for the object policy
func (r *Review) OwnerID() int64 { return r.AuthorID }

// Comment is a reply to a review
type Comment struct {
	ID       int64     `json:"id" db:"id"`
	ReviewID int64     `json:"-" db:"review_id"`
	AuthorID int64     `json:"-" db:"author_id"`
	Author   string    `json:"author" db:"author_username"`
	Text     string    `json:"text" db:"text"`
	PubDate  time.Time `json:"pub_date" db:"pub_date"`
}

// OwnerID returns the author, for the object policy
func (c *Comment) OwnerID() int64 { return c.AuthorID }

// ReviewInput is the payload for creating a review
type ReviewInput struct {
	Text  string `json:"text" validate:"required"`
	Score *int   `json:"score" validate:"required,gte=1,lte=10"`
}

// ReviewPatch is a partial review update. Nil fields are left unchanged.
type ReviewPatch struct {
	Text  *string `json:"text" validate:"omitnil,required"`
	Score *int    `json:"score" validate:"omitnil,gte=1,lte=10"`
}

// CommentInput is the payload for creating a comment
type CommentInput struct {
	Text string `json:"text" validate:"required"`
}

// CommentPatch is a partial comment update
type CommentPatch struct {
	Text *string `json:"text" validate:"omitnil,required"`
}

// Store persists reviews and comments
type Store interface {
	TitleExists(ctx context.Context, titleID int64) (bool, error)
	HasReviewed(ctx context.Context, titleID, authorID int64) (bool, error)

	ListReviews(ctx context.Context, titleID int64, page storage.Page) ([]Review, int64, error)
	GetReview(ctx context.Context, titleID, reviewID int64) (*Review, error)
	CreateReview(ctx context.Context, review *Review) error
	UpdateReview(ctx context.Context, review *Review) error
	DeleteReview(ctx context.Context, reviewID int64) error

	ListComments(ctx context.Context, reviewID int64, page storage.Page) ([]Comment, int64, error)
	GetComment(ctx context.Context, reviewID, commentID int64) (*Comment, error)
	CreateComment(ctx context.Context, comment *Comment) error
	UpdateComment(ctx context.Context, comment *Comment) error
	DeleteComment(ctx context.Context, commentID int64) error
}
