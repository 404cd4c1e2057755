package reviews

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/storage"
	"github.com/platinummonkey/critique/pkg/storage/postgres"
)

const (
	resourceTitle   = "title"
	resourceReview  = "review"
	resourceComment = "comment"
)

var (
	reviewColumns = []string{
		"r.id", "r.title_id", "t.name AS title_name", "r.author_id", "u.username AS author_username",
		"r.text", "r.score", "r.pub_date",
	}
	commentColumns = []string{
		"c.id", "c.review_id", "c.author_id", "u.username AS author_username", "c.text", "c.pub_date",
	}
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	cm *postgres.ConnectionManager
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(cm *postgres.ConnectionManager) *PostgresStore {
	return &PostgresStore{cm: cm}
}

// TitleExists reports whether the parent title exists
func (s *PostgresStore) TitleExists(ctx context.Context, titleID int64) (bool, error) {
	var exists bool
	err := s.cm.Replica().GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM titles WHERE id = $1)", titleID)
	if err != nil {
		return false, fmt.Errorf("failed to check title: %w", err)
	}
	return exists, nil
}

// HasReviewed reports whether author already reviewed the title. It reads the primary.
func (s *PostgresStore) HasReviewed(ctx context.Context, titleID, authorID int64) (bool, error) {
	var exists bool
	err := s.cm.Primary().GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM reviews WHERE title_id = $1 AND author_id = $2)", titleID, authorID)
	if err != nil {
		return false, fmt.Errorf("failed to check existing review: %w", err)
	}
	return exists, nil
}

// ListReviews returns one page of a title's reviews, oldest first
func (s *PostgresStore) ListReviews(ctx context.Context, titleID int64, page storage.Page) ([]Review, int64, error) {
	db := s.cm.Replica()

	q := postgres.Builder.Select().From("reviews r").Where(sq.Eq{"r.title_id": titleID})
	count, err := postgres.Count(ctx, db, q)
	if err != nil {
		return nil, 0, err
	}

	var reviews []Review
	q = postgres.Paginate(withReviewColumns(q).OrderBy("r.pub_date", "r.id"), page)
	if err := postgres.Select(ctx, db, &reviews, q); err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, count, nil
}

// GetReview retrieves a review that belongs to titleID
func (s *PostgresStore) GetReview(ctx context.Context, titleID, reviewID int64) (*Review, error) {
	q := withReviewColumns(postgres.Builder.Select().From("reviews r").
		Where(sq.Eq{"r.id": reviewID, "r.title_id": titleID}))
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build review query: %w", err)
	}

	review := &Review{}
	if err := s.cm.Primary().GetContext(ctx, review, query, args...); err != nil {
		return nil, postgres.MapError(err, resourceReview, reviewID)
	}
	return review, nil
}

func withReviewColumns(q sq.SelectBuilder) sq.SelectBuilder {
	return q.Columns(reviewColumns...).
		Join("titles t ON t.id = r.title_id").
		Join("users u ON u.id = r.author_id")
}

// CreateReview inserts a review and fills in its id, publication date and title name
func (s *PostgresStore) CreateReview(ctx context.Context, review *Review) error {
	query := `
		INSERT INTO reviews (title_id, author_id, text, score)
		VALUES ($1, $2, $3, $4)
		RETURNING id, pub_date, (SELECT name FROM titles WHERE titles.id = reviews.title_id)
	`
	err := s.cm.Primary().QueryRowxContext(ctx, query, review.TitleID, review.AuthorID, review.Text, review.Score).
		Scan(&review.ID, &review.PubDate, &review.Title)
	if postgres.IsUniqueViolation(err, postgres.ConstraintReviewsAuthorID) {
		return errAlreadyReviewed
	}
	return postgres.MapError(err, resourceReview, review.TitleID)
}

// UpdateReview rewrites the text and score of a review
func (s *PostgresStore) UpdateReview(ctx context.Context, review *Review) error {
	result, err := s.cm.Primary().ExecContext(ctx,
		"UPDATE reviews SET text = $1, score = $2 WHERE id = $3",
		review.Text, review.Score, review.ID)
	if err != nil {
		return postgres.MapError(err, resourceReview, review.ID)
	}
	return requireRow(result, resourceReview, review.ID)
}

// DeleteReview removes a review and its comments
func (s *PostgresStore) DeleteReview(ctx context.Context, reviewID int64) error {
	result, err := s.cm.Primary().ExecContext(ctx, "DELETE FROM reviews WHERE id = $1", reviewID)
	if err != nil {
		return postgres.MapError(err, resourceReview, reviewID)
	}
	return requireRow(result, resourceReview, reviewID)
}

// ListComments returns one page of a review's comments, oldest first
func (s *PostgresStore) ListComments(ctx context.Context, reviewID int64, page storage.Page) ([]Comment, int64, error) {
	db := s.cm.Replica()

	q := postgres.Builder.Select().From("comments c").Where(sq.Eq{"c.review_id": reviewID})
	count, err := postgres.Count(ctx, db, q)
	if err != nil {
		return nil, 0, err
	}

	var comments []Comment
	q = postgres.Paginate(withCommentColumns(q).OrderBy("c.pub_date", "c.id"), page)
	if err := postgres.Select(ctx, db, &comments, q); err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, count, nil
}

// GetComment retrieves a comment that belongs to reviewID
func (s *PostgresStore) GetComment(ctx context.Context, reviewID, commentID int64) (*Comment, error) {
	q := withCommentColumns(postgres.Builder.Select().From("comments c").
		Where(sq.Eq{"c.id": commentID, "c.review_id": reviewID}))
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build comment query: %w", err)
	}

	comment := &Comment{}
	if err := s.cm.Primary().GetContext(ctx, comment, query, args...); err != nil {
		return nil, postgres.MapError(err, resourceComment, commentID)
	}
	return comment, nil
}

func withCommentColumns(q sq.SelectBuilder) sq.SelectBuilder {
	return q.Columns(commentColumns...).Join("users u ON u.id = c.author_id")
}

// CreateComment inserts a comment and fills in its id and publication date
func (s *PostgresStore) CreateComment(ctx context.Context, comment *Comment) error {
	query := `
		INSERT INTO comments (review_id, author_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, pub_date
	`
	err := s.cm.Primary().QueryRowxContext(ctx, query, comment.ReviewID, comment.AuthorID, comment.Text).
		Scan(&comment.ID, &comment.PubDate)
	return postgres.MapError(err, resourceComment, comment.ReviewID)
}

// UpdateComment rewrites the text of a comment
func (s *PostgresStore) UpdateComment(ctx context.Context, comment *Comment) error {
	result, err := s.cm.Primary().ExecContext(ctx, "UPDATE comments SET text = $1 WHERE id = $2", comment.Text, comment.ID)
	if err != nil {
		return postgres.MapError(err, resourceComment, comment.ID)
	}
	return requireRow(result, resourceComment, comment.ID)
}

// DeleteComment removes a comment
func (s *PostgresStore) DeleteComment(ctx context.Context, commentID int64) error {
	result, err := s.cm.Primary().ExecContext(ctx, "DELETE FROM comments WHERE id = $1", commentID)
	if err != nil {
		return postgres.MapError(err, resourceComment, commentID)
	}
	return requireRow(result, resourceComment, commentID)
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
