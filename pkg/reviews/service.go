package reviews

import (
	"context"
	"net/http"
	"strconv"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/observability"
	"github.com/platinummonkey/critique/pkg/rbac"
	"github.com/platinummonkey/critique/pkg/storage"
	"github.com/platinummonkey/critique/pkg/validation"
)

var errAlreadyReviewed = apperrors.Conflict("you have already reviewed this title")

// Service implements reviews of titles and comments on reviews
type Service struct {
	store   Store
	metrics *observability.Metrics
}

// Option configures a Service
type Option func(*Service)

// WithMetrics counts created reviews and comments
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new Service
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListReviews returns one page of a title's reviews
func (s *Service) ListReviews(ctx context.Context, titleID int64, page storage.Page) (*storage.List[Review], error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}

	reviews, count, err := s.store.ListReviews(ctx, titleID, page)
	if err != nil {
		return nil, err
	}
	return storage.NewList(count, reviews), nil
}

// GetReview retrieves a review of the given title
func (s *Service) GetReview(ctx context.Context, titleID, reviewID int64) (*Review, error) {
	return s.store.GetReview(ctx, titleID, reviewID)
}

// CreateReview records actor's review of a title. An author may review a title once.
func (s *Service) CreateReview(ctx context.Context, actor *auth.User, titleID int64, in ReviewInput) (*Review, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}

	reviewed, err := s.store.HasReviewed(ctx, titleID, actor.ID)
	if err != nil {
		return nil, err
	}
	if reviewed {
		return nil, errAlreadyReviewed
	}

	review := &Review{
		TitleID:  titleID,
		AuthorID: actor.ID,
		Author:   actor.Username,
		Text:     in.Text,
		Score:    *in.Score,
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ReviewsCreatedTotal.Inc()
	}
	return review, nil
}

// UpdateReview applies a partial update. Only the author, moderators and admins may edit.
func (s *Service) UpdateReview(ctx context.Context, actor *auth.User, titleID, reviewID int64, patch ReviewPatch) (*Review, error) {
	if err := validation.Struct(&patch); err != nil {
		return nil, err
	}

	review, err := s.store.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := rbac.AuthorizeObject(actor, http.MethodPatch, review); err != nil {
		return nil, err
	}

	before := map[string]interface{}{"text": review.Text, "score": review.Score}
	if patch.Text != nil {
		review.Text = *patch.Text
	}
	if patch.Score != nil {
		review.Score = *patch.Score
	}

	if err := s.store.UpdateReview(ctx, review); err != nil {
		return nil, err
	}

	if rbac.IsModeration(actor, review) {
		s.moderated(ctx, actor, audit.EventTypeModerationReviewUpdate, audit.ResourceTypeReview, review.ID,
			&audit.ChangeDetails{Before: before, After: map[string]interface{}{"text": review.Text, "score": review.Score}})
	}
	return review, nil
}

// DeleteReview removes a review and its comments
func (s *Service) DeleteReview(ctx context.Context, actor *auth.User, titleID, reviewID int64) error {
	review, err := s.store.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return err
	}
	if err := rbac.AuthorizeObject(actor, http.MethodDelete, review); err != nil {
		return err
	}

	if err := s.store.DeleteReview(ctx, review.ID); err != nil {
		return err
	}

	if rbac.IsModeration(actor, review) {
		s.moderated(ctx, actor, audit.EventTypeModerationReviewDelete, audit.ResourceTypeReview, review.ID,
			&audit.ChangeDetails{Before: map[string]interface{}{"author": review.Author, "text": review.Text, "score": review.Score}})
	}
	return nil
}

// ListComments returns one page of comments on a review of the given title
func (s *Service) ListComments(ctx context.Context, titleID, reviewID int64, page storage.Page) (*storage.List[Comment], error) {
	if _, err := s.store.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comments, count, err := s.store.ListComments(ctx, reviewID, page)
	if err != nil {
		return nil, err
	}
	return storage.NewList(count, comments), nil
}

// GetComment retrieves a comment, checking the whole parent chain
func (s *Service) GetComment(ctx context.Context, titleID, reviewID, commentID int64) (*Comment, error) {
	if _, err := s.store.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.store.GetComment(ctx, reviewID, commentID)
}

// CreateComment records actor's comment on a review
func (s *Service) CreateComment(ctx context.Context, actor *auth.User, titleID, reviewID int64, in CommentInput) (*Comment, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comment := &Comment{
		ReviewID: reviewID,
		AuthorID: actor.ID,
		Author:   actor.Username,
		Text:     in.Text,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CommentsCreated.Inc()
	}
	return comment, nil
}

// UpdateComment applies a partial update. Only the author, moderators and admins may edit.
func (s *Service) UpdateComment(ctx context.Context, actor *auth.User, titleID, reviewID, commentID int64, patch CommentPatch) (*Comment, error) {
	if err := validation.Struct(&patch); err != nil {
		return nil, err
	}

	comment, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := rbac.AuthorizeObject(actor, http.MethodPatch, comment); err != nil {
		return nil, err
	}

	before := comment.Text
	if patch.Text != nil {
		comment.Text = *patch.Text
	}
	if err := s.store.UpdateComment(ctx, comment); err != nil {
		return nil, err
	}

	if rbac.IsModeration(actor, comment) {
		s.moderated(ctx, actor, audit.EventTypeModerationCommentUpdate, audit.ResourceTypeComment, comment.ID,
			&audit.ChangeDetails{
				Before: map[string]interface{}{"text": before},
				After:  map[string]interface{}{"text": comment.Text},
			})
	}
	return comment, nil
}

// DeleteComment removes a comment
func (s *Service) DeleteComment(ctx context.Context, actor *auth.User, titleID, reviewID, commentID int64) error {
	comment, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := rbac.AuthorizeObject(actor, http.MethodDelete, comment); err != nil {
		return err
	}

	if err := s.store.DeleteComment(ctx, comment.ID); err != nil {
		return err
	}

	if rbac.IsModeration(actor, comment) {
		s.moderated(ctx, actor, audit.EventTypeModerationCommentDelete, audit.ResourceTypeComment, comment.ID,
			&audit.ChangeDetails{Before: map[string]interface{}{"author": comment.Author, "text": comment.Text}})
	}
	return nil
}

func (s *Service) requireTitle(ctx context.Context, titleID int64) error {
	exists, err := s.store.TitleExists(ctx, titleID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFound(resourceTitle, titleID)
	}
	return nil
}

// moderated records an action a moderator or admin took on someone else's content
func (s *Service) moderated(ctx context.Context, actor *auth.User, eventType audit.EventType, resourceType audit.ResourceType, id int64, changes *audit.ChangeDetails) {
	actorID := actor.ID
	_ = audit.FromContext(ctx).LogDataMutation(ctx, eventType, &actorID, resourceType, strconv.FormatInt(id, 10), changes,
		"moderator acted on content authored by another user")
}
