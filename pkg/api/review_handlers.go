package api

import (
	"net/http"

	"github.com/platinummonkey/critique/pkg/httputil"
	"github.com/platinummonkey/critique/pkg/middleware"
	"github.com/platinummonkey/critique/pkg/reviews"
)

// pathIDs parses the named numeric path parameters in order
func pathIDs(r *http.Request, keys ...string) ([]int64, error) {
	ids := make([]int64, len(keys))
	for i, key := range keys {
		id, err := httputil.ParsePathInt64(r, key)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "title_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	list, err := s.services.Reviews.ListReviews(r.Context(), ids[0], page)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "title_id", "review_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	review, err := s.services.Reviews.GetReview(r.Context(), ids[0], ids[1])
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, review)
}

// createReview takes the title from the URL and the author from the token
func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "title_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var in reviews.ReviewInput
	if err := httputil.ParseJSON(r, &in); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	review, err := s.services.Reviews.CreateReview(r.Context(), middleware.Actor(r), ids[0], in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteCreated(w, review)
}

func (s *Server) updateReview(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "title_id", "review_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var patch reviews.ReviewPatch
	if err := httputil.ParseJSON(r, &patch); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	review, err := s.services.Reviews.UpdateReview(r.Context(), middleware.Actor(r), ids[0], ids[1], patch)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, review)
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "title_id", "review_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := s.services.Reviews.DeleteReview(r.Context(), middleware.Actor(r), ids[0], ids[1]); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "title_id", "review_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	list, err := s.services.Reviews.ListComments(r.Context(), ids[0], ids[1], page)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

func (s *Server) getComment(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "title_id", "review_id", "comment_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	comment, err := s.services.Reviews.GetComment(r.Context(), ids[0], ids[1], ids[2])
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, comment)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "title_id", "review_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var in reviews.CommentInput
	if err := httputil.ParseJSON(r, &in); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	comment, err := s.services.Reviews.CreateComment(r.Context(), middleware.Actor(r), ids[0], ids[1], in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteCreated(w, comment)
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "title_id", "review_id", "comment_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var patch reviews.CommentPatch
	if err := httputil.ParseJSON(r, &patch); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	comment, err := s.services.Reviews.UpdateComment(r.Context(), middleware.Actor(r), ids[0], ids[1], ids[2], patch)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, comment)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "title_id", "review_id", "comment_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := s.services.Reviews.DeleteComment(r.Context(), middleware.Actor(r), ids[0], ids[1], ids[2]); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}
