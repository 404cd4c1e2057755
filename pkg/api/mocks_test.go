package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/catalog"
	"github.com/platinummonkey/critique/pkg/enrollment"
	"github.com/platinummonkey/critique/pkg/observability"
	"github.com/platinummonkey/critique/pkg/reviews"
	"github.com/platinummonkey/critique/pkg/storage"
	"github.com/platinummonkey/critique/pkg/users"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var (
	alice = &auth.User{ID: 1, Username: "alice", Email: "alice@example.com", Role: auth.RoleUser}
	mod   = &auth.User{ID: 2, Username: "mod", Email: "mod@example.com", Role: auth.RoleModerator}
	admin = &auth.User{ID: 3, Username: "admin", Email: "admin@example.com", Role: auth.RoleAdmin}
)

// mockCatalogService is a mock implementation of CatalogService for testing
type mockCatalogService struct {
	listCategoriesFunc func(ctx context.Context, params catalog.ListParams) (*storage.List[catalog.Category], error)
	createCategoryFunc func(ctx context.Context, in catalog.CategoryInput) (*catalog.Category, error)
	deleteCategoryFunc func(ctx context.Context, slug string) error
	listGenresFunc     func(ctx context.Context, params catalog.ListParams) (*storage.List[catalog.Genre], error)
	listTitlesFunc     func(ctx context.Context, filter catalog.TitleFilter) (*storage.List[catalog.TitleView], error)
	getTitleFunc       func(ctx context.Context, id int64) (*catalog.TitleView, error)
	createTitleFunc    func(ctx context.Context, in catalog.TitleInput) (*catalog.TitleWrite, error)
	updateTitleFunc    func(ctx context.Context, id int64, patch catalog.TitlePatch) (*catalog.TitleWrite, error)
	deleteTitleFunc    func(ctx context.Context, id int64) error
}

func (m *mockCatalogService) ListCategories(ctx context.Context, params catalog.ListParams) (*storage.List[catalog.Category], error) {
	if m.listCategoriesFunc != nil {
		return m.listCategoriesFunc(ctx, params)
	}
	return storage.NewList[catalog.Category](0, nil), nil
}

func (m *mockCatalogService) CreateCategory(ctx context.Context, in catalog.CategoryInput) (*catalog.Category, error) {
	if m.createCategoryFunc != nil {
		return m.createCategoryFunc(ctx, in)
	}
	return &catalog.Category{Name: in.Name, Slug: in.Slug}, nil
}

func (m *mockCatalogService) DeleteCategory(ctx context.Context, slug string) error {
	if m.deleteCategoryFunc != nil {
		return m.deleteCategoryFunc(ctx, slug)
	}
	return nil
}

func (m *mockCatalogService) ListGenres(ctx context.Context, params catalog.ListParams) (*storage.List[catalog.Genre], error) {
	if m.listGenresFunc != nil {
		return m.listGenresFunc(ctx, params)
	}
	return storage.NewList[catalog.Genre](0, nil), nil
}

func (m *mockCatalogService) CreateGenre(ctx context.Context, in catalog.GenreInput) (*catalog.Genre, error) {
	return &catalog.Genre{Name: in.Name, Slug: in.Slug}, nil
}

func (m *mockCatalogService) DeleteGenre(ctx context.Context, slug string) error {
	return nil
}

func (m *mockCatalogService) ListTitles(ctx context.Context, filter catalog.TitleFilter) (*storage.List[catalog.TitleView], error) {
	if m.listTitlesFunc != nil {
		return m.listTitlesFunc(ctx, filter)
	}
	return storage.NewList[catalog.TitleView](0, nil), nil
}

func (m *mockCatalogService) GetTitle(ctx context.Context, id int64) (*catalog.TitleView, error) {
	if m.getTitleFunc != nil {
		return m.getTitleFunc(ctx, id)
	}
	return &catalog.TitleView{ID: id}, nil
}

func (m *mockCatalogService) CreateTitle(ctx context.Context, in catalog.TitleInput) (*catalog.TitleWrite, error) {
	if m.createTitleFunc != nil {
		return m.createTitleFunc(ctx, in)
	}
	return &catalog.TitleWrite{ID: 1, Name: in.Name}, nil
}

func (m *mockCatalogService) UpdateTitle(ctx context.Context, id int64, patch catalog.TitlePatch) (*catalog.TitleWrite, error) {
	if m.updateTitleFunc != nil {
		return m.updateTitleFunc(ctx, id, patch)
	}
	return &catalog.TitleWrite{ID: id}, nil
}

func (m *mockCatalogService) DeleteTitle(ctx context.Context, id int64) error {
	if m.deleteTitleFunc != nil {
		return m.deleteTitleFunc(ctx, id)
	}
	return nil
}

// mockReviewService is a mock implementation of ReviewService for testing
type mockReviewService struct {
	listReviewsFunc   func(ctx context.Context, titleID int64, page storage.Page) (*storage.List[reviews.Review], error)
	getReviewFunc     func(ctx context.Context, titleID, reviewID int64) (*reviews.Review, error)
	createReviewFunc  func(ctx context.Context, actor *auth.User, titleID int64, in reviews.ReviewInput) (*reviews.Review, error)
	updateReviewFunc  func(ctx context.Context, actor *auth.User, titleID, reviewID int64, patch reviews.ReviewPatch) (*reviews.Review, error)
	deleteReviewFunc  func(ctx context.Context, actor *auth.User, titleID, reviewID int64) error
	createCommentFunc func(ctx context.Context, actor *auth.User, titleID, reviewID int64, in reviews.CommentInput) (*reviews.Comment, error)
	deleteCommentFunc func(ctx context.Context, actor *auth.User, titleID, reviewID, commentID int64) error
}

func (m *mockReviewService) ListReviews(ctx context.Context, titleID int64, page storage.Page) (*storage.List[reviews.Review], error) {
	if m.listReviewsFunc != nil {
		return m.listReviewsFunc(ctx, titleID, page)
	}
	return storage.NewList[reviews.Review](0, nil), nil
}

func (m *mockReviewService) GetReview(ctx context.Context, titleID, reviewID int64) (*reviews.Review, error) {
	if m.getReviewFunc != nil {
		return m.getReviewFunc(ctx, titleID, reviewID)
	}
	return &reviews.Review{ID: reviewID, TitleID: titleID}, nil
}

func (m *mockReviewService) CreateReview(ctx context.Context, actor *auth.User, titleID int64, in reviews.ReviewInput) (*reviews.Review, error) {
	if m.createReviewFunc != nil {
		return m.createReviewFunc(ctx, actor, titleID, in)
	}
	return &reviews.Review{ID: 1, TitleID: titleID}, nil
}

func (m *mockReviewService) UpdateReview(ctx context.Context, actor *auth.User, titleID, reviewID int64, patch reviews.ReviewPatch) (*reviews.Review, error) {
	if m.updateReviewFunc != nil {
		return m.updateReviewFunc(ctx, actor, titleID, reviewID, patch)
	}
	return &reviews.Review{ID: reviewID, TitleID: titleID}, nil
}

func (m *mockReviewService) DeleteReview(ctx context.Context, actor *auth.User, titleID, reviewID int64) error {
	if m.deleteReviewFunc != nil {
		return m.deleteReviewFunc(ctx, actor, titleID, reviewID)
	}
	return nil
}

func (m *mockReviewService) ListComments(ctx context.Context, titleID, reviewID int64, page storage.Page) (*storage.List[reviews.Comment], error) {
	return storage.NewList[reviews.Comment](0, nil), nil
}

func (m *mockReviewService) GetComment(ctx context.Context, titleID, reviewID, commentID int64) (*reviews.Comment, error) {
	return &reviews.Comment{ID: commentID, ReviewID: reviewID}, nil
}

func (m *mockReviewService) CreateComment(ctx context.Context, actor *auth.User, titleID, reviewID int64, in reviews.CommentInput) (*reviews.Comment, error) {
	if m.createCommentFunc != nil {
		return m.createCommentFunc(ctx, actor, titleID, reviewID, in)
	}
	return &reviews.Comment{ID: 1, ReviewID: reviewID}, nil
}

func (m *mockReviewService) UpdateComment(ctx context.Context, actor *auth.User, titleID, reviewID, commentID int64, patch reviews.CommentPatch) (*reviews.Comment, error) {
	return &reviews.Comment{ID: commentID, ReviewID: reviewID}, nil
}

func (m *mockReviewService) DeleteComment(ctx context.Context, actor *auth.User, titleID, reviewID, commentID int64) error {
	if m.deleteCommentFunc != nil {
		return m.deleteCommentFunc(ctx, actor, titleID, reviewID, commentID)
	}
	return nil
}

// mockUserService is a mock implementation of UserService for testing.
// GetByID resolves token subjects from known.
type mockUserService struct {
	known             map[int64]*auth.User
	listFunc          func(ctx context.Context, search string, page storage.Page) (*storage.List[*auth.User], error)
	getFunc           func(ctx context.Context, username string) (*auth.User, error)
	updateFunc        func(ctx context.Context, username string, patch users.UserPatch) (*auth.User, error)
	deleteFunc        func(ctx context.Context, username string) error
	updateProfileFunc func(ctx context.Context, actor *auth.User, patch users.UserPatch) (*auth.User, error)
}

func newMockUserService() *mockUserService {
	return &mockUserService{known: map[int64]*auth.User{alice.ID: alice, mod.ID: mod, admin.ID: admin}}
}

func (m *mockUserService) List(ctx context.Context, search string, page storage.Page) (*storage.List[*auth.User], error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, search, page)
	}
	return storage.NewList[*auth.User](0, nil), nil
}

func (m *mockUserService) Create(ctx context.Context, in users.UserInput) (*auth.User, error) {
	return &auth.User{Username: in.Username, Email: in.Email, Role: auth.RoleUser}, nil
}

func (m *mockUserService) Get(ctx context.Context, username string) (*auth.User, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, username)
	}
	return nil, apperrors.NotFound("user", username)
}

func (m *mockUserService) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	if u, ok := m.known[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, apperrors.NotFound("user", id)
}

func (m *mockUserService) Update(ctx context.Context, username string, patch users.UserPatch) (*auth.User, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, username, patch)
	}
	return &auth.User{Username: username}, nil
}

func (m *mockUserService) Delete(ctx context.Context, username string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, username)
	}
	return nil
}

func (m *mockUserService) GetProfile(ctx context.Context, actor *auth.User) (*auth.User, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	return actor, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, actor *auth.User, patch users.UserPatch) (*auth.User, error) {
	if m.updateProfileFunc != nil {
		return m.updateProfileFunc(ctx, actor, patch)
	}
	return actor, nil
}

// mockEnrollmentService is a mock implementation of EnrollmentService for testing
type mockEnrollmentService struct {
	requestCodeFunc  func(ctx context.Context, req enrollment.SignupRequest) (*enrollment.SignupRequest, error)
	exchangeCodeFunc func(ctx context.Context, req enrollment.TokenRequest) (*enrollment.TokenResponse, error)
}

func (m *mockEnrollmentService) RequestCode(ctx context.Context, req enrollment.SignupRequest) (*enrollment.SignupRequest, error) {
	if m.requestCodeFunc != nil {
		return m.requestCodeFunc(ctx, req)
	}
	return &req, nil
}

func (m *mockEnrollmentService) ExchangeCode(ctx context.Context, req enrollment.TokenRequest) (*enrollment.TokenResponse, error) {
	if m.exchangeCodeFunc != nil {
		return m.exchangeCodeFunc(ctx, req)
	}
	return &enrollment.TokenResponse{Token: "token"}, nil
}

type testServer struct {
	*Server
	catalog    *mockCatalogService
	reviews    *mockReviewService
	users      *mockUserService
	enrollment *mockEnrollmentService
	tokens     *auth.TokenIssuer
	audit      *audit.MemoryLogger
	metrics    *observability.Metrics
}

func newTestServer(t *testing.T, customize ...func(*Options)) *testServer {
	t.Helper()
	ts := &testServer{
		catalog:    &mockCatalogService{},
		reviews:    &mockReviewService{},
		users:      newMockUserService(),
		enrollment: &mockEnrollmentService{},
		tokens:     auth.NewTokenIssuer(testSecret, time.Hour),
		audit:      audit.NewMemoryLogger(),
	}
	ts.metrics = observability.NewMetrics(prometheus.NewRegistry())

	opts := Options{
		Logger:      observability.NewLogger(observability.ErrorLevel, io.Discard),
		Metrics:     ts.metrics,
		AuditLogger: ts.audit,
		Tokens:      ts.tokens,
	}
	for _, fn := range customize {
		fn(&opts)
	}

	ts.Server = NewServer(Services{
		Catalog:    ts.catalog,
		Reviews:    ts.reviews,
		Users:      ts.users,
		Enrollment: ts.enrollment,
	}, opts)
	return ts
}

// do sends a request as user (nil for anonymous) with an optional JSON body
func (ts *testServer) do(t *testing.T, method, path string, body interface{}, user *auth.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, BasePath+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		token, err := ts.tokens.Issue(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dest), rr.Body.String())
}

var _ http.Handler = (*Server)(nil)
