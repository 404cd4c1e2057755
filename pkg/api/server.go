package api

import (
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/httputil"
	"github.com/platinummonkey/critique/pkg/middleware"
	"github.com/platinummonkey/critique/pkg/observability"
	"github.com/platinummonkey/critique/pkg/rbac"
	"github.com/platinummonkey/critique/pkg/swagger"
)

// BasePath prefixes every API route
const BasePath = "/api/v1"

// Options configures the HTTP stack around the handlers
type Options struct {
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	AuditLogger audit.Logger
	AuditAll    bool

	Tokens middleware.TokenVerifier

	// RateLimiter guards the open auth endpoints. Nil disables limiting.
	RateLimiter     middleware.Limiter
	RateLimitConfig *middleware.RateLimitConfig

	CORSOrigins    []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	ServiceName    string
}

// Server represents our API server
type Server struct {
	services Services
	opts     Options
	router   *mux.Router
	perm     *rbac.PermissionMiddleware
	handler  http.Handler
}

// NewServer creates a new API server with all routes registered
func NewServer(services Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = audit.NewLogrusLogger(opts.Logger.Logrus())
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "critique"
	}

	s := &Server{
		services: services,
		opts:     opts,
		router:   mux.NewRouter(),
		perm:     rbac.NewPermissionMiddleware(),
	}
	s.setupRoutes()
	s.handler = s.wrap(s.router)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// wrap applies the middleware that runs before routing
func (s *Server) wrap(h http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggerMiddleware(s.opts.Logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(s.opts.CORSOrigins),
	}
	if s.opts.RequestTimeout > 0 {
		chain = append(chain, httputil.TimeoutMiddleware(s.opts.RequestTimeout))
	}
	if s.opts.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes))
	}
	chain = append(chain, audit.NewMiddleware(s.opts.AuditLogger, s.opts.AuditAll).Handler)

	return observability.TracingMiddleware(s.opts.ServiceName)(httputil.Chain(chain...)(h))
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(observability.RouteTagMiddleware)
	if s.opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.opts.Metrics))
	}
	// Optional mode: anonymous requests pass, a bad token is still a 401
	s.router.Use(middleware.NewAuthMiddleware(s.opts.Tokens, s.services.Users, true).Handler)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	v1 := s.router.PathPrefix(BasePath).Subrouter()

	authRoutes := v1.PathPrefix("/auth").Subrouter()
	if s.opts.RateLimiter != nil {
		authRoutes.Use(middleware.NewRateLimitMiddleware(s.opts.RateLimiter, s.opts.RateLimitConfig, true).Handler)
	}
	route(authRoutes, "/signup", methods{http.MethodPost: http.HandlerFunc(s.signup)})
	route(authRoutes, "/token", methods{http.MethodPost: http.HandlerFunc(s.token)})

	swagger.NewSwaggerHandlers(BasePath + "/openapi.yaml").RegisterRoutes(v1)

	// /users/me must be registered before /users/{username}
	route(v1, "/users", methods{
		http.MethodGet:  s.guard(rbac.ResourceUser, s.listUsers),
		http.MethodPost: s.guard(rbac.ResourceUser, s.createUser),
	})
	route(v1, "/users/me", methods{
		http.MethodGet:   s.guard(rbac.ResourceProfile, s.getProfile),
		http.MethodPatch: s.guard(rbac.ResourceProfile, s.updateProfile),
	})
	route(v1, "/users/{username}", methods{
		http.MethodGet:    s.guard(rbac.ResourceUser, s.getUser),
		http.MethodPatch:  s.guard(rbac.ResourceUser, s.updateUser),
		http.MethodDelete: s.guard(rbac.ResourceUser, s.deleteUser),
	})

	route(v1, "/categories", methods{
		http.MethodGet:  s.guard(rbac.ResourceCategory, s.listCategories),
		http.MethodPost: s.guard(rbac.ResourceCategory, s.createCategory),
	})
	route(v1, "/categories/{slug}", methods{
		http.MethodDelete: s.guard(rbac.ResourceCategory, s.deleteCategory),
	})

	route(v1, "/genres", methods{
		http.MethodGet:  s.guard(rbac.ResourceGenre, s.listGenres),
		http.MethodPost: s.guard(rbac.ResourceGenre, s.createGenre),
	})
	route(v1, "/genres/{slug}", methods{
		http.MethodDelete: s.guard(rbac.ResourceGenre, s.deleteGenre),
	})

	const title = "/titles/{title_id:[0-9]+}"
	route(v1, "/titles", methods{
		http.MethodGet:  s.guard(rbac.ResourceTitle, s.listTitles),
		http.MethodPost: s.guard(rbac.ResourceTitle, s.createTitle),
	})
	route(v1, title, methods{
		http.MethodGet:    s.guard(rbac.ResourceTitle, s.getTitle),
		http.MethodPatch:  s.guard(rbac.ResourceTitle, s.updateTitle),
		http.MethodDelete: s.guard(rbac.ResourceTitle, s.deleteTitle),
	})

	const review = title + "/reviews/{review_id:[0-9]+}"
	route(v1, title+"/reviews", methods{
		http.MethodGet:  s.guard(rbac.ResourceReview, s.listReviews),
		http.MethodPost: s.guard(rbac.ResourceReview, s.createReview),
	})
	route(v1, review, methods{
		http.MethodGet:    s.guard(rbac.ResourceReview, s.getReview),
		http.MethodPatch:  s.guard(rbac.ResourceReview, s.updateReview),
		http.MethodDelete: s.guard(rbac.ResourceReview, s.deleteReview),
	})

	const comment = review + "/comments/{comment_id:[0-9]+}"
	route(v1, review+"/comments", methods{
		http.MethodGet:  s.guard(rbac.ResourceComment, s.listComments),
		http.MethodPost: s.guard(rbac.ResourceComment, s.createComment),
	})
	route(v1, comment, methods{
		http.MethodGet:    s.guard(rbac.ResourceComment, s.getComment),
		http.MethodPatch:  s.guard(rbac.ResourceComment, s.updateComment),
		http.MethodDelete: s.guard(rbac.ResourceComment, s.deleteComment),
	})
}

// methods maps an HTTP method to the handler serving it on one path
type methods map[string]http.Handler

// route registers one route per method on path, followed by a method-less
// route answering 405. mux drops a method mismatch once a later route in the
// same router fails to match, so the catch-all keeps known paths from
// falling through to the 404 handler.
func route(r *mux.Router, path string, handlers methods) {
	allowed := make([]string, 0, len(handlers))
	for method, h := range handlers {
		r.Handle(path, h).Methods(method)
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	r.Handle(path, methodNotAllowed(allowed))
}

func methodNotAllowed(allowed []string) http.Handler {
	allow := strings.Join(allowed, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func (s *Server) guard(res rbac.Resource, h http.HandlerFunc) http.Handler {
	return s.perm.RequireCollection(res)(h)
}

// NewHealthHandler serves liveness, readiness and metrics for the ops port
func NewHealthHandler(checker *observability.HealthChecker, registry *prometheus.Registry) http.Handler {
	ops := http.NewServeMux()
	observability.RegisterHealthRoutes(ops, checker)
	if registry != nil {
		observability.RegisterMetricsEndpoint(ops, registry)
	}
	return ops
}
