// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, translation
// of service errors to status codes, parameter parsing, and the common HTTP
// middleware every route shares.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, title)
//	httputil.WriteCreated(w, review)
//	httputil.WriteNoContent(w)
//
// Service errors are translated in one place:
//
//	if err != nil {
//		httputil.WriteServiceError(w, r, err)
//		return
//	}
//
//	ErrValidation      -> 400 {"error": "...", "details": {"score": ["..."]}}
//	ErrUnauthenticated -> 401
//	ErrForbidden       -> 403
//	ErrNotFound        -> 404
//	ErrConflict        -> 409
//	anything else      -> 500 {"error": "internal server error"}, cause logged
//
// # Request Parsing
//
//	var req reviews.ReviewInput
//	if err := httputil.ParseJSON(r, &req); err != nil { ... }
//
//	titleID, err := httputil.ParsePathInt64(r, "title_id")
//	page, err := httputil.ParsePage(r) // limit (default 20, max 100), offset
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggerMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.LoggingMiddleware,
//		httputil.TimeoutMiddleware(30*time.Second),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication and rate limiting
//   - pkg/apperrors: The error taxonomy translated here
package httputil
