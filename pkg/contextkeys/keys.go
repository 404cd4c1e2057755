// Package contextkeys holds the request-scoped context keys shared by the
// transport, auth, logging and audit packages. Keys live here so that a
// package can read a value without importing the package that set it.
//
//	ctx = contextkeys.WithAuth(ctx, authCtx)
//	authCtx, _ := ctx.Value(contextkeys.AuthKey).(*auth.AuthContext)
package contextkeys

import "context"

// Key is an unexported-by-convention integer key; values never collide with
// string keys set by other libraries.
type Key int

const (
	// AuthKey holds the *auth.AuthContext resolved from the bearer token.
	// Set by middleware.AuthMiddleware, read by rbac and the handlers.
	AuthKey Key = iota + 1

	// RequestIDKey holds the request id string from httputil.RequestIDMiddleware
	RequestIDKey

	// UserIDKey holds the caller's user id, formatted as a string, for log
	// and audit fields
	UserIDKey

	// LoggerKey holds the request-scoped *observability.Logger
	LoggerKey

	// AuditLoggerKey holds the audit.Logger installed by audit.Middleware
	AuditLoggerKey
)

func (k Key) String() string {
	switch k {
	case AuthKey:
		return "auth_context"
	case RequestIDKey:
		return "request_id"
	case UserIDKey:
		return "user_id"
	case LoggerKey:
		return "logger"
	case AuditLoggerKey:
		return "audit_logger"
	}
	return "unknown"
}

func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

func WithAuditLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, AuditLoggerKey, logger)
}

// GetRequestID returns the request id, or "" outside a request
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetUserID returns the caller's id, or "" for anonymous requests
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}
