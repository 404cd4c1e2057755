// Package middleware provides HTTP middleware for authentication and rate limiting.
//
// # Overview
//
// AuthMiddleware resolves a bearer access token to a stored user and places an
// auth.AuthContext in the request context. Authorization itself lives in
// pkg/rbac, which reads the actor back through GetAuthContext.
//
// # Middleware Components
//
// AuthMiddleware: Token-based authentication
//
//	authMW := middleware.NewAuthMiddleware(tokenIssuer, userService, true)
//	router.Use(authMW.Handler)
//	// Missing header: anonymous (optional) or 401. Invalid token: always 401.
//
// RateLimitMiddleware: Limits the open auth endpoints per client
//
//	limiter := middleware.NewRateLimiter(cfg)                           // in-process, LRU-bounded
//	limiter := middleware.NewDistributedRateLimiter(redis, cfg, "")     // shared across instances
//	authRouter.Use(middleware.NewRateLimitMiddleware(limiter, cfg, true).Handler)
//
// Clients are keyed by user id when authenticated and by remote IP otherwise.
//
// # Related Packages
//
//   - pkg/auth: Token verification
//   - pkg/rbac: Permission checking
package middleware
