// Package api provides the HTTP REST API server for critique.
//
// # Overview
//
// Routes live under /api/v1 on a gorilla/mux router. Handlers parse the
// request, call a domain service and translate its error with
// httputil.WriteServiceError; they hold no business rules of their own.
//
// # Request pipeline
//
// Before routing: tracing span, request id, request logger, access log,
// panic recovery, CORS, request timeout, body size cap and the audit trail.
//
// After routing: span route tag, Prometheus metrics, optional bearer token
// authentication, and a collection-level policy check per route
// (rbac.PermissionMiddleware). Object-level rules for reviews and comments
// are enforced by the reviews service against the loaded object.
//
// The signup and token endpoints are additionally rate limited. The OpenAPI
// document and Swagger UI are open (see package swagger).
//
// # Usage
//
//	srv := api.NewServer(api.Services{
//		Catalog:    catalogService,
//		Reviews:    reviewService,
//		Users:      userService,
//		Enrollment: enrollmentService,
//	}, api.Options{Logger: logger, Tokens: issuer})
//	http.ListenAndServe(":8080", srv)
//
// Health and metrics are served from a separate handler (NewHealthHandler)
// so probes do not share the API port.
package api
