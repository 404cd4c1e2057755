// Package audit records security-relevant events: policy denials, role
// changes and moderation actions on content authored by someone else.
//
// # Event Types
//
// Authorization: access_denied, role_change
// Moderation: review_update, review_delete, comment_update, comment_delete
// Admin: user_create, user_update, user_delete, superuser_create
// Enrollment: code_issued, token_issued, token_rejected
//
// # Usage Example
//
// Attach a logger to every request:
//
//	auditLogger := audit.NewLogrusLogger(logrus.StandardLogger())
//	router.Use(audit.NewMiddleware(auditLogger, false).Handler)
//
// Record an event from a service:
//
//	audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeModerationReviewDelete,
//		&actor.ID, audit.ResourceTypeReview, strconv.FormatInt(review.ID, 10), nil,
//		"moderator removed review")
//
// # Related Packages
//
//   - pkg/rbac: Access denials
//   - pkg/reviews: Moderation of reviews and comments
//   - pkg/users: Role changes
package audit
