package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Enrollment events
	EventTypeAuthCodeIssued    EventType = "auth.code_issued"
	EventTypeAuthTokenIssued   EventType = "auth.token_issued"
	EventTypeAuthTokenRejected EventType = "auth.token_rejected"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"
	EventTypeAuthzRoleChange   EventType = "authz.role_change"

	// Moderation events (acting on content authored by someone else)
	EventTypeModerationReviewUpdate  EventType = "moderation.review_update"
	EventTypeModerationReviewDelete  EventType = "moderation.review_delete"
	EventTypeModerationCommentUpdate EventType = "moderation.comment_update"
	EventTypeModerationCommentDelete EventType = "moderation.comment_delete"

	// Admin events
	EventTypeAdminUserCreate      EventType = "admin.user_create"
	EventTypeAdminUserUpdate      EventType = "admin.user_update"
	EventTypeAdminUserDelete      EventType = "admin.user_delete"
	EventTypeAdminSuperuserCreate EventType = "admin.superuser_create"

	// Request events, only emitted when the middleware logs all requests
	EventTypeHTTPRequest EventType = "http.request"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeCategory ResourceType = "category"
	ResourceTypeGenre    ResourceType = "genre"
	ResourceTypeTitle    ResourceType = "title"
	ResourceTypeReview   ResourceType = "review"
	ResourceTypeComment  ResourceType = "comment"
	ResourceTypeUser     ResourceType = "user"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	UserID       *int64 `json:"user_id,omitempty"`
	TargetUserID *int64 `json:"target_user_id,omitempty"`

	// Resource information
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`

	Message string         `json:"message,omitempty"`
	Changes *ChangeDetails `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
