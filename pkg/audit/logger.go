package audit

import (
	"context"
	"time"

	"github.com/platinummonkey/critique/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// LogAuthorization logs a policy decision
	LogAuthorization(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, status EventStatus, message string) error

	// LogDataMutation logs a change to a resource
	LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error

	// LogAdminAction logs an action one user performed on another account
	LogAdminAction(ctx context.Context, eventType EventType, adminUserID *int64, targetUserID *int64, changes *ChangeDetails, message string) error

	// Close flushes any buffered events
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return contextkeys.WithAuditLogger(ctx, logger)
}

// FromContext retrieves the audit logger from context
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return noOpLogger{}
}

// baseEvent stamps the fields every event shares
func baseEvent(ctx context.Context, eventType EventType, status EventStatus) *AuditEvent {
	return &AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: contextkeys.GetRequestID(ctx),
	}
}

// NewAuthorizationEvent builds the event recorded by LogAuthorization
func NewAuthorizationEvent(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, status EventStatus, message string) *AuditEvent {
	e := baseEvent(ctx, eventType, status)
	e.UserID = userID
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	e.Message = message
	return e
}

// NewDataMutationEvent builds the event recorded by LogDataMutation
func NewDataMutationEvent(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) *AuditEvent {
	e := baseEvent(ctx, eventType, EventStatusSuccess)
	e.UserID = userID
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	e.Changes = changes
	e.Message = message
	return e
}

// NewAdminActionEvent builds the event recorded by LogAdminAction
func NewAdminActionEvent(ctx context.Context, eventType EventType, adminUserID *int64, targetUserID *int64, changes *ChangeDetails, message string) *AuditEvent {
	e := baseEvent(ctx, eventType, EventStatusSuccess)
	e.UserID = adminUserID
	e.TargetUserID = targetUserID
	e.ResourceType = ResourceTypeUser
	e.Changes = changes
	e.Message = message
	return e
}

// noOpLogger is used when no logger is configured
type noOpLogger struct{}

func (noOpLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }

func (noOpLogger) LogAuthorization(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	return nil
}

func (noOpLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	return nil
}

func (noOpLogger) LogAdminAction(ctx context.Context, eventType EventType, adminUserID *int64, targetUserID *int64, changes *ChangeDetails, message string) error {
	return nil
}

func (noOpLogger) Close() error { return nil }
