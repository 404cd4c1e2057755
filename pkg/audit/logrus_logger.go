package audit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogrusLogger writes audit events as structured log entries
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates an audit logger on top of a logrus logger.
// Every entry carries audit=true so log pipelines can route it separately.
func NewLogrusLogger(logger *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{entry: logger.WithField("audit", true)}
}

// Log writes the event. Denials and failures are logged at warn level.
func (l *LogrusLogger) Log(ctx context.Context, event *AuditEvent) error {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"status":     event.Status,
		"timestamp":  event.Timestamp,
	}
	if event.UserID != nil {
		fields["user_id"] = *event.UserID
	}
	if event.TargetUserID != nil {
		fields["target_user_id"] = *event.TargetUserID
	}
	if event.ResourceType != "" {
		fields["resource_type"] = event.ResourceType
		fields["resource_id"] = event.ResourceID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Method != "" {
		fields["method"] = event.Method
		fields["path"] = event.Path
		fields["status_code"] = event.StatusCode
		fields["duration_ms"] = event.DurationMS
	}
	if event.Changes != nil {
		fields["changes"] = event.Changes
	}

	entry := l.entry.WithContext(ctx).WithFields(fields)
	if event.Status == EventStatusSuccess {
		entry.Info(event.Message)
	} else {
		entry.Warn(event.Message)
	}
	return nil
}

func (l *LogrusLogger) LogAuthorization(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	return l.Log(ctx, NewAuthorizationEvent(ctx, eventType, userID, resourceType, resourceID, status, message))
}

func (l *LogrusLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	return l.Log(ctx, NewDataMutationEvent(ctx, eventType, userID, resourceType, resourceID, changes, message))
}

func (l *LogrusLogger) LogAdminAction(ctx context.Context, eventType EventType, adminUserID *int64, targetUserID *int64, changes *ChangeDetails, message string) error {
	return l.Log(ctx, NewAdminActionEvent(ctx, eventType, adminUserID, targetUserID, changes, message))
}

// Close is a no-op; logrus writes synchronously
func (l *LogrusLogger) Close() error {
	return nil
}
