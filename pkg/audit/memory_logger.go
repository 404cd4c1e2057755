package audit

import (
	"context"
	"sync"
)

// MemoryLogger keeps events in memory. Tests use it to assert on what was recorded.
type MemoryLogger struct {
	mu     sync.Mutex
	events []*AuditEvent
}

// NewMemoryLogger creates an empty in-memory audit logger
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(ctx context.Context, event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *MemoryLogger) LogAuthorization(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	return l.Log(ctx, NewAuthorizationEvent(ctx, eventType, userID, resourceType, resourceID, status, message))
}

func (l *MemoryLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	return l.Log(ctx, NewDataMutationEvent(ctx, eventType, userID, resourceType, resourceID, changes, message))
}

func (l *MemoryLogger) LogAdminAction(ctx context.Context, eventType EventType, adminUserID *int64, targetUserID *int64, changes *ChangeDetails, message string) error {
	return l.Log(ctx, NewAdminActionEvent(ctx, eventType, adminUserID, targetUserID, changes, message))
}

func (l *MemoryLogger) Close() error { return nil }

// Events returns a copy of the recorded events
func (l *MemoryLogger) Events() []*AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*AuditEvent, len(l.events))
	copy(out, l.events)
	return out
}

// EventsOfType returns recorded events with the given type
func (l *MemoryLogger) EventsOfType(eventType EventType) []*AuditEvent {
	var out []*AuditEvent
	for _, e := range l.Events() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
