package audit

import (
	"context"
	"time"
)

// Recorder is the interface audit sinks implement. Record must be safe for
// concurrent use. A Record failure must never cause the audited operation to
// fail; callers log and escalate instead.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
	Close() error
}

// NewEvent builds an event with the timestamp set.
func NewEvent(actorID, actorRole, action, resourceKind, resourceID string, status EventStatus) *Event {
	return &Event{
		Timestamp:    time.Now().UTC(),
		Status:       status,
		ActorID:      actorID,
		ActorRole:    actorRole,
		Action:       action,
		ResourceKind: resourceKind,
		ResourceID:   resourceID,
	}
}

// NopRecorder discards all events. Used when no sink is configured.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, event *Event) error { return nil }
func (NopRecorder) Close() error                                   { return nil }
