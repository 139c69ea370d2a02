package events

import "time"

// Lifecycle event codes emitted on the bus.
const (
	TypeSessionStarted   = "SESSION_STARTED"
	TypeSessionCompleted = "SESSION_COMPLETED"
	TypeSessionCancelled = "SESSION_CANCELLED"
	TypeSessionFailed    = "SESSION_FAILED"
	TypeLessonPublished  = "LESSON_PUBLISHED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the standard Event implementation.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewSessionEvent builds a lifecycle event for a generation session.
func NewSessionEvent(eventType, sessionId, stage, message string) BaseEvent {
	return BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"stage":      stage,
			"message":    message,
		},
		OccurredAt: time.Now(),
	}
}

// NewLessonPublished builds the event emitted when finalize creates a lesson.
func NewLessonPublished(sessionId, lessonId string) BaseEvent {
	return BaseEvent{
		Type: TypeLessonPublished,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"lesson_id":  lessonId,
		},
		OccurredAt: time.Now(),
	}
}
