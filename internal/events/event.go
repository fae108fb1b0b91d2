// Package events provides the in-process pub/sub bus the query cache uses to
// notify observers.
package events

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is the base interface all events implement.
type Event interface {
	EventID() string
	EventType() string
	Topic() string // query key hash, or mutation name
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	ID        string    `json:"id"` // ULID, sortable by time
	Type      string    `json:"type"`
	TopicKey  string    `json:"topic"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) Topic() string         { return e.TopicKey }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a BaseEvent with the current timestamp.
func NewBaseEvent(eventType, topic string) BaseEvent {
	return BaseEvent{
		ID:        ulid.Make().String(),
		Type:      eventType,
		TopicKey:  topic,
		Timestamp: time.Now(),
	}
}
