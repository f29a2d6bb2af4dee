package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate. Events leave the process
// only through the outbox, after the recording transaction commits.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// EventMeta carries the identity and origin every event embeds. The JSON
// names are part of the outbox payload format.
type EventMeta struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"type"`
	At         time.Time `json:"timestamp"`
	SourceID   uuid.UUID `json:"aggregate_id"`
	SourceType string    `json:"aggregate_type"`
}

// NewEventMeta stamps a fresh event id and the current UTC time.
func NewEventMeta(eventType, aggType string, aggID uuid.UUID) EventMeta {
	return EventMeta{
		ID:         uuid.New(),
		Name:       eventType,
		At:         time.Now().UTC(),
		SourceID:   aggID,
		SourceType: aggType,
	}
}

func (m *EventMeta) EventID() uuid.UUID     { return m.ID }
func (m *EventMeta) EventType() string      { return m.Name }
func (m *EventMeta) OccurredAt() time.Time  { return m.At }
func (m *EventMeta) AggregateID() uuid.UUID { return m.SourceID }
func (m *EventMeta) AggregateType() string  { return m.SourceType }
