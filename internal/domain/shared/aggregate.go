package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the identity and timestamps of a persisted domain object.
type Entity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventRecorder is an aggregate whose mutations queue events for the outbox.
type EventRecorder interface {
	PendingEvents() []DomainEvent
	ClearEvents()
}

// Aggregate is embedded by Account and Sale. Version starts at 1 and each
// saved mutation bumps it; repositories reject a save whose version moved.
type Aggregate struct {
	Entity
	Version int
	pending []DomainEvent
}

func NewAggregate() Aggregate {
	now := time.Now().UTC()
	return Aggregate{
		Entity:  Entity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Version: 1,
	}
}

// Bump marks a mutation: UpdatedAt moves to now and Version goes up by one.
func (a *Aggregate) Bump() {
	a.UpdatedAt = time.Now().UTC()
	a.Version++
}

func (a *Aggregate) Record(event DomainEvent) {
	a.pending = append(a.pending, event)
}

func (a *Aggregate) PendingEvents() []DomainEvent { return a.pending }

func (a *Aggregate) ClearEvents() { a.pending = nil }
