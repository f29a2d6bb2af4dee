package shared

import "context"

// EventHandler consumes committed events, such as the Kafka relay. EventTypes
// lists what it wants; empty means every type.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher is what services publish through. Bound to a transaction
// scope it writes outbox rows, so a rolled-back posting or sale never emits.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the in-process fan-out the outbox processor delivers into.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
