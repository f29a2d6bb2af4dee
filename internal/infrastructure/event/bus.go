package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/erp/shopcore/internal/domain/shared"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrBusStopped = errors.New("event bus is stopped")

// InMemoryEventBus fans delivered outbox events out to in-process handlers.
// Only the outbox processor publishes into it.
type InMemoryEventBus struct {
	handlers *HandlerRegistry
	log      *zap.Logger
	stopped  atomic.Bool
}

func NewInMemoryEventBus(log *zap.Logger) *InMemoryEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryEventBus{handlers: NewHandlerRegistry(), log: log.Named("bus")}
}

// Publish runs every matching handler inline, each one even after another
// fails. Any failure fails the call so the outbox entry is retried.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	var err error
	for _, ev := range events {
		for _, h := range b.handlers.GetHandlers(ev.EventType()) {
			herr := safeHandle(ctx, h, ev)
			if herr == nil {
				continue
			}
			b.log.Error("Event handler failed",
				zap.String("event_type", ev.EventType()),
				zap.Stringer("event_id", ev.EventID()),
				zap.Error(herr),
			)
			err = multierr.Append(err, herr)
		}
	}
	return err
}

func safeHandle(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked on %s: %v", ev.EventType(), r)
		}
	}()
	return h.Handle(ctx, ev)
}

// Subscribe falls back to handler.EventTypes when no types are passed. No
// types at all subscribes to every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.handlers.Register(handler, eventTypes...)
	b.log.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.handlers.Unregister(handler)
}

func (b *InMemoryEventBus) Start(context.Context) error {
	b.stopped.Store(false)
	b.log.Info("Event bus started", zap.Int("handlers", b.handlers.Len()))
	return nil
}

// Stop makes Publish fail with ErrBusStopped until the next Start.
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.stopped.Store(true)
	b.log.Info("Event bus stopped")
	return nil
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
