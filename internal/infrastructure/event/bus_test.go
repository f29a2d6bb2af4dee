package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.EventMeta
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		EventMeta: shared.NewEventMeta(eventType, "TestAggregate", uuid.New()),
		Data:      "test data",
	}
}

// testHandler records what it handled and optionally fails
type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("sales.SaleCreated")
	bus.Subscribe(handler)

	event := newTestEvent("sales.SaleCreated")
	require.NoError(t, bus.Publish(context.Background(), event))

	handled := handler.getHandled()
	require.Len(t, handled, 1)
	assert.Equal(t, event, handled[0])
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ledgerHandler := newTestHandler("ledger.PostingRecorded")
	salesHandler := newTestHandler("sales.SaleCreated")
	wildcard := newTestHandler()
	bus.Subscribe(ledgerHandler)
	bus.Subscribe(salesHandler)
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("ledger.PostingRecorded"),
		newTestEvent("ledger.PostingRecorded"),
		newTestEvent("sales.SaleCreated"),
	))

	assert.Len(t, ledgerHandler.getHandled(), 2)
	assert.Len(t, salesHandler.getHandled(), 1)
	assert.Len(t, wildcard.getHandled(), 3)
}

func TestInMemoryEventBus_HandlerErrorIsReturned(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newTestHandler("sales.SaleCreated")
	failing.err = errors.New("broker down")
	healthy := newTestHandler("sales.SaleCreated")
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("sales.SaleCreated"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, healthy.getHandled(), 1, "the other handlers still run")
}

func TestInMemoryEventBus_PanicBecomesError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	handler.panicWith = "boom"
	bus.Subscribe(handler)

	err := bus.Publish(context.Background(), newTestEvent("sales.SaleCreated"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("sales.SaleCreated")
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("sales.SaleCreated")))
	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("sales.SaleCreated")))

	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StoppedRejectsPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.Stop(ctx))
	assert.ErrorIs(t, bus.Publish(ctx, newTestEvent("sales.SaleCreated")), ErrBusStopped)

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, newTestEvent("sales.SaleCreated")))
}
