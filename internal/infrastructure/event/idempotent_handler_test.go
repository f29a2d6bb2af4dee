package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *cache.InMemoryIdempotencyStore {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// brokenStore fails every call
type brokenStore struct{}

func (brokenStore) MarkProcessed(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (brokenStore) Release(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func (brokenStore) IsProcessed(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (brokenStore) Close() error { return nil }

func TestIdempotentHandler_SkipsRedelivery(t *testing.T) {
	inner := newTestHandler("sales.SaleCreated")
	h := NewIdempotentHandler("kafka", inner, newMemoryStore(t), nil)
	event := newTestEvent("sales.SaleCreated")
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, event))
	require.NoError(t, h.Handle(ctx, event))
	require.NoError(t, h.Handle(ctx, newTestEvent("sales.SaleCreated")))

	assert.Len(t, inner.getHandled(), 2)
	assert.Equal(t, IdempotencyStats{EventsProcessed: 2, EventsDuplicate: 1}, h.Stats())
	assert.Equal(t, []string{"sales.SaleCreated"}, h.EventTypes())
}

func TestIdempotentHandler_FailureReleasesClaim(t *testing.T) {
	inner := newTestHandler()
	inner.err = errors.New("kafka: leader not available")
	store := newMemoryStore(t)
	h := NewIdempotentHandler("kafka", inner, store, nil)
	event := newTestEvent("ledger.PostingRecorded")
	ctx := context.Background()

	require.Error(t, h.Handle(ctx, event))
	processed, err := store.IsProcessed(ctx, "kafka:"+event.EventID().String())
	require.NoError(t, err)
	assert.False(t, processed)

	inner.err = nil
	require.NoError(t, h.Handle(ctx, event))
	assert.Len(t, inner.getHandled(), 2, "the retry reaches the handler")
	assert.Equal(t, int64(1), h.Stats().EventsFailed)
}

func TestIdempotentHandler_ClaimsAreScopedPerHandler(t *testing.T) {
	store := newMemoryStore(t)
	audit := newTestHandler()
	kafka := newTestHandler()
	kafka.err = errors.New("broker down")

	bus := NewInMemoryEventBus(nil)
	bus.Subscribe(NewIdempotentHandler("audit", audit, store, nil))
	bus.Subscribe(NewIdempotentHandler("kafka", kafka, store, nil))
	event := newTestEvent("sales.LineItemReturned")
	ctx := context.Background()

	require.Error(t, bus.Publish(ctx, event))
	kafka.err = nil
	require.NoError(t, bus.Publish(ctx, event), "the outbox retry")

	assert.Len(t, audit.getHandled(), 1, "the handler that succeeded is not repeated")
	assert.Len(t, kafka.getHandled(), 2)
}

func TestIdempotentHandler_StoreFailureStillDelivers(t *testing.T) {
	inner := newTestHandler()
	h := NewIdempotentHandler("kafka", inner, brokenStore{}, nil)

	require.NoError(t, h.Handle(context.Background(), newTestEvent("sales.SaleCreated")))
	assert.Len(t, inner.getHandled(), 1)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	inner := newTestHandler()
	h := NewIdempotentHandler("kafka", inner, newMemoryStore(t), nil,
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
	event := newTestEvent("sales.SaleCreated")

	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))
	assert.Len(t, inner.getHandled(), 2)
}
