package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// storeFixture runs the same contract against both stores. expire moves the
// store's clock past every TTL.
type storeFixture struct {
	name   string
	store  shared.IdempotencyStore
	expire func(d time.Duration)
}

func idempotencyStores(t *testing.T) []storeFixture {
	t.Helper()

	mem := NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = mem.Close() })
	var offset atomic.Int64
	mem.now = func() time.Time { return time.Now().Add(time.Duration(offset.Load())) }

	mr, client := newMiniredisClient(t)

	return []storeFixture{
		{name: "memory", store: mem, expire: func(d time.Duration) { offset.Add(int64(d)) }},
		{name: "redis", store: NewRedisIdempotencyStore(client, ""), expire: mr.FastForward},
	}
}

func TestIdempotencyStore_Contract(t *testing.T) {
	ctx := context.Background()

	for _, f := range idempotencyStores(t) {
		t.Run(f.name, func(t *testing.T) {
			t.Run("first claim wins", func(t *testing.T) {
				ok, err := f.store.MarkProcessed(ctx, "kafka:evt-1", time.Hour)
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = f.store.MarkProcessed(ctx, "kafka:evt-1", time.Hour)
				require.NoError(t, err)
				assert.False(t, ok)

				processed, err := f.store.IsProcessed(ctx, "kafka:evt-1")
				require.NoError(t, err)
				assert.True(t, processed)
			})

			t.Run("release allows a retry", func(t *testing.T) {
				_, err := f.store.MarkProcessed(ctx, "kafka:evt-2", time.Hour)
				require.NoError(t, err)
				require.NoError(t, f.store.Release(ctx, "kafka:evt-2"))

				processed, err := f.store.IsProcessed(ctx, "kafka:evt-2")
				require.NoError(t, err)
				assert.False(t, processed)

				ok, err := f.store.MarkProcessed(ctx, "kafka:evt-2", time.Hour)
				require.NoError(t, err)
				assert.True(t, ok)
			})

			t.Run("claims expire", func(t *testing.T) {
				_, err := f.store.MarkProcessed(ctx, "kafka:evt-3", time.Minute)
				require.NoError(t, err)

				f.expire(2 * time.Minute)

				ok, err := f.store.MarkProcessed(ctx, "kafka:evt-3", time.Minute)
				require.NoError(t, err)
				assert.True(t, ok)
			})

			t.Run("unknown key", func(t *testing.T) {
				processed, err := f.store.IsProcessed(ctx, "never-seen")
				require.NoError(t, err)
				assert.False(t, processed)
				assert.NoError(t, f.store.Release(ctx, "never-seen"))
			})

			t.Run("concurrent claims", func(t *testing.T) {
				var wg sync.WaitGroup
				var won atomic.Int32
				for range 16 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						if ok, err := f.store.MarkProcessed(ctx, "kafka:race", time.Hour); err == nil && ok {
							won.Add(1)
						}
					}()
				}
				wg.Wait()
				assert.EqualValues(t, 1, won.Load())
			})
		})
	}
}

func TestRedisIdempotencyStore_KeyPrefix(t *testing.T) {
	mr, client := newMiniredisClient(t)
	store := NewRedisIdempotencyStore(client, "test:")

	_, err := store.MarkProcessed(context.Background(), "evt", time.Hour)
	require.NoError(t, err)

	assert.True(t, mr.Exists("test:evt"))
	assert.Equal(t, time.Hour, mr.TTL("test:evt"))
}

func TestRedisIdempotencyStore_Unavailable(t *testing.T) {
	mr, client := newMiniredisClient(t)
	store := NewRedisIdempotencyStore(client, "")
	mr.Close()

	_, err := store.MarkProcessed(context.Background(), "evt", time.Hour)
	assert.Error(t, err)
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	for i := range 3 {
		_, err := store.MarkProcessed(ctx, fmt.Sprintf("short-%d", i), time.Millisecond)
		require.NoError(t, err)
	}
	_, err := store.MarkProcessed(ctx, "long", time.Hour)
	require.NoError(t, err)
	require.Equal(t, 4, store.Size())

	store.now = func() time.Time { return time.Now().Add(time.Minute) }
	store.sweep()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore(0)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
