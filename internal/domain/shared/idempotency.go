package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which (handler, event) pairs have been handled.
// The outbox relays at least once, so handlers use it to skip redeliveries.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when the key is
	// already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim so a failed delivery can be retried
	Release(ctx context.Context, key string) error

	IsProcessed(ctx context.Context, key string) (bool, error)

	Close() error
}

// IdempotencyConfig configures idempotent event handling
type IdempotencyConfig struct {
	// TTL must outlast the outbox retry window
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps claims for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
