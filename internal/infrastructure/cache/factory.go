package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the Redis-backed components, or their single-instance
// fallbacks when Redis is disabled or unreachable.
type Factory struct {
	cfg                   config.RedisConfig
	client                *redis.Client
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory and what it builds
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis is tolerated.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a factory; call Connect before building components
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect opens and pings the Redis client when Redis is enabled
func (f *Factory) Connect(ctx context.Context) error {
	if !f.cfg.Enabled {
		f.logger.Info("Redis disabled, using in-process fallbacks")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.cfg.Addr(),
		Password: f.cfg.Password,
		DB:       f.cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !f.allowInMemoryFallback {
			return fmt.Errorf("connect to redis at %s: %w", f.cfg.Addr(), err)
		}
		f.logger.Warn("Redis unreachable, using in-process fallbacks. Relay deduplication is per instance.",
			zap.String("addr", f.cfg.Addr()),
			zap.Error(err))
		return nil
	}

	f.client = client
	f.logger.Info("Connected to Redis", zap.String("addr", f.cfg.Addr()), zap.Int("db", f.cfg.DB))
	return nil
}

// Client returns the connected client, nil when running without Redis
func (f *Factory) Client() *redis.Client {
	return f.client
}

// IdempotencyStore returns the shared store, or an in-memory one without Redis
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client == nil {
		return NewInMemoryIdempotencyStore(0)
	}
	return NewRedisIdempotencyStore(f.client, "")
}

// Rates puts the Redis rate cache in front of repo; without Redis repo is returned as is
func (f *Factory) Rates(repo sales.RateRepository, ttl time.Duration) sales.RateRepository {
	if f.client == nil {
		return repo
	}
	return NewRateCache(repo, f.client, ttl, f.logger)
}

// Close closes the Redis client if one was opened
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
