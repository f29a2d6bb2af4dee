package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultRateKeyPrefix = "shop:rate:"
	defaultRateTTL       = time.Hour
)

// cachedRate is the Redis representation of a daily rate
type cachedRate struct {
	Base       string          `json:"base"`
	Quote      string          `json:"quote"`
	Rate       decimal.Decimal `json:"rate"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// RateCache is a read-through, write-through Redis cache in front of a
// sales.RateRepository. Absent rates are never cached so a rate recorded by
// another instance is visible at once. Redis failures degrade to the
// underlying repository.
type RateCache struct {
	next      sales.RateRepository
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
	logger    *zap.Logger
}

// NewRateCache wraps next. A ttl <= 0 selects one hour.
func NewRateCache(next sales.RateRepository, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RateCache {
	if ttl <= 0 {
		ttl = defaultRateTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateCache{
		next:      next,
		client:    client,
		ttl:       ttl,
		keyPrefix: defaultRateKeyPrefix,
		logger:    logger.Named("rate_cache"),
	}
}

func (c *RateCache) key(day time.Time) string {
	return c.keyPrefix + day.Format(time.DateOnly)
}

// RateForDate serves the day's rate from Redis, loading it on a miss
func (c *RateCache) RateForDate(ctx context.Context, date time.Time) (*sales.CurrencyRate, error) {
	day := sales.DateOnly(date)
	key := c.key(day)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		rate, decodeErr := decodeRate(day, raw)
		if decodeErr == nil {
			return rate, nil
		}
		c.logger.Warn("Discarding undecodable cached rate", zap.String("key", key), zap.Error(decodeErr))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Rate cache read failed, using database", zap.String("key", key), zap.Error(err))
	}

	rate, err := c.next.RateForDate(ctx, day)
	if err != nil {
		return nil, err
	}
	c.store(ctx, rate)
	return rate, nil
}

// Save writes through to the repository, then refreshes the cached day
func (c *RateCache) Save(ctx context.Context, rate *sales.CurrencyRate) error {
	if err := c.next.Save(ctx, rate); err != nil {
		return err
	}
	c.store(ctx, rate)
	return nil
}

// store caches rate; if that fails the stale entry is dropped instead
func (c *RateCache) store(ctx context.Context, rate *sales.CurrencyRate) {
	key := c.key(rate.EffectiveDate)
	payload, err := json.Marshal(cachedRate{
		Base:       rate.BaseCurrency.String(),
		Quote:      rate.QuoteCurrency.String(),
		Rate:       rate.Rate,
		RecordedAt: rate.RecordedAt,
	})
	if err == nil {
		err = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	if err == nil {
		return
	}
	c.logger.Warn("Rate cache write failed", zap.String("key", key), zap.Error(err))
	if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
		c.logger.Error("Rate cache entry may be stale", zap.String("key", key), zap.Error(delErr))
	}
}

func decodeRate(day time.Time, raw []byte) (*sales.CurrencyRate, error) {
	var cr cachedRate
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, err
	}
	base, quote := valueobject.Currency(cr.Base), valueobject.Currency(cr.Quote)
	if !base.IsValid() || !quote.IsValid() || !cr.Rate.IsPositive() {
		return nil, errors.New("invalid cached rate")
	}
	return &sales.CurrencyRate{
		EffectiveDate: day,
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Rate:          cr.Rate,
		RecordedAt:    cr.RecordedAt,
	}, nil
}

var _ sales.RateRepository = (*RateCache)(nil)
