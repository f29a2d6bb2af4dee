package event

import (
	"context"
	"sync/atomic"

	"github.com/erp/shopcore/internal/domain/shared"
	"go.uber.org/zap"
)

type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler runs its inner handler at most once per event id. An
// outbox entry is only SENT after every handler succeeds, so a retry caused
// by one handler reaches the others a second time; the claim keyed on
// handler name and event id absorbs it. A failed run releases its claim.
type IdempotentHandler struct {
	name  string
	inner shared.EventHandler
	store shared.IdempotencyStore
	cfg   shared.IdempotencyConfig
	log   *zap.Logger

	counts [3]atomic.Int64
}

type outcome int

const (
	handled outcome = iota
	skipped
	failed
)

type IdempotentHandlerOption func(*IdempotentHandler)

func WithIdempotencyConfig(cfg shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.cfg = cfg }
}

// NewIdempotentHandler wraps inner. name must be unique on the bus.
func NewIdempotentHandler(name string, inner shared.EventHandler, store shared.IdempotencyStore, log *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &IdempotentHandler{
		name:  name,
		inner: inner,
		store: store,
		cfg:   shared.DefaultIdempotencyConfig(),
		log:   log.With(zap.String("handler", name)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string { return h.inner.EventTypes() }

func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.cfg.Enabled {
		return h.inner.Handle(ctx, event)
	}

	key := h.name + ":" + event.EventID().String()
	log := h.log.With(zap.Stringer("event_id", event.EventID()), zap.String("event_type", event.EventType()))

	claimed, err := h.store.MarkProcessed(ctx, key, h.cfg.TTL)
	switch {
	case err != nil:
		// run unclaimed: a duplicate beats a lost event
		log.Warn("Idempotency check failed, handling anyway", zap.Error(err))
	case !claimed:
		h.count(skipped)
		log.Debug("Duplicate event skipped")
		return nil
	}

	if err := h.inner.Handle(ctx, event); err != nil {
		h.count(failed)
		if claimed {
			h.release(ctx, key, log)
		}
		return err
	}
	h.count(handled)
	return nil
}

func (h *IdempotentHandler) release(ctx context.Context, key string, log *zap.Logger) {
	if err := h.store.Release(ctx, key); err != nil {
		log.Error("Releasing idempotency claim failed; retry will be skipped until it expires", zap.Error(err))
	}
}

func (h *IdempotentHandler) count(o outcome) { h.counts[o].Add(1) }

func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: h.counts[handled].Load(),
		EventsDuplicate: h.counts[skipped].Load(),
		EventsFailed:    h.counts[failed].Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
