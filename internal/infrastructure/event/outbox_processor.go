package event

import (
	"context"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OutboxProcessorConfig tunes the relay. Zero values take the defaults of
// DefaultOutboxProcessorConfig.
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     2 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

func (c OutboxProcessorConfig) withDefaults() OutboxProcessorConfig {
	d := DefaultOutboxProcessorConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.CleanupRetention <= 0 {
		c.CleanupRetention = d.CleanupRetention
	}
	return c
}

// OutboxProcessor moves committed outbox rows onto the event bus. Delivery is
// at least once: a crash after Publish and before the SENT update replays the
// entry, which the idempotent handlers absorb.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	cfg        OutboxProcessorConfig
	log        *zap.Logger

	cancel context.CancelFunc
	loops  *errgroup.Group
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	cfg OutboxProcessorConfig,
	log *zap.Logger,
) *OutboxProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		cfg:        cfg.withDefaults(),
		log:        log.Named("outbox"),
	}
}

// Start runs the relay loop, plus the cleanup loop when enabled, until Stop
// or until ctx ends.
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	p.loops, ctx = errgroup.WithContext(ctx)

	p.loops.Go(func() error {
		return every(ctx, p.cfg.PollInterval, func() {
			if _, err := p.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				p.log.Error("Outbox batch failed", zap.Error(err))
			}
		})
	})
	if p.cfg.CleanupEnabled {
		p.loops.Go(func() error {
			return every(ctx, p.cfg.CleanupInterval, func() { p.cleanup(ctx) })
		})
	}

	p.log.Info("Outbox processor started",
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Bool("cleanup", p.cfg.CleanupEnabled),
	)
	return nil
}

// every calls fn on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			fn()
		}
	}
}

// Stop cancels both loops and waits for the batch in flight, or for ctx.
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	done := make(chan error, 1)
	go func() { done <- p.loops.Wait() }()
	select {
	case err := <-done:
		p.log.Info("Outbox processor stopped")
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessOnce relays a batch of new entries, then a batch of failed entries
// whose backoff has elapsed, and returns how many were delivered.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (int, error) {
	pending, err := p.repo.FindPending(ctx, p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	sent := p.relay(ctx, pending)

	due, err := p.repo.FindRetryable(ctx, time.Now().UTC(), p.cfg.BatchSize)
	if err != nil {
		return sent, err
	}
	return sent + p.relay(ctx, due), nil
}

func (p *OutboxProcessor) relay(ctx context.Context, batch []*shared.OutboxEntry) int {
	if len(batch) == 0 {
		return 0
	}
	ids := make([]uuid.UUID, 0, len(batch))
	for _, e := range batch {
		ids = append(ids, e.ID)
	}

	// a concurrent relay may win some of the claims
	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.log.Error("Failed to claim outbox entries", zap.Int("entries", len(ids)), zap.Error(err))
		return 0
	}

	sent := 0
	for _, entry := range claimed {
		if p.deliver(ctx, entry) {
			sent++
		}
	}
	return sent
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) bool {
	ev, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		p.recordFailure(ctx, entry, "deserialize", err)
		return false
	}
	if err := p.bus.Publish(ctx, ev); err != nil {
		p.recordFailure(ctx, entry, "publish", err)
		return false
	}

	entry.MarkSent()
	if err := p.repo.Update(ctx, entry); err != nil {
		p.log.Error("Delivered outbox entry not marked sent", entryFields(entry, zap.Error(err))...)
		return false
	}
	p.log.Debug("Outbox entry delivered", entryFields(entry)...)
	return true
}

// recordFailure counts the attempt. The entry is rescheduled, or dead once
// its retry budget is spent.
func (p *OutboxProcessor) recordFailure(ctx context.Context, entry *shared.OutboxEntry, stage string, cause error) {
	entry.MarkFailed(cause.Error())

	fields := entryFields(entry,
		zap.String("stage", stage),
		zap.Int("retry_count", entry.RetryCount),
		zap.Error(cause),
	)
	if entry.IsDead() {
		p.log.Error("Outbox entry dead-lettered", fields...)
	} else {
		p.log.Warn("Outbox delivery failed", append(fields, zap.Timep("next_retry_at", entry.NextRetryAt))...)
	}

	if err := p.repo.Update(ctx, entry); err != nil {
		p.log.Error("Failed to record outbox failure", entryFields(entry, zap.Error(err))...)
	}
}

func entryFields(entry *shared.OutboxEntry, extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.Stringer("event_id", entry.EventID),
		zap.String("event_type", entry.EventType),
		zap.Stringer("aggregate_id", entry.AggregateID),
	}, extra...)
}

// cleanup deletes SENT entries older than the retention window.
func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.cfg.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	switch {
	case err != nil:
		p.log.Error("Outbox cleanup failed", zap.Error(err))
	case deleted > 0:
		p.log.Info("Outbox cleaned up", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}
