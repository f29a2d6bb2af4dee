package event

import (
	"context"

	"github.com/erp/shopcore/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events into the outbox table as part of the
// caller's transaction. Nothing reaches a handler until that transaction has
// committed and the processor has relayed the rows.
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// WithMaxRetries sets the delivery attempts new entries get before they are
// dead-lettered. n <= 0 keeps shared.DefaultMaxRetries.
func (p *OutboxPublisher) WithMaxRetries(n int) *OutboxPublisher {
	p.maxRetries = n
	return p
}

// PublishWithTx serializes events and inserts them via tx
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return shared.NewStorageError("serialize event", err)
		}
		entry := shared.NewOutboxEntry(event, payload)
		if p.maxRetries > 0 {
			entry.MaxRetries = p.maxRetries
		}
		entries = append(entries, entry)
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// ForTx binds the publisher to tx, for handing out from a transaction scope
func (p *OutboxPublisher) ForTx(tx *gorm.DB) shared.EventPublisher {
	return &txPublisher{outbox: p, tx: tx}
}

type txPublisher struct {
	outbox *OutboxPublisher
	tx     *gorm.DB
}

func (t *txPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return t.outbox.PublishWithTx(ctx, t.tx, events...)
}
