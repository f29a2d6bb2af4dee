package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is where an entry is in delivery. SENT and DEAD are terminal
// until an operator resets a DEAD entry.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	maxBackoff         = 5 * time.Minute
)

// OutboxEntry is a serialized event written with the posting or sale that
// raised it, awaiting relay to the bus.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry is PENDING with the default retry budget.
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	e := &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
	}
	e.CreatedAt = e.touch()
	return e
}

// claimable lists the states delivery may start from.
var claimable = map[OutboxStatus]bool{
	OutboxStatusPending: true,
	OutboxStatusFailed:  true,
}

func (e *OutboxEntry) touch() time.Time {
	e.UpdatedAt = time.Now().UTC()
	return e.UpdatedAt
}

// MarkProcessing claims the entry for delivery.
func (e *OutboxEntry) MarkProcessing() error {
	if !claimable[e.Status] {
		return ErrInvalidState.WithMessage("outbox entry %s is %s and cannot be claimed", e.ID, e.Status)
	}
	e.Status = OutboxStatusProcessing
	e.touch()
	return nil
}

func (e *OutboxEntry) MarkSent() {
	at := e.touch()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &at
}

// MarkFailed spends one retry. With budget left the entry is FAILED and due
// again after RetryBackoff; otherwise it is DEAD.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	at := e.touch()
	e.RetryCount++
	e.LastError = errMsg
	e.NextRetryAt = nil

	if e.RetryCount < e.MaxRetries {
		e.Status = OutboxStatusFailed
		due := at.Add(RetryBackoff(e.RetryCount))
		e.NextRetryAt = &due
		return
	}
	e.Status = OutboxStatusDead
}

// RetryBackoff doubles from DefaultBaseBackoff for each retry n (1-based),
// capped at five minutes.
func RetryBackoff(n int) time.Duration {
	n = max(n, 1)
	if n > 20 {
		return maxBackoff
	}
	return min(DefaultBaseBackoff<<(n-1), maxBackoff)
}

func (e *OutboxEntry) IsDead() bool { return e.Status == OutboxStatusDead }

// ResetForRetry returns a DEAD entry to PENDING with a fresh budget.
func (e *OutboxEntry) ResetForRetry() error {
	if !e.IsDead() {
		return ErrInvalidState.WithMessage("outbox entry %s is %s; only dead entries can be retried", e.ID, e.Status)
	}
	e.Status = OutboxStatusPending
	e.RetryCount, e.LastError, e.NextRetryAt = 0, "", nil
	e.touch()
	return nil
}

// OutboxRepository is the storage behind the publisher, processor and the
// outbox endpoints.
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing claims entries atomically and returns the ones this caller won
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
