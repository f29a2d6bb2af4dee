// Package event exposes operator actions on the event relay's outbox.
package event

import (
	"context"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxAdminRepository is the outbox persistence the admin operations need
type OutboxAdminRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	FindDead(ctx context.Context, page shared.Page) ([]*shared.OutboxEntry, int64, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// OutboxService lists and revives dead-lettered events. Postings and sales
// never wait on it: a dead entry only means Kafka has not seen the event yet.
type OutboxService struct {
	repo OutboxAdminRepository
	log  *zap.Logger
}

func NewOutboxService(repo OutboxAdminRepository, log *zap.Logger) *OutboxService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboxService{repo: repo, log: log.Named("outbox")}
}

// OutboxEntryDTO is the operator view of an outbox entry; the payload is omitted
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxListResult is one page of dead entries
type OutboxListResult struct {
	Entries []OutboxEntryDTO `json:"entries"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// OutboxStatsDTO counts entries per status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// ListDead returns dead entries, most recently failed first
func (s *OutboxService) ListDead(ctx context.Context, limit, offset int) (*OutboxListResult, error) {
	page := shared.NewPage(limit, offset)
	entries, total, err := s.repo.FindDead(ctx, page)
	if err != nil {
		s.log.Error("Failed to list dead outbox entries", zap.Error(err))
		return nil, err
	}
	res := &OutboxListResult{Entries: make([]OutboxEntryDTO, 0, len(entries)), Total: total, Limit: page.Limit, Offset: page.Offset}
	for _, entry := range entries {
		res.Entries = append(res.Entries, toOutboxEntryDTO(entry))
	}
	return res, nil
}

// RetryDead puts a dead entry back in the relay queue with a fresh retry budget
func (s *OutboxService) RetryDead(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.ErrInvalidState.WithMessage("outbox entry %s is %s; only dead entries can be retried", id, entry.Status)
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.log.Error("Failed to reset outbox entry", zap.Stringer("id", id), zap.Error(err))
		return nil, err
	}
	s.log.Info("Dead outbox entry queued for retry", zap.Stringer("id", id), zap.String("event_type", entry.EventType))
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDead requeues every dead entry and returns how many were reset.
// It keeps going past individual update failures.
func (s *OutboxService) RetryAllDead(ctx context.Context) (int64, error) {
	var count int64
	for {
		// reset entries leave the dead set, so the first page is always the next batch
		entries, _, err := s.repo.FindDead(ctx, shared.NewPage(shared.MaxPageSize, 0))
		if err != nil {
			return count, err
		}
		reset := 0
		for _, entry := range entries {
			if entry.ResetForRetry() != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.log.Error("Failed to reset outbox entry", zap.Stringer("id", entry.ID), zap.Error(err))
				continue
			}
			reset++
		}
		count += int64(reset)
		if len(entries) < shared.MaxPageSize || reset == 0 {
			break
		}
	}

	s.log.Info("Dead outbox entries queued for retry", zap.Int64("count", count))
	return count, nil
}

// Stats counts entries per status. Total includes statuses the DTO has no
// field for.
func (s *OutboxService) Stats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &OutboxStatsDTO{}
	for status, n := range counts {
		stats.Total += n
		switch status {
		case shared.OutboxStatusPending:
			stats.Pending = n
		case shared.OutboxStatusProcessing:
			stats.Processing = n
		case shared.OutboxStatusSent:
			stats.Sent = n
		case shared.OutboxStatusFailed:
			stats.Failed = n
		case shared.OutboxStatusDead:
			stats.Dead = n
		}
	}
	return stats, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
