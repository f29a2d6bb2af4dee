package persistence

import (
	"context"

	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPostingRepository implements ledger.PostingRepository using GORM.
// Postings are append-only; the repository has no update or delete path.
type GormPostingRepository struct {
	db *gorm.DB
}

// NewGormPostingRepository creates a new GormPostingRepository
func NewGormPostingRepository(db *gorm.DB) *GormPostingRepository {
	return &GormPostingRepository{db: db}
}

// Create appends a posting
func (r *GormPostingRepository) Create(ctx context.Context, posting *ledger.Posting) error {
	if err := r.db.WithContext(ctx).Create(models.PostingModelFromDomain(posting)).Error; err != nil {
		if isDuplicateKey(err) {
			// Two writers assigned the same sequence: the account lock was not held
			return shared.NewStorageError("create posting", ErrConcurrentUpdate)
		}
		return storageError("create posting", err)
	}
	return nil
}

// ListByAccount returns one page of postings, most recent first
func (r *GormPostingRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, page shared.Page) ([]ledger.Posting, error) {
	var rows []models.PostingModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("sequence DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error; err != nil {
		return nil, storageError("list postings", err)
	}
	return toDomainPostings(rows), nil
}

// CountByAccount counts the postings of one account
func (r *GormPostingRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PostingModel{}).
		Where("account_id = ?", accountID).
		Count(&count).Error; err != nil {
		return 0, storageError("count postings", err)
	}
	return count, nil
}

// ListAllByAccountAscending returns every posting in sequence order
func (r *GormPostingRepository) ListAllByAccountAscending(ctx context.Context, accountID uuid.UUID) ([]ledger.Posting, error) {
	var rows []models.PostingModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, storageError("replay postings", err)
	}
	return toDomainPostings(rows), nil
}

func toDomainPostings(rows []models.PostingModel) []ledger.Posting {
	postings := make([]ledger.Posting, len(rows))
	for i := range rows {
		postings[i] = rows[i].ToDomain()
	}
	return postings
}

var _ ledger.PostingRepository = (*GormPostingRepository)(nil)
