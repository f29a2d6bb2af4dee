package persistence

import (
	"context"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReturnRepository implements sales.ReturnRepository using GORM
type GormReturnRepository struct {
	db *gorm.DB
}

// NewGormReturnRepository creates a new GormReturnRepository
func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// Create inserts a return record
func (r *GormReturnRepository) Create(ctx context.Context, ret *sales.Return) error {
	if err := r.db.WithContext(ctx).Create(models.ReturnModelFromDomain(ret)).Error; err != nil {
		return storageError("create return", err)
	}
	return nil
}

// ListBySale returns the returns of one sale, oldest first
func (r *GormReturnRepository) ListBySale(ctx context.Context, saleID uuid.UUID) ([]*sales.Return, error) {
	var rows []models.ReturnModel
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("returned_at ASC").
		Find(&rows).Error; err != nil {
		return nil, storageError("list returns", err)
	}
	result := make([]*sales.Return, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

var _ sales.ReturnRepository = (*GormReturnRepository)(nil)
