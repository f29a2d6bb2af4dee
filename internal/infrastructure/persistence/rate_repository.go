package persistence

import (
	"context"
	"time"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRateRepository implements sales.RateRepository using GORM
type GormRateRepository struct {
	db *gorm.DB
}

// NewGormRateRepository creates a new GormRateRepository
func NewGormRateRepository(db *gorm.DB) *GormRateRepository {
	return &GormRateRepository{db: db}
}

// RateForDate returns the rate recorded for the calendar day of date
func (r *GormRateRepository) RateForDate(ctx context.Context, date time.Time) (*sales.CurrencyRate, error) {
	day := sales.DateOnly(date)
	var model models.CurrencyRateModel
	if err := r.db.WithContext(ctx).First(&model, "effective_date = ?", day).Error; err != nil {
		return nil, notFoundOr("find currency rate", err,
			shared.ErrRateUnavailable.WithMessage("no exchange rate recorded for %s", day.Format(time.DateOnly)))
	}
	return model.ToDomain(), nil
}

// Save stores the rate of its day, replacing any earlier rate for that day
func (r *GormRateRepository) Save(ctx context.Context, rate *sales.CurrencyRate) error {
	model := models.CurrencyRateModelFromDomain(rate)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "effective_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_currency", "quote_currency", "rate", "recorded_at"}),
	}).Create(model).Error; err != nil {
		return storageError("save currency rate", err)
	}
	return nil
}

var _ sales.RateRepository = (*GormRateRepository)(nil)
