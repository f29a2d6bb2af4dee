package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormShopMetricsProvider implements ShopMetricsProvider using GORM.
// It aggregates the sales and products tables directly.
type GormShopMetricsProvider struct {
	db *gorm.DB
}

// NewGormShopMetricsProvider creates a new GormShopMetricsProvider.
func NewGormShopMetricsProvider(db *gorm.DB) *GormShopMetricsProvider {
	return &GormShopMetricsProvider{db: db}
}

// OutstandingReceivables sums remaining balances per currency.
func (p *GormShopMetricsProvider) OutstandingReceivables(ctx context.Context) ([]ReceivableTotals, error) {
	type result struct {
		Currency  string          `gorm:"column:currency"`
		Customers int64           `gorm:"column:customers"`
		Remaining decimal.Decimal `gorm:"column:remaining"`
	}

	var rows []result
	err := p.db.WithContext(ctx).
		Table("sales").
		Select("currency, COUNT(DISTINCT customer_id) AS customers, COALESCE(SUM(remaining), 0) AS remaining").
		Where("remaining > 0").
		Group("currency").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]ReceivableTotals, 0, len(rows))
	for _, r := range rows {
		totals = append(totals, ReceivableTotals(r))
	}
	return totals, nil
}

// AvailableProducts counts products that can still be sold.
func (p *GormShopMetricsProvider) AvailableProducts(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("products").
		Where("status = ?", "available").
		Count(&count).Error
	return count, err
}
