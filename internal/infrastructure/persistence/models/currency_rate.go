package models

import (
	"time"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CurrencyRateModel holds the conversion rate of one calendar day.
// The date is the key, so saving a rate for a day replaces the previous one.
type CurrencyRateModel struct {
	EffectiveDate time.Time            `gorm:"type:date;primaryKey"`
	BaseCurrency  valueobject.Currency `gorm:"type:char(3);not null"`
	QuoteCurrency valueobject.Currency `gorm:"type:char(3);not null"`
	Rate          decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	RecordedAt    time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CurrencyRateModel) TableName() string {
	return "currency_rates"
}

// ToDomain converts the persistence model to a domain CurrencyRate
func (m *CurrencyRateModel) ToDomain() *sales.CurrencyRate {
	return &sales.CurrencyRate{
		EffectiveDate: sales.DateOnly(m.EffectiveDate.UTC()),
		BaseCurrency:  m.BaseCurrency,
		QuoteCurrency: m.QuoteCurrency,
		Rate:          m.Rate,
		RecordedAt:    m.RecordedAt,
	}
}

// CurrencyRateModelFromDomain creates a new persistence model from a domain CurrencyRate
func CurrencyRateModelFromDomain(r *sales.CurrencyRate) *CurrencyRateModel {
	return &CurrencyRateModel{
		EffectiveDate: sales.DateOnly(r.EffectiveDate),
		BaseCurrency:  r.BaseCurrency,
		QuoteCurrency: r.QuoteCurrency,
		Rate:          r.Rate,
		RecordedAt:    r.RecordedAt,
	}
}
