package sales

import (
	"context"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CurrencyRate is the conversion rate in effect for one calendar day:
// Rate units of QuoteCurrency (settlement) per one unit of BaseCurrency (foreign).
type CurrencyRate struct {
	EffectiveDate time.Time
	BaseCurrency  valueobject.Currency
	QuoteCurrency valueobject.Currency
	Rate          decimal.Decimal
	RecordedAt    time.Time
}

// NewCurrencyRate validates and creates a rate for the given day
func NewCurrencyRate(date time.Time, base, quote valueobject.Currency, rate decimal.Decimal) (*CurrencyRate, error) {
	if date.IsZero() {
		return nil, shared.ErrInvalidInput.WithMessage("effective date is required")
	}
	if !base.IsValid() || !quote.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("unsupported currency pair %s/%s", base, quote)
	}
	if base == quote {
		return nil, shared.ErrInvalidInput.WithMessage("base and quote currency must differ")
	}
	if !rate.IsPositive() {
		return nil, shared.ErrInvalidInput.WithMessage("rate must be greater than zero")
	}
	if !valueobject.HasScale(rate, valueobject.InputScale) {
		return nil, shared.ErrInvalidInput.WithMessage("rate has more than %d decimal places", valueobject.InputScale)
	}
	return &CurrencyRate{
		EffectiveDate: DateOnly(date),
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Rate:          rate,
		RecordedAt:    time.Now().UTC(),
	}, nil
}

// RateProvider supplies the same-day conversion rate.
// An absent rate is reported as shared.ErrRateUnavailable.
type RateProvider interface {
	RateForDate(ctx context.Context, date time.Time) (*CurrencyRate, error)
}

// RateRepository stores the daily rates; Save replaces the rate of that day.
type RateRepository interface {
	RateProvider
	Save(ctx context.Context, rate *CurrencyRate) error
}

// DateOnly truncates t to midnight UTC of its calendar day in t's own location
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
