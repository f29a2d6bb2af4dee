package sales

import (
	"context"
	"time"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// RateService records and reads the daily conversion rate
type RateService struct {
	repo       sales.RateRepository
	settlement valueobject.Currency
	foreign    valueobject.Currency
	logger     *zap.Logger
}

// NewRateService creates a RateService. settlement and foreign fill in an
// omitted quote/base currency.
func NewRateService(repo sales.RateRepository, settlement, foreign valueobject.Currency, logger *zap.Logger) *RateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateService{repo: repo, settlement: settlement, foreign: foreign, logger: logger}
}

// SetRate records (or replaces) the rate of one day
func (s *RateService) SetRate(ctx context.Context, req RateRequest) (*RateResponse, error) {
	base, quote := s.foreign, s.settlement
	var err error
	if req.BaseCurrency != "" {
		if base, err = valueobject.ParseCurrency(req.BaseCurrency); err != nil {
			return nil, shared.ErrInvalidInput.WithMessage("%v", err)
		}
	}
	if req.QuoteCurrency != "" {
		if quote, err = valueobject.ParseCurrency(req.QuoteCurrency); err != nil {
			return nil, shared.ErrInvalidInput.WithMessage("%v", err)
		}
	}
	if quote != s.settlement {
		return nil, shared.ErrInvalidInput.WithMessage("rates must be quoted in the settlement currency %s", s.settlement)
	}

	rate, err := sales.NewCurrencyRate(req.Date, base, quote, req.Rate)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, rate); err != nil {
		s.logger.Error("Failed to save currency rate", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Currency rate recorded",
		zap.String("date", rate.EffectiveDate.Format(time.DateOnly)),
		zap.String("pair", base.String()+"/"+quote.String()),
		zap.String("rate", rate.Rate.String()))
	resp := ToRateResponse(rate)
	return &resp, nil
}

// GetRate returns the rate of a day, or ErrRateUnavailable
func (s *RateService) GetRate(ctx context.Context, date time.Time) (*RateResponse, error) {
	rate, err := s.repo.RateForDate(ctx, sales.DateOnly(date))
	if err != nil {
		return nil, err
	}
	resp := ToRateResponse(rate)
	return &resp, nil
}
