package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	salesapp "github.com/erp/shopcore/internal/application/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockRateService implements RateService for testing
type MockRateService struct {
	mock.Mock
}

func (m *MockRateService) SetRate(ctx context.Context, req salesapp.RateRequest) (*salesapp.RateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.RateResponse), args.Error(1)
}

func (m *MockRateService) GetRate(ctx context.Context, date time.Time) (*salesapp.RateResponse, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.RateResponse), args.Error(1)
}

func TestRateHandler_SetRate(t *testing.T) {
	svc := new(MockRateService)
	h := NewRateHandler(svc, time.UTC)

	svc.On("SetRate", mock.Anything, mock.MatchedBy(func(req salesapp.RateRequest) bool {
		return req.Date.Format(time.DateOnly) == "2026-03-02" && req.Rate.Equal(decimal.NewFromInt(70))
	})).Return(&salesapp.RateResponse{
		EffectiveDate: "2026-03-02",
		BaseCurrency:  "USD",
		QuoteCurrency: "AFN",
		Rate:          decimal.NewFromInt(70),
	}, nil)

	w := serve(http.MethodPut, "/rates/:date", h.SetRate, "/rates/2026-03-02", `{"rate":"70"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"effective_date":"2026-03-02"`)
	svc.AssertExpectations(t)
}

func TestRateHandler_SetRate_Rejects(t *testing.T) {
	svc := new(MockRateService)
	h := NewRateHandler(svc, time.UTC)

	w := serve(http.MethodPut, "/rates/:date", h.SetRate, "/rates/02-03-2026", `{"rate":"70"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(http.MethodPut, "/rates/:date", h.SetRate, "/rates/2026-03-02", `{"rate":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertNotCalled(t, "SetRate", mock.Anything, mock.Anything)
}

func TestRateHandler_GetRate_Today(t *testing.T) {
	kabul := time.FixedZone("AFT", 4*3600+1800)
	svc := new(MockRateService)
	h := NewRateHandler(svc, kabul)
	// 21:00 UTC on the 1st is already the 2nd in Kabul
	h.now = func() time.Time { return time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC) }

	svc.On("GetRate", mock.Anything, mock.MatchedBy(func(d time.Time) bool {
		return d.Format(time.DateOnly) == "2026-03-02"
	})).Return(&salesapp.RateResponse{EffectiveDate: "2026-03-02", Rate: decimal.NewFromInt(71)}, nil)

	w := serve(http.MethodGet, "/rates/:date", h.GetRate, "/rates/today", "")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestRateHandler_GetRate_Missing(t *testing.T) {
	svc := new(MockRateService)
	h := NewRateHandler(svc, nil)

	svc.On("GetRate", mock.Anything, mock.Anything).Return(nil, shared.ErrRateUnavailable)

	w := serve(http.MethodGet, "/rates/:date", h.GetRate, "/rates/2026-03-02", "")

	assert.Equal(t, http.StatusFailedDependency, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_UNAVAILABLE")
}
