package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	salesapp "github.com/erp/shopcore/internal/application/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSaleService implements SaleService for testing
type MockSaleService struct {
	mock.Mock
}

func (m *MockSaleService) CreateSale(ctx context.Context, req salesapp.CreateSaleRequest) (*salesapp.SaleResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.SaleResponse), args.Error(1)
}

func (m *MockSaleService) GetSale(ctx context.Context, id uuid.UUID) (*salesapp.SaleResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.SaleResponse), args.Error(1)
}

func (m *MockSaleService) ListSales(ctx context.Context, filter salesapp.SaleListFilter) (*shared.Paginated[salesapp.SaleResponse], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[salesapp.SaleResponse]), args.Error(1)
}

func (m *MockSaleService) ReturnLineItem(ctx context.Context, req salesapp.ReturnLineItemRequest) (*salesapp.ReturnResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.ReturnResult), args.Error(1)
}

func (m *MockSaleService) ListReturns(ctx context.Context, saleID uuid.UUID) ([]salesapp.ReturnResponse, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]salesapp.ReturnResponse), args.Error(1)
}

func sampleSale(id uuid.UUID) *salesapp.SaleResponse {
	return &salesapp.SaleResponse{
		ID:         id,
		BellNumber: 17,
		CustomerID: uuid.New(),
		Receipt: salesapp.ReceiptResponse{
			Total:     decimal.NewFromInt(7000),
			Paid:      decimal.NewFromInt(5000),
			Remaining: decimal.NewFromInt(2000),
			Currency:  "AFN",
		},
		ReturnStatus: "normal",
		CreatedAt:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestSaleHandler_CreateSale(t *testing.T) {
	svc := new(MockSaleService)
	h := NewSaleHandler(svc)
	saleID := uuid.New()
	customerID := uuid.New()
	productID := uuid.New()

	svc.On("CreateSale", mock.Anything, mock.MatchedBy(func(req salesapp.CreateSaleRequest) bool {
		return req.CustomerID == customerID &&
			len(req.LineItems) == 1 &&
			req.LineItems[0].ProductID == productID &&
			req.LineItems[0].Currency == "USD" &&
			req.Receipt.Remaining == nil &&
			req.BellNumber == 0
	})).Return(sampleSale(saleID), nil)

	body := `{
		"customer_id":"` + customerID.String() + `",
		"line_items":[{"product_id":"` + productID.String() + `","price":"100","currency":"USD"}],
		"receipt":{"total":"100","paid":"70","discount":"0"}
	}`
	w := serve(http.MethodPost, "/sales", h.CreateSale, "/sales", body)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"bell_number":17`)
	svc.AssertExpectations(t)
}

func TestSaleHandler_CreateSale_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty cart", `{"customer_id":"` + uuid.NewString() + `","line_items":[]}`},
		{"missing customer", `{"line_items":[{"product_id":"` + uuid.NewString() + `","price":"1","currency":"AFN"}]}`},
		{"bad currency", `{"customer_id":"` + uuid.NewString() + `","line_items":[{"product_id":"` + uuid.NewString() + `","price":"1","currency":"AF"}]}`},
		{"malformed json", `{"customer_id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSaleService)
			h := NewSaleHandler(svc)

			w := serve(http.MethodPost, "/sales", h.CreateSale, "/sales", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			svc.AssertNotCalled(t, "CreateSale", mock.Anything, mock.Anything)
		})
	}
}

func TestSaleHandler_CreateSale_DomainErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{shared.ErrRateUnavailable, http.StatusFailedDependency, "RATE_UNAVAILABLE"},
		{shared.ErrProductUnavailable, http.StatusConflict, "PRODUCT_UNAVAILABLE"},
		{shared.ErrBellNumberConflict, http.StatusConflict, "BELL_NUMBER_CONFLICT"},
		{shared.ErrCustomerNotFound, http.StatusNotFound, "CUSTOMER_NOT_FOUND"},
		{shared.ErrInvalidReceipt, http.StatusBadRequest, "INVALID_RECEIPT"},
	}

	body := `{"customer_id":"` + uuid.NewString() + `","line_items":[{"product_id":"` + uuid.NewString() + `","price":"1","currency":"AFN"}]}`
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			svc := new(MockSaleService)
			h := NewSaleHandler(svc)
			svc.On("CreateSale", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := serve(http.MethodPost, "/sales", h.CreateSale, "/sales", body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestSaleHandler_GetSale(t *testing.T) {
	svc := new(MockSaleService)
	h := NewSaleHandler(svc)
	id := uuid.New()

	svc.On("GetSale", mock.Anything, id).Return(sampleSale(id), nil)

	w := serve(http.MethodGet, "/sales/:id", h.GetSale, "/sales/"+id.String(), "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remaining":"2000"`)
}

func TestSaleHandler_ListSales(t *testing.T) {
	svc := new(MockSaleService)
	h := NewSaleHandler(svc)
	customerID := uuid.New()

	page := shared.NewPaginated([]salesapp.SaleResponse{*sampleSale(uuid.New())}, 1, shared.NewPage(20, 0))
	svc.On("ListSales", mock.Anything, mock.MatchedBy(func(f salesapp.SaleListFilter) bool {
		return f.CustomerID != nil && *f.CustomerID == customerID &&
			f.Outstanding &&
			f.From != nil && f.From.Format(time.DateOnly) == "2026-03-01" &&
			f.ReturnStatus == "normal"
	})).Return(&page, nil)

	target := "/sales?customer_id=" + customerID.String() + "&outstanding=true&from=2026-03-01&return_status=normal"
	w := serve(http.MethodGet, "/sales", h.ListSales, target, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
	svc.AssertExpectations(t)
}

func TestSaleHandler_ListSales_BadQuery(t *testing.T) {
	svc := new(MockSaleService)
	h := NewSaleHandler(svc)

	w := serve(http.MethodGet, "/sales", h.ListSales, "/sales?customer_id=walk-in", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(http.MethodGet, "/sales", h.ListSales, "/sales?return_status=lost", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(http.MethodGet, "/sales", h.ListSales, "/sales?sort_by=customer_id", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertNotCalled(t, "ListSales", mock.Anything, mock.Anything)
}

func TestSaleHandler_ReturnLineItem(t *testing.T) {
	svc := new(MockSaleService)
	h := NewSaleHandler(svc)
	saleID := uuid.New()
	productID := uuid.New()
	accountID := uuid.New()

	svc.On("ReturnLineItem", mock.Anything, mock.MatchedBy(func(req salesapp.ReturnLineItemRequest) bool {
		return req.SaleID == saleID && req.ProductID == productID &&
			req.SettlementAccountID != nil && *req.SettlementAccountID == accountID
	})).Return(&salesapp.ReturnResult{
		Sale:      *sampleSale(saleID),
		LineTotal: decimal.NewFromInt(7000),
		RefundDue: decimal.NewFromInt(5000),
		Currency:  "AFN",
	}, nil)

	body := `{"product_id":"` + productID.String() + `","settlement_account_id":"` + accountID.String() + `"}`
	w := serve(http.MethodPost, "/sales/:id/returns", h.ReturnLineItem, "/sales/"+saleID.String()+"/returns", body)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"refund_due":"5000"`)
	svc.AssertExpectations(t)
}

func TestSaleHandler_ReturnLineItem_AlreadyReturned(t *testing.T) {
	svc := new(MockSaleService)
	h := NewSaleHandler(svc)
	saleID := uuid.New()

	svc.On("ReturnLineItem", mock.Anything, mock.Anything).
		Return(nil, shared.ErrInvalidState.WithMessage("line item was already returned"))

	body := `{"product_id":"` + uuid.NewString() + `"}`
	w := serve(http.MethodPost, "/sales/:id/returns", h.ReturnLineItem, "/sales/"+saleID.String()+"/returns", body)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already returned")
}

func TestSaleHandler_ListReturns(t *testing.T) {
	svc := new(MockSaleService)
	h := NewSaleHandler(svc)
	saleID := uuid.New()

	svc.On("ListReturns", mock.Anything, saleID).Return([]salesapp.ReturnResponse{{ID: uuid.New(), SaleID: saleID}}, nil)

	w := serve(http.MethodGet, "/sales/:id/returns", h.ListReturns, "/sales/"+saleID.String()+"/returns", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), saleID.String())
}
