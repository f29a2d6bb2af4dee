package sales

import (
	"context"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
)

// ReceivablesService is the read-only loan view over sales with remaining > 0
type ReceivablesService struct {
	receivables sales.ReceivableRepository
	sales       sales.SaleRepository
	customers   sales.CustomerStore
}

// NewReceivablesService creates a ReceivablesService
func NewReceivablesService(
	receivables sales.ReceivableRepository,
	saleRepo sales.SaleRepository,
	customers sales.CustomerStore,
) *ReceivablesService {
	return &ReceivablesService{
		receivables: receivables,
		sales:       saleRepo,
		customers:   customers,
	}
}

// ListReceivables returns one row per customer who still owes something,
// largest balance first. No outstanding customers is an empty page, not an error.
func (s *ReceivablesService) ListReceivables(ctx context.Context, filter ReceivableListFilter) (*shared.Paginated[ReceivableResponse], error) {
	if filter.MinAmount != nil && filter.MinAmount.IsNegative() {
		return nil, shared.ErrInvalidInput.WithMessage("min_amount cannot be negative")
	}
	page := shared.NewPage(filter.Limit, filter.Offset)
	rows, total, err := s.receivables.ListOutstanding(ctx, sales.ReceivableFilter{MinAmount: filter.MinAmount}, page)
	if err != nil {
		return nil, err
	}
	items := make([]ReceivableResponse, 0, len(rows))
	for _, r := range rows {
		items = append(items, ToReceivableResponse(r))
	}
	result := shared.NewPaginated(items, total, page)
	return &result, nil
}

// GetCustomerReceivable returns a customer's outstanding summary and one page
// of the sales behind it, newest bell number first
func (s *ReceivablesService) GetCustomerReceivable(ctx context.Context, customerID uuid.UUID, filter CustomerReceivableFilter) (*CustomerReceivableResponse, error) {
	exists, err := s.customers.Exists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrCustomerNotFound.WithMessage("customer %s not found", customerID)
	}

	summary, err := s.receivables.ForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	page := shared.NewPage(filter.Limit, filter.Offset)
	list, total, err := s.sales.List(ctx, sales.SaleFilter{CustomerID: &customerID, Outstanding: true}, page)
	if err != nil {
		return nil, err
	}

	items := make([]SaleResponse, 0, len(list))
	for _, sale := range list {
		items = append(items, ToSaleResponse(sale))
	}
	return &CustomerReceivableResponse{
		Summary: ToReceivableResponse(*summary),
		Sales:   shared.NewPaginated(items, total, page),
	}, nil
}
