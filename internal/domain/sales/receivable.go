package sales

import (
	"time"

	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableSummary aggregates the outstanding balance of one customer
// across all of their sales with remaining > 0. The amount, paid and discount
// sums cover the same sales, so TotalAmount = TotalPaid + TotalDiscount +
// TotalRemaining.
type ReceivableSummary struct {
	CustomerID       uuid.UUID
	CustomerName     string
	CustomerPhone    string
	Currency         valueobject.Currency
	TotalAmount      decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalDiscount    decimal.Decimal
	TotalRemaining   decimal.Decimal
	OutstandingSales int64
	OldestSaleAt     *time.Time
	LatestSaleAt     *time.Time
}

// IsSettled reports whether the customer owes nothing
func (r ReceivableSummary) IsSettled() bool {
	return !r.TotalRemaining.IsPositive()
}

// ReceivableFilter narrows the receivables listing
type ReceivableFilter struct {
	CustomerID *uuid.UUID
	MinAmount  *decimal.Decimal
}
