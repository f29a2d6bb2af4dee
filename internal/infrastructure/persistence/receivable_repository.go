package persistence

import (
	"context"
	"errors"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/erp/shopcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReceivableRepository computes receivables straight from the sales table.
// There is no separate balance to drift out of step: a customer's debt is the
// sum of remaining over their sales.
type GormReceivableRepository struct {
	db         *gorm.DB
	settlement valueobject.Currency
}

// NewGormReceivableRepository creates a new GormReceivableRepository. settlement
// is reported for customers who owe nothing.
func NewGormReceivableRepository(db *gorm.DB, settlement valueobject.Currency) *GormReceivableRepository {
	if !settlement.IsValid() {
		settlement = valueobject.DefaultCurrency
	}
	return &GormReceivableRepository{db: db, settlement: settlement}
}

type receivableRow struct {
	CustomerID       uuid.UUID
	Currency         string
	CustomerName     string
	CustomerPhone    string
	TotalAmount      decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalDiscount    decimal.Decimal
	TotalRemaining   decimal.Decimal
	OutstandingSales int64
	OldestSaleAt     aggTime
	LatestSaleAt     aggTime
}

func (r receivableRow) toDomain() sales.ReceivableSummary {
	return sales.ReceivableSummary{
		CustomerID:       r.CustomerID,
		CustomerName:     r.CustomerName,
		CustomerPhone:    r.CustomerPhone,
		Currency:         valueobject.Currency(r.Currency),
		TotalAmount:      r.TotalAmount,
		TotalPaid:        r.TotalPaid,
		TotalDiscount:    r.TotalDiscount,
		TotalRemaining:   r.TotalRemaining,
		OutstandingSales: r.OutstandingSales,
		OldestSaleAt:     r.OldestSaleAt.Ptr(),
		LatestSaleAt:     r.LatestSaleAt.Ptr(),
	}
}

// outstanding is the per-customer aggregate over open sales
func (r *GormReceivableRepository) outstanding(ctx context.Context, filter sales.ReceivableFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.SaleModel{}).
		Select(`customer_id, currency,
			MAX(customer_name) AS customer_name,
			MAX(customer_phone) AS customer_phone,
			SUM(total) AS total_amount,
			SUM(paid) AS total_paid,
			SUM(discount) AS total_discount,
			SUM(remaining) AS total_remaining,
			COUNT(*) AS outstanding_sales,
			MIN(created_at) AS oldest_sale_at,
			MAX(created_at) AS latest_sale_at`).
		Where("remaining > 0")
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	query = query.Group("customer_id").Group("currency")
	if filter.MinAmount != nil {
		query = query.Having("SUM(remaining) >= CAST(? AS NUMERIC)", *filter.MinAmount)
	}
	return query
}

// ListOutstanding returns one summary per customer and currency, largest balance first
func (r *GormReceivableRepository) ListOutstanding(ctx context.Context, filter sales.ReceivableFilter, page shared.Page) ([]sales.ReceivableSummary, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Table("(?) AS outstanding", r.outstanding(ctx, filter)).
		Count(&total).Error; err != nil {
		return nil, 0, storageError("count receivables", err)
	}
	if total == 0 {
		return []sales.ReceivableSummary{}, 0, nil
	}

	var rows []receivableRow
	if err := r.outstanding(ctx, filter).
		Order("total_remaining DESC").
		Order("customer_id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Scan(&rows).Error; err != nil {
		return nil, 0, storageError("list receivables", err)
	}

	result := make([]sales.ReceivableSummary, len(rows))
	for i := range rows {
		result[i] = rows[i].toDomain()
	}
	return result, total, nil
}

// ForCustomer returns the outstanding summary of one customer. A customer
// with nothing open gets a zero summary carrying their current contact data.
func (r *GormReceivableRepository) ForCustomer(ctx context.Context, customerID uuid.UUID) (*sales.ReceivableSummary, error) {
	var rows []receivableRow
	if err := r.outstanding(ctx, sales.ReceivableFilter{CustomerID: &customerID}).
		Order("total_remaining DESC").
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, storageError("customer receivable", err)
	}
	if len(rows) > 0 {
		summary := rows[0].toDomain()
		return &summary, nil
	}

	summary := &sales.ReceivableSummary{
		CustomerID:     customerID,
		Currency:       r.settlement,
		TotalAmount:    decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalDiscount:  decimal.Zero,
		TotalRemaining: decimal.Zero,
	}
	var customer models.CustomerModel
	err := r.db.WithContext(ctx).First(&customer, "id = ?", customerID).Error
	switch {
	case err == nil:
		summary.CustomerName = customer.Name
		summary.CustomerPhone = customer.Phone
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storageError("customer receivable", err)
	}
	return summary, nil
}

var _ sales.ReceivableRepository = (*GormReceivableRepository)(nil)
