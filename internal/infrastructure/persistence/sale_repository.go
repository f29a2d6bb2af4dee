package persistence

import (
	"context"
	"time"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSaleRepository implements sales.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

func orderedLineItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByID finds a sale with its line items
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var model models.SaleModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems", orderedLineItems).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("find sale", err, shared.ErrSaleNotFound)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate locks the sale row, then loads its line items. Two returns
// on the same sale serialize here.
func (r *GormSaleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	db := r.db.WithContext(ctx)
	var model models.SaleModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("lock sale", err, shared.ErrSaleNotFound)
	}
	if err := orderedLineItems(db.Where("sale_id = ?", id)).Find(&model.LineItems).Error; err != nil {
		return nil, storageError("load line items", err)
	}
	return model.ToDomain(), nil
}

// FindByBellNumber finds a sale by its bell number
func (r *GormSaleRepository) FindByBellNumber(ctx context.Context, bellNumber int64) (*sales.Sale, error) {
	var model models.SaleModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems", orderedLineItems).
		Where("bell_number = ?", bellNumber).
		First(&model).Error; err != nil {
		return nil, notFoundOr("find sale by bell number", err, shared.ErrSaleNotFound)
	}
	return model.ToDomain(), nil
}

// ExistsByBellNumber reports whether the bell number is taken
func (r *GormSaleRepository) ExistsByBellNumber(ctx context.Context, bellNumber int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SaleModel{}).
		Where("bell_number = ?", bellNumber).
		Count(&count).Error; err != nil {
		return false, storageError("check bell number", err)
	}
	return count > 0, nil
}

// NextBellNumber returns one past the highest bell number. Two concurrent
// callers may get the same number; the unique index rejects the second insert.
func (r *GormSaleRepository) NextBellNumber(ctx context.Context) (int64, error) {
	var next int64
	if err := r.db.WithContext(ctx).Model(&models.SaleModel{}).
		Select("COALESCE(MAX(bell_number), 0) + 1").
		Scan(&next).Error; err != nil {
		return 0, storageError("next bell number", err)
	}
	return next, nil
}

// Create inserts the sale and its line items
func (r *GormSaleRepository) Create(ctx context.Context, sale *sales.Sale) error {
	model := models.SaleModelFromDomain(sale)
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrBellNumberConflict.WithMessage("bell number %d is already used by another sale", sale.BellNumber)
		}
		return storageError("create sale", err)
	}
	if len(model.LineItems) > 0 {
		if err := db.Create(&model.LineItems).Error; err != nil {
			return storageError("create line items", err)
		}
	}
	return nil
}

// UpdateReturnState writes the receipt, the returned flags and the status.
// The row must still carry the version the sale was loaded with.
func (r *GormSaleRepository) UpdateReturnState(ctx context.Context, sale *sales.Sale) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.SaleModel{}).
		Where("id = ? AND version = ?", sale.ID, sale.Version-1).
		Updates(map[string]any{
			"total":          sale.Receipt.Total,
			"paid":           sale.Receipt.Paid,
			"discount":       sale.Receipt.Discount,
			"remaining":      sale.Receipt.Remaining,
			"returned_count": sale.ReturnedCount,
			"return_status":  sale.ReturnStatus,
			"version":        sale.Version,
			"updated_at":     sale.UpdatedAt,
		})
	if result.Error != nil {
		return storageError("update sale", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewStorageError("update sale", ErrConcurrentUpdate)
	}

	for _, li := range sale.LineItems {
		if !li.Returned {
			continue
		}
		if err := db.Model(&models.LineItemModel{}).
			Where("id = ? AND returned = ?", li.ID, false).
			Updates(map[string]any{"returned": true, "returned_at": li.ReturnedAt}).Error; err != nil {
			return storageError("mark line item returned", err)
		}
	}
	return nil
}

// List returns one page of sales with the total match count. Without a sort
// key the newest sales come first.
func (r *GormSaleRepository) List(ctx context.Context, filter sales.SaleFilter, page shared.Page) ([]*sales.Sale, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, storageError("count sales", err)
	}
	if total == 0 {
		return []*sales.Sale{}, 0, nil
	}

	var rows []models.SaleModel
	query := orderSales(r.filtered(ctx, filter), filter.SortBy, filter.SortOrder)
	if err := query.
		Preload("LineItems", orderedLineItems).
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, storageError("list sales", err)
	}

	result := make([]*sales.Sale, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, total, nil
}

// filtered starts a fresh query per call; a gorm chain is not reusable after Count
func (r *GormSaleRepository) filtered(ctx context.Context, filter sales.SaleFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.SaleModel{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.ReturnStatus != nil {
		query = query.Where("return_status = ?", *filter.ReturnStatus)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", sales.DateOnly(*filter.From))
	}
	if filter.To != nil {
		// inclusive of the whole To day
		query = query.Where("created_at < ?", sales.DateOnly(*filter.To).Add(24*time.Hour))
	}
	if filter.Outstanding {
		query = query.Where("remaining > 0")
	}
	return query
}

var _ sales.SaleRepository = (*GormSaleRepository)(nil)
