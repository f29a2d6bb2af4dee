package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/erp/shopcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormProductStore implements sales.InventoryStore over the products table
type GormProductStore struct {
	db *gorm.DB
}

// NewGormProductStore creates a new GormProductStore
func NewGormProductStore(db *gorm.DB) *GormProductStore {
	return &GormProductStore{db: db}
}

// CreateProduct registers a new available product
func (s *GormProductStore) CreateProduct(ctx context.Context, code, name string, listPrice decimal.Decimal, currency valueobject.Currency) (*sales.ProductSnapshot, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, shared.ErrInvalidInput.WithMessage("product code and name are required")
	}
	if !currency.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("unsupported currency %q", currency)
	}
	if listPrice.IsNegative() {
		return nil, shared.ErrInvalidInput.WithMessage("list price cannot be negative")
	}
	now := time.Now().UTC()
	model := &models.ProductModel{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Code:      code,
		Name:      name,
		ListPrice: listPrice,
		Currency:  currency,
		Status:    models.ProductStatusAvailable,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, shared.ErrAlreadyExists.WithMessage("product code %s is already in use", code)
		}
		return nil, storageError("create product", err)
	}
	return model.ToSnapshot(), nil
}

func (s *GormProductStore) find(ctx context.Context, productID uuid.UUID) (*models.ProductModel, error) {
	var model models.ProductModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", productID).Error; err != nil {
		return nil, notFoundOr("find product", err, shared.ErrProductNotFound.WithMessage("product %s not found", productID))
	}
	return &model, nil
}

// IsAvailable reports whether the product can be sold
func (s *GormProductStore) IsAvailable(ctx context.Context, productID uuid.UUID) (bool, error) {
	model, err := s.find(ctx, productID)
	if err != nil {
		return false, err
	}
	return model.Status == models.ProductStatusAvailable, nil
}

// Snapshot reads the product master
func (s *GormProductStore) Snapshot(ctx context.Context, productID uuid.UUID) (*sales.ProductSnapshot, error) {
	model, err := s.find(ctx, productID)
	if err != nil {
		return nil, err
	}
	return model.ToSnapshot(), nil
}

// MarkSold moves the product from available to sold with a conditional
// update, so of two sales racing for one product exactly one wins.
func (s *GormProductStore) MarkSold(ctx context.Context, productID uuid.UUID) error {
	affected, err := s.transition(ctx, productID, models.ProductStatusAvailable, models.ProductStatusSold)
	if err != nil {
		return storageError("mark product sold", err)
	}
	if affected == 1 {
		return nil
	}
	if _, err := s.find(ctx, productID); err != nil {
		return err
	}
	return shared.ErrProductUnavailable.WithMessage("product %s is no longer available", productID)
}

// Release makes a sold product available again
func (s *GormProductStore) Release(ctx context.Context, productID uuid.UUID) error {
	affected, err := s.transition(ctx, productID, models.ProductStatusSold, models.ProductStatusAvailable)
	if err != nil {
		return storageError("release product", err)
	}
	if affected == 1 {
		return nil
	}
	if _, err := s.find(ctx, productID); err != nil {
		return err
	}
	return shared.ErrInvalidState.WithMessage("product %s is not sold", productID)
}

// Withdraw takes an available product off sale
func (s *GormProductStore) Withdraw(ctx context.Context, productID uuid.UUID) error {
	affected, err := s.transition(ctx, productID, models.ProductStatusAvailable, models.ProductStatusWithdrawn)
	if err != nil {
		return storageError("withdraw product", err)
	}
	if affected == 1 {
		return nil
	}
	if _, err := s.find(ctx, productID); err != nil {
		return err
	}
	return shared.ErrProductUnavailable.WithMessage("product %s is not available", productID)
}

func (s *GormProductStore) transition(ctx context.Context, productID uuid.UUID, from, to models.ProductStatus) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("id = ? AND status = ?", productID, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}

var _ sales.InventoryStore = (*GormProductStore)(nil)
