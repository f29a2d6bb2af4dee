package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerStore implements sales.CustomerStore using GORM
type GormCustomerStore struct {
	db *gorm.DB
}

// NewGormCustomerStore creates a new GormCustomerStore
func NewGormCustomerStore(db *gorm.DB) *GormCustomerStore {
	return &GormCustomerStore{db: db}
}

// CreateCustomer registers a customer
func (s *GormCustomerStore) CreateCustomer(ctx context.Context, name, phone string) (*sales.CustomerContact, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, shared.ErrInvalidInput.WithMessage("customer name must be 1-200 characters")
	}
	now := time.Now().UTC()
	model := &models.CustomerModel{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:      name,
		Phone:     strings.TrimSpace(phone),
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, storageError("create customer", err)
	}
	return model.ToContact(), nil
}

// Exists reports whether the customer is known
func (s *GormCustomerStore) Exists(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CustomerModel{}).
		Where("id = ?", customerID).
		Count(&count).Error; err != nil {
		return false, storageError("check customer", err)
	}
	return count > 0, nil
}

// Contact returns the customer's name and phone
func (s *GormCustomerStore) Contact(ctx context.Context, customerID uuid.UUID) (*sales.CustomerContact, error) {
	var model models.CustomerModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", customerID).Error; err != nil {
		return nil, notFoundOr("find customer", err, shared.ErrCustomerNotFound.WithMessage("customer %s not found", customerID))
	}
	return model.ToContact(), nil
}

var _ sales.CustomerStore = (*GormCustomerStore)(nil)
