package models

import (
	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ProductStatus is the availability of a single stock item
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusSold      ProductStatus = "sold"
	ProductStatusWithdrawn ProductStatus = "withdrawn"
)

// ProductModel is one sellable item. Every product is unique stock, so a sale
// moves it from available to sold and a return moves it back.
type ProductModel struct {
	BaseModel
	Code      string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name      string               `gorm:"type:varchar(200);not null"`
	ListPrice decimal.Decimal      `gorm:"type:decimal(24,8);not null;default:0"`
	Currency  valueobject.Currency `gorm:"type:char(3);not null"`
	Status    ProductStatus        `gorm:"type:varchar(20);not null;default:'available';index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToSnapshot returns the master data copied onto a line item
func (m *ProductModel) ToSnapshot() *sales.ProductSnapshot {
	return &sales.ProductSnapshot{
		ProductID: m.ID,
		Code:      m.Code,
		Name:      m.Name,
		ListPrice: m.ListPrice,
		Currency:  m.Currency,
	}
}
