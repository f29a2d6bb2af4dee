package models

import (
	"time"

	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for the Sale aggregate.
// The customer name and phone are copies taken at sale time.
type SaleModel struct {
	AggregateModel
	CustomerID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	CustomerName     string               `gorm:"type:varchar(200);not null"`
	CustomerPhone    string               `gorm:"type:varchar(50)"`
	BellNumber       int64                `gorm:"not null;uniqueIndex"`
	Currency         valueobject.Currency `gorm:"type:char(3);not null"`
	Total            decimal.Decimal      `gorm:"type:decimal(24,8);not null"`
	Paid             decimal.Decimal      `gorm:"type:decimal(24,8);not null;default:0"`
	Discount         decimal.Decimal      `gorm:"type:decimal(24,8);not null;default:0"`
	Remaining        decimal.Decimal      `gorm:"type:decimal(24,8);not null;default:0"`
	ExchangeRate     decimal.NullDecimal  `gorm:"type:decimal(18,4)"`
	DepositAccountID *uuid.UUID           `gorm:"type:uuid;index"`
	Note             string               `gorm:"type:varchar(500)"`
	ReturnedCount    int                  `gorm:"not null;default:0"`
	ReturnStatus     sales.ReturnStatus   `gorm:"type:varchar(20);not null;default:'normal';index"`
	LineItems        []LineItemModel      `gorm:"foreignKey:SaleID"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale. LineItems must be
// preloaded, ordered by position.
func (m *SaleModel) ToDomain() *sales.Sale {
	s := &sales.Sale{
		Aggregate:     m.ToAggregate(),
		CustomerID:    m.CustomerID,
		CustomerName:  m.CustomerName,
		CustomerPhone: m.CustomerPhone,
		BellNumber:    m.BellNumber,
		Receipt: sales.Receipt{
			Total:     m.Total,
			Paid:      m.Paid,
			Discount:  m.Discount,
			Remaining: m.Remaining,
			Currency:  m.Currency,
		},
		DepositAccountID: m.DepositAccountID,
		Note:             m.Note,
		ReturnedCount:    m.ReturnedCount,
		ReturnStatus:     m.ReturnStatus,
	}
	if m.ExchangeRate.Valid {
		rate := m.ExchangeRate.Decimal
		s.ExchangeRate = &rate
	}
	s.LineItems = make([]sales.LineItem, len(m.LineItems))
	for i := range m.LineItems {
		s.LineItems[i] = m.LineItems[i].ToDomain()
	}
	return s
}

// FromDomain populates the persistence model, line items included
func (m *SaleModel) FromDomain(s *sales.Sale) {
	m.FromAggregate(s.Aggregate)
	m.CustomerID = s.CustomerID
	m.CustomerName = s.CustomerName
	m.CustomerPhone = s.CustomerPhone
	m.BellNumber = s.BellNumber
	m.Currency = s.Receipt.Currency
	m.Total = s.Receipt.Total
	m.Paid = s.Receipt.Paid
	m.Discount = s.Receipt.Discount
	m.Remaining = s.Receipt.Remaining
	m.ExchangeRate = decimal.NullDecimal{}
	if s.ExchangeRate != nil {
		m.ExchangeRate = decimal.NewNullDecimal(*s.ExchangeRate)
	}
	m.DepositAccountID = s.DepositAccountID
	m.Note = s.Note
	m.ReturnedCount = s.ReturnedCount
	m.ReturnStatus = s.ReturnStatus
	m.LineItems = make([]LineItemModel, len(s.LineItems))
	for i := range s.LineItems {
		m.LineItems[i] = LineItemModelFromDomain(s.ID, i, s.LineItems[i])
	}
}

// SaleModelFromDomain creates a new persistence model from a domain Sale
func SaleModelFromDomain(s *sales.Sale) *SaleModel {
	m := &SaleModel{}
	m.FromDomain(s)
	return m
}

// LineItemModel is one product sold on a sale
type LineItemModel struct {
	ID               uuid.UUID            `gorm:"type:uuid;primaryKey"`
	SaleID           uuid.UUID            `gorm:"type:uuid;not null;index"`
	Position         int                  `gorm:"not null"`
	ProductID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	ProductCode      string               `gorm:"type:varchar(50);not null"`
	ProductName      string               `gorm:"type:varchar(200);not null"`
	Price            decimal.Decimal      `gorm:"type:decimal(24,8);not null"`
	Currency         valueobject.Currency `gorm:"type:char(3);not null"`
	OriginalPrice    decimal.Decimal      `gorm:"type:decimal(24,8);not null"`
	OriginalCurrency valueobject.Currency `gorm:"type:char(3);not null"`
	AppliedRate      decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:1"`
	Returned         bool                 `gorm:"not null;default:false"`
	ReturnedAt       *time.Time
}

// TableName returns the table name for GORM
func (LineItemModel) TableName() string {
	return "sale_line_items"
}

// ToDomain converts the persistence model to a domain LineItem
func (m *LineItemModel) ToDomain() sales.LineItem {
	return sales.LineItem{
		ID:               m.ID,
		ProductID:        m.ProductID,
		ProductCode:      m.ProductCode,
		ProductName:      m.ProductName,
		Price:            m.Price,
		Currency:         m.Currency,
		OriginalPrice:    m.OriginalPrice,
		OriginalCurrency: m.OriginalCurrency,
		AppliedRate:      m.AppliedRate,
		Returned:         m.Returned,
		ReturnedAt:       m.ReturnedAt,
	}
}

// LineItemModelFromDomain maps a line item at the given position of its sale
func LineItemModelFromDomain(saleID uuid.UUID, position int, li sales.LineItem) LineItemModel {
	return LineItemModel{
		ID:               li.ID,
		SaleID:           saleID,
		Position:         position,
		ProductID:        li.ProductID,
		ProductCode:      li.ProductCode,
		ProductName:      li.ProductName,
		Price:            li.Price,
		Currency:         li.Currency,
		OriginalPrice:    li.OriginalPrice,
		OriginalCurrency: li.OriginalCurrency,
		AppliedRate:      li.AppliedRate,
		Returned:         li.Returned,
		ReturnedAt:       li.ReturnedAt,
	}
}

// ReturnModel is the immutable record of one returned line item.
// The item itself is kept as a JSON document so later master changes never
// rewrite it.
type ReturnModel struct {
	ID                  uuid.UUID              `gorm:"type:uuid;primaryKey"`
	SaleID              uuid.UUID              `gorm:"type:uuid;not null;index"`
	BellNumber          int64                  `gorm:"not null;index"`
	CustomerID          uuid.UUID              `gorm:"type:uuid;not null;index"`
	CustomerName        string                 `gorm:"type:varchar(200);not null"`
	CustomerPhone       string                 `gorm:"type:varchar(50)"`
	Item                sales.LineItemSnapshot `gorm:"type:jsonb;not null;serializer:json"`
	RefundDue           decimal.Decimal        `gorm:"type:decimal(24,8);not null"`
	Currency            valueobject.Currency   `gorm:"type:char(3);not null"`
	TotalAfter          decimal.Decimal        `gorm:"type:decimal(24,8);not null"`
	PaidAfter           decimal.Decimal        `gorm:"type:decimal(24,8);not null"`
	DiscountAfter       decimal.Decimal        `gorm:"type:decimal(24,8);not null"`
	RemainingAfter      decimal.Decimal        `gorm:"type:decimal(24,8);not null"`
	SettlementAccountID *uuid.UUID             `gorm:"type:uuid"`
	PostingID           *uuid.UUID             `gorm:"type:uuid"`
	Note                string                 `gorm:"type:varchar(500)"`
	ReturnedAt          time.Time              `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ReturnModel) TableName() string {
	return "sale_returns"
}

// ToDomain converts the persistence model to a domain Return
func (m *ReturnModel) ToDomain() *sales.Return {
	return &sales.Return{
		ID:            m.ID,
		SaleID:        m.SaleID,
		BellNumber:    m.BellNumber,
		CustomerID:    m.CustomerID,
		CustomerName:  m.CustomerName,
		CustomerPhone: m.CustomerPhone,
		Item:          m.Item,
		RefundDue:     m.RefundDue,
		Currency:      m.Currency,
		ReceiptAfter: sales.Receipt{
			Total:     m.TotalAfter,
			Paid:      m.PaidAfter,
			Discount:  m.DiscountAfter,
			Remaining: m.RemainingAfter,
			Currency:  m.Currency,
		},
		SettlementAccountID: m.SettlementAccountID,
		PostingID:           m.PostingID,
		Note:                m.Note,
		ReturnedAt:          m.ReturnedAt,
	}
}

// ReturnModelFromDomain creates a new persistence model from a domain Return
func ReturnModelFromDomain(r *sales.Return) *ReturnModel {
	return &ReturnModel{
		ID:                  r.ID,
		SaleID:              r.SaleID,
		BellNumber:          r.BellNumber,
		CustomerID:          r.CustomerID,
		CustomerName:        r.CustomerName,
		CustomerPhone:       r.CustomerPhone,
		Item:                r.Item,
		RefundDue:           r.RefundDue,
		Currency:            r.Currency,
		TotalAfter:          r.ReceiptAfter.Total,
		PaidAfter:           r.ReceiptAfter.Paid,
		DiscountAfter:       r.ReceiptAfter.Discount,
		RemainingAfter:      r.ReceiptAfter.Remaining,
		SettlementAccountID: r.SettlementAccountID,
		PostingID:           r.PostingID,
		Note:                r.Note,
		ReturnedAt:          r.ReturnedAt,
	}
}
