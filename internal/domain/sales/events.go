package sales

import (
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleCreated      = "sales.SaleCreated"
	EventTypeLineItemReturned = "sales.LineItemReturned"
)

// SaleCreatedEvent is raised when a sale commits
type SaleCreatedEvent struct {
	shared.EventMeta
	BellNumber       int64            `json:"bell_number"`
	CustomerID       uuid.UUID        `json:"customer_id"`
	ProductIDs       []uuid.UUID      `json:"product_ids"`
	Currency         string           `json:"currency"`
	Total            decimal.Decimal  `json:"total"`
	Paid             decimal.Decimal  `json:"paid"`
	Discount         decimal.Decimal  `json:"discount"`
	Remaining        decimal.Decimal  `json:"remaining"`
	ExchangeRate     *decimal.Decimal `json:"exchange_rate,omitempty"`
	DepositAccountID *uuid.UUID       `json:"deposit_account_id,omitempty"`
}

// NewSaleCreatedEvent creates a SaleCreatedEvent
func NewSaleCreatedEvent(s *Sale) *SaleCreatedEvent {
	ids := make([]uuid.UUID, 0, len(s.LineItems))
	for _, li := range s.LineItems {
		ids = append(ids, li.ProductID)
	}
	return &SaleCreatedEvent{
		EventMeta:        shared.NewEventMeta(EventTypeSaleCreated, AggregateTypeSale, s.ID),
		BellNumber:       s.BellNumber,
		CustomerID:       s.CustomerID,
		ProductIDs:       ids,
		Currency:         s.Receipt.Currency.String(),
		Total:            s.Receipt.Total,
		Paid:             s.Receipt.Paid,
		Discount:         s.Receipt.Discount,
		Remaining:        s.Receipt.Remaining,
		ExchangeRate:     s.ExchangeRate,
		DepositAccountID: s.DepositAccountID,
	}
}

// LineItemReturnedEvent is raised when a line item goes back to stock
type LineItemReturnedEvent struct {
	shared.EventMeta
	BellNumber   int64           `json:"bell_number"`
	ProductID    uuid.UUID       `json:"product_id"`
	LineTotal    decimal.Decimal `json:"line_total"`
	RefundDue    decimal.Decimal `json:"refund_due"`
	Currency     string          `json:"currency"`
	ReturnStatus ReturnStatus    `json:"return_status"`
	Remaining    decimal.Decimal `json:"remaining"`
}

// NewLineItemReturnedEvent creates a LineItemReturnedEvent
func NewLineItemReturnedEvent(s *Sale, o *ReturnOutcome) *LineItemReturnedEvent {
	return &LineItemReturnedEvent{
		EventMeta:    shared.NewEventMeta(EventTypeLineItemReturned, AggregateTypeSale, s.ID),
		BellNumber:   s.BellNumber,
		ProductID:    o.LineItem.ProductID,
		LineTotal:    o.LineTotal.Amount(),
		RefundDue:    o.RefundDue.Amount(),
		Currency:     s.Receipt.Currency.String(),
		ReturnStatus: s.ReturnStatus,
		Remaining:    s.Receipt.Remaining,
	}
}
