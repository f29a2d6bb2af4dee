package sales

import (
	"time"

	ledgerapp "github.com/erp/shopcore/internal/application/ledger"
	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemInput is one product of a CreateSaleRequest
type LineItemInput struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency" binding:"required,currency"`
}

// ReceiptInput is the caller's receipt draft, in the cart's pricing currency
type ReceiptInput struct {
	Total     decimal.Decimal  `json:"total"`
	Paid      decimal.Decimal  `json:"paid"`
	Discount  decimal.Decimal  `json:"discount"`
	Remaining *decimal.Decimal `json:"remaining"`
}

// CreateSaleRequest creates a sale. BellNumber 0 lets the service allocate one.
type CreateSaleRequest struct {
	CustomerID       uuid.UUID       `json:"customer_id" binding:"required"`
	LineItems        []LineItemInput `json:"line_items" binding:"required,min=1,dive"`
	Receipt          ReceiptInput    `json:"receipt"`
	BellNumber       int64           `json:"bell_number" binding:"min=0"`
	Note             string          `json:"note" binding:"max=500"`
	DepositAccountID *uuid.UUID      `json:"deposit_account_id"`
}

// ReturnLineItemRequest returns one product of a sale
type ReturnLineItemRequest struct {
	SaleID              uuid.UUID  `json:"-"`
	ProductID           uuid.UUID  `json:"product_id" binding:"required"`
	Note                string     `json:"note" binding:"max=500"`
	SettlementAccountID *uuid.UUID `json:"settlement_account_id"`
}

// SaleListFilter represents filter options for the sale list
type SaleListFilter struct {
	// CustomerID is parsed by the handler; form binding cannot fill a uuid
	CustomerID   *uuid.UUID `form:"-"`
	ReturnStatus string     `form:"return_status" binding:"omitempty,oneof=normal partial_return fully_returned"`
	From         *time.Time `form:"from" time_format:"2006-01-02"`
	To           *time.Time `form:"to" time_format:"2006-01-02"`
	Outstanding  bool       `form:"outstanding"`
	SortBy       string     `form:"sort_by" binding:"omitempty,oneof=created_at bell_number total paid remaining"`
	SortOrder    string     `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
	Limit        int        `form:"limit"`
	Offset       int        `form:"offset"`
}

// ReceivableListFilter represents filter options for the receivables list
type ReceivableListFilter struct {
	MinAmount *decimal.Decimal `form:"min_amount"`
	Limit     int              `form:"limit"`
	Offset    int              `form:"offset"`
}

// CustomerReceivableFilter pages the open sales behind one customer's balance
type CustomerReceivableFilter struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ReceiptResponse is a receipt in API responses
type ReceiptResponse struct {
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Discount  decimal.Decimal `json:"discount"`
	Remaining decimal.Decimal `json:"remaining"`
	Currency  string          `json:"currency"`
}

// LineItemResponse is a line item in API responses
type LineItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductCode      string          `json:"product_code"`
	ProductName      string          `json:"product_name"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
	OriginalCurrency string          `json:"original_currency"`
	AppliedRate      decimal.Decimal `json:"applied_rate"`
	Returned         bool            `json:"returned"`
	ReturnedAt       *time.Time      `json:"returned_at,omitempty"`
}

// SaleResponse is a sale in API responses
type SaleResponse struct {
	ID               uuid.UUID                  `json:"id"`
	BellNumber       int64                      `json:"bell_number"`
	CustomerID       uuid.UUID                  `json:"customer_id"`
	CustomerName     string                     `json:"customer_name"`
	CustomerPhone    string                     `json:"customer_phone,omitempty"`
	LineItems        []LineItemResponse         `json:"line_items"`
	Receipt          ReceiptResponse            `json:"receipt"`
	ExchangeRate     *decimal.Decimal           `json:"exchange_rate,omitempty"`
	DepositAccountID *uuid.UUID                 `json:"deposit_account_id,omitempty"`
	DepositPosting   *ledgerapp.PostingResponse `json:"deposit_posting,omitempty"`
	Note             string                     `json:"note,omitempty"`
	ReturnedCount    int                        `json:"returned_count"`
	ReturnStatus     string                     `json:"return_status"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// ReturnResponse is a return record in API responses
type ReturnResponse struct {
	ID                  uuid.UUID              `json:"id"`
	SaleID              uuid.UUID              `json:"sale_id"`
	BellNumber          int64                  `json:"bell_number"`
	CustomerName        string                 `json:"customer_name"`
	CustomerPhone       string                 `json:"customer_phone,omitempty"`
	Item                sales.LineItemSnapshot `json:"item"`
	RefundDue           decimal.Decimal        `json:"refund_due"`
	Currency            string                 `json:"currency"`
	SettlementAccountID *uuid.UUID             `json:"settlement_account_id,omitempty"`
	PostingID           *uuid.UUID             `json:"posting_id,omitempty"`
	Note                string                 `json:"note,omitempty"`
	ReturnedAt          time.Time              `json:"returned_at"`
}

// ReturnResult is the outcome of ReturnLineItem. LineTotal and RefundDue let a
// caller that settles outside the ledger size its own refund.
type ReturnResult struct {
	Sale           SaleResponse               `json:"sale"`
	Return         ReturnResponse             `json:"return"`
	LineTotal      decimal.Decimal            `json:"line_total"`
	RefundDue      decimal.Decimal            `json:"refund_due"`
	Currency       string                     `json:"currency"`
	RefundPosting  *ledgerapp.PostingResponse `json:"refund_posting,omitempty"`
	PreviousTotals ReceiptResponse            `json:"previous_receipt"`
}

// ReceivableResponse is one customer's outstanding balance
type ReceivableResponse struct {
	CustomerID       uuid.UUID       `json:"customer_id"`
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone,omitempty"`
	Currency         string          `json:"currency"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalDiscount    decimal.Decimal `json:"total_discount"`
	TotalRemaining   decimal.Decimal `json:"total_remaining"`
	OutstandingSales int64           `json:"outstanding_sales"`
	OldestSaleAt     *time.Time      `json:"oldest_sale_at,omitempty"`
	LatestSaleAt     *time.Time      `json:"latest_sale_at,omitempty"`
}

// CustomerReceivableResponse is a customer's summary plus one page of the
// sales behind it. Sales.Total counts every open sale, not just this page.
type CustomerReceivableResponse struct {
	Summary ReceivableResponse             `json:"summary"`
	Sales   shared.Paginated[SaleResponse] `json:"sales"`
}

// RateRequest records the rate of one day
type RateRequest struct {
	Date          time.Time       `json:"-"`
	BaseCurrency  string          `json:"base_currency"`
	QuoteCurrency string          `json:"quote_currency"`
	Rate          decimal.Decimal `json:"rate" binding:"required,decimal_gt0"`
}

// RateResponse is a daily rate in API responses
type RateResponse struct {
	EffectiveDate string          `json:"effective_date"`
	BaseCurrency  string          `json:"base_currency"`
	QuoteCurrency string          `json:"quote_currency"`
	Rate          decimal.Decimal `json:"rate"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

// ToReceiptResponse converts a domain Receipt
func ToReceiptResponse(r sales.Receipt) ReceiptResponse {
	return ReceiptResponse{
		Total:     r.Total,
		Paid:      r.Paid,
		Discount:  r.Discount,
		Remaining: r.Remaining,
		Currency:  r.Currency.String(),
	}
}

// ToSaleResponse converts a domain Sale
func ToSaleResponse(s *sales.Sale) SaleResponse {
	items := make([]LineItemResponse, 0, len(s.LineItems))
	for _, li := range s.LineItems {
		items = append(items, LineItemResponse{
			ID:               li.ID,
			ProductID:        li.ProductID,
			ProductCode:      li.ProductCode,
			ProductName:      li.ProductName,
			Price:            li.Price,
			Currency:         li.Currency.String(),
			OriginalPrice:    li.OriginalPrice,
			OriginalCurrency: li.OriginalCurrency.String(),
			AppliedRate:      li.AppliedRate,
			Returned:         li.Returned,
			ReturnedAt:       li.ReturnedAt,
		})
	}
	return SaleResponse{
		ID:               s.ID,
		BellNumber:       s.BellNumber,
		CustomerID:       s.CustomerID,
		CustomerName:     s.CustomerName,
		CustomerPhone:    s.CustomerPhone,
		LineItems:        items,
		Receipt:          ToReceiptResponse(s.Receipt),
		ExchangeRate:     s.ExchangeRate,
		DepositAccountID: s.DepositAccountID,
		Note:             s.Note,
		ReturnedCount:    s.ReturnedCount,
		ReturnStatus:     s.ReturnStatus.String(),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// ToReturnResponse converts a domain Return
func ToReturnResponse(r *sales.Return) ReturnResponse {
	return ReturnResponse{
		ID:                  r.ID,
		SaleID:              r.SaleID,
		BellNumber:          r.BellNumber,
		CustomerName:        r.CustomerName,
		CustomerPhone:       r.CustomerPhone,
		Item:                r.Item,
		RefundDue:           r.RefundDue,
		Currency:            r.Currency.String(),
		SettlementAccountID: r.SettlementAccountID,
		PostingID:           r.PostingID,
		Note:                r.Note,
		ReturnedAt:          r.ReturnedAt,
	}
}

// ToReceivableResponse converts a ReceivableSummary
func ToReceivableResponse(r sales.ReceivableSummary) ReceivableResponse {
	return ReceivableResponse{
		CustomerID:       r.CustomerID,
		CustomerName:     r.CustomerName,
		CustomerPhone:    r.CustomerPhone,
		Currency:         r.Currency.String(),
		TotalAmount:      r.TotalAmount,
		TotalPaid:        r.TotalPaid,
		TotalDiscount:    r.TotalDiscount,
		TotalRemaining:   r.TotalRemaining,
		OutstandingSales: r.OutstandingSales,
		OldestSaleAt:     r.OldestSaleAt,
		LatestSaleAt:     r.LatestSaleAt,
	}
}

// ToRateResponse converts a CurrencyRate
func ToRateResponse(r *sales.CurrencyRate) RateResponse {
	return RateResponse{
		EffectiveDate: r.EffectiveDate.Format(time.DateOnly),
		BaseCurrency:  r.BaseCurrency.String(),
		QuoteCurrency: r.QuoteCurrency.String(),
		Rate:          r.Rate,
		RecordedAt:    r.RecordedAt,
	}
}
