package sales

import (
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemDraft is one requested product with its quoted price
type LineItemDraft struct {
	ProductID uuid.UUID
	Price     decimal.Decimal
	Currency  valueobject.Currency
}

// LineItem is a product sold on a sale. Price and Currency are already in the
// settlement currency; the Original* fields keep what the caller quoted.
type LineItem struct {
	ID               uuid.UUID
	ProductID        uuid.UUID
	ProductCode      string
	ProductName      string
	Price            decimal.Decimal
	Currency         valueobject.Currency
	OriginalPrice    decimal.Decimal
	OriginalCurrency valueobject.Currency
	AppliedRate      decimal.Decimal
	Returned         bool
	ReturnedAt       *time.Time
}

// Total returns the settled line amount
func (l LineItem) Total() valueobject.Money {
	return valueobject.MustNewMoney(l.Price, l.Currency)
}

// Snapshot returns the frozen product copy stored on a Return record
func (l LineItem) Snapshot() LineItemSnapshot {
	return LineItemSnapshot{
		LineItemID:       l.ID,
		ProductID:        l.ProductID,
		ProductCode:      l.ProductCode,
		ProductName:      l.ProductName,
		Price:            l.Price,
		Currency:         l.Currency,
		OriginalPrice:    l.OriginalPrice,
		OriginalCurrency: l.OriginalCurrency,
		AppliedRate:      l.AppliedRate,
	}
}

// LineItemSnapshot is the denormalized, JSON-serializable copy of a line item
type LineItemSnapshot struct {
	LineItemID       uuid.UUID            `json:"line_item_id"`
	ProductID        uuid.UUID            `json:"product_id"`
	ProductCode      string               `json:"product_code"`
	ProductName      string               `json:"product_name"`
	Price            decimal.Decimal      `json:"price"`
	Currency         valueobject.Currency `json:"currency"`
	OriginalPrice    decimal.Decimal      `json:"original_price"`
	OriginalCurrency valueobject.Currency `json:"original_currency"`
	AppliedRate      decimal.Decimal      `json:"applied_rate"`
}

// Cart is a set of line items and the receipt that settles them, both in the
// settlement currency
type Cart struct {
	LineItems []LineItem
	Receipt   Receipt
	// Rate is the rate applied, nil when nothing needed conversion
	Rate *CurrencyRate
}

// NeedsConversion reports whether any draft is priced outside the settlement currency
func NeedsConversion(drafts []LineItemDraft, settlement valueobject.Currency) bool {
	for _, d := range drafts {
		if d.Currency != settlement {
			return true
		}
	}
	return false
}

// BuildCart is the single place where foreign prices become settlement prices.
// Every foreign line is multiplied by the day's rate exactly once; if any line
// was converted, the whole receipt is multiplied by the same rate. rate may be
// nil only when no line needs conversion.
func BuildCart(
	settlement valueobject.Currency,
	drafts []LineItemDraft,
	products map[uuid.UUID]*ProductSnapshot,
	draft ReceiptDraft,
	rate *CurrencyRate,
) (*Cart, error) {
	if len(drafts) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("a sale needs at least one line item")
	}
	if !settlement.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("unsupported settlement currency %q", settlement)
	}

	converted := false
	seen := make(map[uuid.UUID]struct{}, len(drafts))
	items := make([]LineItem, 0, len(drafts))
	for _, d := range drafts {
		if d.ProductID == uuid.Nil {
			return nil, shared.ErrInvalidInput.WithMessage("line item product id is required")
		}
		if _, dup := seen[d.ProductID]; dup {
			return nil, shared.ErrInvalidInput.WithMessage("product %s appears more than once in the cart", d.ProductID)
		}
		seen[d.ProductID] = struct{}{}

		if !d.Currency.IsValid() {
			return nil, shared.ErrInvalidInput.WithMessage("line item currency %q is not supported", d.Currency)
		}
		if d.Price.IsNegative() {
			return nil, shared.ErrInvalidInput.WithMessage("line item price cannot be negative")
		}
		if !valueobject.HasScale(d.Price, valueobject.InputScale) {
			return nil, shared.ErrInvalidInput.WithMessage("line item price allows at most %d decimal places", valueobject.InputScale)
		}

		snap, ok := products[d.ProductID]
		if !ok || snap == nil {
			return nil, shared.ErrProductNotFound.WithMessage("product %s not found", d.ProductID)
		}

		price := valueobject.MustNewMoney(d.Price, d.Currency)
		applied := decimal.NewFromInt(1)
		if d.Currency != settlement {
			if rate == nil {
				return nil, shared.ErrRateUnavailable
			}
			if d.Currency != rate.BaseCurrency || rate.QuoteCurrency != settlement {
				return nil, shared.ErrInvalidInput.WithMessage("cannot price in %s: the daily rate is quoted %s/%s",
					d.Currency, rate.BaseCurrency, rate.QuoteCurrency)
			}
			var err error
			price, err = price.ConvertAt(rate.Rate, settlement)
			if err != nil {
				return nil, shared.ErrRateUnavailable.WithMessage("today's rate is unusable: %v", err)
			}
			applied = rate.Rate
			converted = true
		}

		items = append(items, LineItem{
			ID:               uuid.New(),
			ProductID:        d.ProductID,
			ProductCode:      snap.Code,
			ProductName:      snap.Name,
			Price:            price.Amount(),
			Currency:         settlement,
			OriginalPrice:    d.Price,
			OriginalCurrency: d.Currency,
			AppliedRate:      applied,
		})
	}

	pricing := settlement
	if converted {
		pricing = rate.BaseCurrency
	}
	receipt, err := draft.finalize(pricing)
	if err != nil {
		return nil, err
	}

	cart := &Cart{LineItems: items, Receipt: receipt}
	if converted {
		cart.Receipt = receipt.convert(rate.Rate, settlement)
		cart.Rate = rate
		if err := cart.Receipt.Validate(); err != nil {
			return nil, err
		}
	}
	return cart, nil
}
