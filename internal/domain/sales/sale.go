package sales

import (
	"strings"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeSale is the aggregate type recorded on sale events
const AggregateTypeSale = "Sale"

// MaxNoteLength bounds sale and return notes
const MaxNoteLength = 500

// Sale is a completed sale. After creation only the return bookkeeping
// (line flags, receipt, returned count and status) changes, via ReturnLineItem.
type Sale struct {
	shared.Aggregate
	CustomerID       uuid.UUID
	CustomerName     string
	CustomerPhone    string
	BellNumber       int64
	LineItems        []LineItem
	Receipt          Receipt
	ExchangeRate     *decimal.Decimal
	DepositAccountID *uuid.UUID
	Note             string
	ReturnedCount    int
	ReturnStatus     ReturnStatus
}

// NewSale assembles a sale from a settled cart
func NewSale(customer *CustomerContact, bellNumber int64, cart *Cart, depositAccountID *uuid.UUID, note string) (*Sale, error) {
	if customer == nil || customer.ID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("customer is required")
	}
	if bellNumber <= 0 {
		return nil, shared.ErrInvalidInput.WithMessage("bell number must be positive")
	}
	if cart == nil || len(cart.LineItems) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("a sale needs at least one line item")
	}
	for _, li := range cart.LineItems {
		if li.Currency != cart.Receipt.Currency {
			return nil, shared.ErrInvalidReceipt.WithMessage("line item %s is in %s but the receipt is in %s",
				li.ProductID, li.Currency, cart.Receipt.Currency)
		}
	}
	if err := cart.Receipt.Validate(); err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if len(note) > MaxNoteLength {
		return nil, shared.ErrInvalidInput.WithMessage("note exceeds %d characters", MaxNoteLength)
	}

	s := &Sale{
		Aggregate:        shared.NewAggregate(),
		CustomerID:       customer.ID,
		CustomerName:     customer.Name,
		CustomerPhone:    customer.Phone,
		BellNumber:       bellNumber,
		LineItems:        cart.LineItems,
		Receipt:          cart.Receipt,
		DepositAccountID: depositAccountID,
		Note:             note,
		ReturnStatus:     ReturnStatusNormal,
	}
	if cart.Rate != nil {
		r := cart.Rate.Rate
		s.ExchangeRate = &r
	}
	s.Record(NewSaleCreatedEvent(s))
	return s, nil
}

// FindLineItem returns the line item for productID
func (s *Sale) FindLineItem(productID uuid.UUID) (*LineItem, bool) {
	for i := range s.LineItems {
		if s.LineItems[i].ProductID == productID {
			return &s.LineItems[i], true
		}
	}
	return nil, false
}

// ReturnOutcome describes the effect of one line item return
type ReturnOutcome struct {
	LineItem        LineItem
	LineTotal       valueobject.Money
	RefundDue       valueobject.Money
	PreviousReceipt Receipt
}

// ReturnLineItem flags the line as returned and removes its contribution from
// the receipt. The caller must persist the sale and release the product in the
// same transaction.
func (s *Sale) ReturnLineItem(productID uuid.UUID) (*ReturnOutcome, error) {
	li, ok := s.FindLineItem(productID)
	if !ok {
		return nil, shared.ErrLineItemNotFound.WithMessage("product %s is not on sale %d", productID, s.BellNumber)
	}
	if li.Returned {
		return nil, shared.ErrInvalidState.WithMessage("product %s was already returned from sale %d", productID, s.BellNumber)
	}
	next := statusAfterReturn(s.ReturnedCount+1, len(s.LineItems))
	if !s.ReturnStatus.CanTransitionTo(next) {
		return nil, shared.ErrInvalidState.WithMessage("sale %d is %s and cannot take further returns", s.BellNumber, s.ReturnStatus)
	}

	now := time.Now().UTC()
	li.Returned = true
	li.ReturnedAt = &now

	previous := s.Receipt
	receipt, refund := s.Receipt.WithoutLine(li.Price)
	s.Receipt = receipt
	s.ReturnedCount++
	s.ReturnStatus = next
	s.Bump()

	outcome := &ReturnOutcome{
		LineItem:        *li,
		LineTotal:       li.Total(),
		RefundDue:       valueobject.MustNewMoney(refund, s.Receipt.Currency),
		PreviousReceipt: previous,
	}
	s.Record(NewLineItemReturnedEvent(s, outcome))
	return outcome, nil
}

// OpenLineItems counts line items not yet returned
func (s *Sale) OpenLineItems() int {
	n := 0
	for _, li := range s.LineItems {
		if !li.Returned {
			n++
		}
	}
	return n
}
