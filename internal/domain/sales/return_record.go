package sales

import (
	"strings"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Return is the immutable record of one returned line item. The product and
// customer data are frozen at return time so the record reads the same even if
// the masters change later.
type Return struct {
	ID                  uuid.UUID
	SaleID              uuid.UUID
	BellNumber          int64
	CustomerID          uuid.UUID
	CustomerName        string
	CustomerPhone       string
	Item                LineItemSnapshot
	RefundDue           decimal.Decimal
	Currency            valueobject.Currency
	ReceiptAfter        Receipt
	SettlementAccountID *uuid.UUID
	PostingID           *uuid.UUID
	Note                string
	ReturnedAt          time.Time
}

// NewReturn records the outcome of Sale.ReturnLineItem
func NewReturn(s *Sale, outcome *ReturnOutcome, note string) (*Return, error) {
	if s == nil || outcome == nil {
		return nil, shared.ErrInvalidInput.WithMessage("sale and return outcome are required")
	}
	note = strings.TrimSpace(note)
	if len(note) > MaxNoteLength {
		return nil, shared.ErrInvalidInput.WithMessage("note exceeds %d characters", MaxNoteLength)
	}
	returnedAt := time.Now().UTC()
	if outcome.LineItem.ReturnedAt != nil {
		returnedAt = *outcome.LineItem.ReturnedAt
	}
	return &Return{
		ID:            uuid.New(),
		SaleID:        s.ID,
		BellNumber:    s.BellNumber,
		CustomerID:    s.CustomerID,
		CustomerName:  s.CustomerName,
		CustomerPhone: s.CustomerPhone,
		Item:          outcome.LineItem.Snapshot(),
		RefundDue:     outcome.RefundDue.Amount(),
		Currency:      outcome.RefundDue.Currency(),
		ReceiptAfter:  s.Receipt,
		Note:          note,
		ReturnedAt:    returnedAt,
	}, nil
}

// AttachRefundPosting links the ledger posting that paid the refund out
func (r *Return) AttachRefundPosting(accountID, postingID uuid.UUID) {
	r.SettlementAccountID = &accountID
	r.PostingID = &postingID
}

// HasRefund reports whether anything is owed back to the customer
func (r *Return) HasRefund() bool {
	return r.RefundDue.IsPositive()
}
