package ledger

import (
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeAccountOpened        = "ledger.AccountOpened"
	EventTypePostingRecorded      = "ledger.PostingRecorded"
	EventTypeAccountStatusChanged = "ledger.AccountStatusChanged"
)

// AccountOpenedEvent is raised when a new account is opened
type AccountOpenedEvent struct {
	shared.EventMeta
	AccountNumber  string          `json:"account_number"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// NewAccountOpenedEvent creates an AccountOpenedEvent
func NewAccountOpenedEvent(a *Account) *AccountOpenedEvent {
	return &AccountOpenedEvent{
		EventMeta:      shared.NewEventMeta(EventTypeAccountOpened, AggregateTypeAccount, a.ID),
		AccountNumber:  a.AccountNumber,
		Currency:       a.Currency.String(),
		OpeningBalance: a.OpeningBalance,
	}
}

// PostingRecordedEvent is raised for every successful credit or debit
type PostingRecordedEvent struct {
	shared.EventMeta
	PostingID     uuid.UUID       `json:"posting_id"`
	AccountNumber string          `json:"account_number"`
	Sequence      int64           `json:"sequence"`
	PostingType   PostingType     `json:"posting_type"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description"`
}

// NewPostingRecordedEvent creates a PostingRecordedEvent
func NewPostingRecordedEvent(a *Account, p *Posting) *PostingRecordedEvent {
	return &PostingRecordedEvent{
		EventMeta:     shared.NewEventMeta(EventTypePostingRecorded, AggregateTypeAccount, a.ID),
		PostingID:     p.ID,
		AccountNumber: a.AccountNumber,
		Sequence:      p.Sequence,
		PostingType:   p.Type,
		Amount:        p.Amount,
		Currency:      a.Currency.String(),
		BalanceBefore: p.BalanceBefore,
		BalanceAfter:  p.BalanceAfter,
		Description:   p.Description,
	}
}

// AccountStatusChangedEvent is raised on freeze/activate
type AccountStatusChangedEvent struct {
	shared.EventMeta
	AccountNumber string        `json:"account_number"`
	From          AccountStatus `json:"from"`
	To            AccountStatus `json:"to"`
}

// NewAccountStatusChangedEvent creates an AccountStatusChangedEvent
func NewAccountStatusChangedEvent(a *Account, from AccountStatus) *AccountStatusChangedEvent {
	return &AccountStatusChangedEvent{
		EventMeta:     shared.NewEventMeta(EventTypeAccountStatusChanged, AggregateTypeAccount, a.ID),
		AccountNumber: a.AccountNumber,
		From:          from,
		To:            a.Status,
	}
}
