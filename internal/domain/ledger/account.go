package ledger

import (
	"strings"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountStatus represents whether an account accepts postings
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
)

// IsValid returns true if the status is valid
func (s AccountStatus) IsValid() bool {
	return s == AccountStatusActive || s == AccountStatusFrozen
}

// AggregateTypeAccount is the aggregate type recorded on account events
const AggregateTypeAccount = "Account"

// Account is the ledger aggregate. Its balance is only ever changed by Post,
// which also produces the posting that has to be persisted with it.
type Account struct {
	shared.Aggregate
	AccountNumber  string
	Name           string
	Currency       valueobject.Currency
	Balance        decimal.Decimal
	OpeningBalance decimal.Decimal
	Status         AccountStatus
	LastSequence   int64
}

// NewAccount opens an active account with the given opening balance
func NewAccount(accountNumber, name string, currency valueobject.Currency, opening decimal.Decimal) (*Account, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	name = strings.TrimSpace(name)
	if accountNumber == "" || len(accountNumber) > 50 {
		return nil, shared.ErrInvalidInput.WithMessage("account number must be 1-50 characters")
	}
	if name == "" || len(name) > 200 {
		return nil, shared.ErrInvalidInput.WithMessage("account name must be 1-200 characters")
	}
	if !currency.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("unsupported currency %q", currency)
	}
	if opening.IsNegative() {
		return nil, shared.ErrInvalidInput.WithMessage("opening balance cannot be negative")
	}
	if !hasMoneyScale(opening) {
		return nil, shared.ErrInvalidInput.WithMessage("opening balance has more than %d decimal places", valueobject.MoneyScale)
	}

	a := &Account{
		Aggregate:      shared.NewAggregate(),
		AccountNumber:  accountNumber,
		Name:           name,
		Currency:       currency,
		Balance:        opening,
		OpeningBalance: opening,
		Status:         AccountStatusActive,
	}
	a.Record(NewAccountOpenedEvent(a))
	return a, nil
}

// IsActive reports whether the account accepts postings
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// BalanceMoney returns the balance as Money in the account currency
func (a *Account) BalanceMoney() valueobject.Money {
	return valueobject.MustNewMoney(a.Balance, a.Currency)
}

// Post applies a credit or debit and returns the posting that records it.
// The caller must hold the account lock from the read of a until the posting
// and the new balance are committed.
func (a *Account) Post(postingType PostingType, amount decimal.Decimal, description string) (*Posting, error) {
	if !postingType.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("posting type must be credit or debit")
	}
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if !hasMoneyScale(amount) {
		return nil, shared.ErrInvalidInput.WithMessage("amount has more than %d decimal places", valueobject.MoneyScale)
	}
	description = strings.TrimSpace(description)
	if len(description) > MaxDescriptionLength {
		return nil, shared.ErrInvalidInput.WithMessage("description exceeds %d characters", MaxDescriptionLength)
	}
	if !a.IsActive() {
		return nil, shared.ErrAccountInactive.WithMessage("account %s is %s and cannot accept postings", a.AccountNumber, a.Status)
	}

	before := a.Balance
	var after decimal.Decimal
	switch postingType {
	case PostingTypeCredit:
		after = before.Add(amount)
	case PostingTypeDebit:
		if amount.GreaterThan(before) {
			return nil, shared.ErrInsufficientFunds.WithMessage("insufficient funds on account %s: balance %s, debit %s",
				a.AccountNumber, a.BalanceMoney().Format(valueobject.DisplayLocale),
				valueobject.MustNewMoney(amount, a.Currency).Format(valueobject.DisplayLocale))
		}
		after = before.Sub(amount)
	}

	a.LastSequence++
	posting := &Posting{
		ID:            uuid.New(),
		AccountID:     a.ID,
		Sequence:      a.LastSequence,
		Type:          postingType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
		CreatedAt:     time.Now().UTC(),
	}

	a.Balance = after
	a.Bump()
	a.Record(NewPostingRecordedEvent(a, posting))
	return posting, nil
}

// Freeze stops the account from accepting postings
func (a *Account) Freeze() error {
	return a.transitionTo(AccountStatusFrozen)
}

// Activate re-opens a frozen account
func (a *Account) Activate() error {
	return a.transitionTo(AccountStatusActive)
}

func (a *Account) transitionTo(status AccountStatus) error {
	if a.Status == status {
		return shared.ErrInvalidState.WithMessage("account %s is already %s", a.AccountNumber, status)
	}
	from := a.Status
	a.Status = status
	a.Bump()
	a.Record(NewAccountStatusChangedEvent(a, from))
	return nil
}

func hasMoneyScale(d decimal.Decimal) bool {
	return valueobject.HasScale(d, valueobject.MoneyScale)
}
