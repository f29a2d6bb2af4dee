package ledger

import (
	"fmt"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostingType is the direction of a posting
type PostingType string

const (
	// PostingTypeCredit increases the account balance
	PostingTypeCredit PostingType = "credit"
	// PostingTypeDebit decreases the account balance
	PostingTypeDebit PostingType = "debit"
)

// MaxDescriptionLength bounds the free-text description stored with a posting
const MaxDescriptionLength = 255

// String returns the string representation of PostingType
func (t PostingType) String() string {
	return string(t)
}

// IsValid returns true if the posting type is valid
func (t PostingType) IsValid() bool {
	return t == PostingTypeCredit || t == PostingTypeDebit
}

// ParsePostingType parses a posting type, case-sensitive
func ParsePostingType(s string) (PostingType, error) {
	t := PostingType(s)
	if !t.IsValid() {
		return "", shared.ErrInvalidInput.WithMessage("posting type must be credit or debit, got %q", s)
	}
	return t, nil
}

// Posting is an immutable record of a single balance change on one account.
// Once written it is never updated or deleted; corrections are new postings.
type Posting struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	Sequence      int64 // 1-based, gap-free per account, assigned under the account lock
	Type          PostingType
	Amount        decimal.Decimal // always positive, direction comes from Type
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	CreatedAt     time.Time
}

// SignedAmount returns the amount with the sign of its effect on the balance
func (p *Posting) SignedAmount() decimal.Decimal {
	if p.Type == PostingTypeDebit {
		return p.Amount.Neg()
	}
	return p.Amount
}

// ReplayBalance walks postings in commit order (ascending Sequence) starting from
// the opening balance and returns the resulting balance. It fails on the first
// posting whose before/after figures do not chain.
func ReplayBalance(opening decimal.Decimal, postings []Posting) (decimal.Decimal, error) {
	balance := opening
	var expectedSeq int64 = 1
	for i := range postings {
		p := &postings[i]
		if p.Sequence != expectedSeq {
			return balance, fmt.Errorf("posting %s: sequence %d, expected %d", p.ID, p.Sequence, expectedSeq)
		}
		if !p.BalanceBefore.Equal(balance) {
			return balance, fmt.Errorf("posting %s: balance_before %s does not match running balance %s",
				p.ID, p.BalanceBefore.String(), balance.String())
		}
		next := balance.Add(p.SignedAmount())
		if !p.BalanceAfter.Equal(next) {
			return balance, fmt.Errorf("posting %s: balance_after %s, replay gives %s",
				p.ID, p.BalanceAfter.String(), next.String())
		}
		balance = next
		expectedSeq++
	}
	return balance, nil
}
