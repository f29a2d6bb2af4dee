package ledger

import (
	"time"

	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenAccountRequest opens a new ledger account
type OpenAccountRequest struct {
	AccountNumber  string          `json:"account_number" binding:"required,max=50"`
	Name           string          `json:"name" binding:"required,max=200"`
	Currency       string          `json:"currency" binding:"required,currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// PostRequest is a credit or debit against one account
type PostRequest struct {
	AccountID   uuid.UUID       `json:"-"`
	Type        string          `json:"type" binding:"required,oneof=credit debit"`
	Amount      decimal.Decimal `json:"amount" binding:"required,decimal_gt0"`
	Description string          `json:"description" binding:"max=255"`
}

// PostCommand is the validated form of a posting, used inside a transaction
type PostCommand struct {
	AccountID   uuid.UUID
	Type        ledger.PostingType
	Amount      decimal.Decimal
	Description string
	// Currency, when set, must match the account currency
	Currency valueobject.Currency
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID             uuid.UUID       `json:"id"`
	AccountNumber  string          `json:"account_number"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Status         string          `json:"status"`
	PostingCount   int64           `json:"posting_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// PostingResponse represents a posting in API responses
type PostingResponse struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Sequence      int64           `json:"sequence"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BalanceVerification is the result of replaying an account's postings
type BalanceVerification struct {
	AccountID      uuid.UUID       `json:"account_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	StoredBalance  decimal.Decimal `json:"stored_balance"`
	ReplayBalance  decimal.Decimal `json:"replay_balance"`
	PostingCount   int             `json:"posting_count"`
	Consistent     bool            `json:"consistent"`
	Problem        string          `json:"problem,omitempty"`
}

// ToAccountResponse converts a domain Account to AccountResponse
func ToAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:             a.ID,
		AccountNumber:  a.AccountNumber,
		Name:           a.Name,
		Currency:       a.Currency.String(),
		Balance:        a.Balance,
		OpeningBalance: a.OpeningBalance,
		Status:         string(a.Status),
		PostingCount:   a.LastSequence,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		Version:        a.Version,
	}
}

// ToPostingResponse converts a domain Posting to PostingResponse
func ToPostingResponse(p *ledger.Posting, currency string) PostingResponse {
	return PostingResponse{
		ID:            p.ID,
		AccountID:     p.AccountID,
		Sequence:      p.Sequence,
		Type:          p.Type.String(),
		Amount:        p.Amount,
		Currency:      currency,
		BalanceBefore: p.BalanceBefore,
		BalanceAfter:  p.BalanceAfter,
		Description:   p.Description,
		CreatedAt:     p.CreatedAt,
	}
}
