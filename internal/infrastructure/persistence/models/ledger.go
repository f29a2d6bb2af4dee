package models

import (
	"time"

	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the ledger Account aggregate.
type AccountModel struct {
	AggregateModel
	AccountNumber  string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name           string               `gorm:"type:varchar(200);not null"`
	Currency       valueobject.Currency `gorm:"type:char(3);not null"`
	Balance        decimal.Decimal      `gorm:"type:decimal(24,8);not null;default:0"`
	OpeningBalance decimal.Decimal      `gorm:"type:decimal(24,8);not null;default:0"`
	Status         ledger.AccountStatus `gorm:"type:varchar(20);not null;default:'active'"`
	LastSequence   int64                `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		Aggregate:      m.ToAggregate(),
		AccountNumber:  m.AccountNumber,
		Name:           m.Name,
		Currency:       m.Currency,
		Balance:        m.Balance,
		OpeningBalance: m.OpeningBalance,
		Status:         m.Status,
		LastSequence:   m.LastSequence,
	}
}

// FromDomain populates the persistence model from a domain Account
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromAggregate(a.Aggregate)
	m.AccountNumber = a.AccountNumber
	m.Name = a.Name
	m.Currency = a.Currency
	m.Balance = a.Balance
	m.OpeningBalance = a.OpeningBalance
	m.Status = a.Status
	m.LastSequence = a.LastSequence
}

// AccountModelFromDomain creates a new persistence model from a domain Account
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// PostingModel is one row of the append-only posting journal.
// (account_id, sequence) is unique so a lost account lock can never produce
// two postings with the same position.
type PostingModel struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey"`
	AccountID     uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_posting_account_sequence,priority:1"`
	Sequence      int64              `gorm:"not null;uniqueIndex:idx_posting_account_sequence,priority:2"`
	Type          ledger.PostingType `gorm:"type:varchar(10);not null"`
	Amount        decimal.Decimal    `gorm:"type:decimal(24,8);not null"`
	BalanceBefore decimal.Decimal    `gorm:"type:decimal(24,8);not null"`
	BalanceAfter  decimal.Decimal    `gorm:"type:decimal(24,8);not null"`
	Description   string             `gorm:"type:varchar(255)"`
	CreatedAt     time.Time          `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (PostingModel) TableName() string {
	return "account_postings"
}

// ToDomain converts the persistence model to a domain Posting
func (m *PostingModel) ToDomain() ledger.Posting {
	return ledger.Posting{
		ID:            m.ID,
		AccountID:     m.AccountID,
		Sequence:      m.Sequence,
		Type:          m.Type,
		Amount:        m.Amount,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		Description:   m.Description,
		CreatedAt:     m.CreatedAt,
	}
}

// PostingModelFromDomain creates a new persistence model from a domain Posting
func PostingModelFromDomain(p *ledger.Posting) *PostingModel {
	return &PostingModel{
		ID:            p.ID,
		AccountID:     p.AccountID,
		Sequence:      p.Sequence,
		Type:          p.Type,
		Amount:        p.Amount,
		BalanceBefore: p.BalanceBefore,
		BalanceAfter:  p.BalanceAfter,
		Description:   p.Description,
		CreatedAt:     p.CreatedAt,
	}
}
