package persistence

import (
	"context"

	ledgerapp "github.com/erp/shopcore/internal/application/ledger"
	salesapp "github.com/erp/shopcore/internal/application/sales"
	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/infrastructure/event"
	"gorm.io/gorm"
)

// GormTransactionScope implements both the ledger and the sales
// TransactionScope using GORM transactions. Every repository handed to fn,
// the outbox included, writes through the same *gorm.DB transaction.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox *event.OutboxPublisher
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, outbox *event.OutboxPublisher) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos salesapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
}

// Ledger returns the same scope narrowed to the ledger repositories
func (s *GormTransactionScope) Ledger() *GormLedgerTransactionScope {
	return &GormLedgerTransactionScope{scope: s}
}

// GormLedgerTransactionScope adapts GormTransactionScope to the ledger's TransactionScope
type GormLedgerTransactionScope struct {
	scope *GormTransactionScope
}

// Execute runs fn within a database transaction
func (s *GormLedgerTransactionScope) Execute(ctx context.Context, fn func(repos ledgerapp.TransactionalRepositories) error) error {
	return s.scope.Execute(ctx, func(repos salesapp.TransactionalRepositories) error {
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox *event.OutboxPublisher
}

// Accounts returns the account repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// Postings returns the posting repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Postings() ledger.PostingRepository {
	return NewGormPostingRepository(r.tx)
}

// Events returns an outbox publisher writing into the current transaction.
func (r *gormTransactionalRepositories) Events() shared.EventPublisher {
	return r.outbox.ForTx(r.tx)
}

// Sales returns the sale repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Sales() sales.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

// Returns returns the return repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Returns() sales.ReturnRepository {
	return NewGormReturnRepository(r.tx)
}

// Inventory returns the product store scoped to the current transaction.
func (r *gormTransactionalRepositories) Inventory() sales.InventoryStore {
	return NewGormProductStore(r.tx)
}

// Customers returns the customer store scoped to the current transaction.
func (r *gormTransactionalRepositories) Customers() sales.CustomerStore {
	return NewGormCustomerStore(r.tx)
}

// Ensure GormTransactionScope implements the sales TransactionScope
var _ salesapp.TransactionScope = (*GormTransactionScope)(nil)

// Ensure GormLedgerTransactionScope implements the ledger TransactionScope
var _ ledgerapp.TransactionScope = (*GormLedgerTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ salesapp.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
