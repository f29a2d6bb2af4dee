package sales

import (
	"context"

	ledgerapp "github.com/erp/shopcore/internal/application/ledger"
	"github.com/erp/shopcore/internal/domain/sales"
)

// TransactionScope runs a sale or return as one atomic unit
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories extends the ledger repositories with everything a
// sale touches. Product marks, the sale row, the deposit posting and the
// outbox events all share the one transaction.
type TransactionalRepositories interface {
	ledgerapp.TransactionalRepositories
	Sales() sales.SaleRepository
	Returns() sales.ReturnRepository
	Inventory() sales.InventoryStore
	Customers() sales.CustomerStore
}
