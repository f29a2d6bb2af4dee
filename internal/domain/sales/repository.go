package sales

import (
	"context"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleFilter narrows sale listings
type SaleFilter struct {
	CustomerID   *uuid.UUID
	ReturnStatus *ReturnStatus
	From         *time.Time
	To           *time.Time
	Outstanding  bool

	// SortBy is a column key of the sales list; unknown keys sort by creation time
	SortBy    string
	SortOrder string
}

// SaleRepository persists sales with their line items
type SaleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	// FindByIDForUpdate loads the sale and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindByBellNumber(ctx context.Context, bellNumber int64) (*Sale, error)
	ExistsByBellNumber(ctx context.Context, bellNumber int64) (bool, error)
	// NextBellNumber returns one past the highest bell number in use
	NextBellNumber(ctx context.Context) (int64, error)
	// Create inserts the sale; a duplicate bell number is ErrBellNumberConflict
	Create(ctx context.Context, sale *Sale) error
	// UpdateReturnState writes the receipt, line flags and return status
	UpdateReturnState(ctx context.Context, sale *Sale) error
	List(ctx context.Context, filter SaleFilter, page shared.Page) ([]*Sale, int64, error)
}

// ReturnRepository persists return records
type ReturnRepository interface {
	Create(ctx context.Context, r *Return) error
	ListBySale(ctx context.Context, saleID uuid.UUID) ([]*Return, error)
}

// ReceivableRepository computes outstanding balances
type ReceivableRepository interface {
	// ListOutstanding returns one summary per customer with remaining > 0,
	// largest balance first
	ListOutstanding(ctx context.Context, filter ReceivableFilter, page shared.Page) ([]ReceivableSummary, int64, error)
	// ForCustomer returns the summary of one customer; a settled customer yields a zero summary
	ForCustomer(ctx context.Context, customerID uuid.UUID) (*ReceivableSummary, error)
}
