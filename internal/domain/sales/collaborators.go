package sales

import (
	"context"

	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the product master data copied onto a line item
type ProductSnapshot struct {
	ProductID uuid.UUID            `json:"product_id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	ListPrice decimal.Decimal      `json:"list_price"`
	Currency  valueobject.Currency `json:"currency"`
}

// InventoryStore is the product availability collaborator.
// MarkSold and Release must run inside the sale's transaction.
type InventoryStore interface {
	// IsAvailable reports whether a product can be sold. Unknown products are ErrProductNotFound.
	IsAvailable(ctx context.Context, productID uuid.UUID) (bool, error)
	// Snapshot reads the product master for denormalizing into a line item
	Snapshot(ctx context.Context, productID uuid.UUID) (*ProductSnapshot, error)
	// MarkSold flips an available product to sold. It fails with
	// ErrProductUnavailable if the product is already sold or withdrawn,
	// including when a concurrent sale marked it first.
	MarkSold(ctx context.Context, productID uuid.UUID) error
	// Release makes a sold product available again
	Release(ctx context.Context, productID uuid.UUID) error
}

// CustomerContact is the customer data snapshotted into sales and returns
type CustomerContact struct {
	ID    uuid.UUID
	Name  string
	Phone string
}

// CustomerStore is the customer master collaborator
type CustomerStore interface {
	Exists(ctx context.Context, customerID uuid.UUID) (bool, error)
	// Contact returns display name and phone, or ErrCustomerNotFound
	Contact(ctx context.Context, customerID uuid.UUID) (*CustomerContact, error)
}
