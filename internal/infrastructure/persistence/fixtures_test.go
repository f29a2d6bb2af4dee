package persistence

import (
	"context"
	"testing"

	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createAccount(t *testing.T, db *Database, number string, opening string) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(number, "Till "+number, valueobject.AFN, dec(opening))
	require.NoError(t, err)
	require.NoError(t, NewGormAccountRepository(db.DB).Create(context.Background(), account))
	return account
}

func createCustomer(t *testing.T, db *Database, name string) *sales.CustomerContact {
	t.Helper()
	c, err := NewGormCustomerStore(db.DB).CreateCustomer(context.Background(), name, "0700 111 222")
	require.NoError(t, err)
	return c
}

func createProduct(t *testing.T, db *Database, code string, price string) *sales.ProductSnapshot {
	t.Helper()
	p, err := NewGormProductStore(db.DB).CreateProduct(context.Background(), code, "Carpet "+code, dec(price), valueobject.AFN)
	require.NoError(t, err)
	return p
}

// newSale builds a settlement-currency sale over the given products
func newSale(t *testing.T, customer *sales.CustomerContact, bell int64, paid string, products ...*sales.ProductSnapshot) *sales.Sale {
	t.Helper()
	return newDiscountedSale(t, customer, bell, paid, "0", products...)
}

func newDiscountedSale(t *testing.T, customer *sales.CustomerContact, bell int64, paid, discount string, products ...*sales.ProductSnapshot) *sales.Sale {
	t.Helper()
	drafts := make([]sales.LineItemDraft, 0, len(products))
	snapshots := make(map[uuid.UUID]*sales.ProductSnapshot, len(products))
	total := decimal.Zero
	for _, p := range products {
		drafts = append(drafts, sales.LineItemDraft{ProductID: p.ProductID, Price: p.ListPrice, Currency: valueobject.AFN})
		snapshots[p.ProductID] = p
		total = total.Add(p.ListPrice)
	}
	cart, err := sales.BuildCart(valueobject.AFN, drafts, snapshots, sales.ReceiptDraft{Total: total, Paid: dec(paid), Discount: dec(discount)}, nil)
	require.NoError(t, err)
	sale, err := sales.NewSale(customer, bell, cart, nil, "")
	require.NoError(t, err)
	return sale
}

func createSale(t *testing.T, db *Database, customer *sales.CustomerContact, bell int64, paid string, products ...*sales.ProductSnapshot) *sales.Sale {
	t.Helper()
	sale := newSale(t, customer, bell, paid, products...)
	require.NoError(t, NewGormSaleRepository(db.DB).Create(context.Background(), sale))
	return sale
}
