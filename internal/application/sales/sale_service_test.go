package sales

import (
	"context"
	"sync"
	"testing"
	"time"

	ledgerapp "github.com/erp/shopcore/internal/application/ledger"
	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

type saleFixture struct {
	store *memStore
	svc   *SaleService
	rates memRates
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	store := newMemStore()
	rates := memRates{store}
	svc := NewSaleService(store, readSales{store}, readReturns{store}, rates,
		Config{SettlementCurrency: valueobject.AFN, Location: time.UTC}, nil)
	svc.SetClock(func() time.Time { return fixedNow })
	return &saleFixture{store: store, svc: svc, rates: rates}
}

func (f *saleFixture) setUSDRate(t *testing.T, rate string) {
	t.Helper()
	r, err := sales.NewCurrencyRate(fixedNow, valueobject.USD, valueobject.AFN, decimal.RequireFromString(rate))
	require.NoError(t, err)
	require.NoError(t, f.rates.Save(context.Background(), r))
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func afnItem(id uuid.UUID, price string) LineItemInput {
	return LineItemInput{ProductID: id, Price: d(price), Currency: "AFN"}
}

func (f *saleFixture) postingCount() int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return len(f.store.postings)
}

func (f *saleFixture) saleCount() int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return len(f.store.sales)
}

func TestSaleService_CreateSale(t *testing.T) {
	ctx := context.Background()

	t.Run("settlement currency sale marks products sold", func(t *testing.T) {
		f := newSaleFixture(t)
		customer := f.store.addCustomer("Ahmad")
		p1, p2 := f.store.addProduct("C-1"), f.store.addProduct("C-2")

		resp, err := f.svc.CreateSale(ctx, CreateSaleRequest{
			CustomerID: customer,
			LineItems:  []LineItemInput{afnItem(p1, "400"), afnItem(p2, "600")},
			Receipt:    ReceiptInput{Total: d("1000"), Paid: d("700"), Discount: d("50")},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.BellNumber)
		assert.Equal(t, "Ahmad", resp.CustomerName)
		assert.True(t, resp.Receipt.Remaining.Equal(d("250")))
		assert.Equal(t, "normal", resp.ReturnStatus)
		assert.Nil(t, resp.ExchangeRate)
		assert.True(t, f.store.isSold(p1))
		assert.True(t, f.store.isSold(p2))
		assert.Equal(t, 1, f.store.eventsOfType(sales.EventTypeSaleCreated))
	})

	t.Run("foreign price converted with today's rate", func(t *testing.T) {
		f := newSaleFixture(t)
		f.setUSDRate(t, "70")
		customer := f.store.addCustomer("Karim")
		p1 := f.store.addProduct("R-1")

		resp, err := f.svc.CreateSale(ctx, CreateSaleRequest{
			CustomerID: customer,
			LineItems:  []LineItemInput{{ProductID: p1, Price: d("10"), Currency: "USD"}},
			Receipt:    ReceiptInput{Total: d("10"), Paid: d("10"), Discount: d("0")},
		})
		require.NoError(t, err)
		require.Len(t, resp.LineItems, 1)
		assert.True(t, resp.LineItems[0].Price.Equal(d("700")))
		assert.Equal(t, "AFN", resp.LineItems[0].Currency)
		assert.Equal(t, "USD", resp.LineItems[0].OriginalCurrency)
		assert.Equal(t, "AFN", resp.Receipt.Currency)
		assert.True(t, resp.Receipt.Total.Equal(d("700")))
		require.NotNil(t, resp.ExchangeRate)
		assert.True(t, resp.ExchangeRate.Equal(d("70")))
	})

	t.Run("missing rate is a hard failure", func(t *testing.T) {
		f := newSaleFixture(t)
		customer := f.store.addCustomer("Karim")
		p1 := f.store.addProduct("R-1")

		_, err := f.svc.CreateSale(ctx, CreateSaleRequest{
			CustomerID: customer,
			LineItems:  []LineItemInput{{ProductID: p1, Price: d("10"), Currency: "USD"}},
			Receipt:    ReceiptInput{Total: d("10"), Paid: d("10")},
		})
		assert.ErrorIs(t, err, shared.ErrRateUnavailable)
		assert.Contains(t, err.Error(), "2026-10-14")
		assert.False(t, f.store.isSold(p1))
		assert.Zero(t, f.saleCount())
	})

	t.Run("sold product is unavailable", func(t *testing.T) {
		f := newSaleFixture(t)
		customer := f.store.addCustomer("Ahmad")
		p1 := f.store.addProduct("C-1")
		req := CreateSaleRequest{
			CustomerID: customer,
			LineItems:  []LineItemInput{afnItem(p1, "100")},
			Receipt:    ReceiptInput{Total: d("100"), Paid: d("100")},
		}
		_, err := f.svc.CreateSale(ctx, req)
		require.NoError(t, err)

		_, err = f.svc.CreateSale(ctx, req)
		assert.ErrorIs(t, err, shared.ErrProductUnavailable)
		assert.Equal(t, 1, f.saleCount())
	})

	t.Run("second product unavailable leaves the first unsold", func(t *testing.T) {
		f := newSaleFixture(t)
		customer := f.store.addCustomer("Ahmad")
		p1, p2 := f.store.addProduct("C-1"), f.store.addProduct("C-2")
		_, err := f.svc.CreateSale(ctx, CreateSaleRequest{
			CustomerID: customer,
			LineItems:  []LineItemInput{afnItem(p2, "100")},
			Receipt:    ReceiptInput{Total: d("100"), Paid: d("100")},
		})
		require.NoError(t, err)

		_, err = f.svc.CreateSale(ctx, CreateSaleRequest{
			CustomerID: customer,
			LineItems:  []LineItemInput{afnItem(p1, "100"), afnItem(p2, "100")},
			Receipt:    ReceiptInput{Total: d("200"), Paid: d("200")},
		})
		assert.ErrorIs(t, err, shared.ErrProductUnavailable)
		assert.False(t, f.store.isSold(p1))
	})

	t.Run("frozen deposit account aborts the whole sale", func(t *testing.T) {
		f := newSaleFixture(t)
		customer := f.store.addCustomer("Ahmad")
		p1 := f.store.addProduct("C-1")
		frozen := f.store.addAccount("TILL-1", decimal.Zero, true)

		_, err := f.svc.CreateSale(ctx, CreateSaleRequest{
			CustomerID:       customer,
			LineItems:        []LineItemInput{afnItem(p1, "500")},
			Receipt:          ReceiptInput{Total: d("500"), Paid: d("500")},
			DepositAccountID: &frozen,
		})
		assert.ErrorIs(t, err, shared.ErrAccountInactive)
		assert.Zero(t, f.saleCount())
		assert.Zero(t, f.postingCount())
		assert.False(t, f.store.isSold(p1))
		assert.Zero(t, f.store.eventsOfType(sales.EventTypeSaleCreated))
	})

	t.Run("deposit account is credited with the paid amount", func(t *testing.T) {
		f := newSaleFixture(t)
		customer := f.store.addCustomer("Ahmad")
		p1 := f.store.addProduct("C-1")
		till := f.store.addAccount("TILL-1", d("100"), false)

		resp, err := f.svc.CreateSale(ctx, CreateSaleRequest{
			CustomerID:       customer,
			LineItems:        []LineItemInput{afnItem(p1, "500")},
			Receipt:          ReceiptInput{Total: d("500"), Paid: d("300")},
			BellNumber:       17,
			DepositAccountID: &till,
		})
		require.NoError(t, err)
		require.NotNil(t, resp.DepositPosting)
		assert.Equal(t, "sale - bell 17", resp.DepositPosting.Description)
		assert.True(t, resp.DepositPosting.BalanceAfter.Equal(d("400")))
		assert.Equal(t, 1, f.store.eventsOfType(ledger.EventTypePostingRecorded))

		ledgerSvc := ledgerapp.NewService(ledgerScope{f.store}, memAccounts{f.store}, memPostings{f.store}, nil)
		v, err := ledgerSvc.VerifyBalance(ctx, till)
		require.NoError(t, err)
		assert.True(t, v.Consistent)
	})

	t.Run("nothing paid means no posting", func(t *testing.T) {
		f := newSaleFixture(t)
		customer := f.store.addCustomer("Ahmad")
		p1 := f.store.addProduct("C-1")
		till := f.store.addAccount("TILL-1", d("0"), false)

		resp, err := f.svc.CreateSale(ctx, CreateSaleRequest{
			CustomerID:       customer,
			LineItems:        []LineItemInput{afnItem(p1, "500")},
			Receipt:          ReceiptInput{Total: d("500"), Paid: d("0")},
			DepositAccountID: &till,
		})
		require.NoError(t, err)
		assert.Nil(t, resp.DepositPosting)
		assert.Zero(t, f.postingCount())
	})

	t.Run("bell numbers allocate and conflict", func(t *testing.T) {
		f := newSaleFixture(t)
		customer := f.store.addCustomer("Ahmad")
		p1, p2, p3 := f.store.addProduct("C-1"), f.store.addProduct("C-2"), f.store.addProduct("C-3")

		first, err := f.svc.CreateSale(ctx, CreateSaleRequest{CustomerID: customer, BellNumber: 41,
			LineItems: []LineItemInput{afnItem(p1, "1")}, Receipt: ReceiptInput{Total: d("1"), Paid: d("1")}})
		require.NoError(t, err)
		assert.Equal(t, int64(41), first.BellNumber)

		next, err := f.svc.CreateSale(ctx, CreateSaleRequest{CustomerID: customer,
			LineItems: []LineItemInput{afnItem(p2, "1")}, Receipt: ReceiptInput{Total: d("1"), Paid: d("1")}})
		require.NoError(t, err)
		assert.Equal(t, int64(42), next.BellNumber)

		_, err = f.svc.CreateSale(ctx, CreateSaleRequest{CustomerID: customer, BellNumber: 41,
			LineItems: []LineItemInput{afnItem(p3, "1")}, Receipt: ReceiptInput{Total: d("1"), Paid: d("1")}})
		assert.ErrorIs(t, err, shared.ErrBellNumberConflict)
		assert.False(t, f.store.isSold(p3))
	})

	t.Run("rejections", func(t *testing.T) {
		f := newSaleFixture(t)
		customer := f.store.addCustomer("Ahmad")
		p1 := f.store.addProduct("C-1")
		till := f.store.addAccount("TILL-1", d("0"), false)
		f.store.accounts[till] = func() ledger.Account {
			a := f.store.accounts[till]
			a.Currency = valueobject.USD
			return a
		}()

		cases := []struct {
			name string
			req  CreateSaleRequest
			want error
		}{
			{"unknown customer", CreateSaleRequest{CustomerID: uuid.New(),
				LineItems: []LineItemInput{afnItem(p1, "1")}, Receipt: ReceiptInput{Total: d("1"), Paid: d("1")}}, shared.ErrCustomerNotFound},
			{"empty cart", CreateSaleRequest{CustomerID: customer, Receipt: ReceiptInput{Total: d("1")}}, shared.ErrInvalidInput},
			{"unknown product", CreateSaleRequest{CustomerID: customer,
				LineItems: []LineItemInput{afnItem(uuid.New(), "1")}, Receipt: ReceiptInput{Total: d("1"), Paid: d("1")}}, shared.ErrProductNotFound},
			{"bad receipt", CreateSaleRequest{CustomerID: customer,
				LineItems: []LineItemInput{afnItem(p1, "1")}, Receipt: ReceiptInput{Total: d("1"), Paid: d("2")}}, shared.ErrInvalidReceipt},
			{"bad currency", CreateSaleRequest{CustomerID: customer,
				LineItems: []LineItemInput{{ProductID: p1, Price: d("1"), Currency: "GBP"}}, Receipt: ReceiptInput{Total: d("1"), Paid: d("1")}}, shared.ErrInvalidInput},
			{"deposit currency mismatch", CreateSaleRequest{CustomerID: customer, DepositAccountID: &till,
				LineItems: []LineItemInput{afnItem(p1, "1")}, Receipt: ReceiptInput{Total: d("1"), Paid: d("1")}}, shared.ErrInvalidInput},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.svc.CreateSale(ctx, tc.req)
				assert.ErrorIs(t, err, tc.want)
				assert.False(t, f.store.isSold(p1))
			})
		}
		assert.Zero(t, f.saleCount())
	})
}

func TestSaleService_CreateSale_ConcurrentSameProduct(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	customer := f.store.addCustomer("Ahmad")
	p1 := f.store.addProduct("C-1")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateSale(ctx, CreateSaleRequest{
				CustomerID: customer,
				LineItems:  []LineItemInput{afnItem(p1, "100")},
				Receipt:    ReceiptInput{Total: d("100"), Paid: d("100")},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, shared.ErrProductUnavailable)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.saleCount())
}

func TestSaleService_ListSales(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	customer := f.store.addCustomer("Ahmad")
	for i := 0; i < 3; i++ {
		p := f.store.addProduct("C")
		_, err := f.svc.CreateSale(ctx, CreateSaleRequest{CustomerID: customer,
			LineItems: []LineItemInput{afnItem(p, "10")}, Receipt: ReceiptInput{Total: d("10"), Paid: d("10")}})
		require.NoError(t, err)
	}

	page, err := f.svc.ListSales(ctx, SaleListFilter{CustomerID: &customer})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 20, page.Limit)

	_, err = f.svc.ListSales(ctx, SaleListFilter{ReturnStatus: "voided"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.svc.GetSale(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrSaleNotFound)
}
