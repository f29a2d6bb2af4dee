package sales

import (
	"testing"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProducts(ids ...uuid.UUID) map[uuid.UUID]*ProductSnapshot {
	m := make(map[uuid.UUID]*ProductSnapshot, len(ids))
	for i, id := range ids {
		m[id] = &ProductSnapshot{ProductID: id, Code: "P-" + string(rune('A'+i)), Name: "Carpet"}
	}
	return m
}

func usdRate(t *testing.T, rate string) *CurrencyRate {
	t.Helper()
	r, err := NewCurrencyRate(time.Now(), valueobject.USD, valueobject.AFN, dec(rate))
	require.NoError(t, err)
	return r
}

func TestBuildCart_SettlementCurrency(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	drafts := []LineItemDraft{
		{ProductID: p1, Price: dec("400"), Currency: valueobject.AFN},
		{ProductID: p2, Price: dec("600"), Currency: valueobject.AFN},
	}

	cart, err := BuildCart(valueobject.AFN, drafts, testProducts(p1, p2),
		ReceiptDraft{Total: dec("1000"), Paid: dec("1000"), Discount: dec("0")}, nil)
	require.NoError(t, err)

	assert.Nil(t, cart.Rate)
	require.Len(t, cart.LineItems, 2)
	assert.True(t, cart.LineItems[0].Price.Equal(dec("400")))
	assert.True(t, cart.LineItems[0].AppliedRate.Equal(dec("1")))
	assert.Equal(t, "P-A", cart.LineItems[0].ProductCode)
	assert.True(t, cart.Receipt.Remaining.IsZero())
}

func TestBuildCart_ConvertsForeignPrices(t *testing.T) {
	p1 := uuid.New()
	drafts := []LineItemDraft{{ProductID: p1, Price: dec("10"), Currency: valueobject.USD}}

	cart, err := BuildCart(valueobject.AFN, drafts, testProducts(p1),
		ReceiptDraft{Total: dec("10"), Paid: dec("4"), Discount: dec("1")}, usdRate(t, "70"))
	require.NoError(t, err)

	li := cart.LineItems[0]
	assert.Equal(t, valueobject.AFN, li.Currency)
	assert.True(t, li.Price.Equal(dec("700")))
	assert.True(t, li.OriginalPrice.Equal(dec("10")))
	assert.Equal(t, valueobject.USD, li.OriginalCurrency)
	assert.True(t, li.AppliedRate.Equal(dec("70")))

	require.NotNil(t, cart.Rate)
	assert.Equal(t, valueobject.AFN, cart.Receipt.Currency)
	assert.True(t, cart.Receipt.Total.Equal(dec("700")))
	assert.True(t, cart.Receipt.Paid.Equal(dec("280")))
	assert.True(t, cart.Receipt.Discount.Equal(dec("70")))
	assert.True(t, cart.Receipt.Remaining.Equal(dec("350")))
}

func TestBuildCart_FractionalRateKeepsIdentity(t *testing.T) {
	p1 := uuid.New()
	drafts := []LineItemDraft{{ProductID: p1, Price: dec("12.3456"), Currency: valueobject.USD}}

	cart, err := BuildCart(valueobject.AFN, drafts, testProducts(p1),
		ReceiptDraft{Total: dec("12.3456"), Paid: dec("5.0001"), Discount: dec("0.3333")}, usdRate(t, "71.1234"))
	require.NoError(t, err)

	r := cart.Receipt
	assert.True(t, r.Remaining.Equal(r.Total.Sub(r.Paid).Sub(r.Discount)))
	assert.True(t, valueobject.HasScale(r.Total, valueobject.MoneyScale))
}

func TestBuildCart_Rejections(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	okReceipt := ReceiptDraft{Total: dec("100"), Paid: dec("100"), Discount: dec("0")}

	cases := []struct {
		name    string
		drafts  []LineItemDraft
		rate    *CurrencyRate
		want    error
		catalog map[uuid.UUID]*ProductSnapshot
	}{
		{"empty cart", nil, nil, shared.ErrInvalidInput, testProducts(p1)},
		{"nil product", []LineItemDraft{{Price: dec("100"), Currency: valueobject.AFN}}, nil, shared.ErrInvalidInput, testProducts(p1)},
		{"duplicate product", []LineItemDraft{
			{ProductID: p1, Price: dec("50"), Currency: valueobject.AFN},
			{ProductID: p1, Price: dec("50"), Currency: valueobject.AFN},
		}, nil, shared.ErrInvalidInput, testProducts(p1)},
		{"unknown currency", []LineItemDraft{{ProductID: p1, Price: dec("100"), Currency: "XYZ"}}, nil, shared.ErrInvalidInput, testProducts(p1)},
		{"negative price", []LineItemDraft{{ProductID: p1, Price: dec("-1"), Currency: valueobject.AFN}}, nil, shared.ErrInvalidInput, testProducts(p1)},
		{"price scale", []LineItemDraft{{ProductID: p1, Price: dec("1.00001"), Currency: valueobject.AFN}}, nil, shared.ErrInvalidInput, testProducts(p1)},
		{"unknown product", []LineItemDraft{{ProductID: p2, Price: dec("100"), Currency: valueobject.AFN}}, nil, shared.ErrProductNotFound, testProducts(p1)},
		{"no rate for foreign price", []LineItemDraft{{ProductID: p1, Price: dec("100"), Currency: valueobject.USD}}, nil, shared.ErrRateUnavailable, testProducts(p1)},
		{"rate pair mismatch", []LineItemDraft{{ProductID: p1, Price: dec("100"), Currency: valueobject.EUR}}, usdRate(t, "70"), shared.ErrInvalidInput, testProducts(p1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildCart(valueobject.AFN, tc.drafts, tc.catalog, okReceipt, tc.rate)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNeedsConversion(t *testing.T) {
	assert.False(t, NeedsConversion([]LineItemDraft{{Currency: valueobject.AFN}}, valueobject.AFN))
	assert.True(t, NeedsConversion([]LineItemDraft{{Currency: valueobject.AFN}, {Currency: valueobject.USD}}, valueobject.AFN))
}

func TestNewCurrencyRate(t *testing.T) {
	r, err := NewCurrencyRate(time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC), valueobject.USD, valueobject.AFN, dec("70.25"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), r.EffectiveDate)

	_, err = NewCurrencyRate(time.Now(), valueobject.USD, valueobject.USD, dec("1"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = NewCurrencyRate(time.Now(), valueobject.USD, valueobject.AFN, dec("0"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = NewCurrencyRate(time.Now(), valueobject.USD, valueobject.AFN, dec("70.00001"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
