// Package valueobject holds the immutable money and currency types the ledger
// and sales contexts share.
package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency is an ISO 4217 code the shop trades in.
type Currency string

const (
	AFN Currency = "AFN"
	USD Currency = "USD"
	EUR Currency = "EUR"
	PKR Currency = "PKR"
	IRR Currency = "IRR"
)

// DefaultCurrency settles sales and ledgers when nothing else is configured.
const DefaultCurrency = AFN

// Amounts persist with MoneyScale places. Prices and rates are entered with at
// most InputScale places, so a converted price never needs rounding.
const (
	MoneyScale int32 = 8
	InputScale int32 = 4
)

// DisplayLocale groups digits in log lines and error messages.
var DisplayLocale = language.English

var supported = map[Currency]bool{AFN: true, USD: true, EUR: true, PKR: true, IRR: true}

var errNoCurrency = errors.New("currency cannot be empty")

// HasScale reports whether d has no more than places decimal digits.
func HasScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}

// ParseCurrency accepts codes in any case with surrounding blanks.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	switch {
	case c == "":
		return "", errNoCurrency
	case !supported[c]:
		return "", fmt.Errorf("unsupported currency: %s", code)
	}
	return c, nil
}

func (c Currency) IsValid() bool  { return supported[c] }
func (c Currency) String() string { return string(c) }

// Money is an amount tagged with its currency. Operations return new values.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errNoCurrency
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustNewMoney panics on an empty currency; use it where the currency came
// from a validated aggregate.
func MustNewMoney(amount decimal.Decimal, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }

func (m Money) sameCurrency(op string, other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("cannot %s %s and %s amounts", op, m.currency, other.currency)
	}
	return nil
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency("add", other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency("subtract", other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency("compare", other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// ConvertAt multiplies by rate, the target units per one unit of m's
// currency. A conversion into m's own currency returns m unchanged.
func (m Money) ConvertAt(rate decimal.Decimal, target Currency) (Money, error) {
	if m.currency == target {
		return m, nil
	}
	if !rate.IsPositive() {
		return Money{}, fmt.Errorf("conversion rate must be positive, got %s", rate)
	}
	return Money{amount: m.amount.Mul(rate), currency: target}, nil
}

// String is the plain two-place form, e.g. "12500.50 AFN".
func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + string(m.currency)
}

// Format groups digits for tag, e.g. "12,500.50 AFN" for English.
func (m Money) Format(tag language.Tag) string {
	f, _ := m.amount.Round(2).Float64()
	return message.NewPrinter(tag).Sprintf("%v %s", number.Decimal(f, number.Scale(2)), m.currency)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON keeps the amount a string so no precision is lost.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	*m = Money{amount: amount, currency: v.Currency}
	return nil
}
