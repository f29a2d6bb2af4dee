package sales

import (
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ReceiptDraft is the caller-supplied receipt, in the cart's pricing currency.
// Remaining may be omitted, in which case it is derived.
type ReceiptDraft struct {
	Total     decimal.Decimal
	Paid      decimal.Decimal
	Discount  decimal.Decimal
	Remaining *decimal.Decimal
}

// Receipt holds the settled figures of a sale, all in one currency.
// Remaining = Total - Paid - Discount always holds.
type Receipt struct {
	Total     decimal.Decimal
	Paid      decimal.Decimal
	Discount  decimal.Decimal
	Remaining decimal.Decimal
	Currency  valueobject.Currency
}

// finalize turns the draft into a receipt tagged with currency, rejecting
// negative figures and a remaining that disagrees with the other three.
func (d ReceiptDraft) finalize(currency valueobject.Currency) (Receipt, error) {
	for _, v := range []decimal.Decimal{d.Total, d.Paid, d.Discount} {
		if !valueobject.HasScale(v, valueobject.InputScale) {
			return Receipt{}, shared.ErrInvalidReceipt.WithMessage("receipt amounts allow at most %d decimal places", valueobject.InputScale)
		}
	}
	derived := d.Total.Sub(d.Paid).Sub(d.Discount)
	if d.Remaining != nil && !d.Remaining.Equal(derived) {
		return Receipt{}, shared.ErrInvalidReceipt.WithMessage("receipt remaining %s does not equal total - paid - discount (%s)",
			d.Remaining.String(), derived.String())
	}
	r := Receipt{
		Total:     d.Total,
		Paid:      d.Paid,
		Discount:  d.Discount,
		Remaining: derived,
		Currency:  currency,
	}
	if err := r.Validate(); err != nil {
		return Receipt{}, err
	}
	return r, nil
}

// Validate checks non-negativity and the remaining identity
func (r Receipt) Validate() error {
	if r.Total.IsNegative() || r.Paid.IsNegative() || r.Discount.IsNegative() || r.Remaining.IsNegative() {
		return shared.ErrInvalidReceipt.WithMessage("receipt figures cannot be negative (total %s, paid %s, discount %s, remaining %s)",
			r.Total.String(), r.Paid.String(), r.Discount.String(), r.Remaining.String())
	}
	if !r.Remaining.Equal(r.Total.Sub(r.Paid).Sub(r.Discount)) {
		return shared.ErrInvalidReceipt.WithMessage("receipt remaining must equal total - paid - discount")
	}
	if !r.Currency.IsValid() {
		return shared.ErrInvalidReceipt.WithMessage("receipt currency %q is not supported", r.Currency)
	}
	return nil
}

// convert multiplies every figure by rate and retags the currency. The
// multiplication is exact, so the identity carries over unchanged.
func (r Receipt) convert(rate decimal.Decimal, target valueobject.Currency) Receipt {
	return Receipt{
		Total:     r.Total.Mul(rate),
		Paid:      r.Paid.Mul(rate),
		Discount:  r.Discount.Mul(rate),
		Remaining: r.Remaining.Mul(rate),
		Currency:  target,
	}
}

// IsOutstanding reports whether anything is still owed on the sale
func (r Receipt) IsOutstanding() bool {
	return r.Remaining.IsPositive()
}

// WithoutLine removes a returned line's contribution. The total shrinks by the
// line and the discount is capped at the new total. The line first pays down
// what the customer still owes; only the part remaining cannot absorb comes
// off paid. The returned refund is that part, which the customer is owed back.
func (r Receipt) WithoutLine(lineTotal decimal.Decimal) (Receipt, decimal.Decimal) {
	total := decimal.Max(r.Total.Sub(lineTotal), decimal.Zero)
	discount := decimal.Min(r.Discount, total)
	remaining := decimal.Max(r.Remaining.Sub(lineTotal), decimal.Zero)
	remaining = decimal.Min(remaining, total.Sub(discount))
	paid := total.Sub(discount).Sub(remaining)

	next := Receipt{
		Total:     total,
		Paid:      paid,
		Discount:  discount,
		Remaining: remaining,
		Currency:  r.Currency,
	}
	return next, r.Paid.Sub(paid)
}
