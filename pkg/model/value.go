package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is a non-negative fixed-precision amount of an instrument.
type Quantity struct {
	d decimal.Decimal
}

// NewQuantity constructs a Quantity, rejecting negative values.
func NewQuantity(d decimal.Decimal) (Quantity, error) {
	if d.IsNegative() {
		return Quantity{}, fmt.Errorf("model: quantity must be non-negative, got %s", d)
	}
	return Quantity{d: d}, nil
}

// QuantityFromFloat is a convenience constructor for tests and config
// parsing; it panics on a negative input since callers control the
// literal.
func QuantityFromFloat(f float64) Quantity {
	q, err := NewQuantity(decimal.NewFromFloat(f))
	if err != nil {
		panic(err)
	}
	return q
}

// ZeroQuantity is the additive identity.
var ZeroQuantity = Quantity{d: decimal.Zero}

// Decimal exposes the underlying fixed-precision value.
func (q Quantity) Decimal() decimal.Decimal { return q.d }

// Add returns q+o. Never negative since both operands are non-negative.
func (q Quantity) Add(o Quantity) Quantity { return Quantity{d: q.d.Add(o.d)} }

// Sub returns q-o. The result is not clamped at zero: when o exceeds q,
// Sub returns an error (from NewQuantity) instead of a negative Quantity.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	return NewQuantity(q.d.Sub(o.d))
}

// LessThanOrEqual reports whether q <= o.
func (q Quantity) LessThanOrEqual(o Quantity) bool { return q.d.LessThanOrEqual(o.d) }

// IsZero reports whether q is zero.
func (q Quantity) IsZero() bool { return q.d.IsZero() }

// Equal reports value equality (3 == 3.0 regardless of internal scale).
func (q Quantity) Equal(o Quantity) bool { return q.d.Equal(o.d) }

// String renders the underlying decimal.
func (q Quantity) String() string { return q.d.String() }

// Price is a fixed-precision price, may be zero but never negative.
type Price struct {
	d decimal.Decimal
}

// NewPrice constructs a Price, rejecting negative values.
func NewPrice(d decimal.Decimal) (Price, error) {
	if d.IsNegative() {
		return Price{}, fmt.Errorf("model: price must be non-negative, got %s", d)
	}
	return Price{d: d}, nil
}

// PriceFromFloat is a convenience constructor for tests and config
// parsing; panics on a negative input.
func PriceFromFloat(f float64) Price {
	p, err := NewPrice(decimal.NewFromFloat(f))
	if err != nil {
		panic(err)
	}
	return p
}

// Decimal exposes the underlying fixed-precision value.
func (p Price) Decimal() decimal.Decimal { return p.d }

// Mul returns the notional value of q units at price p.
func (p Price) Mul(q Quantity) Money { return Money{d: p.d.Mul(q.d)} }

// IsZero reports whether p is zero. (An order's average fill price is
// absent before the first fill as a nil *Price, not as a zero Price.)
func (p Price) IsZero() bool { return p.d.IsZero() }

// String renders the underlying decimal.
func (p Price) String() string { return p.d.String() }

// Money is a signed fixed-precision monetary amount (realized P&L,
// account balances, and notional values may all be negative).
type Money struct {
	d decimal.Decimal
}

// NewMoney constructs a Money value from a decimal.
func NewMoney(d decimal.Decimal) Money { return Money{d: d} }

// MoneyFromFloat is a convenience constructor for tests and config parsing.
func MoneyFromFloat(f float64) Money { return Money{d: decimal.NewFromFloat(f)} }

// ZeroMoney is the additive identity.
var ZeroMoney = Money{d: decimal.Zero}

// Decimal exposes the underlying fixed-precision value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Add returns m+o.
func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Sub returns m-o.
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool { return m.d.IsZero() }

// String renders the underlying decimal.
func (m Money) String() string { return m.d.String() }
