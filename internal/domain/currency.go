// Package domain defines core data structures used throughout the autopricer.
package domain

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// MetalStep is the smallest representable amount of refined metal: one scrap,
// a ninth of a refined, rendered in pricelists as 0.11.
var MetalStep = decimal.New(11, -2)

// stepsPerRefined is the number of scrap steps that make up one refined.
const stepsPerRefined = 9

// ErrInvalidAmount is returned when a currency amount is negative or otherwise
// cannot represent a price.
var ErrInvalidAmount = errors.New("invalid currency amount")

// Currency is a price expressed in the two-tier item economy: whole keys plus
// refined metal. Metal is always quantized to scrap steps. Value type, never
// mutated after creation.
type Currency struct {
	Keys  int64           `json:"keys"`
	Metal decimal.Decimal `json:"metal"`
}

// NewCurrency builds a Currency, quantizing the metal component.
func NewCurrency(keys int64, metal decimal.Decimal) (Currency, error) {
	if keys < 0 || metal.IsNegative() {
		return Currency{}, errors.Wrapf(ErrInvalidAmount, "keys=%d metal=%s", keys, metal)
	}
	return Currency{Keys: keys, Metal: Quantize(metal)}, nil
}

// Quantize rounds a refined metal value to the nearest scrap step. A fraction
// that rounds up to the ninth step carries over into a whole refined, so the
// result is never left at an out-of-range step index. Idempotent.
func Quantize(metal decimal.Decimal) decimal.Decimal {
	whole := metal.Floor()
	steps := metal.Sub(whole).Div(MetalStep).Round(0).IntPart()
	if steps >= stepsPerRefined {
		return whole.Add(decimal.NewFromInt(1))
	}
	return whole.Add(decimal.NewFromInt(steps).Mul(MetalStep))
}

// Scalar converts the amount into a single refined-metal value using the
// supplied key rate (refined per key).
func (c Currency) Scalar(keyRate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(c.Keys).Mul(keyRate).Add(Quantize(c.Metal))
}

// CurrencyFromScalar converts a refined-metal value back into keys and metal.
// The key count absorbs every whole multiple of the key rate; the remainder is
// quantized metal. A zero key rate leaves the whole value in metal.
func CurrencyFromScalar(value, keyRate decimal.Decimal) (Currency, error) {
	if value.IsNegative() {
		return Currency{}, errors.Wrapf(ErrInvalidAmount, "scalar=%s", value)
	}
	if keyRate.IsZero() {
		return Currency{Keys: 0, Metal: Quantize(value)}, nil
	}
	keys := value.Div(keyRate).IntPart()
	metal := value.Sub(decimal.NewFromInt(keys).Mul(keyRate))
	return Currency{Keys: keys, Metal: Quantize(metal)}, nil
}

// Combine adds a refined metal amount onto c and renormalizes, letting the key
// count absorb any whole multiples of the key rate accumulated in metal.
func Combine(c Currency, metal decimal.Decimal, keyRate decimal.Decimal) (Currency, error) {
	if metal.IsNegative() {
		return Currency{}, errors.Wrapf(ErrInvalidAmount, "metal=%s", metal)
	}
	return CurrencyFromScalar(c.Scalar(keyRate).Add(Quantize(metal)), keyRate)
}

// IsZero reports whether both components are zero.
func (c Currency) IsZero() bool {
	return c.Keys == 0 && c.Metal.IsZero()
}

// Equal reports whether two amounts are identical component-wise.
func (c Currency) Equal(o Currency) bool {
	return c.Keys == o.Keys && c.Metal.Equal(o.Metal)
}

// String returns a human-readable representation, e.g. "2 keys, 3.55 ref".
func (c Currency) String() string {
	switch {
	case c.Keys == 0:
		return fmt.Sprintf("%s ref", c.Metal.String())
	case c.Metal.IsZero():
		return fmt.Sprintf("%d keys", c.Keys)
	default:
		return fmt.Sprintf("%d keys, %s ref", c.Keys, c.Metal.String())
	}
}
