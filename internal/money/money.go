// Package money provides an exact decimal representation for currency values.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrOutOfRange is returned for values that are not a currency amount:
// fractions of a cent or magnitudes of a quadrillion and beyond.
var ErrOutOfRange = errors.New("amount out of range")

const (
	// scale is the number of fractional digits an amount may carry.
	scale = 2

	// maxIntDigits bounds the integer part, keeping every amount below 1e15.
	maxIntDigits = 15

	// maxExponent bounds the exponent of parsed input before any arithmetic
	// runs on it, so "1e-400000" is refused without expanding it.
	maxExponent = 18
)

// Amount is a currency value. The zero value is 0.00.
type Amount struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// FromInt returns an amount of v whole currency units.
func FromInt(v int64) Amount {
	return Amount{d: decimal.NewFromInt(v)}
}

// FromCents returns an amount of c minor units.
func FromCents(c int64) Amount {
	return Amount{d: decimal.New(c, -2)}
}

// Parse parses a decimal string such as "10", "10.5" or "-3.25". At most
// two fractional digits and fifteen integer digits are accepted.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if err := check(d); err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return Amount{d: d}, nil
}

// check reports whether d fits an Amount. Only the exponent and the digit
// count are inspected before the cent check, so huge exponents cost nothing.
func check(d decimal.Decimal) error {
	if d.IsZero() {
		return nil
	}

	exp := int(d.Exponent())
	if exp < -maxExponent || exp > maxIntDigits {
		return ErrOutOfRange
	}
	if d.NumDigits()+exp > maxIntDigits {
		return ErrOutOfRange
	}
	if exp < -scale && !d.Equal(d.Truncate(scale)) {
		return fmt.Errorf("%w: fraction of a cent", ErrOutOfRange)
	}

	return nil
}

// Validate reports whether a is a currency amount. Amounts built with this
// package always are; the zero value too.
func (a Amount) Validate() error {
	return check(a.d)
}

// MustParse is like Parse but panics on error. Meant for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

// Cmp returns -1 if a < b, 0 if a == b and +1 if a > b.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

func (a Amount) Equal(b Amount) bool       { return a.d.Equal(b.d) }
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }
func (a Amount) LessThan(b Amount) bool    { return a.d.LessThan(b.d) }
func (a Amount) IsPositive() bool          { return a.d.IsPositive() }
func (a Amount) IsNegative() bool          { return a.d.IsNegative() }
func (a Amount) IsZero() bool              { return a.d.IsZero() }

// IsMultipleOf reports whether a is an exact multiple of unit.
// A zero unit is never divisible into.
func (a Amount) IsMultipleOf(unit Amount) bool {
	if unit.d.IsZero() {
		return false
	}
	return a.d.Mod(unit.d).IsZero()
}

// String formats the amount with two decimal places.
func (a Amount) String() string {
	return a.d.StringFixed(2)
}

// MarshalJSON encodes the amount as a two decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("decoding amount: %w", err)
	}
	if err := check(d); err != nil {
		return fmt.Errorf("decoding amount %s: %w", b, err)
	}
	a.d = d
	return nil
}
