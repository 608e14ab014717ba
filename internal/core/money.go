package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// plainDecimal is an unsigned number with at most one separator and no exponent.
var plainDecimal = regexp.MustCompile(`^(\d+([.,]\d*)?|[.,]\d+)$`)

// MaxCents bounds every stored amount and keeps sums well inside int64.
const MaxCents int64 = 1_000_000_000_000_000

var maxCents = decimal.NewFromInt(MaxCents)

// ParseDecimalToCents reads a positive amount typed by a user. Either "." or ","
// is the decimal separator; digits past the second place round half-up.
//
//	"12.34" -> 1234
//	"12,34" -> 1234
//	"1.005" -> 101
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !plainDecimal.MatchString(s) {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if !cents.IsPositive() || cents.GreaterThanOrEqual(maxCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// MoneyFromDecimal rounds d half-up to cents. A magnitude of MaxCents or more
// is ErrInvalidAmount, checked before the int64 conversion.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThanOrEqual(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount as a two-place decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the raw decimal form with a dot and two digits ("1234.50").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// IsNegative reports whether m is below zero.
func (m Money) IsNegative() bool {
	return m.Cents < 0
}
