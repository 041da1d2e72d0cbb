// Package core provides money parsing and handling utilities.
//
// Amounts are kept as signed integer minor units (cents); decimal strings
// only appear at the edges, when parsing input or rendering output.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const minorUnitScale = 2

type Money struct {
	Cents int64
}

// ParseAmount converts a signed decimal string to minor units.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half away from zero on the third decimal place.
//
// Examples:
//
//	ParseAmount("12.34")  -> {1234}
//	ParseAmount("-12,34") -> {-1234}
//	ParseAmount("12.345") -> {1235}
func ParseAmount(s string) (Money, error) {
	return ParseAmountScale(s, minorUnitScale)
}

// ParseAmountScale is ParseAmount for a currency with fraction minor-unit
// digits (0 for JPY, 3 for KWD).
func ParseAmountScale(s string, fraction int) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, Invalid("amount", "empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, Invalid("amount", "invalid amount %q", s)
	}
	cents := d.Shift(int32(fraction)).Round(0)
	if !cents.IsInteger() || cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, Invalid("amount", "amount %q out of range", s)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// maxCents keeps sums of many amounts far from int64 overflow.
const maxCents = 1 << 53

func (m Money) inRange() bool {
	return m.Cents >= -maxCents && m.Cents <= maxCents
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Decimal returns the amount in major units for a currency with the given
// number of fraction digits.
func (m Money) Decimal(fraction int) decimal.Decimal {
	return decimal.New(m.Cents, int32(-fraction))
}

// String renders the amount with two fixed decimals, independent of locale.
func (m Money) String() string {
	return m.Decimal(minorUnitScale).StringFixed(minorUnitScale)
}
