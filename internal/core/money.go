// Package core provides the budgeting domain model.
//
// Amounts are kept as integer cents. decimal.Decimal is only used at the
// edges, to parse user input and to render JSON numbers.
package core

import (
	"bytes"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// maxCents keeps parsed amounts well inside int64 after summation.
const maxCents = int64(1) << 53

// ParseAmount converts a decimal string to Money with half-up rounding on
// the third decimal place. Both dot (12.34) and comma (12,34) separators
// are accepted. The sign is preserved; callers decide what range is valid.
//
// Examples:
//
//	ParseAmount("42.5")   -> 4250
//	ParseAmount("12,345") -> 1235
//	ParseAmount("-3")     -> -300
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// ParseLenientAmount parses allocation amounts from partial client payloads.
// Empty or non-numeric input becomes zero. Negative and out-of-range
// values are rejected.
func ParseLenientAmount(s string) (Money, error) {
	m, err := ParseAmount(s)
	if errors.Is(err, ErrAmountRange) {
		return Money{}, err
	}
	if err != nil {
		return Money{}, nil
	}
	if m.Cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	return m, nil
}

// MoneyFromDecimal rounds d to cents. Amounts beyond maxCents return
// ErrAmountRange.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrAmountRange
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return ErrInvalidAmount
	}
	parsed, err := ParseAmount(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
