package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed amount in minor units (cents).
// All ledger arithmetic happens on this integer form; decimal strings are only
// used at the edges (wire format, logs).
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// minorExp is the number of fractional digits every amount carries.
const minorExp = 2

// MaxAmount bounds every parsed amount (100 billion in major units).
const MaxAmount Money = 10_000_000_000_000

// ParseMoney parses a decimal string such as "33.34" or "-5" into minor units.
// More than two fractional digits is an error; amounts are never rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return moneyFromDecimal(d, s)
}

// MustParseMoney is ParseMoney for literals in tests and fixtures.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func moneyFromDecimal(d decimal.Decimal, raw string) (Money, error) {
	cents := d.Shift(minorExp)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("invalid amount %q: more than %d fractional digits", raw, minorExp)
	}
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("invalid amount %q: out of range", raw)
	}
	m := Money(cents.IntPart())
	if m.Abs() > MaxAmount {
		return 0, fmt.Errorf("invalid amount %q: magnitude exceeds %s", raw, MaxAmount)
	}
	return m, nil
}

// Add returns m+o and false when the sum does not fit in an int64.
func (m Money) Add(o Money) (Money, bool) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, false
	}
	return sum, true
}

// Sub returns m-o and false when the difference does not fit in an int64.
func (m Money) Sub(o Money) (Money, bool) {
	diff := m - o
	if (o < 0 && diff < m) || (o > 0 && diff > m) {
		return 0, false
	}
	return diff, true
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal returns the amount as a decimal with two fractional digits.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorExp)
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.Decimal().StringFixed(minorExp)
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// MarshalJSON encodes the amount as a decimal string, e.g. "100.00".
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
