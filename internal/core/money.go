package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative currency amount in the session currency.
type Money struct {
	Amount decimal.Decimal
}

// Zero is the empty amount.
var Zero = Money{Amount: decimal.Zero}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{Amount: d}
}

// MustMoney parses s and panics on failure. Intended for tests and constants.
func MustMoney(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseAmount converts user input to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and any
// number of fractional digits. Negative values, exponents and non-numeric
// input are rejected. Zero is a valid amount.
//
// Examples:
//
//	ParseAmount("50")     -> 50
//	ParseAmount("12,5")   -> 12.5
//	ParseAmount("-1")     -> ErrNegativeAmount
//	ParseAmount("1e3")    -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return Money{}, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	if s == "." {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Amount: d}, nil
}

func (m Money) Validate() error {
	if m.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Amount: m.Amount.Add(o.Amount)} }

func (m Money) Sub(o Money) Money { return Money{Amount: m.Amount.Sub(o.Amount)} }

func (m Money) Equal(o Money) bool { return m.Amount.Equal(o.Amount) }

func (m Money) IsZero() bool { return m.Amount.IsZero() }

// Float returns the value as float64 for charting. Use Amount for arithmetic.
func (m Money) Float() float64 {
	f, _ := m.Amount.Float64()
	return f
}

// String formats with two decimals, e.g. "1000.00".
func (m Money) String() string {
	return m.Amount.StringFixed(2)
}

// Format prefixes the currency symbol, e.g. "₹1000.00".
func (m Money) Format(symbol string) string {
	if m.Amount.IsNegative() {
		return "-" + symbol + m.Amount.Neg().StringFixed(2)
	}
	return symbol + m.String()
}
