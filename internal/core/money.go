// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals. Nothing here rounds; presentation code truncates
// to two decimals through FormatAmount.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed exact decimal amount.
type Money struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{}

func NewMoney(d decimal.Decimal) Money {
	return Money{d: d}
}

// MoneyFromInt builds an amount from whole units, handy in tests and seeds.
func MoneyFromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

// MoneyFromFloat is used only when reading stores that keep amounts as
// floating point numbers.
func MoneyFromFloat(f float64) Money {
	return Money{d: decimal.NewFromFloat(f)}
}

// MoneyFromString parses a signed decimal as stored by the SQL backend.
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

// ParseAmount parses a user-entered positive amount.
//
// Commas are digit group separators, in either the thousands (1,000,000) or
// the Indian (10,00,000) style. A single comma followed by one or two digits
// and no dot is read as a decimal comma. Signs, zero, exponents and anything
// non-numeric are rejected. Precision is kept as entered.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("6,000")    -> 6000, nil
//	ParseAmount("1,00,000") -> 100000, nil
//	ParseAmount("12,5")     -> 12.5, nil
//	ParseAmount("1,2,3")    -> error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return Money{}, ErrInvalidAmount
		}
	}

	intPart, frac, hasDot := strings.Cut(s, ".")
	if strings.ContainsAny(frac, ".,") {
		return Money{}, ErrInvalidAmount
	}
	if groups := strings.Split(intPart, ","); len(groups) > 1 {
		last := groups[len(groups)-1]
		if !hasDot && len(groups) == 2 && groups[0] != "" && (len(last) == 1 || len(last) == 2) {
			intPart, frac, hasDot = groups[0], last, true
		} else {
			if !validGrouping(groups) {
				return Money{}, ErrInvalidAmount
			}
			intPart = strings.Join(groups, "")
		}
	}

	if intPart == "" && frac == "" {
		return Money{}, ErrInvalidAmount
	}
	num := intPart
	if hasDot {
		num += "." + frac
	}
	d, err := decimal.NewFromString(num)
	if err != nil || !d.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

// validGrouping accepts 1-3 leading digits, then groups of two or three with
// the last group always three.
func validGrouping(groups []string) bool {
	if n := len(groups[0]); n < 1 || n > 3 {
		return false
	}
	for i, g := range groups[1:] {
		last := i == len(groups)-2
		if len(g) != 3 && (last || len(g) != 2) {
			return false
		}
	}
	return true
}

func (m Money) Decimal() decimal.Decimal { return m.d }
func (m Money) Add(o Money) Money        { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money        { return Money{d: m.d.Sub(o.d)} }
func (m Money) Abs() Money               { return Money{d: m.d.Abs()} }
func (m Money) Neg() Money               { return Money{d: m.d.Neg()} }
func (m Money) IsPositive() bool         { return m.d.IsPositive() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) Equal(o Money) bool       { return m.d.Equal(o.d) }
func (m Money) Cmp(o Money) int          { return m.d.Cmp(o.d) }

// String is the exact canonical form, suitable for storage.
func (m Money) String() string { return m.d.String() }

// Float64 is lossy; only stores that persist floats call it.
func (m Money) Float64() float64 { return m.d.InexactFloat64() }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.d.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = Money{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	m.d = d
	return nil
}

// Grouping selects how integer digits are separated.
type Grouping int

const (
	// GroupThousands separates every three digits: 1,234,567.
	GroupThousands Grouping = iota
	// GroupIndian separates the last three digits, then every two: 12,34,567.
	GroupIndian
)

// GroupingFor picks Indian grouping for rupee amounts and thousands grouping
// otherwise.
func GroupingFor(symbol, code string) Grouping {
	if symbol == "₹" || strings.EqualFold(code, "INR") {
		return GroupIndian
	}
	return GroupThousands
}

// FormatAmount renders an amount with a currency symbol, digit grouping chosen
// by GroupingFor and exactly two decimals truncated (not rounded), e.g.
// "-₹1,234.50".
func FormatAmount(symbol string, m Money) string {
	return FormatAmountGrouped(symbol, m, GroupingFor(symbol, ""))
}

func FormatAmountGrouped(symbol string, m Money, g Grouping) string {
	t := m.d.Truncate(2)
	neg := t.IsNegative()
	fixed := t.Abs().StringFixed(2)

	intPart, frac := fixed, "00"
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, frac = fixed[:i], fixed[i+1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, r := range intPart {
		if i > 0 && separatorBefore(len(intPart)-i, g) {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// separatorBefore reports whether a comma goes before a digit that has rest
// digits from it to the end of the integer part.
func separatorBefore(rest int, g Grouping) bool {
	if g == GroupIndian && rest > 3 {
		return (rest-3)%2 == 0
	}
	return rest%3 == 0
}
