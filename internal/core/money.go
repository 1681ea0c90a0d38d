// Package core provides money parsing and handling utilities.
//
// Amounts are carried as integer centavos. Ratios and rates derived from them
// use decimal arithmetic so no float ever touches a sum.
package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in centavos.
type Money struct {
	Cents int64
}

// MaxAmount caps a single amount at R$ 1 trillion. Sums are still checked,
// see AddChecked.
var MaxAmount = Money{Cents: 1_000_000_000_000_00}

var hundred = decimal.NewFromInt(100)

func Cents(c int64) Money { return Money{Cents: c} }

// Reais builds a Money from whole reais.
func Reais(r int64) Money { return Money{Cents: r * 100} }

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmount.Cents {
		return ErrInvalidAmount
	}
	return nil
}

// AddChecked adds o and reports ErrAmountOverflow instead of wrapping.
func (m Money) AddChecked(o Money) (Money, error) {
	sum := m.Cents + o.Cents
	if (o.Cents > 0 && sum < m.Cents) || (o.Cents < 0 && sum > m.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: sum}, nil
}

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Mul(n int64) Money { return Money{Cents: m.Cents * n} }
func (m Money) IsZero() bool      { return m.Cents == 0 }
func (m Money) IsNegative() bool  { return m.Cents < 0 }

// Decimal returns the amount in major units (reais).
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// FromDecimal converts a major-unit decimal to Money, rounding to the nearest
// centavo (half away from zero).
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// FormatMajor renders the amount with a dot separator and two decimals.
//
//	Money{Cents: 7160}.FormatMajor() -> "71.60"
func (m Money) FormatMajor() string {
	return m.Decimal().StringFixed(2)
}

// String renders the amount the way it is shown to the operator:
// R$ 1.234,56.
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), cents%100)
}

type moneyJSON struct {
	Cents   int64  `json:"cents"`
	Value   string `json:"value"`
	Display string `json:"display"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Cents: m.Cents, Value: m.FormatMajor(), Display: m.String()})
}

// UnmarshalJSON accepts either the object form produced by MarshalJSON or a
// bare decimal string such as "71,60".
func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		cents, err := ParseDecimalToCents(s)
		if err != nil {
			return err
		}
		m.Cents = cents
		return nil
	}
	var obj moneyJSON
	if err := json.Unmarshal(b, &obj); err != nil {
		return ErrInvalidAmount
	}
	m.Cents = obj.Cents
	return nil
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseRevenue is ParseDecimalToCents that also accepts zero, for revenue
// figures that may legitimately be empty.
func ParseRevenue(s string) (Money, error) {
	cents, err := parseCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// The fraction adds at most 100 cents after rounding.
	if iv > (MaxAmount.Cents-100)/100 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}
