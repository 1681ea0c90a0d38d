package tax

import (
	"fmt"

	"financemei/internal/core"

	"github.com/shopspring/decimal"
)

// Bracket is one inclusive revenue range of a progressive table.
type Bracket struct {
	Floor     core.Money
	Ceiling   core.Money
	Rate      decimal.Decimal
	Deduction core.Money
}

// ProgressiveTable holds the ordered brackets per activity.
type ProgressiveTable struct {
	Brackets map[core.Activity][]Bracket
	Ceiling  core.Money
}

// NewProgressiveTable validates the brackets and returns the table. Each
// activity's brackets must start at zero and follow each other one centavo
// apart, with no gaps and no overlap.
func NewProgressiveTable(brackets map[core.Activity][]Bracket) (ProgressiveTable, error) {
	t := ProgressiveTable{Brackets: brackets}
	if err := t.Validate(); err != nil {
		return ProgressiveTable{}, err
	}
	return t, nil
}

func (t ProgressiveTable) Validate() error {
	if len(t.Brackets) == 0 {
		return fmt.Errorf("%w: progressive table has no rows", core.ErrInvalidInput)
	}
	for a, rows := range t.Brackets {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("progressive table %q: %w", string(a), err)
		}
		if err := validateBrackets(rows); err != nil {
			return fmt.Errorf("progressive table %q: %w", string(a), err)
		}
	}
	return nil
}

func validateBrackets(rows []Bracket) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: no brackets", core.ErrInvalidInput)
	}
	for i, b := range rows {
		if i == 0 && !b.Floor.IsZero() {
			return fmt.Errorf("%w: first bracket must start at zero, starts at %s", core.ErrInvalidInput, b.Floor)
		}
		if i > 0 && b.Floor.Cents != rows[i-1].Ceiling.Cents+1 {
			return fmt.Errorf("%w: bracket %d floor %s does not follow ceiling %s", core.ErrInvalidInput, i+1, b.Floor, rows[i-1].Ceiling)
		}
		if b.Ceiling.Cents < b.Floor.Cents {
			return fmt.Errorf("%w: bracket %d ceiling below floor", core.ErrInvalidInput, i+1)
		}
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return fmt.Errorf("%w: bracket %d rate %s outside [0, 1]", core.ErrInvalidInput, i+1, b.Rate)
		}
		if b.Deduction.IsNegative() {
			return fmt.Errorf("%w: bracket %d negative deduction", core.ErrInvalidInput, i+1)
		}
		// Liability grows with revenue inside a bracket, so the floor is
		// where it would first go negative.
		if b.Floor.Decimal().Mul(b.Rate).LessThan(b.Deduction.Decimal()) {
			return fmt.Errorf("%w: bracket %d deduction %s exceeds floor x rate", core.ErrInvalidInput, i+1, b.Deduction)
		}
	}
	return nil
}

// Select returns the 1-based index of the bracket holding revenue. Brackets
// are scanned in order so a value on a boundary lands in the lower one.
func Select(rows []Bracket, revenue core.Money) (int, Bracket, error) {
	for i, b := range rows {
		if revenue.Cents >= b.Floor.Cents && revenue.Cents <= b.Ceiling.Cents {
			return i + 1, b, nil
		}
	}
	top := core.Money{}
	if len(rows) > 0 {
		top = rows[len(rows)-1].Ceiling
	}
	return 0, Bracket{}, fmt.Errorf("%w: %s exceeds %s", core.ErrBracketOverflow, revenue, top)
}

// Estimate applies tax = revenue x rate - deduction as the annual liability.
// The monthly amount is that figure over twelve, rounded to the centavo.
func (t ProgressiveTable) Estimate(category core.Activity, revenue *core.Money) (core.TaxEstimate, error) {
	rows, ok := t.Brackets[category]
	if !ok {
		return core.TaxEstimate{}, fmt.Errorf("%w: %q", core.ErrUnknownCategory, string(category))
	}
	if revenue == nil {
		return core.TaxEstimate{}, fmt.Errorf("%w: progressive model needs a revenue figure", core.ErrInvalidInput)
	}
	if err := validateRevenue(revenue); err != nil {
		return core.TaxEstimate{}, err
	}

	idx, b, err := Select(rows, *revenue)
	if err != nil {
		return core.TaxEstimate{}, err
	}
	liability := core.FromDecimal(revenue.Decimal().Mul(b.Rate).Sub(b.Deduction.Decimal()))
	if liability.IsNegative() {
		return core.TaxEstimate{}, fmt.Errorf("%w: bracket %d yields negative liability %s", core.ErrInvalidInput, idx, liability)
	}
	monthly := core.FromDecimal(liability.Decimal().Div(decimal.NewFromInt(12)))
	annual := monthly.Mul(12)

	standing, err := standingFor(revenue, t.Ceiling)
	if err != nil {
		return core.TaxEstimate{}, err
	}
	return core.TaxEstimate{
		Model:         string(Progressive),
		Category:      category,
		MonthlyAmount: monthly,
		AnnualAmount:  annual,
		EffectiveRate: effectiveRate(annual, *revenue),
		Bracket:       idx,
		Liability:     &liability,
		Standing:      standing,
	}, nil
}

func bracket(floorCents, ceilingCents int64, rate string, deductionReais int64) Bracket {
	return Bracket{
		Floor:     core.Money{Cents: floorCents},
		Ceiling:   core.Money{Cents: ceilingCents},
		Rate:      decimal.RequireFromString(rate),
		Deduction: core.Reais(deductionReais),
	}
}

// Simples Nacional annual revenue bands shared by every annex.
const (
	band1 = 180_000_00
	band2 = 360_000_00
	band3 = 720_000_00
	band4 = 1_800_000_00
	band5 = 3_600_000_00
	band6 = 4_800_000_00
)

func anexoI() []Bracket {
	return []Bracket{
		bracket(0, band1, "0.04", 0),
		bracket(band1+1, band2, "0.073", 5_940),
		bracket(band2+1, band3, "0.095", 13_860),
		bracket(band3+1, band4, "0.107", 22_500),
		bracket(band4+1, band5, "0.143", 87_300),
		bracket(band5+1, band6, "0.19", 378_000),
	}
}

func anexoIII() []Bracket {
	return []Bracket{
		bracket(0, band1, "0.06", 0),
		bracket(band1+1, band2, "0.112", 9_360),
		bracket(band2+1, band3, "0.135", 17_640),
		bracket(band3+1, band4, "0.16", 35_640),
		bracket(band4+1, band5, "0.21", 125_640),
		bracket(band5+1, band6, "0.33", 648_000),
	}
}

// DefaultProgressiveTable returns Simples Nacional Anexo I for trade and
// mixed activity and Anexo III for services.
func DefaultProgressiveTable() ProgressiveTable {
	return ProgressiveTable{
		Brackets: map[core.Activity][]Bracket{
			core.Trade:            anexoI(),
			core.Services:         anexoIII(),
			core.TradeAndServices: anexoI(),
		},
	}
}
