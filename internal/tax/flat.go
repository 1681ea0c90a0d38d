package tax

import (
	"fmt"

	"financemei/internal/core"
)

// FlatTable holds the fixed monthly DAS per activity.
type FlatTable struct {
	Monthly map[core.Activity]core.Money
	Ceiling core.Money
}

// DefaultFlatTable returns the 2025 MEI DAS values.
func DefaultFlatTable() FlatTable {
	return FlatTable{
		Monthly: map[core.Activity]core.Money{
			core.Trade:            {Cents: 7160},
			core.Services:         {Cents: 7560},
			core.TradeAndServices: {Cents: 7660},
		},
	}
}

func (t FlatTable) Validate() error {
	if len(t.Monthly) == 0 {
		return fmt.Errorf("%w: flat table has no rows", core.ErrInvalidInput)
	}
	for a, m := range t.Monthly {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("flat table row %q: %w", string(a), err)
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("flat table row %q: %w", string(a), err)
		}
	}
	return nil
}

// Estimate returns the fixed DAS for the category. Revenue only feeds the
// effective rate and the ceiling standing; the amounts never depend on it.
func (t FlatTable) Estimate(category core.Activity, revenue *core.Money) (core.TaxEstimate, error) {
	monthly, ok := t.Monthly[category]
	if !ok {
		return core.TaxEstimate{}, fmt.Errorf("%w: %q", core.ErrUnknownCategory, string(category))
	}
	if err := validateRevenue(revenue); err != nil {
		return core.TaxEstimate{}, err
	}

	annual := monthly.Mul(12)
	var base core.Money
	if revenue != nil {
		base = *revenue
	}
	standing, err := standingFor(revenue, t.Ceiling)
	if err != nil {
		return core.TaxEstimate{}, err
	}
	return core.TaxEstimate{
		Model:         string(Flat),
		Category:      category,
		MonthlyAmount: monthly,
		AnnualAmount:  annual,
		EffectiveRate: effectiveRate(annual, base),
		Standing:      standing,
	}, nil
}
