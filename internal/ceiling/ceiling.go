// Package ceiling classifies year-to-date revenue against the statutory MEI
// annual ceiling.
package ceiling

import (
	"fmt"

	"financemei/internal/core"

	"github.com/shopspring/decimal"
)

// DefaultCeiling is the MEI annual revenue limit, R$ 81.000,00.
var DefaultCeiling = core.Reais(81000)

var (
	warningAt  = decimal.RequireFromString("0.80")
	exceededAt = decimal.NewFromInt(1)
)

// Classify computes the ratio of annual income to ceiling and its risk band.
// The ratio is never clamped, so a figure past the ceiling reads above 1.
func Classify(annual, ceiling core.Money) (core.RevenueStanding, error) {
	if annual.IsNegative() {
		return core.RevenueStanding{}, fmt.Errorf("%w: negative annual income %s", core.ErrInvalidInput, annual)
	}
	if ceiling.Cents <= 0 {
		return core.RevenueStanding{}, fmt.Errorf("%w: ceiling must be positive, got %s", core.ErrInvalidInput, ceiling)
	}
	ratio := annual.Decimal().Div(ceiling.Decimal())
	return core.RevenueStanding{
		AnnualIncomeToDate: annual,
		Ceiling:            ceiling,
		Ratio:              ratio,
		Band:               BandFor(ratio),
	}, nil
}

// BandFor maps a ratio to its band: up to 0.80 is safe, up to 1.00 is a
// warning, anything above is exceeded.
func BandFor(ratio decimal.Decimal) core.Band {
	switch {
	case ratio.LessThanOrEqual(warningAt):
		return core.BandSafe
	case ratio.LessThanOrEqual(exceededAt):
		return core.BandWarning
	default:
		return core.BandExceeded
	}
}
