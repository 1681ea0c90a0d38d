package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	BandSafe     Band = "safe"
	BandWarning  Band = "warning"
	BandExceeded Band = "exceeded"
)

const (
	Trade            Activity = "trade"
	Services         Activity = "services"
	TradeAndServices Activity = "trade_services"
)

type (
	// Window is an inclusive range of calendar days.
	Window struct {
		Start Date `json:"start"`
		End   Date `json:"end"`
	}

	// CategoryAmount represents an amount aggregated by category name.
	CategoryAmount struct {
		Name   string `json:"name"`
		Amount Money  `json:"amount"`
	}

	PeriodSummary struct {
		WindowStart  Date             `json:"window_start"`
		WindowEnd    Date             `json:"window_end"`
		TotalIncome  Money            `json:"total_income"`
		TotalExpense Money            `json:"total_expense"`
		Net          Money            `json:"net"`
		ByCategory   map[string]Money `json:"by_category"`
	}

	Band string

	RevenueStanding struct {
		AnnualIncomeToDate Money           `json:"annual_income_to_date"`
		Ceiling            Money           `json:"ceiling"`
		Ratio              decimal.Decimal `json:"ratio"`
		Band               Band            `json:"band"`
	}

	// Activity is the MEI activity category that selects a tax table row.
	Activity string

	TaxEstimate struct {
		Model         string           `json:"model"`
		Category      Activity         `json:"category"`
		MonthlyAmount Money            `json:"monthly_amount"`
		AnnualAmount  Money            `json:"annual_amount"`
		EffectiveRate decimal.Decimal  `json:"effective_rate"`
		Bracket       int              `json:"bracket,omitempty"`   // 1-based, progressive only
		Liability     *Money           `json:"liability,omitempty"` // unrounded bracket result, progressive only
		Standing      *RevenueStanding `json:"standing,omitempty"`
	}
)

func (w Window) Validate() error {
	if err := w.Start.Validate(); err != nil {
		return err
	}
	if err := w.End.Validate(); err != nil {
		return err
	}
	if w.Start.After(w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Contains reports whether d falls inside the window, both ends included.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Categories returns the breakdown sorted by descending amount, then name.
func (s PeriodSummary) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(s.ByCategory))
	for name, amount := range s.ByCategory {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

var oneHundred = decimal.NewFromInt(100)

// Percent is the ratio scaled to a percentage. It is not clamped.
func (r RevenueStanding) Percent() decimal.Decimal {
	return r.Ratio.Mul(oneHundred)
}

// Remaining is the headroom left under the ceiling. Negative once exceeded.
func (r RevenueStanding) Remaining() Money {
	return r.Ceiling.Sub(r.AnnualIncomeToDate)
}

func (a Activity) Validate() error {
	switch a {
	case Trade, Services, TradeAndServices:
		return nil
	}
	return ErrUnknownCategory
}
