// Package aggregate folds ledger entries into period summaries.
//
// Every function here is pure: it works on the slice it is given and never
// reaches back into a store. Callers fetch one snapshot and derive as many
// summaries from it as they need.
package aggregate

import (
	"fmt"

	"financemei/internal/core"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Summarize totals the entries whose OccurredOn falls inside the window, both
// ends included. Settlement is ignored; use SettledOnly first when only
// realized movements count.
func Summarize(entries []core.LedgerEntry, window core.Window) (core.PeriodSummary, error) {
	if err := window.Validate(); err != nil {
		return core.PeriodSummary{}, err
	}

	s := core.PeriodSummary{
		WindowStart: window.Start,
		WindowEnd:   window.End,
		ByCategory:  make(map[string]core.Money),
	}
	for _, e := range entries {
		if !window.Contains(e.OccurredOn) {
			continue
		}
		var err error
		switch e.Kind {
		case core.Income:
			s.TotalIncome, err = s.TotalIncome.AddChecked(e.Amount)
		case core.Expense:
			s.TotalExpense, err = s.TotalExpense.AddChecked(e.Amount)
		default:
			continue
		}
		if err != nil {
			return core.PeriodSummary{}, err
		}
		if s.ByCategory[e.Category], err = s.ByCategory[e.Category].AddChecked(e.Amount); err != nil {
			return core.PeriodSummary{}, err
		}
	}
	s.Net = s.TotalIncome.Sub(s.TotalExpense)
	return s, nil
}

// SettledOnly returns the entries that have actually been paid or received.
func SettledOnly(entries []core.LedgerEntry) []core.LedgerEntry {
	out := make([]core.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.Settled {
			out = append(out, e)
		}
	}
	return out
}

// OfKind filters entries down to a single kind.
func OfKind(entries []core.LedgerEntry, kind core.Kind) []core.LedgerEntry {
	out := make([]core.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Variation is the relative change from previous to current:
// (current - previous) / max(previous, R$ 1).
// With no previous movement the result is the current total in reais,
// read as a ratio.
func Variation(current, previous core.Money) decimal.Decimal {
	prev := previous.Decimal()
	return current.Decimal().Sub(prev).Div(decimal.Max(prev, one))
}

// IncomeVariation compares the income totals of two summaries.
func IncomeVariation(current, previous core.PeriodSummary) decimal.Decimal {
	return Variation(current.TotalIncome, previous.TotalIncome)
}

func ExpenseVariation(current, previous core.PeriodSummary) decimal.Decimal {
	return Variation(current.TotalExpense, previous.TotalExpense)
}

// TrailingMonths summarizes the n calendar months ending with anchor's month,
// oldest first.
func TrailingMonths(entries []core.LedgerEntry, anchor core.Date, n int) ([]core.PeriodSummary, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: month count must be positive, got %d", core.ErrInvalidInput, n)
	}
	if err := anchor.Validate(); err != nil {
		return nil, err
	}
	out := make([]core.PeriodSummary, 0, n)
	for i := n - 1; i >= 0; i-- {
		first := anchor.FirstOfMonth(-i)
		s, err := Summarize(entries, core.Window{Start: first, End: first.LastOfMonth()})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Split separates a window's totals into what has settled and what is still
// pending, per kind.
type Split struct {
	ReceivedIncome core.Money `json:"received_income"`
	PendingIncome  core.Money `json:"pending_income"`
	PaidExpense    core.Money `json:"paid_expense"`
	PendingExpense core.Money `json:"pending_expense"`
}

func SettlementSplit(entries []core.LedgerEntry, window core.Window) (Split, error) {
	if err := window.Validate(); err != nil {
		return Split{}, err
	}
	var s Split
	for _, e := range entries {
		if !window.Contains(e.OccurredOn) {
			continue
		}
		var bucket *core.Money
		switch {
		case e.Kind == core.Income && e.Settled:
			bucket = &s.ReceivedIncome
		case e.Kind == core.Income:
			bucket = &s.PendingIncome
		case e.Kind == core.Expense && e.Settled:
			bucket = &s.PaidExpense
		case e.Kind == core.Expense:
			bucket = &s.PendingExpense
		default:
			continue
		}
		sum, err := bucket.AddChecked(e.Amount)
		if err != nil {
			return Split{}, err
		}
		*bucket = sum
	}
	return s, nil
}
