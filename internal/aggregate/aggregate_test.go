package aggregate

import (
	"errors"
	"math"
	"testing"

	"financemei/internal/core"

	"github.com/shopspring/decimal"
)

func entry(kind core.Kind, cents int64, on core.Date, category string, settled bool) core.LedgerEntry {
	e := core.LedgerEntry{
		OwnerID:     "owner-1",
		Kind:        kind,
		Description: category,
		Amount:      core.Money{Cents: cents},
		OccurredOn:  on,
		Category:    category,
		Settled:     settled,
	}
	if settled {
		e.SettledOn = on
	}
	return e
}

func january() core.Window {
	return core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 1, 31)}
}

func TestSummarizeSingleMonthIncome(t *testing.T) {
	entries := []core.LedgerEntry{
		entry(core.Income, 10000, core.NewDate(2025, 1, 15), "Venda Produtos", true),
		entry(core.Income, 5000, core.NewDate(2025, 2, 1), "Venda Produtos", true),
	}
	s, err := Summarize(entries, january())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.TotalIncome.Cents != 10000 {
		t.Fatalf("total income = %d, want 10000", s.TotalIncome.Cents)
	}
	if s.TotalExpense.Cents != 0 || s.Net.Cents != 10000 {
		t.Fatalf("unexpected totals %+v", s)
	}
}

func TestSummarizeTotalsAreConsistent(t *testing.T) {
	mixed := []core.LedgerEntry{
		entry(core.Income, 12345, core.NewDate(2025, 1, 3), "Venda Produtos", true),
		entry(core.Income, 20000, core.NewDate(2025, 1, 9), "Prestação Serviços", false),
		entry(core.Income, 1, core.NewDate(2025, 1, 31), "Venda Produtos", true),
		entry(core.Expense, 7160, core.NewDate(2025, 1, 20), "Impostos", true),
		entry(core.Expense, 3999, core.NewDate(2025, 1, 1), "Combustível", false),
		entry(core.Expense, 10000, core.NewDate(2025, 1, 21), "Combustível", true),
	}

	tests := []struct {
		name    string
		entries []core.LedgerEntry
	}{
		{"mixed", mixed},
		{"income only", OfKind(mixed, core.Income)},
		{"expense only", OfKind(mixed, core.Expense)},
		{"settled only", SettledOnly(mixed)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Summarize(tt.entries, january())
			if err != nil {
				t.Fatalf("summarize: %v", err)
			}
			if s.TotalIncome.Sub(s.TotalExpense) != s.Net {
				t.Fatalf("income - expense != net: %+v", s)
			}
			var sum int64
			for _, m := range s.ByCategory {
				sum += m.Cents
			}
			if want := s.TotalIncome.Cents + s.TotalExpense.Cents; sum != want {
				t.Fatalf("category sum %d != %d", sum, want)
			}
		})
	}

	s, _ := Summarize(OfKind(mixed, core.Expense), january())
	if got := s.ByCategory["Combustível"].Cents; got != 13999 {
		t.Fatalf("Combustível = %d, want 13999", got)
	}
}

func TestSummarizeWindowIsInclusive(t *testing.T) {
	w := january()
	entries := []core.LedgerEntry{
		entry(core.Income, 100, w.Start, "Outras", true),
		entry(core.Income, 200, w.End, "Outras", true),
		entry(core.Income, 400, w.End.AddDays(1), "Outras", true),
		entry(core.Income, 800, w.Start.AddDays(-1), "Outras", true),
	}
	s, err := Summarize(entries, w)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.TotalIncome.Cents != 300 {
		t.Fatalf("total = %d, want 300 (both ends included, outside excluded)", s.TotalIncome.Cents)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s, err := Summarize(nil, january())
	if err != nil {
		t.Fatalf("empty input should not error: %v", err)
	}
	if !s.TotalIncome.IsZero() || !s.TotalExpense.IsZero() || !s.Net.IsZero() {
		t.Fatalf("expected zero sums, got %+v", s)
	}
	if s.ByCategory == nil || len(s.ByCategory) != 0 {
		t.Fatalf("expected empty non-nil map, got %v", s.ByCategory)
	}
}

func TestSummarizeRejectsInvertedWindow(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 2, 1), End: core.NewDate(2025, 1, 1)}
	if _, err := Summarize(nil, w); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSummarizeRejectsOverflowingTotals(t *testing.T) {
	const half = math.MaxInt64/2 + 1
	tests := []struct {
		name    string
		entries []core.LedgerEntry
	}{
		{
			name: "income",
			entries: []core.LedgerEntry{
				entry(core.Income, half, core.NewDate(2025, 1, 10), "Venda Produtos", true),
				entry(core.Income, half, core.NewDate(2025, 1, 11), "Prestação Serviços", true),
			},
		},
		{
			name: "expense",
			entries: []core.LedgerEntry{
				entry(core.Expense, half, core.NewDate(2025, 1, 10), "Impostos", true),
				entry(core.Expense, half, core.NewDate(2025, 1, 11), "Combustível", true),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Summarize(tt.entries, january())
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v (summary %+v)", err, s)
			}
			if _, err := SettlementSplit(tt.entries, january()); !errors.Is(err, core.ErrAmountOverflow) {
				t.Fatalf("split: expected ErrAmountOverflow, got %v", err)
			}
		})
	}
}

func TestSummarizeLargestAmountsStayExact(t *testing.T) {
	entries := []core.LedgerEntry{
		entry(core.Income, core.MaxAmount.Cents, core.NewDate(2025, 1, 10), "Venda Produtos", true),
		entry(core.Income, core.MaxAmount.Cents, core.NewDate(2025, 1, 11), "Venda Produtos", true),
	}
	s, err := Summarize(entries, january())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if want := 2 * core.MaxAmount.Cents; s.TotalIncome.Cents != want || s.Net.Cents != want {
		t.Fatalf("total = %d, net = %d, want %d", s.TotalIncome.Cents, s.Net.Cents, want)
	}
}

func TestMonthsAhead(t *testing.T) {
	tests := []struct {
		today core.Date
		n     int
		want  core.Date
	}{
		{core.NewDate(2025, 1, 20), 1, core.NewDate(2025, 2, 20)},
		{core.NewDate(2025, 1, 31), 1, core.NewDate(2025, 2, 28)},
		{core.NewDate(2024, 1, 31), 1, core.NewDate(2024, 2, 29)},
		{core.NewDate(2025, 3, 31), 1, core.NewDate(2025, 4, 30)},
		{core.NewDate(2025, 12, 15), 1, core.NewDate(2026, 1, 15)},
		{core.NewDate(2025, 8, 31), 6, core.NewDate(2026, 2, 28)},
		{core.NewDate(2025, 5, 10), 0, core.NewDate(2025, 5, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.today.String(), func(t *testing.T) {
			w, err := MonthsAhead(tt.today, tt.n)
			if err != nil {
				t.Fatalf("MonthsAhead: %v", err)
			}
			if !w.Start.Equal(tt.today) || !w.End.Equal(tt.want) {
				t.Fatalf("MonthsAhead(%s, %d) = %s..%s, want end %s", tt.today, tt.n, w.Start, w.End, tt.want)
			}
		})
	}
}

func TestVariation(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		previous int64
		want     string
	}{
		{"growth", 15000, 10000, "0.5"},
		{"drop", 5000, 10000, "-0.5"},
		{"flat", 10000, 10000, "0"},
		{"no previous uses one real", 25000, 0, "250"},
		{"previous below one real", 150, 50, "1"},
		{"both zero", 0, 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Variation(core.Money{Cents: tt.current}, core.Money{Cents: tt.previous})
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("Variation(%d, %d) = %s, want %s", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}

func TestTrailingMonths(t *testing.T) {
	entries := []core.LedgerEntry{
		entry(core.Income, 100, core.NewDate(2024, 11, 30), "Outras", true),
		entry(core.Income, 200, core.NewDate(2024, 12, 1), "Outras", true),
		entry(core.Expense, 50, core.NewDate(2025, 1, 31), "Outros", true),
		entry(core.Income, 999, core.NewDate(2025, 2, 1), "Outras", true),
	}
	got, err := TrailingMonths(entries, core.NewDate(2025, 1, 10), 3)
	if err != nil {
		t.Fatalf("trailing: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	wantStarts := []core.Date{core.NewDate(2024, 11, 1), core.NewDate(2024, 12, 1), core.NewDate(2025, 1, 1)}
	wantNet := []int64{100, 200, -50}
	for i := range got {
		if !got[i].WindowStart.Equal(wantStarts[i]) {
			t.Errorf("month %d starts %s, want %s", i, got[i].WindowStart, wantStarts[i])
		}
		if got[i].Net.Cents != wantNet[i] {
			t.Errorf("month %d net %d, want %d", i, got[i].Net.Cents, wantNet[i])
		}
	}
	if !got[0].WindowEnd.Equal(core.NewDate(2024, 11, 30)) {
		t.Errorf("november ends %s", got[0].WindowEnd)
	}

	if _, err := TrailingMonths(entries, core.NewDate(2025, 1, 10), 0); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for n=0, got %v", err)
	}
}

func TestSettlementSplit(t *testing.T) {
	entries := []core.LedgerEntry{
		entry(core.Income, 1000, core.NewDate(2025, 1, 3), "Outras", true),
		entry(core.Income, 500, core.NewDate(2025, 1, 4), "Outras", false),
		entry(core.Expense, 300, core.NewDate(2025, 1, 5), "Outros", true),
		entry(core.Expense, 200, core.NewDate(2025, 1, 6), "Outros", false),
		entry(core.Expense, 9999, core.NewDate(2025, 2, 6), "Outros", false),
	}
	s, err := SettlementSplit(entries, january())
	if err != nil {
		t.Fatal(err)
	}
	want := Split{
		ReceivedIncome: core.Money{Cents: 1000},
		PendingIncome:  core.Money{Cents: 500},
		PaidExpense:    core.Money{Cents: 300},
		PendingExpense: core.Money{Cents: 200},
	}
	if s != want {
		t.Fatalf("got %+v want %+v", s, want)
	}
}

func TestWindows(t *testing.T) {
	w, err := MonthWindow(2024, 2)
	if err != nil || !w.End.Equal(core.NewDate(2024, 2, 29)) {
		t.Fatalf("february 2024: %+v %v", w, err)
	}
	if _, err := MonthWindow(2024, 13); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected invalid month, got %v", err)
	}
	ytd := YearToDate(core.NewDate(2025, 6, 15))
	if !ytd.Start.Equal(core.NewDate(2025, 1, 1)) || !ytd.End.Equal(core.NewDate(2025, 6, 15)) {
		t.Fatalf("ytd = %+v", ytd)
	}
	if _, err := MonthsAhead(core.NewDate(2025, 1, 20), -1); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative months, got %v", err)
	}
	span := Span(MonthOf(core.NewDate(2024, 12, 5)), ytd)
	if !span.Start.Equal(core.NewDate(2024, 12, 1)) || !span.End.Equal(core.NewDate(2025, 6, 15)) {
		t.Fatalf("span = %+v", span)
	}
}
