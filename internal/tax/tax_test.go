package tax

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"financemei/internal/ceiling"
	"financemei/internal/core"

	"github.com/shopspring/decimal"
)

func money(c int64) *core.Money {
	m := core.Money{Cents: c}
	return &m
}

func TestFlatEstimate(t *testing.T) {
	table := DefaultFlatTable()
	tests := []struct {
		category core.Activity
		monthly  int64
		annual   int64
	}{
		{core.Trade, 7160, 85920},
		{core.Services, 7560, 90720},
		{core.TradeAndServices, 7660, 91920},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			est, err := table.Estimate(tt.category, nil)
			if err != nil {
				t.Fatalf("estimate: %v", err)
			}
			if est.MonthlyAmount.Cents != tt.monthly || est.AnnualAmount.Cents != tt.annual {
				t.Fatalf("got %d/%d, want %d/%d", est.MonthlyAmount.Cents, est.AnnualAmount.Cents, tt.monthly, tt.annual)
			}
			if est.Standing != nil {
				t.Fatalf("no revenue should mean no standing")
			}
			if est.Liability != nil || est.Bracket != 0 {
				t.Fatalf("flat estimate carries progressive fields: %+v", est)
			}
			raw, err := json.Marshal(est)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Contains(string(raw), `"liability"`) || strings.Contains(string(raw), `"bracket"`) {
				t.Fatalf("flat estimate JSON = %s, want no liability or bracket", raw)
			}
		})
	}
}

func TestFlatEstimateIgnoresRevenue(t *testing.T) {
	table := DefaultFlatTable()
	zero, err := table.Estimate(core.Trade, money(0))
	if err != nil {
		t.Fatal(err)
	}
	nearCeiling, err := table.Estimate(core.Trade, money(ceiling.DefaultCeiling.Cents-1))
	if err != nil {
		t.Fatal(err)
	}
	if zero.AnnualAmount != nearCeiling.AnnualAmount || zero.MonthlyAmount != nearCeiling.MonthlyAmount {
		t.Fatalf("flat amounts changed with revenue: %v vs %v", zero.AnnualAmount, nearCeiling.AnnualAmount)
	}
	if zero.EffectiveRate.Equal(nearCeiling.EffectiveRate) {
		t.Fatalf("effective rate should differ")
	}
	if !zero.EffectiveRate.Equal(decimal.RequireFromString("859.2")) {
		t.Fatalf("zero revenue rate = %s, want annual over R$ 1", zero.EffectiveRate)
	}
	if nearCeiling.Standing == nil || nearCeiling.Standing.Band != core.BandWarning {
		t.Fatalf("expected warning standing, got %+v", nearCeiling.Standing)
	}
}

func TestFlatEstimateErrors(t *testing.T) {
	table := DefaultFlatTable()
	if _, err := table.Estimate("industry", nil); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if _, err := table.Estimate(core.Trade, money(-1)); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProgressiveBracketSelection(t *testing.T) {
	table := DefaultProgressiveTable()
	tests := []struct {
		name      string
		category  core.Activity
		revenue   int64
		bracket   int
		liability int64
		monthly   int64
	}{
		{"first bracket", core.Trade, 120_000_00, 1, 4_800_00, 400_00},
		{"first boundary stays low", core.Trade, 180_000_00, 1, 7_200_00, 600_00},
		{"one centavo above boundary", core.Trade, 180_000_01, 2, 7_200_00, 600_00},
		{"second boundary stays low", core.Trade, 360_000_00, 2, 20_340_00, 1_695_00},
		{"services annex", core.Services, 120_000_00, 1, 7_200_00, 600_00},
		{"zero revenue", core.Services, 0, 1, 0, 0},
		{"top bracket ceiling", core.Trade, 4_800_000_00, 6, 534_000_00, 44_500_00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := table.Estimate(tt.category, money(tt.revenue))
			if err != nil {
				t.Fatalf("estimate: %v", err)
			}
			if est.Bracket != tt.bracket {
				t.Errorf("bracket = %d, want %d", est.Bracket, tt.bracket)
			}
			if est.Liability == nil || est.Liability.Cents != tt.liability {
				t.Errorf("liability = %d, want %d", est.Liability.Cents, tt.liability)
			}
			if est.MonthlyAmount.Cents != tt.monthly {
				t.Errorf("monthly = %d, want %d", est.MonthlyAmount.Cents, tt.monthly)
			}
			if est.AnnualAmount != est.MonthlyAmount.Mul(12) {
				t.Errorf("annual %d is not twelve months of %d", est.AnnualAmount.Cents, est.MonthlyAmount.Cents)
			}
		})
	}
}

func TestProgressiveErrors(t *testing.T) {
	table := DefaultProgressiveTable()
	if _, err := table.Estimate(core.Trade, money(4_800_000_01)); !errors.Is(err, core.ErrBracketOverflow) {
		t.Fatalf("expected ErrBracketOverflow, got %v", err)
	}
	if _, err := table.Estimate(core.Trade, nil); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without revenue, got %v", err)
	}
	if _, err := table.Estimate(core.Trade, money(-100)); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative revenue, got %v", err)
	}
	if _, err := table.Estimate("industry", money(100)); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestNewProgressiveTableValidates(t *testing.T) {
	tests := []struct {
		name string
		rows []Bracket
	}{
		{"gap", []Bracket{bracket(0, 100, "0.1", 0), bracket(200, 300, "0.2", 0)}},
		{"overlap", []Bracket{bracket(0, 100, "0.1", 0), bracket(100, 300, "0.2", 0)}},
		{"not from zero", []Bracket{bracket(1, 100, "0.1", 0)}},
		{"inverted", []Bracket{bracket(0, 100, "0.1", 0), bracket(101, 50, "0.2", 0)}},
		{"rate above one", []Bracket{bracket(0, 100, "1.5", 0)}},
		{"deduction on first bracket", []Bracket{bracket(0, 100_000_00, "0.01", 5_000)}},
		{"deduction above floor x rate", []Bracket{bracket(0, 100_00, "0.1", 0), bracket(100_01, 200_000_00, "0.1", 20)}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProgressiveTable(map[core.Activity][]Bracket{core.Trade: tt.rows})
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if err := DefaultProgressiveTable().Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
}

func TestProgressiveEstimateRejectsNegativeLiability(t *testing.T) {
	// Built without NewProgressiveTable, so validation is skipped.
	table := ProgressiveTable{
		Brackets: map[core.Activity][]Bracket{core.Trade: {bracket(0, 100_000_00, "0.01", 5_000)}},
		Ceiling:  ceiling.DefaultCeiling,
	}
	est, err := table.Estimate(core.Trade, money(10_000_00))
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %+v %v", est, err)
	}
}

func TestParseTablesRejectsNegativeLiability(t *testing.T) {
	bad := `
progressive:
  trade:
    - {floor: "0", ceiling: "100000", rate: "0.01", deduction: "5000"}
`
	if _, _, err := ParseTables([]byte(bad)); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(ceiling.DefaultCeiling)
	est, err := r.Estimate(Flat, core.Trade, nil)
	if err != nil || est.AnnualAmount.Cents != 85920 {
		t.Fatalf("flat via registry: %+v %v", est, err)
	}
	if _, err := r.Lookup("lucro_presumido"); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown model, got %v", err)
	}

	custom := DefaultFlatTable()
	custom.Monthly[core.Trade] = core.Money{Cents: 8000}
	r.Register(Flat, custom)
	est, err = r.Estimate(Flat, core.Trade, nil)
	if err != nil || est.MonthlyAmount.Cents != 8000 {
		t.Fatalf("registered table not used: %+v %v", est, err)
	}
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		today core.Date
		want  core.Date
		days  int
	}{
		{core.NewDate(2025, 1, 5), core.NewDate(2025, 1, 20), 15},
		{core.NewDate(2025, 1, 20), core.NewDate(2025, 1, 20), 0},
		{core.NewDate(2025, 1, 21), core.NewDate(2025, 2, 20), 30},
		{core.NewDate(2025, 12, 31), core.NewDate(2026, 1, 20), 20},
	}
	for _, tt := range tests {
		t.Run(tt.today.String(), func(t *testing.T) {
			if got := NextDueDate(tt.today); !got.Equal(tt.want) {
				t.Fatalf("NextDueDate = %s, want %s", got, tt.want)
			}
			if got := DaysUntilDue(tt.today); got != tt.days {
				t.Fatalf("DaysUntilDue = %d, want %d", got, tt.days)
			}
		})
	}
}

const customTables = `
flat:
  trade: "80,90"
  services: "84.90"
progressive:
  trade:
    - floor: "0"
      ceiling: "100000"
      rate: "0.05"
    - floor: "100000.01"
      ceiling: "200000"
      rate: "0.10"
      deduction: "5000"
`

func TestLoadTablesFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tax.yaml")
	if err := os.WriteFile(path, []byte(customTables), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := NewRegistryFromPath(path, ceiling.DefaultCeiling)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	est, err := r.Estimate(Flat, core.Trade, nil)
	if err != nil || est.MonthlyAmount.Cents != 8090 {
		t.Fatalf("flat override: %+v %v", est, err)
	}
	if _, err := r.Estimate(Flat, core.TradeAndServices, nil); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("replaced table should drop missing rows, got %v", err)
	}

	est, err = r.Estimate(Progressive, core.Trade, money(150_000_00))
	if err != nil {
		t.Fatalf("progressive override: %v", err)
	}
	if est.Bracket != 2 || est.Liability == nil || est.Liability.Cents != 10_000_00 {
		t.Fatalf("unexpected progressive estimate %+v", est)
	}
	if _, err := r.Estimate(Progressive, core.Trade, money(200_000_01)); !errors.Is(err, core.ErrBracketOverflow) {
		t.Fatalf("expected overflow past custom top bracket, got %v", err)
	}
}

func TestParseTablesRejectsGaps(t *testing.T) {
	bad := `
progressive:
  trade:
    - {floor: "0", ceiling: "100", rate: "0.1"}
    - {floor: "200", ceiling: "300", rate: "0.2"}
`
	if _, _, err := ParseTables([]byte(bad)); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := ParseTables([]byte("flat: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
}
