package tax

import (
	"fmt"
	"os"

	"financemei/internal/core"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type tableFile struct {
	Flat        map[string]string           `yaml:"flat"`
	Progressive map[string][]bracketFileRow `yaml:"progressive"`
}

type bracketFileRow struct {
	Floor     string `yaml:"floor"`
	Ceiling   string `yaml:"ceiling"`
	Rate      string `yaml:"rate"`
	Deduction string `yaml:"deduction"`
}

// LoadTablesFromPath reads replacement tax tables from a YAML file. A section
// missing from the file keeps the built-in table. Amounts are decimal
// strings in reais, rates are fractions.
func LoadTablesFromPath(path string) (FlatTable, ProgressiveTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FlatTable{}, ProgressiveTable{}, fmt.Errorf("failed to read tax table: %w", err)
	}
	return ParseTables(data)
}

func ParseTables(data []byte) (FlatTable, ProgressiveTable, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return FlatTable{}, ProgressiveTable{}, fmt.Errorf("failed to parse tax table: %w", err)
	}

	flat := DefaultFlatTable()
	if len(f.Flat) > 0 {
		flat.Monthly = make(map[core.Activity]core.Money, len(f.Flat))
		for name, amount := range f.Flat {
			cents, err := core.ParseDecimalToCents(amount)
			if err != nil {
				return FlatTable{}, ProgressiveTable{}, fmt.Errorf("flat %q: %w", name, err)
			}
			flat.Monthly[core.Activity(name)] = core.Money{Cents: cents}
		}
		if err := flat.Validate(); err != nil {
			return FlatTable{}, ProgressiveTable{}, err
		}
	}

	progressive := DefaultProgressiveTable()
	if len(f.Progressive) > 0 {
		brackets := make(map[core.Activity][]Bracket, len(f.Progressive))
		for name, rows := range f.Progressive {
			parsed := make([]Bracket, 0, len(rows))
			for i, row := range rows {
				b, err := row.bracket()
				if err != nil {
					return FlatTable{}, ProgressiveTable{}, fmt.Errorf("progressive %q bracket %d: %w", name, i+1, err)
				}
				parsed = append(parsed, b)
			}
			brackets[core.Activity(name)] = parsed
		}
		p, err := NewProgressiveTable(brackets)
		if err != nil {
			return FlatTable{}, ProgressiveTable{}, err
		}
		progressive = p
	}
	return flat, progressive, nil
}

func (r bracketFileRow) bracket() (Bracket, error) {
	floor, err := core.ParseRevenue(r.Floor)
	if err != nil {
		return Bracket{}, fmt.Errorf("floor: %w", err)
	}
	ceiling, err := core.ParseRevenue(r.Ceiling)
	if err != nil {
		return Bracket{}, fmt.Errorf("ceiling: %w", err)
	}
	rate, err := decimal.NewFromString(r.Rate)
	if err != nil {
		return Bracket{}, fmt.Errorf("%w: rate %q", core.ErrInvalidInput, r.Rate)
	}
	deduction := core.Money{}
	if r.Deduction != "" {
		deduction, err = core.ParseRevenue(r.Deduction)
		if err != nil {
			return Bracket{}, fmt.Errorf("deduction: %w", err)
		}
	}
	return Bracket{Floor: floor, Ceiling: ceiling, Rate: rate, Deduction: deduction}, nil
}

// NewRegistryFromPath builds a registry from a table file, or from the
// built-in tables when path is empty.
func NewRegistryFromPath(path string, revenueCeiling core.Money) (*Registry, error) {
	r := NewRegistry(revenueCeiling)
	if path == "" {
		return r, nil
	}
	flat, progressive, err := LoadTablesFromPath(path)
	if err != nil {
		return nil, err
	}
	flat.Ceiling = revenueCeiling
	progressive.Ceiling = revenueCeiling
	r.Register(Flat, flat)
	r.Register(Progressive, progressive)
	return r, nil
}
