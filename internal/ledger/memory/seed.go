package memory

import (
	"context"
	"fmt"
	"os"
	"time"

	"financemei/internal/core"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Entries       []seedEntry        `yaml:"entries"`
	Obligations   []seedObligation   `yaml:"obligations"`
	Subscriptions []seedSubscription `yaml:"subscriptions"`
}

type seedEntry struct {
	ID          string `yaml:"id"`
	Owner       string `yaml:"owner"`
	Kind        string `yaml:"kind"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	OccurredOn  string `yaml:"occurred_on"`
	Category    string `yaml:"category"`
	SettledOn   string `yaml:"settled_on"`
}

type seedObligation struct {
	ID          string `yaml:"id"`
	Owner       string `yaml:"owner"`
	Kind        string `yaml:"kind"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	DueOn       string `yaml:"due_on"`
	FulfilledOn string `yaml:"fulfilled_on"`
	Notes       string `yaml:"notes"`
}

type seedSubscription struct {
	Owner          string    `yaml:"owner"`
	TrialStartedAt time.Time `yaml:"trial_started_at"`
	TrialEndsAt    time.Time `yaml:"trial_ends_at"`
	Status         string    `yaml:"status"`
	NextDueOn      string    `yaml:"next_due_on"`
}

// NewFromFile returns a store preloaded from a YAML seed file. A missing
// path yields an empty store. Dates are quoted YYYY-MM-DD strings; a
// settled_on or fulfilled_on value marks the record settled.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	ctx := context.Background()
	for i, se := range f.Entries {
		e, err := se.entry()
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i+1, err)
		}
		if err := s.AppendEntry(ctx, e); err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i+1, err)
		}
	}
	for i, so := range f.Obligations {
		o, err := so.obligation()
		if err != nil {
			return nil, fmt.Errorf("seed obligation %d: %w", i+1, err)
		}
		if err := s.AppendObligation(ctx, o); err != nil {
			return nil, fmt.Errorf("seed obligation %d: %w", i+1, err)
		}
	}
	for i, ss := range f.Subscriptions {
		sub := core.AccountSubscription{
			OwnerID:        ss.Owner,
			TrialStartedAt: ss.TrialStartedAt,
			TrialEndsAt:    ss.TrialEndsAt,
			PaymentStatus:  core.PaymentStatus(ss.Status),
		}
		if sub.NextDueOn, err = optionalDate(ss.NextDueOn); err != nil {
			return nil, fmt.Errorf("seed subscription %d: %w", i+1, err)
		}
		if err := s.SaveSubscription(ctx, sub); err != nil {
			return nil, fmt.Errorf("seed subscription %d: %w", i+1, err)
		}
	}
	return s, nil
}

func (se seedEntry) entry() (core.LedgerEntry, error) {
	cents, err := core.ParseDecimalToCents(se.Amount)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	occurred, err := core.ParseDate(se.OccurredOn)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	settled, err := optionalDate(se.SettledOn)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	return core.LedgerEntry{
		ID:          se.ID,
		OwnerID:     se.Owner,
		Kind:        core.Kind(se.Kind),
		Description: se.Description,
		Amount:      core.Money{Cents: cents},
		OccurredOn:  occurred,
		Category:    se.Category,
		Settled:     !settled.IsZero(),
		SettledOn:   settled,
	}, nil
}

func (so seedObligation) obligation() (core.Obligation, error) {
	cents, err := core.ParseDecimalToCents(so.Amount)
	if err != nil {
		return core.Obligation{}, err
	}
	due, err := core.ParseDate(so.DueOn)
	if err != nil {
		return core.Obligation{}, err
	}
	fulfilled, err := optionalDate(so.FulfilledOn)
	if err != nil {
		return core.Obligation{}, err
	}
	return core.Obligation{
		ID:          so.ID,
		OwnerID:     so.Owner,
		Kind:        core.ObligationKind(so.Kind),
		Description: so.Description,
		Amount:      core.Money{Cents: cents},
		DueOn:       due,
		Fulfilled:   !fulfilled.IsZero(),
		FulfilledOn: fulfilled,
		Notes:       so.Notes,
	}, nil
}

func optionalDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}
