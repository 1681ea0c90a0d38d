package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"financemei/internal/core"
	"financemei/internal/ledger"
)

func income(id, owner string, cents int64, on core.Date) core.LedgerEntry {
	return core.LedgerEntry{
		ID:          id,
		OwnerID:     owner,
		Kind:        core.Income,
		Description: "venda",
		Amount:      core.Money{Cents: cents},
		OccurredOn:  on,
		Category:    "Venda Produtos",
		Settled:     true,
		SettledOn:   on,
	}
}

func TestMemoryStoreEntries(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, e := range []core.LedgerEntry{
		income("e2", "a", 200, core.NewDate(2025, 1, 20)),
		income("e1", "a", 100, core.NewDate(2025, 1, 5)),
		income("e3", "b", 300, core.NewDate(2025, 1, 6)),
		income("e4", "a", 400, core.NewDate(2025, 2, 1)),
	} {
		if err := s.AppendEntry(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.ID, err)
		}
	}
	if err := s.AppendEntry(ctx, income("e1", "a", 1, core.NewDate(2025, 1, 1))); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("duplicate id accepted: %v", err)
	}
	if err := s.AppendEntry(ctx, core.LedgerEntry{ID: "bad"}); err == nil {
		t.Fatalf("invalid entry accepted")
	}

	jan := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 1, 31)}
	got, err := s.FetchEntries(ctx, "a", "", jan)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e1" || got[1].ID != "e2" {
		t.Fatalf("unexpected entries %+v", got)
	}
	if got, _ := s.FetchEntries(ctx, "a", core.Expense, jan); len(got) != 0 {
		t.Fatalf("kind filter ignored: %+v", got)
	}

	if err := s.DeleteEntry(ctx, "b", "e1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleting another owner's entry: %v", err)
	}
	if err := s.DeleteEntry(ctx, "a", "e1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.FetchEntries(ctx, "a", "", jan); len(got) != 1 {
		t.Fatalf("entry not deleted: %+v", got)
	}
}

func TestMemoryStoreObligations(t *testing.T) {
	ctx := context.Background()
	s := New()
	add := func(id string, kind core.ObligationKind, due core.Date) {
		t.Helper()
		err := s.AppendObligation(ctx, core.Obligation{
			ID: id, OwnerID: "a", Kind: kind, Description: id,
			Amount: core.Money{Cents: 1000}, DueOn: due,
		})
		if err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	add("p2", core.Payable, core.NewDate(2025, 3, 10))
	add("p1", core.Payable, core.NewDate(2025, 3, 1))
	add("r1", core.Receivable, core.NewDate(2025, 3, 5))

	got, err := s.FetchObligations(ctx, "a", core.Payable, ledger.OpenStatus, core.Window{})
	if err != nil || len(got) != 2 || got[0].ID != "p1" {
		t.Fatalf("payables: %+v %v", got, err)
	}

	o, e, err := s.FulfillObligation(ctx, "a", "r1", core.NewDate(2025, 3, 6), "entry-r1")
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if !o.Fulfilled || e.ID != "entry-r1" || e.Kind != core.Income {
		t.Fatalf("unexpected result %+v %+v", o, e)
	}
	entries, _ := s.FetchEntries(ctx, "a", core.Income, core.Window{Start: core.NewDate(2025, 3, 1), End: core.NewDate(2025, 3, 31)})
	if len(entries) != 1 || !entries[0].Settled {
		t.Fatalf("fulfilment entry missing: %+v", entries)
	}
	if _, _, err := s.FulfillObligation(ctx, "a", "r1", core.NewDate(2025, 3, 7), "again"); !errors.Is(err, core.ErrAlreadyFulfilled) {
		t.Fatalf("second fulfil: %v", err)
	}
	if _, _, err := s.FulfillObligation(ctx, "a", "nope", core.NewDate(2025, 3, 7), "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing obligation: %v", err)
	}

	open, _ := s.FetchObligations(ctx, "a", "", ledger.OpenStatus, core.Window{Start: core.NewDate(2025, 3, 1), End: core.NewDate(2025, 3, 5)})
	if len(open) != 1 || open[0].ID != "p1" {
		t.Fatalf("window + status filter: %+v", open)
	}
}

func TestMemoryStoreSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.FetchSubscription(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sub := core.AccountSubscription{OwnerID: "a", TrialStartedAt: start, TrialEndsAt: start.AddDate(0, 0, 7), PaymentStatus: core.StatusTrial}
	if err := s.SaveSubscription(ctx, sub); err != nil {
		t.Fatal(err)
	}
	got, err := s.FetchSubscription(ctx, "a")
	if err != nil || got.PaymentStatus != core.StatusTrial {
		t.Fatalf("fetch: %+v %v", got, err)
	}
	_ = s.AppendEntry(ctx, income("e1", "b", 1, core.NewDate(2025, 1, 1)))
	owners, _ := s.ListOwners(ctx)
	if len(owners) != 2 || owners[0] != "a" || owners[1] != "b" {
		t.Fatalf("owners = %v", owners)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFile(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should give empty store: %v", err)
	}
	if owners, _ := s.ListOwners(context.Background()); len(owners) != 0 {
		t.Fatalf("expected empty store, got %v", owners)
	}

	seed := `
entries:
  - id: e1
    owner: demo
    kind: income
    description: Venda feira
    amount: "150,00"
    occurred_on: "2025-01-15"
    category: Venda Produtos
    settled_on: "2025-01-15"
  - id: e2
    owner: demo
    kind: expense
    description: Gasolina
    amount: "80"
    occurred_on: "2025-01-16"
    category: Combustível
obligations:
  - id: o1
    owner: demo
    kind: payable
    description: Aluguel
    amount: "900"
    due_on: "2025-02-05"
subscriptions:
  - owner: demo
    trial_started_at: 2025-01-01T00:00:00Z
    trial_ends_at: 2025-01-08T00:00:00Z
    status: trial
`
	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	ctx := context.Background()
	entries, _ := s.FetchEntries(ctx, "demo", "", core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 1, 31)})
	if len(entries) != 2 || !entries[0].Settled || entries[1].Settled || entries[0].Amount.Cents != 15000 {
		t.Fatalf("unexpected seeded entries %+v", entries)
	}
	sub, err := s.FetchSubscription(ctx, "demo")
	if err != nil || !sub.TrialEndsAt.Equal(time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("seeded subscription %+v %v", sub, err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("entries:\n  - id: x\n    amount: nope\n"), 0o600)
	if _, err := NewFromFile(bad); err == nil {
		t.Fatalf("expected error for bad amount")
	}
}
