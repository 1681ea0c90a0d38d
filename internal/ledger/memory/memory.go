// Package memory is an in-process ledger store used for development and
// tests. Data does not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"financemei/internal/core"
	"financemei/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu          sync.Mutex
	entries     []core.LedgerEntry
	obligations []core.Obligation
	subs        map[string]core.AccountSubscription
}

func New() *Store {
	return &Store{subs: make(map[string]core.AccountSubscription)}
}

func (s *Store) AppendEntry(_ context.Context, e core.LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.ID == e.ID {
			return fmt.Errorf("%w: duplicate entry id %q", core.ErrInvalidInput, e.ID)
		}
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id && e.OwnerID == owner {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("entry %q: %w", id, core.ErrNotFound)
}

func (s *Store) FetchEntries(_ context.Context, owner string, kind core.Kind, window core.Window) ([]core.LedgerEntry, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.LedgerEntry
	for _, e := range s.entries {
		if e.OwnerID != owner || (kind != "" && e.Kind != kind) || !window.Contains(e.OccurredOn) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredOn.Before(out[j].OccurredOn) })
	return out, nil
}

func (s *Store) AppendObligation(_ context.Context, o core.Obligation) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obligations = append(s.obligations, o)
	return nil
}

func (s *Store) FetchObligations(_ context.Context, owner string, kind core.ObligationKind, status ledger.Status, due core.Window) ([]core.Obligation, error) {
	if !due.IsZero() {
		if err := due.Validate(); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Obligation
	for _, o := range s.obligations {
		if o.OwnerID != owner || (kind != "" && o.Kind != kind) || !status.Matches(o) {
			continue
		}
		if !due.IsZero() && !due.Contains(o.DueOn) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueOn.Before(out[j].DueOn) })
	return out, nil
}

// FulfillObligation holds the lock across both writes so readers never see
// the obligation settled without its entry.
func (s *Store) FulfillObligation(_ context.Context, owner, id string, on core.Date, entryID string) (core.Obligation, core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.obligations {
		if o.ID != id || o.OwnerID != owner {
			continue
		}
		updated, entry, err := core.Fulfill(o, on)
		if err != nil {
			return core.Obligation{}, core.LedgerEntry{}, err
		}
		entry.ID = entryID
		if err := entry.Validate(); err != nil {
			return core.Obligation{}, core.LedgerEntry{}, err
		}
		s.obligations[i] = updated
		s.entries = append(s.entries, entry)
		return updated, entry, nil
	}
	return core.Obligation{}, core.LedgerEntry{}, fmt.Errorf("obligation %q: %w", id, core.ErrNotFound)
}

func (s *Store) SaveSubscription(_ context.Context, sub core.AccountSubscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.OwnerID] = sub
	return nil
}

func (s *Store) FetchSubscription(_ context.Context, owner string) (core.AccountSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[owner]
	if !ok {
		return core.AccountSubscription{}, fmt.Errorf("subscription for %q: %w", owner, core.ErrNotFound)
	}
	return sub, nil
}

func (s *Store) ListSubscriptions(_ context.Context) ([]core.AccountSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.AccountSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OwnerID < out[j].OwnerID })
	return out, nil
}

func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owners []string
	for _, e := range s.entries {
		owners = append(owners, e.OwnerID)
	}
	for _, o := range s.obligations {
		owners = append(owners, o.OwnerID)
	}
	for owner := range s.subs {
		owners = append(owners, owner)
	}
	out := dedupe(owners)
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close() error { return nil }

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
