// Package ledger declares the ports the engine and the shell use to reach a
// ledger store.
package ledger

import (
	"context"

	"financemei/internal/core"
)

const (
	AnyStatus       Status = ""
	OpenStatus      Status = "open"
	FulfilledStatus Status = "fulfilled"
)

// Status filters obligations by fulfilment.
type Status string

// Matches reports whether an obligation passes the filter.
func (s Status) Matches(o core.Obligation) bool {
	switch s {
	case OpenStatus:
		return !o.Fulfilled
	case FulfilledStatus:
		return o.Fulfilled
	}
	return true
}

// Ports for outbound adapters.
type (
	EntryReader interface {
		// FetchEntries returns the owner's entries with OccurredOn inside the
		// window, ordered by date. An empty kind matches both kinds.
		FetchEntries(ctx context.Context, owner string, kind core.Kind, window core.Window) ([]core.LedgerEntry, error)
	}

	ObligationReader interface {
		// FetchObligations returns the owner's obligations ordered by due
		// date. An empty kind matches both, a zero window matches any date.
		FetchObligations(ctx context.Context, owner string, kind core.ObligationKind, status Status, due core.Window) ([]core.Obligation, error)
	}

	SubscriptionReader interface {
		FetchSubscription(ctx context.Context, owner string) (core.AccountSubscription, error)
		ListSubscriptions(ctx context.Context) ([]core.AccountSubscription, error)
	}

	EntryWriter interface {
		AppendEntry(ctx context.Context, e core.LedgerEntry) error
		DeleteEntry(ctx context.Context, owner, id string) error
	}

	ObligationWriter interface {
		AppendObligation(ctx context.Context, o core.Obligation) error
		// FulfillObligation settles an open obligation and records the
		// resulting entry under entryID in one step.
		FulfillObligation(ctx context.Context, owner, id string, on core.Date, entryID string) (core.Obligation, core.LedgerEntry, error)
	}

	SubscriptionWriter interface {
		SaveSubscription(ctx context.Context, s core.AccountSubscription) error
	}

	// OwnerLister enumerates every owner with any record.
	OwnerLister interface {
		ListOwners(ctx context.Context) ([]string, error)
	}

	// Store is everything a backend provides.
	Store interface {
		EntryReader
		ObligationReader
		SubscriptionReader
		EntryWriter
		ObligationWriter
		SubscriptionWriter
		OwnerLister
		Close() error
	}
)
