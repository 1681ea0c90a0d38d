package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financemei/internal/core"
	"financemei/internal/events"
	"financemei/internal/ledger"

	"github.com/google/uuid"
)

// DefaultTrialDays is the trial length granted to a new account.
const DefaultTrialDays = 7

// LedgerWriter is the write side a LedgerService needs.
type LedgerWriter interface {
	ledger.EntryWriter
	ledger.ObligationWriter
	ledger.SubscriptionReader
	ledger.SubscriptionWriter
}

// LedgerService records ledger movements locally and announces them to the
// event broker. The store is the source of truth; a failed publish is logged
// and the write still succeeds.
type LedgerService struct {
	store     LedgerWriter
	publisher events.Publisher
	cache     *SnapshotCache
	trialDays int
	newID     func() string
	now       func() time.Time
}

type LedgerOption func(*LedgerService)

// WithPublisher sets the broker events go to.
func WithPublisher(p events.Publisher) LedgerOption {
	return func(s *LedgerService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithInvalidation drops an owner's snapshots from c after each write.
func WithInvalidation(c *SnapshotCache) LedgerOption {
	return func(s *LedgerService) { s.cache = c }
}

func WithTrialDays(days int) LedgerOption {
	return func(s *LedgerService) {
		if days > 0 {
			s.trialDays = days
		}
	}
}

// WithClock replaces the time source trials are dated from.
func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewLedgerService(store LedgerWriter, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		store:     store,
		publisher: events.Nop{},
		trialDays: DefaultTrialDays,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordEntry validates and stores a new entry and returns its ID. A settled
// entry without a settlement date is taken as settled the day it occurred.
func (s *LedgerService) RecordEntry(ctx context.Context, e core.LedgerEntry) (string, error) {
	if e.Settled && e.SettledOn.IsZero() {
		e.SettledOn = e.OccurredOn
	}
	e.ID = s.newID()
	if err := e.Validate(); err != nil {
		return "", err
	}
	if err := s.store.AppendEntry(ctx, e); err != nil {
		return "", fmt.Errorf("save entry: %w", err)
	}
	s.cache.Invalidate(e.OwnerID)
	s.publish(ctx, events.NewLedgerEvent(events.EntryRecorded, e.OwnerID, e.ID, string(e.Kind)))
	return e.ID, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, owner, id string) error {
	if owner == "" {
		return core.ErrEmptyOwner
	}
	if err := s.store.DeleteEntry(ctx, owner, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.cache.Invalidate(owner)
	s.publish(ctx, events.NewLedgerEvent(events.EntryDeleted, owner, id, ""))
	return nil
}

// AddObligation stores a new open obligation and returns its ID.
func (s *LedgerService) AddObligation(ctx context.Context, o core.Obligation) (string, error) {
	if o.Fulfilled {
		return "", fmt.Errorf("%w: new obligations start open", core.ErrInvalidInput)
	}
	o.ID = s.newID()
	if err := o.Validate(); err != nil {
		return "", err
	}
	if err := s.store.AppendObligation(ctx, o); err != nil {
		return "", fmt.Errorf("save obligation: %w", err)
	}
	s.publish(ctx, events.NewLedgerEvent(events.ObligationAdded, o.OwnerID, o.ID, string(o.Kind)))
	return o.ID, nil
}

// FulfillObligation settles an open obligation on the given day and records
// the matching entry in the same store operation.
func (s *LedgerService) FulfillObligation(ctx context.Context, owner, id string, on core.Date) (core.Obligation, core.LedgerEntry, error) {
	if owner == "" {
		return core.Obligation{}, core.LedgerEntry{}, core.ErrEmptyOwner
	}
	if err := on.Validate(); err != nil {
		return core.Obligation{}, core.LedgerEntry{}, err
	}
	o, e, err := s.store.FulfillObligation(ctx, owner, id, on, s.newID())
	if err != nil {
		return core.Obligation{}, core.LedgerEntry{}, fmt.Errorf("fulfill obligation: %w", err)
	}
	s.cache.Invalidate(owner)
	s.publish(ctx, events.NewLedgerEvent(events.ObligationFulfilled, owner, o.ID, string(o.Kind)))
	s.publish(ctx, events.NewLedgerEvent(events.EntryRecorded, owner, e.ID, string(e.Kind)))
	return o, e, nil
}

// EnsureSubscription returns the owner's subscription, opening a trial when
// the owner has none yet.
func (s *LedgerService) EnsureSubscription(ctx context.Context, owner string) (core.AccountSubscription, error) {
	sub, err := s.store.FetchSubscription(ctx, owner)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.AccountSubscription{}, fmt.Errorf("fetch subscription: %w", err)
	}
	return s.StartTrial(ctx, owner)
}

// StartTrial opens a trial for the owner starting now.
func (s *LedgerService) StartTrial(ctx context.Context, owner string) (core.AccountSubscription, error) {
	now := s.now().UTC()
	sub := core.AccountSubscription{
		OwnerID:        owner,
		TrialStartedAt: now,
		TrialEndsAt:    now.AddDate(0, 0, s.trialDays),
		PaymentStatus:  core.StatusTrial,
	}
	if err := sub.Validate(); err != nil {
		return core.AccountSubscription{}, err
	}
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return core.AccountSubscription{}, fmt.Errorf("save subscription: %w", err)
	}
	slog.InfoContext(ctx, "Trial started", "owner_id", owner, "trial_ends_at", sub.TrialEndsAt)
	return sub, nil
}

func (s *LedgerService) publish(ctx context.Context, e events.LedgerEvent) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", e.Type,
			"owner_id", e.OwnerID,
			"entry_id", e.EntryID,
			"error", err)
	}
}

// Close releases the publisher.
func (s *LedgerService) Close() error {
	return s.publisher.Close()
}
