// Package worker keeps an eye on each owner's revenue standing and access
// state in the background. It reacts to ledger events and runs a scheduled
// sweep over every owner.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"financemei/internal/core"
	"financemei/internal/events"
	"financemei/internal/ledger"
	applog "financemei/internal/log"
	"financemei/internal/metrics"
	"financemei/internal/subscription"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep every morning at 06:00.
const DefaultSchedule = "0 6 * * *"

// Reports is the read side the worker derives standing and access from.
type Reports interface {
	Standing(ctx context.Context, owner string, today core.Date) (core.RevenueStanding, error)
	Tally(ctx context.Context, now time.Time) (map[subscription.Presentation]int, error)
}

// StandingWorker recomputes revenue standing when entries change and sweeps
// all owners on a cron schedule. It only logs and records metrics.
type StandingWorker struct {
	reports Reports
	owners  ledger.OwnerLister
	now     func() time.Time

	mu       sync.Mutex
	lastBand map[string]core.Band
	cron     *cron.Cron
}

func NewStandingWorker(reports Reports, owners ledger.OwnerLister) *StandingWorker {
	return &StandingWorker{
		reports:  reports,
		owners:   owners,
		now:      time.Now,
		lastBand: make(map[string]core.Band),
	}
}

// HandleEvent is an events.Handler. Events that can move income recompute
// the owner's standing; the rest are acknowledged untouched.
func (w *StandingWorker) HandleEvent(ctx context.Context, e events.LedgerEvent) error {
	switch e.Type {
	case events.EntryRecorded, events.EntryDeleted:
	default:
		slog.DebugContext(ctx, "Ignoring ledger event", "type", e.Type, "owner_id", e.OwnerID)
		metrics.RecordEvent(string(e.Type), true)
		return nil
	}

	_, err := w.refresh(ctx, e.OwnerID)
	metrics.RecordEvent(string(e.Type), err == nil)
	if err != nil {
		return fmt.Errorf("refresh standing for %s: %w", e.OwnerID, err)
	}
	return nil
}

// refresh classifies the owner's standing today and records a band change.
func (w *StandingWorker) refresh(ctx context.Context, owner string) (core.RevenueStanding, error) {
	st, err := w.reports.Standing(ctx, owner, core.DateOf(w.now()))
	if err != nil {
		return core.RevenueStanding{}, err
	}

	w.mu.Lock()
	previous, seen := w.lastBand[owner]
	w.lastBand[owner] = st.Band
	w.mu.Unlock()

	if seen && previous == st.Band {
		return st, nil
	}
	metrics.RecordBandTransition(string(previous), string(st.Band))

	level := slog.LevelInfo
	if st.Band != core.BandSafe {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "Revenue band changed",
		"owner_id", owner,
		"previous_band", previous,
		"band", st.Band,
		"ratio", st.Ratio.StringFixed(4),
		"annual_income", st.AnnualIncomeToDate.String())
	return st, nil
}

// LastBand returns the band last observed for the owner.
func (w *StandingWorker) LastBand(owner string) (core.Band, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.lastBand[owner]
	return b, ok
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Owners int
	Failed int
	Bands  map[core.Band]int
	Access map[subscription.Presentation]int
}

// Sweep classifies every owner's standing and tallies access states. An
// owner whose standing cannot be computed is logged and skipped.
func (w *StandingWorker) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	defer func() { metrics.RecordSweep(time.Since(start)) }()

	owners, err := w.owners.ListOwners(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list owners: %w", err)
	}

	res := SweepResult{Owners: len(owners), Bands: make(map[core.Band]int)}
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		st, err := w.refresh(ctx, owner)
		if err != nil {
			res.Failed++
			slog.ErrorContext(ctx, "Failed to classify standing", "owner_id", owner, "error", err)
			continue
		}
		res.Bands[st.Band]++
		if st.Band == core.BandExceeded {
			slog.WarnContext(ctx, "Owner above the revenue ceiling",
				"owner_id", owner,
				"remaining", st.Remaining().String())
		}
	}

	res.Access, err = w.reports.Tally(ctx, w.now())
	if err != nil {
		return res, fmt.Errorf("tally subscriptions: %w", err)
	}
	if n := res.Access[subscription.Expired]; n > 0 {
		slog.WarnContext(ctx, "Accounts with expired access", "count", n)
	}

	bands := make(map[string]int, len(res.Bands))
	for b, n := range res.Bands {
		bands[string(b)] = n
	}
	metrics.ObserveBands(bands)
	access := make(map[string]int, len(res.Access))
	for p, n := range res.Access {
		access[string(p)] = n
	}
	metrics.ObserveAccess(access)

	fields := applog.NewFields().WithOperation(applog.OpSweep)
	slog.InfoContext(ctx, "Standing sweep completed", append(fields.ToSlice(),
		"owners", res.Owners,
		"failed", res.Failed,
		"duration", time.Since(start))...)
	return res, nil
}

// Start schedules the sweep. It returns an error for an invalid cron spec
// or when already started.
func (w *StandingWorker) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return fmt.Errorf("standing worker is already running")
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, func() {
		if _, err := w.Sweep(ctx); err != nil {
			slog.ErrorContext(ctx, "Standing sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	w.cron = c

	slog.InfoContext(ctx, "Standing worker started", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish or ctx
// to expire.
func (w *StandingWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		slog.InfoContext(ctx, "Standing worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Standing worker stop timed out")
		return ctx.Err()
	}
}

func (w *StandingWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cron != nil
}
