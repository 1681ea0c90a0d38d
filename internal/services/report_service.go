package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financemei/internal/aggregate"
	"financemei/internal/ceiling"
	"financemei/internal/core"
	"financemei/internal/ledger"
	"financemei/internal/subscription"
	"financemei/internal/tax"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// UpcomingMonths is how far ahead the dashboard lists due obligations.
const UpcomingMonths = 1

// ReportReader is the read side a ReportService needs.
type ReportReader interface {
	ledger.EntryReader
	ledger.ObligationReader
	ledger.SubscriptionReader
}

// ReportService derives summaries, standing, tax and access state from
// store snapshots. It never writes.
type ReportService struct {
	entries      ledger.EntryReader
	store        ReportReader
	taxes        *tax.Registry
	ceiling      core.Money
	fetchTimeout time.Duration
}

type ReportOption func(*ReportService)

// WithSnapshotCache routes entry fetches through c.
func WithSnapshotCache(c *SnapshotCache) ReportOption {
	return func(s *ReportService) {
		if c != nil {
			s.entries = cachedEntries{inner: s.store, cache: c}
		}
	}
}

// WithFetchTimeout bounds each store read.
func WithFetchTimeout(d time.Duration) ReportOption {
	return func(s *ReportService) { s.fetchTimeout = d }
}

func NewReportService(store ReportReader, taxes *tax.Registry, revenueCeiling core.Money, opts ...ReportOption) *ReportService {
	s := &ReportService{
		entries: store,
		store:   store,
		taxes:   taxes,
		ceiling: revenueCeiling,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ceiling returns the revenue ceiling standing is classified against.
func (s *ReportService) Ceiling() core.Money { return s.ceiling }

func (s *ReportService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.fetchTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.fetchTimeout)
}

func (s *ReportService) fetchEntries(ctx context.Context, owner string, kind core.Kind, w core.Window) ([]core.LedgerEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	entries, err := s.entries.FetchEntries(ctx, owner, kind, w)
	if err != nil {
		return nil, fmt.Errorf("fetch entries: %w", err)
	}
	return entries, nil
}

func (s *ReportService) fetchObligations(ctx context.Context, owner string, status ledger.Status, due core.Window) ([]core.Obligation, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	obs, err := s.store.FetchObligations(ctx, owner, "", status, due)
	if err != nil {
		return nil, fmt.Errorf("fetch obligations: %w", err)
	}
	return obs, nil
}

// Summary aggregates the owner's entries in window. With settledOnly set,
// pending entries are left out.
func (s *ReportService) Summary(ctx context.Context, owner string, window core.Window, settledOnly bool) (core.PeriodSummary, error) {
	if owner == "" {
		return core.PeriodSummary{}, core.ErrEmptyOwner
	}
	if err := window.Validate(); err != nil {
		return core.PeriodSummary{}, err
	}
	entries, err := s.fetchEntries(ctx, owner, "", window)
	if err != nil {
		return core.PeriodSummary{}, err
	}
	if settledOnly {
		entries = aggregate.SettledOnly(entries)
	}
	return aggregate.Summarize(entries, window)
}

// Trend summarizes the months settled entries fall in, oldest first, ending
// with the anchor's month.
func (s *ReportService) Trend(ctx context.Context, owner string, anchor core.Date, months int) ([]core.PeriodSummary, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	if months <= 0 || months > 24 {
		return nil, fmt.Errorf("%w: months must be between 1 and 24, got %d", core.ErrInvalidInput, months)
	}
	if err := anchor.Validate(); err != nil {
		return nil, err
	}
	first := anchor.FirstOfMonth(-(months - 1))
	window := core.Window{Start: first, End: anchor.LastOfMonth()}
	entries, err := s.fetchEntries(ctx, owner, "", window)
	if err != nil {
		return nil, err
	}
	return aggregate.TrailingMonths(aggregate.SettledOnly(entries), anchor, months)
}

// Categories returns the settled totals of one kind per category, largest
// first.
func (s *ReportService) Categories(ctx context.Context, owner string, kind core.Kind, window core.Window) ([]core.CategoryAmount, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.fetchEntries(ctx, owner, kind, window)
	if err != nil {
		return nil, err
	}
	summary, err := aggregate.Summarize(aggregate.SettledOnly(entries), window)
	if err != nil {
		return nil, err
	}
	return summary.Categories(), nil
}

// Standing classifies the owner's settled income from January 1 to today.
func (s *ReportService) Standing(ctx context.Context, owner string, today core.Date) (core.RevenueStanding, error) {
	if owner == "" {
		return core.RevenueStanding{}, core.ErrEmptyOwner
	}
	if err := today.Validate(); err != nil {
		return core.RevenueStanding{}, err
	}
	income, err := s.yearToDateIncome(ctx, owner, today)
	if err != nil {
		return core.RevenueStanding{}, err
	}
	return ceiling.Classify(income, s.ceiling)
}

func (s *ReportService) yearToDateIncome(ctx context.Context, owner string, today core.Date) (core.Money, error) {
	window := aggregate.YearToDate(today)
	entries, err := s.fetchEntries(ctx, owner, core.Income, window)
	if err != nil {
		return core.Money{}, err
	}
	summary, err := aggregate.Summarize(aggregate.SettledOnly(entries), window)
	if err != nil {
		return core.Money{}, err
	}
	return summary.TotalIncome, nil
}

// EstimateTax runs the named model. A nil revenue means the owner's
// year-to-date settled income.
func (s *ReportService) EstimateTax(ctx context.Context, owner string, model tax.Model, category core.Activity, revenue *core.Money, today core.Date) (core.TaxEstimate, error) {
	if owner == "" {
		return core.TaxEstimate{}, core.ErrEmptyOwner
	}
	if revenue == nil {
		if err := today.Validate(); err != nil {
			return core.TaxEstimate{}, err
		}
		income, err := s.yearToDateIncome(ctx, owner, today)
		if err != nil {
			return core.TaxEstimate{}, err
		}
		revenue = &income
	}
	return s.taxes.Estimate(model, category, revenue)
}

// Access derives the owner's access state at now.
func (s *ReportService) Access(ctx context.Context, owner string, now time.Time) (subscription.AccessState, error) {
	if owner == "" {
		return subscription.AccessState{}, core.ErrEmptyOwner
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	sub, err := s.store.FetchSubscription(ctx, owner)
	if err != nil {
		return subscription.AccessState{}, fmt.Errorf("fetch subscription: %w", err)
	}
	return subscription.Derive(sub, now), nil
}

// Tally counts every stored subscription by presentation.
func (s *ReportService) Tally(ctx context.Context, now time.Time) (map[subscription.Presentation]int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	subs, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subscription.Tally(subs, now), nil
}

// Dashboard is the owner's home screen.
type Dashboard struct {
	Today               core.Date             `json:"today"`
	CurrentMonth        core.PeriodSummary    `json:"current_month"`
	PreviousMonth       core.PeriodSummary    `json:"previous_month"`
	IncomeVariation     decimal.Decimal       `json:"income_variation"`
	ExpenseVariation    decimal.Decimal       `json:"expense_variation"`
	Split               aggregate.Split       `json:"split"`
	IncomeByCategory    []core.CategoryAmount `json:"income_by_category"`
	Standing            core.RevenueStanding  `json:"standing"`
	UpcomingPayables    []core.Obligation     `json:"upcoming_payables"`
	UpcomingReceivables []core.Obligation     `json:"upcoming_receivables"`
	OpenPayables        core.Money            `json:"open_payables"`
	OpenReceivables     core.Money            `json:"open_receivables"`
	NextTaxDue          core.Date             `json:"next_tax_due"`
	DaysUntilTaxDue     int                   `json:"days_until_tax_due"`
}

// Dashboard fetches one snapshot of entries and open obligations
// concurrently and derives every figure from it.
func (s *ReportService) Dashboard(ctx context.Context, owner string, today core.Date) (Dashboard, error) {
	if owner == "" {
		return Dashboard{}, core.ErrEmptyOwner
	}
	if err := today.Validate(); err != nil {
		return Dashboard{}, err
	}

	current := aggregate.MonthOf(today)
	previous := aggregate.MonthOf(today.FirstOfMonth(-1))
	ytd := aggregate.YearToDate(today)
	span := aggregate.Span(previous, ytd, current)

	var (
		entries []core.LedgerEntry
		open    []core.Obligation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.fetchEntries(gctx, owner, "", span)
		return err
	})
	g.Go(func() error {
		var err error
		open, err = s.fetchObligations(gctx, owner, ledger.OpenStatus, core.Window{})
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	settled := aggregate.SettledOnly(entries)
	d := Dashboard{Today: today}
	var err error
	if d.CurrentMonth, err = aggregate.Summarize(settled, current); err != nil {
		return Dashboard{}, err
	}
	if d.PreviousMonth, err = aggregate.Summarize(settled, previous); err != nil {
		return Dashboard{}, err
	}
	d.IncomeVariation = aggregate.IncomeVariation(d.CurrentMonth, d.PreviousMonth)
	d.ExpenseVariation = aggregate.ExpenseVariation(d.CurrentMonth, d.PreviousMonth)
	if d.Split, err = aggregate.SettlementSplit(entries, current); err != nil {
		return Dashboard{}, err
	}
	incomeMonth, err := aggregate.Summarize(aggregate.OfKind(settled, core.Income), current)
	if err != nil {
		return Dashboard{}, err
	}
	d.IncomeByCategory = incomeMonth.Categories()

	ytdSummary, err := aggregate.Summarize(settled, ytd)
	if err != nil {
		return Dashboard{}, err
	}
	if d.Standing, err = ceiling.Classify(ytdSummary.TotalIncome, s.ceiling); err != nil {
		return Dashboard{}, err
	}

	ahead, err := aggregate.MonthsAhead(today, UpcomingMonths)
	if err != nil {
		return Dashboard{}, err
	}
	d.UpcomingPayables = []core.Obligation{}
	d.UpcomingReceivables = []core.Obligation{}
	for _, o := range open {
		inWindow := ahead.Contains(o.DueOn)
		var err error
		switch o.Kind {
		case core.Payable:
			d.OpenPayables, err = d.OpenPayables.AddChecked(o.Amount)
			if inWindow {
				d.UpcomingPayables = append(d.UpcomingPayables, o)
			}
		case core.Receivable:
			d.OpenReceivables, err = d.OpenReceivables.AddChecked(o.Amount)
			if inWindow {
				d.UpcomingReceivables = append(d.UpcomingReceivables, o)
			}
		}
		if err != nil {
			return Dashboard{}, err
		}
	}

	d.NextTaxDue = tax.NextDueDate(today)
	d.DaysUntilTaxDue = tax.DaysUntilDue(today)

	slog.DebugContext(ctx, "Dashboard derived",
		"owner_id", owner,
		"entries", len(entries),
		"open_obligations", len(open),
		"band", d.Standing.Band)
	return d, nil
}
