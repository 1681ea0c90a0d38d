package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"financemei/internal/core"
	"financemei/internal/ledger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Dialect selects the SQL driver and migration set.
type Dialect string

func (d Dialect) driverName() string { return string(d) }

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var _ ledger.Store = (*Repository)(nil)

// Repository is the SQL ledger store. Queries are written with ? placeholders
// and rebound for the connected driver.
type Repository struct {
	db *sqlx.DB
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := RunMigrations(SQLite, dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	slog.Info("SQLite repository ready", "path", dbPath)
	return &Repository{db: db}, nil
}

func NewPostgresRepository(dsn string) (*Repository, error) {
	if err := RunMigrations(Postgres, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	slog.Info("Postgres repository ready")
	return &Repository{db: db}, nil
}

// NewRepository wraps an already migrated connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type entryRow struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	Kind        string    `db:"kind"`
	Description string    `db:"description"`
	AmountCents int64     `db:"amount_cents"`
	OccurredOn  core.Date `db:"occurred_on"`
	Category    string    `db:"category"`
	Settled     bool      `db:"settled"`
	SettledOn   core.Date `db:"settled_on"`
}

func toEntryRow(e core.LedgerEntry) entryRow {
	return entryRow{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Kind:        string(e.Kind),
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		OccurredOn:  e.OccurredOn,
		Category:    e.Category,
		Settled:     e.Settled,
		SettledOn:   e.SettledOn,
	}
}

func (row entryRow) entry() core.LedgerEntry {
	return core.LedgerEntry{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Kind:        core.Kind(row.Kind),
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		OccurredOn:  row.OccurredOn,
		Category:    row.Category,
		Settled:     row.Settled,
		SettledOn:   row.SettledOn,
	}
}

const entryColumns = `id, owner_id, kind, description, amount_cents, occurred_on, category, settled, settled_on`

const insertEntry = `INSERT INTO ledger_entries (` + entryColumns + `)
VALUES (:id, :owner_id, :kind, :description, :amount_cents, :occurred_on, :category, :settled, :settled_on)`

// AppendEntry implements ledger.EntryWriter
func (r *Repository) AppendEntry(ctx context.Context, e core.LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(ctx, insertEntry, toEntryRow(e)); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	slog.DebugContext(ctx, "Ledger entry saved",
		"id", e.ID,
		"owner_id", e.OwnerID,
		"kind", e.Kind,
		"amount_cents", e.Amount.Cents)
	return nil
}

// DeleteEntry implements ledger.EntryWriter
func (r *Repository) DeleteEntry(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM ledger_entries WHERE owner_id = ? AND id = ?`), owner, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %q: %w", id, core.ErrNotFound)
	}
	return nil
}

// FetchEntries implements ledger.EntryReader
func (r *Repository) FetchEntries(ctx context.Context, owner string, kind core.Kind, window core.Window) ([]core.LedgerEntry, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	q := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE owner_id = ? AND occurred_on >= ? AND occurred_on <= ?`
	args := []any{owner, window.Start, window.End}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY occurred_on, id`

	var rows []entryRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("fetch entries: %w", err)
	}
	out := make([]core.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entry())
	}
	return out, nil
}

type obligationRow struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	Kind        string    `db:"kind"`
	Description string    `db:"description"`
	AmountCents int64     `db:"amount_cents"`
	DueOn       core.Date `db:"due_on"`
	Fulfilled   bool      `db:"fulfilled"`
	FulfilledOn core.Date `db:"fulfilled_on"`
	Notes       string    `db:"notes"`
}

func toObligationRow(o core.Obligation) obligationRow {
	return obligationRow{
		ID:          o.ID,
		OwnerID:     o.OwnerID,
		Kind:        string(o.Kind),
		Description: o.Description,
		AmountCents: o.Amount.Cents,
		DueOn:       o.DueOn,
		Fulfilled:   o.Fulfilled,
		FulfilledOn: o.FulfilledOn,
		Notes:       o.Notes,
	}
}

func (row obligationRow) obligation() core.Obligation {
	return core.Obligation{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Kind:        core.ObligationKind(row.Kind),
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		DueOn:       row.DueOn,
		Fulfilled:   row.Fulfilled,
		FulfilledOn: row.FulfilledOn,
		Notes:       row.Notes,
	}
}

const obligationColumns = `id, owner_id, kind, description, amount_cents, due_on, fulfilled, fulfilled_on, notes`

const insertObligation = `INSERT INTO obligations (` + obligationColumns + `)
VALUES (:id, :owner_id, :kind, :description, :amount_cents, :due_on, :fulfilled, :fulfilled_on, :notes)`

// AppendObligation implements ledger.ObligationWriter
func (r *Repository) AppendObligation(ctx context.Context, o core.Obligation) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(ctx, insertObligation, toObligationRow(o)); err != nil {
		return fmt.Errorf("insert obligation: %w", err)
	}
	return nil
}

// FetchObligations implements ledger.ObligationReader
func (r *Repository) FetchObligations(ctx context.Context, owner string, kind core.ObligationKind, status ledger.Status, due core.Window) ([]core.Obligation, error) {
	var where []string
	args := []any{owner}
	where = append(where, `owner_id = ?`)
	if kind != "" {
		where = append(where, `kind = ?`)
		args = append(args, string(kind))
	}
	switch status {
	case ledger.OpenStatus:
		where = append(where, `fulfilled = ?`)
		args = append(args, false)
	case ledger.FulfilledStatus:
		where = append(where, `fulfilled = ?`)
		args = append(args, true)
	}
	if !due.IsZero() {
		if err := due.Validate(); err != nil {
			return nil, err
		}
		where = append(where, `due_on >= ?`, `due_on <= ?`)
		args = append(args, due.Start, due.End)
	}
	q := `SELECT ` + obligationColumns + ` FROM obligations WHERE ` + strings.Join(where, " AND ") + ` ORDER BY due_on, id`

	var rows []obligationRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("fetch obligations: %w", err)
	}
	out := make([]core.Obligation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.obligation())
	}
	return out, nil
}

// FulfillObligation implements ledger.ObligationWriter. The obligation update
// and the entry insert commit together or not at all.
func (r *Repository) FulfillObligation(ctx context.Context, owner, id string, on core.Date, entryID string) (core.Obligation, core.LedgerEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.Obligation{}, core.LedgerEntry{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row obligationRow
	err = tx.GetContext(ctx, &row, tx.Rebind(`SELECT `+obligationColumns+` FROM obligations WHERE owner_id = ? AND id = ?`), owner, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Obligation{}, core.LedgerEntry{}, fmt.Errorf("obligation %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Obligation{}, core.LedgerEntry{}, fmt.Errorf("load obligation: %w", err)
	}

	updated, entry, err := core.Fulfill(row.obligation(), on)
	if err != nil {
		return core.Obligation{}, core.LedgerEntry{}, err
	}
	entry.ID = entryID
	if err := entry.Validate(); err != nil {
		return core.Obligation{}, core.LedgerEntry{}, err
	}

	res, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE obligations SET fulfilled = ?, fulfilled_on = ? WHERE owner_id = ? AND id = ? AND fulfilled = ?`),
		true, updated.FulfilledOn, owner, id, false)
	if err != nil {
		return core.Obligation{}, core.LedgerEntry{}, fmt.Errorf("update obligation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Obligation{}, core.LedgerEntry{}, fmt.Errorf("update obligation: %w", err)
	} else if n == 0 {
		return core.Obligation{}, core.LedgerEntry{}, core.ErrAlreadyFulfilled
	}

	if _, err := tx.NamedExecContext(ctx, insertEntry, toEntryRow(entry)); err != nil {
		return core.Obligation{}, core.LedgerEntry{}, fmt.Errorf("insert entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Obligation{}, core.LedgerEntry{}, fmt.Errorf("commit transaction: %w", err)
	}
	return updated, entry, nil
}

type subscriptionRow struct {
	OwnerID        string    `db:"owner_id"`
	TrialStartedAt string    `db:"trial_started_at"`
	TrialEndsAt    string    `db:"trial_ends_at"`
	PaymentStatus  string    `db:"payment_status"`
	LastPaymentOn  core.Date `db:"last_payment_on"`
	NextDueOn      core.Date `db:"next_due_on"`
}

func toSubscriptionRow(s core.AccountSubscription) subscriptionRow {
	return subscriptionRow{
		OwnerID:        s.OwnerID,
		TrialStartedAt: s.TrialStartedAt.UTC().Format(time.RFC3339Nano),
		TrialEndsAt:    s.TrialEndsAt.UTC().Format(time.RFC3339Nano),
		PaymentStatus:  string(s.PaymentStatus),
		LastPaymentOn:  s.LastPaymentOn,
		NextDueOn:      s.NextDueOn,
	}
}

func (row subscriptionRow) subscription() (core.AccountSubscription, error) {
	started, err := time.Parse(time.RFC3339Nano, row.TrialStartedAt)
	if err != nil {
		return core.AccountSubscription{}, fmt.Errorf("parse trial start: %w", err)
	}
	ends, err := time.Parse(time.RFC3339Nano, row.TrialEndsAt)
	if err != nil {
		return core.AccountSubscription{}, fmt.Errorf("parse trial end: %w", err)
	}
	return core.AccountSubscription{
		OwnerID:        row.OwnerID,
		TrialStartedAt: started,
		TrialEndsAt:    ends,
		PaymentStatus:  core.PaymentStatus(row.PaymentStatus),
		LastPaymentOn:  row.LastPaymentOn,
		NextDueOn:      row.NextDueOn,
	}, nil
}

const subscriptionColumns = `owner_id, trial_started_at, trial_ends_at, payment_status, last_payment_on, next_due_on`

const upsertSubscription = `INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES (:owner_id, :trial_started_at, :trial_ends_at, :payment_status, :last_payment_on, :next_due_on)
ON CONFLICT (owner_id) DO UPDATE SET
    trial_started_at = excluded.trial_started_at,
    trial_ends_at = excluded.trial_ends_at,
    payment_status = excluded.payment_status,
    last_payment_on = excluded.last_payment_on,
    next_due_on = excluded.next_due_on`

// SaveSubscription implements ledger.SubscriptionWriter
func (r *Repository) SaveSubscription(ctx context.Context, s core.AccountSubscription) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(ctx, upsertSubscription, toSubscriptionRow(s)); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// FetchSubscription implements ledger.SubscriptionReader
func (r *Repository) FetchSubscription(ctx context.Context, owner string) (core.AccountSubscription, error) {
	var row subscriptionRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE owner_id = ?`), owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.AccountSubscription{}, fmt.Errorf("subscription for %q: %w", owner, core.ErrNotFound)
	}
	if err != nil {
		return core.AccountSubscription{}, fmt.Errorf("fetch subscription: %w", err)
	}
	return row.subscription()
}

// ListSubscriptions implements ledger.SubscriptionReader
func (r *Repository) ListSubscriptions(ctx context.Context) ([]core.AccountSubscription, error) {
	var rows []subscriptionRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY owner_id`); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	out := make([]core.AccountSubscription, 0, len(rows))
	for _, row := range rows {
		s, err := row.subscription()
		if err != nil {
			return nil, fmt.Errorf("subscription for %q: %w", row.OwnerID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ListOwners implements ledger.OwnerLister
func (r *Repository) ListOwners(ctx context.Context) ([]string, error) {
	var owners []string
	q := `SELECT owner_id FROM ledger_entries
UNION SELECT owner_id FROM obligations
UNION SELECT owner_id FROM subscriptions
ORDER BY owner_id`
	if err := r.db.SelectContext(ctx, &owners, q); err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}
