// Package events defines the ledger change notifications published after a
// write and consumed by the worker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"financemei/internal/core"
)

const (
	EntryRecorded       Type = "entry.recorded"
	EntryDeleted        Type = "entry.deleted"
	ObligationAdded     Type = "obligation.added"
	ObligationFulfilled Type = "obligation.fulfilled"
)

type Type string

// LedgerEvent is a lightweight notification. It carries identifiers only;
// consumers read current state from the store.
type LedgerEvent struct {
	Type      Type      `json:"type"`
	OwnerID   string    `json:"owner_id"`
	EntryID   string    `json:"entry_id,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(t Type, owner, entryID string, kind string) LedgerEvent {
	return LedgerEvent{
		Type:      t,
		OwnerID:   owner,
		EntryID:   entryID,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes and validates an event payload.
func FromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return LedgerEvent{}, err
	}
	if e.OwnerID == "" || e.Type == "" {
		return LedgerEvent{}, fmt.Errorf("%w: event missing type or owner", core.ErrInvalidInput)
	}
	return e, nil
}

// Publisher sends ledger events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e LedgerEvent) error
	Close() error
}

// Handler processes one consumed event.
type Handler func(ctx context.Context, e LedgerEvent) error

// Nop drops every event. It stands in when no broker is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, e LedgerEvent) error {
	slog.DebugContext(ctx, "No event broker configured, dropping event", "type", e.Type, "owner_id", e.OwnerID)
	return nil
}

func (Nop) Close() error { return nil }
