package backend

import (
	"context"

	"financemei/internal/events"
	"financemei/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the ledger store and its lifecycle hooks.
type StoreResult struct {
	Store ledger.Store
	// Ping reports whether the store is reachable; nil for in-process stores.
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Consumer delivers ledger events to a handler until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, handler events.Handler) error
	Close() error
}

// Factory creates backends based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	// CreatePublisher returns events.Nop when events are disabled.
	CreatePublisher(config Config) (events.Publisher, error)
	CreateConsumer(config Config) (Consumer, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQL stores
	SQLiteDBPath string
	PostgresDSN  string

	// Memory store
	SeedPath string

	Events EventsType

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
}

// BackendType represents the type of ledger store
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// EventsType selects the ledger event transport.
type EventsType string

const (
	NoEvents    EventsType = "none"
	AMQPEvents  EventsType = "amqp"
	KafkaEvents EventsType = "kafka"
)

func (et EventsType) IsValid() bool {
	switch et {
	case NoEvents, AMQPEvents, KafkaEvents:
		return true
	default:
		return false
	}
}
