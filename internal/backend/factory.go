package backend

import (
	"context"
	"fmt"
	"log/slog"

	"financemei/internal/amqp"
	"financemei/internal/events"
	"financemei/internal/kafka"
	"financemei/internal/ledger/memory"
	"financemei/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: repo, Ping: repo.Ping, Cleanup: repo.Close}, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Postgres backend")
		return &StoreResult{Store: repo, Ping: repo.Ping, Cleanup: repo.Close}, nil
	case MemoryBackend:
		return f.createMemoryStore(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryStore(ctx context.Context, config Config) (*StoreResult, error) {
	if config.SeedPath == "" {
		f.logger.InfoContext(ctx, "Initialized memory backend")
		return &StoreResult{Store: memory.New()}, nil
	}
	store, err := memory.NewFromFile(config.SeedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed file: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized memory backend", "seed", config.SeedPath)
	return &StoreResult{Store: store, Cleanup: store.Close}, nil
}

// CreatePublisher implements Factory.CreatePublisher. An unreachable broker
// is logged and replaced by a no-op so writes keep working.
func (f *DefaultFactory) CreatePublisher(config Config) (events.Publisher, error) {
	switch config.Events {
	case "", NoEvents:
		return events.Nop{}, nil
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			return events.Nop{}, nil
		}
		f.logger.Info("Initialized AMQP publisher",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return client, nil
	case KafkaEvents:
		f.logger.Info("Initialized Kafka publisher", "topic", config.KafkaTopic, "brokers", config.KafkaBrokers)
		return kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unsupported events backend: %s", config.Events)
	}
}

// CreateConsumer implements Factory.CreateConsumer. Unlike the publisher,
// a consumer is required, so connection failures are returned.
func (f *DefaultFactory) CreateConsumer(config Config) (Consumer, error) {
	switch config.Events {
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		return client, nil
	case KafkaEvents:
		return kafka.NewConsumer(config.KafkaBrokers, config.KafkaTopic, config.KafkaGroupID), nil
	default:
		return nil, fmt.Errorf("events backend %q has no consumer", config.Events)
	}
}
