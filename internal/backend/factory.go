package backend

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/log"
	"ledger/internal/repository"
	"ledger/internal/storage"
	"ledger/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		result = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(ctx, config, result)
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{
		Repo:    cache.WithCategoryCache(repo, cache.DefaultCategoryTTL),
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &BackendResult{
		Repo:    store,
		Cleanup: store.Close,
	}
}

// attachPublisher dials the broker when configured. A broker that cannot be
// reached leaves events disabled rather than failing startup.
func (f *DefaultFactory) attachPublisher(ctx context.Context, config Config, result *BackendResult) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Publisher = client
	result.Cleanup = joinCleanup(result.Cleanup, client.Close)
}

func joinCleanup(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for _, fn := range fns {
			if fn != nil {
				errs = append(errs, fn())
			}
		}
		return errors.Join(errs...)
	}
}

var (
	_ repository.Repository = (*storage.SQLiteRepository)(nil)
	_ repository.Repository = (*memory.Store)(nil)
)
