package backend

import (
	"context"
	"fmt"

	"spendtracker/internal/ledger"
	"spendtracker/internal/log"
	"spendtracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	dsn := config.SQLiteDSN
	if dsn == "" {
		dsn = storage.SessionDSN()
	}
	book, err := storage.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite ledger: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "session_db", true)

	return &Result{
		Book:    book,
		Ready:   book.Ping,
		Cleanup: book.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*Result, error) {
	f.logger.Info("Initialized memory backend")
	return &Result{Book: ledger.New()}, nil
}
