package backend

import (
	"context"

	"spendtracker/internal/ledger"
)

// CleanupFunc releases whatever the backend holds.
type CleanupFunc func() error

// Result is a ready-to-use book plus its lifecycle hooks.
type Result struct {
	Book ledger.Book
	// Ready backs /readyz. Memory books are always ready.
	Ready   func(context.Context) error
	Cleanup CleanupFunc
}

// Factory creates books based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLiteDSN overrides the per-session in-memory database. Tests use it to
	// point two books at the same database.
	SQLiteDSN string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
