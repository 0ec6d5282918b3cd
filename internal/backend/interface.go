package backend

import (
	"context"

	"ledger/internal/repository"
	"ledger/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles the repository with the optional change publisher.
// Publisher is a nil interface when events are disabled.
type BackendResult struct {
	Repo      repository.Repository
	Publisher services.Publisher
	Ping      func(context.Context) error
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Change events, optional for either backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend seeds categories from DataDirectory/seed_categories.txt
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
