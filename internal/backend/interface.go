package backend

import (
	"context"

	"budget/internal/amqp"
	"budget/internal/ports"
)

// Store is the storage surface shared by the server and the sync worker.
type Store interface {
	ports.Ledger
	ports.SyncStore
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Close lets a CleanupFunc be registered wherever an io.Closer is expected.
func (f CleanupFunc) Close() error {
	if f == nil {
		return nil
	}
	return f()
}

// BackendResult contains the wired storage, an optional sync publisher and
// the cleanup for everything the factory opened.
type BackendResult struct {
	Store Store
	// Publisher is nil when AMQP is disabled or unreachable at startup.
	Publisher ports.SyncPublisher
	// AMQP is the connected client behind Publisher, for consumers.
	AMQP *amqp.Client
	// Ready reports whether the store can serve requests.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// AMQP is optional for every backend type.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireAMQP turns an unreachable broker into a startup error.
	RequireAMQP bool
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
