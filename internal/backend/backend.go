// Package backend opens the ledger's infrastructure from configuration: the
// Store, the optional event and report publisher, and the sheet mirror.
package backend

import (
	"context"

	"tally/internal/amqp"
	"tally/internal/storage"
)

// CleanupFunc releases a resource opened by the factory.
type CleanupFunc func() error

// Result holds everything Open created. Publisher is nil when no broker is
// configured.
type Result struct {
	Store     storage.Store
	Publisher *amqp.Client
	// Ready reports whether the store can serve requests.
	Ready   func(ctx context.Context) error
	cleanup []CleanupFunc
}

// Close releases resources in reverse order of creation and returns the
// first error.
func (r *Result) Close() error {
	var first error
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		if err := r.cleanup[i](); err != nil && first == nil {
			first = err
		}
	}
	r.cleanup = nil
	return first
}

// Type selects the Store implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// AMQP publishing is disabled when AMQP.URL is empty.
	AMQP amqp.Config
}
