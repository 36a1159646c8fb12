// Package storage defines the read contract qtool needs from a metrics store
// and a small registry of backends. Concrete backends live in subpackages and
// register themselves at init time; import storage/all to enable all of them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"qtool/internal/query"
)

// Repository executes lookup statements against an open store.
//
// Implementations must be safe for concurrent use by every pool worker: they
// either hand out independent connections per call (database/sql, pgxpool) or
// serialize access internally.
type Repository interface {
	// Query executes stmt and returns the number of rows it produced.
	Query(ctx context.Context, stmt query.Statement) (int64, error)
	// Close releases all connections held by the repository.
	Close()
}

// Config selects and parameterizes a backend.
type Config struct {
	// Kind is the registered backend name, e.g. "sqlite" or "postgres".
	Kind string

	// DSN is a file path for sqlite, a connection string otherwise.
	DSN string

	// MaxConns caps concurrently open connections. The run controller sets it
	// to the worker count so every worker can hold its own connection.
	MaxConns int

	// ReadOnly asks backends that support it to open the store read-only.
	ReadOnly bool
}

// Factory opens a Repository for cfg. It must fail when the store cannot be
// reached, not lazily on the first query.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

// OpenError reports that a store could not be opened at all.
type OpenError struct {
	Kind string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s store: %v", e.Kind, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind. Factory
// failures are returned as *OpenError.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	repo, err := f(ctx, cfg)
	if err != nil {
		return nil, &OpenError{Kind: cfg.Kind, Err: err}
	}
	return repo, nil
}

// ListKinds returns a sorted snapshot of registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
