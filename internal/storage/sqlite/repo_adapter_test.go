package sqlite

import (
	"context"
	"errors"
	"testing"

	"qtool/internal/query"
	"qtool/internal/storage"
)

// TestSQLiteStorageRegistrationUsesNewRepositoryHook verifies that the
// "sqlite" storage backend registered in init() uses the newRepository hook
// and that wrappedRepo correctly delegates Close.
//
// Not parallel: it swaps the package-level hook.
func TestSQLiteStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
	ctx := context.Background()

	origNewRepository := newRepository
	defer func() { newRepository = origNewRepository }()

	var (
		called bool
		gotCfg Config
		closed bool
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		called = true
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	cfg := storage.Config{Kind: "sqlite", DSN: "tests/testdb", MaxConns: 4, ReadOnly: true}
	repo, err := storage.New(ctx, cfg)
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if !called {
		t.Fatalf("newRepository hook was not called")
	}
	if gotCfg.DSN != cfg.DSN || gotCfg.MaxConns != cfg.MaxConns || !gotCfg.ReadOnly {
		t.Errorf("hook cfg = %+v, want DSN=%q MaxConns=%d ReadOnly=true", gotCfg, cfg.DSN, cfg.MaxConns)
	}

	repo.Close()
	if !closed {
		t.Fatalf("Close did not call closeFn")
	}

	d, err := storage.DialectFor("sqlite")
	if err != nil || d != query.DialectSQLite {
		t.Fatalf("DialectFor(sqlite) = %q, %v; want %q", d, err, query.DialectSQLite)
	}
}

// Not parallel: it swaps the package-level hook.
func TestSQLiteStorageRegistrationWrapsOpenError(t *testing.T) {
	origNewRepository := newRepository
	defer func() { newRepository = origNewRepository }()

	boom := errors.New("disk on fire")
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		return nil, nil, boom
	}

	_, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: "x"})
	var oe *storage.OpenError
	if !errors.As(err, &oe) || !errors.Is(err, boom) {
		t.Fatalf("storage.New error = %v, want *OpenError wrapping %v", err, boom)
	}
}
