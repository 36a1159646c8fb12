// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc driver. Each concurrent caller is
// served by its own connection from the database/sql pool, and the lookup
// statement is prepared once and reused across them.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"qtool/internal/query"
	"qtool/internal/storage"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config

	mu    sync.Mutex
	stmts map[string]*sql.Stmt
}

// NewRepository opens the database described by cfg and verifies that it is
// readable. It returns the Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", dsnFor(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxConns)
	}

	// sql.Open is lazy; touch the schema so a missing or corrupt file fails here.
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var n int64
	if err := db.QueryRowContext(probeCtx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: probe %s: %w", cfg.DSN, err)
	}

	r := &Repository{db: db, cfg: cfg, stmts: make(map[string]*sql.Stmt)}
	return r, r.close, nil
}

// Query executes stmt and counts the rows it returns.
func (r *Repository) Query(ctx context.Context, stmt query.Statement) (int64, error) {
	ps, err := r.prepared(ctx, stmt.SQL())
	if err != nil {
		return 0, err
	}
	rows, err := ps.QueryContext(ctx, stmt.Args()...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: query: %w", err)
	}
	n, err := storage.CountRows(rows)
	if err != nil {
		return n, fmt.Errorf("sqlite: read rows: %w", err)
	}
	return n, nil
}

// prepared returns the cached prepared statement for text, preparing it on
// first use. *sql.Stmt is safe for concurrent use.
func (r *Repository) prepared(ctx context.Context, text string) (*sql.Stmt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ps, ok := r.stmts[text]; ok {
		return ps, nil
	}
	ps, err := r.db.PrepareContext(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("sqlite: prepare: %w", err)
	}
	r.stmts[text] = ps
	return ps, nil
}

func (r *Repository) close() {
	r.mu.Lock()
	for k, ps := range r.stmts {
		_ = ps.Close()
		delete(r.stmts, k)
	}
	r.mu.Unlock()
	_ = r.db.Close()
}

// dsnFor turns a plain path into a read-only SQLite URI when requested.
// URIs and in-memory names are passed through untouched.
func dsnFor(cfg Config) string {
	dsn := strings.TrimSpace(cfg.DSN)
	if !cfg.ReadOnly || strings.HasPrefix(dsn, "file:") || dsn == ":memory:" {
		return dsn
	}
	esc := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(dsn)
	return "file:" + esc + "?mode=ro"
}
