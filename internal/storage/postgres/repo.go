// Package postgres implements a Postgres (and TimescaleDB) repository using
// pgx v5. A single pgxpool.Pool is shared by all workers; the pool is safe for
// concurrent use and hands each caller its own connection.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"qtool/internal/query"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN      string // connection string for pgxpool
	MaxConns int    // upper bound for pool connections; 0 keeps the pgx default
	ReadOnly bool   // run every session with default_transaction_read_only
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository, verifies connectivity and returns a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	close := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, close, nil
}

// poolConfig parses cfg.DSN and applies the connection cap and read-only flag.
func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(min(cfg.MaxConns, math.MaxInt32))
	}
	if cfg.ReadOnly {
		if pcfg.ConnConfig.RuntimeParams == nil {
			pcfg.ConnConfig.RuntimeParams = map[string]string{}
		}
		pcfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	}
	return pcfg, nil
}

// Query executes stmt and counts the rows it returns.
func (r *Repository) Query(ctx context.Context, stmt query.Statement) (int64, error) {
	rows, err := r.pool.Query(ctx, stmt.SQL(), stmt.Args()...)
	if err != nil {
		return 0, describe(err)
	}
	defer rows.Close()

	var n int64
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return n, describe(err)
	}
	return n, nil
}

// describe adds the SQLSTATE to server-side errors.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres: query failed (sqlstate %s): %w", pgErr.Code, err)
	}
	return fmt.Errorf("postgres: query: %w", err)
}
