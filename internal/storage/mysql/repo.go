// Package mysql provides a MySQL-backed storage.Repository implementation.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"qtool/internal/query"
	"qtool/internal/storage"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN      string
	MaxConns int
	ReadOnly bool
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a pool, pings the server and returns a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dsn, err := normalizeDSN(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, close, nil
}

// normalizeDSN parses cfg.DSN and forces the options the query path relies on.
func normalizeDSN(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return "", fmt.Errorf("mysql: DSN must not be empty")
	}
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	if cfg.ReadOnly {
		if mc.Params == nil {
			mc.Params = map[string]string{}
		}
		mc.Params["transaction_read_only"] = "1"
	}
	return mc.FormatDSN(), nil
}

// Query executes stmt and counts the rows it returns.
func (r *Repository) Query(ctx context.Context, stmt query.Statement) (int64, error) {
	rows, err := r.db.QueryContext(ctx, stmt.SQL(), stmt.Args()...)
	if err != nil {
		return 0, describe(err)
	}
	n, err := storage.CountRows(rows)
	if err != nil {
		return n, describe(err)
	}
	return n, nil
}

func describe(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Errorf("mysql: query failed (error %d): %w", myErr.Number, err)
	}
	return fmt.Errorf("mysql: query: %w", err)
}
