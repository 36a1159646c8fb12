// Package mssql implements a Microsoft SQL Server repository using
// go-mssqldb. Statements use @pN placeholders.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"qtool/internal/query"
	"qtool/internal/storage"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN      string
	MaxConns int
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
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
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return fmt.Errorf("mssql: query failed (error %d, state %d): %w", msErr.Number, msErr.State, err)
	}
	return fmt.Errorf("mssql: query: %w", err)
}
