package postgres

import (
	"context"

	"qtool/internal/query"
	"qtool/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo adapts *postgres.Repository to storage.Repository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close closes the underlying pool.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
			ReadOnly: cfg.ReadOnly,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDialect("postgres", query.DialectPostgres)
}
