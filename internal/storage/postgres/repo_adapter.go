// This adapter wires the Postgres backend into the storage-agnostic factory
// by registering a constructor and a DDL bootstrapper at init time. Callers
// obtain a Repository via storage.New(...) without importing this package
// directly; importing storage/all is enough.
package postgres

import (
	"context"

	"bugingest/internal/schema"
	"bugingest/internal/storage"
	pgddl "bugingest/internal/storage/postgres/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace it to avoid real connections.
var newRepository = NewRepository

// wrappedRepo adapts *Repository to storage.Repository, routing Close to the
// close function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("postgres", func(ctx context.Context, repo storage.Repository) error {
		for _, t := range schema.Tables {
			if err := repo.Exec(ctx, pgddl.BuildCreateTableSQL(t)); err != nil {
				return err
			}
		}
		return nil
	})
}
