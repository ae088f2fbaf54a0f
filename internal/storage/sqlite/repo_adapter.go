// Adapter wiring the SQLite backend into the storage factory, mirroring the
// Postgres adapter.
package sqlite

import (
	"context"

	"bugingest/internal/schema"
	"bugingest/internal/storage"
	sqlddl "bugingest/internal/storage/sqlite/ddl"
)

var newRepository = NewRepository

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
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("sqlite", func(ctx context.Context, repo storage.Repository) error {
		for _, t := range schema.Tables {
			if err := repo.Exec(ctx, sqlddl.BuildCreateTableSQL(t)); err != nil {
				return err
			}
		}
		return nil
	})
}
