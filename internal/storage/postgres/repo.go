// Package postgres implements the Postgres storage backend using pgx v5.
// One record's write plan runs inside a single transaction; each table write
// is a pgx batch of INSERT ... ON CONFLICT (<pk>) DO NOTHING statements, so
// re-ingesting a snapshot is a row-level no-op.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bugingest/internal/storage"
)

// Config holds Postgres backend configuration.
type Config struct {
	// DSN is the connection string for pgxpool.
	DSN string
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository opens a connection pool and verifies it with a short ping.
// It returns the repository plus a close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pgx ping: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool}, closeFn, nil
}

// WriteRecord executes one record's plan within a single transaction,
// preserving the plan's table order. Any failed statement rolls the whole
// record back.
func (r *Repository) WriteRecord(ctx context.Context, p *Plan) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, w := range p.Writes {
		if err := writeBatch(ctx, tx, w); err != nil {
			return fmt.Errorf("write %s for bug %d: %w", w.Table.Name, p.BugID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bug %d: %w", p.BugID, err)
	}
	return nil
}

// Plan aliases the storage plan type to keep the interface satisfaction
// obvious at the call sites in this package.
type Plan = storage.Plan

// writeBatch queues one INSERT per row into a pgx batch and drains it.
func writeBatch(ctx context.Context, tx pgx.Tx, w storage.TableWrite) error {
	sql := insertSQL(w)
	batch := &pgx.Batch{}
	for _, row := range w.Rows {
		batch.Queue(sql, row...)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range w.Rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// insertSQL renders the idempotent insert statement for one table write.
func insertSQL(w storage.TableWrite) string {
	cols := make([]string, len(w.Table.Columns))
	args := make([]string, len(w.Table.Columns))
	for i, c := range w.Table.Columns {
		cols[i] = pgIdent(c.Name)
		args[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		pgIdent(w.Table.Name),
		strings.Join(cols, ", "),
		strings.Join(args, ", "),
		strings.Join(mapIdent(w.Table.PrimaryKey), ", "),
	)
}

// Exec runs a single statement (DDL bootstrap) against the pool.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return err
}

// Close releases the pool.
func (r *Repository) Close() { r.pool.Close() }

// pgIdent safely quotes a single identifier segment ("when" is a reserved
// word in the changes_history table).
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
