// Package sqlite implements the SQLite storage backend using database/sql
// and the modernc driver. It exists for local runs and as the real-database
// test harness (":memory:" DSN); semantics mirror the Postgres backend, with
// INSERT OR IGNORE standing in for ON CONFLICT DO NOTHING and list columns
// stored as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bugingest/internal/storage"
)

// Config holds SQLite backend configuration.
type Config struct {
	// DSN is passed to database/sql, e.g. "file:bugs.db?_fk=1" or ":memory:".
	DSN string
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the database and verifies it with a short ping.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// SQLite has a single writer; one pooled connection also keeps a
	// ":memory:" DSN pointing at one database instead of one per conn.
	db.SetMaxOpenConns(1)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	closeFn := func() { db.Close() }
	return &Repository{db: db}, closeFn, nil
}

// WriteRecord executes one record's plan inside a single transaction,
// preserving the plan's table order.
func (r *Repository) WriteRecord(ctx context.Context, p *storage.Plan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	for _, w := range p.Writes {
		if err := writeTable(ctx, tx, w); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: write %s for bug %d: %w", w.Table.Name, p.BugID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit bug %d: %w", p.BugID, err)
	}
	return nil
}

func writeTable(ctx context.Context, tx *sql.Tx, w storage.TableWrite) error {
	cols := make([]string, len(w.Table.Columns))
	args := make([]string, len(w.Table.Columns))
	for i, c := range w.Table.Columns {
		cols[i] = quote(c.Name)
		args[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		quote(w.Table.Name), strings.Join(cols, ", "), strings.Join(args, ", "),
	))
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range w.Rows {
		vals := make([]any, len(row))
		for i, v := range row {
			enc, err := encodeValue(v)
			if err != nil {
				return fmt.Errorf("column %s: %w", w.Table.Columns[i].Name, err)
			}
			vals[i] = enc
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
	}
	return nil
}

// encodeValue maps plan values onto what the sqlite driver accepts: lists
// become JSON text, timestamps are stored in RFC 3339 UTC, NULLs stay NULL.
func encodeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []int64, []string:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	}
	return v, nil
}

// Exec runs a single statement (DDL bootstrap).
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return fmt.Errorf("sqlite: empty statement")
	}
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// Close releases the database handle.
func (r *Repository) Close() { r.db.Close() }

func quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
