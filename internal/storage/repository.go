// Package storage contains the storage-agnostic contracts of the ingestion
// pipeline: the Repository interface every backend implements, a factory
// registry keyed by storage kind, and the dependency-ordered write plan built
// from one snapshot's extracted rows.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Repository is the minimal surface the pipeline needs from a database
// backend. WriteRecord persists one record's plan inside a single
// transaction: committed on success, rolled back on any error, so one bad
// record never poisons the rest of the run.
type Repository interface {
	// WriteRecord executes the plan's table writes in order within one
	// transaction. Inserts are idempotent on each table's primary key.
	WriteRecord(ctx context.Context, p *Plan) error

	// Exec runs a single statement (typically DDL) outside the per-record
	// transaction scope.
	Exec(ctx context.Context, sql string) error

	// Close releases the underlying connection or pool.
	Close()
}

// Config selects and configures a backend.
type Config struct {
	// Kind selects the registered backend: "postgres" or "sqlite".
	Kind string

	// DSN is the backend connection string.
	DSN string
}

// Factory constructs a Repository for one storage kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for a storage kind. Backend
// packages call this from init; importing storage/all wires every built-in
// backend.
func Register(kind string, fn Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = fn
}

// New opens a Repository for cfg.Kind using the registered factory.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	fn, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no storage backend registered for kind=%q", cfg.Kind)
	}
	return fn(ctx, cfg)
}
