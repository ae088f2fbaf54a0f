package storage

import (
	"context"
	"fmt"
	"sync"
)

// DDLBootstrapper applies a backend's CREATE TABLE IF NOT EXISTS statements
// for the full destination schema via repo.Exec. Backends register their
// implementation for a storage kind at init time.
type DDLBootstrapper func(ctx context.Context, repo Repository) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) a DDLBootstrapper for a storage kind.
// Typically called from backend packages' init functions.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTables locates the DDLBootstrapper for kind and invokes it. Callers
// stay backend-agnostic; they only know the storage kind they opened.
func EnsureTables(ctx context.Context, repo Repository, kind string) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage kind=%q", kind)
	}
	return fn(ctx, repo)
}
