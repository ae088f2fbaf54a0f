// Package snapshot reads archived bug snapshots from a local directory: one
// JSON blob per bug, as left behind by the fetch stage. It only enumerates
// and decodes; classification of what a record means is left to the bugzilla
// package.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"bugingest/internal/bugzilla"
)

// ErrFetchError marks a snapshot whose content flags itself as an upstream
// fetch failure. Such records are skipped silently, without logging.
var ErrFetchError = errors.New("snapshot records a fetch error")

// DuplicateError reports a snapshot whose bytes were already processed in
// this run (same xxh3 digest). The pipeline is idempotent at the row level
// anyway; skipping byte-identical blobs just avoids redundant round-trips.
type DuplicateError struct {
	Digest uint64
	First  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("snapshot content already seen (digest=%016x, first=%s)", e.Digest, e.First)
}

// List returns the sorted paths of all snapshot blobs (*.json) directly under
// dir. Non-snapshot entries and subdirectories are ignored.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Loader decodes snapshot blobs and tracks content digests across one run.
// It is not safe for concurrent use; the pipeline processes files
// sequentially on purpose.
type Loader struct {
	seen map[uint64]string
}

// NewLoader returns a Loader with an empty digest set.
func NewLoader() *Loader {
	return &Loader{seen: make(map[uint64]string)}
}

// Load reads and decodes one snapshot blob. It returns the decoded record and
// the blob's xxh3 digest, or:
//
//   - a *DuplicateError when the same bytes were already loaded this run,
//   - ErrFetchError when the record flags itself as a failed fetch,
//   - a wrapped I/O or decode error for unreadable blobs.
//
// The caller decides how each case affects its counters and logging.
func (l *Loader) Load(path string) (bugzilla.Record, uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	digest := xxh3.Hash(raw)
	if first, ok := l.seen[digest]; ok {
		return nil, digest, &DuplicateError{Digest: digest, First: first}
	}
	l.seen[digest] = path

	var rec bugzilla.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, digest, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if rec.IsFetchError() {
		return nil, digest, ErrFetchError
	}
	return rec, digest, nil
}
