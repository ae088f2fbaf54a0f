// Package bugzilla models one archived Bugzilla snapshot as decoded from disk
// and turns it into the normalized row sets the storage layer persists.
//
// A snapshot is an arbitrary nested JSON object; no shape is guaranteed beyond
// the numeric "id" field. Instead of reaching into map[string]any at every
// call site, Record exposes small typed accessors that report presence
// explicitly, so missing or oddly-shaped fields read as absent rather than
// panicking.
package bugzilla

import (
	"fmt"
)

// Field names with special meaning inside a snapshot.
const (
	fieldID      = "id"
	fieldErr     = "err"
	fieldBugs    = "bugs"
	fieldHistory = "history"

	// CustomFieldPrefix marks snapshot keys that carry site-defined custom
	// fields (Bugzilla convention).
	CustomFieldPrefix = "cf_"
)

// Record is one raw snapshot. Values hold whatever encoding/json produced:
// string, float64, bool, nil, map[string]any, or []any.
type Record map[string]any

// Str returns the string value for key and whether it was present as a string.
func (r Record) Str(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int64 returns the integer value for key. JSON numbers decode as float64, so
// both float64 and the native integer types are accepted.
func (r Record) Int64(key string) (int64, bool) {
	return asInt64(r[key])
}

// Bool returns the boolean value for key.
func (r Record) Bool(key string) (bool, bool) {
	v, ok := r[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Map returns the nested object for key.
func (r Record) Map(key string) (Record, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(m), true
}

// Maps returns the list of nested objects for key. Entries that are not
// objects are dropped; a present-but-empty list reads as (nil, true).
func (r Record) Maps(key string) ([]Record, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Record, 0, len(raw))
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out, true
}

// List returns the raw list value for key.
func (r Record) List(key string) ([]any, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	l, ok := v.([]any)
	return l, ok
}

// ID returns the snapshot's bug identifier. Every snapshot must carry one;
// a missing or non-numeric id is a data-integrity error.
func (r Record) ID() (int64, error) {
	id, ok := r.Int64(fieldID)
	if !ok {
		return 0, &IntegrityError{Field: fieldID}
	}
	return id, nil
}

// IsFetchError reports whether the snapshot marked itself as a failed fetch.
// Such records are skipped without logging.
func (r Record) IsFetchError() bool {
	v, ok := r[fieldErr]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	default:
		return true
	}
}

// IntegrityError marks a snapshot missing a field the upstream tracker always
// populates (bug id, assignee, creator). It aborts that record only; the run
// continues.
type IntegrityError struct {
	Field string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("snapshot missing required field %q", e.Field)
}

// asInt64 converts the JSON-decoded numeric shapes to int64.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
