// Package schema owns the static description of the target relational schema:
// the six destination tables, the semantic type of every report column, the
// per-type imputation defaults, and the tolerant value coercion applied to
// report values before they reach a database driver.
//
// The semantic types are deliberately decoupled from any storage engine's
// runtime type catalog; backends map them to their own SQL types in their ddl
// subpackages.
package schema

import (
	"errors"
	"fmt"
	"time"
)

// SemanticType is the abstract value kind of a target column. It drives both
// imputation defaults and DDL rendering.
type SemanticType int

const (
	Bool SemanticType = iota
	Integer
	Text
	IntList
	TextList
	Timestamp
)

// String implements fmt.Stringer for diagnostics and DDL generators.
func (t SemanticType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Integer:
		return "integer"
	case Text:
		return "text"
	case IntList:
		return "int_list"
	case TextList:
		return "text_list"
	case Timestamp:
		return "timestamp"
	}
	return fmt.Sprintf("SemanticType(%d)", int(t))
}

// ErrUnmappedType indicates a column declared with a semantic type the
// default/coercion tables do not cover. That is a configuration error in this
// package, not a per-record condition, so callers must surface it rather than
// skip the record.
var ErrUnmappedType = errors.New("no default registered for semantic type")

// ReportColumns maps every reports-table column to its semantic type. This is
// the single source of truth for the report row: extraction copies snapshot
// values for these names, imputation fills the rest, and the writers derive
// their column order from it.
var ReportColumns = map[string]SemanticType{
	// Descriptive fields.
	"summary":          Text,
	"status":           Text,
	"resolution":       Text,
	"severity":         Text,
	"priority":         Text,
	"product":          Text,
	"component":        Text,
	"version":          Text,
	"platform":         Text,
	"op_sys":           Text,
	"url":              Text,
	"whiteboard":       Text,
	"target_milestone": Text,
	"classification":   Text,

	"is_open":               Bool,
	"is_confirmed":          Bool,
	"is_cc_accessible":      Bool,
	"is_creator_accessible": Bool,

	"dupe_of":       Integer,
	"comment_count": Integer,
	"votes":         Integer,

	"blocks":     IntList,
	"depends_on": IntList,

	"keywords": TextList,
	"alias":    TextList,
	"see_also": TextList,
	"groups":   TextList,

	"creation_time":    Timestamp,
	"last_change_time": Timestamp,
	"cf_last_resolved": Timestamp,

	// Relational columns derived during extraction.
	"bug_id":         Integer,
	"assigned_to_id": Integer,
	"creator_id":     Integer,
	"qa_contact_id":  Integer,
	"cc_id":          IntList,
	"mentors_id":     IntList,
}

// DefaultFor returns the canonical imputation default for a semantic type:
// false, 0, empty string, empty list, or a NULL timestamp.
func DefaultFor(t SemanticType) (any, error) {
	switch t {
	case Bool:
		return false, nil
	case Integer:
		return int64(0), nil
	case Text:
		return "", nil
	case IntList:
		return []int64{}, nil
	case TextList:
		return []string{}, nil
	case Timestamp:
		return (*time.Time)(nil), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnmappedType, t)
}

// ImputeReport ensures every column in ReportColumns has a value in row:
// absent columns receive their semantic default, present columns are coerced
// to the column's Go representation. Present, coercible values are never
// replaced.
func ImputeReport(row map[string]any) error {
	return imputeWith(row, ReportColumns)
}

// imputeWith is the schema-parametric implementation, split out so tests can
// exercise the exhaustiveness requirement with synthetic column maps.
func imputeWith(row map[string]any, cols map[string]SemanticType) error {
	for col, typ := range cols {
		v, ok := row[col]
		if !ok || v == nil {
			// A derived column explicitly set to nil (e.g. qa_contact_id,
			// mentors_id) stays NULL; only truly absent columns are imputed.
			if ok {
				continue
			}
			def, err := DefaultFor(typ)
			if err != nil {
				return fmt.Errorf("impute %s: %w", col, err)
			}
			row[col] = def
			continue
		}
		coerced, err := CoerceValue(typ, v)
		if err != nil {
			return fmt.Errorf("coerce %s: %w", col, err)
		}
		row[col] = coerced
	}
	return nil
}

// CoerceValue converts a JSON-decoded snapshot value into the Go
// representation the drivers expect for the given semantic type. It is
// tolerant in the same spirit as the upstream loader: values that already
// have the right shape pass through, JSON numbers become int64, and list
// elements are converted member-wise. A value that cannot be represented at
// all is an error so the caller can surface the record.
func CoerceValue(t SemanticType, v any) (any, error) {
	switch t {
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Integer:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case float64:
			return int64(n), nil
		}
	case Text:
		switch s := v.(type) {
		case string:
			return s, nil
		case float64:
			return fmt.Sprintf("%v", s), nil
		}
	case IntList:
		switch l := v.(type) {
		case []int64:
			return l, nil
		case []any:
			out := make([]int64, 0, len(l))
			for _, e := range l {
				switch n := e.(type) {
				case float64:
					out = append(out, int64(n))
				case int64:
					out = append(out, n)
				default:
					return nil, fmt.Errorf("list element %T is not an integer", e)
				}
			}
			return out, nil
		}
	case TextList:
		switch l := v.(type) {
		case []string:
			return l, nil
		case []any:
			out := make([]string, 0, len(l))
			for _, e := range l {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("list element %T is not a string", e)
				}
				out = append(out, s)
			}
			return out, nil
		}
	case Timestamp:
		switch ts := v.(type) {
		case *time.Time:
			return ts, nil
		case time.Time:
			return &ts, nil
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnmappedType, t)
	}
	return nil, fmt.Errorf("cannot represent %T as %s", v, t)
}
