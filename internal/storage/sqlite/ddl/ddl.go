// Package ddl renders SQLite DDL for the destination schema.
package ddl

import (
	"fmt"
	"strings"

	"bugingest/internal/schema"
)

// MapType maps a semantic column type to its SQLite storage class. Lists are
// JSON text; timestamps are RFC 3339 text, matching the repo's value
// encoding.
func MapType(t schema.SemanticType) string {
	switch t {
	case schema.Bool, schema.Integer:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement for one
// destination table, including its primary-key constraint.
func BuildCreateTableSQL(t schema.Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		defs = append(defs, fmt.Sprintf("%s %s", quote(c.Name), MapType(c.Type)))
	}
	if len(t.PrimaryKey) > 0 {
		pk := make([]string, len(t.PrimaryKey))
		for i, c := range t.PrimaryKey {
			pk[i] = quote(c)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		quote(t.Name), strings.Join(defs, ",\n  "),
	)
}

func quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
