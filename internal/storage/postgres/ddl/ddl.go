// Package ddl renders Postgres DDL for the destination schema.
package ddl

import (
	"fmt"
	"strings"

	"bugingest/internal/schema"
)

// MapType maps a semantic column type to its Postgres SQL type. List columns
// use native arrays; timestamps are stored with time zone since the canonical
// instant is UTC.
func MapType(t schema.SemanticType) string {
	switch t {
	case schema.Bool:
		return "BOOLEAN"
	case schema.Integer:
		return "BIGINT"
	case schema.IntList:
		return "BIGINT[]"
	case schema.TextList:
		return "TEXT[]"
	case schema.Timestamp:
		return "TIMESTAMPTZ"
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
