package postgres

import (
	"strings"
	"testing"

	"bugingest/internal/schema"
	"bugingest/internal/storage"
	pgddl "bugingest/internal/storage/postgres/ddl"
)

func TestInsertSQL_Users(t *testing.T) {
	got := insertSQL(storage.TableWrite{Table: schema.Users})
	want := `INSERT INTO "users" ("id", "email", "name", "nick", "real_name") ` +
		`VALUES ($1, $2, $3, $4, $5) ON CONFLICT ("id") DO NOTHING`
	if got != want {
		t.Fatalf("insertSQL =\n%s\nwant\n%s", got, want)
	}
}

/*
TestInsertSQL_ReservedWord checks that the changes_history statement survives
the reserved "when" column and renders the full composite conflict target.
*/
func TestInsertSQL_ReservedWord(t *testing.T) {
	got := insertSQL(storage.TableWrite{Table: schema.Changes})
	for _, want := range []string{
		`INSERT INTO "changes_history"`,
		`"when"`,
		`ON CONFLICT ("bug_id", "when", "field_name", "added", "removed") DO NOTHING`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("insertSQL missing %q:\n%s", want, got)
		}
	}
}

func TestInsertSQL_PlaceholderCount(t *testing.T) {
	for _, tbl := range schema.Tables {
		got := insertSQL(storage.TableWrite{Table: tbl})
		if n := strings.Count(got, "$"); n != len(tbl.Columns) {
			t.Fatalf("%s: %d placeholders, want %d", tbl.Name, n, len(tbl.Columns))
		}
	}
}

func TestMapType(t *testing.T) {
	cases := []struct {
		typ  schema.SemanticType
		want string
	}{
		{schema.Bool, "BOOLEAN"},
		{schema.Integer, "BIGINT"},
		{schema.Text, "TEXT"},
		{schema.IntList, "BIGINT[]"},
		{schema.TextList, "TEXT[]"},
		{schema.Timestamp, "TIMESTAMPTZ"},
	}
	for _, tc := range cases {
		if got := pgddl.MapType(tc.typ); got != tc.want {
			t.Fatalf("MapType(%s) = %q, want %q", tc.typ, got, tc.want)
		}
	}
}

func TestBuildCreateTableSQL_Reports(t *testing.T) {
	got := pgddl.BuildCreateTableSQL(schema.Reports)
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "reports"`,
		`"bug_id" BIGINT`,
		`"cc_id" BIGINT[]`,
		`"creation_time" TIMESTAMPTZ`,
		`"is_open" BOOLEAN`,
		`PRIMARY KEY ("bug_id")`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("DDL missing %q:\n%s", want, got)
		}
	}
}
