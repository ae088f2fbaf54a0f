package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"

	"bugingest/internal/bugzilla"
	"bugingest/internal/schema"
	"bugingest/internal/storage"
	sqlddl "bugingest/internal/storage/sqlite/ddl"
)

// openTestRepo opens an in-memory database with the full destination schema.
func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, closeFn, err := NewRepository(context.Background(), Config{DSN: ":memory:"})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(closeFn)

	for _, tbl := range schema.Tables {
		if err := repo.Exec(context.Background(), sqlddl.BuildCreateTableSQL(tbl)); err != nil {
			t.Fatalf("create %s: %v", tbl.Name, err)
		}
	}
	return repo
}

func countRows(t *testing.T, repo *Repository, table string) int {
	t.Helper()
	var n int
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM "` + table + `"`).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// testPlan builds a full write plan for one record where the assignee and the
// creator are the same user.
func testPlan(t *testing.T) *storage.Plan {
	t.Helper()
	when := time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)

	report := map[string]any{
		"bug_id":         int64(42),
		"assigned_to_id": int64(7),
		"creator_id":     int64(7),
		"summary":        "crash on startup",
	}
	if err := schema.ImputeReport(report); err != nil {
		t.Fatalf("ImputeReport: %v", err)
	}

	rows := &bugzilla.RecordRows{
		BugID: 42,
		Users: []bugzilla.User{
			{ID: 7, Email: "dev@example.org", Name: "dev"},
			{ID: 7, Email: "dev@example.org", Name: "dev"}, // assignee and creator
		},
		Report: report,
		Comments: []bugzilla.Comment{
			{ID: 100, BugID: 42, Creator: "dev@example.org", CreationTime: &when, Time: &when, Text: "x"},
		},
		Changes: []bugzilla.Change{
			{When: &when, Who: "dev@example.org", FieldName: "status", Added: "NEW", Removed: "", BugID: 42},
			{When: &when, Who: "dev@example.org", FieldName: "cc", Added: "a@example.org", Removed: "", BugID: 42},
		},
		Flags: []bugzilla.Flag{
			{ID: 5, Name: "needinfo", TypeID: 4, Status: "?", BugID: 42, CreationDate: &when, ModificationDate: &when},
		},
		CustomFields: []bugzilla.CustomField{
			{BugID: 42, FieldName: "cf_crash_signature", Value: "[@ main]"},
			{BugID: 42, FieldName: "cf_rank", Value: float64(3)},
		},
	}

	plan, err := storage.BuildPlan(rows)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	return plan
}

/*
TestWriteRecord_Idempotence writes the same record twice and verifies every
table holds the same row counts afterwards, including the duplicated user
reference collapsing to a single row.
*/
func TestWriteRecord_Idempotence(t *testing.T) {
	repo := openTestRepo(t)
	plan := testPlan(t)

	for i := 0; i < 2; i++ {
		if err := repo.WriteRecord(context.Background(), plan); err != nil {
			t.Fatalf("WriteRecord pass %d: %v", i+1, err)
		}
	}

	counts := map[string]int{
		schema.TableUsers:        1,
		schema.TableReports:      1,
		schema.TableComments:     1,
		schema.TableChanges:      2,
		schema.TableFlags:        1,
		schema.TableCustomFields: 2,
	}
	for table, want := range counts {
		if got := countRows(t, repo, table); got != want {
			t.Fatalf("%s rows = %d, want %d", table, got, want)
		}
	}
}

func TestWriteRecord_SharedUserResolves(t *testing.T) {
	repo := openTestRepo(t)
	if err := repo.WriteRecord(context.Background(), testPlan(t)); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	var assignee, creator int64
	err := repo.db.QueryRow(`SELECT assigned_to_id, creator_id FROM reports WHERE bug_id = 42`).
		Scan(&assignee, &creator)
	if err != nil {
		t.Fatalf("query report: %v", err)
	}
	if assignee != 7 || creator != 7 {
		t.Fatalf("assignee/creator = %d/%d, want 7/7", assignee, creator)
	}

	var email string
	if err := repo.db.QueryRow(`SELECT email FROM users WHERE id = 7`).Scan(&email); err != nil {
		t.Fatalf("query user: %v", err)
	}
	if email != "dev@example.org" {
		t.Fatalf("user email = %q", email)
	}
}

func TestWriteRecord_ListAndTimestampEncoding(t *testing.T) {
	repo := openTestRepo(t)
	plan := testPlan(t)
	// cc_id default is an empty list; set a real one through the report row.
	for _, w := range plan.Writes {
		if w.Table.Name != schema.TableReports {
			continue
		}
		for i, c := range w.Table.Columns {
			if c.Name == "cc_id" {
				w.Rows[0][i] = []int64{21, 22}
			}
		}
	}
	if err := repo.WriteRecord(context.Background(), plan); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	var cc string
	if err := repo.db.QueryRow(`SELECT cc_id FROM reports WHERE bug_id = 42`).Scan(&cc); err != nil {
		t.Fatalf("query cc_id: %v", err)
	}
	if cc != "[21,22]" {
		t.Fatalf("cc_id = %q, want JSON array text", cc)
	}

	var when string
	if err := repo.db.QueryRow(`SELECT "when" FROM changes_history LIMIT 1`).Scan(&when); err != nil {
		t.Fatalf("query when: %v", err)
	}
	if when != "2021-03-01T09:00:00Z" {
		t.Fatalf("when = %q, want RFC 3339 UTC", when)
	}
}

func TestWriteRecord_NullTimestamp(t *testing.T) {
	repo := openTestRepo(t)
	if err := repo.WriteRecord(context.Background(), testPlan(t)); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	// cf_last_resolved was imputed to a NULL timestamp.
	var resolved any
	if err := repo.db.QueryRow(`SELECT cf_last_resolved FROM reports WHERE bug_id = 42`).Scan(&resolved); err != nil {
		t.Fatalf("query cf_last_resolved: %v", err)
	}
	if resolved != nil {
		t.Fatalf("cf_last_resolved = %v, want NULL", resolved)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatal("NewRepository succeeded with an empty DSN")
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	got := sqlddl.BuildCreateTableSQL(schema.Users)
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "users"`,
		`"id" INTEGER`,
		`"email" TEXT`,
		`PRIMARY KEY ("id")`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("DDL missing %q:\n%s", want, got)
		}
	}
}
