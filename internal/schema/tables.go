package schema

import "sort"

// Column describes a single column in a destination table using semantic
// types only; backends map these to SQL types when rendering DDL.
type Column struct {
	Name string
	Type SemanticType
}

// Table holds an ordered column list plus the primary-key columns that the
// idempotent-insert convention suppresses conflicts on. An empty PrimaryKey
// would mean no conflict suppression; every destination table here declares
// one so that re-ingesting a snapshot is a row-level no-op.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
}

// Destination table names, in dependency order.
const (
	TableUsers        = "users"
	TableReports      = "reports"
	TableComments     = "comments"
	TableChanges      = "changes_history"
	TableFlags        = "flags"
	TableCustomFields = "custom_fields"
)

// Users is keyed by the tracker's globally unique user id.
var Users = Table{
	Name: TableUsers,
	Columns: []Column{
		{"id", Integer},
		{"email", Text},
		{"name", Text},
		{"nick", Text},
		{"real_name", Text},
	},
	PrimaryKey: []string{"id"},
}

// Reports columns are derived from ReportColumns; see reportTable below.
var Reports = reportTable()

// Comments carries one row per snapshot comment entry.
var Comments = Table{
	Name: TableComments,
	Columns: []Column{
		{"id", Integer},
		{"bug_id", Integer},
		{"creator", Text},
		{"creation_time", Timestamp},
		{"time", Timestamp},
		{"text", Text},
		{"count", Integer},
		{"attachment_id", Integer},
		{"is_private", Bool},
	},
	PrimaryKey: []string{"id"},
}

// Changes has no natural single-column key; the composite below makes the
// idempotent-insert convention hold for flattened history rows as well.
var Changes = Table{
	Name: TableChanges,
	Columns: []Column{
		{"when", Timestamp},
		{"who", Text},
		{"field_name", Text},
		{"added", Text},
		{"removed", Text},
		{"bug_id", Integer},
	},
	PrimaryKey: []string{"bug_id", "when", "field_name", "added", "removed"},
}

// Flags carries one row per snapshot flag entry.
var Flags = Table{
	Name: TableFlags,
	Columns: []Column{
		{"id", Integer},
		{"name", Text},
		{"type_id", Integer},
		{"status", Text},
		{"setter", Text},
		{"requestee", Text},
		{"creation_date", Timestamp},
		{"modification_date", Timestamp},
		{"bug_id", Integer},
	},
	PrimaryKey: []string{"id"},
}

// CustomFields is keyed on (bug_id, cf_field_name). The upstream loader wrote
// this table without conflict suppression; the composite key restores the
// idempotence guarantee the other tables already have.
var CustomFields = Table{
	Name: TableCustomFields,
	Columns: []Column{
		{"bug_id", Integer},
		{"cf_field_name", Text},
		{"value", Text},
	},
	PrimaryKey: []string{"bug_id", "cf_field_name"},
}

// Tables lists all destination tables in dependency order: users before
// reports (reports reference user ids), reports before its children.
var Tables = []Table{Users, Reports, Comments, Changes, Flags, CustomFields}

// reportTable builds the reports table definition from ReportColumns with a
// stable column order: bug_id first, then the remaining columns sorted by
// name. The order only has to be deterministic and shared between DDL and the
// writers; it carries no other meaning.
func reportTable() Table {
	names := make([]string, 0, len(ReportColumns))
	for name := range ReportColumns {
		if name == "bug_id" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]Column, 0, len(ReportColumns))
	cols = append(cols, Column{"bug_id", ReportColumns["bug_id"]})
	for _, name := range names {
		cols = append(cols, Column{name, ReportColumns[name]})
	}
	return Table{Name: TableReports, Columns: cols, PrimaryKey: []string{"bug_id"}}
}

// ReportColumnOrder returns the reports column names in writer order.
func ReportColumnOrder() []string {
	out := make([]string, len(Reports.Columns))
	for i, c := range Reports.Columns {
		out[i] = c.Name
	}
	return out
}
