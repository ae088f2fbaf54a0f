package storage

import (
	"fmt"

	"bugingest/internal/bugzilla"
	"bugingest/internal/schema"
)

// TableWrite is one batched insert against a single table. Rows are aligned
// to Table.Columns; idempotence on Table.PrimaryKey is the backend's job.
type TableWrite struct {
	Table schema.Table
	Rows  [][]any
}

// Plan is the ordered set of writes for one record. The users → report →
// children order is built in here rather than relied upon at call sites:
// children reference the report's bug_id, and the report references user ids,
// so executing the slice front to back always satisfies the foreign keys.
type Plan struct {
	BugID  int64
	Writes []TableWrite
}

// BuildPlan turns one record's extracted rows into its write plan. Child
// writes with no rows are omitted entirely, so e.g. a record without flags
// performs no write against the flags table. The report row must already be
// imputed; a column missing from it is a bug upstream, not a per-record
// condition, and is reported as an error.
func BuildPlan(rows *bugzilla.RecordRows) (*Plan, error) {
	report, err := reportRow(rows.Report)
	if err != nil {
		return nil, fmt.Errorf("report row for bug %d: %w", rows.BugID, err)
	}

	p := &Plan{BugID: rows.BugID}
	add := func(t schema.Table, data [][]any) {
		if len(data) == 0 {
			return
		}
		p.Writes = append(p.Writes, TableWrite{Table: t, Rows: data})
	}

	add(schema.Users, userRows(rows.Users))
	add(schema.Reports, [][]any{report})
	add(schema.Comments, commentRows(rows.Comments))
	add(schema.Changes, changeRows(rows.Changes))
	add(schema.Flags, flagRows(rows.Flags))
	add(schema.CustomFields, customFieldRows(rows.CustomFields))
	return p, nil
}

func userRows(users []bugzilla.User) [][]any {
	out := make([][]any, 0, len(users))
	for _, u := range users {
		out = append(out, []any{u.ID, u.Email, u.Name, u.Nick, u.RealName})
	}
	return out
}

func reportRow(report map[string]any) ([]any, error) {
	cols := schema.Reports.Columns
	row := make([]any, len(cols))
	for i, c := range cols {
		v, ok := report[c.Name]
		if !ok {
			return nil, fmt.Errorf("column %q not populated", c.Name)
		}
		row[i] = v
	}
	return row, nil
}

func commentRows(comments []bugzilla.Comment) [][]any {
	out := make([][]any, 0, len(comments))
	for _, c := range comments {
		var attachment any
		if c.AttachmentID != nil {
			attachment = *c.AttachmentID
		}
		out = append(out, []any{
			c.ID, c.BugID, c.Creator, c.CreationTime, c.Time,
			c.Text, c.Count, attachment, c.IsPrivate,
		})
	}
	return out
}

func changeRows(changes []bugzilla.Change) [][]any {
	out := make([][]any, 0, len(changes))
	for _, ch := range changes {
		out = append(out, []any{ch.When, ch.Who, ch.FieldName, ch.Added, ch.Removed, ch.BugID})
	}
	return out
}

func flagRows(flags []bugzilla.Flag) [][]any {
	out := make([][]any, 0, len(flags))
	for _, f := range flags {
		out = append(out, []any{
			f.ID, f.Name, f.TypeID, f.Status, f.Setter, f.Requestee,
			f.CreationDate, f.ModificationDate, f.BugID,
		})
	}
	return out
}

func customFieldRows(fields []bugzilla.CustomField) [][]any {
	out := make([][]any, 0, len(fields))
	for _, cf := range fields {
		// The value column is text; strings are stored verbatim, any other
		// shape via the same rendering used for history values.
		v, ok := cf.Value.(string)
		if !ok {
			v = bugzilla.CoerceText(cf.Value)
		}
		out = append(out, []any{cf.BugID, cf.FieldName, v})
	}
	return out
}
