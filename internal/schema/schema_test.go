package schema

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

/*
TestImputeReport_Completeness verifies that an empty report row gets every
schema column filled with its semantic-type default, and that pre-populated
columns are left alone.
*/
func TestImputeReport_Completeness(t *testing.T) {
	row := map[string]any{
		"summary": "kept as-is",
		"votes":   float64(3), // JSON number, should coerce to int64
	}

	if err := ImputeReport(row); err != nil {
		t.Fatalf("ImputeReport: %v", err)
	}
	if len(row) != len(ReportColumns) {
		t.Fatalf("row has %d columns, want %d", len(row), len(ReportColumns))
	}

	for col, typ := range ReportColumns {
		v, ok := row[col]
		if !ok {
			t.Fatalf("column %q not imputed", col)
		}
		switch col {
		case "summary":
			if v != "kept as-is" {
				t.Fatalf("summary = %v, want preserved value", v)
			}
		case "votes":
			if v != int64(3) {
				t.Fatalf("votes = %v (%T), want int64(3)", v, v)
			}
		default:
			def, err := DefaultFor(typ)
			if err != nil {
				t.Fatalf("DefaultFor(%s): %v", typ, err)
			}
			if !reflect.DeepEqual(v, def) {
				t.Fatalf("column %q = %#v, want default %#v", col, v, def)
			}
		}
	}
}

func TestImputeReport_PresentNilStaysNull(t *testing.T) {
	row := map[string]any{
		"qa_contact_id": nil,
		"mentors_id":    nil,
	}
	if err := ImputeReport(row); err != nil {
		t.Fatalf("ImputeReport: %v", err)
	}
	if row["qa_contact_id"] != nil {
		t.Fatalf("qa_contact_id = %v, want nil", row["qa_contact_id"])
	}
	if row["mentors_id"] != nil {
		t.Fatalf("mentors_id = %v, want nil", row["mentors_id"])
	}
	// An absent integer column still gets its default.
	if row["dupe_of"] != int64(0) {
		t.Fatalf("dupe_of = %v, want 0", row["dupe_of"])
	}
}

func TestDefaultFor_AllTypes(t *testing.T) {
	cases := []struct {
		typ  SemanticType
		want any
	}{
		{Bool, false},
		{Integer, int64(0)},
		{Text, ""},
		{IntList, []int64{}},
		{TextList, []string{}},
		{Timestamp, (*time.Time)(nil)},
	}
	for _, tc := range cases {
		got, err := DefaultFor(tc.typ)
		if err != nil {
			t.Fatalf("DefaultFor(%s): %v", tc.typ, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("DefaultFor(%s) = %#v, want %#v", tc.typ, got, tc.want)
		}
	}
}

func TestImputeWith_UnmappedTypeIsError(t *testing.T) {
	cols := map[string]SemanticType{"bogus": SemanticType(99)}
	err := imputeWith(map[string]any{}, cols)
	if !errors.Is(err, ErrUnmappedType) {
		t.Fatalf("err = %v, want ErrUnmappedType", err)
	}
}

func TestCoerceValue(t *testing.T) {
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		typ  SemanticType
		in   any
		want any
	}{
		{"bool passthrough", Bool, true, true},
		{"json number to int", Integer, float64(42), int64(42)},
		{"int64 passthrough", Integer, int64(7), int64(7)},
		{"text passthrough", Text, "x", "x"},
		{"json list to ints", IntList, []any{float64(1), float64(2)}, []int64{1, 2}},
		{"int list passthrough", IntList, []int64{3}, []int64{3}},
		{"json list to strings", TextList, []any{"a", "b"}, []string{"a", "b"}},
		{"time pointer passthrough", Timestamp, &now, &now},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CoerceValue(tc.typ, tc.in)
			if err != nil {
				t.Fatalf("CoerceValue: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("CoerceValue(%s, %v) = %#v, want %#v", tc.typ, tc.in, got, tc.want)
			}
		})
	}
}

func TestCoerceValue_Rejects(t *testing.T) {
	cases := []struct {
		name string
		typ  SemanticType
		in   any
	}{
		{"string as bool", Bool, "true"},
		{"object as integer", Integer, map[string]any{}},
		{"mixed int list", IntList, []any{float64(1), "x"}},
		{"mixed text list", TextList, []any{"a", float64(1)}},
		{"string as timestamp", Timestamp, "2021-06-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := CoerceValue(tc.typ, tc.in); err == nil {
				t.Fatalf("CoerceValue(%s, %v) succeeded, want error", tc.typ, tc.in)
			}
		})
	}
}

func TestReportTableShape(t *testing.T) {
	if len(Reports.Columns) != len(ReportColumns) {
		t.Fatalf("reports table has %d columns, want %d", len(Reports.Columns), len(ReportColumns))
	}
	if Reports.Columns[0].Name != "bug_id" {
		t.Fatalf("first column = %q, want bug_id", Reports.Columns[0].Name)
	}
	if got := Reports.PrimaryKey; len(got) != 1 || got[0] != "bug_id" {
		t.Fatalf("primary key = %v, want [bug_id]", got)
	}

	order := ReportColumnOrder()
	if len(order) != len(Reports.Columns) {
		t.Fatalf("ReportColumnOrder len = %d, want %d", len(order), len(Reports.Columns))
	}
	for i, c := range Reports.Columns {
		if order[i] != c.Name {
			t.Fatalf("order[%d] = %q, want %q", i, order[i], c.Name)
		}
	}
}

func TestTablesDependencyOrder(t *testing.T) {
	want := []string{
		TableUsers, TableReports, TableComments,
		TableChanges, TableFlags, TableCustomFields,
	}
	if len(Tables) != len(want) {
		t.Fatalf("len(Tables) = %d, want %d", len(Tables), len(want))
	}
	for i, tbl := range Tables {
		if tbl.Name != want[i] {
			t.Fatalf("Tables[%d] = %q, want %q", i, tbl.Name, want[i])
		}
		if len(tbl.PrimaryKey) == 0 {
			t.Fatalf("table %q has no primary key", tbl.Name)
		}
	}
}
