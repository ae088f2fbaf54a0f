package bugzilla

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNoBugDetail is returned when a snapshot has no usable nested bug-detail
// object ("bugs" absent or empty), which means no change history or report
// identity can be extracted. Callers treat it as a record-level skip, the same
// way the loader skips fetch-error records.
var ErrNoBugDetail = errors.New("snapshot has no bug detail entry")

// User is one row destined for the users table.
type User struct {
	ID       int64
	Email    string
	Name     string
	Nick     string
	RealName string
}

// Comment is one row destined for the comments table.
type Comment struct {
	ID           int64
	BugID        int64
	Creator      string
	CreationTime *time.Time
	Time         *time.Time
	Text         string
	Count        int64
	AttachmentID *int64
	IsPrivate    bool
}

// Change is one flattened change-history row: one (history entry, field
// change) pair sharing the entry's timestamp and actor.
type Change struct {
	When      *time.Time
	Who       string
	FieldName string
	Added     string
	Removed   string
	BugID     int64
}

// Flag is one row destined for the flags table.
type Flag struct {
	ID               int64
	Name             string
	TypeID           int64
	Status           string
	Setter           string
	Requestee        string
	CreationDate     *time.Time
	ModificationDate *time.Time
	BugID            int64
}

// CustomField is one (field name, raw value) pair from a cf_-prefixed
// snapshot key. Value keeps whatever the snapshot held; no coercion.
type CustomField struct {
	BugID     int64
	FieldName string
	Value     any
}

// RecordRows is the full set of normalized rows extracted from one snapshot.
// Report is keyed by target column name and may be missing columns; the
// imputation step fills those before writing.
type RecordRows struct {
	BugID        int64
	Users        []User
	Report       map[string]any
	Comments     []Comment
	Changes      []Change
	Flags        []Flag
	CustomFields []CustomField
}

// Snapshot fields holding user sub-objects. cc_detail is the only one that
// carries a list; the rest hold exactly one object.
const (
	fieldAssignedTo = "assigned_to_detail"
	fieldCC         = "cc_detail"
	fieldQAContact  = "qa_contact_detail"
	fieldCreator    = "creator_detail"
	fieldMentors    = "mentors_detail"
)

// Report-level fields carrying timestamps that must be normalized.
var reportTimeFields = []string{"creation_time", "last_change_time", "cf_last_resolved"}

// Extractor splits one Record into the row sets for every target table. The
// report column list comes from the destination schema; extraction itself
// does not need to know column types.
type Extractor struct {
	ReportColumns []string
}

// Extract produces the rows for one snapshot.
//
// It returns ErrNoBugDetail when the nested bug-detail list is absent or
// empty, and *IntegrityError when a reference Bugzilla always populates
// (id, assignee, creator, the detail's history key) is missing. Duplicate
// user references across fields
// are passed through verbatim; the writer's primary-key conflict suppression
// collapses them.
func (e Extractor) Extract(rec Record) (*RecordRows, error) {
	bugID, err := rec.ID()
	if err != nil {
		return nil, err
	}

	detail, err := bugDetail(rec)
	if err != nil {
		return nil, err
	}

	rows := &RecordRows{BugID: bugID}
	rows.Users = extractUsers(rec)

	if rows.Report, err = e.extractReport(rec, bugID); err != nil {
		return nil, err
	}
	rows.Comments = extractComments(rec, bugID)
	if rows.Changes, err = extractChanges(detail, bugID); err != nil {
		return nil, err
	}
	rows.Flags = extractFlags(rec, bugID)
	rows.CustomFields = extractCustomFields(rec, bugID)
	return rows, nil
}

// bugDetail returns the first entry of the snapshot's nested "bugs" list.
func bugDetail(rec Record) (Record, error) {
	bugs, ok := rec.Maps(fieldBugs)
	if !ok || len(bugs) == 0 {
		return nil, ErrNoBugDetail
	}
	return bugs[0], nil
}

func extractUsers(rec Record) []User {
	var out []User
	for _, field := range []string{fieldAssignedTo, fieldCC, fieldQAContact, fieldCreator} {
		if field == fieldCC {
			ccs, ok := rec.Maps(field)
			if !ok {
				continue
			}
			for _, cc := range ccs {
				if u, ok := userFrom(cc); ok {
					out = append(out, u)
				}
			}
			continue
		}
		m, ok := rec.Map(field)
		if !ok {
			continue
		}
		if u, ok := userFrom(m); ok {
			out = append(out, u)
		}
	}
	return out
}

func userFrom(m Record) (User, bool) {
	id, ok := m.Int64("id")
	if !ok {
		return User{}, false
	}
	u := User{ID: id}
	u.Email, _ = m.Str("email")
	u.Name, _ = m.Str("name")
	u.Nick, _ = m.Str("nick")
	u.RealName, _ = m.Str("real_name")
	return u, true
}

// extractReport builds the partially-populated report row: schema columns
// copied from the snapshot when present, then the relational columns derived
// from the user sub-objects. Report timestamps are normalized here so the
// imputation step only ever sees canonical instants for timestamp columns.
func (e Extractor) extractReport(rec Record, bugID int64) (map[string]any, error) {
	row := make(map[string]any, len(e.ReportColumns))
	for _, col := range e.ReportColumns {
		if v, ok := rec[col]; ok {
			row[col] = v
		}
	}
	for _, field := range reportTimeFields {
		if _, ok := row[field]; ok {
			row[field] = NormalizeTime(rec[field])
		}
	}

	row["bug_id"] = bugID

	assignee, ok := rec.Map(fieldAssignedTo)
	if !ok {
		return nil, &IntegrityError{Field: fieldAssignedTo}
	}
	assigneeID, ok := assignee.Int64("id")
	if !ok {
		return nil, &IntegrityError{Field: fieldAssignedTo + ".id"}
	}
	row["assigned_to_id"] = assigneeID

	creator, ok := rec.Map(fieldCreator)
	if !ok {
		return nil, &IntegrityError{Field: fieldCreator}
	}
	creatorID, ok := creator.Int64("id")
	if !ok {
		return nil, &IntegrityError{Field: fieldCreator + ".id"}
	}
	row["creator_id"] = creatorID

	// QA contact and mentors are optional; absence reads as NULL.
	row["qa_contact_id"] = nil
	if qa, ok := rec.Map(fieldQAContact); ok {
		if id, ok := qa.Int64("id"); ok {
			row["qa_contact_id"] = id
		}
	}

	ccIDs := []int64{}
	if ccs, ok := rec.Maps(fieldCC); ok {
		for _, cc := range ccs {
			if id, ok := cc.Int64("id"); ok {
				ccIDs = append(ccIDs, id)
			}
		}
	}
	row["cc_id"] = ccIDs

	row["mentors_id"] = nil
	if mentors, ok := rec.Maps(fieldMentors); ok {
		ids := make([]int64, 0, len(mentors))
		for _, m := range mentors {
			if id, ok := m.Int64("id"); ok {
				ids = append(ids, id)
			}
		}
		row["mentors_id"] = ids
	}

	return row, nil
}

func extractComments(rec Record, bugID int64) []Comment {
	entries, ok := rec.Maps("comments")
	if !ok {
		return nil
	}
	out := make([]Comment, 0, len(entries))
	for _, entry := range entries {
		c := Comment{BugID: bugID}
		c.ID, _ = entry.Int64("id")
		c.Creator, _ = entry.Str("creator")
		c.CreationTime = NormalizeTime(entry["creation_time"])
		c.Time = NormalizeTime(entry["time"])
		c.Text, _ = entry.Str("text")
		c.Count, _ = entry.Int64("count")
		if id, ok := entry.Int64("attachment_id"); ok {
			c.AttachmentID = &id
		}
		c.IsPrivate, _ = entry.Bool("is_private")
		out = append(out, c)
	}
	return out
}

// extractChanges flattens the two-level history structure: one output row per
// (history entry, change-within-entry) pair. A bug-detail object always
// carries the history key on a complete fetch, so its absence is an integrity
// error; a present-but-empty list is simply a bug with no recorded changes.
func extractChanges(detail Record, bugID int64) ([]Change, error) {
	entries, ok := detail.Maps(fieldHistory)
	if !ok {
		return nil, &IntegrityError{Field: fieldHistory}
	}
	var out []Change
	for _, entry := range entries {
		when := NormalizeTime(entry["when"])
		who, _ := entry.Str("who")
		changes, ok := entry.Maps("changes")
		if !ok {
			continue
		}
		for _, ch := range changes {
			name, _ := ch.Str("field_name")
			out = append(out, Change{
				When:      when,
				Who:       who,
				FieldName: name,
				Added:     CoerceText(ch["added"]),
				Removed:   CoerceText(ch["removed"]),
				BugID:     bugID,
			})
		}
	}
	return out, nil
}

func extractFlags(rec Record, bugID int64) []Flag {
	entries, ok := rec.Maps("flags")
	if !ok {
		return nil
	}
	out := make([]Flag, 0, len(entries))
	for _, entry := range entries {
		f := Flag{BugID: bugID}
		f.ID, _ = entry.Int64("id")
		f.Name, _ = entry.Str("name")
		f.TypeID, _ = entry.Int64("type_id")
		f.Status, _ = entry.Str("status")
		f.Setter, _ = entry.Str("setter")
		f.Requestee, _ = entry.Str("requestee")
		f.CreationDate = NormalizeTime(entry["creation_date"])
		f.ModificationDate = NormalizeTime(entry["modification_date"])
		out = append(out, f)
	}
	return out
}

func extractCustomFields(rec Record, bugID int64) []CustomField {
	var out []CustomField
	for key, val := range rec {
		if !strings.HasPrefix(key, CustomFieldPrefix) {
			continue
		}
		out = append(out, CustomField{BugID: bugID, FieldName: key, Value: val})
	}
	// Map iteration order is random; keep row order stable across runs.
	sort.Slice(out, func(i, j int) bool { return out[i].FieldName < out[j].FieldName })
	return out
}

// CoerceText renders a snapshot value as text. History added/removed values are
// heterogeneous upstream: plain strings, lists of strings, or structured
// values. Strings pass through, lists join with ", ", structured values are
// JSON-rendered, nil reads as the empty string.
func CoerceText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, CoerceText(e))
		}
		return strings.Join(parts, ", ")
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
