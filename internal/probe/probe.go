// Package probe samples snapshot blobs from a directory and summarizes the
// fields they carry: how often each key appears, what JSON shapes were seen
// for it, and whether it maps to a reports-table column. The summary helps
// decide when the destination schema needs a new column for a field the
// tracker started emitting.
package probe

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"bugingest/internal/bugzilla"
	"bugingest/internal/schema"
	"bugingest/internal/snapshot"
)

// Options control sampling and output.
type Options struct {
	// Dir is the snapshot directory to sample.
	Dir string
	// MaxFiles bounds how many blobs are decoded; 0 samples everything.
	MaxFiles int
	// OutputJSON toggles JSON output; otherwise a text summary is rendered.
	OutputJSON bool
}

// FieldStat describes one top-level snapshot key across the sample.
type FieldStat struct {
	Name string `json:"name"`
	// Count is the number of sampled records carrying the key.
	Count int `json:"count"`
	// Shapes lists the JSON shapes seen for the key ("string", "number",
	// "bool", "object", "list", "null"), sorted.
	Shapes []string `json:"shapes"`
	// Custom marks keys with the custom-field prefix.
	Custom bool `json:"custom,omitempty"`
	// Mapped marks keys that already are reports-table columns.
	Mapped bool `json:"mapped,omitempty"`
}

// Report is the result of one probe run.
type Report struct {
	Dir     string      `json:"dir"`
	Sampled int         `json:"sampled"`
	Skipped int         `json:"skipped"` // fetch errors, duplicates, corrupt blobs
	Fields  []FieldStat `json:"fields"`
}

// listFn is a seam so tests can run the scanner without a real directory.
var listFn = snapshot.List

// Scan samples up to opts.MaxFiles blobs under opts.Dir and aggregates
// per-key statistics. Unreadable and error-flagged blobs count as skipped;
// they never abort the probe.
func Scan(opts Options) (*Report, error) {
	paths, err := listFn(opts.Dir)
	if err != nil {
		return nil, err
	}
	if opts.MaxFiles > 0 && len(paths) > opts.MaxFiles {
		paths = paths[:opts.MaxFiles]
	}

	rep := &Report{Dir: opts.Dir}
	counts := map[string]int{}
	shapes := map[string]map[string]bool{}

	loader := snapshot.NewLoader()
	for _, path := range paths {
		rec, _, err := loader.Load(path)
		if err != nil {
			rep.Skipped++
			continue
		}
		rep.Sampled++
		for key, val := range rec {
			counts[key]++
			if shapes[key] == nil {
				shapes[key] = map[string]bool{}
			}
			shapes[key][shapeOf(val)] = true
		}
	}

	for key, n := range counts {
		var ss []string
		for s := range shapes[key] {
			ss = append(ss, s)
		}
		sort.Strings(ss)
		_, mapped := schema.ReportColumns[key]
		rep.Fields = append(rep.Fields, FieldStat{
			Name:   key,
			Count:  n,
			Shapes: ss,
			Custom: strings.HasPrefix(key, bugzilla.CustomFieldPrefix),
			Mapped: mapped,
		})
	}
	sort.Slice(rep.Fields, func(i, j int) bool { return rep.Fields[i].Name < rep.Fields[j].Name })
	return rep, nil
}

// Render returns the report in the format selected by opts.
func Render(rep *Report, opts Options) ([]byte, error) {
	if opts.OutputJSON {
		return json.MarshalIndent(rep, "", "  ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "sampled %d snapshots under %s (%d skipped)\n", rep.Sampled, rep.Dir, rep.Skipped)
	fmt.Fprintf(&b, "%-28s %6s  %-22s %s\n", "field", "count", "shapes", "status")
	for _, f := range rep.Fields {
		status := "unmapped"
		switch {
		case f.Mapped:
			status = "column"
		case f.Custom:
			status = "custom"
		}
		fmt.Fprintf(&b, "%-28s %6d  %-22s %s\n", f.Name, f.Count, strings.Join(f.Shapes, ","), status)
	}
	return []byte(b.String()), nil
}

// shapeOf names the JSON shape of a decoded value.
func shapeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	}
	return fmt.Sprintf("%T", v)
}
