package bugzilla

import "time"

// xmlrpcLayouts are the stamp formats seen inside the XML-RPC DateTime
// wrapper, in the order they are tried. Bugzilla's own wire format comes
// first.
var xmlrpcLayouts = []string{
	"20060102T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// NormalizeTime converts the variant timestamp shapes found in snapshots into
// a single canonical instant (UTC) or nil.
//
// Recognized inputs:
//   - an XML-RPC DateTime wrapper: an object whose "value" entry holds the
//     stamp string;
//   - a native time.Time (or *time.Time), passed through in UTC.
//
// Everything else (nil, bare strings, numbers, wrappers that fail to parse)
// yields nil. Absence of a parseable timestamp is a valid outcome, never an
// error.
func NormalizeTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		u := t.UTC()
		return &u
	case *time.Time:
		if t == nil {
			return nil
		}
		u := t.UTC()
		return &u
	case map[string]any:
		raw, ok := t["value"].(string)
		if !ok {
			return nil
		}
		for _, layout := range xmlrpcLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				u := parsed.UTC()
				return &u
			}
		}
		return nil
	}
	return nil
}
