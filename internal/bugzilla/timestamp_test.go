package bugzilla

import (
	"testing"
	"time"
)

/*
TestNormalizeTime_Equivalence verifies that the recognized timestamp
representations of the same instant normalize to the same canonical value,
and that unrecognized shapes yield nil.
*/
func TestNormalizeTime_Equivalence(t *testing.T) {
	want := time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC)

	cases := []struct {
		name string
		in   any
		want *time.Time
	}{
		{"xmlrpc wrapper", map[string]any{"value": "20210314T09:26:53"}, &want},
		{"rfc3339 wrapper", map[string]any{"value": "2021-03-14T09:26:53Z"}, &want},
		{"native time", want, &want},
		{"native pointer", &want, &want},
		{"nil", nil, nil},
		{"bare string", "2021-03-14T09:26:53Z", nil},
		{"number", float64(1615714013), nil},
		{"wrapper without value", map[string]any{"other": "x"}, nil},
		{"wrapper with garbage", map[string]any{"value": "not a stamp"}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeTime(tc.in)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("NormalizeTime(%v) = %v, want nil", tc.in, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("NormalizeTime(%v) = nil, want %v", tc.in, *tc.want)
			}
			if !got.Equal(*tc.want) {
				t.Fatalf("NormalizeTime(%v) = %v, want %v", tc.in, *got, *tc.want)
			}
		})
	}
}

func TestNormalizeTime_NonUTCInputCanonicalized(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2021, 3, 14, 10, 26, 53, 0, loc)

	got := NormalizeTime(in)
	if got == nil {
		t.Fatal("NormalizeTime returned nil for a native time")
	}
	if got.Location() != time.UTC {
		t.Fatalf("location = %v, want UTC", got.Location())
	}
	want := time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("instant = %v, want %v", got, want)
	}
}
