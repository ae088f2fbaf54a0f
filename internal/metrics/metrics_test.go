package metrics

import (
	"errors"
	"testing"
	"time"
)

// captureBackend records every call for assertions.
type captureBackend struct {
	counters  []capturedMetric
	durations []capturedMetric
	flushed   int
}

type capturedMetric struct {
	name   string
	value  float64
	labels Labels
}

func (c *captureBackend) IncCounter(name string, delta float64, labels Labels) {
	c.counters = append(c.counters, capturedMetric{name, delta, labels})
}

func (c *captureBackend) ObserveDuration(name string, value float64, labels Labels) {
	c.durations = append(c.durations, capturedMetric{name, value, labels})
}

func (c *captureBackend) Flush() error {
	c.flushed++
	return nil
}

func withCapture(t *testing.T) *captureBackend {
	t.Helper()
	b := &captureBackend{}
	SetBackend(b)
	t.Cleanup(func() { SetBackend(nopBackend{}) })
	return b
}

func TestRecordStep(t *testing.T) {
	b := withCapture(t)

	RecordStep("job1", "load", nil, 250*time.Millisecond)
	RecordStep("job1", "write", errors.New("boom"), time.Second)

	if len(b.counters) != 2 {
		t.Fatalf("len(counters) = %d, want 2", len(b.counters))
	}
	ok := b.counters[0]
	if ok.name != "ingest_step_total" || ok.labels["step"] != "load" || ok.labels["status"] != "success" {
		t.Fatalf("first counter = %+v", ok)
	}
	bad := b.counters[1]
	if bad.labels["status"] != "failure" || bad.labels["step"] != "write" {
		t.Fatalf("second counter = %+v", bad)
	}

	if len(b.durations) != 2 {
		t.Fatalf("len(durations) = %d, want 2", len(b.durations))
	}
	if b.durations[0].name != "ingest_step_duration_seconds" || b.durations[0].value != 0.25 {
		t.Fatalf("first duration = %+v", b.durations[0])
	}
}

func TestRecordOutcomeAndRows(t *testing.T) {
	b := withCapture(t)

	RecordOutcome("job1", "ingested")
	RecordRows("job1", "users", 5)
	RecordRows("job1", "flags", 0) // no-op

	if len(b.counters) != 2 {
		t.Fatalf("len(counters) = %d, want 2 (zero-delta rows skipped)", len(b.counters))
	}
	if b.counters[0].name != "ingest_records_total" || b.counters[0].labels["status"] != "ingested" {
		t.Fatalf("outcome counter = %+v", b.counters[0])
	}
	rows := b.counters[1]
	if rows.name != "ingest_rows_total" || rows.value != 5 || rows.labels["table"] != "users" {
		t.Fatalf("rows counter = %+v", rows)
	}
}

func TestFlushDelegates(t *testing.T) {
	b := withCapture(t)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if b.flushed != 1 {
		t.Fatalf("flushed = %d, want 1", b.flushed)
	}
}

func TestNopBackendIsDefaultSafe(t *testing.T) {
	SetBackend(nopBackend{})
	RecordStep("j", "load", nil, time.Millisecond)
	RecordOutcome("j", "ingested")
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
