package metrics

import (
	"context"
	"errors"
	"testing"
)

type recordSink struct {
	scenarios int
	sweeps    int
	flushed   int
	err       error
}

func (r *recordSink) RecordScenario(ScenarioEvent) error {
	r.scenarios++
	return r.err
}

func (r *recordSink) RecordSweep(SweepEvent) error {
	r.sweeps++
	return nil
}

func (r *recordSink) Flush(context.Context) error {
	r.flushed++
	return r.err
}

// scenarioOnly does not record sweeps nor buffer anything.
type scenarioOnly struct{ count int }

func (s *scenarioOnly) RecordScenario(ScenarioEvent) error {
	s.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &scenarioOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordScenario(ScenarioEvent{}); err != nil {
		t.Fatalf("record scenario: %v", err)
	}
	if err := m.RecordSweep(SweepEvent{}); err != nil {
		t.Fatalf("record sweep: %v", err)
	}
	if err := m.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if s1.scenarios != 1 || s2.count != 1 {
		t.Fatalf("scenario not forwarded")
	}
	if s1.sweeps != 1 || s1.flushed != 1 {
		t.Fatalf("sweep or flush not forwarded: %+v", s1)
	}
}

func TestMultiSink_Errors(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordSink{err: boom}
	after := &recordSink{}
	m := NewMultiSink(failing, after)

	if err := m.RecordScenario(ScenarioEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if after.scenarios != 0 {
		t.Fatalf("sinks after a failure must not be called")
	}
	// Flush reaches every sink even when one fails.
	if err := m.Flush(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected joined boom, got %v", err)
	}
	if after.flushed != 1 {
		t.Fatalf("flush skipped a sink")
	}
}
