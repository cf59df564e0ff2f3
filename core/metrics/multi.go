package metrics

import (
	"context"
	"errors"
)

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordScenario forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordScenario(ev ScenarioEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordScenario(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSweep forwards sweep summaries to sinks supporting them.
func (m *MultiSink) RecordSweep(ev SweepEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SweepRecorder); ok {
			if err := rec.RecordSweep(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every buffering sink and joins their errors.
func (m *MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
