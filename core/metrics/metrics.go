package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/frlm/core/model"
)

// Scenario outcome labels.
const (
	StatusOptimal = "optimal"
	StatusLimit   = "limit"
	StatusFailed  = "failed"
)

// ScenarioEvent describes the outcome of one scenario run.
type ScenarioEvent struct {
	RunID    string
	Params   model.Params
	Status   string
	Stations int
	// Fuel quantities are fleet-wide masses.
	DispensedFuel float64
	StartFuel     float64
	EndFuel       float64
	ConsumedFuel  float64
	Duration      time.Duration
	Err           string
	Time          time.Time
}

// Sink records scenario outcomes.
type Sink interface {
	RecordScenario(ev ScenarioEvent) error
}

// SweepEvent summarises a sweep once every scenario is done.
type SweepEvent struct {
	RunID     string
	Scenarios int
	Failed    int
	Duration  time.Duration
	Time      time.Time
}

// SweepRecorder is implemented by sinks recording sweep summaries.
type SweepRecorder interface {
	RecordSweep(ev SweepEvent) error
}

// Flusher is implemented by sinks buffering data until the run ends, such as
// a push gateway client.
type Flusher interface {
	Flush(ctx context.Context) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordScenario(ScenarioEvent) error { return nil }
func (NopSink) RecordSweep(SweepEvent) error       { return nil }
func (NopSink) Flush(context.Context) error        { return nil }
