package metrics_test

import (
	"testing"

	"github.com/kilianp07/frlm/core/factory"
	metrics "github.com/kilianp07/frlm/core/metrics"
	_ "github.com/kilianp07/frlm/infra/metrics"
)

type stubSink struct{}

func (stubSink) RecordScenario(metrics.ScenarioEvent) error { return nil }

func init() {
	_ = metrics.RegisterSink("stub", func(map[string]any) (metrics.Sink, error) { return stubSink{}, nil })
}

func TestSinkTypes(t *testing.T) {
	got := metrics.SinkTypes()
	for _, want := range []string{"influx", "nop", "prometheus", "stub"} {
		found := false
		for _, n := range got {
			found = found || n == want
		}
		if !found {
			t.Fatalf("sink type %s not registered: %v", want, got)
		}
	}
}

/*
TestMetricsFactory_Builtins verifies registration via infra/metrics/factory.go.

	Cases:
	- instantiate builtin nop sink
	- unknown type returns error
*/
func TestMetricsFactory_Builtins(t *testing.T) {
	s, err := metrics.NewSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("create nop: %v", err)
	}
	if s == nil {
		t.Fatal("expected sink instance")
	}
	if _, err := metrics.NewSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

/*
TestNewSink_Multi validates NewSink behavior with zero, one, and multiple configs.
Cases:
  - no config -> NopSink
  - only nop configs -> NopSink
  - two real sinks -> MultiSink with two sub-sinks
*/
func TestNewSink_Multi(t *testing.T) {
	s, err := metrics.NewSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	s, err = metrics.NewSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	if err != nil {
		t.Fatalf("create nops: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink for nop entries, got %T", s)
	}

	cfgs := []factory.ModuleConfig{{Type: "stub"}, {Type: "nop"}, {Type: "stub"}}
	s, err = metrics.NewSink(cfgs)
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
}
