package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/frlm/core/metrics"
)

// PromSink records planning outcomes in Prometheus metrics. Planning runs are
// batch jobs, so the sink can push its registry to a Pushgateway on Flush.
type PromSink struct {
	scenarios *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	stations  *prometheus.GaugeVec
	dispensed *prometheus.GaugeVec
	failed    prometheus.Gauge
	pusher    *push.Pusher
}

// NewPromSink registers planning metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPushSink registers metrics on a dedicated registry pushed to the
// Pushgateway at url under job on every Flush.
func NewPushSink(url, job string) (*PromSink, error) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		return nil, err
	}
	if job == "" {
		job = "frlm"
	}
	s.pusher = push.New(url, job).Gatherer(reg)
	return s, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	scenarios, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "frlm_scenarios_total",
		Help: "Scenarios run, by outcome",
	}, []string{"status"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "frlm_scenario_duration_seconds",
		Help:    "Wall-clock time to plan and simulate one scenario",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"status"}))
	if err != nil {
		return nil, err
	}
	stations, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "frlm_stations",
		Help: "Stations chosen for a scenario",
	}, []string{"scenario"}))
	if err != nil {
		return nil, err
	}
	dispensed, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "frlm_dispensed_fuel",
		Help: "Fleet-wide fuel dispensed in a scenario",
	}, []string{"scenario"}))
	if err != nil {
		return nil, err
	}
	failed, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "frlm_sweep_failed_scenarios",
		Help: "Scenarios excluded from the last sweep aggregate",
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{scenarios: scenarios, duration: duration, stations: stations, dispensed: dispensed, failed: failed}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordScenario implements coremetrics.Sink.
func (s *PromSink) RecordScenario(ev coremetrics.ScenarioEvent) error {
	s.scenarios.WithLabelValues(ev.Status).Inc()
	s.duration.WithLabelValues(ev.Status).Observe(ev.Duration.Seconds())
	if ev.Status != coremetrics.StatusFailed {
		s.stations.WithLabelValues(ev.Params.String()).Set(float64(ev.Stations))
		s.dispensed.WithLabelValues(ev.Params.String()).Set(ev.DispensedFuel)
	}
	return nil
}

// RecordSweep implements coremetrics.SweepRecorder.
func (s *PromSink) RecordSweep(ev coremetrics.SweepEvent) error {
	s.failed.Set(float64(ev.Failed))
	return nil
}

// Flush pushes the registry when the sink was built with NewPushSink.
func (s *PromSink) Flush(ctx context.Context) error {
	if s.pusher == nil {
		return nil
	}
	return s.pusher.PushContext(ctx)
}
