// Package scenario runs the planning pipeline for one parameter combination
// and sweeps many combinations, aggregating per-station and fleet-wide fuel
// statistics.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/frlm/core/coverage"
	"github.com/kilianp07/frlm/core/location"
	"github.com/kilianp07/frlm/core/logger"
	"github.com/kilianp07/frlm/core/metrics"
	"github.com/kilianp07/frlm/core/model"
	"github.com/kilianp07/frlm/core/monitoring"
	"github.com/kilianp07/frlm/core/network"
	"github.com/kilianp07/frlm/core/simulate"
	"github.com/kilianp07/frlm/core/solver"
)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger of the runner and of every pipeline stage.
func WithLogger(l logger.Logger) RunnerOption { return func(r *Runner) { r.log = l } }

// WithSink records every scenario outcome on s.
func WithSink(s metrics.Sink) RunnerOption { return func(r *Runner) { r.sink = s } }

// WithRunID tags recorded events with id.
func WithRunID(id string) RunnerOption { return func(r *Runner) { r.runID = id } }

// WithInclusiveReach lets a refuel cover nodes exactly full range away.
func WithInclusiveReach() RunnerOption { return func(r *Runner) { r.inclusive = true } }

// Runner orchestrates coverage derivation, placement and simulation over a
// shared road network.
type Runner struct {
	net       *network.Network
	solver    solver.Solver
	inclusive bool
	runID     string
	sink      metrics.Sink
	log       logger.Logger
	now       func() time.Time
}

// NewRunner returns a runner planning on net with s.
func NewRunner(net *network.Network, s solver.Solver, opts ...RunnerOption) *Runner {
	r := &Runner{net: net, solver: s, sink: metrics.NopSink{}, log: logger.Nop{}, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RunID returns the id tagging recorded events.
func (r *Runner) RunID() string { return r.runID }

// Run computes the placement and fuel statistics of one scenario. It is safe
// to call concurrently; scenarios share only the immutable network paths.
func (r *Runner) Run(ctx context.Context, p model.Params) (*Result, error) {
	start := r.now()
	res, err := r.run(ctx, p)
	if err != nil {
		err = fmt.Errorf("scenario %s: %w", p, err)
		r.log.Errorf("%v", err)
		monitoring.CaptureException(err, monitoring.ScenarioTags(r.runID, p))
		r.record(metrics.ScenarioEvent{Params: p, Status: metrics.StatusFailed, Err: err.Error(), Duration: r.now().Sub(start)})
		return nil, err
	}
	res.Duration = r.now().Sub(start)
	r.log.Infof("scenario %s: %d stations (%s), dispensed %.3f, consumed %.3f",
		p, res.StationCount(), res.Placement.Status, res.DispensedFuel, res.ConsumedFuel())
	r.record(metrics.ScenarioEvent{
		Params:        p,
		Status:        res.Status(),
		Stations:      res.StationCount(),
		DispensedFuel: res.DispensedFuel,
		StartFuel:     res.StartFuel,
		EndFuel:       res.EndFuel,
		ConsumedFuel:  res.ConsumedFuel(),
		Duration:      res.Duration,
	})
	return res, nil
}

func (r *Runner) run(ctx context.Context, p model.Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	paths, err := r.net.Paths()
	if err != nil {
		return nil, fmt.Errorf("build paths: %w", err)
	}
	opts := []coverage.Option{coverage.WithLogger(r.log)}
	if r.inclusive {
		opts = append(opts, coverage.InclusiveReach())
	}
	analyzer, err := coverage.NewAnalyzer(p.FullRange, p.StartRange, opts...)
	if err != nil {
		return nil, err
	}
	rel := analyzer.Analyze(paths)

	placement, err := location.NewFormulator(r.solver, location.WithLogger(r.log)).
		Locate(ctx, "frlm "+p.String(), r.net.NodeIDs(), rel)
	if err != nil {
		return nil, err
	}

	sim, err := simulate.New(p.FullRange, p.StartRange, simulate.WithLogger(r.log))
	if err != nil {
		return nil, err
	}
	trace, err := sim.Run(placement.Stations, paths)
	if err != nil {
		return nil, err
	}
	return aggregate(p, placement, trace, r.volume), nil
}

func (r *Runner) volume(id model.RouteID) float64 {
	route, ok := r.net.Route(id)
	if !ok {
		return 0
	}
	return route.Volume
}

func (r *Runner) record(ev metrics.ScenarioEvent) {
	ev.RunID = r.runID
	ev.Time = r.now()
	if err := r.sink.RecordScenario(ev); err != nil {
		r.log.Warnf("record scenario %s: %v", ev.Params, err)
	}
}
