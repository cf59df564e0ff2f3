package scenario

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/frlm/core/logger"
	"github.com/kilianp07/frlm/core/metrics"
	"github.com/kilianp07/frlm/core/model"
	"github.com/kilianp07/frlm/core/monitoring"
)

var (
	// ErrNoScenarios is returned when a sweep is started without parameters.
	ErrNoScenarios = errors.New("no scenarios to run")
	// ErrScenarioPanic marks a scenario whose run panicked.
	ErrScenarioPanic = errors.New("scenario panicked")
)

// SweepOption configures a Sweep.
type SweepOption func(*Sweep)

// Workers bounds the number of scenarios solved concurrently.
func Workers(n int) SweepOption { return func(s *Sweep) { s.workers = n } }

// WithProgress publishes a Progress event after every scenario.
func WithProgress(b *ProgressBus) SweepOption { return func(s *Sweep) { s.progress = b } }

// WithSweepLogger sets the sweep logger.
func WithSweepLogger(l logger.Logger) SweepOption { return func(s *Sweep) { s.log = l } }

// Sweep runs independent scenarios concurrently and merges their results.
type Sweep struct {
	runner   *Runner
	workers  int
	progress *ProgressBus
	log      logger.Logger
	now      func() time.Time
}

// NewSweep returns a sweep over r. Workers default to the number of CPUs.
func NewSweep(r *Runner, opts ...SweepOption) *Sweep {
	s := &Sweep{runner: r, workers: runtime.NumCPU(), log: logger.Nop{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	return s
}

// Run validates every parameter combination, then solves each one. A failing
// scenario is recorded in the report and does not affect its siblings; only
// invalid parameters abort the sweep, before any computation.
func (s *Sweep) Run(ctx context.Context, params []model.Params) (*Report, error) {
	if len(params) == 0 {
		return nil, ErrNoScenarios
	}
	for i, p := range params {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %d %s: %w", i, p, err)
		}
	}
	uniq := make([]model.Params, 0, len(params))
	seen := make(map[model.Params]struct{}, len(params))
	for _, p := range params {
		if _, dup := seen[p]; dup {
			s.log.Warnf("duplicate scenario %s ignored", p)
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}

	start := s.now()
	results := make([]*Result, len(uniq))
	errs := make([]error, len(uniq))
	var done atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	s.log.Infof("sweep %s: %d scenarios on %d workers", s.runner.RunID(), len(uniq), s.workers)
	for i, p := range uniq {
		g.Go(func() error {
			results[i], errs[i] = s.runOne(ctx, p)
			ev := Progress{RunID: s.runner.RunID(), Params: p, Done: int(done.Add(1)), Total: len(uniq), Err: errs[i]}
			if results[i] != nil {
				ev.Stations = results[i].StationCount()
			}
			if s.progress != nil {
				s.progress.Publish(ev)
			}
			return nil
		})
	}
	_ = g.Wait()

	rep := newReport(s.runner.RunID(), start, uniq, results, errs)
	rep.Duration = s.now().Sub(start)
	if len(rep.Failures) > 0 {
		s.log.Warnf("sweep %s: %d of %d scenarios failed", rep.RunID, len(rep.Failures), len(uniq))
	}
	if rec, ok := s.runner.sink.(metrics.SweepRecorder); ok {
		err := rec.RecordSweep(metrics.SweepEvent{
			RunID:     rep.RunID,
			Scenarios: len(uniq),
			Failed:    len(rep.Failures),
			Duration:  rep.Duration,
			Time:      s.now(),
		})
		if err != nil {
			s.log.Warnf("record sweep: %v", err)
		}
	}
	return rep, nil
}

// runOne runs one scenario. A panic is reported and turned into the error of
// that scenario so that siblings keep running.
func (s *Sweep) runOne(ctx context.Context, p model.Params) (res *Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			monitoring.ReportPanic(v)
			s.log.Errorf("scenario %s panicked: %v", p, v)
			res, err = nil, fmt.Errorf("scenario %s: %w: %v", p, ErrScenarioPanic, v)
		}
	}()
	return s.runner.Run(ctx, p)
}
