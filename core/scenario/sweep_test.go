package scenario

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/frlm/core/metrics"
	"github.com/kilianp07/frlm/core/model"
	"github.com/kilianp07/frlm/core/monitoring"
	"github.com/kilianp07/frlm/core/solver"
)

var (
	strict   = model.Params{FullRange: 300, StartRange: 150, FuelEconomy: 10}
	roomy    = model.Params{FullRange: 500, StartRange: 400, FuelEconomy: 10}
	tooShort = model.Params{FullRange: 120, StartRange: 100, FuelEconomy: 10}
)

func TestSweep_IsolatesFailures(t *testing.T) {
	sink := &recordingSink{}
	bus := NewProgressBus()
	events := bus.Subscribe(10)
	r := newRunner(lineNetwork(t), WithSink(sink), WithRunID("sweep-1"))

	rep, err := NewSweep(r, Workers(2), WithProgress(bus)).Run(context.Background(), []model.Params{strict, tooShort, roomy, strict})
	require.NoError(t, err)
	bus.Close()

	require.Len(t, rep.Failures, 1)
	assert.Equal(t, tooShort, rep.Failures[0].Params)
	require.Len(t, rep.Results(), 2)
	assert.Equal(t, strict, rep.Results()[0].Params)
	assert.Equal(t, roomy, rep.Results()[1].Params)

	res, ok := rep.Result(strict)
	require.True(t, ok)
	assert.Equal(t, 2, res.StationCount())
	_, ok = rep.Result(tooShort)
	assert.False(t, ok)

	var got []Progress
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 3)
	for _, ev := range got {
		assert.Equal(t, 3, ev.Total)
		assert.Equal(t, "sweep-1", ev.RunID)
	}

	require.Len(t, sink.sweeps, 1)
	assert.Equal(t, 3, sink.sweeps[0].Scenarios)
	assert.Equal(t, 1, sink.sweeps[0].Failed)
	assert.Len(t, sink.scenarios, 3)
}

func TestSweep_InvalidParamsAbortBeforeRunning(t *testing.T) {
	sink := &recordingSink{}
	r := newRunner(lineNetwork(t), WithSink(sink))
	_, err := NewSweep(r).Run(context.Background(), []model.Params{strict, {FullRange: 300, StartRange: 400, FuelEconomy: 1}})
	assert.ErrorIs(t, err, model.ErrInvalidParam)
	assert.Empty(t, sink.scenarios)

	_, err = NewSweep(r).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoScenarios)
}

func TestSweep_MatchesSequentialRuns(t *testing.T) {
	params := []model.Params{strict, roomy, {FullRange: 300, StartRange: 0, FuelEconomy: 12}, {FullRange: 260, StartRange: 200, FuelEconomy: 8}}
	r := newRunner(lineNetwork(t))
	rep, err := NewSweep(r, Workers(4)).Run(context.Background(), params)
	require.NoError(t, err)
	require.Empty(t, rep.Failures)
	for _, p := range params {
		want, err := r.Run(context.Background(), p)
		require.NoError(t, err)
		got, ok := rep.Result(p)
		require.True(t, ok)
		assert.Equal(t, want.DispensedByStation, got.DispensedByStation, "%s", p)
		assert.InDelta(t, want.ConsumedFuel(), got.ConsumedFuel(), 1e-9)
	}
}

func TestReport_Views(t *testing.T) {
	rep, err := NewSweep(newRunner(lineNetwork(t), WithRunID("views")), Workers(1)).
		Run(context.Background(), []model.Params{strict, tooShort, roomy})
	require.NoError(t, err)

	rows := rep.ByScenario()
	require.Len(t, rows, 2)
	assert.Equal(t, ScenarioStats{
		Params:        strict,
		Status:        metrics.StatusOptimal,
		Stations:      2,
		DispensedFuel: 40,
		StartFuel:     15,
		EndFuel:       15,
		ConsumedFuel:  40,
	}, rows[0])
	assert.Equal(t, 0, rows[1].Stations)

	stations := rep.ByStation()
	require.Len(t, stations, 2)
	assert.Equal(t, StationStats{Params: strict, Node: 0, DispensedFuel: 15}, stations[0])
	assert.Equal(t, StationStats{Params: strict, Node: 2, DispensedFuel: 25}, stations[1])

	recs := rep.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "views", recs[0].RunID)
	assert.Equal(t, []model.NodeID{0, 2}, recs[0].Stations)
	assert.Equal(t, metrics.StatusFailed, recs[2].Status)
	assert.Equal(t, tooShort, recs[2].Params)
	assert.NotEmpty(t, recs[2].Error)
}

func TestQuery_Match(t *testing.T) {
	rec := Record{RunID: "a", Status: "optimal", Params: strict}
	assert.True(t, Query{}.Match(rec))
	assert.True(t, Query{RunID: "a", Status: "optimal", FullRange: 300}.Match(rec))
	assert.False(t, Query{RunID: "b"}.Match(rec))
	assert.False(t, Query{FullRange: 500}.Match(rec))
}

func TestProgressBus(t *testing.T) {
	bus := NewProgressBus()
	fast := bus.Subscribe(4)
	slow := bus.Subscribe(1)
	for i := 1; i <= 3; i++ {
		bus.Publish(Progress{Done: i, Total: 3})
	}
	bus.Close()
	bus.Publish(Progress{Done: 4})

	var fastGot, slowGot int
	for range fast {
		fastGot++
	}
	for range slow {
		slowGot++
	}
	assert.Equal(t, 3, fastGot)
	assert.Equal(t, 1, slowGot, "slow subscribers miss events instead of blocking")

	late := bus.Subscribe(1)
	_, open := <-late
	assert.False(t, open)
}

// panickySolver panics on problems whose name contains trigger.
type panickySolver struct {
	solver.Solver
	trigger string
}

func (p panickySolver) Solve(ctx context.Context, pr solver.Problem) (solver.Solution, error) {
	if strings.Contains(pr.Name, p.trigger) {
		panic("corrupt basis")
	}
	return p.Solver.Solve(ctx, pr)
}

type panicMonitor struct {
	monitoring.NopMonitor
	panics []any
}

func (m *panicMonitor) CapturePanic(v any) { m.panics = append(m.panics, v) }

func TestSweep_PanicIsolatedToScenario(t *testing.T) {
	mon := &panicMonitor{}
	monitoring.Init(mon)
	t.Cleanup(func() { monitoring.Init(nil) })

	s := panickySolver{Solver: solver.NewBranchAndBound(solver.Limits{}), trigger: strict.String()}
	r := NewRunner(lineNetwork(t), s)
	rep, err := NewSweep(r, Workers(2)).Run(context.Background(), []model.Params{strict, roomy})
	require.NoError(t, err)

	require.Len(t, rep.Failures, 1)
	assert.Equal(t, strict, rep.Failures[0].Params)
	assert.True(t, errors.Is(rep.Failures[0].Err, ErrScenarioPanic), "%v", rep.Failures[0].Err)
	_, ok := rep.Result(roomy)
	assert.True(t, ok)
	assert.Equal(t, []any{"corrupt basis"}, mon.panics)
}
