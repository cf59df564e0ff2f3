package scenario

import (
	"time"

	"github.com/kilianp07/frlm/core/metrics"
	"github.com/kilianp07/frlm/core/model"
)

// Failure records a scenario excluded from the aggregate.
type Failure struct {
	Params model.Params
	Err    error
}

// Report merges the results of a sweep, keyed by parameter tuple.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Failures []Failure

	order   []model.Params
	results map[model.Params]*Result
}

func newReport(runID string, started time.Time, params []model.Params, results []*Result, errs []error) *Report {
	rep := &Report{RunID: runID, Started: started, results: make(map[model.Params]*Result, len(params))}
	for i, p := range params {
		if errs[i] != nil {
			rep.Failures = append(rep.Failures, Failure{Params: p, Err: errs[i]})
			continue
		}
		rep.order = append(rep.order, p)
		rep.results[p] = results[i]
	}
	return rep
}

// Result returns the result of the scenario with parameters p.
func (r *Report) Result(p model.Params) (*Result, bool) {
	res, ok := r.results[p]
	return res, ok
}

// Results returns successful results in input order.
func (r *Report) Results() []*Result {
	out := make([]*Result, len(r.order))
	for i, p := range r.order {
		out[i] = r.results[p]
	}
	return out
}

// ScenarioStats is one row of the by-scenario view.
type ScenarioStats struct {
	Params        model.Params `json:"params"`
	Status        string       `json:"status"`
	Stations      int          `json:"n_stations"`
	DispensedFuel float64      `json:"dispensed_fuel"`
	StartFuel     float64      `json:"start_onboard_fuel"`
	EndFuel       float64      `json:"end_onboard_fuel"`
	ConsumedFuel  float64      `json:"enroute_consumed_fuel"`
}

// ByScenario returns one row per successful scenario.
func (r *Report) ByScenario() []ScenarioStats {
	rows := make([]ScenarioStats, 0, len(r.order))
	for _, res := range r.Results() {
		rows = append(rows, ScenarioStats{
			Params:        res.Params,
			Status:        res.Status(),
			Stations:      res.StationCount(),
			DispensedFuel: res.DispensedFuel,
			StartFuel:     res.StartFuel,
			EndFuel:       res.EndFuel,
			ConsumedFuel:  res.ConsumedFuel(),
		})
	}
	return rows
}

// StationStats is one row of the by-station view.
type StationStats struct {
	Params        model.Params `json:"params"`
	Node          model.NodeID `json:"node_id"`
	DispensedFuel float64      `json:"dispensed_fuel"`
}

// ByStation returns one row per station of every successful scenario.
func (r *Report) ByStation() []StationStats {
	var rows []StationStats
	for _, res := range r.Results() {
		for _, st := range res.DispensedByStation {
			rows = append(rows, StationStats{Params: res.Params, Node: st.Node, DispensedFuel: st.FuelKg})
		}
	}
	return rows
}

// Records converts the report, failures included, into store records.
func (r *Report) Records() []Record {
	ts := r.Started
	out := make([]Record, 0, len(r.order)+len(r.Failures))
	for _, res := range r.Results() {
		out = append(out, NewRecord(r.RunID, ts, res))
	}
	for _, f := range r.Failures {
		out = append(out, Record{
			RunID:     r.RunID,
			Timestamp: ts,
			Params:    f.Params,
			Status:    metrics.StatusFailed,
			Error:     f.Err.Error(),
		})
	}
	return out
}
