package scenario

import (
	"context"
	"time"

	"github.com/kilianp07/frlm/core/model"
)

// Record is the persisted form of one scenario outcome.
type Record struct {
	RunID              string         `json:"run_id"`
	Timestamp          time.Time      `json:"timestamp"`
	Params             model.Params   `json:"params"`
	Status             string         `json:"status"`
	Stations           []model.NodeID `json:"stations,omitempty"`
	DispensedByStation []StationFuel  `json:"dispensed_by_station,omitempty"`
	DispensedFuel      float64        `json:"dispensed_fuel"`
	StartFuel          float64        `json:"start_onboard_fuel"`
	EndFuel            float64        `json:"end_onboard_fuel"`
	ConsumedFuel       float64        `json:"enroute_consumed_fuel"`
	Error              string         `json:"error,omitempty"`
}

// NewRecord converts a successful result.
func NewRecord(runID string, ts time.Time, res *Result) Record {
	return Record{
		RunID:              runID,
		Timestamp:          ts,
		Params:             res.Params,
		Status:             res.Status(),
		Stations:           res.Placement.Stations.IDs(),
		DispensedByStation: res.DispensedByStation,
		DispensedFuel:      res.DispensedFuel,
		StartFuel:          res.StartFuel,
		EndFuel:            res.EndFuel,
		ConsumedFuel:       res.ConsumedFuel(),
	}
}

// Query filters stored records. Zero fields match everything.
type Query struct {
	RunID     string
	Status    string
	FullRange float64
	Start     time.Time
	End       time.Time
}

// Match reports whether rec satisfies q.
func (q Query) Match(rec Record) bool {
	if q.RunID != "" && rec.RunID != q.RunID {
		return false
	}
	if q.Status != "" && rec.Status != q.Status {
		return false
	}
	if q.FullRange != 0 && rec.Params.FullRange != q.FullRange {
		return false
	}
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	return true
}

// Store persists scenario records and supports querying.
type Store interface {
	Append(ctx context.Context, recs ...Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
