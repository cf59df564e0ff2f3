// Package simulate replays every path under a station placement and records
// refuel events and end-of-trip range.
package simulate

import (
	"errors"
	"fmt"

	"github.com/kilianp07/frlm/core/logger"
	"github.com/kilianp07/frlm/core/model"
)

// rangeTolerance absorbs floating point drift of cumulative distances. The
// remaining range is never clamped.
const rangeTolerance = 1e-9

// ErrRangeExhausted means a vehicle ran out of range before reaching a node.
// It reveals a defect of the coverage relation or of the solver.
var ErrRangeExhausted = errors.New("remaining range exhausted")

// RangeViolationError locates the first node reached with negative range.
type RangeViolationError struct {
	PathID    model.RouteID
	NodeID    model.NodeID
	Remaining float64
}

func (e *RangeViolationError) Error() string {
	return fmt.Sprintf("path %s node %d: remaining range %.6f km", e.PathID, e.NodeID, e.Remaining)
}

func (e *RangeViolationError) Unwrap() error { return ErrRangeExhausted }

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the simulator logger.
func WithLogger(l logger.Logger) Option { return func(s *Simulator) { s.log = l } }

// Simulator replays trips for one pair of full and start ranges.
type Simulator struct {
	fullRange  float64
	startRange float64
	log        logger.Logger
}

// New returns a simulator. startRange must not exceed fullRange.
func New(fullRange, startRange float64, opts ...Option) (*Simulator, error) {
	if fullRange <= 0 || startRange < 0 || startRange > fullRange {
		return nil, fmt.Errorf("%w: full range %v, start range %v", model.ErrInvalidParam, fullRange, startRange)
	}
	s := &Simulator{fullRange: fullRange, startRange: startRange, log: logger.Nop{}}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Run replays every path. It fails on the first path whose remaining range
// goes negative.
func (s *Simulator) Run(stations model.StationSet, paths []model.Path) (*model.Trace, error) {
	trace := model.NewTrace()
	refuels := 0
	for _, p := range paths {
		pt, err := s.replay(stations, p)
		if err != nil {
			return nil, err
		}
		refuels += len(pt.Refuels)
		trace.Add(pt)
	}
	s.log.Infof("simulated %d paths with %d stations: %d refuel events", len(paths), stations.Len(), refuels)
	return trace, nil
}

func (s *Simulator) replay(stations model.StationSet, p model.Path) (model.PathTrace, error) {
	pt := model.PathTrace{PathID: p.ID, StartRange: s.startRange}
	remaining := s.startRange
	for i, n := range p.Nodes {
		if i > 0 {
			remaining -= n.DistanceKM - p.Nodes[i-1].DistanceKM
		}
		if remaining < -rangeTolerance {
			return model.PathTrace{}, &RangeViolationError{PathID: p.ID, NodeID: n.Node, Remaining: remaining}
		}
		if stations.Contains(n.Node) {
			pt.Refuels = append(pt.Refuels, model.RefuelEvent{Node: n.Node, AmountKM: s.fullRange - remaining})
			remaining = s.fullRange
		}
	}
	pt.EndRemainingRange = remaining
	return pt, nil
}
