// Package coverage derives, for every node of a path that cannot be reached
// on the starting fuel load, the upstream nodes from which a refuel makes it
// reachable.
package coverage

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/frlm/core/logger"
	"github.com/kilianp07/frlm/core/model"
)

// ErrInvalidRange is returned for non-positive or inconsistent ranges.
var ErrInvalidRange = errors.New("invalid vehicle range")

// Key identifies a destination of concern on a path.
type Key struct {
	PathID model.RouteID
	NodeID model.NodeID
}

func (k Key) String() string { return fmt.Sprintf("path %s node %d", k.PathID, k.NodeID) }

// Relation maps every destination of concern to the nodes able to cover it.
type Relation struct {
	keys []Key
	sets map[Key][]model.NodeID
}

func newRelation() *Relation { return &Relation{sets: make(map[Key][]model.NodeID)} }

func (r *Relation) addConcern(k Key) {
	if _, ok := r.sets[k]; ok {
		return
	}
	r.sets[k] = []model.NodeID{}
	r.keys = append(r.keys, k)
}

// Keys returns the destinations of concern in path order, then sequence order.
func (r *Relation) Keys() []Key {
	out := make([]Key, len(r.keys))
	copy(out, r.keys)
	return out
}

// Coverers returns the upstream nodes covering k, ordered along the path. The
// returned slice must not be modified.
func (r *Relation) Coverers(k Key) ([]model.NodeID, bool) {
	s, ok := r.sets[k]
	return s, ok
}

// Len returns the number of destinations of concern.
func (r *Relation) Len() int { return len(r.keys) }

// Uncoverable lists the destinations of concern no node can cover.
func (r *Relation) Uncoverable() []Key {
	var out []Key
	for _, k := range r.keys {
		if len(r.sets[k]) == 0 {
			out = append(out, k)
		}
	}
	return out
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// InclusiveReach lets a refuel cover a node exactly full_range downstream.
// By default coverage requires a strictly shorter distance.
func InclusiveReach() Option { return func(a *Analyzer) { a.inclusive = true } }

// WithLogger sets the analyzer logger.
func WithLogger(l logger.Logger) Option { return func(a *Analyzer) { a.log = l } }

// Analyzer derives coverage relations for a given vehicle range.
type Analyzer struct {
	fullRange  float64
	startRange float64
	inclusive  bool
	log        logger.Logger
}

// NewAnalyzer returns an analyzer for the given full and start ranges in km.
func NewAnalyzer(fullRange, startRange float64, opts ...Option) (*Analyzer, error) {
	if math.IsNaN(fullRange) || fullRange <= 0 {
		return nil, fmt.Errorf("%w: full range %v", ErrInvalidRange, fullRange)
	}
	if math.IsNaN(startRange) || startRange < 0 || startRange > fullRange {
		return nil, fmt.Errorf("%w: start range %v with full range %v", ErrInvalidRange, startRange, fullRange)
	}
	a := &Analyzer{fullRange: fullRange, startRange: startRange, log: logger.Nop{}}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Reaches reports whether a vehicle refuelled to full range covers km.
func (a *Analyzer) Reaches(km float64) bool {
	if a.inclusive {
		return km <= a.fullRange
	}
	return km < a.fullRange
}

// Concern reports whether a node at km from the origin needs a refuel to be
// reached. Nodes within the start range need none.
func (a *Analyzer) Concern(km float64) bool { return km > a.startRange }

// Analyze builds the coverage relation of all paths.
func (a *Analyzer) Analyze(paths []model.Path) *Relation {
	rel := newRelation()
	for _, p := range paths {
		a.analyzePath(rel, p)
	}
	a.log.Infof("coverage derived: %d destinations of concern over %d paths", rel.Len(), len(paths))
	return rel
}

func (a *Analyzer) analyzePath(rel *Relation, p model.Path) {
	nodes := p.Nodes
	for _, d := range nodes {
		if a.Concern(d.DistanceKM) {
			rel.addConcern(Key{PathID: p.ID, NodeID: d.Node})
		}
	}
	// Cumulative distance is non-decreasing on a well formed path, so once a
	// destination is out of reach every later one is too.
	earlyExit := p.Monotonic()
	if !earlyExit {
		a.log.Warnf("path %s has decreasing cumulative distance; scanning without early exit", p.ID)
	}
	for i, f := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			d := nodes[j]
			if !a.Reaches(d.DistanceKM - f.DistanceKM) {
				if earlyExit {
					break
				}
				continue
			}
			if !a.Concern(d.DistanceKM) {
				continue
			}
			k := Key{PathID: p.ID, NodeID: d.Node}
			rel.sets[k] = append(rel.sets[k], f.Node)
		}
	}
}
