// Package location formulates the flow refuelling location model as a binary
// covering problem and turns the solver answer into a station placement.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/frlm/core/coverage"
	"github.com/kilianp07/frlm/core/logger"
	"github.com/kilianp07/frlm/core/model"
	"github.com/kilianp07/frlm/core/solver"
)

var (
	// ErrInfeasible is returned when the solver finds no placement.
	ErrInfeasible = errors.New("station placement infeasible")
	// ErrUncoverable marks a destination of concern no node can cover.
	ErrUncoverable = errors.New("destination cannot be covered within full range")
)

// UncoverableError names the first destination of concern with an empty
// coverage set.
type UncoverableError struct {
	PathID model.RouteID
	NodeID model.NodeID
	// Count is the total number of uncoverable destinations.
	Count int
}

func (e *UncoverableError) Error() string {
	return fmt.Sprintf("path %s node %d: no upstream node within full range (%d uncoverable destinations)", e.PathID, e.NodeID, e.Count)
}

func (e *UncoverableError) Unwrap() []error { return []error{ErrInfeasible, ErrUncoverable} }

// Placement is the station set chosen for one scenario.
type Placement struct {
	Stations    model.StationSet
	Status      solver.Status
	Bound       float64
	Variables   int
	Constraints int
	Elapsed     time.Duration
}

// Optimal reports whether the placement is proven minimal.
func (p Placement) Optimal() bool { return p.Status == solver.StatusOptimal }

// Option configures a Formulator.
type Option func(*Formulator)

// WithLogger sets the formulator logger.
func WithLogger(l logger.Logger) Option { return func(f *Formulator) { f.log = l } }

// Formulator builds covering problems and submits them to a solver.
type Formulator struct {
	solver solver.Solver
	log    logger.Logger
}

// NewFormulator returns a formulator using s.
func NewFormulator(s solver.Solver, opts ...Option) *Formulator {
	f := &Formulator{solver: s, log: logger.Nop{}}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Formulate builds one binary variable per candidate node and one cover
// constraint per destination of concern. The objective, minimising the
// number of selected variables, is implied by solver.Problem.
func (f *Formulator) Formulate(name string, universe []model.NodeID, rel *coverage.Relation) solver.Problem {
	p := solver.Problem{Name: name, Vars: make([]int64, len(universe))}
	for i, id := range universe {
		p.Vars[i] = int64(id)
	}
	for _, k := range rel.Keys() {
		cov, _ := rel.Coverers(k)
		vars := make([]int64, len(cov))
		for i, id := range cov {
			vars[i] = int64(id)
		}
		p.Constraints = append(p.Constraints, solver.Constraint{
			Name: fmt.Sprintf("on path %s reach node %d", k.PathID, k.NodeID),
			Vars: vars,
			Min:  1,
		})
	}
	return p
}

// Locate formulates and solves the placement problem.
func (f *Formulator) Locate(ctx context.Context, name string, universe []model.NodeID, rel *coverage.Relation) (Placement, error) {
	if empty := rel.Uncoverable(); len(empty) > 0 {
		return Placement{}, &UncoverableError{PathID: empty[0].PathID, NodeID: empty[0].NodeID, Count: len(empty)}
	}
	p := f.Formulate(name, universe, rel)
	f.log.Infof("%s: %d candidate nodes, %d cover constraints", name, len(p.Vars), len(p.Constraints))
	sol, err := f.solver.Solve(ctx, p)
	if err != nil {
		return Placement{}, fmt.Errorf("%s: solve: %w", name, err)
	}
	switch sol.Status {
	case solver.StatusInfeasible:
		return Placement{}, fmt.Errorf("%s: %w", name, ErrInfeasible)
	case solver.StatusLimit:
		f.log.Warnf("%s: solver stopped at a limit, using best found placement (%d stations, bound %.0f)", name, sol.Objective(), sol.Bound)
	}
	ids := make([]model.NodeID, len(sol.Selected))
	for i, v := range sol.Selected {
		ids[i] = model.NodeID(v)
	}
	return Placement{
		Stations:    model.NewStationSet(ids...),
		Status:      sol.Status,
		Bound:       sol.Bound,
		Variables:   len(p.Vars),
		Constraints: len(p.Constraints),
		Elapsed:     sol.Elapsed,
	}, nil
}
