// Package solver defines the 0/1 covering problem handed to an integer
// programming solver and provides a solver built on gonum's simplex.
package solver

import (
	"context"
	"fmt"
	"time"
)

// Status reports how a solve ended.
type Status int

const (
	// StatusOptimal means the returned selection is proven minimal.
	StatusOptimal Status = iota
	// StatusLimit means a time, gap or node limit stopped the search; the
	// selection is the best one found.
	StatusLimit
	// StatusInfeasible means no selection satisfies every constraint.
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusLimit:
		return "limit"
	case StatusInfeasible:
		return "infeasible"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Constraint requires at least Min of Vars to be selected.
type Constraint struct {
	Name string
	Vars []int64
	Min  int
}

// Problem is a binary covering program: minimise the number of selected
// variables subject to every constraint.
type Problem struct {
	Name        string
	Vars        []int64
	Constraints []Constraint
}

// Solution is the assignment returned by a Solver.
type Solution struct {
	Status Status
	// Selected lists the variables set to 1, ascending.
	Selected []int64
	// Bound is the best proven lower bound on the objective.
	Bound float64
	// Nodes counts explored branch-and-bound nodes.
	Nodes   int
	Elapsed time.Duration
}

// Objective is the number of selected variables.
func (s Solution) Objective() int { return len(s.Selected) }

// Gap is the relative distance between the objective and the lower bound.
func (s Solution) Gap() float64 {
	obj := float64(s.Objective())
	if obj == 0 {
		return 0
	}
	return (obj - s.Bound) / obj
}

// Solver solves covering problems. Implementations block until the problem is
// solved, a limit is hit or ctx is cancelled.
type Solver interface {
	Solve(ctx context.Context, p Problem) (Solution, error)
}

// Limits bounds a solve. Zero values disable the corresponding limit.
type Limits struct {
	TimeLimit    time.Duration `json:"time_limit"`
	GapTolerance float64       `json:"gap_tolerance"`
	MaxNodes     int           `json:"max_nodes"`
}
