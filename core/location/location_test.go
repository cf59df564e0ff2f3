package location

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/kilianp07/frlm/core/coverage"
	"github.com/kilianp07/frlm/core/model"
	"github.com/kilianp07/frlm/core/network"
	"github.com/kilianp07/frlm/core/solver"
)

type stubSolver struct {
	sol  solver.Solution
	err  error
	seen solver.Problem
}

func (s *stubSolver) Solve(_ context.Context, p solver.Problem) (solver.Solution, error) {
	s.seen = p
	return s.sol, s.err
}

func linePath(km ...float64) model.Path {
	p := model.Path{ID: "r"}
	for i, d := range km {
		p.Nodes = append(p.Nodes, model.PathNode{Seq: i, Node: model.NodeID(i), DistanceKM: d})
	}
	return p
}

func relation(t *testing.T, full, start float64, paths ...model.Path) *coverage.Relation {
	t.Helper()
	a, err := coverage.NewAnalyzer(full, start)
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	return a.Analyze(paths)
}

func TestFormulate(t *testing.T) {
	rel := relation(t, 300, 150, linePath(0, 100, 250, 400))
	p := NewFormulator(&stubSolver{}).Formulate("line", []model.NodeID{0, 1, 2, 3, 9}, rel)
	if fmt.Sprint(p.Vars) != "[0 1 2 3 9]" {
		t.Fatalf("every node of the universe is a candidate, got %v", p.Vars)
	}
	if len(p.Constraints) != 2 {
		t.Fatalf("expected 2 constraints got %d", len(p.Constraints))
	}
	c := p.Constraints[1]
	if c.Name != "on path r reach node 3" || fmt.Sprint(c.Vars) != "[2]" || c.Min != 1 {
		t.Fatalf("unexpected constraint %+v", c)
	}
}

func TestLocate_Line(t *testing.T) {
	rel := relation(t, 300, 150, linePath(0, 100, 250, 400))
	f := NewFormulator(solver.NewBranchAndBound(solver.Limits{}))
	pl, err := f.Locate(context.Background(), "line", []model.NodeID{0, 1, 2, 3}, rel)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if !pl.Optimal() || fmt.Sprint(pl.Stations.IDs()) != "[0 2]" {
		t.Fatalf("unexpected placement %+v", pl)
	}
	if pl.Variables != 4 || pl.Constraints != 2 {
		t.Fatalf("unexpected problem size %d/%d", pl.Variables, pl.Constraints)
	}
}

func TestLocate_NothingToCover(t *testing.T) {
	rel := relation(t, 300, 300, linePath(0, 100, 250))
	pl, err := NewFormulator(solver.NewBranchAndBound(solver.Limits{})).Locate(context.Background(), "short", []model.NodeID{0, 1, 2}, rel)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if pl.Stations.Len() != 0 {
		t.Fatalf("expected no stations got %v", pl.Stations.IDs())
	}
}

func TestLocate_Uncoverable(t *testing.T) {
	rel := relation(t, 100, 50, linePath(0, 60, 200, 400))
	stub := &stubSolver{}
	_, err := NewFormulator(stub).Locate(context.Background(), "gap", []model.NodeID{0, 1, 2, 3}, rel)
	if stub.seen.Name != "" {
		t.Fatalf("solver must not run when a destination is uncoverable")
	}
	var ue *UncoverableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UncoverableError got %v", err)
	}
	if ue.PathID != "r" || ue.NodeID != 2 || ue.Count != 2 {
		t.Fatalf("unexpected error fields %+v", ue)
	}
	if !errors.Is(err, ErrInfeasible) || !errors.Is(err, ErrUncoverable) {
		t.Fatalf("error must match both sentinels")
	}
}

func TestLocate_SolverInfeasibleWithoutEmptySet(t *testing.T) {
	rel := relation(t, 300, 150, linePath(0, 100, 250, 400))
	f := NewFormulator(&stubSolver{sol: solver.Solution{Status: solver.StatusInfeasible}})
	_, err := f.Locate(context.Background(), "x", []model.NodeID{0, 1, 2, 3}, rel)
	if !errors.Is(err, ErrInfeasible) || errors.Is(err, ErrUncoverable) {
		t.Fatalf("expected plain ErrInfeasible got %v", err)
	}
}

func TestLocate_SolverError(t *testing.T) {
	boom := errors.New("license expired")
	f := NewFormulator(&stubSolver{err: boom})
	_, err := f.Locate(context.Background(), "x", nil, relation(t, 300, 150))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped solver error got %v", err)
	}
}

func TestLocate_LimitKeepsBestFound(t *testing.T) {
	stub := &stubSolver{sol: solver.Solution{Status: solver.StatusLimit, Selected: []int64{2, 0}, Bound: 1}}
	rel := relation(t, 300, 150, linePath(0, 100, 250, 400))
	pl, err := NewFormulator(stub).Locate(context.Background(), "x", []model.NodeID{0, 1, 2, 3}, rel)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if pl.Optimal() || pl.Bound != 1 || fmt.Sprint(pl.Stations.IDs()) != "[0 2]" {
		t.Fatalf("unexpected placement %+v", pl)
	}
	if stub.seen.Name != "x" {
		t.Fatalf("problem name not forwarded")
	}
}

// randomNetwork builds a random tree with a few extra arcs and random routes.
func randomNetwork(t *testing.T, rng *rand.Rand) *network.Network {
	t.Helper()
	size := 3 + rng.Intn(6)
	var arcs []model.Arc
	for i := 1; i < size; i++ {
		arcs = append(arcs, model.Arc{From: model.NodeID(rng.Intn(i)), To: model.NodeID(i), DistanceKM: float64(10 + rng.Intn(290))})
	}
	for e := rng.Intn(3); e > 0; e-- {
		a, b := rng.Intn(size), rng.Intn(size)
		arcs = append(arcs, model.Arc{From: model.NodeID(a), To: model.NodeID(b), DistanceKM: float64(10 + rng.Intn(290))})
	}
	var routes []model.Route
	for r := 0; r < 1+rng.Intn(5); r++ {
		routes = append(routes, model.Route{
			ID:          model.RouteID(fmt.Sprintf("r%d", r)),
			Origin:      model.NodeID(rng.Intn(size)),
			Destination: model.NodeID(rng.Intn(size)),
			Volume:      1,
		})
	}
	n, err := network.New(nil, arcs, routes)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	return n
}

func satisfies(p solver.Problem, selected map[int64]bool) bool {
	for _, c := range p.Constraints {
		n := 0
		for _, v := range c.Vars {
			if selected[v] {
				n++
			}
		}
		if n < c.Min {
			return false
		}
	}
	return true
}

// bruteMinimum returns the size of the smallest feasible selection.
func bruteMinimum(p solver.Problem) int {
	best := -1
	for mask := 0; mask < 1<<len(p.Vars); mask++ {
		sel := make(map[int64]bool)
		for i, v := range p.Vars {
			if mask&(1<<i) != 0 {
				sel[v] = true
			}
		}
		if satisfies(p, sel) && (best < 0 || len(sel) < best) {
			best = len(sel)
		}
	}
	return best
}

// Selecting every node is feasible whenever no destination is uncoverable,
// and the located placement is a minimum.
func TestLocate_RandomNetworks(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	var solved, uncoverable int
	for trial := 0; trial < 150; trial++ {
		net := randomNetwork(t, rng)
		paths, err := net.Paths()
		if err != nil {
			t.Fatalf("trial %d: paths: %v", trial, err)
		}
		full := float64(50 + rng.Intn(400))
		start := float64(rng.Intn(int(full) + 1))
		opts := []coverage.Option{}
		if rng.Intn(2) == 0 {
			opts = append(opts, coverage.InclusiveReach())
		}
		a, err := coverage.NewAnalyzer(full, start, opts...)
		if err != nil {
			t.Fatalf("trial %d: analyzer: %v", trial, err)
		}
		rel := a.Analyze(paths)
		f := NewFormulator(solver.NewBranchAndBound(solver.Limits{}))
		name := fmt.Sprintf("trial %d", trial)

		if len(rel.Uncoverable()) > 0 {
			uncoverable++
			var ue *UncoverableError
			if _, err := f.Locate(context.Background(), name, net.NodeIDs(), rel); !errors.As(err, &ue) {
				t.Fatalf("%s: expected UncoverableError got %v", name, err)
			}
			continue
		}

		p := f.Formulate(name, net.NodeIDs(), rel)
		all := make(map[int64]bool, len(p.Vars))
		for _, v := range p.Vars {
			all[v] = true
		}
		if !satisfies(p, all) {
			t.Fatalf("%s: selecting every node violates a constraint", name)
		}

		pl, err := f.Locate(context.Background(), name, net.NodeIDs(), rel)
		if err != nil {
			t.Fatalf("%s: locate: %v", name, err)
		}
		chosen := make(map[int64]bool)
		for _, id := range pl.Stations.IDs() {
			chosen[int64(id)] = true
		}
		if !pl.Optimal() || !satisfies(p, chosen) {
			t.Fatalf("%s: placement %v not optimal and feasible", name, pl.Stations.IDs())
		}
		if want := bruteMinimum(p); pl.Stations.Len() != want {
			t.Fatalf("%s: %d stations, minimum is %d", name, pl.Stations.Len(), want)
		}
		solved++
	}
	if solved == 0 || uncoverable == 0 {
		t.Fatalf("trials should exercise both outcomes: solved %d uncoverable %d", solved, uncoverable)
	}
}
