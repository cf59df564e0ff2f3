package coverage

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/kilianp07/frlm/core/model"
)

func path(id model.RouteID, km ...float64) model.Path {
	p := model.Path{ID: id}
	for i, d := range km {
		p.Nodes = append(p.Nodes, model.PathNode{Seq: i, Node: model.NodeID(i), DistanceKM: d})
	}
	p.Origin = p.Nodes[0].Node
	p.Destination = p.Nodes[len(p.Nodes)-1].Node
	return p
}

func TestNewAnalyzer_Invalid(t *testing.T) {
	cases := [][2]float64{{0, 0}, {-1, 0}, {100, -1}, {100, 101}}
	for _, c := range cases {
		if _, err := NewAnalyzer(c[0], c[1]); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("full=%v start=%v: expected ErrInvalidRange got %v", c[0], c[1], err)
		}
	}
}

func TestAnalyze_Line(t *testing.T) {
	line := path("r", 0, 100, 250, 400)
	cases := []struct {
		name      string
		opts      []Option
		coverers2 string
		coverers3 string
	}{
		{"strict", nil, "[0 1]", "[2]"},
		{"inclusive", []Option{InclusiveReach()}, "[0 1]", "[1 2]"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := NewAnalyzer(300, 150, c.opts...)
			if err != nil {
				t.Fatalf("analyzer: %v", err)
			}
			rel := a.Analyze([]model.Path{line})
			if rel.Len() != 2 {
				t.Fatalf("expected 2 destinations of concern got %v", rel.Keys())
			}
			got2, _ := rel.Coverers(Key{PathID: "r", NodeID: 2})
			got3, _ := rel.Coverers(Key{PathID: "r", NodeID: 3})
			if fmt.Sprint(got2) != c.coverers2 || fmt.Sprint(got3) != c.coverers3 {
				t.Fatalf("unexpected coverers %v %v", got2, got3)
			}
			if _, ok := rel.Coverers(Key{PathID: "r", NodeID: 1}); ok {
				t.Fatalf("node within start range must not be a concern")
			}
		})
	}
}

func TestAnalyze_StartRangeBoundary(t *testing.T) {
	a, _ := NewAnalyzer(300, 100)
	rel := a.Analyze([]model.Path{path("r", 0, 100, 150)})
	if _, ok := rel.Coverers(Key{PathID: "r", NodeID: 1}); ok {
		t.Fatalf("node exactly at start range must not be a concern")
	}
	if _, ok := rel.Coverers(Key{PathID: "r", NodeID: 2}); !ok {
		t.Fatalf("node beyond start range must be a concern")
	}
}

func TestAnalyze_Uncoverable(t *testing.T) {
	a, _ := NewAnalyzer(100, 50)
	rel := a.Analyze([]model.Path{path("r", 0, 200)})
	un := rel.Uncoverable()
	if len(un) != 1 || un[0] != (Key{PathID: "r", NodeID: 1}) {
		t.Fatalf("expected uncoverable node 1 got %v", un)
	}
	cov, ok := rel.Coverers(un[0])
	if !ok || len(cov) != 0 {
		t.Fatalf("uncoverable key must be present with an empty set")
	}
}

func TestAnalyze_ZeroStartRange(t *testing.T) {
	a, _ := NewAnalyzer(300, 0)
	rel := a.Analyze([]model.Path{path("r", 0, 0, 10)})
	// Node 1 sits at the origin and needs no fuel.
	if rel.Len() != 1 {
		t.Fatalf("expected a single concern got %v", rel.Keys())
	}
	cov, _ := rel.Coverers(Key{PathID: "r", NodeID: 2})
	if fmt.Sprint(cov) != "[0 1]" {
		t.Fatalf("unexpected coverers %v", cov)
	}
}

func TestAnalyze_NonMonotonicScansEverything(t *testing.T) {
	a, _ := NewAnalyzer(100, 10)
	p := path("r", 0, 150, 60)
	rel := a.Analyze([]model.Path{p})
	cov, _ := rel.Coverers(Key{PathID: "r", NodeID: 2})
	// Node 0 cannot reach node 1 but still reaches node 2.
	if fmt.Sprint(cov) != "[0 1]" {
		t.Fatalf("unexpected coverers %v", cov)
	}
}

func bruteForce(p model.Path, full, start float64, inclusive bool) map[Key][]model.NodeID {
	out := make(map[Key][]model.NodeID)
	for j, d := range p.Nodes {
		if d.DistanceKM <= start {
			continue
		}
		k := Key{PathID: p.ID, NodeID: d.Node}
		out[k] = []model.NodeID{}
		for i := 0; i < j; i++ {
			gap := d.DistanceKM - p.Nodes[i].DistanceKM
			if gap < full || (inclusive && gap == full) {
				out[k] = append(out[k], p.Nodes[i].Node)
			}
		}
	}
	return out
}

func TestAnalyze_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		var paths []model.Path
		for pi := 0; pi < 1+rng.Intn(4); pi++ {
			km := []float64{0}
			for n := 0; n < 1+rng.Intn(12); n++ {
				km = append(km, km[len(km)-1]+float64(rng.Intn(8)*25))
			}
			paths = append(paths, path(model.RouteID(fmt.Sprintf("p%d", pi)), km...))
		}
		full := float64(50 + rng.Intn(10)*25)
		start := float64(rng.Intn(int(full)/25+1) * 25)
		inclusive := rng.Intn(2) == 0
		var opts []Option
		if inclusive {
			opts = append(opts, InclusiveReach())
		}
		a, err := NewAnalyzer(full, start, opts...)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		rel := a.Analyze(paths)
		want := 0
		for _, p := range paths {
			for k, set := range bruteForce(p, full, start, inclusive) {
				want++
				got, ok := rel.Coverers(k)
				if !ok || fmt.Sprint(got) != fmt.Sprint(set) {
					t.Fatalf("trial %d %s: got %v want %v", trial, k, got, set)
				}
			}
		}
		if rel.Len() != want {
			t.Fatalf("trial %d: %d concerns, want %d", trial, rel.Len(), want)
		}
	}
}
