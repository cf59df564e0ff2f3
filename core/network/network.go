// Package network builds the road graph, realises every route as a shortest
// path and annotates each path with cumulative distances from its origin.
package network

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kilianp07/frlm/core/logger"
	"github.com/kilianp07/frlm/core/model"
)

// PathSpec is a precomputed node sequence for a route.
type PathSpec struct {
	ID    model.RouteID
	Nodes []model.NodeID
}

// Option configures a Network.
type Option func(*Network)

// Directed treats every arc as one-way for routing. Distance lookups still
// resolve both orientations.
func Directed() Option { return func(n *Network) { n.directed = true } }

// WithPaths supplies precomputed paths. They are measured instead of being
// searched until Recompute is called.
func WithPaths(specs []PathSpec) Option { return func(n *Network) { n.given = specs } }

// WithLogger sets the logger used by the network.
func WithLogger(l logger.Logger) Option { return func(n *Network) { n.log = l } }

type weightedGraph interface {
	graph.Weighted
	Node(id int64) graph.Node
	AddNode(graph.Node)
	NewWeightedEdge(from, to graph.Node, weight float64) graph.WeightedEdge
	SetWeightedEdge(e graph.WeightedEdge)
}

type pair struct{ from, to model.NodeID }

// Network is the road graph together with the routes travelling on it.
type Network struct {
	nodes    []model.Node
	routes   []model.Route
	directed bool
	given    []PathSpec
	log      logger.Logger

	g        weightedGraph
	dist     map[pair]float64
	universe []model.NodeID
	routeIdx map[model.RouteID]int

	mu    sync.Mutex
	paths []model.Path
	ready bool
}

// New validates the tables and builds the weighted graph. Paths are computed
// lazily by Paths.
func New(nodes []model.Node, arcs []model.Arc, routes []model.Route, opts ...Option) (*Network, error) {
	n := &Network{
		nodes:    nodes,
		routes:   routes,
		dist:     make(map[pair]float64, len(arcs)),
		routeIdx: make(map[model.RouteID]int, len(routes)),
		log:      logger.Nop{},
	}
	for _, o := range opts {
		o(n)
	}
	if n.directed {
		n.g = simple.NewWeightedDirectedGraph(0, math.Inf(1))
	} else {
		n.g = simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	}
	if err := n.constructGraph(arcs); err != nil {
		return nil, err
	}
	for i, r := range routes {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: route %d has no id", ErrInvalidTable, i)
		}
		if _, dup := n.routeIdx[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate route %s", ErrInvalidTable, r.ID)
		}
		if math.IsNaN(r.Volume) || math.IsInf(r.Volume, 0) || r.Volume < 0 {
			return nil, fmt.Errorf("%w: route %s volume %v", ErrInvalidTable, r.ID, r.Volume)
		}
		n.routeIdx[r.ID] = i
	}
	return n, nil
}

func (n *Network) constructGraph(arcs []model.Arc) error {
	seen := make(map[model.NodeID]struct{})
	addNode := func(id model.NodeID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		n.universe = append(n.universe, id)
		if n.g.Node(int64(id)) == nil {
			n.g.AddNode(simple.Node(id))
		}
	}
	for _, nd := range n.nodes {
		if _, dup := seen[nd.ID]; dup {
			return fmt.Errorf("%w: duplicate node %d", ErrInvalidTable, nd.ID)
		}
		addNode(nd.ID)
	}
	for _, a := range arcs {
		if math.IsNaN(a.DistanceKM) || math.IsInf(a.DistanceKM, 0) || a.DistanceKM < 0 {
			return fmt.Errorf("%w: arc %d->%d distance %v", ErrInvalidTable, a.From, a.To, a.DistanceKM)
		}
		addNode(a.From)
		addNode(a.To)
		k := pair{a.From, a.To}
		if d, ok := n.dist[k]; !ok || a.DistanceKM < d {
			n.dist[k] = a.DistanceKM
		}
	}
	sort.Slice(n.universe, func(i, j int) bool { return n.universe[i] < n.universe[j] })

	for k := range n.dist {
		if k.from == k.to {
			n.log.Debugf("ignoring self loop arc at node %d", k.from)
			continue
		}
		w := n.dist[k]
		if !n.directed {
			w, _ = n.Distance(k.from, k.to)
		}
		n.g.SetWeightedEdge(n.g.NewWeightedEdge(simple.Node(k.from), simple.Node(k.to), w))
	}
	n.log.Infof("road graph built: %d nodes, %d arcs", len(n.universe), len(arcs))
	return nil
}

// Distance returns the arc distance between two adjacent nodes. The forward
// arc is preferred and the reverse arc is used when no forward arc exists; on
// undirected networks the shorter of both orientations is returned.
func (n *Network) Distance(from, to model.NodeID) (float64, bool) {
	fwd, okF := n.dist[pair{from, to}]
	rev, okR := n.dist[pair{to, from}]
	switch {
	case okF && okR && !n.directed:
		return math.Min(fwd, rev), true
	case okF:
		return fwd, true
	case okR:
		return rev, true
	}
	return 0, false
}

// NodeIDs returns every node of the network in ascending order: those of the
// node table and every arc endpoint.
func (n *Network) NodeIDs() []model.NodeID {
	out := make([]model.NodeID, len(n.universe))
	copy(out, n.universe)
	return out
}

// Nodes returns the node table.
func (n *Network) Nodes() []model.Node { return n.nodes }

// Routes returns the route table.
func (n *Network) Routes() []model.Route { return n.routes }

// Route returns the route with the given id.
func (n *Network) Route(id model.RouteID) (model.Route, bool) {
	i, ok := n.routeIdx[id]
	if !ok {
		return model.Route{}, false
	}
	return n.routes[i], true
}

// Paths returns one annotated path per route, in route order. The result is
// computed once and cached; the returned slice must not be modified.
func (n *Network) Paths() ([]model.Path, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ready {
		return n.paths, nil
	}
	return n.setup(false)
}

// Recompute discards the cached paths and searches shortest paths for every
// route, ignoring precomputed paths.
func (n *Network) Recompute() ([]model.Path, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ready = false
	n.paths = nil
	return n.setup(true)
}

func (n *Network) setup(force bool) ([]model.Path, error) {
	var (
		specs  []PathSpec
		length map[model.RouteID]float64
		err    error
	)
	if n.given != nil && !force {
		specs, err = n.matchGiven()
	} else {
		specs, length, err = n.constructPaths()
	}
	if err != nil {
		return nil, err
	}
	paths := make([]model.Path, 0, len(specs))
	for _, s := range specs {
		p, err := n.measure(s)
		if err != nil {
			return nil, err
		}
		if l, ok := length[s.ID]; ok {
			p.LengthKM = l
		}
		paths = append(paths, p)
	}
	n.paths = paths
	n.ready = true
	n.log.Infof("annotated %d paths", len(paths))
	return paths, nil
}

func (n *Network) matchGiven() ([]PathSpec, error) {
	byID := make(map[model.RouteID]PathSpec, len(n.given))
	for _, s := range n.given {
		if _, ok := n.routeIdx[s.ID]; !ok {
			return nil, fmt.Errorf("%w: path %s has no route", ErrInvalidTable, s.ID)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate path %s", ErrInvalidTable, s.ID)
		}
		byID[s.ID] = s
	}
	specs := make([]PathSpec, 0, len(n.routes))
	for _, r := range n.routes {
		s, ok := byID[r.ID]
		if !ok {
			return nil, fmt.Errorf("%w: route %s has no path", ErrInvalidTable, r.ID)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// constructPaths searches one shortest path per route. Searches are shared
// between routes leaving the same origin.
func (n *Network) constructPaths() ([]PathSpec, map[model.RouteID]float64, error) {
	trees := make(map[model.NodeID]path.ShortestAlts)
	specs := make([]PathSpec, 0, len(n.routes))
	length := make(map[model.RouteID]float64, len(n.routes))
	for _, r := range n.routes {
		for _, id := range []model.NodeID{r.Origin, r.Destination} {
			if n.g.Node(int64(id)) == nil {
				return nil, nil, fmt.Errorf("route %s: %w %d", r.ID, ErrUnknownNode, id)
			}
		}
		if r.Origin == r.Destination {
			specs = append(specs, PathSpec{ID: r.ID, Nodes: []model.NodeID{r.Origin}})
			continue
		}
		tree, ok := trees[r.Origin]
		if !ok {
			tree = path.DijkstraAllFrom(n.g.Node(int64(r.Origin)), n.g)
			trees[r.Origin] = tree
		}
		all, w := tree.AllTo(int64(r.Destination))
		if len(all) == 0 || math.IsInf(w, 1) {
			return nil, nil, fmt.Errorf("route %s: %w %d -> %d", r.ID, ErrNoPath, r.Origin, r.Destination)
		}
		if len(all) > 1 {
			n.log.Debugf("route %s has %d equal-length shortest paths", r.ID, len(all))
		}
		specs = append(specs, PathSpec{ID: r.ID, Nodes: canonical(all)})
		length[r.ID] = w
	}
	return specs, length, nil
}

// canonical picks the lexicographically smallest node-id sequence among
// equal-length shortest paths.
func canonical(all [][]graph.Node) []model.NodeID {
	best := toIDs(all[0])
	for _, p := range all[1:] {
		ids := toIDs(p)
		if lessSeq(ids, best) {
			best = ids
		}
	}
	return best
}

func toIDs(nodes []graph.Node) []model.NodeID {
	ids := make([]model.NodeID, len(nodes))
	for i, nd := range nodes {
		ids[i] = model.NodeID(nd.ID())
	}
	return ids
}

func lessSeq(a, b []model.NodeID) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// measure annotates a node sequence with cumulative distances.
func (n *Network) measure(s PathSpec) (model.Path, error) {
	if len(s.Nodes) == 0 {
		return model.Path{}, fmt.Errorf("%w: path %s is empty", ErrInvalidTable, s.ID)
	}
	r := n.routes[n.routeIdx[s.ID]]
	if first, last := s.Nodes[0], s.Nodes[len(s.Nodes)-1]; first != r.Origin || last != r.Destination {
		return model.Path{}, fmt.Errorf("%w: path %s runs %d -> %d, route is %d -> %d",
			ErrInvalidTable, s.ID, first, last, r.Origin, r.Destination)
	}
	p := model.Path{
		ID:          s.ID,
		Origin:      r.Origin,
		Destination: r.Destination,
		Nodes:       make([]model.PathNode, len(s.Nodes)),
	}
	visited := make(map[model.NodeID]struct{}, len(s.Nodes))
	var cum float64
	for i, id := range s.Nodes {
		if _, dup := visited[id]; dup {
			return model.Path{}, fmt.Errorf("%w: path %s visits node %d twice", ErrInvalidTable, s.ID, id)
		}
		visited[id] = struct{}{}
		if i > 0 {
			d, ok := n.Distance(s.Nodes[i-1], id)
			if !ok {
				return model.Path{}, &MissingArcError{PathID: s.ID, From: s.Nodes[i-1], To: id}
			}
			cum += d
		}
		p.Nodes[i] = model.PathNode{Seq: i, Node: id, DistanceKM: cum}
	}
	p.LengthKM = cum
	n.log.Debugw("path measured", map[string]any{"path_id": string(s.ID), "nodes": len(s.Nodes), "km": cum})
	return p, nil
}
