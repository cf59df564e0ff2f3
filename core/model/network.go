package model

import "github.com/paulmach/orb"

// NodeID identifies a node of the road network.
type NodeID int64

// RouteID identifies an origin-destination flow and the path realising it.
type RouteID string

// Node is an intersection or hub of the road network.
type Node struct {
	ID   NodeID
	Name string
	// Coord is nil when the input table carries no coordinates.
	Coord *orb.Point
}

// Arc is a road segment between two nodes. Distances are in km.
type Arc struct {
	ID         string
	From       NodeID
	To         NodeID
	DistanceKM float64
}

// Route is an origin-destination flow. Volume weights every per-trip quantity
// when fleet-wide statistics are computed.
type Route struct {
	ID          RouteID
	Origin      NodeID
	Destination NodeID
	Volume      float64
}

// PathNode is one stop of a path with its cumulative distance from the origin.
type PathNode struct {
	Seq        int
	Node       NodeID
	DistanceKM float64
}

// Path is the node sequence realising a route.
type Path struct {
	ID          RouteID
	Origin      NodeID
	Destination NodeID
	// LengthKM is the length reported by the shortest-path search, or the
	// measured length of a precomputed path.
	LengthKM float64
	Nodes    []PathNode
}

// NodeIDs returns the node sequence of the path.
func (p Path) NodeIDs() []NodeID {
	ids := make([]NodeID, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.Node
	}
	return ids
}

// TotalKM is the cumulative distance at the last node.
func (p Path) TotalKM() float64 {
	if len(p.Nodes) == 0 {
		return 0
	}
	return p.Nodes[len(p.Nodes)-1].DistanceKM
}

// Monotonic reports whether cumulative distance never decreases along the path.
func (p Path) Monotonic() bool {
	for i := 1; i < len(p.Nodes); i++ {
		if p.Nodes[i].DistanceKM < p.Nodes[i-1].DistanceKM {
			return false
		}
	}
	return true
}
