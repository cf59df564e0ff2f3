// Package dataset loads road network tables from YAML documents or CSV
// directories.
package dataset

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/kilianp07/frlm/core/model"
	"github.com/kilianp07/frlm/core/network"
)

// Dataset holds the raw tables of a road network.
type Dataset struct {
	Nodes  []model.Node
	Arcs   []model.Arc
	Routes []model.Route
	// Paths is empty unless the dataset ships precomputed paths.
	Paths []network.PathSpec
}

// Network builds the road network graph. Precomputed paths, when present,
// are passed to the network.
func (d *Dataset) Network(opts ...network.Option) (*network.Network, error) {
	if len(d.Paths) > 0 {
		opts = append([]network.Option{network.WithPaths(d.Paths)}, opts...)
	}
	return network.New(d.Nodes, d.Arcs, d.Routes, opts...)
}

// Load reads the dataset at path in the given format: "yaml" for a single
// document, "csv" for a directory of tables.
func Load(format, path string) (*Dataset, error) {
	switch format {
	case "yaml", "yml", "":
		return LoadYAML(path)
	case "csv":
		return LoadCSV(path)
	default:
		return nil, fmt.Errorf("unknown dataset format %q", format)
	}
}

func point(lon, lat *float64) *orb.Point {
	if lon == nil || lat == nil {
		return nil
	}
	return &orb.Point{*lon, *lat}
}

type seqNode struct {
	seq  int
	node model.NodeID
}

// assemblePaths orders path rows by sequence, keeping the first-seen order
// of path ids.
func assemblePaths(order []model.RouteID, rows map[model.RouteID][]seqNode) ([]network.PathSpec, error) {
	specs := make([]network.PathSpec, 0, len(order))
	for _, id := range order {
		r := rows[id]
		sort.SliceStable(r, func(i, j int) bool { return r[i].seq < r[j].seq })
		nodes := make([]model.NodeID, len(r))
		for i, sn := range r {
			if i > 0 && sn.seq == r[i-1].seq {
				return nil, fmt.Errorf("path %s: duplicate sequence %d", id, sn.seq)
			}
			nodes[i] = sn.node
		}
		specs = append(specs, network.PathSpec{ID: id, Nodes: nodes})
	}
	return specs, nil
}
