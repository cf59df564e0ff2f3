package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/frlm/core/model"
	"github.com/kilianp07/frlm/core/network"
)

// NodeDef is a node entry of a YAML dataset.
type NodeDef struct {
	ID   int64    `yaml:"id"`
	Name string   `yaml:"name"`
	Lon  *float64 `yaml:"lon"`
	Lat  *float64 `yaml:"lat"`
}

// ArcDef is an arc entry.
type ArcDef struct {
	ID         string  `yaml:"id"`
	From       int64   `yaml:"from"`
	To         int64   `yaml:"to"`
	DistanceKM float64 `yaml:"distance_km"`
}

// RouteDef is a route entry.
type RouteDef struct {
	ID          string   `yaml:"id"`
	Origin      int64    `yaml:"origin"`
	Destination int64    `yaml:"destination"`
	Volume      *float64 `yaml:"volume"`
}

// PathDef is a precomputed path.
type PathDef struct {
	ID    string  `yaml:"id"`
	Nodes []int64 `yaml:"nodes"`
}

// Document is the YAML dataset layout.
type Document struct {
	Nodes  []NodeDef  `yaml:"nodes"`
	Arcs   []ArcDef   `yaml:"arcs"`
	Routes []RouteDef `yaml:"routes"`
	Paths  []PathDef  `yaml:"paths"`
}

// LoadYAML reads a dataset document from path.
func LoadYAML(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.ToModel()
}

// ToModel converts the document. A route without volume weighs 1.
func (d Document) ToModel() (*Dataset, error) {
	ds := &Dataset{}
	for _, n := range d.Nodes {
		ds.Nodes = append(ds.Nodes, model.Node{ID: model.NodeID(n.ID), Name: n.Name, Coord: point(n.Lon, n.Lat)})
	}
	for i, a := range d.Arcs {
		id := a.ID
		if id == "" {
			id = fmt.Sprintf("arc%d", i)
		}
		ds.Arcs = append(ds.Arcs, model.Arc{ID: id, From: model.NodeID(a.From), To: model.NodeID(a.To), DistanceKM: a.DistanceKM})
	}
	for _, r := range d.Routes {
		if r.ID == "" {
			return nil, fmt.Errorf("route %d->%d: id is required", r.Origin, r.Destination)
		}
		vol := 1.0
		if r.Volume != nil {
			vol = *r.Volume
		}
		ds.Routes = append(ds.Routes, model.Route{
			ID:          model.RouteID(r.ID),
			Origin:      model.NodeID(r.Origin),
			Destination: model.NodeID(r.Destination),
			Volume:      vol,
		})
	}
	for _, p := range d.Paths {
		nodes := make([]model.NodeID, len(p.Nodes))
		for i, n := range p.Nodes {
			nodes[i] = model.NodeID(n)
		}
		ds.Paths = append(ds.Paths, network.PathSpec{ID: model.RouteID(p.ID), Nodes: nodes})
	}
	return ds, nil
}
