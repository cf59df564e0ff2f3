package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/frlm/core/model"
)

// Table file names of a CSV dataset directory. paths.csv is optional.
const (
	NodesFile  = "nodes.csv"
	ArcsFile   = "arcs.csv"
	RoutesFile = "routes.csv"
	PathsFile  = "paths.csv"
)

// LoadCSV reads the tables of a dataset directory.
func LoadCSV(dir string) (*Dataset, error) {
	ds := &Dataset{}
	if err := readTable(filepath.Join(dir, NodesFile), []string{"node_id"}, func(r row) error {
		id, err := r.integer("node_id")
		if err != nil {
			return err
		}
		n := model.Node{ID: model.NodeID(id), Name: r.str("name")}
		lon, lerr := r.optNumber("lon")
		lat, aerr := r.optNumber("lat")
		if err := errors.Join(lerr, aerr); err != nil {
			return err
		}
		n.Coord = point(lon, lat)
		ds.Nodes = append(ds.Nodes, n)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readTable(filepath.Join(dir, ArcsFile), []string{"from_node_id", "to_node_id", "drive_dist_km"}, func(r row) error {
		from, err := r.integer("from_node_id")
		if err != nil {
			return err
		}
		to, err := r.integer("to_node_id")
		if err != nil {
			return err
		}
		km, err := r.number("drive_dist_km")
		if err != nil {
			return err
		}
		id := r.str("arc_id")
		if id == "" {
			id = fmt.Sprintf("arc%d", len(ds.Arcs))
		}
		ds.Arcs = append(ds.Arcs, model.Arc{ID: id, From: model.NodeID(from), To: model.NodeID(to), DistanceKM: km})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readTable(filepath.Join(dir, RoutesFile), []string{"path_id", "orig_node_id", "dest_node_id"}, func(r row) error {
		orig, err := r.integer("orig_node_id")
		if err != nil {
			return err
		}
		dest, err := r.integer("dest_node_id")
		if err != nil {
			return err
		}
		vol := 1.0
		if v, err := r.optNumber("volume"); err != nil {
			return err
		} else if v != nil {
			vol = *v
		}
		ds.Routes = append(ds.Routes, model.Route{
			ID:          model.RouteID(r.str("path_id")),
			Origin:      model.NodeID(orig),
			Destination: model.NodeID(dest),
			Volume:      vol,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	var order []model.RouteID
	rows := make(map[model.RouteID][]seqNode)
	err := readTable(filepath.Join(dir, PathsFile), []string{"path_id", "node_seq", "node_id"}, func(r row) error {
		seq, err := r.integer("node_seq")
		if err != nil {
			return err
		}
		node, err := r.integer("node_id")
		if err != nil {
			return err
		}
		id := model.RouteID(r.str("path_id"))
		if _, ok := rows[id]; !ok {
			order = append(order, id)
		}
		rows[id] = append(rows[id], seqNode{seq: int(seq), node: model.NodeID(node)})
		return nil
	})
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if ds.Paths, err = assemblePaths(order, rows); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

type row struct {
	file string
	line int
	cols map[string]int
	rec  []string
}

func (r row) str(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r row) integer(col string) (int64, error) {
	v, err := strconv.ParseInt(r.str(col), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s:%d: %s: %w", r.file, r.line, col, err)
	}
	return v, nil
}

func (r row) number(col string) (float64, error) {
	v, err := strconv.ParseFloat(r.str(col), 64)
	if err != nil {
		return 0, fmt.Errorf("%s:%d: %s: %w", r.file, r.line, col, err)
	}
	return v, nil
}

func (r row) optNumber(col string) (*float64, error) {
	if r.str(col) == "" {
		return nil, nil
	}
	v, err := r.number(col)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// readTable calls fn for every data row of the CSV file at path. The header
// must name every required column; other columns are looked up by name.
func readTable(path string, required []string, fn func(row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("%s: read header: %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			return fmt.Errorf("%s: missing column %q", path, c)
		}
	}
	name := filepath.Base(path)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := fn(row{file: name, line: line, cols: cols, rec: rec}); err != nil {
			return err
		}
	}
}
