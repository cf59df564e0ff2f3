// Package export writes sweep reports and station placements for
// spreadsheets, scripts and map viewers.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/kilianp07/frlm/core/model"
	"github.com/kilianp07/frlm/core/scenario"
)

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func paramCols(p model.Params) []string {
	return []string{ftoa(p.FullRange), ftoa(p.StartRange), ftoa(p.FuelEconomy)}
}

var paramHeader = []string{"full_range", "start_range", "fuel_economy"}

// WriteScenarioCSV writes one row per scenario.
func WriteScenarioCSV(w io.Writer, rows []scenario.ScenarioStats) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, paramHeader...),
		"status", "n_stations", "dispensed_fuel", "start_onboard_fuel", "end_onboard_fuel", "enroute_consumed_fuel")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := append(paramCols(r.Params),
			r.Status,
			strconv.Itoa(r.Stations),
			ftoa(r.DispensedFuel),
			ftoa(r.StartFuel),
			ftoa(r.EndFuel),
			ftoa(r.ConsumedFuel),
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStationCSV writes one row per station and scenario.
func WriteStationCSV(w io.Writer, rows []scenario.StationStats) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, paramHeader...), "node_id", "dispensed_fuel")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := append(paramCols(r.Params), strconv.FormatInt(int64(r.Node), 10), ftoa(r.DispensedFuel))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFailureCSV lists scenarios excluded from the aggregate.
func WriteFailureCSV(w io.Writer, failures []scenario.Failure) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, paramHeader...), "error")); err != nil {
		return err
	}
	for _, f := range failures {
		if err := cw.Write(append(paramCols(f.Params), f.Err.Error())); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteStationsGeoJSON writes the stations of res as a point feature
// collection. Nodes without coordinates are skipped and reported in the
// returned count.
func WriteStationsGeoJSON(w io.Writer, nodes []model.Node, res *scenario.Result) (skipped int, err error) {
	byID := make(map[model.NodeID]model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	fc := geojson.NewFeatureCollection()
	for _, st := range res.DispensedByStation {
		n, ok := byID[st.Node]
		if !ok || n.Coord == nil {
			skipped++
			continue
		}
		f := geojson.NewFeature(*n.Coord)
		f.ID = int64(st.Node)
		f.Properties["node_id"] = int64(st.Node)
		if n.Name != "" {
			f.Properties["name"] = n.Name
		}
		f.Properties["dispensed_fuel"] = st.FuelKg
		f.Properties["scenario"] = res.Params.String()
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return skipped, fmt.Errorf("encode geojson: %w", err)
	}
	_, err = w.Write(data)
	return skipped, err
}
