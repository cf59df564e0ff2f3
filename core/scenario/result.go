package scenario

import (
	"sort"
	"time"

	"github.com/kilianp07/frlm/core/location"
	"github.com/kilianp07/frlm/core/metrics"
	"github.com/kilianp07/frlm/core/model"
)

// StationFuel is the fuel mass dispensed at one station, weighted by route
// volume.
type StationFuel struct {
	Node   model.NodeID `json:"node_id"`
	FuelKg float64      `json:"dispensed_fuel"`
}

// Result holds the placement, the simulation trace and the fleet-wide
// statistics of one scenario.
type Result struct {
	Params    model.Params
	Placement location.Placement
	Trace     *model.Trace

	// DispensedByStation lists every chosen station in ascending node order.
	DispensedByStation []StationFuel
	DispensedFuel      float64
	// StartRangeKM and EndRangeKM are volume-weighted sums of onboard range.
	StartRangeKM float64
	EndRangeKM   float64
	StartFuel    float64
	EndFuel      float64
	Duration     time.Duration
}

// StationCount is the number of chosen stations.
func (r *Result) StationCount() int { return r.Placement.Stations.Len() }

// Optimal reports whether the placement is proven minimal.
func (r *Result) Optimal() bool { return r.Placement.Optimal() }

// ConsumedFuel is the fuel burnt en route: start + dispensed - end.
func (r *Result) ConsumedFuel() float64 {
	return r.StartFuel + r.DispensedFuel - r.EndFuel
}

// Status returns the metrics status label of the result.
func (r *Result) Status() string {
	if r.Optimal() {
		return metrics.StatusOptimal
	}
	return metrics.StatusLimit
}

// aggregate weights every path trace by its route volume and converts range
// to fuel mass with the scenario fuel economy.
func aggregate(p model.Params, placement location.Placement, trace *model.Trace, volume func(model.RouteID) float64) *Result {
	res := &Result{Params: p, Placement: placement, Trace: trace}
	byStation := make(map[model.NodeID]float64, placement.Stations.Len())
	for _, id := range placement.Stations.IDs() {
		byStation[id] = 0
	}
	for _, pt := range trace.Paths {
		vol := volume(pt.PathID)
		res.StartRangeKM += vol * pt.StartRange
		res.EndRangeKM += vol * pt.EndRemainingRange
		for _, ev := range pt.Refuels {
			fuel := vol * p.Fuel(ev.AmountKM)
			byStation[ev.Node] += fuel
			res.DispensedFuel += fuel
		}
	}
	res.StartFuel = p.Fuel(res.StartRangeKM)
	res.EndFuel = p.Fuel(res.EndRangeKM)
	res.DispensedByStation = make([]StationFuel, 0, len(byStation))
	for id, kg := range byStation {
		res.DispensedByStation = append(res.DispensedByStation, StationFuel{Node: id, FuelKg: kg})
	}
	sort.Slice(res.DispensedByStation, func(i, j int) bool {
		return res.DispensedByStation[i].Node < res.DispensedByStation[j].Node
	})
	return res
}
