package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrMissingParam is returned when a scenario parameter is absent.
	ErrMissingParam = errors.New("missing scenario parameter")
	// ErrInvalidParam is returned when a scenario parameter is out of range.
	ErrInvalidParam = errors.New("invalid scenario parameter")
)

// Params is one combination of scenario parameters. It is comparable and is
// used as the key of sweep results.
type Params struct {
	// FullRange is the distance a vehicle travels on a full tank, in km.
	FullRange float64 `json:"full_range"`
	// StartRange is the range on board at the origin of every trip, in km.
	StartRange float64 `json:"start_range"`
	// FuelEconomy converts range to fuel mass, in km per kg.
	FuelEconomy float64 `json:"fuel_economy"`
}

// Validate checks that every parameter is present and consistent.
func (p Params) Validate() error {
	if p.FullRange == 0 {
		return fmt.Errorf("%w: full_range", ErrMissingParam)
	}
	if p.FuelEconomy == 0 {
		return fmt.Errorf("%w: fuel_economy", ErrMissingParam)
	}
	for name, v := range map[string]float64{
		"full_range":   p.FullRange,
		"start_range":  p.StartRange,
		"fuel_economy": p.FuelEconomy,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidParam, name, v)
		}
	}
	if p.StartRange > p.FullRange {
		return fmt.Errorf("%w: start_range %v exceeds full_range %v", ErrInvalidParam, p.StartRange, p.FullRange)
	}
	return nil
}

// String renders the parameter tuple, e.g. "(800, 400, 14.5)".
func (p Params) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return "(" + f(p.FullRange) + ", " + f(p.StartRange) + ", " + f(p.FuelEconomy) + ")"
}

// Fuel converts a range in km to fuel mass.
func (p Params) Fuel(km float64) float64 { return km / p.FuelEconomy }
