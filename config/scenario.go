package config

import (
	"fmt"

	"github.com/kilianp07/frlm/core/model"
)

// ScenarioConfig holds one parameter combination. Fields are pointers so
// that missing values are told apart from zeros.
type ScenarioConfig struct {
	FullRange *float64 `json:"full_range"`
	// StartRange takes precedence over StartRatio.
	StartRange  *float64 `json:"start_range"`
	StartRatio  *float64 `json:"start_ratio"`
	FuelEconomy *float64 `json:"fuel_economy"`
}

// Params resolves the scenario parameters. Missing values yield
// model.ErrMissingParam.
func (c ScenarioConfig) Params() (model.Params, error) {
	if c.FullRange == nil {
		return model.Params{}, fmt.Errorf("%w: full_range", model.ErrMissingParam)
	}
	if c.FuelEconomy == nil {
		return model.Params{}, fmt.Errorf("%w: fuel_economy", model.ErrMissingParam)
	}
	p := model.Params{FullRange: *c.FullRange, FuelEconomy: *c.FuelEconomy}
	switch {
	case c.StartRange != nil:
		p.StartRange = *c.StartRange
	case c.StartRatio != nil:
		if *c.StartRatio < 0 || *c.StartRatio > 1 {
			return model.Params{}, fmt.Errorf("%w: start_ratio=%v", model.ErrInvalidParam, *c.StartRatio)
		}
		p.StartRange = *c.StartRatio * p.FullRange
	default:
		return model.Params{}, fmt.Errorf("%w: start_range or start_ratio", model.ErrMissingParam)
	}
	if err := p.Validate(); err != nil {
		return model.Params{}, err
	}
	return p, nil
}
