package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/kilianp07/frlm/core/logger"
	"github.com/kilianp07/frlm/core/model"
)

// SweepConfig lists the scenarios of a sweep, explicitly or as a grid.
type SweepConfig struct {
	Workers   int              `json:"workers"`
	Scenarios []ScenarioConfig `json:"scenarios"`
	Grid      GridConfig       `json:"grid"`
}

// GridConfig spans the cartesian product of its value lists. Start ranges
// are given either in km or as ratios of full range.
type GridConfig struct {
	FullRanges    []float64 `json:"full_ranges"`
	StartRanges   []float64 `json:"start_ranges"`
	StartRatios   []float64 `json:"start_ratios"`
	FuelEconomies []float64 `json:"fuel_economies"`
}

// Empty reports whether no grid is configured.
func (g GridConfig) Empty() bool {
	return len(g.FullRanges) == 0 && len(g.StartRanges) == 0 && len(g.StartRatios) == 0 && len(g.FuelEconomies) == 0
}

// SetDefaults applies sane defaults.
func (c *SweepConfig) SetDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Validate checks the grid shape.
func (c SweepConfig) Validate() error {
	if c.Grid.Empty() {
		return nil
	}
	g := c.Grid
	if len(g.StartRanges) > 0 && len(g.StartRatios) > 0 {
		return errors.New("grid: start_ranges and start_ratios are exclusive")
	}
	if len(g.FullRanges) == 0 || len(g.FuelEconomies) == 0 || len(g.StartRanges)+len(g.StartRatios) == 0 {
		return fmt.Errorf("grid: %w: full_ranges, start_ranges|start_ratios and fuel_economies are required", model.ErrMissingParam)
	}
	return nil
}

// Params returns the explicit scenarios followed by the grid combinations.
// Grid combinations starting with more than a full tank are skipped.
func (c SweepConfig) Params(log logger.Logger) ([]model.Params, error) {
	if log == nil {
		log = logger.Nop{}
	}
	var out []model.Params
	for i, s := range c.Scenarios {
		p, err := s.Params()
		if err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i, err)
		}
		out = append(out, p)
	}
	if c.Grid.Empty() {
		return out, nil
	}
	g := c.Grid
	for _, full := range g.FullRanges {
		starts := g.StartRanges
		if len(g.StartRatios) > 0 {
			starts = make([]float64, len(g.StartRatios))
			for i, r := range g.StartRatios {
				starts[i] = r * full
			}
		}
		for _, start := range starts {
			for _, eco := range g.FuelEconomies {
				p := model.Params{FullRange: full, StartRange: start, FuelEconomy: eco}
				if start > full {
					log.Warnf("grid: skipping %s, start range exceeds full range", p)
					continue
				}
				if err := p.Validate(); err != nil {
					return nil, fmt.Errorf("grid %s: %w", p, err)
				}
				out = append(out, p)
			}
		}
	}
	return out, nil
}
