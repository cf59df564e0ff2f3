package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/frlm/core/solver"
)

// SolverConfig bounds every placement solve.
type SolverConfig struct {
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	GapTolerance     float64 `json:"gap_tolerance"`
	MaxNodes         int     `json:"max_nodes"`
}

func (c SolverConfig) Validate() error {
	if c.TimeLimitSeconds < 0 {
		return fmt.Errorf("negative time limit %v", c.TimeLimitSeconds)
	}
	if c.GapTolerance < 0 || c.GapTolerance >= 1 {
		return fmt.Errorf("gap tolerance %v outside [0,1)", c.GapTolerance)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("negative node limit %d", c.MaxNodes)
	}
	return nil
}

// Limits converts the section into solver limits.
func (c SolverConfig) Limits() solver.Limits {
	return solver.Limits{
		TimeLimit:    time.Duration(c.TimeLimitSeconds * float64(time.Second)),
		GapTolerance: c.GapTolerance,
		MaxNodes:     c.MaxNodes,
	}
}
