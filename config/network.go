package config

import "fmt"

// NetworkConfig locates the road network dataset.
type NetworkConfig struct {
	// Dataset is a YAML file or a directory of CSV tables.
	Dataset string `json:"dataset"`
	// Format is "yaml" or "csv".
	Format   string `json:"format"`
	Directed bool   `json:"directed"`
}

// SetDefaults applies sane defaults.
func (c *NetworkConfig) SetDefaults() {
	if c.Format == "" {
		c.Format = "yaml"
	}
}

// Validate checks the dataset format. The dataset path may be given on the
// command line instead.
func (c NetworkConfig) Validate() error {
	if c.Format != "yaml" && c.Format != "csv" {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	return nil
}

// CoverageConfig tunes refuelling reach.
type CoverageConfig struct {
	// InclusiveReach lets a refuel cover nodes exactly full_range away.
	InclusiveReach bool `json:"inclusive_reach"`
}
