package metrics

import "github.com/kilianp07/frlm/core/factory"

// Config lists the sinks receiving planning outcomes.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}
