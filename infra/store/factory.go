// Package store persists scenario records so sweeps can be compared across
// runs. Backends are selected by type name through New.
package store

import (
	"fmt"

	"github.com/kilianp07/frlm/core/factory"
	"github.com/kilianp07/frlm/core/scenario"
)

var registry = factory.NewRegistry[scenario.Store]()

func init() {
	_ = registry.Register("jsonl", func(conf map[string]any) (scenario.Store, error) {
		path, err := decodePath(conf)
		if err != nil {
			return nil, err
		}
		return NewJSONLStore(path)
	})
	_ = registry.Register("sqlite", func(conf map[string]any) (scenario.Store, error) {
		path, err := decodePath(conf)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(path)
	})
}

func decodePath(conf map[string]any) (string, error) {
	var c struct {
		Path string `json:"path"`
	}
	if err := factory.Decode(conf, &c); err != nil {
		return "", err
	}
	if c.Path == "" {
		return "", fmt.Errorf("store: path is required")
	}
	return c.Path, nil
}

// New opens the store backend named by cfg.Type.
func New(cfg factory.ModuleConfig) (scenario.Store, error) {
	return registry.Create(cfg)
}
