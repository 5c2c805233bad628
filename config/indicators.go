package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"macroNewsBot/internal/strategy"
)

// indicatorEntry is one row of the YAML decision table.
type indicatorEntry struct {
	Threshold      float64 `yaml:"threshold"`
	Offset         float64 `yaml:"offset"`
	Direct         bool    `yaml:"direct"`
	MaxHoldSeconds int     `yaml:"max_hold_seconds"`
}

type indicatorsFile struct {
	Indicators map[string]indicatorEntry `yaml:"indicators"`
}

// LoadIndicators reads the per-indicator decision table (threshold, offset,
// direction relation, max holding time) from a YAML file. An empty or
// unusable table is fatal: without it no release can be mapped to a leverage.
func LoadIndicators(path string) (strategy.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading indicators file %q: %w", path, err)
	}

	var file indicatorsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing indicators file %q: %w", path, err)
	}
	if len(file.Indicators) == 0 {
		return nil, fmt.Errorf("indicators file %q defines no indicators", path)
	}

	registry := make(strategy.Registry, len(file.Indicators))
	for name, entry := range file.Indicators {
		params := strategy.Params{
			Threshold: entry.Threshold,
			Offset:    entry.Offset,
			Direct:    entry.Direct,
			MaxHold:   time.Duration(entry.MaxHoldSeconds) * time.Second,
		}
		if err := params.Validate(); err != nil {
			return nil, fmt.Errorf("indicator %q: %w", name, err)
		}
		registry[name] = params
	}
	return registry, nil
}
