package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	sim "github.com/inference-sim/smo-sim/sim"
)

// Scenario is a named preset in scenarios.yaml. Unset fields keep the
// value they already had, so a preset only needs to list what it changes.
type Scenario struct {
	Description    string   `yaml:"description"`
	TotalTicks     *int64   `yaml:"total_ticks,omitempty"`
	ArrivalRate    *float64 `yaml:"arrival_rate,omitempty"`
	ServiceMin     *int64   `yaml:"service_min,omitempty"`
	ServiceMax     *int64   `yaml:"service_max,omitempty"`
	QueueCapacity  *int     `yaml:"queue_capacity,omitempty"`
	NumChannels    *int     `yaml:"num_channels,omitempty"`
	TicksPerSecond *int64   `yaml:"ticks_per_second,omitempty"`
	Seed           *int64   `yaml:"seed,omitempty"`
}

// ScenarioFile represents the full scenarios.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type ScenarioFile struct {
	Version   string              `yaml:"version"`
	Scenarios map[string]Scenario `yaml:"scenarios"`
}

// LoadScenarios parses a scenarios file. Unknown keys are rejected so that
// typos in a preset fail loudly instead of silently keeping a default.
func LoadScenarios(path string) (*ScenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenarios file: %w", err)
	}
	var sf ScenarioFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sf); err != nil {
		return nil, fmt.Errorf("parsing scenarios file %s: %w", path, err)
	}
	return &sf, nil
}

// Lookup returns the named scenario or an error listing the known names.
func (sf *ScenarioFile) Lookup(name string) (Scenario, error) {
	if sc, ok := sf.Scenarios[name]; ok {
		return sc, nil
	}
	return Scenario{}, fmt.Errorf("unknown scenario %q; known: %v", name, sf.Names())
}

// Names returns the scenario names in sorted order.
func (sf *ScenarioFile) Names() []string {
	names := make([]string, 0, len(sf.Scenarios))
	for name := range sf.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply overlays the preset's set fields onto cfg.
func (sc Scenario) Apply(cfg sim.SimConfig) sim.SimConfig {
	if sc.TotalTicks != nil {
		cfg.TotalTicks = *sc.TotalTicks
	}
	if sc.ArrivalRate != nil {
		cfg.ArrivalRate = *sc.ArrivalRate
	}
	if sc.ServiceMin != nil {
		cfg.ServiceMin = *sc.ServiceMin
	}
	if sc.ServiceMax != nil {
		cfg.ServiceMax = *sc.ServiceMax
	}
	if sc.QueueCapacity != nil {
		cfg.QueueCapacity = *sc.QueueCapacity
	}
	if sc.NumChannels != nil {
		cfg.NumChannels = *sc.NumChannels
	}
	if sc.TicksPerSecond != nil {
		cfg.TicksPerSecond = *sc.TicksPerSecond
	}
	if sc.Seed != nil {
		cfg.Seed = *sc.Seed
	}
	return cfg
}
