package metrics

import "github.com/kilianp07/bessarb/core/factory"

// Config defines the result sinks of a run.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}
