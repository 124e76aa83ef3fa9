package app

import (
	"errors"
	"fmt"
)

// Solver backends.
const (
	SolverBounded = "bounded"
	SolverGonum   = "gonum"
)

// Output formats for solve reports.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	NetworkPath string // .hcl or .yaml file, or a directory of them
	UpdatesPath string // optional recorded cycles, YAML

	LogFormat string
	LogLevel  string
	Output    string
	// ColdStart disables basis reuse between cycles.
	ColdStart bool
	// Solver names the LP backend, SolverBounded by default.
	Solver string
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.NetworkPath == "" {
		return nil, errors.New("NetworkPath is a required configuration field and cannot be empty")
	}
	switch cfg.Output {
	case "":
		cfg.Output = OutputText
	case OutputText, OutputJSON, OutputYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Output)
	}
	switch cfg.Solver {
	case "":
		cfg.Solver = SolverBounded
	case SolverBounded, SolverGonum:
	default:
		return nil, fmt.Errorf("unknown solver %q", cfg.Solver)
	}
	return &cfg, nil
}
