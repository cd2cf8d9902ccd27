package simulation

import (
	"context"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/report"
)

// Env is what a run mode works with: an engine already holding every
// fragment of the input, the parsed input, and the output sinks.
type Env struct {
	Engine   potential.Engine
	Config   *config.Config
	Printer  *report.Printer
	Recorder *report.Recorder
}

// Simulation defines the interface that all run modes must implement
type Simulation interface {
	// Name returns the run_type keyword of the mode
	Name() string

	// Description returns a brief description of what the mode does
	Description() string

	// Run executes the mode. The context is checked between engine
	// evaluations, never during one.
	Run(ctx context.Context, env *Env) error
}
