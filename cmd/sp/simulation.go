package sp

import (
	"context"
	"fmt"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/report"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

// SinglePoint computes the energy of the input geometry
type SinglePoint struct{}

// NewSinglePoint creates a new single point run
func NewSinglePoint() simulation.Simulation {
	return &SinglePoint{}
}

// Name returns the run type keyword
func (s *SinglePoint) Name() string {
	return config.RunSinglePoint.String()
}

// Description returns the simulation description
func (s *SinglePoint) Description() string {
	return "Energy of the input geometry"
}

// Run computes and prints the energy components
func (s *SinglePoint) Run(ctx context.Context, env *simulation.Env) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := env.Printer.Geometry(env.Engine); err != nil {
		return err
	}
	if err := env.Engine.Compute(false); err != nil {
		return fmt.Errorf("failed to compute energy: %w", err)
	}
	energy, err := env.Engine.Energy()
	if err != nil {
		return fmt.Errorf("failed to read energy: %w", err)
	}

	env.Printer.Energy(energy)
	env.Recorder.RecordEnergy(0, energy)
	env.Recorder.Finish(0, report.StatusCompleted, "single point energy computed")
	return nil
}

// init registers the simulation
func init() {
	err := simulation.DefaultRegistry.Register(config.RunSinglePoint, NewSinglePoint)
	if err != nil {
		logger.Errorf("Failed to register simulation: %v", err)
		return
	}
}
