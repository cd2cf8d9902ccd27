package grad

import (
	"context"
	"fmt"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/report"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

// Gradient computes the energy and its derivatives at the input geometry
type Gradient struct{}

// NewGradient creates a new gradient run
func NewGradient() simulation.Simulation {
	return &Gradient{}
}

// Name returns the run type keyword
func (s *Gradient) Name() string {
	return config.RunGradient.String()
}

// Description returns the simulation description
func (s *Gradient) Description() string {
	return "Energy and gradient of the input geometry"
}

// Run computes and prints the energy and the gradient
func (s *Gradient) Run(ctx context.Context, env *simulation.Env) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := env.Printer.Geometry(env.Engine); err != nil {
		return err
	}
	if err := env.Engine.Compute(true); err != nil {
		return fmt.Errorf("failed to compute energy: %w", err)
	}
	energy, err := env.Engine.Energy()
	if err != nil {
		return fmt.Errorf("failed to read energy: %w", err)
	}
	g := make([]float64, env.Config.NumCoordinates())
	if err := env.Engine.Gradient(g); err != nil {
		return fmt.Errorf("failed to read gradient: %w", err)
	}

	env.Printer.Energy(energy)
	env.Printer.Gradient(g)

	rms, max := simulation.GradientStats(g)
	env.Recorder.RecordEnergy(0, energy)
	env.Recorder.UpdateMetric("rms_gradient", 0, rms, "hartree/bohr")
	env.Recorder.UpdateMetric("max_gradient", 0, max, "hartree/bohr")
	env.Recorder.Finish(0, report.StatusCompleted, "gradient computed")
	return nil
}

// init registers the simulation
func init() {
	err := simulation.DefaultRegistry.Register(config.RunGradient, NewGradient)
	if err != nil {
		logger.Errorf("Failed to register simulation: %v", err)
		return
	}
}
