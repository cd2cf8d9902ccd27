package opt

import (
	"context"
	"fmt"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/report"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

// Optimization minimizes the energy with respect to fragment positions and
// orientations
type Optimization struct{}

// NewOptimization creates a new geometry optimization run
func NewOptimization() simulation.Simulation {
	return &Optimization{}
}

// Name returns the run type keyword
func (s *Optimization) Name() string {
	return config.RunOptimize.String()
}

// Description returns the simulation description
func (s *Optimization) Description() string {
	return "Geometry optimization by bounded L-BFGS"
}

// Run optimizes the geometry and prints the initial state and the state
// after every step
func (s *Optimization) Run(ctx context.Context, env *simulation.Env) error {
	cfg := env.Config
	c := &Controller{
		Tol:      cfg.OptTol,
		MaxSteps: cfg.MaxSteps,
		OnStep: func(rep StepReport) error {
			s.record(env.Recorder, rep)
			return s.print(env, rep)
		},
	}

	final, err := c.Run(ctx, env.Engine)
	if err != nil {
		return err
	}

	if final.Status == StatusStepLimitReached {
		logger.Warnf("Optimization did not converge in %d steps", final.Step)
		env.Recorder.Finish(final.Step, report.StatusStepLimitReached,
			fmt.Sprintf("maximum number of steps reached, max gradient %.3e", final.MaxGrad))
		return nil
	}

	logger.Successf("Optimization converged in %d steps", final.Step)
	env.Recorder.Finish(final.Step, report.StatusConverged,
		fmt.Sprintf("converged with max gradient %.3e", final.MaxGrad))
	return nil
}

func (s *Optimization) record(r *report.Recorder, rep StepReport) {
	r.RecordEnergy(rep.Step, rep.Energy)
	r.UpdateMetric("energy_change", rep.Step, rep.DeltaE, "hartree")
	r.UpdateMetric("rms_gradient", rep.Step, rep.RMSGrad, "hartree/bohr")
	r.UpdateMetric("max_gradient", rep.Step, rep.MaxGrad, "hartree/bohr")
	r.LogStep(rep.Step, rep.Status.String(), map[string]interface{}{
		"energy":      rep.Energy.Total,
		"evaluations": rep.Evals,
	})
}

func (s *Optimization) print(env *simulation.Env, rep StepReport) error {
	var title string
	switch rep.Status {
	case StatusInitial:
		title = "INITIAL STATE"
	case StatusConverged:
		title = "FINAL STATE"
	default:
		title = fmt.Sprintf("STATE AFTER %d STEPS", rep.Step)
	}

	env.Printer.Status(title,
		report.Pair{Key: "ENERGY CHANGE", Value: rep.DeltaE},
		report.Pair{Key: "RMS GRADIENT", Value: rep.RMSGrad},
		report.Pair{Key: "MAXIMUM GRADIENT", Value: rep.MaxGrad},
	)
	if err := env.Printer.Geometry(env.Engine); err != nil {
		return err
	}
	if err := env.Printer.Restart(env.Engine, nil); err != nil {
		return err
	}
	env.Printer.Energy(rep.Energy)
	return nil
}

// init registers the simulation
func init() {
	err := simulation.DefaultRegistry.Register(config.RunOptimize, NewOptimization)
	if err != nil {
		logger.Errorf("Failed to register simulation: %v", err)
		return
	}
}
