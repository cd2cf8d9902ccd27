package md

import (
	"context"
	"fmt"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/report"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

// Dynamics propagates rigid fragments in time
type Dynamics struct{}

// NewDynamics creates a new molecular dynamics run
func NewDynamics() simulation.Simulation {
	return &Dynamics{}
}

// Name returns the run type keyword
func (s *Dynamics) Name() string {
	return config.RunDynamics.String()
}

// Description returns the simulation description
func (s *Dynamics) Description() string {
	return "Rigid fragment molecular dynamics (velocity Verlet)"
}

// Run integrates max_steps steps and prints the state every print_step
// steps
func (s *Dynamics) Run(ctx context.Context, env *simulation.Env) error {
	cfg := env.Config
	if err := env.Printer.Geometry(env.Engine); err != nil {
		return err
	}

	in := &Integrator{
		TimeStep: cfg.TimeStep * FsToAu,
		Steps:    cfg.MaxSteps,
	}
	if cfg.Ensemble == config.EnsembleNVT {
		in.Thermostat = &Berendsen{
			Temperature: cfg.Temperature,
			Tau:         cfg.ThermostatTau * FsToAu,
		}
	}

	log := logger.WithFields(map[string]interface{}{
		"ensemble":  cfg.Ensemble.String(),
		"time_step": cfg.TimeStep,
	})
	log.Infof("Integrating %d steps", cfg.MaxSteps)

	in.OnStep = func(st State) error {
		env.Recorder.RecordEnergy(st.Step, st.Energy)
		env.Recorder.UpdateMetric("kinetic_energy", st.Step, st.Kinetic, "hartree")
		env.Recorder.UpdateMetric("total_energy", st.Step, st.Total(), "hartree")
		env.Recorder.UpdateMetric("temperature", st.Step, st.Temperature, "K")

		if st.Step%cfg.PrintStep != 0 && st.Step != cfg.MaxSteps {
			return nil
		}
		env.Recorder.LogStep(st.Step, "state printed", map[string]interface{}{
			"temperature": st.Temperature,
		})
		return s.print(env, st)
	}

	final, err := in.Run(ctx, env.Engine, InitialVelocities(cfg))
	if err != nil {
		return err
	}

	if err := env.Printer.Restart(env.Engine, final.Velocities); err != nil {
		return err
	}
	env.Recorder.Finish(final.Step, report.StatusCompleted,
		fmt.Sprintf("%d steps integrated, final temperature %.2f K", final.Step, final.Temperature))
	return nil
}

func (s *Dynamics) print(env *simulation.Env, st State) error {
	env.Printer.Status(fmt.Sprintf("STATE AFTER %d STEPS", st.Step),
		report.Pair{Key: "POTENTIAL ENERGY", Value: st.Energy.Total},
		report.Pair{Key: "KINETIC ENERGY", Value: st.Kinetic},
		report.Pair{Key: "TOTAL ENERGY", Value: st.Total()},
		report.Pair{Key: "TEMPERATURE (K)", Value: st.Temperature},
	)
	return env.Printer.Geometry(env.Engine)
}

// InitialVelocities collects the velocity blocks of the input, zero for
// fragments without one. It returns nil when no fragment has a velocity.
func InitialVelocities(cfg *config.Config) []float64 {
	var found bool
	v := make([]float64, cfg.NumCoordinates())
	for i, f := range cfg.Fragments {
		if f.HasVelocity() {
			copy(v[6*i:6*i+6], f.Velocity)
			found = true
		}
	}
	if !found {
		return nil
	}
	return v
}

// init registers the simulation
func init() {
	err := simulation.DefaultRegistry.Register(config.RunDynamics, NewDynamics)
	if err != nil {
		logger.Errorf("Failed to register simulation: %v", err)
		return
	}
}
