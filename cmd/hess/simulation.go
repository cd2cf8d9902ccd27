package hess

import (
	"context"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/report"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

// Hessian computes second derivatives by displacing every coordinate
type Hessian struct{}

// NewHessian creates a new Hessian run
func NewHessian() simulation.Simulation {
	return &Hessian{}
}

// Name returns the run type keyword
func (s *Hessian) Name() string {
	return config.RunHessian.String()
}

// Description returns the simulation description
func (s *Hessian) Description() string {
	return "Finite difference Hessian of the input geometry"
}

// Run assembles and prints the Hessian
func (s *Hessian) Run(ctx context.Context, env *simulation.Env) error {
	if err := env.Printer.Geometry(env.Engine); err != nil {
		return err
	}

	n := 6 * env.Engine.FragmentCount()
	bar := logger.NewProgressBar(n, "Displacing coordinates")
	a := &Assembler{
		Delta: env.Config.HessDelta,
		Fill:  env.Config.HessAssemble == config.HessAssembleForward,
		Progress: func(done, total int) {
			bar.Increment()
			env.Recorder.LogStep(done, "coordinate displaced", map[string]interface{}{"total": total})
		},
	}

	res, err := a.Assemble(ctx, env.Engine)
	bar.Finish()
	if err != nil {
		return err
	}

	env.Printer.Energy(res.Energy)
	env.Printer.Gradient(res.Gradient)
	env.Printer.Matrix("HESSIAN (ATOMIC UNITS)", res.Hessian)
	env.Recorder.RecordEnergy(0, res.Energy)

	if !a.Fill {
		logger.Warn("hess_assemble is off: displacements were evaluated but the matrix was not filled")
		env.Recorder.Finish(n, report.StatusCompleted, "displacements evaluated, matrix not assembled")
		return nil
	}

	asym := Asymmetry(res.Hessian)
	env.Recorder.UpdateMetric("hessian_asymmetry", n, asym, "hartree/bohr^2")
	logger.Debugf("Largest Hessian asymmetry: %.3e", asym)

	values, err := Eigenvalues(res.Hessian)
	if err != nil {
		logger.Warnf("Skipping eigenvalues: %v", err)
	} else {
		env.Printer.Vector("HESSIAN EIGENVALUES (ATOMIC UNITS)", values)
	}

	env.Recorder.Finish(n, report.StatusCompleted, "Hessian assembled")
	return nil
}

// init registers the simulation
func init() {
	err := simulation.DefaultRegistry.Register(config.RunHessian, NewHessian)
	if err != nil {
		logger.Errorf("Failed to register simulation: %v", err)
		return
	}
}
