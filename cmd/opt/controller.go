package opt

import (
	"context"
	"fmt"
	"math"

	"github.com/picogrid/fragment-simulations/pkg/optimizer"
	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

// Status is the state of a geometry optimization.
type Status int

const (
	StatusInitial Status = iota
	StatusStepping
	StatusConverged
	StatusStepLimitReached
)

func (s Status) String() string {
	switch s {
	case StatusInitial:
		return "initial"
	case StatusStepping:
		return "stepping"
	case StatusConverged:
		return "converged"
	case StatusStepLimitReached:
		return "step_limit_reached"
	default:
		return "unknown"
	}
}

// Converged reports whether the gradient satisfies the tolerance: the
// largest component below tol and the RMS below tol/3, both strictly.
func Converged(max, rms, tol float64) bool {
	return math.Abs(max) < tol && math.Abs(rms) < tol/3
}

// Bounds constrains the second Euler angle of each fragment to [0, pi] and
// leaves every other coordinate free.
func Bounds(fragments int) ([]optimizer.BoundKind, []float64, []float64) {
	n := 6 * fragments
	kinds := make([]optimizer.BoundKind, n)
	lower := make([]float64, n)
	upper := make([]float64, n)
	for k := 0; k < fragments; k++ {
		kinds[6*k+4] = optimizer.BothBounds
		upper[6*k+4] = math.Pi
	}
	return kinds, lower, upper
}

// StepReport describes the geometry after one optimizer step.
type StepReport struct {
	Step    int
	Status  Status
	Energy  potential.Energy
	DeltaE  float64
	RMSGrad float64
	MaxGrad float64
	Evals   int
}

// Controller drives the optimizer against an engine until the gradient
// converges or MaxSteps is reached.
type Controller struct {
	Tol      float64
	MaxSteps int

	// OnStep is called once with the initial state and then after every
	// step, including the last one whose status is final. A returned error
	// stops the optimization.
	OnStep func(StepReport) error
}

// Run minimizes the energy starting from the engine's geometry. On success
// the engine holds the final geometry; on error it is put back where it
// started.
func (c *Controller) Run(ctx context.Context, e potential.Engine) (_ StepReport, err error) {
	lease, err := simulation.Checkout(e)
	if err != nil {
		return StepReport{}, err
	}
	defer func() {
		if cerr := lease.Checkin(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	n := lease.Dim()
	state, err := optimizer.New(n)
	if err != nil {
		return StepReport{}, err
	}
	defer state.Close()

	kinds, lower, upper := Bounds(n / 6)
	if err := state.SetBounds(kinds, lower, upper); err != nil {
		return StepReport{}, err
	}

	var current potential.Energy
	state.SetFunc(func(x, g []float64) (float64, error) {
		en, err := lease.Evaluate(x, g)
		if err != nil {
			return 0, err
		}
		current = en
		return en.Total, nil
	})

	if err := state.Init(lease.Saved()); err != nil {
		return StepReport{}, fmt.Errorf("initial evaluation: %w", err)
	}

	g := make([]float64, n)
	if err := state.Gx(g); err != nil {
		return StepReport{}, err
	}
	rms, max := simulation.GradientStats(g)
	rep := StepReport{
		Status:  StatusInitial,
		Energy:  current,
		RMSGrad: rms,
		MaxGrad: max,
		Evals:   state.Evaluations(),
	}
	if c.OnStep != nil {
		if err := c.OnStep(rep); err != nil {
			return rep, err
		}
	}

	previous := state.Fx()
	for step := 1; ; step++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := state.Step(); err != nil {
			return rep, fmt.Errorf("step %d: %w", step, err)
		}
		if err := state.Gx(g); err != nil {
			return rep, err
		}

		rms, max = simulation.GradientStats(g)
		rep = StepReport{
			Step:    step,
			Status:  StatusStepping,
			Energy:  current,
			DeltaE:  state.Fx() - previous,
			RMSGrad: rms,
			MaxGrad: max,
			Evals:   state.Evaluations(),
		}
		previous = state.Fx()

		switch {
		case Converged(max, rms, c.Tol):
			rep.Status = StatusConverged
		case step >= c.MaxSteps:
			rep.Status = StatusStepLimitReached
		}

		if c.OnStep != nil {
			if err := c.OnStep(rep); err != nil {
				return rep, err
			}
		}
		if rep.Status != StatusStepping {
			lease.Keep()
			return rep, nil
		}
	}
}
