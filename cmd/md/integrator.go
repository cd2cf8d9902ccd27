package md

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

// Unit conversions to atomic units.
const (
	AmuToAu     = 1822.888486
	FsToAu      = 41.341373336
	BoltzmannAu = 3.166811563e-6 // hartree per kelvin
)

// ErrBadTimeStep means the time step is not positive.
var ErrBadTimeStep = errors.New("time step must be positive")

// State is the phase-space point after a step.
type State struct {
	Step        int
	Energy      potential.Energy
	Kinetic     float64
	Temperature float64
	Velocities  []float64
}

// Total is the potential plus kinetic energy.
func (s State) Total() float64 {
	return s.Energy.Total + s.Kinetic
}

// Integrator advances generalized coordinates with velocity Verlet. All
// quantities are atomic units. Translations move with the fragment mass and
// Euler angles with the mean principal moment of inertia.
type Integrator struct {
	TimeStep float64
	Steps    int

	// Thermostat rescales velocities after each step when set.
	Thermostat *Berendsen

	// OnStep is called with the state after every step. A returned error
	// stops the run.
	OnStep func(State) error
}

// Berendsen couples the system to a heat bath at Temperature with time
// constant Tau.
type Berendsen struct {
	Temperature float64
	Tau         float64
}

// Scale returns the velocity scaling factor for one step of length dt at
// instantaneous temperature t.
func (b *Berendsen) Scale(t, dt float64) float64 {
	if t <= 0 {
		return 1
	}
	s := 1 + dt/b.Tau*(b.Temperature/t-1)
	if s < 0 {
		return 0
	}
	return math.Sqrt(s)
}

// Masses returns the inertial weight of every generalized coordinate.
func Masses(e potential.Engine) ([]float64, error) {
	n := e.FragmentCount()
	m := make([]float64, 6*n)
	for i := 0; i < n; i++ {
		mass, err := e.FragmentMass(i)
		if err != nil {
			return nil, fmt.Errorf("fragment %d mass: %w", i+1, err)
		}
		inertia, err := e.FragmentInertia(i)
		if err != nil {
			return nil, fmt.Errorf("fragment %d inertia: %w", i+1, err)
		}
		mean := (inertia[0] + inertia[1] + inertia[2]) / 3
		for k := 0; k < 3; k++ {
			m[6*i+k] = mass * AmuToAu
			m[6*i+3+k] = mean * AmuToAu
		}
	}
	return m, nil
}

// Kinetic returns the kinetic energy and temperature of velocities v.
func Kinetic(m, v []float64) (ke, temperature float64) {
	for i := range v {
		ke += 0.5 * m[i] * v[i] * v[i]
	}
	if len(v) == 0 {
		return 0, 0
	}
	return ke, 2 * ke / (float64(len(v)) * BoltzmannAu)
}

// Run integrates Steps steps from the engine geometry and velocities v0,
// which may be nil for a system at rest. On success the engine holds the
// last geometry; on error it is put back where it started.
func (in *Integrator) Run(ctx context.Context, e potential.Engine, v0 []float64) (_ State, err error) {
	if !(in.TimeStep > 0) {
		return State{}, fmt.Errorf("%w: %g", ErrBadTimeStep, in.TimeStep)
	}

	m, err := Masses(e)
	if err != nil {
		return State{}, err
	}
	for i, mi := range m {
		if !(mi > 0) {
			return State{}, fmt.Errorf("coordinate %d has non-positive mass %g", i+1, mi)
		}
	}

	lease, err := simulation.Checkout(e)
	if err != nil {
		return State{}, err
	}
	defer func() {
		if cerr := lease.Checkin(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	n := lease.Dim()
	v := make([]float64, n)
	if v0 != nil {
		if len(v0) != n {
			return State{}, fmt.Errorf("%w: %d velocities for %d coordinates", simulation.ErrDimensionMismatch, len(v0), n)
		}
		copy(v, v0)
	}

	x := lease.Saved()
	g := make([]float64, n)
	energy, err := lease.Evaluate(x, g)
	if err != nil {
		return State{}, fmt.Errorf("initial evaluation: %w", err)
	}

	dt := in.TimeStep
	var st State
	for step := 1; step <= in.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		kick(v, g, m, dt/2)
		floats.AddScaled(x, dt, v)

		energy, err = lease.Evaluate(x, g)
		if err != nil {
			return st, fmt.Errorf("step %d: %w", step, err)
		}
		kick(v, g, m, dt/2)

		ke, temp := Kinetic(m, v)
		if in.Thermostat != nil {
			floats.Scale(in.Thermostat.Scale(temp, dt), v)
			ke, temp = Kinetic(m, v)
		}

		st = State{
			Step:        step,
			Energy:      energy,
			Kinetic:     ke,
			Temperature: temp,
			Velocities:  append([]float64(nil), v...),
		}
		if in.OnStep != nil {
			if err := in.OnStep(st); err != nil {
				return st, err
			}
		}
	}

	if in.Steps <= 0 {
		ke, temp := Kinetic(m, v)
		st = State{Energy: energy, Kinetic: ke, Temperature: temp, Velocities: v}
	}
	lease.Keep()
	return st, nil
}

// kick advances v by dt under the force -g.
func kick(v, g, m []float64, dt float64) {
	for i := range v {
		v[i] -= dt * g[i] / m[i]
	}
}
