package config

import (
	"strings"

	"github.com/picogrid/fragment-simulations/pkg/potential"
)

// BohrRadius is the length of one bohr in angstrom.
const BohrRadius = 0.52917721092

// RunType selects the simulation procedure.
type RunType int

const (
	RunSinglePoint RunType = iota
	RunGradient
	RunHessian
	RunOptimize
	RunDynamics
)

func (r RunType) String() string {
	switch r {
	case RunSinglePoint:
		return "sp"
	case RunGradient:
		return "grad"
	case RunHessian:
		return "hess"
	case RunOptimize:
		return "opt"
	case RunDynamics:
		return "md"
	default:
		return "unknown"
	}
}

// Ensemble selects the dynamics ensemble.
type Ensemble int

const (
	EnsembleNVE Ensemble = iota
	EnsembleNVT
)

func (e Ensemble) String() string {
	if e == EnsembleNVT {
		return "nvt"
	}
	return "nve"
}

// HessAssemble selects what the Hessian run writes into the matrix.
type HessAssemble int

const (
	// HessAssembleOff evaluates every displaced gradient but leaves the
	// matrix zero.
	HessAssembleOff HessAssemble = iota
	// HessAssembleForward fills column i with (g_i - g0) / h.
	HessAssembleForward
)

// Fragment is one fragment instance read from the input.
type Fragment struct {
	Name string
	// Coord holds 6 (xyzabc) or 9 (points) values, lengths in bohr.
	Coord []float64
	// Velocity is nil unless the input carried a velocity block.
	Velocity []float64
}

// HasVelocity reports whether a velocity block was given.
func (f *Fragment) HasVelocity() bool {
	return f.Velocity != nil
}

// Config is the parsed simulation input.
type Config struct {
	RunType     RunType
	CoordType   potential.CoordType
	UnitsFactor float64
	Terms       potential.Terms
	ElecDamp    potential.ElecDamp
	DispDamp    potential.DispDamp
	PolDamp     potential.PolDamp

	HessDelta    float64
	HessAssemble HessAssemble
	MaxSteps     int
	PrintStep    int
	OptTol       float64

	Temperature   float64
	TimeStep      float64
	ThermostatTau float64
	Ensemble      Ensemble

	EnablePBC    bool
	PeriodicBox  [3]float64
	EnableCutoff bool
	SwfCutoff    float64

	FraglibPath string
	UserlibPath string

	Fragments []Fragment
}

// EngineOptions returns the global engine settings selected by the input.
func (c *Config) EngineOptions() potential.Options {
	return potential.Options{
		Terms:        c.Terms,
		ElecDamp:     c.ElecDamp,
		DispDamp:     c.DispDamp,
		PolDamp:      c.PolDamp,
		EnablePBC:    c.EnablePBC,
		EnableCutoff: c.EnableCutoff,
		SwfCutoff:    c.SwfCutoff,
	}
}

// NumCoordinates is the length of the generalized coordinate vector.
func (c *Config) NumCoordinates() int {
	return 6 * len(c.Fragments)
}

// AddFragment appends a fragment whose coordinates are given in the
// configured input units.
func (c *Config) AddFragment(name string, coord []float64) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ErrFragmentName
	}
	if len(coord) != c.CoordType.Size() {
		return ErrFragmentCoords
	}

	f := Fragment{Name: name, Coord: append([]float64(nil), coord...)}
	c.toBohr(f.Coord)
	c.Fragments = append(c.Fragments, f)
	return nil
}

// toBohr scales the length components of coord by the unit factor. Euler
// angles stay in radians.
func (c *Config) toBohr(coord []float64) {
	lengths := coord
	if c.CoordType != potential.CoordPoints {
		lengths = coord[:3]
	}
	for i := range lengths {
		lengths[i] *= c.UnitsFactor
	}
}
