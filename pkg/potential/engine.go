package potential

import "errors"

// CoordType selects how fragment positions are expressed.
type CoordType int

const (
	// CoordXYZABC is a center of mass followed by three Euler angles (zyz).
	CoordXYZABC CoordType = iota
	// CoordPoints is three points matched to the first three fragment atoms.
	CoordPoints
)

// Size returns the number of scalars describing one fragment.
func (c CoordType) Size() int {
	if c == CoordPoints {
		return 9
	}
	return 6
}

func (c CoordType) String() string {
	switch c {
	case CoordXYZABC:
		return "xyzabc"
	case CoordPoints:
		return "points"
	default:
		return "unknown"
	}
}

// Terms is a bit-set of enabled interaction terms.
type Terms uint

const (
	TermElec Terms = 1 << iota
	TermPol
	TermDisp
	TermXR
)

// Has reports whether every bit of t is enabled.
func (s Terms) Has(t Terms) bool {
	return s&t == t
}

// ElecDamp selects the electrostatic damping model.
type ElecDamp int

const (
	ElecDampScreen ElecDamp = iota
	ElecDampOverlap
	ElecDampOff
)

// DispDamp selects the dispersion damping model.
type DispDamp int

const (
	DispDampTT DispDamp = iota
	DispDampOverlap
	DispDampOff
)

// PolDamp selects the polarization damping model.
type PolDamp int

const (
	PolDampTT PolDamp = iota
	PolDampOff
)

// Options are the global engine settings.
type Options struct {
	Terms        Terms
	ElecDamp     ElecDamp
	DispDamp     DispDamp
	PolDamp      PolDamp
	EnablePBC    bool
	EnableCutoff bool
	SwfCutoff    float64
}

// Energy holds the result of the last compute pass, in hartree.
type Energy struct {
	Electrostatic     float64 `yaml:"electrostatic" json:"electrostatic"`
	Polarization      float64 `yaml:"polarization" json:"polarization"`
	Dispersion        float64 `yaml:"dispersion" json:"dispersion"`
	ExchangeRepulsion float64 `yaml:"exchange_repulsion" json:"exchange_repulsion"`
	Total             float64 `yaml:"total" json:"total"`
}

// Engine is the contract a fragment potential implementation must satisfy.
// Quantities read after Compute are valid only for the most recently set
// geometry.
type Engine interface {
	// SetOptions sets global options. It must be called before fragments
	// are added.
	SetOptions(opts Options) error

	// AddPotential registers the fragment parameters stored at path.
	AddPotential(path string) error

	// AddFragment appends an instance of a registered fragment type.
	AddFragment(name string) error

	// SetPeriodicBox sets the box dimensions used when PBC is enabled.
	SetPeriodicBox(x, y, z float64) error

	// SetFragmentCoordinates positions fragment i.
	SetFragmentCoordinates(i int, ct CoordType, coord []float64) error

	// SetCoordinates positions every fragment at once.
	SetCoordinates(ct CoordType, coord []float64) error

	// Coordinates writes 6 scalars (center, Euler angles) per fragment to out.
	Coordinates(out []float64) error

	// Compute evaluates the energy, and the gradient when gradient is true.
	Compute(gradient bool) error

	// Energy returns the energies of the last compute pass.
	Energy() (Energy, error)

	// Gradient writes the derivative of the total energy with respect to
	// each generalized coordinate to out.
	Gradient(out []float64) error

	FragmentCount() int
	FragmentName(i int) (string, error)

	// FragmentMass returns the mass of fragment i in amu.
	FragmentMass(i int) (float64, error)

	// FragmentInertia returns the principal moments of inertia of fragment
	// i in amu*bohr^2, ascending.
	FragmentInertia(i int) ([3]float64, error)

	Close() error
}

var (
	ErrUnknownFragment    = errors.New("unknown fragment type")
	ErrBadFragmentIndex   = errors.New("fragment index out of range")
	ErrBadCoordinates     = errors.New("wrong number of coordinates")
	ErrNoFragments        = errors.New("no fragments added")
	ErrDegeneratePoints   = errors.New("points do not define a frame")
	ErrNotComputed        = errors.New("requested quantity has not been computed")
	ErrDuplicatePotential = errors.New("potential already registered")
	ErrBadPotential       = errors.New("malformed potential file")
	ErrOptionsLocked      = errors.New("options cannot change after fragments are added")
)
