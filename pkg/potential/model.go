package potential

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Model is a rigid-fragment engine built from YAML potential files. It
// evaluates point-charge electrostatics, isotropic polarization, C6
// dispersion and exponential exchange repulsion between fragments.
type Model struct {
	opts       Options
	box        r3.Vec
	potentials map[string]*Potential
	frags      []*fragment

	energy       Energy
	grad         []float64
	haveEnergy   bool
	haveGradient bool
}

type fragment struct {
	pot    *Potential
	center r3.Vec
	euler  [3]float64
	rot    rotation
	sites  []r3.Vec
}

func (f *fragment) place() {
	f.rot = eulerMatrix(f.euler[0], f.euler[1], f.euler[2])
	for i, l := range f.pot.local {
		f.sites[i] = r3.Add(f.center, f.rot.apply(l))
	}
}

// NewModel returns an engine with every term enabled and default damping.
func NewModel() *Model {
	return &Model{
		opts: Options{
			Terms:     TermElec | TermPol | TermDisp | TermXR,
			SwfCutoff: 10,
		},
		potentials: make(map[string]*Potential),
	}
}

func (m *Model) SetOptions(opts Options) error {
	if len(m.frags) > 0 {
		return ErrOptionsLocked
	}
	m.opts = opts
	m.invalidate()
	return nil
}

func (m *Model) AddPotential(path string) error {
	pot, err := LoadPotential(path)
	if err != nil {
		return err
	}
	return m.Register(pot)
}

// Register adds an already decoded potential.
func (m *Model) Register(pot *Potential) error {
	if _, ok := m.potentials[pot.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePotential, pot.Name)
	}
	m.potentials[pot.Name] = pot
	return nil
}

func (m *Model) lookup(name string) (*Potential, bool) {
	if pot, ok := m.potentials[name]; ok {
		return pot, true
	}
	// library fragments may be registered without their _l suffix
	if trimmed := strings.TrimSuffix(name, "_l"); trimmed != name {
		pot, ok := m.potentials[trimmed]
		return pot, ok
	}
	return nil, false
}

func (m *Model) AddFragment(name string) error {
	pot, ok := m.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFragment, name)
	}

	f := &fragment{pot: pot, sites: make([]r3.Vec, len(pot.local))}
	f.place()
	m.frags = append(m.frags, f)
	m.invalidate()
	return nil
}

func (m *Model) SetPeriodicBox(x, y, z float64) error {
	if x <= 0 || y <= 0 || z <= 0 {
		return fmt.Errorf("periodic box dimensions must be positive")
	}
	m.box = r3.Vec{X: x, Y: y, Z: z}
	m.invalidate()
	return nil
}

func (m *Model) SetFragmentCoordinates(i int, ct CoordType, coord []float64) error {
	if i < 0 || i >= len(m.frags) {
		return ErrBadFragmentIndex
	}
	if len(coord) != ct.Size() {
		return ErrBadCoordinates
	}

	f := m.frags[i]
	switch ct {
	case CoordXYZABC:
		f.center = r3.Vec{X: coord[0], Y: coord[1], Z: coord[2]}
		f.euler = [3]float64{coord[3], coord[4], coord[5]}
	case CoordPoints:
		if len(f.pot.local) < 3 {
			return fmt.Errorf("%w: %s has fewer than 3 sites", ErrDegeneratePoints, f.pot.Name)
		}
		ref := [3]r3.Vec{f.pot.local[0], f.pot.local[1], f.pot.local[2]}
		pts := [3]r3.Vec{
			{X: coord[0], Y: coord[1], Z: coord[2]},
			{X: coord[3], Y: coord[4], Z: coord[5]},
			{X: coord[6], Y: coord[7], Z: coord[8]},
		}
		xyzabc, err := pointsToXYZABC(ref, pts)
		if err != nil {
			return fmt.Errorf("fragment %d: %w", i, err)
		}
		f.center = r3.Vec{X: xyzabc[0], Y: xyzabc[1], Z: xyzabc[2]}
		f.euler = [3]float64{xyzabc[3], xyzabc[4], xyzabc[5]}
	default:
		return fmt.Errorf("unsupported coordinate type %d", ct)
	}

	f.place()
	m.invalidate()
	return nil
}

func (m *Model) SetCoordinates(ct CoordType, coord []float64) error {
	n := ct.Size()
	if len(coord) != n*len(m.frags) {
		return ErrBadCoordinates
	}
	for i := range m.frags {
		if err := m.SetFragmentCoordinates(i, ct, coord[n*i:n*(i+1)]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) Coordinates(out []float64) error {
	if len(out) != 6*len(m.frags) {
		return ErrBadCoordinates
	}
	for i, f := range m.frags {
		out[6*i+0] = f.center.X
		out[6*i+1] = f.center.Y
		out[6*i+2] = f.center.Z
		out[6*i+3] = f.euler[0]
		out[6*i+4] = f.euler[1]
		out[6*i+5] = f.euler[2]
	}
	return nil
}

func (m *Model) Compute(gradient bool) error {
	if len(m.frags) == 0 {
		return ErrNoFragments
	}

	e := newEvaluation(m, gradient)
	e.run()

	m.energy = e.energy
	m.haveEnergy = true
	m.haveGradient = gradient
	if gradient {
		m.grad = e.generalized()
	}
	return nil
}

func (m *Model) Energy() (Energy, error) {
	if !m.haveEnergy {
		return Energy{}, ErrNotComputed
	}
	return m.energy, nil
}

func (m *Model) Gradient(out []float64) error {
	if !m.haveGradient {
		return ErrNotComputed
	}
	if len(out) != len(m.grad) {
		return ErrBadCoordinates
	}
	copy(out, m.grad)
	return nil
}

func (m *Model) FragmentCount() int {
	return len(m.frags)
}

func (m *Model) FragmentName(i int) (string, error) {
	if i < 0 || i >= len(m.frags) {
		return "", ErrBadFragmentIndex
	}
	return m.frags[i].pot.Name, nil
}

func (m *Model) FragmentMass(i int) (float64, error) {
	if i < 0 || i >= len(m.frags) {
		return 0, ErrBadFragmentIndex
	}
	return m.frags[i].pot.Mass(), nil
}

func (m *Model) FragmentInertia(i int) ([3]float64, error) {
	if i < 0 || i >= len(m.frags) {
		return [3]float64{}, ErrBadFragmentIndex
	}
	return m.frags[i].pot.Inertia()
}

// Close releases the engine. The model holds no external resources.
func (m *Model) Close() error {
	m.frags = nil
	m.potentials = nil
	m.invalidate()
	return nil
}

func (m *Model) invalidate() {
	m.haveEnergy = false
	m.haveGradient = false
}
