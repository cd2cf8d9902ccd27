// Package potentialtest provides an analytic stand-in for a potential
// engine.
package potentialtest

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/picogrid/fragment-simulations/pkg/potential"
)

// ErrInjected is returned by Compute once FailAt is reached.
var ErrInjected = errors.New("injected compute failure")

// Quadratic is an engine with energy 1/2 (x-m)^T H (x-m) over the
// generalized coordinates. H defaults to the identity and m to zero.
type Quadratic struct {
	Hessian *mat.SymDense
	Minimum []float64

	// FailAt makes the FailAt-th call to Compute fail when positive.
	FailAt int

	Options   potential.Options
	Paths     []string
	Names     []string
	Box       [3]float64
	Computes  int
	Pushes    int
	mass      float64
	inertia   [3]float64
	x         []float64
	energy    float64
	grad      []float64
	hasEnergy bool
	hasGrad   bool
}

// New returns an engine holding n fragments named "frag".
func New(n int) *Quadratic {
	q := &Quadratic{mass: 18, inertia: [3]float64{1, 2, 3}}
	for i := 0; i < n; i++ {
		_ = q.AddFragment("frag")
	}
	return q
}

func (q *Quadratic) SetOptions(opts potential.Options) error {
	q.Options = opts
	return nil
}

func (q *Quadratic) AddPotential(path string) error {
	q.Paths = append(q.Paths, path)
	return nil
}

func (q *Quadratic) AddFragment(name string) error {
	q.Names = append(q.Names, name)
	q.x = append(q.x, make([]float64, 6)...)
	q.invalidate()
	return nil
}

func (q *Quadratic) SetPeriodicBox(x, y, z float64) error {
	q.Box = [3]float64{x, y, z}
	return nil
}

func (q *Quadratic) SetFragmentCoordinates(i int, ct potential.CoordType, coord []float64) error {
	if i < 0 || i >= len(q.Names) {
		return potential.ErrBadFragmentIndex
	}
	if ct != potential.CoordXYZABC {
		return fmt.Errorf("quadratic engine only accepts xyzabc coordinates")
	}
	if len(coord) != 6 {
		return potential.ErrBadCoordinates
	}
	copy(q.x[6*i:], coord)
	q.Pushes++
	q.invalidate()
	return nil
}

func (q *Quadratic) SetCoordinates(ct potential.CoordType, coord []float64) error {
	if ct != potential.CoordXYZABC {
		return fmt.Errorf("quadratic engine only accepts xyzabc coordinates")
	}
	if len(coord) != len(q.x) {
		return potential.ErrBadCoordinates
	}
	copy(q.x, coord)
	q.Pushes++
	q.invalidate()
	return nil
}

func (q *Quadratic) Coordinates(out []float64) error {
	if len(out) != len(q.x) {
		return potential.ErrBadCoordinates
	}
	copy(out, q.x)
	return nil
}

func (q *Quadratic) Compute(gradient bool) error {
	q.Computes++
	if q.FailAt > 0 && q.Computes >= q.FailAt {
		return ErrInjected
	}
	if len(q.x) == 0 {
		return potential.ErrNoFragments
	}

	n := len(q.x)
	d := mat.NewVecDense(n, nil)
	for i := range q.x {
		d.SetVec(i, q.x[i])
		if q.Minimum != nil {
			d.SetVec(i, q.x[i]-q.Minimum[i])
		}
	}

	var hd mat.VecDense
	if q.Hessian != nil {
		hd.MulVec(q.Hessian, d)
	} else {
		hd.CloneFromVec(d)
	}

	q.energy = 0.5 * mat.Dot(d, &hd)
	q.hasEnergy = true
	q.hasGrad = gradient
	if gradient {
		q.grad = make([]float64, n)
		for i := range q.grad {
			q.grad[i] = hd.AtVec(i)
		}
	}
	return nil
}

func (q *Quadratic) Energy() (potential.Energy, error) {
	if !q.hasEnergy {
		return potential.Energy{}, potential.ErrNotComputed
	}
	return potential.Energy{Electrostatic: q.energy, Total: q.energy}, nil
}

func (q *Quadratic) Gradient(out []float64) error {
	if !q.hasGrad {
		return potential.ErrNotComputed
	}
	if len(out) != len(q.grad) {
		return potential.ErrBadCoordinates
	}
	copy(out, q.grad)
	return nil
}

func (q *Quadratic) FragmentCount() int {
	return len(q.Names)
}

func (q *Quadratic) FragmentName(i int) (string, error) {
	if i < 0 || i >= len(q.Names) {
		return "", potential.ErrBadFragmentIndex
	}
	return q.Names[i], nil
}

func (q *Quadratic) FragmentMass(i int) (float64, error) {
	if i < 0 || i >= len(q.Names) {
		return 0, potential.ErrBadFragmentIndex
	}
	return q.mass, nil
}

func (q *Quadratic) FragmentInertia(i int) ([3]float64, error) {
	if i < 0 || i >= len(q.Names) {
		return [3]float64{}, potential.ErrBadFragmentIndex
	}
	return q.inertia, nil
}

func (q *Quadratic) Close() error {
	return nil
}

// X returns a copy of the current coordinates.
func (q *Quadratic) X() []float64 {
	return append([]float64(nil), q.x...)
}

func (q *Quadratic) invalidate() {
	q.hasEnergy = false
	q.hasGrad = false
}

var _ potential.Engine = (*Quadratic)(nil)
