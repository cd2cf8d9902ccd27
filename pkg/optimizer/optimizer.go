// Package optimizer implements a bound-constrained limited-memory BFGS
// minimizer driven one step at a time.
package optimizer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrNotInitialized = errors.New("optimizer is not initialized")
	ErrBadDimension   = errors.New("vector length does not match optimizer dimension")
	ErrLineSearch     = errors.New("line search failed to decrease the objective")
	ErrNoFunc         = errors.New("objective function is not set")
	ErrBadBounds      = errors.New("invalid bounds")
)

// BoundKind selects which bounds constrain one coordinate.
type BoundKind int

const (
	Unbounded BoundKind = iota
	LowerBound
	BothBounds
	UpperBound
)

func (k BoundKind) hasLower() bool { return k == LowerBound || k == BothBounds }
func (k BoundKind) hasUpper() bool { return k == UpperBound || k == BothBounds }

// Func evaluates the objective at x, writes its gradient to g and returns
// its value.
type Func func(x, g []float64) (float64, error)

const (
	defaultMemory = 10
	armijo        = 1e-4
	maxBacktracks = 40
)

// State is one minimization in progress.
type State struct {
	n      int
	memory int

	kinds []BoundKind
	lower []float64
	upper []float64

	fn Func

	x  []float64
	g  []float64
	fx float64

	s, y [][]float64

	initialized bool
	evals       int
}

// New returns an unbounded optimizer over n variables.
func New(n int) (*State, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadDimension, n)
	}
	return &State{
		n:      n,
		memory: defaultMemory,
		kinds:  make([]BoundKind, n),
		lower:  make([]float64, n),
		upper:  make([]float64, n),
	}, nil
}

// SetBounds sets the bound kind and limits of every coordinate. Limits of
// a side that kind does not constrain are ignored.
func (o *State) SetBounds(kinds []BoundKind, lower, upper []float64) error {
	if len(kinds) != o.n || len(lower) != o.n || len(upper) != o.n {
		return ErrBadDimension
	}
	for i, k := range kinds {
		if k < Unbounded || k > UpperBound {
			return fmt.Errorf("%w: coordinate %d has kind %d", ErrBadBounds, i, k)
		}
		if k == BothBounds && lower[i] > upper[i] {
			return fmt.Errorf("%w: coordinate %d has lower %g above upper %g", ErrBadBounds, i, lower[i], upper[i])
		}
	}
	copy(o.kinds, kinds)
	copy(o.lower, lower)
	copy(o.upper, upper)
	return nil
}

// SetFunc sets the objective.
func (o *State) SetFunc(fn Func) {
	o.fn = fn
}

// Init projects x0 onto the bounds and evaluates the objective there.
func (o *State) Init(x0 []float64) error {
	if o.fn == nil {
		return ErrNoFunc
	}
	if len(x0) != o.n {
		return ErrBadDimension
	}

	o.x = append([]float64(nil), x0...)
	o.project(o.x)
	o.g = make([]float64, o.n)
	o.s, o.y = nil, nil

	fx, err := o.eval(o.x, o.g)
	if err != nil {
		return err
	}
	o.fx = fx
	o.initialized = true
	return nil
}

// Step performs one quasi-Newton iteration. When the projected gradient
// vanishes the state is left unchanged. After a successful Step the last
// objective call was made at the current point.
func (o *State) Step() error {
	if !o.initialized {
		return ErrNotInitialized
	}

	d := o.direction()
	slope := floats.Dot(d, o.g)
	if slope >= 0 {
		// quasi-Newton direction is uphill: reset memory and use the
		// projected steepest descent
		o.s, o.y = nil, nil
		for i := range d {
			d[i] = -o.g[i]
		}
		o.freeze(d)
		slope = floats.Dot(d, o.g)
		if slope >= 0 {
			return nil
		}
	}

	t := 1.0
	if len(o.s) == 0 {
		t = math.Min(1, 1/floats.Norm(d, 2))
	}

	xt := make([]float64, o.n)
	gt := make([]float64, o.n)
	step := make([]float64, o.n)
	for k := 0; k < maxBacktracks; k++ {
		floats.AddScaledTo(xt, o.x, t, d)
		o.project(xt)

		ft, err := o.eval(xt, gt)
		if err != nil {
			return err
		}

		floats.SubTo(step, xt, o.x)
		if ft <= o.fx+armijo*floats.Dot(o.g, step) {
			o.accept(xt, gt, ft, step)
			return nil
		}
		t /= 2
	}

	return fmt.Errorf("%w after %d trials", ErrLineSearch, maxBacktracks)
}

func (o *State) accept(xt, gt []float64, ft float64, step []float64) {
	dy := make([]float64, o.n)
	floats.SubTo(dy, gt, o.g)

	if sy := floats.Dot(step, dy); sy > 1e-10*floats.Dot(dy, dy) {
		o.s = append(o.s, append([]float64(nil), step...))
		o.y = append(o.y, dy)
		if len(o.s) > o.memory {
			o.s, o.y = o.s[1:], o.y[1:]
		}
	}

	copy(o.x, xt)
	copy(o.g, gt)
	o.fx = ft
}

// direction applies the two-loop recursion to the gradient and zeroes
// coordinates held at an active bound.
func (o *State) direction() []float64 {
	q := append([]float64(nil), o.g...)
	m := len(o.s)
	alpha := make([]float64, m)
	rho := make([]float64, m)

	for i := m - 1; i >= 0; i-- {
		rho[i] = 1 / floats.Dot(o.y[i], o.s[i])
		alpha[i] = rho[i] * floats.Dot(o.s[i], q)
		floats.AddScaled(q, -alpha[i], o.y[i])
	}
	if m > 0 {
		gamma := floats.Dot(o.s[m-1], o.y[m-1]) / floats.Dot(o.y[m-1], o.y[m-1])
		floats.Scale(gamma, q)
	}
	for i := 0; i < m; i++ {
		beta := rho[i] * floats.Dot(o.y[i], q)
		floats.AddScaled(q, alpha[i]-beta, o.s[i])
	}

	floats.Scale(-1, q)
	o.freeze(q)
	return q
}

// freeze zeroes components of d that would leave the feasible region from
// a coordinate sitting on its bound.
func (o *State) freeze(d []float64) {
	for i := range d {
		k := o.kinds[i]
		if k.hasLower() && o.x[i] <= o.lower[i] && d[i] < 0 {
			d[i] = 0
		}
		if k.hasUpper() && o.x[i] >= o.upper[i] && d[i] > 0 {
			d[i] = 0
		}
	}
}

func (o *State) project(x []float64) {
	for i := range x {
		k := o.kinds[i]
		if k.hasLower() && x[i] < o.lower[i] {
			x[i] = o.lower[i]
		}
		if k.hasUpper() && x[i] > o.upper[i] {
			x[i] = o.upper[i]
		}
	}
}

func (o *State) eval(x, g []float64) (float64, error) {
	o.evals++
	f, err := o.fn(x, g)
	if err != nil {
		return 0, fmt.Errorf("objective evaluation failed: %w", err)
	}
	return f, nil
}

// Fx returns the objective value at the current point.
func (o *State) Fx() float64 {
	return o.fx
}

// Gx copies the gradient at the current point into out.
func (o *State) Gx(out []float64) error {
	if !o.initialized {
		return ErrNotInitialized
	}
	if len(out) != o.n {
		return ErrBadDimension
	}
	copy(out, o.g)
	return nil
}

// X copies the current point into out.
func (o *State) X(out []float64) error {
	if !o.initialized {
		return ErrNotInitialized
	}
	if len(out) != o.n {
		return ErrBadDimension
	}
	copy(out, o.x)
	return nil
}

// Evaluations is the number of objective calls made so far.
func (o *State) Evaluations() int {
	return o.evals
}

// Close releases the optimizer state.
func (o *State) Close() error {
	o.x, o.g, o.s, o.y = nil, nil, nil, nil
	o.fn = nil
	o.initialized = false
	return nil
}
