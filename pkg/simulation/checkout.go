package simulation

import (
	"errors"
	"fmt"

	"github.com/picogrid/fragment-simulations/pkg/potential"
)

var (
	// ErrDimensionMismatch means a coordinate vector does not hold six
	// values per fragment.
	ErrDimensionMismatch = errors.New("coordinate vector length does not match fragment count")
	ErrLeaseClosed       = errors.New("geometry lease already returned")
)

// Lease is exclusive use of the engine geometry between Checkout and
// Checkin. Checkout records the current generalized coordinates and
// Checkin pushes them back, so every path out of a procedure that moves
// fragments leaves the engine where it found it unless Keep is called.
type Lease struct {
	engine potential.Engine
	saved  []float64
	open   bool
}

// Checkout records the geometry of e.
func Checkout(e potential.Engine) (*Lease, error) {
	saved := make([]float64, 6*e.FragmentCount())
	if err := e.Coordinates(saved); err != nil {
		return nil, fmt.Errorf("failed to read coordinates: %w", err)
	}
	return &Lease{engine: e, saved: saved, open: true}, nil
}

// Dim is the number of generalized coordinates.
func (l *Lease) Dim() int {
	return len(l.saved)
}

// Saved returns a copy of the geometry recorded at checkout.
func (l *Lease) Saved() []float64 {
	return append([]float64(nil), l.saved...)
}

// Evaluate pushes x to the engine, recomputes and reads the energy. When
// grad is not nil the gradient is computed and written to it.
func (l *Lease) Evaluate(x, grad []float64) (potential.Energy, error) {
	if !l.open {
		return potential.Energy{}, ErrLeaseClosed
	}
	if len(x) != len(l.saved) {
		return potential.Energy{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(x), len(l.saved))
	}
	if grad != nil && len(grad) != len(l.saved) {
		return potential.Energy{}, fmt.Errorf("%w: gradient has %d, want %d", ErrDimensionMismatch, len(grad), len(l.saved))
	}

	if err := l.engine.SetCoordinates(potential.CoordXYZABC, x); err != nil {
		return potential.Energy{}, fmt.Errorf("failed to set coordinates: %w", err)
	}
	if err := l.engine.Compute(grad != nil); err != nil {
		return potential.Energy{}, fmt.Errorf("failed to compute energy: %w", err)
	}
	energy, err := l.engine.Energy()
	if err != nil {
		return potential.Energy{}, fmt.Errorf("failed to read energy: %w", err)
	}
	if grad != nil {
		if err := l.engine.Gradient(grad); err != nil {
			return potential.Energy{}, fmt.Errorf("failed to read gradient: %w", err)
		}
	}
	return energy, nil
}

// Displace evaluates the gradient with coordinate i of the saved geometry
// shifted by h, then pushes the saved geometry back whether or not the
// evaluation succeeded.
func (l *Lease) Displace(i int, h float64, grad []float64) (err error) {
	if i < 0 || i >= len(l.saved) {
		return fmt.Errorf("%w: coordinate %d of %d", ErrDimensionMismatch, i, len(l.saved))
	}

	x := l.Saved()
	x[i] += h

	defer func() {
		if rerr := l.restore(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	_, err = l.Evaluate(x, grad)
	return err
}

// Keep ends the lease leaving the engine at its current geometry.
func (l *Lease) Keep() {
	l.open = false
}

// Checkin ends the lease and restores the saved geometry. It does nothing
// after Keep or a previous Checkin.
func (l *Lease) Checkin() error {
	if !l.open {
		return nil
	}
	l.open = false
	return l.restore()
}

func (l *Lease) restore() error {
	if err := l.engine.SetCoordinates(potential.CoordXYZABC, l.saved); err != nil {
		return fmt.Errorf("failed to restore coordinates: %w", err)
	}
	return nil
}
