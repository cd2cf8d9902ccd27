package optimizer

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// quadratic is sum c_i (x_i - a_i)^2 plus a coupling term between the first
// two coordinates.
func quadratic(c, a []float64) Func {
	return func(x, g []float64) (float64, error) {
		var f float64
		for i := range x {
			d := x[i] - a[i]
			f += c[i] * d * d
			g[i] = 2 * c[i] * d
		}
		f += 0.5 * x[0] * x[1]
		g[0] += 0.5 * x[1]
		g[1] += 0.5 * x[0]
		return f, nil
	}
}

func run(t *testing.T, o *State, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		if err := o.Step(); err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
	}
}

func TestUnboundedQuadratic(t *testing.T) {
	o, err := New(3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer o.Close()

	o.SetFunc(quadratic([]float64{1, 10, 100}, []float64{1, -2, 0.5}))
	if err := o.Init([]float64{5, 5, 5}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	start := o.Fx()
	run(t, o, 60)

	if o.Fx() >= start {
		t.Errorf("Expected objective to decrease from %g, got %g", start, o.Fx())
	}
	g := make([]float64, 3)
	if err := o.Gx(g); err != nil {
		t.Fatalf("Gx failed: %v", err)
	}
	if n := floats.Norm(g, math.Inf(1)); n > 1e-6 {
		t.Errorf("Expected vanishing gradient, got max component %g", n)
	}
}

func TestBoundsHoldAtSolution(t *testing.T) {
	o, err := New(3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer o.Close()

	kinds := []BoundKind{BothBounds, LowerBound, UpperBound}
	lower := []float64{0, 1, 0}
	upper := []float64{math.Pi, 0, -1}
	if err := o.SetBounds(kinds, lower, upper); err != nil {
		t.Fatalf("SetBounds failed: %v", err)
	}

	// unconstrained minimum sits outside every bound
	o.SetFunc(func(x, g []float64) (float64, error) {
		target := []float64{5, -3, 4}
		var f float64
		for i := range x {
			d := x[i] - target[i]
			f += d * d
			g[i] = 2 * d
		}
		return f, nil
	})
	if err := o.Init([]float64{10, -10, 10}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	x := make([]float64, 3)
	if err := o.X(x); err != nil {
		t.Fatalf("X failed: %v", err)
	}
	if !floats.Equal(x, []float64{math.Pi, 1, -1}) {
		t.Errorf("Expected starting point projected to the bounds, got %v", x)
	}

	run(t, o, 20)
	if err := o.X(x); err != nil {
		t.Fatalf("X failed: %v", err)
	}
	if !floats.EqualApprox(x, []float64{math.Pi, 1, -1}, 1e-12) {
		t.Errorf("Expected solution on the bounds, got %v", x)
	}
}

func TestInteriorBoundedSolution(t *testing.T) {
	o, _ := New(2)
	if err := o.SetBounds([]BoundKind{BothBounds, Unbounded}, []float64{0, 0}, []float64{math.Pi, 0}); err != nil {
		t.Fatalf("SetBounds failed: %v", err)
	}
	o.SetFunc(quadratic([]float64{2, 3}, []float64{1.2, -0.4}))
	if err := o.Init([]float64{3, 2}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	run(t, o, 40)

	g := make([]float64, 2)
	_ = o.Gx(g)
	if n := floats.Norm(g, 2); n > 1e-6 {
		t.Errorf("Expected stationary interior point, got gradient norm %g", n)
	}
	x := make([]float64, 2)
	_ = o.X(x)
	if x[0] < 0 || x[0] > math.Pi {
		t.Errorf("Expected bounded coordinate within [0, pi], got %g", x[0])
	}
}

func TestStateErrors(t *testing.T) {
	if _, err := New(0); !errors.Is(err, ErrBadDimension) {
		t.Errorf("Expected ErrBadDimension for zero size, got %v", err)
	}

	o, _ := New(2)
	if err := o.Step(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if err := o.Init([]float64{0, 0}); !errors.Is(err, ErrNoFunc) {
		t.Errorf("Expected ErrNoFunc, got %v", err)
	}
	o.SetFunc(quadratic([]float64{1, 1}, []float64{0, 0}))
	if err := o.Init([]float64{0}); !errors.Is(err, ErrBadDimension) {
		t.Errorf("Expected ErrBadDimension for short start, got %v", err)
	}
	if err := o.SetBounds([]BoundKind{BothBounds, Unbounded}, []float64{1, 0}, []float64{0, 0}); !errors.Is(err, ErrBadBounds) {
		t.Errorf("Expected ErrBadBounds, got %v", err)
	}
	if err := o.X(make([]float64, 2)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized from X, got %v", err)
	}
}

func TestObjectiveErrorPropagates(t *testing.T) {
	boom := errors.New("engine failure")
	calls := 0

	o, _ := New(1)
	o.SetFunc(func(x, g []float64) (float64, error) {
		calls++
		if calls > 1 {
			return 0, boom
		}
		g[0] = 2 * x[0]
		return x[0] * x[0], nil
	})
	if err := o.Init([]float64{1}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := o.Step(); !errors.Is(err, boom) {
		t.Errorf("Expected objective error, got %v", err)
	}
	if o.Evaluations() != 2 {
		t.Errorf("Expected 2 evaluations, got %d", o.Evaluations())
	}
}
