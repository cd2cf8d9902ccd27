package simulation

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/potential/potentialtest"
)

type stubSimulation struct {
	ran *bool
}

func (s stubSimulation) Name() string        { return "grad" }
func (s stubSimulation) Description() string { return "stub" }
func (s stubSimulation) Run(ctx context.Context, env *Env) error {
	*s.ran = true
	return nil
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	ran := false
	factory := func() Simulation { return stubSimulation{ran: &ran} }

	if err := r.Register(config.RunGradient, factory); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(config.RunGradient, factory); err == nil {
		t.Errorf("Expected duplicate registration to fail")
	}

	env := &Env{Config: &config.Config{RunType: config.RunGradient}}
	if err := r.Dispatch(context.Background(), env); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !ran {
		t.Errorf("Expected the registered simulation to run")
	}

	env.Config.RunType = config.RunDynamics
	if err := r.Dispatch(context.Background(), env); !errors.Is(err, ErrUnknownRunType) {
		t.Errorf("Expected ErrUnknownRunType, got %v", err)
	}

	if got := r.List(); len(got) != 1 || got[0] != config.RunGradient {
		t.Errorf("Expected [grad], got %v", got)
	}
}

func TestPotentialPaths(t *testing.T) {
	cfg := &config.Config{
		FraglibPath: "/lib",
		UserlibPath: "user",
		Fragments: []config.Fragment{
			{Name: "water_l"}, {Name: "ammonia"}, {Name: "water_l"}, {Name: "benzene_l"},
		},
	}

	want := []string{
		filepath.Join("user", "ammonia.efp"),
		filepath.Join("/lib", "benzene.efp"),
		filepath.Join("/lib", "water.efp"),
	}
	got := PotentialPaths(cfg)
	if len(got) != len(want) {
		t.Fatalf("Expected %d paths, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestInitEngine(t *testing.T) {
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatalf("Defaults failed: %v", err)
	}
	cfg.EnablePBC = true
	cfg.PeriodicBox = [3]float64{10, 11, 12}
	cfg.Fragments = []config.Fragment{
		{Name: "a", Coord: []float64{1, 2, 3, 0.1, 0.2, 0.3}},
		{Name: "b_l", Coord: []float64{4, 5, 6, 0.4, 0.5, 0.6}},
	}

	q := potentialtest.New(0)
	if err := InitEngine(q, cfg); err != nil {
		t.Fatalf("InitEngine failed: %v", err)
	}

	if q.FragmentCount() != 2 {
		t.Errorf("Expected 2 fragments, got %d", q.FragmentCount())
	}
	if len(q.Paths) != 2 {
		t.Errorf("Expected 2 potentials loaded, got %v", q.Paths)
	}
	if q.Box != [3]float64{10, 11, 12} {
		t.Errorf("Expected periodic box to be set, got %v", q.Box)
	}
	if q.Options.Terms != cfg.Terms {
		t.Errorf("Expected engine terms %b, got %b", cfg.Terms, q.Options.Terms)
	}
	if !floats.Equal(q.X(), []float64{1, 2, 3, 0.1, 0.2, 0.3, 4, 5, 6, 0.4, 0.5, 0.6}) {
		t.Errorf("Unexpected engine coordinates %v", q.X())
	}
}

func TestLeaseEvaluateChecksDimension(t *testing.T) {
	q := potentialtest.New(2)
	lease, err := Checkout(q)
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	defer lease.Checkin()

	if _, err := lease.Evaluate(make([]float64, 6), nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch for short geometry, got %v", err)
	}
	if _, err := lease.Evaluate(make([]float64, 12), make([]float64, 11)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch for short gradient, got %v", err)
	}

	x := make([]float64, 12)
	x[0] = 2
	g := make([]float64, 12)
	e, err := lease.Evaluate(x, g)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if e.Total != 2 || g[0] != 2 {
		t.Errorf("Expected energy 2 and gradient 2, got %g and %g", e.Total, g[0])
	}
}

func TestLeaseRestoresGeometry(t *testing.T) {
	q := potentialtest.New(1)
	start := []float64{1, 1, 1, 0.5, 0.5, 0.5}
	if err := q.SetCoordinates(potential.CoordXYZABC, start); err != nil {
		t.Fatalf("SetCoordinates failed: %v", err)
	}

	lease, err := Checkout(q)
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}

	g := make([]float64, 6)
	if err := lease.Displace(2, 0.1, g); err != nil {
		t.Fatalf("Displace failed: %v", err)
	}
	if !floats.Equal(q.X(), start) {
		t.Errorf("Expected geometry restored after displacement, got %v", q.X())
	}
	if !floats.EqualApprox(g, []float64{1, 1, 1.1, 0.5, 0.5, 0.5}, 1e-12) {
		t.Errorf("Expected gradient at displaced point, got %v", g)
	}

	q.FailAt = q.Computes + 1
	if err := lease.Displace(0, 0.1, g); !errors.Is(err, potentialtest.ErrInjected) {
		t.Errorf("Expected injected failure, got %v", err)
	}
	if !floats.Equal(q.X(), start) {
		t.Errorf("Expected geometry restored after failed evaluation, got %v", q.X())
	}

	q.FailAt = 0
	if _, err := lease.Evaluate(make([]float64, 6), nil); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if err := lease.Checkin(); err != nil {
		t.Fatalf("Checkin failed: %v", err)
	}
	if !floats.Equal(q.X(), start) {
		t.Errorf("Expected geometry restored on checkin, got %v", q.X())
	}
	if _, err := lease.Evaluate(start, nil); !errors.Is(err, ErrLeaseClosed) {
		t.Errorf("Expected ErrLeaseClosed after checkin, got %v", err)
	}
}

func TestLeaseKeep(t *testing.T) {
	q := potentialtest.New(1)
	lease, _ := Checkout(q)

	moved := []float64{3, 0, 0, 0, 0, 0}
	if _, err := lease.Evaluate(moved, nil); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	lease.Keep()
	if err := lease.Checkin(); err != nil {
		t.Fatalf("Checkin failed: %v", err)
	}
	if !floats.Equal(q.X(), moved) {
		t.Errorf("Expected kept geometry, got %v", q.X())
	}
}

func TestGradientStats(t *testing.T) {
	rms, max := GradientStats([]float64{1, -3, 2, 0})
	if max != -3 {
		t.Errorf("Expected signed max -3, got %g", max)
	}
	if want := math.Sqrt(14.0 / 4); math.Abs(rms-want) > 1e-15 {
		t.Errorf("Expected rms %g, got %g", want, rms)
	}
	if rms, max := GradientStats(nil); rms != 0 || max != 0 {
		t.Errorf("Expected zeros for empty gradient, got %g %g", rms, max)
	}
}
