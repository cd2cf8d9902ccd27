package md

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/potential/potentialtest"
	"github.com/picogrid/fragment-simulations/pkg/report"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

func placed(x []float64) *potentialtest.Quadratic {
	e := potentialtest.New(len(x) / 6)
	_ = e.SetCoordinates(potential.CoordXYZABC, x)
	return e
}

func TestMasses(t *testing.T) {
	m, err := Masses(potentialtest.New(2))
	if err != nil {
		t.Fatalf("Masses failed: %v", err)
	}
	if len(m) != 12 {
		t.Fatalf("Expected 12 weights, got %d", len(m))
	}
	if !scalar.EqualWithinAbs(m[0], 18*AmuToAu, 1e-9) || !scalar.EqualWithinAbs(m[9], 2*AmuToAu, 1e-9) {
		t.Errorf("Expected mass and mean inertia weights, got %v", m)
	}
}

func TestHarmonicEnergyConserved(t *testing.T) {
	e := placed([]float64{0.5, -0.3, 0.2, 0, 0, 0})

	var states []State
	in := &Integrator{TimeStep: 0.5 * FsToAu, Steps: 200, OnStep: func(s State) error {
		states = append(states, s)
		return nil
	}}
	final, err := in.Run(context.Background(), e, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(states) != 200 || final.Step != 200 {
		t.Fatalf("Expected 200 steps, got %d", len(states))
	}

	e0 := 0.5 * (0.25 + 0.09 + 0.04)
	for _, s := range states {
		if math.Abs(s.Total()-e0)/e0 > 1e-2 {
			t.Fatalf("Step %d: total energy %g drifted from %g", s.Step, s.Total(), e0)
		}
	}
	if floats.Equal(e.X(), []float64{0.5, -0.3, 0.2, 0, 0, 0}) {
		t.Errorf("Expected engine left at the propagated geometry")
	}
	for _, a := range e.X()[3:] {
		if a != 0 {
			t.Errorf("Expected angles without force to stay put, got %v", e.X()[3:])
		}
	}
}

func TestRestStaysAtRest(t *testing.T) {
	e := potentialtest.New(1)
	in := &Integrator{TimeStep: FsToAu, Steps: 10}
	final, err := in.Run(context.Background(), e, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if final.Kinetic != 0 || final.Temperature != 0 {
		t.Errorf("Expected no motion, got kinetic %g temperature %g", final.Kinetic, final.Temperature)
	}
	if !floats.Equal(e.X(), make([]float64, 6)) {
		t.Errorf("Expected geometry unchanged, got %v", e.X())
	}
}

func TestInitialVelocityMoves(t *testing.T) {
	e := potentialtest.New(1)
	v0 := []float64{1e-4, 0, 0, 0, 0, 0}

	in := &Integrator{TimeStep: FsToAu, Steps: 1}
	if _, err := in.Run(context.Background(), e, v0); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if x := e.X()[0]; !(x > 0) {
		t.Errorf("Expected positive displacement along x, got %g", x)
	}
}

func TestBerendsenScale(t *testing.T) {
	b := &Berendsen{Temperature: 300, Tau: 100}
	if s := b.Scale(300, 1); s != 1 {
		t.Errorf("Expected no scaling at target temperature, got %g", s)
	}
	if s := b.Scale(150, 1); !(s > 1) {
		t.Errorf("Expected heating below target, got %g", s)
	}
	if s := b.Scale(600, 1); !(s < 1) {
		t.Errorf("Expected cooling above target, got %g", s)
	}
	if s := b.Scale(0, 1); s != 1 {
		t.Errorf("Expected system at rest left alone, got %g", s)
	}
}

func TestThermostatPullsTowardTarget(t *testing.T) {
	e := potentialtest.New(1)
	v0 := []float64{1e-3, 1e-3, 1e-3, 0, 0, 0}

	m, _ := Masses(e)
	_, t0 := Kinetic(m, v0)

	in := &Integrator{
		TimeStep:   FsToAu,
		Steps:      5,
		Thermostat: &Berendsen{Temperature: t0 / 10, Tau: 10 * FsToAu},
	}
	final, err := in.Run(context.Background(), e, v0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !(final.Temperature < t0) {
		t.Errorf("Expected cooling from %g K, got %g K", t0, final.Temperature)
	}
}

func TestRunErrors(t *testing.T) {
	in := &Integrator{TimeStep: 0, Steps: 1}
	if _, err := in.Run(context.Background(), potentialtest.New(1), nil); !errors.Is(err, ErrBadTimeStep) {
		t.Errorf("Expected ErrBadTimeStep, got %v", err)
	}

	in.TimeStep = FsToAu
	if _, err := in.Run(context.Background(), potentialtest.New(1), []float64{1}); !errors.Is(err, simulation.ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}

	start := []float64{0.3, 0, 0, 0, 0, 0}
	e := placed(start)
	e.FailAt = 3
	in.Steps = 10
	if _, err := in.Run(context.Background(), e, nil); !errors.Is(err, potentialtest.ErrInjected) {
		t.Fatalf("Expected injected failure, got %v", err)
	}
	if !floats.Equal(e.X(), start) {
		t.Errorf("Expected geometry restored after failure, got %v", e.X())
	}
}

func TestInitialVelocities(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader(
		"fragment a\n0 0 0 0 0 0\nfragment b\n1 1 1 0 0 0\nvelocity\n1 2 3 4 5 6\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []float64{0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6}
	if got := InitialVelocities(cfg); !floats.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	cfg.Fragments[1].Velocity = nil
	if got := InitialVelocities(cfg); got != nil {
		t.Errorf("Expected nil without velocity blocks, got %v", got)
	}
}

func TestRunPrintsStates(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader(
		"run_type md\nensemble nvt\nmax_steps 4\nprint_step 2\nfragment frag\n0 0 0 0 0 0\nvelocity\n1e-4 0 0 0 0 0\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var out bytes.Buffer
	env := &simulation.Env{
		Engine:   potentialtest.New(1),
		Config:   cfg,
		Printer:  report.NewPrinter(&out, cfg),
		Recorder: report.NewRecorderTo(cfg.RunType.String(), nil),
	}
	if err := NewDynamics().Run(context.Background(), env); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if n := strings.Count(out.String(), "STATE AFTER"); n != 2 {
		t.Errorf("Expected 2 printed states, got %d", n)
	}
	if !strings.Contains(out.String(), "velocity") {
		t.Errorf("Expected restart data with velocities")
	}
	m, ok := env.Recorder.Metric("temperature")
	if !ok || len(m.History) != 4 {
		t.Errorf("Expected 4 temperature samples, got %+v", m)
	}
}
