package sp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/potential/potentialtest"
	"github.com/picogrid/fragment-simulations/pkg/report"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

func newEnv(t *testing.T, e potential.Engine) (*simulation.Env, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.Parse(strings.NewReader("run_type sp\nfragment frag\n0 0 0 0 0 0\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var out bytes.Buffer
	return &simulation.Env{
		Engine:   e,
		Config:   cfg,
		Printer:  report.NewPrinter(&out, cfg),
		Recorder: report.NewRecorderTo(cfg.RunType.String(), nil),
	}, &out
}

func TestRunPrintsEnergy(t *testing.T) {
	e := potentialtest.New(1)
	_ = e.SetCoordinates(potential.CoordXYZABC, []float64{1, 0, 0, 0, 0, 0})
	env, out := newEnv(t, e)

	if err := NewSinglePoint().Run(context.Background(), env); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, want := range []string{"GEOMETRY (ANGSTROMS)", "TOTAL ENERGY", "0.5000000000"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected output to contain %q, got\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "GRADIENT") {
		t.Errorf("Expected no gradient block in single point output")
	}
	if e.Computes != 1 {
		t.Errorf("Expected 1 compute, got %d", e.Computes)
	}

	en, ok := env.Recorder.Energy()
	if !ok || en.Total != 0.5 {
		t.Errorf("Expected recorded energy 0.5, got %v (%v)", en.Total, ok)
	}
	if env.Recorder.Status() != report.StatusCompleted {
		t.Errorf("Expected completed status, got %s", env.Recorder.Status())
	}
}

func TestRunReportsComputeFailure(t *testing.T) {
	e := potentialtest.New(1)
	e.FailAt = 1
	env, _ := newEnv(t, e)

	err := NewSinglePoint().Run(context.Background(), env)
	if !errors.Is(err, potentialtest.ErrInjected) {
		t.Errorf("Expected injected failure, got %v", err)
	}
	if _, ok := env.Recorder.Energy(); ok {
		t.Errorf("Expected no recorded energy after a failed compute")
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	e := potentialtest.New(1)
	env, _ := newEnv(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewSinglePoint().Run(ctx, env); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if e.Computes != 0 {
		t.Errorf("Expected no computes, got %d", e.Computes)
	}
}
