package hess

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/potential/potentialtest"
	"github.com/picogrid/fragment-simulations/pkg/report"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

func coupledEngine() *potentialtest.Quadratic {
	e := potentialtest.New(1)
	h := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		h.SetSym(i, i, float64(i+2))
	}
	h.SetSym(0, 3, 0.5)
	h.SetSym(2, 5, -0.25)
	e.Hessian = h
	e.Minimum = []float64{0.1, -0.2, 0.3, 0.4, 0.5, 0.6}
	_ = e.SetCoordinates(potential.CoordXYZABC, []float64{1, 2, 3, 0.1, 0.2, 0.3})
	return e
}

func TestForwardAssemblyRecoversHessian(t *testing.T) {
	e := coupledEngine()
	start := e.X()

	a := &Assembler{Delta: 1e-3, Fill: true}
	res, err := a.Assemble(context.Background(), e)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if !mat.EqualApprox(res.Hessian, e.Hessian, 1e-8) {
		t.Errorf("Expected assembled matrix to match\n%v\ngot\n%v",
			mat.Formatted(e.Hessian), mat.Formatted(res.Hessian))
	}
	if asym := Asymmetry(res.Hessian); asym > 1e-8 {
		t.Errorf("Expected symmetric result, got asymmetry %g", asym)
	}
	if !floats.Equal(e.X(), start) {
		t.Errorf("Expected geometry restored to %v, got %v", start, e.X())
	}
	if e.Computes != 7 {
		t.Errorf("Expected 7 computes, got %d", e.Computes)
	}
}

func TestAssemblyOffLeavesZeroMatrix(t *testing.T) {
	e := coupledEngine()
	start := e.X()

	calls := 0
	a := &Assembler{Delta: 1e-3, Progress: func(done, total int) {
		calls++
		if total != 6 {
			t.Errorf("Expected total 6, got %d", total)
		}
	}}
	res, err := a.Assemble(context.Background(), e)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if !mat.Equal(res.Hessian, mat.NewDense(6, 6, nil)) {
		t.Errorf("Expected zero matrix, got\n%v", mat.Formatted(res.Hessian))
	}
	if e.Computes != 7 {
		t.Errorf("Expected every displacement to be evaluated, got %d computes", e.Computes)
	}
	if calls != 6 {
		t.Errorf("Expected 6 progress calls, got %d", calls)
	}
	if !floats.Equal(e.X(), start) {
		t.Errorf("Expected geometry restored, got %v", e.X())
	}
}

func TestAssemblyFailureRestoresGeometry(t *testing.T) {
	e := coupledEngine()
	start := e.X()
	e.FailAt = 4

	a := &Assembler{Delta: 1e-3, Fill: true}
	if _, err := a.Assemble(context.Background(), e); !errors.Is(err, potentialtest.ErrInjected) {
		t.Fatalf("Expected injected failure, got %v", err)
	}
	if !floats.Equal(e.X(), start) {
		t.Errorf("Expected geometry restored after failure, got %v", e.X())
	}
}

func TestAssemblyRejectsBadDelta(t *testing.T) {
	a := &Assembler{Delta: 0}
	if _, err := a.Assemble(context.Background(), coupledEngine()); !errors.Is(err, ErrBadDelta) {
		t.Errorf("Expected ErrBadDelta, got %v", err)
	}
}

func TestAssemblyStopsOnCancel(t *testing.T) {
	e := coupledEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &Assembler{Delta: 1e-3, Fill: true}
	if _, err := a.Assemble(ctx, e); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if e.Computes != 1 {
		t.Errorf("Expected only the reference compute, got %d", e.Computes)
	}
}

func TestEigenvalues(t *testing.T) {
	h := mat.NewDense(2, 2, []float64{2, 1, 1, 2})
	values, err := Eigenvalues(h)
	if err != nil {
		t.Fatalf("Eigenvalues failed: %v", err)
	}
	if !floats.EqualApprox(values, []float64{1, 3}, 1e-12) {
		t.Errorf("Expected [1 3], got %v", values)
	}
}

func TestRunPrintsHessian(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("run_type hess\nhess_assemble forward\nfragment frag\n0 0 0 0 0 0\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var out bytes.Buffer
	env := &simulation.Env{
		Engine:   coupledEngine(),
		Config:   cfg,
		Printer:  report.NewPrinter(&out, cfg),
		Recorder: report.NewRecorderTo(cfg.RunType.String(), nil),
	}
	if err := NewHessian().Run(context.Background(), env); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, want := range []string{"HESSIAN (ATOMIC UNITS)", "HESSIAN EIGENVALUES", "TOTAL ENERGY"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
	if env.Recorder.Status() != report.StatusCompleted {
		t.Errorf("Expected completed status, got %s", env.Recorder.Status())
	}
	if _, ok := env.Recorder.Metric("hessian_asymmetry"); !ok {
		t.Errorf("Expected asymmetry metric")
	}
}
