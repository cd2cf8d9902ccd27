package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/potential/potentialtest"
)

func TestRecorderStatusAndMetrics(t *testing.T) {
	r := NewRecorderTo("opt", nil)
	if r.Status() != StatusRunning {
		t.Errorf("Expected running status, got %s", r.Status())
	}

	r.UpdateMetric("energy", 1, -0.5, "hartree")
	r.UpdateMetric("energy", 2, -0.6, "hartree")
	r.UpdateMetric("rms_gradient", 2, 1e-4, "hartree/bohr")
	r.LogStep(2, "step 2", nil)
	r.Finish(2, StatusConverged, "gradient below tolerance")

	if r.Status() != StatusConverged {
		t.Errorf("Expected converged status, got %s", r.Status())
	}

	m, ok := r.Metric("energy")
	if !ok {
		t.Fatalf("Expected energy metric")
	}
	if m.Value != -0.6 || len(m.History) != 2 || m.History[0].Step != 1 {
		t.Errorf("Unexpected energy metric: %+v", m)
	}

	metrics := r.Metrics()
	if len(metrics) != 2 || metrics[0].Name != "energy" {
		t.Errorf("Expected metrics sorted by name, got %+v", metrics)
	}

	events := r.Events()
	last := events[len(events)-1]
	if last.Type != EventTypeConverged {
		t.Errorf("Expected final converged event, got %s", last.Type)
	}
	if events[0].Type != EventTypeStart {
		t.Errorf("Expected first start event, got %s", events[0].Type)
	}
}

func TestRecorderError(t *testing.T) {
	r := NewRecorderTo("sp", nil)
	r.LogError("compute failed", errors.New("boom"))
	if r.Status() != StatusFailed {
		t.Errorf("Expected failed status, got %s", r.Status())
	}
}

func TestSummarySave(t *testing.T) {
	r := NewRecorderTo("md", nil)
	r.UpdateMetric("temperature", 1, 301.5, "K")
	r.RecordEnergy(1, potential.Energy{Total: -0.25})
	r.Finish(1, StatusCompleted, "done")

	s := r.Summarize("water.in", "test")

	dir := t.TempDir()
	for _, name := range []string{"run.yaml", "run.json", "run.json.zst"} {
		path := filepath.Join(dir, "reports", name)
		if err := s.Save(path); err != nil {
			t.Fatalf("Save(%s) failed: %v", name, err)
		}

		back, err := LoadSummary(path)
		if err != nil {
			t.Fatalf("LoadSummary(%s) failed: %v", name, err)
		}
		if back.Metadata.RunID != r.RunID().String() {
			t.Errorf("%s: expected run id %s, got %s", name, r.RunID(), back.Metadata.RunID)
		}
		if back.Status != StatusCompleted {
			t.Errorf("%s: expected completed status, got %s", name, back.Status)
		}
		if back.Energy == nil || back.Energy.Total != -0.25 {
			t.Errorf("%s: expected final energy -0.25, got %+v", name, back.Energy)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "reports", "run.json.zst"))
	if err != nil {
		t.Fatalf("Failed to read compressed summary: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Errorf("Expected zstd frame magic, got % x", raw[:4])
	}
}

func TestPlotMetrics(t *testing.T) {
	r := NewRecorderTo("md", nil)
	for step := 1; step <= 5; step++ {
		r.UpdateMetric("kinetic_energy", step, 0.01*float64(step), "hartree")
		r.UpdateMetric("temperature", step, 300, "K")
	}

	path := filepath.Join(t.TempDir(), "energy.png")
	if err := r.PlotMetrics(path, "hartree"); err != nil {
		t.Fatalf("PlotMetrics failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("Expected a non-empty image, got %v", err)
	}

	if err := r.PlotMetrics(path, "hartree/bohr"); !errors.Is(err, ErrNothingToPlot) {
		t.Errorf("Expected ErrNothingToPlot, got %v", err)
	}
}

func TestPrinterMatrixLayout(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, &config.Config{})

	m := mat.NewDense(7, 7, nil)
	m.Set(6, 6, 1.5)
	p.Matrix("HESSIAN", m)

	out := buf.String()
	if !strings.Contains(out, "HESSIAN") {
		t.Errorf("Expected title in output")
	}
	// 7 columns print as one block of 6 and one block of 1
	if strings.Count(out, "             7") != 1 {
		t.Errorf("Expected a single header for column 7, got:\n%s", out)
	}
	if !strings.Contains(out, "1.500000e+00") {
		t.Errorf("Expected the set element in output, got:\n%s", out)
	}
}

func TestPrinterUsesInputNames(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Fragments: []config.Fragment{{Name: "methanol_l"}}}
	p := NewPrinter(&buf, cfg)

	p.Gradient([]float64{1, 2, 3, 4, 5, 6})
	if !strings.Contains(buf.String(), "methanol_l") {
		t.Errorf("Expected fragment name from the input, got:\n%s", buf.String())
	}
}

func TestRestartQuotesNamesWithSpaces(t *testing.T) {
	e := potentialtest.New(1)
	coord := []float64{1.5, -2, 0.25, 0.5, 1, 0.125}
	_ = e.SetCoordinates(potential.CoordXYZABC, coord)

	var buf bytes.Buffer
	cfg := &config.Config{Fragments: []config.Fragment{{Name: "h2o dimer"}}}
	if err := NewPrinter(&buf, cfg).Restart(e, nil); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if !strings.Contains(buf.String(), `fragment "h2o dimer"`) {
		t.Fatalf("Expected quoted fragment name, got:\n%s", buf.String())
	}

	_, body, _ := strings.Cut(buf.String(), "RESTART DATA (ATOMIC UNITS)")
	back, err := config.Parse(strings.NewReader("units bohr\n" + body))
	if err != nil {
		t.Fatalf("Restart data does not parse back: %v", err)
	}
	if back.Fragments[0].Name != "h2o dimer" {
		t.Errorf("Expected name 'h2o dimer', got %q", back.Fragments[0].Name)
	}
	if !floats.Equal(back.Fragments[0].Coord, coord) {
		t.Errorf("Expected coordinates %v, got %v", coord, back.Fragments[0].Coord)
	}
}
