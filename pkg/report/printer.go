// Package report writes simulation results and keeps a record of each run.
package report

import (
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/potential"
)

// Printer writes results in the fixed text layout of fragmd output.
type Printer struct {
	w     io.Writer
	names []string
}

// NewPrinter returns a printer labelling fragments with the names used in
// cfg.
func NewPrinter(w io.Writer, cfg *config.Config) *Printer {
	names := make([]string, len(cfg.Fragments))
	for i, f := range cfg.Fragments {
		names[i] = f.Name
	}
	return &Printer{w: w, names: names}
}

func (p *Printer) heading(title string) {
	fmt.Fprintf(p.w, "\n    %s\n\n", title)
}

func (p *Printer) name(i int) string {
	if i < len(p.names) {
		return p.names[i]
	}
	return fmt.Sprintf("fragment_%d", i+1)
}

func coordinates(e potential.Engine) ([]float64, error) {
	x := make([]float64, 6*e.FragmentCount())
	if err := e.Coordinates(x); err != nil {
		return nil, fmt.Errorf("failed to read coordinates: %w", err)
	}
	return x, nil
}

// Geometry prints each fragment's center in angstrom and its Euler angles.
func (p *Printer) Geometry(e potential.Engine) error {
	x, err := coordinates(e)
	if err != nil {
		return err
	}

	p.heading("GEOMETRY (ANGSTROMS)")
	for i := 0; i < len(x)/6; i++ {
		c := x[6*i : 6*i+6]
		fmt.Fprintf(p.w, "%-20s %12.6f %12.6f %12.6f %12.6f %12.6f %12.6f\n", p.name(i),
			c[0]*config.BohrRadius, c[1]*config.BohrRadius, c[2]*config.BohrRadius,
			c[3], c[4], c[5])
	}
	return nil
}

// Restart prints the current geometry, and velocities when given, as
// fragment blocks that can be pasted into an input with units bohr.
func (p *Printer) Restart(e potential.Engine, velocities []float64) error {
	x, err := coordinates(e)
	if err != nil {
		return err
	}

	p.heading("RESTART DATA (ATOMIC UNITS)")
	for i := 0; i < len(x)/6; i++ {
		fmt.Fprintf(p.w, "fragment %s\n", config.QuoteName(p.name(i)))
		fmt.Fprintln(p.w, row(x[6*i:6*i+6]))
		if len(velocities) == len(x) {
			fmt.Fprintln(p.w, "velocity")
			fmt.Fprintln(p.w, row(velocities[6*i:6*i+6]))
		}
		fmt.Fprintln(p.w)
	}
	return nil
}

// Energy prints the energy components.
func (p *Printer) Energy(en potential.Energy) {
	p.heading("ENERGY COMPONENTS (ATOMIC UNITS)")
	fmt.Fprintf(p.w, "%30s %16.10f\n", "ELECTROSTATIC ENERGY", en.Electrostatic)
	fmt.Fprintf(p.w, "%30s %16.10f\n", "POLARIZATION ENERGY", en.Polarization)
	fmt.Fprintf(p.w, "%30s %16.10f\n", "DISPERSION ENERGY", en.Dispersion)
	fmt.Fprintf(p.w, "%30s %16.10f\n", "EXCHANGE REPULSION ENERGY", en.ExchangeRepulsion)
	fmt.Fprintf(p.w, "%30s %16.10f\n", "TOTAL ENERGY", en.Total)
}

// Gradient prints six derivatives per fragment.
func (p *Printer) Gradient(g []float64) {
	p.heading("GRADIENT (ATOMIC UNITS)")
	for i := 0; i < len(g)/6; i++ {
		fmt.Fprintf(p.w, "%-20s %s\n", p.name(i), row(g[6*i:6*i+6]))
	}
}

// Matrix prints m in blocks of six columns with 1-based labels.
func (p *Printer) Matrix(title string, m mat.Matrix) {
	p.heading(title)
	r, c := m.Dims()
	const width = 6

	for start := 0; start < c; start += width {
		end := start + width
		if end > c {
			end = c
		}

		var b strings.Builder
		b.WriteString("      ")
		for j := start; j < end; j++ {
			fmt.Fprintf(&b, " %14d", j+1)
		}
		fmt.Fprintln(p.w, b.String())

		for i := 0; i < r; i++ {
			b.Reset()
			fmt.Fprintf(&b, "%6d", i+1)
			for j := start; j < end; j++ {
				fmt.Fprintf(&b, " %14.6e", m.At(i, j))
			}
			fmt.Fprintln(p.w, b.String())
		}
		fmt.Fprintln(p.w)
	}
}

// Status prints one line of key-value pairs for an iteration.
func (p *Printer) Status(title string, pairs ...Pair) {
	p.heading(title)
	for _, kv := range pairs {
		fmt.Fprintf(p.w, "%30s %16.10f\n", kv.Key, kv.Value)
	}
}

// Pair is one labelled scalar in a status block.
type Pair struct {
	Key   string
	Value float64
}

func row(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%14.8f", x)
	}
	return strings.Join(parts, " ")
}

// Vector prints v six values per line.
func (p *Printer) Vector(title string, v []float64) {
	p.heading(title)
	for start := 0; start < len(v); start += 6 {
		end := start + 6
		if end > len(v) {
			end = len(v)
		}
		fmt.Fprintln(p.w, row(v[start:end]))
	}
}
