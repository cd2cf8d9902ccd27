package potential

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// AtomParams are the per-site parameters of a fragment potential file.
type AtomParams struct {
	Label          string    `yaml:"label"`
	Mass           float64   `yaml:"mass"`
	Position       []float64 `yaml:"position"`
	Charge         float64   `yaml:"charge"`
	Polarizability float64   `yaml:"polarizability"`
	C6             float64   `yaml:"c6"`
	XRPrefactor    float64   `yaml:"xr_prefactor"`
	XRExponent     float64   `yaml:"xr_exponent"`
	Screen         float64   `yaml:"screen"`
}

// Potential is a rigid fragment type loaded from a potential file.
type Potential struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Atoms       []AtomParams `yaml:"atoms"`

	// atom positions relative to the center of mass, bohr
	local []r3.Vec
	mass  float64
}

// LoadPotential reads a YAML potential file. When the file does not name
// the fragment, the base name without extension is used.
func LoadPotential(path string) (*Potential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read potential file: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pot, err := ParsePotential(data, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pot, nil
}

// ParsePotential decodes potential parameters from YAML.
func ParsePotential(data []byte, fallbackName string) (*Potential, error) {
	var pot Potential
	if err := yaml.Unmarshal(data, &pot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPotential, err)
	}

	if pot.Name == "" {
		pot.Name = fallbackName
	}
	pot.Name = strings.ToLower(pot.Name)

	if len(pot.Atoms) == 0 {
		return nil, fmt.Errorf("%w: no atoms", ErrBadPotential)
	}

	var com r3.Vec
	for i, a := range pot.Atoms {
		if len(a.Position) != 3 {
			return nil, fmt.Errorf("%w: atom %d needs 3 position components", ErrBadPotential, i+1)
		}
		if a.Mass <= 0 {
			return nil, fmt.Errorf("%w: atom %d has non-positive mass", ErrBadPotential, i+1)
		}
		pos := r3.Vec{X: a.Position[0], Y: a.Position[1], Z: a.Position[2]}
		com = r3.Add(com, r3.Scale(a.Mass, pos))
		pot.mass += a.Mass
	}
	com = r3.Scale(1/pot.mass, com)

	pot.local = make([]r3.Vec, len(pot.Atoms))
	for i, a := range pot.Atoms {
		pos := r3.Vec{X: a.Position[0], Y: a.Position[1], Z: a.Position[2]}
		pot.local[i] = r3.Sub(pos, com)
	}

	return &pot, nil
}

// Mass returns the total fragment mass in amu.
func (p *Potential) Mass() float64 {
	return p.mass
}

// Inertia returns the principal moments of inertia, ascending.
func (p *Potential) Inertia() ([3]float64, error) {
	var t [9]float64
	for i, a := range p.Atoms {
		r := p.local[i]
		c := [3]float64{r.X, r.Y, r.Z}
		r2 := r3.Norm2(r)
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				v := -a.Mass * c[j] * c[k]
				if j == k {
					v += a.Mass * r2
				}
				t[3*j+k] += v
			}
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(mat.NewSymDense(3, t[:]), false); !ok {
		return [3]float64{}, fmt.Errorf("%w: inertia tensor of %s did not factorize", ErrBadPotential, p.Name)
	}

	var out [3]float64
	copy(out[:], es.Values(nil))
	return out, nil
}
