package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/picogrid/fragment-simulations/pkg/potential"
)

// Write emits cfg as an input file that Parse reads back to an equivalent
// configuration. Fragment lengths are converted back to the configured
// units.
func Write(w io.Writer, cfg *Config) error {
	bw := bufio.NewWriter(w)

	for _, opt := range registry {
		fmt.Fprintf(bw, "%s %s\n", opt.Name, opt.kind.format(cfg))
	}

	for _, f := range cfg.Fragments {
		fmt.Fprintf(bw, "\nfragment %s\n", QuoteName(f.Name))

		coord := append([]float64(nil), f.Coord...)
		lengths := coord
		if cfg.CoordType != potential.CoordPoints {
			lengths = coord[:3]
		}
		for i := range lengths {
			lengths[i] /= cfg.UnitsFactor
		}

		if cfg.CoordType == potential.CoordPoints {
			for i := 0; i < len(coord); i += 3 {
				fmt.Fprintln(bw, joinFloats(coord[i:i+3]))
			}
		} else {
			fmt.Fprintln(bw, joinFloats(coord))
		}

		if f.HasVelocity() {
			fmt.Fprintln(bw, "velocity")
			fmt.Fprintln(bw, joinFloats(f.Velocity))
		}
	}

	return bw.Flush()
}

func joinFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = formatFloat(x)
	}
	return strings.Join(parts, " ")
}
