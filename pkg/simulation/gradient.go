package simulation

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// GradientStats returns the root mean square of g and its component of
// largest magnitude, with sign.
func GradientStats(g []float64) (rms, max float64) {
	if len(g) == 0 {
		return 0, 0
	}
	rms = floats.Norm(g, 2) / math.Sqrt(float64(len(g)))
	max = g[floats.MaxIdx(absAll(g))]
	return rms, max
}

func absAll(g []float64) []float64 {
	out := make([]float64, len(g))
	for i, v := range g {
		out[i] = math.Abs(v)
	}
	return out
}
