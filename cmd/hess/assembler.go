package hess

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

// ErrBadDelta means the displacement step is not positive.
var ErrBadDelta = errors.New("displacement must be positive")

// Assembler builds a Hessian by forward differences of analytic gradients.
// Each generalized coordinate is displaced once by Delta; the engine is
// back at its starting geometry when Assemble returns.
type Assembler struct {
	Delta float64

	// Fill stores the difference quotients. When false every displacement
	// is still evaluated but the matrix stays zero.
	Fill bool

	// Progress is called after each displacement when set.
	Progress func(done, total int)
}

// Result is the reference point and the assembled matrix.
type Result struct {
	Energy   potential.Energy
	Gradient []float64
	Hessian  *mat.Dense
}

// Assemble evaluates the reference gradient and one displaced gradient per
// coordinate. Column i of the Hessian is (g(x + Delta e_i) - g(x)) / Delta.
func (a *Assembler) Assemble(ctx context.Context, e potential.Engine) (_ *Result, err error) {
	if !(a.Delta > 0) {
		return nil, fmt.Errorf("%w: %g", ErrBadDelta, a.Delta)
	}

	lease, err := simulation.Checkout(e)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := lease.Checkin(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	n := lease.Dim()
	if n == 0 {
		return nil, potential.ErrNoFragments
	}

	g0 := make([]float64, n)
	energy, err := lease.Evaluate(lease.Saved(), g0)
	if err != nil {
		return nil, fmt.Errorf("reference point: %w", err)
	}

	h := mat.NewDense(n, n, nil)
	gi := make([]float64, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := lease.Displace(i, a.Delta, gi); err != nil {
			return nil, fmt.Errorf("displacement of coordinate %d: %w", i+1, err)
		}
		if a.Fill {
			for j := 0; j < n; j++ {
				h.Set(j, i, (gi[j]-g0[j])/a.Delta)
			}
		}
		if a.Progress != nil {
			a.Progress(i+1, n)
		}
	}

	return &Result{Energy: energy, Gradient: g0, Hessian: h}, nil
}

// Asymmetry returns the largest |H_ij - H_ji|.
func Asymmetry(h mat.Matrix) float64 {
	r, _ := h.Dims()
	var worst float64
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			worst = math.Max(worst, math.Abs(h.At(i, j)-h.At(j, i)))
		}
	}
	return worst
}

// Eigenvalues returns the ascending eigenvalues of the symmetric part of h.
func Eigenvalues(h mat.Matrix) ([]float64, error) {
	r, _ := h.Dims()
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, 0.5*(h.At(i, j)+h.At(j, i)))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return nil, errors.New("eigendecomposition did not converge")
	}
	return eig.Values(nil), nil
}
