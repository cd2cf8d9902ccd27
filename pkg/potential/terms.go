package potential

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// evaluation accumulates energies and Cartesian site gradients for one
// compute pass.
type evaluation struct {
	m        *Model
	withGrad bool
	energy   Energy

	siteGrad   [][]r3.Vec
	centerGrad []r3.Vec
}

func newEvaluation(m *Model, gradient bool) *evaluation {
	e := &evaluation{m: m, withGrad: gradient}
	if gradient {
		e.siteGrad = make([][]r3.Vec, len(m.frags))
		for i, f := range m.frags {
			e.siteGrad[i] = make([]r3.Vec, len(f.sites))
		}
		e.centerGrad = make([]r3.Vec, len(m.frags))
	}
	return e
}

func (e *evaluation) run() {
	n := len(e.m.frags)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			e.pair(a, b)
		}
	}
	if e.m.opts.Terms.Has(TermPol) {
		e.polarization()
	}

	e.energy.Total = e.energy.Electrostatic + e.energy.Polarization +
		e.energy.Dispersion + e.energy.ExchangeRepulsion
}

// shift is the minimum-image translation applied to fragment b when it
// interacts with fragment a.
func (e *evaluation) shift(a, b int) r3.Vec {
	if !e.m.opts.EnablePBC {
		return r3.Vec{}
	}
	d := r3.Sub(e.m.frags[b].center, e.m.frags[a].center)
	box := e.m.box
	return r3.Vec{
		X: minimumImage(d.X, box.X),
		Y: minimumImage(d.Y, box.Y),
		Z: minimumImage(d.Z, box.Z),
	}
}

func minimumImage(d, l float64) float64 {
	if l <= 0 {
		return 0
	}
	return -l * math.Round(d/l)
}

// switching is a cubic switching function of the center distance that
// goes from 1 at 0.8*cutoff to 0 at the cutoff.
func (e *evaluation) switching(r float64) (s, ds float64) {
	if !e.m.opts.EnableCutoff {
		return 1, 0
	}
	off := e.m.opts.SwfCutoff
	on := 0.8 * off
	switch {
	case r <= on:
		return 1, 0
	case r >= off:
		return 0, 0
	}
	w := off - on
	t := (r - on) / w
	return 1 - 3*t*t + 2*t*t*t, (6*t*t - 6*t) / w
}

func (e *evaluation) pair(a, b int) {
	fa, fb := e.m.frags[a], e.m.frags[b]
	s := e.shift(a, b)

	cd := r3.Add(r3.Sub(fb.center, fa.center), s)
	rc := r3.Norm(cd)
	sw, dsw := e.switching(rc)
	if sw == 0 {
		return
	}

	terms := e.m.opts.Terms
	var pe Energy
	var ga, gb []r3.Vec
	if e.withGrad {
		ga = make([]r3.Vec, len(fa.sites))
		gb = make([]r3.Vec, len(fb.sites))
	}

	for i, ri := range fa.sites {
		pi := &fa.pot.Atoms[i]
		for j, rj := range fb.sites {
			pj := &fb.pot.Atoms[j]
			d := r3.Sub(ri, r3.Add(rj, s))
			r := r3.Norm(d)

			var dEdr float64
			if terms.Has(TermElec) {
				v, dv := e.elec(pi, pj, r)
				pe.Electrostatic += v
				dEdr += dv
			}
			if terms.Has(TermDisp) {
				v, dv := e.disp(pi, pj, r)
				pe.Dispersion += v
				dEdr += dv
			}
			if terms.Has(TermXR) {
				v, dv := xr(pi, pj, r)
				pe.ExchangeRepulsion += v
				dEdr += dv
			}

			if e.withGrad && dEdr != 0 {
				g := r3.Scale(dEdr/r, d)
				ga[i] = r3.Add(ga[i], g)
				gb[j] = r3.Sub(gb[j], g)
			}
		}
	}

	e.energy.Electrostatic += sw * pe.Electrostatic
	e.energy.Dispersion += sw * pe.Dispersion
	e.energy.ExchangeRepulsion += sw * pe.ExchangeRepulsion

	if !e.withGrad {
		return
	}
	for i := range ga {
		e.siteGrad[a][i] = r3.Add(e.siteGrad[a][i], r3.Scale(sw, ga[i]))
	}
	for j := range gb {
		e.siteGrad[b][j] = r3.Add(e.siteGrad[b][j], r3.Scale(sw, gb[j]))
	}
	if dsw != 0 {
		total := pe.Electrostatic + pe.Dispersion + pe.ExchangeRepulsion
		g := r3.Scale(total*dsw/rc, cd)
		e.centerGrad[b] = r3.Add(e.centerGrad[b], g)
		e.centerGrad[a] = r3.Sub(e.centerGrad[a], g)
	}
}

// elec returns the damped charge-charge energy and its radial derivative.
func (e *evaluation) elec(pi, pj *AtomParams, r float64) (float64, float64) {
	qq := pi.Charge * pj.Charge
	if qq == 0 {
		return 0, 0
	}

	f, df := 1.0, 0.0
	if pi.Screen > 0 && pj.Screen > 0 {
		a := math.Sqrt(pi.Screen * pj.Screen)
		x := math.Exp(-a * r)
		switch e.m.opts.ElecDamp {
		case ElecDampScreen:
			f, df = 1-x, a*x
		case ElecDampOverlap:
			f, df = 1-(1+a*r/2)*x, a/2*(1+a*r)*x
		}
	}

	return qq * f / r, qq * (df/r - f/(r*r))
}

// disp returns the damped C6 dispersion energy and its radial derivative.
func (e *evaluation) disp(pi, pj *AtomParams, r float64) (float64, float64) {
	if pi.C6 <= 0 || pj.C6 <= 0 {
		return 0, 0
	}
	c6 := math.Sqrt(pi.C6 * pj.C6)
	b := (pi.XRExponent + pj.XRExponent) / 2

	f, df := 1.0, 0.0
	if b > 0 {
		switch e.m.opts.DispDamp {
		case DispDampTT:
			f, df = tangToennies(b, r, 6)
		case DispDampOverlap:
			f, df = tangToennies(b, r, 2)
		}
	}

	r6 := math.Pow(r, 6)
	return -c6 * f / r6, -c6 * (df/r6 - 6*f/(r6*r))
}

// tangToennies is the damping 1 - exp(-x) sum_{k<=n} x^k/k! with x = b*r,
// and its derivative with respect to r.
func tangToennies(b, r float64, n int) (float64, float64) {
	x := b * r
	ex := math.Exp(-x)

	sum, term := 1.0, 1.0
	for k := 1; k <= n; k++ {
		term *= x / float64(k)
		sum += term
	}
	return 1 - ex*sum, b * ex * term
}

func xr(pi, pj *AtomParams, r float64) (float64, float64) {
	if pi.XRPrefactor <= 0 || pj.XRPrefactor <= 0 {
		return 0, 0
	}
	a := math.Sqrt(pi.XRPrefactor * pj.XRPrefactor)
	b := (pi.XRExponent + pj.XRExponent) / 2
	if b <= 0 {
		return 0, 0
	}
	v := a * math.Exp(-b*r)
	return v, -b * v
}

type fieldSource struct {
	frag, site int
	q          float64
	d          r3.Vec
}

// polarization adds -1/2 alpha |F|^2 for every polarizable site, where F is
// the field of the charges of all other fragments.
func (e *evaluation) polarization() {
	frags := e.m.frags
	var sources []fieldSource

	for a, fa := range frags {
		for i, ri := range fa.sites {
			alpha := fa.pot.Atoms[i].Polarizability
			if alpha == 0 {
				continue
			}

			sources = sources[:0]
			var field r3.Vec
			for b, fb := range frags {
				if b == a {
					continue
				}
				s := e.shift(a, b)
				if e.m.opts.EnableCutoff {
					if r3.Norm(r3.Add(r3.Sub(fb.center, fa.center), s)) >= e.m.opts.SwfCutoff {
						continue
					}
				}
				for j, rj := range fb.sites {
					pj := &fb.pot.Atoms[j]
					if pj.Charge == 0 {
						continue
					}
					d := r3.Sub(ri, r3.Add(rj, s))
					k, _ := e.fieldKernel(&fa.pot.Atoms[i], pj, r3.Norm(d))
					field = r3.Add(field, r3.Scale(pj.Charge*k, d))
					sources = append(sources, fieldSource{frag: b, site: j, q: pj.Charge, d: d})
				}
			}

			e.energy.Polarization -= 0.5 * alpha * r3.Dot(field, field)

			if !e.withGrad {
				continue
			}
			for _, src := range sources {
				r := r3.Norm(src.d)
				k, dk := e.fieldKernel(&fa.pot.Atoms[i], &frags[src.frag].pot.Atoms[src.site], r)
				jf := r3.Scale(src.q, r3.Add(r3.Scale(k, field), r3.Scale(dk/r*r3.Dot(src.d, field), src.d)))
				g := r3.Scale(-alpha, jf)
				e.siteGrad[a][i] = r3.Add(e.siteGrad[a][i], g)
				e.siteGrad[src.frag][src.site] = r3.Sub(e.siteGrad[src.frag][src.site], g)
			}
		}
	}
}

// fieldKernel returns s(r) = g(r)/r^3 and ds/dr, where g is the
// polarization damping.
func (e *evaluation) fieldKernel(pi, pj *AtomParams, r float64) (float64, float64) {
	g, dg := 1.0, 0.0
	if e.m.opts.PolDamp == PolDampTT {
		if p := (pi.XRExponent + pj.XRExponent) / 2; p > 0 {
			ex := math.Exp(-p * r)
			g, dg = 1-ex*(1+p*r), p*p*r*ex
		}
	}
	r3inv := 1 / (r * r * r)
	return g * r3inv, dg*r3inv - 3*g*r3inv/r
}

// generalized maps Cartesian site gradients onto center and Euler angle
// derivatives.
func (e *evaluation) generalized() []float64 {
	out := make([]float64, 6*len(e.m.frags))
	for a, f := range e.m.frags {
		gc := e.centerGrad[a]
		for _, g := range e.siteGrad[a] {
			gc = r3.Add(gc, g)
		}
		out[6*a+0] = gc.X
		out[6*a+1] = gc.Y
		out[6*a+2] = gc.Z

		der := eulerDerivatives(f.euler[0], f.euler[1], f.euler[2])
		for k := 0; k < 3; k++ {
			var t float64
			for i, l := range f.pot.local {
				t += r3.Dot(e.siteGrad[a][i], der[k].apply(l))
			}
			out[6*a+3+k] = t
		}
	}
	return out
}
