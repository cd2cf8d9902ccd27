package potential

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// rotation is a 3x3 row-major rotation matrix.
type rotation [3][3]float64

func (m *rotation) apply(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// eulerMatrix builds the zyz rotation for angles a, b, c.
func eulerMatrix(a, b, c float64) rotation {
	sa, ca := math.Sincos(a)
	sb, cb := math.Sincos(b)
	sc, cc := math.Sincos(c)

	return rotation{
		{ca*cc - sa*cb*sc, -ca*sc - sa*cb*cc, sb * sa},
		{sa*cc + ca*cb*sc, -sa*sc + ca*cb*cc, -sb * ca},
		{sb * sc, sb * cc, cb},
	}
}

// eulerDerivatives returns the derivatives of eulerMatrix with respect to
// each of the three angles.
func eulerDerivatives(a, b, c float64) [3]rotation {
	sa, ca := math.Sincos(a)
	sb, cb := math.Sincos(b)
	sc, cc := math.Sincos(c)

	return [3]rotation{
		{
			{-sa*cc - ca*cb*sc, sa*sc - ca*cb*cc, sb * ca},
			{ca*cc - sa*cb*sc, -ca*sc - sa*cb*cc, sb * sa},
			{0, 0, 0},
		},
		{
			{sa * sb * sc, sa * sb * cc, cb * sa},
			{-ca * sb * sc, -ca * sb * cc, -cb * ca},
			{cb * sc, cb * cc, -sb},
		},
		{
			{-ca*sc - sa*cb*cc, -ca*cc + sa*cb*sc, 0},
			{-sa*sc + ca*cb*cc, -sa*cc - ca*cb*sc, 0},
			{sb * cc, -sb * sc, 0},
		},
	}
}

// matrixToEuler inverts eulerMatrix, returning beta in [0, pi].
func matrixToEuler(m rotation) (a, b, c float64) {
	if math.Abs(m[2][2]) >= 1-1e-12 {
		a = math.Atan2(m[1][0], m[0][0])
		if m[2][2] > 0 {
			b = 0
		} else {
			b = math.Pi
		}
		return a, b, 0
	}

	a = math.Atan2(m[0][2], -m[1][2])
	b = math.Acos(m[2][2])
	c = math.Atan2(m[2][0], m[2][1])
	return a, b, c
}

// frame returns an orthonormal basis built from three points, one vector
// per column.
func frame(p0, p1, p2 r3.Vec) ([3]r3.Vec, bool) {
	const eps = 1e-10

	d1 := r3.Sub(p1, p0)
	if r3.Norm(d1) < eps {
		return [3]r3.Vec{}, false
	}
	e1 := r3.Unit(d1)

	d2 := r3.Sub(p2, p0)
	perp := r3.Sub(d2, r3.Scale(r3.Dot(d2, e1), e1))
	if r3.Norm(perp) < eps {
		return [3]r3.Vec{}, false
	}
	e2 := r3.Unit(perp)

	return [3]r3.Vec{e1, e2, r3.Cross(e1, e2)}, true
}

// pointsToXYZABC finds the center and Euler angles that place the first
// three reference sites (relative to the center of mass) on the target
// points.
func pointsToXYZABC(ref [3]r3.Vec, pts [3]r3.Vec) ([6]float64, error) {
	fr, ok := frame(ref[0], ref[1], ref[2])
	if !ok {
		return [6]float64{}, ErrDegeneratePoints
	}
	ft, ok := frame(pts[0], pts[1], pts[2])
	if !ok {
		return [6]float64{}, ErrDegeneratePoints
	}

	comp := func(v r3.Vec, i int) float64 {
		switch i {
		case 0:
			return v.X
		case 1:
			return v.Y
		default:
			return v.Z
		}
	}

	var rot rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				rot[i][j] += comp(ft[k], i) * comp(fr[k], j)
			}
		}
	}

	center := r3.Sub(pts[0], rot.apply(ref[0]))
	a, b, c := matrixToEuler(rot)

	return [6]float64{center.X, center.Y, center.Z, a, b, c}, nil
}
