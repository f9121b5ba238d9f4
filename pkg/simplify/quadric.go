package simplify

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/mat"
)

// condLimit is the largest condition number for which the quadric
// optimum is trusted.
const condLimit = 1e7

// quadric is the symmetric 4x4 error matrix of a set of planes, stored
// as its upper triangle:
//
//	a b c d
//	  e f g
//	    h i
//	      j
type quadric struct {
	a, b, c, d float64
	e, f, g    float64
	h, i       float64
	j          float64
}

// planeQuadric returns the quadric of the plane through p with unit
// normal n, scaled by w.
func planeQuadric(n, p v3.Vec, w float64) quadric {
	d := -n.Dot(p)
	return quadric{
		a: w * n.X * n.X, b: w * n.X * n.Y, c: w * n.X * n.Z, d: w * n.X * d,
		e: w * n.Y * n.Y, f: w * n.Y * n.Z, g: w * n.Y * d,
		h: w * n.Z * n.Z, i: w * n.Z * d,
		j: w * d * d,
	}
}

func (q quadric) add(o quadric) quadric {
	return quadric{
		a: q.a + o.a, b: q.b + o.b, c: q.c + o.c, d: q.d + o.d,
		e: q.e + o.e, f: q.f + o.f, g: q.g + o.g,
		h: q.h + o.h, i: q.i + o.i,
		j: q.j + o.j,
	}
}

// eval returns the squared plane distance sum at p.
func (q quadric) eval(p v3.Vec) float64 {
	x, y, z := p.X, p.Y, p.Z
	return q.a*x*x + 2*q.b*x*y + 2*q.c*x*z + 2*q.d*x +
		q.e*y*y + 2*q.f*y*z + 2*q.g*y +
		q.h*z*z + 2*q.i*z +
		q.j
}

// optimum returns the point minimizing q, or false when the system is
// close to singular.
func (q quadric) optimum() (v3.Vec, bool) {
	a := mat.NewDense(3, 3, []float64{
		q.a, q.b, q.c,
		q.b, q.e, q.f,
		q.c, q.f, q.h,
	})
	var lu mat.LU
	lu.Factorize(a)
	if lu.Cond() > condLimit {
		return v3.Vec{}, false
	}
	rhs := mat.NewVecDense(3, []float64{-q.d, -q.g, -q.i})
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, rhs); err != nil {
		return v3.Vec{}, false
	}
	return v3.Vec{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}, true
}
