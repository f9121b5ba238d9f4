package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin    v3.Vec
	Direction v3.Vec
}

// NewRay returns a ray from origin along the normalized direction.
func NewRay(origin, direction v3.Vec) Ray {
	return Ray{Origin: origin, Direction: Normalize(direction)}
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) v3.Vec {
	return r.Origin.Add(r.Direction.MulScalar(t))
}

// RayTriangle intersects r with triangle (a, b, c) using the
// Moller-Trumbore test. It reports the ray parameter of the hit; hits
// behind the origin are rejected. Both triangle sides are hit.
func RayTriangle(r Ray, a, b, c v3.Vec) (float64, bool) {
	const eps = 1e-12
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	pvec := r.Direction.Cross(e2)
	det := e1.Dot(pvec)
	if det > -eps && det < eps {
		return 0, false
	}
	invDet := 1 / det
	tvec := r.Origin.Sub(a)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	qvec := tvec.Cross(e1)
	v := r.Direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(qvec) * invDet
	if t < 0 {
		return 0, false
	}
	return t, true
}

// RayBox intersects r with box b using the slab method and returns the
// entry parameter, clamped to zero when the origin is inside.
func RayBox(r Ray, b sdf.Box3) (float64, bool) {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o := Component(r.Origin, axis)
		d := Component(r.Direction, axis)
		lo := Component(b.Min, axis)
		hi := Component(b.Max, axis)
		if math.Abs(d) < 1e-15 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	return math.Max(tmin, 0), true
}
