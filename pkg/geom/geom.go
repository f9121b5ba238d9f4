// Package geom holds the small amount of vector, triangle and transform
// math shared by the mesh packages. Vectors are sdfx v3.Vec values and
// placement transforms are sdfx sdf.M44 matrices.
package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Epsilon is the default tolerance for degenerate length and area checks.
const Epsilon = 1e-12

// Component returns the axis-th component of v (0 = X, 1 = Y, 2 = Z).
func Component(v v3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// SetComponent returns v with its axis-th component replaced by f.
func SetComponent(v v3.Vec, axis int, f float64) v3.Vec {
	switch axis {
	case 0:
		v.X = f
	case 1:
		v.Y = f
	default:
		v.Z = f
	}
	return v
}

// Normalize returns v scaled to unit length, or the zero vector when v is
// too short to normalize.
func Normalize(v v3.Vec) v3.Vec {
	l := v.Length()
	if l < Epsilon {
		return v3.Vec{}
	}
	return v.DivScalar(l)
}

// Lerp interpolates between a and b.
func Lerp(a, b v3.Vec, t float64) v3.Vec {
	return a.Add(b.Sub(a).MulScalar(t))
}

// DominantAxis returns the index of the largest absolute component of v.
func DominantAxis(v v3.Vec) int {
	a := v.Abs()
	if a.X >= a.Y && a.X >= a.Z {
		return 0
	}
	if a.Y >= a.Z {
		return 1
	}
	return 2
}

// Project2D drops the given axis, keeping a right-handed ordering of the
// remaining two components so that counter-clockwise order is preserved
// when viewed from the positive side of that axis.
func Project2D(v v3.Vec, axis int) (float64, float64) {
	switch axis {
	case 0:
		return v.Y, v.Z
	case 1:
		return v.Z, v.X
	default:
		return v.X, v.Y
	}
}

// Orthonormal returns two unit vectors that complete n to a right-handed
// orthonormal frame.
func Orthonormal(n v3.Vec) (v3.Vec, v3.Vec) {
	n = Normalize(n)
	var a v3.Vec
	if math.Abs(n.X) > 0.9 {
		a = v3.Vec{Y: 1}
	} else {
		a = v3.Vec{X: 1}
	}
	u := Normalize(n.Cross(a))
	return u, n.Cross(u)
}

// AreaNormal returns the unnormalized normal of triangle (a, b, c); its
// length is twice the triangle area.
func AreaNormal(a, b, c v3.Vec) v3.Vec {
	return b.Sub(a).Cross(c.Sub(a))
}

// TriangleNormal returns the unit normal of triangle (a, b, c) following
// counter-clockwise winding.
func TriangleNormal(a, b, c v3.Vec) v3.Vec {
	return Normalize(AreaNormal(a, b, c))
}

// TriangleArea returns the area of triangle (a, b, c).
func TriangleArea(a, b, c v3.Vec) float64 {
	return 0.5 * AreaNormal(a, b, c).Length()
}

// Centroid returns the centroid of triangle (a, b, c).
func Centroid(a, b, c v3.Vec) v3.Vec {
	return a.Add(b).Add(c).DivScalar(3)
}

// Cot returns the cotangent of the angle between u and v.
func Cot(u, v v3.Vec) float64 {
	cross := u.Cross(v).Length()
	if cross < Epsilon {
		return 0
	}
	return u.Dot(v) / cross
}

// Barycentric returns the barycentric coordinates of p with respect to
// triangle (a, b, c). p is assumed to lie in the triangle's plane.
func Barycentric(p, a, b, c v3.Vec) [3]float64 {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if math.Abs(denom) < Epsilon {
		return [3]float64{1, 0, 0}
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	return [3]float64{1 - v - w, v, w}
}

// ClosestPointOnTriangle returns the point of triangle (a, b, c) nearest to
// p, following the region tests of Ericson's Real-Time Collision Detection.
func ClosestPointOnTriangle(p, a, b, c v3.Vec) v3.Vec {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.MulScalar(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.MulScalar(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).MulScalar(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.MulScalar(v)).Add(ac.MulScalar(w))
}

// ClosestPointOnSegment returns the point of segment (a, b) nearest to p
// and its parameter along the segment.
func ClosestPointOnSegment(p, a, b v3.Vec) (v3.Vec, float64) {
	ab := b.Sub(a)
	l2 := ab.Length2()
	if l2 < Epsilon {
		return a, 0
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.MulScalar(t)), t
}

// SolidAngle returns the signed solid angle subtended by triangle (a, b, c)
// at p (Van Oosterom and Strackee). It is positive when p lies behind the
// triangle, that is on the side opposite its counter-clockwise normal.
func SolidAngle(p, a, b, c v3.Vec) float64 {
	ra := a.Sub(p)
	rb := b.Sub(p)
	rc := c.Sub(p)
	la := ra.Length()
	lb := rb.Length()
	lc := rc.Length()
	num := ra.Dot(rb.Cross(rc))
	den := la*lb*lc + ra.Dot(rb)*lc + rb.Dot(rc)*la + rc.Dot(ra)*lb
	return 2 * math.Atan2(num, den)
}

// Plane is the set of points x with Normal.Dot(x) == D.
type Plane struct {
	Normal v3.Vec
	D      float64
}

// PlaneFromTriangle returns the supporting plane of triangle (a, b, c).
func PlaneFromTriangle(a, b, c v3.Vec) Plane {
	n := TriangleNormal(a, b, c)
	return Plane{Normal: n, D: n.Dot(a)}
}

// Distance returns the signed distance of p from the plane.
func (pl Plane) Distance(p v3.Vec) float64 {
	return pl.Normal.Dot(p) - pl.D
}
