package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// TriangleTriangleSegment returns the segment along which two triangles
// intersect. Signed distances within tol of a plane count as zero. It
// reports false for disjoint triangles, for single-point contacts and for
// coplanar pairs, which callers handle separately.
func TriangleTriangleSegment(a [3]v3.Vec, b [3]v3.Vec, tol float64) (v3.Vec, v3.Vec, bool) {
	na := TriangleNormal(a[0], a[1], a[2])
	nb := TriangleNormal(b[0], b[1], b[2])
	if na.Length2() == 0 || nb.Length2() == 0 {
		return v3.Vec{}, v3.Vec{}, false
	}
	da, ok := planeDistances(a, nb, nb.Dot(b[0]), tol)
	if !ok {
		return v3.Vec{}, v3.Vec{}, false
	}
	db, ok := planeDistances(b, na, na.Dot(a[0]), tol)
	if !ok {
		return v3.Vec{}, v3.Vec{}, false
	}
	dir := na.Cross(nb)
	if dir.Length() < tol {
		return v3.Vec{}, v3.Vec{}, false
	}
	pa, qa, ok := planeCrossing(a, da, dir)
	if !ok {
		return v3.Vec{}, v3.Vec{}, false
	}
	pb, qb, ok := planeCrossing(b, db, dir)
	if !ok {
		return v3.Vec{}, v3.Vec{}, false
	}
	lo, hi := pa, qa
	if dir.Dot(pb) > dir.Dot(lo) {
		lo = pb
	}
	if dir.Dot(qb) < dir.Dot(hi) {
		hi = qb
	}
	if dir.Dot(hi)-dir.Dot(lo) <= tol*dir.Length() {
		return v3.Vec{}, v3.Vec{}, false
	}
	return lo, hi, true
}

// planeDistances returns the snapped signed distances of t's corners from
// the plane n.x = d, or false when all corners are strictly on one side or
// all lie in the plane.
func planeDistances(t [3]v3.Vec, n v3.Vec, d, tol float64) ([3]float64, bool) {
	var out [3]float64
	pos, neg := 0, 0
	for i, p := range t {
		s := n.Dot(p) - d
		if math.Abs(s) <= tol {
			s = 0
		}
		out[i] = s
		if s > 0 {
			pos++
		} else if s < 0 {
			neg++
		}
	}
	if pos == 3 || neg == 3 || (pos == 0 && neg == 0) {
		return out, false
	}
	return out, true
}

// planeCrossing returns the extreme points, ordered along dir, of the
// part of triangle t lying in the plane whose distances are given.
func planeCrossing(t [3]v3.Vec, d [3]float64, dir v3.Vec) (v3.Vec, v3.Vec, bool) {
	var pts []v3.Vec
	for i := 0; i < 3; i++ {
		j := (i + 1) % 3
		if d[i] == 0 {
			pts = append(pts, t[i])
		}
		if (d[i] > 0 && d[j] < 0) || (d[i] < 0 && d[j] > 0) {
			s := d[i] / (d[i] - d[j])
			pts = append(pts, Lerp(t[i], t[j], s))
		}
	}
	if len(pts) < 2 {
		return v3.Vec{}, v3.Vec{}, false
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		if dir.Dot(p) < dir.Dot(lo) {
			lo = p
		}
		if dir.Dot(p) > dir.Dot(hi) {
			hi = p
		}
	}
	return lo, hi, true
}
