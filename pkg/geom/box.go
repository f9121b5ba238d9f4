package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// EmptyBox returns an inverted box that any Include call will replace.
func EmptyBox() sdf.Box3 {
	inf := math.Inf(1)
	return sdf.Box3{
		Min: v3.Vec{X: inf, Y: inf, Z: inf},
		Max: v3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmptyBox reports whether b contains no points.
func IsEmptyBox(b sdf.Box3) bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Include grows b to contain p.
func Include(b sdf.Box3, p v3.Vec) sdf.Box3 {
	return sdf.Box3{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing a and b.
func Union(a, b sdf.Box3) sdf.Box3 {
	return sdf.Box3{Min: a.Min.Min(b.Min), Max: a.Max.Max(b.Max)}
}

// Expand grows b by d on every side.
func Expand(b sdf.Box3, d float64) sdf.Box3 {
	e := v3.Vec{X: d, Y: d, Z: d}
	return sdf.Box3{Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

// TriangleBox returns the bounds of triangle (a, b, c).
func TriangleBox(a, b, c v3.Vec) sdf.Box3 {
	return sdf.Box3{Min: a.Min(b).Min(c), Max: a.Max(b).Max(c)}
}

// Contains reports whether p lies inside b.
func Contains(b sdf.Box3, p v3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Overlaps reports whether a and b intersect, allowing a gap of tol.
func Overlaps(a, b sdf.Box3, tol float64) bool {
	return a.Min.X <= b.Max.X+tol && b.Min.X <= a.Max.X+tol &&
		a.Min.Y <= b.Max.Y+tol && b.Min.Y <= a.Max.Y+tol &&
		a.Min.Z <= b.Max.Z+tol && b.Min.Z <= a.Max.Z+tol
}

// DistanceSqr returns the squared distance from p to b, zero inside.
func DistanceSqr(b sdf.Box3, p v3.Vec) float64 {
	d := 0.0
	for axis := 0; axis < 3; axis++ {
		v := Component(p, axis)
		lo := Component(b.Min, axis)
		hi := Component(b.Max, axis)
		if v < lo {
			d += (lo - v) * (lo - v)
		} else if v > hi {
			d += (v - hi) * (v - hi)
		}
	}
	return d
}

// MaxDim returns the length of the longest side of b.
func MaxDim(b sdf.Box3) float64 {
	return b.Size().MaxComponent()
}

// Diagonal returns the length of the diagonal of b.
func Diagonal(b sdf.Box3) float64 {
	return b.Size().Length()
}
