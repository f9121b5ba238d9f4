package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Identity returns the identity placement.
func Identity() sdf.M44 {
	return sdf.Identity3d()
}

// Translation returns a placement that moves points by d.
func Translation(d v3.Vec) sdf.M44 {
	return sdf.Translate3d(d)
}

// Scaling returns a placement that scales points by s about the origin.
func Scaling(s v3.Vec) sdf.M44 {
	return sdf.Scale3d(s)
}

// EulerDegrees returns the rotation applying X, then Y, then Z rotations
// given in degrees.
func EulerDegrees(deg v3.Vec) sdf.M44 {
	rad := deg.MulScalar(math.Pi / 180)
	return sdf.RotateZ(rad.Z).Mul(sdf.RotateY(rad.Y)).Mul(sdf.RotateX(rad.X))
}

// TransformPoint applies m to p.
func TransformPoint(m sdf.M44, p v3.Vec) v3.Vec {
	return m.MulPosition(p)
}

// TransformDirection applies the linear part of m to d and renormalizes.
func TransformDirection(m sdf.M44, d v3.Vec) v3.Vec {
	origin := m.MulPosition(v3.Vec{})
	return Normalize(m.MulPosition(d).Sub(origin))
}

// TransformNormal maps a surface normal through m using the inverse
// transpose of its linear part.
func TransformNormal(m sdf.M44, n v3.Vec) v3.Vec {
	inv := m.Inverse()
	// Column i of the inverse's linear part is inv applied to e_i minus
	// the translation; the normal is the transpose applied to n.
	o := inv.MulPosition(v3.Vec{})
	cx := inv.MulPosition(v3.Vec{X: 1}).Sub(o)
	cy := inv.MulPosition(v3.Vec{Y: 1}).Sub(o)
	cz := inv.MulPosition(v3.Vec{Z: 1}).Sub(o)
	return Normalize(v3.Vec{X: cx.Dot(n), Y: cy.Dot(n), Z: cz.Dot(n)})
}

// FlipsOrientation reports whether m mirrors space, which reverses the
// winding of transformed triangles.
func FlipsOrientation(m sdf.M44) bool {
	o := m.MulPosition(v3.Vec{})
	x := m.MulPosition(v3.Vec{X: 1}).Sub(o)
	y := m.MulPosition(v3.Vec{Y: 1}).Sub(o)
	z := m.MulPosition(v3.Vec{Z: 1}).Sub(o)
	return x.Cross(y).Dot(z) < 0
}

// Frame returns a placement that maps the local Z axis onto normal and
// the local origin onto origin.
func Frame(origin, normal v3.Vec) sdf.M44 {
	n := Normalize(normal)
	z := v3.Vec{Z: 1}
	var rot sdf.M44
	switch d := z.Dot(n); {
	case d > 1-1e-9:
		rot = sdf.Identity3d()
	case d < -1+1e-9:
		rot = sdf.RotateX(math.Pi)
	default:
		rot = sdf.Rotate3d(Normalize(z.Cross(n)), math.Acos(d))
	}
	return sdf.Translate3d(origin).Mul(rot)
}
