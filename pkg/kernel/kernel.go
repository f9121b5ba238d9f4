// Package kernel defines the solid modeling kernel interface used to
// build primitive inputs for the mesh pipeline. The sdfx implementation
// models solids implicitly and tessellates them into indexed meshes; the
// brep implementation works on explicit meshes throughout. Callers pick a
// backend without changing the rest of the system.
package kernel

import (
	"context"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/mesh"
)

// Solid is an opaque handle to a kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() sdf.Box3
}

// Kernel is the solid modeling interface.
type Kernel interface {
	// Primitives
	Box(size v3.Vec) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)
	Sphere(radius float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, d v3.Vec) Solid
	Rotate(s Solid, degrees v3.Vec) Solid // Euler angles in degrees, X then Y then Z
	Scale(s Solid, f float64) Solid

	// Mesh output. cells is the marching cubes resolution along the
	// longest axis; zero selects the kernel default. Backends without a
	// tessellation step ignore it.
	ToMesh(ctx context.Context, s Solid, cells int) (*mesh.Mesh, error)
}
