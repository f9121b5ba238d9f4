// Package brep implements the kernel.Kernel interface on explicit
// triangle meshes. Primitives are generated polyhedra and booleans run
// through the mesh boolean operator, so results keep exact flat faces and
// sharp edges instead of a marching cubes approximation.
package brep

import (
	"context"
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/boolean"
	"github.com/chazu/meshwork/pkg/generate"
	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/holefill"
	"github.com/chazu/meshwork/pkg/kernel"
	"github.com/chazu/meshwork/pkg/mesh"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*BrepKernel)(nil)
var _ kernel.Solid = (*brepSolid)(nil)

// DefaultSegments is the number of facets around curved primitives.
const DefaultSegments = 32

// brepSolid holds an immutable mesh. A failed boolean leaves err set;
// it surfaces from ToMesh so the kernel methods keep their error-free
// signatures.
type brepSolid struct {
	m   *mesh.Mesh
	err error
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *brepSolid) BoundingBox() sdf.Box3 {
	if s.m == nil {
		return geom.EmptyBox()
	}
	return s.m.Bounds()
}

// BrepKernel implements kernel.Kernel with mesh booleans.
type BrepKernel struct {
	// Segments is the facet count around cylinders and spheres.
	Segments int
	// FillMethod closes the gaps of a boolean that did not come out
	// closed.
	FillMethod holefill.Method
}

// New returns a BrepKernel with the default settings.
func New() *BrepKernel {
	return &BrepKernel{Segments: DefaultSegments, FillMethod: holefill.EarClip}
}

func (k *BrepKernel) segments() int {
	if k.Segments < 3 {
		return DefaultSegments
	}
	return k.Segments
}

func unwrap(s kernel.Solid) *brepSolid {
	return s.(*brepSolid)
}

func wrap(m *mesh.Mesh) kernel.Solid {
	return &brepSolid{m: m}
}

// Box creates an axis-aligned box with the given dimensions centered on
// the origin.
func (k *BrepKernel) Box(size v3.Vec) (kernel.Solid, error) {
	m, err := generate.MinimalBox(v3.Vec{}, size.MulScalar(0.5))
	if err != nil {
		return nil, fmt.Errorf("brep: box %v: %w", size, err)
	}
	return wrap(m), nil
}

// Cylinder creates a cylinder along Z centered on the origin.
func (k *BrepKernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	m, err := generate.Cylinder{Radius: radius, Height: height, Slices: k.segments()}.Generate()
	if err != nil {
		return nil, fmt.Errorf("brep: cylinder h=%g r=%g: %w", height, radius, err)
	}
	return wrap(m), nil
}

// Sphere creates a sphere centered on the origin.
func (k *BrepKernel) Sphere(radius float64) (kernel.Solid, error) {
	n := k.segments()
	m, err := generate.Sphere{Radius: radius, NumPhi: n/2 + 1, NumTheta: n}.Generate()
	if err != nil {
		return nil, fmt.Errorf("brep: sphere r=%g: %w", radius, err)
	}
	return wrap(m), nil
}

// Union returns the union of two solids.
func (k *BrepKernel) Union(a, b kernel.Solid) kernel.Solid {
	return k.combine(a, b, boolean.Union)
}

// Difference returns the difference a - b.
func (k *BrepKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return k.combine(a, b, boolean.Difference)
}

// Intersection returns the intersection of two solids.
func (k *BrepKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return k.combine(a, b, boolean.Intersect)
}

func (k *BrepKernel) combine(a, b kernel.Solid, op boolean.Op) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	if sa.err != nil {
		return sa
	}
	if sb.err != nil {
		return sb
	}
	bo := boolean.New(sa.m, geom.Identity(), sb.m, geom.Identity(), op)
	ok, err := bo.Compute(context.Background())
	if err != nil {
		return &brepSolid{err: fmt.Errorf("brep: %v: %w", op, err)}
	}
	if !ok {
		if _, err := holefill.FillAll(bo.Result, k.FillMethod); err != nil {
			return &brepSolid{err: fmt.Errorf("brep: %v left open edges: %w", op, err)}
		}
	}
	return wrap(bo.Result)
}

func (k *BrepKernel) transform(s kernel.Solid, m44 sdf.M44) kernel.Solid {
	bs := unwrap(s)
	if bs.err != nil {
		return bs
	}
	m := bs.m.Copy()
	m.Transform(m44)
	return wrap(m)
}

// Translate moves a solid by d.
func (k *BrepKernel) Translate(s kernel.Solid, d v3.Vec) kernel.Solid {
	return k.transform(s, geom.Translation(d))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *BrepKernel) Rotate(s kernel.Solid, degrees v3.Vec) kernel.Solid {
	return k.transform(s, geom.EulerDegrees(degrees))
}

// Scale scales a solid uniformly about the origin.
func (k *BrepKernel) Scale(s kernel.Solid, f float64) kernel.Solid {
	return k.transform(s, geom.Scaling(v3.Vec{X: f, Y: f, Z: f}))
}

// ToMesh returns a copy of the solid's mesh with vertex normals. The
// resolution is fixed when primitives are created, so cells is ignored.
func (k *BrepKernel) ToMesh(ctx context.Context, s kernel.Solid, cells int) (*mesh.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bs := unwrap(s)
	if bs.err != nil {
		return nil, bs.err
	}
	m := bs.m.Copy()
	m.ComputeVertexNormals()
	return m, nil
}
