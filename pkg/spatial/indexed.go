package spatial

import (
	"errors"
	"fmt"
	"math"
	"sync"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

// ErrEditInProgress is returned by queries issued between BeginEdit and
// EndEdit, and by a second BeginEdit.
var ErrEditInProgress = errors.New("spatial: edit in progress")

// Indexed owns a mesh together with its AABBTree and FastWinding and keeps
// them consistent. Mutation happens between BeginEdit and EndEdit; EndEdit
// rebuilds both structures.
type Indexed struct {
	mu      sync.RWMutex
	mesh    *mesh.Mesh
	tree    *AABBTree
	winding *FastWinding
	editing bool
}

// NewIndexed takes ownership of m and builds its spatial structures.
func NewIndexed(m *mesh.Mesh) *Indexed {
	ix := &Indexed{mesh: m}
	ix.rebuild()
	return ix
}

func (ix *Indexed) rebuild() {
	ix.tree = BuildAABBTree(ix.mesh)
	ix.winding = NewFastWinding(ix.tree)
	ix.winding.Build()
}

// BeginEdit hands out the mesh for mutation. Queries fail until EndEdit.
func (ix *Indexed) BeginEdit() (*mesh.Mesh, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.editing {
		return nil, ErrEditInProgress
	}
	ix.editing = true
	return ix.mesh, nil
}

// EndEdit closes the edit and rebuilds the tree and winding moments.
func (ix *Indexed) EndEdit() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.editing {
		return fmt.Errorf("spatial: end edit without begin: %w", ErrStaleIndex)
	}
	ix.rebuild()
	ix.editing = false
	return nil
}

// Mesh returns the mesh for reading. It must not be mutated outside an
// edit.
func (ix *Indexed) Mesh() *mesh.Mesh { return ix.mesh }

// Tree returns the current tree, or an error during an edit.
func (ix *Indexed) Tree() (*AABBTree, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.editing {
		return nil, ErrEditInProgress
	}
	return ix.tree, nil
}

// Winding returns the current winding evaluator, or an error during an
// edit.
func (ix *Indexed) Winding() (*FastWinding, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.editing {
		return nil, ErrEditInProgress
	}
	return ix.winding, nil
}

// Nearest describes the surface point closest to a query.
type Nearest struct {
	Distance float64
	Point    v3.Vec
	Triangle int
	// Bary holds the barycentric coordinates of Point in Triangle.
	Bary [3]float64
}

// Nearest returns the closest surface point to p with the triangle it lies
// in. An empty mesh yields an infinite distance and mesh.InvalidID.
func (ix *Indexed) Nearest(p v3.Vec) (Nearest, error) {
	t, err := ix.Tree()
	if err != nil {
		return Nearest{}, err
	}
	tid, d2, err := t.FindNearestTriangle(p)
	if err != nil {
		return Nearest{}, err
	}
	if tid == mesh.InvalidID {
		return Nearest{Distance: math.Inf(1), Triangle: mesh.InvalidID}, nil
	}
	a, b, c := ix.mesh.TriangleVertices(tid)
	at := geom.ClosestPointOnTriangle(p, a, b, c)
	return Nearest{
		Distance: math.Sqrt(d2),
		Point:    at,
		Triangle: tid,
		Bary:     geom.Barycentric(at, a, b, c),
	}, nil
}

// DistanceToPoint returns the distance from p to the surface.
func (ix *Indexed) DistanceToPoint(p v3.Vec) (float64, error) {
	n, err := ix.Nearest(p)
	return n.Distance, err
}

// NearestPoint returns the surface point closest to p.
func (ix *Indexed) NearestPoint(p v3.Vec) (v3.Vec, error) {
	t, err := ix.Tree()
	if err != nil {
		return v3.Vec{}, err
	}
	return t.FindNearestPoint(p)
}

// ContainsPoint reports whether p is inside the mesh at the given winding
// threshold.
func (ix *Indexed) ContainsPoint(p v3.Vec, threshold float64) (bool, error) {
	w, err := ix.Winding()
	if err != nil {
		return false, err
	}
	return w.IsInside(p, threshold)
}

// IntersectRay returns the nearest hit along the ray.
func (ix *Indexed) IntersectRay(origin, direction v3.Vec, maxDist float64) (Hit, bool, error) {
	t, err := ix.Tree()
	if err != nil {
		return Hit{}, false, err
	}
	if maxDist <= 0 {
		maxDist = math.Inf(1)
	}
	return t.FindNearestHit(geom.NewRay(origin, direction), WithMaxDistance(maxDist))
}
