package mesh

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// weldPoint is a vertex position stored in a kd-tree.
type weldPoint struct {
	p  v3.Vec
	id int
}

func (w weldPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(weldPoint)
	switch d {
	case 0:
		return w.p.X - q.p.X
	case 1:
		return w.p.Y - q.p.Y
	default:
		return w.p.Z - q.p.Z
	}
}

func (w weldPoint) Dims() int { return 3 }

func (w weldPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(weldPoint)
	return w.p.Sub(q.p).Length2()
}

// PointIndex finds previously inserted points within a tolerance. It is
// used to weld triangle soup into indexed meshes.
type PointIndex struct {
	tree kdtree.Tree
	tol2 float64
}

// NewPointIndex returns an empty index that matches points closer than
// tol.
func NewPointIndex(tol float64) *PointIndex {
	return &PointIndex{tol2: tol * tol}
}

// Find returns the ID of an inserted point within tolerance of p.
func (pi *PointIndex) Find(p v3.Vec) (int, bool) {
	if pi.tree.Root == nil {
		return InvalidID, false
	}
	c, d := pi.tree.Nearest(weldPoint{p: p})
	if c == nil || d > pi.tol2 {
		return InvalidID, false
	}
	return c.(weldPoint).id, true
}

// Insert records p under id.
func (pi *PointIndex) Insert(p v3.Vec, id int) {
	pi.tree.Insert(weldPoint{p: p, id: id}, false)
}

// FindOrInsert returns the ID of a point within tolerance of p, or records
// p under the ID produced by create.
func (pi *PointIndex) FindOrInsert(p v3.Vec, create func() int) int {
	if id, ok := pi.Find(p); ok {
		return id
	}
	id := create()
	pi.Insert(p, id)
	return id
}

// WeldVertices merges live vertices closer than tol, rewriting the
// triangles that referenced the merged vertices. Triangles that would
// degenerate are left on their original vertices, and overlay entries of
// rewritten triangles are cleared. It returns the number of vertices
// removed.
func (m *Mesh) WeldVertices(tol float64) int {
	pi := NewPointIndex(tol)
	var merges [][2]int
	for vid, live := range m.vertexLive {
		if !live {
			continue
		}
		keep := pi.FindOrInsert(m.vertices[vid], func() int { return vid })
		if keep != vid {
			merges = append(merges, [2]int{vid, keep})
		}
	}
	removed := 0
	for _, mg := range merges {
		vid, keep := mg[0], mg[1]
		ok := true
		for _, tid := range m.vertexTris[vid] {
			t := m.triangles[tid]
			if t.Contains(keep) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for _, tid := range append([]int(nil), m.vertexTris[vid]...) {
			t := m.triangles[tid]
			t[t.Index(vid)] = keep
			m.replaceTriangle(tid, t)
		}
		m.removeVertex(vid)
		removed++
	}
	return removed
}
