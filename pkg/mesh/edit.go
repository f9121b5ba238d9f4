package mesh

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
)

// Topology edits keep triangle IDs where they can: a split or poke rewrites
// the original triangle in place and appends the new pieces with the same
// group. Overlay entries of every touched triangle are cleared.

// EdgeSplit describes the outcome of SplitEdgeInfo.
type EdgeSplit struct {
	Vertex int
	// Pairs holds each rewritten triangle with the triangle appended
	// beside it.
	Pairs [][2]int
}

// SplitEdge inserts a vertex on edge (a, b) at parameter t measured from a
// and splits the one or two triangles on the edge. It returns the new
// vertex ID.
func (m *Mesh) SplitEdge(a, b int, t float64) (int, error) {
	s, err := m.SplitEdgeInfo(a, b, t)
	return s.Vertex, err
}

// SplitEdgeInfo is SplitEdge that also reports the triangles it created.
func (m *Mesh) SplitEdgeInfo(a, b int, t float64) (EdgeSplit, error) {
	tris := m.EdgeTriangles(a, b)
	if len(tris) == 0 {
		return EdgeSplit{Vertex: InvalidID}, fmt.Errorf("mesh: split edge (%d,%d): %w", a, b, ErrNotFound)
	}
	if len(tris) > 2 {
		return EdgeSplit{Vertex: InvalidID}, fmt.Errorf("mesh: split edge (%d,%d): non-manifold: %w", a, b, ErrInvalidTopology)
	}
	v := m.AppendVertex(geom.Lerp(m.vertices[a], m.vertices[b], t))
	out := EdgeSplit{Vertex: v}
	for _, tid := range tris {
		tri := m.triangles[tid]
		// rotate so the edge runs tri[0] -> tri[1]
		for !isDirected(tri[0], tri[1], a, b) {
			tri = Triangle{tri[1], tri[2], tri[0]}
		}
		x, y, c := tri[0], tri[1], tri[2]
		m.replaceTriangle(tid, Triangle{x, v, c})
		added := m.addTriangle(Triangle{v, y, c}, m.TriangleGroup(tid))
		out.Pairs = append(out.Pairs, [2]int{tid, added})
	}
	return out, nil
}

func isDirected(x, y, a, b int) bool {
	return (x == a && y == b) || (x == b && y == a)
}

// PokeTriangle inserts a vertex at barycentric coordinates bary inside tid
// and replaces the triangle with a fan of three. It returns the new vertex
// ID.
func (m *Mesh) PokeTriangle(tid int, bary [3]float64) (int, error) {
	v, _, err := m.PokeTriangleInfo(tid, bary)
	return v, err
}

// PokeTriangleInfo is PokeTriangle that also reports the two appended
// triangles.
func (m *Mesh) PokeTriangleInfo(tid int, bary [3]float64) (int, [2]int, error) {
	if !m.IsTriangle(tid) {
		return InvalidID, [2]int{InvalidID, InvalidID}, fmt.Errorf("mesh: poke triangle %d: %w", tid, ErrNotFound)
	}
	t := m.triangles[tid]
	p := m.vertices[t[0]].MulScalar(bary[0]).
		Add(m.vertices[t[1]].MulScalar(bary[1])).
		Add(m.vertices[t[2]].MulScalar(bary[2]))
	v := m.AppendVertex(p)
	group := m.TriangleGroup(tid)
	m.replaceTriangle(tid, Triangle{t[0], t[1], v})
	t1 := m.addTriangle(Triangle{t[1], t[2], v}, group)
	t2 := m.addTriangle(Triangle{t[2], t[0], v}, group)
	return v, [2]int{t1, t2}, nil
}

// flipTriangles returns the two triangles of interior edge (a, b) oriented
// so that the first runs a -> b, plus their opposite vertices.
func (m *Mesh) flipTriangles(a, b int) (t0, t1, c, d int, err error) {
	tris := m.EdgeTriangles(a, b)
	if len(tris) != 2 {
		return 0, 0, 0, 0, fmt.Errorf("mesh: edge (%d,%d) is not interior: %w", a, b, ErrInvalidTopology)
	}
	t0, t1 = tris[0], tris[1]
	if !runs(m.triangles[t0], a, b) {
		t0, t1 = t1, t0
	}
	if !runs(m.triangles[t0], a, b) || !runs(m.triangles[t1], b, a) {
		return 0, 0, 0, 0, fmt.Errorf("mesh: edge (%d,%d) has inconsistent orientation: %w", a, b, ErrInvalidTopology)
	}
	return t0, t1, m.OppositeVertex(t0, a, b), m.OppositeVertex(t1, a, b), nil
}

// runs reports whether the triangle contains the directed edge a -> b.
func runs(t Triangle, a, b int) bool {
	for i := 0; i < 3; i++ {
		if t[i] == a && t[(i+1)%3] == b {
			return true
		}
	}
	return false
}

// CanFlip reports whether interior edge (a, b) can be replaced by the
// edge joining its opposite vertices.
func (m *Mesh) CanFlip(a, b int) error {
	_, _, c, d, err := m.flipTriangles(a, b)
	if err != nil {
		return err
	}
	if c == d || m.HasEdge(c, d) {
		return fmt.Errorf("mesh: flip (%d,%d): opposite edge exists: %w", a, b, ErrInvalidTopology)
	}
	return nil
}

// FlipEdge replaces interior edge (a, b) with the edge joining the two
// opposite vertices.
func (m *Mesh) FlipEdge(a, b int) error {
	if err := m.CanFlip(a, b); err != nil {
		return err
	}
	t0, t1, c, d, _ := m.flipTriangles(a, b)
	m.replaceTriangle(t0, Triangle{c, a, d})
	m.replaceTriangle(t1, Triangle{c, d, b})
	return nil
}

// CanCollapse checks whether removing vertex remove by merging it into
// keep along their shared edge preserves a manifold mesh.
func (m *Mesh) CanCollapse(keep, remove int) error {
	edgeTris := m.EdgeTriangles(keep, remove)
	if len(edgeTris) == 0 {
		return fmt.Errorf("mesh: collapse (%d,%d): %w", keep, remove, ErrNotFound)
	}
	if len(edgeTris) > 2 {
		return fmt.Errorf("mesh: collapse (%d,%d): non-manifold edge: %w", keep, remove, ErrInvalidTopology)
	}
	opposite := make(map[int]bool, 2)
	for _, tid := range edgeTris {
		opposite[m.OppositeVertex(tid, keep, remove)] = true
	}
	// link condition
	keepNbrs := make(map[int]bool)
	for _, v := range m.VertexNeighbors(keep) {
		keepNbrs[v] = true
	}
	for _, v := range m.VertexNeighbors(remove) {
		if v != keep && keepNbrs[v] && !opposite[v] {
			return fmt.Errorf("mesh: collapse (%d,%d): link condition: %w", keep, remove, ErrInvalidTopology)
		}
	}
	if len(edgeTris) == 2 && m.IsBoundaryVertex(keep) && m.IsBoundaryVertex(remove) {
		return fmt.Errorf("mesh: collapse (%d,%d): would pinch boundary: %w", keep, remove, ErrInvalidTopology)
	}
	// Surviving triangles of remove must not duplicate triangles of keep,
	// which happens when collapsing a tetrahedron.
	for _, tid := range m.vertexTris[remove] {
		t := m.triangles[tid]
		if t.Contains(keep) {
			continue
		}
		moved := t
		moved[t.Index(remove)] = keep
		for _, other := range m.vertexTris[keep] {
			o := m.triangles[other]
			if !o.Contains(remove) && o.Contains(moved[0]) && o.Contains(moved[1]) && o.Contains(moved[2]) {
				return fmt.Errorf("mesh: collapse (%d,%d): duplicate triangle: %w", keep, remove, ErrInvalidTopology)
			}
		}
	}
	return nil
}

// CollapseEdge merges vertex remove into keep, moves keep to pos, and
// deletes the triangles on the edge.
func (m *Mesh) CollapseEdge(keep, remove int, pos v3.Vec) error {
	if err := m.CanCollapse(keep, remove); err != nil {
		return err
	}
	for _, tid := range m.EdgeTriangles(keep, remove) {
		m.removeTriangle(tid)
	}
	for _, tid := range append([]int(nil), m.vertexTris[remove]...) {
		t := m.triangles[tid]
		t[t.Index(remove)] = keep
		m.replaceTriangle(tid, t)
	}
	m.removeVertex(remove)
	m.vertices[keep] = pos
	m.touch()
	return nil
}
