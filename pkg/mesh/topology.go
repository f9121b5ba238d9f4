package mesh

import "sort"

// VertexTriangles returns the live triangles that reference vid.
func (m *Mesh) VertexTriangles(vid int) []int {
	if !m.IsVertex(vid) {
		return nil
	}
	return append([]int(nil), m.vertexTris[vid]...)
}

// VertexDegree returns the number of triangles that reference vid.
func (m *Mesh) VertexDegree(vid int) int {
	if !m.IsVertex(vid) {
		return 0
	}
	return len(m.vertexTris[vid])
}

// VertexNeighbors returns the distinct vertices sharing an edge with vid,
// in increasing order.
func (m *Mesh) VertexNeighbors(vid int) []int {
	if !m.IsVertex(vid) {
		return nil
	}
	seen := make(map[int]bool)
	var out []int
	for _, tid := range m.vertexTris[vid] {
		for _, v := range m.triangles[tid] {
			if v != vid && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Ints(out)
	return out
}

// EdgeTriangles returns the triangles containing both a and b.
func (m *Mesh) EdgeTriangles(a, b int) []int {
	if !m.IsVertex(a) || !m.IsVertex(b) {
		return nil
	}
	var out []int
	for _, tid := range m.vertexTris[a] {
		if m.triangles[tid].Contains(b) {
			out = append(out, tid)
		}
	}
	return out
}

// HasEdge reports whether some triangle contains the edge (a, b).
func (m *Mesh) HasEdge(a, b int) bool {
	if !m.IsVertex(a) || !m.IsVertex(b) {
		return false
	}
	for _, tid := range m.vertexTris[a] {
		if m.triangles[tid].Contains(b) {
			return true
		}
	}
	return false
}

// FindEdge returns the lowest-ID triangle containing the edge (a, b), or
// InvalidID when the edge does not exist.
func (m *Mesh) FindEdge(a, b int) int {
	best := InvalidID
	for _, tid := range m.EdgeTriangles(a, b) {
		if best == InvalidID || tid < best {
			best = tid
		}
	}
	return best
}

// IsBoundaryEdge reports whether (a, b) is an edge with a single triangle.
func (m *Mesh) IsBoundaryEdge(a, b int) bool {
	return len(m.EdgeTriangles(a, b)) == 1
}

// IsBoundaryVertex reports whether vid lies on a boundary edge.
func (m *Mesh) IsBoundaryVertex(vid int) bool {
	if !m.IsVertex(vid) {
		return false
	}
	for _, tid := range m.vertexTris[vid] {
		t := m.triangles[tid]
		i := t.Index(vid)
		if m.IsBoundaryEdge(vid, t[(i+1)%3]) || m.IsBoundaryEdge(vid, t[(i+2)%3]) {
			return true
		}
	}
	return false
}

// OppositeVertex returns the vertex of tid that is not a or b.
func (m *Mesh) OppositeVertex(tid, a, b int) int {
	for _, v := range m.triangles[tid] {
		if v != a && v != b {
			return v
		}
	}
	return InvalidID
}

// Edge is an edge oriented as it appears in its first triangle.
type Edge [2]int

// Edges returns every edge once, oriented as in the lowest-ID triangle
// that contains it.
func (m *Mesh) Edges() []Edge {
	var out []Edge
	for tid, live := range m.triangleLive {
		if !live {
			continue
		}
		t := m.triangles[tid]
		for i := 0; i < 3; i++ {
			a, b := t[i], t[(i+1)%3]
			first := tid
			for _, other := range m.vertexTris[a] {
				if other < first && m.triangles[other].Contains(b) {
					first = other
				}
			}
			if first == tid {
				out = append(out, Edge{a, b})
			}
		}
	}
	return out
}

// BoundaryEdges returns every edge with a single triangle, oriented as in
// that triangle.
func (m *Mesh) BoundaryEdges() []Edge {
	var out []Edge
	for tid, live := range m.triangleLive {
		if !live {
			continue
		}
		t := m.triangles[tid]
		for i := 0; i < 3; i++ {
			a, b := t[i], t[(i+1)%3]
			if m.IsBoundaryEdge(a, b) {
				out = append(out, Edge{a, b})
			}
		}
	}
	return out
}

// IsClosed reports whether every edge has exactly two triangles.
func (m *Mesh) IsClosed() bool {
	for tid, live := range m.triangleLive {
		if !live {
			continue
		}
		t := m.triangles[tid]
		for i := 0; i < 3; i++ {
			if len(m.EdgeTriangles(t[i], t[(i+1)%3])) != 2 {
				return false
			}
		}
	}
	return true
}

// NonManifoldEdgeCount returns the number of edges shared by more than two
// triangles, counted once per triangle corner.
func (m *Mesh) NonManifoldEdgeCount() int {
	n := 0
	for tid, live := range m.triangleLive {
		if !live {
			continue
		}
		t := m.triangles[tid]
		for i := 0; i < 3; i++ {
			if len(m.EdgeTriangles(t[i], t[(i+1)%3])) > 2 {
				n++
			}
		}
	}
	return n
}
