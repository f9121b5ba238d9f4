package mesh

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
)

// TriangleNormal returns the unit normal of tid.
func (m *Mesh) TriangleNormal(tid int) v3.Vec {
	a, b, c := m.TriangleVertices(tid)
	return geom.TriangleNormal(a, b, c)
}

// TriangleArea returns the area of tid.
func (m *Mesh) TriangleArea(tid int) float64 {
	a, b, c := m.TriangleVertices(tid)
	return geom.TriangleArea(a, b, c)
}

// TriangleCentroid returns the centroid of tid.
func (m *Mesh) TriangleCentroid(tid int) v3.Vec {
	a, b, c := m.TriangleVertices(tid)
	return geom.Centroid(a, b, c)
}

// VertexNormal returns the area-weighted average normal of the triangles
// around vid.
func (m *Mesh) VertexNormal(vid int) v3.Vec {
	var sum v3.Vec
	for _, tid := range m.vertexTris[vid] {
		a, b, c := m.TriangleVertices(tid)
		sum = sum.Add(geom.AreaNormal(a, b, c))
	}
	return geom.Normalize(sum)
}

// ComputeVertexNormals enables attributes if needed and rewrites the
// normal overlay with one shared, area-weighted element per vertex.
func (m *Mesh) ComputeVertexNormals() {
	m.EnableAttributes()
	o := m.normals
	o.elements = o.elements[:0]
	elem := make([]int, len(m.vertices))
	for vid, live := range m.vertexLive {
		elem[vid] = InvalidID
		if live {
			elem[vid] = o.AppendElement(m.VertexNormal(vid))
		}
	}
	for tid, live := range m.triangleLive {
		if !live {
			continue
		}
		t := m.triangles[tid]
		o.tris[tid] = [3]int{elem[t[0]], elem[t[1]], elem[t[2]]}
	}
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	sum := 0.0
	for tid, live := range m.triangleLive {
		if live {
			sum += m.TriangleArea(tid)
		}
	}
	return sum
}

// Volume returns the signed volume enclosed by the mesh. It is positive
// for closed meshes with outward-facing counter-clockwise triangles.
func (m *Mesh) Volume() float64 {
	sum := 0.0
	for tid, live := range m.triangleLive {
		if !live {
			continue
		}
		a, b, c := m.TriangleVertices(tid)
		sum += a.Dot(b.Cross(c))
	}
	return sum / 6
}

// Centroid returns the area-weighted centroid of the surface.
func (m *Mesh) Centroid() v3.Vec {
	var sum v3.Vec
	area := 0.0
	for tid, live := range m.triangleLive {
		if !live {
			continue
		}
		w := m.TriangleArea(tid)
		sum = sum.Add(m.TriangleCentroid(tid).MulScalar(w))
		area += w
	}
	if area == 0 {
		return v3.Vec{}
	}
	return sum.DivScalar(area)
}

// MeanEdgeLength returns the average length of all edges.
func (m *Mesh) MeanEdgeLength() float64 {
	edges := m.Edges()
	if len(edges) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range edges {
		sum += m.vertices[e[0]].Sub(m.vertices[e[1]]).Length()
	}
	return sum / float64(len(edges))
}
