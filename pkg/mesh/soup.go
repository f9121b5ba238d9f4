package mesh

import (
	"github.com/deadsy/sdfx/sdf"
)

// FromSoup builds an indexed mesh from a triangle soup, welding corners
// closer than tol. Triangles that collapse under welding are dropped; a
// triangle that would overfill an edge gets private copies of its
// vertices instead. It returns the mesh and the number of triangles that
// had to be detached that way.
func FromSoup(tris []*sdf.Triangle3, tol float64) (*Mesh, int) {
	m := New()
	pi := NewPointIndex(tol)
	detached := 0
	for _, tri := range tris {
		var ids [3]int
		for j := 0; j < 3; j++ {
			p := tri[j]
			ids[j] = pi.FindOrInsert(p, func() int { return m.AppendVertex(p) })
		}
		if ids[0] == ids[1] || ids[1] == ids[2] || ids[2] == ids[0] {
			continue
		}
		if _, err := m.AppendTriangle(ids[0], ids[1], ids[2]); err != nil {
			a := m.AppendVertex(tri[0])
			b := m.AppendVertex(tri[1])
			c := m.AppendVertex(tri[2])
			m.addTriangle(Triangle{a, b, c}, 0)
			detached++
		}
	}
	return m, detached
}
