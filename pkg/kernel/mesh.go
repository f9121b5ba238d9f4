package kernel

import (
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/meshwork/pkg/mesh"
)

// weldFraction is the weld tolerance relative to the cell size.
const weldFraction = 1e-6

// FromTriangles welds a tessellated triangle soup into an indexed mesh
// with outward orientation and per-vertex normals. cellSize is the
// tessellation cell size and scales the weld tolerance.
func FromTriangles(tris []*sdf.Triangle3, cellSize float64) *mesh.Mesh {
	m, _ := mesh.FromSoup(tris, weldFraction*cellSize)
	if m.TriangleCount() == 0 {
		return m
	}
	if m.Volume() < 0 {
		m.ReverseOrientation()
	}
	m.ComputeVertexNormals()
	return m
}
