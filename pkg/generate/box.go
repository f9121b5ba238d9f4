package generate

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

// GridBox describes an axis-aligned box whose faces are regular grids.
// EdgeVertices gives the vertex count along X, Y and Z (at least 2 each).
// Faces share their border vertices, so the result is closed. Each face is
// its own triangle group unless GroupPerQuad is set.
type GridBox struct {
	Center       v3.Vec
	Extents      v3.Vec // half sizes
	EdgeVertices [3]int
	GroupPerQuad bool
}

// boxFace is one side of the box: the outward axis, its sign, and two
// tangent axes ordered so that u x v points outward.
type boxFace struct {
	axis, u, v int
	sign       float64
}

var boxFaces = [6]boxFace{
	{axis: 0, u: 1, v: 2, sign: 1},
	{axis: 0, u: 2, v: 1, sign: -1},
	{axis: 1, u: 2, v: 0, sign: 1},
	{axis: 1, u: 0, v: 2, sign: -1},
	{axis: 2, u: 0, v: 1, sign: 1},
	{axis: 2, u: 1, v: 0, sign: -1},
}

// Generate builds the box mesh.
func (b GridBox) Generate() (*mesh.Mesh, error) {
	n := b.EdgeVertices
	for _, c := range n {
		if c < 2 {
			return nil, fmt.Errorf("generate: grid box edge vertices %v: %w", n, ErrInvalidParameter)
		}
	}
	if b.Extents.X <= 0 || b.Extents.Y <= 0 || b.Extents.Z <= 0 {
		return nil, fmt.Errorf("generate: grid box extents %v: %w", b.Extents, ErrInvalidParameter)
	}
	m := mesh.New()
	m.EnableAttributes()
	m.EnableTriangleGroups()
	normals := m.Normals()
	uvs := m.UVs()

	lo := b.Center.Sub(b.Extents)
	size := b.Extents.MulScalar(2)
	lattice := make(map[[3]int]int)
	vertexAt := func(idx [3]int) int {
		if vid, ok := lattice[idx]; ok {
			return vid
		}
		var p v3.Vec
		for axis := 0; axis < 3; axis++ {
			f := float64(idx[axis]) / float64(n[axis]-1)
			p = geom.SetComponent(p, axis, geom.Component(lo, axis)+f*geom.Component(size, axis))
		}
		vid := m.AppendVertex(p)
		lattice[idx] = vid
		return vid
	}

	group := 0
	for fi, f := range boxFaces {
		var normal v3.Vec
		normal = geom.SetComponent(normal, f.axis, f.sign)
		ne := normals.AppendElement(normal)
		nu, nv := n[f.u], n[f.v]
		fixed := 0
		if f.sign > 0 {
			fixed = n[f.axis] - 1
		}
		verts := make([][]int, nu)
		uvIDs := make([][]int, nu)
		for i := 0; i < nu; i++ {
			verts[i] = make([]int, nv)
			uvIDs[i] = make([]int, nv)
			for j := 0; j < nv; j++ {
				var idx [3]int
				idx[f.axis] = fixed
				idx[f.u] = i
				idx[f.v] = j
				verts[i][j] = vertexAt(idx)
				uvIDs[i][j] = uvs.AppendElement(mesh.UV{X: float64(i) / float64(nu-1), Y: float64(j) / float64(nv-1)})
			}
		}
		if !b.GroupPerQuad {
			group = fi
		}
		for i := 0; i+1 < nu; i++ {
			for j := 0; j+1 < nv; j++ {
				p00, p10, p11, p01 := verts[i][j], verts[i+1][j], verts[i+1][j+1], verts[i][j+1]
				t00, t10, t11, t01 := uvIDs[i][j], uvIDs[i+1][j], uvIDs[i+1][j+1], uvIDs[i][j+1]
				for _, tri := range [2][2][3]int{
					{{p00, p10, p11}, {t00, t10, t11}},
					{{p00, p11, p01}, {t00, t11, t01}},
				} {
					tid, err := m.AppendTriangleGroup(tri[0][0], tri[0][1], tri[0][2], group)
					if err != nil {
						return nil, fmt.Errorf("generate: grid box: %w", err)
					}
					if err := normals.SetTriangle(tid, [3]int{ne, ne, ne}); err != nil {
						return nil, fmt.Errorf("generate: grid box: %w", err)
					}
					if err := uvs.SetTriangle(tid, tri[1]); err != nil {
						return nil, fmt.Errorf("generate: grid box: %w", err)
					}
				}
				if b.GroupPerQuad {
					group++
				}
			}
		}
	}
	return m, nil
}

// MinimalBox returns the 8-vertex, 12-triangle box with the given center
// and half sizes.
func MinimalBox(center, extents v3.Vec) (*mesh.Mesh, error) {
	return GridBox{Center: center, Extents: extents, EdgeVertices: [3]int{2, 2, 2}}.Generate()
}
