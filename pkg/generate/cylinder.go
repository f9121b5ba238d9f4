package generate

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/mesh"
)

// Cylinder describes a capped cylinder along Z, centered on Center.
// Slices counts the vertices around each rim. The side, top cap and
// bottom cap are triangle groups 0, 1 and 2.
type Cylinder struct {
	Center v3.Vec
	Radius float64
	Height float64
	Slices int
}

// Generate builds the cylinder mesh.
func (c Cylinder) Generate() (*mesh.Mesh, error) {
	if c.Radius <= 0 || c.Height <= 0 || c.Slices < 3 {
		return nil, fmt.Errorf("generate: cylinder radius %g, height %g, slices %d: %w", c.Radius, c.Height, c.Slices, ErrInvalidParameter)
	}
	m := mesh.New()
	m.EnableAttributes()
	m.EnableTriangleGroups()
	normals := m.Normals()
	uvs := m.UVs()

	n := c.Slices
	half := c.Height / 2
	bottom := make([]int, n)
	top := make([]int, n)
	sideN := make([]int, n)
	capUV := make([]int, n)
	sideUV := make([][2]int, n+1)
	for j := 0; j < n; j++ {
		theta := 2 * math.Pi * float64(j) / float64(n)
		dir := v3.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
		rim := c.Center.Add(dir.MulScalar(c.Radius))
		bottom[j] = m.AppendVertex(rim.Add(v3.Vec{Z: -half}))
		top[j] = m.AppendVertex(rim.Add(v3.Vec{Z: half}))
		sideN[j] = normals.AppendElement(dir)
		capUV[j] = uvs.AppendElement(mesh.UV{X: 0.5 + 0.5*dir.X, Y: 0.5 + 0.5*dir.Y})
	}
	for j := 0; j <= n; j++ {
		u := float64(j) / float64(n)
		sideUV[j] = [2]int{uvs.AppendElement(mesh.UV{X: u, Y: 0}), uvs.AppendElement(mesh.UV{X: u, Y: 1})}
	}
	topC := m.AppendVertex(c.Center.Add(v3.Vec{Z: half}))
	bottomC := m.AppendVertex(c.Center.Add(v3.Vec{Z: -half}))
	upN := normals.AppendElement(v3.Vec{Z: 1})
	downN := normals.AppendElement(v3.Vec{Z: -1})
	centerUV := uvs.AppendElement(mesh.UV{X: 0.5, Y: 0.5})

	add := func(a, b, d, g int, nrm, uv [3]int) error {
		tid, err := m.AppendTriangleGroup(a, b, d, g)
		if err != nil {
			return fmt.Errorf("generate: cylinder: %w", err)
		}
		if err := normals.SetTriangle(tid, nrm); err != nil {
			return fmt.Errorf("generate: cylinder: %w", err)
		}
		if err := uvs.SetTriangle(tid, uv); err != nil {
			return fmt.Errorf("generate: cylinder: %w", err)
		}
		return nil
	}

	for j := 0; j < n; j++ {
		k := (j + 1) % n
		b0, b1, t0, t1 := bottom[j], bottom[k], top[j], top[k]
		n0, n1 := sideN[j], sideN[k]
		u0, u1 := sideUV[j], sideUV[j+1]
		if err := add(b0, b1, t1, 0, [3]int{n0, n1, n1}, [3]int{u0[0], u1[0], u1[1]}); err != nil {
			return nil, err
		}
		if err := add(b0, t1, t0, 0, [3]int{n0, n1, n0}, [3]int{u0[0], u1[1], u0[1]}); err != nil {
			return nil, err
		}
		if err := add(topC, t0, t1, 1, [3]int{upN, upN, upN}, [3]int{centerUV, capUV[j], capUV[k]}); err != nil {
			return nil, err
		}
		if err := add(bottomC, b1, b0, 2, [3]int{downN, downN, downN}, [3]int{centerUV, capUV[k], capUV[j]}); err != nil {
			return nil, err
		}
	}
	return m, nil
}
