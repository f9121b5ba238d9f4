// Package generate builds primitive meshes: UV spheres, capped cylinders
// and boxes with subdivided faces. Generated meshes are closed,
// outward-facing, and carry normal and UV overlays plus triangle groups.
package generate

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/mesh"
)

// ErrInvalidParameter is returned for out-of-range generator settings.
var ErrInvalidParameter = errors.New("generate: invalid parameter")

// Sphere describes a latitude/longitude sphere centered on Center with
// poles on the Z axis. NumPhi counts vertices from pole to pole, poles
// included; NumTheta counts vertices around each ring.
type Sphere struct {
	Center       v3.Vec
	Radius       float64
	NumPhi       int
	NumTheta     int
	GroupPerQuad bool
}

// Generate builds the sphere mesh.
func (s Sphere) Generate() (*mesh.Mesh, error) {
	if s.Radius <= 0 || s.NumPhi < 3 || s.NumTheta < 3 {
		return nil, fmt.Errorf("generate: sphere radius %g, phi %d, theta %d: %w", s.Radius, s.NumPhi, s.NumTheta, ErrInvalidParameter)
	}
	m := mesh.New()
	m.EnableAttributes()
	m.EnableTriangleGroups()
	normals := m.Normals()
	uvs := m.UVs()

	rings := s.NumPhi - 2
	north := m.AppendVertex(s.Center.Add(v3.Vec{Z: s.Radius}))
	northN := normals.AppendElement(v3.Vec{Z: 1})
	ring := make([][]int, rings)
	ringN := make([][]int, rings)
	for i := 0; i < rings; i++ {
		phi := math.Pi * float64(i+1) / float64(s.NumPhi-1)
		ring[i] = make([]int, s.NumTheta)
		ringN[i] = make([]int, s.NumTheta)
		for j := 0; j < s.NumTheta; j++ {
			theta := 2 * math.Pi * float64(j) / float64(s.NumTheta)
			dir := v3.Vec{
				X: math.Sin(phi) * math.Cos(theta),
				Y: math.Sin(phi) * math.Sin(theta),
				Z: math.Cos(phi),
			}
			ring[i][j] = m.AppendVertex(s.Center.Add(dir.MulScalar(s.Radius)))
			ringN[i][j] = normals.AppendElement(dir)
		}
	}
	south := m.AppendVertex(s.Center.Add(v3.Vec{Z: -s.Radius}))
	southN := normals.AppendElement(v3.Vec{Z: -1})

	// UV grid with a duplicated seam column.
	uv := func(i, j int) int {
		return uvs.AppendElement(mesh.UV{
			X: float64(j) / float64(s.NumTheta),
			Y: float64(i) / float64(s.NumPhi-1),
		})
	}
	uvRing := make([][]int, rings)
	for i := range uvRing {
		uvRing[i] = make([]int, s.NumTheta+1)
		for j := 0; j <= s.NumTheta; j++ {
			uvRing[i][j] = uv(i+1, j)
		}
	}

	group := 0
	nextGroup := func() int {
		g := group
		if s.GroupPerQuad {
			group++
		}
		return g
	}
	add := func(a, b, c, g int, n, t [3]int) error {
		tid, err := m.AppendTriangleGroup(a, b, c, g)
		if err != nil {
			return err
		}
		if err := normals.SetTriangle(tid, n); err != nil {
			return err
		}
		return uvs.SetTriangle(tid, t)
	}

	for j := 0; j < s.NumTheta; j++ {
		k := (j + 1) % s.NumTheta
		pole := uvs.AppendElement(mesh.UV{X: (float64(j) + 0.5) / float64(s.NumTheta), Y: 0})
		if err := add(north, ring[0][j], ring[0][k], nextGroup(),
			[3]int{northN, ringN[0][j], ringN[0][k]},
			[3]int{pole, uvRing[0][j], uvRing[0][j+1]}); err != nil {
			return nil, fmt.Errorf("generate: sphere: %w", err)
		}
	}
	for i := 0; i+1 < rings; i++ {
		for j := 0; j < s.NumTheta; j++ {
			k := (j + 1) % s.NumTheta
			g := nextGroup()
			a, b, c, d := ring[i][j], ring[i+1][j], ring[i+1][k], ring[i][k]
			na, nb, nc, nd := ringN[i][j], ringN[i+1][j], ringN[i+1][k], ringN[i][k]
			ta, tb, tc, td := uvRing[i][j], uvRing[i+1][j], uvRing[i+1][j+1], uvRing[i][j+1]
			if err := add(a, b, c, g, [3]int{na, nb, nc}, [3]int{ta, tb, tc}); err != nil {
				return nil, fmt.Errorf("generate: sphere: %w", err)
			}
			if err := add(a, c, d, g, [3]int{na, nc, nd}, [3]int{ta, tc, td}); err != nil {
				return nil, fmt.Errorf("generate: sphere: %w", err)
			}
		}
	}
	last := rings - 1
	for j := 0; j < s.NumTheta; j++ {
		k := (j + 1) % s.NumTheta
		pole := uvs.AppendElement(mesh.UV{X: (float64(j) + 0.5) / float64(s.NumTheta), Y: 1})
		if err := add(south, ring[last][k], ring[last][j], nextGroup(),
			[3]int{southN, ringN[last][k], ringN[last][j]},
			[3]int{pole, uvRing[last][j+1], uvRing[last][j]}); err != nil {
			return nil, fmt.Errorf("generate: sphere: %w", err)
		}
	}
	return m, nil
}
