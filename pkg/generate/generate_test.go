package generate

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSphere(t *testing.T) {
	tests := []struct {
		name       string
		phi, theta int
	}{
		{"coarse", 3, 3},
		{"medium", 8, 12},
		{"fine", 32, 48},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Sphere{Radius: 2, NumPhi: tc.phi, NumTheta: tc.theta}.Generate()
			require.NoError(t, err)
			assert.Equal(t, 2+(tc.phi-2)*tc.theta, m.VertexCount())
			assert.Equal(t, 2*tc.theta*(tc.phi-2), m.TriangleCount())
			assert.True(t, m.IsClosed())
			assert.Greater(t, m.Volume(), 0.0)
			assert.LessOrEqual(t, m.Volume(), 4.0/3.0*math.Pi*8+1e-9)
			assert.Equal(t, m.TriangleCount(), m.Normals().SetCount())
			assert.Equal(t, m.TriangleCount(), m.UVs().SetCount())
			require.NoError(t, m.Validate())
		})
	}
}

func TestSphereGroupPerQuad(t *testing.T) {
	m, err := Sphere{Radius: 1, NumPhi: 5, NumTheta: 6, GroupPerQuad: true}.Generate()
	require.NoError(t, err)
	// two caps of 6 triangles plus 2 bands of 6 quads
	assert.Len(t, m.GroupIDs(), 6+6+12)
}

func TestSphereInvalid(t *testing.T) {
	_, err := Sphere{Radius: 1, NumPhi: 2, NumTheta: 8}.Generate()
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = Sphere{Radius: 0, NumPhi: 8, NumTheta: 8}.Generate()
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestGridBox(t *testing.T) {
	m, err := GridBox{
		Center:       v3.Vec{X: 1, Y: 2, Z: 3},
		Extents:      v3.Vec{X: 1, Y: 0.5, Z: 2},
		EdgeVertices: [3]int{3, 4, 5},
	}.Generate()
	require.NoError(t, err)
	// 2*(nx*ny + ny*nz + nz*nx) - 4*(nx+ny+nz) + 8 surface lattice points
	assert.Equal(t, 2*(12+20+15)-4*12+8, m.VertexCount())
	assert.True(t, m.IsClosed())
	assert.InDelta(t, 2*1*4, m.Volume(), 1e-9)
	assert.Len(t, m.GroupIDs(), 6)
	b := m.Bounds()
	assert.InDelta(t, 0.0, b.Min.X, 1e-12)
	assert.InDelta(t, 5.0, b.Max.Z, 1e-12)
	require.NoError(t, m.Validate())
}

func TestMinimalBox(t *testing.T) {
	m, err := MinimalBox(v3.Vec{}, v3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, 12, m.TriangleCount())
	assert.InDelta(t, 1.0, m.Volume(), 1e-12)

	_, err = GridBox{Extents: v3.Vec{X: 1, Y: 1, Z: 1}, EdgeVertices: [3]int{1, 2, 2}}.Generate()
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestCylinder(t *testing.T) {
	for _, slices := range []int{3, 8, 32} {
		m, err := Cylinder{Center: v3.Vec{Z: 1}, Radius: 2, Height: 3, Slices: slices}.Generate()
		require.NoError(t, err)
		assert.Equal(t, 2*slices+2, m.VertexCount())
		assert.Equal(t, 4*slices, m.TriangleCount())
		assert.True(t, m.IsClosed())
		prism := 0.5 * float64(slices) * 4 * math.Sin(2*math.Pi/float64(slices)) * 3
		assert.InDelta(t, prism, m.Volume(), 1e-9)
		assert.Len(t, m.GroupIDs(), 3)
		assert.InDelta(t, -0.5, m.Bounds().Min.Z, 1e-12)
		assert.InDelta(t, 2.5, m.Bounds().Max.Z, 1e-12)
		require.NoError(t, m.Validate())
	}

	_, err := Cylinder{Radius: 1, Height: 1, Slices: 2}.Generate()
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
