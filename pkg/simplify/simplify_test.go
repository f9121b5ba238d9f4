package simplify

import (
	"context"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/meshwork/pkg/generate"
	"github.com/chazu/meshwork/pkg/mesh"
)

func sphere(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := generate.Sphere{Radius: 1, NumPhi: 16, NumTheta: 24}.Generate()
	require.NoError(t, err)
	require.Equal(t, 672, m.TriangleCount())
	return m
}

// plane returns an n x n vertex grid in the XY plane.
func plane(t *testing.T, n int) *mesh.Mesh {
	t.Helper()
	m := mesh.New()
	ids := make([][]int, n)
	for i := range ids {
		ids[i] = make([]int, n)
		for j := range ids[i] {
			ids[i][j] = m.AppendVertex(v3.Vec{X: float64(i), Y: float64(j)})
		}
	}
	for i := 0; i+1 < n; i++ {
		for j := 0; j+1 < n; j++ {
			_, err := m.AppendTriangle(ids[i][j], ids[i+1][j], ids[i+1][j+1])
			require.NoError(t, err)
			_, err = m.AppendTriangle(ids[i][j], ids[i+1][j+1], ids[i][j+1])
			require.NoError(t, err)
		}
	}
	return m
}

func TestSimplifyToCount(t *testing.T) {
	m := sphere(t)
	v0 := m.Volume()
	s := New(m)
	require.NoError(t, s.SimplifyToTriangleCount(context.Background(), 200))
	assert.Equal(t, 200, m.TriangleCount())
	assert.Equal(t, 236, s.Collapses)
	assert.True(t, m.IsClosed())
	assert.Zero(t, m.NonManifoldEdgeCount())
	require.NoError(t, m.Validate())
	assert.True(t, m.HasTriangleGroups())
	assert.InDelta(t, v0, m.Volume(), 0.15*v0)
}

func TestSimplifyNoOp(t *testing.T) {
	m := sphere(t)
	stamp := m.ChangeStamp()
	require.NoError(t, Simplify(context.Background(), m, 672))
	require.NoError(t, Simplify(context.Background(), m, 10000))
	assert.Equal(t, 672, m.TriangleCount())
	assert.Equal(t, stamp, m.ChangeStamp())
}

func TestSimplifyMonotone(t *testing.T) {
	m := sphere(t)
	prev := m.TriangleCount()
	for _, target := range []int{500, 300, 100, 60} {
		require.NoError(t, Simplify(context.Background(), m, target))
		assert.LessOrEqual(t, m.TriangleCount(), prev)
		assert.LessOrEqual(t, m.TriangleCount(), target)
		prev = m.TriangleCount()
	}
	require.NoError(t, m.Validate())
}

func TestSimplifyPreserveBoundary(t *testing.T) {
	m := plane(t, 10)
	before := m.TriangleCount()
	bb := m.Bounds()
	area := m.Area()

	require.NoError(t, Simplify(context.Background(), m, 20))
	t.Logf("plane: %d -> %d triangles", before, m.TriangleCount())
	assert.Less(t, m.TriangleCount(), before)
	got := m.Bounds()
	assert.InDelta(t, 0.0, got.Min.Sub(bb.Min).Length(), 1e-9)
	assert.InDelta(t, 0.0, got.Max.Sub(bb.Max).Length(), 1e-9)
	assert.InDelta(t, area, m.Area(), 1e-9)
	for _, vid := range m.VertexIDs() {
		assert.InDelta(t, 0.0, m.Vertex(vid).Z, 1e-12)
	}
	require.NoError(t, m.Validate())
}

func TestSimplifyToMaxError(t *testing.T) {
	m := plane(t, 6)
	s := New(m)
	s.PreserveBoundary = false
	require.NoError(t, s.SimplifyToMaxError(context.Background(), 1e-12))
	// a flat grid collapses without error until only a few triangles remain
	assert.Less(t, m.TriangleCount(), 50)
	require.NoError(t, m.Validate())
}

func TestSimplifyCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Simplify(ctx, sphere(t), 100)
	assert.ErrorIs(t, err, context.Canceled)

	err = New(nil).SimplifyToTriangleCount(context.Background(), 10)
	assert.ErrorIs(t, err, mesh.ErrNotFound)
}
