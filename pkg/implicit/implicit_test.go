package implicit

import (
	"context"
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/meshwork/pkg/generate"
	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
	"github.com/chazu/meshwork/pkg/spatial"
)

func sphere(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := generate.Sphere{Radius: 1, NumPhi: 16, NumTheta: 24}.Generate()
	require.NoError(t, err)
	return m
}

func TestSolidifySphere(t *testing.T) {
	src := sphere(t)
	s := NewSolidify(src)
	s.SetCellSizeAndExtendBounds(src.Bounds(), 0.2, 32)
	out, err := s.Generate(context.Background())
	require.NoError(t, err)
	require.NotZero(t, out.TriangleCount())
	assert.True(t, out.IsClosed())
	assert.False(t, out.HasAttributes())
	assert.InDelta(t, src.Volume(), out.Volume(), 0.1*src.Volume())

	w := spatial.NewFastWinding(spatial.NewAABBTree(out))
	w.Build()
	in, err := w.IsInside(v3.Vec{}, 0.5)
	require.NoError(t, err)
	assert.True(t, in)
	in, err = w.IsInside(v3.Vec{X: 10}, 0.5)
	require.NoError(t, err)
	assert.False(t, in)

	// vertices sit close to the input surface
	for _, vid := range out.VertexIDs() {
		assert.InDelta(t, 1.0, out.Vertex(vid).Length(), 0.05)
	}
}

func TestSolidifyOpenMesh(t *testing.T) {
	src, err := generate.MinimalBox(v3.Vec{}, v3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	require.NoError(t, err)
	// open the +Z face
	for _, tid := range src.TriangleIDs() {
		if src.TriangleNormal(tid).Z > 0.9 {
			require.NoError(t, src.RemoveTriangle(tid, false))
		}
	}
	require.False(t, src.IsClosed())

	s := NewSolidify(src)
	s.SetCellSizeAndExtendBounds(src.Bounds(), 0.25, 24)
	out, err := s.Generate(context.Background())
	require.NoError(t, err)
	assert.True(t, out.IsClosed())
	assert.Greater(t, out.Volume(), 0.5)
}

func TestSolidifyEmpty(t *testing.T) {
	out, err := NewSolidify(mesh.New()).Generate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, out.TriangleCount())

	_, err = NewSolidify(nil).Generate(context.Background())
	assert.ErrorIs(t, err, mesh.ErrNotFound)
}

func TestSolidifyCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSolidify(sphere(t))
	s.Voxels = 32
	_, err := s.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMorphology(t *testing.T) {
	src := sphere(t)
	tests := []struct {
		op     MorphologyOp
		radius float64
	}{
		{Dilate, 1.2},
		{Erode, 0.8},
		{Close, 1.0},
	}
	for _, tc := range tests {
		t.Run(tc.op.String(), func(t *testing.T) {
			mo := NewMorphology(src, tc.op, 0.2)
			mo.Voxels = 32
			out, err := mo.Generate(context.Background())
			require.NoError(t, err)
			require.NotZero(t, out.TriangleCount())
			assert.True(t, out.IsClosed())
			want := 4.0 / 3 * math.Pi * math.Pow(tc.radius, 3)
			assert.InDelta(t, want, out.Volume(), 0.12*want)
			bb := out.Bounds()
			assert.InDelta(t, tc.radius, geom.MaxDim(bb)/2, 0.08)
		})
	}
}

func TestMorphologyInvalid(t *testing.T) {
	_, err := NewMorphology(sphere(t), Dilate, -1).Generate(context.Background())
	assert.Error(t, err)

	op, err := ParseMorphologyOp("open")
	require.NoError(t, err)
	assert.Equal(t, Open, op)
	_, err = ParseMorphologyOp("shrink")
	assert.Error(t, err)
}

func TestMorphologyCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mo := NewMorphology(sphere(t), Dilate, 0.1)
	mo.Voxels = 32
	_, err := mo.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
