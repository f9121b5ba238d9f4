package boolean

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/meshwork/pkg/generate"
	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

func unitCube(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := generate.MinimalBox(v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, v3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	require.NoError(t, err)
	require.Equal(t, 8, m.VertexCount())
	require.Equal(t, 12, m.TriangleCount())
	return m
}

func TestCubeOperations(t *testing.T) {
	tests := []struct {
		op     Op
		volume float64
	}{
		{Union, 1.5},
		{Difference, 0.5},
		{Intersect, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.op.String(), func(t *testing.T) {
			a := unitCube(t)
			b := unitCube(t)
			op := New(a, sdf.Identity3d(), b, sdf.Translate3d(v3.Vec{X: 0.5}), tc.op)
			ok, err := op.Compute(context.Background())
			require.NoError(t, err)
			assert.True(t, ok)
			r := op.Result
			require.NotNil(t, r)
			assert.True(t, r.IsClosed())
			assert.InDelta(t, tc.volume, r.Volume(), 1e-9)
			require.NoError(t, r.Validate())
			t.Logf("%s: %d vertices, %d triangles", tc.op, r.VertexCount(), r.TriangleCount())

			// inputs are untouched
			assert.Equal(t, 12, a.TriangleCount())
			assert.Equal(t, 12, b.TriangleCount())
		})
	}
}

func TestUnionGroups(t *testing.T) {
	a := unitCube(t)
	b := unitCube(t)
	op := New(a, sdf.Identity3d(), b, sdf.Translate3d(v3.Vec{X: 0.5}), Union)
	ok, err := op.Compute(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	fromB := false
	for _, g := range op.Result.GroupIDs() {
		assert.Less(t, g, 12)
		if g >= 6 {
			fromB = true
		}
	}
	assert.True(t, fromB)
}

func TestDisjoint(t *testing.T) {
	a := unitCube(t)
	b := unitCube(t)
	far := sdf.Translate3d(v3.Vec{X: 5})

	union := New(a, sdf.Identity3d(), b, far, Union)
	ok, err := union.Compute(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 24, union.Result.TriangleCount())
	assert.InDelta(t, 2.0, union.Result.Volume(), 1e-12)

	inter := New(a, sdf.Identity3d(), b, far, Intersect)
	ok, err = inter.Compute(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, inter.Result.TriangleCount())

	diff := New(a, sdf.Identity3d(), b, far, Difference)
	ok, err = diff.Compute(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, diff.Result.Volume(), 1e-12)
}

func TestResultInInputSpace(t *testing.T) {
	a := unitCube(t)
	b := unitCube(t)
	xf := sdf.Translate3d(v3.Vec{Z: 10})
	op := New(a, xf, b, xf.Mul(sdf.Translate3d(v3.Vec{X: 0.5})), Union)
	op.ResultInInputSpace = true
	ok, err := op.Compute(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	bb := op.Result.Bounds()
	assert.InDelta(t, 0.0, bb.Min.Z, 1e-9)
	assert.InDelta(t, 1.5, bb.Max.X, 1e-9)
}

func TestSphereUnion(t *testing.T) {
	s, err := generate.Sphere{Radius: 1, NumPhi: 12, NumTheta: 16}.Generate()
	require.NoError(t, err)
	op := New(s, sdf.Identity3d(), s, sdf.Translate3d(v3.Vec{X: 0.7, Y: 0.1, Z: 0.05}), Union)
	ok, err := op.Compute(context.Background())
	require.NoError(t, err)
	t.Logf("sphere union ok=%v, %d triangles, %d boundary edges", ok, op.Result.TriangleCount(), len(op.Result.BoundaryEdges()))
	v := op.Result.Volume()
	assert.Greater(t, v, s.Volume())
	assert.Less(t, v, 2*s.Volume())
}

// Spheres in general position cut each other along curves that pass
// close to vertices and edges of both tessellations.
func TestGenericSpherePairs(t *testing.T) {
	big, err := generate.Sphere{Radius: 1, NumPhi: 14, NumTheta: 18}.Generate()
	require.NoError(t, err)
	small, err := generate.Sphere{Radius: 0.7, NumPhi: 12, NumTheta: 14}.Generate()
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		theta := float64(i) * 2 * math.Pi / 6
		at := v3.Vec{X: 0.9 * math.Cos(theta), Y: 0.9 * math.Sin(theta), Z: 0.3 * math.Sin(3*theta)}
		xf := geom.Translation(at).Mul(geom.EulerDegrees(v3.Vec{X: 7 * float64(i), Y: 13}))
		for _, op := range []Op{Union, Difference, Intersect} {
			t.Run(fmt.Sprintf("%s-%d", op, i), func(t *testing.T) {
				bo := New(big, sdf.Identity3d(), small, xf, op)
				ok, err := bo.Compute(context.Background())
				require.NoError(t, err)
				r := bo.Result
				assert.True(t, ok, "unmatched segments: %d", bo.Unmatched)
				assert.True(t, r.IsClosed(), "%d boundary edges", len(r.BoundaryEdges()))
				assert.Zero(t, r.NonManifoldEdgeCount())
				require.NoError(t, r.Validate())

				v := r.Volume()
				switch op {
				case Union:
					assert.Greater(t, v, big.Volume())
					assert.Less(t, v, big.Volume()+small.Volume())
				case Difference:
					assert.Greater(t, v, big.Volume()-small.Volume())
					assert.Less(t, v, big.Volume())
				case Intersect:
					assert.Greater(t, v, 0.0)
					assert.Less(t, v, small.Volume())
				}
			})
		}
	}
}

func TestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	op := New(unitCube(t), sdf.Identity3d(), unitCube(t), sdf.Translate3d(v3.Vec{X: 0.5}), Union)
	_, err := op.Compute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMissingInput(t *testing.T) {
	op := New(nil, sdf.Identity3d(), unitCube(t), sdf.Identity3d(), Union)
	_, err := op.Compute(context.Background())
	assert.ErrorIs(t, err, mesh.ErrNotFound)
}
