package spatial

import (
	"math"
	"math/rand"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/meshwork/pkg/generate"
	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

func unitBox(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := generate.MinimalBox(v3.Vec{}, v3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	require.NoError(t, err)
	return m
}

func sphere(t *testing.T, r float64) *mesh.Mesh {
	t.Helper()
	m, err := generate.Sphere{Radius: r, NumPhi: 16, NumTheta: 24}.Generate()
	require.NoError(t, err)
	return m
}

func TestTreeStaleAndRebuilt(t *testing.T) {
	m := unitBox(t)
	tree := NewAABBTree(m)
	_, _, err := tree.FindNearestTriangle(v3.Vec{X: 2})
	assert.ErrorIs(t, err, ErrStaleIndex)

	tree.Build()
	require.True(t, tree.IsValid())
	_, d2, err := tree.FindNearestTriangle(v3.Vec{X: 2})
	require.NoError(t, err)
	assert.InDelta(t, 2.25, d2, 1e-12)

	require.NoError(t, m.SetVertex(0, m.Vertex(0).Add(v3.Vec{X: -0.1})))
	assert.False(t, tree.IsValid())
	_, _, err = tree.FindNearestTriangle(v3.Vec{X: 2})
	assert.ErrorIs(t, err, ErrStaleIndex)
	_, err = tree.FindNearestHitTriangle(geom.NewRay(v3.Vec{X: -5}, v3.Vec{X: 1}))
	assert.ErrorIs(t, err, ErrStaleIndex)

	tree.Build()
	_, _, err = tree.FindNearestTriangle(v3.Vec{X: 2})
	assert.NoError(t, err)
}

func TestFindNearestMatchesBruteForce(t *testing.T) {
	m := sphere(t, 1)
	tree := BuildAABBTree(m)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		p := v3.Vec{X: rng.Float64()*4 - 2, Y: rng.Float64()*4 - 2, Z: rng.Float64()*4 - 2}
		_, d2, err := tree.FindNearestTriangle(p)
		require.NoError(t, err)
		best := math.Inf(1)
		for _, tid := range m.TriangleIDs() {
			a, b, c := m.TriangleVertices(tid)
			best = math.Min(best, geom.ClosestPointOnTriangle(p, a, b, c).Sub(p).Length2())
		}
		assert.InDelta(t, best, d2, 1e-12)
	}

	q, err := tree.FindNearestPoint(v3.Vec{X: 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, q.Length(), 0.02)
}

func TestRayQueries(t *testing.T) {
	m := unitBox(t)
	tree := BuildAABBTree(m)
	r := geom.NewRay(v3.Vec{X: -5, Y: 0.1, Z: 0.2}, v3.Vec{X: 1})

	h, ok, err := tree.FindNearestHit(r)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 4.5, h.Distance, 1e-12)
	assert.InDelta(t, -0.5, h.Point.X, 1e-12)

	tid, err := tree.FindNearestHitTriangle(r, WithMaxDistance(4))
	require.NoError(t, err)
	assert.Equal(t, mesh.InvalidID, tid)

	hits, err := tree.FindAllHits(r)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.InDelta(t, 5.5, hits[1].Distance, 1e-12)

	miss := geom.NewRay(v3.Vec{X: -5, Y: 3}, v3.Vec{X: 1})
	tid, err = tree.FindNearestHitTriangle(miss)
	require.NoError(t, err)
	assert.Equal(t, mesh.InvalidID, tid)
}

func TestWindingConvex(t *testing.T) {
	for name, m := range map[string]*mesh.Mesh{
		"box":    unitBox(t),
		"sphere": sphere(t, 1),
	} {
		t.Run(name, func(t *testing.T) {
			w := NewFastWinding(BuildAABBTree(m))
			w.Build()
			for _, p := range []v3.Vec{{}, {X: 0.2, Y: -0.1, Z: 0.3}, {Z: -0.4}} {
				in, err := w.IsInside(p, DefaultInsideThreshold)
				require.NoError(t, err)
				assert.True(t, in, "%v should be inside", p)
			}
			for _, p := range []v3.Vec{{X: 10}, {X: -7, Y: 7, Z: 7}, {Z: 100}} {
				in, err := w.IsInside(p, DefaultInsideThreshold)
				require.NoError(t, err)
				assert.False(t, in, "%v should be outside", p)
			}
		})
	}
}

func TestWindingApproximatesExact(t *testing.T) {
	m := sphere(t, 1)
	w := NewFastWinding(BuildAABBTree(m))
	w.Build()
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		dir := geom.Normalize(v3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()})
		for _, r := range []float64{0.4, 1.6, 4} {
			p := dir.MulScalar(r)
			fast, err := w.WindingNumber(p)
			require.NoError(t, err)
			exact, err := w.ExactWindingNumber(p)
			require.NoError(t, err)
			assert.InDelta(t, exact, fast, 0.05)
		}
	}
}

func TestWindingOpenMesh(t *testing.T) {
	m := unitBox(t)
	// drop the two triangles of the +Z face
	for _, tid := range m.TriangleIDs() {
		if m.TriangleNormal(tid).Z > 0.9 {
			require.NoError(t, m.RemoveTriangle(tid, false))
		}
	}
	require.Equal(t, 10, m.TriangleCount())
	w := NewFastWinding(BuildAABBTree(m))
	w.Build()
	exact, err := w.ExactWindingNumber(v3.Vec{})
	require.NoError(t, err)
	assert.InDelta(t, 5.0/6.0, exact, 1e-9)
	fast, err := w.WindingNumber(v3.Vec{})
	require.NoError(t, err)
	assert.InDelta(t, 5.0/6.0, fast, 1e-3)
}

func TestWindingStale(t *testing.T) {
	m := unitBox(t)
	w := NewFastWinding(NewAABBTree(m))
	_, err := w.WindingNumber(v3.Vec{})
	assert.ErrorIs(t, err, ErrStaleIndex)

	w.Build()
	require.True(t, w.IsValid())
	m.Translate(v3.Vec{X: 3})
	_, err = w.IsInside(v3.Vec{X: 3}, DefaultInsideThreshold)
	assert.ErrorIs(t, err, ErrStaleIndex)

	w.Build()
	in, err := w.IsInside(v3.Vec{X: 3}, DefaultInsideThreshold)
	require.NoError(t, err)
	assert.True(t, in)
}

func TestOverlaps(t *testing.T) {
	a := unitBox(t)
	b := unitBox(t)
	b.Translate(v3.Vec{X: 0.5})
	ta, tb := BuildAABBTree(a), BuildAABBTree(b)
	pairs := 0
	require.NoError(t, ta.Overlaps(tb, 0, func(int, int) { pairs++ }))
	assert.Greater(t, pairs, 0)

	b.Translate(v3.Vec{X: 5})
	tb.Build()
	pairs = 0
	require.NoError(t, ta.Overlaps(tb, 0, func(int, int) { pairs++ }))
	assert.Zero(t, pairs)
}

func TestIndexedEdit(t *testing.T) {
	ix := NewIndexed(unitBox(t))
	in, err := ix.ContainsPoint(v3.Vec{}, DefaultInsideThreshold)
	require.NoError(t, err)
	assert.True(t, in)

	m, err := ix.BeginEdit()
	require.NoError(t, err)
	_, err = ix.BeginEdit()
	assert.ErrorIs(t, err, ErrEditInProgress)
	_, err = ix.DistanceToPoint(v3.Vec{X: 2})
	assert.ErrorIs(t, err, ErrEditInProgress)
	_, err = ix.Nearest(v3.Vec{X: 2})
	assert.ErrorIs(t, err, ErrEditInProgress)
	_, _, err = ix.IntersectRay(v3.Vec{X: -5}, v3.Vec{X: 1}, 0)
	assert.ErrorIs(t, err, ErrEditInProgress)

	m.Translate(v3.Vec{Y: 10})
	require.NoError(t, ix.EndEdit())
	assert.Error(t, ix.EndEdit())

	in, err = ix.ContainsPoint(v3.Vec{Y: 10}, DefaultInsideThreshold)
	require.NoError(t, err)
	assert.True(t, in)
	d, err := ix.DistanceToPoint(v3.Vec{Y: 12})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, d, 1e-12)
	p, err := ix.NearestPoint(v3.Vec{Y: 12})
	require.NoError(t, err)
	assert.InDelta(t, 10.5, p.Y, 1e-12)

	near, err := ix.Nearest(v3.Vec{X: 0.1, Y: 12, Z: -0.2})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, near.Distance, 1e-12)
	assert.InDelta(t, 10.5, near.Point.Y, 1e-12)
	assert.InDelta(t, 0.1, near.Point.X, 1e-12)
	assert.InDelta(t, -0.2, near.Point.Z, 1e-12)
	assert.InDelta(t, 1.0, m.TriangleNormal(near.Triangle).Y, 1e-12)
	a, b, c := m.TriangleVertices(near.Triangle)
	back := a.MulScalar(near.Bary[0]).Add(b.MulScalar(near.Bary[1])).Add(c.MulScalar(near.Bary[2]))
	assert.InDelta(t, 0, back.Sub(near.Point).Length(), 1e-12)
	for _, w := range near.Bary {
		assert.GreaterOrEqual(t, w, -1e-12)
	}
	h, ok, err := ix.IntersectRay(v3.Vec{X: 0.1, Y: 20, Z: 0.2}, v3.Vec{Y: -1}, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 9.5, h.Distance, 1e-12)
}
