package mesh_test

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

// unitCube builds the 8-vertex, 12-triangle cube spanning [0,1]^3 with
// outward counter-clockwise triangles.
func unitCube(t *testing.T) *mesh.Mesh {
	t.Helper()
	m := mesh.New()
	for _, p := range []v3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
	} {
		m.AppendVertex(p)
	}
	faces := [][3]int{
		{0, 2, 1}, {0, 3, 2}, // bottom
		{4, 5, 6}, {4, 6, 7}, // top
		{0, 1, 5}, {0, 5, 4}, // front
		{2, 3, 7}, {2, 7, 6}, // back
		{1, 2, 6}, {1, 6, 5}, // right
		{0, 4, 7}, {0, 7, 3}, // left
	}
	for _, f := range faces {
		_, err := m.AppendTriangle(f[0], f[1], f[2])
		require.NoError(t, err)
	}
	return m
}

func TestAppendAndCounts(t *testing.T) {
	m := unitCube(t)
	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, 12, m.TriangleCount())
	assert.True(t, m.IsClosed())
	assert.InDelta(t, 1.0, m.Volume(), 1e-12)
	assert.InDelta(t, 6.0, m.Area(), 1e-12)
	require.NoError(t, m.Validate())
}

func TestAppendTriangleInvalid(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c int
	}{
		{"missing vertex", 0, 1, 99},
		{"negative id", -1, 1, 2},
		{"repeated vertex", 0, 0, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := unitCube(t)
			tid, err := m.AppendTriangle(tc.a, tc.b, tc.c)
			assert.ErrorIs(t, err, mesh.ErrInvalidTopology)
			assert.Equal(t, mesh.InvalidID, tid)
			assert.Equal(t, 12, m.TriangleCount())
		})
	}
}

func TestAppendTriangleNonManifold(t *testing.T) {
	m := unitCube(t)
	// edge (0,2) already has two triangles
	extra := m.AppendVertex(v3.Vec{X: 0.5, Y: 0.5, Z: -1})
	_, err := m.AppendTriangle(0, 2, extra)
	assert.ErrorIs(t, err, mesh.ErrInvalidTopology)
}

func TestRemoveAndReuse(t *testing.T) {
	m := unitCube(t)
	require.NoError(t, m.RemoveTriangle(3, false))
	assert.False(t, m.IsTriangle(3))
	assert.Equal(t, 11, m.TriangleCount())
	assert.ErrorIs(t, m.RemoveTriangle(3, false), mesh.ErrNotFound)
	assert.ErrorIs(t, m.RemoveTriangle(100, false), mesh.ErrNotFound)

	// the tombstoned slot is reused
	tid, err := m.AppendTriangle(4, 6, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, tid)
	require.NoError(t, m.Validate())

	require.NoError(t, m.RemoveVertex(0))
	assert.False(t, m.IsVertex(0))
	assert.Equal(t, 7, m.VertexCount())
	assert.Equal(t, 6, m.TriangleCount())
	assert.ErrorIs(t, m.RemoveVertex(0), mesh.ErrNotFound)
	require.NoError(t, m.Validate())
}

func TestSetVertex(t *testing.T) {
	m := unitCube(t)
	stamp := m.ChangeStamp()
	require.NoError(t, m.SetVertex(6, v3.Vec{X: 2, Y: 2, Z: 2}))
	assert.Greater(t, m.ChangeStamp(), stamp)
	p, err := m.LookupVertex(6)
	require.NoError(t, err)
	assert.Equal(t, v3.Vec{X: 2, Y: 2, Z: 2}, p)

	assert.ErrorIs(t, m.SetVertex(42, v3.Vec{}), mesh.ErrNotFound)
	_, err = m.LookupVertex(42)
	assert.ErrorIs(t, err, mesh.ErrNotFound)
	_, err = m.LookupTriangle(42)
	assert.ErrorIs(t, err, mesh.ErrNotFound)
}

func TestRemoveTriangleIsolated(t *testing.T) {
	m := mesh.New()
	a := m.AppendVertex(v3.Vec{})
	b := m.AppendVertex(v3.Vec{X: 1})
	c := m.AppendVertex(v3.Vec{Y: 1})
	tid, err := m.AppendTriangle(a, b, c)
	require.NoError(t, err)
	require.NoError(t, m.RemoveTriangle(tid, true))
	assert.Equal(t, 0, m.VertexCount())
	assert.Equal(t, 0, m.TriangleCount())
}

func TestOverlayAllOrNothing(t *testing.T) {
	m := unitCube(t)
	m.EnableAttributes()
	m.EnableAttributes()
	uvs := m.UVs()
	e0 := uvs.AppendElement(mesh.UV{X: 0, Y: 0})
	e1 := uvs.AppendElement(mesh.UV{X: 1, Y: 0})
	e2 := uvs.AppendElement(mesh.UV{X: 1, Y: 1})

	require.NoError(t, uvs.SetTriangle(0, [3]int{e0, e1, e2}))
	assert.True(t, uvs.IsSetTriangle(0))
	assert.False(t, uvs.IsSetTriangle(1))

	err := uvs.SetTriangle(1, [3]int{e0, e1, 17})
	assert.ErrorIs(t, err, mesh.ErrInvalidTopology)
	assert.False(t, uvs.IsSetTriangle(1))

	err = uvs.SetTriangle(50, [3]int{e0, e1, e2})
	assert.ErrorIs(t, err, mesh.ErrInvalidTopology)

	require.NoError(t, m.Validate())
}

func TestCompactIdempotent(t *testing.T) {
	m := unitCube(t)
	m.ComputeVertexNormals()
	m.EnableTriangleGroups()
	require.NoError(t, m.SetTriangleGroup(5, 3))
	require.NoError(t, m.RemoveTriangle(2, false))
	require.NoError(t, m.RemoveTriangle(7, false))
	m.AppendVertex(v3.Vec{X: 5})
	require.False(t, m.IsCompact())

	once := m.Compact()
	twice := once.Compact()
	require.True(t, once.IsCompact())
	require.Equal(t, once.VertexCount(), twice.VertexCount())
	require.Equal(t, once.TriangleCount(), twice.TriangleCount())
	for vid := 0; vid < once.MaxVertexID(); vid++ {
		assert.Equal(t, once.Vertex(vid), twice.Vertex(vid))
	}
	for tid := 0; tid < once.MaxTriangleID(); tid++ {
		assert.Equal(t, once.Triangle(tid), twice.Triangle(tid))
		assert.Equal(t, once.TriangleGroup(tid), twice.TriangleGroup(tid))
		e1, ok1 := once.Normals().Triangle(tid)
		e2, ok2 := twice.Normals().Triangle(tid)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, e1, e2)
	}
	assert.Equal(t, once.Normals().ElementCount(), twice.Normals().ElementCount())
	require.NoError(t, twice.Validate())
}

func TestCompactCopyWithoutAttributes(t *testing.T) {
	m := unitCube(t)
	m.ComputeVertexNormals()
	m.EnableTriangleGroups()
	c, cm := mesh.CompactCopy(m, mesh.CompactOptions{})
	assert.False(t, c.HasAttributes())
	assert.False(t, c.HasTriangleGroups())
	assert.Len(t, cm.Vertices, 8)
	assert.Equal(t, 12, c.TriangleCount())
}

func TestReverseOrientation(t *testing.T) {
	m := unitCube(t)
	m.ComputeVertexNormals()
	n0 := m.Normals().Element(0)
	m.ReverseOrientation()
	assert.InDelta(t, -1.0, m.Volume(), 1e-12)
	assert.Equal(t, n0.Neg(), m.Normals().Element(0))
	m.ReverseOrientation()
	assert.InDelta(t, 1.0, m.Volume(), 1e-12)
}

func TestTopologyEdits(t *testing.T) {
	m := unitCube(t)

	v, err := m.SplitEdge(0, 2, 0.5)
	require.NoError(t, err)
	assert.Equal(t, v3.Vec{X: 0.5, Y: 0.5, Z: 0}, m.Vertex(v))
	assert.Equal(t, 14, m.TriangleCount())
	assert.True(t, m.IsClosed())
	require.NoError(t, m.Validate())

	p, err := m.PokeTriangle(4, [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3})
	require.NoError(t, err)
	assert.True(t, m.IsVertex(p))
	assert.Equal(t, 16, m.TriangleCount())
	assert.True(t, m.IsClosed())

	require.NoError(t, m.FlipEdge(4, 6))
	assert.False(t, m.HasEdge(4, 6))
	assert.True(t, m.HasEdge(5, 7))
	assert.True(t, m.IsClosed())
	assert.InDelta(t, 1.0, m.Volume(), 1e-12)

	require.NoError(t, m.CollapseEdge(0, v, m.Vertex(0)))
	assert.False(t, m.IsVertex(v))
	assert.Equal(t, 14, m.TriangleCount())
	assert.True(t, m.IsClosed())
	assert.InDelta(t, 1.0, m.Volume(), 1e-12)
	require.NoError(t, m.Validate())

	_, err = m.SplitEdge(0, 6, 0.5)
	assert.ErrorIs(t, err, mesh.ErrNotFound)
}

func TestCollapseTetrahedronRejected(t *testing.T) {
	m := mesh.New()
	a := m.AppendVertex(v3.Vec{})
	b := m.AppendVertex(v3.Vec{X: 1})
	c := m.AppendVertex(v3.Vec{Y: 1})
	d := m.AppendVertex(v3.Vec{Z: 1})
	for _, f := range [][3]int{{a, c, b}, {a, b, d}, {b, c, d}, {c, a, d}} {
		_, err := m.AppendTriangle(f[0], f[1], f[2])
		require.NoError(t, err)
	}
	assert.ErrorIs(t, m.CollapseEdge(a, b, m.Vertex(a)), mesh.ErrInvalidTopology)
	assert.Equal(t, 4, m.TriangleCount())
}

func TestWeldVertices(t *testing.T) {
	// two triangles sharing an edge, stored as soup
	m := mesh.New()
	pts := []v3.Vec{{}, {X: 1}, {Y: 1}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}
	for _, p := range pts {
		m.AppendVertex(p)
	}
	_, err := m.AppendTriangle(0, 1, 2)
	require.NoError(t, err)
	_, err = m.AppendTriangle(3, 4, 5)
	require.NoError(t, err)
	assert.Len(t, m.BoundaryEdges(), 6)

	removed := m.WeldVertices(1e-9)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 4, m.VertexCount())
	assert.Len(t, m.BoundaryEdges(), 4)
	require.NoError(t, m.Validate())
}

func TestAppendMeshTransform(t *testing.T) {
	a := unitCube(t)
	a.EnableTriangleGroups()
	b := unitCube(t)
	b.EnableTriangleGroups()
	require.NoError(t, b.SetTriangleGroup(0, 1))

	vmap := a.AppendMesh(b, geom.Translation(v3.Vec{X: 3}))
	assert.Len(t, vmap, 8)
	assert.Equal(t, 16, a.VertexCount())
	assert.Equal(t, 24, a.TriangleCount())
	assert.InDelta(t, 2.0, a.Volume(), 1e-9)
	assert.Equal(t, v3.Vec{X: 3}, a.Vertex(vmap[0]))
	assert.ElementsMatch(t, []int{0, 1, 2}, a.GroupIDs())

	bounds := a.Bounds()
	assert.InDelta(t, 4.0, bounds.Max.X, 1e-9)
}

func TestMirrorTransformKeepsOutward(t *testing.T) {
	m := unitCube(t)
	m.Transform(geom.Scaling(v3.Vec{X: -1, Y: 1, Z: 1}))
	assert.InDelta(t, 1.0, m.Volume(), 1e-12)
}

func TestEdgesAndNeighbors(t *testing.T) {
	m := unitCube(t)
	assert.Len(t, m.Edges(), 18)
	assert.Empty(t, m.BoundaryEdges())
	assert.False(t, m.IsBoundaryVertex(0))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 7}, m.VertexNeighbors(0))

	require.NoError(t, m.RemoveTriangle(0, false))
	assert.Len(t, m.BoundaryEdges(), 3)
	assert.True(t, m.IsBoundaryVertex(0))
	assert.False(t, m.IsClosed())
}
