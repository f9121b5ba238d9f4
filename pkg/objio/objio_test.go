package objio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/meshwork/pkg/generate"
	"github.com/chazu/meshwork/pkg/mesh"
)

const quadOBJ = `# unit square in the XY plane
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
f 1//1 2//1 3//1 4//1
`

func sphere(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := generate.Sphere{Radius: 1.5, NumPhi: 8, NumTheta: 12, GroupPerQuad: true}.Generate()
	require.NoError(t, err)
	return m
}

func TestRoundTrip(t *testing.T) {
	m := sphere(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m, WriteOptions{}))

	got, err := Read(&buf, ReadOptions{})
	require.NoError(t, err)
	require.NoError(t, got.Validate())

	assert.Equal(t, m.VertexCount(), got.VertexCount())
	assert.Equal(t, m.TriangleCount(), got.TriangleCount())
	require.True(t, got.HasAttributes())
	assert.Equal(t, m.UVs().ElementCount(), got.UVs().ElementCount())
	assert.Equal(t, m.Normals().ElementCount(), got.Normals().ElementCount())
	assert.Equal(t, m.TriangleCount(), got.Normals().SetCount())
	require.True(t, got.HasTriangleGroups())
	assert.ElementsMatch(t, m.GroupIDs(), got.GroupIDs())
	assert.True(t, got.IsClosed())
	assert.InDelta(t, m.Volume(), got.Volume(), 1e-9)

	for i, vid := range m.VertexIDs() {
		assert.Equal(t, m.Vertex(vid), got.Vertex(got.VertexIDs()[i]))
	}
}

func TestReadPolygon(t *testing.T) {
	m, err := Read(strings.NewReader(quadOBJ), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, m.VertexCount())
	assert.Equal(t, 2, m.TriangleCount())
	assert.InDelta(t, 1.0, m.Area(), 1e-12)
	assert.False(t, m.HasTriangleGroups())
	require.True(t, m.HasAttributes())
	assert.Equal(t, 2, m.Normals().SetCount())
	assert.Equal(t, 0, m.UVs().SetCount())
	for _, tid := range m.TriangleIDs() {
		assert.InDelta(t, 1.0, m.TriangleNormal(tid).Z, 1e-12)
	}
}

func TestReadNegativeIndices(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
f -3/-3 -2/-2 -1/-1
`
	m, err := Read(strings.NewReader(src), ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, m.TriangleCount())
	tid := m.TriangleIDs()[0]
	assert.Equal(t, mesh.Triangle{0, 1, 2}, m.Triangle(tid))
	uv, ok := m.UVs().Triangle(tid)
	require.True(t, ok)
	assert.Equal(t, [3]int{0, 1, 2}, uv)
	assert.False(t, m.Normals().IsSetTriangle(tid))
}

func TestReadGroups(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
g base
f 1 3 2
g sides
f 1 2 4
f 1 4 3
g base
f 2 3 4
`
	m, err := Read(strings.NewReader(src), ReadOptions{})
	require.NoError(t, err)
	require.True(t, m.HasTriangleGroups())
	assert.Equal(t, []int{0, 1}, m.GroupIDs())
	ids := m.TriangleIDs()
	assert.Equal(t, 0, m.TriangleGroup(ids[0]))
	assert.Equal(t, 1, m.TriangleGroup(ids[1]))
	assert.Equal(t, 0, m.TriangleGroup(ids[3]))
	assert.True(t, m.IsClosed())
	assert.Greater(t, m.Volume(), 0.0)
}

func TestReadReverse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sphere(t), WriteOptions{}))
	text := buf.String()

	fwd, err := Read(strings.NewReader(text), ReadOptions{})
	require.NoError(t, err)
	rev, err := Read(strings.NewReader(text), ReadOptions{ReverseOrientation: true})
	require.NoError(t, err)
	assert.Greater(t, fwd.Volume(), 0.0)
	assert.InDelta(t, -fwd.Volume(), rev.Volume(), 1e-9)
}

func TestWriteReverse(t *testing.T) {
	m := sphere(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m, WriteOptions{ReverseOrientation: true}))
	got, err := Read(&buf, ReadOptions{})
	require.NoError(t, err)
	assert.InDelta(t, -m.Volume(), got.Volume(), 1e-9)
	// the north pole normal is the first element
	assert.InDelta(t, -1.0, got.Normals().Element(0).Z, 1e-12)
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"short vertex", "v 1 2\n"},
		{"bad float", "v 1 x 3\n"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n"},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n"},
		{"two corners", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
		{"bad corner", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1/1/1/1 2 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.src), ReadOptions{})
			assert.ErrorIs(t, err, ErrIO)
		})
	}
}

func TestReadNonManifoldFace(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
v 0 0 -1
f 1 2 3
f 2 1 4
f 2 1 5
`
	m, err := Read(strings.NewReader(src), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, m.TriangleCount())
	assert.Equal(t, 8, m.VertexCount())
	require.NoError(t, m.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quad.obj")
	require.NoError(t, os.WriteFile(path, []byte(quadOBJ), 0o644))

	dst := mesh.New()
	dst.AppendVertex(v3.Vec{X: 5})
	require.NoError(t, Load(path, dst, ReadOptions{}))
	assert.Equal(t, 5, dst.VertexCount())
	assert.Equal(t, 2, dst.TriangleCount())

	before := dst.ChangeStamp()
	err := Load(filepath.Join(dir, "missing.obj"), dst, ReadOptions{})
	assert.ErrorIs(t, err, ErrIO)
	assert.Equal(t, before, dst.ChangeStamp())
	assert.Equal(t, 2, dst.TriangleCount())
}

func TestWriteMeshes(t *testing.T) {
	a := sphere(t)
	b, err := generate.MinimalBox(v3.Vec{X: 4}, v3.Vec{X: 1, Y: 1, Z: 1})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "both.obj")
	require.NoError(t, WriteMeshesFile(path, []*mesh.Mesh{a, nil, b}, WriteOptions{}))

	got, err := ReadFile(path, ReadOptions{})
	require.NoError(t, err)
	require.NoError(t, got.Validate())
	assert.Equal(t, a.VertexCount()+b.VertexCount(), got.VertexCount())
	assert.Equal(t, a.TriangleCount()+b.TriangleCount(), got.TriangleCount())
	assert.Equal(t, a.Normals().ElementCount()+b.Normals().ElementCount(), got.Normals().ElementCount())
	assert.InDelta(t, a.Volume()+b.Volume(), got.Volume(), 1e-9)
}

func TestWriteWithoutAttributes(t *testing.T) {
	m := sphere(t)
	m.DiscardAttributes()
	m.DiscardTriangleGroups()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m, WriteOptions{}))
	text := buf.String()
	assert.NotContains(t, text, "vt ")
	assert.NotContains(t, text, "vn ")
	assert.NotContains(t, text, "g ")
	assert.NotContains(t, text, "/")
}

func TestWriteSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sphere.stl")
	m := sphere(t)
	require.NoError(t, WriteSTL(path, m))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(84))
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.obj"), ReadOptions{})
	assert.ErrorIs(t, err, ErrIO)
}
