package remesh

import (
	"context"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/meshwork/pkg/generate"
	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

func sphere(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := generate.Sphere{Radius: 1, NumPhi: 12, NumTheta: 16}.Generate()
	require.NoError(t, err)
	return m
}

func TestRemeshSphere(t *testing.T) {
	m := sphere(t)
	v0 := m.Volume()
	r := New(m, 0.15)
	require.NoError(t, r.Remesh(context.Background()))
	t.Logf("splits %d collapses %d flips %d -> %d triangles", r.Splits, r.Collapses, r.Flips, m.TriangleCount())

	require.NoError(t, m.Validate())
	assert.True(t, m.IsClosed())
	assert.False(t, m.HasAttributes())
	assert.Greater(t, r.Splits, 0)
	mean := m.MeanEdgeLength()
	assert.Greater(t, mean, 0.6*0.15)
	assert.Less(t, mean, 1.4*0.15)
	for _, vid := range m.VertexIDs() {
		assert.InDelta(t, 1.0, m.Vertex(vid).Length(), 0.05)
	}
	assert.InDelta(t, v0, m.Volume(), 0.05*v0)
}

func TestFastestRemeshBox(t *testing.T) {
	m, err := generate.MinimalBox(v3.Vec{}, v3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	require.NoError(t, err)
	bb := m.Bounds()
	r := New(m, 0.2)
	r.SmoothSpeed = 0.5
	require.NoError(t, r.FastestRemesh(context.Background()))

	require.NoError(t, m.Validate())
	assert.True(t, m.IsClosed())
	assert.Greater(t, m.TriangleCount(), 12)
	for _, vid := range m.VertexIDs() {
		assert.True(t, geom.Contains(geom.Expand(bb, 1e-9), m.Vertex(vid)))
	}
	hi := splitRatio * 0.2
	long := 0
	for _, e := range m.Edges() {
		if m.Vertex(e[0]).Sub(m.Vertex(e[1])).Length() > 2*hi {
			long++
		}
	}
	assert.Zero(t, long)
}

func TestRemeshOpenBoundary(t *testing.T) {
	m := mesh.New()
	a := m.AppendVertex(v3.Vec{})
	b := m.AppendVertex(v3.Vec{X: 1})
	c := m.AppendVertex(v3.Vec{X: 1, Y: 1})
	d := m.AppendVertex(v3.Vec{Y: 1})
	_, err := m.AppendTriangle(a, b, c)
	require.NoError(t, err)
	_, err = m.AppendTriangle(a, c, d)
	require.NoError(t, err)

	require.NoError(t, New(m, 0.2).Remesh(context.Background()))
	require.NoError(t, m.Validate())
	assert.InDelta(t, 1.0, m.Area(), 1e-9)
	for _, vid := range m.VertexIDs() {
		assert.InDelta(t, 0.0, m.Vertex(vid).Z, 1e-12)
	}
	bb := m.Bounds()
	assert.InDelta(t, 0.0, bb.Min.X, 1e-12)
	assert.InDelta(t, 1.0, bb.Max.Y, 1e-12)
}

func TestRemeshErrors(t *testing.T) {
	assert.ErrorIs(t, New(nil, 1).Remesh(context.Background()), mesh.ErrNotFound)
	assert.Error(t, New(sphere(t), 0).Remesh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New(sphere(t), 0.1).Remesh(ctx), context.Canceled)
}
