package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/meshwork/internal/config"
	"github.com/chazu/meshwork/pkg/generate"
	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
	"github.com/chazu/meshwork/pkg/objio"
	"github.com/chazu/meshwork/pkg/spatial"
)

// testConfig returns defaults with coarse grids.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Solidify.Voxels = 20
	cfg.Morphology.Voxels = 20
	cfg.Script.Cells = 20
	cfg.Simplify.TargetTriangles = 300
	return cfg
}

func writeSphere(t *testing.T, dir string, r float64) string {
	t.Helper()
	m, err := generate.Sphere{Radius: r, NumPhi: 12, NumTheta: 16}.Generate()
	require.NoError(t, err)
	path := filepath.Join(dir, "sphere.obj")
	require.NoError(t, objio.WriteFile(path, m, objio.WriteOptions{}))
	return path
}

func readBack(t *testing.T, path string) *mesh.Mesh {
	t.Helper()
	m, err := objio.ReadFile(path, objio.ReadOptions{})
	require.NoError(t, err)
	return m
}

func TestInfo(t *testing.T) {
	in := writeSphere(t, t.TempDir(), 1)
	var out bytes.Buffer
	require.NoError(t, cmdInfo(context.Background(), testConfig(), []string{in}, &out))

	s := out.String()
	assert.Contains(t, s, "Vertices:   "+strconv.Itoa((12-2)*16+2))
	assert.Contains(t, s, "Closed:     true")
	assert.Contains(t, s, "Holes:      0")
	assert.Contains(t, s, "Volume:")
}

func TestOperatorCommands(t *testing.T) {
	tests := []struct {
		name  string
		cmd   command
		flags []string
		check func(t *testing.T, in, res *mesh.Mesh)
	}{
		{"simplify", cmdSimplify, []string{"-n", "100"}, func(t *testing.T, in, res *mesh.Mesh) {
			assert.LessOrEqual(t, res.TriangleCount(), 100)
			assert.True(t, res.IsClosed())
		}},
		{"solidify", cmdSolidify, []string{"-voxels", "16", "-extend", "0.2"}, func(t *testing.T, in, res *mesh.Mesh) {
			require.Greater(t, res.TriangleCount(), 0)
			assert.InDelta(t, in.Volume(), res.Volume(), 0.25*in.Volume())
		}},
		{"dilate", cmdDilate, []string{"-d", "0.2", "-voxels", "16"}, func(t *testing.T, in, res *mesh.Mesh) {
			assert.Greater(t, res.Volume(), in.Volume())
		}},
		{"erode", cmdErode, []string{"-d", "0.2", "-voxels", "16"}, func(t *testing.T, in, res *mesh.Mesh) {
			assert.Less(t, res.Volume(), in.Volume())
		}},
		{"remesh", cmdRemesh, []string{"-edge", "0.3", "-passes", "3"}, func(t *testing.T, in, res *mesh.Mesh) {
			assert.True(t, res.IsClosed())
			assert.InDelta(t, 0.3, res.MeanEdgeLength(), 0.15)
		}},
		{"smooth", cmdSmooth, []string{"-smoothness", "100"}, func(t *testing.T, in, res *mesh.Mesh) {
			assert.Equal(t, in.TriangleCount(), res.TriangleCount())
			assert.Less(t, res.Volume(), in.Volume())
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			in := writeSphere(t, dir, 1)
			outPath := filepath.Join(dir, "out.obj")
			var out bytes.Buffer
			args := append(append([]string{}, tc.flags...), in, outPath)
			require.NoError(t, tc.cmd(context.Background(), testConfig(), args, &out))
			assert.Contains(t, out.String(), "wrote "+outPath)
			tc.check(t, readBack(t, in), readBack(t, outPath))
		})
	}
}

func TestFillCommand(t *testing.T) {
	dir := t.TempDir()
	m, err := generate.MinimalBox(v3.Vec{}, v3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	require.NoError(t, err)
	require.NoError(t, m.RemoveTriangle(0, false))
	require.NoError(t, m.RemoveTriangle(1, false))
	require.False(t, m.IsClosed())
	in := filepath.Join(dir, "open.obj")
	require.NoError(t, objio.WriteFile(in, m, objio.WriteOptions{}))

	outPath := filepath.Join(dir, "closed.stl")
	var out bytes.Buffer
	require.NoError(t, cmdFill(context.Background(), testConfig(), []string{"-method", "fan", in, outPath}, &out))
	assert.Contains(t, out.String(), "filled 1 holes")

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(84))
}

func TestUsageErrors(t *testing.T) {
	cfg := testConfig()
	ctx := context.Background()
	var out bytes.Buffer

	assert.ErrorIs(t, cmdInfo(ctx, cfg, nil, &out), errUsage)
	assert.ErrorIs(t, cmdRun(ctx, cfg, []string{"a", "b"}, &out), errUsage)
	assert.ErrorIs(t, cmdDemo(ctx, cfg, []string{"a"}, &out), errUsage)
	assert.ErrorIs(t, cmdSimplify(ctx, cfg, []string{"only.obj"}, &out), errUsage)
	assert.ErrorIs(t, cmdFill(ctx, cfg, []string{"-method", "glue", "a.obj", "b.obj"}, &out), errUsage)
	assert.Error(t, cmdRemesh(ctx, cfg, []string{"-bogus", "a.obj", "b.obj"}, &out))
}

func TestConfigCommand(t *testing.T) {
	cfg := testConfig()
	cfg.Log.Level = "debug"
	cfg.OBJ.ReverseOrientation = true
	path := filepath.Join(t.TempDir(), "nested", "meshwork.yaml")

	var out bytes.Buffer
	require.NoError(t, cmdConfig(context.Background(), cfg, []string{"-o", path}, &out))
	assert.Contains(t, out.String(), "wrote "+path)

	loaded, err := config.Load(&config.Flags{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	assert.ErrorIs(t, cmdConfig(context.Background(), cfg, []string{"extra"}, &out), errUsage)
}

func TestMissingInput(t *testing.T) {
	var out bytes.Buffer
	err := cmdInfo(context.Background(), testConfig(), []string{filepath.Join(t.TempDir(), "nope.obj")}, &out)
	assert.ErrorIs(t, err, objio.ErrIO)
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "scene.lisp")
	src := `
(defmesh "ball" (sphere :radius 1))
(defmesh "light" (simplify (mesh "ball") :triangles 100))
(export (mesh "ball") (mesh "light") "out/scene.obj")
`
	require.NoError(t, os.WriteFile(script, []byte(src), 0o644))

	var out bytes.Buffer
	require.NoError(t, cmdRun(context.Background(), testConfig(), []string{script}, &out))

	s := out.String()
	assert.Contains(t, s, "ball")
	assert.Contains(t, s, "light")
	_, err := os.Stat(filepath.Join(dir, "out", "scene.obj"))
	assert.NoError(t, err)
}

func TestRunScriptBrepKernel(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "block.lisp")
	src := `
(def body (sdf-box :size (vec3 2 2 2)))
(def bore (sdf-cylinder :height 4 :radius 0.5))
(defmesh "drilled" (difference body bore))
`
	require.NoError(t, os.WriteFile(script, []byte(src), 0o644))

	var out bytes.Buffer
	require.NoError(t, cmdRun(context.Background(), testConfig(), []string{"-kernel", "brep", script}, &out))
	assert.Contains(t, out.String(), "drilled")

	var bad bytes.Buffer
	err := cmdRun(context.Background(), testConfig(), []string{"-kernel", "voxels", script}, &bad)
	assert.ErrorIs(t, err, errUsage)
}

func TestRunScriptErrors(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "bad.lisp")
	require.NoError(t, os.WriteFile(script, []byte(`(defmesh "x" (sphere :phi 2.5))`), 0o644))

	var out bytes.Buffer
	err := cmdRun(context.Background(), testConfig(), []string{script}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script errors")
	assert.Contains(t, out.String(), "bad.lisp")
}

func TestFibonacciSphere(t *testing.T) {
	pts := fibonacciSphere(demoBoxes)
	require.Len(t, pts, demoBoxes)
	var sum v3.Vec
	for _, p := range pts {
		assert.InDelta(t, 1, p.Length(), 1e-12)
		sum = sum.Add(p)
	}
	assert.Less(t, sum.Length()/demoBoxes, 0.05, "directions should be spread evenly")
}

func TestSurfacePoint(t *testing.T) {
	m, err := generate.Sphere{Radius: 1, NumPhi: 24, NumTheta: 32}.Generate()
	require.NoError(t, err)
	m.ComputeVertexNormals()
	ix := spatial.NewIndexed(m)

	at, n, ok, err := surfacePoint(ix, v3.Vec{X: 3}, v3.Vec{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1, at.Length(), 0.02)
	assert.InDelta(t, 1, at.X, 0.02)
	assert.InDelta(t, 1, n.Dot(v3.Vec{X: 1}), 0.01)
}

func TestDecorate(t *testing.T) {
	m, err := generate.Sphere{Radius: 1, NumPhi: 12, NumTheta: 16}.Generate()
	require.NoError(t, err)
	m.ComputeVertexNormals()
	radius := geom.Diagonal(m.Bounds()) * 0.5

	accum, err := decorate(m, radius)
	require.NoError(t, err)
	assert.Equal(t, m.TriangleCount()+12*demoBoxes, accum.TriangleCount())
	assert.Equal(t, m.VertexCount()+8*demoBoxes, accum.VertexCount())
	assert.Equal(t, (12-2)*16+2, m.VertexCount(), "input is left untouched")
}

func TestDemo(t *testing.T) {
	if testing.Short() {
		t.Skip("demo pipeline is slow")
	}
	dir := t.TempDir()
	in := writeSphere(t, dir, 1)
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	require.NoError(t, cmdDemo(context.Background(), testConfig(), []string{in, outDir}, &out))
	assert.Contains(t, out.String(), "6 meshes")

	res := readBack(t, filepath.Join(outDir, "sphere_processed.obj"))
	assert.Greater(t, res.TriangleCount(), 0)
	// stages are laid out left to right
	assert.Greater(t, res.Bounds().Size().X, 5.0)
	assert.False(t, math.IsNaN(res.Area()))
}
