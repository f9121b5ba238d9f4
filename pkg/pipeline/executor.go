package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"

	"github.com/chazu/meshwork/pkg/boolean"
	"github.com/chazu/meshwork/pkg/generate"
	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/graph"
	"github.com/chazu/meshwork/pkg/holefill"
	"github.com/chazu/meshwork/pkg/implicit"
	"github.com/chazu/meshwork/pkg/kernel"
	"github.com/chazu/meshwork/pkg/mesh"
	"github.com/chazu/meshwork/pkg/objio"
	"github.com/chazu/meshwork/pkg/remesh"
	"github.com/chazu/meshwork/pkg/simplify"
	"github.com/chazu/meshwork/pkg/smooth"
)

// Executor runs pipeline graphs. Results are memoized per node for the
// duration of one Run; operators always work on a copy of their input,
// so a mesh shared by several consumers is never mutated.
type Executor struct {
	Kernel  kernel.Kernel
	Logger  *zap.Logger
	Options Options
	// BaseDir resolves relative load and export paths.
	BaseDir string

	results map[graph.NodeID]*mesh.Mesh
	written []string
}

// New returns an executor using k for SDF solids.
func New(k kernel.Kernel, opts Options) *Executor {
	return &Executor{Kernel: k, Logger: zap.NewNop(), Options: opts}
}

// Result holds the outputs of one Run.
type Result struct {
	// Meshes maps each named node to its mesh.
	Meshes map[string]*mesh.Mesh
	// Files lists the written export paths in execution order.
	Files []string
}

// Run evaluates every root of g. The graph is read-only; it should have
// passed graph.Validate.
func (e *Executor) Run(ctx context.Context, g *graph.Graph) (*Result, error) {
	if g == nil {
		return &Result{Meshes: map[string]*mesh.Mesh{}}, nil
	}
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	e.results = make(map[graph.NodeID]*mesh.Mesh)
	e.written = nil
	defer func() { e.results = nil }()

	start := time.Now()
	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		if _, err := e.eval(ctx, g, root); err != nil {
			return nil, fmt.Errorf("pipeline: root %s: %w", describe(root), err)
		}
	}

	res := &Result{Meshes: make(map[string]*mesh.Mesh), Files: e.written}
	for name, id := range g.NameIndex {
		if m, ok := e.results[id]; ok && m != nil {
			res.Meshes[name] = m
		}
	}
	e.Logger.Info("pipeline finished",
		zap.Int("nodes", len(e.results)),
		zap.Int("files", len(res.Files)),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// describe names a node for messages.
func describe(n *graph.Node) string {
	if n.Name != "" {
		return fmt.Sprintf("%s %q", n.Kind, n.Name)
	}
	return fmt.Sprintf("%s %s", n.Kind, n.ID.Short())
}

// eval returns the mesh of n, computing its inputs first.
func (e *Executor) eval(ctx context.Context, g *graph.Graph, n *graph.Node) (*mesh.Mesh, error) {
	if m, ok := e.results[n.ID]; ok {
		return m, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var inputs []*mesh.Mesh
	solid := g.IsSolid(n.ID)
	if !solid {
		for _, in := range g.Inputs(n) {
			m, err := e.eval(ctx, g, in)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, m)
		}
	}

	start := time.Now()
	var (
		m   *mesh.Mesh
		err error
	)
	if solid {
		m, err = e.tessellate(ctx, g, n)
	} else {
		m, err = e.apply(ctx, n, inputs)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", describe(n), err)
	}
	e.results[n.ID] = m

	fields := []zap.Field{
		zap.String("kind", n.Kind.String()),
		zap.String("node", n.ID.Short()),
		zap.Duration("elapsed", time.Since(start)),
	}
	if n.Name != "" {
		fields = append(fields, zap.String("name", n.Name))
	}
	if m != nil {
		fields = append(fields, zap.Int("triangles", m.TriangleCount()))
	}
	e.Logger.Info("node executed", fields...)
	return m, nil
}

// tessellate turns an SDF subtree into a mesh.
func (e *Executor) tessellate(ctx context.Context, g *graph.Graph, n *graph.Node) (*mesh.Mesh, error) {
	if e.Kernel == nil {
		return nil, fmt.Errorf("no kernel for SDF solids")
	}
	s, err := e.buildSolid(g, n)
	if err != nil {
		return nil, err
	}
	return e.Kernel.ToMesh(ctx, s, e.solidCells(g, n))
}

// apply runs the operator of n on its input meshes.
func (e *Executor) apply(ctx context.Context, n *graph.Node, inputs []*mesh.Mesh) (*mesh.Mesh, error) {
	switch d := n.Data.(type) {
	case graph.LoadData:
		return objio.ReadFile(e.path(d.Path), objio.ReadOptions{
			ReverseOrientation: d.Reverse != e.Options.ReverseOBJ,
		})
	case graph.GenerateData:
		return generateMesh(d)
	case graph.TransformData:
		m := inputs[0].Copy()
		m.Transform(placement(d))
		return m, nil
	case graph.BooleanData:
		return e.boolean(ctx, n, d, inputs[0], inputs[1])
	case graph.SolidifyData:
		return e.solidify(ctx, d, inputs[0])
	case graph.MorphologyData:
		return e.morphology(ctx, d, inputs[0])
	case graph.SimplifyData:
		m := inputs[0].Copy()
		s := simplify.New(m)
		s.PreserveBoundary = d.PreserveBoundary
		if err := s.SimplifyToTriangleCount(ctx, d.Triangles); err != nil {
			return nil, err
		}
		return m, nil
	case graph.RemeshData:
		return e.remesh(ctx, d, inputs[0])
	case graph.SmoothData:
		m := inputs[0].Copy()
		sm := smooth.NewImplicit(m)
		sm.Iterations = orInt(d.Iterations, e.Options.SmoothIterations)
		sm.Smoothness = orFloat(d.Smoothness, e.Options.Smoothness)
		if err := sm.Smooth(ctx); err != nil {
			return nil, err
		}
		return m, nil
	case graph.FillHolesData:
		return e.fillHoles(d, inputs[0])
	case graph.NormalsData:
		m := inputs[0].Copy()
		m.ComputeVertexNormals()
		return m, nil
	case graph.ExportData:
		return nil, e.export(d, inputs)
	}
	return nil, fmt.Errorf("unsupported node data %T", n.Data)
}

// path resolves p against BaseDir.
func (e *Executor) path(p string) string {
	if e.BaseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.BaseDir, p)
}

func generateMesh(d graph.GenerateData) (*mesh.Mesh, error) {
	switch d.Generator {
	case graph.GenSphere:
		return generate.Sphere{Center: d.Center, Radius: d.Radius, NumPhi: d.Phi, NumTheta: d.Theta}.Generate()
	case graph.GenGridBox:
		n := d.Steps + 1
		return generate.GridBox{
			Center:       d.Center,
			Extents:      d.Size.MulScalar(0.5),
			EdgeVertices: [3]int{n, n, n},
		}.Generate()
	case graph.GenMinimalBox:
		return generate.MinimalBox(d.Center, d.Size.MulScalar(0.5))
	}
	return nil, fmt.Errorf("unknown generator %v", d.Generator)
}

// placement builds the matrix for d: rotation, then scale, then
// translation.
func placement(d graph.TransformData) sdf.M44 {
	m := geom.Identity()
	if d.Rotation != nil {
		m = geom.EulerDegrees(*d.Rotation).Mul(m)
	}
	if d.Scale != 0 {
		m = geom.Scaling(v3.Vec{X: d.Scale, Y: d.Scale, Z: d.Scale}).Mul(m)
	}
	if d.Translation != nil {
		m = geom.Translation(*d.Translation).Mul(m)
	}
	return m
}

func (e *Executor) boolean(ctx context.Context, n *graph.Node, d graph.BooleanData, a, b *mesh.Mesh) (*mesh.Mesh, error) {
	op := boolean.Union
	switch d.Op {
	case graph.BoolDifference:
		op = boolean.Difference
	case graph.BoolIntersect:
		op = boolean.Intersect
	}
	bo := boolean.New(a, geom.Identity(), b, geom.Identity(), op)
	ok, err := bo.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return bo.Result, nil
	}
	if !e.Options.FillHoles {
		return nil, fmt.Errorf("%s left open edges: %w", d.Op, ErrComputeFailed)
	}
	filled, err := holefill.FillAll(bo.Result, e.Options.FillMethod)
	e.Logger.Warn("boolean left open edges, filled holes",
		zap.String("node", n.ID.Short()),
		zap.Int("filled", filled),
		zap.Int("unmatched", bo.Unmatched),
		zap.Error(err))
	return bo.Result, nil
}

func (e *Executor) solidify(ctx context.Context, d graph.SolidifyData, in *mesh.Mesh) (*mesh.Mesh, error) {
	return e.newSolidify(d, in).Generate(ctx)
}

func (e *Executor) newSolidify(d graph.SolidifyData, in *mesh.Mesh) *implicit.Solidify {
	s := implicit.NewSolidify(in)
	s.Voxels = orInt(d.Voxels, e.Options.SolidifyVoxels)
	s.ExtendBounds = orSet(d.ExtendBounds, e.Options.ExtendBounds)
	s.WindingThreshold = orSet(d.WindingThreshold, e.Options.WindingThreshold)
	s.SurfaceSearchSteps = orSet(d.SearchSteps, e.Options.SearchSteps)
	s.SolidAtBoundaries = e.Options.SolidAtBoundaries
	return s
}

func (e *Executor) morphology(ctx context.Context, d graph.MorphologyData, in *mesh.Mesh) (*mesh.Mesh, error) {
	op, err := implicit.ParseMorphologyOp(d.Op)
	if err != nil {
		return nil, err
	}
	mo := implicit.NewMorphology(in, op, d.Distance)
	mo.Voxels = orInt(d.Voxels, e.Options.MorphologyVoxels)
	mo.SurfaceSearchSteps = e.Options.SearchSteps
	return mo.Generate(ctx)
}

func (e *Executor) remesh(ctx context.Context, d graph.RemeshData, in *mesh.Mesh) (*mesh.Mesh, error) {
	m := in.Copy()
	length := d.EdgeLength
	if length == 0 {
		length = e.Options.RemeshEdgeFraction * geom.Diagonal(m.Bounds())
	}
	r := remesh.New(m, length)
	r.Passes = orInt(d.Passes, e.Options.RemeshPasses)
	if e.Options.SmoothSpeed > 0 {
		r.SmoothSpeed = e.Options.SmoothSpeed
	}
	if err := r.Remesh(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (e *Executor) fillHoles(d graph.FillHolesData, in *mesh.Mesh) (*mesh.Mesh, error) {
	method := e.Options.FillMethod
	if d.Method != "" {
		var err error
		if method, err = holefill.ParseMethod(d.Method); err != nil {
			return nil, err
		}
	}
	m := in.Copy()
	if _, err := holefill.FillAll(m, method); err != nil {
		e.Logger.Warn("some holes were not filled", zap.Error(err))
	}
	return m, nil
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orSet[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
