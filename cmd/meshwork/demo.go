package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"

	"github.com/chazu/meshwork/internal/config"
	"github.com/chazu/meshwork/internal/logger"
	"github.com/chazu/meshwork/pkg/boolean"
	"github.com/chazu/meshwork/pkg/generate"
	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/holefill"
	"github.com/chazu/meshwork/pkg/implicit"
	"github.com/chazu/meshwork/pkg/mesh"
	"github.com/chazu/meshwork/pkg/objio"
	"github.com/chazu/meshwork/pkg/remesh"
	"github.com/chazu/meshwork/pkg/simplify"
	"github.com/chazu/meshwork/pkg/spatial"
)

// demoBoxes is the number of small boxes stuck onto the input surface.
const demoBoxes = 64

func cmdDemo(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 2 {
		return usagef("meshwork demo <in.obj> <out-dir>")
	}
	in, err := readMesh(cfg, args[0])
	if err != nil {
		return err
	}
	meshes, err := runDemo(ctx, cfg, in)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(args[1], 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	path := filepath.Join(args[1], base+"_processed.obj")
	opts := objio.WriteOptions{ReverseOrientation: cfg.OBJ.ReverseOrientation}
	if err := objio.WriteMeshesFile(path, meshes, opts); err != nil {
		return err
	}
	total := 0
	for _, m := range meshes {
		total += m.TriangleCount()
	}
	fmt.Fprintf(out, "wrote %s (%d meshes, %d triangles)\n", path, len(meshes), total)
	return nil
}

// runDemo decorates the input with boxes, solidifies, offsets and
// simplifies it, cuts a box from a sphere, remeshes that, intersects the
// two and fills the cracks. It returns the stages laid out along +X.
func runDemo(ctx context.Context, cfg *config.Config, imported *mesh.Mesh) ([]*mesh.Mesh, error) {
	log := logger.Named("demo")
	if imported.TriangleCount() == 0 {
		return nil, fmt.Errorf("demo: input has no triangles: %w", mesh.ErrNotFound)
	}

	fields := []zap.Field{
		zap.Int("vertices", imported.VertexCount()),
		zap.Int("triangles", imported.TriangleCount()),
		zap.Int("edges", len(imported.Edges())),
	}
	if imported.HasAttributes() {
		fields = append(fields,
			zap.Int("normals", imported.Normals().ElementCount()),
			zap.Int("uvs", imported.UVs().ElementCount()))
	}
	log.Info("imported mesh", fields...)

	imported.ComputeVertexNormals()
	bounds := imported.Bounds()
	radius := geom.Diagonal(bounds) * 0.5

	accum, err := decorate(imported, radius)
	if err != nil {
		return nil, err
	}

	sol := implicit.NewSolidify(accum)
	sol.SetCellSizeAndExtendBounds(accum.Bounds(), cfg.Solidify.ExtendBounds, cfg.Solidify.Voxels)
	sol.WindingThreshold = cfg.Solidify.WindingThreshold
	sol.SurfaceSearchSteps = cfg.Solidify.SearchSteps
	sol.SolidAtBoundaries = cfg.Solidify.SolidAtBoundaries
	solid, err := sol.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("demo: solidify: %w", err)
	}
	solid.Translate(v3.Vec{X: solid.Bounds().Size().X})
	log.Info("solidified", zap.Int("triangles", solid.TriangleCount()))

	dist := radius * 0.1
	mo := implicit.NewMorphology(solid, implicit.Dilate, dist)
	mo.SetCellSizesAndDistance(solid.Bounds(), dist, cfg.Morphology.Voxels)
	offset, err := mo.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("demo: dilate: %w", err)
	}

	simplified := offset.Copy()
	if err := simplify.New(simplified).SimplifyToTriangleCount(ctx, cfg.Simplify.TargetTriangles); err != nil {
		return nil, fmt.Errorf("demo: simplify: %w", err)
	}
	simplified.Translate(v3.Vec{X: simplified.Bounds().Size().X})
	log.Info("offset and simplified",
		zap.Int("offset_triangles", offset.TriangleCount()),
		zap.Int("triangles", simplified.TriangleCount()))

	cut, err := sphereMinusBox(ctx, log, geom.MaxDim(bounds)*0.6)
	if err != nil {
		return nil, err
	}
	cb := cut.Bounds()
	cut.Translate(v3.Vec{X: simplified.Bounds().Max.X + 0.6*cb.Size().X, Z: 0.5 * cb.Size().Z})

	remeshed := cut.Copy()
	remeshed.DiscardAttributes()
	rm := remesh.New(remeshed, radius*0.05)
	rm.SmoothSpeed = cfg.Remesh.SmoothSpeed
	if err := rm.FastestRemesh(ctx); err != nil {
		return nil, fmt.Errorf("demo: remesh: %w", err)
	}
	remeshed.Translate(v3.Vec{X: 1.1 * remeshed.Bounds().Size().X})
	log.Info("remeshed", zap.Int("triangles", remeshed.TriangleCount()), zap.Int("splits", rm.Splits))

	final, err := intersectAndFill(ctx, log, simplified, remeshed)
	if err != nil {
		return nil, err
	}
	fb := final.Bounds()
	final.Translate(v3.Vec{X: remeshed.Bounds().Max.X + 0.6*fb.Size().X, Z: 0.5 * fb.Size().Z})

	return []*mesh.Mesh{accum, solid, simplified, cut, remeshed, final}, nil
}

// decorate returns a copy of m with a small box glued onto the surface
// below each of demoBoxes points spread over the bounding sphere.
func decorate(m *mesh.Mesh, radius float64) (*mesh.Mesh, error) {
	s := radius * 0.05
	box, err := generate.MinimalBox(v3.Vec{}, v3.Vec{X: s, Y: s, Z: s})
	if err != nil {
		return nil, err
	}
	ix := spatial.NewIndexed(m)
	center := m.Bounds().Center()

	accum := m.Copy()
	for _, dir := range fibonacciSphere(demoBoxes) {
		p := center.Add(dir.MulScalar(radius))
		at, normal, ok, err := surfacePoint(ix, p, center)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		accum.AppendMesh(box, geom.Frame(at, normal))
	}
	return accum, nil
}

// surfacePoint picks whichever is closer to p: the nearest surface point,
// or the first hit of the ray from p towards center. It returns the point
// with the interpolated vertex normal there.
func surfacePoint(ix *spatial.Indexed, p, center v3.Vec) (v3.Vec, v3.Vec, bool, error) {
	near, err := ix.Nearest(p)
	if err != nil || near.Triangle == mesh.InvalidID {
		return v3.Vec{}, v3.Vec{}, false, err
	}
	hit, ok, err := ix.IntersectRay(p, center.Sub(p), 0)
	if err != nil {
		return v3.Vec{}, v3.Vec{}, false, err
	}
	if !ok {
		return v3.Vec{}, v3.Vec{}, false, nil
	}
	m := ix.Mesh()
	tid, at, bary := near.Triangle, near.Point, near.Bary
	if hit.Distance < near.Distance {
		tid, at = hit.Triangle, hit.Point
		a, b, c := m.TriangleVertices(tid)
		bary = geom.Barycentric(at, a, b, c)
	}
	return at, baryNormal(m, tid, bary), true, nil
}

// baryNormal interpolates the vertex normals of tid with weights w,
// falling back to the face normal when the mesh has none.
func baryNormal(m *mesh.Mesh, tid int, w [3]float64) v3.Vec {
	if m.HasAttributes() {
		if ns, ok := m.Normals().TriangleElements(tid); ok {
			n := ns[0].MulScalar(w[0]).Add(ns[1].MulScalar(w[1])).Add(ns[2].MulScalar(w[2]))
			if n.Length() > geom.Epsilon {
				return geom.Normalize(n)
			}
		}
	}
	return m.TriangleNormal(tid)
}

// fibonacciSphere returns n nearly uniform unit directions.
func fibonacciSphere(n int) []v3.Vec {
	golden := (1 + math.Sqrt(5)) / 2
	out := make([]v3.Vec, n)
	for i := range out {
		_, frac := math.Modf(float64(i) / golden)
		phi := 2 * math.Pi * frac
		cosTheta := 1 - (2*float64(i)+1)/float64(n)
		sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
		out[i] = v3.Vec{X: math.Cos(phi) * sinTheta, Y: math.Sin(phi) * sinTheta, Z: cosTheta}
	}
	return out
}

// sphereMinusBox cuts a grid box, turned 45 degrees about Y and pushed
// off-center, out of a sphere of radius r.
func sphereMinusBox(ctx context.Context, log *zap.Logger, r float64) (*mesh.Mesh, error) {
	sphere, err := generate.Sphere{Radius: r, NumPhi: 10, NumTheta: 10, GroupPerQuad: true}.Generate()
	if err != nil {
		return nil, err
	}
	box, err := generate.GridBox{Extents: v3.Vec{X: r, Y: r, Z: r}, EdgeVertices: [3]int{4, 5, 6}}.Generate()
	if err != nil {
		return nil, err
	}
	xf := geom.Translation(v3.Vec{X: r, Y: -r, Z: r}).Mul(geom.EulerDegrees(v3.Vec{Y: 45}))
	op := boolean.New(sphere, geom.Identity(), box, xf, boolean.Difference)
	ok, err := op.Compute(ctx)
	if err != nil {
		return nil, fmt.Errorf("demo: difference: %w", err)
	}
	if !ok {
		log.Warn("boolean failed", zap.String("op", boolean.Difference.String()))
	}
	return op.Result, nil
}

// intersectAndFill intersects a and b, both moved to the origin, and
// closes the boundary loops left along the seam.
func intersectAndFill(ctx context.Context, log *zap.Logger, a, b *mesh.Mesh) (*mesh.Mesh, error) {
	op := boolean.New(
		a, geom.Translation(a.Bounds().Center().MulScalar(-1)),
		b, geom.Translation(b.Bounds().Center().MulScalar(-1)),
		boolean.Intersect)
	if _, err := op.Compute(ctx); err != nil {
		return nil, fmt.Errorf("demo: intersect: %w", err)
	}
	res := op.Result

	loops := holefill.BoundaryLoops(res)
	log.Info("final boolean", zap.Int("holes", len(loops)))
	for _, l := range loops {
		f := holefill.NewFiller(res, l)
		f.Method = holefill.MinimumArea
		if _, err := f.Fill(); err != nil {
			log.Warn("hole fill failed", zap.Int("loop_vertices", l.Len()), zap.Error(err))
		}
	}
	return res, nil
}
