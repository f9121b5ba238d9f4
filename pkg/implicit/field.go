// Package implicit turns meshes into scalar fields and back: solidify
// extracts the iso-surface of the winding number, morphology offsets the
// signed distance. Surfaces are extracted with the sdfx marching cubes
// renderer and refined by a short bisection search.
package implicit

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

// Defaults shared by the operators.
const (
	DefaultVoxels             = 64
	DefaultSurfaceSearchSteps = 5
)

// cancelEvery is how many field samples pass between context checks.
const cancelEvery = 4096

// field adapts a scalar function to sdf.SDF3. Values are negative inside.
// Samples outside outer read as outside when capped is set. Once the
// context is done every sample reads as outside so rendering drains
// quickly.
type field struct {
	fn     func(p v3.Vec) float64
	box    sdf.Box3
	outer  sdf.Box3
	capped bool

	ctx      context.Context
	samples  atomic.Int64
	canceled atomic.Bool
}

var _ sdf.SDF3 = (*field)(nil)

func (f *field) Evaluate(p v3.Vec) float64 {
	if f.canceled.Load() {
		return 1
	}
	if f.samples.Add(1)%cancelEvery == 0 && f.ctx.Err() != nil {
		f.canceled.Store(true)
		return 1
	}
	if f.capped && !geom.Contains(f.outer, p) {
		return 1
	}
	return f.fn(p)
}

func (f *field) BoundingBox() sdf.Box3 {
	return f.box
}

// extract renders the zero set of fn over box with the given number of
// cells along the longest axis, welds the soup and refines vertices.
func extract(ctx context.Context, fn func(p v3.Vec) float64, box sdf.Box3, voxels, steps int, capped bool) (*mesh.Mesh, error) {
	if voxels <= 0 {
		voxels = DefaultVoxels
	}
	cell := geom.MaxDim(box) / float64(voxels)
	f := &field{
		fn:     fn,
		box:    box,
		outer:  geom.Expand(box, 0.25*cell),
		capped: capped,
		ctx:    ctx,
	}
	tris := render.ToTriangles(f, render.NewMarchingCubesUniform(voxels))
	if f.canceled.Load() || ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m, _ := mesh.FromSoup(tris, 1e-6*cell)
	if m.Volume() < 0 {
		m.ReverseOrientation()
	}
	if steps > 0 {
		refine(m, f, cell, steps)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// refine moves each vertex onto the zero crossing found by bisection
// along its normal within half a cell. Vertices without a bracketing sign
// change stay where marching cubes put them.
func refine(m *mesh.Mesh, f *field, cell float64, steps int) {
	moves := make(map[int]v3.Vec)
	for _, vid := range m.VertexIDs() {
		n := m.VertexNormal(vid)
		if n.Length2() == 0 {
			continue
		}
		p := m.Vertex(vid)
		a := p.Sub(n.MulScalar(0.5 * cell))
		b := p.Add(n.MulScalar(0.5 * cell))
		fa, fb := f.Evaluate(a), f.Evaluate(b)
		if fa == 0 || fb == 0 || (fa > 0) == (fb > 0) {
			continue
		}
		for i := 0; i < steps; i++ {
			mid := a.Add(b).MulScalar(0.5)
			fm := f.Evaluate(mid)
			if (fm > 0) == (fa > 0) {
				a, fa = mid, fm
			} else {
				b, fb = mid, fm
			}
		}
		t := 0.5
		if d := fa - fb; math.Abs(d) > 0 {
			t = fa / d
		}
		moves[vid] = geom.Lerp(a, b, t)
	}
	for vid, p := range moves {
		_ = m.SetVertex(vid, p)
	}
}
