package implicit

import (
	"context"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
	"github.com/chazu/meshwork/pkg/spatial"
)

// MorphologyOp selects the offset applied by Morphology.
type MorphologyOp int

const (
	Dilate MorphologyOp = iota
	Erode
	Close // dilate then erode
	Open  // erode then dilate
)

func (op MorphologyOp) String() string {
	switch op {
	case Dilate:
		return "dilate"
	case Erode:
		return "erode"
	case Close:
		return "close"
	case Open:
		return "open"
	}
	return fmt.Sprintf("MorphologyOp(%d)", int(op))
}

// ParseMorphologyOp maps a name such as "dilate" to its operation.
func ParseMorphologyOp(s string) (MorphologyOp, error) {
	for _, op := range []MorphologyOp{Dilate, Erode, Close, Open} {
		if op.String() == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("implicit: unknown morphology operation %q", s)
}

// Morphology offsets a closed mesh by Distance along its signed distance
// field. Inside and outside are decided by the winding number, so small
// holes in the input do not leak.
type Morphology struct {
	Mesh     *mesh.Mesh
	Op       MorphologyOp
	Distance float64

	// Voxels is the cell count along the longest axis of the grid.
	Voxels             int
	SurfaceSearchSteps int

	bounds    sdf.Box3
	hasBounds bool
}

// NewMorphology returns a morphology operator with the usual settings.
func NewMorphology(m *mesh.Mesh, op MorphologyOp, distance float64) *Morphology {
	return &Morphology{
		Mesh:               m,
		Op:                 op,
		Distance:           distance,
		Voxels:             DefaultVoxels,
		SurfaceSearchSteps: DefaultSurfaceSearchSteps,
	}
}

// SetCellSizesAndDistance fixes the grid bounds, the offset distance and
// the grid resolution.
func (mo *Morphology) SetCellSizesAndDistance(bounds sdf.Box3, distance float64, voxels int) {
	mo.bounds = bounds
	mo.hasBounds = true
	mo.Distance = distance
	mo.Voxels = voxels
}

// Generate computes the offset surface.
func (mo *Morphology) Generate(ctx context.Context) (*mesh.Mesh, error) {
	if mo.Mesh == nil {
		return nil, fmt.Errorf("implicit: morphology without mesh: %w", mesh.ErrNotFound)
	}
	if mo.Distance < 0 {
		return nil, fmt.Errorf("implicit: negative offset distance %g", mo.Distance)
	}
	if mo.Mesh.TriangleCount() == 0 {
		return mesh.New(), nil
	}
	bounds := mo.Mesh.Bounds()
	if mo.hasBounds {
		bounds = mo.bounds
	}
	switch mo.Op {
	case Dilate:
		return mo.offset(ctx, mo.Mesh, bounds, mo.Distance)
	case Erode:
		return mo.offset(ctx, mo.Mesh, bounds, -mo.Distance)
	case Close, Open:
		d := mo.Distance
		if mo.Op == Open {
			d = -d
		}
		first, err := mo.offset(ctx, mo.Mesh, bounds, d)
		if err != nil {
			return nil, err
		}
		if first.TriangleCount() == 0 {
			return first, nil
		}
		return mo.offset(ctx, first, first.Bounds(), -d)
	}
	return nil, fmt.Errorf("implicit: %v not supported", mo.Op)
}

// offset extracts the level set at signed distance d from m, positive d
// growing the solid.
func (mo *Morphology) offset(ctx context.Context, m *mesh.Mesh, bounds sdf.Box3, d float64) (*mesh.Mesh, error) {
	tree := spatial.NewAABBTree(m)
	winding := spatial.NewFastWinding(tree)
	winding.Build()

	voxels := mo.Voxels
	if voxels <= 0 {
		voxels = DefaultVoxels
	}
	pad := math.Max(d, 0)
	cell := (geom.MaxDim(bounds) + 2*pad) / float64(voxels)
	box := geom.Expand(bounds, pad+2*cell)

	fn := func(p v3.Vec) float64 {
		_, d2, err := tree.FindNearestTriangle(p)
		if err != nil {
			return 1
		}
		dist := math.Sqrt(d2)
		if in, err := winding.IsInside(p, spatial.DefaultInsideThreshold); err == nil && in {
			dist = -dist
		}
		return dist - d
	}
	return extract(ctx, fn, box, voxels, mo.SurfaceSearchSteps, false)
}
