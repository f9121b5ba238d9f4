package implicit

import (
	"context"
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
	"github.com/chazu/meshwork/pkg/spatial"
)

// Solidify rebuilds a mesh as the iso-surface of its winding number,
// closing holes and removing internal structure.
type Solidify struct {
	Mesh *mesh.Mesh
	// Winding is built from Mesh when nil or stale.
	Winding *spatial.FastWinding

	// Voxels is the cell count along the longest axis of the grid.
	Voxels int
	// ExtendBounds pads the mesh bounds on every side, in world units.
	ExtendBounds float64
	// WindingThreshold is the iso-value, usually 0.5.
	WindingThreshold float64
	// SurfaceSearchSteps is the number of bisection steps per vertex.
	SurfaceSearchSteps int
	// SolidAtBoundaries caps solid regions that reach the grid border.
	SolidAtBoundaries bool

	bounds    sdf.Box3
	hasBounds bool
}

// NewSolidify returns a solidifier with the usual settings.
func NewSolidify(m *mesh.Mesh) *Solidify {
	return &Solidify{
		Mesh:               m,
		Voxels:             DefaultVoxels,
		ExtendBounds:       2,
		WindingThreshold:   spatial.DefaultInsideThreshold,
		SurfaceSearchSteps: DefaultSurfaceSearchSteps,
		SolidAtBoundaries:  true,
	}
}

// SetCellSizeAndExtendBounds fixes the grid to cover bounds grown by
// extend, with voxels cells along its longest axis.
func (s *Solidify) SetCellSizeAndExtendBounds(bounds sdf.Box3, extend float64, voxels int) {
	s.bounds = bounds
	s.hasBounds = true
	s.ExtendBounds = extend
	s.Voxels = voxels
}

// Generate extracts the solid surface. The result has no attribute
// overlays.
func (s *Solidify) Generate(ctx context.Context) (*mesh.Mesh, error) {
	if s.Mesh == nil {
		return nil, fmt.Errorf("implicit: solidify without mesh: %w", mesh.ErrNotFound)
	}
	if s.Mesh.TriangleCount() == 0 {
		return mesh.New(), nil
	}
	w := s.Winding
	if w == nil || w.Tree().Mesh() != s.Mesh {
		w = spatial.NewFastWinding(spatial.NewAABBTree(s.Mesh))
	}
	if !w.IsValid() {
		w.Build()
	}
	bounds := s.Mesh.Bounds()
	if s.hasBounds {
		bounds = s.bounds
	}
	box := geom.Expand(bounds, s.ExtendBounds)
	thr := s.WindingThreshold
	fn := func(p v3.Vec) float64 {
		wn, err := w.WindingNumber(p)
		if err != nil {
			return 1
		}
		return thr - wn
	}
	return extract(ctx, fn, box, s.Voxels, s.SurfaceSearchSteps, s.SolidAtBoundaries)
}
