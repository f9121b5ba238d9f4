// Package pipeline executes a pipeline graph: it loads and generates
// meshes, runs the mesh operators and writes the exports. SDF solids are
// composed in a modeling kernel and tessellated once per subtree.
package pipeline

import (
	"errors"

	"github.com/chazu/meshwork/pkg/holefill"
	"github.com/chazu/meshwork/pkg/implicit"
	"github.com/chazu/meshwork/pkg/remesh"
	"github.com/chazu/meshwork/pkg/smooth"
	"github.com/chazu/meshwork/pkg/spatial"
)

// ErrComputeFailed is returned when a boolean leaves gaps and hole
// filling is disabled.
var ErrComputeFailed = errors.New("pipeline: compute failed")

// Options holds the settings used when a node leaves a parameter at zero.
type Options struct {
	SolidifyVoxels     int
	ExtendBounds       float64
	WindingThreshold   float64
	SearchSteps        int
	SolidAtBoundaries  bool
	MorphologyVoxels   int
	RemeshEdgeFraction float64 // of the bounds diagonal
	RemeshPasses       int
	SmoothSpeed        float64
	SmoothIterations   int
	Smoothness         float64
	// FillHoles patches booleans that report gaps.
	FillHoles  bool
	FillMethod holefill.Method
	// ReverseOBJ flips winding on every OBJ read and write.
	ReverseOBJ bool
	// Cells is the kernel tessellation resolution; zero selects the
	// kernel default.
	Cells int
}

// DefaultOptions returns the settings used by the command line tools.
func DefaultOptions() Options {
	return Options{
		SolidifyVoxels:     implicit.DefaultVoxels,
		ExtendBounds:       2,
		WindingThreshold:   spatial.DefaultInsideThreshold,
		SearchSteps:        implicit.DefaultSurfaceSearchSteps,
		SolidAtBoundaries:  true,
		MorphologyVoxels:   implicit.DefaultVoxels,
		RemeshEdgeFraction: 0.01,
		RemeshPasses:       remesh.DefaultPasses,
		SmoothSpeed:        0.5,
		SmoothIterations:   1,
		Smoothness:         smooth.DefaultSmoothness,
		FillHoles:          true,
		FillMethod:         holefill.EarClip,
	}
}
