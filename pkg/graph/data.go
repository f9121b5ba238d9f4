package graph

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

// LoadData imports an OBJ file.
type LoadData struct {
	Path    string `json:"path"`
	Reverse bool   `json:"reverse,omitempty"` // file is wound clockwise
}

func (LoadData) nodeData() {}

// GeneratorKind distinguishes between generated primitives.
type GeneratorKind int

const (
	GenSphere     GeneratorKind = iota // latitude/longitude sphere
	GenGridBox                         // box with subdivided faces
	GenMinimalBox                      // 8 vertex box
)

func (k GeneratorKind) String() string {
	switch k {
	case GenSphere:
		return "sphere"
	case GenGridBox:
		return "grid-box"
	case GenMinimalBox:
		return "box"
	default:
		return "unknown"
	}
}

// GenerateData describes a generated mesh. Radius, Phi and Theta apply
// to spheres; Size and Steps to boxes.
type GenerateData struct {
	Generator GeneratorKind `json:"generator"`
	Center    v3.Vec        `json:"center"`
	Radius    float64       `json:"radius,omitempty"`
	Phi       int           `json:"phi,omitempty"`
	Theta     int           `json:"theta,omitempty"`
	Size      v3.Vec        `json:"size,omitempty"` // full edge lengths
	Steps     int           `json:"steps,omitempty"`
}

func (GenerateData) nodeData() {}

// SolidShape enumerates SDF solids. Primitive shapes take no inputs, CSG
// shapes combine two solid inputs.
type SolidShape int

const (
	ShapeBox SolidShape = iota
	ShapeCylinder
	ShapeSphere
	ShapeUnion
	ShapeDifference
	ShapeIntersection
)

func (s SolidShape) String() string {
	switch s {
	case ShapeBox:
		return "sdf-box"
	case ShapeCylinder:
		return "sdf-cylinder"
	case ShapeSphere:
		return "sdf-sphere"
	case ShapeUnion:
		return "sdf-union"
	case ShapeDifference:
		return "sdf-difference"
	case ShapeIntersection:
		return "sdf-intersection"
	default:
		return "unknown"
	}
}

// IsPrimitive reports whether s is a leaf shape.
func (s SolidShape) IsPrimitive() bool {
	return s == ShapeBox || s == ShapeCylinder || s == ShapeSphere
}

// SolidData is an SDF solid tessellated with Cells marching cubes cells
// along its longest side (0 = kernel default).
type SolidData struct {
	Shape  SolidShape `json:"shape"`
	Size   v3.Vec     `json:"size,omitempty"`
	Height float64    `json:"height,omitempty"`
	Radius float64    `json:"radius,omitempty"`
	Cells  int        `json:"cells,omitempty"`
}

func (SolidData) nodeData() {}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// TransformData places its input. Rotation is applied first, then
// scale, then translation.
type TransformData struct {
	Translation *v3.Vec `json:"translation,omitempty"`
	Rotation    *v3.Vec `json:"rotation,omitempty"` // Euler angles in degrees
	Scale       float64 `json:"scale,omitempty"`    // 0 = unscaled
}

func (TransformData) nodeData() {}

// BooleanOp enumerates mesh booleans.
type BooleanOp int

const (
	BoolUnion BooleanOp = iota
	BoolDifference
	BoolIntersect
)

func (op BooleanOp) String() string {
	switch op {
	case BoolUnion:
		return "union"
	case BoolDifference:
		return "difference"
	case BoolIntersect:
		return "intersect"
	default:
		return "unknown"
	}
}

// BooleanData combines the first input with the second.
type BooleanData struct {
	Op BooleanOp `json:"op"`
}

func (BooleanData) nodeData() {}

// SolidifyData configures winding-number solidification. Zero Voxels and
// nil pointers select defaults; an explicit zero is kept.
type SolidifyData struct {
	Voxels           int      `json:"voxels,omitempty"`
	ExtendBounds     *float64 `json:"extend_bounds,omitempty"`
	WindingThreshold *float64 `json:"winding_threshold,omitempty"`
	SearchSteps      *int     `json:"search_steps,omitempty"`
}

func (SolidifyData) nodeData() {}

// MorphologyData offsets the input surface. Op is one of dilate, erode,
// close or open.
type MorphologyData struct {
	Op       string  `json:"op"`
	Distance float64 `json:"distance"`
	Voxels   int     `json:"voxels,omitempty"`
}

func (MorphologyData) nodeData() {}

// SimplifyData reduces the input to at most Triangles triangles.
type SimplifyData struct {
	Triangles        int  `json:"triangles"`
	PreserveBoundary bool `json:"preserve_boundary"`
}

func (SimplifyData) nodeData() {}

// RemeshData remeshes towards EdgeLength. Zero EdgeLength derives it
// from the input bounds.
type RemeshData struct {
	EdgeLength float64 `json:"edge_length,omitempty"`
	Passes     int     `json:"passes,omitempty"`
}

func (RemeshData) nodeData() {}

// SmoothData configures implicit smoothing.
type SmoothData struct {
	Iterations int     `json:"iterations,omitempty"`
	Smoothness float64 `json:"smoothness,omitempty"`
}

func (SmoothData) nodeData() {}

// FillHolesData fills every boundary loop with Method (ear-clip,
// minimum-area or fan; empty = default).
type FillHolesData struct {
	Method string `json:"method,omitempty"`
}

func (FillHolesData) nodeData() {}

// NormalsData recomputes per-vertex normals.
type NormalsData struct{}

func (NormalsData) nodeData() {}

// ExportData writes all inputs into one file. The format follows the
// extension: .obj or .stl.
type ExportData struct {
	Path string `json:"path"`
}

func (ExportData) nodeData() {}
