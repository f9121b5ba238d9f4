package graph

import (
	"crypto/sha256"
	"encoding/hex"
)

// NodeID is a content-derived identifier for graph nodes.
type NodeID string

// ZeroID is the empty node ID.
const ZeroID NodeID = ""

// NewNodeID derives a node ID from a path such as "sphere/3" or
// "defmesh/part".
func NewNodeID(path string) NodeID {
	sum := sha256.Sum256([]byte(path))
	return NodeID(hex.EncodeToString(sum[:]))
}

// IsZero reports whether id is the zero ID.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Short returns the first 8 characters of the ID for display.
func (id NodeID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// NodeKind enumerates the types of nodes in the pipeline graph.
type NodeKind int

const (
	NodeLoad       NodeKind = iota // OBJ file import
	NodeGenerate                   // sphere or box generator
	NodeSolid                      // SDF primitive tessellated by the kernel
	NodeTransform                  // translate, rotate, scale
	NodeBoolean                    // mesh union, difference, intersection
	NodeSolidify                   // winding-number remesh to a closed solid
	NodeMorphology                 // offset: dilate, erode, close, open
	NodeSimplify                   // QEM decimation
	NodeRemesh                     // isotropic remesh
	NodeSmooth                     // implicit Laplacian smoothing
	NodeFillHoles                  // boundary loop filling
	NodeNormals                    // recompute vertex normals
	NodeExport                     // write inputs to a file
)

func (k NodeKind) String() string {
	switch k {
	case NodeLoad:
		return "load"
	case NodeGenerate:
		return "generate"
	case NodeSolid:
		return "solid"
	case NodeTransform:
		return "transform"
	case NodeBoolean:
		return "boolean"
	case NodeSolidify:
		return "solidify"
	case NodeMorphology:
		return "morphology"
	case NodeSimplify:
		return "simplify"
	case NodeRemesh:
		return "remesh"
	case NodeSmooth:
		return "smooth"
	case NodeFillHoles:
		return "fill-holes"
	case NodeNormals:
		return "normals"
	case NodeExport:
		return "export"
	default:
		return "unknown"
	}
}

// Arity returns the number of inputs a node of kind k takes, or -1 when
// it takes one or more.
func (k NodeKind) Arity() int {
	switch k {
	case NodeLoad, NodeGenerate:
		return 0
	case NodeBoolean:
		return 2
	case NodeExport:
		return -1
	case NodeSolid:
		// primitives take none, CSG of solids takes two
		return -1
	default:
		return 1
	}
}

// Node is the fundamental element of the pipeline graph.
type Node struct {
	ID     NodeID   `json:"id"`
	Kind   NodeKind `json:"kind"`
	Name   string   `json:"name,omitempty"`
	Inputs []NodeID `json:"inputs,omitempty"`
	Data   NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}
