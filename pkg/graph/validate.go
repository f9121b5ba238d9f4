package graph

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationSeverity indicates whether a validation finding blocks
// execution or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks execution
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// Validate runs the structural and parameter checks on the graph and
// returns its findings. An empty slice means the graph is valid. This
// function is read-only and never mutates the graph.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(g)...)
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validateNames(g)...)
	errs = append(errs, validateRoots(g)...)
	errs = append(errs, validateArity(g)...)
	errs = append(errs, validateParams(g)...)
	return errs
}

// Errors filters findings down to those that block execution.
func Errors(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

func nodeError(n *Node, format string, args ...any) ValidationError {
	return ValidationError{NodeID: n.ID, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateDAG(g *Graph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}
		color[id] = gray
		node, ok := g.Nodes[id]
		if !ok {
			// dangling reference, reported by validateReferences
			color[id] = black
			return false
		}
		for _, in := range node.Inputs {
			if visit(in) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range g.Order {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateReferences checks that every input points to an existing node.
func validateReferences(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, id := range g.Order {
		node := g.Nodes[id]
		for _, in := range node.Inputs {
			if _, ok := g.Nodes[in]; !ok {
				errs = append(errs, nodeError(node, "input reference %s does not exist", in.Short()))
			}
		}
	}
	return errs
}

// validateNames checks that no two nodes share a name and that every
// NameIndex entry points to the node carrying that name.
func validateNames(g *Graph) []ValidationError {
	var errs []ValidationError
	for name, id := range g.NameIndex {
		n, ok := g.Nodes[id]
		if !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if n.Name != name {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("name index entry %q points at node named %q", name, n.Name),
				Severity: SeverityError,
			})
		}
	}

	counts := make(map[string]int)
	var order []string
	for _, id := range g.Order {
		if name := g.Nodes[id].Name; name != "" {
			if counts[name] == 0 {
				order = append(order, name)
			}
			counts[name]++
		}
	}
	for _, name := range order {
		if counts[name] > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, counts[name]),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateRoots checks that every root exists and warns about nodes that
// no root depends on.
func validateRoots(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, rid := range g.Roots {
		if _, ok := g.Nodes[rid]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
		}
	}
	if len(g.Nodes) == 0 {
		return errs
	}

	reachable := make(map[NodeID]bool)
	queue := make([]NodeID, 0, len(g.Roots))
	for _, rid := range g.Roots {
		if _, ok := g.Nodes[rid]; ok && !reachable[rid] {
			reachable[rid] = true
			queue = append(queue, rid)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := g.Nodes[current]
		if node == nil {
			continue
		}
		for _, in := range node.Inputs {
			if !reachable[in] {
				reachable[in] = true
				queue = append(queue, in)
			}
		}
	}

	for _, id := range g.Order {
		if reachable[id] {
			continue
		}
		node := g.Nodes[id]
		name := node.Name
		if name == "" {
			name = node.Kind.String() + " " + id.Short()
		}
		errs = append(errs, ValidationError{
			NodeID:   id,
			Message:  fmt.Sprintf("node %q is not used by any export or named mesh", name),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateArity checks input counts and that SDF combinations only
// combine solids.
func validateArity(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, id := range g.Order {
		node := g.Nodes[id]
		n := len(node.Inputs)
		switch want := node.Kind.Arity(); {
		case want >= 0 && n != want:
			errs = append(errs, nodeError(node, "%s takes %d inputs, got %d", node.Kind, want, n))
			continue
		case node.Kind == NodeExport && n == 0:
			errs = append(errs, nodeError(node, "export needs at least one input"))
			continue
		}
		if node.Kind != NodeSolid {
			continue
		}
		sd, ok := node.Data.(SolidData)
		if !ok {
			continue
		}
		if sd.Shape.IsPrimitive() {
			if n != 0 {
				errs = append(errs, nodeError(node, "%s takes no inputs, got %d", sd.Shape, n))
			}
			continue
		}
		if n != 2 {
			errs = append(errs, nodeError(node, "%s takes 2 inputs, got %d", sd.Shape, n))
			continue
		}
		for _, in := range node.Inputs {
			if _, exists := g.Nodes[in]; exists && !g.IsSolid(in) {
				errs = append(errs, nodeError(node, "%s input %s is not a solid", sd.Shape, in.Short()))
			}
		}
	}
	return errs
}

// validateParams checks that every node carries the payload matching its
// kind and that numeric parameters are in range.
func validateParams(g *Graph) []ValidationError {
	var errs []ValidationError
	bad := func(n *Node, format string, args ...any) {
		errs = append(errs, nodeError(n, format, args...))
	}
	for _, id := range g.Order {
		n := g.Nodes[id]
		switch d := n.Data.(type) {
		case LoadData:
			if n.Kind != NodeLoad {
				break
			}
			if d.Path == "" {
				bad(n, "load needs a path")
			}
			continue
		case GenerateData:
			if n.Kind != NodeGenerate {
				break
			}
			switch d.Generator {
			case GenSphere:
				if d.Radius <= 0 {
					bad(n, "sphere radius must be positive, got %g", d.Radius)
				}
				if d.Phi < 3 || d.Theta < 3 {
					bad(n, "sphere needs at least 3 phi and theta steps, got %d and %d", d.Phi, d.Theta)
				}
			case GenGridBox, GenMinimalBox:
				if d.Size.X <= 0 || d.Size.Y <= 0 || d.Size.Z <= 0 {
					bad(n, "%s size must be positive, got %v", d.Generator, d.Size)
				}
				if d.Generator == GenGridBox && d.Steps < 1 {
					bad(n, "grid-box steps must be at least 1, got %d", d.Steps)
				}
			}
			continue
		case SolidData:
			if n.Kind != NodeSolid {
				break
			}
			switch d.Shape {
			case ShapeBox:
				if d.Size.X <= 0 || d.Size.Y <= 0 || d.Size.Z <= 0 {
					bad(n, "sdf-box size must be positive, got %v", d.Size)
				}
			case ShapeCylinder:
				if d.Height <= 0 || d.Radius <= 0 {
					bad(n, "sdf-cylinder height and radius must be positive, got %g and %g", d.Height, d.Radius)
				}
			case ShapeSphere:
				if d.Radius <= 0 {
					bad(n, "sdf-sphere radius must be positive, got %g", d.Radius)
				}
			}
			if d.Cells < 0 {
				bad(n, "cells must not be negative, got %d", d.Cells)
			}
			continue
		case TransformData:
			if n.Kind != NodeTransform {
				break
			}
			if d.Scale < 0 {
				bad(n, "scale must be positive, got %g", d.Scale)
			}
			continue
		case BooleanData:
			if n.Kind == NodeBoolean {
				continue
			}
		case SolidifyData:
			if n.Kind != NodeSolidify {
				break
			}
			if d.Voxels < 0 || (d.SearchSteps != nil && *d.SearchSteps < 0) || (d.ExtendBounds != nil && *d.ExtendBounds < 0) {
				bad(n, "solidify parameters must not be negative")
			}
			continue
		case MorphologyData:
			if n.Kind != NodeMorphology {
				break
			}
			switch d.Op {
			case "dilate", "erode", "close", "open":
			default:
				bad(n, "unknown morphology %q", d.Op)
			}
			if d.Distance <= 0 {
				bad(n, "%s distance must be positive, got %g", d.Op, d.Distance)
			}
			if d.Voxels < 0 {
				bad(n, "voxels must not be negative, got %d", d.Voxels)
			}
			continue
		case SimplifyData:
			if n.Kind != NodeSimplify {
				break
			}
			if d.Triangles < 1 {
				bad(n, "simplify target must be at least 1, got %d", d.Triangles)
			}
			continue
		case RemeshData:
			if n.Kind != NodeRemesh {
				break
			}
			if d.EdgeLength < 0 || d.Passes < 0 {
				bad(n, "remesh edge length and passes must not be negative")
			}
			continue
		case SmoothData:
			if n.Kind != NodeSmooth {
				break
			}
			if d.Iterations < 0 || d.Smoothness < 0 {
				bad(n, "smooth iterations and smoothness must not be negative")
			}
			continue
		case FillHolesData:
			if n.Kind != NodeFillHoles {
				break
			}
			switch d.Method {
			case "", "ear-clip", "minimum-area", "fan":
			default:
				bad(n, "unknown fill method %q", d.Method)
			}
			continue
		case NormalsData:
			if n.Kind == NodeNormals {
				continue
			}
		case ExportData:
			if n.Kind != NodeExport {
				break
			}
			switch strings.ToLower(filepath.Ext(d.Path)) {
			case ".obj", ".stl":
			default:
				bad(n, "export path %q must end in .obj or .stl", d.Path)
			}
			continue
		}
		bad(n, "%s node carries %T data", n.Kind, n.Data)
	}
	return errs
}
