package pipeline

import (
	"fmt"

	"github.com/chazu/meshwork/pkg/graph"
	"github.com/chazu/meshwork/pkg/kernel"
)

// buildSolid composes the kernel solid for an SDF subtree rooted at n.
// Transforms wrap their input, so nested placements accumulate from the
// leaves outward.
func (e *Executor) buildSolid(g *graph.Graph, n *graph.Node) (kernel.Solid, error) {
	switch n.Kind {
	case graph.NodeSolid:
		return e.handleSolid(g, n)
	case graph.NodeTransform:
		return e.handleSolidTransform(g, n)
	}
	return nil, fmt.Errorf("node %s (%s) is not a solid", n.ID.Short(), n.Kind)
}

// handleSolid creates a primitive or combines two solids.
func (e *Executor) handleSolid(g *graph.Graph, n *graph.Node) (kernel.Solid, error) {
	d, ok := n.Data.(graph.SolidData)
	if !ok {
		return nil, fmt.Errorf("solid node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	k := e.Kernel
	switch d.Shape {
	case graph.ShapeBox:
		return k.Box(d.Size)
	case graph.ShapeCylinder:
		return k.Cylinder(d.Height, d.Radius)
	case graph.ShapeSphere:
		return k.Sphere(d.Radius)
	}

	inputs := g.Inputs(n)
	if len(inputs) != 2 {
		return nil, fmt.Errorf("%s node %s has %d inputs", d.Shape, n.ID.Short(), len(inputs))
	}
	a, err := e.buildSolid(g, inputs[0])
	if err != nil {
		return nil, err
	}
	b, err := e.buildSolid(g, inputs[1])
	if err != nil {
		return nil, err
	}
	switch d.Shape {
	case graph.ShapeUnion:
		return k.Union(a, b), nil
	case graph.ShapeDifference:
		return k.Difference(a, b), nil
	case graph.ShapeIntersection:
		return k.Intersection(a, b), nil
	}
	return nil, fmt.Errorf("solid node %s has unknown shape %v", n.ID.Short(), d.Shape)
}

// handleSolidTransform applies rotation, then scale, then translation.
func (e *Executor) handleSolidTransform(g *graph.Graph, n *graph.Node) (kernel.Solid, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	inputs := g.Inputs(n)
	if len(inputs) != 1 {
		return nil, fmt.Errorf("transform node %s has %d inputs", n.ID.Short(), len(inputs))
	}
	s, err := e.buildSolid(g, inputs[0])
	if err != nil {
		return nil, err
	}
	if td.Rotation != nil {
		s = e.Kernel.Rotate(s, *td.Rotation)
	}
	if td.Scale != 0 && td.Scale != 1 {
		s = e.Kernel.Scale(s, td.Scale)
	}
	if td.Translation != nil {
		s = e.Kernel.Translate(s, *td.Translation)
	}
	return s, nil
}

// solidCells returns the tessellation resolution for a solid subtree:
// the finest Cells set on any solid node in it, else the executor
// default.
func (e *Executor) solidCells(g *graph.Graph, n *graph.Node) int {
	cells := 0
	var walk func(n *graph.Node)
	walk = func(n *graph.Node) {
		if d, ok := n.Data.(graph.SolidData); ok && d.Cells > cells {
			cells = d.Cells
		}
		for _, in := range g.Inputs(n) {
			walk(in)
		}
	}
	walk(n)
	if cells == 0 {
		cells = e.Options.Cells
	}
	return cells
}
