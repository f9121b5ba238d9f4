package graph

import "fmt"

// Graph is the top-level immutable data structure produced by Lisp
// evaluation. It is never mutated after evaluation; each evaluation
// produces a new graph.
type Graph struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Order     []NodeID          `json:"order"` // insertion order
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	Version   uint64            `json:"version"`
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode adds a node to the graph. It does not check for duplicates;
// Validate reports them.
func (g *Graph) AddNode(n *Node) {
	if _, ok := g.Nodes[n.ID]; !ok {
		g.Order = append(g.Order, n.ID)
	}
	g.Nodes[n.ID] = n
	if n.Name != "" {
		if _, taken := g.NameIndex[n.Name]; !taken {
			g.NameIndex[n.Name] = n.ID
		}
	}
}

// SetName names an existing node.
func (g *Graph) SetName(id NodeID, name string) error {
	n := g.Nodes[id]
	if n == nil {
		return fmt.Errorf("graph: no node %s", id.Short())
	}
	if prev, ok := g.NameIndex[name]; ok && prev != id {
		return fmt.Errorf("graph: name %q already defined", name)
	}
	if n.Name != "" && n.Name != name {
		return fmt.Errorf("graph: node already named %q", n.Name)
	}
	n.Name = name
	g.NameIndex[name] = id
	return nil
}

// AddRoot registers a node ID as a root of the graph. Adding the same
// root twice is a no-op.
func (g *Graph) AddRoot(id NodeID) {
	for _, r := range g.Roots {
		if r == id {
			return
		}
	}
	g.Roots = append(g.Roots, id)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (g *Graph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (g *Graph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *Graph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// Inputs returns the input nodes of n, skipping dangling references.
func (g *Graph) Inputs(n *Node) []*Node {
	inputs := make([]*Node, 0, len(n.Inputs))
	for _, id := range n.Inputs {
		if in := g.Nodes[id]; in != nil {
			inputs = append(inputs, in)
		}
	}
	return inputs
}

// Exports returns all export nodes in insertion order.
func (g *Graph) Exports() []*Node {
	var out []*Node
	for _, id := range g.Order {
		if n := g.Nodes[id]; n != nil && n.Kind == NodeExport {
			out = append(out, n)
		}
	}
	return out
}

// IsSolid reports whether the node yields an SDF solid: a solid node, or
// a transform whose input is one.
func (g *Graph) IsSolid(id NodeID) bool {
	for depth := 0; depth < len(g.Nodes)+1; depth++ {
		n := g.Nodes[id]
		if n == nil {
			return false
		}
		switch n.Kind {
		case NodeSolid:
			return true
		case NodeTransform:
			if len(n.Inputs) != 1 {
				return false
			}
			id = n.Inputs[0]
		default:
			return false
		}
	}
	return false
}

// NodeCount returns the total number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}
