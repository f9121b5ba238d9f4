package graph

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestNewGraph(t *testing.T) {
	g := New()
	if g.Nodes == nil {
		t.Fatal("Nodes map should be initialized")
	}
	if g.NameIndex == nil {
		t.Fatal("NameIndex map should be initialized")
	}
	if g.NodeCount() != 0 {
		t.Errorf("empty graph should have 0 nodes, got %d", g.NodeCount())
	}
}

func TestAddNodeAndLookup(t *testing.T) {
	g := New()

	id := NewNodeID("defmesh/ball")
	node := &Node{
		ID:   id,
		Kind: NodeGenerate,
		Name: "ball",
		Data: GenerateData{Generator: GenSphere, Radius: 1, Phi: 8, Theta: 8},
	}
	g.AddNode(node)
	g.AddRoot(id)
	g.AddRoot(id)

	if g.NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", g.NodeCount())
	}
	if len(g.Roots) != 1 {
		t.Errorf("roots = %d, want 1", len(g.Roots))
	}
	found := g.Lookup("ball")
	if found == nil || found.ID != id {
		t.Fatal("Lookup('ball') returned wrong node")
	}
	if must := g.MustLookup("ball"); must.ID != id {
		t.Errorf("MustLookup returned wrong node")
	}
	if g.Lookup("nope") != nil {
		t.Error("Lookup of unknown name should return nil")
	}
	if g.Get(id) != node {
		t.Error("Get returned wrong node")
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLookup should panic on unknown name")
		}
	}()
	New().MustLookup("ghost")
}

func TestSetName(t *testing.T) {
	g := New()
	a := &Node{ID: NewNodeID("a"), Kind: NodeNormals, Data: NormalsData{}}
	b := &Node{ID: NewNodeID("b"), Kind: NodeNormals, Data: NormalsData{}}
	g.AddNode(a)
	g.AddNode(b)

	if err := g.SetName(a.ID, "part"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := g.SetName(a.ID, "part"); err != nil {
		t.Errorf("renaming to the same name should succeed: %v", err)
	}
	if err := g.SetName(b.ID, "part"); err == nil {
		t.Error("expected error for duplicate name")
	}
	if err := g.SetName(a.ID, "other"); err == nil {
		t.Error("expected error for renaming a named node")
	}
	if err := g.SetName(NewNodeID("missing"), "x"); err == nil {
		t.Error("expected error for unknown node")
	}
	if g.Lookup("part") != a {
		t.Error("Lookup('part') should return a")
	}
}

func TestInputsAndOrder(t *testing.T) {
	g := New()
	src := &Node{ID: NewNodeID("sphere/1"), Kind: NodeGenerate,
		Data: GenerateData{Generator: GenSphere, Radius: 1, Phi: 8, Theta: 8}}
	op := &Node{ID: NewNodeID("normals/1"), Kind: NodeNormals,
		Inputs: []NodeID{src.ID, NewNodeID("dangling")}, Data: NormalsData{}}
	exp := &Node{ID: NewNodeID("export/1"), Kind: NodeExport,
		Inputs: []NodeID{op.ID}, Data: ExportData{Path: "out.obj"}}
	g.AddNode(src)
	g.AddNode(op)
	g.AddNode(exp)
	g.AddNode(src)

	if len(g.Order) != 3 {
		t.Errorf("order length = %d, want 3", len(g.Order))
	}
	if g.Order[0] != src.ID || g.Order[2] != exp.ID {
		t.Error("order should follow insertion")
	}
	inputs := g.Inputs(op)
	if len(inputs) != 1 || inputs[0] != src {
		t.Errorf("Inputs should skip dangling references, got %d", len(inputs))
	}
	exports := g.Exports()
	if len(exports) != 1 || exports[0] != exp {
		t.Error("Exports should return the export node")
	}
}

func TestIsSolid(t *testing.T) {
	g := New()
	box := &Node{ID: NewNodeID("sdf-box/1"), Kind: NodeSolid,
		Data: SolidData{Shape: ShapeBox, Size: v3.Vec{X: 1, Y: 1, Z: 1}}}
	moved := &Node{ID: NewNodeID("translate/1"), Kind: NodeTransform,
		Inputs: []NodeID{box.ID}, Data: TransformData{Translation: &v3.Vec{X: 1}}}
	sphere := &Node{ID: NewNodeID("sphere/1"), Kind: NodeGenerate,
		Data: GenerateData{Generator: GenSphere, Radius: 1, Phi: 8, Theta: 8}}
	movedSphere := &Node{ID: NewNodeID("translate/2"), Kind: NodeTransform,
		Inputs: []NodeID{sphere.ID}, Data: TransformData{}}
	for _, n := range []*Node{box, moved, sphere, movedSphere} {
		g.AddNode(n)
	}

	tests := []struct {
		id   NodeID
		want bool
	}{
		{box.ID, true},
		{moved.ID, true},
		{sphere.ID, false},
		{movedSphere.ID, false},
		{NewNodeID("missing"), false},
	}
	for _, tt := range tests {
		if got := g.IsSolid(tt.id); got != tt.want {
			t.Errorf("IsSolid(%s) = %v, want %v", tt.id.Short(), got, tt.want)
		}
	}
}

func TestNodeID(t *testing.T) {
	a := NewNodeID("sphere/1")
	b := NewNodeID("sphere/1")
	if a != b {
		t.Error("NewNodeID should be deterministic")
	}
	if a == NewNodeID("sphere/2") {
		t.Error("different paths should give different IDs")
	}
	if len(a.Short()) != 8 {
		t.Errorf("Short() length = %d, want 8", len(a.Short()))
	}
	if a.IsZero() || !ZeroID.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestKindStrings(t *testing.T) {
	if NodeFillHoles.String() != "fill-holes" {
		t.Errorf("NodeFillHoles = %q", NodeFillHoles.String())
	}
	if NodeKind(99).String() != "unknown" {
		t.Error("unknown kind should stringify as unknown")
	}
	if ShapeCylinder.String() != "sdf-cylinder" || !ShapeCylinder.IsPrimitive() {
		t.Error("cylinder shape mismatch")
	}
	if ShapeUnion.IsPrimitive() {
		t.Error("union is not a primitive")
	}
	if BoolIntersect.String() != "intersect" {
		t.Errorf("BoolIntersect = %q", BoolIntersect.String())
	}
	if GenGridBox.String() != "grid-box" {
		t.Errorf("GenGridBox = %q", GenGridBox.String())
	}
}
