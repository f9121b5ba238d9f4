// Package remesh drives a mesh toward uniform edge length with the usual
// split, collapse, flip and smooth passes. Vertices can be projected back
// onto the input surface after each pass.
package remesh

import (
	"context"
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
	"github.com/chazu/meshwork/pkg/spatial"
)

// Edge length bounds relative to the target.
const (
	splitRatio    = 4.0 / 3.0
	collapseRatio = 4.0 / 5.0
)

// flipCoplanarDot is the smallest normal agreement between the two
// triangles of an edge that may be flipped.
const flipCoplanarDot = 0.5

// DefaultPasses is the number of full passes run by Remesh.
const DefaultPasses = 10

// Remesher rewrites Mesh in place.
type Remesher struct {
	Mesh             *mesh.Mesh
	TargetEdgeLength float64
	// SmoothSpeed is the fraction of the tangential move applied per
	// pass, between 0 and 1.
	SmoothSpeed float64
	Passes      int

	EnableSplits     bool
	EnableCollapses  bool
	EnableFlips      bool
	EnableSmoothing  bool
	PreserveBoundary bool
	ProjectToInput   bool

	// Stats of the last run.
	Splits, Collapses, Flips int

	tree *spatial.AABBTree
}

// New returns a remesher with every stage enabled.
func New(m *mesh.Mesh, edgeLength float64) *Remesher {
	return &Remesher{
		Mesh:             m,
		TargetEdgeLength: edgeLength,
		SmoothSpeed:      0.5,
		Passes:           DefaultPasses,
		EnableSplits:     true,
		EnableCollapses:  true,
		EnableFlips:      true,
		EnableSmoothing:  true,
		PreserveBoundary: true,
		ProjectToInput:   true,
	}
}

func (r *Remesher) prepare() error {
	if r.Mesh == nil {
		return fmt.Errorf("remesh: no mesh: %w", mesh.ErrNotFound)
	}
	if r.TargetEdgeLength <= 0 {
		return fmt.Errorf("remesh: target edge length %g must be positive", r.TargetEdgeLength)
	}
	r.Splits, r.Collapses, r.Flips = 0, 0, 0
	r.Mesh.DiscardAttributes()
	r.tree = nil
	if r.ProjectToInput {
		r.tree = spatial.BuildAABBTree(r.Mesh.Copy())
	}
	return nil
}

// Remesh runs the configured number of passes. Attribute overlays are
// discarded.
func (r *Remesher) Remesh(ctx context.Context) error {
	if err := r.prepare(); err != nil {
		return err
	}
	return r.passes(ctx, r.Passes)
}

// FastestRemesh splits until no edge is too long, then runs a short
// sequence of full passes. It trades uniformity for speed.
func (r *Remesher) FastestRemesh(ctx context.Context) error {
	if err := r.prepare(); err != nil {
		return err
	}
	hi := splitRatio * r.TargetEdgeLength
	for i := 0; i < 32; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.splitPass(hi) == 0 {
			break
		}
	}
	passes := r.Passes
	if passes <= 0 || passes > 5 {
		passes = 5
	}
	return r.passes(ctx, passes)
}

func (r *Remesher) passes(ctx context.Context, n int) error {
	hi := splitRatio * r.TargetEdgeLength
	lo := collapseRatio * r.TargetEdgeLength
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.EnableSplits {
			r.splitPass(hi)
		}
		if r.EnableCollapses {
			r.collapsePass(lo, hi)
		}
		if r.EnableFlips {
			r.flipPass()
		}
		if r.EnableSmoothing {
			r.smoothPass()
		}
		if r.tree != nil {
			r.project()
		}
	}
	return ctx.Err()
}

func (r *Remesher) splitPass(hi float64) int {
	m := r.Mesh
	n := 0
	hi2 := hi * hi
	for _, e := range m.Edges() {
		if !m.HasEdge(e[0], e[1]) {
			continue
		}
		if m.Vertex(e[0]).Sub(m.Vertex(e[1])).Length2() <= hi2 {
			continue
		}
		if _, err := m.SplitEdge(e[0], e[1], 0.5); err == nil {
			n++
		}
	}
	r.Splits += n
	return n
}

func (r *Remesher) collapsePass(lo, hi float64) {
	m := r.Mesh
	lo2 := lo * lo
	for _, e := range m.Edges() {
		a, b := e[0], e[1]
		if !m.HasEdge(a, b) {
			continue
		}
		pa, pb := m.Vertex(a), m.Vertex(b)
		if pa.Sub(pb).Length2() >= lo2 {
			continue
		}
		keep, remove := a, b
		pos := geom.Lerp(pa, pb, 0.5)
		if r.PreserveBoundary {
			ba, bb := m.IsBoundaryVertex(a), m.IsBoundaryVertex(b)
			switch {
			case ba && bb:
				continue
			case ba:
				pos = pa
			case bb:
				keep, remove, pos = b, a, pb
			}
		}
		if !r.collapseKeepsShape(keep, remove, pos, hi) {
			continue
		}
		if err := m.CollapseEdge(keep, remove, pos); err == nil {
			r.Collapses++
		}
	}
}

// collapseKeepsShape rejects collapses that would create a long edge or
// flip a surviving triangle.
func (r *Remesher) collapseKeepsShape(keep, remove int, pos v3.Vec, hi float64) bool {
	m := r.Mesh
	if m.CanCollapse(keep, remove) != nil {
		return false
	}
	hi2 := hi * hi
	for _, v := range [2]int{keep, remove} {
		for _, n := range m.VertexNeighbors(v) {
			if n == keep || n == remove {
				continue
			}
			if m.Vertex(n).Sub(pos).Length2() > hi2 {
				return false
			}
		}
		for _, tid := range m.VertexTriangles(v) {
			t := m.Triangle(tid)
			if t.Contains(keep) && t.Contains(remove) {
				continue
			}
			var p [3]v3.Vec
			for i, w := range t {
				if w == keep || w == remove {
					p[i] = pos
				} else {
					p[i] = m.Vertex(w)
				}
			}
			if geom.TriangleNormal(p[0], p[1], p[2]).Dot(m.TriangleNormal(tid)) <= 0 {
				return false
			}
		}
	}
	return true
}

func targetValence(m *mesh.Mesh, v int) int {
	if m.IsBoundaryVertex(v) {
		return 4
	}
	return 6
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (r *Remesher) flipPass() {
	m := r.Mesh
	for _, e := range m.Edges() {
		a, b := e[0], e[1]
		if !m.HasEdge(a, b) || m.IsBoundaryEdge(a, b) || m.CanFlip(a, b) != nil {
			continue
		}
		tris := m.EdgeTriangles(a, b)
		n0, n1 := m.TriangleNormal(tris[0]), m.TriangleNormal(tris[1])
		if n0.Dot(n1) < flipCoplanarDot {
			continue
		}
		t0, t1 := tris[0], tris[1]
		if t := m.Triangle(t0); t[(t.Index(a)+1)%3] != b {
			t0, t1 = t1, t0
		}
		c := m.OppositeVertex(t0, a, b)
		d := m.OppositeVertex(t1, a, b)
		va, vb := len(m.VertexNeighbors(a)), len(m.VertexNeighbors(b))
		vc, vd := len(m.VertexNeighbors(c)), len(m.VertexNeighbors(d))
		ta, tb, tc, td := targetValence(m, a), targetValence(m, b), targetValence(m, c), targetValence(m, d)
		before := abs(va-ta) + abs(vb-tb) + abs(vc-tc) + abs(vd-td)
		after := abs(va-1-ta) + abs(vb-1-tb) + abs(vc+1-tc) + abs(vd+1-td)
		if after >= before {
			continue
		}
		avg := n0.Add(n1)
		pa, pb, pc, pd := m.Vertex(a), m.Vertex(b), m.Vertex(c), m.Vertex(d)
		// FlipEdge replaces the pair with (c, a, d) and (c, d, b)
		if geom.AreaNormal(pc, pa, pd).Dot(avg) <= 0 || geom.AreaNormal(pc, pd, pb).Dot(avg) <= 0 {
			continue
		}
		if err := m.FlipEdge(a, b); err != nil {
			continue
		}
		r.Flips++
	}
}

// smoothPass moves interior vertices toward the centroid of their
// neighbors within the tangent plane.
func (r *Remesher) smoothPass() {
	m := r.Mesh
	moves := make(map[int]v3.Vec)
	for _, vid := range m.VertexIDs() {
		if m.IsBoundaryVertex(vid) {
			continue
		}
		nbrs := m.VertexNeighbors(vid)
		if len(nbrs) == 0 {
			continue
		}
		var c v3.Vec
		for _, n := range nbrs {
			c = c.Add(m.Vertex(n))
		}
		c = c.DivScalar(float64(len(nbrs)))
		p := m.Vertex(vid)
		d := c.Sub(p)
		n := m.VertexNormal(vid)
		d = d.Sub(n.MulScalar(d.Dot(n)))
		moves[vid] = p.Add(d.MulScalar(r.SmoothSpeed))
	}
	for vid, p := range moves {
		_ = m.SetVertex(vid, p)
	}
}

func (r *Remesher) project() {
	m := r.Mesh
	for _, vid := range m.VertexIDs() {
		if r.PreserveBoundary && m.IsBoundaryVertex(vid) {
			continue
		}
		q, err := r.tree.FindNearestPoint(m.Vertex(vid))
		if err != nil {
			return
		}
		_ = m.SetVertex(vid, q)
	}
}
