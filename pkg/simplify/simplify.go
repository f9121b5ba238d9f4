// Package simplify reduces triangle counts by quadric error metric edge
// collapse. Candidate collapses sit in a priority queue ordered by cost;
// entries go stale when either endpoint changes and are skipped on pop.
package simplify

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

// boundaryWeight scales the constraint planes that hold open borders in
// place.
const boundaryWeight = 1000

// checkEvery is how many queue pops pass between context checks.
const checkEvery = 256

// minNormalDot rejects collapses that turn a triangle by more than about
// 78 degrees.
const minNormalDot = 0.2

// Simplifier collapses edges of Mesh in place.
type Simplifier struct {
	Mesh *mesh.Mesh
	// PreserveBoundary keeps open borders: boundary vertices only merge
	// along boundary edges and never move inward.
	PreserveBoundary bool
	// MinimalArea rejects collapses leaving a triangle smaller than this.
	// Collapses that flip a triangle are always rejected.
	MinimalArea float64

	// Collapses counts the edge collapses applied by the last run.
	Collapses int

	quadrics []quadric
	version  []int
	queue    collapseQueue
}

// New returns a simplifier for m with boundary preservation on. Triangle
// groups are enabled on m when it has none.
func New(m *mesh.Mesh) *Simplifier {
	return &Simplifier{Mesh: m, PreserveBoundary: true}
}

// SimplifyToTriangleCount collapses edges until the mesh has at most
// target triangles or no legal collapse remains. Closed meshes lose two
// triangles per collapse, so the count may land one below an odd
// target. Targets below one are treated as one.
func (s *Simplifier) SimplifyToTriangleCount(ctx context.Context, target int) error {
	if s.Mesh == nil {
		return fmt.Errorf("simplify: no mesh: %w", mesh.ErrNotFound)
	}
	if target < 1 {
		target = 1
	}
	if target >= s.Mesh.TriangleCount() {
		return nil
	}
	return s.run(ctx, target, math.Inf(1))
}

// SimplifyToMaxError collapses edges while the cheapest collapse costs
// less than maxError, measured as a sum of squared plane distances.
func (s *Simplifier) SimplifyToMaxError(ctx context.Context, maxError float64) error {
	if s.Mesh == nil {
		return fmt.Errorf("simplify: no mesh: %w", mesh.ErrNotFound)
	}
	return s.run(ctx, 0, maxError)
}

func (s *Simplifier) run(ctx context.Context, target int, maxError float64) error {
	m := s.Mesh
	if !m.HasTriangleGroups() {
		m.EnableTriangleGroups()
	}
	s.Collapses = 0
	s.initQuadrics()
	s.initQueue()

	for pops := 0; s.queue.Len() > 0 && m.TriangleCount() > target; pops++ {
		if pops%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		c := heap.Pop(&s.queue).(*collapse)
		if !s.current(c) {
			continue
		}
		if c.cost > maxError {
			break
		}
		keep, remove, pos, ok := s.plan(c)
		if !ok {
			continue
		}
		if m.CanCollapse(keep, remove) != nil || !s.preservesShape(keep, remove, pos) {
			continue
		}
		if err := m.CollapseEdge(keep, remove, pos); err != nil {
			continue
		}
		s.Collapses++
		s.quadrics[keep] = s.quadrics[keep].add(s.quadrics[remove])
		s.version[keep]++
		s.version[remove]++
		for _, n := range m.VertexNeighbors(keep) {
			s.push(keep, n)
		}
	}
	return nil
}

func (s *Simplifier) initQuadrics() {
	m := s.Mesh
	s.quadrics = make([]quadric, m.MaxVertexID())
	s.version = make([]int, m.MaxVertexID())
	for _, tid := range m.TriangleIDs() {
		a, b, c := m.TriangleVertices(tid)
		area := geom.TriangleArea(a, b, c)
		if area == 0 {
			continue
		}
		q := planeQuadric(geom.TriangleNormal(a, b, c), a, area)
		for _, v := range m.Triangle(tid) {
			s.quadrics[v] = s.quadrics[v].add(q)
		}
	}
	if !s.PreserveBoundary {
		return
	}
	for _, e := range m.BoundaryEdges() {
		tid := m.FindEdge(e[0], e[1])
		pa, pb := m.Vertex(e[0]), m.Vertex(e[1])
		edge := pb.Sub(pa)
		n := geom.Normalize(edge.Cross(m.TriangleNormal(tid)))
		if n.Length2() == 0 {
			continue
		}
		q := planeQuadric(n, pa, boundaryWeight*edge.Length2())
		s.quadrics[e[0]] = s.quadrics[e[0]].add(q)
		s.quadrics[e[1]] = s.quadrics[e[1]].add(q)
	}
}

func (s *Simplifier) initQueue() {
	s.queue = s.queue[:0]
	for _, e := range s.Mesh.Edges() {
		s.push(e[0], e[1])
	}
}

// push queues the collapse of edge (a, b) at its current cost.
func (s *Simplifier) push(a, b int) {
	if a > b {
		a, b = b, a
	}
	q := s.quadrics[a].add(s.quadrics[b])
	pos := s.target(a, b, q)
	heap.Push(&s.queue, &collapse{
		a: a, b: b,
		va: s.version[a], vb: s.version[b],
		cost: math.Max(q.eval(pos), 0),
		pos:  pos,
	})
}

// target picks the collapse position of edge (a, b): the quadric optimum
// when well conditioned, otherwise the best of the endpoints and the
// midpoint.
func (s *Simplifier) target(a, b int, q quadric) v3.Vec {
	pa, pb := s.Mesh.Vertex(a), s.Mesh.Vertex(b)
	if p, ok := q.optimum(); ok {
		return p
	}
	best, cost := pa, q.eval(pa)
	for _, p := range []v3.Vec{pb, geom.Lerp(pa, pb, 0.5)} {
		if c := q.eval(p); c < cost {
			best, cost = p, c
		}
	}
	return best
}

func (s *Simplifier) current(c *collapse) bool {
	m := s.Mesh
	return m.IsVertex(c.a) && m.IsVertex(c.b) &&
		s.version[c.a] == c.va && s.version[c.b] == c.vb &&
		m.HasEdge(c.a, c.b)
}

// plan decides which endpoint survives and where it goes.
func (s *Simplifier) plan(c *collapse) (keep, remove int, pos v3.Vec, ok bool) {
	m := s.Mesh
	keep, remove, pos = c.a, c.b, c.pos
	if !s.PreserveBoundary {
		return keep, remove, pos, true
	}
	ba, bb := m.IsBoundaryVertex(c.a), m.IsBoundaryVertex(c.b)
	switch {
	case ba && bb:
		if !m.IsBoundaryEdge(c.a, c.b) {
			return 0, 0, pos, false
		}
	case ba:
		pos = m.Vertex(c.a)
	case bb:
		keep, remove = c.b, c.a
		pos = m.Vertex(c.b)
	}
	return keep, remove, pos, true
}

// preservesShape rejects collapses that flip or crush a surviving
// triangle.
func (s *Simplifier) preservesShape(keep, remove int, pos v3.Vec) bool {
	m := s.Mesh
	for _, v := range [2]int{keep, remove} {
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
			before := m.TriangleNormal(tid)
			after := geom.AreaNormal(p[0], p[1], p[2])
			area := 0.5 * after.Length()
			if area <= s.MinimalArea {
				return false
			}
			if after.MulScalar(1/(2*area)).Dot(before) < minNormalDot {
				return false
			}
		}
	}
	return true
}

// Simplify reduces m to at most target triangles.
func Simplify(ctx context.Context, m *mesh.Mesh, target int) error {
	return New(m).SimplifyToTriangleCount(ctx, target)
}
