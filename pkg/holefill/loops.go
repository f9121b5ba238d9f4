// Package holefill finds open boundary loops and closes them with
// triangle patches welded to the existing boundary vertices.
package holefill

import (
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/mesh"
)

// Loop is a closed chain of boundary vertices. Consecutive vertices form
// a boundary edge oriented as in its triangle, so the patch closing the
// loop runs the other way.
type Loop struct {
	Vertices []int
}

// Len returns the number of vertices in the loop.
func (l Loop) Len() int { return len(l.Vertices) }

// Positions returns the loop vertex positions.
func (l Loop) Positions(m *mesh.Mesh) []v3.Vec {
	out := make([]v3.Vec, len(l.Vertices))
	for i, v := range l.Vertices {
		out[i] = m.Vertex(v)
	}
	return out
}

// BoundaryLoops walks the open edges of m and returns every closed loop
// they form, ordered by their smallest vertex ID. A closed mesh has none.
// A vertex where the boundary pinches, as in a bowtie, splits it into one
// loop per lobe. Chains that do not close, which only happen on
// non-manifold input, are skipped.
func BoundaryLoops(m *mesh.Mesh) []Loop {
	next := make(map[int][]int)
	for _, e := range m.BoundaryEdges() {
		next[e[0]] = append(next[e[0]], e[1])
	}
	starts := make([]int, 0, len(next))
	for v, outs := range next {
		starts = append(starts, v)
		sort.Ints(outs)
	}
	sort.Ints(starts)

	used := make(map[mesh.Edge]bool)
	var loops []Loop
	for _, s := range starts {
		for _, first := range next[s] {
			if used[mesh.Edge{s, first}] {
				continue
			}
			loops = append(loops, walk(next, used, s, first)...)
		}
	}
	sort.SliceStable(loops, func(i, j int) bool { return minVertex(loops[i]) < minVertex(loops[j]) })
	return loops
}

// walk follows unused boundary edges from start through first. Reaching a
// vertex already on the path closes the loop behind it, so the path never
// repeats a vertex.
func walk(next map[int][]int, used map[mesh.Edge]bool, start, first int) []Loop {
	verts := []int{start}
	at := map[int]int{start: 0}
	used[mesh.Edge{start, first}] = true
	var loops []Loop
	cur := first
	for {
		if i, seen := at[cur]; seen {
			loops = append(loops, Loop{Vertices: append([]int(nil), verts[i:]...)})
			if i == 0 {
				return loops
			}
			for _, v := range verts[i+1:] {
				delete(at, v)
			}
			verts = verts[:i+1]
		} else {
			at[cur] = len(verts)
			verts = append(verts, cur)
		}
		to := -1
		for _, n := range next[cur] {
			if !used[mesh.Edge{cur, n}] {
				to = n
				break
			}
		}
		if to < 0 {
			return loops
		}
		used[mesh.Edge{cur, to}] = true
		cur = to
	}
}

func minVertex(l Loop) int {
	lo := l.Vertices[0]
	for _, v := range l.Vertices[1:] {
		lo = min(lo, v)
	}
	return lo
}
