package holefill

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

// Method selects how a loop is triangulated.
type Method int

const (
	// EarClip clips ears of the loop projected onto its best-fit plane.
	EarClip Method = iota
	// MinimumArea picks the triangulation of smallest total area by
	// dynamic programming. Loops longer than MaxMinimumAreaLoop fall back
	// to EarClip.
	MinimumArea
	// Fan adds a vertex at the loop centroid and connects every edge to it.
	Fan
)

func (m Method) String() string {
	switch m {
	case EarClip:
		return "ear-clip"
	case MinimumArea:
		return "minimum-area"
	case Fan:
		return "fan"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a method name to its value.
func ParseMethod(s string) (Method, error) {
	for _, m := range []Method{EarClip, MinimumArea, Fan} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("holefill: unknown method %q", s)
}

// MaxMinimumAreaLoop caps the cubic search of MinimumArea.
const MaxMinimumAreaLoop = 200

// ErrDegenerateLoop is returned for loops that cannot be patched, such as
// loops with fewer than three vertices or repeated vertices.
var ErrDegenerateLoop = errors.New("holefill: degenerate loop")

// Result lists the elements added by a fill.
type Result struct {
	NewTriangles []int
	NewVertices  []int
}

// Filler closes one loop of Mesh.
type Filler struct {
	Mesh   *mesh.Mesh
	Loop   Loop
	Method Method
	// Group is assigned to new triangles when the mesh carries groups. A
	// negative value picks a fresh group.
	Group int
}

// NewFiller returns an ear-clipping filler that puts the patch in a
// fresh group.
func NewFiller(m *mesh.Mesh, l Loop) *Filler {
	return &Filler{Mesh: m, Loop: l, Method: EarClip, Group: -1}
}

// Fill triangulates the loop. On success every edge of the loop has two
// triangles. If the chosen triangulation cannot be added without
// creating a non-manifold edge the fill falls back to a centroid fan.
func (f *Filler) Fill() (Result, error) {
	m := f.Mesh
	if m == nil {
		return Result{}, fmt.Errorf("holefill: no mesh: %w", mesh.ErrNotFound)
	}
	hole := reversed(f.Loop.Vertices)
	if err := checkLoop(m, hole); err != nil {
		return Result{}, err
	}
	group := f.Group
	if group < 0 {
		group = m.MaxGroupID()
	}

	var tris [][3]int
	switch f.Method {
	case MinimumArea:
		if len(hole) <= MaxMinimumAreaLoop {
			tris = minimumArea(m, hole)
		}
		if tris == nil {
			tris = earClip(m, hole)
		}
	case EarClip:
		tris = earClip(m, hole)
	}
	if tris != nil {
		if added, ok := appendAll(m, tris, group); ok {
			return Result{NewTriangles: added}, nil
		}
	}
	return fan(m, hole, group)
}

func reversed(vs []int) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[len(vs)-1-i] = v
	}
	return out
}

func checkLoop(m *mesh.Mesh, hole []int) error {
	if len(hole) < 3 {
		return fmt.Errorf("holefill: loop of %d vertices: %w", len(hole), ErrDegenerateLoop)
	}
	seen := make(map[int]bool, len(hole))
	for _, v := range hole {
		if !m.IsVertex(v) {
			return fmt.Errorf("holefill: loop vertex %d: %w", v, mesh.ErrNotFound)
		}
		if seen[v] {
			return fmt.Errorf("holefill: vertex %d repeats: %w", v, ErrDegenerateLoop)
		}
		seen[v] = true
	}
	return nil
}

// appendAll adds tris or nothing.
func appendAll(m *mesh.Mesh, tris [][3]int, group int) ([]int, bool) {
	added := make([]int, 0, len(tris))
	for _, t := range tris {
		tid, err := m.AppendTriangleGroup(t[0], t[1], t[2], group)
		if err != nil {
			for _, a := range added {
				_ = m.RemoveTriangle(a, false)
			}
			return nil, false
		}
		added = append(added, tid)
	}
	return added, true
}

func fan(m *mesh.Mesh, hole []int, group int) (Result, error) {
	var c v3.Vec
	for _, v := range hole {
		c = c.Add(m.Vertex(v))
	}
	c = c.DivScalar(float64(len(hole)))
	center := m.AppendVertex(c)
	tris := make([][3]int, len(hole))
	for i, v := range hole {
		tris[i] = [3]int{v, hole[(i+1)%len(hole)], center}
	}
	added, ok := appendAll(m, tris, group)
	if !ok {
		_ = m.RemoveVertex(center)
		return Result{}, fmt.Errorf("holefill: fan over %d vertices: %w", len(hole), mesh.ErrInvalidTopology)
	}
	return Result{NewTriangles: added, NewVertices: []int{center}}, nil
}

// newellNormal returns the normal of a polygon, following its winding.
func newellNormal(ps []v3.Vec) v3.Vec {
	var n v3.Vec
	for i, p := range ps {
		q := ps[(i+1)%len(ps)]
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	return geom.Normalize(n)
}

type point2 struct{ x, y float64 }

func cross2(o, a, b point2) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

func inTriangle2(p, a, b, c point2) bool {
	return cross2(a, b, p) >= 0 && cross2(b, c, p) >= 0 && cross2(c, a, p) >= 0
}

// earClip triangulates the hole projected onto its Newell plane. It
// returns nil when the loop does not project to a usable polygon.
func earClip(m *mesh.Mesh, hole []int) [][3]int {
	ps := make([]v3.Vec, len(hole))
	for i, v := range hole {
		ps[i] = m.Vertex(v)
	}
	n := newellNormal(ps)
	if n.Length2() == 0 {
		return nil
	}
	u, w := geom.Orthonormal(n)
	pts := make([]point2, len(ps))
	for i, p := range ps {
		pts[i] = point2{p.Dot(u), p.Dot(w)}
	}

	idx := make([]int, len(hole))
	for i := range idx {
		idx[i] = i
	}
	var tris [][3]int
	for len(idx) > 3 {
		best := -1
		for k := range idx {
			i0, i1, i2 := idx[(k+len(idx)-1)%len(idx)], idx[k], idx[(k+1)%len(idx)]
			a, b, c := pts[i0], pts[i1], pts[i2]
			if cross2(a, b, c) <= 0 {
				continue
			}
			if m.HasEdge(hole[i0], hole[i2]) {
				continue
			}
			ear := true
			for _, j := range idx {
				if j == i0 || j == i1 || j == i2 {
					continue
				}
				if inTriangle2(pts[j], a, b, c) {
					ear = false
					break
				}
			}
			if ear {
				best = k
				break
			}
		}
		if best < 0 {
			return nil
		}
		k := best
		i0, i1, i2 := idx[(k+len(idx)-1)%len(idx)], idx[k], idx[(k+1)%len(idx)]
		tris = append(tris, [3]int{hole[i0], hole[i1], hole[i2]})
		idx = append(idx[:k], idx[k+1:]...)
	}
	tris = append(tris, [3]int{hole[idx[0]], hole[idx[1]], hole[idx[2]]})
	return tris
}

// minimumArea returns the triangulation of smallest total area that uses
// no edge already in the mesh, or nil when none exists.
func minimumArea(m *mesh.Mesh, hole []int) [][3]int {
	n := len(hole)
	ps := make([]v3.Vec, n)
	for i, v := range hole {
		ps[i] = m.Vertex(v)
	}
	inf := math.Inf(1)
	cost := make([][]float64, n)
	split := make([][]int, n)
	for i := range cost {
		cost[i] = make([]float64, n)
		split[i] = make([]int, n)
	}
	// diagonal (i, j) is usable unless it already exists in the mesh
	usable := func(i, j int) bool {
		if j == i+1 || (i == 0 && j == n-1) {
			return true
		}
		return !m.HasEdge(hole[i], hole[j])
	}
	for span := 2; span < n; span++ {
		for i := 0; i+span < n; i++ {
			j := i + span
			cost[i][j] = inf
			split[i][j] = -1
			if !usable(i, j) {
				continue
			}
			for k := i + 1; k < j; k++ {
				c := cost[i][k] + cost[k][j]
				if math.IsInf(c, 1) {
					continue
				}
				c += geom.TriangleArea(ps[i], ps[k], ps[j])
				if c < cost[i][j] {
					cost[i][j] = c
					split[i][j] = k
				}
			}
		}
	}
	if math.IsInf(cost[0][n-1], 1) {
		return nil
	}
	var tris [][3]int
	var emit func(i, j int)
	emit = func(i, j int) {
		if j-i < 2 {
			return
		}
		k := split[i][j]
		tris = append(tris, [3]int{hole[i], hole[k], hole[j]})
		emit(i, k)
		emit(k, j)
	}
	emit(0, n-1)
	return tris
}

// FillAll closes every boundary loop of m with method and returns the
// number of loops filled. Loops that cannot be filled are reported in the
// joined error; the others are still filled.
func FillAll(m *mesh.Mesh, method Method) (int, error) {
	filled := 0
	var errs []error
	group := -1
	if m.HasTriangleGroups() {
		group = m.MaxGroupID()
	}
	for _, l := range BoundaryLoops(m) {
		f := &Filler{Mesh: m, Loop: l, Method: method, Group: group}
		if _, err := f.Fill(); err != nil {
			errs = append(errs, err)
			continue
		}
		filled++
	}
	return filled, errors.Join(errs...)
}
