// Package boolean computes union, difference and intersection of two
// closed triangle meshes. Intersection curves are embedded into both
// inputs, the pieces are classified against the other mesh with the fast
// winding number, and the survivors are stitched into one mesh.
package boolean

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
	"github.com/chazu/meshwork/pkg/spatial"
)

// Op selects the boolean operation.
type Op int

const (
	Union Op = iota
	Difference
	Intersect
)

func (o Op) String() string {
	switch o {
	case Union:
		return "union"
	case Difference:
		return "difference"
	case Intersect:
		return "intersect"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// DefaultRelativeTolerance scales the snapping tolerance by the diagonal
// of the combined input bounds.
const DefaultRelativeTolerance = 1e-6

// Boolean is a single-use boolean operation. A and B are read but never
// modified; each is placed in a common space by its transform.
type Boolean struct {
	A, B       *mesh.Mesh
	TransformA sdf.M44
	TransformB sdf.M44
	Op         Op

	// ResultInInputSpace maps the result back through the inverse of
	// TransformA.
	ResultInInputSpace bool

	// Tolerance is the absolute snapping distance. Zero derives it from
	// the input size.
	Tolerance float64

	// Result is set by Compute.
	Result *mesh.Mesh

	// Unmatched counts the intersection segments Compute could not embed
	// in both meshes. They only matter when they leave the result open.
	Unmatched int
}

// New returns a boolean of a and b placed by their transforms.
func New(a *mesh.Mesh, xfA sdf.M44, b *mesh.Mesh, xfB sdf.M44, op Op) *Boolean {
	return &Boolean{A: a, B: b, TransformA: xfA, TransformB: xfB, Op: op}
}

// segment is an intersection segment lying in triangle ta of A and tb of
// B, with its endpoint vertices in each working mesh. After reconcile, ca
// and cb hold its vertex chains and pairs the A and B vertex at each
// shared point.
type segment struct {
	p, q   v3.Vec
	ta, tb int
	va, vb [2]int
	ca, cb []int
	pairs  [][2]int
}

var errWalk = errors.New("boolean: cannot embed intersection segment")

// Compute runs the operation and stores Result. The boolean reports
// whether the result is consistent: closed when both inputs are closed,
// and without open edges along the intersection curves otherwise. A false
// result is still a valid mesh that may carry gaps for the caller to
// patch.
func (bo *Boolean) Compute(ctx context.Context) (bool, error) {
	if bo.A == nil || bo.B == nil {
		return false, fmt.Errorf("boolean: missing input mesh: %w", mesh.ErrNotFound)
	}
	sa := newSide(bo.A, bo.TransformA)
	sb := newSide(bo.B, bo.TransformB)

	tol := bo.Tolerance
	if tol <= 0 {
		diag := geom.Diagonal(geom.Union(sa.m.Bounds(), sb.m.Bounds()))
		tol = DefaultRelativeTolerance * math.Max(diag, 1e-3)
	}
	sa.tol, sb.tol = tol, tol
	matchTol := 10 * tol

	// intersection segments between the original triangles
	ta0, tb0 := spatial.BuildAABBTree(sa.m), spatial.BuildAABBTree(sb.m)
	var segs []*segment
	err := ta0.Overlaps(tb0, tol, func(ta, tb int) {
		a0, a1, a2 := sa.m.TriangleVertices(ta)
		b0, b1, b2 := sb.m.TriangleVertices(tb)
		p, q, ok := geom.TriangleTriangleSegment([3]v3.Vec{a0, a1, a2}, [3]v3.Vec{b0, b1, b2}, tol)
		if !ok || q.Sub(p).Length() <= tol {
			return
		}
		segs = append(segs, &segment{p: p, q: q, ta: ta, tb: tb})
	})
	if err != nil {
		return false, err
	}

	for i, s := range segs {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return false, err
			}
		}
		if err := sa.embed(s.p, s.q, s.ta, &s.va); err != nil {
			s.va = [2]int{mesh.InvalidID, mesh.InvalidID}
		}
		if err := sb.embed(s.p, s.q, s.tb, &s.vb); err != nil {
			s.vb = [2]int{mesh.InvalidID, mesh.InvalidID}
		}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	bo.Unmatched = reconcile(sa, sb, segs, pairTolerance*tol)

	curveA, curveB := make(map[[2]int]bool), make(map[[2]int]bool)
	for _, s := range segs {
		markCurve(curveA, s.ca)
		markCurve(curveB, s.cb)
	}

	// classify each piece against the other mesh
	keepA, err := classify(ctx, sa, sb, bo.Op, true, curveA, tol, matchTol)
	if err != nil {
		return false, err
	}
	keepB, err := classify(ctx, sb, sa, bo.Op, false, curveB, tol, matchTol)
	if err != nil {
		return false, err
	}

	// B vertices on the curves resolve to the A vertex they were paired with
	offB := sa.m.MaxVertexID()
	classes := newVertexClasses(offB + sb.m.MaxVertexID())
	for _, s := range segs {
		for _, pr := range s.pairs {
			classes.union(pr[0], offB+pr[1])
		}
	}
	res := mesh.New()
	res.EnableTriangleGroups()
	placed := make(map[int]int)
	resolve := func(s *side, offset int) func(int) int {
		return func(v int) int {
			root := classes.find(offset + v)
			if nv, ok := placed[root]; ok {
				return nv
			}
			nv := res.AppendVertex(s.m.Vertex(v))
			placed[root] = nv
			return nv
		}
	}
	failures := appendKept(res, sa, keepA, false, 0, resolve(sa, 0))
	failures += appendKept(res, sb, keepB, bo.Op == Difference, sa.m.MaxGroupID(), resolve(sb, offB))
	res.RemoveIsolatedVertices()

	ok := failures == 0 && res.NonManifoldEdgeCount() == 0
	if bo.A.IsClosed() && bo.B.IsClosed() {
		ok = ok && res.IsClosed()
	} else {
		curve := mesh.NewPointIndex(matchTol)
		for _, s := range segs {
			curve.Insert(s.p, 0)
			curve.Insert(s.q, 0)
		}
		for _, e := range res.BoundaryEdges() {
			_, onA := curve.Find(res.Vertex(e[0]))
			_, onB := curve.Find(res.Vertex(e[1]))
			if onA && onB {
				ok = false
				break
			}
		}
	}
	if bo.ResultInInputSpace {
		res.Transform(bo.TransformA.Inverse())
	}
	bo.Result = res
	return ok, nil
}

// pairTolerance scales the snapping tolerance into the distance along a
// segment within which an A and a B chain vertex are the same point.
const pairTolerance = 6

// side is one working mesh plus the original triangle every current
// triangle was cut from.
type side struct {
	m        *mesh.Mesh
	origin   []int
	children map[int][]int
	normals  map[int]v3.Vec
	tol      float64
}

func newSide(src *mesh.Mesh, xf sdf.M44) *side {
	m, _ := mesh.CompactCopy(src, mesh.CompactOptions{Groups: true})
	m.EnableTriangleGroups()
	m.Transform(xf)
	s := &side{
		m:        m,
		origin:   make([]int, m.MaxTriangleID()),
		children: make(map[int][]int, m.TriangleCount()),
		normals:  make(map[int]v3.Vec, m.TriangleCount()),
	}
	for _, tid := range m.TriangleIDs() {
		s.origin[tid] = tid
		s.children[tid] = []int{tid}
		s.normals[tid] = m.TriangleNormal(tid)
	}
	return s
}

func (s *side) track(old, added int) {
	for len(s.origin) <= added {
		s.origin = append(s.origin, mesh.InvalidID)
	}
	o := s.origin[old]
	s.origin[added] = o
	s.children[o] = append(s.children[o], added)
}

func (s *side) splitEdge(a, b int, t float64) (int, error) {
	res, err := s.m.SplitEdgeInfo(a, b, t)
	if err != nil {
		return mesh.InvalidID, err
	}
	for _, p := range res.Pairs {
		s.track(p[0], p[1])
	}
	return res.Vertex, nil
}

// insertPoint returns a vertex at p inside original triangle orig,
// reusing a vertex within tolerance, splitting an edge p lies on, or
// poking the piece that contains p.
func (s *side) insertPoint(p v3.Vec, orig int) (int, error) {
	best := mesh.InvalidID
	bestScore := math.Inf(-1)
	var bestBary [3]float64
	for _, tid := range s.children[orig] {
		a, b, c := s.m.TriangleVertices(tid)
		bc := geom.Barycentric(p, a, b, c)
		score := math.Min(bc[0], math.Min(bc[1], bc[2]))
		if score > bestScore {
			best, bestScore, bestBary = tid, score, bc
		}
	}
	if best == mesh.InvalidID {
		return mesh.InvalidID, errWalk
	}
	tri := s.m.Triangle(best)
	for _, v := range tri {
		if s.m.Vertex(v).Sub(p).Length() <= s.tol {
			return v, nil
		}
	}
	for i := 0; i < 3; i++ {
		u, w := tri[i], tri[(i+1)%3]
		q, t := geom.ClosestPointOnSegment(p, s.m.Vertex(u), s.m.Vertex(w))
		if q.Sub(p).Length() <= s.tol && t > 0 && t < 1 {
			return s.splitEdge(u, w, t)
		}
	}
	sum := 0.0
	for i := range bestBary {
		bestBary[i] = math.Max(bestBary[i], 0)
		sum += bestBary[i]
	}
	if sum == 0 {
		return mesh.InvalidID, errWalk
	}
	for i := range bestBary {
		bestBary[i] /= sum
	}
	v, added, err := s.m.PokeTriangleInfo(best, bestBary)
	if err != nil {
		return mesh.InvalidID, err
	}
	s.track(best, added[0])
	s.track(best, added[1])
	return v, nil
}

// embed makes segment (p, q) of original triangle orig a chain of mesh
// edges and records its endpoint vertices.
func (s *side) embed(p, q v3.Vec, orig int, ends *[2]int) error {
	vp, err := s.insertPoint(p, orig)
	if err != nil {
		return err
	}
	vq, err := s.insertPoint(q, orig)
	if err != nil {
		return err
	}
	*ends = [2]int{vp, vq}
	if vp == vq {
		return nil
	}
	_, err = s.walk(vp, vq, orig)
	return err
}

// walk follows the straight line from vp to vq through the pieces of
// orig, passing through vertices on the line and splitting edges that
// cross it. It returns the chain of vertices from vp to vq.
func (s *side) walk(vp, vq, orig int) ([]int, error) {
	n := s.normals[orig]
	target := s.m.Vertex(vq)
	chain := []int{vp}
	cur := vp
	limit := 4*s.m.VertexCount() + 16
	for steps := 0; cur != vq; steps++ {
		if steps > limit {
			return chain, errWalk
		}
		if s.m.HasEdge(cur, vq) {
			chain = append(chain, vq)
			break
		}
		pc := s.m.Vertex(cur)
		span := target.Sub(pc)
		length := span.Length()
		if length <= s.tol {
			return chain, errWalk
		}
		dir := span.DivScalar(length)
		ahead := func(p v3.Vec) bool {
			along := p.Sub(pc).Dot(dir)
			return along > s.tol && along <= length+s.tol
		}
		next := mesh.InvalidID
		for _, tid := range s.m.VertexTriangles(cur) {
			if s.origin[tid] != orig {
				continue
			}
			tri := s.m.Triangle(tid)
			i := tri.Index(cur)
			u, w := tri[(i+1)%3], tri[(i+2)%3]
			pu, pw := s.m.Vertex(u), s.m.Vertex(w)
			du := n.Dot(dir.Cross(pu.Sub(pc)))
			dw := n.Dot(dir.Cross(pw.Sub(pc)))
			if math.Abs(du) <= s.tol && ahead(pu) {
				next = u
				break
			}
			if math.Abs(dw) <= s.tol && ahead(pw) {
				next = w
				break
			}
			if (du > s.tol && dw < -s.tol) || (du < -s.tol && dw > s.tol) {
				t := du / (du - dw)
				if geom.Lerp(pu, pw, t).Sub(pc).Dot(dir) <= s.tol {
					continue
				}
				x, err := s.splitEdge(u, w, t)
				if err != nil {
					return chain, err
				}
				next = x
				break
			}
		}
		if next == mesh.InvalidID {
			return chain, errWalk
		}
		chain = append(chain, next)
		cur = next
	}
	return chain, nil
}

// reconcile walks the chain of every segment in both meshes and pairs
// their vertices, splitting a chain edge wherever one mesh lacks a point
// the other has. Passes repeat until no chain changes, so the stored
// chains are current. It returns the number of segments left unpaired.
func reconcile(sa, sb *side, segs []*segment, pairTol float64) int {
	unmatched := 0
	for pass := 0; pass < 4; pass++ {
		changed := false
		unmatched = 0
		for _, s := range segs {
			s.ca, s.cb, s.pairs = nil, nil, nil
			if s.va[0] == mesh.InvalidID || s.vb[0] == mesh.InvalidID {
				unmatched++
				continue
			}
			degA, degB := s.va[0] == s.va[1], s.vb[0] == s.vb[1]
			if degA || degB {
				if degA && degB {
					s.pairs = [][2]int{{s.va[0], s.vb[0]}}
				} else {
					unmatched++
				}
				continue
			}
			dir := geom.Normalize(s.q.Sub(s.p))
			for iter := 0; ; iter++ {
				ca, errA := sa.walk(s.va[0], s.va[1], s.ta)
				cb, errB := sb.walk(s.vb[0], s.vb[1], s.tb)
				if errA != nil || errB != nil || iter > 64 {
					unmatched++
					break
				}
				pairs, split, err := pairChains(sa, ca, sb, cb, s.p, dir, pairTol)
				if err != nil {
					unmatched++
					break
				}
				if !split {
					s.ca, s.cb, s.pairs = ca, cb, pairs
					break
				}
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return unmatched
}

// chainPoint is an interior chain vertex placed by its distance along the
// segment.
type chainPoint struct {
	t     float64
	fromA bool
	v     int
}

// pairChains pairs the vertices of the A and B chains of one segment in
// order along it. A vertex without a partner within pairTol makes the
// other chain split at its position, and split is reported so the caller
// walks again.
func pairChains(sa *side, ca []int, sb *side, cb []int, p, dir v3.Vec, pairTol float64) ([][2]int, bool, error) {
	var pts []chainPoint
	for _, v := range ca[1 : len(ca)-1] {
		pts = append(pts, chainPoint{t: sa.along(v, p, dir), fromA: true, v: v})
	}
	for _, v := range cb[1 : len(cb)-1] {
		pts = append(pts, chainPoint{t: sb.along(v, p, dir), v: v})
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].t < pts[j].t })

	// only neighbors in order may pair, closest first, so pairs never cross
	var cands []int
	for k := 0; k+1 < len(pts); k++ {
		if pts[k].fromA != pts[k+1].fromA && pts[k+1].t-pts[k].t <= pairTol {
			cands = append(cands, k)
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return pts[cands[i]+1].t-pts[cands[i]].t < pts[cands[j]+1].t-pts[cands[j]].t
	})
	pairs := [][2]int{{ca[0], cb[0]}}
	paired := make([]bool, len(pts))
	for _, k := range cands {
		if paired[k] || paired[k+1] {
			continue
		}
		paired[k], paired[k+1] = true, true
		a, b := pts[k], pts[k+1]
		if !a.fromA {
			a, b = b, a
		}
		pairs = append(pairs, [2]int{a.v, b.v})
	}
	for k, pt := range pts {
		if paired[k] {
			continue
		}
		if pt.fromA {
			return nil, true, sb.splitChain(cb, pt.t, p, dir, pairTol)
		}
		return nil, true, sa.splitChain(ca, pt.t, p, dir, pairTol)
	}
	return append(pairs, [2]int{ca[len(ca)-1], cb[len(cb)-1]}), false, nil
}

func (s *side) along(v int, p, dir v3.Vec) float64 {
	return s.m.Vertex(v).Sub(p).Dot(dir)
}

// splitChain inserts a vertex on chain at distance t along the segment,
// kept clear of the edge ends so the chain stays walkable.
func (s *side) splitChain(chain []int, t float64, p, dir v3.Vec, pairTol float64) error {
	for i := 0; i+1 < len(chain); i++ {
		t0, t1 := s.along(chain[i], p, dir), s.along(chain[i+1], p, dir)
		if t > t1 && i+2 < len(chain) {
			continue
		}
		span := t1 - t0
		if span <= 0 {
			return errWalk
		}
		margin := math.Min(pairTol/3, span/2)
		x := math.Min(math.Max(t, t0+margin), t1-margin)
		_, err := s.splitEdge(chain[i], chain[i+1], (x-t0)/span)
		return err
	}
	return errWalk
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func markCurve(curve map[[2]int]bool, chain []int) {
	for i := 0; i+1 < len(chain); i++ {
		curve[edgeKey(chain[i], chain[i+1])] = true
	}
}

// classify decides for every triangle of s whether it survives op.
// Triangles well clear of the other surface are decided by the winding
// number at their centroid. The rest take the decision of a neighbor on
// the same side of the intersection curves, and regions with no such
// neighbor lie on the other surface: those are decided by normal
// direction, and only the copy from A is ever kept.
func classify(ctx context.Context, s, other *side, op Op, isA bool, curve map[[2]int]bool, tol, matchTol float64) (map[int]bool, error) {
	tree := spatial.BuildAABBTree(other.m)
	wind := spatial.NewFastWinding(tree)
	wind.Build()
	keep := make(map[int]bool, s.m.TriangleCount())
	decided := make(map[int]bool, s.m.TriangleCount())
	near := make(map[int]int)
	dist := make(map[int]float64)
	var queue []int
	for i, tid := range s.m.TriangleIDs() {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		c := s.m.TriangleCentroid(tid)
		nt, d2, err := tree.FindNearestTriangle(c)
		if err != nil {
			return nil, err
		}
		if nt != mesh.InvalidID && math.Sqrt(d2) <= matchTol {
			near[tid], dist[tid] = nt, math.Sqrt(d2)
			continue
		}
		inside, err := wind.IsInside(c, spatial.DefaultInsideThreshold)
		if err != nil {
			return nil, err
		}
		keep[tid] = keepPiece(op, inside, isA)
		decided[tid] = true
		queue = append(queue, tid)
	}

	flood := func(queue []int, visit func(from, to int)) {
		for len(queue) > 0 {
			tid := queue[0]
			queue = queue[1:]
			tri := s.m.Triangle(tid)
			for i := 0; i < 3; i++ {
				a, b := tri[i], tri[(i+1)%3]
				if curve[edgeKey(a, b)] {
					continue
				}
				for _, nb := range s.m.EdgeTriangles(a, b) {
					if nb == tid || decided[nb] {
						continue
					}
					decided[nb] = true
					visit(tid, nb)
					queue = append(queue, nb)
				}
			}
		}
	}
	flood(queue, func(from, to int) { keep[to] = keep[from] })

	// regions cut off from every decided triangle
	for _, tid := range s.m.TriangleIDs() {
		if decided[tid] {
			continue
		}
		decided[tid] = true
		region := []int{tid}
		flood([]int{tid}, func(_, to int) { region = append(region, to) })
		far := tid
		for _, r := range region {
			if dist[r] > dist[far] {
				far = r
			}
		}
		if dist[far] > tol {
			inside, err := wind.IsInside(s.m.TriangleCentroid(far), spatial.DefaultInsideThreshold)
			if err != nil {
				return nil, err
			}
			for _, r := range region {
				keep[r] = keepPiece(op, inside, isA)
			}
			continue
		}
		for _, r := range region {
			dot := s.m.TriangleNormal(r).Dot(other.m.TriangleNormal(near[r]))
			if math.Abs(dot) > 0.5 {
				keep[r] = isA && keepCoplanar(op, dot > 0)
				continue
			}
			inside, err := wind.IsInside(s.m.TriangleCentroid(r), spatial.DefaultInsideThreshold)
			if err != nil {
				return nil, err
			}
			keep[r] = keepPiece(op, inside, isA)
		}
	}
	return keep, nil
}

func keepCoplanar(op Op, sameDir bool) bool {
	if op == Difference {
		return !sameDir
	}
	return sameDir
}

func keepPiece(op Op, inside, isA bool) bool {
	switch op {
	case Union:
		return !inside
	case Intersect:
		return inside
	default:
		if isA {
			return !inside
		}
		return inside
	}
}

// appendKept copies the kept triangles of s into dst, placing each vertex
// through vertex. It returns the number of triangles that could not be
// added.
func appendKept(dst *mesh.Mesh, s *side, keep map[int]bool, flip bool, groupOffset int, vertex func(int) int) int {
	failed := 0
	for _, tid := range s.m.TriangleIDs() {
		if !keep[tid] {
			continue
		}
		t := s.m.Triangle(tid)
		if flip {
			t[1], t[2] = t[2], t[1]
		}
		if _, err := dst.AppendTriangleGroup(vertex(t[0]), vertex(t[1]), vertex(t[2]), s.m.TriangleGroup(tid)+groupOffset); err != nil {
			failed++
		}
	}
	return failed
}

// vertexClasses is a union-find over the vertices of both sides.
type vertexClasses []int

func newVertexClasses(n int) vertexClasses {
	c := make(vertexClasses, n)
	for i := range c {
		c[i] = i
	}
	return c
}

func (c vertexClasses) find(x int) int {
	for c[x] != x {
		c[x] = c[c[x]]
		x = c[x]
	}
	return x
}

func (c vertexClasses) union(x, y int) {
	rx, ry := c.find(x), c.find(y)
	if rx != ry {
		c[ry] = rx
	}
}
