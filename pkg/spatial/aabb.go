// Package spatial provides acceleration structures over a mesh: a bounding
// volume hierarchy for nearest-point and ray queries, and a fast winding
// number evaluator built on top of it. Both record the mesh change stamp
// when built and refuse queries once the mesh has moved on.
package spatial

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

// ErrStaleIndex is returned when a structure is queried before Build or
// after its mesh changed.
var ErrStaleIndex = errors.New("spatial: stale index")

// DefaultLeafSize is the largest triangle bucket stored in a leaf.
const DefaultLeafSize = 8

type aabbNode struct {
	box          sdf.Box3
	left, right  int // child node indices, -1 for leaves
	start, count int // range into AABBTree.tris for leaves
}

func (n *aabbNode) leaf() bool { return n.left < 0 }

// AABBTree is a bounding volume hierarchy over the live triangles of a
// mesh. It does not own the mesh. Queries are safe for concurrent use
// once Build has returned.
type AABBTree struct {
	// LeafSize bounds the triangle count of leaves; zero selects
	// DefaultLeafSize.
	LeafSize int

	mesh  *mesh.Mesh
	nodes []aabbNode
	tris  []int
	root  int
	stamp uint64
	built bool
}

// NewAABBTree returns an unbuilt tree over m.
func NewAABBTree(m *mesh.Mesh) *AABBTree {
	return &AABBTree{mesh: m, root: -1}
}

// BuildAABBTree returns a tree over m that is ready for queries.
func BuildAABBTree(m *mesh.Mesh) *AABBTree {
	t := NewAABBTree(m)
	t.Build()
	return t
}

// Mesh returns the referenced mesh.
func (t *AABBTree) Mesh() *mesh.Mesh { return t.mesh }

// IsValid reports whether the tree is built and the mesh is unchanged.
func (t *AABBTree) IsValid() bool {
	return t.built && t.stamp == t.mesh.ChangeStamp()
}

func (t *AABBTree) check() error {
	if !t.built {
		return fmt.Errorf("spatial: aabb tree not built: %w", ErrStaleIndex)
	}
	if t.stamp != t.mesh.ChangeStamp() {
		return fmt.Errorf("spatial: aabb tree built at stamp %d, mesh at %d: %w", t.stamp, t.mesh.ChangeStamp(), ErrStaleIndex)
	}
	return nil
}

// Build partitions the live triangles into a binary hierarchy, splitting
// each node at the median centroid along its longest axis.
func (t *AABBTree) Build() {
	leafSize := t.LeafSize
	if leafSize <= 0 {
		leafSize = DefaultLeafSize
	}
	t.tris = t.mesh.TriangleIDs()
	t.nodes = t.nodes[:0]
	centroids := make(map[int]v3.Vec, len(t.tris))
	for _, tid := range t.tris {
		centroids[tid] = t.mesh.TriangleCentroid(tid)
	}
	t.root = -1
	if len(t.tris) > 0 {
		t.root = t.split(0, len(t.tris), leafSize, centroids)
	}
	t.stamp = t.mesh.ChangeStamp()
	t.built = true
}

func (t *AABBTree) split(start, end, leafSize int, centroids map[int]v3.Vec) int {
	box := geom.EmptyBox()
	cbox := geom.EmptyBox()
	for _, tid := range t.tris[start:end] {
		a, b, c := t.mesh.TriangleVertices(tid)
		box = geom.Union(box, geom.TriangleBox(a, b, c))
		cbox = geom.Include(cbox, centroids[tid])
	}
	idx := len(t.nodes)
	t.nodes = append(t.nodes, aabbNode{box: box, left: -1, right: -1, start: start, count: end - start})
	if end-start <= leafSize {
		return idx
	}
	axis := geom.DominantAxis(cbox.Size())
	seg := t.tris[start:end]
	sort.Slice(seg, func(i, j int) bool {
		ci := geom.Component(centroids[seg[i]], axis)
		cj := geom.Component(centroids[seg[j]], axis)
		if ci != cj {
			return ci < cj
		}
		return seg[i] < seg[j]
	})
	mid := start + (end-start)/2
	left := t.split(start, mid, leafSize, centroids)
	right := t.split(mid, end, leafSize, centroids)
	t.nodes[idx].left = left
	t.nodes[idx].right = right
	t.nodes[idx].count = 0
	return idx
}

// Bounds returns the box of the root node.
func (t *AABBTree) Bounds() sdf.Box3 {
	if t.root < 0 {
		return geom.EmptyBox()
	}
	return t.nodes[t.root].box
}

// FindNearestTriangle returns the triangle nearest to p and its squared
// distance. Ties keep the first triangle met in traversal order. An empty
// mesh yields mesh.InvalidID.
func (t *AABBTree) FindNearestTriangle(p v3.Vec) (int, float64, error) {
	if err := t.check(); err != nil {
		return mesh.InvalidID, 0, err
	}
	best := mesh.InvalidID
	bestDist := math.Inf(1)
	if t.root < 0 {
		return best, bestDist, nil
	}
	stack := []int{t.root}
	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[ni]
		if geom.DistanceSqr(n.box, p) >= bestDist {
			continue
		}
		if n.leaf() {
			for _, tid := range t.tris[n.start : n.start+n.count] {
				a, b, c := t.mesh.TriangleVertices(tid)
				d := geom.ClosestPointOnTriangle(p, a, b, c).Sub(p).Length2()
				if d < bestDist {
					best, bestDist = tid, d
				}
			}
			continue
		}
		dl := geom.DistanceSqr(t.nodes[n.left].box, p)
		dr := geom.DistanceSqr(t.nodes[n.right].box, p)
		// push the farther child first so the nearer one is visited next
		if dl <= dr {
			stack = append(stack, n.right, n.left)
		} else {
			stack = append(stack, n.left, n.right)
		}
	}
	return best, bestDist, nil
}

// FindNearestPoint returns the closest point on the mesh surface to p.
func (t *AABBTree) FindNearestPoint(p v3.Vec) (v3.Vec, error) {
	tid, _, err := t.FindNearestTriangle(p)
	if err != nil {
		return v3.Vec{}, err
	}
	if tid == mesh.InvalidID {
		return v3.Vec{}, fmt.Errorf("spatial: nearest point on empty mesh: %w", mesh.ErrNotFound)
	}
	a, b, c := t.mesh.TriangleVertices(tid)
	return geom.ClosestPointOnTriangle(p, a, b, c), nil
}

// Hit is a ray-triangle intersection.
type Hit struct {
	Triangle int
	Distance float64
	Point    v3.Vec
}

// RayOption configures ray queries.
type RayOption func(*rayQuery)

type rayQuery struct {
	maxDist float64
}

// WithMaxDistance limits hits to ray parameters up to d.
func WithMaxDistance(d float64) RayOption {
	return func(q *rayQuery) { q.maxDist = d }
}

// FindNearestHit returns the first intersection along the ray, if any.
func (t *AABBTree) FindNearestHit(r geom.Ray, opts ...RayOption) (Hit, bool, error) {
	if err := t.check(); err != nil {
		return Hit{}, false, err
	}
	q := rayQuery{maxDist: math.Inf(1)}
	for _, o := range opts {
		o(&q)
	}
	best := Hit{Triangle: mesh.InvalidID, Distance: q.maxDist}
	found := false
	if t.root < 0 {
		return best, false, nil
	}
	stack := []int{t.root}
	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[ni]
		entry, ok := geom.RayBox(r, n.box)
		if !ok || entry > best.Distance {
			continue
		}
		if n.leaf() {
			for _, tid := range t.tris[n.start : n.start+n.count] {
				a, b, c := t.mesh.TriangleVertices(tid)
				d, hit := geom.RayTriangle(r, a, b, c)
				if hit && d <= best.Distance && (!found || d < best.Distance) {
					best = Hit{Triangle: tid, Distance: d}
					found = true
				}
			}
			continue
		}
		stack = append(stack, n.right, n.left)
	}
	if found {
		best.Point = r.At(best.Distance)
	}
	return best, found, nil
}

// FindNearestHitTriangle returns the ID of the first triangle hit by the
// ray, or mesh.InvalidID when nothing is hit.
func (t *AABBTree) FindNearestHitTriangle(r geom.Ray, opts ...RayOption) (int, error) {
	h, ok, err := t.FindNearestHit(r, opts...)
	if err != nil {
		return mesh.InvalidID, err
	}
	if !ok {
		return mesh.InvalidID, nil
	}
	return h.Triangle, nil
}

// FindAllHits returns every intersection along the ray sorted by distance.
func (t *AABBTree) FindAllHits(r geom.Ray, opts ...RayOption) ([]Hit, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	q := rayQuery{maxDist: math.Inf(1)}
	for _, o := range opts {
		o(&q)
	}
	var hits []Hit
	if t.root < 0 {
		return nil, nil
	}
	stack := []int{t.root}
	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[ni]
		entry, ok := geom.RayBox(r, n.box)
		if !ok || entry > q.maxDist {
			continue
		}
		if n.leaf() {
			for _, tid := range t.tris[n.start : n.start+n.count] {
				a, b, c := t.mesh.TriangleVertices(tid)
				if d, hit := geom.RayTriangle(r, a, b, c); hit && d <= q.maxDist {
					hits = append(hits, Hit{Triangle: tid, Distance: d, Point: r.At(d)})
				}
			}
			continue
		}
		stack = append(stack, n.right, n.left)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Triangle < hits[j].Triangle
	})
	return hits, nil
}

// Overlaps calls fn for every pair of triangles, one from each tree, whose
// bounding boxes intersect within tol.
func (t *AABBTree) Overlaps(other *AABBTree, tol float64, fn func(ta, tb int)) error {
	if err := t.check(); err != nil {
		return err
	}
	if err := other.check(); err != nil {
		return err
	}
	if t.root < 0 || other.root < 0 {
		return nil
	}
	type pair struct{ a, b int }
	stack := []pair{{t.root, other.root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		na := &t.nodes[p.a]
		nb := &other.nodes[p.b]
		if !geom.Overlaps(na.box, nb.box, tol) {
			continue
		}
		switch {
		case na.leaf() && nb.leaf():
			for _, ta := range t.tris[na.start : na.start+na.count] {
				a0, a1, a2 := t.mesh.TriangleVertices(ta)
				boxA := geom.TriangleBox(a0, a1, a2)
				for _, tb := range other.tris[nb.start : nb.start+nb.count] {
					b0, b1, b2 := other.mesh.TriangleVertices(tb)
					if geom.Overlaps(boxA, geom.TriangleBox(b0, b1, b2), tol) {
						fn(ta, tb)
					}
				}
			}
		case na.leaf():
			stack = append(stack, pair{p.a, nb.right}, pair{p.a, nb.left})
		case nb.leaf():
			stack = append(stack, pair{na.right, p.b}, pair{na.left, p.b})
		default:
			stack = append(stack,
				pair{na.right, nb.right}, pair{na.right, nb.left},
				pair{na.left, nb.right}, pair{na.left, nb.left})
		}
	}
	return nil
}

// FindAllHitTriangles returns the IDs of every triangle hit by the ray,
// nearest first.
func (t *AABBTree) FindAllHitTriangles(r geom.Ray, opts ...RayOption) ([]int, error) {
	hits, err := t.FindAllHits(r, opts...)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.Triangle
	}
	return ids, nil
}
