package spatial

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
)

// DefaultInsideThreshold is the winding number at or above which a point
// counts as inside.
const DefaultInsideThreshold = 0.5

// DefaultBeta is the far-field acceptance ratio: a node is approximated
// when the query is farther than Beta times its radius from its center.
const DefaultBeta = 2.0

// windingMoments is the expansion data kept per tree node.
type windingMoments struct {
	center v3.Vec        // area-weighted centroid
	radius float64       // bound on distance from center to any vertex below
	area   float64       // total area
	order1 v3.Vec        // sum of area-weighted normals
	order2 [3][3]float64 // sum of a (c - center) n^T
}

// FastWinding evaluates the generalized winding number of a mesh using a
// hierarchical dipole expansion over an AABBTree. Far clusters use a
// second-order approximation; near leaves are summed exactly.
type FastWinding struct {
	// Beta overrides DefaultBeta when positive.
	Beta float64

	tree    *AABBTree
	moments []windingMoments
	stamp   uint64
	built   bool
}

// NewFastWinding returns an unbuilt evaluator on top of tree.
func NewFastWinding(tree *AABBTree) *FastWinding {
	return &FastWinding{tree: tree}
}

// Tree returns the underlying AABBTree.
func (w *FastWinding) Tree() *AABBTree { return w.tree }

// IsValid reports whether the evaluator and its tree match the mesh.
func (w *FastWinding) IsValid() bool {
	return w.built && w.tree.IsValid() && w.stamp == w.tree.stamp
}

// Build computes the expansion moments. The tree is rebuilt first if it is
// stale.
func (w *FastWinding) Build() {
	if !w.tree.IsValid() {
		w.tree.Build()
	}
	w.moments = make([]windingMoments, len(w.tree.nodes))
	if w.tree.root >= 0 {
		w.buildNode(w.tree.root)
	}
	w.stamp = w.tree.stamp
	w.built = true
}

func (w *FastWinding) buildNode(ni int) {
	t := w.tree
	n := &t.nodes[ni]
	mo := &w.moments[ni]
	if n.leaf() {
		tris := t.tris[n.start : n.start+n.count]
		for _, tid := range tris {
			a, b, c := t.mesh.TriangleVertices(tid)
			area := geom.TriangleArea(a, b, c)
			mo.area += area
			mo.center = mo.center.Add(geom.Centroid(a, b, c).MulScalar(area))
			mo.order1 = mo.order1.Add(geom.AreaNormal(a, b, c).MulScalar(0.5))
		}
		if mo.area > 0 {
			mo.center = mo.center.DivScalar(mo.area)
		} else {
			mo.center = n.box.Center()
		}
		for _, tid := range tris {
			a, b, c := t.mesh.TriangleVertices(tid)
			addOuter(&mo.order2, geom.Centroid(a, b, c).Sub(mo.center), geom.AreaNormal(a, b, c).MulScalar(0.5))
			for _, p := range [3]v3.Vec{a, b, c} {
				mo.radius = math.Max(mo.radius, p.Sub(mo.center).Length())
			}
		}
		return
	}
	w.buildNode(n.left)
	w.buildNode(n.right)
	l, r := &w.moments[n.left], &w.moments[n.right]
	mo.area = l.area + r.area
	if mo.area > 0 {
		mo.center = l.center.MulScalar(l.area).Add(r.center.MulScalar(r.area)).DivScalar(mo.area)
	} else {
		mo.center = n.box.Center()
	}
	mo.order1 = l.order1.Add(r.order1)
	for _, ch := range []*windingMoments{l, r} {
		// shift the child expansion to the parent center
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				mo.order2[i][j] += ch.order2[i][j]
			}
		}
		addOuter(&mo.order2, ch.center.Sub(mo.center), ch.order1)
		mo.radius = math.Max(mo.radius, ch.center.Sub(mo.center).Length()+ch.radius)
	}
}

func addOuter(m *[3][3]float64, u, v v3.Vec) {
	uu := [3]float64{u.X, u.Y, u.Z}
	vv := [3]float64{v.X, v.Y, v.Z}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] += uu[i] * vv[j]
		}
	}
}

func (w *FastWinding) check() error {
	if err := w.tree.check(); err != nil {
		return err
	}
	if !w.built || w.stamp != w.tree.stamp {
		return fmt.Errorf("spatial: winding moments out of date: %w", ErrStaleIndex)
	}
	return nil
}

// WindingNumber returns the generalized winding number at p: about 1
// inside a closed outward-oriented mesh, about 0 outside, fractional near
// open boundaries.
func (w *FastWinding) WindingNumber(p v3.Vec) (float64, error) {
	if err := w.check(); err != nil {
		return 0, err
	}
	if w.tree.root < 0 {
		return 0, nil
	}
	return w.evaluate(p), nil
}

func (w *FastWinding) evaluate(q v3.Vec) float64 {
	beta := w.Beta
	if beta <= 0 {
		beta = DefaultBeta
	}
	t := w.tree
	sum := 0.0
	stack := []int{t.root}
	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[ni]
		mo := &w.moments[ni]
		r := mo.center.Sub(q)
		d := r.Length()
		if d > beta*mo.radius && d > 0 {
			sum += farField(mo, r, d)
			continue
		}
		if n.leaf() {
			for _, tid := range t.tris[n.start : n.start+n.count] {
				a, b, c := t.mesh.TriangleVertices(tid)
				sum += geom.SolidAngle(q, a, b, c)
			}
			continue
		}
		stack = append(stack, n.left, n.right)
	}
	return sum / (4 * math.Pi)
}

// farField returns the solid angle of a cluster seen from a point at
// offset -r from its center, to second order.
func farField(mo *windingMoments, r v3.Vec, d float64) float64 {
	d3 := d * d * d
	d5 := d3 * d * d
	s := mo.order1.Dot(r) / d3
	m := &mo.order2
	trace := m[0][0] + m[1][1] + m[2][2]
	rr := [3]float64{r.X, r.Y, r.Z}
	quad := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			quad += rr[i] * m[i][j] * rr[j]
		}
	}
	return s + trace/d3 - 3*quad/d5
}

// IsInside reports whether the winding number at p reaches threshold.
func (w *FastWinding) IsInside(p v3.Vec, threshold float64) (bool, error) {
	wn, err := w.WindingNumber(p)
	if err != nil {
		return false, err
	}
	return wn >= threshold, nil
}

// ExactWindingNumber sums the solid angle of every triangle. It is the
// reference the fast evaluator approximates.
func (w *FastWinding) ExactWindingNumber(p v3.Vec) (float64, error) {
	if err := w.tree.check(); err != nil {
		return 0, err
	}
	m := w.tree.mesh
	sum := 0.0
	for _, tid := range w.tree.tris {
		a, b, c := m.TriangleVertices(tid)
		sum += geom.SolidAngle(p, a, b, c)
	}
	return sum / (4 * math.Pi), nil
}
