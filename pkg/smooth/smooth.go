// Package smooth implements Laplacian mesh smoothing: an implicit
// cotangent-weighted solve that stays stable for large steps, and a
// uniform explicit variant.
package smooth

import (
	"context"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

// Solver defaults.
const (
	DefaultSmoothness    = 100
	DefaultTolerance     = 1e-10
	DefaultMaxIterations = 2000
)

// maxCot clamps cotangent weights of nearly degenerate triangles.
const maxCot = 1e5

// Implicit solves (M - dL) U' = M U per iteration, where L is the
// cotangent Laplacian of the input positions, M the barycentric mass
// matrix of the current positions and d = Smoothness / 10000.
type Implicit struct {
	Mesh       *mesh.Mesh
	Iterations int
	Smoothness float64
	// PreserveBoundary pins open border vertices in place.
	PreserveBoundary bool

	Tolerance     float64
	MaxIterations int

	// SolverIterations sums the CG iterations of the last run.
	SolverIterations int
}

// NewImplicit returns a single-iteration smoother with default
// smoothness.
func NewImplicit(m *mesh.Mesh) *Implicit {
	return &Implicit{
		Mesh:          m,
		Iterations:    1,
		Smoothness:    DefaultSmoothness,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

// indexing maps live vertex IDs to dense rows.
type indexing struct {
	ids []int
	row map[int]int
}

func newIndexing(m *mesh.Mesh) indexing {
	ids := m.VertexIDs()
	row := make(map[int]int, len(ids))
	for i, v := range ids {
		row[v] = i
	}
	return indexing{ids: ids, row: row}
}

// cotangentLaplacian returns L with L_ij = (cot a + cot b) / 2 for each
// edge and L_ii = -sum_j L_ij.
func cotangentLaplacian(m *mesh.Mesh, ix indexing) *sparse {
	b := newBuilder(len(ix.ids))
	for _, tid := range m.TriangleIDs() {
		t := m.Triangle(tid)
		for k := 0; k < 3; k++ {
			i, j, o := t[k], t[(k+1)%3], t[(k+2)%3]
			po := m.Vertex(o)
			w := geom.Cot(m.Vertex(i).Sub(po), m.Vertex(j).Sub(po))
			w = math.Max(-maxCot, math.Min(maxCot, w)) / 2
			ri, rj := ix.row[i], ix.row[j]
			b.add(ri, rj, w)
			b.add(rj, ri, w)
			b.add(ri, ri, -w)
			b.add(rj, rj, -w)
		}
	}
	return b.build()
}

// massMatrix returns the lumped barycentric mass at positions u.
func massMatrix(m *mesh.Mesh, ix indexing, u [3][]float64) *sparse {
	b := newBuilder(len(ix.ids))
	pos := func(v int) v3.Vec {
		r := ix.row[v]
		return v3.Vec{X: u[0][r], Y: u[1][r], Z: u[2][r]}
	}
	for _, tid := range m.TriangleIDs() {
		t := m.Triangle(tid)
		area := geom.TriangleArea(pos(t[0]), pos(t[1]), pos(t[2])) / 3
		for _, v := range t {
			r := ix.row[v]
			b.add(r, r, area)
		}
	}
	for i := range ix.ids {
		// isolated vertices keep a unit row
		if len(b.rows[i]) == 0 {
			b.add(i, i, 1)
		}
	}
	return b.build()
}

// pin returns a with the rows and columns of pinned vertices replaced by
// identity, keeping the system symmetric.
func pin(a *sparse, pinned []bool) *sparse {
	out := &sparse{n: a.n, rows: make([][]entry, a.n)}
	for i, row := range a.rows {
		if pinned[i] {
			out.rows[i] = []entry{{i, 1}}
			continue
		}
		r := make([]entry, 0, len(row))
		for _, e := range row {
			if !pinned[e.col] {
				r = append(r, e)
			}
		}
		out.rows[i] = r
	}
	return out
}

// Smooth runs the configured iterations and writes the new positions.
func (s *Implicit) Smooth(ctx context.Context) error {
	m := s.Mesh
	if m == nil {
		return fmt.Errorf("smooth: no mesh: %w", mesh.ErrNotFound)
	}
	if s.Smoothness < 0 {
		return fmt.Errorf("smooth: negative smoothness %g", s.Smoothness)
	}
	s.SolverIterations = 0
	ix := newIndexing(m)
	n := len(ix.ids)
	if n == 0 || s.Iterations <= 0 {
		return nil
	}
	tol, maxIter := s.Tolerance, s.MaxIterations
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	var u [3][]float64
	for c := range u {
		u[c] = make([]float64, n)
	}
	pinned := make([]bool, n)
	for i, v := range ix.ids {
		p := m.Vertex(v)
		u[0][i], u[1][i], u[2][i] = p.X, p.Y, p.Z
		pinned[i] = s.PreserveBoundary && m.IsBoundaryVertex(v)
	}

	lap := cotangentLaplacian(m, ix)
	d := s.Smoothness / 10000
	rhs := make([]float64, n)
	for it := 0; it < s.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		mass := massMatrix(m, ix, u)
		full := mass.combine(1, lap, -d)
		a := pin(full, pinned)
		for c := range u {
			mass.mulVec(rhs, u[c])
			for i, row := range full.rows {
				if pinned[i] {
					rhs[i] = u[c][i]
					continue
				}
				// move the fixed columns to the right-hand side
				for _, e := range row {
					if pinned[e.col] {
						rhs[i] -= e.val * u[c][e.col]
					}
				}
			}
			k, err := solveCG(a, rhs, u[c], tol, maxIter)
			s.SolverIterations += k
			if err != nil {
				return fmt.Errorf("smooth: iteration %d axis %d: %w", it, c, err)
			}
		}
	}
	for i, v := range ix.ids {
		if err := m.SetVertex(v, v3.Vec{X: u[0][i], Y: u[1][i], Z: u[2][i]}); err != nil {
			return err
		}
	}
	return nil
}

// Explicit moves each vertex a fraction Alpha toward the centroid of its
// neighbors, Iterations times.
type Explicit struct {
	Mesh             *mesh.Mesh
	Iterations       int
	Alpha            float64
	PreserveBoundary bool
}

// Smooth runs the explicit iterations.
func (s *Explicit) Smooth(ctx context.Context) error {
	m := s.Mesh
	if m == nil {
		return fmt.Errorf("smooth: no mesh: %w", mesh.ErrNotFound)
	}
	if s.Alpha < 0 || s.Alpha > 1 {
		return fmt.Errorf("smooth: alpha %g outside [0, 1]", s.Alpha)
	}
	ids := m.VertexIDs()
	next := make([]v3.Vec, len(ids))
	for it := 0; it < s.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, v := range ids {
			p := m.Vertex(v)
			next[i] = p
			if s.PreserveBoundary && m.IsBoundaryVertex(v) {
				continue
			}
			nbrs := m.VertexNeighbors(v)
			if len(nbrs) == 0 {
				continue
			}
			var c v3.Vec
			for _, nb := range nbrs {
				c = c.Add(m.Vertex(nb))
			}
			c = c.DivScalar(float64(len(nbrs)))
			next[i] = geom.Lerp(p, c, s.Alpha)
		}
		for i, v := range ids {
			_ = m.SetVertex(v, next[i])
		}
	}
	return nil
}
