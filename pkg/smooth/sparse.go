package smooth

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ErrNotConverged is returned when conjugate gradient stops before
// reaching its tolerance.
var ErrNotConverged = errors.New("smooth: solver did not converge")

// sparse is a square matrix in compressed row form.
type sparse struct {
	n    int
	rows [][]entry
}

type entry struct {
	col int
	val float64
}

// builder accumulates triplets; duplicates are summed.
type builder struct {
	n    int
	rows []map[int]float64
}

func newBuilder(n int) *builder {
	rows := make([]map[int]float64, n)
	for i := range rows {
		rows[i] = make(map[int]float64)
	}
	return &builder{n: n, rows: rows}
}

func (b *builder) add(i, j int, v float64) {
	b.rows[i][j] += v
}

func (b *builder) build() *sparse {
	s := &sparse{n: b.n, rows: make([][]entry, b.n)}
	for i, row := range b.rows {
		r := make([]entry, 0, len(row))
		for j, v := range row {
			r = append(r, entry{j, v})
		}
		sort.Slice(r, func(a, c int) bool { return r[a].col < r[c].col })
		s.rows[i] = r
	}
	return s
}

// mulVec sets dst = s * x.
func (s *sparse) mulVec(dst, x []float64) {
	for i, row := range s.rows {
		var sum float64
		for _, e := range row {
			sum += e.val * x[e.col]
		}
		dst[i] = sum
	}
}

func (s *sparse) diag() []float64 {
	d := make([]float64, s.n)
	for i, row := range s.rows {
		for _, e := range row {
			if e.col == i {
				d[i] = e.val
			}
		}
	}
	return d
}

// combine returns a*s + b*o for matrices of equal size.
func (s *sparse) combine(a float64, o *sparse, b float64) *sparse {
	bl := newBuilder(s.n)
	for i, row := range s.rows {
		for _, e := range row {
			bl.add(i, e.col, a*e.val)
		}
	}
	for i, row := range o.rows {
		for _, e := range row {
			bl.add(i, e.col, b*e.val)
		}
	}
	return bl.build()
}

// solveCG solves a x = b for symmetric positive definite a with Jacobi
// preconditioned conjugate gradient, starting from the contents of x.
// It returns the iteration count.
func solveCG(a *sparse, b, x []float64, tol float64, maxIter int) (int, error) {
	n := a.n
	r := make([]float64, n)
	z := make([]float64, n)
	p := make([]float64, n)
	ap := make([]float64, n)
	inv := a.diag()
	for i, d := range inv {
		if d != 0 {
			inv[i] = 1 / d
		} else {
			inv[i] = 1
		}
	}

	a.mulVec(ap, x)
	floats.SubTo(r, b, ap)
	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		bnorm = 1
	}
	if floats.Norm(r, 2)/bnorm <= tol {
		return 0, nil
	}
	floats.MulTo(z, inv, r)
	copy(p, z)
	rz := floats.Dot(r, z)
	for it := 1; it <= maxIter; it++ {
		a.mulVec(ap, p)
		pap := floats.Dot(p, ap)
		if pap <= 0 || math.IsNaN(pap) {
			return it, ErrNotConverged
		}
		alpha := rz / pap
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)
		if floats.Norm(r, 2)/bnorm <= tol {
			return it, nil
		}
		floats.MulTo(z, inv, r)
		rzNext := floats.Dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		floats.Scale(beta, p)
		floats.Add(p, z)
	}
	return maxIter, ErrNotConverged
}
