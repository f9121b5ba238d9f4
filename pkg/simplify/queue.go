package simplify

import v3 "github.com/deadsy/sdfx/vec/v3"

type collapse struct {
	a, b   int
	va, vb int
	cost   float64
	pos    v3.Vec
}

// collapseQueue is a min-heap of collapses by cost, ties broken by
// vertex IDs so runs are reproducible.
type collapseQueue []*collapse

func (q collapseQueue) Len() int { return len(q) }

func (q collapseQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	if q[i].a != q[j].a {
		return q[i].a < q[j].a
	}
	return q[i].b < q[j].b
}

func (q collapseQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *collapseQueue) Push(x any) { *q = append(*q, x.(*collapse)) }

func (q *collapseQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return c
}
