package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/meshwork/pkg/graph"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// Fatal outcomes of Evaluate.
var (
	ErrTimeout    = errors.New("engine: evaluation timed out")
	ErrSuperseded = errors.New("engine: evaluation superseded by a newer request")
)

// evalResult carries one evaluation out of its goroutine.
type evalResult struct {
	graph  *graph.Graph
	errors []EvalError
	err    error
}

// generations numbers evaluations. Only the latest number may deliver a
// result.
type generations struct {
	mu      sync.Mutex
	current uint64
}

func (g *generations) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	return g.current
}

func (g *generations) isCurrent(n uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return n == g.current
}

// await returns the result sent on ch, ErrTimeout once timeout passes, or
// ErrSuperseded when gen stopped being current while it ran. A timed out
// evaluation keeps running in its goroutine and its result is dropped.
func await(ch <-chan evalResult, gen uint64, timeout time.Duration, gens *generations) (*graph.Graph, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !gens.isCurrent(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.graph, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
