package lock

// DependencyGraph is a wait-for graph over transaction ids. An edge A->B means
// A is waiting for a page that B holds. It is not safe for concurrent use; the
// Manager guards it with its own mutex.
type DependencyGraph struct {
	edges map[int64]map[int64]struct{}
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{edges: make(map[int64]map[int64]struct{})}
}

func (dg *DependencyGraph) AddEdge(waiter, holder int64) {
	if waiter == holder {
		return
	}
	if dg.edges[waiter] == nil {
		dg.edges[waiter] = make(map[int64]struct{})
	}
	dg.edges[waiter][holder] = struct{}{}
}

// ClearWaits drops the outgoing edges of tid, once it is no longer waiting.
func (dg *DependencyGraph) ClearWaits(tid int64) {
	delete(dg.edges, tid)
}

// RemoveTransaction drops tid from the graph entirely.
func (dg *DependencyGraph) RemoveTransaction(tid int64) {
	delete(dg.edges, tid)
	for waiter, holders := range dg.edges {
		delete(holders, tid)
		if len(holders) == 0 {
			delete(dg.edges, waiter)
		}
	}
}

// HasCycleFrom reports whether a wait-for cycle passes through start.
func (dg *DependencyGraph) HasCycleFrom(start int64) bool {
	visited := make(map[int64]bool)
	stack := []int64{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range dg.edges[cur] {
			if next == start {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// Waiters lists the transactions that currently wait on someone.
func (dg *DependencyGraph) Waiters() []int64 {
	out := make([]int64, 0, len(dg.edges))
	for tid := range dg.edges {
		out = append(out, tid)
	}
	return out
}
