package graph

import "fmt"

// NextNodes returns the direct successors of a node, in edge order.
func (g *Graph) NextNodes(name string) []*Node {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(n.Next))
	for _, next := range n.Next {
		if succ, ok := g.nodes[next]; ok {
			out = append(out, succ)
		}
	}
	return out
}

// PreviousNodes returns the direct predecessors of a node, in edge order.
func (g *Graph) PreviousNodes(name string) []*Node {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(n.Prev))
	for _, prev := range n.Prev {
		if pred, ok := g.nodes[prev]; ok {
			out = append(out, pred)
		}
	}
	return out
}

// Path returns the shortest path from start to end via breadth-first
// search, both endpoints included.
func (g *Graph) Path(start, end string) ([]string, error) {
	if _, ok := g.nodes[start]; !ok {
		return nil, fmt.Errorf("path start %q: %w", start, ErrNodeNotFound)
	}
	if _, ok := g.nodes[end]; !ok {
		return nil, fmt.Errorf("path end %q: %w", end, ErrNodeNotFound)
	}
	if start == end {
		return []string{start}, nil
	}

	parent := map[string]string{start: ""}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.nodes[current].Next {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			if next == end {
				return rebuildPath(parent, start, end), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, fmt.Errorf("%s -> %s: %w", start, end, ErrNoPath)
}

func rebuildPath(parent map[string]string, start, end string) []string {
	var rev []string
	for at := end; at != ""; at = parent[at] {
		rev = append(rev, at)
		if at == start {
			break
		}
	}
	path := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return path
}

// AllPaths enumerates every simple path from start to end via depth-first
// search. The enumeration is exponential in the worst case; it is intended
// for diagnostics on small graphs, not for hot-path execution.
func (g *Graph) AllPaths(start, end string) ([][]string, error) {
	if _, ok := g.nodes[start]; !ok {
		return nil, fmt.Errorf("path start %q: %w", start, ErrNodeNotFound)
	}
	if _, ok := g.nodes[end]; !ok {
		return nil, fmt.Errorf("path end %q: %w", end, ErrNodeNotFound)
	}

	var paths [][]string
	onPath := make(map[string]bool)
	var walk func(current string, path []string)
	walk = func(current string, path []string) {
		path = append(path, current)
		if current == end {
			cp := make([]string, len(path))
			copy(cp, path)
			paths = append(paths, cp)
			return
		}
		onPath[current] = true
		for _, next := range g.nodes[current].Next {
			if !onPath[next] {
				walk(next, path)
			}
		}
		onPath[current] = false
	}
	walk(start, nil)
	return paths, nil
}

// TopologicalOrder returns a node ordering in which every edge u->v has u
// before v, computed with Kahn's algorithm over in-degree counts. It
// returns ErrCycle when the graph contains a cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for _, name := range g.order {
		inDegree[name] = 0
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			continue
		}
		if _, ok := g.nodes[e.To]; !ok {
			continue
		}
		inDegree[e.To]++
	}

	var queue []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)
		for _, next := range g.nodes[current].Next {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, ErrCycle
	}
	return order, nil
}

// HasCycle reports whether the graph contains a directed cycle, using DFS
// with a recursion-stack set.
func (g *Graph) HasCycle() bool {
	visited := make(map[string]bool, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))

	var visit func(name string) bool
	visit = func(name string) bool {
		visited[name] = true
		onStack[name] = true
		for _, next := range g.nodes[name].Next {
			if onStack[next] {
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}
		onStack[name] = false
		return false
	}

	for _, name := range g.order {
		if !visited[name] && visit(name) {
			return true
		}
	}
	return false
}

// reachableFrom returns the set of nodes reachable from the given node by
// forward traversal, the node itself included.
func (g *Graph) reachableFrom(start string) map[string]bool {
	reached := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[current] {
			continue
		}
		reached[current] = true
		n, ok := g.nodes[current]
		if !ok {
			continue
		}
		stack = append(stack, n.Next...)
		// Parallel members execute without a direct edge from the gate
		// when wired through Members; treat them as reachable.
		stack = append(stack, n.Members...)
		if n.Join != "" {
			stack = append(stack, n.Join)
		}
	}
	return reached
}
