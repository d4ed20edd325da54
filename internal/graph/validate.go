package graph

import (
	"fmt"
	"sort"
)

// Validate inspects the graph and returns a list of descriptive findings.
// It never fails hard: callers decide whether findings are fatal before
// running the flow. In particular a cycle is flagged, not rejected, because
// some legitimate designs reopen earlier work and rely on step logic to
// terminate the loop.
func (g *Graph) Validate() []string {
	var findings []string

	findings = append(findings, g.checkStart()...)
	findings = append(findings, g.checkDanglingEdges()...)
	findings = append(findings, g.checkReachability()...)
	findings = append(findings, g.checkDeadEnds()...)
	findings = append(findings, g.checkFanOut()...)

	if g.HasCycle() {
		findings = append(findings, "graph contains a cycle; step logic must terminate it")
	}
	return findings
}

func (g *Graph) checkStart() []string {
	var starts []string
	for _, name := range g.order {
		if g.nodes[name].Kind == KindStart {
			starts = append(starts, name)
		}
	}

	var findings []string
	switch len(starts) {
	case 0:
		findings = append(findings, "missing start node")
	case 1:
	default:
		findings = append(findings, fmt.Sprintf("multiple start nodes declared: %v", starts))
	}
	for _, name := range starts {
		if len(g.nodes[name].Prev) > 0 {
			findings = append(findings, fmt.Sprintf("start node %q has incoming edges", name))
		}
	}
	return findings
}

func (g *Graph) checkDanglingEdges() []string {
	var findings []string
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			findings = append(findings, fmt.Sprintf("edge %s -> %s references undeclared source %q", e.From, e.To, e.From))
		}
		if _, ok := g.nodes[e.To]; !ok {
			findings = append(findings, fmt.Sprintf("edge %s -> %s references undeclared target %q", e.From, e.To, e.To))
		}
	}
	return findings
}

func (g *Graph) checkReachability() []string {
	start, err := g.Start()
	if err != nil {
		return nil // reported by checkStart
	}

	reached := g.reachableFrom(start.Name)
	var unreachable []string
	for _, name := range g.order {
		if !reached[name] {
			unreachable = append(unreachable, name)
		}
	}
	sort.Strings(unreachable)

	findings := make([]string, 0, len(unreachable))
	for _, name := range unreachable {
		findings = append(findings, fmt.Sprintf("node %q is unreachable from start", name))
	}
	return findings
}

// checkDeadEnds flags non-terminal nodes with no way forward. A plain Step
// with zero outgoing edges is an implicit end node and is fine; a Router,
// Parallel or Conditional with no way forward is a construction mistake.
func (g *Graph) checkDeadEnds() []string {
	var findings []string
	for _, name := range g.order {
		n := g.nodes[name]
		switch n.Kind {
		case KindRouter:
			if len(n.Next) == 0 && len(n.Routes) == 0 {
				findings = append(findings, fmt.Sprintf("router %q declares no routes", name))
			}
		case KindParallel:
			if len(n.Members) == 0 {
				findings = append(findings, fmt.Sprintf("parallel node %q has no members", name))
			}
		case KindConditional:
			if len(n.Next) == 0 {
				findings = append(findings, fmt.Sprintf("conditional node %q has no branches", name))
			}
		case KindStart:
			if len(n.Next) == 0 && len(g.nodes) > 1 {
				findings = append(findings, fmt.Sprintf("start node %q has no outgoing edges", name))
			}
		}
	}
	return findings
}

// checkFanOut flags plain steps with more than one outgoing edge. Implicit
// fan-out is not supported: every fan-out must be an explicit parallel
// group so concurrency is visible in the definition.
func (g *Graph) checkFanOut() []string {
	var findings []string
	for _, name := range g.order {
		n := g.nodes[name]
		switch n.Kind {
		case KindStep, KindStart, KindJoin:
			if len(n.Next) > 1 {
				findings = append(findings, fmt.Sprintf(
					"node %q has %d outgoing edges; declare an explicit parallel group", name, len(n.Next)))
			}
		}
	}
	return findings
}
