// Package graph implements the directed-graph model a flow executes over:
// nodes, guarded edges, construction helpers for parallel and conditional
// groups, validation and traversal algorithms.
//
// The graph is built once from registered step metadata and is read-only for
// the remainder of a flow's lifetime; it may safely be shared across
// concurrent runs of the same flow definition.
package graph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Graph owns all nodes and edges for one workflow definition.
type Graph struct {
	id    string
	nodes map[string]*Node
	order []string
	edges []*Edge
}

// New creates an empty graph. The graph ID is the flow name with a random
// suffix, usable as a stable identifier in events and checkpoints.
func New(name string) *Graph {
	if name == "" {
		name = "flow"
	}
	name = strings.ReplaceAll(name, " ", "-")
	return &Graph{
		id:    fmt.Sprintf("%s-%s", name, uuid.New().String()),
		nodes: make(map[string]*Node),
	}
}

// ID returns the graph identifier.
func (g *Graph) ID() string {
	return g.id
}

// AddNode adds a node to the graph. Node names are unique.
func (g *Graph) AddNode(n *Node) error {
	if n.Name == "" {
		return fmt.Errorf("node has no name: %w", ErrNodeNotFound)
	}
	if _, exists := g.nodes[n.Name]; exists {
		return fmt.Errorf("node %q: %w", n.Name, ErrDuplicateNode)
	}
	g.nodes[n.Name] = n
	g.order = append(g.order, n.Name)
	return nil
}

// AddEdge wires source -> target with an optional guard and display label.
// Edges referencing undeclared nodes are accepted here and reported by
// Validate as dangling; this keeps construction non-throwing so a builder
// can wire steps in any order.
func (g *Graph) AddEdge(source, target string, cond Condition, label string) {
	g.edges = append(g.edges, &Edge{
		From:      source,
		To:        target,
		Condition: cond,
		Label:     label,
	})

	from, okFrom := g.nodes[source]
	to, okTo := g.nodes[target]
	if okFrom && okTo {
		from.Next = append(from.Next, target)
		to.Prev = append(to.Prev, source)
	}
}

// AddParallel synthesizes a parallel gate after source that fans out to
// members and joins at joinTarget. When joinTarget names no existing node, a
// pass-through join node is created. It returns the gate node.
func (g *Graph) AddParallel(source string, members []string, joinTarget string) (*Node, error) {
	if _, ok := g.nodes[source]; !ok {
		return nil, fmt.Errorf("parallel source %q: %w", source, ErrNodeNotFound)
	}
	for _, m := range members {
		if _, ok := g.nodes[m]; !ok {
			return nil, fmt.Errorf("parallel member %q: %w", m, ErrNodeNotFound)
		}
	}

	if joinTarget == "" {
		joinTarget = source + "_join"
	}
	if _, ok := g.nodes[joinTarget]; !ok {
		join := &Node{Name: joinTarget, Kind: KindJoin}
		if err := g.AddNode(join); err != nil {
			return nil, err
		}
	}

	gate := &Node{
		Name:    source + "_parallel",
		Kind:    KindParallel,
		Members: append([]string(nil), members...),
		Join:    joinTarget,
	}
	if err := g.AddNode(gate); err != nil {
		return nil, err
	}

	g.AddEdge(source, gate.Name, nil, "")
	for _, m := range members {
		g.AddEdge(gate.Name, m, nil, "fan-out")
		g.AddEdge(m, joinTarget, nil, "join")
	}
	return gate, nil
}

// ConditionalBranch pairs a guard with its target node.
type ConditionalBranch struct {
	When   Condition
	Target string
	Label  string
}

// AddConditional synthesizes a conditional node after source whose outgoing
// edges are guarded by each branch's predicate, evaluated in declaration
// order. defaultTarget, when non-empty, is taken when no guard matches.
// It returns the conditional node.
func (g *Graph) AddConditional(source string, branches []ConditionalBranch, defaultTarget string) (*Node, error) {
	if _, ok := g.nodes[source]; !ok {
		return nil, fmt.Errorf("conditional source %q: %w", source, ErrNodeNotFound)
	}
	for _, br := range branches {
		if _, ok := g.nodes[br.Target]; !ok {
			return nil, fmt.Errorf("conditional target %q: %w", br.Target, ErrNodeNotFound)
		}
	}
	if defaultTarget != "" {
		if _, ok := g.nodes[defaultTarget]; !ok {
			return nil, fmt.Errorf("conditional default %q: %w", defaultTarget, ErrNodeNotFound)
		}
	}

	cond := &Node{Name: source + "_cond", Kind: KindConditional}
	if err := g.AddNode(cond); err != nil {
		return nil, err
	}

	g.AddEdge(source, cond.Name, nil, "")
	for _, br := range branches {
		label := br.Label
		if label == "" {
			label = "when"
		}
		g.AddEdge(cond.Name, br.Target, br.When, label)
	}
	if defaultTarget != "" {
		g.AddEdge(cond.Name, defaultTarget, nil, "default")
	}
	return cond, nil
}

// Node returns a node by name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// Start returns the unique start node, or an error when the graph has none.
// With multiple declared start nodes the first one wins; Validate reports
// the configuration error.
func (g *Graph) Start() (*Node, error) {
	for _, name := range g.order {
		if g.nodes[name].Kind == KindStart {
			return g.nodes[name], nil
		}
	}
	return nil, ErrNoStartNode
}

// OutgoingEdges returns the edges leaving a node, in insertion order.
func (g *Graph) OutgoingEdges(name string) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.From == name {
			out = append(out, e)
		}
	}
	return out
}
