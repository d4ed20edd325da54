package graph

import (
	"fmt"
	"strings"
)

// Info is a read-only description of the graph structure for debugging and
// rendering. It has no effect on execution and carries no compatibility
// guarantees.
type Info struct {
	ID    string
	Nodes []NodeInfo
	Edges []EdgeInfo
}

// NodeInfo describes one node.
type NodeInfo struct {
	Name        string
	Kind        Kind
	Description string
	Start       bool
	Terminal    bool
}

// EdgeInfo describes one edge.
type EdgeInfo struct {
	From    string
	To      string
	Label   string
	Guarded bool
}

// Describe returns the graph structure as plain data.
func (g *Graph) Describe() *Info {
	info := &Info{ID: g.id}
	for _, name := range g.order {
		n := g.nodes[name]
		info.Nodes = append(info.Nodes, NodeInfo{
			Name:        n.Name,
			Kind:        n.Kind,
			Description: n.Description,
			Start:       n.Kind == KindStart,
			Terminal:    n.IsTerminal(),
		})
	}
	for _, e := range g.edges {
		info.Edges = append(info.Edges, EdgeInfo{
			From:    e.From,
			To:      e.To,
			Label:   e.Label,
			Guarded: e.Guarded(),
		})
	}
	return info
}

// Render returns an indented textual rendering of the graph.
func (g *Graph) Render() string {
	info := g.Describe()
	var b strings.Builder

	fmt.Fprintf(&b, "graph %s\n", info.ID)
	b.WriteString("nodes:\n")
	for _, n := range info.Nodes {
		marker := "-"
		if n.Start {
			marker = "*"
		}
		fmt.Fprintf(&b, "  %s %s (%s)", marker, n.Name, n.Kind)
		if n.Terminal {
			b.WriteString(" [end]")
		}
		if n.Description != "" {
			fmt.Fprintf(&b, " %s", n.Description)
		}
		b.WriteByte('\n')
	}
	b.WriteString("edges:\n")
	for _, e := range info.Edges {
		arrow := "-->"
		if e.Guarded {
			arrow = "-?->"
		}
		fmt.Fprintf(&b, "  %s %s %s", e.From, arrow, e.To)
		if e.Label != "" {
			fmt.Fprintf(&b, " [%s]", e.Label)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
