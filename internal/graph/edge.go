package graph

import "context"

// Condition is an optional guard predicate on an edge, evaluated against
// the upstream node's output.
type Condition func(ctx context.Context, input any) bool

// Edge is a directed relation between two nodes. Edges are purely additive:
// once created they are never mutated.
type Edge struct {
	From      string
	To        string
	Condition Condition
	Label     string
}

// Guarded reports whether the edge carries a condition.
func (e *Edge) Guarded() bool {
	return e.Condition != nil
}
