package graph

import (
	"context"
	"time"
)

// Kind classifies a node's role in the flow graph.
type Kind string

const (
	KindStart       Kind = "start"
	KindStep        Kind = "step"
	KindRouter      Kind = "router"
	KindParallel    Kind = "parallel"
	KindJoin        Kind = "join"
	KindConditional Kind = "conditional"
	KindEnd         Kind = "end"
)

// Handler is the opaque unit of work attached to a node. It receives the
// upstream output (or the flow's initial input for Start nodes) and returns
// its own output. Router handlers return the name of the next node.
type Handler func(ctx context.Context, input any) (any, error)

// BackoffStrategy selects how retry delays grow between attempts.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy configures the single retry mechanism applied uniformly by
// the engine. The default (zero value) is linear backoff with the engine's
// base delay: attempt n waits base × (n+1).
type RetryPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Strategy  BackoffStrategy
}

// Node is a named unit of work in the graph. A node is created once when the
// graph is built and is immutable afterwards, except for its adjacency
// lists, which are populated as edges are added.
type Node struct {
	Name        string
	Kind        Kind
	Handler     Handler
	Description string
	Timeout     time.Duration
	Retries     int
	Retry       RetryPolicy

	// Members and Join are populated for Parallel nodes only: Members is
	// the ordered fan-out group, Join the node that gathers their outputs.
	Members []string
	Join    string

	// Routes lists the node names a Router is allowed to return. Empty
	// means any node in the graph is a legal target.
	Routes []string

	// Next and Prev hold adjacent node names in edge insertion order.
	Next []string
	Prev []string
}

// IsTerminal reports whether the node ends an execution path. A node with
// zero outgoing edges is implicitly an end node regardless of declared kind.
func (n *Node) IsTerminal() bool {
	return n.Kind == KindEnd || len(n.Next) == 0
}
