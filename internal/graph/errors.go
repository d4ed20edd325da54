package graph

import "errors"

var (
	// ErrDuplicateNode is returned when adding a node whose name is taken.
	ErrDuplicateNode = errors.New("node with this name already exists")

	// ErrNodeNotFound is returned when referencing a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoStartNode is returned when an operation requires a start node
	// and the graph has none.
	ErrNoStartNode = errors.New("graph has no start node")

	// ErrCycle is returned by TopologicalOrder when the graph contains a
	// cycle and no linear order exists.
	ErrCycle = errors.New("graph contains a cycle")

	// ErrNoPath is returned by Path when no path connects two nodes.
	ErrNoPath = errors.New("no path between nodes")
)
