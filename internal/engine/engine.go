// Package engine drives a flow graph to completion: it walks the graph from
// the start node, invokes each node's handler with the upstream output,
// retries failures per the node's policy, fans out and joins parallel
// groups and emits lifecycle events throughout.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/flowstone-io/flowstone/internal/graph"
	"github.com/flowstone-io/flowstone/pkg/events"
	"github.com/flowstone-io/flowstone/pkg/state"
)

// Engine executes one flow graph. The graph is read-only; the Engine may be
// shared by concurrent runs as long as each run gets its own state.Context.
type Engine struct {
	graph     *graph.Graph
	bus       *events.Bus
	logger    hclog.Logger
	baseDelay time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus sets the event bus lifecycle events are emitted to.
func WithBus(b *events.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithLogger sets the engine logger.
func WithLogger(l hclog.Logger) Option {
	return func(e *Engine) { e.logger = l.Named("engine") }
}

// WithBaseDelay overrides the default retry base delay applied to nodes
// that declare no retry policy of their own.
func WithBaseDelay(d time.Duration) Option {
	return func(e *Engine) { e.baseDelay = d }
}

// New creates an engine over a built graph.
func New(g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:     g,
		logger:    hclog.NewNullLogger(),
		baseDelay: DefaultBaseDelay,
	}
	for _, o := range opts {
		o(e)
	}
	if e.bus == nil {
		e.bus = events.NewBus(events.WithLogger(e.logger))
	}
	return e
}

// Run executes the graph from its start node. The context fctx must be
// fresh and exclusively owned by this run. On failure the returned error is
// an *ExecutionError carrying the failing step's name; partial results stay
// inspectable on fctx.
func (e *Engine) Run(ctx context.Context, fctx *state.Context, input any) (any, error) {
	start, err := e.graph.Start()
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	fctx.Bind(cancel)
	ctx = state.WithContext(ctx, fctx)

	switch fctx.Status() {
	case state.FlowPending:
		if err := fctx.Begin(); err != nil {
			return nil, &ExecutionError{Err: err}
		}
	case state.FlowRunning:
		// Resumed run; the caller already transitioned Paused -> Running.
	default:
		return nil, &ExecutionError{Err: fmt.Errorf("context in status %q is not runnable", fctx.Status())}
	}
	e.emit(events.New(events.FlowStarted, e.graph.ID(), input), fctx)
	e.logger.Debug("flow started", "flow_id", fctx.FlowID(), "graph_id", e.graph.ID())

	output, runErr := e.walk(ctx, start, input, fctx)
	if runErr != nil {
		if fctx.Status() != state.FlowCancelled {
			if ferr := fctx.Fail(runErr); ferr != nil {
				e.logger.Warn("could not record flow failure", "error", ferr)
			}
		}
		ev := events.New(events.FlowFailed, e.graph.ID(), runErr.Error()).
			WithMetadata("flow_id", fctx.FlowID())
		var ee *ExecutionError
		if errors.As(runErr, &ee) {
			ev = ev.WithMetadata("step", ee.Step)
		}
		e.bus.EmitAsync(ev)
		e.logger.Error("flow failed", "flow_id", fctx.FlowID(), "error", runErr)
		return nil, runErr
	}

	if err := fctx.Complete(output); err != nil {
		return nil, &ExecutionError{Err: err}
	}
	e.bus.EmitAsync(events.New(events.FlowCompleted, e.graph.ID(), output).
		WithMetadata("flow_id", fctx.FlowID()))
	e.logger.Debug("flow completed", "flow_id", fctx.FlowID())
	return output, nil
}

// walk drives one execution path until it reaches a node with no
// successors. Downstream execution strictly follows upstream completion.
func (e *Engine) walk(ctx context.Context, node *graph.Node, input any, fctx *state.Context) (any, error) {
	current := node
	for {
		select {
		case <-ctx.Done():
			return nil, stepError(current.Name, ctx.Err())
		default:
		}

		output, err := e.executeNode(ctx, current, input, fctx)
		if err != nil {
			return nil, err
		}

		switch current.Kind {
		case graph.KindRouter:
			next, err := e.resolveRoute(current, output)
			if err != nil {
				return nil, err
			}
			// The chosen branch receives the router's input unchanged;
			// the router's own output is only a name.
			current = next

		case graph.KindParallel:
			outputs, err := e.runParallel(ctx, current, input, fctx)
			if err != nil {
				return nil, err
			}
			if current.Join == "" {
				return outputs, nil
			}
			join, ok := e.graph.Node(current.Join)
			if !ok {
				return nil, stepError(current.Name,
					fmt.Errorf("join target %q: %w", current.Join, graph.ErrNodeNotFound))
			}
			input = outputs
			current = join

		case graph.KindConditional:
			next, err := e.resolveConditional(ctx, current, output, fctx)
			if err != nil {
				return nil, err
			}
			input = output
			current = next

		default:
			successors := e.graph.NextNodes(current.Name)
			switch len(successors) {
			case 0:
				return output, nil
			case 1:
				input = output
				current = successors[0]
			default:
				return nil, stepError(current.Name, fmt.Errorf(
					"%w: node %q has %d successors", ErrImplicitFanOut, current.Name, len(successors)))
			}
		}
	}
}

// executeNode runs one node with retries, timeout enforcement and event
// emission, recording a step result on the flow context throughout.
func (e *Engine) executeNode(ctx context.Context, node *graph.Node, input any, fctx *state.Context) (any, error) {
	result := state.NewStepResult(node.Name)
	result.MarkRunning()
	fctx.RecordResult(result)
	fctx.SetCurrentStep(node.Name)

	e.emit(events.New(events.StepStarted, node.Name, input), fctx)
	e.logger.Debug("step started", "step", node.Name, "flow_id", fctx.FlowID())

	var lastErr error
	for attempt := 0; attempt <= node.Retries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(node.Retry, attempt, e.baseDelay)
			e.emit(events.New(events.StepRetrying, node.Name, lastErr.Error()).
				WithMetadata("attempt", fmt.Sprintf("%d", attempt)), fctx)
			e.logger.Warn("step retrying",
				"step", node.Name, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				result.MarkFailed(lastErr, attempt)
				e.emit(events.New(events.StepFailed, node.Name, lastErr.Error()), fctx)
				return nil, stepError(node.Name, lastErr)
			case <-time.After(delay):
			}
		}

		output, err := e.invoke(ctx, node, input)
		if err == nil {
			result.MarkCompleted(output, attempt)
			fctx.MarkCompletedStep(node.Name)
			e.emit(events.New(events.StepCompleted, node.Name, *result), fctx)
			e.logger.Debug("step completed",
				"step", node.Name, "duration", result.Duration(), "retries", attempt)
			return output, nil
		}
		lastErr = err
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		result.MarkTimedOut(lastErr, node.Retries)
	} else {
		result.MarkFailed(lastErr, node.Retries)
	}
	e.emit(events.New(events.StepFailed, node.Name, lastErr.Error()), fctx)
	e.logger.Error("step failed", "step", node.Name, "error", lastErr)
	return nil, stepError(node.Name, lastErr)
}

// invoke calls the node's handler, racing it against the node's deadline
// when one is declared. Nodes without a handler pass their input through.
func (e *Engine) invoke(ctx context.Context, node *graph.Node, input any) (any, error) {
	if node.Handler == nil {
		return input, nil
	}
	if node.Timeout <= 0 {
		return node.Handler(ctx, input)
	}

	tctx, cancel := context.WithTimeout(ctx, node.Timeout)
	defer cancel()

	type outcome struct {
		output any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := node.Handler(tctx, input)
		done <- outcome{output: out, err: err}
	}()

	select {
	case o := <-done:
		return o.output, o.err
	case <-tctx.Done():
		return nil, tctx.Err()
	}
}

// runParallel executes the gate's members concurrently, each receiving the
// same upstream input, and returns their outputs ordered as declared. Any
// member failure fails the whole group; sibling results are discarded but
// in-flight siblings are not forcibly cancelled.
func (e *Engine) runParallel(ctx context.Context, gate *graph.Node, input any, fctx *state.Context) ([]any, error) {
	members := make([]*graph.Node, len(gate.Members))
	for i, name := range gate.Members {
		m, ok := e.graph.Node(name)
		if !ok {
			return nil, stepError(gate.Name,
				fmt.Errorf("parallel member %q: %w", name, graph.ErrNodeNotFound))
		}
		members[i] = m
	}

	outputs := make([]any, len(members))
	errs := make([]error, len(members))

	var wg sync.WaitGroup
	for i, m := range members {
		wg.Add(1)
		go func(i int, m *graph.Node) {
			defer wg.Done()
			outputs[i], errs[i] = e.executeNode(ctx, m, input, fctx)
		}(i, m)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return outputs, nil
}

// resolveRoute maps a router's returned value to the next node.
func (e *Engine) resolveRoute(router *graph.Node, output any) (*graph.Node, error) {
	name, ok := output.(string)
	if !ok {
		return nil, stepError(router.Name, fmt.Errorf(
			"%w: router %q returned %T, want a node name", ErrInvalidNextStep, router.Name, output))
	}

	if len(router.Routes) > 0 {
		allowed := false
		for _, r := range router.Routes {
			if r == name {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, stepError(router.Name, fmt.Errorf(
				"%w: router %q returned %q, not a declared route", ErrInvalidNextStep, router.Name, name))
		}
	}

	next, ok := e.graph.Node(name)
	if !ok {
		return nil, stepError(router.Name, fmt.Errorf(
			"%w: router %q returned %q, not a node in the graph", ErrInvalidNextStep, router.Name, name))
	}
	return next, nil
}

// resolveConditional evaluates the conditional node's guarded edges in
// declaration order; the first matching guard wins, then the unguarded
// default. Targets that were not chosen are recorded as skipped.
func (e *Engine) resolveConditional(ctx context.Context, cond *graph.Node, output any, fctx *state.Context) (*graph.Node, error) {
	edges := e.graph.OutgoingEdges(cond.Name)

	var chosen *graph.Edge
	var fallback *graph.Edge
	for _, edge := range edges {
		if !edge.Guarded() {
			if fallback == nil {
				fallback = edge
			}
			continue
		}
		if chosen == nil && edge.Condition(ctx, output) {
			chosen = edge
		}
	}
	if chosen == nil {
		chosen = fallback
	}
	if chosen == nil {
		return nil, stepError(cond.Name, fmt.Errorf("no conditional branch matched at %q", cond.Name))
	}

	for _, edge := range edges {
		if edge == chosen {
			continue
		}
		if _, executed := fctx.Result(edge.To); !executed {
			skipped := state.NewStepResult(edge.To)
			skipped.MarkSkipped()
			fctx.RecordResult(skipped)
			e.emit(events.New(events.StepSkipped, edge.To, nil), fctx)
		}
	}

	next, ok := e.graph.Node(chosen.To)
	if !ok {
		return nil, stepError(cond.Name, fmt.Errorf("branch target %q: %w", chosen.To, graph.ErrNodeNotFound))
	}
	return next, nil
}

func (e *Engine) emit(ev events.Event, fctx *state.Context) {
	e.bus.Emit(ev.WithMetadata("flow_id", fctx.FlowID()))
}
