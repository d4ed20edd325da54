// Package flow is the public surface of the workflow engine. A caller
// registers named steps and their relationships (sequence, conditional
// routing, parallel fan-out/join); the flow lazily builds an execution
// graph once, validates it on demand and drives runs to completion while
// tracking per-step state and emitting lifecycle events.
//
// Registration never executes anything and never fails; configuration
// errors such as duplicate step names surface when the graph is built, on
// the first Run or Validate call.
package flow

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/flowstone-io/flowstone/internal/engine"
	"github.com/flowstone-io/flowstone/internal/graph"
	"github.com/flowstone-io/flowstone/pkg/events"
	"github.com/flowstone-io/flowstone/pkg/state"
)

// Flow is one workflow definition. The definition (and its graph, once
// built) is immutable and may be shared by concurrent runs; every run gets
// its own state.Context.
type Flow struct {
	name      string
	logger    hclog.Logger
	bus       *events.Bus
	baseDelay time.Duration

	mu   sync.Mutex
	defs []*stepDef

	buildOnce sync.Once
	g         *graph.Graph
	eng       *engine.Engine
	buildErr  error
}

// New creates an empty flow definition.
func New(name string, opts ...Option) *Flow {
	f := &Flow{
		name:   name,
		logger: hclog.NewNullLogger(),
	}
	for _, o := range opts {
		o(f)
	}
	if f.bus == nil {
		f.bus = events.NewBus(events.WithLogger(f.logger))
	}
	return f
}

// Name returns the flow's name.
func (f *Flow) Name() string { return f.name }

// Bus returns the event bus runs emit lifecycle events to.
func (f *Flow) Bus() *events.Bus { return f.bus }

func (f *Flow) register(name string, kind graph.Kind, h Handler, opts []StepOption) *Flow {
	d := &stepDef{name: name, kind: kind, handler: h}
	for _, o := range opts {
		o(d)
	}
	f.mu.Lock()
	f.defs = append(f.defs, d)
	f.mu.Unlock()
	return f
}

// Start registers the flow's entry step. Its handler receives the value
// passed to Run.
func (f *Flow) Start(name string, h Handler, opts ...StepOption) *Flow {
	return f.register(name, graph.KindStart, h, opts)
}

// Step registers a plain step. Use After, AllOf or AnyOf to declare its
// upstream triggers; a step with no outgoing edges ends its path.
func (f *Flow) Step(name string, h Handler, opts ...StepOption) *Flow {
	return f.register(name, graph.KindStep, h, opts)
}

// Router registers a data-dependent branch point: the handler returns the
// name of the next step. Declare the allowed targets with Routes; a
// returned name outside the graph aborts the run with an invalid-next-step
// error.
func (f *Flow) Router(name string, h Handler, opts ...StepOption) *Flow {
	return f.register(name, graph.KindRouter, h, opts)
}

// Parallel registers an explicit fan-out gate. Members run concurrently,
// each receiving the gate's upstream output; the step named by JoinTo
// receives their outputs as an ordered list matching declaration order.
func (f *Flow) Parallel(name string, opts ...StepOption) *Flow {
	return f.register(name, graph.KindParallel, nil, opts)
}

// Join registers the gathering point of a parallel group. Its handler
// receives the members' outputs as a []any in declaration order.
func (f *Flow) Join(name string, h Handler, opts ...StepOption) *Flow {
	return f.register(name, graph.KindJoin, h, opts)
}

// Conditional registers a guard-routed step: branches are evaluated against
// the upstream output in declaration order and the first match wins;
// defaultTo, when non-empty, is taken when no guard matches.
func (f *Flow) Conditional(name string, branches []Branch, defaultTo string, opts ...StepOption) *Flow {
	d := &stepDef{name: name, kind: graph.KindConditional, defaultTo: defaultTo}
	for _, br := range branches {
		d.branches = append(d.branches, branchDef{when: br.When, to: br.To})
	}
	for _, o := range opts {
		o(d)
	}
	f.mu.Lock()
	f.defs = append(f.defs, d)
	f.mu.Unlock()
	return f
}

// End registers an explicit terminal step.
func (f *Flow) End(name string, h Handler, opts ...StepOption) *Flow {
	return f.register(name, graph.KindEnd, h, opts)
}

// build constructs the graph and engine exactly once.
func (f *Flow) build() error {
	f.buildOnce.Do(func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		g := graph.New(f.name)

		for _, d := range f.defs {
			kind := d.kind
			// A declared all-of trigger is a join declaration.
			if kind == graph.KindStep && hasAllTrigger(d.triggers) {
				kind = graph.KindJoin
			}
			node := &graph.Node{
				Name:        d.name,
				Kind:        kind,
				Handler:     d.handler,
				Description: d.description,
				Timeout:     d.timeout,
				Retries:     d.retries,
				Retry:       d.retry,
				Members:     append([]string(nil), d.members...),
				Join:        d.join,
				Routes:      append([]string(nil), d.routes...),
			}
			if err := g.AddNode(node); err != nil {
				f.buildErr = errors.Wrapf(err, "flow %q: step %q", f.name, d.name)
				return
			}
		}

		seen := make(map[[2]string]bool)
		addEdge := func(from, to string, cond graph.Condition, label string) {
			if cond == nil {
				key := [2]string{from, to}
				if seen[key] {
					return
				}
				seen[key] = true
			}
			g.AddEdge(from, to, cond, label)
		}

		for _, d := range f.defs {
			for _, tr := range d.triggers {
				label := ""
				switch tr.mode {
				case triggerAll:
					label = "all"
				case triggerAny:
					label = "any"
				}
				for _, src := range tr.sources {
					addEdge(src, d.name, nil, label)
				}
			}
			for _, route := range d.routes {
				addEdge(d.name, route, nil, "route")
			}
			for _, m := range d.members {
				addEdge(d.name, m, nil, "fan-out")
				if d.join != "" {
					addEdge(m, d.join, nil, "join")
				}
			}
			for _, br := range d.branches {
				addEdge(d.name, br.to, br.when, "when")
			}
			if d.defaultTo != "" {
				addEdge(d.name, d.defaultTo, nil, "default")
			}
		}

		f.g = g
		f.eng = engine.New(g,
			engine.WithBus(f.bus),
			engine.WithLogger(f.logger),
			engine.WithBaseDelay(f.baseDelay),
		)
	})
	return f.buildErr
}

func hasAllTrigger(triggers []trigger) bool {
	for _, tr := range triggers {
		if tr.mode == triggerAll && len(tr.sources) > 1 {
			return true
		}
	}
	return false
}

// Validate builds the graph if needed and returns its findings. Findings
// are descriptive, non-fatal diagnostics; callers decide whether to treat
// them as fatal before running. A hard configuration error (for example a
// duplicate step name) is returned as err.
func (f *Flow) Validate() ([]string, error) {
	if err := f.build(); err != nil {
		return nil, err
	}
	return f.g.Validate(), nil
}

// Run executes the flow with the given initial input. It returns the run's
// Context; on failure the error is an *engine.ExecutionError carrying the
// failing step's name, and partial results remain inspectable on the
// returned Context.
func (f *Flow) Run(ctx context.Context, input any) (*state.Context, error) {
	fctx := state.NewContext()
	err := f.RunWith(ctx, fctx, input)
	return fctx, err
}

// RunWith executes the flow against a caller-supplied Context, which must
// be Pending (fresh or restored from a checkpoint) or Paused. Handlers can
// consult the Context's recorded results to skip work a previous run
// already finished.
func (f *Flow) RunWith(ctx context.Context, fctx *state.Context, input any) error {
	if err := f.build(); err != nil {
		return err
	}
	if fctx.Status() == state.FlowPaused {
		if err := fctx.Resume(); err != nil {
			return err
		}
	}
	_, err := f.eng.Run(ctx, fctx, input)
	return err
}

// Describe returns a read-only description of the built graph.
func (f *Flow) Describe() (*graph.Info, error) {
	if err := f.build(); err != nil {
		return nil, err
	}
	return f.g.Describe(), nil
}

// Render returns an indented textual rendering of the built graph. It is a
// debugging aid with no effect on execution.
func (f *Flow) Render() (string, error) {
	if err := f.build(); err != nil {
		return "", err
	}
	return f.g.Render(), nil
}

// ContextFrom returns the flow Context a handler is executing under, for
// handlers that need the cross-step variables bag.
func ContextFrom(ctx context.Context) *state.Context {
	return state.FromContext(ctx)
}
