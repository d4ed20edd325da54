package flow

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/flowstone-io/flowstone/internal/graph"
	"github.com/flowstone-io/flowstone/pkg/events"
)

// Handler is the callable contract for a unit of work: it receives the
// upstream output (the flow's initial input for start steps) and returns
// its own output. Router handlers return the name of the next step.
type Handler = graph.Handler

// RetryPolicy configures retry backoff for a step.
type RetryPolicy = graph.RetryPolicy

// Backoff strategies for RetryPolicy.
const (
	BackoffFixed       = graph.BackoffFixed
	BackoffLinear      = graph.BackoffLinear
	BackoffExponential = graph.BackoffExponential
)

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the structured logger used by the flow, its engine and
// its event bus. The default discards everything.
func WithLogger(l hclog.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// WithBus sets the event bus lifecycle events are emitted to. By default
// each flow gets its own bus, reachable via Flow.Bus.
func WithBus(b *events.Bus) Option {
	return func(f *Flow) { f.bus = b }
}

// WithBaseDelay sets the default retry base delay for steps that declare
// retries without a policy of their own.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Flow) { f.baseDelay = d }
}

type triggerMode int

const (
	triggerAfter triggerMode = iota
	triggerAll
	triggerAny
)

type trigger struct {
	mode    triggerMode
	sources []string
}

// Branch pairs a predicate with the step it routes to, for conditional
// steps. Predicates are evaluated against the upstream output in
// declaration order; the first match wins.
type Branch struct {
	When graph.Condition
	To   string
}

type stepDef struct {
	name        string
	kind        graph.Kind
	handler     Handler
	description string
	timeout     time.Duration
	retries     int
	retry       RetryPolicy
	triggers    []trigger
	routes      []string
	members     []string
	join        string
	branches    []branchDef
	defaultTo   string
}

type branchDef struct {
	when graph.Condition
	to   string
}

// StepOption configures a registered step.
type StepOption func(*stepDef)

// After declares a single upstream trigger: the step runs when the named
// step completes.
func After(source string) StepOption {
	return func(d *stepDef) {
		d.triggers = append(d.triggers, trigger{mode: triggerAfter, sources: []string{source}})
	}
}

// AllOf declares that the step runs once every named upstream has
// completed. It is the join declaration for explicit fan-outs.
func AllOf(sources ...string) StepOption {
	return func(d *stepDef) {
		d.triggers = append(d.triggers, trigger{mode: triggerAll, sources: sources})
	}
}

// AnyOf declares that the step runs when any one of the named upstreams
// completes.
func AnyOf(sources ...string) StepOption {
	return func(d *stepDef) {
		d.triggers = append(d.triggers, trigger{mode: triggerAny, sources: sources})
	}
}

// Routes declares the step names a router is allowed to return.
func Routes(targets ...string) StepOption {
	return func(d *stepDef) { d.routes = append(d.routes, targets...) }
}

// Members declares the ordered fan-out group of a parallel step.
func Members(names ...string) StepOption {
	return func(d *stepDef) { d.members = append(d.members, names...) }
}

// JoinTo names the step that gathers a parallel group's outputs.
func JoinTo(name string) StepOption {
	return func(d *stepDef) { d.join = name }
}

// WithTimeout sets the per-attempt deadline enforced on the step's handler.
func WithTimeout(d time.Duration) StepOption {
	return func(s *stepDef) { s.timeout = d }
}

// WithRetries sets how many times a failing handler is re-attempted.
func WithRetries(n int) StepOption {
	return func(s *stepDef) {
		if n > 0 {
			s.retries = n
		}
	}
}

// WithBackoff sets the retry backoff policy for the step.
func WithBackoff(strategy graph.BackoffStrategy, base, max time.Duration) StepOption {
	return func(s *stepDef) {
		s.retry = RetryPolicy{Strategy: strategy, BaseDelay: base, MaxDelay: max}
	}
}

// WithDescription attaches a human-readable description to the step.
func WithDescription(text string) StepOption {
	return func(s *stepDef) { s.description = text }
}
