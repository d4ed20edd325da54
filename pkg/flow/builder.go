package flow

import (
	"context"

	"github.com/pkg/errors"
)

// Chain is a fluent builder over a Flow. It keeps track of the last step
// added so sequential wiring reads top to bottom:
//
//	f := flow.New("pipeline")
//	err := f.Begin("fetch", fetch).
//		Then("parse", parse).
//		Then("store", store).
//		Err()
//
// The first error encountered sticks and is returned by Err.
type Chain struct {
	f    *Flow
	last string
	err  error
}

// Begin registers the flow's start step and opens a chain from it.
func (f *Flow) Begin(name string, h Handler, opts ...StepOption) *Chain {
	f.Start(name, h, opts...)
	return &Chain{f: f, last: name}
}

// Then registers a step triggered by the chain's last step.
func (c *Chain) Then(name string, h Handler, opts ...StepOption) *Chain {
	if c.err != nil {
		return c
	}
	opts = append(opts, After(c.last))
	c.f.Step(name, h, opts...)
	c.last = name
	return c
}

// ThenIf registers a two-way conditional after the last step: when the
// predicate holds the ifTrue step runs, otherwise ifFalse. The chain
// continues from the conditional, so a following Then would fan in both
// branches; call Err and wire explicitly for anything more elaborate.
func (c *Chain) ThenIf(pred func(context.Context, any) bool, ifTrue, ifFalse string, hTrue, hFalse Handler) *Chain {
	if c.err != nil {
		return c
	}
	c.f.Step(ifTrue, hTrue)
	c.f.Step(ifFalse, hFalse)
	c.f.Conditional(c.last+"_cond", []Branch{{When: pred, To: ifTrue}}, ifFalse, After(c.last))
	c.last = c.last + "_cond"
	return c
}

// Member pairs a step name with its handler for fan-out declarations.
type Member struct {
	Name    string
	Handler Handler
}

// ThenAll fans out to the given members concurrently after the last step.
// The returned ParallelChain must be closed with Join.
func (c *Chain) ThenAll(members ...Member) *ParallelChain {
	pc := &ParallelChain{chain: c, gate: c.last + "_fanout"}
	if c.err != nil {
		return pc
	}
	if len(members) == 0 {
		c.err = errors.Errorf("ThenAll after %q: no members", c.last)
		return pc
	}
	names := make([]string, len(members))
	for i, m := range members {
		c.f.Step(m.Name, m.Handler)
		names[i] = m.Name
	}
	pc.members = names
	return pc
}

// ParallelChain is the intermediate state between ThenAll and Join.
type ParallelChain struct {
	chain   *Chain
	gate    string
	members []string
}

// Join closes the fan-out: the named step receives the members' outputs as
// an ordered []any and the chain continues from it.
func (p *ParallelChain) Join(name string, h Handler, opts ...StepOption) *Chain {
	c := p.chain
	if c.err != nil {
		return c
	}
	c.f.Join(name, h, opts...)
	c.f.Parallel(p.gate,
		After(c.last),
		Members(p.members...),
		JoinTo(name),
	)
	c.last = name
	return c
}

// RouteVia registers a router after the last step. The handler must return
// one of the declared route names; branch steps are registered separately
// and reached through the router's decision.
func (c *Chain) RouteVia(name string, h Handler, routes ...string) *Chain {
	if c.err != nil {
		return c
	}
	c.f.Router(name, h, After(c.last), Routes(routes...))
	c.last = name
	return c
}

// Err returns the first error the chain encountered, if any. Graph-level
// configuration errors still surface from Validate or Run.
func (c *Chain) Err() error {
	return c.err
}
