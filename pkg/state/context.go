package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Context is the mutable runtime record of one flow execution. A Context is
// exclusively owned by a single run: two concurrent runs of the same flow
// definition each get their own Context while sharing the read-only graph.
//
// All methods are safe for concurrent use; parallel branches record their
// results into the same Context.
type Context struct {
	mu sync.RWMutex

	flowID         string
	status         FlowStatus
	currentStep    string
	completedSteps []string
	results        map[string]*StepResult
	variables      map[string]any
	startedAt      time.Time
	completedAt    *time.Time
	errMsg         string
	output         any

	cancel context.CancelFunc
}

// NewContext creates a fresh Pending context with a generated flow ID.
func NewContext() *Context {
	return &Context{
		flowID:    uuid.New().String(),
		status:    FlowPending,
		results:   make(map[string]*StepResult),
		variables: make(map[string]any),
	}
}

// FlowID returns the unique identifier of this execution.
func (c *Context) FlowID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flowID
}

// Status returns the current flow status.
func (c *Context) Status() FlowStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// transition moves the status forward, enforcing the state machine.
func (c *Context) transition(next FlowStatus) error {
	if !c.status.CanTransition(next) {
		return fmt.Errorf("illegal flow transition %s -> %s", c.status, next)
	}
	c.status = next
	return nil
}

// Bind attaches the run's cancel function so Cancel can stop in-flight work.
// The engine calls this once at the start of a run.
func (c *Context) Bind(cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = cancel
}

// Begin transitions Pending -> Running and stamps the start time.
func (c *Context) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transition(FlowRunning); err != nil {
		return err
	}
	c.startedAt = time.Now().UTC()
	return nil
}

// Complete transitions Running -> Completed and records the final output.
func (c *Context) Complete(output any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transition(FlowCompleted); err != nil {
		return err
	}
	now := time.Now().UTC()
	c.completedAt = &now
	c.output = output
	return nil
}

// Fail transitions Running -> Failed and records the error.
func (c *Context) Fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if terr := c.transition(FlowFailed); terr != nil {
		return terr
	}
	now := time.Now().UTC()
	c.completedAt = &now
	if err != nil {
		c.errMsg = err.Error()
	}
	return nil
}

// Cancel transitions the flow to Cancelled and, if the context was bound to
// a run, cancels the run's context so in-flight handlers observe it at their
// next suspension point.
func (c *Context) Cancel() error {
	c.mu.Lock()
	if err := c.transition(FlowCancelled); err != nil {
		c.mu.Unlock()
		return err
	}
	now := time.Now().UTC()
	c.completedAt = &now
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Pause transitions Running -> Paused.
func (c *Context) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(FlowPaused)
}

// Resume transitions Paused -> Running.
func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(FlowRunning)
}

// CurrentStep returns the name of the step the engine is executing.
func (c *Context) CurrentStep() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentStep
}

// SetCurrentStep updates the current step pointer.
func (c *Context) SetCurrentStep(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentStep = name
}

// RecordResult stores (or replaces) the result for a step.
func (c *Context) RecordResult(r *StepResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[r.StepName] = r
}

// Result returns the recorded result for a step, if any.
func (c *Context) Result(stepName string) (*StepResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[stepName]
	return r, ok
}

// Results returns a copy of the step-name -> result mapping.
func (c *Context) Results() map[string]*StepResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*StepResult, len(c.results))
	for k, v := range c.results {
		out[k] = v
	}
	return out
}

// MarkCompletedStep appends a step to the ordered completion history.
func (c *Context) MarkCompletedStep(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completedSteps = append(c.completedSteps, name)
}

// CompletedSteps returns the ordered list of completed step names.
func (c *Context) CompletedSteps() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.completedSteps))
	copy(out, c.completedSteps)
	return out
}

// SetVariable stores a cross-step value. The engine never interprets the
// variables bag; it exists for step handlers and collaborators.
func (c *Context) SetVariable(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[key] = value
}

// Variable returns a stored variable.
func (c *Context) Variable(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[key]
	return v, ok
}

// Variables returns a copy of the variables bag.
func (c *Context) Variables() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

// Output returns the flow's final output once the run completed.
func (c *Context) Output() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.output
}

// StartedAt returns when the run began.
func (c *Context) StartedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.startedAt
}

// CompletedAt returns when the run reached a terminal status, if it has.
func (c *Context) CompletedAt() *time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.completedAt
}

// Err returns the recorded flow-level error message, if any.
func (c *Context) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errMsg
}
