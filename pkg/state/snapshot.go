package state

import (
	"time"

	"dario.cat/mergo"
	"github.com/pkg/errors"
)

// Snapshot is a serializable view of a Context, used by checkpoint stores.
// Step outputs and variables must be values the configured codec can encode;
// the engine itself places no restriction on them.
type Snapshot struct {
	FlowID         string                 `json:"flow_id"`
	Status         FlowStatus             `json:"status"`
	CurrentStep    string                 `json:"current_step,omitempty"`
	CompletedSteps []string               `json:"completed_steps"`
	Results        map[string]*StepResult `json:"results"`
	Variables      map[string]any         `json:"variables"`
	StartedAt      time.Time              `json:"started_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Output         any                    `json:"output,omitempty"`
}

// Snapshot captures the current state of the context.
func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		FlowID:         c.flowID,
		Status:         c.status,
		CurrentStep:    c.currentStep,
		CompletedSteps: make([]string, len(c.completedSteps)),
		Results:        make(map[string]*StepResult, len(c.results)),
		Variables:      make(map[string]any, len(c.variables)),
		StartedAt:      c.startedAt,
		CompletedAt:    c.completedAt,
		Error:          c.errMsg,
		Output:         c.output,
	}
	copy(snap.CompletedSteps, c.completedSteps)
	for k, v := range c.results {
		cp := *v
		snap.Results[k] = &cp
	}
	for k, v := range c.variables {
		snap.Variables[k] = v
	}
	return snap
}

// FromSnapshot reconstructs a Context from a previously captured snapshot.
// Variables are merged into a fresh bag so a partially populated snapshot
// never leaves the map nil.
func FromSnapshot(snap Snapshot) (*Context, error) {
	if snap.FlowID == "" {
		return nil, errors.New("snapshot has no flow ID")
	}

	vars := make(map[string]any)
	if err := mergo.Merge(&vars, snap.Variables, mergo.WithOverride); err != nil {
		return nil, errors.Wrap(err, "merging snapshot variables")
	}

	c := &Context{
		flowID:         snap.FlowID,
		status:         snap.Status,
		currentStep:    snap.CurrentStep,
		completedSteps: append([]string(nil), snap.CompletedSteps...),
		results:        make(map[string]*StepResult, len(snap.Results)),
		variables:      vars,
		startedAt:      snap.StartedAt,
		completedAt:    snap.CompletedAt,
		errMsg:         snap.Error,
		output:         snap.Output,
	}
	if c.status == "" {
		c.status = FlowPending
	}
	for k, v := range snap.Results {
		cp := *v
		c.results[k] = &cp
	}
	return c, nil
}
