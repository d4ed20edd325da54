// Package checkpoints implements checkpoint/restore of flow contexts. The
// engine itself never persists anything; a collaborator captures a context
// after (or during) a run, stores it, and later reconstructs an equivalent
// context to inspect partial results or resume work against the same flow
// definition.
package checkpoints

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/flowstone-io/flowstone/pkg/state"
)

// ErrNotFound is returned when no checkpoint exists for a flow ID.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is one stored capture of a flow context.
type Checkpoint struct {
	FlowID    string         `json:"flow_id"`
	Snapshot  state.Snapshot `json:"snapshot"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists checkpoints keyed by flow ID. Saving twice for the same
// flow ID overwrites the previous checkpoint.
type Store interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Load(ctx context.Context, flowID string) (*Checkpoint, error)
	Delete(ctx context.Context, flowID string) error
}

// Capture creates a checkpoint from the context's current state.
func Capture(fc *state.Context) *Checkpoint {
	return &Checkpoint{
		FlowID:    fc.FlowID(),
		Snapshot:  fc.Snapshot(),
		CreatedAt: time.Now().UTC(),
	}
}

// Restore reconstructs a flow context equivalent to the one captured:
// same status, completed steps, step results and variables.
func Restore(cp *Checkpoint) (*state.Context, error) {
	if cp == nil {
		return nil, errors.New("nil checkpoint")
	}
	fc, err := state.FromSnapshot(cp.Snapshot)
	if err != nil {
		return nil, errors.Wrapf(err, "restoring checkpoint for flow %s", cp.FlowID)
	}
	return fc, nil
}
