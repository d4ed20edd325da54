package state

// FlowStatus represents the lifecycle status of a single flow execution.
type FlowStatus string

const (
	FlowPending   FlowStatus = "pending"
	FlowRunning   FlowStatus = "running"
	FlowCompleted FlowStatus = "completed"
	FlowFailed    FlowStatus = "failed"
	FlowCancelled FlowStatus = "cancelled"
	FlowPaused    FlowStatus = "paused"
)

// flowTransitions encodes the legal forward transitions of the flow
// state machine. Paused is the only status that can return to Running.
var flowTransitions = map[FlowStatus][]FlowStatus{
	FlowPending: {FlowRunning, FlowCancelled},
	FlowRunning: {FlowCompleted, FlowFailed, FlowCancelled, FlowPaused},
	FlowPaused:  {FlowRunning, FlowCancelled},
}

// CanTransition reports whether moving from s to next is legal.
func (s FlowStatus) CanTransition(next FlowStatus) bool {
	for _, allowed := range flowTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status is a terminal one.
func (s FlowStatus) Terminal() bool {
	switch s {
	case FlowCompleted, FlowFailed, FlowCancelled:
		return true
	}
	return false
}

// StepStatus represents the outcome of one node's execution within one run.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
	StepTimedOut  StepStatus = "timed_out"
)

// Terminal reports whether the step status is a terminal one.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepCompleted, StepFailed, StepSkipped, StepTimedOut:
		return true
	}
	return false
}
