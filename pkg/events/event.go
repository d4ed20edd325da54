// Package events provides the pub/sub bus distributing flow lifecycle
// notifications to registered listeners. It has no dependency on the graph
// or the engine and can be used standalone.
package events

import "time"

// Type classifies lifecycle events.
type Type string

const (
	FlowStarted   Type = "flow_started"
	FlowCompleted Type = "flow_completed"
	FlowFailed    Type = "flow_failed"
	StepStarted   Type = "step_started"
	StepCompleted Type = "step_completed"
	StepFailed    Type = "step_failed"
	StepRetrying  Type = "step_retrying"
	StepSkipped   Type = "step_skipped"
	StateChanged  Type = "state_changed"
	Custom        Type = "custom"

	// Wildcard matches every event type when used in a subscription.
	Wildcard Type = "*"
)

// Event is an immutable lifecycle notification. The engine creates one at
// each transition and hands it to the Bus; the core never persists events.
type Event struct {
	Type      Type              `json:"type"`
	Source    string            `json:"source"`
	Data      any               `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New creates an event stamped with the current time.
func New(t Type, source string, data any) Event {
	return Event{
		Type:      t,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// WithMetadata returns a copy of the event with the given metadata entry.
func (e Event) WithMetadata(key, value string) Event {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}
