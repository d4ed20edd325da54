package state

import "time"

// StepResult records the outcome of one node's execution within one run.
// It is created when the node begins executing and mutated in place as the
// node completes, fails or is skipped. It is never reused across runs.
type StepResult struct {
	StepName    string     `json:"step_name"`
	Status      StepStatus `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Output      any        `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	Retries     int        `json:"retries"`
}

// NewStepResult creates a pending result for the given step.
func NewStepResult(stepName string) *StepResult {
	return &StepResult{
		StepName: stepName,
		Status:   StepPending,
	}
}

// MarkRunning transitions the result to Running and stamps the start time.
func (r *StepResult) MarkRunning() {
	r.Status = StepRunning
	r.StartedAt = time.Now().UTC()
}

// MarkCompleted records a successful outcome.
func (r *StepResult) MarkCompleted(output any, retries int) {
	now := time.Now().UTC()
	r.Status = StepCompleted
	r.Output = output
	r.Retries = retries
	r.CompletedAt = &now
}

// MarkFailed records a terminal failure after the retry budget is exhausted.
func (r *StepResult) MarkFailed(err error, retries int) {
	now := time.Now().UTC()
	r.Status = StepFailed
	if err != nil {
		r.Error = err.Error()
	}
	r.Retries = retries
	r.CompletedAt = &now
}

// MarkTimedOut records a failure caused by the node's deadline expiring.
func (r *StepResult) MarkTimedOut(err error, retries int) {
	r.MarkFailed(err, retries)
	r.Status = StepTimedOut
}

// MarkSkipped records that the node was bypassed by a routing decision.
func (r *StepResult) MarkSkipped() {
	now := time.Now().UTC()
	r.Status = StepSkipped
	r.CompletedAt = &now
}

// Duration returns the wall-clock time the step spent executing. It returns
// zero while the step is still running.
func (r *StepResult) Duration() time.Duration {
	if r.CompletedAt == nil || r.StartedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
