package domain

import "time"

// Step status constants. NOT_RUN is the initial state; SUCCEEDED and
// FAILED are terminal.
const (
	StepStatusNotRun    = "NOT_RUN"
	StepStatusRunning   = "RUNNING"
	StepStatusSucceeded = "SUCCEEDED"
	StepStatusFailed    = "FAILED"
)

// Step is the atomic execute/succeed/fail unit underlying every task run.
// Its behaviors are plain functions returning a boolean outcome; retry and
// timeout are layered on top by the task executor, never here.
type Step struct {
	StepID    string
	Name      string
	Status    string
	UpdatedAt time.Time

	// Execute performs the step's work. A nil Execute is vacuously
	// successful.
	Execute func() bool

	// OnSuccess runs after a successful Execute; when present, its result
	// becomes the step's final result.
	OnSuccess func() bool

	// OnFailure runs after a failed Execute; its result never changes the
	// step's outcome.
	OnFailure func() bool
}

// NewStep creates a step in the NOT_RUN state.
func NewStep(name string) *Step {
	return &Step{
		Name:      name,
		Status:    StepStatusNotRun,
		UpdatedAt: time.Now(),
	}
}

// Touch stamps the step's UpdatedAt.
func (s *Step) Touch() {
	s.UpdatedAt = time.Now()
}
