package engine

import (
	"github.com/jobflowhq/jobflow/internal/domain"
)

// RunStep drives a step through its execute/succeed/fail lifecycle and
// returns the step's final result.
//
// A nil Execute is vacuously successful. On success, the OnSuccess
// continuation (when present) decides the final result. On a false result
// or a panic raised by Execute, the OnFailure continuation (when present)
// runs and the step fails regardless of the continuation's own result.
// Panics never escape this function.
func RunStep(step *domain.Step) bool {
	step.Status = domain.StepStatusRunning
	step.Touch()

	ok := true
	if step.Execute != nil {
		ok = safeInvoke(step.Execute)
	}

	if !ok {
		if step.OnFailure != nil {
			safeInvoke(step.OnFailure)
		}
		step.Status = domain.StepStatusFailed
		step.Touch()
		return false
	}

	result := true
	if step.OnSuccess != nil {
		result = safeInvoke(step.OnSuccess)
	}

	if result {
		step.Status = domain.StepStatusSucceeded
	} else {
		step.Status = domain.StepStatusFailed
	}
	step.Touch()
	return result
}

// safeInvoke calls fn and converts a panic into a false result.
func safeInvoke(fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return fn()
}
