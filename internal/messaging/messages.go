// Package messaging defines the wire format shared by the API service
// (producer) and the worker service (consumer).
package messaging

// ContentTypeJSON is the content type used for all queue messages.
const ContentTypeJSON = "application/json"

// RunMessage asks a worker to run a pre-created PENDING execution.
type RunMessage struct {
	ExecutionID string `json:"execution_id"`
	JobID       string `json:"job_id"`
}

// CancelMessage is broadcast to all workers; the one holding the
// execution cancels its run context.
type CancelMessage struct {
	ExecutionID string `json:"execution_id"`
}
