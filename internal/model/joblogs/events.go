package joblogs

import (
	"slices"
	"time"
)

// Terminal job statuses, after which no further output is produced.
const (
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusCanceled  = "CANCELED"
)

// IsTerminalJobStatus reports whether the job status is final.
func IsTerminalJobStatus(status string) bool {
	return slices.Contains([]string{JobStatusCompleted, JobStatusFailed, JobStatusCanceled}, status)
}

// JobLogEvent represents a log event for a job, as published by the log processors.
type JobLogEvent struct {
	JobID       string    `json:"job_id"`
	WorkflowID  string    `json:"workflow_id"`
	UserID      string    `json:"user_id"`
	Message     string    `json:"message"`
	Output      []byte    `json:"output,omitempty"`
	TimeStamp   time.Time `json:"timestamp"`
	SequenceNum uint32    `json:"sequence_num"`
	Stream      string    `json:"stream"` // "stdout" or "stderr"
}

// JobStateEvent represents a job status change.
type JobStateEvent struct {
	JobID          string `json:"job_id"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
}

// JobStreamRecord is one record received from a job subscription.
// Exactly one of Log or State is set.
type JobStreamRecord struct {
	Log   *JobLogEvent
	State *JobStateEvent
}
