package models

import "time"

// JobStatus is the state of an asynchronous mapping job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status cannot change anymore.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed || s == JobStatusCancelled
}

// Active reports whether the backend is still working on the job.
func (s JobStatus) Active() bool {
	return s == JobStatusQueued || s == JobStatusRunning
}

// ImportJob is a backend mapping job. Jobs are created server-side on
// submission and are read-only to this client; the client only polls them.
type ImportJob struct {
	ID            string    `json:"id"`
	FileID        string    `json:"file_id"`
	Status        JobStatus `json:"status"`
	Stage         string    `json:"stage,omitempty"`
	Progress      *int      `json:"progress,omitempty"`
	TriggerSource string    `json:"trigger_source,omitempty"`
	Attempt       int       `json:"attempt"`

	// ProgressMeta carries live progress details while the job runs:
	// current file, remaining files, completed-file log, chunk counters.
	ProgressMeta map[string]any `json:"progress_metadata,omitempty"`
	// ResultMeta is populated once the job is terminal; for archives it
	// holds enough to reconstruct an ArchiveAutoProcessResult after the fact.
	ResultMeta map[string]any `json:"result_metadata,omitempty"`

	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
