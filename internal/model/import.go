package model

import "time"

// ImportStatus is the outcome of an import run.
type ImportStatus string

const (
	ImportStarted  ImportStatus = "started"
	ImportFinished ImportStatus = "finished"
	ImportFailed   ImportStatus = "failed"
)

// ImportRun records one restore of an export into a project.
type ImportRun struct {
	ID         string       `json:"id"`
	ProjectID  int64        `json:"project_id"`
	Status     ImportStatus `json:"status"`
	Source     string       `json:"source"`
	Version    string       `json:"version"`
	Created    int          `json:"created"`
	Failures   int          `json:"failures"`
	Notices    int          `json:"notices"`
	Warnings   int          `json:"warnings"`
	Error      string       `json:"error"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at"`
}

// ImportFailure is a persisted record of one relation that could not be
// restored, or of a retried action that exhausted its attempts.
type ImportFailure struct {
	ID               int64     `json:"id"`
	ProjectID        int64     `json:"project_id"`
	CorrelationID    string    `json:"correlation_id"`
	RelationKey      string    `json:"relation_key"`
	RelationIndex    int       `json:"relation_index"`
	Path             string    `json:"path"`
	ExceptionClass   string    `json:"exception_class"`
	ExceptionMessage string    `json:"exception_message"`
	RetryCount       int       `json:"retry_count"`
	CreatedAt        time.Time `json:"created_at"`
}
