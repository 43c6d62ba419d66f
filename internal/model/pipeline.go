package model

import "time"

// PipelineStatus is the state of a CI pipeline.
type PipelineStatus string

var validPipelineStatuses = []PipelineStatus{
	"created", "waiting_for_resource", "preparing", "pending", "running",
	"success", "failed", "canceled", "skipped", "manual", "scheduled",
}

// ValidPipelineStatus reports whether s is a known pipeline status.
func ValidPipelineStatus(s PipelineStatus) bool {
	for _, v := range validPipelineStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Pipeline is a restored CI pipeline record.
type Pipeline struct {
	ID             int64
	ProjectID      int64          `validate:"required"`
	IID            int64          `validate:"gte=0"`
	Ref            string         `validate:"required"`
	SHA            string         `validate:"required,hexadecimal"`
	Status         PipelineStatus `validate:"required"`
	Source         string
	UserID         *int64
	MergeRequestID *int64
	CreatedAt      time.Time
	FinishedAt     *time.Time
}

func (Pipeline) EntityKind() Kind { return KindPipeline }
