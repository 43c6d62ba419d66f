package model

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Kind names a destination entity type.
type Kind string

const (
	KindProject            Kind = "project"
	KindLabel              Kind = "label"
	KindLabelLink          Kind = "label_link"
	KindMilestone          Kind = "milestone"
	KindIssue              Kind = "issue"
	KindMergeRequest       Kind = "merge_request"
	KindMergeRequestDiff   Kind = "merge_request_diff"
	KindNote               Kind = "note"
	KindSystemNoteMetadata Kind = "system_note_metadata"
	KindAwardEmoji         Kind = "award_emoji"
	KindEvent              Kind = "event"
	KindPipeline           Kind = "pipeline"
)

// Entity is any record the restore pipeline can persist.
type Entity interface {
	EntityKind() Kind
}

// Target points at a persisted entity of a given kind.
type Target struct {
	Kind Kind
	ID   int64
}

// IsZero reports whether t points at nothing.
func (t Target) IsZero() bool {
	return t.ID == 0
}

// Scope bounds a natural-key lookup. A zero field is unset.
type Scope struct {
	ProjectID int64
	GroupID   int64
}
