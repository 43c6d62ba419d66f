package model

import (
	"fmt"
	"time"
)

// NoteType distinguishes plain notes from threaded and positioned ones.
type NoteType string

const (
	NoteTypePlain      NoteType = ""
	NoteTypeDiscussion NoteType = "DiscussionNote"
	NoteTypeDiff       NoteType = "DiffNote"
)

// ValidateNoteType returns an error if t is not a recognized note type.
func ValidateNoteType(t NoteType) error {
	switch t {
	case NoteTypePlain, NoteTypeDiscussion, NoteTypeDiff:
		return nil
	}
	return fmt.Errorf("invalid note type %q", t)
}

// Note is a comment on an issue or merge request. Notes sharing a
// DiscussionID form a thread whose first note is the discussion root.
type Note struct {
	ID            int64
	ProjectID     int64    `validate:"required"`
	NoteableType  Kind     `validate:"oneof=issue merge_request"`
	NoteableID    int64    `validate:"required"`
	Type          NoteType
	Body          string   `validate:"required"`
	AuthorID      int64    `validate:"required"`
	DiscussionID  string
	ReplyToNoteID *int64
	System        bool
	Position      string `validate:"required_if=Type DiffNote"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Note) EntityKind() Kind { return KindNote }

// SystemNoteMetadata describes the action that generated a system note.
type SystemNoteMetadata struct {
	ID          int64
	NoteID      int64  `validate:"required"`
	Action      string `validate:"required"`
	CommitCount int64
	CreatedAt   time.Time
}

func (SystemNoteMetadata) EntityKind() Kind { return KindSystemNoteMetadata }

// AwardEmoji is a reaction on an issue, merge request or note.
type AwardEmoji struct {
	ID            int64
	AwardableType Kind   `validate:"oneof=issue merge_request note"`
	AwardableID   int64  `validate:"required"`
	Name          string `validate:"required,max=255"`
	UserID        int64  `validate:"required"`
	CreatedAt     time.Time
}

func (AwardEmoji) EntityKind() Kind { return KindAwardEmoji }
