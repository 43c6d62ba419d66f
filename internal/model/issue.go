package model

import (
	"fmt"
	"time"
)

// IssuableState is the lifecycle state of an issue or merge request.
type IssuableState string

const (
	StateOpened IssuableState = "opened"
	StateClosed IssuableState = "closed"
	StateMerged IssuableState = "merged"
)

var validIssueStates = []IssuableState{StateOpened, StateClosed}

var validMergeRequestStates = []IssuableState{StateOpened, StateClosed, StateMerged}

// ValidateIssueState returns an error if s is not a recognized issue state.
func ValidateIssueState(s IssuableState) error {
	for _, v := range validIssueStates {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("invalid issue state %q: must be one of %v", s, validIssueStates)
}

// ValidateMergeRequestState returns an error if s is not a recognized merge
// request state.
func ValidateMergeRequestState(s IssuableState) error {
	for _, v := range validMergeRequestStates {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("invalid merge request state %q: must be one of %v", s, validMergeRequestStates)
}

// Issue is a restored project issue.
type Issue struct {
	ID           int64
	ProjectID    int64         `validate:"required"`
	IID          int64         `validate:"gte=0"`
	Title        string        `validate:"required,max=255"`
	Description  string
	State        IssuableState `validate:"oneof=opened closed"`
	AuthorID     int64         `validate:"required"`
	AssigneeID   *int64
	MilestoneID  *int64
	Confidential bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
}

func (Issue) EntityKind() Kind { return KindIssue }

// MergeRequest is a restored merge request.
type MergeRequest struct {
	ID                       int64
	ProjectID                int64         `validate:"required"`
	IID                      int64         `validate:"gte=0"`
	Title                    string        `validate:"required,max=255"`
	Description              string
	SourceBranch             string        `validate:"required"`
	TargetBranch             string        `validate:"required"`
	State                    IssuableState `validate:"oneof=opened closed merged"`
	AuthorID                 int64         `validate:"required"`
	AssigneeID               *int64
	MilestoneID              *int64
	LatestMergeRequestDiffID *int64
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (MergeRequest) EntityKind() Kind { return KindMergeRequest }

// MergeRequestDiff is one version of a merge request's diff.
type MergeRequestDiff struct {
	ID             int64
	MergeRequestID int64 `validate:"required"`
	State          string
	BaseCommitSHA  string `validate:"omitempty,hexadecimal"`
	HeadCommitSHA  string `validate:"omitempty,hexadecimal"`
	StartCommitSHA string `validate:"omitempty,hexadecimal"`
	RealSize       string
	CreatedAt      time.Time
}

func (MergeRequestDiff) EntityKind() Kind { return KindMergeRequestDiff }
