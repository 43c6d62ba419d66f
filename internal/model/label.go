package model

import "time"

// Label is a shared entity scoped to a project or a group. Title is its
// natural key within that scope.
type Label struct {
	ID          int64
	ProjectID   int64
	GroupID     int64
	Title       string `validate:"required,max=255"`
	Color       string `validate:"omitempty,hexcolor"`
	Description string
	CreatedAt   time.Time
}

func (Label) EntityKind() Kind { return KindLabel }

// NaturalKey returns the title used to match existing labels.
func (l *Label) NaturalKey() string { return l.Title }

// InScope assigns the label to the given project scope.
func (l *Label) InScope(s Scope) {
	l.ProjectID = s.ProjectID
	l.GroupID = s.GroupID
}

// LabelLink attaches a label to an issue or merge request.
type LabelLink struct {
	ID         int64
	LabelID    int64 `validate:"required"`
	TargetType Kind  `validate:"oneof=issue merge_request"`
	TargetID   int64 `validate:"required"`
	CreatedAt  time.Time
}

func (LabelLink) EntityKind() Kind { return KindLabelLink }

// Milestone is a shared entity scoped to a project or a group.
type Milestone struct {
	ID          int64
	ProjectID   int64
	GroupID     int64
	IID         int64
	Title       string         `validate:"required,max=255"`
	Description string
	State       MilestoneState `validate:"oneof=active closed"`
	StartDate   *time.Time
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Milestone) EntityKind() Kind { return KindMilestone }

// NaturalKey returns the title used to match existing milestones.
func (m *Milestone) NaturalKey() string { return m.Title }

// InScope assigns the milestone to the given project scope.
func (m *Milestone) InScope(s Scope) {
	m.ProjectID = s.ProjectID
	m.GroupID = s.GroupID
}

// MilestoneState is the lifecycle state of a milestone.
type MilestoneState string

const (
	MilestoneActive MilestoneState = "active"
	MilestoneClosed MilestoneState = "closed"
)
