package model

import (
	"fmt"
	"time"
)

// Visibility controls who can see a project.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
	VisibilityPublic   Visibility = "public"
)

var validVisibilities = []Visibility{
	VisibilityPrivate,
	VisibilityInternal,
	VisibilityPublic,
}

// ValidateVisibility returns an error if v is not a recognized visibility.
func ValidateVisibility(v Visibility) error {
	for _, valid := range validVisibilities {
		if v == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid visibility %q: must be one of %v", v, validVisibilities)
}

// VisibilityFromLevel maps the legacy numeric visibility_level (0, 10, 20)
// onto a Visibility.
func VisibilityFromLevel(level int64) (Visibility, bool) {
	switch level {
	case 0:
		return VisibilityPrivate, true
	case 10:
		return VisibilityInternal, true
	case 20:
		return VisibilityPublic, true
	default:
		return "", false
	}
}

// Project is the destination entity a restore populates.
type Project struct {
	ID            int64      `json:"id"`
	GroupID       *int64     `json:"group_id"`
	Name          string     `json:"name" validate:"required,max=255"`
	Path          string     `json:"path" validate:"required,max=255"`
	Description   string     `json:"description"`
	Visibility    Visibility `json:"visibility" validate:"oneof=private internal public"`
	DefaultBranch string     `json:"default_branch"`
	Archived      bool       `json:"archived"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ProjectMember grants a user access to a project.
type ProjectMember struct {
	ProjectID   int64       `validate:"required"`
	UserID      int64       `validate:"required"`
	AccessLevel AccessLevel `validate:"oneof=10 20 30 40 50"`
}
