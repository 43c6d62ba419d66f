package model

import "time"

// EventAction is what happened in an event.
type EventAction string

const (
	EventCreated   EventAction = "created"
	EventUpdated   EventAction = "updated"
	EventClosed    EventAction = "closed"
	EventReopened  EventAction = "reopened"
	EventPushed    EventAction = "pushed"
	EventCommented EventAction = "commented"
	EventMerged    EventAction = "merged"
	EventJoined    EventAction = "joined"
	EventLeft      EventAction = "left"
	EventDestroyed EventAction = "destroyed"
	EventExpired   EventAction = "expired"
)

// legacyEventActions maps the numeric action codes of older exports.
var legacyEventActions = map[int64]EventAction{
	1:  EventCreated,
	2:  EventUpdated,
	3:  EventClosed,
	4:  EventReopened,
	5:  EventPushed,
	6:  EventCommented,
	7:  EventMerged,
	8:  EventJoined,
	9:  EventLeft,
	10: EventDestroyed,
	11: EventExpired,
}

// EventActionFromCode maps a numeric action code to its name.
func EventActionFromCode(code int64) (EventAction, bool) {
	a, ok := legacyEventActions[code]
	return a, ok
}

// ValidEventAction reports whether a is a known action.
func ValidEventAction(a EventAction) bool {
	for _, v := range legacyEventActions {
		if v == a {
			return true
		}
	}
	return false
}

// EventCategory is the concrete event subtype selected from the target type.
type EventCategory string

const (
	EventCategoryProject      EventCategory = "project"
	EventCategoryIssue        EventCategory = "issue"
	EventCategoryMergeRequest EventCategory = "merge_request"
)

// Event is a project activity record.
type Event struct {
	ID         int64
	ProjectID  int64         `validate:"required"`
	Category   EventCategory `validate:"oneof=project issue merge_request"`
	AuthorID   int64         `validate:"required"`
	Action     EventAction   `validate:"required"`
	TargetType Kind
	TargetID   *int64
	CreatedAt  time.Time
}

func (Event) EntityKind() Kind { return KindEvent }
