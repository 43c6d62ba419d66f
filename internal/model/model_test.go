package model

import (
	"encoding/json"
	"testing"
)

func TestParseAccessLevel(t *testing.T) {
	tests := []struct {
		input   any
		want    AccessLevel
		wantErr bool
	}{
		{"reporter", AccessReporter, false},
		{"Maintainer", AccessMaintainer, false},
		{"30", AccessDeveloper, false},
		{float64(40), AccessMaintainer, false},
		{json.Number("50"), AccessOwner, false},
		{10, AccessGuest, false},
		{int64(20), AccessReporter, false},
		{"admin", AccessNone, true},
		{15, AccessNone, true},
		{json.Number("x"), AccessNone, true},
		{true, AccessNone, true},
	}

	for _, tt := range tests {
		got, err := ParseAccessLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAccessLevel(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAccessLevel(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAccessLevelString(t *testing.T) {
	if got := AccessReporter.String(); got != "reporter" {
		t.Errorf("AccessReporter.String() = %q, want %q", got, "reporter")
	}
	if got := AccessLevel(7).String(); got != "7" {
		t.Errorf("AccessLevel(7).String() = %q, want %q", got, "7")
	}
}

func TestAccessLevelMin(t *testing.T) {
	if got := AccessOwner.Min(AccessDeveloper); got != AccessDeveloper {
		t.Errorf("Owner.Min(Developer) = %v, want developer", got)
	}
	if got := AccessGuest.Min(AccessMaintainer); got != AccessGuest {
		t.Errorf("Guest.Min(Maintainer) = %v, want guest", got)
	}
}

func TestValidateVisibility(t *testing.T) {
	for _, v := range []Visibility{VisibilityPrivate, VisibilityInternal, VisibilityPublic} {
		if err := ValidateVisibility(v); err != nil {
			t.Errorf("ValidateVisibility(%q) unexpected error: %v", v, err)
		}
	}
	if err := ValidateVisibility("secret"); err == nil {
		t.Error("ValidateVisibility('secret') expected error, got nil")
	}
}

func TestVisibilityFromLevel(t *testing.T) {
	tests := []struct {
		level  int64
		want   Visibility
		wantOK bool
	}{
		{0, VisibilityPrivate, true},
		{10, VisibilityInternal, true},
		{20, VisibilityPublic, true},
		{5, "", false},
	}
	for _, tt := range tests {
		got, ok := VisibilityFromLevel(tt.level)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("VisibilityFromLevel(%d) = (%q, %v), want (%q, %v)", tt.level, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestValidateIssueAndMergeRequestStates(t *testing.T) {
	if err := ValidateIssueState(StateOpened); err != nil {
		t.Errorf("ValidateIssueState(opened) unexpected error: %v", err)
	}
	if err := ValidateIssueState(StateMerged); err == nil {
		t.Error("ValidateIssueState(merged) expected error, got nil")
	}
	if err := ValidateMergeRequestState(StateMerged); err != nil {
		t.Errorf("ValidateMergeRequestState(merged) unexpected error: %v", err)
	}
	if err := ValidateMergeRequestState("reopened"); err == nil {
		t.Error("ValidateMergeRequestState(reopened) expected error, got nil")
	}
}

func TestEventActionFromCode(t *testing.T) {
	if a, ok := EventActionFromCode(7); !ok || a != EventMerged {
		t.Errorf("EventActionFromCode(7) = (%q, %v), want (merged, true)", a, ok)
	}
	if _, ok := EventActionFromCode(99); ok {
		t.Error("EventActionFromCode(99) expected not ok")
	}
	if !ValidEventAction(EventCommented) {
		t.Error("ValidEventAction(commented) = false, want true")
	}
	if ValidEventAction("teleported") {
		t.Error("ValidEventAction(teleported) = true, want false")
	}
}

func TestValidPipelineStatus(t *testing.T) {
	if !ValidPipelineStatus("success") {
		t.Error("ValidPipelineStatus(success) = false, want true")
	}
	if ValidPipelineStatus("exploded") {
		t.Error("ValidPipelineStatus(exploded) = true, want false")
	}
}

func TestEntityKinds(t *testing.T) {
	tests := []struct {
		entity Entity
		want   Kind
	}{
		{&Label{}, KindLabel},
		{&LabelLink{}, KindLabelLink},
		{&Milestone{}, KindMilestone},
		{&Issue{}, KindIssue},
		{&MergeRequest{}, KindMergeRequest},
		{&MergeRequestDiff{}, KindMergeRequestDiff},
		{&Note{}, KindNote},
		{&SystemNoteMetadata{}, KindSystemNoteMetadata},
		{&AwardEmoji{}, KindAwardEmoji},
		{&Event{}, KindEvent},
		{&Pipeline{}, KindPipeline},
	}
	for _, tt := range tests {
		if got := tt.entity.EntityKind(); got != tt.want {
			t.Errorf("%T.EntityKind() = %q, want %q", tt.entity, got, tt.want)
		}
	}
}

func TestValidateNoteType(t *testing.T) {
	for _, nt := range []NoteType{NoteTypePlain, NoteTypeDiscussion, NoteTypeDiff} {
		if err := ValidateNoteType(nt); err != nil {
			t.Errorf("ValidateNoteType(%q) unexpected error: %v", nt, err)
		}
	}
	if err := ValidateNoteType("LegacyDiffNote"); err == nil {
		t.Error("ValidateNoteType(LegacyDiffNote) expected error, got nil")
	}
}
