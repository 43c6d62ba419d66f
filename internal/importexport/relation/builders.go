package relation

import (
	"strings"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/reader"
	"github.com/ALT-F4-LLC/treeport/internal/model"
)

func buildLabel(attrs reader.Record, src Source, c *Context) (*Built, error) {
	created, err := timestamp("label", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	// The legacy "type" discriminator (ProjectLabel, GroupLabel) is ignored:
	// scope is decided by the object builder.
	existing, _ := attrs.Int64(reader.ExistingIDKey)
	return &Built{
		Entity: &model.Label{
			Title:       strings.TrimSpace(attrs.String("title")),
			Color:       attrs.String("color"),
			Description: attrs.String("description"),
			CreatedAt:   created,
		},
		SourceID:   src.ID,
		ExistingID: existing,
	}, nil
}

func buildMilestone(attrs reader.Record, src Source, c *Context) (*Built, error) {
	created, err := timestamp("milestone", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	updated, err := timestamp("milestone", attrs, "updated_at", c)
	if err != nil {
		return nil, err
	}
	start, err := optionalTime("milestone", attrs, "start_date")
	if err != nil {
		return nil, err
	}
	due, err := optionalTime("milestone", attrs, "due_date")
	if err != nil {
		return nil, err
	}

	state := model.MilestoneState(attrs.String("state"))
	if state == "" {
		state = model.MilestoneActive
	}
	iid, _ := attrs.Int64("iid")
	existing, _ := attrs.Int64(reader.ExistingIDKey)

	return &Built{
		Entity: &model.Milestone{
			IID:         iid,
			Title:       strings.TrimSpace(attrs.String("title")),
			Description: attrs.String("description"),
			State:       state,
			StartDate:   start,
			DueDate:     due,
			CreatedAt:   created,
			UpdatedAt:   updated,
		},
		SourceID:   src.ID,
		ExistingID: existing,
	}, nil
}

// milestoneRef returns the belongs-to milestone resolved for this record.
func milestoneRef(c *Context) *int64 {
	if id, ok := c.Refs["milestone"]; ok && id > 0 {
		return &id
	}
	return nil
}

func buildIssue(attrs reader.Record, src Source, c *Context) (*Built, error) {
	b := &Built{SourceID: src.ID}

	created, err := timestamp("issue", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	updated, err := timestamp("issue", attrs, "updated_at", c)
	if err != nil {
		return nil, err
	}
	closed, err := optionalTime("issue", attrs, "closed_at")
	if err != nil {
		return nil, err
	}

	state := model.IssuableState(attrs.String("state"))
	if state == "" || state == "reopened" {
		state = model.StateOpened
	}

	author, _ := actor(attrs, "author", c, b)
	assignee := optionalActor(attrs, "assignee", c, b)
	if assignee == nil {
		// Older exports list assignees as a nested relation; the first wins.
		if legacy := attrs.Records("issue_assignees"); len(legacy) > 0 {
			assignee = optionalActor(legacy[0], "user", c, b)
		}
	}
	iid, _ := attrs.Int64("iid")

	b.Entity = &model.Issue{
		ProjectID:    c.ProjectID,
		IID:          iid,
		Title:        attrs.String("title"),
		Description:  attrs.String("description"),
		State:        state,
		AuthorID:     author,
		AssigneeID:   assignee,
		MilestoneID:  milestoneRef(c),
		Confidential: attrs.Bool("confidential"),
		CreatedAt:    created,
		UpdatedAt:    updated,
		ClosedAt:     closed,
	}
	return b, nil
}

func buildMergeRequest(attrs reader.Record, src Source, c *Context) (*Built, error) {
	b := &Built{SourceID: src.ID}

	created, err := timestamp("merge_request", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	updated, err := timestamp("merge_request", attrs, "updated_at", c)
	if err != nil {
		return nil, err
	}

	state := model.IssuableState(attrs.String("state"))
	switch state {
	case "", "reopened", "locked":
		state = model.StateOpened
	}

	author, _ := actor(attrs, "author", c, b)
	assignee := optionalActor(attrs, "assignee", c, b)
	iid, _ := attrs.Int64("iid")

	b.Entity = &model.MergeRequest{
		ProjectID:    c.ProjectID,
		IID:          iid,
		Title:        attrs.String("title"),
		Description:  attrs.String("description"),
		SourceBranch: attrs.String("source_branch"),
		TargetBranch: attrs.String("target_branch"),
		State:        state,
		AuthorID:     author,
		AssigneeID:   assignee,
		MilestoneID:  milestoneRef(c),
		CreatedAt:    created,
		UpdatedAt:    updated,
	}
	return b, nil
}

func buildMergeRequestDiff(attrs reader.Record, src Source, c *Context) (*Built, error) {
	if c.Parent.Kind != model.KindMergeRequest {
		return nil, invalid("merge_request_diff", "parent is %q, not a merge request", c.Parent.Kind)
	}
	created, err := timestamp("merge_request_diff", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	return &Built{
		Entity: &model.MergeRequestDiff{
			MergeRequestID: c.Parent.ID,
			State:          attrs.String("state"),
			BaseCommitSHA:  attrs.String("base_commit_sha"),
			HeadCommitSHA:  attrs.String("head_commit_sha"),
			StartCommitSHA: attrs.String("start_commit_sha"),
			RealSize:       attrs.String("real_size"),
			CreatedAt:      created,
		},
		SourceID: src.ID,
	}, nil
}

func buildNote(attrs reader.Record, src Source, c *Context) (*Built, error) {
	// Commit notes have no destination counterpart.
	if attrs.String("noteable_type") == "Commit" {
		return nil, nil
	}
	switch c.Parent.Kind {
	case model.KindIssue, model.KindMergeRequest:
	default:
		return nil, nil
	}

	b := &Built{SourceID: src.ID}

	created, err := timestamp("note", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	updated, err := timestamp("note", attrs, "updated_at", c)
	if err != nil {
		return nil, err
	}

	pos, err := position(attrs["position"])
	if err != nil {
		return nil, invalid("note", "position: %v", err)
	}

	var typ model.NoteType
	switch attrs.String("type") {
	case "DiffNote":
		typ = model.NoteTypeDiff
		if pos == "" {
			typ = model.NoteTypeDiscussion
		}
	case "DiscussionNote", "LegacyDiffNote":
		typ = model.NoteTypeDiscussion
	}
	if typ != model.NoteTypeDiff {
		pos = ""
	}

	author, unresolved := actor(attrs, "author", c, b)
	body := attrs.String("note")
	if unresolved != "" && body != "" {
		body = "*By " + unresolved + " on " + created.Format(importedStampLayout) + " (imported)*\n\n" + body
	}

	discussionID := attrs.String("discussion_id")
	var replyTo *int64
	if discussionID != "" && c.Discussion != nil {
		if root, ok := c.Discussion(c.Parent, discussionID); ok {
			replyTo = &root
		}
	}

	b.DiscussionID = discussionID
	b.Entity = &model.Note{
		ProjectID:     c.ProjectID,
		NoteableType:  c.Parent.Kind,
		NoteableID:    c.Parent.ID,
		Type:          typ,
		Body:          body,
		AuthorID:      author,
		DiscussionID:  discussionID,
		ReplyToNoteID: replyTo,
		System:        attrs.Bool("system"),
		Position:      pos,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
	return b, nil
}

func buildSystemNoteMetadata(attrs reader.Record, src Source, c *Context) (*Built, error) {
	if c.Parent.Kind != model.KindNote {
		return nil, invalid("system_note_metadata", "parent is %q, not a note", c.Parent.Kind)
	}
	created, err := timestamp("system_note_metadata", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	count, _ := attrs.Int64("commit_count")
	return &Built{
		Entity: &model.SystemNoteMetadata{
			NoteID:      c.Parent.ID,
			Action:      attrs.String("action"),
			CommitCount: count,
			CreatedAt:   created,
		},
		SourceID: src.ID,
	}, nil
}

func buildAwardEmoji(attrs reader.Record, src Source, c *Context) (*Built, error) {
	if c.Parent.IsZero() {
		return nil, nil
	}
	b := &Built{SourceID: src.ID}
	created, err := timestamp("award_emoji", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	user, _ := actor(attrs, "user", c, b)
	b.Entity = &model.AwardEmoji{
		AwardableType: c.Parent.Kind,
		AwardableID:   c.Parent.ID,
		Name:          attrs.String("name"),
		UserID:        user,
		CreatedAt:     created,
	}
	return b, nil
}

func buildLabelLink(attrs reader.Record, src Source, c *Context) (*Built, error) {
	labelID, ok := c.Refs["label"]
	if !ok || labelID <= 0 || c.Parent.IsZero() {
		return nil, nil
	}
	created, err := timestamp("label_link", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	return &Built{
		Entity: &model.LabelLink{
			LabelID:    labelID,
			TargetType: c.Parent.Kind,
			TargetID:   c.Parent.ID,
			CreatedAt:  created,
		},
		SourceID: src.ID,
	}, nil
}

// eventTargets maps exported target_type values to destination kinds.
var eventTargets = map[string]model.Kind{
	"Issue":        model.KindIssue,
	"MergeRequest": model.KindMergeRequest,
}

func eventCategory(k model.Kind) (model.EventCategory, bool) {
	switch k {
	case model.KindIssue:
		return model.EventCategoryIssue, true
	case model.KindMergeRequest:
		return model.EventCategoryMergeRequest, true
	}
	return "", false
}

func buildEvent(attrs reader.Record, src Source, c *Context) (*Built, error) {
	// Without an action the event says nothing.
	raw, ok := attrs["action"]
	if !ok || raw == nil || attrs.String("action") == "" {
		return nil, nil
	}
	var action model.EventAction
	if code, numeric := reader.ToInt64(raw); numeric {
		a, known := model.EventActionFromCode(code)
		if !known {
			return nil, invalid("event", "unknown action code %d", code)
		}
		action = a
	} else {
		action = model.EventAction(strings.ToLower(attrs.String("action")))
	}

	ev := &model.Event{
		ProjectID: c.ProjectID,
		Category:  model.EventCategoryProject,
		Action:    action,
	}

	if !c.Parent.IsZero() {
		category, ok := eventCategory(c.Parent.Kind)
		if !ok {
			return nil, nil
		}
		id := c.Parent.ID
		ev.Category, ev.TargetType, ev.TargetID = category, c.Parent.Kind, &id
	} else if tt := attrs.String("target_type"); tt != "" {
		kind, ok := eventTargets[tt]
		if !ok {
			return nil, nil
		}
		id, ok := c.lookup(kind, src.TargetID)
		if !ok {
			return nil, nil
		}
		category, _ := eventCategory(kind)
		ev.Category, ev.TargetType, ev.TargetID = category, kind, &id
	}

	b := &Built{SourceID: src.ID}
	created, err := timestamp("event", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	ev.CreatedAt = created
	ev.AuthorID, _ = actor(attrs, "author", c, b)
	b.Entity = ev
	return b, nil
}

func buildPipeline(attrs reader.Record, src Source, c *Context) (*Built, error) {
	status := model.PipelineStatus(attrs.String("status"))
	if !model.ValidPipelineStatus(status) {
		return nil, nil
	}

	b := &Built{SourceID: src.ID}
	created, err := timestamp("ci_pipeline", attrs, "created_at", c)
	if err != nil {
		return nil, err
	}
	finished, err := optionalTime("ci_pipeline", attrs, "finished_at")
	if err != nil {
		return nil, err
	}

	var mr *int64
	if id, ok := c.lookup(model.KindMergeRequest, src.MergeRequestID); ok {
		mr = &id
	}
	iid, _ := attrs.Int64("iid")

	b.Entity = &model.Pipeline{
		ProjectID:      c.ProjectID,
		IID:            iid,
		Ref:            attrs.String("ref"),
		SHA:            attrs.String("sha"),
		Status:         status,
		Source:         attrs.String("source"),
		UserID:         optionalActor(attrs, "user", c, b),
		MergeRequestID: mr,
		CreatedAt:      created,
		FinishedAt:     finished,
	}
	return b, nil
}
