package db

import (
	"context"
	"fmt"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// Create validates and inserts e, returning its new row id.
func (s *Store) Create(ctx context.Context, e model.Entity) (int64, error) {
	switch v := e.(type) {
	case *model.Label:
		return s.createLabel(ctx, v)
	case *model.Milestone:
		return s.createMilestone(ctx, v)
	case *model.LabelLink:
		return s.createLabelLink(ctx, v)
	case *model.Issue:
		return s.createIssue(ctx, v)
	case *model.MergeRequest:
		return s.createMergeRequest(ctx, v)
	case *model.MergeRequestDiff:
		return s.createMergeRequestDiff(ctx, v)
	case *model.Note:
		return s.createNote(ctx, v)
	case *model.SystemNoteMetadata:
		return s.createSystemNoteMetadata(ctx, v)
	case *model.AwardEmoji:
		return s.createAwardEmoji(ctx, v)
	case *model.Event:
		return s.createEvent(ctx, v)
	case *model.Pipeline:
		return s.createPipeline(ctx, v)
	default:
		return 0, fmt.Errorf("creating %T: unsupported entity", e)
	}
}

func (s *Store) insert(ctx context.Context, kind model.Kind, query string, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting %s: %w", kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting %s id: %w", kind, err)
	}
	return id, nil
}

func (s *Store) createLabel(ctx context.Context, l *model.Label) (int64, error) {
	if err := check(model.KindLabel, l); err != nil {
		return 0, err
	}
	if l.ProjectID == 0 && l.GroupID == 0 {
		return 0, invalid(model.KindLabel, fmt.Errorf("label %q has no scope", l.Title))
	}
	id, err := s.insert(ctx, model.KindLabel,
		`INSERT INTO labels (project_id, group_id, title, color, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nullID(l.ProjectID), nullID(l.GroupID), l.Title, nullString(l.Color),
		nullString(l.Description), stamp(l.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	l.ID = id
	return id, nil
}

func (s *Store) createMilestone(ctx context.Context, m *model.Milestone) (int64, error) {
	if m.State == "" {
		m.State = model.MilestoneActive
	}
	if err := check(model.KindMilestone, m); err != nil {
		return 0, err
	}
	if m.ProjectID == 0 && m.GroupID == 0 {
		return 0, invalid(model.KindMilestone, fmt.Errorf("milestone %q has no scope", m.Title))
	}
	id, err := s.insert(ctx, model.KindMilestone,
		`INSERT INTO milestones (project_id, group_id, iid, title, description, state,
		 start_date, due_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullID(m.ProjectID), nullID(m.GroupID), nullID(m.IID), m.Title,
		nullString(m.Description), string(m.State), nullTime(m.StartDate),
		nullTime(m.DueDate), stamp(m.CreatedAt), stamp(m.UpdatedAt),
	)
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (s *Store) createLabelLink(ctx context.Context, l *model.LabelLink) (int64, error) {
	if err := check(model.KindLabelLink, l); err != nil {
		return 0, err
	}
	id, err := s.insert(ctx, model.KindLabelLink,
		`INSERT INTO label_links (label_id, target_type, target_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		l.LabelID, string(l.TargetType), l.TargetID, stamp(l.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	l.ID = id
	return id, nil
}

func (s *Store) createIssue(ctx context.Context, i *model.Issue) (int64, error) {
	if err := check(model.KindIssue, i); err != nil {
		return 0, err
	}
	id, err := s.insert(ctx, model.KindIssue,
		`INSERT INTO issues (project_id, iid, title, description, state, author_id,
		 assignee_id, milestone_id, confidential, created_at, updated_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ProjectID, nullID(i.IID), i.Title, nullString(i.Description), string(i.State),
		i.AuthorID, nullInt(i.AssigneeID), nullInt(i.MilestoneID), boolInt(i.Confidential),
		stamp(i.CreatedAt), stamp(i.UpdatedAt), nullTime(i.ClosedAt),
	)
	if err != nil {
		return 0, err
	}
	i.ID = id
	return id, nil
}

func (s *Store) createMergeRequest(ctx context.Context, mr *model.MergeRequest) (int64, error) {
	if err := check(model.KindMergeRequest, mr); err != nil {
		return 0, err
	}
	id, err := s.insert(ctx, model.KindMergeRequest,
		`INSERT INTO merge_requests (project_id, iid, title, description, source_branch,
		 target_branch, state, author_id, assignee_id, milestone_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mr.ProjectID, nullID(mr.IID), mr.Title, nullString(mr.Description), mr.SourceBranch,
		mr.TargetBranch, string(mr.State), mr.AuthorID, nullInt(mr.AssigneeID),
		nullInt(mr.MilestoneID), stamp(mr.CreatedAt), stamp(mr.UpdatedAt),
	)
	if err != nil {
		return 0, err
	}
	mr.ID = id
	return id, nil
}

func (s *Store) createMergeRequestDiff(ctx context.Context, d *model.MergeRequestDiff) (int64, error) {
	if err := check(model.KindMergeRequestDiff, d); err != nil {
		return 0, err
	}
	id, err := s.insert(ctx, model.KindMergeRequestDiff,
		`INSERT INTO merge_request_diffs (merge_request_id, state, base_commit_sha,
		 head_commit_sha, start_commit_sha, real_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.MergeRequestID, nullString(d.State), nullString(d.BaseCommitSHA),
		nullString(d.HeadCommitSHA), nullString(d.StartCommitSHA), nullString(d.RealSize),
		stamp(d.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	d.ID = id
	return id, nil
}

func (s *Store) createNote(ctx context.Context, n *model.Note) (int64, error) {
	if err := check(model.KindNote, n); err != nil {
		return 0, err
	}
	if err := model.ValidateNoteType(n.Type); err != nil {
		return 0, invalid(model.KindNote, err)
	}
	id, err := s.insert(ctx, model.KindNote,
		`INSERT INTO notes (project_id, noteable_type, noteable_id, type, note, author_id,
		 discussion_id, reply_to_note_id, system, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ProjectID, string(n.NoteableType), n.NoteableID, nullString(string(n.Type)), n.Body,
		n.AuthorID, nullString(n.DiscussionID), nullInt(n.ReplyToNoteID), boolInt(n.System),
		nullString(n.Position), stamp(n.CreatedAt), stamp(n.UpdatedAt),
	)
	if err != nil {
		return 0, err
	}
	n.ID = id
	return id, nil
}

func (s *Store) createSystemNoteMetadata(ctx context.Context, m *model.SystemNoteMetadata) (int64, error) {
	if err := check(model.KindSystemNoteMetadata, m); err != nil {
		return 0, err
	}
	id, err := s.insert(ctx, model.KindSystemNoteMetadata,
		`INSERT INTO system_note_metadata (note_id, action, commit_count, created_at)
		 VALUES (?, ?, ?, ?)`,
		m.NoteID, m.Action, nullID(m.CommitCount), stamp(m.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (s *Store) createAwardEmoji(ctx context.Context, a *model.AwardEmoji) (int64, error) {
	if err := check(model.KindAwardEmoji, a); err != nil {
		return 0, err
	}
	id, err := s.insert(ctx, model.KindAwardEmoji,
		`INSERT INTO award_emoji (awardable_type, awardable_id, name, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(a.AwardableType), a.AwardableID, a.Name, a.UserID, stamp(a.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}

func (s *Store) createEvent(ctx context.Context, e *model.Event) (int64, error) {
	if err := check(model.KindEvent, e); err != nil {
		return 0, err
	}
	if !model.ValidEventAction(e.Action) {
		return 0, invalid(model.KindEvent, fmt.Errorf("unknown action %q", e.Action))
	}
	id, err := s.insert(ctx, model.KindEvent,
		`INSERT INTO events (project_id, category, author_id, action, target_type, target_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ProjectID, string(e.Category), e.AuthorID, string(e.Action),
		nullString(string(e.TargetType)), nullInt(e.TargetID), stamp(e.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	e.ID = id
	return id, nil
}

func (s *Store) createPipeline(ctx context.Context, p *model.Pipeline) (int64, error) {
	if err := check(model.KindPipeline, p); err != nil {
		return 0, err
	}
	if !model.ValidPipelineStatus(p.Status) {
		return 0, invalid(model.KindPipeline, fmt.Errorf("unknown status %q", p.Status))
	}
	id, err := s.insert(ctx, model.KindPipeline,
		`INSERT INTO ci_pipelines (project_id, iid, ref, sha, status, source, user_id,
		 merge_request_id, created_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ProjectID, nullID(p.IID), p.Ref, p.SHA, string(p.Status), nullString(p.Source),
		nullInt(p.UserID), nullInt(p.MergeRequestID), stamp(p.CreatedAt), nullTime(p.FinishedAt),
	)
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}
