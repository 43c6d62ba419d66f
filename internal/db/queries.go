package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// relationCounts lists the per-project count queries reported by
// CountRelations, keyed by relation name.
var relationCounts = map[string]string{
	"project_members":      `SELECT COUNT(*) FROM project_members WHERE project_id = ?1`,
	"labels":               `SELECT COUNT(*) FROM labels WHERE project_id = ?1`,
	"milestones":           `SELECT COUNT(*) FROM milestones WHERE project_id = ?1`,
	"issues":               `SELECT COUNT(*) FROM issues WHERE project_id = ?1`,
	"merge_requests":       `SELECT COUNT(*) FROM merge_requests WHERE project_id = ?1`,
	"merge_request_diffs":  `SELECT COUNT(*) FROM merge_request_diffs d JOIN merge_requests m ON m.id = d.merge_request_id WHERE m.project_id = ?1`,
	"notes":                `SELECT COUNT(*) FROM notes WHERE project_id = ?1`,
	"system_note_metadata": `SELECT COUNT(*) FROM system_note_metadata s JOIN notes n ON n.id = s.note_id WHERE n.project_id = ?1`,
	"events":               `SELECT COUNT(*) FROM events WHERE project_id = ?1`,
	"ci_pipelines":         `SELECT COUNT(*) FROM ci_pipelines WHERE project_id = ?1`,
	"label_links": `SELECT COUNT(*) FROM label_links WHERE
		(target_type = 'issue' AND target_id IN (SELECT id FROM issues WHERE project_id = ?1))
		OR (target_type = 'merge_request' AND target_id IN (SELECT id FROM merge_requests WHERE project_id = ?1))`,
	"award_emoji": `SELECT COUNT(*) FROM award_emoji WHERE
		(awardable_type = 'issue' AND awardable_id IN (SELECT id FROM issues WHERE project_id = ?1))
		OR (awardable_type = 'merge_request' AND awardable_id IN (SELECT id FROM merge_requests WHERE project_id = ?1))
		OR (awardable_type = 'note' AND awardable_id IN (SELECT id FROM notes WHERE project_id = ?1))`,
}

// CountRelations returns the number of persisted rows per relation for a
// project.
func (s *Store) CountRelations(ctx context.Context, projectID int64) (map[string]int, error) {
	counts := make(map[string]int, len(relationCounts))
	for name, query := range relationCounts {
		var n int
		if err := s.q.QueryRowContext(ctx, query, projectID).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// ListIssues returns a project's issues in creation order.
func (s *Store) ListIssues(ctx context.Context, projectID int64) ([]*model.Issue, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, project_id, COALESCE(iid, 0), title, COALESCE(description, ''), state,
		 author_id, assignee_id, milestone_id, confidential, created_at, updated_at, closed_at
		 FROM issues WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	var issues []*model.Issue
	for rows.Next() {
		var i model.Issue
		var assignee, milestone sql.NullInt64
		var confidential int
		var createdAt, updatedAt string
		var closedAt sql.NullString
		if err := rows.Scan(&i.ID, &i.ProjectID, &i.IID, &i.Title, &i.Description, &i.State,
			&i.AuthorID, &assignee, &milestone, &confidential, &createdAt, &updatedAt,
			&closedAt); err != nil {
			return nil, fmt.Errorf("scanning issue: %w", err)
		}
		i.AssigneeID = ptrInt(assignee)
		i.MilestoneID = ptrInt(milestone)
		i.Confidential = confidential != 0
		i.CreatedAt = parseTime(createdAt)
		i.UpdatedAt = parseTime(updatedAt)
		i.ClosedAt = parseNullTime(closedAt)
		issues = append(issues, &i)
	}
	return issues, rows.Err()
}

// ListMergeRequests returns a project's merge requests in creation order.
func (s *Store) ListMergeRequests(ctx context.Context, projectID int64) ([]*model.MergeRequest, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, project_id, COALESCE(iid, 0), title, COALESCE(description, ''),
		 source_branch, target_branch, state, author_id, assignee_id, milestone_id,
		 latest_merge_request_diff_id, created_at, updated_at
		 FROM merge_requests WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing merge requests: %w", err)
	}
	defer rows.Close()

	var mrs []*model.MergeRequest
	for rows.Next() {
		var mr model.MergeRequest
		var assignee, milestone, latest sql.NullInt64
		var createdAt, updatedAt string
		if err := rows.Scan(&mr.ID, &mr.ProjectID, &mr.IID, &mr.Title, &mr.Description,
			&mr.SourceBranch, &mr.TargetBranch, &mr.State, &mr.AuthorID, &assignee,
			&milestone, &latest, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning merge request: %w", err)
		}
		mr.AssigneeID = ptrInt(assignee)
		mr.MilestoneID = ptrInt(milestone)
		mr.LatestMergeRequestDiffID = ptrInt(latest)
		mr.CreatedAt = parseTime(createdAt)
		mr.UpdatedAt = parseTime(updatedAt)
		mrs = append(mrs, &mr)
	}
	return mrs, rows.Err()
}

// ListNotes returns a project's notes in creation order.
func (s *Store) ListNotes(ctx context.Context, projectID int64) ([]*model.Note, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, project_id, noteable_type, noteable_id, COALESCE(type, ''), note, author_id,
		 COALESCE(discussion_id, ''), reply_to_note_id, system, COALESCE(position, ''),
		 created_at, updated_at
		 FROM notes WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var notes []*model.Note
	for rows.Next() {
		var n model.Note
		var replyTo sql.NullInt64
		var system int
		var createdAt, updatedAt string
		if err := rows.Scan(&n.ID, &n.ProjectID, &n.NoteableType, &n.NoteableID, &n.Type,
			&n.Body, &n.AuthorID, &n.DiscussionID, &replyTo, &system, &n.Position,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		n.ReplyToNoteID = ptrInt(replyTo)
		n.System = system != 0
		n.CreatedAt = parseTime(createdAt)
		n.UpdatedAt = parseTime(updatedAt)
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

// ListLabels returns the labels owned by a scope, ordered by title.
func (s *Store) ListLabels(ctx context.Context, scope model.Scope) ([]*model.Label, error) {
	column, owner := "project_id", scope.ProjectID
	if owner == 0 {
		column, owner = "group_id", scope.GroupID
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, COALESCE(project_id, 0), COALESCE(group_id, 0), title, COALESCE(color, ''),
		 COALESCE(description, ''), created_at
		 FROM labels WHERE `+column+` = ? ORDER BY title`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	defer rows.Close()

	var labels []*model.Label
	for rows.Next() {
		var l model.Label
		var createdAt string
		if err := rows.Scan(&l.ID, &l.ProjectID, &l.GroupID, &l.Title, &l.Color,
			&l.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning label: %w", err)
		}
		l.CreatedAt = parseTime(createdAt)
		labels = append(labels, &l)
	}
	return labels, rows.Err()
}
