package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// sharedTables maps shared entity kinds to the table holding them.
var sharedTables = map[model.Kind]string{
	model.KindLabel:     "labels",
	model.KindMilestone: "milestones",
}

// FindExisting looks up a shared entity by title. A scope with a project id
// searches that project; otherwise the group id is used.
func (s *Store) FindExisting(ctx context.Context, kind model.Kind, key string, scope model.Scope) (int64, bool, error) {
	table, ok := sharedTables[kind]
	if !ok {
		return 0, false, fmt.Errorf("finding %s: not a shared entity", kind)
	}

	var column string
	var owner int64
	switch {
	case scope.ProjectID != 0:
		column, owner = "project_id", scope.ProjectID
	case scope.GroupID != 0:
		column, owner = "group_id", scope.GroupID
	default:
		return 0, false, nil
	}

	var id int64
	err := s.q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE %s = ? AND title = ?`, table, column),
		owner, key,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("finding %s %q: %w", kind, key, err)
	}
	return id, true, nil
}

// GroupCatalog returns the titles of a group's labels and milestones mapped
// to their ids.
func (s *Store) GroupCatalog(ctx context.Context, groupID int64) (labels, milestones map[string]int64, err error) {
	labels, err = s.titles(ctx, "labels", groupID)
	if err != nil {
		return nil, nil, err
	}
	milestones, err = s.titles(ctx, "milestones", groupID)
	if err != nil {
		return nil, nil, err
	}
	return labels, milestones, nil
}

func (s *Store) titles(ctx context.Context, table string, groupID int64) (map[string]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, title FROM %s WHERE group_id = ?`, table), groupID)
	if err != nil {
		return nil, fmt.Errorf("listing group %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scanning group %s: %w", table, err)
		}
		out[title] = id
	}
	return out, rows.Err()
}

// SetLatestMergeRequestDiffIDs points every merge request of a project at its
// newest diff. Running it again yields the same result.
func (s *Store) SetLatestMergeRequestDiffIDs(ctx context.Context, projectID int64) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE merge_requests
		 SET latest_merge_request_diff_id = (
			SELECT max(d.id) FROM merge_request_diffs d WHERE d.merge_request_id = merge_requests.id
		 )
		 WHERE project_id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("setting latest merge request diff ids: %w", err)
	}
	return nil
}
