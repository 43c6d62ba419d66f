package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// CreateGroup inserts a group.
func (s *Store) CreateGroup(ctx context.Context, g *model.Group) (int64, error) {
	if err := check("group", g); err != nil {
		return 0, err
	}
	id, err := s.insert(ctx, "group",
		`INSERT INTO groups (name, path) VALUES (?, ?)`, g.Name, g.Path)
	if err != nil {
		return 0, err
	}
	g.ID = id
	return id, nil
}

// GetGroupByPath returns the group with the given path.
func (s *Store) GetGroupByPath(ctx context.Context, path string) (*model.Group, error) {
	var g model.Group
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, path FROM groups WHERE path = ?`, path,
	).Scan(&g.ID, &g.Name, &g.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting group %q: %w", path, err)
	}
	return &g, nil
}

const projectColumns = `id, group_id, name, path, COALESCE(description, ''), visibility,
	COALESCE(default_branch, ''), archived, created_at, updated_at`

func scanProject(sc scanner) (*model.Project, error) {
	var p model.Project
	var groupID sql.NullInt64
	var archived int
	var createdAt, updatedAt string
	if err := sc.Scan(&p.ID, &groupID, &p.Name, &p.Path, &p.Description, &p.Visibility,
		&p.DefaultBranch, &archived, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.GroupID = ptrInt(groupID)
	p.Archived = archived != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// CreateProject inserts a project.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) (int64, error) {
	if p.Visibility == "" {
		p.Visibility = model.VisibilityPrivate
	}
	if err := check(model.KindProject, p); err != nil {
		return 0, err
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	id, err := s.insert(ctx, model.KindProject,
		`INSERT INTO projects (group_id, name, path, description, visibility, default_branch,
		 archived, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt(p.GroupID), p.Name, p.Path, nullString(p.Description), string(p.Visibility),
		nullString(p.DefaultBranch), boolInt(p.Archived), stamp(p.CreatedAt), stamp(p.UpdatedAt),
	)
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

// GetProject returns the project with the given id.
func (s *Store) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	p, err := scanProject(s.q.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %d: %w", id, err)
	}
	return p, nil
}

// GetProjectByPath returns the project with the given path.
func (s *Store) GetProjectByPath(ctx context.Context, path string) (*model.Project, error) {
	p, err := scanProject(s.q.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %q: %w", path, err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by path.
func (s *Store) ListProjects(ctx context.Context) ([]*model.Project, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// validUpdateFields is the allowlist of columns that UpdateProject may modify.
var validUpdateFields = map[string]bool{
	"description":    true,
	"visibility":     true,
	"default_branch": true,
	"archived":       true,
}

// UpdateProject applies root attributes to a project. Field names are
// validated against an allowlist; updated_at is always set.
func (s *Store) UpdateProject(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !validUpdateFields[k] {
			return invalid(model.KindProject, fmt.Errorf("unknown field %q", k))
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	setClauses := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+2)
	for _, k := range keys {
		v := fields[k]
		switch k {
		case "visibility":
			vis, ok := v.(model.Visibility)
			if !ok {
				str, _ := v.(string)
				vis = model.Visibility(str)
			}
			if err := model.ValidateVisibility(vis); err != nil {
				return invalid(model.KindProject, err)
			}
			v = string(vis)
		case "archived":
			b, ok := v.(bool)
			if !ok {
				return invalid(model.KindProject, fmt.Errorf("archived must be a boolean, got %T", v))
			}
			v = boolInt(b)
		default:
			str, ok := v.(string)
			if !ok {
				return invalid(model.KindProject, fmt.Errorf("%s must be a string, got %T", k, v))
			}
			v = nullString(str)
		}
		setClauses = append(setClauses, k+" = ?")
		args = append(args, v)
	}
	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, stamp(time.Now()), id)

	query := "UPDATE projects SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating project %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return nil
}

// ClearProject removes every restored relation row of a project while keeping
// the project and its members.
func (s *Store) ClearProject(ctx context.Context, projectID int64) error {
	stmts := []string{
		`DELETE FROM award_emoji WHERE
			(awardable_type = 'issue' AND awardable_id IN (SELECT id FROM issues WHERE project_id = ?1))
			OR (awardable_type = 'merge_request' AND awardable_id IN (SELECT id FROM merge_requests WHERE project_id = ?1))
			OR (awardable_type = 'note' AND awardable_id IN (SELECT id FROM notes WHERE project_id = ?1))`,
		`DELETE FROM label_links WHERE
			(target_type = 'issue' AND target_id IN (SELECT id FROM issues WHERE project_id = ?1))
			OR (target_type = 'merge_request' AND target_id IN (SELECT id FROM merge_requests WHERE project_id = ?1))`,
		`DELETE FROM notes WHERE project_id = ?1`,
		`DELETE FROM events WHERE project_id = ?1`,
		`DELETE FROM ci_pipelines WHERE project_id = ?1`,
		`DELETE FROM merge_requests WHERE project_id = ?1`,
		`DELETE FROM issues WHERE project_id = ?1`,
		`DELETE FROM labels WHERE project_id = ?1`,
		`DELETE FROM milestones WHERE project_id = ?1`,
	}
	for _, stmt := range stmts {
		if _, err := s.q.ExecContext(ctx, stmt, projectID); err != nil {
			return fmt.Errorf("clearing project %d: %w", projectID, err)
		}
	}
	return nil
}

// AddMember grants access to a project. An existing membership is only ever
// raised, never lowered.
func (s *Store) AddMember(ctx context.Context, m *model.ProjectMember) error {
	if err := check("project_member", m); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id, access_level) VALUES (?, ?, ?)
		 ON CONFLICT (project_id, user_id)
		 DO UPDATE SET access_level = max(access_level, excluded.access_level)`,
		m.ProjectID, m.UserID, int(m.AccessLevel),
	)
	if err != nil {
		return fmt.Errorf("adding member %d to project %d: %w", m.UserID, m.ProjectID, err)
	}
	return nil
}

// MemberAccessLevel returns the access level userID holds on projectID.
func (s *Store) MemberAccessLevel(ctx context.Context, projectID, userID int64) (model.AccessLevel, bool, error) {
	var level int
	err := s.q.QueryRowContext(ctx,
		`SELECT access_level FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccessNone, false, nil
	}
	if err != nil {
		return model.AccessNone, false, fmt.Errorf("getting access level: %w", err)
	}
	return model.AccessLevel(level), true, nil
}

// Member pairs a user with their access level on a project.
type Member struct {
	User        *model.User
	AccessLevel model.AccessLevel
}

// ListMembers returns the members of a project ordered by username.
func (s *Store) ListMembers(ctx context.Context, projectID int64) ([]Member, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT u.id, u.username, COALESCE(u.email, ''), COALESCE(u.name, ''), u.admin, u.ghost, m.access_level
		 FROM project_members m JOIN users u ON u.id = m.user_id
		 WHERE m.project_id = ? ORDER BY u.username`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var u model.User
		var admin, ghost, level int
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &admin, &ghost, &level); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		u.Admin = admin != 0
		u.Ghost = ghost != 0
		members = append(members, Member{User: &u, AccessLevel: model.AccessLevel(level)})
	}
	return members, rows.Err()
}
