package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// CreateImportRun records the start of an import.
func (s *Store) CreateImportRun(ctx context.Context, r *model.ImportRun) error {
	if r.Status == "" {
		r.Status = model.ImportStarted
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO import_runs (id, project_id, status, source, version, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.ProjectID, string(r.Status), nullString(r.Source), nullString(r.Version),
		stamp(r.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting import run: %w", err)
	}
	return nil
}

// FinishImportRun stores the outcome of an import run.
func (s *Store) FinishImportRun(ctx context.Context, r *model.ImportRun) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE import_runs SET status = ?, version = ?, created = ?, failures = ?, notices = ?,
		 warnings = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(r.Status), nullString(r.Version), r.Created, r.Failures, r.Notices, r.Warnings,
		nullString(r.Error), nullTime(r.FinishedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing import run %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("import run %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

const importRunColumns = `id, project_id, status, COALESCE(source, ''), COALESCE(version, ''),
	created, failures, notices, warnings, COALESCE(error, ''), started_at, finished_at`

func scanImportRun(sc scanner) (*model.ImportRun, error) {
	var r model.ImportRun
	var startedAt string
	var finishedAt sql.NullString
	if err := sc.Scan(&r.ID, &r.ProjectID, &r.Status, &r.Source, &r.Version, &r.Created,
		&r.Failures, &r.Notices, &r.Warnings, &r.Error, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(startedAt)
	r.FinishedAt = parseNullTime(finishedAt)
	return &r, nil
}

// LatestImportRun returns the most recently started import run of a project.
func (s *Store) LatestImportRun(ctx context.Context, projectID int64) (*model.ImportRun, error) {
	r, err := scanImportRun(s.q.QueryRowContext(ctx,
		`SELECT `+importRunColumns+` FROM import_runs WHERE project_id = ?
		 ORDER BY started_at DESC, rowid DESC LIMIT 1`, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import run for project %d: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest import run: %w", err)
	}
	return r, nil
}

// ListImportRuns returns a project's import runs, newest first.
func (s *Store) ListImportRuns(ctx context.Context, projectID int64) ([]*model.ImportRun, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+importRunColumns+` FROM import_runs WHERE project_id = ?
		 ORDER BY started_at DESC, rowid DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing import runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.ImportRun
	for rows.Next() {
		r, err := scanImportRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning import run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// InsertImportFailures persists relation failures of an import run.
func (s *Store) InsertImportFailures(ctx context.Context, failures []model.ImportFailure) error {
	for i := range failures {
		f := &failures[i]
		id, err := s.insert(ctx, "import_failure",
			`INSERT INTO import_failures (project_id, correlation_id, relation_key, relation_index,
			 path, exception_class, exception_message, retry_count, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ProjectID, f.CorrelationID, nullString(f.RelationKey), f.RelationIndex,
			nullString(f.Path), nullString(f.ExceptionClass), nullString(f.ExceptionMessage),
			f.RetryCount, stamp(f.CreatedAt),
		)
		if err != nil {
			return err
		}
		f.ID = id
	}
	return nil
}

// ListImportFailures returns a project's import failures in insertion order.
// An empty correlationID returns failures of every run.
func (s *Store) ListImportFailures(ctx context.Context, projectID int64, correlationID string) ([]model.ImportFailure, error) {
	query := `SELECT id, project_id, correlation_id, COALESCE(relation_key, ''),
		COALESCE(relation_index, 0), COALESCE(path, ''), COALESCE(exception_class, ''),
		COALESCE(exception_message, ''), retry_count, created_at
		FROM import_failures WHERE project_id = ?`
	args := []any{projectID}
	if correlationID != "" {
		query += ` AND correlation_id = ?`
		args = append(args, correlationID)
	}
	query += ` ORDER BY id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing import failures: %w", err)
	}
	defer rows.Close()

	var out []model.ImportFailure
	for rows.Next() {
		var f model.ImportFailure
		var createdAt string
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.CorrelationID, &f.RelationKey,
			&f.RelationIndex, &f.Path, &f.ExceptionClass, &f.ExceptionMessage,
			&f.RetryCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning import failure: %w", err)
		}
		f.CreatedAt = parseTime(createdAt)
		out = append(out, f)
	}
	return out, rows.Err()
}
