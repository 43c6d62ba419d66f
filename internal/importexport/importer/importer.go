// Package importer runs restores against the SQLite store: it prepares the
// destination project, wraps each restore in a transaction and records the
// run and its failures.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ALT-F4-LLC/treeport/internal/db"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/failure"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/restorer"
	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// Target is one export to restore into one project.
type Target struct {
	ExportPath string
	// Project is the destination project path; it is created when absent.
	Project string
	// Group is the path of the group a new project is created in.
	Group string
	// Replace clears the project's restored relations first.
	Replace bool
}

// Outcome is the result of importing one Target.
type Outcome struct {
	Target  Target
	Project *model.Project
	Run     *model.ImportRun
	Result  *restorer.Result
	Err     error
}

// Importer imports exports on behalf of one user.
type Importer struct {
	conn *sql.DB
	user *model.User
	opts restorer.Options
	log  *zap.Logger
	now  func() time.Time
}

// New returns an Importer acting as user.
func New(conn *sql.DB, user *model.User, opts restorer.Options) *Importer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Importer{conn: conn, user: user, opts: opts, log: log, now: now}
}

// Import restores t. A restore that aborts is rolled back as a unit; its
// run and failures are still recorded. The returned error is the abort
// reason or a setup error.
func (im *Importer) Import(ctx context.Context, t Target) (*Outcome, error) {
	out := &Outcome{Target: t}
	store := db.NewStore(im.conn)

	project, err := EnsureProject(ctx, store, t.Project, t.Group)
	if err != nil {
		return out, err
	}
	out.Project = project

	run := &model.ImportRun{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		Status:    model.ImportStarted,
		Source:    t.ExportPath,
		StartedAt: im.now().UTC(),
	}
	if err := store.CreateImportRun(ctx, run); err != nil {
		return out, err
	}
	out.Run = run

	opts := im.opts
	opts.Logger = im.log.With(zap.String("run", run.ID))

	var res *restorer.Result
	restoreErr := db.WithTx(ctx, im.conn, func(s *db.Store) error {
		if t.Replace {
			if err := s.ClearProject(ctx, project.ID); err != nil {
				return err
			}
		}
		r, err := restorer.New(s, opts)
		if err != nil {
			return err
		}
		res, err = r.Restore(ctx, im.user, &restorer.Shared{
			ExportPath:    t.ExportPath,
			CorrelationID: run.ID,
		}, project)
		return err
	})
	out.Result = res
	out.Err = restoreErr

	if err := im.finish(context.WithoutCancel(ctx), store, run, res, restoreErr); err != nil {
		return out, errors.Join(restoreErr, err)
	}
	return out, restoreErr
}

func (im *Importer) finish(ctx context.Context, store *db.Store, run *model.ImportRun, res *restorer.Result, restoreErr error) error {
	finished := im.now().UTC()
	run.FinishedAt = &finished
	run.Status = model.ImportFinished
	if restoreErr != nil {
		run.Status = model.ImportFailed
		run.Error = restoreErr.Error()
	}

	var failures []model.ImportFailure
	if res != nil {
		run.Version = res.Version
		if restoreErr == nil {
			run.Created = res.Created()
		}
		run.Failures = len(res.Failures)
		run.Notices = len(res.Notices)
		run.Warnings = len(res.Warnings)
		failures = ImportFailures(run, res, finished)
	}

	if err := store.FinishImportRun(ctx, run); err != nil {
		return err
	}
	if len(failures) == 0 {
		return nil
	}
	if err := store.InsertImportFailures(ctx, failures); err != nil {
		return fmt.Errorf("recording import failures: %w", err)
	}
	return nil
}

// ImportFailures converts the failures and warnings of res into records of
// run.
func ImportFailures(run *model.ImportRun, res *restorer.Result, at time.Time) []model.ImportFailure {
	out := make([]model.ImportFailure, 0, len(res.Failures)+len(res.Warnings))
	for _, f := range res.Failures {
		out = append(out, model.ImportFailure{
			ProjectID:        run.ProjectID,
			CorrelationID:    run.ID,
			RelationKey:      f.RelationKey,
			RelationIndex:    f.RelationIndex,
			Path:             f.Path,
			ExceptionClass:   exceptionClass(f),
			ExceptionMessage: f.Err.Error(),
			CreatedAt:        at,
		})
	}
	for _, w := range res.Warnings {
		out = append(out, model.ImportFailure{
			ProjectID:        run.ProjectID,
			CorrelationID:    run.ID,
			RelationKey:      w.Action,
			ExceptionClass:   "retry_exhausted",
			ExceptionMessage: w.Err.Error(),
			RetryCount:       w.Attempts,
			CreatedAt:        at,
		})
	}
	return out
}

func exceptionClass(f *failure.RelationFailure) string {
	return fmt.Sprintf("%s %T", f.Class, f.Err)
}

// EnsureProject returns the project at path, creating it (and its group)
// when absent.
func EnsureProject(ctx context.Context, store *db.Store, path, groupPath string) (*model.Project, error) {
	p, err := store.GetProjectByPath(ctx, path)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	p = &model.Project{Name: path, Path: path}
	if groupPath != "" {
		g, err := store.GetGroupByPath(ctx, groupPath)
		if errors.Is(err, db.ErrNotFound) {
			g = &model.Group{Name: groupPath, Path: groupPath}
			_, err = store.CreateGroup(ctx, g)
		}
		if err != nil {
			return nil, fmt.Errorf("resolving group %q: %w", groupPath, err)
		}
		p.GroupID = &g.ID
	}
	if _, err := store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ImportAll imports targets with at most limit restores in flight. Restores
// are independent: one failing does not stop the others. Outcomes are
// returned in target order; the error joins every restore error.
func (im *Importer) ImportAll(ctx context.Context, targets []Target, limit int) ([]*Outcome, error) {
	if limit < 1 {
		limit = 1
	}
	outcomes := make([]*Outcome, len(targets))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, t := range targets {
		g.Go(func() error {
			out, err := im.Import(ctx, t)
			if out == nil {
				out = &Outcome{Target: t}
			}
			out.Err = err
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, out := range outcomes {
		if out.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", out.Target.Project, out.Err))
		}
	}
	return outcomes, errors.Join(errs...)
}
