// Package restorer restores a project export into a destination project.
//
// A restore selects a reader for the export, maps the exported membership
// to destination users, applies the project root attributes and walks the
// relation tree in dependency order. Per-record failures are collected and
// the walk continues; failures of the root or of a required relation abort
// it. After the walk a deferred repair step recomputes derived pointers and
// is retried with backoff.
package restorer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/failure"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/members"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/reader"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/relation"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/tree"
	"github.com/ALT-F4-LLC/treeport/internal/metrics"
	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// ExportFile is the document name looked up inside an export directory.
const ExportFile = "project.json"

// Fallback actor policies.
const (
	FallbackImporter = "importer"
	FallbackGhost    = "ghost"
)

const repairAction = "set latest merge request diff ids"

// Options configures a TreeRestorer. Zero values select defaults.
type Options struct {
	// Fallback is FallbackImporter or FallbackGhost.
	Fallback             string
	RepairAttempts       int
	RepairInitialBackoff time.Duration
	Tree                 *tree.Tree
	// Skip lists top-level relations left out of the walk.
	Skip    []string
	Metrics metrics.Recorder
	Logger  *zap.Logger
	Now     func() time.Time
}

// Shared is the context a caller shares with one restore.
type Shared struct {
	// ExportPath is an export document or a directory holding ExportFile.
	ExportPath string
	// Readers replaces the readers built from ExportPath when set.
	Readers       []reader.Reader
	CorrelationID string
}

// Result describes a finished restore. Failures, Notices and Warnings are
// filled in even when Success is false.
type Result struct {
	Success  bool
	Failures []*failure.RelationFailure
	Notices  []failure.Notice
	Warnings []failure.Warning
	// Counts and Skipped are keyed by dotted relation path, such as
	// "issues.notes".
	Counts   map[string]int
	Skipped  map[string]int
	Version  string
	Duration time.Duration
}

// Created returns the total number of restored records.
func (r *Result) Created() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// TreeRestorer is the entry point of a restore.
type TreeRestorer struct {
	store Persister
	opts  Options
}

// New returns a TreeRestorer writing through store. It fails when a relation
// of the tree has no builder.
func New(store Persister, opts Options) (*TreeRestorer, error) {
	if opts.Tree == nil {
		opts.Tree = tree.Project()
	}
	if err := opts.Tree.Validate(); err != nil {
		return nil, err
	}
	if err := relation.Validate(opts.Tree); err != nil {
		return nil, err
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackImporter
	}
	if opts.Fallback != FallbackImporter && opts.Fallback != FallbackGhost {
		return nil, fmt.Errorf("unknown fallback actor policy %q", opts.Fallback)
	}
	if opts.RepairAttempts < 1 {
		opts.RepairAttempts = 3
	}
	if opts.RepairInitialBackoff <= 0 {
		opts.RepairInitialBackoff = 200 * time.Millisecond
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TreeRestorer{store: store, opts: opts}, nil
}

// Restore restores the export described by shared into project, acting as
// user. The returned error is non-nil when the restore aborted; the Result
// is then still returned when the walk had started, with Success false.
func (t *TreeRestorer) Restore(ctx context.Context, user *model.User, shared *Shared, project *model.Project) (*Result, error) {
	start := time.Now()
	log := t.opts.Logger.With(
		zap.String("project", project.Path),
		zap.String("correlation_id", shared.CorrelationID),
	)

	rd, err := t.selectReader(ctx, shared, project)
	if err != nil {
		t.opts.Metrics.ObserveRestore("failed", time.Since(start))
		return nil, err
	}

	fallback, err := t.fallbackActor(ctx, user)
	if err != nil {
		return nil, &FatalError{Relation: "fallback actor", Err: err}
	}

	var records []reader.Record
	if err := rd.ConsumeRelation(t.opts.Tree.Members, func(rec reader.Record, _ int) error {
		records = append(records, rec)
		return nil
	}); err != nil {
		return nil, &FatalError{Relation: t.opts.Tree.Members, Err: err}
	}
	mapper, err := members.Build(ctx, t.store, records, project.ID, user, fallback, log)
	if err != nil {
		return nil, &FatalError{Relation: t.opts.Tree.Members, Err: err}
	}
	log.Info("members mapped", zap.Int("records", len(records)), zap.Int("references", mapper.Len()))

	opts := t.opts
	opts.Logger = log
	walk := newRelationTreeRestorer(t.store, rd, t.opts.Tree, project, mapper, opts)
	walkErr := walk.Restore(ctx)

	res := &Result{
		Failures: walk.failures,
		Notices:  append(append([]failure.Notice(nil), mapper.Notices()...), walk.notices...),
		Counts:   walk.counts,
		Skipped:  walk.skipped,
		Version:  walk.version,
	}
	for _, n := range mapper.Notices() {
		t.opts.Metrics.RecordNotice(string(n.Kind))
	}

	if walkErr != nil {
		res.Duration = time.Since(start)
		t.opts.Metrics.ObserveRestore("failed", res.Duration)
		log.Error("restore aborted", zap.Error(walkErr))
		return res, walkErr
	}

	if err := t.repair(ctx, project, res, log); err != nil {
		res.Duration = time.Since(start)
		t.opts.Metrics.ObserveRestore("failed", res.Duration)
		return res, err
	}

	res.Success = true
	res.Duration = time.Since(start)
	t.opts.Metrics.ObserveRestore("success", res.Duration)
	log.Info("restore finished",
		zap.Int("created", res.Created()),
		zap.Int("failures", len(res.Failures)),
		zap.Int("notices", len(res.Notices)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// selectReader probes the deduplicating reader first and the plain file
// reader second.
func (t *TreeRestorer) selectReader(ctx context.Context, shared *Shared, project *model.Project) (reader.Reader, error) {
	if len(shared.Readers) > 0 {
		return reader.Select(shared.Readers...)
	}

	path := shared.ExportPath
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ExportFile)
	}
	file := reader.NewFile(path, t.opts.Tree.Names())

	var catalog *reader.Catalog
	if gid := groupID(project); gid != 0 {
		labels, milestones, err := t.store.GroupCatalog(ctx, gid)
		if err != nil {
			return nil, fmt.Errorf("reading group catalog: %w", err)
		}
		catalog = &reader.Catalog{Labels: labels, Milestones: milestones}
	}
	return reader.Select(reader.NewDedup(file, catalog), file)
}

func groupID(p *model.Project) int64 {
	if p.GroupID == nil {
		return 0
	}
	return *p.GroupID
}

func (t *TreeRestorer) fallbackActor(ctx context.Context, user *model.User) (int64, error) {
	if t.opts.Fallback == FallbackGhost {
		return t.store.EnsureGhostUser(ctx)
	}
	return user.ID, nil
}

// repair runs the deferred repair step. Exhausted retries become a warning;
// only cancellation is returned.
func (t *TreeRestorer) repair(ctx context.Context, project *model.Project, res *Result, log *zap.Logger) error {
	svc := failure.NewService(t.opts.RepairAttempts, t.opts.RepairInitialBackoff, log)
	attempts, err := svc.WithRetry(ctx, repairAction, func(ctx context.Context) error {
		return t.store.SetLatestMergeRequestDiffIDs(ctx, project.ID)
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", repairAction, ctxErr)
	}
	res.Warnings = append(res.Warnings, failure.Warning{Action: repairAction, Attempts: attempts, Err: err})
	log.Warn("deferred repair gave up", zap.Int("attempts", attempts), zap.Error(err))
	return nil
}
