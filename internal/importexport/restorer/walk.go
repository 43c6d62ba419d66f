package restorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/failure"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/members"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/objectbuilder"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/reader"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/relation"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/tree"
	"github.com/ALT-F4-LLC/treeport/internal/metrics"
	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// ErrFatalRelation marks a failure that aborted the whole restore.
var ErrFatalRelation = errors.New("fatal relation failure")

// FatalError is a failure of the project root or of a required relation.
// It matches ErrFatalRelation with errors.Is.
type FatalError struct {
	Relation string
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("restoring %s: %v", e.Relation, e.Err)
}

func (e *FatalError) Unwrap() []error {
	return []error{ErrFatalRelation, e.Err}
}

// RelationTreeRestorer walks the relation tree of one export and persists
// its records in dependency order. It is used for a single restore.
type RelationTreeRestorer struct {
	store   Persister
	reader  reader.Reader
	tree    *tree.Tree
	skip    []string
	project *model.Project
	mapper  *members.Mapper
	objects *objectbuilder.Builder
	index   *Index
	metrics metrics.Recorder
	log     *zap.Logger
	now     func() time.Time

	version  string
	failures []*failure.RelationFailure
	notices  []failure.Notice
	counts   map[string]int
	skipped  map[string]int
}

func newRelationTreeRestorer(
	store Persister,
	rd reader.Reader,
	t *tree.Tree,
	project *model.Project,
	mapper *members.Mapper,
	opts Options,
) *RelationTreeRestorer {
	return &RelationTreeRestorer{
		store:   store,
		reader:  rd,
		tree:    t,
		skip:    opts.Skip,
		project: project,
		mapper:  mapper,
		objects: objectbuilder.New(store, project.ID, groupID(project)),
		index:   NewIndex(),
		metrics: opts.Metrics,
		log:     opts.Logger,
		now:     opts.Now,
		counts:  make(map[string]int),
		skipped: make(map[string]int),
	}
}

// Restore applies the root attributes and then every relation. It returns
// a non-nil error only when the restore must be aborted: a *FatalError or a
// cancelled context.
func (r *RelationTreeRestorer) Restore(ctx context.Context) error {
	if err := r.restoreRoot(ctx); err != nil {
		return err
	}

	nodes, err := r.tree.Ordered(r.skip...)
	if err != nil {
		return &FatalError{Relation: "tree", Err: err}
	}

	for _, node := range nodes {
		before := len(r.failures)
		err := r.reader.ConsumeRelation(node.Name, func(rec reader.Record, idx int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, _, err := r.restoreRecord(ctx, node, rec, idx, model.Target{}, "", "")
			return err
		})
		if err != nil {
			return err
		}
		r.log.Info("relation restored",
			zap.String("relation", node.Name),
			zap.Int("created", r.counts[node.Name]),
			zap.Int("skipped", r.skipped[node.Name]),
			zap.Int("failures", len(r.failures)-before),
		)
	}
	return nil
}

func (r *RelationTreeRestorer) restoreRoot(ctx context.Context) error {
	root := r.reader.RootAttributes(r.tree.Members)
	r.version = reader.Record(root).String("version")

	fields, err := relation.ProjectAttributes(root)
	if err != nil {
		return &FatalError{Relation: "project", Err: err}
	}
	if len(fields) == 0 {
		return nil
	}
	if err := r.store.UpdateProject(ctx, r.project.ID, fields); err != nil {
		return &FatalError{Relation: "project", Err: err}
	}
	return nil
}

// restoreRecord builds and persists one record and then its children. key
// is the dotted relation path used for counts; loc locates the record's
// parent in the document for diagnostics. The returned error is non-nil
// only when the restore must abort.
func (r *RelationTreeRestorer) restoreRecord(
	ctx context.Context,
	node *tree.Node,
	rec reader.Record,
	idx int,
	parent model.Target,
	keyPrefix, locPrefix string,
) (model.Target, bool, error) {
	key := join(keyPrefix, node.Name)
	loc := join(locPrefix, node.Name)

	refs := make(map[string]int64)
	for _, child := range node.Children {
		if child.Association != tree.BelongsTo {
			continue
		}
		crec, ok := rec.Object(child.Name)
		if !ok {
			continue
		}
		ref, ok, err := r.restoreRecord(ctx, child, crec, 0, model.Target{}, key, fmt.Sprintf("%s[%d]", loc, idx))
		if err != nil {
			return model.Target{}, false, err
		}
		if ok {
			refs[child.Name] = ref.ID
		}
	}

	c := &relation.Context{
		ProjectID:  r.project.ID,
		Parent:     parent,
		Refs:       refs,
		Actors:     r.mapper,
		Lookup:     r.index.Get,
		Discussion: r.index.Discussion,
		Now:        r.now,
	}
	built, err := relation.Build(node.Name, rec, c)
	if err != nil {
		return model.Target{}, false, r.fail(node, key, loc, idx, rec, err)
	}
	if built == nil {
		r.skipped[key]++
		r.metrics.RecordSkipped(key)
		return model.Target{}, false, nil
	}
	for _, n := range built.Notices {
		r.notice(n, node, loc, idx)
	}

	id, err := r.persist(ctx, node, key, built)
	if err != nil {
		return model.Target{}, false, r.fail(node, key, loc, idx, rec, err)
	}

	kind := built.Entity.EntityKind()
	r.index.Put(kind, built.SourceID, id)
	if kind == model.KindNote {
		r.index.PutDiscussion(parent, built.DiscussionID, id)
	}
	r.counts[key]++

	self := model.Target{Kind: kind, ID: id}
	childLoc := fmt.Sprintf("%s[%d]", loc, idx)
	for _, child := range node.Children {
		if child.Association == tree.BelongsTo {
			continue
		}
		for i, crec := range rec.Records(child.Name) {
			if err := ctx.Err(); err != nil {
				return model.Target{}, false, err
			}
			if _, _, err := r.restoreRecord(ctx, child, crec, i, self, key, childLoc); err != nil {
				return model.Target{}, false, err
			}
			if child.Association == tree.HasOne {
				break
			}
		}
	}
	return self, true, nil
}

func (r *RelationTreeRestorer) persist(ctx context.Context, node *tree.Node, key string, built *relation.Built) (int64, error) {
	if shared, ok := built.Entity.(objectbuilder.Shared); ok && node.Shared {
		id, created, err := r.objects.ResolveOrCreate(ctx, shared, built.ExistingID)
		if err != nil {
			return 0, err
		}
		if created {
			r.metrics.RecordCreated(key)
		} else {
			r.metrics.RecordReused(string(shared.EntityKind()))
		}
		return id, nil
	}

	id, err := r.store.Create(ctx, built.Entity)
	if err != nil {
		return 0, err
	}
	r.metrics.RecordCreated(key)
	return id, nil
}

// fail records a failed record. Cancellation and failures of required
// relations are returned so the walk stops.
func (r *RelationTreeRestorer) fail(node *tree.Node, key, loc string, idx int, rec reader.Record, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	f := &failure.RelationFailure{
		RelationKey:   node.Name,
		RelationIndex: idx,
		Path:          loc,
		Summary:       summarize(rec),
		Class:         failure.Classify(err),
		Err:           err,
	}
	r.failures = append(r.failures, f)
	r.metrics.RecordFailure(key, f.Class.String())
	r.log.Warn("relation record failed",
		zap.String("path", loc),
		zap.Int("index", idx),
		zap.Stringer("class", f.Class),
		zap.Error(err),
	)

	if node.Required {
		return &FatalError{Relation: node.Name, Err: f}
	}
	return nil
}

func (r *RelationTreeRestorer) notice(n failure.Notice, node *tree.Node, loc string, idx int) {
	n.RelationKey = node.Name
	n.RelationIndex = idx
	n.Path = loc
	r.notices = append(r.notices, n)
	r.metrics.RecordNotice(string(n.Kind))
	r.log.Info("notice", zap.String("path", loc), zap.Int("index", idx), zap.String("message", n.Message))
}

// summaryFields are shown, in order, to identify a failed record without
// copying it whole.
var summaryFields = []string{"title", "name", "iid", "ref", "action"}

const summaryMax = 80

func summarize(rec reader.Record) string {
	var parts []string
	for _, k := range summaryFields {
		if s := rec.String(k); s != "" {
			parts = append(parts, k+"="+s)
		}
	}
	if body := rec.String("note"); body != "" {
		parts = append(parts, fmt.Sprintf("note=(%d chars)", len(body)))
	}
	out := strings.Join(parts, " ")
	if len(out) > summaryMax {
		out = out[:summaryMax] + "..."
	}
	return out
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
