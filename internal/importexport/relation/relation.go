// Package relation turns raw export records into destination entities.
//
// Each relation name of the tree maps to exactly one builder. A builder
// receives the record with source-system keys removed, rewrites actor
// references through the identity mapper, applies legacy renames and enum
// remaps, and picks the concrete entity type for polymorphic relations. A
// builder returning a nil *Built means the record is meaningless and is
// skipped without a failure.
package relation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/failure"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/reader"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/tree"
	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// Actors resolves exported actor references; *members.Mapper implements it.
type Actors interface {
	// Actor returns the destination user for ref, or the fallback actor and
	// false when ref does not resolve.
	Actor(ref any) (int64, bool)
}

// Context carries what a builder may know about already restored records.
type Context struct {
	ProjectID int64
	// Parent is the restored record this one nests under; zero at top level.
	Parent model.Target
	// Refs holds ids of belongs-to children resolved before this record,
	// keyed by child relation name.
	Refs   map[string]int64
	Actors Actors
	// Lookup finds the destination id of a restored record by its source id.
	Lookup func(kind model.Kind, sourceID int64) (int64, bool)
	// Discussion returns the first restored note of a discussion.
	Discussion func(parent model.Target, discussionID string) (int64, bool)
	Now        func() time.Time
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) lookup(kind model.Kind, sourceID int64) (int64, bool) {
	if c.Lookup == nil || sourceID == 0 {
		return 0, false
	}
	return c.Lookup(kind, sourceID)
}

// Source holds source-system keys read before they are stripped.
type Source struct {
	ID             int64
	MergeRequestID int64
	TargetID       int64
}

// Built is the entity a builder produced for one record.
type Built struct {
	Entity   model.Entity
	SourceID int64
	// ExistingID is a destination match already found by the reader.
	ExistingID   int64
	DiscussionID string
	// Notices carry Kind and Message; the restorer fills in the position.
	Notices []failure.Notice
}

// InvalidRecordError reports a record that cannot be turned into an entity.
type InvalidRecordError struct {
	Relation string
	Err      error
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid %s record: %v", e.Relation, e.Err)
}

func (e *InvalidRecordError) Unwrap() error { return e.Err }

// Permanent reports that the same record will never build.
func (e *InvalidRecordError) Permanent() bool { return true }

func invalid(relation string, format string, args ...any) error {
	return &InvalidRecordError{Relation: relation, Err: fmt.Errorf(format, args...)}
}

type builder func(attrs reader.Record, src Source, c *Context) (*Built, error)

// builders is the dispatch table from relation name to construction
// function.
var builders = map[string]builder{
	"labels":               buildLabel,
	"label":                buildLabel,
	"milestones":           buildMilestone,
	"milestone":            buildMilestone,
	"issues":               buildIssue,
	"merge_requests":       buildMergeRequest,
	"merge_request_diff":   buildMergeRequestDiff,
	"notes":                buildNote,
	"system_note_metadata": buildSystemNoteMetadata,
	"award_emoji":          buildAwardEmoji,
	"label_links":          buildLabelLink,
	"events":               buildEvent,
	"ci_pipelines":         buildPipeline,
}

// strippedAttributes are destination primary keys and source-system foreign
// keys that must never be copied.
var strippedAttributes = []string{
	"id",
	"project_id",
	"group_id",
	"noteable_id",
	"issue_id",
	"merge_request_id",
	"merge_request_diff_id",
	"note_id",
	"awardable_id",
	"pipeline_id",
	"milestone_id",
	"label_id",
	"target_id",
	"latest_merge_request_diff_id",
}

// Clean returns a copy of rec without source identity fields.
func Clean(rec reader.Record) reader.Record {
	out := rec.Clone()
	for _, k := range strippedAttributes {
		delete(out, k)
	}
	return out
}

// Known reports whether name has a builder.
func Known(name string) bool {
	_, ok := builders[name]
	return ok
}

// Build turns rec from relation name into an entity. Unknown relation names
// yield nil so they are ignored in production; Validate catches them at
// startup.
func Build(name string, rec reader.Record, c *Context) (*Built, error) {
	b, ok := builders[name]
	if !ok {
		return nil, nil
	}
	src := Source{}
	src.ID, _ = rec.Int64("id")
	src.MergeRequestID, _ = rec.Int64("merge_request_id")
	src.TargetID, _ = rec.Int64("target_id")
	return b(Clean(rec), src, c)
}

// Validate checks that every relation of t has a builder.
func Validate(t *tree.Tree) error {
	var missing []string
	t.Walk(func(path string, n *tree.Node) {
		if !Known(n.Name) {
			missing = append(missing, path)
		}
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("relations without a builder: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MustValidate panics when Validate fails. Tests and development builds use
// it so a tree/builder mismatch is caught immediately.
func MustValidate(t *tree.Tree) {
	if err := Validate(t); err != nil {
		panic(err)
	}
}
