// Package tree declares the relation tree of a project export: which
// relations exist, how they nest, and the order they are restored in.
package tree

import (
	"fmt"
	"strings"

	"github.com/ALT-F4-LLC/treeport/internal/planner"
)

// Association describes how a nested relation attaches to its parent record.
type Association int

const (
	// HasMany children are created after the parent and reference it.
	HasMany Association = iota
	// HasOne is a HasMany with at most one record.
	HasOne
	// BelongsTo children are resolved before the parent, which references
	// them.
	BelongsTo
)

func (a Association) String() string {
	switch a {
	case HasOne:
		return "has_one"
	case BelongsTo:
		return "belongs_to"
	default:
		return "has_many"
	}
}

// Node is one relation of the tree.
type Node struct {
	Name        string
	Association Association
	// Required failures abort the whole restore.
	Required bool
	// Shared records are resolved by natural key instead of always created.
	Shared    bool
	DependsOn []string
	Children  []*Node
}

// Tree is the full relation tree of a project export.
type Tree struct {
	// Members is the membership relation consumed before the walk.
	Members   string
	Relations []*Node
}

// Option adjusts a Tree built by Project.
type Option func(*Tree)

// WithRequired marks top-level relations whose failures abort the restore.
func WithRequired(names ...string) Option {
	return func(t *Tree) {
		for _, name := range names {
			if n := t.Lookup(name); n != nil {
				n.Required = true
			}
		}
	}
}

func hasMany(name string, children ...*Node) *Node {
	return &Node{Name: name, Association: HasMany, Children: children}
}

func hasOne(name string, children ...*Node) *Node {
	return &Node{Name: name, Association: HasOne, Children: children}
}

func belongsTo(name string) *Node {
	return &Node{Name: name, Association: BelongsTo, Shared: true}
}

func notes() *Node {
	return hasMany("notes",
		hasOne("system_note_metadata"),
		hasMany("award_emoji"),
	)
}

// Project returns the relation tree of a project export.
func Project(opts ...Option) *Tree {
	t := &Tree{
		Members: "project_members",
		Relations: []*Node{
			{Name: "labels", Association: HasMany, Shared: true},
			{Name: "milestones", Association: HasMany, Shared: true},
			{
				Name:        "issues",
				Association: HasMany,
				DependsOn:   []string{"labels", "milestones"},
				Children: []*Node{
					belongsTo("milestone"),
					hasMany("label_links", belongsTo("label")),
					notes(),
					hasMany("award_emoji"),
					hasMany("events"),
				},
			},
			{
				Name:        "merge_requests",
				Association: HasMany,
				DependsOn:   []string{"labels", "milestones"},
				Children: []*Node{
					belongsTo("milestone"),
					hasMany("label_links", belongsTo("label")),
					hasOne("merge_request_diff"),
					notes(),
					hasMany("award_emoji"),
					hasMany("events"),
				},
			},
			{
				Name:        "ci_pipelines",
				Association: HasMany,
				DependsOn:   []string{"merge_requests"},
			},
			{
				Name:        "events",
				Association: HasMany,
				DependsOn:   []string{"issues", "merge_requests"},
			},
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Names returns the top-level relation keys, membership included. These are
// the keys a reader must not report as root attributes.
func (t *Tree) Names() []string {
	names := make([]string, 0, len(t.Relations)+1)
	if t.Members != "" {
		names = append(names, t.Members)
	}
	for _, n := range t.Relations {
		names = append(names, n.Name)
	}
	return names
}

// Lookup returns the top-level relation called name.
func (t *Tree) Lookup(name string) *Node {
	for _, n := range t.Relations {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func (t *Tree) dag() (*planner.DAG, []string, map[string][]string) {
	names := make([]string, 0, len(t.Relations))
	deps := make(map[string][]string)
	for _, n := range t.Relations {
		names = append(names, n.Name)
		if len(n.DependsOn) > 0 {
			deps[n.Name] = n.DependsOn
		}
	}
	return planner.BuildDAG(names, deps), names, deps
}

// Plan groups top-level relations into dependency phases, leaving out
// skipped relations.
func (t *Tree) Plan(skip ...string) (*planner.Plan, error) {
	dag, _, _ := t.dag()
	return planner.GeneratePlan(dag, planner.PlanFilters{Skip: skip})
}

// Ordered returns top-level relations in restore order: prerequisites
// first, ties broken by declaration order.
func (t *Tree) Ordered(skip ...string) ([]*Node, error) {
	plan, err := t.Plan(skip...)
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, plan.TotalRelations)
	for _, name := range plan.Flatten() {
		out = append(out, t.Lookup(name))
	}
	return out, nil
}

// Validate checks that dependencies name declared relations, that they form
// no cycle, and that node names are unique among siblings.
func (t *Tree) Validate() error {
	dag, names, deps := t.dag()
	if missing := planner.MissingDependencies(names, deps); len(missing) > 0 {
		return fmt.Errorf("unknown relation dependencies: %s", strings.Join(missing, ", "))
	}
	if _, err := planner.TopoSort(dag); err != nil {
		return err
	}
	return checkSiblings("", t.Relations)
}

func checkSiblings(path string, nodes []*Node) error {
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n.Name]; dup {
			return fmt.Errorf("duplicate relation %q under %q", n.Name, path)
		}
		seen[n.Name] = struct{}{}
		if err := checkSiblings(join(path, n.Name), n.Children); err != nil {
			return err
		}
	}
	return nil
}

// Walk calls fn for every node with its dotted path, parents before
// children.
func (t *Tree) Walk(fn func(path string, n *Node)) {
	var walk func(prefix string, nodes []*Node)
	walk = func(prefix string, nodes []*Node) {
		for _, n := range nodes {
			p := join(prefix, n.Name)
			fn(p, n)
			walk(p, n.Children)
		}
	}
	walk("", t.Relations)
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
