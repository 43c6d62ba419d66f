package restorer

import "github.com/ALT-F4-LLC/treeport/internal/model"

type indexKey struct {
	kind   model.Kind
	source int64
}

type discussionKey struct {
	parent model.Target
	id     string
}

// Index maps source record identities to restored destination ids for the
// duration of one restore. It holds ids only, never entities, so discussion
// replies and cross-relation references are resolved by lookup.
type Index struct {
	entities    map[indexKey]int64
	discussions map[discussionKey]int64
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		entities:    make(map[indexKey]int64),
		discussions: make(map[discussionKey]int64),
	}
}

// Put records that the source record sourceID of kind was restored as id.
// Records without a source id are not indexed.
func (x *Index) Put(kind model.Kind, sourceID, id int64) {
	if sourceID == 0 {
		return
	}
	x.entities[indexKey{kind: kind, source: sourceID}] = id
}

// Get returns the destination id restored for sourceID.
func (x *Index) Get(kind model.Kind, sourceID int64) (int64, bool) {
	id, ok := x.entities[indexKey{kind: kind, source: sourceID}]
	return id, ok
}

// PutDiscussion records noteID as the root of discussion id under parent
// unless a root is already known.
func (x *Index) PutDiscussion(parent model.Target, id string, noteID int64) {
	if id == "" {
		return
	}
	k := discussionKey{parent: parent, id: id}
	if _, ok := x.discussions[k]; ok {
		return
	}
	x.discussions[k] = noteID
}

// Discussion returns the root note of discussion id under parent.
func (x *Index) Discussion(parent model.Target, id string) (int64, bool) {
	noteID, ok := x.discussions[discussionKey{parent: parent, id: id}]
	return noteID, ok
}

// Len returns the number of indexed records.
func (x *Index) Len() int {
	return len(x.entities)
}
