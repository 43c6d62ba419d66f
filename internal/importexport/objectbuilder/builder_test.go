package objectbuilder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

type row struct {
	kind  model.Kind
	key   string
	scope model.Scope
}

type fakeStore struct {
	rows    map[int64]row
	nextID  int64
	finds   int
	findErr error
}

func newStore() *fakeStore {
	return &fakeStore{rows: make(map[int64]row), nextID: 1}
}

func (s *fakeStore) seed(kind model.Kind, key string, scope model.Scope) int64 {
	id := s.nextID
	s.nextID++
	s.rows[id] = row{kind, key, scope}
	return id
}

func (s *fakeStore) FindExisting(_ context.Context, kind model.Kind, key string, scope model.Scope) (int64, bool, error) {
	s.finds++
	if s.findErr != nil {
		return 0, false, s.findErr
	}
	for id, r := range s.rows {
		if r.kind == kind && r.key == key && r.scope == scope {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (s *fakeStore) Create(_ context.Context, e model.Entity) (int64, error) {
	switch v := e.(type) {
	case *model.Label:
		return s.seed(model.KindLabel, v.Title, model.Scope{ProjectID: v.ProjectID, GroupID: v.GroupID}), nil
	case *model.Milestone:
		return s.seed(model.KindMilestone, v.Title, model.Scope{ProjectID: v.ProjectID, GroupID: v.GroupID}), nil
	}
	return 0, errors.New("unsupported")
}

func TestResolveOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	first := New(store, 10, 0)
	id1, created, err := first.ResolveOrCreate(ctx, &model.Label{Title: "bug"}, 0)
	require.NoError(t, err)
	assert.True(t, created)

	id2, created, err := first.ResolveOrCreate(ctx, &model.Label{Title: "bug"}, 0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	// A second restore into the same project finds the row in the store.
	second := New(store, 10, 0)
	id3, created, err := second.ResolveOrCreate(ctx, &model.Label{Title: "bug"}, 0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id3)
	assert.Len(t, store.rows, 1)
}

func TestResolveOrCreateUsesCache(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	b := New(store, 10, 0)

	_, _, err := b.ResolveOrCreate(ctx, &model.Milestone{Title: "v1"}, 0)
	require.NoError(t, err)
	finds := store.finds

	_, _, err = b.ResolveOrCreate(ctx, &model.Milestone{Title: "v1"}, 0)
	require.NoError(t, err)
	assert.Equal(t, finds, store.finds, "cached lookups do not hit the store")
}

func TestResolveOrCreateSearchesGroup(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	groupLabel := store.seed(model.KindLabel, "bug", model.Scope{GroupID: 5})

	b := New(store, 10, 5)
	id, created, err := b.ResolveOrCreate(ctx, &model.Label{Title: "bug"}, 0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, groupLabel, id)

	other := New(store, 11, 0)
	id, created, err = other.ResolveOrCreate(ctx, &model.Label{Title: "bug"}, 0)
	require.NoError(t, err)
	assert.True(t, created, "projects outside the group get their own label")
	assert.NotEqual(t, groupLabel, id)
}

func TestResolveOrCreateTrustsExistingID(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	b := New(store, 10, 5)

	id, created, err := b.ResolveOrCreate(ctx, &model.Label{Title: "bug"}, 77)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(77), id)
	assert.Zero(t, store.finds)

	nCreated, nReused := b.Stats()
	assert.Equal(t, 0, nCreated)
	assert.Equal(t, 1, nReused)
}

func TestResolveOrCreateScopesNewEntityToProject(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	b := New(store, 10, 5)

	label := &model.Label{Title: "new"}
	id, _, err := b.ResolveOrCreate(ctx, label, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), label.ProjectID)
	assert.Zero(t, label.GroupID)
	assert.Equal(t, model.Scope{ProjectID: 10}, store.rows[id].scope)
}

func TestResolveOrCreatePropagatesLookupErrors(t *testing.T) {
	store := newStore()
	store.findErr = errors.New("database is locked")

	_, _, err := New(store, 10, 0).ResolveOrCreate(context.Background(), &model.Label{Title: "bug"}, 0)
	assert.ErrorIs(t, err, store.findErr)
}
