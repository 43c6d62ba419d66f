package members

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/failure"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/reader"
	"github.com/ALT-F4-LLC/treeport/internal/model"
)

type fakeDirectory struct {
	users   []*model.User
	levels  map[int64]model.AccessLevel
	failAdd error
}

func newDirectory(users ...*model.User) *fakeDirectory {
	return &fakeDirectory{users: users, levels: make(map[int64]model.AccessLevel)}
}

func (d *fakeDirectory) LookupUser(_ context.Context, email, username string) (*model.User, bool, error) {
	for _, u := range d.users {
		if email != "" && strings.EqualFold(u.Email, email) {
			return u, true, nil
		}
	}
	for _, u := range d.users {
		if username != "" && strings.EqualFold(u.Username, username) {
			return u, true, nil
		}
	}
	return nil, false, nil
}

func (d *fakeDirectory) MemberAccessLevel(_ context.Context, _, userID int64) (model.AccessLevel, bool, error) {
	l, ok := d.levels[userID]
	return l, ok, nil
}

func (d *fakeDirectory) AddMember(_ context.Context, m *model.ProjectMember) error {
	if d.failAdd != nil {
		return d.failAdd
	}
	if m.AccessLevel > d.levels[m.UserID] {
		d.levels[m.UserID] = m.AccessLevel
	}
	return nil
}

var (
	importer = &model.User{ID: 1, Username: "root"}
	alice    = &model.User{ID: 2, Username: "alice", Email: "alice@example.com"}
	bob      = &model.User{ID: 3, Username: "bob", Email: "bob@example.com"}
)

func TestBuildResolvesAndGrantsAccess(t *testing.T) {
	dir := newDirectory(importer, alice, bob)
	records := []reader.Record{
		{"reference": "alice", "accessLevel": "reporter"},
		{"access_level": json.Number("50"), "user": map[string]any{"id": json.Number("700"), "username": "robert", "email": "BOB@example.com"}},
		{"reference": "ghost_of_nobody", "access_level": 30},
	}

	m, err := Build(context.Background(), dir, records, 10, importer, importer.ID, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, model.AccessMaintainer, dir.levels[importer.ID])
	assert.Equal(t, model.AccessReporter, dir.levels[alice.ID])
	assert.Equal(t, model.AccessMaintainer, dir.levels[bob.ID], "capped at the importer's level")

	id, ok := m.Actor("alice")
	assert.True(t, ok)
	assert.Equal(t, alice.ID, id)

	id, ok = m.Actor(json.Number("700"))
	assert.True(t, ok)
	assert.Equal(t, bob.ID, id, "exported numeric id resolves")

	id, ok = m.Actor("Bob@Example.com")
	assert.True(t, ok)
	assert.Equal(t, bob.ID, id)

	id, ok = m.Actor("ghost_of_nobody")
	assert.False(t, ok)
	assert.Equal(t, importer.ID, id, "missing member falls back")

	raw, known := m.Lookup("ghost_of_nobody")
	assert.True(t, known)
	assert.Equal(t, Missing, raw)

	id, ok = m.Actor("never_seen")
	assert.False(t, ok)
	assert.Equal(t, importer.ID, id)

	require.Len(t, m.Notices(), 1)
	assert.Equal(t, failure.UnresolvedMember, m.Notices()[0].Kind)
	assert.Equal(t, 2, m.Notices()[0].RelationIndex)
}

func TestBuildAdminImporterIsNotCapped(t *testing.T) {
	admin := &model.User{ID: 1, Username: "admin", Admin: true}
	dir := newDirectory(admin, alice)
	records := []reader.Record{{"reference": "alice", "access_level": "owner"}}

	_, err := Build(context.Background(), dir, records, 10, admin, admin.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AccessOwner, dir.levels[alice.ID])
}

func TestBuildSkipsMalformedRecords(t *testing.T) {
	dir := newDirectory(importer, alice)
	records := []reader.Record{
		{"reference": "alice"},
		{"access_level": "reporter"},
		{"reference": "alice", "access_level": "superuser"},
	}

	m, err := Build(context.Background(), dir, records, 10, importer, importer.ID, nil)
	require.NoError(t, err)
	assert.Len(t, m.Notices(), 3)
	_, ok := dir.levels[alice.ID]
	assert.False(t, ok)
}

func TestBuildPropagatesPersistenceErrors(t *testing.T) {
	dir := newDirectory(importer)
	dir.failAdd = errors.New("database is locked")

	_, err := Build(context.Background(), dir, nil, 10, importer, importer.ID, nil)
	assert.ErrorIs(t, err, dir.failAdd)
}

func TestActorFallbackIsConfigurable(t *testing.T) {
	dir := newDirectory(importer)
	const ghostID = 99

	m, err := Build(context.Background(), dir, nil, 10, importer, ghostID, nil)
	require.NoError(t, err)

	id, ok := m.Actor("someone")
	assert.False(t, ok)
	assert.Equal(t, int64(ghostID), id)
	assert.Equal(t, int64(ghostID), m.Fallback())
}
