package importer

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ALT-F4-LLC/treeport/internal/db"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/reader"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/restorer"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/tree"
	"github.com/ALT-F4-LLC/treeport/internal/model"
)

const doc = `{
	"description": "imported",
	"project_members": [{"reference": "alice", "access_level": "developer"}],
	"labels": [{"title": "bug", "color": "#ff0000"}],
	"issues": [
		{"title": "First", "author_ref": "alice",
		 "label_links": [{"label": {"title": "bug"}}],
		 "notes": [{"note": "hello"}, {"note": ""}]},
		{"title": "Second"}
	]
}`

func setup(t *testing.T) (*sql.DB, *model.User) {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Initialize(conn))

	store := db.NewStore(conn)
	root := &model.User{Username: "root", Admin: true}
	_, err = store.CreateUser(context.Background(), root)
	require.NoError(t, err)
	_, err = store.CreateUser(context.Background(), &model.User{Username: "alice"})
	require.NoError(t, err)
	return conn, root
}

func writeExport(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, restorer.ExportFile), []byte(content), 0o644))
	return dir
}

func newImporter(t *testing.T, conn *sql.DB, user *model.User, opts restorer.Options) *Importer {
	opts.Logger = zaptest.NewLogger(t)
	return New(conn, user, opts)
}

func TestImportRecordsRunAndFailures(t *testing.T) {
	conn, root := setup(t)
	ctx := context.Background()
	im := newImporter(t, conn, root, restorer.Options{})

	out, err := im.Import(ctx, Target{ExportPath: writeExport(t, doc), Project: "acme/api"})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.True(t, out.Result.Success)
	require.Len(t, out.Result.Failures, 1)

	store := db.NewStore(conn)
	run, err := store.LatestImportRun(ctx, out.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Run.ID, run.ID)
	assert.Equal(t, model.ImportFinished, run.Status)
	assert.Equal(t, 1, run.Failures)
	assert.Equal(t, out.Result.Created(), run.Created)
	require.NotNil(t, run.FinishedAt)

	failures, err := store.ListImportFailures(ctx, out.Project.ID, run.ID)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "notes", failures[0].RelationKey)
	assert.Equal(t, 1, failures[0].RelationIndex)
	assert.Equal(t, "issues[0].notes", failures[0].Path)
	assert.True(t, strings.HasPrefix(failures[0].ExceptionClass, "permanent"))

	p, err := store.GetProject(ctx, out.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, "imported", p.Description)
}

func TestImportFatalRollsBack(t *testing.T) {
	conn, root := setup(t)
	ctx := context.Background()
	im := newImporter(t, conn, root, restorer.Options{Tree: tree.Project(tree.WithRequired("issues"))})

	bad := `{"issues": [{"title": "kept?", "notes": [{"note": "n"}]}, {"title": ""}]}`
	out, err := im.Import(ctx, Target{ExportPath: writeExport(t, bad), Project: "acme/fatal"})
	require.ErrorIs(t, err, restorer.ErrFatalRelation)
	require.NotNil(t, out.Project)

	store := db.NewStore(conn)
	counts, err := store.CountRelations(ctx, out.Project.ID)
	require.NoError(t, err)
	assert.Zero(t, counts["issues"])
	assert.Zero(t, counts["notes"])
	assert.Zero(t, counts["project_members"], "membership is rolled back with the rest")

	run, err := store.LatestImportRun(ctx, out.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImportFailed, run.Status)
	assert.NotEmpty(t, run.Error)
	assert.Zero(t, run.Created)

	failures, err := store.ListImportFailures(ctx, out.Project.ID, run.ID)
	require.NoError(t, err)
	assert.Len(t, failures, 1)
}

func TestImportDocumentFormatError(t *testing.T) {
	conn, root := setup(t)
	im := newImporter(t, conn, root, restorer.Options{})

	out, err := im.Import(context.Background(), Target{ExportPath: writeExport(t, "{not json"), Project: "acme/broken"})
	require.ErrorIs(t, err, reader.ErrDocumentFormat)
	assert.Nil(t, out.Result)

	run, err := db.NewStore(conn).LatestImportRun(context.Background(), out.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImportFailed, run.Status)
}

func TestImportReplace(t *testing.T) {
	conn, root := setup(t)
	ctx := context.Background()
	im := newImporter(t, conn, root, restorer.Options{})
	path := writeExport(t, doc)

	for i := 0; i < 2; i++ {
		_, err := im.Import(ctx, Target{ExportPath: path, Project: "acme/replace", Replace: true})
		require.NoError(t, err)
	}

	p, err := db.NewStore(conn).GetProjectByPath(ctx, "acme/replace")
	require.NoError(t, err)
	counts, err := db.NewStore(conn).CountRelations(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["issues"])
	assert.Equal(t, 1, counts["notes"])
	assert.Equal(t, 1, counts["labels"])

	runs, err := db.NewStore(conn).ListImportRuns(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestImportAll(t *testing.T) {
	conn, root := setup(t)
	ctx := context.Background()
	im := newImporter(t, conn, root, restorer.Options{})
	path := writeExport(t, doc)

	outcomes, err := im.ImportAll(ctx, []Target{
		{ExportPath: path, Project: "acme/one"},
		{ExportPath: filepath.Join(t.TempDir(), "missing"), Project: "acme/two"},
		{ExportPath: path, Project: "acme/three", Group: "acme"},
	}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme/two")
	require.Len(t, outcomes, 3)

	assert.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, reader.ErrDocumentFormat)
	assert.NoError(t, outcomes[2].Err)
	require.NotNil(t, outcomes[2].Project.GroupID)

	store := db.NewStore(conn)
	one, err := store.CountRelations(ctx, outcomes[0].Project.ID)
	require.NoError(t, err)
	three, err := store.CountRelations(ctx, outcomes[2].Project.ID)
	require.NoError(t, err)
	assert.Equal(t, one["issues"], three["issues"])
	assert.Equal(t, one["notes"], three["notes"])
}

func TestEnsureProject(t *testing.T) {
	conn, _ := setup(t)
	ctx := context.Background()
	store := db.NewStore(conn)

	p, err := EnsureProject(ctx, store, "acme/web", "acme")
	require.NoError(t, err)
	require.NotNil(t, p.GroupID)

	again, err := EnsureProject(ctx, store, "acme/web", "acme")
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	g, err := store.GetGroupByPath(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, g.ID, *p.GroupID)
}
