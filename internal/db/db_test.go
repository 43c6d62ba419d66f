package db

import (
	"database/sql"
	"testing"
	"time"
)

func mustOpen(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustInit(t *testing.T) *sql.DB {
	t.Helper()
	db := mustOpen(t)
	if err := Initialize(db); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return db
}

func TestOpenSetsWALMode(t *testing.T) {
	db := mustOpen(t)

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	// In-memory databases may report "memory" instead of "wal" since WAL
	// requires a file. Accept both.
	if mode != "wal" && mode != "memory" {
		t.Errorf("journal_mode = %q, want wal or memory", mode)
	}
}

func TestOpenSetsForeignKeys(t *testing.T) {
	db := mustOpen(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("querying foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestOpenSetsBusyTimeout(t *testing.T) {
	db := mustOpen(t)

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("querying busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestInitializeCreatesAllTables(t *testing.T) {
	db := mustInit(t)

	tables := []string{
		"meta", "users", "groups", "projects", "project_members", "labels",
		"label_links", "milestones", "issues", "merge_requests", "merge_request_diffs",
		"notes", "system_note_metadata", "award_emoji", "events", "ci_pipelines",
		"import_failures", "import_runs",
	}

	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestInitializeSetsSchemaVersion(t *testing.T) {
	db := mustInit(t)

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema_version = %d, want %d", v, currentSchemaVersion)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	db := mustInit(t)

	if err := Initialize(db); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema_version = %d after double init, want %d", v, currentSchemaVersion)
	}
}

func TestForeignKeyEnforcement(t *testing.T) {
	db := mustInit(t)

	now := time.Now().UTC().Format(time.RFC3339)

	// Try to insert an issue referencing a non-existent project.
	_, err := db.Exec(
		"INSERT INTO issues (project_id, title, author_id, created_at, updated_at) VALUES (999, 'test', 999, ?, ?)",
		now, now,
	)
	if err == nil {
		t.Error("expected foreign key violation, got nil")
	}
}

func TestCascadeDeleteNoteRemovesMetadata(t *testing.T) {
	db := mustInit(t)

	now := time.Now().UTC().Format(time.RFC3339)

	mustExec := func(query string, args ...any) int64 {
		t.Helper()
		res, err := db.Exec(query, args...)
		if err != nil {
			t.Fatalf("exec %q: %v", query, err)
		}
		id, _ := res.LastInsertId()
		return id
	}

	userID := mustExec("INSERT INTO users (username) VALUES ('alice')")
	projectID := mustExec(
		"INSERT INTO projects (name, path, created_at, updated_at) VALUES ('demo', 'demo', ?, ?)",
		now, now,
	)
	noteID := mustExec(
		"INSERT INTO notes (project_id, noteable_type, noteable_id, note, author_id, created_at, updated_at) VALUES (?, 'issue', 1, 'x', ?, ?, ?)",
		projectID, userID, now, now,
	)
	mustExec(
		"INSERT INTO system_note_metadata (note_id, action, created_at) VALUES (?, 'label', ?)",
		noteID, now,
	)

	if _, err := db.Exec("DELETE FROM notes WHERE id = ?", noteID); err != nil {
		t.Fatalf("deleting note: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM system_note_metadata WHERE note_id = ?", noteID).Scan(&count); err != nil {
		t.Fatalf("counting metadata: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 metadata rows after cascade delete, got %d", count)
	}
}

func TestMigrateNoOpAtLatestVersion(t *testing.T) {
	db := mustInit(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema_version = %d after Migrate, want %d", v, currentSchemaVersion)
	}
}

func TestMigrateFromV1ToV2(t *testing.T) {
	db := mustInit(t)

	// Rewind to a v1 schema, which predates import_runs.
	if _, err := db.Exec("DROP TABLE import_runs"); err != nil {
		t.Fatalf("dropping import_runs: %v", err)
	}
	if _, err := db.Exec(`UPDATE meta SET value = '1' WHERE key = 'schema_version'`); err != nil {
		t.Fatalf("setting schema version: %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 {
		t.Errorf("schema_version = %d after migration, want 2", v)
	}

	var name string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='import_runs'",
	).Scan(&name)
	if err != nil {
		t.Errorf("import_runs table should exist after migration: %v", err)
	}
}

func TestProjectMembersPrimaryKey(t *testing.T) {
	db := mustInit(t)

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.Exec("INSERT INTO users (username) VALUES ('alice')"); err != nil {
		t.Fatalf("inserting user: %v", err)
	}
	if _, err := db.Exec(
		"INSERT INTO projects (name, path, created_at, updated_at) VALUES ('demo', 'demo', ?, ?)",
		now, now,
	); err != nil {
		t.Fatalf("inserting project: %v", err)
	}

	if _, err := db.Exec("INSERT INTO project_members (project_id, user_id, access_level) VALUES (1, 1, 20)"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := db.Exec("INSERT INTO project_members (project_id, user_id, access_level) VALUES (1, 1, 30)"); err == nil {
		t.Error("expected primary key violation on duplicate membership, got nil")
	}
}
