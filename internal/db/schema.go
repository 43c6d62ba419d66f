package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 2

// schemaDDL contains the CREATE TABLE statements for the initial schema.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS users (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email    TEXT,
	name     TEXT,
	admin    INTEGER NOT NULL DEFAULT 0,
	ghost    INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(lower(email)) WHERE email IS NOT NULL AND email != '';

CREATE TABLE IF NOT EXISTS groups (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	path TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS projects (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	group_id       INTEGER REFERENCES groups(id) ON DELETE SET NULL,
	name           TEXT NOT NULL,
	path           TEXT NOT NULL UNIQUE,
	description    TEXT,
	visibility     TEXT NOT NULL DEFAULT 'private',
	default_branch TEXT,
	archived       INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS project_members (
	project_id   INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	user_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	access_level INTEGER NOT NULL,
	PRIMARY KEY (project_id, user_id)
);

CREATE TABLE IF NOT EXISTS labels (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id  INTEGER REFERENCES projects(id) ON DELETE CASCADE,
	group_id    INTEGER REFERENCES groups(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	color       TEXT,
	description TEXT,
	created_at  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_labels_project_title ON labels(project_id, title) WHERE project_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_labels_group_title ON labels(group_id, title) WHERE group_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS milestones (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id  INTEGER REFERENCES projects(id) ON DELETE CASCADE,
	group_id    INTEGER REFERENCES groups(id) ON DELETE CASCADE,
	iid         INTEGER,
	title       TEXT NOT NULL,
	description TEXT,
	state       TEXT NOT NULL DEFAULT 'active',
	start_date  TEXT,
	due_date    TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_milestones_project_title ON milestones(project_id, title) WHERE project_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_milestones_group_title ON milestones(group_id, title) WHERE group_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS issues (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id   INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	iid          INTEGER,
	title        TEXT NOT NULL,
	description  TEXT,
	state        TEXT NOT NULL DEFAULT 'opened',
	author_id    INTEGER NOT NULL REFERENCES users(id),
	assignee_id  INTEGER REFERENCES users(id),
	milestone_id INTEGER REFERENCES milestones(id) ON DELETE SET NULL,
	confidential INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	closed_at    TEXT
);

CREATE TABLE IF NOT EXISTS merge_requests (
	id                           INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id                   INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	iid                          INTEGER,
	title                        TEXT NOT NULL,
	description                  TEXT,
	source_branch                TEXT NOT NULL,
	target_branch                TEXT NOT NULL,
	state                        TEXT NOT NULL DEFAULT 'opened',
	author_id                    INTEGER NOT NULL REFERENCES users(id),
	assignee_id                  INTEGER REFERENCES users(id),
	milestone_id                 INTEGER REFERENCES milestones(id) ON DELETE SET NULL,
	latest_merge_request_diff_id INTEGER,
	created_at                   TEXT NOT NULL,
	updated_at                   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS merge_request_diffs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	merge_request_id INTEGER NOT NULL REFERENCES merge_requests(id) ON DELETE CASCADE,
	state            TEXT,
	base_commit_sha  TEXT,
	head_commit_sha  TEXT,
	start_commit_sha TEXT,
	real_size        TEXT,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS label_links (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	label_id    INTEGER NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
	target_type TEXT NOT NULL,
	target_id   INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	UNIQUE(label_id, target_type, target_id)
);

CREATE TABLE IF NOT EXISTS notes (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id       INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	noteable_type    TEXT NOT NULL,
	noteable_id      INTEGER NOT NULL,
	type             TEXT,
	note             TEXT NOT NULL,
	author_id        INTEGER NOT NULL REFERENCES users(id),
	discussion_id    TEXT,
	reply_to_note_id INTEGER REFERENCES notes(id) ON DELETE SET NULL,
	system           INTEGER NOT NULL DEFAULT 0,
	position         TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_noteable ON notes(noteable_type, noteable_id);

CREATE TABLE IF NOT EXISTS system_note_metadata (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id      INTEGER NOT NULL UNIQUE REFERENCES notes(id) ON DELETE CASCADE,
	action       TEXT NOT NULL,
	commit_count INTEGER,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS award_emoji (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	awardable_type TEXT NOT NULL,
	awardable_id   INTEGER NOT NULL,
	name           TEXT NOT NULL,
	user_id        INTEGER NOT NULL REFERENCES users(id),
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id  INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	category    TEXT NOT NULL,
	author_id   INTEGER NOT NULL REFERENCES users(id),
	action      TEXT NOT NULL,
	target_type TEXT,
	target_id   INTEGER,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ci_pipelines (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id       INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	iid              INTEGER,
	ref              TEXT NOT NULL,
	sha              TEXT NOT NULL,
	status           TEXT NOT NULL,
	source           TEXT,
	user_id          INTEGER REFERENCES users(id),
	merge_request_id INTEGER REFERENCES merge_requests(id) ON DELETE SET NULL,
	created_at       TEXT NOT NULL,
	finished_at      TEXT
);

CREATE TABLE IF NOT EXISTS import_failures (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id        INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	correlation_id    TEXT NOT NULL,
	relation_key      TEXT,
	relation_index    INTEGER,
	path              TEXT,
	exception_class   TEXT,
	exception_message TEXT,
	retry_count       INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_import_failures_project ON import_failures(project_id);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	project_id  INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	status      TEXT NOT NULL,
	source      TEXT,
	version     TEXT,
	created     INTEGER NOT NULL DEFAULT 0,
	failures    INTEGER NOT NULL DEFAULT 0,
	notices     INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_import_runs_project ON import_runs(project_id);
`

// Initialize creates all tables if they don't exist and sets the schema version.
func Initialize(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Set schema version only if not already set.
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version from the meta table.
func SchemaVersion(db *sql.DB) (int, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}

	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing schema version %q: %w", val, err)
	}

	return v, nil
}

// migrations is a list of migration functions keyed by the version they migrate TO.
// For example, migrations[2] migrates from version 1 to version 2.
var migrations = map[int]func(tx *sql.Tx) error{
	2: func(tx *sql.Tx) error {
		_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	project_id  INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	status      TEXT NOT NULL,
	source      TEXT,
	version     TEXT,
	created     INTEGER NOT NULL DEFAULT 0,
	failures    INTEGER NOT NULL DEFAULT 0,
	notices     INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_import_runs_project ON import_runs(project_id);
`)
		return err
	},
}

// Migrate checks the current schema version and applies any pending migrations
// sequentially. It is a no-op when already at the latest version.
func Migrate(db *sql.DB) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}

	for v := version + 1; v <= currentSchemaVersion; v++ {
		migrateFn, ok := migrations[v]
		if !ok {
			return fmt.Errorf("missing migration for version %d", v)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d transaction: %w", v, err)
		}

		if err := migrateFn(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", v, err)
		}

		if _, err := tx.Exec(
			`UPDATE meta SET value = ? WHERE key = 'schema_version'`,
			strconv.Itoa(v),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating schema version to %d: %w", v, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", v, err)
		}
	}

	return nil
}
