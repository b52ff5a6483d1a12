package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS threads (
	id              TEXT PRIMARY KEY,
	subject         TEXT NOT NULL DEFAULT '',
	party_name      TEXT NOT NULL DEFAULT '',
	party_avatar    TEXT NOT NULL DEFAULT '',
	last_message_at TEXT NOT NULL DEFAULT '',
	has_unread      INTEGER NOT NULL DEFAULT 0,
	position        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL DEFAULT 'generic',
	title      TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	is_read    INTEGER NOT NULL DEFAULT 0,
	position   INTEGER NOT NULL DEFAULT 0
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	resource TEXT PRIMARY KEY,
	saved_at TEXT NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
