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

CREATE TABLE IF NOT EXISTS app_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS emails (
	id           TEXT PRIMARY KEY,
	position     INTEGER NOT NULL,
	subject      TEXT NOT NULL DEFAULT '',
	sender       TEXT NOT NULL DEFAULT '',
	snippet      TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '',
	timestamp    TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT 'uncategorized',
	summary      TEXT NOT NULL DEFAULT '',
	action_items TEXT NOT NULL DEFAULT '',
	summarized   INTEGER NOT NULL DEFAULT 0 CHECK(summarized IN (0, 1))
);

CREATE INDEX IF NOT EXISTS idx_emails_position ON emails(position);
CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
