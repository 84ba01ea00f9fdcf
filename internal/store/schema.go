package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	key           TEXT UNIQUE,
	kind          TEXT NOT NULL DEFAULT 'main',
	parent_id     TEXT REFERENCES sessions(id),
	label         TEXT,
	task          TEXT,
	summary       TEXT,
	model         TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_parent ON sessions(parent_id);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	role        TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);

CREATE TABLE IF NOT EXISTS tool_calls (
	id            TEXT PRIMARY KEY,
	message_id    TEXT NOT NULL REFERENCES messages(id),
	session_id    TEXT NOT NULL REFERENCES sessions(id),
	tool_name     TEXT NOT NULL,
	input_json    TEXT NOT NULL DEFAULT '{}',
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tool_calls_session ON tool_calls(session_id);

CREATE TABLE IF NOT EXISTS tool_results (
	tool_call_id  TEXT PRIMARY KEY REFERENCES tool_calls(id),
	session_id    TEXT NOT NULL REFERENCES sessions(id),
	output        TEXT NOT NULL DEFAULT '',
	is_error      INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS path_policies (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	access      TEXT NOT NULL,
	recursive   INTEGER NOT NULL DEFAULT 0,
	description TEXT
);

CREATE TABLE IF NOT EXISTS audit_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ts          TEXT NOT NULL,
	session_id  TEXT,
	level       TEXT NOT NULL,
	category    TEXT NOT NULL,
	event       TEXT NOT NULL,
	summary     TEXT NOT NULL,
	detail_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts);
CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_log(session_id);

CREATE TABLE IF NOT EXISTS observations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT NOT NULL,
	key         TEXT NOT NULL,
	value       TEXT NOT NULL DEFAULT '',
	count       INTEGER NOT NULL DEFAULT 1,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_observations_kind_key ON observations(kind, key, updated_at);
`
