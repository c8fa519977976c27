package store

// CurrentSchemaVersion is the schema version this build understands. A
// database opened with a stored version greater than this is rejected with
// StoreVersionMismatch per §6 ("unknown future schema version").
const CurrentSchemaVersion = 1

// schemaDDL creates every table, index, and trigger needed by the store.
// Statements are idempotent (IF NOT EXISTS) so Open can run them against an
// existing database unconditionally.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	path         TEXT NOT NULL,
	filename     TEXT NOT NULL,
	file_type    TEXT NOT NULL,
	size         INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	modified_at  TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	root         TEXT NOT NULL,
	is_deleted   INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_files_path_live
	ON files(path) WHERE is_deleted = 0;
CREATE INDEX IF NOT EXISTS idx_files_type ON files(file_type);
CREATE INDEX IF NOT EXISTS idx_files_deleted ON files(is_deleted);

CREATE TABLE IF NOT EXISTS content (
	file_id         INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
	text            TEXT NOT NULL,
	word_count      INTEGER NOT NULL,
	summary         TEXT NOT NULL DEFAULT '',
	source_language TEXT NOT NULL DEFAULT ''
);

-- Standalone (non "external content") FTS5 table: rows are populated and
-- retracted by the triggers below, never written directly by application
-- code, per spec §4.1's "not by direct writes from application code" rule.
-- rowid is pinned to content.file_id so content_fts and content stay
-- addressable by the same key without a side mapping table.
CREATE VIRTUAL TABLE IF NOT EXISTS content_fts USING fts5(
	filename,
	content,
	tokenize = 'porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS content_fts_ai AFTER INSERT ON content BEGIN
	INSERT INTO content_fts(rowid, filename, content)
	SELECT NEW.file_id, f.filename, NEW.text FROM files f WHERE f.id = NEW.file_id;
END;

CREATE TRIGGER IF NOT EXISTS content_fts_au AFTER UPDATE ON content BEGIN
	DELETE FROM content_fts WHERE rowid = OLD.file_id;
	INSERT INTO content_fts(rowid, filename, content)
	SELECT NEW.file_id, f.filename, NEW.text FROM files f WHERE f.id = NEW.file_id;
END;

CREATE TRIGGER IF NOT EXISTS content_fts_ad AFTER DELETE ON content BEGIN
	DELETE FROM content_fts WHERE rowid = OLD.file_id;
END;

CREATE TABLE IF NOT EXISTS vectors (
	file_id INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
	vector  BLOB NOT NULL,
	dim     INTEGER NOT NULL,
	model   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_model ON vectors(model);
`

// pragmas are applied as statements, not DSN query parameters, because
// modernc.org/sqlite does not reliably honor pragma-shaped DSN params.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA cache_size = -65536",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA mmap_size = 268435456",
	"PRAGMA foreign_keys = ON",
}
