package state

var schema = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS queue_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		current_index INTEGER NOT NULL DEFAULT -1,
		position_ms INTEGER NOT NULL DEFAULT 0,
		repeat_mode INTEGER NOT NULL DEFAULT 0,
		shuffle INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS queue_items (
		position INTEGER PRIMARY KEY,
		item_id TEXT NOT NULL,
		uri TEXT NOT NULL,
		title TEXT,
		artist TEXT,
		album TEXT,
		artwork TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		is_video INTEGER NOT NULL DEFAULT 0,
		is_podcast INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookmarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id TEXT NOT NULL,
		position_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(item_id, position_ms)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookmarks_item ON bookmarks(item_id, position_ms)`,
	`CREATE TABLE IF NOT EXISTS lastfm_pending_scrobbles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		artist TEXT NOT NULL,
		title TEXT NOT NULL,
		album TEXT,
		length_ms INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at INTEGER NOT NULL
	)`,
	`INSERT OR IGNORE INTO schema_version (version) VALUES (1)`,
}
