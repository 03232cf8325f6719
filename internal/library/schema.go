package library

// tracks holds one row per audio file under the library sources. Browse
// groups by album_artist then album, so both get an index.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		mtime INTEGER NOT NULL,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album_artist TEXT NOT NULL,
		album TEXT NOT NULL,
		year INTEGER,
		disc_number INTEGER,
		track_number INTEGER,
		genre TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		scanned_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tracks_by_album ON tracks(album_artist COLLATE NOCASE, album COLLATE NOCASE)`,
}
