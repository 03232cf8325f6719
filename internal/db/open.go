// Package db opens the SQLite databases used for the library and the resume
// state.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Open opens the database at path, creating its directory, and applies
// schema. An in-memory database is limited to one connection so every
// query sees the same data.
func Open(path string, schema ...string) (*sql.DB, error) {
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == Memory {
		db.SetMaxOpenConns(1)
	}

	stmts := pragmas
	if path != Memory {
		stmts = append([]string{"PRAGMA journal_mode = WAL"}, stmts...)
	}
	for _, stmt := range append(stmts, schema...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init %s: %w", path, err)
		}
	}
	return db, nil
}
