package state

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const keyRate = "playback.rate"

func (m *Manager) setting(key string) (string, bool, error) {
	var v string
	err := m.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func putSetting(db execer, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (m *Manager) setSetting(key, value string) error {
	return putSetting(m.db, key, value)
}

// SaveRate stores the playback rate used on the next start.
func (m *Manager) SaveRate(rate float64) error {
	return m.setSetting(keyRate, strconv.FormatFloat(rate, 'f', -1, 64))
}

// LoadRate returns the stored rate, 1 if none.
func (m *Manager) LoadRate() (float64, error) {
	v, ok, err := m.setting(keyRate)
	if err != nil || !ok {
		return 1, err
	}
	rate, err := strconv.ParseFloat(v, 64)
	if err != nil || rate <= 0 {
		return 1, fmt.Errorf("invalid stored rate %q", v)
	}
	return rate, nil
}

// Bookmark is a saved position in an item.
type Bookmark struct {
	ItemID    string
	Position  time.Duration
	CreatedAt time.Time
}

// AddBookmark stores a position. Duplicates are ignored.
func (m *Manager) AddBookmark(itemID string, pos time.Duration) error {
	_, err := m.db.Exec(`
		INSERT OR IGNORE INTO bookmarks (item_id, position_ms, created_at) VALUES (?, ?, ?)
	`, itemID, pos.Milliseconds(), time.Now().Unix())
	return err
}

// Bookmarks returns the bookmarks of an item ordered by position.
func (m *Manager) Bookmarks(itemID string) ([]Bookmark, error) {
	rows, err := m.db.Query(`
		SELECT item_id, position_ms, created_at FROM bookmarks
		WHERE item_id = ?
		ORDER BY position_ms
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		var b Bookmark
		var posMS, created int64
		if err := rows.Scan(&b.ItemID, &posMS, &created); err != nil {
			return nil, err
		}
		b.Position = time.Duration(posMS) * time.Millisecond
		b.CreatedAt = time.Unix(created, 0)
		out = append(out, b)
	}
	return out, rows.Err()
}
