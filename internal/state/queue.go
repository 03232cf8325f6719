package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbutil "github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

func getQueue(db *sql.DB) (*playback.SavedQueue, error) {
	var index int
	var positionMS int64
	var repeat int
	var shuffle bool
	row := db.QueryRow(`SELECT current_index, position_ms, repeat_mode, shuffle FROM queue_state WHERE id = 1`)
	err := row.Scan(&index, &positionMS, &repeat, &shuffle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil queue means nothing saved
	}
	if err != nil {
		return nil, fmt.Errorf("load queue state: %w", err)
	}

	rows, err := db.Query(`
		SELECT item_id, uri, title, artist, album, artwork, duration_ms, is_video, is_podcast
		FROM queue_items
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("load queue items: %w", err)
	}
	defer rows.Close()

	var items []playlist.MediaItem
	for rows.Next() {
		var it playlist.MediaItem
		var title, artist, album, artwork sql.Null[string]
		var durationMS int64
		if err := rows.Scan(&it.ID, &it.URI, &title, &artist, &album, &artwork,
			&durationMS, &it.IsVideo, &it.IsPodcast); err != nil {
			return nil, err
		}
		it.Title = dbutil.Value(title)
		it.Artist = dbutil.Value(artist)
		it.Album = dbutil.Value(album)
		it.ArtworkRef = dbutil.Value(artwork)
		it.Duration = time.Duration(durationMS) * time.Millisecond
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if index >= len(items) {
		index = len(items) - 1
	}
	return &playback.SavedQueue{
		Items:    items,
		Index:    index,
		Position: time.Duration(positionMS) * time.Millisecond,
		Repeat:   playlist.RepeatMode(repeat),
		Shuffle:  shuffle,
	}, nil
}

func saveQueue(sqlDB *sql.DB, q playback.SavedQueue) error {
	return dbutil.WithTx(context.Background(), sqlDB, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM queue_items`); err != nil {
			return err
		}

		_, err := tx.Exec(`
			INSERT INTO queue_state (id, current_index, position_ms, repeat_mode, shuffle)
			VALUES (1, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				position_ms = excluded.position_ms,
				repeat_mode = excluded.repeat_mode,
				shuffle = excluded.shuffle
		`, q.Index, q.Position.Milliseconds(), int(q.Repeat), q.Shuffle)
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO queue_items (position, item_id, uri, title, artist, album, artwork, duration_ms, is_video, is_podcast)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, it := range q.Items {
			_, err = stmt.Exec(i, it.ID, it.URI, it.Title, it.Artist, it.Album, it.ArtworkRef,
				it.Duration.Milliseconds(), it.IsVideo, it.IsPodcast)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
