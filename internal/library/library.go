// Package library is the read-only media library backed by SQLite. The
// search index is built in the background; Ready is closed once it is
// available.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	dbutil "github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// Track is a row of the library.
type Track struct {
	ID          int64
	Path        string
	Mtime       int64
	Artist      string
	AlbumArtist string
	Album       string
	Title       string
	DiscNumber  int
	TrackNumber int
	Year        int
	Genre       string
	Duration    time.Duration
}

// Item converts the track to a playable media item.
func (t Track) Item() playlist.MediaItem {
	return playlist.MediaItem{
		ID:       trackID(t.ID),
		URI:      t.Path,
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		Duration: t.Duration,
	}
}

// Library implements playback.Library.
type Library struct {
	db  *sql.DB
	fs  afero.Fs
	log *logrus.Entry

	ready     chan struct{}
	readyOnce sync.Once

	mu    sync.RWMutex
	index []indexEntry
}

var _ playback.Library = (*Library)(nil)

// DefaultPath returns the database path under the XDG data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join("wavesd", "library.db"))
}

// Open opens the library database at path.
func Open(path string, log *logrus.Entry) (*Library, error) {
	db, err := dbutil.Open(path, schema...)
	if err != nil {
		return nil, err
	}
	return New(db, afero.NewOsFs(), log), nil
}

// New wraps an initialized database. Files are read through fs.
func New(db *sql.DB, fs afero.Fs, log *logrus.Entry) *Library {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Library{
		db:    db,
		fs:    fs,
		log:   log.WithField("component", "library"),
		ready: make(chan struct{}),
	}
}

// Close closes the database.
func (l *Library) Close() error {
	return l.db.Close()
}

// Ready is closed once the search index has been loaded.
func (l *Library) Ready() <-chan struct{} {
	return l.ready
}

// Load builds the search index and marks the library ready. The library
// becomes ready even when loading fails, with an empty index.
func (l *Library) Load(ctx context.Context) error {
	defer l.readyOnce.Do(func() { close(l.ready) })
	start := time.Now()
	if err := l.refreshIndex(ctx); err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	l.mu.RLock()
	n := len(l.index)
	l.mu.RUnlock()
	l.log.WithFields(logrus.Fields{"tracks": n, "took": time.Since(start)}).Info("library ready")
	return nil
}

// TrackCount returns the number of tracks.
func (l *Library) TrackCount(ctx context.Context) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&count)
	return count, err
}

// TrackByID returns a track by its row ID.
func (l *Library) TrackByID(ctx context.Context, id int64) (Track, bool, error) {
	tracks, err := l.queryTracks(ctx, `WHERE id = ?`, id)
	if err != nil || len(tracks) == 0 {
		return Track{}, false, err
	}
	return tracks[0], true, nil
}

const trackColumns = `id, path, mtime, artist, album_artist, album, title,
	disc_number, track_number, year, genre, duration_ms`

func (l *Library) queryTracks(ctx context.Context, where string, args ...any) ([]Track, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT `+trackColumns+` FROM tracks `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		var disc, trackNum, year sql.Null[int64]
		var genre sql.Null[string]
		var durationMS int64
		if err := rows.Scan(&t.ID, &t.Path, &t.Mtime, &t.Artist, &t.AlbumArtist, &t.Album, &t.Title,
			&disc, &trackNum, &year, &genre, &durationMS); err != nil {
			return nil, err
		}
		t.DiscNumber = int(dbutil.Value(disc))
		t.TrackNumber = int(dbutil.Value(trackNum))
		t.Year = int(dbutil.Value(year))
		t.Genre = dbutil.Value(genre)
		t.Duration = time.Duration(durationMS) * time.Millisecond
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func trackID(id int64) string {
	return prefixTrack + strconv.FormatInt(id, 10)
}
