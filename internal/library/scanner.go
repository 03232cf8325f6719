package library

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	dbutil "github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/metadata"
)

const numWorkers = 8

var musicExts = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
}

// IsMusicFile reports whether path has a supported audio extension.
func IsMusicFile(path string) bool {
	return musicExts[strings.ToLower(filepath.Ext(path))]
}

// ScanStats summarizes an Add run.
type ScanStats struct {
	Added   int
	Updated int
	Removed int
	Failed  int
}

// fileInfo holds information about a discovered music file.
type fileInfo struct {
	path  string
	mtime int64
}

// trackResult holds the result of processing a music file.
type trackResult struct {
	track Track
	isNew bool
	err   error
}

// Add scans the source directories, inserting new and modified files and
// removing tracks whose files are gone. The search index is refreshed
// afterwards.
func (l *Library) Add(ctx context.Context, sources []string) (ScanStats, error) {
	var stats ScanStats

	files := l.discoverFiles(sources)
	existing, err := l.existingTracks(ctx, sources)
	if err != nil {
		return stats, err
	}

	var todo []fileInfo
	isNew := make(map[string]bool, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.path] = true
		mtime, ok := existing[f.path]
		if ok && mtime == f.mtime {
			continue
		}
		isNew[f.path] = !ok
		todo = append(todo, f)
	}

	results := l.processFiles(ctx, todo, isNew)

	now := time.Now().Unix()
	err = dbutil.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		for _, r := range results {
			if r.err != nil {
				stats.Failed++
				l.log.WithError(r.err).WithField("path", r.track.Path).Debug("read tags")
				continue
			}
			if err := upsertTrack(tx, r.track, now); err != nil {
				return err
			}
			if r.isNew {
				stats.Added++
			} else {
				stats.Updated++
			}
		}
		for path := range existing {
			if seen[path] {
				continue
			}
			if _, err := tx.Exec(`DELETE FROM tracks WHERE path = ?`, path); err != nil {
				return err
			}
			stats.Removed++
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	return stats, l.refreshIndex(ctx)
}

// discoverFiles walks the sources and returns all music files found.
func (l *Library) discoverFiles(sources []string) []fileInfo {
	var files []fileInfo
	for _, src := range sources {
		_ = afero.Walk(l.fs, src, func(path string, info os.FileInfo, walkErr error) error {
			// Skip any walk errors - intentionally continuing to scan other paths
			if walkErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}
			if info.IsDir() || !IsMusicFile(path) {
				return nil
			}
			files = append(files, fileInfo{path: path, mtime: info.ModTime().Unix()})
			return nil
		})
	}
	return files
}

func (l *Library) existingTracks(ctx context.Context, sources []string) (map[string]int64, error) {
	existing := make(map[string]int64)
	for _, src := range sources {
		prefix := strings.TrimSuffix(src, string(filepath.Separator)) + string(filepath.Separator)
		rows, err := l.db.QueryContext(ctx,
			`SELECT path, mtime FROM tracks WHERE substr(path, 1, ?) = ?`, len(prefix), prefix)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var path string
			var mtime int64
			if err := rows.Scan(&path, &mtime); err != nil {
				rows.Close()
				return nil, err
			}
			existing[path] = mtime
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return existing, nil
}

// processFiles reads tags with a pool of workers.
func (l *Library) processFiles(ctx context.Context, files []fileInfo, isNew map[string]bool) []trackResult {
	jobs := make(chan fileInfo)
	out := make(chan trackResult)

	var wg sync.WaitGroup
	for range min(numWorkers, max(len(files), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				t, err := l.readTrack(f)
				out <- trackResult{track: t, isNew: isNew[f.path], err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]trackResult, 0, len(files))
	for r := range out {
		results = append(results, r)
	}
	return results
}

func (l *Library) readTrack(f fileInfo) (Track, error) {
	t := Track{
		Path:  f.path,
		Mtime: f.mtime,
		Title: strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path)),
	}
	file, err := l.fs.Open(f.path)
	if err != nil {
		return t, err
	}
	defer file.Close()

	m, err := metadata.ReadTags(file)
	if err != nil {
		// untagged files are kept with their file name
		return t, nil //nolint:nilerr // missing tags are not a scan failure
	}
	if m.Title() != "" {
		t.Title = m.Title()
	}
	t.Artist = m.Artist()
	t.AlbumArtist = m.AlbumArtist()
	if t.AlbumArtist == "" {
		t.AlbumArtist = t.Artist
	}
	t.Album = m.Album()
	t.Year = m.Year()
	t.Genre = m.Genre()
	t.TrackNumber, _ = m.Track()
	t.DiscNumber, _ = m.Disc()
	return t, nil
}

func upsertTrack(tx *sql.Tx, t Track, now int64) error {
	_, err := tx.Exec(`
		INSERT INTO tracks
			(path, mtime, artist, album_artist, album, title, disc_number, track_number, year, genre, duration_ms, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime,
			artist = excluded.artist,
			album_artist = excluded.album_artist,
			album = excluded.album,
			title = excluded.title,
			disc_number = excluded.disc_number,
			track_number = excluded.track_number,
			year = excluded.year,
			genre = excluded.genre,
			duration_ms = excluded.duration_ms,
			scanned_at = excluded.scanned_at
	`, t.Path, t.Mtime, t.Artist, t.AlbumArtist, t.Album, t.Title,
		t.DiscNumber, t.TrackNumber, t.Year, t.Genre, t.Duration.Milliseconds(), now)
	return err
}
