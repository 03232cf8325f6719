// Package metadata fills display fields and artwork of local media items
// from their tags and from image files next to them.
package metadata

import (
	"context"
	"crypto/sha1" //nolint:gosec // cache key, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/dhowden/tag"
	"github.com/spf13/afero"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// coverNames lists common album art filenames in priority order.
var coverNames = []string{
	"cover.jpg", "cover.png", "cover.jpeg",
	"folder.jpg", "folder.png", "folder.jpeg",
	"album.jpg", "album.png", "album.jpeg",
	"front.jpg", "front.png", "front.jpeg",
}

// Resolver implements playback.MetadataResolver.
type Resolver struct {
	fs       afero.Fs
	cacheDir string
}

var _ playback.MetadataResolver = (*Resolver)(nil)

// DefaultCacheDir returns the artwork cache under the XDG cache directory.
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, "wavesd", "artwork")
}

// New creates a Resolver reading media from fs and writing extracted
// artwork below cacheDir.
func New(fs afero.Fs, cacheDir string) *Resolver {
	return &Resolver{fs: fs, cacheDir: cacheDir}
}

// Resolve returns item with missing tag fields and artwork filled in.
// Remote items are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, item playlist.MediaItem) (playlist.MediaItem, error) {
	path, ok := item.LocalPath()
	if !ok {
		return item, nil
	}
	if err := ctx.Err(); err != nil {
		return item, err
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return item, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m, err := ReadTags(f)
	if err == nil {
		fill(&item, m)
		if item.ArtworkRef == "" {
			if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
				ref, err := r.cacheArtwork(pic)
				if err != nil {
					return item, err
				}
				item.ArtworkRef = ref
			}
		}
	}

	if item.ArtworkRef == "" {
		item.ArtworkRef = FindAlbumArt(r.fs, path)
	}
	return item, nil
}

// ReadTags reads the tags of r. Malformed or very short files can make the
// tag parser panic; that is reported as an error.
func ReadTags(r io.ReadSeeker) (m tag.Metadata, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			m, err = nil, fmt.Errorf("read tags: %v", rec)
		}
	}()
	return tag.ReadFrom(r)
}

func fill(item *playlist.MediaItem, m tag.Metadata) {
	if item.Title == "" {
		item.Title = m.Title()
	}
	if item.Artist == "" {
		item.Artist = m.Artist()
	}
	if item.Album == "" {
		item.Album = m.Album()
	}
}

// cacheArtwork writes embedded artwork once, keyed by its content.
func (r *Resolver) cacheArtwork(pic *tag.Picture) (string, error) {
	sum := sha1.Sum(pic.Data) //nolint:gosec // cache key
	name := hex.EncodeToString(sum[:]) + extFor(pic)
	path := filepath.Join(r.cacheDir, name)

	if ok, err := afero.Exists(r.fs, path); err == nil && ok {
		return path, nil
	}
	if err := r.fs.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create artwork cache: %w", err)
	}
	if err := afero.WriteFile(r.fs, path, pic.Data, 0o644); err != nil {
		return "", fmt.Errorf("write artwork: %w", err)
	}
	return path, nil
}

func extFor(pic *tag.Picture) string {
	if pic.Ext != "" {
		return "." + strings.TrimPrefix(strings.ToLower(pic.Ext), ".")
	}
	switch pic.MIMEType {
	case "image/png":
		return ".png"
	default:
		return ".jpg"
	}
}

// FindAlbumArt looks for album art in the same directory as the track.
// Returns the path to the art file, or empty string if not found.
func FindAlbumArt(fs afero.Fs, trackPath string) string {
	dir := filepath.Dir(trackPath)
	for _, name := range coverNames {
		path := filepath.Join(dir, name)
		if ok, err := afero.Exists(fs, path); err == nil && ok {
			return path
		}
	}
	return ""
}
