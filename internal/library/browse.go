package library

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/llehouerou/wavesd/internal/playlist"
)

// Browse tree IDs. The root lists album artists, an artist lists albums and
// an album lists tracks.
const (
	RootID       = "root"
	prefixArtist = "artist:"
	prefixAlbum  = "album:"
	prefixTrack  = "track:"
	albumIDSep   = "/"
)

// ErrUnknownID is returned by Browse for an ID outside the tree.
var ErrUnknownID = errors.New("unknown media id")

func artistID(artist string) string {
	return prefixArtist + url.PathEscape(artist)
}

func albumID(artist, album string) string {
	return prefixAlbum + url.PathEscape(artist) + albumIDSep + url.PathEscape(album)
}

// Browse returns the children of parentID. An empty parentID is the root.
func (l *Library) Browse(ctx context.Context, parentID string) ([]playlist.MediaItem, error) {
	switch {
	case parentID == "" || parentID == RootID:
		return l.browseArtists(ctx)
	case strings.HasPrefix(parentID, prefixArtist):
		artist, err := url.PathUnescape(strings.TrimPrefix(parentID, prefixArtist))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownID, parentID)
		}
		return l.browseAlbums(ctx, artist)
	case strings.HasPrefix(parentID, prefixAlbum):
		artist, album, ok := parseAlbumID(parentID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownID, parentID)
		}
		tracks, err := l.queryTracks(ctx, `
			WHERE album_artist = ? AND album = ?
			ORDER BY disc_number, track_number, title COLLATE NOCASE`, artist, album)
		if err != nil {
			return nil, err
		}
		return lo.Map(tracks, func(t Track, _ int) playlist.MediaItem { return t.Item() }), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownID, parentID)
}

func parseAlbumID(id string) (artist, album string, ok bool) {
	rest := strings.TrimPrefix(id, prefixAlbum)
	a, b, found := strings.Cut(rest, albumIDSep)
	if !found {
		return "", "", false
	}
	artist, err1 := url.PathUnescape(a)
	album, err2 := url.PathUnescape(b)
	if err1 != nil || err2 != nil {
		return "", "", false
	}
	return artist, album, true
}

func (l *Library) browseArtists(ctx context.Context) ([]playlist.MediaItem, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT DISTINCT album_artist FROM tracks ORDER BY album_artist COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []playlist.MediaItem
	for rows.Next() {
		var artist string
		if err := rows.Scan(&artist); err != nil {
			return nil, err
		}
		items = append(items, playlist.MediaItem{ID: artistID(artist), Title: artist, Browsable: true})
	}
	return items, rows.Err()
}

func (l *Library) browseAlbums(ctx context.Context, artist string) ([]playlist.MediaItem, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT album, MAX(year) as year
		FROM tracks
		WHERE album_artist = ?
		GROUP BY album
		ORDER BY (year IS NULL OR year = 0), year, album COLLATE NOCASE
	`, artist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []playlist.MediaItem
	for rows.Next() {
		var album string
		var year any
		if err := rows.Scan(&album, &year); err != nil {
			return nil, err
		}
		items = append(items, playlist.MediaItem{
			ID:        albumID(artist, album),
			Title:     album,
			Artist:    artist,
			Browsable: true,
		})
	}
	return items, rows.Err()
}

// Lookup resolves a playable item by ID.
func (l *Library) Lookup(ctx context.Context, id string) (playlist.MediaItem, bool, error) {
	raw, ok := strings.CutPrefix(id, prefixTrack)
	if !ok {
		return playlist.MediaItem{}, false, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return playlist.MediaItem{}, false, nil //nolint:nilerr // malformed id is not found
	}
	t, found, err := l.TrackByID(ctx, n)
	if err != nil || !found {
		return playlist.MediaItem{}, false, err
	}
	return t.Item(), true, nil
}
