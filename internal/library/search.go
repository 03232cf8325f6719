package library

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/llehouerou/wavesd/internal/playlist"
)

// MaxSearchResults caps Search results.
const MaxSearchResults = 50

type indexEntry struct {
	item playlist.MediaItem
	key  string
}

func (l *Library) refreshIndex(ctx context.Context) error {
	tracks, err := l.queryTracks(ctx, `ORDER BY title COLLATE NOCASE`)
	if err != nil {
		return err
	}
	index := make([]indexEntry, len(tracks))
	for i, t := range tracks {
		index[i] = indexEntry{
			item: t.Item(),
			key:  strings.Join([]string{t.Title, t.Artist, t.AlbumArtist, t.Album}, " "),
		}
	}
	l.mu.Lock()
	l.index = index
	l.mu.Unlock()
	return nil
}

// Search ranks tracks whose title, artist and album fuzzily match query.
func (l *Library) Search(ctx context.Context, query string) ([]playlist.MediaItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	index := l.index
	l.mu.RUnlock()

	keys := make([]string, len(index))
	for i, e := range index {
		keys[i] = e.key
	}
	ranks := fuzzy.RankFindNormalizedFold(query, keys)
	sort.Stable(ranks)

	n := min(len(ranks), MaxSearchResults)
	items := make([]playlist.MediaItem, 0, n)
	for _, r := range ranks[:n] {
		items = append(items, index[r.OriginalIndex].item)
	}
	return items, nil
}
