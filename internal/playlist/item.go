package playlist

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// MediaItem is a single playable entry. Items are values: a metadata refresh
// replaces the item in the playlist instead of mutating it.
type MediaItem struct {
	ID         string
	URI        string
	Title      string
	Artist     string
	Album      string
	ArtworkRef string
	Duration   time.Duration
	Position   time.Duration // last known position

	IsVideo    bool
	IsPodcast  bool
	ForceAudio bool
	Browsable  bool // browse tree folder, not playable
}

var remoteSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"rtsp":  true,
	"rtmp":  true,
	"mms":   true,
	"ftp":   true,
	"sftp":  true,
	"smb":   true,
}

// IsStream reports whether the item is fetched over the network.
func (m MediaItem) IsStream() bool {
	u, err := url.Parse(m.URI)
	if err != nil {
		return false
	}
	return remoteSchemes[strings.ToLower(u.Scheme)]
}

// LocalPath returns the filesystem path for file:// and bare path URIs.
func (m MediaItem) LocalPath() (string, bool) {
	if m.URI == "" {
		return "", false
	}
	u, err := url.Parse(m.URI)
	if err != nil {
		return "", false
	}
	switch u.Scheme {
	case "":
		return filepath.Clean(m.URI), true
	case "file":
		return filepath.Clean(u.Path), true
	}
	return "", false
}

// DisplayTitle falls back to the last path segment when no title is known.
func (m MediaItem) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	if p, ok := m.LocalPath(); ok {
		return filepath.Base(p)
	}
	if u, err := url.Parse(m.URI); err == nil && u.Path != "" {
		return filepath.Base(u.Path)
	}
	return m.URI
}
