package remote

import (
	"time"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/session"
	"github.com/llehouerou/wavesd/internal/sleeptimer"
)

// ErrorMessage is the body of every non-data response.
type ErrorMessage struct {
	ErrStatusCode int    `json:"status"`
	ErrMessage    string `json:"message"`
}

// Item is a media item on the wire.
type Item struct {
	ID         string `json:"id"`
	URI        string `json:"uri,omitempty"`
	Title      string `json:"title"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Browsable  bool   `json:"browsable,omitempty"`
	IsPodcast  bool   `json:"is_podcast,omitempty"`
	IsVideo    bool   `json:"is_video,omitempty"`
}

func itemFrom(m playlist.MediaItem) Item {
	return Item{
		ID:         m.ID,
		URI:        m.URI,
		Title:      m.DisplayTitle(),
		Artist:     m.Artist,
		Album:      m.Album,
		DurationMS: m.Duration.Milliseconds(),
		Browsable:  m.Browsable,
		IsPodcast:  m.IsPodcast,
		IsVideo:    m.IsVideo,
	}
}

func itemsFrom(ms []playlist.MediaItem) []Item {
	out := make([]Item, len(ms))
	for i, m := range ms {
		out[i] = itemFrom(m)
	}
	return out
}

// Status is the transport and navigation state.
type Status struct {
	State       string  `json:"state"`
	Current     *Item   `json:"current,omitempty"`
	Index       int     `json:"index"`
	PositionMS  int64   `json:"position_ms"`
	LengthMS    int64   `json:"length_ms"`
	Rate        float64 `json:"rate"`
	Seekable    bool    `json:"seekable"`
	Repeat      string  `json:"repeat"`
	Shuffle     bool    `json:"shuffle"`
	HasNext     bool    `json:"has_next"`
	HasPrevious bool    `json:"has_previous"`
	CarMode     bool    `json:"car_mode"`
	PodcastMode bool    `json:"podcast_mode"`
	Error       string  `json:"error,omitempty"`
}

func statusFrom(s playback.Snapshot) Status {
	st := Status{
		State:       s.Transport.Mode.String(),
		Index:       s.Index,
		PositionMS:  s.Transport.Time.Milliseconds(),
		LengthMS:    s.Transport.Length.Milliseconds(),
		Rate:        s.Transport.Rate,
		Seekable:    s.Transport.Seekable,
		Repeat:      s.Repeat.String(),
		Shuffle:     s.Shuffle,
		HasNext:     s.HasNext,
		HasPrevious: s.HasPrevious,
		CarMode:     s.CarMode,
		PodcastMode: s.PodcastMode,
	}
	if s.HasCurrent {
		it := itemFrom(s.Current)
		st.Current = &it
	}
	if s.Transport.LastErr != nil {
		st.Error = s.Transport.LastErr.Error()
	}
	return st
}

// Queue is the playlist, or the bounded window around the current item in
// car mode.
type Queue struct {
	Items   []Item `json:"items"`
	From    int    `json:"from"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Version uint64 `json:"version"`
}

func queueFrom(s playback.Snapshot) Queue {
	return Queue{
		Items:   itemsFrom(s.Window.Items),
		From:    s.Window.From,
		Index:   s.Index,
		Total:   len(s.Items),
		Version: s.QueueVersion,
	}
}

// LoadRequest replaces or extends the playlist with library items.
type LoadRequest struct {
	IDs   []string `json:"ids"`
	Start int      `json:"start"`
	// Index is the insertion point for append; -1 or absent appends at the end.
	Index *int `json:"index,omitempty"`
}

// SleepRequest arms the sleep timer. Exactly one of Deadline and InSeconds
// is used; Deadline wins.
type SleepRequest struct {
	Deadline   *time.Time `json:"deadline,omitempty"`
	InSeconds  int        `json:"in_seconds,omitempty"`
	WaitForEnd bool       `json:"wait_for_end"`
}

// Sleep is the sleep timer state.
type Sleep struct {
	Armed      bool       `json:"armed"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	WaitForEnd bool       `json:"wait_for_end"`
}

func sleepFrom(s sleeptimer.Status) Sleep {
	out := Sleep{Armed: s.Armed, WaitForEnd: s.WaitForEnd}
	if s.Armed {
		d := s.Deadline
		out.Deadline = &d
	}
	return out
}

// Session is the last state published to session surfaces.
type Session struct {
	Active   bool                   `json:"active"`
	Metadata *SessionMetadata       `json:"metadata,omitempty"`
	State    *SessionState          `json:"state,omitempty"`
	Queue    []session.QueueItem    `json:"queue"`
	Actions  []string               `json:"actions"`
	Custom   []session.CustomAction `json:"custom_actions,omitempty"`
}

// SessionMetadata is session.Metadata on the wire.
type SessionMetadata struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	ArtURL     string `json:"art_url,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// SessionState is session.State on the wire.
type SessionState struct {
	Status     string  `json:"status"`
	PositionMS int64   `json:"position_ms"`
	Rate       float64 `json:"rate"`
	CanSeek    bool    `json:"can_seek"`
	Active     int     `json:"active_index"`
	Repeat     string  `json:"repeat"`
	Shuffle    bool    `json:"shuffle"`
	Error      string  `json:"error,omitempty"`
}
