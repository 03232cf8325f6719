package playback

import "github.com/llehouerou/wavesd/internal/playlist"

// QueueWindow is the view of the playlist published to queue surfaces.
// In car mode it is bounded around the current index, otherwise it spans
// the whole playlist.
type QueueWindow struct {
	From  int
	To    int
	Items []playlist.MediaItem
}

// Len returns the number of items in the window.
func (w QueueWindow) Len() int {
	return len(w.Items)
}

// Contains reports whether playlist index i is inside the window.
func (w QueueWindow) Contains(i int) bool {
	return i >= w.From && i < w.To
}

// Snapshot is an immutable projection of the playback state. Slices are
// shared between snapshots and must not be modified.
type Snapshot struct {
	Items      []playlist.MediaItem
	Index      int
	Current    playlist.MediaItem
	HasCurrent bool

	Transport TransportState

	Repeat      playlist.RepeatMode
	Shuffle     bool
	HasNext     bool
	HasPrevious bool
	CanShuffle  bool
	CanRepeat   bool

	CarMode     bool
	PodcastMode bool
	Window      QueueWindow

	// QueueVersion changes whenever the item list changes.
	QueueVersion uint64
}

// IsPlaying reports whether the transport is playing.
func (s Snapshot) IsPlaying() bool {
	return s.Transport.Mode == ModePlaying
}

// IsStreaming reports whether the current item is a network stream and
// playback is not stopped.
func (s Snapshot) IsStreaming() bool {
	if !s.HasCurrent {
		return false
	}
	switch s.Transport.Mode {
	case ModePlaying, ModePaused:
		return s.Current.IsStream()
	}
	return false
}
