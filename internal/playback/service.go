package playback

import (
	"context"
	"time"

	"github.com/llehouerou/wavesd/internal/playlist"
)

// Service is the playback core. Commands are fire-and-forget: they enqueue
// an event and return immediately. Queries read the latest published
// snapshot and never wait for the actor.
type Service interface {
	// Lifecycle
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error

	// Commands
	Play()
	Pause()
	TogglePlay()
	Stop()
	Seek(pos time.Duration)
	SeekBy(delta time.Duration)
	SkipNext(force bool)
	SkipPrevious(force bool)
	SetRate(rate float64, persist bool)
	Shuffle()
	SetShuffle(on bool)
	SetRepeatMode(mode playlist.RepeatMode)
	Load(items []playlist.MediaItem, start int)
	Append(items []playlist.MediaItem, index int)
	InsertNext(items []playlist.MediaItem)
	MoveItem(from, to int)
	RemoveAt(index int)
	PlayIndex(index int)
	SetCarMode(on bool)
	HeadsetChanged(plugged bool)
	Bookmark()
	LoadIDs(ctx context.Context, ids []string, start int) error

	// Publish requests
	ShowNotification(force bool)
	HideNotification()
	InvalidateNotification()
	UpdateMetadata()
	UpdateState()

	// Queries
	Snapshot() Snapshot
	CurrentItem() (playlist.MediaItem, bool)
	CurrentIndex() int
	IsPlaying() bool
	HasNext() bool
	HasPrevious() bool
	MediaList() []playlist.MediaItem
	QueueWindow() QueueWindow

	// Browse and search, answered once the library is ready
	Browse(ctx context.Context, parentID string) ([]playlist.MediaItem, error)
	Search(ctx context.Context, query string) ([]playlist.MediaItem, error)

	// Callbacks
	AddCallback(l Listener)
	RemoveCallback(l Listener)
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)

	// Flush waits until every event sent before the call is processed and
	// its output published.
	Flush(ctx context.Context) error
}
