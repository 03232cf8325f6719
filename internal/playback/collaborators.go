package playback

import (
	"context"
	"io"
	"time"

	"github.com/llehouerou/wavesd/internal/playlist"
)

// SessionPublisher projects snapshots onto the OS-level control surfaces.
type SessionPublisher interface {
	PublishMetadata(s Snapshot) error
	PublishState(s Snapshot) error
	PublishQueue(s Snapshot) error
}

// NotificationManager shows and hides the persistent status notification.
// Implementations throttle on their own and must not block.
type NotificationManager interface {
	Show(s Snapshot, force bool)
	Hide()
}

// WidgetBroadcaster pushes lightweight updates to home-screen widgets.
type WidgetBroadcaster interface {
	Update(s Snapshot)
	UpdatePosition(s Snapshot)
}

// MessageAction is an optional action attached to a user-facing message.
type MessageAction int

const (
	ActionNone MessageAction = iota
	ActionOpenSettings
)

// Message is a one-shot user-facing message.
type Message struct {
	Text   string
	Action MessageAction
}

// Messenger surfaces one-shot messages to the user.
type Messenger interface {
	ShowMessage(m Message)
}

// Library is the read-only media library. Queries may be issued before the
// library is ready; callers wait on Ready first.
type Library interface {
	Ready() <-chan struct{}
	Lookup(ctx context.Context, id string) (playlist.MediaItem, bool, error)
	Browse(ctx context.Context, parentID string) ([]playlist.MediaItem, error)
	Search(ctx context.Context, query string) ([]playlist.MediaItem, error)
}

// MetadataResolver fills display fields and artwork for an item. It runs
// off the actor.
type MetadataResolver interface {
	Resolve(ctx context.Context, item playlist.MediaItem) (playlist.MediaItem, error)
}

// SavedQueue is the persisted playlist used to resume after a restart.
type SavedQueue struct {
	Items    []playlist.MediaItem
	Index    int
	Position time.Duration
	Repeat   playlist.RepeatMode
	Shuffle  bool
}

// Store persists the resume state and the playback rate.
type Store interface {
	SaveQueue(q SavedQueue) error
	LoadQueue() (*SavedQueue, error)
	SaveRate(rate float64) error
	LoadRate() (float64, error)
	AddBookmark(itemID string, pos time.Duration) error
}

// Inhibitor acquires a system wake lock. Closing the returned handle
// releases it.
type Inhibitor interface {
	Inhibit(why string) (io.Closer, error)
}

// AutoRewind rewinds a resumed item depending on how long it was paused.
type AutoRewind struct {
	ShortPause  time.Duration
	ShortRewind time.Duration
	LongPause   time.Duration
	LongRewind  time.Duration
}

// Amount returns how far to rewind after a pause of d.
func (a AutoRewind) Amount(d time.Duration) time.Duration {
	switch {
	case a.LongPause > 0 && d >= a.LongPause:
		return a.LongRewind
	case a.ShortPause > 0 && d >= a.ShortPause:
		return a.ShortRewind
	}
	return 0
}

// Settings are the read-only flags the core consumes.
type Settings struct {
	HeadsetAutoPlay bool
	QueueHalfWindow int
	AutoRewind      AutoRewind
}
