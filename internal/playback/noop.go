package playback

import (
	"context"
	"io"
	"time"

	"github.com/llehouerou/wavesd/internal/playlist"
)

type noopSession struct{}

func (noopSession) PublishMetadata(Snapshot) error { return nil }
func (noopSession) PublishState(Snapshot) error    { return nil }
func (noopSession) PublishQueue(Snapshot) error    { return nil }

type noopNotifications struct{}

func (noopNotifications) Show(Snapshot, bool) {}
func (noopNotifications) Hide()               {}

type noopWidget struct{}

func (noopWidget) Update(Snapshot)         {}
func (noopWidget) UpdatePosition(Snapshot) {}

type noopMessenger struct{}

func (noopMessenger) ShowMessage(Message) {}

type noopStore struct{}

func (noopStore) SaveQueue(SavedQueue) error              { return nil }
func (noopStore) LoadQueue() (*SavedQueue, error)         { return nil, nil }
func (noopStore) SaveRate(float64) error                  { return nil }
func (noopStore) LoadRate() (float64, error)              { return 1, nil }
func (noopStore) AddBookmark(string, time.Duration) error { return nil }

type noopInhibitor struct{}

func (noopInhibitor) Inhibit(string) (io.Closer, error) { return io.NopCloser(nil), nil }

// emptyLibrary is always ready and always empty.
type emptyLibrary struct{}

var readyCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (emptyLibrary) Ready() <-chan struct{} { return readyCh }

func (emptyLibrary) Lookup(context.Context, string) (playlist.MediaItem, bool, error) {
	return playlist.MediaItem{}, false, nil
}

func (emptyLibrary) Browse(context.Context, string) ([]playlist.MediaItem, error) {
	return nil, nil
}

func (emptyLibrary) Search(context.Context, string) ([]playlist.MediaItem, error) {
	return nil, nil
}
