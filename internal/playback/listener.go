package playback

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// MediaEventType identifies a MediaEvent.
type MediaEventType int

const (
	// MediaChanged is sent when another item becomes current.
	MediaChanged MediaEventType = iota
	// MetaChanged is sent when the current item was replaced by a refreshed copy.
	MetaChanged
)

// MediaEvent describes a change of the current item.
type MediaEvent struct {
	Type MediaEventType
	Item playlist.MediaItem
}

// Listener observes the playback core. Methods are called on the actor
// goroutine and must return quickly; they may call query methods and send
// commands, but must not wait for the actor (Flush, Shutdown).
//
// Listeners are identified by value, so implementations must be comparable
// (pointer receivers).
type Listener interface {
	Update(s Snapshot)
	OnMediaEvent(ev MediaEvent)
	OnPlayerEvent(ev player.Event)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
// Register it by pointer.
type ListenerFuncs struct {
	UpdateFunc      func(Snapshot)
	MediaEventFunc  func(MediaEvent)
	PlayerEventFunc func(player.Event)
}

func (f *ListenerFuncs) Update(s Snapshot) {
	if f.UpdateFunc != nil {
		f.UpdateFunc(s)
	}
}

func (f *ListenerFuncs) OnMediaEvent(ev MediaEvent) {
	if f.MediaEventFunc != nil {
		f.MediaEventFunc(ev)
	}
}

func (f *ListenerFuncs) OnPlayerEvent(ev player.Event) {
	if f.PlayerEventFunc != nil {
		f.PlayerEventFunc(ev)
	}
}

// registry is the set of registered listeners, in registration order.
// It is only touched by the actor.
type registry struct {
	listeners []Listener
	log       *logrus.Entry
}

func (r *registry) add(l Listener) {
	if l == nil {
		return
	}
	for _, existing := range r.listeners {
		if existing == l {
			return
		}
	}
	r.listeners = append(r.listeners, l)
}

func (r *registry) remove(l Listener) {
	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return
		}
	}
}

func (r *registry) len() int {
	return len(r.listeners)
}

func (r *registry) each(name string, fn func(Listener)) {
	for _, l := range r.listeners {
		r.call(name, l, fn)
	}
}

func (r *registry) call(name string, l Listener, fn func(Listener)) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("callback", name).Errorf("listener panic: %v\n%s", rec, debug.Stack())
		}
	}()
	fn(l)
}
