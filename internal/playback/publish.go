package playback

import (
	"fmt"
	"runtime/debug"

	"github.com/llehouerou/wavesd/internal/playlist"
)

type notifyRequest int

const (
	notifyNone notifyRequest = iota
	notifyShow
	notifyHide
)

// dirtySet records which outputs changed during a processing slot.
type dirtySet struct {
	meta     bool
	state    bool
	queue    bool
	widget   bool
	position bool
	update   bool
	notify   notifyRequest
	force    bool
}

func (s *serviceImpl) requestNotification(r notifyRequest, force bool) {
	s.dirty.notify = r
	switch r {
	case notifyShow:
		s.dirty.force = s.dirty.force || force
	case notifyHide:
		s.dirty.force = false
	}
}

// flush publishes everything marked dirty since the last flush, then
// releases pending Flush callers.
func (s *serviceImpl) flush() {
	d := s.dirty
	s.dirty = dirtySet{}
	snap := *s.storeSnapshot()

	if d.meta {
		s.safely("PublishMetadata", func() error { return s.session.PublishMetadata(snap) })
	}
	if d.state {
		s.safely("PublishState", func() error { return s.session.PublishState(snap) })
	}
	if d.queue {
		s.safely("PublishQueue", func() error { return s.session.PublishQueue(snap) })
	}

	switch d.notify {
	case notifyShow:
		s.showNotification(snap, d.force)
	case notifyHide:
		s.lastNotifyKey = ""
		s.safely("HideNotification", func() error { s.notif.Hide(); return nil })
	}

	switch {
	case d.widget:
		s.safely("WidgetUpdate", func() error { s.widget.Update(snap); return nil })
	case d.position:
		s.safely("WidgetPosition", func() error { s.widget.UpdatePosition(snap); return nil })
	}

	if d.update {
		s.registry.each("Update", func(l Listener) { l.Update(snap) })
	}

	for _, done := range s.barriers {
		close(done)
	}
	s.barriers = nil
}

// showNotification skips requests that would render the same content as
// the last one, unless forced.
func (s *serviceImpl) showNotification(snap Snapshot, force bool) {
	if !snap.HasCurrent {
		return
	}
	key := notificationKey(snap)
	if !force && key == s.lastNotifyKey {
		return
	}
	if s.safely("ShowNotification", func() error { s.notif.Show(snap, force); return nil }) {
		s.lastNotifyKey = key
	}
}

func notificationKey(snap Snapshot) string {
	c := snap.Current
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s\x00%t\x00%t\x00%t",
		c.ID, c.Title, c.Artist, c.Album, c.ArtworkRef, snap.IsPlaying(),
		snap.HasNext, snap.HasPrevious)
}

// safely runs a publisher call, logging its error or panic. It reports
// whether the call succeeded.
func (s *serviceImpl) safely(name string, fn func() error) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.WithField("publisher", name).Errorf("panic: %v\n%s", rec, debug.Stack())
			ok = false
		}
	}()
	if err := fn(); err != nil {
		s.log.WithError(err).WithField("publisher", name).Warn("publish failed")
		return false
	}
	return true
}

// storeSnapshot builds the current snapshot and makes it visible to
// queries.
func (s *serviceImpl) storeSnapshot() *Snapshot {
	if s.snapItems == nil || s.snapVersion != s.queueVersion {
		s.snapItems = s.playlist.Items()
		s.snapVersion = s.queueVersion
	}
	items := s.snapItems
	index := s.playlist.CurrentIndex()
	current, hasCurrent := s.playlist.Current()

	from, to := 0, len(items)
	if s.carMode {
		from, to = playlist.Window(len(items), index, s.settings.QueueHalfWindow)
	}

	snap := &Snapshot{
		Items:       items,
		Index:       index,
		Current:     current,
		HasCurrent:  hasCurrent,
		Transport:   s.transport,
		Repeat:      s.playlist.Repeat(),
		Shuffle:     s.playlist.Shuffling(),
		HasNext:     s.playlist.HasNext(),
		HasPrevious: s.playlist.HasPrevious(),
		CanShuffle:  s.playlist.CanShuffle(),
		CanRepeat:   s.playlist.CanRepeat(),
		CarMode:     s.carMode,
		PodcastMode: hasCurrent && len(items) == 1 && current.IsPodcast,
		Window: QueueWindow{
			From:  from,
			To:    to,
			Items: items[from:to],
		},
		QueueVersion: s.queueVersion,
	}
	s.snapshot.Store(snap)
	return snap
}
