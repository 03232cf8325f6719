package playback

import (
	"runtime/debug"
	"time"

	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
)

const (
	// previousLimit is how far into an item skipPrevious restarts it instead
	// of going back, and how long a second press goes back regardless.
	previousLimit = 5 * time.Second

	minRate = 0.25
	maxRate = 4.0
)

// process handles one batch taken from the mailbox. Each batch is one
// processing slot: dirty publishers are flushed once at the end.
func (s *serviceImpl) process(batch []Event) {
	for _, ev := range batch {
		s.handleSafe(ev)
		s.storeSnapshot()
	}
	s.flush()
}

func (s *serviceImpl) handleSafe(ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Errorf("panic handling %T: %v\n%s", ev, rec, debug.Stack())
		}
	}()
	s.handle(ev)
}

//nolint:gocyclo // one case per event type
func (s *serviceImpl) handle(ev Event) {
	switch e := ev.(type) {
	case engineEvent:
		if e.gen != s.gen.Load() {
			s.log.WithField("event", e.ev.Type).Debug("dropping stale engine event")
			return
		}
		s.onEngineEvent(e.ev)
	case cmdPlay:
		s.play()
	case cmdPause:
		s.pause()
	case cmdToggle:
		if s.transport.Mode == ModePlaying {
			s.pause()
		} else {
			s.play()
		}
	case cmdStop:
		s.stop()
	case cmdSeek:
		s.seek(e.pos, e.fast)
	case cmdSeekBy:
		s.seek(max(s.position()+e.delta, 0), true)
	case cmdSkipNext:
		s.skipNext(e.force)
	case cmdSkipPrevious:
		s.skipPrevious(e.force)
	case cmdSetRate:
		s.setRate(e.rate, e.persist)
	case cmdShuffle:
		s.setShuffle(!s.playlist.Shuffling())
	case cmdSetShuffle:
		s.setShuffle(e.on)
	case cmdSetRepeat:
		s.playlist.SetRepeat(e.mode)
		s.markState()
		s.refreshNotification()
		s.saveQueue()
	case cmdLoad:
		s.load(e.items, e.start)
	case cmdAppend:
		s.appendItems(e.items, e.index)
	case cmdInsertNext:
		s.insertNext(e.items)
	case cmdMove:
		if s.playlist.Move(e.from, e.to) {
			s.queueChanged()
		}
	case cmdRemove:
		s.remove(e.index)
	case cmdPlayIndex:
		if _, ok := s.playlist.JumpTo(e.index); ok {
			s.loadCurrent(ModePlaying)
		}
	case cmdCarMode:
		s.setCarMode(e.on)
	case cmdHeadset:
		s.headset(e.plugged)
	case cmdBookmark:
		s.bookmark()
	case itemResolved:
		s.onItemResolved(e)
	case restoreQueue:
		s.restore(e.saved)
	case callbackAdd:
		s.registry.add(e.l)
	case callbackRemove:
		s.registry.remove(e.l)
	case publishShowNotification:
		s.requestNotification(notifyShow, e.force)
	case publishInvalidateNotification:
		s.lastNotifyKey = ""
	case publishHideNotification:
		s.requestNotification(notifyHide, false)
	case publishUpdateMeta:
		s.dirty.meta = true
	case publishUpdateState:
		s.dirty.state = true
	case barrier:
		s.barriers = append(s.barriers, e.done)
	default:
		s.log.Warnf("unhandled event %T", ev)
	}
}

func (s *serviceImpl) onEngineEvent(ev player.Event) {
	if !s.loaded && ev.Type != player.EventLengthChanged && ev.Type != player.EventTrackAdded {
		return
	}
	switch ev.Type {
	case player.EventPlaying:
		s.errs.reset()
		s.failStreak = 0
		s.setMode(ModePlaying)
	case player.EventPaused:
		if s.transport.Mode == ModePlaying {
			s.setMode(ModePaused)
		}
	case player.EventStopped:
		// The engine also stops when loading; the actor decides when
		// playback is stopped.
	case player.EventPositionChanged:
		s.transport.Time = ev.Position
		if ev.Position < time.Second && ev.Position < s.lastTime {
			s.dirty.state = true
		}
		s.lastTime = ev.Position
		s.dirty.position = true
	case player.EventLengthChanged:
		if s.transport.Length == 0 && ev.Length > 0 {
			s.dirty.meta = true
		}
		if s.transport.Length != ev.Length {
			s.dirty.state = true
		}
		s.transport.Length = ev.Length
	case player.EventTrackAdded:
		if ev.TrackType == player.TrackVideo {
			s.dirty.meta = true
		}
	case player.EventEndReached:
		s.onEndReached()
	case player.EventError:
		item, _ := s.playlist.Current()
		s.loaded = false
		s.failItem(item, ev.Err)
	}
	s.storeSnapshot()
	s.registry.each("OnPlayerEvent", func(l Listener) { l.OnPlayerEvent(ev) })
}

func (s *serviceImpl) onEndReached() {
	s.pausedAt = time.Time{}
	if _, ok := s.playlist.Next(); ok {
		s.loadCurrent(ModePlaying)
		return
	}
	s.stop()
}

// setMode moves the transport to mode. The wake lock is held exactly while
// playing.
func (s *serviceImpl) setMode(mode Mode) {
	if mode == ModePlaying {
		s.wake.acquire()
	} else {
		s.wake.release()
	}
	if s.transport.Mode == mode {
		return
	}
	s.transport.Mode = mode
	if mode == ModePaused {
		s.pausedAt = time.Now()
	}
	s.markState()
	switch mode {
	case ModePlaying, ModePaused:
		s.requestNotification(notifyShow, false)
	case ModeStopped:
		s.requestNotification(notifyHide, false)
	}
}

func (s *serviceImpl) markState() {
	s.dirty.state = true
	s.dirty.widget = true
	s.dirty.update = true
}

func (s *serviceImpl) play() {
	switch {
	case s.playlist.IsEmpty():
		s.log.Debug("play: empty playlist")
	case !s.loaded:
		s.loadCurrent(ModePlaying)
	case s.transport.Mode == ModePlaying:
	default:
		s.autoRewind()
		s.gen.Add(1)
		s.engine.Play()
		s.setMode(ModePlaying)
	}
}

func (s *serviceImpl) pause() {
	if s.transport.Mode != ModePlaying {
		return
	}
	s.gen.Add(1)
	s.engine.Pause()
	s.setMode(ModePaused)
	s.saveQueue()
}

func (s *serviceImpl) stop() {
	s.saveQueue()
	if s.loaded {
		s.gen.Add(1)
		s.engine.Stop()
		s.loaded = false
	}
	s.transport.Time = 0
	s.lastTime = 0
	s.pausedAt = time.Time{}
	s.setMode(ModeStopped)
}

// position is the engine time of the loaded item.
func (s *serviceImpl) position() time.Duration {
	if !s.loaded {
		return 0
	}
	return s.engine.Time()
}

func (s *serviceImpl) seek(pos time.Duration, fast bool) {
	if !s.loaded || !s.transport.Seekable {
		s.log.Debug("seek: nothing seekable loaded")
		return
	}
	pos = max(pos, 0)
	if s.transport.Length > 0 {
		pos = min(pos, s.transport.Length)
	}
	s.engine.Seek(pos, fast)
	s.transport.Time = pos
	s.lastTime = pos
	s.dirty.state = true
	s.dirty.position = true
}

func (s *serviceImpl) skipNext(force bool) {
	if _, ok := s.playlist.Next(); !ok {
		s.log.WithField("force", force).Debug("skip next: no next item")
		return
	}
	s.loadCurrent(ModePlaying)
}

// skipPrevious goes back when forced, when the item cannot seek, when it
// is near its start, or on a second press within previousLimit. Otherwise
// it restarts the current item.
func (s *serviceImpl) skipPrevious(force bool) {
	now := time.Now()
	secondPress := !s.lastPrevious.IsZero() && now.Sub(s.lastPrevious) < previousLimit
	if s.playlist.HasPrevious() &&
		(force || !s.transport.Seekable || s.position() < previousLimit || secondPress) {
		s.lastPrevious = time.Time{}
		s.playlist.Previous()
		s.loadCurrent(ModePlaying)
		return
	}
	s.lastPrevious = now
	if s.loaded {
		s.seek(0, false)
	} else {
		s.loadCurrent(ModePlaying)
	}
}

func (s *serviceImpl) setRate(rate float64, persist bool) {
	if rate <= 0 {
		return
	}
	rate = min(max(rate, minRate), maxRate)
	s.engine.SetRate(rate)
	if s.transport.Rate != rate {
		s.transport.Rate = rate
		s.dirty.state = true
	}
	if persist {
		if err := s.store.SaveRate(rate); err != nil {
			s.log.WithError(err).Warn("save playback rate")
		}
	}
}

func (s *serviceImpl) setShuffle(on bool) {
	if !s.playlist.SetShuffle(on) {
		s.log.WithField("on", on).Debug("shuffle unchanged")
		return
	}
	s.markState()
	s.refreshNotification()
	s.saveQueue()
}

func (s *serviceImpl) setCarMode(on bool) {
	if s.carMode == on {
		return
	}
	s.carMode = on
	s.dirty.queue = true
	s.dirty.state = true
}

func (s *serviceImpl) load(items []playlist.MediaItem, start int) {
	s.playlist.Load(items, start)
	s.failStreak = 0
	s.queueChanged()
	if s.playlist.IsEmpty() {
		s.stop()
		return
	}
	s.loadCurrent(ModePlaying)
}

func (s *serviceImpl) appendItems(items []playlist.MediaItem, index int) {
	if len(items) == 0 {
		return
	}
	loaded := s.playlist.Append(items, index)
	s.queueChanged()
	if loaded {
		s.loadCurrent(ModePlaying)
	}
}

func (s *serviceImpl) insertNext(items []playlist.MediaItem) {
	if len(items) == 0 {
		return
	}
	loaded := s.playlist.InsertNext(items)
	s.queueChanged()
	if loaded {
		s.loadCurrent(ModePlaying)
	}
}

func (s *serviceImpl) remove(index int) {
	wasPlaying := s.transport.Mode == ModePlaying
	removedCurrent, ok := s.playlist.RemoveAt(index)
	if !ok {
		return
	}
	s.queueChanged()
	switch {
	case s.playlist.IsEmpty():
		s.stop()
	case removedCurrent && s.loaded:
		mode := ModePaused
		if wasPlaying {
			mode = ModePlaying
		}
		s.loadCurrent(mode)
	case removedCurrent:
		s.markState()
	}
}

func (s *serviceImpl) headset(plugged bool) {
	if !plugged {
		s.resumeOnHeadset = s.transport.Mode == ModePlaying
		s.pause()
		return
	}
	resume := s.resumeOnHeadset && s.settings.HeadsetAutoPlay
	s.resumeOnHeadset = false
	if resume {
		s.play()
	}
}

func (s *serviceImpl) bookmark() {
	item, ok := s.playlist.Current()
	if !ok || !s.loaded {
		return
	}
	if err := s.store.AddBookmark(item.ID, s.position()); err != nil {
		s.log.WithError(err).Warn("add bookmark")
	}
}

func (s *serviceImpl) restore(saved SavedQueue) {
	s.playlist.Load(saved.Items, saved.Index)
	s.playlist.SetRepeat(saved.Repeat)
	s.playlist.SetShuffle(saved.Shuffle)
	s.queueChanged()
	if s.playlist.IsEmpty() {
		return
	}
	s.loadCurrent(ModeIdle)
	if s.loaded && saved.Position > 0 {
		s.seek(saved.Position, false)
	}
}

// loadCurrent loads the current item into the engine and moves the
// transport to mode. A load failure goes through failItem.
func (s *serviceImpl) loadCurrent(mode Mode) {
	item, ok := s.playlist.Current()
	if !ok {
		s.stop()
		return
	}
	s.gen.Add(1)
	if err := s.engine.Load(item.URI); err != nil {
		s.loaded = false
		s.failItem(item, err)
		return
	}
	s.loaded = true
	s.transport.LastErr = nil
	s.transport.Time = 0
	s.lastTime = 0
	s.pausedAt = time.Time{}
	s.transport.Length = item.Duration
	if l := s.engine.Length(); l > 0 {
		s.transport.Length = l
	}
	s.transport.Seekable = s.engine.Seekable()
	s.engine.SetRate(s.transport.Rate)
	if item.Position > 0 && s.transport.Seekable {
		s.engine.Seek(item.Position, false)
		s.transport.Time = item.Position
		s.lastTime = item.Position
	}
	if mode == ModePlaying {
		s.engine.Play()
	}
	s.setMode(mode)

	s.dirty.meta = true
	s.dirty.queue = true
	s.markState()
	if mode == ModePlaying || mode == ModePaused {
		s.requestNotification(notifyShow, false)
	}
	s.storeSnapshot()
	s.registry.each("OnMediaEvent", func(l Listener) {
		l.OnMediaEvent(MediaEvent{Type: MediaChanged, Item: item})
	})
	s.resolve(item)
	s.saveQueue()
}

// failItem reports a failed item and moves on to the next one, or stops
// once every item failed in a row.
func (s *serviceImpl) failItem(item playlist.MediaItem, err error) {
	s.transport.LastErr = err
	s.log.WithError(err).WithField("uri", item.URI).Warn("playback failed")
	if text, ok := s.errs.message(time.Now(), item, err); ok {
		s.messenger.ShowMessage(Message{Text: text})
	}
	s.setMode(ModeError)
	s.failStreak++

	next := s.playlist.NextIndex()
	if next != -1 && next != s.playlist.CurrentIndex() && s.failStreak < s.playlist.Len() {
		s.playlist.Next()
		s.loadCurrent(ModePlaying)
		return
	}
	s.failStreak = 0
	s.stop()
}

func (s *serviceImpl) autoRewind() {
	if s.pausedAt.IsZero() {
		return
	}
	paused := time.Since(s.pausedAt)
	s.pausedAt = time.Time{}
	if !s.transport.Seekable {
		return
	}
	amount := s.settings.AutoRewind.Amount(paused)
	if amount <= 0 {
		return
	}
	pos := max(s.position()-amount, 0)
	s.engine.Seek(pos, false)
	s.transport.Time = pos
	s.lastTime = pos
	s.dirty.position = true
}

// resolve refreshes item metadata in the background. The result comes back
// as an itemResolved event.
func (s *serviceImpl) resolve(item playlist.MediaItem) {
	if s.resolver == nil || item.ID == "" || s.resolved[item.ID] || s.resolving[item.ID] {
		return
	}
	if s.box.isClosed() {
		return
	}
	s.resolving[item.ID] = true
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		resolved, err := s.resolver.Resolve(s.bgCtx, item)
		resolved.ID = item.ID
		s.send(itemResolved{id: item.ID, item: resolved, err: err})
	}()
}

func (s *serviceImpl) onItemResolved(e itemResolved) {
	delete(s.resolving, e.id)
	if e.err != nil {
		s.log.WithError(e.err).WithField("id", e.id).Debug("resolve metadata")
		return
	}
	s.resolved[e.id] = true
	if s.playlist.Replace(e.item) == 0 {
		return
	}
	s.queueChanged()
	cur, ok := s.playlist.Current()
	if !ok || cur.ID != e.id {
		return
	}
	s.dirty.meta = true
	s.dirty.widget = true
	if s.transport.Mode == ModePlaying || s.transport.Mode == ModePaused {
		s.requestNotification(notifyShow, false)
	}
	s.storeSnapshot()
	s.registry.each("OnMediaEvent", func(l Listener) {
		l.OnMediaEvent(MediaEvent{Type: MetaChanged, Item: cur})
	})
}

// queueChanged records a change of the item list.
func (s *serviceImpl) queueChanged() {
	s.queueVersion++
	s.dirty.queue = true
	s.markState()
	s.refreshNotification()
	s.saveQueue()
}

// refreshNotification asks for a rebuild after a change that may flip the
// next/previous buttons. Unchanged content is skipped at flush.
func (s *serviceImpl) refreshNotification() {
	if s.transport.Mode == ModePlaying || s.transport.Mode == ModePaused {
		s.requestNotification(notifyShow, false)
	}
}

func (s *serviceImpl) saveQueue() {
	q := SavedQueue{
		Items:    s.playlist.Items(),
		Index:    s.playlist.CurrentIndex(),
		Position: s.position(),
		Repeat:   s.playlist.Repeat(),
		Shuffle:  s.playlist.Shuffling(),
	}
	if err := s.store.SaveQueue(q); err != nil {
		s.log.WithError(err).Warn("save queue")
	}
}
