// internal/playback/service_impl.go
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// DefaultQueueHalfWindow is the number of items shown on each side of the
// current one in car mode.
const DefaultQueueHalfWindow = 7

var (
	// ErrLibraryNotReady is returned when the context expires before the
	// media library became ready.
	ErrLibraryNotReady = errors.New("media library not ready")
	// ErrNotFound is returned by LoadIDs when no id resolves to an item.
	ErrNotFound = errors.New("media not found")
)

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

// Options wires the collaborators of the service. Only Engine is required;
// missing collaborators are replaced by no-ops.
type Options struct {
	Engine        player.Engine
	Session       SessionPublisher
	Notifications NotificationManager
	Widget        WidgetBroadcaster
	Messenger     Messenger
	Library       Library
	Resolver      MetadataResolver
	Store         Store
	Inhibitor     Inhibitor
	Settings      Settings
	Logger        *logrus.Entry
}

type serviceImpl struct {
	engine    player.Engine
	session   SessionPublisher
	notif     NotificationManager
	widget    WidgetBroadcaster
	messenger Messenger
	library   Library
	resolver  MetadataResolver
	store     Store
	settings  Settings
	log       *logrus.Entry

	box      *mailbox
	snapshot atomic.Pointer[Snapshot]
	started  atomic.Bool
	stopOnce sync.Once
	// gen is bumped by the actor before every engine transport call.
	gen atomic.Uint64

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup

	subsMu sync.Mutex
	subs   map[*Subscription]struct{}

	// Everything below is owned by the actor goroutine.
	playlist        *playlist.Playlist
	transport       TransportState
	carMode         bool
	loaded          bool
	queueVersion    uint64
	snapItems       []playlist.MediaItem
	snapVersion     uint64
	registry        registry
	wake            wakeLock
	errs            errorCoalescer
	failStreak      int
	lastTime        time.Duration
	lastPrevious    time.Time
	pausedAt        time.Time
	resumeOnHeadset bool
	resolving       map[string]bool
	resolved        map[string]bool
	dirty           dirtySet
	lastNotifyKey   string
	barriers        []chan struct{}
}

// New creates a playback service. Call Initialize to start processing.
func New(opts Options) Service {
	log := opts.Logger
	if log == nil {
		log = logrus.WithField("component", "playback")
	}
	s := &serviceImpl{
		engine:    opts.Engine,
		session:   opts.Session,
		notif:     opts.Notifications,
		widget:    opts.Widget,
		messenger: opts.Messenger,
		library:   opts.Library,
		resolver:  opts.Resolver,
		store:     opts.Store,
		settings:  opts.Settings,
		log:       log,
		box:       newMailbox(),
		subs:      make(map[*Subscription]struct{}),
		playlist:  playlist.New(),
		transport: TransportState{Mode: ModeIdle, Rate: 1},
		resolving: make(map[string]bool),
		resolved:  make(map[string]bool),
	}
	if s.session == nil {
		s.session = noopSession{}
	}
	if s.notif == nil {
		s.notif = noopNotifications{}
	}
	if s.widget == nil {
		s.widget = noopWidget{}
	}
	if s.messenger == nil {
		s.messenger = noopMessenger{}
	}
	if s.library == nil {
		s.library = emptyLibrary{}
	}
	if s.store == nil {
		s.store = noopStore{}
	}
	inhibitor := opts.Inhibitor
	if inhibitor == nil {
		inhibitor = noopInhibitor{}
	}
	if s.settings.QueueHalfWindow <= 0 {
		s.settings.QueueHalfWindow = DefaultQueueHalfWindow
	}
	s.wake = wakeLock{inhibitor: inhibitor, log: log}
	s.registry = registry{log: log}
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())
	s.storeSnapshot()
	return s
}

// Initialize restores the persisted rate and queue and starts the actor.
// Calling it again is a no-op.
func (s *serviceImpl) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.box.isClosed() {
		return ErrClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	if rate, err := s.store.LoadRate(); err != nil {
		s.log.WithError(err).Warn("load playback rate")
	} else if rate > 0 {
		s.transport.Rate = rate
	}
	saved, err := s.store.LoadQueue()
	if err != nil {
		s.log.WithError(err).Warn("load saved queue")
	}

	s.engine.SetRate(s.transport.Rate)
	s.engine.OnEvent(func(ev player.Event) {
		s.box.send(engineEvent{ev: ev, gen: s.gen.Load()})
	})
	go s.box.run(s.process)

	if saved != nil && len(saved.Items) > 0 {
		s.send(restoreQueue{saved: *saved})
	}
	s.log.Debug("playback service started")
	return nil
}

// Shutdown stops accepting events, lets the actor drain what was queued,
// waits for background resolvers, then releases the engine and wake lock.
func (s *serviceImpl) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.engine.OnEvent(nil)
		s.box.close()
		if s.started.Load() {
			select {
			case <-s.box.done:
			case <-ctx.Done():
				err = fmt.Errorf("drain actor: %w", ctx.Err())
				s.bgCancel()
				s.abandon()
				return
			}
		}

		s.bgCancel()
		waited := make(chan struct{})
		go func() {
			s.bg.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
			err = fmt.Errorf("wait background work: %w", ctx.Err())
		}

		// The actor has exited; its state is safe to use from here.
		s.saveQueue()
		if s.loaded {
			s.engine.Stop()
			s.loaded = false
		}
		s.wake.shutdown()
		s.notif.Hide()
		s.transport.Mode = ModeStopped
		snap := s.storeSnapshot()
		s.safely("PublishState", func() error { return s.session.PublishState(*snap) })

		s.subsMu.Lock()
		for sub := range s.subs {
			sub.close()
		}
		s.subs = map[*Subscription]struct{}{}
		s.subsMu.Unlock()

		if cerr := s.engine.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close engine: %w", cerr)
		}
		s.log.Debug("playback service stopped")
	})
	return err
}

// abandon releases what the actor holds when it did not drain in time.
// The actor keeps running, so its state is left alone; the wake lock is
// closed for good and the engine is stopped under its own lock.
func (s *serviceImpl) abandon() {
	s.wake.shutdown()
	s.notif.Hide()
	s.engine.Stop()
	if cerr := s.engine.Close(); cerr != nil {
		s.log.WithError(cerr).Warn("close engine")
	}
	s.log.Warn("playback service abandoned before the actor drained")
}

func (s *serviceImpl) send(ev Event) {
	if !s.box.send(ev) {
		s.log.Debugf("discarded %T after shutdown", ev)
	}
}

// Commands

func (s *serviceImpl) Play()       { s.send(cmdPlay{}) }
func (s *serviceImpl) Pause()      { s.send(cmdPause{}) }
func (s *serviceImpl) TogglePlay() { s.send(cmdToggle{}) }
func (s *serviceImpl) Stop()       { s.send(cmdStop{}) }
func (s *serviceImpl) Shuffle()    { s.send(cmdShuffle{}) }
func (s *serviceImpl) Bookmark()   { s.send(cmdBookmark{}) }

func (s *serviceImpl) Seek(pos time.Duration) {
	s.send(cmdSeek{pos: pos})
}

func (s *serviceImpl) SeekBy(delta time.Duration) {
	s.send(cmdSeekBy{delta: delta})
}

func (s *serviceImpl) SkipNext(force bool) {
	s.send(cmdSkipNext{force: force})
}

func (s *serviceImpl) SkipPrevious(force bool) {
	s.send(cmdSkipPrevious{force: force})
}

func (s *serviceImpl) SetRate(rate float64, persist bool) {
	s.send(cmdSetRate{rate: rate, persist: persist})
}

func (s *serviceImpl) SetShuffle(on bool) {
	s.send(cmdSetShuffle{on: on})
}

func (s *serviceImpl) SetRepeatMode(mode playlist.RepeatMode) {
	s.send(cmdSetRepeat{mode: mode})
}

func (s *serviceImpl) Load(items []playlist.MediaItem, start int) {
	s.send(cmdLoad{items: items, start: start})
}

func (s *serviceImpl) Append(items []playlist.MediaItem, index int) {
	s.send(cmdAppend{items: items, index: index})
}

func (s *serviceImpl) InsertNext(items []playlist.MediaItem) {
	s.send(cmdInsertNext{items: items})
}

func (s *serviceImpl) MoveItem(from, to int) {
	s.send(cmdMove{from: from, to: to})
}

func (s *serviceImpl) RemoveAt(index int) {
	s.send(cmdRemove{index: index})
}

func (s *serviceImpl) PlayIndex(index int) {
	s.send(cmdPlayIndex{index: index})
}

func (s *serviceImpl) SetCarMode(on bool) {
	s.send(cmdCarMode{on: on})
}

func (s *serviceImpl) HeadsetChanged(plugged bool) {
	s.send(cmdHeadset{plugged: plugged})
}

// LoadIDs looks ids up in the library and loads the items found.
func (s *serviceImpl) LoadIDs(ctx context.Context, ids []string, start int) error {
	if err := s.awaitLibrary(ctx); err != nil {
		return err
	}
	items := make([]playlist.MediaItem, 0, len(ids))
	for i, id := range ids {
		item, ok, err := s.library.Lookup(ctx, id)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", id, err)
		}
		if !ok {
			if i < start {
				start--
			}
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return ErrNotFound
	}
	s.Load(items, start)
	return nil
}

// Publish requests

func (s *serviceImpl) ShowNotification(force bool) {
	s.send(publishShowNotification{force: force})
}

func (s *serviceImpl) InvalidateNotification() {
	s.send(publishInvalidateNotification{})
}

func (s *serviceImpl) HideNotification() { s.send(publishHideNotification{}) }
func (s *serviceImpl) UpdateMetadata()   { s.send(publishUpdateMeta{}) }
func (s *serviceImpl) UpdateState()      { s.send(publishUpdateState{}) }

// Queries

func (s *serviceImpl) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

func (s *serviceImpl) CurrentItem() (playlist.MediaItem, bool) {
	snap := s.snapshot.Load()
	return snap.Current, snap.HasCurrent
}

func (s *serviceImpl) CurrentIndex() int { return s.snapshot.Load().Index }
func (s *serviceImpl) IsPlaying() bool   { return s.snapshot.Load().IsPlaying() }
func (s *serviceImpl) HasNext() bool     { return s.snapshot.Load().HasNext }
func (s *serviceImpl) HasPrevious() bool { return s.snapshot.Load().HasPrevious }

// MediaList returns a copy of the playlist.
func (s *serviceImpl) MediaList() []playlist.MediaItem {
	return append([]playlist.MediaItem(nil), s.snapshot.Load().Items...)
}

func (s *serviceImpl) QueueWindow() QueueWindow {
	return s.snapshot.Load().Window
}

// Browse and search

func (s *serviceImpl) Browse(ctx context.Context, parentID string) ([]playlist.MediaItem, error) {
	if err := s.awaitLibrary(ctx); err != nil {
		return nil, err
	}
	return s.library.Browse(ctx, parentID)
}

func (s *serviceImpl) Search(ctx context.Context, query string) ([]playlist.MediaItem, error) {
	if err := s.awaitLibrary(ctx); err != nil {
		return nil, err
	}
	return s.library.Search(ctx, query)
}

func (s *serviceImpl) awaitLibrary(ctx context.Context) error {
	select {
	case <-s.library.Ready():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrLibraryNotReady, ctx.Err())
	}
}

// Callbacks

func (s *serviceImpl) AddCallback(l Listener) {
	s.send(callbackAdd{l: l})
}

func (s *serviceImpl) RemoveCallback(l Listener) {
	s.send(callbackRemove{l: l})
}

// Subscribe registers a channel based listener.
func (s *serviceImpl) Subscribe() *Subscription {
	sub := newSubscription()
	s.subsMu.Lock()
	s.subs[sub] = struct{}{}
	s.subsMu.Unlock()
	s.AddCallback(sub)
	return sub
}

// Unsubscribe removes sub and closes its Done channel.
func (s *serviceImpl) Unsubscribe(sub *Subscription) {
	s.subsMu.Lock()
	_, ok := s.subs[sub]
	delete(s.subs, sub)
	s.subsMu.Unlock()
	if !ok {
		return
	}
	s.RemoveCallback(sub)
	sub.close()
}

func (s *serviceImpl) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !s.box.send(barrier{done: done}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
