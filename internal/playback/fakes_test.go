package playback

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
)

type fakeSession struct {
	mu       sync.Mutex
	meta     []Snapshot
	states   []Snapshot
	queues   []Snapshot
	failMeta bool
}

func (f *fakeSession) PublishMetadata(s Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMeta {
		return errors.New("metadata build failed")
	}
	f.meta = append(f.meta, s)
	return nil
}

func (f *fakeSession) PublishState(s Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, s)
	return nil
}

func (f *fakeSession) PublishQueue(s Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues = append(f.queues, s)
	return nil
}

func (f *fakeSession) lastState() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[len(f.states)-1]
}

func (f *fakeSession) queueCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queues)
}

type fakeNotifications struct {
	mu     sync.Mutex
	shows  []Snapshot
	forced int
	hides  int
}

func (f *fakeNotifications) Show(s Snapshot, force bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shows = append(f.shows, s)
	if force {
		f.forced++
	}
}

func (f *fakeNotifications) Hide() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hides++
}

func (f *fakeNotifications) counts() (shows, hides int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shows), f.hides
}

func (f *fakeNotifications) lastShow() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shows[len(f.shows)-1]
}

// panickingNotifications panics on Show.
type panickingNotifications struct {
	fakeNotifications
	panics atomic.Int32
}

func (f *panickingNotifications) Show(s Snapshot, force bool) {
	if f.panics.Load() > 0 {
		f.panics.Add(-1)
		panic("render failed")
	}
	f.fakeNotifications.Show(s, force)
}

type fakeWidget struct {
	mu        sync.Mutex
	updates   int
	positions int
}

func (f *fakeWidget) Update(Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
}

func (f *fakeWidget) UpdatePosition(Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions++
}

type fakeMessenger struct {
	mu   sync.Mutex
	msgs []Message
}

func (f *fakeMessenger) ShowMessage(m Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, m)
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.Text
	}
	return out
}

type fakeStore struct {
	mu        sync.Mutex
	saved     *SavedQueue
	saves     int
	rate      float64
	bookmarks map[string]time.Duration
}

func (f *fakeStore) SaveQueue(q SavedQueue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = &q
	f.saves++
	return nil
}

func (f *fakeStore) LoadQueue() (*SavedQueue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved, nil
}

func (f *fakeStore) SaveRate(rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = rate
	return nil
}

func (f *fakeStore) LoadRate() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate, nil
}

func (f *fakeStore) AddBookmark(itemID string, pos time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bookmarks == nil {
		f.bookmarks = map[string]time.Duration{}
	}
	f.bookmarks[itemID] = pos
	return nil
}

type fakeInhibitor struct {
	mu       sync.Mutex
	held     int
	acquired int
}

type fakeHandle struct{ inh *fakeInhibitor }

func (h fakeHandle) Close() error {
	h.inh.mu.Lock()
	defer h.inh.mu.Unlock()
	h.inh.held--
	return nil
}

func (f *fakeInhibitor) Inhibit(string) (io.Closer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held++
	f.acquired++
	return fakeHandle{inh: f}, nil
}

func (f *fakeInhibitor) heldCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held
}

type fakeLibrary struct {
	ready chan struct{}
	items map[string]playlist.MediaItem
}

func newFakeLibrary(items ...playlist.MediaItem) *fakeLibrary {
	l := &fakeLibrary{ready: make(chan struct{}), items: map[string]playlist.MediaItem{}}
	for _, it := range items {
		l.items[it.ID] = it
	}
	return l
}

func (l *fakeLibrary) Ready() <-chan struct{} { return l.ready }

func (l *fakeLibrary) Lookup(_ context.Context, id string) (playlist.MediaItem, bool, error) {
	it, ok := l.items[id]
	return it, ok, nil
}

func (l *fakeLibrary) Browse(context.Context, string) ([]playlist.MediaItem, error) {
	out := make([]playlist.MediaItem, 0, len(l.items))
	for _, it := range l.items {
		out = append(out, it)
	}
	return out, nil
}

func (l *fakeLibrary) Search(_ context.Context, q string) ([]playlist.MediaItem, error) {
	if it, ok := l.items[q]; ok {
		return []playlist.MediaItem{it}, nil
	}
	return nil, nil
}

type fakeResolver struct {
	title string
}

func (r fakeResolver) Resolve(_ context.Context, item playlist.MediaItem) (playlist.MediaItem, error) {
	item.Title = r.title
	return item, nil
}

type harness struct {
	svc       Service
	engine    *player.Mock
	session   *fakeSession
	notif     *fakeNotifications
	widget    *fakeWidget
	messenger *fakeMessenger
	store     *fakeStore
	inhibitor *fakeInhibitor
}

func newHarness(t *testing.T, opts ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		engine:    player.NewMock(),
		session:   &fakeSession{},
		notif:     &fakeNotifications{},
		widget:    &fakeWidget{},
		messenger: &fakeMessenger{},
		store:     &fakeStore{rate: 1},
		inhibitor: &fakeInhibitor{},
	}
	o := Options{
		Engine:        h.engine,
		Session:       h.session,
		Notifications: h.notif,
		Widget:        h.widget,
		Messenger:     h.messenger,
		Store:         h.store,
		Inhibitor:     h.inhibitor,
	}
	for _, fn := range opts {
		fn(&o)
	}
	h.svc = New(o)
	require.NoError(t, h.svc.Initialize(context.Background()))
	return h
}

// settle waits until the actor processed everything sent so far, including
// the engine events emitted while handling it.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	for range 3 {
		require.NoError(t, h.svc.Flush(context.Background()))
	}
}

func (h *harness) shutdown(t *testing.T) {
	t.Helper()
	require.NoError(t, h.svc.Shutdown(context.Background()))
}

func items(n int) []playlist.MediaItem {
	out := make([]playlist.MediaItem, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = playlist.MediaItem{ID: id, URI: "/music/" + id + ".mp3", Title: "Track " + id}
	}
	return out
}
