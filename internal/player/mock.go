package player

import (
	"sync"
	"time"
)

// Mock is a test double for Engine. Transport calls emit the matching
// events synchronously when AutoEvents is set.
type Mock struct {
	mu sync.Mutex

	autoEvents bool
	playing    bool
	loaded     string
	time       time.Duration
	length     time.Duration
	seekable   bool
	rate       float64
	loadErrs   map[string]error

	loadCalls  []string
	seekCalls  []time.Duration
	playCalls  int
	pauseCalls int
	stopCalls  int

	onEvent func(Event)
}

var _ Engine = (*Mock)(nil)

// NewMock creates a mock engine that emits Playing/Paused/Stopped events.
func NewMock() *Mock {
	return &Mock{
		autoEvents: true,
		seekable:   true,
		rate:       1,
		loadErrs:   map[string]error{},
		onEvent:    func(Event) {},
	}
}

// SetAutoEvents toggles the automatic transport events.
func (m *Mock) SetAutoEvents(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoEvents = on
}

// SetLoadError makes Load(uri) fail with err.
func (m *Mock) SetLoadError(uri string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErrs[uri] = err
}

func (m *Mock) SetTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.time = d
}

func (m *Mock) SetLength(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.length = d
}

func (m *Mock) SetSeekable(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekable = on
}

// Emit delivers ev to the registered handler.
func (m *Mock) Emit(ev Event) {
	m.mu.Lock()
	fn := m.onEvent
	m.mu.Unlock()
	fn(ev)
}

func (m *Mock) OnEvent(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn == nil {
		fn = func(Event) {}
	}
	m.onEvent = fn
}

func (m *Mock) Load(uri string) error {
	m.mu.Lock()
	m.loadCalls = append(m.loadCalls, uri)
	if err := m.loadErrs[uri]; err != nil {
		m.mu.Unlock()
		return err
	}
	m.loaded = uri
	m.playing = false
	m.time = 0
	m.mu.Unlock()
	return nil
}

func (m *Mock) Play() {
	m.mu.Lock()
	m.playCalls++
	m.playing = true
	auto := m.autoEvents
	m.mu.Unlock()
	if auto {
		m.Emit(Event{Type: EventPlaying})
	}
}

func (m *Mock) Pause() {
	m.mu.Lock()
	m.pauseCalls++
	wasPlaying := m.playing
	m.playing = false
	auto := m.autoEvents
	m.mu.Unlock()
	if auto && wasPlaying {
		m.Emit(Event{Type: EventPaused})
	}
}

func (m *Mock) Stop() {
	m.mu.Lock()
	m.stopCalls++
	m.playing = false
	m.loaded = ""
	auto := m.autoEvents
	m.mu.Unlock()
	if auto {
		m.Emit(Event{Type: EventStopped})
	}
}

func (m *Mock) Seek(pos time.Duration, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
	m.time = pos
}

func (m *Mock) Time() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.time
}

func (m *Mock) Length() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.length
}

func (m *Mock) SetRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

func (m *Mock) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

func (m *Mock) Seekable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seekable
}

func (m *Mock) Close() error { return nil }

// Loaded returns the URI of the loaded item.
func (m *Mock) Loaded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Playing reports whether Play was called after the last Load, Pause or Stop.
func (m *Mock) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// LoadCalls returns the URIs passed to Load.
func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

// SeekCalls returns the positions passed to Seek.
func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}
