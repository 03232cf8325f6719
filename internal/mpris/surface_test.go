package mpris

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/session"
)

type fakeSignals struct {
	playback, metadata, options int
	seeks                       []time.Duration
}

func (f *fakeSignals) PlaybackChanged() error { f.playback++; return nil }
func (f *fakeSignals) MetadataChanged() error { f.metadata++; return nil }
func (f *fakeSignals) OptionsChanged() error  { f.options++; return nil }

func (f *fakeSignals) Seeked(pos time.Duration) error {
	f.seeks = append(f.seeks, pos)
	return nil
}

type fakeController struct {
	calls []string
	seek  time.Duration
	rate  float64
	loops []playlist.RepeatMode
}

func (f *fakeController) Play()             { f.calls = append(f.calls, "play") }
func (f *fakeController) Pause()            { f.calls = append(f.calls, "pause") }
func (f *fakeController) TogglePlay()       { f.calls = append(f.calls, "toggle") }
func (f *fakeController) Stop()             { f.calls = append(f.calls, "stop") }
func (f *fakeController) SkipNext(bool)     { f.calls = append(f.calls, "next") }
func (f *fakeController) SkipPrevious(bool) { f.calls = append(f.calls, "previous") }

func (f *fakeController) Seek(d time.Duration) {
	f.calls = append(f.calls, "seek")
	f.seek = d
}

func (f *fakeController) SeekBy(d time.Duration) {
	f.calls = append(f.calls, "seekby")
	f.seek = d
}

func (f *fakeController) SetRate(r float64, _ bool) { f.rate = r }

func (f *fakeController) SetRepeatMode(m playlist.RepeatMode) {
	f.loops = append(f.loops, m)
}

func (f *fakeController) SetShuffle(bool) { f.calls = append(f.calls, "shuffle") }

func (f *fakeController) Load(items []playlist.MediaItem, _ int) {
	f.calls = append(f.calls, "load:"+items[0].URI)
}

func newTestSurface() (*Surface, *fakeSignals, *fakeController) {
	ctrl := &fakeController{}
	sig := &fakeSignals{}
	s := newSurface(ctrl)
	s.signals = sig
	return s, sig, ctrl
}

func TestSurface_SetMetadata_SignalsOnChange(t *testing.T) {
	s, sig, _ := newTestSurface()

	m := session.Metadata{ID: "a", Title: "A"}
	require.NoError(t, s.SetMetadata(m))
	require.NoError(t, s.SetMetadata(m))
	assert.Equal(t, 1, sig.metadata)

	m.Title = "A (refreshed)"
	require.NoError(t, s.SetMetadata(m))
	assert.Equal(t, 2, sig.metadata)
}

func TestSurface_SetState_Signals(t *testing.T) {
	s, sig, _ := newTestSurface()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	playing := session.State{Status: session.StatusPlaying, Rate: 1, ActiveIndex: 0, UpdatedAt: t0}
	require.NoError(t, s.SetState(playing))
	assert.Equal(t, 1, sig.playback)

	// Position moving with the clock is not a seek.
	next := playing
	next.Position = 10 * time.Second
	next.UpdatedAt = t0.Add(10 * time.Second)
	require.NoError(t, s.SetState(next))
	assert.Empty(t, sig.seeks)

	// A jump is.
	jump := next
	jump.Position = time.Minute
	jump.UpdatedAt = t0.Add(11 * time.Second)
	require.NoError(t, s.SetState(jump))
	assert.Equal(t, []time.Duration{time.Minute}, sig.seeks)

	shuffled := jump
	shuffled.Shuffle = true
	require.NoError(t, s.SetState(shuffled))
	assert.Positive(t, sig.options)
	assert.Equal(t, 1, sig.playback)
}

func TestSurface_SetState_NewItemIsNotSeek(t *testing.T) {
	s, sig, _ := newTestSurface()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SetState(session.State{Status: session.StatusPlaying, Position: time.Minute, ActiveIndex: 0, UpdatedAt: t0}))
	require.NoError(t, s.SetState(session.State{Status: session.StatusPlaying, ActiveIndex: 1, UpdatedAt: t0.Add(time.Second)}))

	assert.Empty(t, sig.seeks)
}

func TestSurface_Position_Extrapolates(t *testing.T) {
	s, _, _ := newTestSurface()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0.Add(4 * time.Second) }

	require.NoError(t, s.SetState(session.State{Status: session.StatusPlaying, Rate: 1.5, Position: 10 * time.Second, UpdatedAt: t0}))
	assert.Equal(t, 16*time.Second, s.position())

	require.NoError(t, s.SetState(session.State{Status: session.StatusPaused, Rate: 1.5, Position: 10 * time.Second, UpdatedAt: t0}))
	assert.Equal(t, 10*time.Second, s.position())
}

func TestSurface_QueueAndActive(t *testing.T) {
	s, _, _ := newTestSurface()

	require.NoError(t, s.SetQueue(session.Queue{Items: make([]session.QueueItem, 3)}))
	require.NoError(t, s.SetActive(true))

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Equal(t, 3, s.queueLen)
	assert.True(t, s.active)
}

func TestSurface_CloseWithoutServer(t *testing.T) {
	s, _, _ := newTestSurface()
	assert.NoError(t, s.Close())
}
