// internal/playback/service_impl_test.go
package playback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/testutil"
)

func TestNew_ReturnsService(t *testing.T) {
	svc := New(Options{Engine: player.NewMock()})
	if svc == nil {
		t.Fatal("New() returned nil")
	}

	snap := svc.Snapshot()
	if snap.Transport.Mode != ModeIdle {
		t.Errorf("Mode = %v, want Idle", snap.Transport.Mode)
	}
	if snap.Index != -1 {
		t.Errorf("Index = %d, want -1", snap.Index)
	}
	if snap.Transport.Rate != 1 {
		t.Errorf("Rate = %v, want 1", snap.Transport.Rate)
	}
}

func TestService_InitializeTwice(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	require.NoError(t, h.svc.Initialize(context.Background()))
}

func TestService_Load_StartsPlayback(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(5), 2)
	h.settle(t)

	assert.Equal(t, 2, h.svc.CurrentIndex())
	assert.True(t, h.svc.IsPlaying())
	assert.Equal(t, "/music/c.mp3", h.engine.Loaded())
	assert.True(t, h.engine.Playing())
	assert.Len(t, h.svc.MediaList(), 5)

	cur, ok := h.svc.CurrentItem()
	require.True(t, ok)
	assert.Equal(t, "c", cur.ID)
}

func TestService_RepeatOne_ForcedSkipKeepsIndex(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(5), 2)
	h.svc.SetRepeatMode(playlist.RepeatOne)
	h.svc.SkipNext(true)
	h.settle(t)

	assert.Equal(t, 2, h.svc.CurrentIndex())
	assert.True(t, h.svc.IsPlaying())
	assert.Equal(t, []string{"/music/c.mp3", "/music/c.mp3"}, h.engine.LoadCalls())
}

func TestService_AppendToEmpty_NotifiesOnce(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Append(items(2), 0)
	h.settle(t)

	shows, _ := h.notif.counts()
	assert.Equal(t, 1, shows)
	assert.Equal(t, 0, h.svc.CurrentIndex())
	assert.Equal(t, []string{"/music/a.mp3"}, h.engine.LoadCalls())
}

func TestService_Append_KeepsCurrent(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(2), 1)
	h.svc.Append(items(3), 0)
	h.settle(t)

	assert.Equal(t, 1, h.svc.CurrentIndex())
	assert.Len(t, h.svc.MediaList(), 5)
	assert.Len(t, h.engine.LoadCalls(), 1)
}

func TestService_EmptyQueueIsPublished(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(nil, 0)
	h.settle(t)

	require.Positive(t, h.session.queueCount())
	h.session.mu.Lock()
	last := h.session.queues[len(h.session.queues)-1]
	h.session.mu.Unlock()
	assert.Empty(t, last.Window.Items)
	assert.Equal(t, ModeStopped, h.svc.Snapshot().Transport.Mode)
}

func TestService_PlayPauseToggleStop(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(3), 0)
	h.settle(t)
	require.True(t, h.svc.IsPlaying())

	h.svc.Pause()
	h.settle(t)
	if got := h.svc.Snapshot().Transport.Mode; got != ModePaused {
		t.Errorf("after Pause, Mode = %v, want Paused", got)
	}

	h.svc.TogglePlay()
	h.settle(t)
	if !h.svc.IsPlaying() {
		t.Error("after TogglePlay, IsPlaying() = false, want true")
	}

	h.svc.Stop()
	h.settle(t)
	if got := h.svc.Snapshot().Transport.Mode; got != ModeStopped {
		t.Errorf("after Stop, Mode = %v, want Stopped", got)
	}
	if _, hides := h.notif.counts(); hides != 1 {
		t.Errorf("hides = %d, want 1", hides)
	}

	// Play after stop reloads the current item.
	h.svc.Play()
	h.settle(t)
	assert.True(t, h.svc.IsPlaying())
	assert.Len(t, h.engine.LoadCalls(), 2)
}

func TestService_Play_EmptyPlaylist_NoOp(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Play()
	h.settle(t)

	assert.False(t, h.svc.IsPlaying())
	assert.Empty(t, h.engine.LoadCalls())
	assert.Equal(t, 0, h.inhibitor.heldCount())
}

func TestService_WakeLock_HeldExactlyWhilePlaying(t *testing.T) {
	h := newHarness(t)

	steps := []struct {
		name string
		cmd  func()
		want int
	}{
		{"load", func() { h.svc.Load(items(2), 0) }, 1},
		{"pause", h.svc.Pause, 0},
		{"pause again", h.svc.Pause, 0},
		{"play", h.svc.Play, 1},
		{"play again", h.svc.Play, 1},
		{"next", func() { h.svc.SkipNext(false) }, 1},
		{"stop", h.svc.Stop, 0},
		{"play after stop", h.svc.Play, 1},
	}
	for _, step := range steps {
		step.cmd()
		h.settle(t)
		if got := h.inhibitor.heldCount(); got != step.want {
			t.Errorf("%s: held wake locks = %d, want %d", step.name, got, step.want)
		}
	}

	h.shutdown(t)
	assert.Equal(t, 0, h.inhibitor.heldCount(), "wake lock held after shutdown")
}

func TestService_SendAfterShutdown_Discarded(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	h := newHarness(t)
	h.svc.Load(items(2), 0)
	h.settle(t)
	h.shutdown(t)

	calls := len(h.engine.LoadCalls())
	h.svc.Play()
	h.svc.Load(items(3), 1)
	h.svc.AddCallback(&ListenerFuncs{})
	h.svc.SkipNext(true)

	assert.Len(t, h.engine.LoadCalls(), calls)
	assert.ErrorIs(t, h.svc.Flush(context.Background()), ErrClosed)
	assert.ErrorIs(t, h.svc.Initialize(context.Background()), ErrClosed)
	require.NoError(t, h.svc.Shutdown(context.Background()))
}

func TestService_Shutdown_DrainsQueuedEvents(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	h := newHarness(t)
	h.svc.Load(items(4), 0)
	h.svc.SkipNext(true)
	h.svc.SkipNext(true)
	h.shutdown(t)

	assert.Equal(t, 2, h.svc.CurrentIndex())
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	require.NotNil(t, h.store.saved)
	assert.Equal(t, 2, h.store.saved.Index)
}

func TestService_Shutdown_DrainTimeoutReleasesResources(t *testing.T) {
	h := newHarness(t)
	h.svc.Load(items(1), 0)
	h.settle(t)
	require.Equal(t, 1, h.inhibitor.heldCount())

	var entered atomic.Bool
	blocked := make(chan struct{})
	release := make(chan struct{})
	h.svc.AddCallback(&ListenerFuncs{PlayerEventFunc: func(player.Event) {
		if entered.CompareAndSwap(false, true) {
			close(blocked)
			<-release
		}
	}})
	h.engine.Emit(player.Event{Type: player.EventPositionChanged, Position: time.Second})
	<-blocked

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.svc.Shutdown(ctx)
	close(release)
	<-h.svc.(*serviceImpl).box.done
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 0, h.inhibitor.heldCount())
	assert.False(t, h.engine.Playing())
	_, hides := h.notif.counts()
	assert.Equal(t, 1, hides)
}

func TestService_Shutdown_WithoutInitialize(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	svc := New(Options{Engine: player.NewMock()})
	svc.Play()
	require.NoError(t, svc.Shutdown(context.Background()))
}

func TestService_Callbacks_AddTwiceRemoveOnce(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	var updates atomic.Int32
	l := &ListenerFuncs{UpdateFunc: func(Snapshot) { updates.Add(1) }}

	h.svc.AddCallback(l)
	h.svc.AddCallback(l)
	h.svc.RemoveCallback(l)
	h.svc.Load(items(2), 0)
	h.settle(t)

	assert.Equal(t, int32(0), updates.Load())

	// Removing an unregistered listener is a no-op.
	h.svc.RemoveCallback(&ListenerFuncs{})
	h.settle(t)
}

func TestService_Callbacks_ReceiveEvents(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	var (
		updates atomic.Int32
		media   atomic.Int32
		engine  atomic.Int32
	)
	h.svc.AddCallback(&ListenerFuncs{
		UpdateFunc:      func(Snapshot) { updates.Add(1) },
		MediaEventFunc:  func(MediaEvent) { media.Add(1) },
		PlayerEventFunc: func(player.Event) { engine.Add(1) },
	})
	h.svc.Load(items(2), 0)
	h.settle(t)

	assert.Positive(t, updates.Load())
	assert.Equal(t, int32(1), media.Load())
	assert.Positive(t, engine.Load())
}

func TestService_ListenerPanic_Recovered(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.AddCallback(&ListenerFuncs{UpdateFunc: func(Snapshot) { panic("boom") }})
	h.svc.Load(items(2), 0)
	h.settle(t)

	h.svc.SkipNext(false)
	h.settle(t)
	assert.Equal(t, 1, h.svc.CurrentIndex())
}

func TestService_PublisherError_Absorbed(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)
	h.session.failMeta = true

	h.svc.Load(items(2), 0)
	h.settle(t)

	assert.True(t, h.session.lastState().IsPlaying())
}

func TestService_ErrorCoalescing(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	list := items(3)
	for _, it := range list {
		h.engine.SetLoadError(it.URI, errors.New("unsupported format"))
	}
	h.svc.Load(list, 0)
	h.settle(t)

	msgs := h.messenger.texts()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Failed to play 'Track a': unsupported format", msgs[0])
	assert.Equal(t, "Failed to play 'Track b': unsupported format", msgs[1])
	assert.Equal(t, "Playback failed for multiple items", msgs[2])

	snap := h.svc.Snapshot()
	assert.Equal(t, ModeStopped, snap.Transport.Mode)
	assert.Error(t, snap.Transport.LastErr)
	assert.Equal(t, 0, h.inhibitor.heldCount())
}

func TestService_EngineError_AdvancesToNext(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(3), 0)
	h.settle(t)

	h.engine.Emit(player.Event{Type: player.EventError, Err: errors.New("decode error")})
	h.settle(t)

	assert.Equal(t, 1, h.svc.CurrentIndex())
	assert.True(t, h.svc.IsPlaying())
	assert.Len(t, h.messenger.texts(), 1)
}

func TestService_EngineError_LastItemStops(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(2), 1)
	h.settle(t)

	h.engine.Emit(player.Event{Type: player.EventError, Err: errors.New("decode error")})
	h.settle(t)

	assert.Equal(t, 1, h.svc.CurrentIndex())
	assert.Equal(t, ModeStopped, h.svc.Snapshot().Transport.Mode)
}

func TestService_RemoveCurrent(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(3), 1)
	h.svc.RemoveAt(1)
	h.settle(t)

	cur, ok := h.svc.CurrentItem()
	require.True(t, ok)
	assert.Equal(t, 1, h.svc.CurrentIndex())
	assert.Equal(t, "c", cur.ID)
	assert.Equal(t, "/music/c.mp3", h.engine.Loaded())
	assert.True(t, h.svc.IsPlaying())
}

func TestService_RemoveLast_Stops(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(1), 0)
	h.svc.RemoveAt(0)
	h.settle(t)

	snap := h.svc.Snapshot()
	assert.Equal(t, ModeStopped, snap.Transport.Mode)
	assert.False(t, snap.HasCurrent)
	assert.Equal(t, -1, snap.Index)
	_, hides := h.notif.counts()
	assert.Equal(t, 1, hides)
}

func TestService_LoadThenStop_SameBatch(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(2), 0)
	h.svc.Stop()
	h.settle(t)

	assert.Equal(t, ModeStopped, h.svc.Snapshot().Transport.Mode)
	assert.False(t, h.svc.IsPlaying())
	assert.Equal(t, 0, h.inhibitor.heldCount())
}

func TestService_PauseThenPlay_SameBatch(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(1), 0)
	h.settle(t)

	h.svc.Pause()
	h.svc.Play()
	h.settle(t)

	assert.True(t, h.svc.IsPlaying())
	assert.Equal(t, 1, h.inhibitor.heldCount())
}

func TestService_StaleEndReached_Dropped(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)
	s := h.svc.(*serviceImpl)

	h.svc.Load(items(3), 0)
	h.settle(t)

	// the engine reported the end of a before the skip reached the actor
	stale := s.gen.Load()
	h.svc.SkipNext(true)
	s.box.send(engineEvent{ev: player.Event{Type: player.EventEndReached}, gen: stale})
	h.settle(t)

	assert.Equal(t, 1, h.svc.CurrentIndex())
	assert.Equal(t, []string{"/music/a.mp3", "/music/b.mp3"}, h.engine.LoadCalls())
}

func TestService_EngineEventsIgnoredWhileUnloaded(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(2), 0)
	h.svc.Stop()
	h.settle(t)

	h.engine.Emit(player.Event{Type: player.EventPlaying})
	h.engine.Emit(player.Event{Type: player.EventEndReached})
	h.settle(t)

	assert.Equal(t, ModeStopped, h.svc.Snapshot().Transport.Mode)
	assert.Equal(t, 0, h.svc.CurrentIndex())
	assert.Equal(t, 0, h.inhibitor.heldCount())
}

func TestService_QueueChange_RefreshesNotificationButtons(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(1), 0)
	h.settle(t)
	require.False(t, h.notif.lastShow().HasNext)

	h.svc.Append(items(2), 0)
	h.settle(t)
	assert.True(t, h.notif.lastShow().HasNext)

	h.svc.RemoveAt(1)
	h.svc.RemoveAt(1)
	h.settle(t)
	assert.False(t, h.notif.lastShow().HasNext)

	h.svc.SetRepeatMode(playlist.RepeatAll)
	h.settle(t)
	assert.True(t, h.notif.lastShow().HasNext)
}

func TestService_NotificationPanic_RetriesSameContent(t *testing.T) {
	notif := &panickingNotifications{}
	notif.panics.Store(1)
	h := newHarness(t, func(o *Options) { o.Notifications = notif })
	defer h.shutdown(t)

	h.svc.Load(items(1), 0)
	h.settle(t)
	shows, _ := notif.counts()
	require.Equal(t, 0, shows)

	h.svc.ShowNotification(false)
	h.settle(t)
	shows, _ = notif.counts()
	assert.Equal(t, 1, shows)
}

func TestService_InvalidateNotification(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(1), 0)
	h.settle(t)

	h.svc.InvalidateNotification()
	h.svc.ShowNotification(false)
	h.settle(t)
	shows, _ := h.notif.counts()
	assert.Equal(t, 2, shows)
}

func TestService_RemoveOutOfRange_NoOp(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(2), 0)
	h.svc.RemoveAt(5)
	h.settle(t)

	assert.Len(t, h.svc.MediaList(), 2)
}

func TestService_InsertNextAndMove(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(3), 0)
	h.svc.InsertNext([]playlist.MediaItem{{ID: "x", URI: "/music/x.mp3"}})
	h.settle(t)

	list := h.svc.MediaList()
	require.Len(t, list, 4)
	assert.Equal(t, "x", list[1].ID)

	h.svc.MoveItem(0, 3)
	h.settle(t)
	assert.Equal(t, 3, h.svc.CurrentIndex())
}

func TestService_EndReached(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(2), 0)
	h.settle(t)

	h.engine.Emit(player.Event{Type: player.EventEndReached})
	h.settle(t)
	assert.Equal(t, 1, h.svc.CurrentIndex())
	assert.True(t, h.svc.IsPlaying())

	h.engine.Emit(player.Event{Type: player.EventEndReached})
	h.settle(t)
	assert.Equal(t, ModeStopped, h.svc.Snapshot().Transport.Mode)
	assert.Equal(t, 0, h.inhibitor.heldCount())
}

func TestService_SkipPrevious(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(3), 1)
	h.settle(t)
	h.engine.SetTime(10 * time.Second)

	// Past the limit the first press restarts the item.
	h.svc.SkipPrevious(false)
	h.settle(t)
	assert.Equal(t, 1, h.svc.CurrentIndex())
	assert.Equal(t, []time.Duration{0}, h.engine.SeekCalls())

	// A second press goes back.
	h.svc.SkipPrevious(false)
	h.settle(t)
	assert.Equal(t, 0, h.svc.CurrentIndex())
}

func TestService_SkipPrevious_Forced(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(3), 1)
	h.settle(t)
	h.engine.SetTime(time.Minute)

	h.svc.SkipPrevious(true)
	h.settle(t)
	assert.Equal(t, 0, h.svc.CurrentIndex())
}

func TestService_SkipPrevious_NearStart(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(3), 2)
	h.settle(t)
	h.engine.SetTime(2 * time.Second)

	h.svc.SkipPrevious(false)
	h.settle(t)
	assert.Equal(t, 1, h.svc.CurrentIndex())
}

func TestService_Seek(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(1), 0)
	h.settle(t)
	h.engine.SetLength(3 * time.Minute)
	h.engine.Emit(player.Event{Type: player.EventLengthChanged, Length: 3 * time.Minute})
	h.settle(t)

	h.svc.Seek(time.Minute)
	h.settle(t)
	h.svc.SeekBy(-2 * time.Minute)
	h.settle(t)
	h.svc.Seek(time.Hour)
	h.settle(t)

	assert.Equal(t, []time.Duration{time.Minute, 0, 3 * time.Minute}, h.engine.SeekCalls())
}

func TestService_Seek_NotSeekable(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.engine.SetSeekable(false)
	h.svc.Load(items(1), 0)
	h.svc.Seek(time.Minute)
	h.settle(t)

	assert.Empty(t, h.engine.SeekCalls())
}

func TestService_SetRate(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		persist   bool
		wantRate  float64
		wantSaved float64
	}{
		{"persisted", 1.5, true, 1.5, 1.5},
		{"not persisted", 2, false, 2, 1},
		{"clamped high", 10, true, 4, 4},
		{"clamped low", 0.1, false, 0.25, 1},
		{"ignored", -1, true, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			defer h.shutdown(t)

			h.svc.SetRate(tt.rate, tt.persist)
			h.settle(t)

			assert.InDelta(t, tt.wantRate, h.engine.Rate(), 1e-9)
			assert.InDelta(t, tt.wantRate, h.svc.Snapshot().Transport.Rate, 1e-9)
			h.store.mu.Lock()
			assert.InDelta(t, tt.wantSaved, h.store.rate, 1e-9)
			h.store.mu.Unlock()
		})
	}
}

func TestService_Initialize_RestoresRateAndQueue(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Store = &fakeStore{
			rate: 1.25,
			saved: &SavedQueue{
				Items:    items(3),
				Index:    1,
				Position: 42 * time.Second,
				Repeat:   playlist.RepeatAll,
			},
		}
	})
	defer h.shutdown(t)
	h.settle(t)

	snap := h.svc.Snapshot()
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, playlist.RepeatAll, snap.Repeat)
	assert.InDelta(t, 1.25, snap.Transport.Rate, 1e-9)
	assert.Equal(t, ModeIdle, snap.Transport.Mode)
	assert.False(t, h.engine.Playing())
	assert.Equal(t, "/music/b.mp3", h.engine.Loaded())
	assert.Equal(t, []time.Duration{42 * time.Second}, h.engine.SeekCalls())

	h.svc.Play()
	h.settle(t)
	assert.True(t, h.svc.IsPlaying())
	assert.Len(t, h.engine.LoadCalls(), 1, "play resumes the restored item")
}

func TestService_CarModeWindow(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(20), 10)
	h.settle(t)
	assert.Equal(t, 20, h.svc.QueueWindow().Len())

	before := h.session.queueCount()
	h.svc.SetCarMode(true)
	h.settle(t)

	w := h.svc.QueueWindow()
	assert.Equal(t, 3, w.From)
	assert.Equal(t, 18, w.To)
	assert.Equal(t, 15, w.Len())
	assert.True(t, w.Contains(10))
	assert.Greater(t, h.session.queueCount(), before)

	h.svc.SkipNext(false)
	h.settle(t)
	assert.Equal(t, 4, h.svc.QueueWindow().From)
}

func TestService_PodcastMode(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load([]playlist.MediaItem{{ID: "ep", URI: "https://example.com/ep.mp3", IsPodcast: true}}, 0)
	h.settle(t)
	snap := h.svc.Snapshot()
	assert.True(t, snap.PodcastMode)
	assert.True(t, snap.IsStreaming())

	h.svc.Append(items(1), 0)
	h.settle(t)
	assert.False(t, h.svc.Snapshot().PodcastMode)
}

func TestService_Shuffle(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(2), 0)
	h.svc.Shuffle()
	h.settle(t)
	assert.False(t, h.svc.Snapshot().Shuffle, "shuffle needs more than 2 items")

	h.svc.Append(items(3), 0)
	h.svc.SetShuffle(true)
	h.settle(t)
	snap := h.svc.Snapshot()
	assert.True(t, snap.Shuffle)
	assert.True(t, snap.CanShuffle)
}

func TestService_Headset(t *testing.T) {
	tests := []struct {
		name     string
		autoPlay bool
		want     bool
	}{
		{"auto play", true, true},
		{"no auto play", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(o *Options) { o.Settings.HeadsetAutoPlay = tt.autoPlay })
			defer h.shutdown(t)

			h.svc.Load(items(2), 0)
			h.svc.HeadsetChanged(false)
			h.settle(t)
			require.False(t, h.svc.IsPlaying())

			h.svc.HeadsetChanged(true)
			h.settle(t)
			assert.Equal(t, tt.want, h.svc.IsPlaying())
		})
	}
}

func TestService_Headset_PlugDoesNotResumeManualPause(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Settings.HeadsetAutoPlay = true })
	defer h.shutdown(t)

	h.svc.Load(items(2), 0)
	h.svc.Pause()
	h.svc.HeadsetChanged(false)
	h.svc.HeadsetChanged(true)
	h.settle(t)

	assert.False(t, h.svc.IsPlaying())
}

func TestService_Bookmark(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(1), 0)
	h.settle(t)
	h.engine.SetTime(90 * time.Second)
	h.svc.Bookmark()
	h.settle(t)

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	assert.Equal(t, 90*time.Second, h.store.bookmarks["a"])
}

func TestService_ResolvesMetadata(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Resolver = fakeResolver{title: "Resolved"} })
	defer h.shutdown(t)

	sub := h.svc.Subscribe()
	h.svc.Load(items(2), 0)
	require.Eventually(t, func() bool {
		cur, _ := h.svc.CurrentItem()
		return cur.Title == "Resolved"
	}, time.Second, time.Millisecond)
	h.settle(t)

	cur, ok := h.svc.CurrentItem()
	require.True(t, ok)
	assert.Equal(t, "/music/a.mp3", cur.URI)

	var types []MediaEventType
	for len(sub.MediaEvents) > 0 {
		types = append(types, (<-sub.MediaEvents).Type)
	}
	assert.Equal(t, []MediaEventType{MediaChanged, MetaChanged}, types)
}

func TestService_PublishRequests(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(1), 0)
	h.settle(t)

	h.svc.ShowNotification(false)
	h.settle(t)
	shows, _ := h.notif.counts()
	assert.Equal(t, 1, shows, "unforced request with unchanged content is skipped")

	h.svc.ShowNotification(true)
	h.settle(t)
	shows, _ = h.notif.counts()
	assert.Equal(t, 2, shows)

	h.svc.HideNotification()
	h.settle(t)
	_, hides := h.notif.counts()
	assert.Equal(t, 1, hides)

	h.session.mu.Lock()
	metas := len(h.session.meta)
	h.session.mu.Unlock()
	h.svc.UpdateMetadata()
	h.svc.UpdateState()
	h.settle(t)
	h.session.mu.Lock()
	assert.Equal(t, metas+1, len(h.session.meta))
	h.session.mu.Unlock()
}

func TestService_PositionUpdates(t *testing.T) {
	h := newHarness(t)
	defer h.shutdown(t)

	h.svc.Load(items(1), 0)
	h.settle(t)

	h.engine.Emit(player.Event{Type: player.EventPositionChanged, Position: 5 * time.Second})
	h.settle(t)

	assert.Equal(t, 5*time.Second, h.svc.Snapshot().Transport.Time)
	h.widget.mu.Lock()
	defer h.widget.mu.Unlock()
	assert.Equal(t, 1, h.widget.positions)
}

func TestService_Browse_WaitsForLibrary(t *testing.T) {
	lib := newFakeLibrary(playlist.MediaItem{ID: "x", URI: "/music/x.mp3"})
	h := newHarness(t, func(o *Options) { o.Library = lib })
	defer h.shutdown(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.svc.Browse(ctx, "")
	require.ErrorIs(t, err, ErrLibraryNotReady)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(lib.ready)
	got, err := h.svc.Search(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].ID)
}

func TestService_LoadIDs(t *testing.T) {
	lib := newFakeLibrary(items(3)...)
	close(lib.ready)
	h := newHarness(t, func(o *Options) { o.Library = lib })
	defer h.shutdown(t)

	require.NoError(t, h.svc.LoadIDs(context.Background(), []string{"a", "missing", "c"}, 2))
	h.settle(t)

	assert.Len(t, h.svc.MediaList(), 2)
	cur, _ := h.svc.CurrentItem()
	assert.Equal(t, "c", cur.ID)

	err := h.svc.LoadIDs(context.Background(), []string{"missing"}, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Subscribe_Unsubscribe(t *testing.T) {
	h := newHarness(t)

	sub := h.svc.Subscribe()
	h.svc.Load(items(1), 0)
	h.settle(t)

	select {
	case snap := <-sub.Updates:
		assert.Len(t, snap.Items, 1)
	default:
		t.Error("expected an update")
	}

	h.svc.Unsubscribe(sub)
	<-sub.Done
	h.svc.Unsubscribe(sub)

	other := h.svc.Subscribe()
	h.shutdown(t)
	<-other.Done
}

func TestService_AutoRewind(t *testing.T) {
	tests := []struct {
		name   string
		paused time.Duration
		want   []time.Duration
	}{
		{"short pause", 10 * time.Second, nil},
		{"long pause", 2 * time.Minute, []time.Duration{55 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				h := newHarness(t, func(o *Options) {
					o.Settings.AutoRewind = AutoRewind{ShortPause: time.Minute, ShortRewind: 5 * time.Second}
				})
				defer h.shutdown(t)

				h.svc.Load(items(1), 0)
				h.settle(t)
				h.engine.SetTime(time.Minute)
				h.svc.Pause()
				h.settle(t)

				time.Sleep(tt.paused)
				h.svc.Play()
				h.settle(t)

				assert.Equal(t, tt.want, h.engine.SeekCalls())
				assert.True(t, h.svc.IsPlaying())
			})
		})
	}
}
