// Package mpris exposes the playback session over the MPRIS D-Bus
// interface.
package mpris

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/session"
)

// seekTolerance is how far the reported position may drift from the
// extrapolated one before clients are told about a seek.
const seekTolerance = 2 * time.Second

// Controller is the part of playback.Service driven by MPRIS clients.
type Controller interface {
	Play()
	Pause()
	TogglePlay()
	Stop()
	SkipNext(force bool)
	SkipPrevious(force bool)
	Seek(pos time.Duration)
	SeekBy(delta time.Duration)
	SetRate(rate float64, persist bool)
	SetRepeatMode(mode playlist.RepeatMode)
	SetShuffle(on bool)
	Load(items []playlist.MediaItem, start int)
}

// signaler emits PropertiesChanged and Seeked signals.
type signaler interface {
	PlaybackChanged() error
	MetadataChanged() error
	OptionsChanged() error
	Seeked(pos time.Duration) error
}

type noSignals struct{}

func (noSignals) PlaybackChanged() error     { return nil }
func (noSignals) MetadataChanged() error     { return nil }
func (noSignals) OptionsChanged() error      { return nil }
func (noSignals) Seeked(time.Duration) error { return nil }

// Surface is a session.Surface backed by an MPRIS server. It caches the
// last published values; MPRIS property reads are answered from the cache.
type Surface struct {
	mu       sync.RWMutex
	meta     session.Metadata
	state    session.State
	active   bool
	queueLen int

	ctrl    Controller
	signals signaler
	closer  func() error
	now     func() time.Time
	log     *logrus.Entry
}

var _ session.Surface = (*Surface)(nil)

func newSurface(ctrl Controller) *Surface {
	return &Surface{
		ctrl:    ctrl,
		signals: noSignals{},
		state:   session.State{ActiveIndex: -1, Rate: 1},
		now:     time.Now,
		log:     logrus.WithField("component", "mpris"),
	}
}

// Close stops the MPRIS server.
func (s *Surface) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func (s *Surface) SetMetadata(m session.Metadata) error {
	s.mu.Lock()
	changed := m != s.meta
	s.meta = m
	s.mu.Unlock()
	if !changed {
		return nil
	}
	return s.signals.MetadataChanged()
}

func (s *Surface) SetState(st session.State) error {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()

	if prev.Status != st.Status {
		if err := s.signals.PlaybackChanged(); err != nil {
			return err
		}
	}
	if optionsChanged(prev, st) {
		if err := s.signals.OptionsChanged(); err != nil {
			return err
		}
	}
	if seeked(prev, st) {
		return s.signals.Seeked(st.Position)
	}
	return nil
}

func (s *Surface) SetQueue(q session.Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueLen = len(q.Items)
	return nil
}

func (s *Surface) SetActive(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
	return nil
}

func (s *Surface) snapshot() (session.Metadata, session.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta, s.state
}

// position extrapolates the last published position while playing.
func (s *Surface) position() time.Duration {
	_, st := s.snapshot()
	return extrapolate(st, s.now())
}

func extrapolate(st session.State, now time.Time) time.Duration {
	if st.Status != session.StatusPlaying || st.UpdatedAt.IsZero() {
		return st.Position
	}
	rate := st.Rate
	if rate <= 0 {
		rate = 1
	}
	return st.Position + time.Duration(float64(now.Sub(st.UpdatedAt))*rate)
}

func optionsChanged(prev, st session.State) bool {
	return prev.Actions != st.Actions ||
		prev.Repeat != st.Repeat ||
		prev.Shuffle != st.Shuffle ||
		prev.Rate != st.Rate ||
		prev.CanSeek != st.CanSeek
}

// seeked reports a position jump within the same item.
func seeked(prev, st session.State) bool {
	if prev.UpdatedAt.IsZero() || prev.ActiveIndex != st.ActiveIndex {
		return false
	}
	diff := st.Position - extrapolate(prev, st.UpdatedAt)
	return diff > seekTolerance || diff < -seekTolerance
}
