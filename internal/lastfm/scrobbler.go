package lastfm

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/state"
)

const (
	// MinScrobbleLength is the shortest item Last.fm accepts.
	MinScrobbleLength = 30 * time.Second
	// MaxScrobbleDelay caps the play time required before scrobbling.
	MaxScrobbleDelay = 4 * time.Minute
	// DefaultRetryInterval is how often pending scrobbles are retried.
	DefaultRetryInterval = 5 * time.Minute

	maxAttempts   = 10
	maxPendingAge = 14 * 24 * time.Hour
	jobQueueSize  = 16
)

// API is the part of the Last.fm client the scrobbler uses.
type API interface {
	UpdateNowPlaying(track Track) error
	Scrobble(track Track) error
}

// PendingStore persists scrobbles that could not be submitted.
type PendingStore interface {
	AddPendingScrobble(s state.PendingScrobble) error
	GetPendingScrobbles() ([]state.PendingScrobble, error)
	DeletePendingScrobble(id int64) error
	UpdatePendingScrobbleAttempt(id int64, errMsg string) error
	DeleteOldPendingScrobbles(maxAge time.Duration) error
}

type jobKind int

const (
	jobNowPlaying jobKind = iota
	jobScrobble
)

type job struct {
	kind  jobKind
	track Track
}

// Scrobbler follows playback and submits plays to Last.fm. Register it as
// a playback listener. Network calls run on a background worker.
type Scrobbler struct {
	api   API
	store PendingStore
	log   *logrus.Entry

	mu     sync.Mutex
	state  *ScrobbleState
	item   playlist.MediaItem
	closed bool

	jobs  chan job
	done  chan struct{}
	retry time.Duration
	wg    sync.WaitGroup
}

var _ playback.Listener = (*Scrobbler)(nil)

// NewScrobbler starts the submission worker. retry <= 0 uses
// DefaultRetryInterval. store may be nil, in which case failed scrobbles
// are dropped.
func NewScrobbler(api API, store PendingStore, retry time.Duration, log *logrus.Entry) *Scrobbler {
	if retry <= 0 {
		retry = DefaultRetryInterval
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Scrobbler{
		api:   api,
		store: store,
		log:   log.WithField("component", "lastfm"),
		jobs:  make(chan job, jobQueueSize),
		done:  make(chan struct{}),
		retry: retry,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Update implements playback.Listener.
func (s *Scrobbler) Update(snap playback.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !snap.HasCurrent {
		s.state = nil
		return
	}
	if s.state == nil || s.state.ItemID != snap.Current.ID {
		s.resetLocked(snap.Current)
	}
	s.item = snap.Current
	if snap.Transport.Length > 0 {
		s.state.Length = snap.Transport.Length
	}
	if !snap.IsPlaying() {
		return
	}
	if !s.state.NowPlayingSent && scrobbable(s.item) {
		s.state.NowPlayingSent = true
		s.enqueueLocked(job{kind: jobNowPlaying, track: s.trackLocked()})
	}
	s.checkLocked(snap.Transport.Time)
}

// OnMediaEvent implements playback.Listener.
func (s *Scrobbler) OnMediaEvent(ev playback.MediaEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Type {
	case playback.MediaChanged:
		s.resetLocked(ev.Item)
	case playback.MetaChanged:
		if s.state != nil && s.state.ItemID == ev.Item.ID {
			s.item = ev.Item
		}
	}
}

// OnPlayerEvent implements playback.Listener.
func (s *Scrobbler) OnPlayerEvent(ev player.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return
	}
	switch ev.Type { //nolint:exhaustive // only timing events matter
	case player.EventLengthChanged:
		s.state.Length = ev.Length
	case player.EventPositionChanged:
		s.checkLocked(ev.Position)
	}
}

// State returns a copy of the tracking state of the current item.
func (s *Scrobbler) State() (ScrobbleState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ScrobbleState{}, false
	}
	return *s.state, true
}

// Close stops the worker. Queued submissions are abandoned.
func (s *Scrobbler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scrobbler) resetLocked(item playlist.MediaItem) {
	s.item = item
	s.state = &ScrobbleState{
		ItemID:    item.ID,
		StartedAt: time.Now(),
		Length:    item.Duration,
	}
}

// checkLocked scrobbles after half the item or four minutes, whichever
// comes first. Items shorter than 30 seconds are never scrobbled.
func (s *Scrobbler) checkLocked(pos time.Duration) {
	st := s.state
	if st == nil || st.Scrobbled || !scrobbable(s.item) {
		return
	}
	if st.Length < MinScrobbleLength {
		return
	}
	threshold := min(st.Length/2, MaxScrobbleDelay)
	if pos < threshold {
		return
	}
	st.Scrobbled = true
	s.enqueueLocked(job{kind: jobScrobble, track: s.trackLocked()})
}

func (s *Scrobbler) trackLocked() Track {
	return Track{
		Artist:    s.item.Artist,
		Title:     s.item.Title,
		Album:     s.item.Album,
		Length:    s.state.Length,
		StartedAt: s.state.StartedAt,
	}
}

func (s *Scrobbler) enqueueLocked(j job) {
	if s.closed {
		return
	}
	select {
	case s.jobs <- j:
	default:
		s.log.WithField("track", j.track.Title).Warn("submission queue full, dropping")
	}
}

func scrobbable(item playlist.MediaItem) bool {
	if item.Artist == "" || item.Title == "" {
		return false
	}
	return !item.IsStream() && !item.IsPodcast && !item.IsVideo
}

func (s *Scrobbler) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.retry)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case j := <-s.jobs:
			s.submit(j)
		case <-ticker.C:
			s.retryPending()
		}
	}
}

func (s *Scrobbler) submit(j job) {
	log := s.log.WithFields(logrus.Fields{"artist": j.track.Artist, "track": j.track.Title})
	switch j.kind {
	case jobNowPlaying:
		// Best effort.
		if err := s.api.UpdateNowPlaying(j.track); err != nil {
			log.WithError(err).Debug("now playing update failed")
		}
	case jobScrobble:
		err := s.api.Scrobble(j.track)
		if err == nil {
			log.Debug("scrobbled")
			return
		}
		log.WithError(err).Warn("scrobble failed, queued for retry")
		if s.store == nil {
			return
		}
		if err := s.store.AddPendingScrobble(state.PendingScrobble{
			Artist:    j.track.Artist,
			Title:     j.track.Title,
			Album:     j.track.Album,
			Length:    j.track.Length,
			StartedAt: j.track.StartedAt,
		}); err != nil {
			log.WithError(err).Error("queue pending scrobble")
		}
	}
}

// retryPending resubmits queued scrobbles. Entries that failed too often
// are skipped and eventually expire.
func (s *Scrobbler) retryPending() (succeeded, failed int) {
	if s.store == nil {
		return 0, 0
	}
	if err := s.store.DeleteOldPendingScrobbles(maxPendingAge); err != nil {
		s.log.WithError(err).Warn("expire pending scrobbles")
	}
	pending, err := s.store.GetPendingScrobbles()
	if err != nil {
		s.log.WithError(err).Warn("load pending scrobbles")
		return 0, 0
	}

	for i := range pending {
		p := &pending[i]
		if p.Attempts >= maxAttempts {
			continue
		}
		err := s.api.Scrobble(Track{
			Artist:    p.Artist,
			Title:     p.Title,
			Album:     p.Album,
			Length:    p.Length,
			StartedAt: p.StartedAt,
		})
		if err != nil {
			failed++
			_ = s.store.UpdatePendingScrobbleAttempt(p.ID, err.Error())
			continue
		}
		succeeded++
		_ = s.store.DeletePendingScrobble(p.ID)
	}
	if succeeded > 0 || failed > 0 {
		s.log.WithFields(logrus.Fields{"succeeded": succeeded, "failed": failed}).Info("retried pending scrobbles")
	}
	return succeeded, failed
}
