package playback

import "github.com/llehouerou/wavesd/internal/player"

const eventBufferSize = 16

// Subscription is a Listener that forwards to buffered channels. Events are
// dropped when a channel is full.
type Subscription struct {
	Updates      <-chan Snapshot
	MediaEvents  <-chan MediaEvent
	PlayerEvents <-chan player.Event
	Done         <-chan struct{}

	// Internal write channels
	updateCh chan Snapshot
	mediaCh  chan MediaEvent
	playerCh chan player.Event
	doneCh   chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		updateCh: make(chan Snapshot, eventBufferSize),
		mediaCh:  make(chan MediaEvent, eventBufferSize),
		playerCh: make(chan player.Event, eventBufferSize),
		doneCh:   make(chan struct{}),
	}
	s.Updates = s.updateCh
	s.MediaEvents = s.mediaCh
	s.PlayerEvents = s.playerCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	select {
	case <-s.doneCh:
	default:
		close(s.doneCh)
	}
}

// Update implements Listener (non-blocking).
func (s *Subscription) Update(snap Snapshot) {
	select {
	case s.updateCh <- snap:
	default:
		// Drop if buffer full
	}
}

// OnMediaEvent implements Listener (non-blocking).
func (s *Subscription) OnMediaEvent(ev MediaEvent) {
	select {
	case s.mediaCh <- ev:
	default:
	}
}

// OnPlayerEvent implements Listener (non-blocking).
func (s *Subscription) OnPlayerEvent(ev player.Event) {
	select {
	case s.playerCh <- ev:
	default:
	}
}
