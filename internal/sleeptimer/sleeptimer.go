// Package sleeptimer stops playback at a deadline, optionally waiting for
// the current item to end.
package sleeptimer

import (
	"context"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/player"
)

// DefaultTick is the polling interval of an armed timer.
const DefaultTick = time.Second

// Controller is the part of the playback service the timer drives.
type Controller interface {
	IsPlaying() bool
	Stop()
}

// Status describes the timer state.
type Status struct {
	Armed      bool
	Deadline   time.Time
	WaitForEnd bool
}

// Timer is a polling sleep timer. Register it as a playback listener so it
// observes end-of-item events.
type Timer struct {
	ctrl Controller
	tick time.Duration
	log  *logrus.Entry

	mu         sync.Mutex
	armed      bool
	deadline   time.Time
	waitForEnd bool
	gen        uint64
	cancel     context.CancelFunc
	closed     bool

	wg sync.WaitGroup
}

var _ playback.Listener = (*Timer)(nil)

// New creates an inactive timer.
func New(ctrl Controller, tick time.Duration, log *logrus.Entry) *Timer {
	if tick <= 0 {
		tick = DefaultTick
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Timer{
		ctrl: ctrl,
		tick: tick,
		log:  log.WithField("component", "sleeptimer"),
	}
}

// Set arms the timer at deadline, or cancels it when deadline is absent.
// A deadline that is not in the future is rejected and leaves the timer
// unchanged.
func (t *Timer) Set(deadline mo.Option[time.Time], waitForEnd bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}

	at, ok := deadline.Get()
	if !ok {
		t.disarmLocked()
		t.log.Debug("cancelled")
		return true
	}
	if !at.After(time.Now()) {
		t.log.WithField("deadline", at).Debug("deadline in the past, ignored")
		return false
	}

	t.disarmLocked()
	t.armed = true
	t.deadline = at
	t.waitForEnd = waitForEnd

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	gen := t.gen
	t.wg.Add(1)
	go t.run(ctx, gen)
	t.log.WithFields(logrus.Fields{"deadline": at, "wait_for_end": waitForEnd}).Info("armed")
	return true
}

// Status returns the current state.
func (t *Timer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{Armed: t.armed, Deadline: t.deadline, WaitForEnd: t.waitForEnd}
}

// Close cancels the timer and waits for its loop to exit.
func (t *Timer) Close() {
	t.mu.Lock()
	t.closed = true
	t.disarmLocked()
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Timer) disarmLocked() {
	t.gen++
	t.armed = false
	t.deadline = time.Time{}
	t.waitForEnd = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Timer) run(ctx context.Context, gen uint64) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.check(gen) {
				return
			}
		}
	}
}

// check fires the timer when due and reports whether the loop is done.
func (t *Timer) check(gen uint64) bool {
	t.mu.Lock()
	if gen != t.gen || !t.armed {
		t.mu.Unlock()
		return true
	}
	// a timer waiting for the end of the item fires from OnPlayerEvent
	if time.Now().Before(t.deadline) || t.waitForEnd {
		t.mu.Unlock()
		return false
	}
	t.disarmLocked()
	t.mu.Unlock()

	t.fire()
	return true
}

func (t *Timer) fire() {
	if t.ctrl.IsPlaying() {
		t.log.Info("stopping playback")
		t.ctrl.Stop()
		return
	}
	t.log.Debug("not playing, timer cleared")
}

// OnPlayerEvent fires a timer waiting for the end of an item once the
// deadline has passed.
func (t *Timer) OnPlayerEvent(ev player.Event) {
	if ev.Type != player.EventEndReached {
		return
	}
	t.mu.Lock()
	if !t.armed || !t.waitForEnd || time.Now().Before(t.deadline) {
		t.mu.Unlock()
		return
	}
	t.disarmLocked()
	t.mu.Unlock()

	// the actor already moved to the next item
	t.log.Info("stopping playback at end of item")
	t.ctrl.Stop()
}

func (t *Timer) Update(playback.Snapshot)         {}
func (t *Timer) OnMediaEvent(playback.MediaEvent) {}
