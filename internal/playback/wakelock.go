package playback

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

const wakeLockReason = "Playing media"

// wakeLock holds the inhibitor handle while playing. acquire and release
// are idempotent. After shutdown, acquire is a no-op.
type wakeLock struct {
	inhibitor Inhibitor
	log       *logrus.Entry

	mu     sync.Mutex
	held   io.Closer
	closed bool
}

func (w *wakeLock) acquire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.held != nil || w.closed {
		return
	}
	h, err := w.inhibitor.Inhibit(wakeLockReason)
	if err != nil {
		w.log.WithError(err).Warn("acquire wake lock")
		return
	}
	w.held = h
}

func (w *wakeLock) release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.releaseLocked()
}

// shutdown releases the lock and refuses later acquires.
func (w *wakeLock) shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.releaseLocked()
}

func (w *wakeLock) releaseLocked() {
	if w.held == nil {
		return
	}
	if err := w.held.Close(); err != nil {
		w.log.WithError(err).Warn("release wake lock")
	}
	w.held = nil
}

func (w *wakeLock) isHeld() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.held != nil
}
