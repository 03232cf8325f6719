package notify

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/wavesd/internal/playback"
)

// Action keys on the playback notification.
const (
	ActionPrevious = "previous"
	ActionToggle   = "toggle"
	ActionNext     = "next"
	ActionStop     = "stop"
	ActionSettings = "settings"
)

// Config tunes notification rebuilds.
type Config struct {
	// MinInterval separates two non-forced rebuilds.
	MinInterval time.Duration
	// BuildDelay coalesces bursts of requests before a rebuild.
	BuildDelay time.Duration
	AppName    string
}

// DefaultConfig returns the default rebuild timings.
func DefaultConfig() Config {
	return Config{
		MinInterval: time.Second,
		BuildDelay:  100 * time.Millisecond,
		AppName:     "wavesd",
	}
}

// Controller receives notification button presses.
type Controller interface {
	TogglePlay()
	SkipNext(force bool)
	SkipPrevious(force bool)
	Stop()
	ShowNotification(force bool)
	// InvalidateNotification makes the next show request rebuild even
	// when its content matches the last one sent.
	InvalidateNotification()
}

// Manager keeps a single persistent notification in sync with playback and
// shows one-shot messages. It implements playback.NotificationManager and
// playback.Messenger.
type Manager struct {
	cfg      Config
	notifier Notifier
	log      *logrus.Entry
	now      func() time.Time

	// OpenSettings runs when the settings action of a message is clicked.
	OpenSettings func()

	mu         sync.Mutex
	ctrl       Controller
	pending    playback.Snapshot
	hasPending bool
	timer      *time.Timer
	lastBuild  time.Time // zero after Hide
	gen        uint64
	id         uint32
	messages   map[uint32]playback.MessageAction
	closed     bool

	buildMu sync.Mutex
	wg      sync.WaitGroup
	done    chan struct{}
}

// NewManager creates a Manager and starts listening for action clicks.
func NewManager(cfg Config, notifier Notifier, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &Manager{
		cfg:      cfg,
		notifier: notifier,
		log:      log.WithField("component", "notify"),
		now:      time.Now,
		messages: make(map[uint32]playback.MessageAction),
		done:     make(chan struct{}),
	}
	if ch := notifier.Actions(); ch != nil {
		m.wg.Add(1)
		go m.listen(ch)
	}
	return m
}

// SetController sets the receiver of button presses.
func (m *Manager) SetController(c Controller) {
	m.mu.Lock()
	m.ctrl = c
	m.mu.Unlock()
}

// Show schedules a rebuild from snap. Forced requests skip both the build
// delay and the throttle.
func (m *Manager) Show(snap playback.Snapshot, force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.pending = snap
	m.hasPending = true

	if force {
		m.stopTimerLocked()
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.build()
		}()
		return
	}
	if m.timer != nil {
		// the scheduled rebuild picks up the latest snapshot
		return
	}
	delay := m.cfg.BuildDelay
	if !m.lastBuild.IsZero() {
		if wait := m.lastBuild.Add(m.cfg.MinInterval).Sub(m.now()); wait > delay {
			delay = wait
		}
	}
	m.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer m.wg.Done()
		m.mu.Lock()
		if m.timer == t {
			m.timer = nil
		}
		m.mu.Unlock()
		m.build()
	})
	m.timer = t
}

// Hide removes the notification and resets the throttle so the next Show
// is not delayed by the previous build.
func (m *Manager) Hide() {
	m.mu.Lock()
	m.gen++
	m.hasPending = false
	m.stopTimerLocked()
	m.lastBuild = time.Time{}
	id := m.id
	m.id = 0
	if m.closed || id == 0 {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.buildMu.Lock()
		defer m.buildMu.Unlock()
		if err := m.notifier.Close(id); err != nil {
			m.log.WithError(err).Debug("close notification")
		}
	}()
}

// ShowMessage sends a one-shot notification.
func (m *Manager) ShowMessage(msg playback.Message) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		n := Notification{
			Title:   m.cfg.AppName,
			Body:    msg.Text,
			Expire:  ExpireDefault,
			Urgency: UrgencyNormal,
		}
		if msg.Action == playback.ActionOpenSettings {
			n.Actions = []Action{{Key: ActionSettings, Label: "Settings"}}
		}
		id, err := m.notifier.Notify(n)
		if err != nil {
			m.log.WithError(err).WithField("message", msg.Text).Warn("show message")
			return
		}
		if id != 0 && msg.Action != playback.ActionNone {
			m.mu.Lock()
			m.messages[id] = msg.Action
			m.mu.Unlock()
		}
	}()
}

// Close stops pending rebuilds and the action listener, then waits for
// in-flight work. The notification itself is left as is.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.stopTimerLocked()
	m.mu.Unlock()

	close(m.done)
	err := m.notifier.Stop()
	m.wg.Wait()
	return err
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil && m.timer.Stop() {
		m.wg.Done()
	}
	m.timer = nil
}

func (m *Manager) build() {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	m.mu.Lock()
	if m.closed || !m.hasPending {
		m.mu.Unlock()
		return
	}
	snap := m.pending
	m.hasPending = false
	m.lastBuild = m.now()
	gen := m.gen
	replaces := m.id
	m.mu.Unlock()

	n, ok := m.render(snap)
	if !ok {
		if snap.HasCurrent {
			m.invalidate()
		}
		return
	}
	n.Replaces = replaces
	id, err := m.notifier.Notify(n)
	if err != nil {
		// the previous notification stays
		m.log.WithError(err).Warn("notification build failed")
		m.invalidate()
		return
	}

	m.mu.Lock()
	stale := gen != m.gen
	if !stale {
		m.id = id
	}
	m.mu.Unlock()
	if stale && id != 0 {
		if err := m.notifier.Close(id); err != nil {
			m.log.WithError(err).Debug("close stale notification")
		}
	}
}

func (m *Manager) invalidate() {
	m.mu.Lock()
	ctrl := m.ctrl
	m.mu.Unlock()
	if ctrl != nil {
		ctrl.InvalidateNotification()
	}
}

func (m *Manager) render(snap playback.Snapshot) (n Notification, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Errorf("render panic: %v\n%s", rec, debug.Stack())
			ok = false
		}
	}()
	if !snap.HasCurrent {
		return Notification{}, false
	}
	return Render(snap), true
}

func (m *Manager) listen(ch <-chan Invocation) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case inv, open := <-ch:
			if !open {
				return
			}
			m.dispatch(inv)
		}
	}
}

func (m *Manager) dispatch(inv Invocation) {
	m.mu.Lock()
	ctrl := m.ctrl
	current := m.id
	action, isMessage := m.messages[inv.ID]
	if isMessage {
		delete(m.messages, inv.ID)
	}
	m.mu.Unlock()

	if isMessage {
		if action == playback.ActionOpenSettings && inv.Key == ActionSettings && m.OpenSettings != nil {
			m.OpenSettings()
		}
		return
	}
	if ctrl == nil || inv.ID != current {
		return
	}
	switch inv.Key {
	case ActionPrevious:
		ctrl.SkipPrevious(false)
	case ActionToggle:
		ctrl.TogglePlay()
	case ActionNext:
		ctrl.SkipNext(true)
	case ActionStop:
		ctrl.Stop()
	default:
		return
	}
	ctrl.ShowNotification(true)
}
