// Package state persists the resume state, the playback rate, bookmarks and
// the Last.fm session in SQLite.
package state

import (
	"database/sql"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"

	dbutil "github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/playback"
)

const (
	appName      = "wavesd"
	dbFileName   = "state.db"
	saveDebounce = 500 * time.Millisecond
)

// Manager implements playback.Store. Queue saves are debounced.
type Manager struct {
	db  *sql.DB
	log *logrus.Entry

	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *playback.SavedQueue
}

var _ playback.Store = (*Manager)(nil)

// DefaultPath returns the database path under the XDG state directory.
func DefaultPath() (string, error) {
	return xdg.StateFile(filepath.Join(appName, dbFileName))
}

// Open opens the database at path. Use dbutil.Memory for tests.
func Open(path string, log *logrus.Entry) (*Manager, error) {
	db, err := dbutil.Open(path, schema...)
	if err != nil {
		return nil, err
	}
	return New(db, log), nil
}

// New wraps an initialized database.
func New(db *sql.DB, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{db: db, log: log.WithField("component", "state")}
}

// Close flushes the pending queue and closes the database.
func (m *Manager) Close() error {
	if err := m.Flush(); err != nil {
		m.log.WithError(err).Warn("flush queue on close")
	}
	return m.db.Close()
}

// DB returns the underlying database.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// SaveQueue schedules a write of q. Bursts of saves result in one write.
func (m *Manager) SaveQueue(q playback.SavedQueue) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &q

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		if err := m.Flush(); err != nil {
			m.log.WithError(err).Warn("save queue")
		}
	})
	return nil
}

// Flush writes a pending queue immediately.
func (m *Manager) Flush() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if pending == nil {
		return nil
	}
	return saveQueue(m.db, *pending)
}

// LoadQueue returns the saved queue, or nil when nothing was saved.
func (m *Manager) LoadQueue() (*playback.SavedQueue, error) {
	if err := m.Flush(); err != nil {
		return nil, err
	}
	return getQueue(m.db)
}
