// Package widget publishes a small now-playing document for desktop widgets
// and status bars.
package widget

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/llehouerou/wavesd/internal/playback"
)

// DefaultPositionInterval is the minimum spacing of position-only writes.
const DefaultPositionInterval = 500 * time.Millisecond

// Payload is the JSON document written for widgets.
type Payload struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	Artwork     string `json:"artwork,omitempty"`
	State       string `json:"state"`
	PositionMS  int64  `json:"position_ms"`
	LengthMS    int64  `json:"length_ms"`
	HasNext     bool   `json:"has_next"`
	HasPrevious bool   `json:"has_previous"`
	Index       int    `json:"index"`
	QueueLength int    `json:"queue_length"`
}

// FromSnapshot projects a playback snapshot to a widget payload.
func FromSnapshot(s playback.Snapshot) Payload {
	p := Payload{
		State:       s.Transport.Mode.String(),
		PositionMS:  s.Transport.Time.Milliseconds(),
		LengthMS:    s.Transport.Length.Milliseconds(),
		HasNext:     s.HasNext,
		HasPrevious: s.HasPrevious,
		Index:       s.Index,
		QueueLength: len(s.Items),
	}
	if s.HasCurrent {
		p.ID = s.Current.ID
		p.Title = s.Current.DisplayTitle()
		p.Artist = s.Current.Artist
		p.Album = s.Current.Album
		p.Artwork = s.Current.ArtworkRef
	}
	return p
}

// Broadcaster writes the payload to a file on a background writer. Only the
// latest payload is kept while a write is in progress.
type Broadcaster struct {
	fs       afero.Fs
	path     string
	interval time.Duration
	log      *logrus.Entry

	mu      sync.Mutex
	pending *Payload
	lastPos time.Time
	closed  bool

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Broadcaster writing to path on fs and starts its writer.
func New(fs afero.Fs, path string, interval time.Duration, log *logrus.Entry) *Broadcaster {
	if interval <= 0 {
		interval = DefaultPositionInterval
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	b := &Broadcaster{
		fs:       fs,
		path:     path,
		interval: interval,
		log:      log.WithField("component", "widget"),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Update publishes a state change. It is never throttled.
func (b *Broadcaster) Update(s playback.Snapshot) {
	p := FromSnapshot(s)
	b.mu.Lock()
	b.lastPos = time.Now()
	b.mu.Unlock()
	b.enqueue(p)
}

// UpdatePosition publishes a position change at most once per interval.
func (b *Broadcaster) UpdatePosition(s playback.Snapshot) {
	now := time.Now()
	b.mu.Lock()
	if !b.lastPos.IsZero() && now.Sub(b.lastPos) < b.interval {
		b.mu.Unlock()
		return
	}
	b.lastPos = now
	b.mu.Unlock()
	b.enqueue(FromSnapshot(s))
}

func (b *Broadcaster) enqueue(p Payload) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.pending = &p
	b.mu.Unlock()
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Close stops the writer after flushing the pending payload and removes
// the file.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	close(b.done)
	b.wg.Wait()
	if err := b.fs.Remove(b.path); err != nil && !isNotExist(b.fs, b.path) {
		return fmt.Errorf("remove widget file: %w", err)
	}
	return nil
}

func (b *Broadcaster) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.kick:
			b.flush()
		case <-b.done:
			b.flush()
			return
		}
	}
}

func (b *Broadcaster) flush() {
	b.mu.Lock()
	p := b.pending
	b.pending = nil
	b.mu.Unlock()
	if p == nil {
		return
	}
	if err := b.write(*p); err != nil {
		b.log.WithError(err).Warn("write widget payload")
	}
}

// write replaces the file atomically through a rename.
func (b *Broadcaster) write(p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	dir := filepath.Dir(b.path)
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := afero.TempFile(b.fs, dir, ".nowplaying-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = b.fs.Remove(name)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = b.fs.Remove(name)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := b.fs.Rename(name, b.path); err != nil {
		_ = b.fs.Remove(name)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Read returns the last payload written to path.
func Read(fs afero.Fs, path string) (Payload, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Payload{}, err
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode widget payload: %w", err)
	}
	return p, nil
}

func isNotExist(fs afero.Fs, path string) bool {
	ok, err := afero.Exists(fs, path)
	return err == nil && !ok
}
