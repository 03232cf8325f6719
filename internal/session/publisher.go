package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/wavesd/internal/playback"
)

// Verify Publisher implements playback.SessionPublisher at compile time.
var _ playback.SessionPublisher = (*Publisher)(nil)

// Options configures a Publisher.
type Options struct {
	// CoverOnLockScreen includes artwork in the published metadata.
	CoverOnLockScreen bool
	// OnActiveChange runs when the session becomes active or inactive.
	OnActiveChange func(active bool)
}

// Publisher fans snapshots out to the registered surfaces.
type Publisher struct {
	mu       sync.Mutex
	opts     Options
	surfaces []Surface
	queue    QueueBuilder
	active   bool
	now      func() time.Time
	log      *logrus.Entry
}

// New creates a publisher for surfaces. More can be added with AddSurface.
func New(opts Options, surfaces ...Surface) *Publisher {
	return &Publisher{
		opts:     opts,
		surfaces: surfaces,
		now:      time.Now,
		log:      logrus.WithField("component", "session"),
	}
}

// AddSurface registers s. It receives the next publishes.
func (p *Publisher) AddSurface(s Surface) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surfaces = append(p.surfaces, s)
}

// PublishMetadata commits the metadata of the current item.
func (p *Publisher) PublishMetadata(snap playback.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := BuildMetadata(snap, p.opts.CoverOnLockScreen)
	return p.each(func(s Surface) error { return s.SetMetadata(m) })
}

// PublishState commits the transport state. The session is active exactly
// while the mode is not Stopped; OnActiveChange only runs on transitions.
func (p *Publisher) PublishState(snap playback.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if active := snap.Transport.Mode.IsActive(); active != p.active {
		p.active = active
		errs = append(errs, p.each(func(s Surface) error { return s.SetActive(active) }))
		if p.opts.OnActiveChange != nil {
			p.opts.OnActiveChange(active)
		}
		p.log.WithField("active", active).Debug("session active changed")
	}

	st := BuildState(snap, p.now())
	errs = append(errs, p.each(func(s Surface) error { return s.SetState(st) }))
	return errors.Join(errs...)
}

// PublishQueue commits the queue when QueueBuilder says so.
func (p *Publisher) PublishQueue(snap playback.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.queue.Build(snap)
	if !ok {
		return nil
	}
	return p.each(func(s Surface) error { return s.SetQueue(q) })
}

// Active reports whether the session is currently active.
func (p *Publisher) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Publisher) each(fn func(Surface) error) error {
	var errs []error
	for i, s := range p.surfaces {
		if err := fn(s); err != nil {
			errs = append(errs, fmt.Errorf("surface %d (%T): %w", i, s, err))
		}
	}
	return errors.Join(errs...)
}
