package remote

import (
	"sync"

	"github.com/llehouerou/wavesd/internal/session"
)

// Sink is a session surface that remembers the last published session so
// remote clients can read it back.
type Sink struct {
	mu       sync.RWMutex
	active   bool
	metadata *session.Metadata
	state    *session.State
	queue    session.Queue
}

var _ session.Surface = (*Sink)(nil)

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) SetMetadata(m session.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = &m
	return nil
}

func (s *Sink) SetState(st session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &st
	return nil
}

func (s *Sink) SetQueue(q session.Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = q
	return nil
}

func (s *Sink) SetActive(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
	return nil
}

// Session returns the last published session.
func (s *Sink) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Session{
		Active:  s.active,
		Queue:   append([]session.QueueItem{}, s.queue.Items...),
		Actions: []string{},
	}
	if m := s.metadata; m != nil {
		out.Metadata = &SessionMetadata{
			ID:         m.ID,
			Title:      m.Title,
			Artist:     m.Artist,
			Album:      m.Album,
			ArtURL:     m.ArtURL,
			DurationMS: m.Duration.Milliseconds(),
		}
	}
	if st := s.state; st != nil {
		out.State = &SessionState{
			Status:     st.Status.String(),
			PositionMS: st.Position.Milliseconds(),
			Rate:       st.Rate,
			CanSeek:    st.CanSeek,
			Active:     st.ActiveIndex,
			Repeat:     st.Repeat.String(),
			Shuffle:    st.Shuffle,
			Error:      st.Error,
		}
		out.Actions = st.Actions.Names()
		out.Custom = st.Custom
	}
	return out
}
